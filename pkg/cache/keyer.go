package cache

// Keyer derives cache keys from run inputs.
type Keyer interface {
	// PlanKey returns the key for a layout grid.
	PlanKey(opts PlanKeyOpts) string

	// ArtifactKey returns the key for a rendered output of a plan.
	ArtifactKey(planHash string, opts ArtifactKeyOpts) string
}

// PlanKeyOpts are the pixel inputs that fully determine a layout grid.
type PlanKeyOpts struct {
	PhotoWidth  int `json:"pw"`
	PhotoHeight int `json:"ph"`
	Margin      int `json:"m"`
	PageWidth   int `json:"w"`
	PageHeight  int `json:"h"`
}

// ArtifactKeyOpts are the inputs, beyond the plan, that determine an output.
type ArtifactKeyOpts struct {
	UnitHash      string `json:"unit,omitempty"` // Hash of the unit image pixels
	Format        string `json:"format"`
	Quality       int    `json:"quality,omitempty"`
	Interpolation string `json:"interp,omitempty"`
}

// DefaultKeyer builds keys as "<type>:<sha256 of inputs>".
type DefaultKeyer struct{}

// NewDefaultKeyer creates the default keyer.
func NewDefaultKeyer() Keyer {
	return &DefaultKeyer{}
}

func (k *DefaultKeyer) PlanKey(opts PlanKeyOpts) string {
	return hashKey(KeyTypePlan, opts)
}

func (k *DefaultKeyer) ArtifactKey(planHash string, opts ArtifactKeyOpts) string {
	return hashKey(KeyTypeArtifact, planHash, opts)
}

var _ Keyer = (*DefaultKeyer)(nil)
