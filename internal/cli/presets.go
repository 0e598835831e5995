package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/idsheet/pkg/units"
)

// presetsCommand lists the page and photo presets, including user-defined
// ones from the config file.
func (c *CLI) presetsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List page and photo size presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			page, photo, err := cfg.PresetSets()
			if err != nil {
				return err
			}
			printPresets("Pages", page)
			printNewline()
			printPresets("Photos", photo)
			return nil
		},
	}
}

func printPresets(title string, p units.Presets) {
	printTitle(title)
	for _, name := range p.Names() {
		printKeyValue(name, p[name].String())
	}
}
