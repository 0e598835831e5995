// Package session keeps interactive crop state between requests.
//
// A [Session] owns one uploaded source image, the aspect ratio the crop box is
// locked to, and the current crop region. Uploading a new image replaces the
// whole session state; there is never more than one source per session.
// Sessions are handed explicitly to the code that needs them and stored in a
// [Store] keyed by ID:
//   - [MemoryStore]: in-process storage for the HTTP server
//   - [FileStore]: on-disk storage, surviving restarts
//
// # Usage
//
//	sess, err := session.New(img, aspect, session.DefaultTTL)
//	if err != nil {
//	    return err
//	}
//	store.Set(ctx, sess)
//
//	sess, err = store.Get(ctx, id)
//	if errors.Is(err, errors.ErrCodeSessionExpired) {
//	    // ask for a new upload
//	}
//	unit, err := sess.Crop(295, 413)
package session

import (
	"context"
	"image"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/idsheet/pkg/crop"
	"github.com/matzehuels/idsheet/pkg/errors"
)

// DefaultTTL is the default session lifetime.
const DefaultTTL = 30 * time.Minute

// aspectTolerance absorbs the rounding between pixel sizes of the same
// photo at different resolutions.
const aspectTolerance = 0.01

// Session is one interactive crop: a source image plus an aspect-locked region.
// Methods are safe for concurrent use.
type Session struct {
	ID        string
	Filename  string
	CreatedAt time.Time
	ExpiresAt time.Time

	mu     sync.RWMutex
	source image.Image
	aspect float64
	region image.Rectangle
}

// Snapshot is a read-only view of a session's crop state.
type Snapshot struct {
	ID        string          `json:"id"`
	Filename  string          `json:"filename,omitempty"`
	Width     int             `json:"width"`
	Height    int             `json:"height"`
	Aspect    float64         `json:"aspect"`
	Region    image.Rectangle `json:"region"`
	CreatedAt time.Time       `json:"created_at"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// New starts a session for src with the crop box locked to aspect
// (width/height) and set to the default region.
func New(src image.Image, aspect float64, ttl time.Duration) (*Session, error) {
	if err := checkSource(src, aspect); err != nil {
		return nil, err
	}
	now := time.Now()
	return &Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
		source:    src,
		aspect:    aspect,
		region:    crop.DefaultRegion(src.Bounds(), aspect),
	}, nil
}

func checkSource(src image.Image, aspect float64) error {
	if src == nil || src.Bounds().Empty() {
		return errors.New(errors.ErrCodeMissingUnitImage, "no source image")
	}
	if !(aspect > 0) {
		return errors.New(errors.ErrCodeInvalidMeasurement, "aspect ratio must be positive, got %v", aspect)
	}
	return nil
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return time.Now().After(s.ExpiresAt)
}

// Touch extends the session lifetime by ttl from now.
func (s *Session) Touch(ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ExpiresAt = time.Now().Add(ttl)
}

// Source returns the uploaded image.
func (s *Session) Source() image.Image {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.source
}

// Region returns the current crop region in source coordinates.
func (s *Session) Region() image.Rectangle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.region
}

// Aspect returns the locked width/height ratio.
func (s *Session) Aspect() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.aspect
}

// Replace swaps in a new source image and resets the region to the default
// box. The previous source and region are discarded.
func (s *Session) Replace(src image.Image, filename string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := checkSource(src, s.aspect); err != nil {
		return err
	}
	s.source = src
	s.Filename = filename
	s.region = crop.DefaultRegion(src.Bounds(), s.aspect)
	return nil
}

// SetAspect locks the crop box to a new aspect ratio, re-fitting the current
// region around its center.
func (s *Session) SetAspect(aspect float64) error {
	if !(aspect > 0) {
		return errors.New(errors.ErrCodeInvalidMeasurement, "aspect ratio must be positive, got %v", aspect)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.aspect = aspect
	s.region = crop.FitAspect(s.region, s.source.Bounds(), aspect)
	return nil
}

// SetRegion moves the crop box. The region must lie inside the source; it is
// re-fitted to the locked aspect ratio.
func (s *Session) SetRegion(r image.Rectangle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r = r.Canon()
	if err := crop.Validate(r, s.source.Bounds()); err != nil {
		return err
	}
	s.region = crop.FitAspect(r, s.source.Bounds(), s.aspect)
	return nil
}

// Crop returns the current region resampled to width x height. When
// width/height differs from the locked aspect ratio, the region is first
// refit to that ratio around its center so the photo is never stretched.
// The stored region is left unchanged.
func (s *Session) Crop(width, height int) (image.Image, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	region := s.region
	if aspect, err := crop.Aspect(width, height); err == nil && math.Abs(aspect-s.aspect) > aspectTolerance {
		region = crop.FitAspect(region, s.source.Bounds(), aspect)
	}
	return crop.Crop(s.source, region, width, height)
}

// Snapshot returns the session's current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b := s.source.Bounds()
	return Snapshot{
		ID:        s.ID,
		Filename:  s.Filename,
		Width:     b.Dx(),
		Height:    b.Dy(),
		Aspect:    s.aspect,
		Region:    s.region,
		CreatedAt: s.CreatedAt,
		ExpiresAt: s.ExpiresAt,
	}
}

// Store is the interface for session storage backends.
type Store interface {
	// Get retrieves a session by ID. It fails with ErrCodeSessionNotFound
	// when the ID is unknown and ErrCodeSessionExpired when it has lapsed.
	Get(ctx context.Context, id string) (*Session, error)

	// Set stores a session, replacing any session with the same ID.
	Set(ctx context.Context, s *Session) error

	// Touch extends the lifetime of sess by ttl from now and persists the
	// new expiry.
	Touch(ctx context.Context, s *Session, ttl time.Duration) error

	// Delete removes a session. Deleting an unknown ID is not an error.
	Delete(ctx context.Context, id string) error

	// Cleanup removes expired sessions.
	Cleanup(ctx context.Context) error

	Close() error
}

func notFound(id string) error {
	return errors.New(errors.ErrCodeSessionNotFound, "session %q not found", id)
}

func expired(id string) error {
	return errors.New(errors.ErrCodeSessionExpired, "session %q expired; upload the photo again", id)
}
