package cache

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	// Get always returns miss
	data, hit, err := c.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if hit {
		t.Error("NullCache.Get should always return miss")
	}
	if data != nil {
		t.Error("NullCache.Get should return nil data")
	}

	// Set does nothing (no error)
	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Errorf("Set error: %v", err)
	}

	// Still a miss after Set
	_, hit, _ = c.Get(ctx, "key")
	if hit {
		t.Error("NullCache should not store data")
	}

	// Delete does nothing (no error)
	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
}

func TestHash(t *testing.T) {
	// Test determinism
	h1 := Hash([]byte("hello"))
	h2 := Hash([]byte("hello"))
	if h1 != h2 {
		t.Error("Hash should be deterministic")
	}

	// Test different inputs produce different hashes
	h3 := Hash([]byte("world"))
	if h1 == h3 {
		t.Error("Different inputs should produce different hashes")
	}

	// Test hash length (SHA-256 produces 64 hex chars)
	if len(h1) != 64 {
		t.Errorf("Hash length should be 64, got %d", len(h1))
	}
}

func TestDefaultKeyer(t *testing.T) {
	k := NewDefaultKeyer()

	opts := PlanKeyOpts{PhotoWidth: 295, PhotoHeight: 413, Margin: 35, PageWidth: 1200, PageHeight: 1800}
	pk1 := k.PlanKey(opts)
	if pk1 != k.PlanKey(opts) {
		t.Error("PlanKey should be deterministic")
	}
	if !strings.HasPrefix(pk1, "plan:") {
		t.Errorf("PlanKey unexpected: %s", pk1)
	}

	// PlanKey should include every input in the hash
	opts.Margin = 0
	if k.PlanKey(opts) == pk1 {
		t.Error("Different PlanKeyOpts should produce different keys")
	}

	// ArtifactKey
	ak1 := k.ArtifactKey("hash123", ArtifactKeyOpts{Format: "png", UnitHash: "u1"})
	ak2 := k.ArtifactKey("hash123", ArtifactKeyOpts{Format: "jpeg", UnitHash: "u1", Quality: 90})
	ak3 := k.ArtifactKey("hash123", ArtifactKeyOpts{Format: "png", UnitHash: "u2"})
	if ak1 == ak2 || ak1 == ak3 {
		t.Error("Different ArtifactKeyOpts should produce different keys")
	}
	if k.ArtifactKey("other", ArtifactKeyOpts{Format: "png", UnitHash: "u1"}) == ak1 {
		t.Error("Different plan hashes should produce different keys")
	}
}

func TestScopedKeyer(t *testing.T) {
	inner := NewDefaultKeyer()
	scoped := NewScopedKeyer(inner, "tenant:123:")

	// All keys should be prefixed
	opts := PlanKeyOpts{PhotoWidth: 1, PhotoHeight: 1, PageWidth: 10, PageHeight: 10}
	planKey := scoped.PlanKey(opts)
	if planKey != "tenant:123:"+inner.PlanKey(opts) {
		t.Errorf("ScopedKeyer PlanKey unexpected: %s", planKey)
	}

	artifactKey := scoped.ArtifactKey("h", ArtifactKeyOpts{Format: "png"})
	if !strings.HasPrefix(artifactKey, "tenant:123:artifact:") {
		t.Errorf("ScopedKeyer ArtifactKey should be prefixed: %s", artifactKey)
	}
}

func TestScopedKeyerNilInner(t *testing.T) {
	// Should use DefaultKeyer when inner is nil
	scoped := NewScopedKeyer(nil, "prefix:")
	key := scoped.PlanKey(PlanKeyOpts{})
	if !strings.HasPrefix(key, "prefix:plan:") {
		t.Errorf("Unexpected key with nil inner: %s", key)
	}
}

func TestHashImage(t *testing.T) {
	a := image.NewRGBA(image.Rect(0, 0, 4, 4))
	a.Set(1, 1, color.RGBA{R: 255, A: 255})

	// Same pixels in a different concrete type and origin.
	b := image.NewNRGBA(image.Rect(10, 10, 14, 14))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			b.Set(10+x, 10+y, a.At(x, y))
		}
	}
	if HashImage(a) != HashImage(b) {
		t.Error("identical pixels should hash the same")
	}

	a.Set(2, 2, color.RGBA{G: 255, A: 255})
	if HashImage(a) == HashImage(b) {
		t.Error("different pixels should hash differently")
	}

	// Same pixel bytes, different shape.
	if HashImage(image.NewRGBA(image.Rect(0, 0, 2, 8))) == HashImage(image.NewRGBA(image.Rect(0, 0, 8, 2))) {
		t.Error("different sizes should hash differently")
	}
}

func TestFileCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache error: %v", err)
	}
	defer c.Close()

	if _, hit, err := c.Get(ctx, "missing"); hit || err != nil {
		t.Errorf("Get(missing) = hit %v, err %v; want miss", hit, err)
	}

	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	data, hit, err := c.Get(ctx, "key")
	if err != nil || !hit || string(data) != "value" {
		t.Errorf("Get(key) = %q, %v, %v; want value hit", data, hit, err)
	}

	// Expired entries are misses
	if err := c.Set(ctx, "old", []byte("x"), time.Nanosecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(2 * time.Millisecond)
	if _, hit, _ := c.Get(ctx, "old"); hit {
		t.Error("expired entry should be a miss")
	}

	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "key"); hit {
		t.Error("deleted entry should be a miss")
	}
	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete(missing) error: %v", err)
	}
}

func TestFileCacheClear(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "cache")
	c, err := NewFileCache(dir)
	if err != nil {
		t.Fatal(err)
	}
	c.Set(ctx, "a", []byte("1"), 0)
	c.Set(ctx, "b", []byte("2"), 0)

	clearer, ok := c.(Clearer)
	if !ok {
		t.Fatal("FileCache should implement Clearer")
	}
	if err := clearer.Clear(ctx); err != nil {
		t.Fatalf("Clear error: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "a"); hit {
		t.Error("Clear should remove entries")
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("Clear should keep the cache directory: %v", err)
	}
}

func TestRetryableError(t *testing.T) {
	if Retryable(nil) != nil {
		t.Error("Retryable(nil) should stay nil")
	}
	err := Retryable(fmt.Errorf("get plan: %w", ErrNetwork))
	if !IsRetryable(err) || !errors.Is(err, ErrNetwork) {
		t.Errorf("wrapped network error lost its marks: %v", err)
	}
	if err.Error() != "get plan: network error" {
		t.Errorf("message = %q", err.Error())
	}
	if IsRetryable(ErrNetwork) {
		t.Error("an unmarked error should not be retryable")
	}
}

func TestRetryWithBackoff(t *testing.T) {
	old := retryDelay
	retryDelay = time.Millisecond
	t.Cleanup(func() { retryDelay = old })

	errDecode := errors.New("corrupt entry")
	tests := []struct {
		name      string
		failures  int
		err       error
		wantCalls int
		wantErr   error
	}{
		{"first try", 0, nil, 1, nil},
		{"permanent error", 5, errDecode, 1, errDecode},
		{"recovers", 1, Retryable(ErrNetwork), 2, nil},
		{"gives up", 5, Retryable(ErrNetwork), retryAttempts, ErrNetwork},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := RetryWithBackoff(context.Background(), func() error {
				calls++
				if calls <= tt.failures {
					return tt.err
				}
				return nil
			})
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
			if tt.wantErr == nil && err != nil {
				t.Errorf("err = %v, want nil", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRetryWithBackoffContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := RetryWithBackoff(ctx, func() error {
		calls++
		return Retryable(ErrNetwork)
	})
	if err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}
