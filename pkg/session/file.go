package session

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/disintegration/imaging"

	"github.com/matzehuels/idsheet/pkg/crop"
)

// FileStore is a file-based session store.
// Each session is a JSON metadata file plus a PNG copy of its source image.
type FileStore struct {
	mu      sync.RWMutex
	baseDir string
}

// fileMeta is the on-disk form of a session's crop state.
type fileMeta struct {
	ID        string          `json:"id"`
	Filename  string          `json:"filename,omitempty"`
	Aspect    float64         `json:"aspect"`
	Region    image.Rectangle `json:"region"`
	CreatedAt time.Time       `json:"created_at"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// NewFileStore creates a new file-based session store.
// If baseDir is empty, defaults to ~/.config/idsheet/sessions/
func NewFileStore(baseDir string) (*FileStore, error) {
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home dir: %w", err)
		}
		baseDir = filepath.Join(home, ".config", "idsheet", "sessions")
	}
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	return &FileStore{baseDir: baseDir}, nil
}

func (s *FileStore) metaPath(id string) string   { return filepath.Join(s.baseDir, id+".json") }
func (s *FileStore) sourcePath(id string) string { return filepath.Join(s.baseDir, id+".png") }

func (s *FileStore) Get(ctx context.Context, id string) (*Session, error) {
	if !validID(id) {
		return nil, notFound(id)
	}

	s.mu.RLock()
	meta, err := s.readMeta(id)
	if err == nil && !time.Now().After(meta.ExpiresAt) {
		var src image.Image
		src, err = crop.Open(s.sourcePath(id))
		s.mu.RUnlock()
		if err != nil {
			return nil, fmt.Errorf("load session image: %w", err)
		}
		return &Session{
			ID:        meta.ID,
			Filename:  meta.Filename,
			CreatedAt: meta.CreatedAt,
			ExpiresAt: meta.ExpiresAt,
			source:    src,
			aspect:    meta.Aspect,
			region:    meta.Region,
		}, nil
	}
	s.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// The session may have been touched since the read above.
	if meta, err := s.readMeta(id); err == nil && time.Now().After(meta.ExpiresAt) {
		s.remove(id)
	}
	return nil, expired(id)
}

// readMeta loads the metadata of session id. Callers hold s.mu.
func (s *FileStore) readMeta(id string) (fileMeta, error) {
	var meta fileMeta
	data, err := os.ReadFile(s.metaPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return meta, notFound(id)
		}
		return meta, fmt.Errorf("read session file: %w", err)
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return meta, fmt.Errorf("parse session: %w", err)
	}
	return meta, nil
}

// writeMeta stores the metadata of a session. Callers hold s.mu for writing.
func (s *FileStore) writeMeta(meta fileMeta) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := os.WriteFile(s.metaPath(meta.ID), data, 0600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}

func metaOf(sess *Session) fileMeta {
	return fileMeta{
		ID:        sess.ID,
		Filename:  sess.Filename,
		Aspect:    sess.aspect,
		Region:    sess.region,
		CreatedAt: sess.CreatedAt,
		ExpiresAt: sess.ExpiresAt,
	}
}

func (s *FileStore) Set(ctx context.Context, sess *Session) error {
	sess.mu.RLock()
	meta := metaOf(sess)
	src := sess.source
	sess.mu.RUnlock()

	if !validID(meta.ID) {
		return fmt.Errorf("invalid session id %q", meta.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := imaging.Save(src, s.sourcePath(meta.ID)); err != nil {
		return fmt.Errorf("write session image: %w", err)
	}
	return s.writeMeta(meta)
}

// Touch extends sess and rewrites its metadata. The source image is not
// written again.
func (s *FileStore) Touch(ctx context.Context, sess *Session, ttl time.Duration) error {
	sess.Touch(ttl)
	sess.mu.RLock()
	meta := metaOf(sess)
	sess.mu.RUnlock()

	if !validID(meta.ID) {
		return notFound(meta.ID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := os.Stat(s.metaPath(meta.ID)); err != nil {
		return notFound(meta.ID)
	}
	return s.writeMeta(meta)
}

func (s *FileStore) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remove(id)
}

func (s *FileStore) remove(id string) error {
	for _, path := range []string{s.metaPath(id), s.sourcePath(id)} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove session file: %w", err)
		}
	}
	return nil
}

func (s *FileStore) Cleanup(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return fmt.Errorf("read session dir: %w", err)
	}

	now := time.Now()
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.baseDir, entry.Name()))
		if err != nil {
			continue
		}
		var meta fileMeta
		if err := json.Unmarshal(data, &meta); err != nil {
			continue
		}
		if now.After(meta.ExpiresAt) {
			s.remove(meta.ID)
		}
	}
	return nil
}

func (s *FileStore) Close() error { return nil }

// validID rejects IDs that could escape the store directory.
func validID(id string) bool {
	return id != "" && filepath.Base(id) == id && id != "." && id != ".."
}

var _ Store = (*FileStore)(nil)
