// Package storage persists codec state and feature tables between pipeline runs.
package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/yourusername/keiba-edge/internal/features"
)

// snapshotFormat is bumped when the on-disk layout changes.
const snapshotFormat = 1

// CodecSnapshot is everything needed to encode a later batch exactly like
// the batch that produced it.
type CodecSnapshot struct {
	Format       int                   `msgpack:"format"`
	State        features.CodecState   `msgpack:"state"`
	Vocabularies []features.Vocabulary `msgpack:"vocabularies"`
	Columns      []string              `msgpack:"columns"`
}

// CodecStore saves and loads codec snapshots as msgpack files
type CodecStore struct {
	path string
}

// NewCodecStore creates a store for the file at path
func NewCodecStore(path string) *CodecStore {
	return &CodecStore{path: path}
}

// Path returns the snapshot file path
func (s *CodecStore) Path() string {
	return s.path
}

// Save writes snapshot atomically: a temporary file is renamed over the old one.
func (s *CodecStore) Save(snapshot CodecSnapshot) error {
	snapshot.Format = snapshotFormat
	data, err := msgpack.Marshal(&snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode codec snapshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create codec directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".codec-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write codec snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close codec snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace codec snapshot: %w", err)
	}
	return nil
}

// Load reads the snapshot. A missing file returns an error wrapping
// fs.ErrNotExist so callers can start from an empty state.
func (s *CodecStore) Load() (CodecSnapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return CodecSnapshot{}, fmt.Errorf("failed to read codec snapshot: %w", err)
	}
	var snapshot CodecSnapshot
	if err := msgpack.Unmarshal(data, &snapshot); err != nil {
		return CodecSnapshot{}, fmt.Errorf("failed to decode codec snapshot: %w", err)
	}
	if snapshot.Format != snapshotFormat {
		return CodecSnapshot{}, fmt.Errorf("unsupported codec snapshot format %d", snapshot.Format)
	}
	if snapshot.State.Fields == nil {
		snapshot.State.Fields = map[string][]string{}
	}
	return snapshot, nil
}
