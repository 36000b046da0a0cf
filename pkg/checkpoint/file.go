package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// fileDoc is the on-disk shape of a file checkpoint.
type fileDoc struct {
	State   string    `json:"state"`
	SavedAt time.Time `json:"saved_at"`
}

// File persists the checkpoint as a small JSON document, replaced atomically
// on every save. Suited to single-host deployments such as a robot cell
// controller.
type File struct {
	path string
}

// NewFile returns a store backed by the given path. The parent directory
// must exist.
func NewFile(path string) *File {
	return &File{path: path}
}

func (f *File) Save(_ context.Context, state string) error {
	data, err := json.Marshal(fileDoc{State: state, SavedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}

	// Write-then-rename so a crash mid-save never leaves a torn checkpoint.
	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".checkpoint-*")
	if err != nil {
		return fmt.Errorf("failed to create checkpoint temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close checkpoint temp file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace checkpoint file: %w", err)
	}
	return nil
}

func (f *File) Load(_ context.Context) (string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNoCheckpoint
		}
		return "", fmt.Errorf("failed to read checkpoint file: %w", err)
	}
	var doc fileDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", fmt.Errorf("failed to decode checkpoint file: %w", err)
	}
	if doc.State == "" {
		return "", ErrNoCheckpoint
	}
	return doc.State, nil
}

func (f *File) Clear(_ context.Context) error {
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove checkpoint file: %w", err)
	}
	return nil
}
