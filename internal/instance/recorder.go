package instance

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned by Load for an unknown instance.
var ErrNotFound = errors.New("instance not found")

// FileRecorder keeps one YAML file per instance in a directory.
type FileRecorder struct {
	dir string
}

// NewFileRecorder creates a recorder rooted at dir.
func NewFileRecorder(dir string) *FileRecorder {
	return &FileRecorder{dir: dir}
}

func (r *FileRecorder) path(id string) string {
	return filepath.Join(r.dir, id+".yaml")
}

// Save writes inst, replacing any previous record. The write goes through a
// temporary file so a crash never leaves a truncated record.
func (r *FileRecorder) Save(_ context.Context, inst *Instance) error {
	if err := os.MkdirAll(r.dir, 0o700); err != nil {
		return fmt.Errorf("failed to create state directory %s: %w", r.dir, err)
	}
	data, err := yaml.Marshal(inst)
	if err != nil {
		return fmt.Errorf("failed to marshal instance %s: %w", inst.ID, err)
	}

	tmp := r.path(inst.ID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write instance %s: %w", inst.ID, err)
	}
	if err := os.Rename(tmp, r.path(inst.ID)); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write instance %s: %w", inst.ID, err)
	}
	return nil
}

// Load reads the record of id.
func (r *FileRecorder) Load(id string) (*Instance, error) {
	data, err := os.ReadFile(r.path(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read instance %s: %w", id, err)
	}
	var inst Instance
	if err := yaml.Unmarshal(data, &inst); err != nil {
		return nil, fmt.Errorf("failed to parse instance %s: %w", id, err)
	}
	return &inst, nil
}
