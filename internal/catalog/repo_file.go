package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"carshop-display-backend/internal/model"
)

type catalogFile struct {
	Services []model.ServiceDefinition `yaml:"services"`
}

// FileRepository keeps the catalog in a YAML file.
type FileRepository struct {
	path string
}

// NewFileRepository creates a repository reading and writing path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{path: path}
}

// Load reads the file. A missing file means nothing is stored yet.
func (r *FileRepository) Load(_ context.Context) ([]model.ServiceDefinition, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read catalog file %s: %w", r.path, err)
	}

	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode catalog file %s: %w", r.path, err)
	}
	return f.Services, nil
}

// Save writes the whole catalog to a temp file and renames it over the old one.
func (r *FileRepository) Save(_ context.Context, services []model.ServiceDefinition) error {
	data, err := yaml.Marshal(catalogFile{Services: services})
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("create catalog dir: %w", err)
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write catalog file: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("replace catalog file: %w", err)
	}
	return nil
}
