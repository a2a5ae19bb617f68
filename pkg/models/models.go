// Package models resolves whisper model identifiers against the local
// model directories. It never downloads anything; an identifier that does
// not resolve to an already-present model is a recognition error.
package models

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	vberrors "github.com/verbatim-cli/verbatim/pkg/errors"
)

// Model is one locally available whisper model.
type Model struct {
	Name string
	Path string
}

// Registry scans an ordered list of directories for model subdirectories.
// When two directories carry the same model name, the first scanned wins.
type Registry struct {
	Dirs []string
}

// NewRegistry builds a registry over the application model directory and
// the per-user model directory, in that order.
func NewRegistry(appDir, userDir string) *Registry {
	return &Registry{Dirs: []string{
		filepath.Join(appDir, "models"),
		filepath.Join(userDir, "whisper_models"),
	}}
}

// List returns the available models sorted by name, plus the names that
// were shadowed by an earlier directory.
func (r *Registry) List() ([]Model, []string) {
	seen := map[string]string{}
	var shadowed []string
	for _, dir := range r.Dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			if _, dup := seen[entry.Name()]; dup {
				shadowed = append(shadowed, entry.Name())
				continue
			}
			seen[entry.Name()] = filepath.Join(dir, entry.Name())
		}
	}

	models := make([]Model, 0, len(seen))
	for name, path := range seen {
		models = append(models, Model{Name: name, Path: path})
	}
	sort.Slice(models, func(i, j int) bool { return models[i].Name < models[j].Name })
	return models, shadowed
}

// Resolve maps a model identifier to its local path.
func (r *Registry) Resolve(name string) (string, error) {
	available, _ := r.List()
	for _, m := range available {
		if m.Name == name {
			return m.Path, nil
		}
	}
	return "", fmt.Errorf("%w: whisper model %q does not exist locally", vberrors.ErrRecognition, name)
}
