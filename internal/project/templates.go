package project

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/piwi3910/cabinetcalc/internal/model"
)

// DefaultTemplatePath returns the default file path for the template library.
// This is located at ~/.cabinetcalc/templates.json.
func DefaultTemplatePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".cabinetcalc")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return filepath.Join(dir, "templates.json"), nil
}

// SaveTemplates writes the template library to a JSON file.
func SaveTemplates(path string, store model.TemplateStore) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(store, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadTemplates reads a template library from a JSON file. Entries sharing
// an ID collapse to the last one; entries without an ID get a new one.
// If the file does not exist, returns an empty library.
func LoadTemplates(path string) (model.TemplateStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return model.NewTemplateStore(), nil
		}
		return model.TemplateStore{}, err
	}
	var raw model.TemplateStore
	if err := json.Unmarshal(data, &raw); err != nil {
		return model.TemplateStore{}, err
	}
	store := model.NewTemplateStore()
	for _, t := range raw.Templates {
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		store.Add(t)
	}
	return store, nil
}

// TemplateWriter is where imported templates are saved.
type TemplateWriter interface {
	SaveTemplate(ctx context.Context, t model.ConstructionTemplate) error
}

// TemplateLister is where exported templates come from.
type TemplateLister interface {
	ListTemplates(ctx context.Context) ([]model.ConstructionTemplate, error)
}

// ImportTemplates validates every template in the library file and saves
// them. Nothing is saved if any template is invalid or more than one is
// flagged as default.
func ImportTemplates(ctx context.Context, path string, w TemplateWriter) (int, error) {
	store, err := LoadTemplates(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read template library: %w", err)
	}
	defaults := 0
	for _, t := range store.Templates {
		if err := t.Validate(); err != nil {
			return 0, fmt.Errorf("template %q: %w", t.Name, err)
		}
		if t.IsDefault {
			defaults++
		}
	}
	if defaults > 1 {
		return 0, fmt.Errorf("template library flags %d templates as default", defaults)
	}
	for _, t := range store.Templates {
		if err := w.SaveTemplate(ctx, t); err != nil {
			return 0, fmt.Errorf("failed to save template %q: %w", t.Name, err)
		}
	}
	return len(store.Templates), nil
}

// ExportTemplates writes every stored template to a library file.
func ExportTemplates(ctx context.Context, path string, l TemplateLister) (int, error) {
	templates, err := l.ListTemplates(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list templates: %w", err)
	}
	store := model.NewTemplateStore()
	for _, t := range templates {
		store.Add(t)
	}
	if err := SaveTemplates(path, store); err != nil {
		return 0, fmt.Errorf("failed to write template library: %w", err)
	}
	return len(store.Templates), nil
}
