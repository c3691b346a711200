package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/piwi3910/cabinetcalc/internal/model"
)

// BackupVersion is written into every backup file.
const BackupVersion = "1.0.0"

// BackupData is the top-level structure for import/export of engine settings
// and the construction template library.
type BackupData struct {
	Version   string                       `json:"version"`
	CreatedAt string                       `json:"created_at"`
	Config    model.AppConfig              `json:"config"`
	Templates []model.ConstructionTemplate `json:"templates"`
}

// ExportAllData exports the config and every template to a single JSON file
// at the specified path.
func ExportAllData(exportPath string, config model.AppConfig, templates []model.ConstructionTemplate) error {
	if templates == nil {
		templates = []model.ConstructionTemplate{}
	}
	backup := BackupData{
		Version:   BackupVersion,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Config:    config,
		Templates: templates,
	}
	data, err := json.MarshalIndent(backup, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal backup data: %w", err)
	}

	dir := filepath.Dir(exportPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}

	if err := os.WriteFile(exportPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write backup file: %w", err)
	}
	return nil
}

// ImportAllData reads a backup JSON file and returns the contained data.
// The caller is responsible for applying the imported config and templates.
func ImportAllData(importPath string) (BackupData, error) {
	data, err := os.ReadFile(importPath)
	if err != nil {
		return BackupData{}, fmt.Errorf("failed to read backup file: %w", err)
	}
	backup := BackupData{Config: model.DefaultAppConfig()}
	if err := json.Unmarshal(data, &backup); err != nil {
		return BackupData{}, fmt.Errorf("failed to parse backup file: %w", err)
	}
	if backup.Version == "" {
		return BackupData{}, fmt.Errorf("invalid backup file: missing version field")
	}
	if len(backup.Config.SlideLengths) == 0 {
		backup.Config.SlideLengths = model.DefaultAppConfig().SlideLengths
	}
	if backup.Templates == nil {
		backup.Templates = []model.ConstructionTemplate{}
	}
	return backup, nil
}
