package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/piwi3910/cabinetcalc/internal/model"
)

func TestSaveAndLoadAppConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	cfg := model.DefaultAppConfig()
	cfg.DBDriver = "postgres"
	cfg.DBDSN = "host=db user=shop dbname=cabinets"
	cfg.WarningThreshold = 0.03125
	cfg.TriggeredBy = "nightly"

	if err := SaveAppConfig(path, cfg); err != nil {
		t.Fatalf("SaveAppConfig failed: %v", err)
	}

	loaded, err := LoadAppConfig(path)
	if err != nil {
		t.Fatalf("LoadAppConfig failed: %v", err)
	}

	if loaded.DBDriver != "postgres" {
		t.Errorf("expected DBDriver=postgres, got %s", loaded.DBDriver)
	}
	if loaded.WarningThreshold != 0.03125 {
		t.Errorf("expected WarningThreshold=0.03125, got %f", loaded.WarningThreshold)
	}
	if len(loaded.SlideLengths) != len(model.StandardSlideLengths) {
		t.Errorf("expected %d slide lengths, got %d", len(model.StandardSlideLengths), len(loaded.SlideLengths))
	}
	if loaded.TriggeredBy != "nightly" {
		t.Errorf("expected TriggeredBy=nightly, got %s", loaded.TriggeredBy)
	}
}

func TestLoadAppConfigMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nonexistent", "config.json")

	cfg, err := LoadAppConfig(path)
	if err != nil {
		t.Fatalf("expected no error for missing file, got: %v", err)
	}

	defaults := model.DefaultAppConfig()
	if cfg.DBDSN != defaults.DBDSN {
		t.Errorf("expected default DSN %q, got %q", defaults.DBDSN, cfg.DBDSN)
	}
	if cfg.FailureThreshold != 0.125 {
		t.Errorf("expected failure threshold 0.125, got %f", cfg.FailureThreshold)
	}
}

func TestLoadAppConfigPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"log_level":"debug","slide_lengths":null}`), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadAppConfig(path)
	if err != nil {
		t.Fatalf("LoadAppConfig failed: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected log level debug, got %s", cfg.LogLevel)
	}
	if cfg.DBDriver != "sqlite" {
		t.Errorf("expected default driver sqlite, got %s", cfg.DBDriver)
	}
	if len(cfg.SlideLengths) != len(model.StandardSlideLengths) {
		t.Errorf("expected stocked slide lengths, got %v", cfg.SlideLengths)
	}
}

func TestLoadAppConfigInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	if err := os.WriteFile(path, []byte("not valid json{{{"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadAppConfig(path)
	if err == nil {
		t.Fatal("expected error for invalid JSON, got nil")
	}
}

func TestSaveAppConfigCreatesDirectories(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "dir", "config.json")

	if err := SaveAppConfig(path, model.DefaultAppConfig()); err != nil {
		t.Fatalf("SaveAppConfig should create parent dirs: %v", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Fatal("config file was not created")
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvLogFormat, "json")
	t.Setenv(EnvDBDSN, "")

	envFile := filepath.Join(dir, ".env")
	if err := os.WriteFile(envFile, []byte("CABINETCALC_DB_DSN="+filepath.Join(dir, "shop.db")+"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	// godotenv does not overwrite variables that are already set.
	os.Unsetenv(EnvDBDSN)

	cfg, err := LoadConfig(filepath.Join(dir, "config.json"), envFile)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("expected log format json, got %s", cfg.LogFormat)
	}
	if cfg.DBDSN != filepath.Join(dir, "shop.db") {
		t.Errorf("expected DSN from .env, got %s", cfg.DBDSN)
	}
}

func TestLoadConfigMissingEnvFile(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadConfig(filepath.Join(dir, "config.json"), filepath.Join(dir, ".env")); err != nil {
		t.Fatalf("missing .env should be ignored: %v", err)
	}
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	cfg := model.DefaultAppConfig()
	cfg.FailureThreshold = cfg.WarningThreshold / 2
	if err := SaveAppConfig(path, cfg); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path, ""); err == nil {
		t.Fatal("expected validation error for failure threshold below warning")
	}
}
