package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/piwi3910/cabinetcalc/internal/model"
)

// Environment variables that override the config file.
const (
	EnvDBDriver  = "CABINETCALC_DB_DRIVER"
	EnvDBDSN     = "CABINETCALC_DB_DSN"
	EnvLogLevel  = "CABINETCALC_LOG_LEVEL"
	EnvLogFormat = "CABINETCALC_LOG_FORMAT"
	EnvMetrics   = "CABINETCALC_METRICS_ADDR"
)

// DefaultConfigDir returns the default directory for engine configuration.
// On all platforms this is ~/.cabinetcalc/
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".cabinetcalc")
}

// DefaultConfigPath returns the default path for the engine config file.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

// SaveAppConfig persists an AppConfig to the given path as JSON.
// It creates any missing parent directories automatically.
func SaveAppConfig(path string, config model.AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadAppConfig reads an AppConfig from the given path. Fields missing from
// the file keep their defaults. If the file does not exist, it returns
// DefaultAppConfig with no error.
func LoadAppConfig(path string) (model.AppConfig, error) {
	config := model.DefaultAppConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return model.AppConfig{}, err
	}
	if err := json.Unmarshal(data, &config); err != nil {
		return model.AppConfig{}, err
	}
	// A null or empty slide list falls back to the stocked lengths
	if len(config.SlideLengths) == 0 {
		config.SlideLengths = model.DefaultAppConfig().SlideLengths
	}
	return config, nil
}

// ApplyEnv overrides config fields from CABINETCALC_* environment variables.
func ApplyEnv(config model.AppConfig) model.AppConfig {
	if v := os.Getenv(EnvDBDriver); v != "" {
		config.DBDriver = v
	}
	if v := os.Getenv(EnvDBDSN); v != "" {
		config.DBDSN = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		config.LogLevel = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		config.LogFormat = v
	}
	if v := os.Getenv(EnvMetrics); v != "" {
		config.MetricsAddr = v
	}
	return config
}

// LoadConfig reads the config file at path, applies a .env file (when
// envFile exists) and the environment on top, and validates the result.
func LoadConfig(path, envFile string) (model.AppConfig, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return model.AppConfig{}, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}
	config, err := LoadAppConfig(path)
	if err != nil {
		return model.AppConfig{}, fmt.Errorf("failed to load config %s: %w", path, err)
	}
	config = ApplyEnv(config)
	if err := config.Validate(); err != nil {
		return model.AppConfig{}, err
	}
	return config, nil
}
