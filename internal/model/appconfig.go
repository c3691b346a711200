package model

import "fmt"

// AppConfig holds engine-wide settings.
type AppConfig struct {
	// Storage
	DBDriver string `json:"db_driver" validate:"required,oneof=sqlite postgres mysql"`
	DBDSN    string `json:"db_dsn" validate:"required"`

	// Logging
	LogLevel  string `json:"log_level" validate:"oneof=trace debug info warn error"`
	LogFormat string `json:"log_format" validate:"oneof=console json"`

	// Audit tolerance bands, inches
	WarningThreshold float64 `json:"warning_threshold" validate:"gt=0"`
	FailureThreshold float64 `json:"failure_threshold" validate:"gtfield=WarningThreshold"`

	DepthTolerance float64   `json:"depth_tolerance" validate:"gt=0"`
	SlideLengths   []float64 `json:"slide_lengths" validate:"required,min=1,dive,gt=0"` // ascending

	MetricsAddr string `json:"metrics_addr"` // empty = metrics endpoint disabled
	TriggeredBy string `json:"triggered_by"` // default audit author for batch runs
}

// DefaultAppConfig returns an AppConfig with the shop's standard tolerances
// and a local SQLite database.
func DefaultAppConfig() AppConfig {
	slides := make([]float64, len(StandardSlideLengths))
	copy(slides, StandardSlideLengths)
	return AppConfig{
		DBDriver:         "sqlite",
		DBDSN:            "cabinetcalc.db",
		LogLevel:         "info",
		LogFormat:        "console",
		WarningThreshold: 0.0625,
		FailureThreshold: 0.125,
		DepthTolerance:   DepthTolerance,
		SlideLengths:     slides,
		TriggeredBy:      "system",
	}
}

// Validate checks the config for missing or inconsistent values.
func (c AppConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	for i := 1; i < len(c.SlideLengths); i++ {
		if c.SlideLengths[i] <= c.SlideLengths[i-1] {
			return fmt.Errorf("invalid config: slide lengths must be ascending, got %v", c.SlideLengths)
		}
	}
	return nil
}

// Thresholds returns the audit tolerance bands.
func (c AppConfig) Thresholds() Thresholds {
	return Thresholds{Warning: c.WarningThreshold, Failure: c.FailureThreshold}
}

// Thresholds are the discrepancy tolerance bands. A delta below Warning is
// ignored, below Failure is a warning, and anything else fails.
type Thresholds struct {
	Warning float64 `json:"warning"`
	Failure float64 `json:"failure"`
}

// DefaultThresholds returns the 1/16" and 1/8" shop bands.
func DefaultThresholds() Thresholds {
	return Thresholds{Warning: 0.0625, Failure: 0.125}
}
