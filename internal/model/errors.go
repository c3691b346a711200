package model

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a referenced row does not exist.
	ErrNotFound = errors.New("not found")

	ErrAuditAlreadyOverridden = errors.New("audit already overridden")
	ErrOverrideReasonRequired = errors.New("override reason is required")
)

// NoTemplateResolvedError means no template was found anywhere in a cabinet's
// chain, including the system default. This is a configuration defect.
type NoTemplateResolvedError struct {
	CabinetID string
}

func (e *NoTemplateResolvedError) Error() string {
	return fmt.Sprintf("no construction template resolved for cabinet %s (no system default configured)", e.CabinetID)
}

// DanglingTemplateError means a hierarchy node references a template row
// that does not exist. It unwraps to ErrNotFound.
type DanglingTemplateError struct {
	Source     StandardsSource
	TemplateID string
}

func (e *DanglingTemplateError) Error() string {
	return fmt.Sprintf("%s references missing construction template %s", e.Source, e.TemplateID)
}

func (e *DanglingTemplateError) Unwrap() error { return ErrNotFound }

// InvalidDimensionError means a stored dimension is zero, negative or not a number.
type InvalidDimensionError struct {
	CabinetID string
	Field     string
	Value     float64
}

func (e *InvalidDimensionError) Error() string {
	return fmt.Sprintf("cabinet %s: invalid %s %.4f", e.CabinetID, e.Field, e.Value)
}

// UnknownStyleError means a cabinet's style has no constants in its resolved template.
type UnknownStyleError struct {
	CabinetID  string
	Style      FaceFrameStyle
	TemplateID string
}

func (e *UnknownStyleError) Error() string {
	return fmt.Sprintf("cabinet %s: style %q not defined in template %s", e.CabinetID, e.Style, e.TemplateID)
}

// DepthValidationWarning is a non-fatal result of a depth that cannot take
// any standard slide. It is returned inside a Calculation, never as an error.
type DepthValidationWarning struct {
	CabinetID      string  `json:"cabinet_id"`
	RequestedDepth float64 `json:"requested_depth"`
	MinimumDepth   float64 `json:"minimum_depth"`
	Message        string  `json:"message"`
}

func (w DepthValidationWarning) String() string {
	return w.Message
}

// IsStructural reports whether err halts a single cabinet's calculation
// without being a storage failure.
func IsStructural(err error) bool {
	var noTemplate *NoTemplateResolvedError
	var invalid *InvalidDimensionError
	var style *UnknownStyleError
	var dangling *DanglingTemplateError
	return errors.As(err, &noTemplate) || errors.As(err, &invalid) ||
		errors.As(err, &style) || errors.As(err, &dangling)
}
