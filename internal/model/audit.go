package model

import (
	"time"

	"gorm.io/datatypes"
)

// AuditType is the event that triggered a calculation audit.
type AuditType string

const (
	AuditInitialCalculation AuditType = "initial_calculation"
	AuditRecalculation      AuditType = "recalculation"
	AuditTemplateChange     AuditType = "template_change"
	AuditMaterialChange     AuditType = "material_change"
	AuditDimensionChange    AuditType = "dimension_change"
	AuditValidation         AuditType = "validation"
)

// AllAuditTypes lists every audit type.
var AllAuditTypes = []AuditType{
	AuditInitialCalculation, AuditRecalculation, AuditTemplateChange,
	AuditMaterialChange, AuditDimensionChange, AuditValidation,
}

// Valid reports whether t is a known audit type.
func (t AuditType) Valid() bool {
	for _, known := range AllAuditTypes {
		if t == known {
			return true
		}
	}
	return false
}

// AuditStatus is the outcome of a calculation audit.
type AuditStatus string

const (
	AuditPassed   AuditStatus = "passed"
	AuditWarning  AuditStatus = "warning"
	AuditFailed   AuditStatus = "failed"
	AuditOverride AuditStatus = "override"
)

// Severity orders statuses so the worst can be picked: failed > warning > passed.
func (s AuditStatus) Severity() int {
	switch s {
	case AuditFailed:
		return 2
	case AuditWarning:
		return 1
	default:
		return 0
	}
}

// Worse returns whichever of s and other is more severe.
func (s AuditStatus) Worse(other AuditStatus) AuditStatus {
	if other.Severity() > s.Severity() {
		return other
	}
	return s
}

// FieldValue is one named dimension in a snapshot.
type FieldValue struct {
	Field string  `json:"field"`
	Value float64 `json:"value"`
}

// Snapshot is an ordered list of named dimensions.
type Snapshot []FieldValue

// Get returns the value stored under field.
func (s Snapshot) Get(field string) (float64, bool) {
	for _, fv := range s {
		if fv.Field == field {
			return fv.Value, true
		}
	}
	return 0, false
}

// Equal reports whether both snapshots list the same fields in the same
// order with values equal at storage precision.
func (s Snapshot) Equal(other Snapshot) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i].Field != other[i].Field || Round4(s[i].Value) != Round4(other[i].Value) {
			return false
		}
	}
	return true
}

// Discrepancy is a field whose stored and calculated values differ beyond tolerance.
type Discrepancy struct {
	Field      string      `json:"field"`
	Stored     float64     `json:"stored"`
	Calculated float64     `json:"calculated"`
	Delta      float64     `json:"delta"`
	Status     AuditStatus `json:"status"`
}

// CalculationAudit is an append-only record of one calculation event. Only
// the override fields may change after creation.
type CalculationAudit struct {
	ID          string      `json:"id" gorm:"primaryKey;size:36"`
	CabinetID   string      `json:"cabinet_id" gorm:"size:36;not null;uniqueIndex:idx_audit_cabinet_seq,priority:1"`
	Cabinet     *Cabinet    `json:"-" gorm:"foreignKey:CabinetID;constraint:OnDelete:CASCADE"`
	Sequence    int         `json:"sequence" gorm:"not null;uniqueIndex:idx_audit_cabinet_seq,priority:2"` // 1-based per cabinet
	ProjectID   string      `json:"project_id" gorm:"size:36;index"`
	AuditType   AuditType   `json:"audit_type" gorm:"size:32;not null"`
	AuditStatus AuditStatus `json:"audit_status" gorm:"size:16;not null"`
	TemplateID  string      `json:"template_id" gorm:"size:36"`
	TriggeredBy string      `json:"triggered_by" gorm:"size:120"`

	StoredValues     datatypes.JSONType[Snapshot]      `json:"stored_values"`
	CalculatedValues datatypes.JSONType[Snapshot]      `json:"calculated_values"`
	TemplateValues   datatypes.JSONType[Snapshot]      `json:"template_values"`
	Discrepancies    datatypes.JSONType[[]Discrepancy] `json:"discrepancies"`

	DiscrepancyCount     int     `json:"discrepancy_count" gorm:"not null;default:0"`
	MaxDiscrepancyInches float64 `json:"max_discrepancy_inches" gorm:"type:decimal(10,4)"`
	MaxDiscrepancyField  string  `json:"max_discrepancy_field" gorm:"size:60"`

	IsOverridden   bool       `json:"is_overridden" gorm:"not null;default:false"`
	OverrideReason string     `json:"override_reason,omitempty" gorm:"type:text"`
	OverriddenBy   string     `json:"overridden_by,omitempty" gorm:"size:120"`
	OverriddenAt   *time.Time `json:"overridden_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func (CalculationAudit) TableName() string { return "cabinet_calculation_audits" }

// EffectiveStatus returns override for overridden audits, else the recorded status.
func (a CalculationAudit) EffectiveStatus() AuditStatus {
	if a.IsOverridden {
		return AuditOverride
	}
	return a.AuditStatus
}

// NeedsReview reports whether the audit still requires a human decision.
func (a CalculationAudit) NeedsReview() bool {
	return !a.IsOverridden && a.AuditStatus.Severity() > 0
}

// ReviewItem is one project with unresolved warning or failed audits.
type ReviewItem struct {
	ProjectID     string `json:"project_id"`
	ProjectName   string `json:"project_name"`
	OpenAudits    int    `json:"open_audits"`
	FailedAudits  int    `json:"failed_audits"`
	WarningAudits int    `json:"warning_audits"`
}
