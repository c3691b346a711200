package audit

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/piwi3910/cabinetcalc/internal/model"
)

// Input is everything needed to record one calculation event.
type Input struct {
	CabinetID   string
	ProjectID   string
	TemplateID  string
	Type        model.AuditType
	TriggeredBy string
	Stored      model.Snapshot // values on the cabinet before this calculation
	Calculated  model.Snapshot
	Template    model.Snapshot
	At          time.Time
}

// Recorder builds audit records and classifies discrepancies.
type Recorder struct {
	Thresholds model.Thresholds
}

func NewRecorder(t model.Thresholds) *Recorder {
	if t.Warning <= 0 || t.Failure <= t.Warning {
		t = model.DefaultThresholds()
	}
	return &Recorder{Thresholds: t}
}

// Classify maps an absolute delta to a status band.
func (r *Recorder) Classify(delta float64) model.AuditStatus {
	switch {
	case delta >= r.Thresholds.Failure:
		return model.AuditFailed
	case delta >= r.Thresholds.Warning:
		return model.AuditWarning
	default:
		return model.AuditPassed
	}
}

// Compare lists the fields present in both snapshots whose difference is at
// least the warning threshold, in stored order.
func (r *Recorder) Compare(stored, calculated model.Snapshot) []model.Discrepancy {
	out := []model.Discrepancy{}
	for _, s := range stored {
		c, ok := calculated.Get(s.Field)
		if !ok {
			continue
		}
		delta := decimal.NewFromFloat(s.Value).Sub(decimal.NewFromFloat(c)).Abs().
			Round(model.StoragePlaces).InexactFloat64()
		status := r.Classify(delta)
		if status == model.AuditPassed {
			continue
		}
		out = append(out, model.Discrepancy{
			Field:      s.Field,
			Stored:     s.Value,
			Calculated: c,
			Delta:      delta,
			Status:     status,
		})
	}
	return out
}

// Record builds a new audit row. The status is the worst discrepancy status;
// count, max and max field are derived from the discrepancy list.
func (r *Recorder) Record(in Input) (model.CalculationAudit, error) {
	if in.CabinetID == "" {
		return model.CalculationAudit{}, fmt.Errorf("audit requires a cabinet id")
	}
	if !in.Type.Valid() {
		return model.CalculationAudit{}, fmt.Errorf("unknown audit type %q", in.Type)
	}
	at := in.At
	if at.IsZero() {
		at = time.Now().UTC()
	}

	discrepancies := r.Compare(in.Stored, in.Calculated)
	status := model.AuditPassed
	var maxDelta float64
	var maxField string
	for _, d := range discrepancies {
		status = status.Worse(d.Status)
		if d.Delta > maxDelta {
			maxDelta, maxField = d.Delta, d.Field
		}
	}

	return model.CalculationAudit{
		ID:                   uuid.NewString(),
		CabinetID:            in.CabinetID,
		ProjectID:            in.ProjectID,
		AuditType:            in.Type,
		AuditStatus:          status,
		TemplateID:           in.TemplateID,
		TriggeredBy:          in.TriggeredBy,
		StoredValues:         datatypes.NewJSONType(nonNil(in.Stored)),
		CalculatedValues:     datatypes.NewJSONType(nonNil(in.Calculated)),
		TemplateValues:       datatypes.NewJSONType(nonNil(in.Template)),
		Discrepancies:        datatypes.NewJSONType(discrepancies),
		DiscrepancyCount:     len(discrepancies),
		MaxDiscrepancyInches: maxDelta,
		MaxDiscrepancyField:  maxField,
		CreatedAt:            at,
	}, nil
}

func nonNil(s model.Snapshot) model.Snapshot {
	if s == nil {
		return model.Snapshot{}
	}
	return s
}

// Override annotates an audit with a human decision. The recorded status and
// discrepancy data are left untouched.
func Override(a *model.CalculationAudit, by, reason string, at time.Time) error {
	if a.IsOverridden {
		return fmt.Errorf("audit %s: %w", a.ID, model.ErrAuditAlreadyOverridden)
	}
	if strings.TrimSpace(reason) == "" {
		return fmt.Errorf("audit %s: %w", a.ID, model.ErrOverrideReasonRequired)
	}
	a.IsOverridden = true
	a.OverrideReason = strings.TrimSpace(reason)
	a.OverriddenBy = by
	a.OverriddenAt = &at
	return nil
}

// Duplicate reports whether candidate would repeat latest: same type and the
// same stored, calculated and template values.
func Duplicate(latest *model.CalculationAudit, candidate model.CalculationAudit) bool {
	if latest == nil || latest.AuditType != candidate.AuditType {
		return false
	}
	return latest.StoredValues.Data().Equal(candidate.StoredValues.Data()) &&
		latest.CalculatedValues.Data().Equal(candidate.CalculatedValues.Data()) &&
		latest.TemplateValues.Data().Equal(candidate.TemplateValues.Data())
}
