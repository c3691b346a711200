package gormstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/piwi3910/cabinetcalc/internal/model"
	"github.com/piwi3910/cabinetcalc/internal/store"
)

var _ store.Store = (*Store)(nil)

type Store struct{ db *gorm.DB }

func New(db *gorm.DB) *Store { return &Store{db: db} }

// DB exposes the underlying handle for migrations and health checks.
func (s *Store) DB() *gorm.DB { return s.db }

func (s *Store) WithinTx(ctx context.Context, fn func(tx store.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

func mapErr(what, id string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %s: %w", what, id, model.ErrNotFound)
	}
	return fmt.Errorf("failed to load %s %s: %w", what, id, err)
}

// first loads one row by ID into dst.
func (s *Store) first(ctx context.Context, dst any, what, id string) error {
	if err := s.db.WithContext(ctx).First(dst, "id = ?", id).Error; err != nil {
		return mapErr(what, id, err)
	}
	return nil
}

func (s *Store) exists(ctx context.Context, m any, what, id string) error {
	var n int64
	if err := s.db.WithContext(ctx).Model(m).Where("id = ?", id).Count(&n).Error; err != nil {
		return fmt.Errorf("failed to check %s %s: %w", what, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", what, id, model.ErrNotFound)
	}
	return nil
}

// --- templates ---

func (s *Store) LoadTemplate(ctx context.Context, id string) (model.ConstructionTemplate, error) {
	var t model.ConstructionTemplate
	err := s.first(ctx, &t, "template", id)
	return t, err
}

func (s *Store) LoadDefaultTemplate(ctx context.Context) (model.ConstructionTemplate, error) {
	var t model.ConstructionTemplate
	err := s.db.WithContext(ctx).Where("is_default = ?", true).Order("id").First(&t).Error
	if err != nil {
		return t, mapErr("template", "default", err)
	}
	return t, nil
}

func (s *Store) ListTemplates(ctx context.Context) ([]model.ConstructionTemplate, error) {
	var out []model.ConstructionTemplate
	if err := s.db.WithContext(ctx).Order("name, id").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	return out, nil
}

func (s *Store) SaveTemplate(ctx context.Context, t model.ConstructionTemplate) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if t.IsDefault {
			if err := tx.Model(&model.ConstructionTemplate{}).
				Where("id <> ? AND is_default = ?", t.ID, true).
				Update("is_default", false).Error; err != nil {
				return fmt.Errorf("failed to clear default template: %w", err)
			}
		}
		if err := tx.Save(&t).Error; err != nil {
			return fmt.Errorf("failed to save template %s: %w", t.ID, err)
		}
		return nil
	})
}

// --- hierarchy writes ---

func (s *Store) save(ctx context.Context, row any, what, id string) error {
	if err := s.db.WithContext(ctx).Save(row).Error; err != nil {
		return fmt.Errorf("failed to save %s %s: %w", what, id, err)
	}
	return nil
}

func (s *Store) SaveProject(ctx context.Context, p model.Project) error {
	return s.save(ctx, &p, "project", p.ID)
}

func (s *Store) SaveRoom(ctx context.Context, r model.Room) error {
	if err := s.exists(ctx, &model.Project{}, "project", r.ProjectID); err != nil {
		return err
	}
	return s.save(ctx, &r, "room", r.ID)
}

func (s *Store) SaveLocation(ctx context.Context, l model.RoomLocation) error {
	if err := s.exists(ctx, &model.Room{}, "room", l.RoomID); err != nil {
		return err
	}
	return s.save(ctx, &l, "location", l.ID)
}

func (s *Store) SaveRun(ctx context.Context, r model.CabinetRun) error {
	if err := s.exists(ctx, &model.RoomLocation{}, "location", r.RoomLocationID); err != nil {
		return err
	}
	return s.save(ctx, &r, "cabinet run", r.ID)
}

func (s *Store) SaveCabinet(ctx context.Context, c model.Cabinet) error {
	if err := s.exists(ctx, &model.CabinetRun{}, "cabinet run", c.CabinetRunID); err != nil {
		return err
	}
	return s.save(ctx, &c, "cabinet", c.ID)
}

func (s *Store) SaveSection(ctx context.Context, sec model.Section) error {
	if err := s.exists(ctx, &model.Cabinet{}, "cabinet", sec.CabinetID); err != nil {
		return err
	}
	return s.save(ctx, &sec, "section", sec.ID)
}

func (s *Store) SaveComponent(ctx context.Context, c model.Component) error {
	if err := s.exists(ctx, &model.Section{}, "section", c.SectionID); err != nil {
		return err
	}
	return s.save(ctx, &c, "component", c.ID)
}

// --- hierarchy reads ---

func (s *Store) LoadProject(ctx context.Context, id string) (model.Project, error) {
	var p model.Project
	err := s.first(ctx, &p, "project", id)
	return p, err
}

func (s *Store) LoadCabinet(ctx context.Context, id string) (model.Cabinet, error) {
	var c model.Cabinet
	err := s.first(ctx, &c, "cabinet", id)
	return c, err
}

func (s *Store) LoadDrawers(ctx context.Context, cabinetID string) ([]model.Component, error) {
	if err := s.exists(ctx, &model.Cabinet{}, "cabinet", cabinetID); err != nil {
		return nil, err
	}
	var out []model.Component
	err := s.db.WithContext(ctx).
		Joins("JOIN cabinet_sections ON cabinet_sections.id = section_components.section_id").
		Where("cabinet_sections.cabinet_id = ? AND section_components.kind = ?", cabinetID, model.ComponentDrawer).
		Order("section_components.sort_order, section_components.id").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load drawers of cabinet %s: %w", cabinetID, err)
	}
	return out, nil
}

func (s *Store) LoadStretchers(ctx context.Context, cabinetID string) ([]model.Stretcher, error) {
	var out []model.Stretcher
	err := s.db.WithContext(ctx).Where("cabinet_id = ?", cabinetID).Order("stretcher_number").Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load stretchers of cabinet %s: %w", cabinetID, err)
	}
	return out, nil
}

func (s *Store) LoadAncestorChain(ctx context.Context, cabinetID string) (model.AncestorChain, error) {
	var chain model.AncestorChain
	if err := s.first(ctx, &chain.Cabinet, "cabinet", cabinetID); err != nil {
		return chain, err
	}
	if err := s.first(ctx, &chain.Run, "cabinet run", chain.Cabinet.CabinetRunID); err != nil {
		return chain, err
	}
	if err := s.first(ctx, &chain.Location, "location", chain.Run.RoomLocationID); err != nil {
		return chain, err
	}
	if err := s.first(ctx, &chain.Room, "room", chain.Location.RoomID); err != nil {
		return chain, err
	}
	if err := s.first(ctx, &chain.Project, "project", chain.Room.ProjectID); err != nil {
		return chain, err
	}
	return chain, nil
}

// parent returns the parent of ref. Projects have none.
func (s *Store) parent(ctx context.Context, ref model.EntityRef) (model.EntityRef, bool, error) {
	switch ref.Kind {
	case model.KindProject:
		return model.EntityRef{}, false, s.exists(ctx, &model.Project{}, "project", ref.ID)
	case model.KindRoom:
		var r model.Room
		if err := s.first(ctx, &r, "room", ref.ID); err != nil {
			return model.EntityRef{}, false, err
		}
		return model.Ref(model.KindProject, r.ProjectID), true, nil
	case model.KindLocation:
		var l model.RoomLocation
		if err := s.first(ctx, &l, "location", ref.ID); err != nil {
			return model.EntityRef{}, false, err
		}
		return model.Ref(model.KindRoom, l.RoomID), true, nil
	case model.KindCabinetRun:
		var r model.CabinetRun
		if err := s.first(ctx, &r, "cabinet run", ref.ID); err != nil {
			return model.EntityRef{}, false, err
		}
		return model.Ref(model.KindLocation, r.RoomLocationID), true, nil
	case model.KindCabinet:
		var c model.Cabinet
		if err := s.first(ctx, &c, "cabinet", ref.ID); err != nil {
			return model.EntityRef{}, false, err
		}
		return model.Ref(model.KindCabinetRun, c.CabinetRunID), true, nil
	case model.KindSection:
		var sec model.Section
		if err := s.first(ctx, &sec, "section", ref.ID); err != nil {
			return model.EntityRef{}, false, err
		}
		return model.Ref(model.KindCabinet, sec.CabinetID), true, nil
	case model.KindComponent:
		var c model.Component
		if err := s.first(ctx, &c, "component", ref.ID); err != nil {
			return model.EntityRef{}, false, err
		}
		return model.Ref(model.KindSection, c.SectionID), true, nil
	default:
		return model.EntityRef{}, false, fmt.Errorf("unknown entity kind %d", int(ref.Kind))
	}
}

func (s *Store) LoadAncestors(ctx context.Context, ref model.EntityRef) ([]model.EntityRef, error) {
	var out []model.EntityRef
	cur := ref
	for {
		p, ok, err := s.parent(ctx, cur)
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, p)
		cur = p
	}
}

func aggregateOf(kind model.EntityKind, id string, a model.Aggregate) model.ChildAggregate {
	return model.ChildAggregate{Ref: model.Ref(kind, id), Score: a.ComplexityScore, Weight: a.ContributingCount}
}

func (s *Store) LoadChildAggregates(ctx context.Context, ref model.EntityRef) ([]model.ChildAggregate, error) {
	if _, _, err := s.parent(ctx, ref); err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)
	var out []model.ChildAggregate
	var err error

	switch ref.Kind {
	case model.KindProject:
		var rows []model.Room
		err = db.Where("project_id = ?", ref.ID).Order("id").Find(&rows).Error
		for _, r := range rows {
			out = append(out, aggregateOf(model.KindRoom, r.ID, r.Aggregate))
		}
	case model.KindRoom:
		var rows []model.RoomLocation
		err = db.Where("room_id = ?", ref.ID).Order("id").Find(&rows).Error
		for _, r := range rows {
			out = append(out, aggregateOf(model.KindLocation, r.ID, r.Aggregate))
		}
	case model.KindLocation:
		var rows []model.CabinetRun
		err = db.Where("room_location_id = ?", ref.ID).Order("id").Find(&rows).Error
		for _, r := range rows {
			out = append(out, aggregateOf(model.KindCabinetRun, r.ID, r.Aggregate))
		}
	case model.KindCabinetRun:
		var rows []model.Cabinet
		err = db.Where("cabinet_run_id = ?", ref.ID).Order("sort_order, id").Find(&rows).Error
		for _, r := range rows {
			agg := aggregateOf(model.KindCabinet, r.ID, r.Aggregate)
			agg.Excluded = r.CalculationError != ""
			out = append(out, agg)
		}
	case model.KindCabinet:
		var rows []model.Section
		err = db.Where("cabinet_id = ?", ref.ID).Order("sort_order, id").Find(&rows).Error
		for _, r := range rows {
			out = append(out, aggregateOf(model.KindSection, r.ID, r.Aggregate))
		}
	case model.KindSection:
		var rows []model.Component
		err = db.Where("section_id = ?", ref.ID).Order("sort_order, id").Find(&rows).Error
		for _, r := range rows {
			out = append(out, model.ChildAggregate{Ref: model.Ref(model.KindComponent, r.ID), Score: r.ComplexityScore, Weight: 1})
		}
	case model.KindComponent:
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load children of %s: %w", ref, err)
	}
	return out, nil
}

func (s *Store) LoadSubtree(ctx context.Context, ref model.EntityRef) (*model.Node, error) {
	n := &model.Node{Ref: ref}
	switch ref.Kind {
	case model.KindComponent:
		var c model.Component
		if err := s.first(ctx, &c, "component", ref.ID); err != nil {
			return nil, err
		}
		n.Component = &c
		return n, nil
	case model.KindCabinet:
		var c model.Cabinet
		if err := s.first(ctx, &c, "cabinet", ref.ID); err != nil {
			return nil, err
		}
		n.Excluded = c.CalculationError != ""
	}

	kids, err := s.LoadChildAggregates(ctx, ref)
	if err != nil {
		return nil, err
	}
	for _, k := range kids {
		child, err := s.LoadSubtree(ctx, k.Ref)
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, child)
	}
	return n, nil
}

func (s *Store) CabinetIDsUnder(ctx context.Context, ref model.EntityRef) ([]string, error) {
	switch {
	case ref.Kind == model.KindCabinet:
		if err := s.exists(ctx, &model.Cabinet{}, "cabinet", ref.ID); err != nil {
			return nil, err
		}
		return []string{ref.ID}, nil
	case ref.Kind > model.KindCabinet:
		_, _, err := s.parent(ctx, ref)
		return nil, err
	}

	kids, err := s.LoadChildAggregates(ctx, ref)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, k := range kids {
		ids, err := s.CabinetIDsUnder(ctx, k.Ref)
		if err != nil {
			return nil, err
		}
		out = append(out, ids...)
	}
	return out, nil
}

// --- calculations ---

func (s *Store) SaveCabinetCalculation(ctx context.Context, cabinetID string, b model.DepthBreakdown, stretchers []model.Stretcher, at time.Time) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c model.Cabinet
		if err := tx.First(&c, "id = ?", cabinetID).Error; err != nil {
			return mapErr("cabinet", cabinetID, err)
		}
		c.Breakdown = b
		c.CalculatedAt = &at
		c.CalculationError = ""
		if err := tx.Save(&c).Error; err != nil {
			return fmt.Errorf("failed to save breakdown of cabinet %s: %w", cabinetID, err)
		}

		if err := tx.Where("cabinet_id = ?", cabinetID).Delete(&model.Stretcher{}).Error; err != nil {
			return fmt.Errorf("failed to clear stretchers of cabinet %s: %w", cabinetID, err)
		}
		if len(stretchers) == 0 {
			return nil
		}
		rows := make([]model.Stretcher, len(stretchers))
		for i, st := range stretchers {
			st.CabinetID = cabinetID
			st.CreatedAt = at
			rows[i] = st
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("failed to save stretchers of cabinet %s: %w", cabinetID, err)
		}
		return nil
	})
}

func (s *Store) MarkCabinetFailed(ctx context.Context, cabinetID string, msg string) error {
	if err := s.exists(ctx, &model.Cabinet{}, "cabinet", cabinetID); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).Model(&model.Cabinet{}).Where("id = ?", cabinetID).
		Update("calculation_error", msg).Error
	if err != nil {
		return fmt.Errorf("failed to flag cabinet %s: %w", cabinetID, err)
	}
	return nil
}

func aggregateModel(kind model.EntityKind) (any, string, error) {
	switch kind {
	case model.KindProject:
		return &model.Project{}, "project", nil
	case model.KindRoom:
		return &model.Room{}, "room", nil
	case model.KindLocation:
		return &model.RoomLocation{}, "location", nil
	case model.KindCabinetRun:
		return &model.CabinetRun{}, "cabinet run", nil
	case model.KindCabinet:
		return &model.Cabinet{}, "cabinet", nil
	case model.KindSection:
		return &model.Section{}, "section", nil
	default:
		return nil, "", fmt.Errorf("%s has no aggregate", kind)
	}
}

func (s *Store) SaveAggregate(ctx context.Context, ref model.EntityRef, res model.AggregateResult, at time.Time) error {
	m, what, err := aggregateModel(ref.Kind)
	if err != nil {
		return err
	}
	if err := s.exists(ctx, m, what, ref.ID); err != nil {
		return err
	}
	breakdown, err := json.Marshal(res.Breakdown)
	if err != nil {
		return fmt.Errorf("failed to encode breakdown for %s: %w", ref, err)
	}
	err = s.db.WithContext(ctx).Model(m).Where("id = ?", ref.ID).Updates(map[string]any{
		"child_count_cached":       res.ChildCount,
		"contributing_count":       res.Contributing,
		"complexity_score":         res.Score,
		"complexity_breakdown":     string(breakdown),
		"complexity_calculated_at": at,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to save aggregate for %s: %w", ref, err)
	}
	return nil
}

func (s *Store) SaveComponentScore(ctx context.Context, componentID string, score float64, factors []model.ScoreFactor, at time.Time) error {
	if err := s.exists(ctx, &model.Component{}, "component", componentID); err != nil {
		return err
	}
	encoded, err := json.Marshal(factors)
	if err != nil {
		return fmt.Errorf("failed to encode factors for component %s: %w", componentID, err)
	}
	err = s.db.WithContext(ctx).Model(&model.Component{}).Where("id = ?", componentID).Updates(map[string]any{
		"complexity_score":         score,
		"complexity_factors":       string(encoded),
		"complexity_calculated_at": at,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to save score for component %s: %w", componentID, err)
	}
	return nil
}

// --- audits ---

func (s *Store) AppendAudit(ctx context.Context, a model.CalculationAudit) error {
	if err := s.exists(ctx, &model.Cabinet{}, "cabinet", a.CabinetID); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var seq int
		if err := tx.Model(&model.CalculationAudit{}).
			Where("cabinet_id = ?", a.CabinetID).
			Select("COALESCE(MAX(sequence), 0)").
			Scan(&seq).Error; err != nil {
			return fmt.Errorf("failed to read audit sequence for cabinet %s: %w", a.CabinetID, err)
		}
		a.Sequence = seq + 1
		if err := tx.Create(&a).Error; err != nil {
			return fmt.Errorf("failed to append audit for cabinet %s: %w", a.CabinetID, err)
		}
		return nil
	})
}

func (s *Store) LatestAudit(ctx context.Context, cabinetID string) (*model.CalculationAudit, error) {
	var a model.CalculationAudit
	err := s.db.WithContext(ctx).Where("cabinet_id = ?", cabinetID).Order("sequence DESC").First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load latest audit of cabinet %s: %w", cabinetID, err)
	}
	return &a, nil
}

func (s *Store) ListAudits(ctx context.Context, cabinetID string) ([]model.CalculationAudit, error) {
	var out []model.CalculationAudit
	if err := s.db.WithContext(ctx).Where("cabinet_id = ?", cabinetID).Order("sequence").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list audits of cabinet %s: %w", cabinetID, err)
	}
	return out, nil
}

func (s *Store) LoadAudit(ctx context.Context, id string) (model.CalculationAudit, error) {
	var a model.CalculationAudit
	err := s.first(ctx, &a, "audit", id)
	return a, err
}

func (s *Store) SaveAuditOverride(ctx context.Context, a model.CalculationAudit) error {
	if err := s.exists(ctx, &model.CalculationAudit{}, "audit", a.ID); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).Model(&model.CalculationAudit{}).Where("id = ?", a.ID).Updates(map[string]any{
		"is_overridden":   a.IsOverridden,
		"override_reason": a.OverrideReason,
		"overridden_by":   a.OverriddenBy,
		"overridden_at":   a.OverriddenAt,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to save override of audit %s: %w", a.ID, err)
	}
	return nil
}

const reviewQuery = `
SELECT a.project_id AS project_id,
       COALESCE(p.name, '') AS project_name,
       COUNT(*) AS open_audits,
       SUM(CASE WHEN a.audit_status = ? THEN 1 ELSE 0 END) AS failed_audits,
       SUM(CASE WHEN a.audit_status = ? THEN 1 ELSE 0 END) AS warning_audits
FROM cabinet_calculation_audits a
LEFT JOIN projects p ON p.id = a.project_id
WHERE a.is_overridden = ?
  AND a.audit_status IN (?, ?)
  AND a.sequence = (
    SELECT MAX(b.sequence) FROM cabinet_calculation_audits b WHERE b.cabinet_id = a.cabinet_id
  )
GROUP BY a.project_id, p.name
ORDER BY a.project_id`

// ProjectsNeedingReview counts, per project, the cabinets whose latest audit
// is warning or failed and has not been overridden.
func (s *Store) ProjectsNeedingReview(ctx context.Context) ([]model.ReviewItem, error) {
	var out []model.ReviewItem
	err := s.db.WithContext(ctx).Raw(reviewQuery,
		model.AuditFailed, model.AuditWarning, false, model.AuditFailed, model.AuditWarning,
	).Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query projects needing review: %w", err)
	}
	return out, nil
}
