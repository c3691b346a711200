// Package service coordinates resolution, calculation, auditing and the
// complexity cascade over a store.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/piwi3910/cabinetcalc/internal/audit"
	"github.com/piwi3910/cabinetcalc/internal/complexity"
	"github.com/piwi3910/cabinetcalc/internal/engine"
	"github.com/piwi3910/cabinetcalc/internal/model"
	"github.com/piwi3910/cabinetcalc/internal/standards"
	"github.com/piwi3910/cabinetcalc/internal/store"
)

// Service is the trigger interface of the engine. It holds no per-call state.
type Service struct {
	store      store.Store
	calculator *engine.Calculator
	recorder   *audit.Recorder
	scorer     complexity.Scorer
	metrics    *Metrics
	log        zerolog.Logger

	// TriggeredBy is recorded on audits when the caller names nobody.
	TriggeredBy string
	// Now stamps calculations, aggregates and audits.
	Now func() time.Time
}

// New builds a service from the engine config. Metrics are registered on reg
// when it is not nil.
func New(st store.Store, cfg model.AppConfig, log zerolog.Logger, reg prometheus.Registerer) (*Service, error) {
	metrics, err := NewMetrics(reg)
	if err != nil {
		return nil, err
	}
	triggeredBy := cfg.TriggeredBy
	if triggeredBy == "" {
		triggeredBy = "system"
	}
	return &Service{
		store:       st,
		calculator:  engine.New(engine.SettingsFromConfig(cfg)),
		recorder:    audit.NewRecorder(cfg.Thresholds()),
		scorer:      complexity.DefaultScorer(),
		metrics:     metrics,
		log:         log,
		TriggeredBy: triggeredBy,
		Now:         func() time.Time { return time.Now().UTC() },
	}, nil
}

// SetScorer replaces the leaf scorer used by subtree recalculation.
func (s *Service) SetScorer(sc complexity.Scorer) {
	s.scorer = sc
}

// Metrics returns the service's collectors.
func (s *Service) Metrics() *Metrics { return s.metrics }

// Options tune one recalculation request.
type Options struct {
	// AuditType is used when the cabinet was calculated before. Empty means recalculation.
	AuditType   model.AuditType
	TriggeredBy string
}

func (o Options) auditType(calculated bool) model.AuditType {
	if !calculated {
		return model.AuditInitialCalculation
	}
	if o.AuditType == "" {
		return model.AuditRecalculation
	}
	return o.AuditType
}

// CabinetResult is the outcome of recalculating one cabinet.
type CabinetResult struct {
	Calculation model.Calculation
	Audit       model.CalculationAudit
	// AuditAppended is false when the run repeated the latest audit.
	AuditAppended bool
	Cascaded      []model.EntityRef
}

// RecalculateCabinet resolves standards, calculates, persists the breakdown
// and stretchers, records an audit and recomputes every ancestor aggregate in
// one transaction. A structural failure flags the cabinet, refreshes its
// ancestors without it and is returned.
func (s *Service) RecalculateCabinet(ctx context.Context, cabinetID string, opts Options) (CabinetResult, error) {
	if opts.AuditType != "" && !opts.AuditType.Valid() {
		return CabinetResult{}, fmt.Errorf("unknown audit type %q", opts.AuditType)
	}
	at := s.Now()
	var res CabinetResult
	err := s.store.WithinTx(ctx, func(tx store.Store) error {
		var err error
		res, err = s.calculate(ctx, tx, cabinetID, opts, at)
		if err != nil {
			return err
		}
		res.Cascaded, err = complexity.Propagate(ctx, tx, model.Ref(model.KindCabinet, cabinetID), at)
		if err != nil {
			return err
		}
		s.metrics.Aggregates.Add(float64(len(res.Cascaded)))
		return nil
	})
	if err == nil {
		return res, nil
	}
	if !model.IsStructural(err) {
		return CabinetResult{}, err
	}

	if ferr := s.store.WithinTx(ctx, func(tx store.Store) error {
		if err := tx.MarkCabinetFailed(ctx, cabinetID, err.Error()); err != nil {
			return err
		}
		_, err := complexity.Propagate(ctx, tx, model.Ref(model.KindCabinet, cabinetID), at)
		return err
	}); ferr != nil {
		return CabinetResult{}, errors.Join(err, fmt.Errorf("failed to flag cabinet %s: %w", cabinetID, ferr))
	}
	return CabinetResult{}, err
}

// calculate runs one cabinet against tx without touching ancestor aggregates.
func (s *Service) calculate(ctx context.Context, tx store.Store, cabinetID string, opts Options, at time.Time) (CabinetResult, error) {
	start := time.Now()
	log := s.log.With().Str("cabinet_id", cabinetID).Logger()

	res, err := s.calculateCabinet(ctx, tx, cabinetID, opts, at)
	s.metrics.Duration.Observe(time.Since(start).Seconds())
	if err != nil {
		if model.IsStructural(err) {
			s.metrics.Calculations.WithLabelValues(outcomeFailed).Inc()
			log.Warn().Err(err).Msg("cabinet calculation failed")
		}
		return CabinetResult{}, err
	}

	outcome := outcomeOK
	if len(res.Calculation.Warnings) > 0 {
		outcome = outcomeDepthWarning
		for _, w := range res.Calculation.Warnings {
			log.Warn().Float64("depth", w.RequestedDepth).Float64("minimum_depth", w.MinimumDepth).Msg(w.Message)
		}
	}
	s.metrics.Calculations.WithLabelValues(outcome).Inc()
	if res.AuditAppended {
		s.metrics.Audits.WithLabelValues(string(res.Audit.AuditStatus)).Inc()
	}

	log.Info().
		Str("template_id", res.Calculation.Standards.TemplateID).
		Str("template_source", string(res.Calculation.Standards.Source)).
		Str("audit_status", string(res.Audit.AuditStatus)).
		Bool("audit_appended", res.AuditAppended).
		Dur("duration", time.Since(start)).
		Msg("cabinet calculated")
	return res, nil
}

func (s *Service) calculateCabinet(ctx context.Context, tx store.Store, cabinetID string, opts Options, at time.Time) (CabinetResult, error) {
	chain, err := tx.LoadAncestorChain(ctx, cabinetID)
	if err != nil {
		return CabinetResult{}, fmt.Errorf("failed to load cabinet %s: %w", cabinetID, err)
	}
	std, err := standards.New(tx).ResolveChain(ctx, chain)
	if err != nil {
		return CabinetResult{}, err
	}
	drawers, err := tx.LoadDrawers(ctx, cabinetID)
	if err != nil {
		return CabinetResult{}, err
	}

	cab := chain.Cabinet
	calc, err := s.calculator.Calculate(cab, drawers, std)
	if err != nil {
		return CabinetResult{}, err
	}
	if err := tx.SaveCabinetCalculation(ctx, cabinetID, calc.Breakdown, calc.Stretchers, at); err != nil {
		return CabinetResult{}, err
	}

	var stored model.Snapshot
	if cab.Calculated() {
		stored = cab.Breakdown.Snapshot()
	}
	triggeredBy := opts.TriggeredBy
	if triggeredBy == "" {
		triggeredBy = s.TriggeredBy
	}
	candidate, err := s.recorder.Record(audit.Input{
		CabinetID:   cabinetID,
		ProjectID:   chain.Project.ID,
		TemplateID:  std.TemplateID,
		Type:        opts.auditType(cab.Calculated()),
		TriggeredBy: triggeredBy,
		Stored:      stored,
		Calculated:  calc.Breakdown.Snapshot(),
		Template:    std.Snapshot(),
		At:          at,
	})
	if err != nil {
		return CabinetResult{}, err
	}

	latest, err := tx.LatestAudit(ctx, cabinetID)
	if err != nil {
		return CabinetResult{}, err
	}
	res := CabinetResult{Calculation: calc}
	if audit.Duplicate(latest, candidate) {
		res.Audit = *latest
		return res, nil
	}
	if err := tx.AppendAudit(ctx, candidate); err != nil {
		return CabinetResult{}, err
	}
	appended, err := tx.LoadAudit(ctx, candidate.ID)
	if err != nil {
		return CabinetResult{}, err
	}
	res.Audit = appended
	res.AuditAppended = true
	return res, nil
}

// SubtreeResult is the outcome of recalculating everything under one node.
type SubtreeResult struct {
	Root       model.EntityRef
	Cabinets   map[string]CabinetResult
	Failures   map[string]error // structural failures by cabinet ID
	Aggregates map[model.EntityRef]model.AggregateResult
	Cascaded   []model.EntityRef
}

// RecalculateSubtree calculates every cabinet under ref, scores and
// aggregates the subtree bottom-up and refreshes ref's ancestors, all in one
// transaction. Cabinets that fail structurally are flagged and left out of
// their parents' averages; their errors are collected, not returned.
func (s *Service) RecalculateSubtree(ctx context.Context, ref model.EntityRef, opts Options) (SubtreeResult, error) {
	if opts.AuditType != "" && !opts.AuditType.Valid() {
		return SubtreeResult{}, fmt.Errorf("unknown audit type %q", opts.AuditType)
	}
	at := s.Now()
	start := time.Now()
	out := SubtreeResult{
		Root:     ref,
		Cabinets: map[string]CabinetResult{},
		Failures: map[string]error{},
	}

	err := s.store.WithinTx(ctx, func(tx store.Store) error {
		ids, err := tx.CabinetIDsUnder(ctx, ref)
		if err != nil {
			return err
		}
		for _, id := range ids {
			res, err := s.calculate(ctx, tx, id, opts, at)
			switch {
			case err == nil:
				out.Cabinets[id] = res
			case model.IsStructural(err):
				out.Failures[id] = err
				if err := tx.MarkCabinetFailed(ctx, id, err.Error()); err != nil {
					return err
				}
			default:
				return err
			}
		}

		root, err := tx.LoadSubtree(ctx, ref)
		if err != nil {
			return err
		}
		tree, err := complexity.EvaluateTree(ctx, root, s.scorer)
		if err != nil {
			return err
		}
		if err := s.saveTree(ctx, tx, tree, at); err != nil {
			return err
		}
		out.Aggregates = tree.Aggregates

		out.Cascaded, err = complexity.Propagate(ctx, tx, ref, at)
		if err != nil {
			return err
		}
		s.metrics.Aggregates.Add(float64(len(tree.Aggregates) + len(out.Cascaded)))
		return nil
	})
	if err != nil {
		return SubtreeResult{}, err
	}

	s.log.Info().
		Str("root", ref.String()).
		Int("cabinets", len(out.Cabinets)).
		Int("failures", len(out.Failures)).
		Int("aggregates", len(out.Aggregates)).
		Dur("duration", time.Since(start)).
		Msg("subtree recalculated")
	return out, nil
}

// saveTree writes leaf scores, then aggregates deepest first.
func (s *Service) saveTree(ctx context.Context, tx store.Store, tree complexity.TreeResult, at time.Time) error {
	leafIDs := make([]string, 0, len(tree.Leaves))
	for id := range tree.Leaves {
		leafIDs = append(leafIDs, id)
	}
	sort.Strings(leafIDs)
	for _, id := range leafIDs {
		leaf := tree.Leaves[id]
		if err := tx.SaveComponentScore(ctx, id, leaf.Score, leaf.Factors, at); err != nil {
			return err
		}
	}

	refs := make([]model.EntityRef, 0, len(tree.Aggregates))
	for ref := range tree.Aggregates {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Kind != refs[j].Kind {
			return refs[i].Kind > refs[j].Kind
		}
		return refs[i].ID < refs[j].ID
	})
	for _, ref := range refs {
		if err := tx.SaveAggregate(ctx, ref, tree.Aggregates[ref], at); err != nil {
			return err
		}
	}
	return nil
}

// ResolveStandards returns the standards that apply to a cabinet.
func (s *Service) ResolveStandards(ctx context.Context, cabinetID string) (model.EffectiveStandards, error) {
	return standards.New(s.store).Resolve(ctx, cabinetID)
}

// CompareTemplates runs a cabinet against its resolved standards and then
// each listed template. An empty list compares against every template.
func (s *Service) CompareTemplates(ctx context.Context, cabinetID string, templateIDs []string) ([]engine.ComparisonResult, error) {
	cab, err := s.store.LoadCabinet(ctx, cabinetID)
	if err != nil {
		return nil, err
	}
	drawers, err := s.store.LoadDrawers(ctx, cabinetID)
	if err != nil {
		return nil, err
	}

	var templates []model.ConstructionTemplate
	if len(templateIDs) == 0 {
		if templates, err = s.store.ListTemplates(ctx); err != nil {
			return nil, err
		}
	}
	for _, id := range templateIDs {
		t, err := s.store.LoadTemplate(ctx, id)
		if err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}

	var scenarios []engine.ComparisonScenario
	if current, err := s.ResolveStandards(ctx, cabinetID); err == nil {
		scenarios = append(scenarios, engine.ComparisonScenario{Name: "Current", Standards: current})
	} else if !model.IsStructural(err) {
		return nil, err
	}
	scenarios = append(scenarios, engine.TemplateScenarios(templates)...)
	return s.calculator.CompareScenarios(cab, drawers, scenarios), nil
}

// OverrideAudit annotates an audit with a human decision. Its recorded status
// and discrepancies are kept.
func (s *Service) OverrideAudit(ctx context.Context, auditID, by, reason string) (model.CalculationAudit, error) {
	var out model.CalculationAudit
	err := s.store.WithinTx(ctx, func(tx store.Store) error {
		a, err := tx.LoadAudit(ctx, auditID)
		if err != nil {
			return err
		}
		if err := audit.Override(&a, by, reason, s.Now()); err != nil {
			return err
		}
		if err := tx.SaveAuditOverride(ctx, a); err != nil {
			return err
		}
		out = a
		return nil
	})
	if err != nil {
		return model.CalculationAudit{}, err
	}
	s.metrics.Overrides.Inc()
	s.log.Info().Str("audit_id", auditID).Str("by", by).Msg("audit overridden")
	return out, nil
}

// ListAudits returns a cabinet's audit history, oldest first.
func (s *Service) ListAudits(ctx context.Context, cabinetID string) ([]model.CalculationAudit, error) {
	return s.store.ListAudits(ctx, cabinetID)
}

// ProjectsNeedingReview lists projects whose cabinets have unresolved
// warning or failed audits.
func (s *Service) ProjectsNeedingReview(ctx context.Context) ([]model.ReviewItem, error) {
	return s.store.ProjectsNeedingReview(ctx)
}
