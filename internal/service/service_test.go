package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/cabinetcalc/internal/model"
	"github.com/piwi3910/cabinetcalc/internal/store"
	"github.com/piwi3910/cabinetcalc/internal/store/gormstore"
	"github.com/piwi3910/cabinetcalc/internal/store/memory"
	"github.com/piwi3910/cabinetcalc/internal/store/storetest"
)

var fixedNow = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

type backend struct {
	name string
	open func(t *testing.T) store.Store
}

var backends = []backend{
	{"memory", func(t *testing.T) store.Store { return memory.New() }},
	{"sqlite", func(t *testing.T) store.Store {
		db, err := gormstore.Open("sqlite", filepath.Join(t.TempDir(), "svc.db"), zerolog.Nop())
		require.NoError(t, err)
		sqlDB, err := db.DB()
		require.NoError(t, err)
		t.Cleanup(func() { _ = sqlDB.Close() })
		require.NoError(t, gormstore.Migrate(db))
		return gormstore.New(db)
	}},
}

func newService(t *testing.T, st store.Store) (*Service, storetest.Fixture) {
	t.Helper()
	f, err := storetest.Seed(context.Background(), st)
	require.NoError(t, err)
	svc, err := New(st, model.DefaultAppConfig(), zerolog.Nop(), prometheus.NewRegistry())
	require.NoError(t, err)
	svc.Now = func() time.Time { return fixedNow }
	return svc, f
}

func eachBackend(t *testing.T, fn func(t *testing.T, st store.Store)) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) { fn(t, b.open(t)) })
	}
}

func TestRecalculateCabinet(t *testing.T) {
	eachBackend(t, func(t *testing.T, st store.Store) {
		ctx := context.Background()
		svc, _ := newService(t, st)

		res, err := svc.RecalculateCabinet(ctx, "C1", Options{})
		require.NoError(t, err)

		b := res.Calculation.Breakdown
		assert.InDelta(t, 18.0, b.DrawerDepth, 1e-9)
		assert.InDelta(t, 0.5, b.BackWallGap, 1e-9)
		assert.InDelta(t, 30.0, b.BoxHeight, 1e-9)
		assert.InDelta(t, 22.5, b.InternalWidth, 1e-9)
		assert.True(t, b.Balanced())
		assert.Equal(t, model.SourceRoom, res.Calculation.Standards.Source)
		assert.Equal(t, "tmpl-room", res.Calculation.Standards.TemplateID)

		assert.True(t, res.AuditAppended)
		assert.Equal(t, model.AuditInitialCalculation, res.Audit.AuditType)
		assert.Equal(t, model.AuditPassed, res.Audit.AuditStatus)
		assert.Equal(t, "P1", res.Audit.ProjectID)
		assert.Equal(t, "system", res.Audit.TriggeredBy)
		assert.Equal(t, 1, res.Audit.Sequence)

		cab, err := st.LoadCabinet(ctx, "C1")
		require.NoError(t, err)
		require.NotNil(t, cab.CalculatedAt)
		assert.InDelta(t, 18.0, cab.Breakdown.DrawerDepth, 1e-9)

		stretchers, err := st.LoadStretchers(ctx, "C1")
		require.NoError(t, err)
		require.Len(t, stretchers, 3)
		assert.Equal(t, model.StretcherDrawerSupport, stretchers[2].Position)
		require.NotNil(t, stretchers[2].DrawerID)
		assert.Equal(t, "DR1", *stretchers[2].DrawerID)

		assert.Equal(t, []model.EntityRef{
			model.Ref(model.KindCabinetRun, "RUN1"),
			model.Ref(model.KindLocation, "L1"),
			model.Ref(model.KindRoom, "R1"),
			model.Ref(model.KindProject, "P1"),
		}, res.Cascaded)
	})
}

func TestRecalculateIsIdempotent(t *testing.T) {
	eachBackend(t, func(t *testing.T, st store.Store) {
		ctx := context.Background()
		svc, _ := newService(t, st)

		first, err := svc.RecalculateCabinet(ctx, "C1", Options{})
		require.NoError(t, err)
		second, err := svc.RecalculateCabinet(ctx, "C1", Options{})
		require.NoError(t, err)
		third, err := svc.RecalculateCabinet(ctx, "C1", Options{})
		require.NoError(t, err)

		assert.Equal(t, first.Calculation.Breakdown, second.Calculation.Breakdown)
		assert.Equal(t, second.Calculation.Breakdown, third.Calculation.Breakdown)
		assert.Equal(t, first.Calculation.Stretchers, third.Calculation.Stretchers)

		assert.True(t, second.AuditAppended)
		assert.Equal(t, model.AuditRecalculation, second.Audit.AuditType)
		assert.Equal(t, model.AuditPassed, second.Audit.AuditStatus)
		assert.False(t, third.AuditAppended, "identical re-run reuses the latest audit")
		assert.Equal(t, second.Audit.ID, third.Audit.ID)

		audits, err := svc.ListAudits(ctx, "C1")
		require.NoError(t, err)
		assert.Len(t, audits, 2)
	})
}

func TestDimensionChangeIsAudited(t *testing.T) {
	eachBackend(t, func(t *testing.T, st store.Store) {
		ctx := context.Background()
		svc, _ := newService(t, st)

		_, err := svc.RecalculateCabinet(ctx, "C1", Options{})
		require.NoError(t, err)

		cab, err := st.LoadCabinet(ctx, "C1")
		require.NoError(t, err)
		cab.DepthInches = 24
		require.NoError(t, st.SaveCabinet(ctx, cab))

		res, err := svc.RecalculateCabinet(ctx, "C1", Options{AuditType: model.AuditDimensionChange, TriggeredBy: "sam"})
		require.NoError(t, err)
		assert.Equal(t, model.AuditDimensionChange, res.Audit.AuditType)
		assert.Equal(t, model.AuditFailed, res.Audit.AuditStatus)
		assert.Equal(t, "sam", res.Audit.TriggeredBy)
		assert.InDelta(t, 3.0, res.Audit.MaxDiscrepancyInches, 1e-9)

		d := res.Audit.Discrepancies.Data()
		fields := make([]string, 0, len(d))
		for _, x := range d {
			fields = append(fields, x.Field)
		}
		assert.Equal(t, []string{"total_depth", "internal_depth", "drawer_depth"}, fields)

		review, err := svc.ProjectsNeedingReview(ctx)
		require.NoError(t, err)
		require.Len(t, review, 1)
		assert.Equal(t, 1, review[0].FailedAudits)

		overridden, err := svc.OverrideAudit(ctx, res.Audit.ID, "sam", "customer asked for deeper boxes")
		require.NoError(t, err)
		assert.True(t, overridden.IsOverridden)
		assert.Equal(t, model.AuditFailed, overridden.AuditStatus)
		assert.Equal(t, model.AuditOverride, overridden.EffectiveStatus())

		review, err = svc.ProjectsNeedingReview(ctx)
		require.NoError(t, err)
		assert.Empty(t, review)

		_, err = svc.OverrideAudit(ctx, res.Audit.ID, "sam", "again")
		assert.ErrorIs(t, err, model.ErrAuditAlreadyOverridden)
		_, err = svc.OverrideAudit(ctx, res.Audit.ID, "sam", "   ")
		assert.Error(t, err)
	})
}

func TestShallowCabinetWarnsButPersists(t *testing.T) {
	eachBackend(t, func(t *testing.T, st store.Store) {
		ctx := context.Background()
		svc, f := newService(t, st)

		cab := f.Cabinet2
		cab.DepthInches = 10
		require.NoError(t, st.SaveCabinet(ctx, cab))

		res, err := svc.RecalculateCabinet(ctx, "C2", Options{})
		require.NoError(t, err)
		require.Len(t, res.Calculation.Warnings, 1)
		assert.InDelta(t, 10.5, res.Calculation.Warnings[0].MinimumDepth, 1e-9)

		stored, err := st.LoadCabinet(ctx, "C2")
		require.NoError(t, err)
		assert.False(t, stored.Breakdown.DepthValidated)
		assert.Zero(t, stored.Breakdown.DrawerDepth)
		assert.True(t, stored.Breakdown.Balanced())
		assert.Contains(t, stored.Breakdown.DepthValidationMessage, "10.5000")

		assert.InDelta(t, 1, testutil.ToFloat64(svc.Metrics().Calculations.WithLabelValues(outcomeDepthWarning)), 1e-9)
	})
}

func TestRecalculateSubtree(t *testing.T) {
	eachBackend(t, func(t *testing.T, st store.Store) {
		ctx := context.Background()
		svc, _ := newService(t, st)

		res, err := svc.RecalculateSubtree(ctx, model.Ref(model.KindProject, "P1"), Options{})
		require.NoError(t, err)
		assert.Len(t, res.Cabinets, 3)
		assert.Empty(t, res.Failures)
		assert.Empty(t, res.Cascaded)

		c3 := res.Cabinets["C3"]
		assert.Equal(t, model.SourceDefault, c3.Calculation.Standards.Source)
		assert.InDelta(t, 79.5, c3.Calculation.Breakdown.BoxHeight, 1e-9)

		scoreOf := func(ref model.EntityRef) *float64 { return res.Aggregates[ref].Score }
		require.NotNil(t, scoreOf(model.Ref(model.KindCabinet, "C1")))
		assert.InDelta(t, 1.6875, *scoreOf(model.Ref(model.KindCabinet, "C1")), 1e-9)
		assert.Nil(t, scoreOf(model.Ref(model.KindCabinet, "C3")), "no sections, no score")
		require.NotNil(t, scoreOf(model.Ref(model.KindCabinetRun, "RUN1")))
		assert.InDelta(t, 1.2917, *scoreOf(model.Ref(model.KindCabinetRun, "RUN1")), 1e-9)

		p, err := st.LoadProject(ctx, "P1")
		require.NoError(t, err)
		require.NotNil(t, p.Aggregate.ComplexityScore)
		assert.InDelta(t, 1.2917, *p.Aggregate.ComplexityScore, 1e-9)
		assert.Equal(t, 2, p.Aggregate.ChildCountCached)

		kids, err := st.LoadChildAggregates(ctx, model.Ref(model.KindSection, "S2"))
		require.NoError(t, err)
		require.Len(t, kids, 1)
		require.NotNil(t, kids[0].Score)
		assert.InDelta(t, 3.0, *kids[0].Score, 1e-9)
	})
}

func TestFailedCabinetIsExcluded(t *testing.T) {
	eachBackend(t, func(t *testing.T, st store.Store) {
		ctx := context.Background()
		svc, f := newService(t, st)

		_, err := svc.RecalculateSubtree(ctx, model.Ref(model.KindProject, "P1"), Options{})
		require.NoError(t, err)

		broken, err := st.LoadCabinet(ctx, f.Cabinet2.ID)
		require.NoError(t, err)
		broken.WidthInches = 0
		require.NoError(t, st.SaveCabinet(ctx, broken))

		_, err = svc.RecalculateCabinet(ctx, "C2", Options{})
		var invalid *model.InvalidDimensionError
		require.True(t, errors.As(err, &invalid))
		assert.Equal(t, "width_inches", invalid.Field)

		cab, err := st.LoadCabinet(ctx, "C2")
		require.NoError(t, err)
		assert.NotEmpty(t, cab.CalculationError)

		kids, err := st.LoadChildAggregates(ctx, model.Ref(model.KindLocation, "L1"))
		require.NoError(t, err)
		require.Len(t, kids, 1)
		require.NotNil(t, kids[0].Score)
		assert.InDelta(t, 1.6875, *kids[0].Score, 1e-9, "run average ignores the failed cabinet")

		p, err := st.LoadProject(ctx, "P1")
		require.NoError(t, err)
		require.NotNil(t, p.Aggregate.ComplexityScore)
		assert.InDelta(t, 1.6875, *p.Aggregate.ComplexityScore, 1e-9)

		sub, err := svc.RecalculateSubtree(ctx, model.Ref(model.KindCabinetRun, "RUN1"), Options{})
		require.NoError(t, err)
		assert.Contains(t, sub.Failures, "C2")
		assert.Contains(t, sub.Cabinets, "C1")
		run := sub.Aggregates[model.Ref(model.KindCabinetRun, "RUN1")]
		require.NotNil(t, run.Score)
		assert.InDelta(t, 1.6875, *run.Score, 1e-9)
		assert.Equal(t, []string{"C2"}, run.Breakdown.Skipped)

		assert.InDelta(t, 2, testutil.ToFloat64(svc.Metrics().Calculations.WithLabelValues(outcomeFailed)), 1e-9)
	})
}

func TestMissingDefaultTemplateFails(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	f, err := storetest.Seed(ctx, st)
	require.NoError(t, err)
	notDefault := f.DefaultTemplate
	notDefault.IsDefault = false
	require.NoError(t, st.SaveTemplate(ctx, notDefault))

	svc, err := New(st, model.DefaultAppConfig(), zerolog.Nop(), nil)
	require.NoError(t, err)

	_, err = svc.RecalculateCabinet(ctx, "C3", Options{})
	var noTemplate *model.NoTemplateResolvedError
	assert.True(t, errors.As(err, &noTemplate))

	// C1 inherits from its room and is unaffected.
	_, err = svc.RecalculateCabinet(ctx, "C1", Options{})
	assert.NoError(t, err)
}

func TestResolveAndCompare(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, memory.New())

	std, err := svc.ResolveStandards(ctx, "C3")
	require.NoError(t, err)
	assert.Equal(t, "tmpl-default", std.TemplateID)
	assert.Equal(t, model.SourceDefault, std.Source)

	results, err := svc.CompareTemplates(ctx, "C2", nil)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "Current", results[0].Scenario.Name)
	for _, r := range results {
		require.NoError(t, r.Err)
		assert.True(t, r.DepthValidated)
	}

	results, err = svc.CompareTemplates(ctx, "C2", []string{"tmpl-default"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	// Frameless by room template, face frame by the shop default.
	assert.InDelta(t, 21.0, results[0].DrawerDepth, 1e-9)
	assert.InDelta(t, 2.0, results[0].BackWallGap, 1e-9)
	assert.InDelta(t, 21.0, results[1].DrawerDepth, 1e-9)
	assert.InDelta(t, 0.5, results[1].BackWallGap, 1e-9)

	_, err = svc.CompareTemplates(ctx, "C2", []string{"missing"})
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestRejectsUnknownAuditType(t *testing.T) {
	svc, _ := newService(t, memory.New())
	_, err := svc.RecalculateCabinet(context.Background(), "C1", Options{AuditType: "bogus"})
	assert.Error(t, err)
}

func TestMetricsRegisterOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(memory.New(), model.DefaultAppConfig(), zerolog.Nop(), reg)
	require.NoError(t, err)
	_, err = New(memory.New(), model.DefaultAppConfig(), zerolog.Nop(), reg)
	assert.Error(t, err)
}
