// Package storetest seeds a small project tree and checks a store.Store
// implementation against the behavior the engine relies on.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/cabinetcalc/internal/audit"
	"github.com/piwi3910/cabinetcalc/internal/model"
	"github.com/piwi3910/cabinetcalc/internal/store"
)

// Fixture names the rows Seed creates.
//
//	P1 ─ R1 (room template) ─ L1 ─ RUN1 ─ C1 ─ S1 (3 doors)
//	                                  │       └ S2 (1 drawer)
//	                                  └ C2 ─ S3 (1 shelf)
//	   └ R2 ─ L2 ─ RUN2 ─ C3 (no sections)
type Fixture struct {
	DefaultTemplate model.ConstructionTemplate
	RoomTemplate    model.ConstructionTemplate

	Project                      model.Project
	Room1, Room2                 model.Room
	Location1, Location2         model.RoomLocation
	Run1, Run2                   model.CabinetRun
	Cabinet1, Cabinet2, Cabinet3 model.Cabinet
	Section1, Section2, Section3 model.Section
	Doors                        []model.Component
	Drawer, Shelf                model.Component
}

func ptr(s string) *string { return &s }

// Seed writes the fixture tree into st.
func Seed(ctx context.Context, st store.Store) (Fixture, error) {
	var f Fixture

	f.DefaultTemplate = model.NewConstructionTemplate("Shop Standard")
	f.DefaultTemplate.ID = "tmpl-default"
	f.DefaultTemplate.IsDefault = true

	f.RoomTemplate = model.NewConstructionTemplate("Kitchen Frameless")
	f.RoomTemplate.ID = "tmpl-room"
	f.RoomTemplate.DefaultStyle = model.StyleFrameless

	f.Project = model.Project{ID: "P1", Name: "Harbor House"}
	f.Room1 = model.Room{ID: "R1", ProjectID: "P1", Name: "Kitchen", ConstructionTemplateID: ptr("tmpl-room")}
	f.Room2 = model.Room{ID: "R2", ProjectID: "P1", Name: "Pantry"}
	f.Location1 = model.RoomLocation{ID: "L1", RoomID: "R1", Name: "North Wall"}
	f.Location2 = model.RoomLocation{ID: "L2", RoomID: "R2", Name: "East Wall"}
	f.Run1 = model.CabinetRun{ID: "RUN1", RoomLocationID: "L1", Name: "Base Run"}
	f.Run2 = model.CabinetRun{ID: "RUN2", RoomLocationID: "L2", Name: "Pantry Run"}

	f.Cabinet1 = model.Cabinet{
		ID: "C1", CabinetRunID: "RUN1", CabinetNumber: "B1", Type: model.CabinetBase,
		FaceFrameStyle: model.StyleFaceFrame, SortOrder: 1,
		WidthInches: 24, HeightInches: 34.5, DepthInches: 21, DrawerCount: 1,
	}
	f.Cabinet2 = model.Cabinet{
		ID: "C2", CabinetRunID: "RUN1", CabinetNumber: "B2", Type: model.CabinetBase, SortOrder: 2,
		WidthInches: 30, HeightInches: 34.5, DepthInches: 24,
	}
	f.Cabinet3 = model.Cabinet{
		ID: "C3", CabinetRunID: "RUN2", CabinetNumber: "T1", Type: model.CabinetTall,
		WidthInches: 18, HeightInches: 84, DepthInches: 24,
	}
	f.Section1 = model.Section{ID: "S1", CabinetID: "C1", Name: "Doors", SortOrder: 1}
	f.Section2 = model.Section{ID: "S2", CabinetID: "C1", Name: "Drawer", SortOrder: 2}
	f.Section3 = model.Section{ID: "S3", CabinetID: "C2", Name: "Open", SortOrder: 1}
	f.Doors = []model.Component{
		{ID: "D1", SectionID: "S1", Kind: model.ComponentDoor, SortOrder: 1, ProfileType: "shaker"},
		{ID: "D2", SectionID: "S1", Kind: model.ComponentDoor, SortOrder: 2, ProfileType: "shaker"},
		{ID: "D3", SectionID: "S1", Kind: model.ComponentDoor, SortOrder: 3, ProfileType: "shaker"},
	}
	f.Drawer = model.Component{ID: "DR1", SectionID: "S2", Kind: model.ComponentDrawer, SortOrder: 1, HardwareComplexity: 2}
	f.Shelf = model.Component{ID: "SH1", SectionID: "S3", Kind: model.ComponentShelf, SortOrder: 1}

	steps := []func() error{
		func() error { return st.SaveTemplate(ctx, f.DefaultTemplate) },
		func() error { return st.SaveTemplate(ctx, f.RoomTemplate) },
		func() error { return st.SaveProject(ctx, f.Project) },
		func() error { return st.SaveRoom(ctx, f.Room1) },
		func() error { return st.SaveRoom(ctx, f.Room2) },
		func() error { return st.SaveLocation(ctx, f.Location1) },
		func() error { return st.SaveLocation(ctx, f.Location2) },
		func() error { return st.SaveRun(ctx, f.Run1) },
		func() error { return st.SaveRun(ctx, f.Run2) },
		func() error { return st.SaveCabinet(ctx, f.Cabinet1) },
		func() error { return st.SaveCabinet(ctx, f.Cabinet2) },
		func() error { return st.SaveCabinet(ctx, f.Cabinet3) },
		func() error { return st.SaveSection(ctx, f.Section1) },
		func() error { return st.SaveSection(ctx, f.Section2) },
		func() error { return st.SaveSection(ctx, f.Section3) },
		func() error { return st.SaveComponent(ctx, f.Doors[0]) },
		func() error { return st.SaveComponent(ctx, f.Doors[1]) },
		func() error { return st.SaveComponent(ctx, f.Doors[2]) },
		func() error { return st.SaveComponent(ctx, f.Drawer) },
		func() error { return st.SaveComponent(ctx, f.Shelf) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return Fixture{}, err
		}
	}
	return f, nil
}

// Run executes the conformance suite. newStore must return an empty store.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	seeded := func(t *testing.T) (store.Store, Fixture) {
		t.Helper()
		st := newStore(t)
		f, err := Seed(context.Background(), st)
		require.NoError(t, err)
		return st, f
	}

	t.Run("Templates", func(t *testing.T) {
		ctx := context.Background()
		st, f := seeded(t)

		def, err := st.LoadDefaultTemplate(ctx)
		require.NoError(t, err)
		assert.Equal(t, f.DefaultTemplate.ID, def.ID)
		assert.Equal(t, f.DefaultTemplate.Styles, def.Styles)

		got, err := st.LoadTemplate(ctx, "tmpl-room")
		require.NoError(t, err)
		assert.Equal(t, model.StyleFrameless, got.DefaultStyle)
		assert.InDelta(t, 0.75, got.BackPanelThickness, 1e-9)
		assert.Nil(t, got.SidePanelThickness)

		_, err = st.LoadTemplate(ctx, "missing")
		assert.ErrorIs(t, err, model.ErrNotFound)

		// Promoting another template demotes the old default.
		promoted := f.RoomTemplate
		promoted.IsDefault = true
		require.NoError(t, st.SaveTemplate(ctx, promoted))
		def, err = st.LoadDefaultTemplate(ctx)
		require.NoError(t, err)
		assert.Equal(t, "tmpl-room", def.ID)

		all, err := st.ListTemplates(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)
		defaults := 0
		for _, tmpl := range all {
			if tmpl.IsDefault {
				defaults++
			}
		}
		assert.Equal(t, 1, defaults)
	})

	t.Run("NoDefaultTemplate", func(t *testing.T) {
		st := newStore(t)
		_, err := st.LoadDefaultTemplate(context.Background())
		assert.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("AncestorChain", func(t *testing.T) {
		ctx := context.Background()
		st, _ := seeded(t)

		chain, err := st.LoadAncestorChain(ctx, "C1")
		require.NoError(t, err)
		assert.Equal(t, "RUN1", chain.Run.ID)
		assert.Equal(t, "L1", chain.Location.ID)
		assert.Equal(t, "R1", chain.Room.ID)
		assert.Equal(t, "P1", chain.Project.ID)
		require.NotNil(t, chain.Room.ConstructionTemplateID)
		assert.Equal(t, "tmpl-room", *chain.Room.ConstructionTemplateID)
		assert.Nil(t, chain.Cabinet.ConstructionTemplateID)

		_, err = st.LoadAncestorChain(ctx, "nope")
		assert.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("Ancestors", func(t *testing.T) {
		ctx := context.Background()
		st, _ := seeded(t)

		got, err := st.LoadAncestors(ctx, model.Ref(model.KindComponent, "DR1"))
		require.NoError(t, err)
		assert.Equal(t, []model.EntityRef{
			model.Ref(model.KindSection, "S2"),
			model.Ref(model.KindCabinet, "C1"),
			model.Ref(model.KindCabinetRun, "RUN1"),
			model.Ref(model.KindLocation, "L1"),
			model.Ref(model.KindRoom, "R1"),
			model.Ref(model.KindProject, "P1"),
		}, got)

		got, err = st.LoadAncestors(ctx, model.Ref(model.KindProject, "P1"))
		require.NoError(t, err)
		assert.Empty(t, got)

		_, err = st.LoadAncestors(ctx, model.Ref(model.KindRoom, "nope"))
		assert.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("Drawers", func(t *testing.T) {
		st, _ := seeded(t)
		drawers, err := st.LoadDrawers(context.Background(), "C1")
		require.NoError(t, err)
		require.Len(t, drawers, 1)
		assert.Equal(t, "DR1", drawers[0].ID)
	})

	t.Run("ChildrenAndSubtree", func(t *testing.T) {
		ctx := context.Background()
		st, _ := seeded(t)

		kids, err := st.LoadChildAggregates(ctx, model.Ref(model.KindCabinetRun, "RUN1"))
		require.NoError(t, err)
		require.Len(t, kids, 2)
		assert.Equal(t, "C1", kids[0].Ref.ID)
		assert.Equal(t, "C2", kids[1].Ref.ID)
		assert.Nil(t, kids[0].Score)

		kids, err = st.LoadChildAggregates(ctx, model.Ref(model.KindSection, "S1"))
		require.NoError(t, err)
		require.Len(t, kids, 3)
		for _, k := range kids {
			assert.Equal(t, 1, k.Weight)
		}

		tree, err := st.LoadSubtree(ctx, model.Ref(model.KindProject, "P1"))
		require.NoError(t, err)
		assert.Len(t, tree.Children, 2)
		leaves := 0
		var walk func(n *model.Node)
		walk = func(n *model.Node) {
			if n.Ref.Kind.IsLeaf() {
				require.NotNil(t, n.Component)
				leaves++
			}
			for _, c := range n.Children {
				walk(c)
			}
		}
		walk(tree)
		assert.Equal(t, 5, leaves)

		ids, err := st.CabinetIDsUnder(ctx, model.Ref(model.KindProject, "P1"))
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"C1", "C2", "C3"}, ids)

		ids, err = st.CabinetIDsUnder(ctx, model.Ref(model.KindSection, "S1"))
		require.NoError(t, err)
		assert.Empty(t, ids)
	})

	t.Run("CabinetCalculation", func(t *testing.T) {
		ctx := context.Background()
		st, _ := seeded(t)
		at := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

		slide := 18.0
		b := model.DepthBreakdown{
			TotalDepth: 21, FaceFrameDepth: 1.5, DrawerDepth: 18, DrawerClearance: 0.25,
			InternalDepth: 18.25, BackPanelThickness: 0.75, BackWallGap: 0.5,
			BoxHeight: 30, InternalWidth: 22.5, DepthValidated: true, MaxSlideLengthInches: &slide,
		}
		stretchers := []model.Stretcher{
			{ID: "st-1", StretcherNumber: 1, Position: model.StretcherFront, WidthInches: 22.5, DepthInches: 3.5, ThicknessInches: 0.75},
			{ID: "st-2", StretcherNumber: 2, Position: model.StretcherBack, WidthInches: 22.5, DepthInches: 3.5, ThicknessInches: 0.75},
		}

		require.NoError(t, st.MarkCabinetFailed(ctx, "C1", "boom"))
		require.NoError(t, st.SaveCabinetCalculation(ctx, "C1", b, stretchers, at))

		c, err := st.LoadCabinet(ctx, "C1")
		require.NoError(t, err)
		assert.Empty(t, c.CalculationError, "success clears the failure flag")
		require.NotNil(t, c.CalculatedAt)
		assert.True(t, c.CalculatedAt.Equal(at))
		assert.InDelta(t, 18.0, c.Breakdown.DrawerDepth, 1e-9)
		assert.True(t, c.Breakdown.DepthValidated)
		require.NotNil(t, c.Breakdown.MaxSlideLengthInches)
		assert.InDelta(t, 18.0, *c.Breakdown.MaxSlideLengthInches, 1e-9)
		assert.True(t, c.Breakdown.Balanced())

		got, err := st.LoadStretchers(ctx, "C1")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "C1", got[0].CabinetID)

		// Stretchers are replaced, not appended.
		require.NoError(t, st.SaveCabinetCalculation(ctx, "C1", b, stretchers[:1], at))
		got, err = st.LoadStretchers(ctx, "C1")
		require.NoError(t, err)
		assert.Len(t, got, 1)

		require.NoError(t, st.MarkCabinetFailed(ctx, "C2", "invalid width"))
		kids, err := st.LoadChildAggregates(ctx, model.Ref(model.KindCabinetRun, "RUN1"))
		require.NoError(t, err)
		assert.False(t, kids[0].Excluded)
		assert.True(t, kids[1].Excluded)

		assert.ErrorIs(t, st.MarkCabinetFailed(ctx, "nope", "x"), model.ErrNotFound)
	})

	t.Run("Aggregates", func(t *testing.T) {
		ctx := context.Background()
		st, _ := seeded(t)
		at := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

		require.NoError(t, st.SaveComponentScore(ctx, "D1", 2.25, []model.ScoreFactor{{Name: "base", Value: 1}}, at))
		kids, err := st.LoadChildAggregates(ctx, model.Ref(model.KindSection, "S1"))
		require.NoError(t, err)
		require.NotNil(t, kids[0].Score)
		assert.InDelta(t, 2.25, *kids[0].Score, 1e-9)

		score := 5.0
		res := model.AggregateResult{
			ChildCount:   2,
			Contributing: 2,
			Score:        &score,
			Breakdown: model.ComplexityBreakdown{
				ChildKind:   model.KindSection,
				Children:    []model.ChildContribution{{ID: "S1", Score: 4, Weight: 3}, {ID: "S2", Score: 8, Weight: 1}},
				TotalWeight: 4,
			},
		}
		require.NoError(t, st.SaveAggregate(ctx, model.Ref(model.KindCabinet, "C1"), res, at))

		kids, err = st.LoadChildAggregates(ctx, model.Ref(model.KindCabinetRun, "RUN1"))
		require.NoError(t, err)
		require.NotNil(t, kids[0].Score)
		assert.InDelta(t, 5.0, *kids[0].Score, 1e-9)
		assert.Equal(t, 2, kids[0].Weight)

		c, err := st.LoadCabinet(ctx, "C1")
		require.NoError(t, err)
		require.NotNil(t, c.Aggregate.ComplexityBreakdown)
		assert.Equal(t, res.Breakdown, *c.Aggregate.ComplexityBreakdown)
		assert.Equal(t, 2, c.Aggregate.ContributingCount)
		require.NotNil(t, c.Aggregate.ComplexityCalculatedAt)

		// A nil score is stored as nil, not zero.
		require.NoError(t, st.SaveAggregate(ctx, model.Ref(model.KindProject, "P1"), model.AggregateResult{}, at))
		p, err := st.LoadProject(ctx, "P1")
		require.NoError(t, err)
		assert.Nil(t, p.Aggregate.ComplexityScore)

		assert.Error(t, st.SaveAggregate(ctx, model.Ref(model.KindComponent, "D1"), res, at))
	})

	t.Run("Audits", func(t *testing.T) {
		ctx := context.Background()
		st, _ := seeded(t)
		rec := audit.NewRecorder(model.DefaultThresholds())
		at := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

		latest, err := st.LatestAudit(ctx, "C1")
		require.NoError(t, err)
		assert.Nil(t, latest)

		orphan := model.CalculationAudit{ID: "orphan", CabinetID: "missing", ProjectID: "P1",
			AuditType: model.AuditInitialCalculation, AuditStatus: model.AuditPassed}
		assert.ErrorIs(t, st.AppendAudit(ctx, orphan), model.ErrNotFound)

		first, err := rec.Record(audit.Input{
			CabinetID: "C1", ProjectID: "P1", Type: model.AuditInitialCalculation, At: at,
			Calculated: model.Snapshot{{Field: "drawer_depth", Value: 18}},
		})
		require.NoError(t, err)
		require.NoError(t, st.AppendAudit(ctx, first))

		second, err := rec.Record(audit.Input{
			CabinetID: "C1", ProjectID: "P1", Type: model.AuditDimensionChange, At: at,
			Stored:     model.Snapshot{{Field: "drawer_depth", Value: 18}},
			Calculated: model.Snapshot{{Field: "drawer_depth", Value: 21}},
		})
		require.NoError(t, err)
		require.NoError(t, st.AppendAudit(ctx, second))

		latest, err = st.LatestAudit(ctx, "C1")
		require.NoError(t, err)
		require.NotNil(t, latest)
		assert.Equal(t, second.ID, latest.ID)
		assert.Equal(t, 2, latest.Sequence)
		assert.Equal(t, model.AuditFailed, latest.AuditStatus)
		d := latest.Discrepancies.Data()
		require.Len(t, d, 1)
		assert.InDelta(t, 3.0, d[0].Delta, 1e-9)

		list, err := st.ListAudits(ctx, "C1")
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, first.ID, list[0].ID)
		assert.Equal(t, 1, list[0].Sequence)

		review, err := st.ProjectsNeedingReview(ctx)
		require.NoError(t, err)
		require.Len(t, review, 1)
		assert.Equal(t, "P1", review[0].ProjectID)
		assert.Equal(t, "Harbor House", review[0].ProjectName)
		assert.Equal(t, 1, review[0].FailedAudits)

		loaded, err := st.LoadAudit(ctx, second.ID)
		require.NoError(t, err)
		require.NoError(t, audit.Override(&loaded, "sam", "approved on site", at))
		loaded.AuditStatus = model.AuditPassed // must not be persisted
		require.NoError(t, st.SaveAuditOverride(ctx, loaded))

		reread, err := st.LoadAudit(ctx, second.ID)
		require.NoError(t, err)
		assert.True(t, reread.IsOverridden)
		assert.Equal(t, "approved on site", reread.OverrideReason)
		assert.Equal(t, model.AuditFailed, reread.AuditStatus)
		assert.Equal(t, 1, reread.DiscrepancyCount)

		review, err = st.ProjectsNeedingReview(ctx)
		require.NoError(t, err)
		assert.Empty(t, review)

		list, err = st.ListAudits(ctx, "C1")
		require.NoError(t, err)
		assert.Len(t, list, 2, "overridden audits stay in history")

		_, err = st.LoadAudit(ctx, "nope")
		assert.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("TransactionRollback", func(t *testing.T) {
		ctx := context.Background()
		st, _ := seeded(t)
		boom := errors.New("boom")

		err := st.WithinTx(ctx, func(tx store.Store) error {
			if err := tx.MarkCabinetFailed(ctx, "C1", "partial"); err != nil {
				return err
			}
			c, err := tx.LoadCabinet(ctx, "C1")
			if err != nil {
				return err
			}
			assert.Equal(t, "partial", c.CalculationError, "tx sees its own writes")
			return boom
		})
		assert.ErrorIs(t, err, boom)

		c, err := st.LoadCabinet(ctx, "C1")
		require.NoError(t, err)
		assert.Empty(t, c.CalculationError)

		require.NoError(t, st.WithinTx(ctx, func(tx store.Store) error {
			return tx.MarkCabinetFailed(ctx, "C1", "committed")
		}))
		c, err = st.LoadCabinet(ctx, "C1")
		require.NoError(t, err)
		assert.Equal(t, "committed", c.CalculationError)
	})
}
