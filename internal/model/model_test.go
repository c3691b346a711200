package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCabinetTypeHasToeKick(t *testing.T) {
	if !CabinetBase.HasToeKick() {
		t.Error("base cabinets sit on a toe kick")
	}
	if !CabinetTall.HasToeKick() {
		t.Error("tall cabinets sit on a toe kick")
	}
	if CabinetWall.HasToeKick() {
		t.Error("wall cabinets have no toe kick")
	}
}

func TestCabinetCalculated(t *testing.T) {
	c := Cabinet{ID: "c1"}
	assert.False(t, c.Calculated())

	now := c.CreatedAt
	c.CalculatedAt = &now
	assert.True(t, c.Calculated())
}

func TestParseEntityKind(t *testing.T) {
	tests := []struct {
		in   string
		want EntityKind
	}{
		{"project", KindProject},
		{"Room", KindRoom},
		{"room_location", KindLocation},
		{"run", KindCabinetRun},
		{"cabinet_run", KindCabinetRun},
		{" cabinet ", KindCabinet},
		{"section", KindSection},
		{"drawer", KindComponent},
		{"false_front", KindComponent},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseEntityKind(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseEntityKind("stretcher")
	assert.Error(t, err)
}

func TestEntityKindParentChain(t *testing.T) {
	// Walking up from a component must visit every level once and stop at project.
	k := KindComponent
	visited := []EntityKind{k}
	for {
		parent, ok := k.Parent()
		if !ok {
			break
		}
		visited = append(visited, parent)
		k = parent
	}
	require.Len(t, visited, len(AllKinds))
	for i, kind := range visited {
		assert.Equal(t, AllKinds[len(AllKinds)-1-i], kind)
	}
	assert.True(t, KindComponent.IsLeaf())
	assert.False(t, KindSection.IsLeaf())
}

func TestEntityKindJSONRoundTrip(t *testing.T) {
	ref := Ref(KindCabinetRun, "r1")
	data, err := json.Marshal(ref)
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"cabinet_run","id":"r1"}`, string(data))

	var back EntityRef
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, ref, back)
	assert.Equal(t, "cabinet_run:r1", back.String())
}

func TestRound4(t *testing.T) {
	assert.Equal(t, 18.0, Round4(17.99999))
	assert.Equal(t, 0.0625, Round4(0.0625))
	assert.Equal(t, 0.08, Round4(18.08-18.0))
	assert.Equal(t, 1.2346, Round4(1.23456))
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 3.5, Clamp(3.5, 2.5, 4.5))
	assert.Equal(t, 2.5, Clamp(1, 2.5, 4.5))
	assert.Equal(t, 4.5, Clamp(9, 2.5, 4.5))
	assert.Equal(t, 4.5, Clamp(9, 4.5, 2.5))
}

func TestSnapshotEqualAndGet(t *testing.T) {
	a := Snapshot{{Field: "drawer_depth", Value: 18}, {Field: "back_wall_gap", Value: 0.5}}
	b := Snapshot{{Field: "drawer_depth", Value: 18.00001}, {Field: "back_wall_gap", Value: 0.5}}
	assert.True(t, a.Equal(b))

	v, ok := a.Get("back_wall_gap")
	assert.True(t, ok)
	assert.Equal(t, 0.5, v)

	_, ok = a.Get("missing")
	assert.False(t, ok)

	c := Snapshot{{Field: "back_wall_gap", Value: 0.5}, {Field: "drawer_depth", Value: 18}}
	assert.False(t, a.Equal(c), "field order matters")
}

func TestAuditStatusWorse(t *testing.T) {
	assert.Equal(t, AuditWarning, AuditPassed.Worse(AuditWarning))
	assert.Equal(t, AuditFailed, AuditFailed.Worse(AuditWarning))
	assert.Equal(t, AuditFailed, AuditWarning.Worse(AuditFailed))
	assert.Equal(t, AuditPassed, AuditPassed.Worse(AuditPassed))
}

func TestCalculationAuditReviewState(t *testing.T) {
	a := CalculationAudit{AuditStatus: AuditFailed}
	assert.True(t, a.NeedsReview())
	assert.Equal(t, AuditFailed, a.EffectiveStatus())

	a.IsOverridden = true
	assert.False(t, a.NeedsReview())
	assert.Equal(t, AuditOverride, a.EffectiveStatus())
	assert.Equal(t, AuditFailed, a.AuditStatus, "recorded status is never rewritten")

	assert.False(t, CalculationAudit{AuditStatus: AuditPassed}.NeedsReview())
}

func TestAuditTypeValid(t *testing.T) {
	for _, at := range AllAuditTypes {
		assert.True(t, at.Valid(), at)
	}
	assert.False(t, AuditType("initial").Valid())
}

func TestIsStructural(t *testing.T) {
	assert.True(t, IsStructural(&NoTemplateResolvedError{CabinetID: "c"}))
	assert.True(t, IsStructural(fmt.Errorf("wrapped: %w", &InvalidDimensionError{Field: "width_inches"})))
	assert.True(t, IsStructural(&UnknownStyleError{Style: "shaker"}))
	assert.True(t, IsStructural(&DanglingTemplateError{Source: SourceRoom, TemplateID: "t"}))
	assert.False(t, IsStructural(errors.New("disk full")))
	assert.False(t, IsStructural(ErrNotFound))
}

func TestDanglingTemplateUnwrapsToNotFound(t *testing.T) {
	err := fmt.Errorf("resolve: %w", &DanglingTemplateError{Source: SourceProject, TemplateID: "t9"})
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "t9")
}
