package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDepthBreakdownBalanced(t *testing.T) {
	b := DepthBreakdown{
		TotalDepth:         21,
		FaceFrameDepth:     1.5,
		DrawerDepth:        18,
		DrawerClearance:    0.25,
		BackPanelThickness: 0.75,
		BackWallGap:        0.5,
	}
	assert.InDelta(t, 21.0, b.TermSum(), 1e-9)
	assert.True(t, b.Balanced())

	b.BackWallGap = 0.501
	assert.False(t, b.Balanced())
}

func TestDepthBreakdownSnapshotOrder(t *testing.T) {
	snap := DepthBreakdown{TotalDepth: 24, InternalWidth: 22.5}.Snapshot()
	if len(snap) != 9 {
		t.Fatalf("expected 9 fields, got %d", len(snap))
	}
	if snap[0].Field != "total_depth" {
		t.Errorf("expected total_depth first, got %s", snap[0].Field)
	}
	if v, _ := snap.Get("internal_width"); v != 22.5 {
		t.Errorf("expected internal_width 22.5, got %f", v)
	}
}

func TestStandardsFromTemplate(t *testing.T) {
	tmpl := NewConstructionTemplate("Shop")
	std := StandardsFromTemplate(tmpl, SourceRoom)

	assert.Equal(t, tmpl.ID, std.TemplateID)
	assert.Equal(t, SourceRoom, std.Source)
	assert.Equal(t, tmpl.BoxMaterialThickness, std.SidePanelThickness, "side panel falls back to box thickness")

	side := 0.5
	tmpl.SidePanelThickness = &side
	assert.Equal(t, 0.5, StandardsFromTemplate(tmpl, SourceDefault).SidePanelThickness)

	// The style table is copied, not shared.
	std.Styles[StyleInset] = StyleStandards{RevealGap: 9}
	assert.Equal(t, 0.0625, tmpl.Styles[StyleInset].RevealGap)
}

func TestEffectiveStandardsStyleFor(t *testing.T) {
	std := StandardsFromTemplate(NewConstructionTemplate("Shop"), SourceDefault)

	st, style, ok := std.StyleFor("")
	assert.True(t, ok)
	assert.Equal(t, StyleFaceFrame, style)
	assert.True(t, st.HasFaceFrame)

	st, _, ok = std.StyleFor(StyleFrameless)
	assert.True(t, ok)
	assert.False(t, st.HasFaceFrame)

	_, _, ok = std.StyleFor("shaker")
	assert.False(t, ok)
}
