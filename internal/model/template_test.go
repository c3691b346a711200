package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConstructionTemplate(t *testing.T) {
	tmpl := NewConstructionTemplate("Shop Standard")

	if tmpl.Name != "Shop Standard" {
		t.Errorf("expected name 'Shop Standard', got %q", tmpl.Name)
	}
	if tmpl.ID == "" {
		t.Error("expected non-empty ID")
	}
	if tmpl.CreatedAt.IsZero() {
		t.Error("expected non-zero CreatedAt")
	}
	if len(tmpl.Styles) != len(AllStyles) {
		t.Errorf("expected %d styles, got %d", len(AllStyles), len(tmpl.Styles))
	}
	require.NoError(t, tmpl.Validate())
}

func TestConstructionTemplateValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ConstructionTemplate)
	}{
		{"missing name", func(c *ConstructionTemplate) { c.Name = "" }},
		{"zero base height", func(c *ConstructionTemplate) { c.BaseCabinetHeight = 0 }},
		{"negative toe kick", func(c *ConstructionTemplate) { c.ToeKickHeight = -1 }},
		{"stretcher max below min", func(c *ConstructionTemplate) { c.StretcherMaxDepth = 2 }},
		{"zero back panel", func(c *ConstructionTemplate) { c.BackPanelThickness = 0 }},
		{"negative side panel", func(c *ConstructionTemplate) { v := -0.5; c.SidePanelThickness = &v }},
		{"default style missing", func(c *ConstructionTemplate) { delete(c.Styles, StyleFaceFrame) }},
		{"unknown style key", func(c *ConstructionTemplate) { c.Styles["shaker"] = StyleStandards{} }},
		{"negative overlay", func(c *ConstructionTemplate) {
			c.Styles[StyleInset] = StyleStandards{DoorOverlay: -1}
		}},
		{"no styles", func(c *ConstructionTemplate) { c.Styles = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl := NewConstructionTemplate("Shop")
			tt.mutate(&tmpl)
			assert.Error(t, tmpl.Validate())
		})
	}
}

func TestTemplateStore_AddReplacesByID(t *testing.T) {
	store := NewTemplateStore()
	tmpl := NewConstructionTemplate("A")
	store.Add(tmpl)

	tmpl.Description = "updated"
	store.Add(tmpl)

	if len(store.Templates) != 1 {
		t.Fatalf("expected 1 template, got %d", len(store.Templates))
	}
	if store.Templates[0].Description != "updated" {
		t.Errorf("expected replaced template, got %q", store.Templates[0].Description)
	}
}

func TestTemplateStore_Default(t *testing.T) {
	store := NewTemplateStore()
	if store.Default() != nil {
		t.Error("expected no default in an empty store")
	}
	a := NewConstructionTemplate("Alpha")
	b := NewConstructionTemplate("Beta")
	b.IsDefault = true
	store.Add(a)
	store.Add(b)

	d := store.Default()
	require.NotNil(t, d)
	assert.Equal(t, b.ID, d.ID)
}
