package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/cabinetcalc/internal/model"
)

func TestCompareScenariosKeepsOrder(t *testing.T) {
	shallow := model.NewConstructionTemplate("Thick Back")
	shallow.BackPanelThickness = 1.5
	std := model.NewConstructionTemplate("Standard")

	results := New(DefaultSettings()).CompareScenarios(testCabinet(), nil,
		TemplateScenarios([]model.ConstructionTemplate{std, shallow}))

	require.Len(t, results, 2)
	assert.Equal(t, "Standard", results[0].Scenario.Name)
	assert.Equal(t, 18.0, results[0].DrawerDepth)
	// 21 - 1.5 - 0.25 - 1.5 - 0.5 = 17.25, so the next slide down
	assert.Equal(t, 15.0, results[1].DrawerDepth)
	assert.InDelta(t, 2.75, results[1].BackWallGap, 1e-9)
	assert.Equal(t, 2, results[1].Stretchers)
}

func TestCompareScenariosCarriesErrors(t *testing.T) {
	cab := testCabinet()
	cab.WidthInches = 0
	results := New(DefaultSettings()).CompareScenarios(cab, nil,
		TemplateScenarios([]model.ConstructionTemplate{model.NewConstructionTemplate("A")}))
	require.Len(t, results, 1)
	assert.Error(t, results[0].Err)
	assert.False(t, results[0].DepthValidated)
}

func TestBuildStyleScenarios(t *testing.T) {
	scenarios := BuildStyleScenarios(testStandards(), "")
	require.Len(t, scenarios, len(model.AllStyles))
	assert.Equal(t, "Current Style", scenarios[0].Name)
	assert.Equal(t, model.StyleFaceFrame, scenarios[0].Style)

	results := New(DefaultSettings()).CompareScenarios(testCabinet(), nil, scenarios)
	for _, r := range results {
		require.NoError(t, r.Err)
		if r.Scenario.Style == model.StyleFrameless {
			assert.Equal(t, 0.0, r.Calculation.Breakdown.FaceFrameDepth)
		}
	}
}
