package engine

import (
	"fmt"

	"github.com/piwi3910/cabinetcalc/internal/model"
)

// ComparisonScenario is a named set of standards to run a cabinet against.
type ComparisonScenario struct {
	Name      string
	Standards model.EffectiveStandards
	Style     model.FaceFrameStyle // empty keeps the cabinet's own style
}

// ComparisonResult holds the outcome of one scenario.
type ComparisonResult struct {
	Scenario    ComparisonScenario
	Calculation model.Calculation
	Err         error

	DrawerDepth    float64
	BackWallGap    float64
	DepthValidated bool
	Stretchers     int
}

// CompareScenarios calculates the same cabinet under each scenario, in
// scenario order. A scenario that fails carries its error instead of a
// calculation.
func (c *Calculator) CompareScenarios(cab model.Cabinet, drawers []model.Component, scenarios []ComparisonScenario) []ComparisonResult {
	results := make([]ComparisonResult, 0, len(scenarios))

	for _, scenario := range scenarios {
		subject := cab
		if scenario.Style != "" {
			subject.FaceFrameStyle = scenario.Style
		}
		calc, err := c.Calculate(subject, drawers, scenario.Standards)
		res := ComparisonResult{Scenario: scenario, Calculation: calc, Err: err}
		if err == nil {
			res.DrawerDepth = calc.Breakdown.DrawerDepth
			res.BackWallGap = calc.Breakdown.BackWallGap
			res.DepthValidated = calc.Breakdown.DepthValidated
			res.Stretchers = len(calc.Stretchers)
		}
		results = append(results, res)
	}

	return results
}

// TemplateScenarios builds one scenario per template.
func TemplateScenarios(templates []model.ConstructionTemplate) []ComparisonScenario {
	scenarios := make([]ComparisonScenario, 0, len(templates))
	for _, t := range templates {
		scenarios = append(scenarios, ComparisonScenario{
			Name:      t.Name,
			Standards: model.StandardsFromTemplate(t, model.SourceCabinet),
		})
	}
	return scenarios
}

// BuildStyleScenarios generates what-if alternatives from the current
// standards: the current style first, then every other style the template defines.
func BuildStyleScenarios(base model.EffectiveStandards, current model.FaceFrameStyle) []ComparisonScenario {
	if current == "" {
		current = base.DefaultStyle
	}
	scenarios := []ComparisonScenario{
		{Name: "Current Style", Standards: base, Style: current},
	}
	for _, style := range model.AllStyles {
		if style == current {
			continue
		}
		if _, ok := base.Styles[style]; !ok {
			continue
		}
		scenarios = append(scenarios, ComparisonScenario{
			Name:      fmt.Sprintf("Style %s", style),
			Standards: base,
			Style:     style,
		})
	}
	return scenarios
}
