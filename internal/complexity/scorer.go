package complexity

import (
	"github.com/piwi3910/cabinetcalc/internal/model"
)

// Scorer assigns a complexity score to a leaf component. Scores must be non-negative.
type Scorer interface {
	Score(c model.Component) (float64, []model.ScoreFactor)
}

// ScorerFunc adapts a function to the Scorer interface.
type ScorerFunc func(c model.Component) (float64, []model.ScoreFactor)

func (f ScorerFunc) Score(c model.Component) (float64, []model.ScoreFactor) { return f(c) }

// TableScorer scores components from lookup tables:
//
//	score = base[kind] * profile[profile_type] + fabrication[method] + hardware * HardwareStep
type TableScorer struct {
	Base         map[model.ComponentKind]float64
	Profile      map[string]float64 // multiplier, 1 when missing
	Fabrication  map[string]float64 // additive, 0 when missing
	HardwareStep float64
	MaxHardware  int
}

// DefaultScorer returns the shop's standard scoring tables.
func DefaultScorer() *TableScorer {
	return &TableScorer{
		Base: map[model.ComponentKind]float64{
			model.ComponentDoor:       1.0,
			model.ComponentDrawer:     2.0,
			model.ComponentShelf:      0.5,
			model.ComponentPullout:    2.5,
			model.ComponentFalseFront: 0.75,
		},
		Profile: map[string]float64{
			"slab":         1.0,
			"shaker":       1.25,
			"raised_panel": 1.5,
			"beadboard":    1.5,
			"glass":        1.75,
			"cathedral":    2.0,
		},
		Fabrication: map[string]float64{
			"cnc":        0,
			"hand":       1.0,
			"outsourced": 0.5,
		},
		HardwareStep: 0.5,
		MaxHardware:  5,
	}
}

func (s *TableScorer) Score(c model.Component) (float64, []model.ScoreFactor) {
	base := s.Base[c.Kind]
	mult, ok := s.Profile[c.ProfileType]
	if !ok {
		mult = 1
	}
	fab := s.Fabrication[c.FabricationMethod]
	hw := c.HardwareComplexity
	if hw < 0 {
		hw = 0
	}
	if s.MaxHardware > 0 && hw > s.MaxHardware {
		hw = s.MaxHardware
	}
	hwAdd := float64(hw) * s.HardwareStep

	score := base*mult + fab + hwAdd
	if score < 0 {
		score = 0
	}
	factors := []model.ScoreFactor{
		{Name: "base", Value: base},
		{Name: "profile_multiplier", Value: mult},
		{Name: "fabrication", Value: fab},
		{Name: "hardware", Value: hwAdd},
	}
	return model.Round4(score), factors
}
