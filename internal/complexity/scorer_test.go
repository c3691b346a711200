package complexity

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/piwi3910/cabinetcalc/internal/model"
)

func TestDefaultScorer(t *testing.T) {
	s := DefaultScorer()
	tests := []struct {
		name string
		c    model.Component
		want float64
	}{
		{"plain door", model.Component{Kind: model.ComponentDoor}, 1.0},
		{"slab drawer", model.Component{Kind: model.ComponentDrawer, ProfileType: "slab"}, 2.0},
		{"shaker door by hand", model.Component{Kind: model.ComponentDoor, ProfileType: "shaker", FabricationMethod: "hand"}, 2.25},
		{"pullout with hardware", model.Component{Kind: model.ComponentPullout, HardwareComplexity: 3}, 4.0},
		{"hardware capped", model.Component{Kind: model.ComponentShelf, HardwareComplexity: 50}, 3.0},
		{"negative hardware ignored", model.Component{Kind: model.ComponentShelf, HardwareComplexity: -4}, 0.5},
		{"unknown profile is neutral", model.Component{Kind: model.ComponentFalseFront, ProfileType: "mystery"}, 0.75},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, factors := s.Score(tt.c)
			assert.InDelta(t, tt.want, got, 1e-9)
			assert.Len(t, factors, 4)
			assert.GreaterOrEqual(t, got, 0.0)
		})
	}
}

func TestScorerFunc(t *testing.T) {
	var s Scorer = ScorerFunc(func(model.Component) (float64, []model.ScoreFactor) {
		return 7, nil
	})
	got, _ := s.Score(model.Component{})
	assert.Equal(t, 7.0, got)
}
