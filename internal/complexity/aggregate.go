package complexity

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/piwi3910/cabinetcalc/internal/model"
)

// Recompute derives a composite node's aggregate from its immediate children.
// The score is the average of child scores weighted by the number of children
// that contributed to each child's own score. Children with no score, no weight, or a failed calculation are
// listed as skipped and do not contribute. With no contributing weight the
// score is nil, never zero.
func Recompute(childKind model.EntityKind, children []model.ChildAggregate) model.AggregateResult {
	sorted := make([]model.ChildAggregate, len(children))
	copy(sorted, children)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Ref.ID < sorted[j].Ref.ID })

	res := model.AggregateResult{
		ChildCount: len(children),
		Breakdown: model.ComplexityBreakdown{
			ChildKind: childKind,
			Children:  []model.ChildContribution{},
		},
	}

	weighted := decimal.Zero
	total := decimal.Zero
	for _, c := range sorted {
		if c.Excluded || c.Score == nil || c.Weight <= 0 {
			res.Breakdown.Skipped = append(res.Breakdown.Skipped, c.Ref.ID)
			continue
		}
		score := decimal.NewFromFloat(*c.Score).Round(model.StoragePlaces)
		w := decimal.NewFromInt(int64(c.Weight))
		weighted = weighted.Add(score.Mul(w))
		total = total.Add(w)
		res.Breakdown.Children = append(res.Breakdown.Children, model.ChildContribution{
			ID:     c.Ref.ID,
			Score:  score.InexactFloat64(),
			Weight: float64(c.Weight),
		})
	}

	res.Contributing = len(res.Breakdown.Children)
	res.Breakdown.TotalWeight = total.InexactFloat64()
	if total.IsZero() {
		return res
	}
	score := weighted.DivRound(total, model.StoragePlaces).InexactFloat64()
	res.Score = &score
	return res
}
