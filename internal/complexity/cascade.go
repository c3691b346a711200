package complexity

import (
	"context"
	"fmt"
	"time"

	"github.com/piwi3910/cabinetcalc/internal/model"
)

// AggregateStore is the persistence the ancestor cascade needs.
type AggregateStore interface {
	LoadAncestors(ctx context.Context, ref model.EntityRef) ([]model.EntityRef, error)
	LoadChildAggregates(ctx context.Context, ref model.EntityRef) ([]model.ChildAggregate, error)
	SaveAggregate(ctx context.Context, ref model.EntityRef, res model.AggregateResult, at time.Time) error
}

// RecomputeNode recomputes one composite node from its stored children and saves it.
func RecomputeNode(ctx context.Context, st AggregateStore, ref model.EntityRef, at time.Time) (model.AggregateResult, error) {
	if ref.Kind.IsLeaf() {
		return model.AggregateResult{}, fmt.Errorf("%s is a leaf and has no aggregate", ref)
	}
	children, err := st.LoadChildAggregates(ctx, ref)
	if err != nil {
		return model.AggregateResult{}, fmt.Errorf("failed to load children of %s: %w", ref, err)
	}
	res := Recompute(ref.Kind+1, children)
	if err := st.SaveAggregate(ctx, ref, res, at); err != nil {
		return model.AggregateResult{}, fmt.Errorf("failed to save aggregate for %s: %w", ref, err)
	}
	return res, nil
}

// Propagate recomputes every ancestor of ref, nearest first, up to the
// project. Each level reads the aggregate its child just wrote.
func Propagate(ctx context.Context, st AggregateStore, ref model.EntityRef, at time.Time) ([]model.EntityRef, error) {
	ancestors, err := st.LoadAncestors(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("failed to load ancestors of %s: %w", ref, err)
	}
	for _, a := range ancestors {
		if _, err := RecomputeNode(ctx, st, a, at); err != nil {
			return nil, err
		}
	}
	return ancestors, nil
}
