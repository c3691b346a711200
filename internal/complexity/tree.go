package complexity

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/piwi3910/cabinetcalc/internal/model"
)

// LeafScore is a scored component.
type LeafScore struct {
	Score   float64
	Factors []model.ScoreFactor
}

// TreeResult holds every aggregate computed for a subtree.
type TreeResult struct {
	Root       model.ChildAggregate
	Aggregates map[model.EntityRef]model.AggregateResult
	Leaves     map[string]LeafScore
}

// EvaluateTree scores every leaf under root and recomputes every composite
// node bottom-up. Sibling subtrees are evaluated concurrently; a node is only
// recomputed after all of its children are done.
func EvaluateTree(ctx context.Context, root *model.Node, scorer Scorer) (TreeResult, error) {
	ev := &evaluator{
		scorer: scorer,
		out: TreeResult{
			Aggregates: make(map[model.EntityRef]model.AggregateResult),
			Leaves:     make(map[string]LeafScore),
		},
	}
	agg, err := ev.eval(ctx, root)
	if err != nil {
		return TreeResult{}, err
	}
	ev.out.Root = agg
	return ev.out, nil
}

type evaluator struct {
	scorer Scorer
	mu     sync.Mutex
	out    TreeResult
}

func (e *evaluator) eval(ctx context.Context, n *model.Node) (model.ChildAggregate, error) {
	if err := ctx.Err(); err != nil {
		return model.ChildAggregate{}, err
	}

	if n.Ref.Kind.IsLeaf() {
		if n.Component == nil {
			return model.ChildAggregate{}, fmt.Errorf("leaf %s has no component", n.Ref)
		}
		score, factors := e.scorer.Score(*n.Component)
		e.mu.Lock()
		e.out.Leaves[n.Ref.ID] = LeafScore{Score: score, Factors: factors}
		e.mu.Unlock()
		return model.ChildAggregate{Ref: n.Ref, Score: &score, Weight: 1}, nil
	}

	children := make([]model.ChildAggregate, len(n.Children))
	g, gctx := errgroup.WithContext(ctx)
	for i, child := range n.Children {
		i, child := i, child
		g.Go(func() error {
			agg, err := e.eval(gctx, child)
			if err != nil {
				return err
			}
			children[i] = agg
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return model.ChildAggregate{}, err
	}

	childKind := n.Ref.Kind + 1
	res := Recompute(childKind, children)
	e.mu.Lock()
	e.out.Aggregates[n.Ref] = res
	e.mu.Unlock()

	return model.ChildAggregate{Ref: n.Ref, Score: res.Score, Weight: res.Contributing, Excluded: n.Excluded}, nil
}
