package model

// ScoreFactor is one contributing term of a leaf component's complexity score.
type ScoreFactor struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// ChildContribution is one child's share of a composite complexity score.
type ChildContribution struct {
	ID     string  `json:"id"`
	Score  float64 `json:"score"`
	Weight float64 `json:"weight"`
}

// ComplexityBreakdown explains a composite score. It carries no timestamps so
// recomputing unchanged children produces identical JSON.
type ComplexityBreakdown struct {
	ChildKind   EntityKind          `json:"child_kind"`
	Children    []ChildContribution `json:"children"`
	Skipped     []string            `json:"skipped,omitempty"` // children with no score or excluded
	TotalWeight float64             `json:"total_weight"`
}

// ChildAggregate is the stored state of one child as seen by its parent.
type ChildAggregate struct {
	Ref      EntityRef
	Score    *float64
	Weight   int  // the child's contributing child count; 1 for components
	Excluded bool // failed cabinet calculation
}

// AggregateResult is the derived aggregate for one composite node.
type AggregateResult struct {
	ChildCount   int
	Contributing int // len(Breakdown.Children)
	Score        *float64
	Breakdown    ComplexityBreakdown
}

// Node is an in-memory subtree used for bottom-up complexity evaluation.
type Node struct {
	Ref       EntityRef
	Component *Component // set for leaf nodes only
	Excluded  bool
	Children  []*Node
}

// AncestorChain is a cabinet together with every node above it.
type AncestorChain struct {
	Cabinet  Cabinet
	Run      CabinetRun
	Location RoomLocation
	Room     Room
	Project  Project
}
