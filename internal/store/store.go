// Package store defines the persistence boundary of the calculation engine.
package store

import (
	"context"
	"time"

	"github.com/piwi3910/cabinetcalc/internal/model"
)

// Templates reads and writes construction templates.
type Templates interface {
	LoadTemplate(ctx context.Context, id string) (model.ConstructionTemplate, error)
	LoadDefaultTemplate(ctx context.Context) (model.ConstructionTemplate, error)
	ListTemplates(ctx context.Context) ([]model.ConstructionTemplate, error)
	// SaveTemplate upserts by ID. Marking a template default clears the flag on all others.
	SaveTemplate(ctx context.Context, t model.ConstructionTemplate) error
}

// Hierarchy reads and writes the project tree.
type Hierarchy interface {
	SaveProject(ctx context.Context, p model.Project) error
	SaveRoom(ctx context.Context, r model.Room) error
	SaveLocation(ctx context.Context, l model.RoomLocation) error
	SaveRun(ctx context.Context, r model.CabinetRun) error
	SaveCabinet(ctx context.Context, c model.Cabinet) error
	SaveSection(ctx context.Context, s model.Section) error
	SaveComponent(ctx context.Context, c model.Component) error

	LoadProject(ctx context.Context, id string) (model.Project, error)
	LoadCabinet(ctx context.Context, id string) (model.Cabinet, error)
	// LoadDrawers returns the drawer components of a cabinet ordered by sort order.
	LoadDrawers(ctx context.Context, cabinetID string) ([]model.Component, error)
	LoadStretchers(ctx context.Context, cabinetID string) ([]model.Stretcher, error)
	LoadAncestorChain(ctx context.Context, cabinetID string) (model.AncestorChain, error)
	// LoadAncestors returns the parents of ref, nearest first, ending at the project.
	LoadAncestors(ctx context.Context, ref model.EntityRef) ([]model.EntityRef, error)
	LoadSubtree(ctx context.Context, ref model.EntityRef) (*model.Node, error)
	LoadChildAggregates(ctx context.Context, ref model.EntityRef) ([]model.ChildAggregate, error)
	// CabinetIDsUnder lists every cabinet at or below ref. Sections and components have none.
	CabinetIDsUnder(ctx context.Context, ref model.EntityRef) ([]string, error)
}

// Calculations writes derived values back onto the tree.
type Calculations interface {
	// SaveCabinetCalculation stores the breakdown, replaces the cabinet's
	// stretchers and clears any previous calculation error.
	SaveCabinetCalculation(ctx context.Context, cabinetID string, b model.DepthBreakdown, stretchers []model.Stretcher, at time.Time) error
	MarkCabinetFailed(ctx context.Context, cabinetID string, msg string) error
	SaveAggregate(ctx context.Context, ref model.EntityRef, res model.AggregateResult, at time.Time) error
	SaveComponentScore(ctx context.Context, componentID string, score float64, factors []model.ScoreFactor, at time.Time) error
}

// Audits is the append-only calculation audit log.
type Audits interface {
	AppendAudit(ctx context.Context, a model.CalculationAudit) error
	// LatestAudit returns the newest audit of a cabinet, or nil when there is none.
	LatestAudit(ctx context.Context, cabinetID string) (*model.CalculationAudit, error)
	ListAudits(ctx context.Context, cabinetID string) ([]model.CalculationAudit, error)
	LoadAudit(ctx context.Context, id string) (model.CalculationAudit, error)
	// SaveAuditOverride writes only the override fields of a.
	SaveAuditOverride(ctx context.Context, a model.CalculationAudit) error
	ProjectsNeedingReview(ctx context.Context) ([]model.ReviewItem, error)
}

// Store is the full persistence boundary.
type Store interface {
	Templates
	Hierarchy
	Calculations
	Audits

	// WithinTx runs fn against a transactional view of the store. Nothing fn
	// wrote is visible if it returns an error.
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}
