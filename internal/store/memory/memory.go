// Package memory is an in-process Store used by tests and dry runs.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/piwi3910/cabinetcalc/internal/model"
	"github.com/piwi3910/cabinetcalc/internal/store"
)

var _ store.Store = (*Store)(nil)

type state struct {
	templates  map[string]model.ConstructionTemplate
	projects   map[string]model.Project
	rooms      map[string]model.Room
	locations  map[string]model.RoomLocation
	runs       map[string]model.CabinetRun
	cabinets   map[string]model.Cabinet
	sections   map[string]model.Section
	components map[string]model.Component
	stretchers map[string][]model.Stretcher // by cabinet ID
	audits     []model.CalculationAudit
}

func newState() *state {
	return &state{
		templates:  map[string]model.ConstructionTemplate{},
		projects:   map[string]model.Project{},
		rooms:      map[string]model.Room{},
		locations:  map[string]model.RoomLocation{},
		runs:       map[string]model.CabinetRun{},
		cabinets:   map[string]model.Cabinet{},
		sections:   map[string]model.Section{},
		components: map[string]model.Component{},
		stretchers: map[string][]model.Stretcher{},
	}
}

func cloneMap[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *state) clone() *state {
	c := &state{
		templates:  cloneMap(s.templates),
		projects:   cloneMap(s.projects),
		rooms:      cloneMap(s.rooms),
		locations:  cloneMap(s.locations),
		runs:       cloneMap(s.runs),
		cabinets:   cloneMap(s.cabinets),
		sections:   cloneMap(s.sections),
		components: cloneMap(s.components),
		stretchers: make(map[string][]model.Stretcher, len(s.stretchers)),
		audits:     make([]model.CalculationAudit, len(s.audits)),
	}
	for k, v := range s.stretchers {
		c.stretchers[k] = append([]model.Stretcher(nil), v...)
	}
	copy(c.audits, s.audits)
	return c
}

// Store keeps everything in maps guarded by a mutex. A transaction works on a
// snapshot and records its writes; commit replays them onto the live state,
// so writes made outside the transaction in the meantime are kept.
// Transactions on one Store are serialized.
type Store struct {
	mu      sync.RWMutex
	txMu    sync.Mutex
	s       *state
	journal *[]func(s *state) error // set on transaction handles only
}

func New() *Store {
	return &Store{s: newState()}
}

func (m *Store) WithinTx(ctx context.Context, fn func(tx store.Store) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.RLock()
	tx := &Store{s: m.s.clone(), journal: new([]func(s *state) error)}
	m.mu.RUnlock()

	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	next := m.s.clone()
	for _, w := range *tx.journal {
		if err := w(next); err != nil {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}
	}
	m.s = next
	if m.journal != nil {
		*m.journal = append(*m.journal, *tx.journal...)
	}
	return nil
}

func (m *Store) read(fn func(s *state) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fn(m.s)
}

func (m *Store) write(fn func(s *state) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := fn(m.s); err != nil {
		return err
	}
	if m.journal != nil {
		*m.journal = append(*m.journal, fn)
	}
	return nil
}

// detach gives t its own styles map so callers cannot mutate stored state.
func detach(t model.ConstructionTemplate) model.ConstructionTemplate {
	styles := make(map[model.FaceFrameStyle]model.StyleStandards, len(t.Styles))
	for k, v := range t.Styles {
		styles[k] = v
	}
	t.Styles = styles
	return t
}

func notFound(what, id string) error {
	return fmt.Errorf("%s %s: %w", what, id, model.ErrNotFound)
}

// --- templates ---

func (m *Store) LoadTemplate(_ context.Context, id string) (model.ConstructionTemplate, error) {
	var out model.ConstructionTemplate
	err := m.read(func(s *state) error {
		t, ok := s.templates[id]
		if !ok {
			return notFound("template", id)
		}
		out = detach(t)
		return nil
	})
	return out, err
}

func (m *Store) LoadDefaultTemplate(_ context.Context) (model.ConstructionTemplate, error) {
	var out model.ConstructionTemplate
	err := m.read(func(s *state) error {
		for _, t := range s.templates {
			if t.IsDefault {
				out = detach(t)
				return nil
			}
		}
		return fmt.Errorf("default template: %w", model.ErrNotFound)
	})
	return out, err
}

func (m *Store) ListTemplates(_ context.Context) ([]model.ConstructionTemplate, error) {
	var out []model.ConstructionTemplate
	err := m.read(func(s *state) error {
		for _, t := range s.templates {
			out = append(out, detach(t))
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, err
}

func (m *Store) SaveTemplate(_ context.Context, t model.ConstructionTemplate) error {
	return m.write(func(s *state) error {
		if t.IsDefault {
			for id, other := range s.templates {
				if other.IsDefault && id != t.ID {
					other.IsDefault = false
					s.templates[id] = other
				}
			}
		}
		stamp(&t.CreatedAt, &t.UpdatedAt)
		s.templates[t.ID] = detach(t)
		return nil
	})
}

func stamp(created, updated *time.Time) {
	now := time.Now().UTC()
	if created.IsZero() {
		*created = now
	}
	*updated = now
}

// --- hierarchy writes ---

func (m *Store) SaveProject(_ context.Context, p model.Project) error {
	return m.write(func(s *state) error {
		stamp(&p.CreatedAt, &p.UpdatedAt)
		s.projects[p.ID] = p
		return nil
	})
}

func (m *Store) SaveRoom(_ context.Context, r model.Room) error {
	return m.write(func(s *state) error {
		if _, ok := s.projects[r.ProjectID]; !ok {
			return notFound("project", r.ProjectID)
		}
		stamp(&r.CreatedAt, &r.UpdatedAt)
		s.rooms[r.ID] = r
		return nil
	})
}

func (m *Store) SaveLocation(_ context.Context, l model.RoomLocation) error {
	return m.write(func(s *state) error {
		if _, ok := s.rooms[l.RoomID]; !ok {
			return notFound("room", l.RoomID)
		}
		stamp(&l.CreatedAt, &l.UpdatedAt)
		s.locations[l.ID] = l
		return nil
	})
}

func (m *Store) SaveRun(_ context.Context, r model.CabinetRun) error {
	return m.write(func(s *state) error {
		if _, ok := s.locations[r.RoomLocationID]; !ok {
			return notFound("location", r.RoomLocationID)
		}
		stamp(&r.CreatedAt, &r.UpdatedAt)
		s.runs[r.ID] = r
		return nil
	})
}

func (m *Store) SaveCabinet(_ context.Context, c model.Cabinet) error {
	return m.write(func(s *state) error {
		if _, ok := s.runs[c.CabinetRunID]; !ok {
			return notFound("cabinet run", c.CabinetRunID)
		}
		stamp(&c.CreatedAt, &c.UpdatedAt)
		s.cabinets[c.ID] = c
		return nil
	})
}

func (m *Store) SaveSection(_ context.Context, sec model.Section) error {
	return m.write(func(s *state) error {
		if _, ok := s.cabinets[sec.CabinetID]; !ok {
			return notFound("cabinet", sec.CabinetID)
		}
		stamp(&sec.CreatedAt, &sec.UpdatedAt)
		s.sections[sec.ID] = sec
		return nil
	})
}

func (m *Store) SaveComponent(_ context.Context, c model.Component) error {
	return m.write(func(s *state) error {
		if _, ok := s.sections[c.SectionID]; !ok {
			return notFound("section", c.SectionID)
		}
		stamp(&c.CreatedAt, &c.UpdatedAt)
		s.components[c.ID] = c
		return nil
	})
}

// --- hierarchy reads ---

func (m *Store) LoadProject(_ context.Context, id string) (model.Project, error) {
	var out model.Project
	err := m.read(func(s *state) error {
		p, ok := s.projects[id]
		if !ok {
			return notFound("project", id)
		}
		out = p
		return nil
	})
	return out, err
}

func (m *Store) LoadCabinet(_ context.Context, id string) (model.Cabinet, error) {
	var out model.Cabinet
	err := m.read(func(s *state) error {
		c, ok := s.cabinets[id]
		if !ok {
			return notFound("cabinet", id)
		}
		out = c
		return nil
	})
	return out, err
}

func (m *Store) LoadDrawers(_ context.Context, cabinetID string) ([]model.Component, error) {
	var out []model.Component
	err := m.read(func(s *state) error {
		if _, ok := s.cabinets[cabinetID]; !ok {
			return notFound("cabinet", cabinetID)
		}
		for _, c := range s.components {
			sec, ok := s.sections[c.SectionID]
			if ok && sec.CabinetID == cabinetID && c.Kind == model.ComponentDrawer {
				out = append(out, c)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].ID < out[j].ID
	})
	return out, err
}

func (m *Store) LoadStretchers(_ context.Context, cabinetID string) ([]model.Stretcher, error) {
	var out []model.Stretcher
	err := m.read(func(s *state) error {
		out = append(out, s.stretchers[cabinetID]...)
		return nil
	})
	return out, err
}

func (m *Store) LoadAncestorChain(_ context.Context, cabinetID string) (model.AncestorChain, error) {
	var chain model.AncestorChain
	err := m.read(func(s *state) error {
		var ok bool
		if chain.Cabinet, ok = s.cabinets[cabinetID]; !ok {
			return notFound("cabinet", cabinetID)
		}
		if chain.Run, ok = s.runs[chain.Cabinet.CabinetRunID]; !ok {
			return notFound("cabinet run", chain.Cabinet.CabinetRunID)
		}
		if chain.Location, ok = s.locations[chain.Run.RoomLocationID]; !ok {
			return notFound("location", chain.Run.RoomLocationID)
		}
		if chain.Room, ok = s.rooms[chain.Location.RoomID]; !ok {
			return notFound("room", chain.Location.RoomID)
		}
		if chain.Project, ok = s.projects[chain.Room.ProjectID]; !ok {
			return notFound("project", chain.Room.ProjectID)
		}
		return nil
	})
	return chain, err
}

// parent returns the parent of ref. Projects have none.
func (s *state) parent(ref model.EntityRef) (model.EntityRef, bool, error) {
	switch ref.Kind {
	case model.KindProject:
		if _, ok := s.projects[ref.ID]; !ok {
			return model.EntityRef{}, false, notFound("project", ref.ID)
		}
		return model.EntityRef{}, false, nil
	case model.KindRoom:
		r, ok := s.rooms[ref.ID]
		if !ok {
			return model.EntityRef{}, false, notFound("room", ref.ID)
		}
		return model.Ref(model.KindProject, r.ProjectID), true, nil
	case model.KindLocation:
		l, ok := s.locations[ref.ID]
		if !ok {
			return model.EntityRef{}, false, notFound("location", ref.ID)
		}
		return model.Ref(model.KindRoom, l.RoomID), true, nil
	case model.KindCabinetRun:
		r, ok := s.runs[ref.ID]
		if !ok {
			return model.EntityRef{}, false, notFound("cabinet run", ref.ID)
		}
		return model.Ref(model.KindLocation, r.RoomLocationID), true, nil
	case model.KindCabinet:
		c, ok := s.cabinets[ref.ID]
		if !ok {
			return model.EntityRef{}, false, notFound("cabinet", ref.ID)
		}
		return model.Ref(model.KindCabinetRun, c.CabinetRunID), true, nil
	case model.KindSection:
		sec, ok := s.sections[ref.ID]
		if !ok {
			return model.EntityRef{}, false, notFound("section", ref.ID)
		}
		return model.Ref(model.KindCabinet, sec.CabinetID), true, nil
	case model.KindComponent:
		c, ok := s.components[ref.ID]
		if !ok {
			return model.EntityRef{}, false, notFound("component", ref.ID)
		}
		return model.Ref(model.KindSection, c.SectionID), true, nil
	default:
		return model.EntityRef{}, false, fmt.Errorf("unknown entity kind %d", int(ref.Kind))
	}
}

func (m *Store) LoadAncestors(_ context.Context, ref model.EntityRef) ([]model.EntityRef, error) {
	var out []model.EntityRef
	err := m.read(func(s *state) error {
		cur := ref
		for {
			p, ok, err := s.parent(cur)
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			out = append(out, p)
			cur = p
		}
	})
	return out, err
}

type sortKey struct {
	order int
	id    string
}

func sortAggregates(keys []sortKey, aggs []model.ChildAggregate) {
	idx := make([]int, len(keys))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool {
		ka, kb := keys[idx[a]], keys[idx[b]]
		if ka.order != kb.order {
			return ka.order < kb.order
		}
		return ka.id < kb.id
	})
	sorted := make([]model.ChildAggregate, len(aggs))
	for i, j := range idx {
		sorted[i] = aggs[j]
	}
	copy(aggs, sorted)
}

// children lists the immediate children of ref with their stored aggregates,
// in sort order.
func (s *state) children(ref model.EntityRef) ([]model.ChildAggregate, error) {
	if _, _, err := s.parent(ref); err != nil {
		return nil, err
	}
	var keys []sortKey
	var out []model.ChildAggregate
	add := func(order int, agg model.ChildAggregate) {
		keys = append(keys, sortKey{order: order, id: agg.Ref.ID})
		out = append(out, agg)
	}
	fromAggregate := func(kind model.EntityKind, id string, a model.Aggregate) model.ChildAggregate {
		return model.ChildAggregate{Ref: model.Ref(kind, id), Score: a.ComplexityScore, Weight: a.ContributingCount}
	}

	switch ref.Kind {
	case model.KindProject:
		for _, r := range s.rooms {
			if r.ProjectID == ref.ID {
				add(0, fromAggregate(model.KindRoom, r.ID, r.Aggregate))
			}
		}
	case model.KindRoom:
		for _, l := range s.locations {
			if l.RoomID == ref.ID {
				add(0, fromAggregate(model.KindLocation, l.ID, l.Aggregate))
			}
		}
	case model.KindLocation:
		for _, r := range s.runs {
			if r.RoomLocationID == ref.ID {
				add(0, fromAggregate(model.KindCabinetRun, r.ID, r.Aggregate))
			}
		}
	case model.KindCabinetRun:
		for _, c := range s.cabinets {
			if c.CabinetRunID == ref.ID {
				agg := fromAggregate(model.KindCabinet, c.ID, c.Aggregate)
				agg.Excluded = c.CalculationError != ""
				add(c.SortOrder, agg)
			}
		}
	case model.KindCabinet:
		for _, sec := range s.sections {
			if sec.CabinetID == ref.ID {
				add(sec.SortOrder, fromAggregate(model.KindSection, sec.ID, sec.Aggregate))
			}
		}
	case model.KindSection:
		for _, c := range s.components {
			if c.SectionID == ref.ID {
				add(c.SortOrder, model.ChildAggregate{Ref: model.Ref(model.KindComponent, c.ID), Score: c.ComplexityScore, Weight: 1})
			}
		}
	case model.KindComponent:
		return nil, nil
	}
	sortAggregates(keys, out)
	return out, nil
}

func (m *Store) LoadChildAggregates(_ context.Context, ref model.EntityRef) ([]model.ChildAggregate, error) {
	var out []model.ChildAggregate
	err := m.read(func(s *state) error {
		var err error
		out, err = s.children(ref)
		return err
	})
	return out, err
}

func (s *state) subtree(ref model.EntityRef) (*model.Node, error) {
	n := &model.Node{Ref: ref}
	switch ref.Kind {
	case model.KindComponent:
		c, ok := s.components[ref.ID]
		if !ok {
			return nil, notFound("component", ref.ID)
		}
		n.Component = &c
		return n, nil
	case model.KindCabinet:
		if c, ok := s.cabinets[ref.ID]; ok {
			n.Excluded = c.CalculationError != ""
		}
	}
	kids, err := s.children(ref)
	if err != nil {
		return nil, err
	}
	for _, k := range kids {
		child, err := s.subtree(k.Ref)
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, child)
	}
	return n, nil
}

func (m *Store) LoadSubtree(_ context.Context, ref model.EntityRef) (*model.Node, error) {
	var out *model.Node
	err := m.read(func(s *state) error {
		var err error
		out, err = s.subtree(ref)
		return err
	})
	return out, err
}

func (m *Store) CabinetIDsUnder(_ context.Context, ref model.EntityRef) ([]string, error) {
	var out []string
	err := m.read(func(s *state) error {
		var walk func(r model.EntityRef) error
		walk = func(r model.EntityRef) error {
			if r.Kind == model.KindCabinet {
				if _, ok := s.cabinets[r.ID]; !ok {
					return notFound("cabinet", r.ID)
				}
				out = append(out, r.ID)
				return nil
			}
			if r.Kind > model.KindCabinet {
				_, _, err := s.parent(r)
				return err
			}
			kids, err := s.children(r)
			if err != nil {
				return err
			}
			for _, k := range kids {
				if err := walk(k.Ref); err != nil {
					return err
				}
			}
			return nil
		}
		return walk(ref)
	})
	return out, err
}

// --- calculations ---

func (m *Store) SaveCabinetCalculation(_ context.Context, cabinetID string, b model.DepthBreakdown, stretchers []model.Stretcher, at time.Time) error {
	return m.write(func(s *state) error {
		c, ok := s.cabinets[cabinetID]
		if !ok {
			return notFound("cabinet", cabinetID)
		}
		c.Breakdown = b
		c.CalculatedAt = &at
		c.CalculationError = ""
		c.UpdatedAt = at
		s.cabinets[cabinetID] = c

		rows := make([]model.Stretcher, len(stretchers))
		for i, st := range stretchers {
			st.CabinetID = cabinetID
			st.CreatedAt = at
			rows[i] = st
		}
		s.stretchers[cabinetID] = rows
		return nil
	})
}

func (m *Store) MarkCabinetFailed(_ context.Context, cabinetID string, msg string) error {
	return m.write(func(s *state) error {
		c, ok := s.cabinets[cabinetID]
		if !ok {
			return notFound("cabinet", cabinetID)
		}
		c.CalculationError = msg
		s.cabinets[cabinetID] = c
		return nil
	})
}

func (m *Store) SaveAggregate(_ context.Context, ref model.EntityRef, res model.AggregateResult, at time.Time) error {
	breakdown := res.Breakdown
	agg := model.Aggregate{
		ChildCountCached:       res.ChildCount,
		ContributingCount:      res.Contributing,
		ComplexityScore:        res.Score,
		ComplexityBreakdown:    &breakdown,
		ComplexityCalculatedAt: &at,
	}
	return m.write(func(s *state) error {
		switch ref.Kind {
		case model.KindProject:
			v, ok := s.projects[ref.ID]
			if !ok {
				return notFound("project", ref.ID)
			}
			v.Aggregate = agg
			s.projects[ref.ID] = v
		case model.KindRoom:
			v, ok := s.rooms[ref.ID]
			if !ok {
				return notFound("room", ref.ID)
			}
			v.Aggregate = agg
			s.rooms[ref.ID] = v
		case model.KindLocation:
			v, ok := s.locations[ref.ID]
			if !ok {
				return notFound("location", ref.ID)
			}
			v.Aggregate = agg
			s.locations[ref.ID] = v
		case model.KindCabinetRun:
			v, ok := s.runs[ref.ID]
			if !ok {
				return notFound("cabinet run", ref.ID)
			}
			v.Aggregate = agg
			s.runs[ref.ID] = v
		case model.KindCabinet:
			v, ok := s.cabinets[ref.ID]
			if !ok {
				return notFound("cabinet", ref.ID)
			}
			v.Aggregate = agg
			s.cabinets[ref.ID] = v
		case model.KindSection:
			v, ok := s.sections[ref.ID]
			if !ok {
				return notFound("section", ref.ID)
			}
			v.Aggregate = agg
			s.sections[ref.ID] = v
		default:
			return fmt.Errorf("%s has no aggregate", ref)
		}
		return nil
	})
}

func (m *Store) SaveComponentScore(_ context.Context, componentID string, score float64, factors []model.ScoreFactor, at time.Time) error {
	return m.write(func(s *state) error {
		c, ok := s.components[componentID]
		if !ok {
			return notFound("component", componentID)
		}
		c.ComplexityScore = &score
		c.ComplexityFactors = append([]model.ScoreFactor(nil), factors...)
		c.ComplexityCalculatedAt = &at
		s.components[componentID] = c
		return nil
	})
}

// --- audits ---

func (m *Store) AppendAudit(_ context.Context, a model.CalculationAudit) error {
	return m.write(func(s *state) error {
		if _, ok := s.cabinets[a.CabinetID]; !ok {
			return notFound("cabinet", a.CabinetID)
		}
		seq := 0
		for _, existing := range s.audits {
			if existing.ID == a.ID {
				return fmt.Errorf("audit %s already exists", a.ID)
			}
			if existing.CabinetID == a.CabinetID && existing.Sequence > seq {
				seq = existing.Sequence
			}
		}
		a.Sequence = seq + 1
		s.audits = append(s.audits, a)
		return nil
	})
}

func (m *Store) LatestAudit(_ context.Context, cabinetID string) (*model.CalculationAudit, error) {
	var out *model.CalculationAudit
	err := m.read(func(s *state) error {
		for i := range s.audits {
			a := s.audits[i]
			if a.CabinetID == cabinetID && (out == nil || a.Sequence > out.Sequence) {
				out = &a
			}
		}
		return nil
	})
	return out, err
}

func (m *Store) ListAudits(_ context.Context, cabinetID string) ([]model.CalculationAudit, error) {
	var out []model.CalculationAudit
	err := m.read(func(s *state) error {
		for _, a := range s.audits {
			if a.CabinetID == cabinetID {
				out = append(out, a)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out, err
}

func (m *Store) LoadAudit(_ context.Context, id string) (model.CalculationAudit, error) {
	var out model.CalculationAudit
	err := m.read(func(s *state) error {
		for _, a := range s.audits {
			if a.ID == id {
				out = a
				return nil
			}
		}
		return notFound("audit", id)
	})
	return out, err
}

func (m *Store) SaveAuditOverride(_ context.Context, a model.CalculationAudit) error {
	return m.write(func(s *state) error {
		for i := range s.audits {
			if s.audits[i].ID == a.ID {
				s.audits[i].IsOverridden = a.IsOverridden
				s.audits[i].OverrideReason = a.OverrideReason
				s.audits[i].OverriddenBy = a.OverriddenBy
				s.audits[i].OverriddenAt = a.OverriddenAt
				return nil
			}
		}
		return notFound("audit", a.ID)
	})
}

// ProjectsNeedingReview counts, per project, the cabinets whose latest audit
// is warning or failed and has not been overridden.
func (m *Store) ProjectsNeedingReview(_ context.Context) ([]model.ReviewItem, error) {
	var out []model.ReviewItem
	err := m.read(func(s *state) error {
		latest := map[string]model.CalculationAudit{}
		for _, a := range s.audits {
			if cur, ok := latest[a.CabinetID]; !ok || a.Sequence > cur.Sequence {
				latest[a.CabinetID] = a
			}
		}
		items := map[string]*model.ReviewItem{}
		for _, a := range latest {
			if !a.NeedsReview() {
				continue
			}
			item, ok := items[a.ProjectID]
			if !ok {
				item = &model.ReviewItem{ProjectID: a.ProjectID, ProjectName: s.projects[a.ProjectID].Name}
				items[a.ProjectID] = item
			}
			item.OpenAudits++
			switch a.AuditStatus {
			case model.AuditFailed:
				item.FailedAudits++
			case model.AuditWarning:
				item.WarningAudits++
			}
		}
		for _, item := range items {
			out = append(out, *item)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ProjectID < out[j].ProjectID })
	return out, err
}
