package standards

import (
	"context"
	"errors"
	"fmt"

	"github.com/piwi3910/cabinetcalc/internal/model"
)

// Source is the read side of the store the resolver needs.
type Source interface {
	LoadAncestorChain(ctx context.Context, cabinetID string) (model.AncestorChain, error)
	LoadTemplate(ctx context.Context, id string) (model.ConstructionTemplate, error)
	LoadDefaultTemplate(ctx context.Context) (model.ConstructionTemplate, error)
}

// Resolver finds the construction template that applies to a cabinet.
type Resolver struct {
	src Source
}

func New(src Source) *Resolver {
	return &Resolver{src: src}
}

// Candidate is one level of the inheritance chain and the template it names.
type Candidate struct {
	Source     model.StandardsSource
	TemplateID *string
}

// Chain lists the template references of a cabinet's ancestors, nearest first.
// Locations carry no template and are skipped.
func Chain(c model.AncestorChain) []Candidate {
	return []Candidate{
		{Source: model.SourceCabinet, TemplateID: c.Cabinet.ConstructionTemplateID},
		{Source: model.SourceCabinetRun, TemplateID: c.Run.ConstructionTemplateID},
		{Source: model.SourceRoom, TemplateID: c.Room.ConstructionTemplateID},
		{Source: model.SourceProject, TemplateID: c.Project.ConstructionTemplateID},
	}
}

// Nearest returns the first candidate with a template set. The whole template
// applies; fields are never merged across levels.
func Nearest(candidates []Candidate) (Candidate, bool) {
	for _, c := range candidates {
		if c.TemplateID != nil && *c.TemplateID != "" {
			return c, true
		}
	}
	return Candidate{}, false
}

// Resolve loads the cabinet's ancestor chain and resolves its standards.
func (r *Resolver) Resolve(ctx context.Context, cabinetID string) (model.EffectiveStandards, error) {
	chain, err := r.src.LoadAncestorChain(ctx, cabinetID)
	if err != nil {
		return model.EffectiveStandards{}, fmt.Errorf("failed to load ancestor chain for cabinet %s: %w", cabinetID, err)
	}
	return r.ResolveChain(ctx, chain)
}

// ResolveChain resolves standards for an already loaded chain.
func (r *Resolver) ResolveChain(ctx context.Context, chain model.AncestorChain) (model.EffectiveStandards, error) {
	tmpl, source, err := r.template(ctx, chain)
	if err != nil {
		return model.EffectiveStandards{}, err
	}
	if err := tmpl.Validate(); err != nil {
		return model.EffectiveStandards{}, fmt.Errorf("cabinet %s: %w", chain.Cabinet.ID, err)
	}
	return model.StandardsFromTemplate(tmpl, source), nil
}

func (r *Resolver) template(ctx context.Context, chain model.AncestorChain) (model.ConstructionTemplate, model.StandardsSource, error) {
	if c, ok := Nearest(Chain(chain)); ok {
		tmpl, err := r.src.LoadTemplate(ctx, *c.TemplateID)
		if errors.Is(err, model.ErrNotFound) {
			return model.ConstructionTemplate{}, "", &model.DanglingTemplateError{Source: c.Source, TemplateID: *c.TemplateID}
		}
		if err != nil {
			return model.ConstructionTemplate{}, "", fmt.Errorf("failed to load template %s: %w", *c.TemplateID, err)
		}
		return tmpl, c.Source, nil
	}

	tmpl, err := r.src.LoadDefaultTemplate(ctx)
	if errors.Is(err, model.ErrNotFound) {
		return model.ConstructionTemplate{}, "", &model.NoTemplateResolvedError{CabinetID: chain.Cabinet.ID}
	}
	if err != nil {
		return model.ConstructionTemplate{}, "", fmt.Errorf("failed to load default template: %w", err)
	}
	return tmpl, model.SourceDefault, nil
}
