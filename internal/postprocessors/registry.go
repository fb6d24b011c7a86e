package postprocessors

import (
	"fmt"
	"maps"
	"slices"

	"github.com/custodia-labs/docmind/internal/core/domain"
	"github.com/custodia-labs/docmind/internal/core/ports/driven"
)

// BuilderFunc makes a stage from its settings. cfg may be nil.
type BuilderFunc func(cfg map[string]any) (driven.PostProcessor, error)

// Registry is filled once at start-up and only read afterwards.
type Registry struct {
	builders map[string]BuilderFunc
}

func NewRegistry() *Registry {
	return &Registry{builders: map[string]BuilderFunc{}}
}

// Register panics on an empty or repeated name; both are wiring mistakes.
func (r *Registry) Register(name string, builder BuilderFunc) {
	if name == "" || builder == nil {
		panic("postprocessors: Register needs a name and a builder")
	}
	if _, dup := r.builders[name]; dup {
		panic("postprocessors: Register called twice for " + name)
	}
	r.builders[name] = builder
}

func (r *Registry) Build(name string, cfg map[string]any) (driven.PostProcessor, error) {
	if builder, ok := r.builders[name]; ok {
		return builder(cfg)
	}
	return nil, fmt.Errorf("%w: unknown processor: %s", domain.ErrInvalidInput, name)
}

// BuildPipeline chains the named stages in order. Stages missing from cfgs
// are built with a nil config.
func (r *Registry) BuildPipeline(names []string, cfgs map[string]map[string]any) (*Pipeline, error) {
	stages := make([]driven.PostProcessor, 0, len(names))
	for _, name := range names {
		stage, err := r.Build(name, cfgs[name])
		if err != nil {
			return nil, fmt.Errorf("building %s: %w", name, err)
		}
		stages = append(stages, stage)
	}
	return NewPipeline(stages...), nil
}

func (r *Registry) Has(name string) bool {
	_, ok := r.builders[name]
	return ok
}

// Names is sorted.
func (r *Registry) Names() []string {
	return slices.Sorted(maps.Keys(r.builders))
}
