package generator

import (
	"fmt"

	"github.com/mohae/deepcopy"
)

type registryKey struct {
	preset   Preset
	language string
}

// Registry contains the generators available for a run.
type Registry struct {
	generators []Generator
	index      map[registryKey]Generator
}

// NewRegistry creates a registry, a preset can only have a
// single generator per language.
func NewRegistry(generators ...Generator) (*Registry, error) {
	r := &Registry{
		index: make(map[registryKey]Generator, len(generators)),
	}
	for _, g := range generators {
		key := registryKey{g.Preset(), g.Language()}
		if _, ok := r.index[key]; ok {
			return nil, fmt.Errorf("more than one %v generator for %v", g.Preset(), g.Language())
		}
		r.index[key] = g
		r.generators = append(r.generators, g)
	}
	return r, nil
}

// Lookup returns the generator of a preset for a language,
// an empty language means Go.
func (r *Registry) Lookup(preset Preset, language string) (Generator, bool) {
	if language == "" {
		language = LanguageGo
	}
	g, ok := r.index[registryKey{preset, language}]
	return g, ok
}

// Generators returns every registered generator.
func (r *Registry) Generators() []Generator {
	return append([]Generator(nil), r.generators...)
}

// DefaultSpec returns a copy of the default declaration of a preset.
func (r *Registry) DefaultSpec(preset Preset, language string) (*Spec, error) {
	g, ok := r.Lookup(preset, language)
	if !ok {
		return nil, fmt.Errorf("no %v generator for language %q", preset, language)
	}
	return deepcopy.Copy(g.DefaultSpec()).(*Spec), nil
}
