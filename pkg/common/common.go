package common

import (
	"context"
	"sort"
	"sync"
)

// DescriptionMarkdown simply allows for getting markdown text.
type DescriptionMarkdown interface {
	DescriptionMarkdown() string
}

// Options are shared by all parsers, transformers and generators.
type Options struct {
	// PackagePath is the Go import path the output paths are relative to.
	PackagePath string

	// Comments enables comments in the generated code.
	Comments bool

	// Timestamp adds the generation time to the file headers.
	Timestamp bool
}

// DefaultOptions returns the default options
func DefaultOptions() *Options {
	return &Options{
		Comments: true,
	}
}

// State is a shared state for an entire code generation run,
// safe for concurrent use by generators of the same wave.
type State struct {
	mu       sync.Mutex
	specData []byte
	modules  map[string]string
}

// SpecData returns the raw input document.
func (s *State) SpecData() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.specData
}

// SetSpecData sets the raw input document.
func (s *State) SetSpecData(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.specData = data
}

// RequireModule records a Go module the generated code imports,
// along with the generator requiring it.
func (s *State) RequireModule(module, generator string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.modules == nil {
		s.modules = make(map[string]string)
	}
	if _, ok := s.modules[module]; !ok {
		s.modules[module] = generator
	}
}

// Modules returns the required modules, sorted.
func (s *State) Modules() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	modules := make([]string, 0, len(s.modules))
	for m := range s.modules {
		modules = append(modules, m)
	}
	sort.Strings(modules)
	return modules
}

// ContextKey is a custom key type for contexts
type ContextKey string

// Context key values
const (
	ContextState ContextKey = "state"
)

// WithState stores the state in the context.
func WithState(ctx context.Context, s *State) context.Context {
	return context.WithValue(ctx, ContextState, s)
}

// StateFrom returns the state of the context, or a new
// state that is not shared with anything.
func StateFrom(ctx context.Context) *State {
	if s, ok := ctx.Value(ContextState).(*State); ok {
		return s
	}
	return &State{}
}
