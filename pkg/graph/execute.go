package graph

import (
	"context"
	"time"

	"github.com/tamasfe/courier/pkg/errs"
	"golang.org/x/sync/errgroup"
)

// Outputs maps generator ids to their rendered output.
type Outputs map[string]interface{}

// Runner renders a single node. It receives the outputs of
// the declared dependencies of the node only.
type Runner func(ctx context.Context, id string, deps Outputs) (interface{}, error)

// GeneratorResult describes a single rendered node.
type GeneratorResult struct {
	ID       string
	Wave     int
	Duration time.Duration
}

// Result is the result of a run.
type Result struct {
	// Outputs of every rendered node.
	Outputs Outputs

	// Generators in the order they were committed.
	Generators []GeneratorResult

	Waves    int
	Duration time.Duration
}

type options struct {
	parallelism int
	logf        func(format string, values ...interface{})
}

// Option configures Execute.
type Option func(*options)

// WithParallelism limits the number of nodes rendered at the
// same time within a wave, values below 1 mean no limit.
func WithParallelism(n int) Option {
	return func(o *options) {
		o.parallelism = n
	}
}

// WithLogger sets a function receiving progress messages.
func WithLogger(logf func(format string, values ...interface{})) Option {
	return func(o *options) {
		o.logf = logf
	}
}

// Execute renders every node of the graph.
//
// The outputs of a wave are committed only after every node of the
// wave succeeded. On error the returned result contains the outputs
// of the completed waves only.
func (g *Graph) Execute(ctx context.Context, run Runner, opts ...Option) (*Result, error) {
	o := &options{
		logf: func(string, ...interface{}) {},
	}
	for _, opt := range opts {
		opt(o)
	}

	start := time.Now()
	res := &Result{
		Outputs: make(Outputs, len(g.order)),
	}
	defer func() {
		res.Duration = time.Since(start)
	}()

	remaining := g.Nodes()

	for len(remaining) > 0 {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		ready, waiting := g.split(remaining, func(id string) bool {
			_, ok := res.Outputs[id]
			return ok
		})

		if len(ready) == 0 {
			return res, &errs.CircularDependencyError{IDs: remaining}
		}

		wave := res.Waves + 1
		o.logf("Rendering wave %v: %v.\n", wave, ready)

		outs := make([]interface{}, len(ready))
		durations := make([]time.Duration, len(ready))

		eg, egCtx := errgroup.WithContext(ctx)
		if o.parallelism > 0 {
			eg.SetLimit(o.parallelism)
		}

		for i, id := range ready {
			i, id := i, id
			deps := make(Outputs, len(g.deps[id]))
			for _, d := range g.deps[id] {
				deps[d] = res.Outputs[d]
			}

			eg.Go(func() error {
				genStart := time.Now()
				out, err := run(egCtx, id, deps)
				if err != nil {
					return &errs.GeneratorError{ID: id, Err: err}
				}
				outs[i] = out
				durations[i] = time.Since(genStart)
				return nil
			})
		}

		if err := eg.Wait(); err != nil {
			return res, err
		}

		for i, id := range ready {
			res.Outputs[id] = outs[i]
			res.Generators = append(res.Generators, GeneratorResult{
				ID:       id,
				Wave:     wave,
				Duration: durations[i],
			})
			o.logf("Generator %v done in %v.\n", id, durations[i])
		}

		res.Waves = wave
		remaining = waiting
	}

	return res, nil
}
