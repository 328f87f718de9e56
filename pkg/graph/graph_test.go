package graph

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tamasfe/courier/pkg/errs"
)

func echoRunner(ctx context.Context, id string, deps Outputs) (interface{}, error) {
	return "out-" + id, nil
}

func waveOf(res *Result, id string) int {
	for _, g := range res.Generators {
		if g.ID == id {
			return g.Wave
		}
	}
	return 0
}

func TestExecuteWaves(t *testing.T) {
	g, err := Build([]Node{
		{ID: "channels", Dependencies: []string{"payloads", "parameters"}},
		{ID: "payloads"},
		{ID: "parameters"},
	})
	require.NoError(t, err)

	var mu sync.Mutex
	seen := make(map[string]Outputs)

	res, err := g.Execute(context.Background(), func(ctx context.Context, id string, deps Outputs) (interface{}, error) {
		mu.Lock()
		seen[id] = deps
		mu.Unlock()
		return echoRunner(ctx, id, deps)
	})
	require.NoError(t, err)

	assert.Equal(t, 1, waveOf(res, "payloads"))
	assert.Equal(t, 1, waveOf(res, "parameters"))
	assert.Equal(t, 2, waveOf(res, "channels"))
	assert.Equal(t, 2, res.Waves)
	assert.Len(t, res.Outputs, 3)

	assert.Equal(t, Outputs{"payloads": "out-payloads", "parameters": "out-parameters"}, seen["channels"])
	assert.Empty(t, seen["payloads"])

	waves, err := g.Plan()
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"payloads", "parameters"}, {"channels"}}, waves)
}

func TestExecuteOnlyDeclaredDependencies(t *testing.T) {
	g, err := Build([]Node{
		{ID: "a"},
		{ID: "b", Dependencies: []string{"a"}},
		{ID: "c", Dependencies: []string{"b"}},
	})
	require.NoError(t, err)

	_, err = g.Execute(context.Background(), func(ctx context.Context, id string, deps Outputs) (interface{}, error) {
		if id == "c" {
			if _, ok := deps["a"]; ok {
				return nil, fmt.Errorf("transitive dependency leaked")
			}
			if deps["b"] != "out-b" {
				return nil, fmt.Errorf("missing dependency")
			}
		}
		return echoRunner(ctx, id, deps)
	})
	assert.NoError(t, err)
}

func TestExecuteCycle(t *testing.T) {
	g, err := Build([]Node{
		{ID: "A", Dependencies: []string{"B"}},
		{ID: "B", Dependencies: []string{"A"}},
	})
	require.NoError(t, err)

	var calls int32
	res, err := g.Execute(context.Background(), func(ctx context.Context, id string, deps Outputs) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		return nil, nil
	})

	var circular *errs.CircularDependencyError
	require.ErrorAs(t, err, &circular)
	assert.ElementsMatch(t, []string{"A", "B"}, circular.IDs)
	assert.Empty(t, res.Outputs)
	assert.Zero(t, calls)

	_, err = g.Plan()
	assert.ErrorAs(t, err, &circular)
}

func TestBuildErrors(t *testing.T) {
	_, err := Build([]Node{{ID: "a"}, {ID: "b"}, {ID: "a"}, {ID: "b"}, {ID: "c"}})
	var dup *errs.DuplicateIDError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, []string{"a", "b"}, dup.IDs)

	_, err = Build([]Node{{ID: "a", Dependencies: []string{"a"}}})
	var cfg *errs.ConfigurationError
	require.ErrorAs(t, err, &cfg)
	assert.Equal(t, "a", cfg.Generator)

	_, err = Build([]Node{{ID: "a", Dependencies: []string{"missing"}}})
	require.ErrorAs(t, err, &cfg)
	assert.Contains(t, err.Error(), "missing")
}

func TestExecuteGeneratorFailure(t *testing.T) {
	g, err := Build([]Node{
		{ID: "payloads"},
		{ID: "broken", Dependencies: []string{"payloads"}},
		{ID: "fine", Dependencies: []string{"payloads"}},
		{ID: "client", Dependencies: []string{"broken"}},
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	res, err := g.Execute(context.Background(), func(ctx context.Context, id string, deps Outputs) (interface{}, error) {
		if id == "broken" {
			return nil, boom
		}
		return echoRunner(ctx, id, deps)
	}, WithParallelism(1))

	var genErr *errs.GeneratorError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, "broken", genErr.ID)
	assert.ErrorIs(t, err, boom)

	// the failing wave is not committed
	assert.Equal(t, Outputs{"payloads": "out-payloads"}, res.Outputs)
}

func TestExecuteCanceled(t *testing.T) {
	g, err := Build([]Node{{ID: "a"}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := g.Execute(ctx, echoRunner)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, res.Outputs)
}

// randomDAG creates n nodes where every node may only
// depend on nodes declared before it.
func randomDAG(n int, seed int64) []Node {
	r := rand.New(rand.NewSource(seed))
	nodes := make([]Node, n)
	for i := range nodes {
		nodes[i].ID = fmt.Sprintf("gen-%d", i)
		for j := 0; j < i; j++ {
			if r.Intn(3) == 0 {
				nodes[i].Dependencies = append(nodes[i].Dependencies, nodes[j].ID)
			}
		}
	}
	// shuffle the declaration order, it must not matter
	r.Shuffle(len(nodes), func(i, j int) { nodes[i], nodes[j] = nodes[j], nodes[i] })
	return nodes
}

func TestExecuteProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("acyclic graphs render every node once after its dependencies", prop.ForAll(
		func(n int, seed int64) bool {
			nodes := randomDAG(n, seed)
			g, err := Build(nodes)
			if err != nil {
				return false
			}

			var mu sync.Mutex
			calls := make(map[string]int)
			res, err := g.Execute(context.Background(), func(ctx context.Context, id string, deps Outputs) (interface{}, error) {
				mu.Lock()
				calls[id]++
				mu.Unlock()
				return id, nil
			}, WithParallelism(4))
			if err != nil || len(res.Outputs) != n || len(res.Generators) != n {
				return false
			}

			for _, node := range nodes {
				if calls[node.ID] != 1 || res.Outputs[node.ID] != node.ID {
					return false
				}
				for _, d := range node.Dependencies {
					if waveOf(res, d) >= waveOf(res, node.ID) {
						return false
					}
				}
			}
			return true
		},
		gen.IntRange(1, 15),
		gen.Int64(),
	))

	properties.Property("cycles fail and leave only earlier waves", prop.ForAll(
		func(n, size int, seed int64) bool {
			nodes := randomDAG(n, seed)

			cycle := make([]Node, size)
			for i := range cycle {
				cycle[i] = Node{
					ID:           fmt.Sprintf("cycle-%d", i),
					Dependencies: []string{fmt.Sprintf("cycle-%d", (i+1)%size)},
				}
			}
			if size == 1 {
				_, err := Build(append(nodes, cycle...))
				var cfg *errs.ConfigurationError
				return errors.As(err, &cfg)
			}

			g, err := Build(append(nodes, cycle...))
			if err != nil {
				return false
			}

			res, err := g.Execute(context.Background(), echoRunner)
			var circular *errs.CircularDependencyError
			if !errors.As(err, &circular) || len(circular.IDs) != size {
				return false
			}
			if len(res.Outputs) != n {
				return false
			}
			for i := range cycle {
				if _, ok := res.Outputs[cycle[i].ID]; ok {
					return false
				}
			}
			return true
		},
		gen.IntRange(0, 8),
		gen.IntRange(1, 4),
		gen.Int64(),
	))

	properties.TestingRun(t)
}
