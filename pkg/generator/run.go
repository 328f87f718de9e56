package generator

import (
	"context"
	"fmt"

	"github.com/tamasfe/courier/pkg/common"
	"github.com/tamasfe/courier/pkg/errs"
	"github.com/tamasfe/courier/pkg/genfs"
	"github.com/tamasfe/courier/pkg/graph"
	"github.com/tamasfe/courier/pkg/spec"
)

// Graph builds the dependency graph of prepared declarations.
func Graph(specs []*Spec) (*graph.Graph, error) {
	nodes := make([]graph.Node, len(specs))
	for i, s := range specs {
		nodes[i] = graph.Node{
			ID:           s.ID,
			Dependencies: s.Dependencies,
		}
	}
	return graph.Build(nodes)
}

// Run renders prepared declarations in dependency order.
func Run(
	ctx context.Context,
	specs []*Spec,
	registry *Registry,
	doc *spec.Document,
	opts *common.Options,
	graphOpts ...graph.Option,
) (*graph.Result, error) {
	g, err := Graph(specs)
	if err != nil {
		return nil, err
	}

	if opts == nil {
		opts = common.DefaultOptions()
	}

	byID := make(map[string]*Spec, len(specs))
	for _, s := range specs {
		byID[s.ID] = s
	}

	return g.Execute(ctx, func(ctx context.Context, id string, deps graph.Outputs) (interface{}, error) {
		s := byID[id]
		gen, ok := registry.Lookup(s.Preset, s.Language)
		if !ok {
			return nil, &errs.ConfigurationError{
				Generator: id,
				Reason:    fmt.Sprintf("no %v generator for language %q", s.Preset, s.Language),
			}
		}

		return gen.Generate(ctx, &Input{
			Spec:         s,
			Document:     doc,
			Dependencies: deps,
			Options:      opts,
		})
	}, graphOpts...)
}

// CollectFiles adds the files of every output to fs.
func CollectFiles(outputs graph.Outputs, fs *genfs.FS) error {
	for _, out := range outputs {
		p, ok := out.(FileProducer)
		if !ok {
			continue
		}
		if err := fs.Add(p.GeneratedFiles()...); err != nil {
			return err
		}
	}
	return nil
}
