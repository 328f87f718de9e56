// Package golang contains the generators producing Go code.
package golang

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/dave/jennifer/jen"
	"github.com/mitchellh/mapstructure"
	"github.com/tamasfe/courier/pkg/common"
	"github.com/tamasfe/courier/pkg/generator"
	"github.com/tamasfe/courier/pkg/genfs"
	"github.com/tamasfe/courier/pkg/spec"
	"github.com/tamasfe/courier/pkg/util"
	"github.com/tamasfe/courier/pkg/util/gen"
)

// Generators returns every Go generator.
func Generators() []generator.Generator {
	return []generator.Generator{
		&Payloads{},
		&Parameters{},
		&Headers{},
		&Types{},
		&Channels{},
		&Client{},
		&Custom{},
	}
}

// Model is a generated Go type other generators can refer to.
type Model struct {
	// TypeName is the name of the type.
	TypeName string

	// PackagePath is the import path of the package of the type.
	PackagePath string
}

// Type returns the qualified type.
func (m *Model) Type() *jen.Statement {
	return gen.Qual(m.PackagePath, m.TypeName)
}

// UnmarshalFunc returns the qualified function decoding the model.
func (m *Model) UnmarshalFunc() *jen.Statement {
	return gen.Qual(m.PackagePath, "Unmarshal"+m.TypeName)
}

// FromChannelFunc returns the qualified function extracting
// parameters from a concrete channel.
func (m *Model) FromChannelFunc() *jen.Statement {
	return gen.Qual(m.PackagePath, m.TypeName+"FromChannel")
}

// Files are the files generated by a generator.
type Files []*genfs.File

// GeneratedFiles implements generator.FileProducer
func (f Files) GeneratedFiles() []*genfs.File {
	return f
}

func decodeOptions(in *generator.Input, opts interface{}) error {
	if err := mapstructure.Decode(in.Spec.Options, opts); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}
	return nil
}

func newFile(in *generator.Input) *jen.File {
	f := jen.NewFilePathName(in.ImportPath(), in.PackageName())

	if in.Options != nil && in.Options.Comments {
		if in.Options.Timestamp {
			f.HeaderComment(fmt.Sprintf("Code generated by courier at %v. DO NOT EDIT.", time.Now().Format(time.RFC1123)))
		} else {
			f.HeaderComment("Code generated by courier. DO NOT EDIT.")
		}
	}

	return f
}

func renderFile(in *generator.Input, f *jen.File, name string) (*genfs.File, error) {
	buf := &bytes.Buffer{}
	if err := f.Render(buf); err != nil {
		return nil, fmt.Errorf("failed to render %v: %w", name, err)
	}

	return &genfs.File{
		RelativePath: path.Join(in.Spec.OutputPath, name),
		Data:         buf.Bytes(),
		Owner:        in.Spec.ID,
	}, nil
}

// requireModules records the modules of the import paths
// the generated code depends on.
func requireModules(ctx context.Context, in *generator.Input, imports ...string) {
	state := common.StateFrom(ctx)
	for _, imp := range imports {
		if m := moduleOf(imp); m != "" {
			state.RequireModule(m, in.Spec.ID)
		}
	}
}

// moduleOf guesses the module path of an import path,
// standard library packages have none.
func moduleOf(importPath string) string {
	first := strings.Split(importPath, "/")[0]
	if !strings.Contains(first, ".") {
		return ""
	}

	parts := strings.Split(importPath, "/")
	switch {
	case first == "github.com" && len(parts) >= 3:
		mod := strings.Join(parts[:3], "/")
		if len(parts) > 3 && isMajorVersion(parts[3]) {
			mod += "/" + parts[3]
		}
		return mod
	default:
		return importPath
	}
}

func isMajorVersion(s string) bool {
	if len(s) < 2 || s[0] != 'v' {
		return false
	}
	for _, r := range s[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func comments(in *generator.Input, lines ...string) jen.Code {
	if in.Options == nil || !in.Options.Comments {
		return jen.Null()
	}
	return gen.Comments(lines...)
}

func channelName(c *spec.Channel) string {
	if c.GoName != "" {
		return c.GoName
	}
	return util.ToGoName(c.ID)
}

func operationName(op *spec.Operation, c *spec.Channel) string {
	if op == nil {
		return channelName(c)
	}
	if op.GoName != "" {
		return op.GoName
	}
	if op.ID != "" {
		return util.ToGoName(op.ID)
	}
	return channelName(c)
}

func messageName(m *spec.Message) string {
	if m.GoName != "" {
		return m.GoName
	}
	return util.ToGoName(m.Name)
}

func parameterName(p *spec.Parameter) string {
	if p.GoName != "" {
		return p.GoName
	}
	return util.ToGoName(p.Name)
}

func schemaName(s *spec.Schema) string {
	if s.GoName != "" {
		return s.GoName
	}
	return util.ToGoName(s.Name)
}
