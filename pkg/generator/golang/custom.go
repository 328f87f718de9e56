package golang

import (
	"bytes"
	"context"
	"fmt"
	"go/format"
	"path"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig"
	"github.com/tamasfe/courier/pkg/errs"
	"github.com/tamasfe/courier/pkg/generator"
	"github.com/tamasfe/courier/pkg/genfs"
	"github.com/tamasfe/courier/pkg/util"
)

// CustomOptions are the options of the custom generator.
type CustomOptions struct {
	Template string `mapstructure:"template" yaml:"template" description:"A Go text/template with the sprig functions, rendered with the document and the outputs of the dependencies"`
	FileName string `mapstructure:"fileName" yaml:"fileName" description:"Name of the generated file, Go files are formatted"`
}

// MarshalYAML implements yaml.Marshaler
func (o *CustomOptions) MarshalYAML() (interface{}, error) {
	return util.MarshalYAMLWithDescriptions(o)
}

// CustomData is the data the template of the custom generator is rendered with.
type CustomData struct {
	*generator.Input

	// PackageName is the name of the Go package of the output path.
	PackageName string

	// ImportPath is the import path of the output path.
	ImportPath string
}

// CustomOutput is the output of the custom generator.
type CustomOutput struct {
	Files

	// Result is the rendered template.
	Result string
}

// RenderFunc renders the custom generator in code.
type RenderFunc func(ctx context.Context, data *CustomData) ([]byte, error)

// Custom renders a user provided template or function.
type Custom struct {
	// Render is used instead of the template if set.
	Render RenderFunc
}

// Preset implements generator.Generator
func (c *Custom) Preset() generator.Preset {
	return generator.PresetCustom
}

// Language implements generator.Generator
func (c *Custom) Language() string {
	return generator.LanguageGo
}

// Description implements generator.Generator
func (c *Custom) Description() string {
	return "Renders a custom template with the input document and the outputs of its dependencies."
}

// DescriptionMarkdown implements DescriptionMarkdown
func (c *Custom) DescriptionMarkdown() string {
	return describe(c, `
The template is rendered with the following data:

| Field | Description |
|:-----:|-------------|
| .Document | The parsed input document |
| .Dependencies | Outputs of the generators listed in `+"`dependencies`"+`, by id |
| .Spec | The declaration of this generator |
| .PackageName | The Go package name of the output path |
| .ImportPath | The Go import path of the output path |

All [sprig](http://masterminds.github.io/sprig/) functions are available.
`)
}

// DefaultSpec implements generator.Generator
func (c *Custom) DefaultSpec() *generator.Spec {
	return &generator.Spec{
		ID:         generator.DefaultID(generator.PresetCustom),
		Preset:     generator.PresetCustom,
		Language:   generator.LanguageGo,
		OutputPath: "custom",
	}
}

// DefaultOptions implements generator.Generator
func (c *Custom) DefaultOptions() interface{} {
	return &CustomOptions{
		FileName: "custom.go",
	}
}

// Generate implements generator.Generator
func (c *Custom) Generate(ctx context.Context, in *generator.Input) (interface{}, error) {
	opts := c.DefaultOptions().(*CustomOptions)
	if err := decodeOptions(in, opts); err != nil {
		return nil, err
	}

	data := &CustomData{
		Input:       in,
		PackageName: in.PackageName(),
		ImportPath:  in.ImportPath(),
	}

	var out []byte
	switch {
	case c.Render != nil:
		b, err := c.Render(ctx, data)
		if err != nil {
			return nil, err
		}
		out = b
	case opts.Template != "":
		templ, err := template.New(in.Spec.ID).Funcs(sprig.TxtFuncMap()).Parse(opts.Template)
		if err != nil {
			return nil, &errs.ConfigurationError{Generator: in.Spec.ID, Reason: fmt.Sprintf("invalid template: %v", err)}
		}

		buf := &bytes.Buffer{}
		if err := templ.Execute(buf, data); err != nil {
			return nil, fmt.Errorf("failed to render template: %w", err)
		}
		out = buf.Bytes()
	default:
		return nil, &errs.ConfigurationError{Generator: in.Spec.ID, Reason: "neither a template nor a render function is given"}
	}

	if strings.HasSuffix(opts.FileName, ".go") {
		formatted, err := format.Source(out)
		if err != nil {
			return nil, fmt.Errorf("rendered code is invalid: %w", err)
		}
		out = formatted
	}

	return &CustomOutput{
		Result: string(out),
		Files: Files{&genfs.File{
			RelativePath: path.Join(in.Spec.OutputPath, opts.FileName),
			Data:         out,
			Owner:        in.Spec.ID,
		}},
	}, nil
}
