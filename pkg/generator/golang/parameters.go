package golang

import (
	"context"
	"fmt"

	"github.com/dave/jennifer/jen"
	"github.com/tamasfe/courier/pkg/generator"
	"github.com/tamasfe/courier/pkg/spec"
	"github.com/tamasfe/courier/pkg/util"
	"github.com/tamasfe/courier/pkg/util/gen"
	"github.com/tamasfe/courier/pkg/util/gen/templates"
)

// ParametersOptions are the options of the parameters generator.
type ParametersOptions struct {
	FileName string `mapstructure:"fileName" yaml:"fileName" description:"Name of the generated file"`
}

// MarshalYAML implements yaml.Marshaler
func (o *ParametersOptions) MarshalYAML() (interface{}, error) {
	return util.MarshalYAMLWithDescriptions(o)
}

// ParametersOutput is the output of the parameters generator.
type ParametersOutput struct {
	Files

	// PackagePath is the import path of the generated package.
	PackagePath string

	// ChannelModels are the parameter types keyed by channel id,
	// channels without parameters have none.
	ChannelModels map[string]*Model
}

// Parameters generates a parameter type for every channel
// that has parameters in its address.
type Parameters struct{}

// Preset implements generator.Generator
func (p *Parameters) Preset() generator.Preset {
	return generator.PresetParameters
}

// Language implements generator.Generator
func (p *Parameters) Language() string {
	return generator.LanguageGo
}

// Description implements generator.Generator
func (p *Parameters) Description() string {
	return "Generates Go types for channel parameters."
}

// DescriptionMarkdown implements DescriptionMarkdown
func (p *Parameters) DescriptionMarkdown() string {
	return describe(p, `
For a channel like `+"`orders/{action}`"+` a struct with an `+"`Action`"+` field is generated with:

- `+"`GetChannelWithParameters(channel string) string`"+` substituting the parameters in a channel,
- `+"`<Type>FromChannel(subject, channel string)`"+` extracting the parameters from a concrete channel.
`)
}

// DefaultSpec implements generator.Generator
func (p *Parameters) DefaultSpec() *generator.Spec {
	return &generator.Spec{
		ID:         generator.DefaultID(generator.PresetParameters),
		Preset:     generator.PresetParameters,
		Language:   generator.LanguageGo,
		OutputPath: "parameter",
	}
}

// DefaultOptions implements generator.Generator
func (p *Parameters) DefaultOptions() interface{} {
	return &ParametersOptions{
		FileName: "parameters.go",
	}
}

// Generate implements generator.Generator
func (p *Parameters) Generate(ctx context.Context, in *generator.Input) (interface{}, error) {
	opts := p.DefaultOptions().(*ParametersOptions)
	if err := decodeOptions(in, opts); err != nil {
		return nil, err
	}

	doc, err := in.Doc()
	if err != nil {
		return nil, err
	}

	out := &ParametersOutput{
		PackagePath:   in.ImportPath(),
		ChannelModels: make(map[string]*Model),
	}

	f := newFile(in)
	names := make(map[string]bool)

	for _, c := range doc.Channels {
		if len(c.Parameters) == 0 {
			continue
		}

		name := channelName(c) + "Parameters"
		for names[name] {
			name += "_"
		}
		names[name] = true

		code, err := parameterType(in, name, c)
		if err != nil {
			return nil, fmt.Errorf("channel %v: %w", c.ID, err)
		}
		f.Add(code)

		out.ChannelModels[c.ID] = &Model{
			TypeName:    name,
			PackagePath: in.ImportPath(),
		}
	}

	if len(out.ChannelModels) == 0 {
		return out, nil
	}

	file, err := renderFile(in, f, opts.FileName)
	if err != nil {
		return nil, err
	}
	out.Files = Files{file}

	return out, nil
}

// parameterPrimitive returns the Go type of a parameter,
// everything that cannot be parsed from a string is a string.
func parameterPrimitive(s *spec.Schema) string {
	if s == nil || s.Variant != spec.VariantPrimitive {
		return "string"
	}
	switch s.PrimitiveType {
	case "int", "int32", "int64", "bool", "float32", "float64":
		return s.PrimitiveType
	default:
		return "string"
	}
}

func parameterType(in *generator.Input, name string, c *spec.Channel) (jen.Code, error) {
	code := jen.Null()

	fieldNames := make(map[string]string, len(c.Parameters))
	fields := make([]jen.Code, 0, len(c.Parameters))
	for _, p := range c.Parameters {
		fieldName := parameterName(p)
		fieldNames[p.Name] = fieldName
		fields = append(fields,
			jen.Id(fieldName).Id(parameterPrimitive(p.Schema)).Tag(map[string]string{"json": p.Name}),
		)
	}

	code.Add(comments(in, fmt.Sprintf("%v are the parameters of the %v channel.", name, c.ID))).
		Type().Id(name).Struct(fields...).Line().Line()

	code.Add(comments(in, "GetChannelWithParameters returns the channel with the parameters substituted.")).
		Func().Params(jen.Id("p").Id(name)).Id("GetChannelWithParameters").
		Params(jen.Id("channel").String()).String().
		BlockFunc(func(g *jen.Group) {
			for _, p := range c.Parameters {
				g.Id("channel").Op("=").Qual("strings", "ReplaceAll").Call(
					jen.Id("channel"),
					jen.Lit("{"+p.Name+"}"),
					jen.Qual("fmt", "Sprint").Call(jen.Id("p").Dot(fieldNames[p.Name])),
				)
			}
			g.Return(jen.Id("channel"))
		}).Line().Line()

	// Capture groups follow the order of the parameters in the address.
	var parse []jen.Code
	for i, p := range util.AddressParameters(c.Address) {
		fieldName, ok := fieldNames[p]
		if !ok {
			continue
		}

		var schema *spec.Schema
		for _, param := range c.Parameters {
			if param.Name == p {
				schema = param.Schema
			}
		}

		stmt, err := gen.PrimitiveFromString(
			parameterPrimitive(schema),
			jen.Id("p").Dot(fieldName),
			jen.Id("match").Index(jen.Lit(i+1)),
			jen.Id("p"),
		)
		if err != nil {
			return nil, fmt.Errorf("parameter %v: %w", p, err)
		}
		parse = append(parse, stmt)
	}

	fromChannel := name + "FromChannel"
	code.Add(comments(in, fmt.Sprintf("%v extracts the parameters from a subject of the channel.", fromChannel))).
		Func().Id(fromChannel).
		Params(jen.List(jen.Id("subject"), jen.Id("channel")).String()).
		Params(jen.Id(name), jen.Error()).
		BlockFunc(func(g *jen.Group) {
			g.Var().Id("p").Id(name)
			vals := templates.FromChannelDefaults()
			vals.Params = paramLiterals(c)
			g.Add(gen.MustTemplate(templates.FromChannel, vals))
			for _, stmt := range parse {
				g.Add(stmt)
			}
			g.Return(jen.Id("p"), jen.Nil())
		})

	return code, nil
}

func paramLiterals(c *spec.Channel) jen.Code {
	params := util.AddressParameters(c.Address)
	lits := make([]jen.Code, len(params))
	for i, p := range params {
		lits[i] = jen.Lit("{" + p + "}")
	}
	return jen.Index().String().Values(lits...)
}
