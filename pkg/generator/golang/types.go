package golang

import (
	"context"

	"github.com/dave/jennifer/jen"
	"github.com/tamasfe/courier/pkg/generator"
	"github.com/tamasfe/courier/pkg/util"
)

// TypesOptions are the options of the types generator.
type TypesOptions struct {
	FileName string `mapstructure:"fileName" yaml:"fileName" description:"Name of the generated file"`
}

// MarshalYAML implements yaml.Marshaler
func (o *TypesOptions) MarshalYAML() (interface{}, error) {
	return util.MarshalYAMLWithDescriptions(o)
}

// TypesOutput is the output of the types generator.
type TypesOutput struct {
	Files

	// PackagePath is the import path of the generated package.
	PackagePath string

	// Topics are the names of the address constants keyed by channel id.
	Topics map[string]string

	// TopicIDs are the names of the id constants keyed by channel id.
	TopicIDs map[string]string
}

// Types generates constants for the channel addresses and ids.
type Types struct{}

// Preset implements generator.Generator
func (t *Types) Preset() generator.Preset {
	return generator.PresetTypes
}

// Language implements generator.Generator
func (t *Types) Language() string {
	return generator.LanguageGo
}

// Description implements generator.Generator
func (t *Types) Description() string {
	return "Generates constants for channel addresses and ids."
}

// DescriptionMarkdown implements DescriptionMarkdown
func (t *Types) DescriptionMarkdown() string {
	return describe(t, `
Every channel gets a `+"`Topic`"+` constant holding its address and a `+"`TopicID`"+`
constant holding its id. `+"`ToTopicID`"+` and `+"`ToTopic`"+` convert between the two.
`)
}

// DefaultSpec implements generator.Generator
func (t *Types) DefaultSpec() *generator.Spec {
	return &generator.Spec{
		ID:         generator.DefaultID(generator.PresetTypes),
		Preset:     generator.PresetTypes,
		Language:   generator.LanguageGo,
		OutputPath: "types",
	}
}

// DefaultOptions implements generator.Generator
func (t *Types) DefaultOptions() interface{} {
	return &TypesOptions{
		FileName: "types.go",
	}
}

// Generate implements generator.Generator
func (t *Types) Generate(ctx context.Context, in *generator.Input) (interface{}, error) {
	opts := t.DefaultOptions().(*TypesOptions)
	if err := decodeOptions(in, opts); err != nil {
		return nil, err
	}

	doc, err := in.Doc()
	if err != nil {
		return nil, err
	}

	out := &TypesOutput{
		PackagePath: in.ImportPath(),
		Topics:      make(map[string]string),
		TopicIDs:    make(map[string]string),
	}

	if len(doc.Channels) == 0 {
		return out, nil
	}

	f := newFile(in)
	f.Add(comments(in, "Topic is the address of a channel."))
	f.Type().Id("Topic").String()
	f.Add(comments(in, "TopicID is the id of a channel."))
	f.Type().Id("TopicID").String()

	names := make(map[string]bool)
	uniqueName := func(name string) string {
		for names[name] {
			name += "_"
		}
		names[name] = true
		return name
	}

	// Channels can share an address, the first one wins when converting.
	addressCase := make(map[string]bool)
	var toID, toTopic []jen.Code

	f.Const().DefsFunc(func(g *jen.Group) {
		for _, c := range doc.Channels {
			topic := uniqueName("Topic" + channelName(c))
			id := uniqueName("TopicID" + channelName(c))
			out.Topics[c.ID] = topic
			out.TopicIDs[c.ID] = id

			g.Id(topic).Id("Topic").Op("=").Lit(c.Address)
			g.Id(id).Id("TopicID").Op("=").Lit(c.ID)

			if !addressCase[c.Address] {
				addressCase[c.Address] = true
				toID = append(toID, jen.Case(jen.Id(topic)).Block(jen.Return(jen.Id(id), jen.Nil())))
			}
			toTopic = append(toTopic, jen.Case(jen.Id(id)).Block(jen.Return(jen.Id(topic), jen.Nil())))
		}
	})

	f.Add(comments(in, "ToTopicID returns the id of the channel with the given address."))
	f.Func().Id("ToTopicID").Params(jen.Id("topic").Id("Topic")).Params(jen.Id("TopicID"), jen.Error()).Block(
		jen.Switch(jen.Id("topic")).Block(toID...),
		jen.Return(jen.Lit(""), jen.Qual("fmt", "Errorf").Call(jen.Lit("unknown topic %q"), jen.Id("topic"))),
	)

	f.Add(comments(in, "ToTopic returns the address of the channel with the given id."))
	f.Func().Id("ToTopic").Params(jen.Id("id").Id("TopicID")).Params(jen.Id("Topic"), jen.Error()).Block(
		jen.Switch(jen.Id("id")).Block(toTopic...),
		jen.Return(jen.Lit(""), jen.Qual("fmt", "Errorf").Call(jen.Lit("unknown topic id %q"), jen.Id("id"))),
	)

	file, err := renderFile(in, f, opts.FileName)
	if err != nil {
		return nil, err
	}
	out.Files = Files{file}

	return out, nil
}
