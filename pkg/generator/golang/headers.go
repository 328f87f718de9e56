package golang

import (
	"context"
	"fmt"

	"github.com/tamasfe/courier/pkg/generator"
	"github.com/tamasfe/courier/pkg/spec"
	"github.com/tamasfe/courier/pkg/util"
)

// HeadersOptions are the options of the headers generator.
type HeadersOptions struct {
	FileName string `mapstructure:"fileName" yaml:"fileName" description:"Name of the generated file"`
}

// MarshalYAML implements yaml.Marshaler
func (o *HeadersOptions) MarshalYAML() (interface{}, error) {
	return util.MarshalYAMLWithDescriptions(o)
}

// HeadersOutput is the output of the headers generator.
type HeadersOutput struct {
	Files

	// PackagePath is the import path of the generated package.
	PackagePath string

	// ChannelModels are the header types keyed by channel id,
	// channels without message headers have none.
	ChannelModels map[string]*Model
}

// Headers generates a header type for every channel
// with a message that declares headers.
type Headers struct{}

// Preset implements generator.Generator
func (h *Headers) Preset() generator.Preset {
	return generator.PresetHeaders
}

// Language implements generator.Generator
func (h *Headers) Language() string {
	return generator.LanguageGo
}

// Description implements generator.Generator
func (h *Headers) Description() string {
	return "Generates Go types for message headers."
}

// DescriptionMarkdown implements DescriptionMarkdown
func (h *Headers) DescriptionMarkdown() string {
	return describe(h, `
The headers of the first message of a channel that declares headers
become a `+"`<Message>Headers`"+` struct with a `+"`Marshal`"+` method and an
`+"`Unmarshal<Message>Headers`"+` function.
`)
}

// DefaultSpec implements generator.Generator
func (h *Headers) DefaultSpec() *generator.Spec {
	return &generator.Spec{
		ID:         generator.DefaultID(generator.PresetHeaders),
		Preset:     generator.PresetHeaders,
		Language:   generator.LanguageGo,
		OutputPath: "headers",
	}
}

// DefaultOptions implements generator.Generator
func (h *Headers) DefaultOptions() interface{} {
	return &HeadersOptions{
		FileName: "headers.go",
	}
}

// Generate implements generator.Generator
func (h *Headers) Generate(ctx context.Context, in *generator.Input) (interface{}, error) {
	opts := h.DefaultOptions().(*HeadersOptions)
	if err := decodeOptions(in, opts); err != nil {
		return nil, err
	}

	doc, err := in.Doc()
	if err != nil {
		return nil, err
	}

	b := newTypeBuilder(in)
	out := &HeadersOutput{
		PackagePath:   in.ImportPath(),
		ChannelModels: make(map[string]*Model),
	}

	for _, c := range doc.Channels {
		msg := headersMessage(c)
		if msg == nil {
			continue
		}

		if name, ok := b.schemas[msg.Headers]; ok {
			out.ChannelModels[c.ID] = b.model(name)
			continue
		}

		if msg.Headers.Variant != spec.VariantObject {
			return nil, fmt.Errorf("channel %v message %v: headers must be an object", c.ID, msg.Name)
		}

		name := b.unique(messageName(msg) + "Headers")
		if err := b.declare(name, msg.Headers, msg.Headers.Description); err != nil {
			return nil, fmt.Errorf("channel %v message %v headers: %w", c.ID, msg.Name, err)
		}
		b.serialization(name)

		out.ChannelModels[c.ID] = b.model(name)
	}

	if len(out.ChannelModels) == 0 {
		return out, nil
	}

	f, err := renderFile(in, b.file, opts.FileName)
	if err != nil {
		return nil, err
	}
	out.Files = Files{f}

	return out, nil
}

// headersMessage returns the first message of the channel
// or its operations with headers.
func headersMessage(c *spec.Channel) *spec.Message {
	for _, m := range c.Messages {
		if m.Headers != nil {
			return m
		}
	}
	for _, op := range c.Operations {
		for _, m := range op.Messages {
			if m.Headers != nil {
				return m
			}
		}
	}
	return nil
}
