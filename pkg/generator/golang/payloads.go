package golang

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dave/jennifer/jen"
	"github.com/tamasfe/courier/pkg/generator"
	"github.com/tamasfe/courier/pkg/spec"
	"github.com/tamasfe/courier/pkg/util"
	"github.com/tamasfe/courier/pkg/util/gen"
	"github.com/tamasfe/courier/pkg/util/gen/templates"
)

// PayloadsOptions are the options of the payloads generator.
type PayloadsOptions struct {
	FileName          string `mapstructure:"fileName" yaml:"fileName" description:"Name of the generated file"`
	IncludeComponents bool   `mapstructure:"includeComponents" yaml:"includeComponents" description:"Generate every component schema, not only the ones used by messages"`
}

// MarshalYAML implements yaml.Marshaler
func (o *PayloadsOptions) MarshalYAML() (interface{}, error) {
	return util.MarshalYAMLWithDescriptions(o)
}

// PayloadsOutput is the output of the payloads generator.
type PayloadsOutput struct {
	Files

	// PackagePath is the import path of the generated package.
	PackagePath string

	// ChannelModels are the payloads of the channels, keyed by channel id.
	ChannelModels map[string]*Model

	// OperationModels are the payloads of the operations keyed by
	// operation id, reply payloads are keyed by "<operation id>_reply".
	OperationModels map[string]*Model

	// OtherModels are component schemas and nested types.
	OtherModels []*Model
}

// Payload returns the payload of an operation, or of the
// channel if op is nil.
func (o *PayloadsOutput) Payload(c *spec.Channel, op *spec.Operation) (*Model, bool) {
	if op == nil {
		m, ok := o.ChannelModels[c.ID]
		return m, ok
	}
	m, ok := o.OperationModels[op.PayloadID(c)]
	return m, ok
}

// Reply returns the reply payload of an operation.
func (o *PayloadsOutput) Reply(c *spec.Channel, op *spec.Operation) (*Model, bool) {
	m, ok := o.OperationModels[op.ReplyID(c)]
	return m, ok
}

// Payloads generates Go types for message payloads.
type Payloads struct{}

// Preset implements generator.Generator
func (p *Payloads) Preset() generator.Preset {
	return generator.PresetPayloads
}

// Language implements generator.Generator
func (p *Payloads) Language() string {
	return generator.LanguageGo
}

// Description implements generator.Generator
func (p *Payloads) Description() string {
	return "Generates Go types for the message payloads of every channel and operation."
}

// DescriptionMarkdown implements DescriptionMarkdown
func (p *Payloads) DescriptionMarkdown() string {
	return describe(p, `
Every message gets a type with a `+"`Marshal`"+` method and an `+"`Unmarshal<Type>`"+` function.
Channels and operations with more than one message get a union type that
holds exactly one of the messages.

Reply payloads of request/reply operations are available to other generators
under the operation id suffixed with `+"`_reply`"+`.
`)
}

// DefaultSpec implements generator.Generator
func (p *Payloads) DefaultSpec() *generator.Spec {
	return &generator.Spec{
		ID:         generator.DefaultID(generator.PresetPayloads),
		Preset:     generator.PresetPayloads,
		Language:   generator.LanguageGo,
		OutputPath: "payload",
	}
}

// DefaultOptions implements generator.Generator
func (p *Payloads) DefaultOptions() interface{} {
	return &PayloadsOptions{
		FileName: "payloads.go",
	}
}

// Generate implements generator.Generator
func (p *Payloads) Generate(ctx context.Context, in *generator.Input) (interface{}, error) {
	opts := p.DefaultOptions().(*PayloadsOptions)
	if err := decodeOptions(in, opts); err != nil {
		return nil, err
	}

	doc, err := in.Doc()
	if err != nil {
		return nil, err
	}

	b := newTypeBuilder(in)
	out := &PayloadsOutput{
		PackagePath:     in.ImportPath(),
		ChannelModels:   make(map[string]*Model),
		OperationModels: make(map[string]*Model),
	}

	for _, c := range doc.Channels {
		if len(c.Messages) != 0 {
			m, err := b.messages(channelName(c)+"Payload", c.Messages)
			if err != nil {
				return nil, fmt.Errorf("channel %v: %w", c.ID, err)
			}
			out.ChannelModels[c.ID] = m
		}

		for _, op := range c.Operations {
			if msgs := op.MessagesOf(c); len(msgs) != 0 {
				m, err := b.messages(operationName(op, c)+"Payload", msgs)
				if err != nil {
					return nil, fmt.Errorf("channel %v operation %v: %w", c.ID, op.ID, err)
				}
				out.OperationModels[op.PayloadID(c)] = m
			}

			if op.Reply != nil && len(op.Reply.Messages) != 0 {
				m, err := b.messages(operationName(op, c)+"ReplyPayload", op.Reply.Messages)
				if err != nil {
					return nil, fmt.Errorf("channel %v operation %v reply: %w", c.ID, op.ID, err)
				}
				out.OperationModels[op.ReplyID(c)] = m
			}
		}
	}

	if opts.IncludeComponents {
		for _, s := range doc.Schemas {
			if _, err := b.typeOf(s, schemaName(s)); err != nil {
				return nil, fmt.Errorf("schema %v: %w", s.Name, err)
			}
		}
	}

	out.OtherModels = b.others

	if len(b.names) == 0 {
		return out, nil
	}

	f, err := renderFile(in, b.file, opts.FileName)
	if err != nil {
		return nil, err
	}
	out.Files = Files{f}

	return out, nil
}

// typeBuilder declares Go types for schemas in a single file.
type typeBuilder struct {
	in   *generator.Input
	file *jen.File
	pkg  string

	names      map[string]bool
	schemas    map[*spec.Schema]string
	inProgress map[*spec.Schema]bool
	messageMap map[*spec.Message]*Model
	unions     map[string]*Model
	serialized map[string]bool
	others     []*Model
}

func newTypeBuilder(in *generator.Input) *typeBuilder {
	return &typeBuilder{
		in:         in,
		file:       newFile(in),
		pkg:        in.ImportPath(),
		names:      make(map[string]bool),
		schemas:    make(map[*spec.Schema]string),
		inProgress: make(map[*spec.Schema]bool),
		messageMap: make(map[*spec.Message]*Model),
		unions:     make(map[string]*Model),
		serialized: make(map[string]bool),
	}
}

func (b *typeBuilder) model(name string) *Model {
	return &Model{TypeName: name, PackagePath: b.pkg}
}

func (b *typeBuilder) unique(name string) string {
	if name == "" {
		name = "Payload"
	}
	if !b.names[name] {
		b.names[name] = true
		return name
	}
	for n := 2; ; n++ {
		candidate := name + strconv.Itoa(n)
		if !b.names[candidate] {
			b.names[candidate] = true
			return candidate
		}
	}
}

// messages returns the model of a single message, or a union
// of all of them.
func (b *typeBuilder) messages(unionName string, msgs []*spec.Message) (*Model, error) {
	if len(msgs) == 1 {
		return b.message(msgs[0])
	}

	variants := make([]*Model, 0, len(msgs))
	seen := make(map[string]bool, len(msgs))
	for _, msg := range msgs {
		m, err := b.message(msg)
		if err != nil {
			return nil, err
		}
		if seen[m.TypeName] {
			continue
		}
		seen[m.TypeName] = true
		variants = append(variants, m)
	}

	if len(variants) == 1 {
		return variants[0], nil
	}

	key := make([]string, len(variants))
	for i, v := range variants {
		key[i] = v.TypeName
	}
	if m, ok := b.unions[strings.Join(key, ",")]; ok {
		return m, nil
	}

	name := b.unique(unionName)
	b.union(name, variants)

	m := b.model(name)
	b.unions[strings.Join(key, ",")] = m
	return m, nil
}

func (b *typeBuilder) message(msg *spec.Message) (*Model, error) {
	if m, ok := b.messageMap[msg]; ok {
		return m, nil
	}

	var name string
	switch {
	case msg.Payload == nil:
		name = b.unique(messageName(msg))
		b.file.Add(comments(b.in, msg.Description)).Type().Id(name).Struct()
	case msg.Payload.IsNamed():
		if _, err := b.typeOf(msg.Payload, ""); err != nil {
			return nil, fmt.Errorf("message %v: %w", msg.Name, err)
		}
		name = b.schemas[msg.Payload]
	default:
		name = b.unique(messageName(msg))
		desc := msg.Description
		if desc == "" {
			desc = msg.Payload.Description
		}
		if err := b.declare(name, msg.Payload, desc); err != nil {
			return nil, fmt.Errorf("message %v: %w", msg.Name, err)
		}
	}

	b.serialization(name)

	m := b.model(name)
	b.messageMap[msg] = m
	return m, nil
}

// typeOf returns the type of a schema used as a field or item,
// declaring named and complex types on the way.
func (b *typeBuilder) typeOf(s *spec.Schema, hint string) (jen.Code, error) {
	if s == nil {
		return jen.Interface(), nil
	}

	if name, ok := b.schemas[s]; ok {
		return jen.Id(name), nil
	}

	if s.IsNamed() {
		name := b.unique(schemaName(s))
		if err := b.declare(name, s, s.Description); err != nil {
			return nil, err
		}
		b.others = append(b.others, b.model(name))
		return jen.Id(name), nil
	}

	switch s.Variant {
	case spec.VariantObject, spec.VariantEnum:
		name := b.unique(hint)
		if err := b.declare(name, s, s.Description); err != nil {
			return nil, err
		}
		b.others = append(b.others, b.model(name))
		return jen.Id(name), nil
	case spec.VariantArray:
		item, err := b.typeOf(s.Items, hint+"Item")
		if err != nil {
			return nil, err
		}
		return jen.Index().Add(item), nil
	case spec.VariantMap:
		val, err := b.typeOf(s.Items, hint+"Value")
		if err != nil {
			return nil, err
		}
		return jen.Map(jen.String()).Add(val), nil
	case spec.VariantAny:
		return jen.Interface(), nil
	case spec.VariantPrimitive:
		return primitiveType(s.PrimitiveType), nil
	default:
		return nil, fmt.Errorf("unknown schema variant %q", s.Variant)
	}
}

func (b *typeBuilder) declare(name string, s *spec.Schema, description string) error {
	b.schemas[s] = name
	b.inProgress[s] = true
	defer delete(b.inProgress, s)

	decl := b.file.Add(comments(b.in, description))

	switch s.Variant {
	case spec.VariantObject:
		fields, err := b.fields(name, s)
		if err != nil {
			return err
		}
		decl.Type().Id(name).Struct(fields...)
	case spec.VariantEnum:
		decl.Type().Id(name).String()
		b.file.Const().DefsFunc(func(g *jen.Group) {
			for i, v := range s.Enum {
				constName := util.ToGoName(v)
				if constName == "" {
					constName = "Value" + strconv.Itoa(i)
				}
				g.Id(name + constName).Id(name).Op("=").Lit(v)
			}
		})
	case spec.VariantArray:
		item, err := b.typeOf(s.Items, name+"Item")
		if err != nil {
			return err
		}
		decl.Type().Id(name).Index().Add(item)
	case spec.VariantMap:
		val, err := b.typeOf(s.Items, name+"Value")
		if err != nil {
			return err
		}
		decl.Type().Id(name).Map(jen.String()).Add(val)
	case spec.VariantAny:
		decl.Type().Id(name).Qual("encoding/json", "RawMessage")
		b.jsonMethods(name, jen.Qual("encoding/json", "RawMessage"))
	case spec.VariantPrimitive:
		decl.Type().Id(name).Add(primitiveType(s.PrimitiveType))
		if s.PrimitiveType == "time.Time" {
			b.jsonMethods(name, jen.Qual("time", "Time"))
		}
	default:
		return fmt.Errorf("unknown schema variant %q", s.Variant)
	}

	return nil
}

func (b *typeBuilder) fields(parent string, s *spec.Schema) ([]jen.Code, error) {
	fields := make([]jen.Code, 0, len(s.Properties))
	used := make(map[string]bool, len(s.Properties))

	for i, p := range s.Properties {
		fieldName := p.GoName
		if fieldName == "" {
			fieldName = util.ToGoName(p.Name)
		}
		if fieldName == "" {
			fieldName = "Field" + strconv.Itoa(i)
		}
		for used[fieldName] {
			fieldName += "_"
		}
		used[fieldName] = true

		t, err := b.typeOf(p.Schema, parent+fieldName)
		if err != nil {
			return nil, fmt.Errorf("property %v: %w", p.Name, err)
		}

		tag := p.Name
		if !p.Required {
			tag += ",omitempty"
		}

		field := jen.Id(fieldName)
		if b.inProgress[p.Schema] || (!nilable(p.Schema) && (!p.Required || p.Schema.Nullable)) {
			field.Op("*")
		}
		fields = append(fields, field.Add(t).Tag(map[string]string{"json": tag}))
	}

	return fields, nil
}

func nilable(s *spec.Schema) bool {
	if s == nil {
		return true
	}
	switch s.Variant {
	case spec.VariantArray, spec.VariantMap, spec.VariantAny:
		return true
	default:
		return false
	}
}

func primitiveType(t string) jen.Code {
	switch t {
	case "":
		return jen.String()
	case "time.Time":
		return jen.Qual("time", "Time")
	default:
		return jen.Id(t)
	}
}

func (b *typeBuilder) serialization(name string) {
	if b.serialized[name] {
		return
	}
	b.serialized[name] = true

	b.file.Add(gen.MustTemplate(templates.Serialization, templates.SerializationDefaults(name)))
}

// jsonMethods forwards the JSON methods of the underlying type,
// defined types do not inherit them.
func (b *typeBuilder) jsonMethods(name string, underlying jen.Code) {
	b.file.Add(gen.MustTemplate(templates.JSONForward, &templates.JSONForwardValues{
		Type:       jen.Id(name),
		Underlying: underlying,
	}))
}

// union declares a type holding exactly one of the variants.
func (b *typeBuilder) union(name string, variants []*Model) {
	fields := make([]jen.Code, len(variants))
	for i, v := range variants {
		fields[i] = jen.Id(v.TypeName).Op("*").Id(v.TypeName)
	}

	b.file.Add(comments(b.in, fmt.Sprintf("%v holds exactly one of its fields.", name))).
		Type().Id(name).Struct(fields...)

	b.file.Comment("Marshal encodes the variant that is set.")
	b.file.Func().Params(jen.Id("u").Id(name)).Id("Marshal").Params().
		Params(jen.Index().Byte(), jen.Error()).
		BlockFunc(func(g *jen.Group) {
			for _, v := range variants {
				g.If(jen.Id("u").Dot(v.TypeName).Op("!=").Nil()).Block(
					jen.Return(jen.Id("u").Dot(v.TypeName).Dot("Marshal").Call()),
				)
			}
			g.Return(jen.Nil(), jen.Qual("errors", "New").Call(jen.Lit(name+" has no value")))
		})

	b.file.Commentf("Unmarshal%v decodes the first variant the data matches exactly.", name)
	b.file.Func().Id("Unmarshal"+name).Params(jen.Id("data").Index().Byte()).
		Params(jen.Id(name), jen.Error()).
		BlockFunc(func(g *jen.Group) {
			g.Var().Id("u").Id(name)
			for _, v := range variants {
				g.Block(
					jen.Var().Id("v").Id(v.TypeName),
					jen.Id("dec").Op(":=").Qual("encoding/json", "NewDecoder").Call(
						jen.Qual("bytes", "NewReader").Call(jen.Id("data")),
					),
					jen.Id("dec").Dot("DisallowUnknownFields").Call(),
					jen.If(jen.Id("dec").Dot("Decode").Call(jen.Op("&").Id("v")).Op("==").Nil()).Block(
						jen.Id("u").Dot(v.TypeName).Op("=").Op("&").Id("v"),
						jen.Return(jen.Id("u"), jen.Nil()),
					),
				)
			}
			g.Return(jen.Id("u"), jen.Qual("errors", "New").Call(jen.Lit("data matches none of the "+name+" variants")))
		})
}
