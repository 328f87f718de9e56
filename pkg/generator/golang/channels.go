package golang

import (
	"context"
	"fmt"
	"path"
	"sort"

	"github.com/tamasfe/courier/pkg/errs"
	"github.com/tamasfe/courier/pkg/functions"
	"github.com/tamasfe/courier/pkg/generator"
	"github.com/tamasfe/courier/pkg/genfs"
	"github.com/tamasfe/courier/pkg/spec"
	"github.com/tamasfe/courier/pkg/util"
)

// ChannelsOptions are the options of the channels generator.
type ChannelsOptions struct {
	Protocols             []string            `mapstructure:"protocols" yaml:"protocols" description:"Protocols to generate functions for"`
	PayloadGeneratorID    string              `mapstructure:"payloadGeneratorId" yaml:"payloadGeneratorId" description:"Id of the payloads generator, it is added if it does not exist"`
	ParameterGeneratorID  string              `mapstructure:"parameterGeneratorId" yaml:"parameterGeneratorId" description:"Id of the parameters generator, it is added if it does not exist"`
	ReverseOperations     bool                `mapstructure:"asyncapiReverseOperations" yaml:"asyncapiReverseOperations" description:"Generate the functions of the other side of the operations, e.g. subscribe instead of publish for send operations"`
	GenerateForOperations bool                `mapstructure:"asyncapiGenerateForOperations" yaml:"asyncapiGenerateForOperations" description:"Generate functions per operation, if disabled only channels are used"`
	FunctionTypeMapping   map[string][]string `mapstructure:"functionTypeMapping" yaml:"functionTypeMapping" description:"Function types to generate per channel id, overrides the direction of the operations"`
	KafkaTopicSeparator   string              `mapstructure:"kafkaTopicSeparator" yaml:"kafkaTopicSeparator" description:"Replaces the slashes of channel addresses in Kafka topics"`
}

// MarshalYAML implements yaml.Marshaler
func (o *ChannelsOptions) MarshalYAML() (interface{}, error) {
	return util.MarshalYAMLWithDescriptions(o)
}

// ProtocolOutput contains the rendered functions of a protocol.
type ProtocolOutput struct {
	// PackagePath is the import path of the generated package.
	PackagePath string

	Functions []*RenderedFunction

	// Dependencies are the deduplicated import paths
	// of the third party packages used by the functions.
	Dependencies []string
}

// ChannelsOutput is the output of the channels generator.
type ChannelsOutput struct {
	Files

	// PackagePath is the import path of the generated packages' parent.
	PackagePath string

	Protocols map[functions.Protocol]*ProtocolOutput
}

// Channels generates protocol specific functions for every channel.
type Channels struct {
	// Catalog decides the functions that are generated,
	// functions.Default is used if nil.
	Catalog *functions.Catalog

	// Renderers are the available protocols,
	// DefaultRenderers() is used if nil.
	Renderers []ProtocolRenderer
}

// DefaultRenderers returns a renderer for every supported protocol.
func DefaultRenderers() []ProtocolRenderer {
	return []ProtocolRenderer{
		&NATS{},
		&Kafka{},
		&MQTT{},
		&AMQP{},
		&EventSource{},
		&WebSocket{},
		&HTTPClient{},
	}
}

// Preset implements generator.Generator
func (ch *Channels) Preset() generator.Preset {
	return generator.PresetChannels
}

// Language implements generator.Generator
func (ch *Channels) Language() string {
	return generator.LanguageGo
}

// Description implements generator.Generator
func (ch *Channels) Description() string {
	return "Generates functions for publishing and receiving the messages of every channel over the selected protocols."
}

// DescriptionMarkdown implements DescriptionMarkdown
func (ch *Channels) DescriptionMarkdown() string {
	return describe(ch, `
Every protocol gets its own package under the output path. The functions generated
for an operation depend on its action:

- `+"`send`"+` and `+"`subscribe`"+` operations get sending functions (publish, request...),
- `+"`receive`"+` and `+"`publish`"+` operations get receiving functions (subscribe, reply...).

The `+"`asyncapiReverseOperations`"+` option swaps the two. A function type mapping given in
the options or in the `+"`x-courier`"+` extension of a channel or operation limits
the generated functions to the listed types.

The payloads and parameters generators are added automatically if they are not configured.
`)
}

// DefaultSpec implements generator.Generator
func (ch *Channels) DefaultSpec() *generator.Spec {
	return &generator.Spec{
		ID:         generator.DefaultID(generator.PresetChannels),
		Preset:     generator.PresetChannels,
		Language:   generator.LanguageGo,
		OutputPath: "channels",
	}
}

// DefaultOptions implements generator.Generator
func (ch *Channels) DefaultOptions() interface{} {
	return &ChannelsOptions{
		Protocols:             []string{string(functions.ProtocolNATS)},
		PayloadGeneratorID:    generator.DefaultID(generator.PresetPayloads),
		ParameterGeneratorID:  generator.DefaultID(generator.PresetParameters),
		GenerateForOperations: true,
		KafkaTopicSeparator:   ".",
	}
}

func (ch *Channels) options(s *generator.Spec) (*ChannelsOptions, error) {
	opts := ch.DefaultOptions().(*ChannelsOptions)
	if err := decodeOptions(&generator.Input{Spec: s}, opts); err != nil {
		return nil, err
	}
	return opts, nil
}

// Requirements implements generator.Requirer
func (ch *Channels) Requirements(s *generator.Spec) ([]generator.Requirement, error) {
	opts, err := ch.options(s)
	if err != nil {
		return nil, err
	}

	return []generator.Requirement{
		{ID: opts.PayloadGeneratorID, Preset: generator.PresetPayloads, SubPath: "payload"},
		{ID: opts.ParameterGeneratorID, Preset: generator.PresetParameters, SubPath: "parameter"},
	}, nil
}

func (ch *Channels) catalog() *functions.Catalog {
	if ch.Catalog != nil {
		return ch.Catalog
	}
	return functions.Default
}

func (ch *Channels) renderer(p functions.Protocol) (ProtocolRenderer, bool) {
	renderers := ch.Renderers
	if renderers == nil {
		renderers = DefaultRenderers()
	}
	for _, r := range renderers {
		if r.Protocol() == p {
			return r, true
		}
	}
	return nil, false
}

// Generate implements generator.Generator
func (ch *Channels) Generate(ctx context.Context, in *generator.Input) (interface{}, error) {
	opts, err := ch.options(in.Spec)
	if err != nil {
		return nil, err
	}

	doc, err := in.Doc()
	if err != nil {
		return nil, err
	}

	dep, err := in.Dependency(opts.PayloadGeneratorID)
	if err != nil {
		return nil, err
	}
	payloads, ok := dep.(*PayloadsOutput)
	if !ok {
		return nil, wrongDependency(in, opts.PayloadGeneratorID, generator.PresetPayloads)
	}

	dep, err = in.Dependency(opts.ParameterGeneratorID)
	if err != nil {
		return nil, err
	}
	params, ok := dep.(*ParametersOutput)
	if !ok {
		return nil, wrongDependency(in, opts.ParameterGeneratorID, generator.PresetParameters)
	}

	out := &ChannelsOutput{
		PackagePath: in.ImportPath(),
		Protocols:   make(map[functions.Protocol]*ProtocolOutput, len(opts.Protocols)),
	}

	var protocols util.OrderedSet
	protocols.Add(opts.Protocols...)

	for _, name := range protocols.Items() {
		p := functions.Protocol(name)
		r, ok := ch.renderer(p)
		if !ok || len(ch.catalog().ForProtocol(p)) == 0 {
			return nil, &errs.ConfigurationError{
				Generator: in.Spec.ID,
				Reason:    fmt.Sprintf("unsupported protocol %q", p),
			}
		}

		d := &dispatcher{
			in:       in,
			opts:     opts,
			catalog:  ch.catalog(),
			renderer: r,
			payloads: payloads,
			params:   params,
			names:    make(map[string]string),
		}

		po, err := d.run(doc)
		if err != nil {
			return nil, err
		}
		po.PackagePath = path.Join(in.ImportPath(), r.PackageName())
		out.Protocols[p] = po

		requireModules(ctx, in, po.Dependencies...)

		if len(po.Functions) == 0 {
			continue
		}

		f, err := d.file(po)
		if err != nil {
			return nil, err
		}
		out.Files = append(out.Files, f)
	}

	return out, nil
}

func wrongDependency(in *generator.Input, id string, preset generator.Preset) error {
	return &errs.ConfigurationError{
		Generator: in.Spec.ID,
		Reason:    fmt.Sprintf("generator %q is not a Go %v generator", id, preset),
	}
}

// dispatcher walks the channels of a document for a single protocol.
type dispatcher struct {
	in       *generator.Input
	opts     *ChannelsOptions
	catalog  *functions.Catalog
	renderer ProtocolRenderer
	payloads *PayloadsOutput
	params   *ParametersOutput

	// names maps the rendered function names to the
	// channel they were rendered for.
	names map[string]string

	functions []*RenderedFunction
	deps      util.OrderedSet
}

func (d *dispatcher) run(doc *spec.Document) (*ProtocolOutput, error) {
	for _, c := range doc.Channels {
		if c.Address == "" || !hasMessages(c) {
			continue
		}

		var paramModel *Model
		if len(c.Parameters) != 0 {
			m, ok := d.params.ChannelModels[c.ID]
			if !ok {
				return nil, d.missing(c, nil, "a parameter model")
			}
			paramModel = m
		}

		base := RenderInput{
			Channel:    c,
			Topic:      d.renderer.Topic(c, d.opts),
			Parameters: paramModel,
		}

		var err error
		if d.opts.GenerateForOperations && len(c.Operations) != 0 {
			for _, op := range c.Operations {
				if err = d.operation(base, op); err != nil {
					break
				}
			}
		} else {
			err = d.channel(base)
		}
		if err != nil {
			return nil, err
		}
	}

	return &ProtocolOutput{
		Functions:    d.functions,
		Dependencies: d.deps.Items(),
	}, nil
}

func hasMessages(c *spec.Channel) bool {
	if len(c.Messages) != 0 {
		return true
	}
	for _, op := range c.Operations {
		if len(op.Messages) != 0 {
			return true
		}
	}
	return false
}

func (d *dispatcher) missing(c *spec.Channel, op *spec.Operation, what string) error {
	e := &errs.MissingDependencyError{
		Generator: d.in.Spec.ID,
		Channel:   c.ID,
		What:      what,
	}
	if op != nil {
		e.Operation = op.ID
	}
	return e
}

// mapping returns the explicit function types for the channel or operation,
// the operation extension overrides the channel extension, which
// overrides the options.
func (d *dispatcher) mapping(c *spec.Channel, op *spec.Operation) ([]functions.Type, bool) {
	if op != nil && op.Extension != nil && op.Extension.FunctionTypeMapping != nil {
		return functions.ParseTypes(op.Extension.FunctionTypeMapping), true
	}
	if c.Extension != nil && c.Extension.FunctionTypeMapping != nil {
		return functions.ParseTypes(c.Extension.FunctionTypeMapping), true
	}
	if m, ok := d.opts.FunctionTypeMapping[c.ID]; ok {
		return functions.ParseTypes(m), true
	}
	return nil, false
}

func (d *dispatcher) operation(base RenderInput, op *spec.Operation) error {
	c := base.Channel

	msg, ok := d.payloads.Payload(c, op)
	if !ok {
		return d.missing(c, op, "a payload model")
	}

	in := base
	in.Operation = op
	in.SubName = operationName(op, c)
	in.Message = msg

	mapping, hasMapping := d.mapping(c, op)
	req := functions.Request{
		Action:     op.Action,
		Mapping:    mapping,
		HasMapping: hasMapping,
		Reverse:    d.opts.ReverseOperations,
	}

	p := d.renderer.Protocol()

	if op.Reply != nil && d.catalog.HasRequestReply(p) {
		reply, ok := d.payloads.Reply(c, op)
		if !ok {
			return d.missing(c, op, "a reply payload model")
		}
		in.Reply = reply

		// A request/reply operation is either the requester or the replier.
		for _, e := range d.catalog.ForProtocol(p) {
			if !e.RequestReply {
				continue
			}
			req.Types = []functions.Type{e.Type}
			if d.catalog.ShouldRender(req) {
				return d.render(e.Type, &in)
			}
		}
		return nil
	}

	for _, e := range d.catalog.ForProtocol(p) {
		if e.RequestReply {
			continue
		}
		req.Types = []functions.Type{e.Type}
		if !d.catalog.ShouldRender(req) {
			continue
		}
		if err := d.render(e.Type, &in); err != nil {
			return err
		}
	}

	return nil
}

// channel renders the functions of a channel without operations,
// which is treated as usable in both directions.
func (d *dispatcher) channel(base RenderInput) error {
	c := base.Channel

	msg, ok := d.payloads.Payload(c, nil)
	if !ok {
		return d.missing(c, nil, "a payload model")
	}

	in := base
	in.SubName = channelName(c)
	in.Message = msg

	mapping, hasMapping := d.mapping(c, nil)

	for _, e := range d.catalog.ForProtocol(d.renderer.Protocol()) {
		if e.RequestReply {
			continue
		}

		selected := false
		for _, action := range []spec.Action{spec.ActionSend, spec.ActionReceive} {
			selected = selected || d.catalog.ShouldRender(functions.Request{
				Types:      []functions.Type{e.Type},
				Action:     action,
				Mapping:    mapping,
				HasMapping: hasMapping,
				Reverse:    d.opts.ReverseOperations,
			})
		}

		if !selected {
			continue
		}
		if err := d.render(e.Type, &in); err != nil {
			return err
		}
	}

	return nil
}

func (d *dispatcher) render(t functions.Type, in *RenderInput) error {
	f, err := d.renderer.Render(t, in)
	if err != nil {
		opID := ""
		if in.Operation != nil {
			opID = in.Operation.ID
		}
		return &errs.GeneratorError{
			ID:  d.in.Spec.ID,
			Err: fmt.Errorf("channel %q operation %q: %v: %w", in.Channel.ID, opID, t, err),
		}
	}

	if other, ok := d.names[f.Name]; ok {
		return &errs.ConfigurationError{
			Generator: d.in.Spec.ID,
			Reason:    fmt.Sprintf("function %v is generated for both channel %q and %q", f.Name, other, in.Channel.ID),
		}
	}
	d.names[f.Name] = in.Channel.ID

	d.functions = append(d.functions, f)
	d.deps.Add(f.Dependencies...)
	return nil
}

func (d *dispatcher) file(po *ProtocolOutput) (*genfs.File, error) {
	in := &generator.Input{
		Spec:     withOutputPath(d.in.Spec, path.Join(d.in.Spec.OutputPath, d.renderer.PackageName())),
		Document: d.in.Document,
		Options:  d.in.Options,
	}

	f := newFile(in)

	// Stable output regardless of the order of the channels.
	fns := append([]*RenderedFunction(nil), po.Functions...)
	sort.SliceStable(fns, func(i, j int) bool { return fns[i].Name < fns[j].Name })

	for _, fn := range fns {
		f.Add(fn.Code)
		f.Line()
	}

	return renderFile(in, f, d.renderer.PackageName()+".go")
}

func withOutputPath(s *generator.Spec, outputPath string) *generator.Spec {
	c := *s
	c.OutputPath = outputPath
	return &c
}
