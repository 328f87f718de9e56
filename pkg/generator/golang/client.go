package golang

import (
	"context"
	"fmt"

	"github.com/dave/jennifer/jen"
	"github.com/tamasfe/courier/pkg/errs"
	"github.com/tamasfe/courier/pkg/functions"
	"github.com/tamasfe/courier/pkg/generator"
	"github.com/tamasfe/courier/pkg/util"
	"github.com/tamasfe/courier/pkg/util/gen"
)

// ClientOptions are the options of the client generator.
type ClientOptions struct {
	Protocols           []string `mapstructure:"protocols" yaml:"protocols" description:"Protocols the client is generated for, only nats is supported"`
	ChannelsGeneratorID string   `mapstructure:"channelsGeneratorId" yaml:"channelsGeneratorId" description:"Id of the channels generator, it is added if it does not exist"`
	FileName            string   `mapstructure:"fileName" yaml:"fileName" description:"Name of the generated file"`
}

// MarshalYAML implements yaml.Marshaler
func (o *ClientOptions) MarshalYAML() (interface{}, error) {
	return util.MarshalYAMLWithDescriptions(o)
}

// ClientOutput is the output of the client generator.
type ClientOutput struct {
	Files

	// PackagePath is the import path of the generated package.
	PackagePath string

	// Methods are the names of the generated methods per protocol.
	Methods map[functions.Protocol][]string
}

// Client generates a client type wrapping the connection
// and the channel functions of a protocol.
type Client struct{}

// Preset implements generator.Generator
func (cl *Client) Preset() generator.Preset {
	return generator.PresetClient
}

// Language implements generator.Generator
func (cl *Client) Language() string {
	return generator.LanguageGo
}

// Description implements generator.Generator
func (cl *Client) Description() string {
	return "Generates a client that manages the connection and wraps every channel function."
}

// DescriptionMarkdown implements DescriptionMarkdown
func (cl *Client) DescriptionMarkdown() string {
	return describe(cl, `
The client has `+"`Connect`"+`, `+"`ConnectWithConn`"+` and `+"`Close`"+` methods, and a method for every
function generated by the channels generator, which is added automatically with the same protocols
if it is not configured.
`)
}

// DefaultSpec implements generator.Generator
func (cl *Client) DefaultSpec() *generator.Spec {
	return &generator.Spec{
		ID:         generator.DefaultID(generator.PresetClient),
		Preset:     generator.PresetClient,
		Language:   generator.LanguageGo,
		OutputPath: "client",
	}
}

// DefaultOptions implements generator.Generator
func (cl *Client) DefaultOptions() interface{} {
	return &ClientOptions{
		Protocols:           []string{string(functions.ProtocolNATS)},
		ChannelsGeneratorID: generator.DefaultID(generator.PresetChannels),
		FileName:            "client.go",
	}
}

func (cl *Client) options(s *generator.Spec) (*ClientOptions, error) {
	opts := cl.DefaultOptions().(*ClientOptions)
	if err := decodeOptions(&generator.Input{Spec: s}, opts); err != nil {
		return nil, err
	}

	for _, p := range opts.Protocols {
		if functions.Protocol(p) != functions.ProtocolNATS {
			return nil, &errs.ConfigurationError{
				Generator: s.ID,
				Reason:    fmt.Sprintf("the client does not support the %q protocol", p),
			}
		}
	}

	return opts, nil
}

// Requirements implements generator.Requirer
func (cl *Client) Requirements(s *generator.Spec) ([]generator.Requirement, error) {
	opts, err := cl.options(s)
	if err != nil {
		return nil, err
	}

	protocols := make([]interface{}, len(opts.Protocols))
	for i, p := range opts.Protocols {
		protocols[i] = p
	}

	return []generator.Requirement{{
		ID:      opts.ChannelsGeneratorID,
		Preset:  generator.PresetChannels,
		SubPath: "channels",
		Options: map[string]interface{}{"protocols": protocols},
	}}, nil
}

// Generate implements generator.Generator
func (cl *Client) Generate(ctx context.Context, in *generator.Input) (interface{}, error) {
	opts, err := cl.options(in.Spec)
	if err != nil {
		return nil, err
	}

	dep, err := in.Dependency(opts.ChannelsGeneratorID)
	if err != nil {
		return nil, err
	}
	channels, ok := dep.(*ChannelsOutput)
	if !ok {
		return nil, wrongDependency(in, opts.ChannelsGeneratorID, generator.PresetChannels)
	}

	out := &ClientOutput{
		PackagePath: in.ImportPath(),
		Methods:     make(map[functions.Protocol][]string),
	}

	nats, ok := channels.Protocols[functions.ProtocolNATS]
	if !ok {
		return nil, &errs.MissingDependencyError{
			Generator: in.Spec.ID,
			What:      fmt.Sprintf("NATS functions from generator %q", opts.ChannelsGeneratorID),
		}
	}

	f := newFile(in)
	f.Add(gen.MustTemplate(natsClientTemplate[1:], gen.Values{
		"conn":      jen.Qual(natsPkg, "Conn"),
		"connect":   jen.Qual(natsPkg, "Connect"),
		"option":    jen.Qual(natsPkg, "Option"),
		"js":        jen.Qual(jetStreamPkg, "JetStream"),
		"newJS":     jen.Qual(jetStreamPkg, "New"),
		"jsContext": jen.Qual(natsPkg, "JetStreamContext"),
		"errorsNew": jen.Qual("errors", "New"),
	}))

	for _, fn := range nats.Functions {
		code, err := clientMethod(nats.PackagePath, fn)
		if err != nil {
			return nil, fmt.Errorf("method %v: %w", fn.Name, err)
		}
		f.Line()
		f.Add(code)
		out.Methods[functions.ProtocolNATS] = append(out.Methods[functions.ProtocolNATS], fn.Name)
	}

	requireModules(ctx, in, natsPkg, jetStreamPkg)

	file, err := renderFile(in, f, opts.FileName)
	if err != nil {
		return nil, err
	}
	out.Files = Files{file}

	return out, nil
}

func clientMethod(pkg string, fn *RenderedFunction) (jen.Code, error) {
	in := &RenderInput{
		Message:    fn.Message,
		Reply:      fn.Reply,
		Parameters: fn.Parameters,
	}

	vals := in.values(fn.Name)
	vals["fn"] = jen.Qual(pkg, fn.Name)
	vals["msg"] = jen.Qual(natsPkg, "Msg")
	vals["sub"] = jen.Qual(natsPkg, "Subscription")
	vals["subOpt"] = jen.Qual(natsPkg, "SubOpt")
	vals["jsMsg"] = jen.Qual(jetStreamPkg, "Msg")
	vals["pubAck"] = jen.Qual(jetStreamPkg, "PubAck")
	vals["consumerConfig"] = jen.Qual(jetStreamPkg, "ConsumerConfig")
	vals["consumeContext"] = jen.Qual(jetStreamPkg, "ConsumeContext")
	vals["context"] = jen.Qual("context", "Context")

	template, ok := clientMethods[fn.Type]
	if !ok {
		return nil, fmt.Errorf("the client does not support %v functions", fn.Type)
	}

	return in.render(fmt.Sprintf("%v calls %v with the connection of the client.", fn.Name, fn.Name), template, vals)
}

const natsClientTemplate = `
// ErrNotConnected is returned by the methods of a client
// that is not connected.
var ErrNotConnected = {{ .errorsNew }}("not connected")

// NATSClient wraps a NATS connection and its JetStream contexts.
type NATSClient struct {
	Conn             *{{ .conn }}
	JetStream        {{ .js }}
	JetStreamContext {{ .jsContext }}
}

// Connect connects to the NATS server at url.
func (c *NATSClient) Connect(url string, options ...{{ .option }}) error {
	nc, err := {{ .connect }}(url, options...)
	if err != nil {
		return err
	}
	return c.ConnectWithConn(nc)
}

// ConnectWithConn uses an existing connection.
func (c *NATSClient) ConnectWithConn(nc *{{ .conn }}) error {
	js, err := {{ .newJS }}(nc)
	if err != nil {
		return err
	}
	jsc, err := nc.JetStream()
	if err != nil {
		return err
	}
	c.Conn = nc
	c.JetStream = js
	c.JetStreamContext = jsc
	return nil
}

// Close drains the connection.
func (c *NATSClient) Close() error {
	if c.Conn == nil {
		return nil
	}
	err := c.Conn.Drain()
	c.Conn = nil
	c.JetStream = nil
	c.JetStreamContext = nil
	return err
}
`

var clientMethods = map[functions.Type]string{
	functions.NATSPublish: `
func (c *NATSClient) {{ .name }}(message {{ .msgType }}{{ .paramArg }}) error {
	if c.Conn == nil {
		return ErrNotConnected
	}
	return {{ .fn }}(c.Conn, message{{ .paramVal }})
}
`,
	functions.NATSSubscribe: `
func (c *NATSClient) {{ .name }}(onMessage func(message {{ .msgType }}{{ .paramCb }}, msg *{{ .msg }}, err error){{ .paramArg }}) (*{{ .sub }}, error) {
	if c.Conn == nil {
		return nil, ErrNotConnected
	}
	return {{ .fn }}(c.Conn, onMessage{{ .paramVal }})
}
`,
	functions.NATSJetStreamPublish: `
func (c *NATSClient) {{ .name }}(ctx {{ .context }}, message {{ .msgType }}{{ .paramArg }}) (*{{ .pubAck }}, error) {
	if c.JetStream == nil {
		return nil, ErrNotConnected
	}
	return {{ .fn }}(ctx, c.JetStream, message{{ .paramVal }})
}
`,
	functions.NATSJetStreamPullSubscribe: `
func (c *NATSClient) {{ .name }}(ctx {{ .context }}, stream string, config {{ .consumerConfig }}, onMessage func(message {{ .msgType }}{{ .paramCb }}, msg {{ .jsMsg }}, err error){{ .paramArg }}) ({{ .consumeContext }}, error) {
	if c.JetStream == nil {
		return nil, ErrNotConnected
	}
	return {{ .fn }}(ctx, c.JetStream, stream, config, onMessage{{ .paramVal }})
}
`,
	functions.NATSJetStreamPushSubscribe: `
func (c *NATSClient) {{ .name }}(onMessage func(message {{ .msgType }}{{ .paramCb }}, msg *{{ .msg }}, err error){{ .paramArg }}, opts ...{{ .subOpt }}) (*{{ .sub }}, error) {
	if c.JetStreamContext == nil {
		return nil, ErrNotConnected
	}
	return {{ .fn }}(c.JetStreamContext, onMessage{{ .paramVal }}, opts...)
}
`,
	functions.NATSRequest: `
func (c *NATSClient) {{ .name }}(ctx {{ .context }}, request {{ .msgType }}{{ .paramArg }}) ({{ .replyType }}, error) {
	if c.Conn == nil {
		var reply {{ .replyType }}
		return reply, ErrNotConnected
	}
	return {{ .fn }}(ctx, c.Conn, request{{ .paramVal }})
}
`,
	functions.NATSReply: `
func (c *NATSClient) {{ .name }}(handle func(request {{ .msgType }}{{ .paramCb }}) ({{ .replyType }}, error), onError func(err error){{ .paramArg }}) (*{{ .sub }}, error) {
	if c.Conn == nil {
		return nil, ErrNotConnected
	}
	return {{ .fn }}(c.Conn, handle, onError{{ .paramVal }})
}
`,
}
