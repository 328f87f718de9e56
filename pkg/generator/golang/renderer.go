package golang

import (
	"strings"

	"github.com/dave/jennifer/jen"
	"github.com/tamasfe/courier/pkg/functions"
	"github.com/tamasfe/courier/pkg/spec"
	"github.com/tamasfe/courier/pkg/util/gen"
)

// ProtocolRenderer renders the functions of a single protocol.
type ProtocolRenderer interface {
	// Protocol the renderer is for.
	Protocol() functions.Protocol

	// PackageName of the generated package of the protocol.
	PackageName() string

	// Topic returns the address used on the wire for the channel,
	// parameters stay in the "{name}" form.
	Topic(c *spec.Channel, opts *ChannelsOptions) string

	// Render renders a single function of the given type.
	Render(t functions.Type, in *RenderInput) (*RenderedFunction, error)
}

// RenderInput is everything a protocol renderer
// needs for rendering a function.
type RenderInput struct {
	Channel *spec.Channel

	// Operation is nil for functions of the channel itself.
	Operation *spec.Operation

	// Topic is the address returned by the renderer.
	Topic string

	// SubName is the Go name of the operation or channel.
	SubName string

	// Message is the payload of the operation or channel.
	Message *Model

	// Reply is the reply payload of request/reply functions.
	Reply *Model

	// Parameters is nil if the channel has no parameters.
	Parameters *Model
}

// RenderedFunction is a rendered protocol function.
type RenderedFunction struct {
	Name string
	Type functions.Type

	MessageType   string
	ReplyType     string
	ParameterType string

	// Message, Reply and Parameters are the models
	// the function signature refers to.
	Message    *Model
	Reply      *Model
	Parameters *Model

	Code jen.Code

	// Dependencies are the import paths of the
	// third party packages the code uses.
	Dependencies []string
}

func (in *RenderInput) function(name string, t functions.Type, code jen.Code, deps ...string) *RenderedFunction {
	f := &RenderedFunction{
		Name:         name,
		Type:         t,
		Message:      in.Message,
		Reply:        in.Reply,
		Parameters:   in.Parameters,
		Code:         code,
		Dependencies: deps,
	}
	if in.Message != nil {
		f.MessageType = in.Message.TypeName
	}
	if in.Reply != nil {
		f.ReplyType = in.Reply.TypeName
	}
	if in.Parameters != nil {
		f.ParameterType = in.Parameters.TypeName
	}
	return f
}

// subject returns the expression of the concrete address.
func (in *RenderInput) subject() jen.Code {
	if in.Parameters == nil {
		return jen.Lit(in.Topic)
	}
	return jen.Id("parameters").Dot("GetChannelWithParameters").Call(jen.Lit(in.Topic))
}

// values returns the substitutions shared by the function templates:
//
//	name: the function name
//	msgType, unmarshal: the message type and its decoder
//	replyType, unmarshalReply: the same for the reply
//	subject: the concrete address, topic: the address as it is
//	paramArg: the parameters argument, paramVal: the parameters value
//	paramCb: the parameters argument of callbacks
func (in *RenderInput) values(name string) gen.Values {
	vals := gen.Values{
		"name":     jen.Id(name),
		"subject":  in.subject(),
		"topic":    jen.Lit(in.Topic),
		"paramArg": jen.Null(),
		"paramVal": jen.Null(),
		"paramCb":  jen.Null(),
	}

	if in.Message != nil {
		vals["msgType"] = in.Message.Type()
		vals["unmarshal"] = in.Message.UnmarshalFunc()
	}

	if in.Reply != nil {
		vals["replyType"] = in.Reply.Type()
		vals["unmarshalReply"] = in.Reply.UnmarshalFunc()
	}

	if in.Parameters != nil {
		vals["paramArg"] = jen.Op(",").Id("parameters").Add(in.Parameters.Type())
		vals["paramVal"] = jen.Op(",").Id("parameters")
		vals["paramCb"] = jen.Op(",").Id("parameters").Add(in.Parameters.Type())
		vals["fromChannel"] = in.Parameters.FromChannelFunc()
	}

	return vals
}

const extractTemplate = `
parameters, err := {{ .fromChannel }}({{ .actual }}, {{ .topic }})
if err != nil {
	{{ .onFail }}
}
`

// extract returns code that extracts the parameters from the actual
// address, or nothing if the channel has none. The onFail template is
// rendered with vals.
func (in *RenderInput) extract(actual jen.Code, onFail string, vals gen.Values) (jen.Code, error) {
	if in.Parameters == nil {
		return jen.Null(), nil
	}

	fail, err := gen.Template(onFail, vals)
	if err != nil {
		return nil, err
	}

	ext := gen.Values{"actual": actual, "onFail": fail}
	for k, v := range vals {
		ext[k] = v
	}

	return gen.Template(extractTemplate[1:], ext)
}

// render renders a function template with a doc comment.
func (in *RenderInput) render(doc string, template string, vals gen.Values) (jen.Code, error) {
	body, err := gen.Template(strings.TrimLeft(template, "\n"), vals)
	if err != nil {
		return nil, err
	}
	return jen.Add(gen.Comments(doc)).Add(body), nil
}
