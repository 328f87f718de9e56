package golang

import (
	"fmt"

	"github.com/dave/jennifer/jen"
	"github.com/tamasfe/courier/pkg/functions"
	"github.com/tamasfe/courier/pkg/spec"
	"github.com/tamasfe/courier/pkg/util"
)

const (
	natsPkg      = "github.com/nats-io/nats.go"
	jetStreamPkg = "github.com/nats-io/nats.go/jetstream"
)

// NATS renders functions for core NATS and JetStream.
type NATS struct{}

// Protocol implements ProtocolRenderer
func (n *NATS) Protocol() functions.Protocol {
	return functions.ProtocolNATS
}

// PackageName implements ProtocolRenderer
func (n *NATS) PackageName() string {
	return "nats"
}

// Topic implements ProtocolRenderer
func (n *NATS) Topic(c *spec.Channel, opts *ChannelsOptions) string {
	return util.NormalizeTopic(c.Address, ".")
}

// Render implements ProtocolRenderer
func (n *NATS) Render(t functions.Type, in *RenderInput) (*RenderedFunction, error) {
	var (
		name     string
		doc      string
		template string
		onFail   string
	)

	switch t {
	case functions.NATSPublish:
		name = "PublishTo" + in.SubName
		doc = fmt.Sprintf("%v publishes a message to %v.", name, in.Topic)
		template = natsPublish
	case functions.NATSSubscribe:
		name = "SubscribeTo" + in.SubName
		doc = fmt.Sprintf("%v subscribes to %v. Messages that cannot be decoded are passed to onMessage with the error.", name, in.Topic)
		template = natsSubscribe
		onFail = natsCallbackFail
	case functions.NATSJetStreamPublish:
		name = "JetStreamPublishTo" + in.SubName
		doc = fmt.Sprintf("%v publishes a message to %v and waits for the acknowledgement.", name, in.Topic)
		template = natsJetStreamPublish
	case functions.NATSJetStreamPullSubscribe:
		name = "JetStreamPullSubscribeTo" + in.SubName
		doc = fmt.Sprintf("%v creates or updates a consumer of the stream filtered to %v and consumes its messages.", name, in.Topic)
		template = natsJetStreamPull
		onFail = natsCallbackFail
	case functions.NATSJetStreamPushSubscribe:
		name = "JetStreamPushSubscriptionFrom" + in.SubName
		doc = fmt.Sprintf("%v creates a push subscription for %v.", name, in.Topic)
		template = natsJetStreamPush
		onFail = natsCallbackFail
	case functions.NATSRequest:
		name = "RequestTo" + in.SubName
		doc = fmt.Sprintf("%v sends a request to %v and waits for the reply.", name, in.Topic)
		template = natsRequest
	case functions.NATSReply:
		name = "ReplyTo" + in.SubName
		doc = fmt.Sprintf("%v answers the requests sent to %v with the replies returned by handle, failures are passed to onError.", name, in.Topic)
		template = natsReply
		onFail = natsReplyFail
	default:
		return nil, fmt.Errorf("unsupported NATS function type %v", t)
	}

	if t == functions.NATSRequest || t == functions.NATSReply {
		if in.Reply == nil {
			return nil, fmt.Errorf("%v needs a reply payload", t)
		}
	}

	vals := in.values(name)
	vals["conn"] = jen.Qual(natsPkg, "Conn")
	vals["msg"] = jen.Qual(natsPkg, "Msg")
	vals["sub"] = jen.Qual(natsPkg, "Subscription")
	vals["jsContext"] = jen.Qual(natsPkg, "JetStreamContext")
	vals["subOpt"] = jen.Qual(natsPkg, "SubOpt")
	vals["js"] = jen.Qual(jetStreamPkg, "JetStream")
	vals["jsMsg"] = jen.Qual(jetStreamPkg, "Msg")
	vals["pubAck"] = jen.Qual(jetStreamPkg, "PubAck")
	vals["consumerConfig"] = jen.Qual(jetStreamPkg, "ConsumerConfig")
	vals["consumeContext"] = jen.Qual(jetStreamPkg, "ConsumeContext")
	vals["context"] = jen.Qual("context", "Context")

	actual := jen.Id("msg").Dot("Subject")
	if t == functions.NATSJetStreamPullSubscribe {
		actual = jen.Id("msg").Dot("Subject").Call()
	}

	ext, err := in.extract(actual, onFail, vals)
	if err != nil {
		return nil, err
	}
	vals["extract"] = ext

	code, err := in.render(doc, template, vals)
	if err != nil {
		return nil, err
	}

	deps := []string{natsPkg}
	if t == functions.NATSJetStreamPublish || t == functions.NATSJetStreamPullSubscribe {
		deps = []string{jetStreamPkg}
	}

	return in.function(name, t, code, deps...), nil
}

const natsCallbackFail = `var message {{ .msgType }}
onMessage(message, parameters, msg, err)
return`

const natsReplyFail = `onError(err)
return`

const natsPublish = `
func {{ .name }}(nc *{{ .conn }}, message {{ .msgType }}{{ .paramArg }}) error {
	data, err := message.Marshal()
	if err != nil {
		return err
	}
	return nc.Publish({{ .subject }}, data)
}
`

const natsSubscribe = `
func {{ .name }}(nc *{{ .conn }}, onMessage func(message {{ .msgType }}{{ .paramCb }}, msg *{{ .msg }}, err error){{ .paramArg }}) (*{{ .sub }}, error) {
	return nc.Subscribe({{ .subject }}, func(msg *{{ .msg }}) {
		{{ .extract }}
		message, err := {{ .unmarshal }}(msg.Data)
		onMessage(message{{ .paramVal }}, msg, err)
	})
}
`

const natsJetStreamPublish = `
func {{ .name }}(ctx {{ .context }}, js {{ .js }}, message {{ .msgType }}{{ .paramArg }}) (*{{ .pubAck }}, error) {
	data, err := message.Marshal()
	if err != nil {
		return nil, err
	}
	return js.Publish(ctx, {{ .subject }}, data)
}
`

const natsJetStreamPull = `
func {{ .name }}(ctx {{ .context }}, js {{ .js }}, stream string, config {{ .consumerConfig }}, onMessage func(message {{ .msgType }}{{ .paramCb }}, msg {{ .jsMsg }}, err error){{ .paramArg }}) ({{ .consumeContext }}, error) {
	config.FilterSubject = {{ .subject }}
	consumer, err := js.CreateOrUpdateConsumer(ctx, stream, config)
	if err != nil {
		return nil, err
	}
	return consumer.Consume(func(msg {{ .jsMsg }}) {
		{{ .extract }}
		message, err := {{ .unmarshal }}(msg.Data())
		onMessage(message{{ .paramVal }}, msg, err)
	})
}
`

const natsJetStreamPush = `
func {{ .name }}(js {{ .jsContext }}, onMessage func(message {{ .msgType }}{{ .paramCb }}, msg *{{ .msg }}, err error){{ .paramArg }}, opts ...{{ .subOpt }}) (*{{ .sub }}, error) {
	return js.Subscribe({{ .subject }}, func(msg *{{ .msg }}) {
		{{ .extract }}
		message, err := {{ .unmarshal }}(msg.Data)
		onMessage(message{{ .paramVal }}, msg, err)
	}, opts...)
}
`

const natsRequest = `
func {{ .name }}(ctx {{ .context }}, nc *{{ .conn }}, request {{ .msgType }}{{ .paramArg }}) ({{ .replyType }}, error) {
	var reply {{ .replyType }}
	data, err := request.Marshal()
	if err != nil {
		return reply, err
	}
	msg, err := nc.RequestWithContext(ctx, {{ .subject }}, data)
	if err != nil {
		return reply, err
	}
	return {{ .unmarshalReply }}(msg.Data)
}
`

const natsReply = `
func {{ .name }}(nc *{{ .conn }}, handle func(request {{ .msgType }}{{ .paramCb }}) ({{ .replyType }}, error), onError func(err error){{ .paramArg }}) (*{{ .sub }}, error) {
	return nc.Subscribe({{ .subject }}, func(msg *{{ .msg }}) {
		{{ .extract }}
		request, err := {{ .unmarshal }}(msg.Data)
		if err != nil {
			onError(err)
			return
		}
		reply, err := handle(request{{ .paramVal }})
		if err != nil {
			onError(err)
			return
		}
		data, err := reply.Marshal()
		if err != nil {
			onError(err)
			return
		}
		if err := msg.Respond(data); err != nil {
			onError(err)
		}
	})
}
`
