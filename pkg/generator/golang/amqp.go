package golang

import (
	"fmt"

	"github.com/dave/jennifer/jen"
	"github.com/tamasfe/courier/pkg/functions"
	"github.com/tamasfe/courier/pkg/spec"
)

const amqpPkg = "github.com/rabbitmq/amqp091-go"

// AMQP renders functions for RabbitMQ's amqp091 client.
type AMQP struct{}

// Protocol implements ProtocolRenderer
func (a *AMQP) Protocol() functions.Protocol {
	return functions.ProtocolAMQP
}

// PackageName implements ProtocolRenderer
func (a *AMQP) PackageName() string {
	return "amqp"
}

// Topic implements ProtocolRenderer
func (a *AMQP) Topic(c *spec.Channel, opts *ChannelsOptions) string {
	return c.Address
}

// Render implements ProtocolRenderer
func (a *AMQP) Render(t functions.Type, in *RenderInput) (*RenderedFunction, error) {
	var name, doc, template, onFail string

	switch t {
	case functions.AMQPExchangePublish:
		name = "PublishTo" + in.SubName + "Exchange"
		doc = fmt.Sprintf("%v publishes a message to the exchange with %v as the routing key.", name, in.Topic)
		template = amqpExchangePublish
	case functions.AMQPQueuePublish:
		name = "PublishTo" + in.SubName + "Queue"
		doc = fmt.Sprintf("%v publishes a message to the %v queue.", name, in.Topic)
		template = amqpQueuePublish
	case functions.AMQPQueueSubscribe:
		name = "SubscribeTo" + in.SubName + "Queue"
		doc = fmt.Sprintf("%v consumes the %v queue until the context is done or the channel is closed.", name, in.Topic)
		template = amqpQueueSubscribe
		onFail = `var message {{ .msgType }}
onMessage(message, parameters, msg, err)
continue`
	default:
		return nil, fmt.Errorf("unsupported AMQP function type %v", t)
	}

	vals := in.values(name)
	vals["context"] = jen.Qual("context", "Context")
	vals["channel"] = jen.Qual(amqpPkg, "Channel")
	vals["publishing"] = jen.Qual(amqpPkg, "Publishing")
	vals["delivery"] = jen.Qual(amqpPkg, "Delivery")

	ext, err := in.extract(jen.Id("msg").Dot("RoutingKey"), onFail, vals)
	if err != nil {
		return nil, err
	}
	vals["extract"] = ext

	code, err := in.render(doc, template, vals)
	if err != nil {
		return nil, err
	}

	return in.function(name, t, code, amqpPkg), nil
}

const amqpExchangePublish = `
func {{ .name }}(ctx {{ .context }}, ch *{{ .channel }}, exchange string, message {{ .msgType }}{{ .paramArg }}) error {
	data, err := message.Marshal()
	if err != nil {
		return err
	}
	return ch.PublishWithContext(ctx, exchange, {{ .subject }}, false, false, {{ .publishing }}{
		ContentType: "application/json",
		Body:        data,
	})
}
`

const amqpQueuePublish = `
func {{ .name }}(ctx {{ .context }}, ch *{{ .channel }}, message {{ .msgType }}{{ .paramArg }}) error {
	data, err := message.Marshal()
	if err != nil {
		return err
	}
	return ch.PublishWithContext(ctx, "", {{ .subject }}, false, false, {{ .publishing }}{
		ContentType: "application/json",
		Body:        data,
	})
}
`

const amqpQueueSubscribe = `
func {{ .name }}(ctx {{ .context }}, ch *{{ .channel }}, onMessage func(message {{ .msgType }}{{ .paramCb }}, msg {{ .delivery }}, err error){{ .paramArg }}) error {
	deliveries, err := ch.ConsumeWithContext(ctx, {{ .subject }}, "", true, false, false, false, nil)
	if err != nil {
		return err
	}

	go func() {
		for msg := range deliveries {
			{{ .extract }}
			message, err := {{ .unmarshal }}(msg.Body)
			onMessage(message{{ .paramVal }}, msg, err)
		}
	}()

	return nil
}
`
