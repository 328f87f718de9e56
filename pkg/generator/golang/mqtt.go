package golang

import (
	"fmt"

	"github.com/dave/jennifer/jen"
	"github.com/tamasfe/courier/pkg/functions"
	"github.com/tamasfe/courier/pkg/spec"
)

const mqttPkg = "github.com/eclipse/paho.mqtt.golang"

// MQTT renders functions for the Eclipse Paho client.
type MQTT struct{}

// Protocol implements ProtocolRenderer
func (m *MQTT) Protocol() functions.Protocol {
	return functions.ProtocolMQTT
}

// PackageName implements ProtocolRenderer
func (m *MQTT) PackageName() string {
	return "mqtt"
}

// Topic implements ProtocolRenderer
func (m *MQTT) Topic(c *spec.Channel, opts *ChannelsOptions) string {
	return c.Address
}

// Render implements ProtocolRenderer
func (m *MQTT) Render(t functions.Type, in *RenderInput) (*RenderedFunction, error) {
	var name, doc, template, onFail string

	switch t {
	case functions.MQTTPublish:
		name = "PublishTo" + in.SubName
		doc = fmt.Sprintf("%v publishes a message to %v and waits until it is sent.", name, in.Topic)
		template = mqttPublish
	case functions.MQTTSubscribe:
		name = "SubscribeTo" + in.SubName
		doc = fmt.Sprintf("%v subscribes to %v.", name, in.Topic)
		template = mqttSubscribe
		onFail = `var message {{ .msgType }}
onMessage(message, parameters, msg, err)
return`
	default:
		return nil, fmt.Errorf("unsupported MQTT function type %v", t)
	}

	vals := in.values(name)
	vals["client"] = jen.Qual(mqttPkg, "Client")
	vals["message"] = jen.Qual(mqttPkg, "Message")

	ext, err := in.extract(jen.Id("msg").Dot("Topic").Call(), onFail, vals)
	if err != nil {
		return nil, err
	}
	vals["extract"] = ext

	code, err := in.render(doc, template, vals)
	if err != nil {
		return nil, err
	}

	return in.function(name, t, code, mqttPkg), nil
}

const mqttPublish = `
func {{ .name }}(client {{ .client }}, qos byte, message {{ .msgType }}{{ .paramArg }}) error {
	data, err := message.Marshal()
	if err != nil {
		return err
	}
	token := client.Publish({{ .subject }}, qos, false, data)
	token.Wait()
	return token.Error()
}
`

const mqttSubscribe = `
func {{ .name }}(client {{ .client }}, qos byte, onMessage func(message {{ .msgType }}{{ .paramCb }}, msg {{ .message }}, err error){{ .paramArg }}) error {
	token := client.Subscribe({{ .subject }}, qos, func(_ {{ .client }}, msg {{ .message }}) {
		{{ .extract }}
		message, err := {{ .unmarshal }}(msg.Payload())
		onMessage(message{{ .paramVal }}, msg, err)
	})
	token.Wait()
	return token.Error()
}
`
