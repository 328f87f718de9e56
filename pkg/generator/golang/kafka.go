package golang

import (
	"fmt"

	"github.com/dave/jennifer/jen"
	"github.com/tamasfe/courier/pkg/functions"
	"github.com/tamasfe/courier/pkg/spec"
	"github.com/tamasfe/courier/pkg/util"
)

const kafkaPkg = "github.com/segmentio/kafka-go"

// Kafka renders producers and consumers for segmentio/kafka-go.
type Kafka struct{}

// Protocol implements ProtocolRenderer
func (k *Kafka) Protocol() functions.Protocol {
	return functions.ProtocolKafka
}

// PackageName implements ProtocolRenderer
func (k *Kafka) PackageName() string {
	return "kafka"
}

// Topic implements ProtocolRenderer
func (k *Kafka) Topic(c *spec.Channel, opts *ChannelsOptions) string {
	return util.NormalizeTopic(c.Address, opts.KafkaTopicSeparator)
}

// Render implements ProtocolRenderer
func (k *Kafka) Render(t functions.Type, in *RenderInput) (*RenderedFunction, error) {
	var name, doc, template, onFail string

	switch t {
	case functions.KafkaPublish:
		name = "ProduceTo" + in.SubName
		doc = fmt.Sprintf("%v writes a message to the %v topic. The writer must not have a topic set.", name, in.Topic)
		template = kafkaProduce
	case functions.KafkaSubscribe:
		name = "ConsumeFrom" + in.SubName
		doc = fmt.Sprintf("%v reads the %v topic until the context is done.", name, in.Topic)
		template = kafkaConsume
		onFail = `var message {{ .msgType }}
onMessage(message, parameters, msg, err)
continue`
	default:
		return nil, fmt.Errorf("unsupported Kafka function type %v", t)
	}

	vals := in.values(name)
	vals["context"] = jen.Qual("context", "Context")
	vals["writer"] = jen.Qual(kafkaPkg, "Writer")
	vals["message"] = jen.Qual(kafkaPkg, "Message")
	vals["newReader"] = jen.Qual(kafkaPkg, "NewReader")
	vals["readerConfig"] = jen.Qual(kafkaPkg, "ReaderConfig")

	ext, err := in.extract(jen.Id("msg").Dot("Topic"), onFail, vals)
	if err != nil {
		return nil, err
	}
	vals["extract"] = ext

	code, err := in.render(doc, template, vals)
	if err != nil {
		return nil, err
	}

	return in.function(name, t, code, kafkaPkg), nil
}

const kafkaProduce = `
func {{ .name }}(ctx {{ .context }}, w *{{ .writer }}, message {{ .msgType }}{{ .paramArg }}) error {
	data, err := message.Marshal()
	if err != nil {
		return err
	}
	return w.WriteMessages(ctx, {{ .message }}{
		Topic: {{ .subject }},
		Value: data,
	})
}
`

const kafkaConsume = `
func {{ .name }}(ctx {{ .context }}, brokers []string, groupID string, onMessage func(message {{ .msgType }}{{ .paramCb }}, msg {{ .message }}, err error){{ .paramArg }}) error {
	r := {{ .newReader }}({{ .readerConfig }}{
		Brokers: brokers,
		GroupID: groupID,
		Topic:   {{ .subject }},
	})
	defer r.Close()

	for {
		msg, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		{{ .extract }}
		message, err := {{ .unmarshal }}(msg.Value)
		onMessage(message{{ .paramVal }}, msg, err)
	}
}
`
