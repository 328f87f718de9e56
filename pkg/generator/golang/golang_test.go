package golang

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tamasfe/courier/pkg/common"
	"github.com/tamasfe/courier/pkg/errs"
	"github.com/tamasfe/courier/pkg/functions"
	"github.com/tamasfe/courier/pkg/generator"
	"github.com/tamasfe/courier/pkg/genfs"
	"github.com/tamasfe/courier/pkg/graph"
	"github.com/tamasfe/courier/pkg/spec"
)

func ordersDocument() *spec.Document {
	order := &spec.Schema{
		Name:    "Order",
		Variant: spec.VariantObject,
		Properties: []*spec.Property{
			{Name: "id", Required: true, Schema: &spec.Schema{Variant: spec.VariantPrimitive, PrimitiveType: "string"}},
			{Name: "amount", Schema: &spec.Schema{Variant: spec.VariantPrimitive, PrimitiveType: "int64"}},
			{Name: "status", Schema: &spec.Schema{Variant: spec.VariantEnum, Enum: []string{"open", "closed"}}},
			{Name: "tags", Schema: &spec.Schema{Variant: spec.VariantArray, Items: &spec.Schema{Variant: spec.VariantPrimitive, PrimitiveType: "string"}}},
			{Name: "customer", Schema: &spec.Schema{
				Variant: spec.VariantObject,
				Properties: []*spec.Property{
					{Name: "name", Required: true, Schema: &spec.Schema{Variant: spec.VariantPrimitive, PrimitiveType: "string"}},
				},
			}},
		},
	}

	created := &spec.Message{Name: "OrderCreated", Payload: &spec.Schema{
		Variant: spec.VariantObject,
		Properties: []*spec.Property{
			{Name: "order", Required: true, Schema: order},
			{Name: "createdAt", Required: true, Schema: &spec.Schema{Variant: spec.VariantPrimitive, PrimitiveType: "time.Time"}},
		},
	}}

	cancelled := &spec.Message{Name: "OrderCancelled", Payload: &spec.Schema{
		Variant: spec.VariantObject,
		Properties: []*spec.Property{
			{Name: "reason", Schema: &spec.Schema{Variant: spec.VariantPrimitive, PrimitiveType: "string"}},
		},
	}}

	return &spec.Document{
		Title:   "Orders",
		Schemas: []*spec.Schema{order},
		Channels: []*spec.Channel{{
			ID:      "orders",
			Address: "orders/{action}",
			Parameters: []*spec.Parameter{
				{Name: "action", Schema: &spec.Schema{Variant: spec.VariantPrimitive, PrimitiveType: "string"}},
			},
			Messages: []*spec.Message{created, cancelled},
			Operations: []*spec.Operation{{
				ID:       "sendOrder",
				Action:   spec.ActionSend,
				Messages: []*spec.Message{created},
			}},
		}},
	}
}

func testRegistry(t *testing.T) *generator.Registry {
	reg, err := generator.NewRegistry(Generators()...)
	require.NoError(t, err)
	return reg
}

func run(t *testing.T, doc *spec.Document, specs ...*generator.Spec) (*graph.Result, *genfs.FS) {
	t.Helper()

	reg := testRegistry(t)
	prepared, err := generator.Prepare(specs, reg)
	require.NoError(t, err)

	res, err := generator.Run(context.Background(), prepared, reg, doc, &common.Options{
		PackagePath: "example.com/orders",
		Comments:    true,
	})
	require.NoError(t, err)

	fs := genfs.New()
	require.NoError(t, generator.CollectFiles(res.Outputs, fs))
	return res, fs
}

func fileContent(t *testing.T, fs *genfs.FS, p string) string {
	t.Helper()
	for _, f := range fs.Files() {
		if f.RelativePath == p {
			return string(f.Data)
		}
	}
	t.Fatalf("no file %v", p)
	return ""
}

func functionTypes(fns []*RenderedFunction) []functions.Type {
	types := make([]functions.Type, len(fns))
	for i, f := range fns {
		types[i] = f.Type
	}
	return types
}

func channelsSpec(opts map[string]interface{}) *generator.Spec {
	return &generator.Spec{Preset: generator.PresetChannels, Options: opts}
}

func TestChannelsForward(t *testing.T) {
	res, fs := run(t, ordersDocument(), channelsSpec(map[string]interface{}{
		"protocols": []string{"nats"},
	}))

	out := res.Outputs["channels-go"].(*ChannelsOutput)
	nats := out.Protocols[functions.ProtocolNATS]
	require.NotNil(t, nats)

	assert.Equal(t, []functions.Type{functions.NATSPublish, functions.NATSJetStreamPublish}, functionTypes(nats.Functions))
	assert.Equal(t, "PublishToSendOrder", nats.Functions[0].Name)
	assert.Equal(t, "OrderCreated", nats.Functions[0].MessageType)
	assert.Equal(t, "OrdersParameters", nats.Functions[0].ParameterType)
	assert.Equal(t, "example.com/orders/channels/nats", nats.PackagePath)
	assert.Equal(t, []string{"github.com/nats-io/nats.go", "github.com/nats-io/nats.go/jetstream"}, nats.Dependencies)

	code := fileContent(t, fs, "channels/nats/nats.go")
	assert.Contains(t, code, "func PublishToSendOrder(")
	assert.Contains(t, code, `parameters.GetChannelWithParameters("orders.{action}")`)
	assert.Contains(t, code, "Code generated by courier. DO NOT EDIT.")
	assert.NotContains(t, code, "func SubscribeToSendOrder(")
}

func TestChannelsReverse(t *testing.T) {
	res, fs := run(t, ordersDocument(), channelsSpec(map[string]interface{}{
		"protocols":                 []string{"nats"},
		"asyncapiReverseOperations": true,
	}))

	nats := res.Outputs["channels-go"].(*ChannelsOutput).Protocols[functions.ProtocolNATS]
	assert.Equal(t, []functions.Type{
		functions.NATSSubscribe,
		functions.NATSJetStreamPullSubscribe,
		functions.NATSJetStreamPushSubscribe,
	}, functionTypes(nats.Functions))

	code := fileContent(t, fs, "channels/nats/nats.go")
	assert.Contains(t, code, "func SubscribeToSendOrder(")
	assert.Contains(t, code, "OrdersParametersFromChannel(msg.Subject, \"orders.{action}\")")
	assert.NotContains(t, code, "func PublishToSendOrder(")
}

// ordersWithCancel adds a receiving operation to the orders channel.
func ordersWithCancel() *spec.Document {
	doc := ordersDocument()
	c := doc.Channels[0]
	c.Operations = append(c.Operations, &spec.Operation{
		ID:       "cancelOrder",
		Action:   spec.ActionReceive,
		Messages: []*spec.Message{c.Messages[1]},
	})
	return doc
}

func TestChannelsSendAndReceive(t *testing.T) {
	res, fs := run(t, ordersWithCancel(), channelsSpec(map[string]interface{}{
		"protocols": []string{"nats"},
	}))

	nats := res.Outputs["channels-go"].(*ChannelsOutput).Protocols[functions.ProtocolNATS]
	require.Len(t, nats.Functions, 5)
	assert.Equal(t, []functions.Type{
		functions.NATSPublish,
		functions.NATSJetStreamPublish,
		functions.NATSSubscribe,
		functions.NATSJetStreamPullSubscribe,
		functions.NATSJetStreamPushSubscribe,
	}, functionTypes(nats.Functions))

	assert.Equal(t, "PublishToSendOrder", nats.Functions[0].Name)
	assert.Equal(t, "OrderCreated", nats.Functions[0].MessageType)
	assert.Equal(t, "SubscribeToCancelOrder", nats.Functions[2].Name)
	assert.Equal(t, "OrderCancelled", nats.Functions[2].MessageType)

	code := fileContent(t, fs, "channels/nats/nats.go")
	assert.Contains(t, code, "func PublishToSendOrder(")
	assert.Contains(t, code, "func SubscribeToCancelOrder(")
	assert.NotContains(t, code, "func PublishToCancelOrder(")
	assert.NotContains(t, code, "func SubscribeToSendOrder(")
}

func TestChannelsSendAndReceiveReverse(t *testing.T) {
	res, fs := run(t, ordersWithCancel(), channelsSpec(map[string]interface{}{
		"protocols":                 []string{"nats"},
		"asyncapiReverseOperations": true,
	}))

	nats := res.Outputs["channels-go"].(*ChannelsOutput).Protocols[functions.ProtocolNATS]
	assert.Equal(t, []functions.Type{
		functions.NATSSubscribe,
		functions.NATSJetStreamPullSubscribe,
		functions.NATSJetStreamPushSubscribe,
		functions.NATSPublish,
		functions.NATSJetStreamPublish,
	}, functionTypes(nats.Functions))

	assert.Equal(t, "SubscribeToSendOrder", nats.Functions[0].Name)
	assert.Equal(t, "OrderCreated", nats.Functions[0].MessageType)
	assert.Equal(t, "PublishToCancelOrder", nats.Functions[3].Name)
	assert.Equal(t, "OrderCancelled", nats.Functions[3].MessageType)

	code := fileContent(t, fs, "channels/nats/nats.go")
	assert.Contains(t, code, "func PublishToCancelOrder(")
	assert.NotContains(t, code, "func PublishToSendOrder(")
	assert.NotContains(t, code, "func SubscribeToCancelOrder(")
}

func TestChannelsOperationsWithoutIDs(t *testing.T) {
	alpha := &spec.Message{Name: "Alpha", Payload: &spec.Schema{
		Variant: spec.VariantObject,
		Properties: []*spec.Property{
			{Name: "a", Schema: &spec.Schema{Variant: spec.VariantPrimitive, PrimitiveType: "string"}},
		},
	}}
	beta := &spec.Message{Name: "Beta", Payload: &spec.Schema{
		Variant: spec.VariantObject,
		Properties: []*spec.Property{
			{Name: "b", Schema: &spec.Schema{Variant: spec.VariantPrimitive, PrimitiveType: "int64"}},
		},
	}}

	doc := &spec.Document{Channels: []*spec.Channel{{
		ID:       "events",
		Address:  "events",
		Messages: []*spec.Message{alpha, beta},
		Operations: []*spec.Operation{
			{Action: spec.ActionSend, Messages: []*spec.Message{alpha}},
			{Action: spec.ActionReceive, Messages: []*spec.Message{beta}},
		},
	}}}

	res, _ := run(t, doc, channelsSpec(map[string]interface{}{"protocols": []string{"nats"}}))

	payloads := res.Outputs["payloads-go"].(*PayloadsOutput)
	assert.Equal(t, "Alpha", payloads.OperationModels["events_send"].TypeName)
	assert.Equal(t, "Beta", payloads.OperationModels["events_receive"].TypeName)

	nats := res.Outputs["channels-go"].(*ChannelsOutput).Protocols[functions.ProtocolNATS]
	require.NotEmpty(t, nats.Functions)
	for _, fn := range nats.Functions {
		e, ok := functions.Default.Lookup(fn.Type)
		require.True(t, ok)
		if e.Direction.Sends() {
			assert.Equal(t, "Alpha", fn.MessageType, fn.Name)
		} else {
			assert.Equal(t, "Beta", fn.MessageType, fn.Name)
		}
	}
	assert.Equal(t, "PublishToEvents", nats.Functions[0].Name)
	assert.Equal(t, "Alpha", nats.Functions[0].MessageType)
}

func TestChannelsRequestReply(t *testing.T) {
	doc := ordersDocument()
	c := doc.Channels[0]
	c.Operations = append(c.Operations, &spec.Operation{
		ID:       "getOrder",
		Action:   spec.ActionSend,
		Messages: []*spec.Message{c.Messages[0]},
		Reply: &spec.Reply{Messages: []*spec.Message{{
			Name:    "OrderState",
			Payload: &spec.Schema{Variant: spec.VariantEnum, Enum: []string{"open", "closed"}},
		}}},
	})

	res, _ := run(t, doc, channelsSpec(map[string]interface{}{"protocols": []string{"nats"}}))
	nats := res.Outputs["channels-go"].(*ChannelsOutput).Protocols[functions.ProtocolNATS]
	require.Len(t, nats.Functions, 3)
	assert.Equal(t, functions.NATSRequest, nats.Functions[2].Type)
	assert.Equal(t, "RequestToGetOrder", nats.Functions[2].Name)
	assert.Equal(t, "OrderState", nats.Functions[2].ReplyType)

	res, fs := run(t, doc, channelsSpec(map[string]interface{}{
		"protocols":                 []string{"nats"},
		"asyncapiReverseOperations": true,
	}))
	nats = res.Outputs["channels-go"].(*ChannelsOutput).Protocols[functions.ProtocolNATS]
	require.Len(t, nats.Functions, 4)
	assert.Equal(t, functions.NATSReply, nats.Functions[3].Type)

	code := fileContent(t, fs, "channels/nats/nats.go")
	assert.Contains(t, code, "func ReplyToGetOrder(")
	assert.Contains(t, code, "onError func(err error)")
	assert.Contains(t, code, "onError(err)")
	assert.NotContains(t, code, "_ = msg.Respond(data)")

	payloads := res.Outputs["payloads-go"].(*PayloadsOutput)
	assert.Equal(t, "OrderState", payloads.OperationModels["getOrder_reply"].TypeName)
}

func TestChannelsMapping(t *testing.T) {
	doc := ordersDocument()
	doc.Channels[0].Operations[0].Extension = &spec.Extension{
		FunctionTypeMapping: []string{string(functions.NATSJetStreamPublish), string(functions.NATSSubscribe)},
	}

	res, _ := run(t, doc, channelsSpec(map[string]interface{}{
		"protocols":           []string{"nats"},
		"functionTypeMapping": map[string][]string{"orders": {string(functions.NATSPublish)}},
	}))

	nats := res.Outputs["channels-go"].(*ChannelsOutput).Protocols[functions.ProtocolNATS]
	assert.Equal(t, []functions.Type{functions.NATSJetStreamPublish}, functionTypes(nats.Functions))

	doc.Channels[0].Operations[0].Extension = nil
	res, _ = run(t, doc, channelsSpec(map[string]interface{}{
		"protocols":           []string{"nats"},
		"functionTypeMapping": map[string][]string{"orders": {string(functions.NATSPublish)}},
	}))
	nats = res.Outputs["channels-go"].(*ChannelsOutput).Protocols[functions.ProtocolNATS]
	assert.Equal(t, []functions.Type{functions.NATSPublish}, functionTypes(nats.Functions))
}

func TestChannelsWithoutOperations(t *testing.T) {
	res, _ := run(t, ordersDocument(), channelsSpec(map[string]interface{}{
		"protocols":                     []string{"nats", "kafka"},
		"asyncapiGenerateForOperations": false,
		"kafkaTopicSeparator":           "-",
	}))

	out := res.Outputs["channels-go"].(*ChannelsOutput)
	nats := out.Protocols[functions.ProtocolNATS]
	assert.Equal(t, []functions.Type{
		functions.NATSPublish,
		functions.NATSSubscribe,
		functions.NATSJetStreamPullSubscribe,
		functions.NATSJetStreamPushSubscribe,
		functions.NATSJetStreamPublish,
	}, functionTypes(nats.Functions))
	assert.Equal(t, "PublishToOrders", nats.Functions[0].Name)
	assert.Equal(t, "OrdersPayload", nats.Functions[0].MessageType)

	kafka := out.Protocols[functions.ProtocolKafka]
	assert.Equal(t, []string{"ProduceToOrders", "ConsumeFromOrders"}, []string{kafka.Functions[0].Name, kafka.Functions[1].Name})
}

func TestChannelsAllProtocols(t *testing.T) {
	_, fs := run(t, ordersDocument(), channelsSpec(map[string]interface{}{
		"protocols":                     []string{"nats", "kafka", "mqtt", "amqp", "event_source"},
		"asyncapiGenerateForOperations": false,
	}))

	assert.Contains(t, fileContent(t, fs, "channels/kafka/kafka.go"), `parameters.GetChannelWithParameters("orders.{action}")`)
	assert.Contains(t, fileContent(t, fs, "channels/mqtt/mqtt.go"), "func SubscribeToOrders(")
	assert.Contains(t, fileContent(t, fs, "channels/amqp/amqp.go"), "func PublishToOrdersExchange(")
	assert.Contains(t, fileContent(t, fs, "channels/eventsource/eventsource.go"), `e.GET("/orders/:action"`)
}

func TestChannelsWebSocket(t *testing.T) {
	res, fs := run(t, ordersDocument(), channelsSpec(map[string]interface{}{
		"protocols":                     []string{"websocket"},
		"asyncapiGenerateForOperations": false,
	}))

	out := res.Outputs["channels-go"].(*ChannelsOutput).Protocols[functions.ProtocolWebSocket]
	assert.Equal(t, []functions.Type{
		functions.WebSocketPublish,
		functions.WebSocketSubscribe,
		functions.WebSocketRegister,
	}, functionTypes(out.Functions))

	code := fileContent(t, fs, "channels/websocket/websocket.go")
	assert.Contains(t, code, `"github.com/gorilla/websocket"`)
	assert.Contains(t, code, "func PublishToOrders(conn *websocket.Conn, message payload.OrdersPayload) error")
	assert.Contains(t, code, `dialer.DialContext(ctx, baseURL+parameters.GetChannelWithParameters("/orders/{action}"), nil)`)
	assert.Contains(t, code, `mux.HandleFunc("/orders/", func(w http.ResponseWriter, r *http.Request) {`)
	assert.Contains(t, code, `parameter.OrdersParametersFromChannel(r.URL.Path, "/orders/{action}")`)
	assert.Contains(t, code, "http.NotFound(w, r)")
}

func TestWebSocketPattern(t *testing.T) {
	assert.Equal(t, "/orders", websocketPattern("/orders"))
	assert.Equal(t, "/orders/", websocketPattern("/orders/{action}"))
	assert.Equal(t, "/", websocketPattern("/{tenant}/orders"))
	assert.Equal(t, "/", websocketPattern("/orders.{action}"))
}

func TestChannelsHTTPClient(t *testing.T) {
	pet := &spec.Message{Name: "Pet", Payload: &spec.Schema{
		Variant: spec.VariantObject,
		Properties: []*spec.Property{
			{Name: "name", Required: true, Schema: &spec.Schema{Variant: spec.VariantPrimitive, PrimitiveType: "string"}},
		},
	}}

	doc := &spec.Document{Channels: []*spec.Channel{{
		ID:       "createPet",
		Address:  "/pets",
		Method:   "POST",
		Messages: []*spec.Message{pet},
		Operations: []*spec.Operation{{
			ID:     "createPet",
			Action: spec.ActionSend,
			Reply:  &spec.Reply{Messages: []*spec.Message{{Name: "CreatePetResponse", Payload: pet.Payload}}},
		}},
	}}}

	res, fs := run(t, doc, channelsSpec(map[string]interface{}{"protocols": []string{"http_client"}}))

	out := res.Outputs["channels-go"].(*ChannelsOutput).Protocols[functions.ProtocolHTTPClient]
	require.Len(t, out.Functions, 1)
	assert.Equal(t, "PostCreatePet", out.Functions[0].Name)
	assert.Contains(t, fileContent(t, fs, "channels/httpclient/httpclient.go"), "func PostCreatePet(")
}

func TestChannelsMissingPayload(t *testing.T) {
	doc := ordersDocument()
	ch := &Channels{}

	_, err := ch.Generate(context.Background(), &generator.Input{
		Spec: &generator.Spec{
			ID:      "channels",
			Preset:  generator.PresetChannels,
			Options: map[string]interface{}{"payloadGeneratorId": "p", "parameterGeneratorId": "q"},
		},
		Document: doc,
		Dependencies: map[string]interface{}{
			"p": &PayloadsOutput{ChannelModels: map[string]*Model{}, OperationModels: map[string]*Model{}},
			"q": &ParametersOutput{ChannelModels: map[string]*Model{"orders": {TypeName: "OrdersParameters"}}},
		},
		Options: common.DefaultOptions(),
	})

	var missing *errs.MissingDependencyError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "channels", missing.Generator)
	assert.Equal(t, "orders", missing.Channel)
	assert.Equal(t, "sendOrder", missing.Operation)
}

func TestChannelsMissingReplyPayload(t *testing.T) {
	doc := ordersDocument()
	doc.Channels[0].Operations[0].Reply = &spec.Reply{}

	ch := &Channels{}
	_, err := ch.Generate(context.Background(), &generator.Input{
		Spec: &generator.Spec{ID: "channels", Preset: generator.PresetChannels},
		Document: doc,
		Dependencies: map[string]interface{}{
			"payloads-go": &PayloadsOutput{
				ChannelModels:   map[string]*Model{},
				OperationModels: map[string]*Model{"sendOrder": {TypeName: "OrderCreated"}},
			},
			"parameters-go": &ParametersOutput{ChannelModels: map[string]*Model{"orders": {TypeName: "OrdersParameters"}}},
		},
		Options: common.DefaultOptions(),
	})

	var missing *errs.MissingDependencyError
	require.ErrorAs(t, err, &missing)
	assert.Contains(t, missing.What, "reply")
}

func TestChannelsUnsupportedProtocol(t *testing.T) {
	reg := testRegistry(t)
	prepared, err := generator.Prepare([]*generator.Spec{
		channelsSpec(map[string]interface{}{"protocols": []string{"zeromq"}}),
	}, reg)
	require.NoError(t, err)

	_, err = generator.Run(context.Background(), prepared, reg, ordersDocument(), nil)
	var cfg *errs.ConfigurationError
	assert.ErrorAs(t, err, &cfg)
}

func TestPayloads(t *testing.T) {
	res, fs := run(t, ordersDocument(), &generator.Spec{Preset: generator.PresetPayloads})

	out := res.Outputs["payloads-go"].(*PayloadsOutput)
	assert.Equal(t, "OrdersPayload", out.ChannelModels["orders"].TypeName)
	assert.Equal(t, "OrderCreated", out.OperationModels["sendOrder"].TypeName)
	assert.Equal(t, "example.com/orders/payload", out.PackagePath)

	others := make([]string, len(out.OtherModels))
	for i, m := range out.OtherModels {
		others[i] = m.TypeName
	}
	assert.Contains(t, others, "Order")
	assert.Contains(t, others, "OrderStatus")
	assert.Contains(t, others, "OrderCustomer")

	code := fileContent(t, fs, "payload/payloads.go")
	assert.Contains(t, code, "type OrdersPayload struct")
	assert.Contains(t, code, "func UnmarshalOrdersPayload(data []byte) (OrdersPayload, error)")
	assert.Contains(t, code, "func UnmarshalOrderCreated(data []byte) (OrderCreated, error)")
	assert.Contains(t, code, `json:"amount,omitempty"`)
	assert.Contains(t, code, "OrderStatusOpen")
	assert.Contains(t, code, "DisallowUnknownFields")
}

func TestParameters(t *testing.T) {
	doc := ordersDocument()
	doc.Channels = append(doc.Channels, &spec.Channel{
		ID:      "shipments",
		Address: "shipments/{region}/{id}",
		Parameters: []*spec.Parameter{
			{Name: "id", Schema: &spec.Schema{Variant: spec.VariantPrimitive, PrimitiveType: "int64"}},
			{Name: "region"},
		},
	})

	res, fs := run(t, doc, &generator.Spec{Preset: generator.PresetParameters})

	out := res.Outputs["parameters-go"].(*ParametersOutput)
	assert.Equal(t, "OrdersParameters", out.ChannelModels["orders"].TypeName)
	assert.Equal(t, "ShipmentsParameters", out.ChannelModels["shipments"].TypeName)

	code := fileContent(t, fs, "parameter/parameters.go")
	assert.Contains(t, code, "func (p OrdersParameters) GetChannelWithParameters(channel string) string")
	assert.Contains(t, code, "func ShipmentsParametersFromChannel(subject, channel string) (ShipmentsParameters, error)")
	assert.Contains(t, code, "strconv.ParseInt(match[2], 10, 64)")
	assert.Contains(t, code, "p.Region = match[1]")
}

func TestHeaders(t *testing.T) {
	doc := ordersDocument()
	doc.Channels[0].Messages[1].Headers = &spec.Schema{
		Variant: spec.VariantObject,
		Properties: []*spec.Property{
			{Name: "correlationId", Required: true, Schema: &spec.Schema{Variant: spec.VariantPrimitive, PrimitiveType: "string"}},
			{Name: "retries", Schema: &spec.Schema{Variant: spec.VariantPrimitive, PrimitiveType: "int64"}},
		},
	}
	doc.Channels = append(doc.Channels, &spec.Channel{
		ID:       "shipments",
		Address:  "shipments",
		Messages: []*spec.Message{{Name: "Shipped"}},
	})

	res, fs := run(t, doc, &generator.Spec{Preset: generator.PresetHeaders})

	out := res.Outputs["headers-go"].(*HeadersOutput)
	assert.Equal(t, "OrderCancelledHeaders", out.ChannelModels["orders"].TypeName)
	assert.Equal(t, "example.com/orders/headers", out.ChannelModels["orders"].PackagePath)
	assert.NotContains(t, out.ChannelModels, "shipments")

	code := fileContent(t, fs, "headers/headers.go")
	assert.Contains(t, code, "type OrderCancelledHeaders struct")
	assert.Contains(t, code, `json:"correlationId"`)
	assert.Contains(t, code, `json:"retries,omitempty"`)
	assert.Contains(t, code, "func UnmarshalOrderCancelledHeaders(data []byte) (OrderCancelledHeaders, error)")

	res, fs = run(t, ordersDocument(), &generator.Spec{Preset: generator.PresetHeaders})
	assert.Empty(t, res.Outputs["headers-go"].(*HeadersOutput).ChannelModels)
	assert.Equal(t, 0, fs.Len())

	doc = ordersDocument()
	doc.Channels[0].Messages[0].Headers = &spec.Schema{Variant: spec.VariantPrimitive, PrimitiveType: "string"}
	_, err := (&Headers{}).Generate(context.Background(), &generator.Input{
		Spec:     (&Headers{}).DefaultSpec(),
		Document: doc,
		Options:  common.DefaultOptions(),
	})
	assert.Error(t, err)
}

func TestTypes(t *testing.T) {
	doc := ordersDocument()
	doc.Channels = append(doc.Channels,
		&spec.Channel{ID: "orderStatus", Address: "orders/{id}/status"},
		&spec.Channel{ID: "ordersCopy", GoName: "Orders", Address: "orders/{action}"},
	)

	res, fs := run(t, doc, &generator.Spec{Preset: generator.PresetTypes})

	out := res.Outputs["types-go"].(*TypesOutput)
	assert.Equal(t, "TopicOrders", out.Topics["orders"])
	assert.Equal(t, "TopicIDOrderStatus", out.TopicIDs["orderStatus"])
	assert.Equal(t, "TopicOrders_", out.Topics["ordersCopy"])

	code := fileContent(t, fs, "types/types.go")
	assert.Contains(t, code, "type Topic string")
	assert.Regexp(t, `TopicOrderStatus\s+Topic\s+= "orders/\{id\}/status"`, code)
	assert.Regexp(t, `TopicIDOrders_\s+TopicID\s+= "ordersCopy"`, code)
	assert.Contains(t, code, "func ToTopicID(topic Topic) (TopicID, error)")
	assert.Contains(t, code, "func ToTopic(id TopicID) (Topic, error)")
	assert.NotContains(t, code, "case TopicOrders_:")
	assert.Contains(t, code, "case TopicIDOrders_:")
}

func TestClient(t *testing.T) {
	res, fs := run(t, ordersDocument(), &generator.Spec{Preset: generator.PresetClient})

	out := res.Outputs["client-go"].(*ClientOutput)
	assert.Equal(t, []string{"PublishToSendOrder", "JetStreamPublishToSendOrder"}, out.Methods[functions.ProtocolNATS])

	code := fileContent(t, fs, "client/client.go")
	assert.Contains(t, code, "type NATSClient struct")
	assert.Contains(t, code, "func (c *NATSClient) PublishToSendOrder(")

	_, err := generator.Prepare([]*generator.Spec{{
		Preset:  generator.PresetClient,
		Options: map[string]interface{}{"protocols": []string{"kafka"}},
	}}, testRegistry(t))
	var cfg *errs.ConfigurationError
	assert.ErrorAs(t, err, &cfg)
}

func TestClientReply(t *testing.T) {
	doc := ordersDocument()
	c := doc.Channels[0]
	c.Operations[0].Reply = &spec.Reply{Messages: []*spec.Message{{
		Name:    "OrderAccepted",
		Payload: &spec.Schema{Variant: spec.VariantPrimitive, PrimitiveType: "bool"},
	}}}

	res, fs := run(t, doc,
		channelsSpec(map[string]interface{}{
			"protocols":                 []string{"nats"},
			"asyncapiReverseOperations": true,
		}),
		&generator.Spec{Preset: generator.PresetClient},
	)

	out := res.Outputs["client-go"].(*ClientOutput)
	assert.Contains(t, out.Methods[functions.ProtocolNATS], "ReplyToSendOrder")

	code := fileContent(t, fs, "client/client.go")
	assert.Contains(t, code, "onError func(err error)")
	assert.Contains(t, code, "handle, onError, parameters)")
}

func TestCustom(t *testing.T) {
	res, fs := run(t, ordersDocument(), &generator.Spec{
		Preset: generator.PresetCustom,
		Options: map[string]interface{}{
			"template": "package {{ .PackageName }}\n\nconst Title = {{ .Document.Title | quote }}\n",
		},
	})

	out := res.Outputs["custom-go"].(*CustomOutput)
	assert.Contains(t, out.Result, `const Title = "Orders"`)
	assert.Contains(t, fileContent(t, fs, "custom/custom.go"), "package custom")

	c := &Custom{Render: func(ctx context.Context, data *CustomData) ([]byte, error) {
		return []byte(data.ImportPath), nil
	}}
	got, err := c.Generate(context.Background(), &generator.Input{
		Spec:    &generator.Spec{ID: "c", OutputPath: "x", Options: map[string]interface{}{"fileName": "path.txt"}},
		Options: &common.Options{PackagePath: "example.com"},
	})
	require.NoError(t, err)
	assert.Equal(t, "example.com/x", got.(*CustomOutput).Result)

	_, err = (&Custom{}).Generate(context.Background(), &generator.Input{Spec: &generator.Spec{ID: "c"}})
	var cfg *errs.ConfigurationError
	assert.ErrorAs(t, err, &cfg)
}

func TestModuleOf(t *testing.T) {
	assert.Equal(t, "github.com/nats-io/nats.go", moduleOf("github.com/nats-io/nats.go/jetstream"))
	assert.Equal(t, "github.com/labstack/echo/v4", moduleOf("github.com/labstack/echo/v4"))
	assert.Equal(t, "github.com/segmentio/kafka-go", moduleOf("github.com/segmentio/kafka-go"))
	assert.Equal(t, "", moduleOf("net/http"))
}

func TestRequiredModules(t *testing.T) {
	reg := testRegistry(t)
	prepared, err := generator.Prepare([]*generator.Spec{
		channelsSpec(map[string]interface{}{"protocols": []string{"nats", "mqtt"}}),
	}, reg)
	require.NoError(t, err)

	state := &common.State{}
	_, err = generator.Run(common.WithState(context.Background(), state), prepared, reg, ordersDocument(), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"github.com/eclipse/paho.mqtt.golang", "github.com/nats-io/nats.go"}, state.Modules())
}
