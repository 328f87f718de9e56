package parser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tamasfe/courier/pkg/common"
	"github.com/tamasfe/courier/pkg/spec"
)

const asyncAPIv3 = `
asyncapi: 3.0.0
info:
  title: Orders
  version: 1.0.0
channels:
  orders:
    address: orders/{action}
    parameters:
      action:
        description: What happened to the order
    messages:
      OrderCreated:
        $ref: '#/components/messages/OrderCreated'
      OrderCancelled:
        payload:
          type: object
          properties:
            reason:
              type: string
    x-courier:
      functionTypeMapping:
        - nats_publish
  status:
    address: orders/status
    messages:
      OrderStatus:
        payload:
          type: string
          enum: [open, closed]
operations:
  sendOrder:
    action: send
    channel:
      $ref: '#/channels/orders'
    messages:
      - $ref: '#/channels/orders/messages/OrderCreated'
    x-courier:
      functionTypeMapping:
        - nats_jetstream_publish
  getStatus:
    action: send
    channel:
      $ref: '#/channels/orders'
    messages:
      - $ref: '#/channels/orders/messages/OrderCreated'
    reply:
      channel:
        $ref: '#/channels/status'
components:
  messages:
    OrderCreated:
      name: OrderCreated
      contentType: application/json
      payload:
        $ref: '#/components/schemas/Order'
  schemas:
    Order:
      type: object
      required: [id]
      properties:
        id:
          type: string
        amount:
          type: integer
          format: int64
        createdAt:
          type: string
          format: date-time
        tags:
          type: array
          items:
            type: string
        parent:
          $ref: '#/components/schemas/Order'
        note:
          type: [string, "null"]
`

func TestAsyncAPIv3(t *testing.T) {
	state := &common.State{}
	ctx := common.WithState(context.Background(), state)

	doc, err := (&AsyncAPI{}).Parse(ctx, nil, []byte(asyncAPIv3))
	require.NoError(t, err)

	assert.Equal(t, "Orders", doc.Title)
	assert.Equal(t, "1.0.0", doc.Version)
	require.Len(t, doc.Channels, 2)

	orders := doc.Channel("orders")
	require.NotNil(t, orders)
	assert.Equal(t, "orders/{action}", orders.Address)
	require.Len(t, orders.Parameters, 1)
	assert.Equal(t, "action", orders.Parameters[0].Name)
	assert.Equal(t, []string{"nats_publish"}, orders.Extension.FunctionTypeMapping)

	require.Len(t, orders.Messages, 2)
	assert.Equal(t, "OrderCancelled", orders.Messages[0].Name)
	created := orders.Messages[1]
	assert.Equal(t, "OrderCreated", created.Name)
	assert.Equal(t, "application/json", created.ContentType)

	require.Len(t, orders.Operations, 2)
	getStatus, sendOrder := orders.Operations[0], orders.Operations[1]

	assert.Equal(t, "sendOrder", sendOrder.ID)
	assert.Equal(t, spec.ActionSend, sendOrder.Action)
	assert.Equal(t, []string{"nats_jetstream_publish"}, sendOrder.Extension.FunctionTypeMapping)
	require.Len(t, sendOrder.Messages, 1)
	assert.Same(t, created, sendOrder.Messages[0])

	require.NotNil(t, getStatus.Reply)
	assert.Equal(t, "orders/status", getStatus.Reply.Address)
	require.Len(t, getStatus.Reply.Messages, 1)
	assert.Equal(t, spec.VariantEnum, getStatus.Reply.Messages[0].Payload.Variant)
	assert.Equal(t, []string{"open", "closed"}, getStatus.Reply.Messages[0].Payload.Enum)

	require.Len(t, doc.Schemas, 1)
	order := doc.Schemas[0]
	assert.Same(t, order, created.Payload)
	assert.Equal(t, "Order", order.Name)
	assert.Equal(t, spec.VariantObject, order.Variant)

	props := make(map[string]*spec.Property)
	for _, p := range order.Properties {
		props[p.Name] = p
	}
	assert.True(t, props["id"].Required)
	assert.False(t, props["amount"].Required)
	assert.Equal(t, "int64", props["amount"].Schema.PrimitiveType)
	assert.Equal(t, "time.Time", props["createdAt"].Schema.PrimitiveType)
	assert.Equal(t, spec.VariantArray, props["tags"].Schema.Variant)
	assert.Same(t, order, props["parent"].Schema)
	assert.True(t, props["note"].Schema.Nullable)

	assert.NotContains(t, string(state.SpecData()), "x-courier")
}

func TestAsyncAPIKeepExtension(t *testing.T) {
	state := &common.State{}
	ctx := common.WithState(context.Background(), state)

	_, err := (&AsyncAPI{}).Parse(ctx, map[string]interface{}{"stripExtension": false}, []byte(asyncAPIv3))
	require.NoError(t, err)
	assert.Contains(t, string(state.SpecData()), "x-courier")
}

const asyncAPIv2 = `{
  "asyncapi": "2.6.0",
  "info": {"title": "Lights", "version": "2.0.0"},
  "channels": {
    "lights/{id}/measured": {
      "parameters": {
        "id": {"schema": {"type": "integer"}}
      },
      "subscribe": {
        "operationId": "receiveMeasurement",
        "message": {
          "oneOf": [
            {"name": "Measured", "payload": {"type": "object", "properties": {"lumens": {"type": "number"}}}},
            {"name": "Failed", "payload": {"type": "object", "properties": {"reason": {"type": "string"}}}}
          ]
        }
      },
      "publish": {
        "operationId": "measure",
        "x-courier": {"functionTypeMapping": ["mqtt_publish"]},
        "message": {"name": "Measure"}
      }
    }
  }
}`

func TestAsyncAPIv2(t *testing.T) {
	doc, err := (&AsyncAPI{}).Parse(context.Background(), nil, []byte(asyncAPIv2))
	require.NoError(t, err)

	require.Len(t, doc.Channels, 1)
	c := doc.Channels[0]
	assert.Equal(t, "lights/{id}/measured", c.ID)
	assert.Equal(t, "lights/{id}/measured", c.Address)
	require.Len(t, c.Parameters, 1)
	assert.Equal(t, "int", c.Parameters[0].Schema.PrimitiveType)

	require.Len(t, c.Operations, 2)
	assert.Equal(t, spec.ActionPublish, c.Operations[0].Action)
	assert.Equal(t, "measure", c.Operations[0].ID)
	assert.Equal(t, []string{"mqtt_publish"}, c.Operations[0].Extension.FunctionTypeMapping)
	assert.Nil(t, c.Operations[0].Messages[0].Payload)

	assert.Equal(t, spec.ActionSubscribe, c.Operations[1].Action)
	require.Len(t, c.Operations[1].Messages, 2)
	assert.Equal(t, "float64", c.Operations[1].Messages[0].Payload.Properties[0].Schema.PrimitiveType)

	assert.Len(t, c.Messages, 3)
}

func TestAsyncAPIv2WithoutOperationIDs(t *testing.T) {
	data := `{
  "asyncapi": "2.6.0",
  "info": {"title": "Events", "version": "1.0.0"},
  "channels": {
    "events": {
      "publish": {"message": {
        "name": "Alpha",
        "headers": {"type": "object", "properties": {"traceId": {"type": "string"}}},
        "payload": {"type": "string"}
      }},
      "subscribe": {"message": {"name": "Beta", "payload": {"type": "integer"}}}
    }
  }
}`

	doc, err := (&AsyncAPI{}).Parse(context.Background(), nil, []byte(data))
	require.NoError(t, err)

	c := doc.Channels[0]
	require.Len(t, c.Operations, 2)
	assert.Equal(t, "events_publish", c.Operations[0].PayloadID(c))
	assert.Equal(t, "events_subscribe", c.Operations[1].PayloadID(c))
	assert.Equal(t, "events_subscribe_reply", c.Operations[1].ReplyID(c))

	headers := c.Operations[0].Messages[0].Headers
	require.NotNil(t, headers)
	assert.Equal(t, spec.VariantObject, headers.Variant)
	assert.Equal(t, "traceId", headers.Properties[0].Name)
	assert.Nil(t, c.Operations[1].Messages[0].Headers)
}

func TestExtension(t *testing.T) {
	nested := map[string]interface{}{
		"functionTypeMapping": []interface{}{"nats_publish", "nats_subscribe"},
		"other":               map[string]interface{}{"deep": map[string]interface{}{"a": 1}},
	}

	ext, err := extension(nested)
	require.NoError(t, err)
	assert.Equal(t, []string{"nats_publish", "nats_subscribe"}, ext.FunctionTypeMapping)

	ext, err = extension(map[interface{}]interface{}{
		"functionTypeMapping": []interface{}{"kafka_publish"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"kafka_publish"}, ext.FunctionTypeMapping)

	ext, err = extension([]byte(`{"functionTypeMapping": ["mqtt_subscribe"]}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"mqtt_subscribe"}, ext.FunctionTypeMapping)

	_, err = extension(nil)
	assert.ErrorIs(t, err, ErrExtNotFound)
}

func TestAsyncAPIErrors(t *testing.T) {
	p := &AsyncAPI{}

	_, err := p.Parse(context.Background(), nil, []byte("info:\n  title: x\n"))
	assert.Error(t, err)

	_, err = p.Parse(context.Background(), nil, []byte("asyncapi: 1.2.0\n"))
	assert.Error(t, err)

	_, err = p.Parse(context.Background(), nil, []byte(`
asyncapi: 3.0.0
channels:
  a:
    address: a
    messages:
      m:
        $ref: '#/components/messages/missing'
`))
	assert.Error(t, err)

	_, err = p.Parse(context.Background(), nil, []byte(`
asyncapi: 3.0.0
channels:
  a:
    address: a
operations:
  op:
    action: fly
    channel:
      $ref: '#/channels/a'
`))
	assert.Error(t, err)

	_, err = p.Parse(context.Background(), map[string]interface{}{"stripExtension": "nope"}, []byte(asyncAPIv3))
	assert.Error(t, err)
}

const openAPI3 = `
openapi: 3.0.0
info:
  title: Petstore
  version: 1.0.0
paths:
  /pets:
    post:
      operationId: createPet
      x-courier:
        functionTypeMapping: [http_client]
      requestBody:
        content:
          application/json:
            schema:
              $ref: '#/components/schemas/Pet'
      responses:
        '201':
          description: Created
          content:
            application/json:
              schema:
                $ref: '#/components/schemas/Pet'
        default:
          description: Error
  /pets/{petId}:
    parameters:
      - name: petId
        in: path
        required: true
        schema:
          type: integer
          format: int64
    get:
      summary: Get a pet
      responses:
        '200':
          description: OK
          content:
            application/json:
              schema:
                $ref: '#/components/schemas/Pet'
    delete:
      operationId: deletePet
      responses:
        '204':
          description: Deleted
components:
  schemas:
    Pet:
      type: object
      required: [name]
      properties:
        name:
          type: string
        kind:
          type: string
          enum: [dog, cat]
        tags:
          type: object
          additionalProperties:
            type: string
`

func TestOpenAPI3(t *testing.T) {
	doc, err := (&OpenAPI3{}).Parse(context.Background(), nil, []byte(openAPI3))
	require.NoError(t, err)

	assert.Equal(t, "Petstore", doc.Title)
	require.Len(t, doc.Channels, 3)

	create := doc.Channels[0]
	assert.Equal(t, "createPet", create.ID)
	assert.Equal(t, "/pets", create.Address)
	assert.Equal(t, "POST", create.Method)
	require.Len(t, create.Operations, 1)
	op := create.Operations[0]
	assert.Equal(t, spec.ActionSend, op.Action)
	assert.Equal(t, []string{"http_client"}, op.Extension.FunctionTypeMapping)
	require.NotNil(t, op.Reply)
	assert.Equal(t, "Pet", op.Reply.Messages[0].Payload.Name)
	assert.Same(t, create.Messages[0].Payload, op.Reply.Messages[0].Payload)

	del := doc.Channels[1]
	assert.Equal(t, "deletePet", del.ID)
	assert.Equal(t, "DELETE", del.Method)
	require.Len(t, del.Parameters, 1)
	assert.Equal(t, "int64", del.Parameters[0].Schema.PrimitiveType)
	assert.Nil(t, del.Messages[0].Payload)
	assert.Nil(t, del.Operations[0].Reply.Messages[0].Payload)

	get := doc.Channels[2]
	assert.Equal(t, "get/pets/{petId}", get.ID)
	assert.Equal(t, "Get a pet", get.Description)

	require.Len(t, doc.Schemas, 1)
	pet := doc.Schemas[0]
	assert.Equal(t, spec.VariantObject, pet.Variant)
	require.Len(t, pet.Properties, 3)
	assert.Equal(t, spec.VariantEnum, pet.Properties[0].Schema.Variant)
	assert.True(t, pet.Properties[1].Required)
	assert.Equal(t, spec.VariantMap, pet.Properties[2].Schema.Variant)
	assert.Equal(t, "string", pet.Properties[2].Schema.Items.PrimitiveType)
}

func TestParsers(t *testing.T) {
	p, ok := ByName("asyncapi")
	require.True(t, ok)
	assert.IsType(t, &AsyncAPI{}, p)

	_, ok = ByName("raml")
	assert.False(t, ok)
}
