package transformer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tamasfe/courier/pkg/spec"
)

func testDocument() *spec.Document {
	order := &spec.Schema{
		Name:    "order",
		Variant: spec.VariantObject,
		Properties: []*spec.Property{
			{Name: "id", Schema: &spec.Schema{Variant: spec.VariantPrimitive, PrimitiveType: "string"}},
			{Name: "ID", Schema: &spec.Schema{Variant: spec.VariantPrimitive, PrimitiveType: "string"}},
			{Name: "-", Schema: &spec.Schema{Variant: spec.VariantPrimitive, PrimitiveType: "int"}},
		},
	}

	created := &spec.Message{Name: "order_created", Payload: order}

	return &spec.Document{
		Channels: []*spec.Channel{
			{
				ID:         "orders/{action}",
				Address:    "orders/{action}",
				Parameters: []*spec.Parameter{{Name: "action"}},
				Messages:   []*spec.Message{created},
				Operations: []*spec.Operation{
					{ID: "send", Action: spec.ActionSend, Messages: []*spec.Message{created}},
				},
			},
			{
				ID:       "shipments",
				Address:  "shipments",
				Messages: []*spec.Message{{Name: "shipped"}},
				Operations: []*spec.Operation{
					{ID: "send", Action: spec.ActionSend},
					{Action: spec.ActionReceive},
				},
			},
			{
				ID:      "internal/audit",
				Address: "internal/audit",
			},
		},
		Schemas: []*spec.Schema{order},
	}
}

func TestDefaultNames(t *testing.T) {
	doc := testDocument()

	err := (&Default{}).Transform(context.Background(), nil, doc)
	require.NoError(t, err)

	orders, shipments := doc.Channels[0], doc.Channels[1]

	assert.Equal(t, "OrdersAction", orders.GoName)
	assert.Equal(t, "Shipments", shipments.GoName)
	assert.Equal(t, "Action", orders.Parameters[0].GoName)

	assert.Equal(t, "Send", orders.Operations[0].GoName)
	assert.Equal(t, "ShipmentsSend", shipments.Operations[0].GoName)
	assert.Empty(t, shipments.Operations[1].GoName)

	assert.Equal(t, "OrderCreated", orders.Messages[0].GoName)
	assert.Equal(t, "Shipped", shipments.Messages[0].GoName)

	order := doc.Schemas[0]
	assert.Equal(t, "Order", order.GoName)
	assert.Equal(t, "ID", order.Properties[0].GoName)
	assert.Equal(t, "ID2", order.Properties[1].GoName)
	assert.Equal(t, "Field2", order.Properties[2].GoName)
}

func TestDefaultOptions(t *testing.T) {
	doc := testDocument()

	err := (&Default{}).Transform(context.Background(), map[string]interface{}{
		"exclude": []string{"^internal/"},
		"names": map[string]string{
			"orders/{action}": "Orders",
			"order":           "PurchaseOrder",
		},
		"nameTemplates": map[string]string{
			"message":   "{{ .Name | lower }}_event",
			"operation": "{{ .Channel }}_{{ .Name }}",
		},
	}, doc)
	require.NoError(t, err)

	require.Len(t, doc.Channels, 2)
	orders, shipments := doc.Channels[0], doc.Channels[1]

	assert.Equal(t, "Orders", orders.GoName)
	assert.Equal(t, "OrdersActionSend", orders.Operations[0].GoName)
	assert.Equal(t, "ShipmentsSend", shipments.Operations[0].GoName)
	assert.Equal(t, "OrderCreatedEvent", orders.Messages[0].GoName)
	assert.Equal(t, "PurchaseOrder", doc.Schemas[0].GoName)
}

func TestDefaultInclude(t *testing.T) {
	doc := testDocument()

	err := (&Default{}).Transform(context.Background(), map[string]interface{}{
		"include": []string{"^orders", "^shipments$"},
		"exclude": []string{"^shipments"},
	}, doc)
	require.NoError(t, err)

	require.Len(t, doc.Channels, 1)
	assert.Equal(t, "orders/{action}", doc.Channels[0].ID)
}

func TestDefaultKeepsNames(t *testing.T) {
	doc := testDocument()
	doc.Channels[0].GoName = "Custom"
	doc.Channels[0].Messages[0].GoName = "Created"

	err := (&Default{}).Transform(context.Background(), nil, doc)
	require.NoError(t, err)

	assert.Equal(t, "Custom", doc.Channels[0].GoName)
	assert.Equal(t, "Created", doc.Channels[0].Messages[0].GoName)
}

func TestDefaultInvalidOptions(t *testing.T) {
	tr := &Default{}

	err := tr.Transform(context.Background(), map[string]interface{}{"exclude": []string{"("}}, testDocument())
	assert.Error(t, err)

	err = tr.Transform(context.Background(), map[string]interface{}{
		"nameTemplates": map[string]string{"server": "{{ .Name }}"},
	}, testDocument())
	assert.Error(t, err)

	err = tr.Transform(context.Background(), map[string]interface{}{
		"nameTemplates": map[string]string{"message": "{{ .Name "},
	}, testDocument())
	assert.Error(t, err)

	err = tr.Transform(context.Background(), map[string]interface{}{"include": "orders"}, testDocument())
	assert.Error(t, err)
}

func TestDefaultDescription(t *testing.T) {
	desc := (&Default{}).DescriptionMarkdown()
	assert.Contains(t, desc, "nameTemplates")
	assert.Contains(t, desc, ".Channel|")
	assert.Contains(t, desc, "```yaml")
}
