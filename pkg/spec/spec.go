package spec

// Document is an abstraction over an event or API contract.
//
// Parsers for AsyncAPI and Open API 3 both produce a Document,
// generators never see the original format.
type Document struct {
	// Title of the contract if any.
	Title string `json:"title"`

	// Version of the contract if any.
	Version string `json:"version"`

	// Channels in the order they were declared.
	Channels []*Channel `json:"channels"`

	// Schemas declared as reusable components.
	Schemas []*Schema `json:"schemas"`
}

// Channel returns the channel with the given id, or nil.
func (d *Document) Channel(id string) *Channel {
	for _, c := range d.Channels {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// Action is the semantic direction of an operation.
type Action string

const (
	ActionSend      Action = "send"
	ActionReceive   Action = "receive"
	ActionSubscribe Action = "subscribe"
	ActionPublish   Action = "publish"
)

// Extension holds the courier specific fields found in
// the contract under the extension key.
type Extension struct {
	FunctionTypeMapping []string `yaml:"functionTypeMapping,omitempty" json:"functionTypeMapping,omitempty" description:"Function types to generate for the channel or operation, overrides the generator configuration"`
}

// Channel is a named communication path carrying messages.
type Channel struct {
	// ID of the channel, unique in the document.
	ID string `json:"id"`

	// Address is the raw topic or path, e.g. "orders/{action}".
	Address string `json:"address"`

	// Description of the channel if any.
	Description string `json:"description"`

	// Method is the HTTP method for channels parsed from Open API paths.
	Method string `json:"method,omitempty"`

	// GoName is set by the transformer.
	GoName string `json:"goName"`

	Parameters []*Parameter `json:"parameters"`
	Messages   []*Message   `json:"messages"`
	Operations []*Operation `json:"operations"`

	// Extension is nil if the channel had no extension.
	Extension *Extension `json:"extension,omitempty"`
}

// Operation is a directed use of a channel.
type Operation struct {
	// ID of the operation, might be empty.
	ID string `json:"id"`

	Action Action `json:"action"`

	// Description of the operation if any.
	Description string `json:"description"`

	// GoName is set by the transformer.
	GoName string `json:"goName"`

	// Messages of the operation, the channel messages
	// are used when empty.
	Messages []*Message `json:"messages"`

	// Reply is set for request/reply operations.
	Reply *Reply `json:"reply,omitempty"`

	// Extension is nil if the operation had no extension.
	Extension *Extension `json:"extension,omitempty"`
}

// Reply describes the reply of a request/reply operation.
type Reply struct {
	// Address of the reply if it differs from the channel.
	Address  string     `json:"address,omitempty"`
	Messages []*Message `json:"messages"`
}

// Message is a single message type on a channel.
type Message struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	ContentType string `json:"contentType"`

	// GoName is set by the transformer.
	GoName string `json:"goName"`

	// Payload is nil for messages without a body.
	Payload *Schema `json:"payload"`

	// Headers is nil for messages without headers.
	Headers *Schema `json:"headers,omitempty"`
}

// Parameter is a substitution in the channel address.
type Parameter struct {
	Name        string `json:"name"`
	Description string `json:"description"`

	// GoName is set by the transformer.
	GoName string `json:"goName"`

	// Schema of the parameter, strings are assumed if nil.
	Schema *Schema `json:"schema"`
}

// PayloadID returns the key used for looking up the payload
// of the operation, the operation id or "<channel id>_<action>"
// for operations without one.
func (o *Operation) PayloadID(c *Channel) string {
	if o.ID != "" {
		return o.ID
	}
	return c.ID + "_" + string(o.Action)
}

// ReplyID returns the key used for looking up the reply payload.
func (o *Operation) ReplyID(c *Channel) string {
	return o.PayloadID(c) + "_reply"
}

// MessagesOf returns the messages of the operation, falling back to the
// messages of the channel.
func (o *Operation) MessagesOf(c *Channel) []*Message {
	if len(o.Messages) != 0 {
		return o.Messages
	}
	return c.Messages
}
