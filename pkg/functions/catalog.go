// Package functions contains the catalog of protocol function types
// and the rules deciding which of them are generated for an operation.
package functions

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tamasfe/courier/pkg/errs"
)

// Type is a protocol function variant, e.g. "nats_publish".
type Type string

// Function types known to the default catalog.
const (
	NATSJetStreamPublish       Type = "nats_jetstream_publish"
	NATSJetStreamPullSubscribe Type = "nats_jetstream_pull_subscribe"
	NATSJetStreamPushSubscribe Type = "nats_jetstream_push_subscribe"
	NATSSubscribe              Type = "nats_subscribe"
	NATSPublish                Type = "nats_publish"
	NATSRequest                Type = "nats_request"
	NATSReply                  Type = "nats_reply"

	MQTTPublish   Type = "mqtt_publish"
	MQTTSubscribe Type = "mqtt_subscribe"

	KafkaPublish   Type = "kafka_publish"
	KafkaSubscribe Type = "kafka_subscribe"

	AMQPExchangePublish Type = "amqp_exchange_publish"
	AMQPQueuePublish    Type = "amqp_queue_publish"
	AMQPQueueSubscribe  Type = "amqp_queue_subscribe"

	EventSourceFetch   Type = "event_source_fetch"
	EventSourceExpress Type = "event_source_express"

	WebSocketPublish   Type = "websocket_publish"
	WebSocketSubscribe Type = "websocket_subscribe"
	WebSocketRegister  Type = "websocket_register"

	HTTPClient Type = "http_client"
)

// Protocol is a transport a function type belongs to.
type Protocol string

const (
	ProtocolNATS        Protocol = "nats"
	ProtocolKafka       Protocol = "kafka"
	ProtocolMQTT        Protocol = "mqtt"
	ProtocolAMQP        Protocol = "amqp"
	ProtocolEventSource Protocol = "event_source"
	ProtocolWebSocket   Protocol = "websocket"
	ProtocolHTTPClient  Protocol = "http_client"
)

// Direction classifies a function type.
type Direction uint8

const (
	// Sending functions put messages on the channel.
	Sending Direction = 1 << iota
	// Receiving functions take messages off the channel.
	Receiving
)

// Sends reports whether the direction includes sending.
func (d Direction) Sends() bool {
	return d&Sending != 0
}

// Receives reports whether the direction includes receiving.
func (d Direction) Receives() bool {
	return d&Receiving != 0
}

func (d Direction) String() string {
	switch {
	case d.Sends() && d.Receives():
		return "sending, receiving"
	case d.Sends():
		return "sending"
	case d.Receives():
		return "receiving"
	default:
		return "none"
	}
}

// Entry is a row of the catalog.
type Entry struct {
	Type        Type      `yaml:"type"`
	Protocol    Protocol  `yaml:"protocol"`
	Direction   Direction `yaml:"-"`
	Description string    `yaml:"description"`

	// RequestReply entries are only generated for operations with a reply.
	RequestReply bool `yaml:"requestReply"`
}

// Catalog is an immutable table of function types.
type Catalog struct {
	entries []Entry
	index   map[Type]int
}

// NewCatalog creates a catalog, the order of the entries is kept.
func NewCatalog(entries ...Entry) (*Catalog, error) {
	c := &Catalog{
		entries: make([]Entry, 0, len(entries)),
		index:   make(map[Type]int, len(entries)),
	}

	for _, e := range entries {
		if e.Type == "" {
			return nil, fmt.Errorf("function type without a name for protocol %q", e.Protocol)
		}
		if _, ok := c.index[e.Type]; ok {
			return nil, fmt.Errorf("function type %q is listed more than once", e.Type)
		}
		c.index[e.Type] = len(c.entries)
		c.entries = append(c.entries, e)
	}

	return c, nil
}

// MustCatalog is like NewCatalog but panics on error.
func MustCatalog(entries ...Entry) *Catalog {
	c, err := NewCatalog(entries...)
	if err != nil {
		panic(err)
	}
	return c
}

// Default is the catalog of all supported function types.
var Default = MustCatalog(
	Entry{Type: NATSRequest, Protocol: ProtocolNATS, Direction: Sending, RequestReply: true, Description: "Core NATS request, waits for the reply"},
	Entry{Type: NATSReply, Protocol: ProtocolNATS, Direction: Receiving, RequestReply: true, Description: "Core NATS subscription answering requests"},
	Entry{Type: NATSPublish, Protocol: ProtocolNATS, Direction: Sending, Description: "Core NATS publish"},
	Entry{Type: NATSSubscribe, Protocol: ProtocolNATS, Direction: Receiving, Description: "Core NATS subscription"},
	Entry{Type: NATSJetStreamPullSubscribe, Protocol: ProtocolNATS, Direction: Receiving, Description: "JetStream pull consumer"},
	Entry{Type: NATSJetStreamPushSubscribe, Protocol: ProtocolNATS, Direction: Receiving, Description: "JetStream push subscription"},
	Entry{Type: NATSJetStreamPublish, Protocol: ProtocolNATS, Direction: Sending, Description: "JetStream publish with acknowledgement"},

	Entry{Type: KafkaPublish, Protocol: ProtocolKafka, Direction: Sending, Description: "Kafka producer"},
	Entry{Type: KafkaSubscribe, Protocol: ProtocolKafka, Direction: Receiving, Description: "Kafka consumer"},

	Entry{Type: MQTTPublish, Protocol: ProtocolMQTT, Direction: Sending, Description: "MQTT publish"},
	Entry{Type: MQTTSubscribe, Protocol: ProtocolMQTT, Direction: Receiving, Description: "MQTT subscription"},

	Entry{Type: AMQPExchangePublish, Protocol: ProtocolAMQP, Direction: Sending, Description: "AMQP publish to an exchange"},
	Entry{Type: AMQPQueuePublish, Protocol: ProtocolAMQP, Direction: Sending, Description: "AMQP publish to a queue"},
	Entry{Type: AMQPQueueSubscribe, Protocol: ProtocolAMQP, Direction: Receiving, Description: "AMQP queue consumer"},

	Entry{Type: EventSourceFetch, Protocol: ProtocolEventSource, Direction: Receiving, Description: "Server-sent events client"},
	Entry{Type: EventSourceExpress, Protocol: ProtocolEventSource, Direction: Sending, Description: "Server-sent events handler for echo"},

	Entry{Type: WebSocketPublish, Protocol: ProtocolWebSocket, Direction: Sending, Description: "Websocket write to an open connection"},
	Entry{Type: WebSocketSubscribe, Protocol: ProtocolWebSocket, Direction: Receiving, Description: "Websocket client reading messages"},
	Entry{Type: WebSocketRegister, Protocol: ProtocolWebSocket, Direction: Receiving, Description: "Websocket server handler reading messages"},

	Entry{Type: HTTPClient, Protocol: ProtocolHTTPClient, Direction: Sending, RequestReply: true, Description: "HTTP client call"},
)

// Lookup returns the entry of a function type.
func (c *Catalog) Lookup(t Type) (Entry, bool) {
	i, ok := c.index[t]
	if !ok {
		return Entry{}, false
	}
	return c.entries[i], true
}

// Entries returns a copy of all entries.
func (c *Catalog) Entries() []Entry {
	return append([]Entry(nil), c.entries...)
}

// ForProtocol returns the entries of a protocol in catalog order.
func (c *Catalog) ForProtocol(p Protocol) []Entry {
	var entries []Entry
	for _, e := range c.entries {
		if e.Protocol == p {
			entries = append(entries, e)
		}
	}
	return entries
}

// Protocols returns every protocol that has at least one entry.
func (c *Catalog) Protocols() []Protocol {
	seen := make(map[Protocol]bool)
	var protocols []Protocol
	for _, e := range c.entries {
		if !seen[e.Protocol] {
			seen[e.Protocol] = true
			protocols = append(protocols, e.Protocol)
		}
	}
	return protocols
}

// HasRequestReply reports whether the protocol has request/reply entries.
func (c *Catalog) HasRequestReply(p Protocol) bool {
	for _, e := range c.entries {
		if e.Protocol == p && e.RequestReply {
			return true
		}
	}
	return false
}

// Ambiguous returns the function types classified as both
// sending and receiving, sorted.
//
// ShouldRender treats them as eligible under either intent.
func (c *Catalog) Ambiguous() []Type {
	var types []Type
	for _, e := range c.entries {
		if e.Direction.Sends() && e.Direction.Receives() {
			types = append(types, e.Type)
		}
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// Validate returns a configuration error if any function type
// is ambiguous or has no direction at all.
func (c *Catalog) Validate() error {
	var problems []string

	if amb := c.Ambiguous(); len(amb) != 0 {
		names := make([]string, len(amb))
		for i, t := range amb {
			names[i] = string(t)
		}
		problems = append(problems, "classified as both sending and receiving: "+strings.Join(names, ", "))
	}

	for _, e := range c.entries {
		if !e.Direction.Sends() && !e.Direction.Receives() {
			problems = append(problems, fmt.Sprintf("%v has no direction", e.Type))
		}
	}

	if len(problems) == 0 {
		return nil
	}

	return &errs.ConfigurationError{Reason: "function type catalog: " + strings.Join(problems, "; ")}
}
