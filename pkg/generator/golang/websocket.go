package golang

import (
	"fmt"
	"strings"

	"github.com/dave/jennifer/jen"
	"github.com/tamasfe/courier/pkg/functions"
	"github.com/tamasfe/courier/pkg/spec"
)

const websocketPkg = "github.com/gorilla/websocket"

// WebSocket renders functions for the gorilla websocket package.
type WebSocket struct{}

// Protocol implements ProtocolRenderer
func (w *WebSocket) Protocol() functions.Protocol {
	return functions.ProtocolWebSocket
}

// PackageName implements ProtocolRenderer
func (w *WebSocket) PackageName() string {
	return "websocket"
}

// Topic implements ProtocolRenderer
func (w *WebSocket) Topic(c *spec.Channel, opts *ChannelsOptions) string {
	if len(c.Address) != 0 && c.Address[0] != '/' {
		return "/" + c.Address
	}
	return c.Address
}

// Render implements ProtocolRenderer
func (w *WebSocket) Render(t functions.Type, in *RenderInput) (*RenderedFunction, error) {
	var name, doc, template string

	switch t {
	case functions.WebSocketPublish:
		name = "PublishTo" + in.SubName
		doc = fmt.Sprintf("%v writes a message to a connection of %v.", name, in.Topic)
		template = websocketPublish
	case functions.WebSocketSubscribe:
		name = "SubscribeTo" + in.SubName
		doc = fmt.Sprintf("%v connects to %v of the server at baseURL and calls onMessage for every message until the connection or ctx is closed.", name, in.Topic)
		template = websocketSubscribe
	case functions.WebSocketRegister:
		name = "Register" + in.SubName
		doc = fmt.Sprintf("%v registers a handler for %v that upgrades requests and calls onMessage for every message of the connection.", name, in.Topic)
		template = websocketRegister
	default:
		return nil, fmt.Errorf("unsupported websocket function type %v", t)
	}

	vals := in.values(name)
	vals["context"] = jen.Qual("context", "Context")
	vals["conn"] = jen.Qual(websocketPkg, "Conn")
	vals["dialer"] = jen.Qual(websocketPkg, "Dialer")
	vals["upgrader"] = jen.Qual(websocketPkg, "Upgrader")
	vals["textMessage"] = jen.Qual(websocketPkg, "TextMessage")
	vals["serveMux"] = jen.Qual("net/http", "ServeMux")
	vals["request"] = jen.Qual("net/http", "Request")
	vals["responseWriter"] = jen.Qual("net/http", "ResponseWriter")
	vals["notFound"] = jen.Qual("net/http", "NotFound")
	vals["pattern"] = jen.Lit(websocketPattern(in.Topic))

	ext, err := in.extract(jen.Id("r").Dot("URL").Dot("Path"), "{{ .notFound }}(w, r)\nreturn", vals)
	if err != nil {
		return nil, err
	}
	vals["extract"] = ext

	code, err := in.render(doc, template, vals)
	if err != nil {
		return nil, err
	}

	return in.function(name, t, code, websocketPkg), nil
}

// websocketPattern returns the ServeMux pattern of a topic,
// topics with parameters are matched on the path before the first one.
func websocketPattern(topic string) string {
	i := strings.Index(topic, "{")
	if i < 0 {
		return topic
	}
	return topic[:strings.LastIndex(topic[:i], "/")+1]
}

const websocketPublish = `
func {{ .name }}(conn *{{ .conn }}, message {{ .msgType }}) error {
	data, err := message.Marshal()
	if err != nil {
		return err
	}
	return conn.WriteMessage({{ .textMessage }}, data)
}
`

const websocketSubscribe = `
func {{ .name }}(ctx {{ .context }}, dialer *{{ .dialer }}, baseURL string, onMessage func(message {{ .msgType }}, err error){{ .paramArg }}) error {
	conn, _, err := dialer.DialContext(ctx, baseURL+{{ .subject }}, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		message, err := {{ .unmarshal }}(data)
		onMessage(message, err)
	}
}
`

const websocketRegister = `
func {{ .name }}(mux *{{ .serveMux }}, upgrader *{{ .upgrader }}, onConnection func(conn *{{ .conn }}, r *{{ .request }}{{ .paramCb }}) error, onMessage func(message {{ .msgType }}, conn *{{ .conn }}, err error{{ .paramCb }})) {
	mux.HandleFunc({{ .pattern }}, func(w {{ .responseWriter }}, r *{{ .request }}) {
		{{ .extract }}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		if err := onConnection(conn, r{{ .paramVal }}); err != nil {
			return
		}

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			message, err := {{ .unmarshal }}(data)
			onMessage(message, conn, err{{ .paramVal }})
		}
	})
}
`
