package golang

import (
	"fmt"

	"github.com/dave/jennifer/jen"
	"github.com/tamasfe/courier/pkg/functions"
	"github.com/tamasfe/courier/pkg/spec"
	"github.com/tamasfe/courier/pkg/util"
)

const echoPkg = "github.com/labstack/echo/v4"

// EventSource renders server-sent event clients and echo handlers.
type EventSource struct{}

// Protocol implements ProtocolRenderer
func (e *EventSource) Protocol() functions.Protocol {
	return functions.ProtocolEventSource
}

// PackageName implements ProtocolRenderer
func (e *EventSource) PackageName() string {
	return "eventsource"
}

// Topic implements ProtocolRenderer
func (e *EventSource) Topic(c *spec.Channel, opts *ChannelsOptions) string {
	if len(c.Address) != 0 && c.Address[0] != '/' {
		return "/" + c.Address
	}
	return c.Address
}

// Render implements ProtocolRenderer
func (e *EventSource) Render(t functions.Type, in *RenderInput) (*RenderedFunction, error) {
	var name, doc, template string
	var deps []string

	switch t {
	case functions.EventSourceFetch:
		name = "ListenFor" + in.SubName
		doc = fmt.Sprintf("%v connects to the %v event stream of the server at baseURL and calls onMessage for every event until the stream ends.", name, in.Topic)
		template = eventSourceFetch
	case functions.EventSourceExpress:
		name = "Register" + in.SubName
		doc = fmt.Sprintf("%v registers an event stream handler for %v. Events are written with send until handle returns.", name, in.Topic)
		template = eventSourceExpress
		deps = append(deps, echoPkg)
	default:
		return nil, fmt.Errorf("unsupported event source function type %v", t)
	}

	vals := in.values(name)
	vals["context"] = jen.Qual("context", "Context")
	vals["client"] = jen.Qual("net/http", "Client")
	vals["newRequest"] = jen.Qual("net/http", "NewRequestWithContext")
	vals["methodGet"] = jen.Qual("net/http", "MethodGet")
	vals["statusOK"] = jen.Qual("net/http", "StatusOK")
	vals["errorf"] = jen.Qual("fmt", "Errorf")
	vals["fprintf"] = jen.Qual("fmt", "Fprintf")
	vals["newScanner"] = jen.Qual("bufio", "NewScanner")
	vals["hasPrefix"] = jen.Qual("strings", "HasPrefix")
	vals["trimPrefix"] = jen.Qual("strings", "TrimPrefix")
	vals["trimSpace"] = jen.Qual("strings", "TrimSpace")
	vals["echo"] = jen.Qual(echoPkg, "Echo")
	vals["echoContext"] = jen.Qual(echoPkg, "Context")
	vals["headerContentType"] = jen.Qual(echoPkg, "HeaderContentType")
	vals["route"] = jen.Lit(util.ParamStyleToColon(in.Topic))

	ext, err := in.extract(jen.Id("c").Dot("Request").Call().Dot("URL").Dot("Path"), "return err", vals)
	if err != nil {
		return nil, err
	}
	vals["extract"] = ext

	code, err := in.render(doc, template, vals)
	if err != nil {
		return nil, err
	}

	return in.function(name, t, code, deps...), nil
}

const eventSourceFetch = `
func {{ .name }}(ctx {{ .context }}, client *{{ .client }}, baseURL string, onMessage func(message {{ .msgType }}, err error){{ .paramArg }}) error {
	req, err := {{ .newRequest }}(ctx, {{ .methodGet }}, baseURL+{{ .subject }}, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != {{ .statusOK }} {
		return {{ .errorf }}("unexpected status %v", resp.Status)
	}

	scanner := {{ .newScanner }}(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !{{ .hasPrefix }}(line, "data:") {
			continue
		}
		message, err := {{ .unmarshal }}([]byte({{ .trimSpace }}({{ .trimPrefix }}(line, "data:"))))
		onMessage(message, err)
	}

	return scanner.Err()
}
`

const eventSourceExpress = `
func {{ .name }}(e *{{ .echo }}, handle func(c {{ .echoContext }}, send func(message {{ .msgType }}) error{{ .paramCb }}) error) {
	e.GET({{ .route }}, func(c {{ .echoContext }}) error {
		{{ .extract }}
		res := c.Response()
		res.Header().Set({{ .headerContentType }}, "text/event-stream")
		res.Header().Set("Cache-Control", "no-cache")
		res.WriteHeader({{ .statusOK }})

		send := func(message {{ .msgType }}) error {
			data, err := message.Marshal()
			if err != nil {
				return err
			}
			if _, err := {{ .fprintf }}(res, "data: %s\n\n", data); err != nil {
				return err
			}
			res.Flush()
			return nil
		}

		return handle(c, send{{ .paramVal }})
	})
}
`
