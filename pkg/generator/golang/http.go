package golang

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/dave/jennifer/jen"
	"github.com/tamasfe/courier/pkg/functions"
	"github.com/tamasfe/courier/pkg/spec"
	"github.com/tamasfe/courier/pkg/util"
)

// HTTPClient renders net/http client calls for channels
// parsed from Open API paths.
type HTTPClient struct{}

// Protocol implements ProtocolRenderer
func (h *HTTPClient) Protocol() functions.Protocol {
	return functions.ProtocolHTTPClient
}

// PackageName implements ProtocolRenderer
func (h *HTTPClient) PackageName() string {
	return "httpclient"
}

// Topic implements ProtocolRenderer
func (h *HTTPClient) Topic(c *spec.Channel, opts *ChannelsOptions) string {
	if len(c.Address) != 0 && c.Address[0] != '/' {
		return "/" + c.Address
	}
	return c.Address
}

func hasBody(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodDelete, http.MethodOptions:
		return false
	default:
		return true
	}
}

// Render implements ProtocolRenderer
func (h *HTTPClient) Render(t functions.Type, in *RenderInput) (*RenderedFunction, error) {
	if t != functions.HTTPClient {
		return nil, fmt.Errorf("unsupported HTTP function type %v", t)
	}
	if in.Reply == nil {
		return nil, fmt.Errorf("%v needs a reply payload", t)
	}

	method := strings.ToUpper(in.Channel.Method)
	if method == "" {
		method = http.MethodPost
	}

	name := util.ToGoName(strings.ToLower(method)) + in.SubName

	vals := in.values(name)
	vals["context"] = jen.Qual("context", "Context")
	vals["client"] = jen.Qual("net/http", "Client")
	vals["newRequest"] = jen.Qual("net/http", "NewRequestWithContext")
	vals["method"] = jen.Lit(method)
	vals["readAll"] = jen.Qual("io", "ReadAll")
	vals["errorf"] = jen.Qual("fmt", "Errorf")

	if hasBody(method) {
		vals["requestArg"] = jen.Op(",").Id("request").Add(in.Message.Type())
		vals["marshal"] = jen.Op(`payload, err := request.Marshal()
	if err != nil {
		return reply, err
	}
	body := `).Qual("bytes", "NewReader").Call(jen.Id("payload"))
	} else {
		vals["requestArg"] = jen.Null()
		vals["marshal"] = jen.Op("var body").Qual("io", "Reader")
	}

	doc := fmt.Sprintf("%v sends a %v request to %v relative to baseURL and decodes the response.", name, method, in.Topic)
	code, err := in.render(doc, httpClientCall, vals)
	if err != nil {
		return nil, err
	}

	return in.function(name, t, code), nil
}

const httpClientCall = `
func {{ .name }}(ctx {{ .context }}, client *{{ .client }}, baseURL string{{ .requestArg }}{{ .paramArg }}) ({{ .replyType }}, error) {
	var reply {{ .replyType }}
	{{ .marshal }}

	req, err := {{ .newRequest }}(ctx, {{ .method }}, baseURL+{{ .subject }}, body)
	if err != nil {
		return reply, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return reply, err
	}
	defer resp.Body.Close()

	data, err := {{ .readAll }}(resp.Body)
	if err != nil {
		return reply, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return reply, {{ .errorf }}("unexpected status %v: %s", resp.Status, data)
	}
	if len(data) == 0 {
		return reply, nil
	}

	return {{ .unmarshalReply }}(data)
}
`
