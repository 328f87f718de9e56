package parser

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/tamasfe/courier/pkg/common"
	"github.com/tamasfe/courier/pkg/errs"
	"github.com/tamasfe/courier/pkg/spec"
	"github.com/tamasfe/courier/pkg/util"
	"github.com/tamasfe/courier/pkg/util/cli"
)

// OpenAPI3Options are options for the OpenAPI 3 parser.
type OpenAPI3Options struct {
	ExtensionName       string `mapstructure:"extensionName" yaml:"extensionName,omitempty" description:"The name of the extension field"`
	ResolveReferencesAt string `mapstructure:"resolveReferencesAt" yaml:"resolveReferencesAt,omitempty" description:"Resolve references at the given URL"`
	StripExtension      bool   `mapstructure:"stripExtension" yaml:"stripExtension" description:"Strip the courier extension from the contract that is available to the generators, it is only needed for code generation"`
}

// MarshalYAML implements YAML Marshaler
func (o *OpenAPI3Options) MarshalYAML() (interface{}, error) {
	return util.MarshalYAMLWithDescriptions(o)
}

// OpenAPI3 parses Open API 3.x.x specifications. Every operation
// of every path becomes a channel with a single send operation,
// the reply of which is the first successful response.
type OpenAPI3 struct{}

// Name implements Parser
func (o *OpenAPI3) Name() string {
	return "openapi3"
}

// Description implements Parser
func (o *OpenAPI3) Description() string {
	return "Supports parsing Open API 3 specifications"
}

// DescriptionMarkdown implements DescriptionMarkdown
func (o *OpenAPI3) DescriptionMarkdown() string {
	return describe(o)
}

// DefaultOptions implements Parser
func (o *OpenAPI3) DefaultOptions() interface{} {
	return &OpenAPI3Options{
		ExtensionName:  DefaultExtensionName,
		StripExtension: true,
	}
}

// Parse implements Parser
func (o *OpenAPI3) Parse(ctx context.Context, rawOpts interface{}, data []byte) (*spec.Document, error) {
	opts := o.DefaultOptions().(*OpenAPI3Options)
	if err := decodeOptions(rawOpts, opts); err != nil {
		return nil, err
	}

	loader := openapi3.NewSwaggerLoader()

	swagger, err := loader.LoadSwaggerFromData(data)
	if err != nil {
		return nil, err
	}

	if opts.ResolveReferencesAt != "" {
		refURL, err := url.Parse(opts.ResolveReferencesAt)
		if err != nil {
			return nil, err
		}

		// It's not a fatal error, we can continue
		if err := loader.ResolveRefsIn(swagger, refURL); err != nil {
			cli.Warningf("Failed to resolve references at %v: %v\n", opts.ResolveReferencesAt, err)
		}
	}

	// The info object is read from the serialized document,
	// it is the same for every version of the loader.
	b, err := swagger.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, err
	}

	info := mapOf(raw["info"])
	r := &openAPIReader{
		opts:    opts,
		schemas: make(map[*openapi3.Schema]*spec.Schema),
	}
	doc := &spec.Document{
		Title:   str(info["title"]),
		Version: str(info["version"]),
	}

	if err := r.paths(doc, swagger); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(swagger.Components.Schemas))
	for name := range swagger.Components.Schemas {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		s, err := r.schema(swagger.Components.Schemas[name], name)
		if err != nil {
			return nil, fmt.Errorf("schema %v: %w", name, err)
		}
		doc.Schemas = append(doc.Schemas, s)
	}

	if state := common.StateFrom(ctx); state != nil {
		if opts.StripExtension {
			stripExtension(raw, opts.ExtensionName)
			b, err = json.Marshal(raw)
			if err != nil {
				return nil, err
			}
		}
		state.SetSpecData(b)
	}

	return doc, nil
}

type openAPIReader struct {
	opts    *OpenAPI3Options
	schemas map[*openapi3.Schema]*spec.Schema
}

func (r *openAPIReader) extension(extensions map[string]interface{}) (*spec.Extension, error) {
	ext, err := extension(extensions[r.opts.ExtensionName])
	if err == ErrExtNotFound {
		return nil, nil
	}
	return ext, err
}

func (r *openAPIReader) paths(doc *spec.Document, swagger *openapi3.Swagger) error {
	paths := make([]string, 0, len(swagger.Paths))
	for p := range swagger.Paths {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		item := swagger.Paths[p]
		if item == nil {
			continue
		}

		pathExt, err := r.extension(item.Extensions)
		if err != nil {
			return fmt.Errorf("path %v: %w", p, err)
		}

		ops := item.Operations()
		methods := make([]string, 0, len(ops))
		for m := range ops {
			methods = append(methods, m)
		}
		sort.Strings(methods)

		for _, method := range methods {
			c, err := r.operation(p, strings.ToUpper(method), item, ops[method])
			if err != nil {
				return fmt.Errorf("%v %v: %w", method, p, err)
			}
			if c.Extension == nil {
				c.Extension = pathExt
			}
			doc.Channels = append(doc.Channels, c)
		}
	}

	return nil
}

// operation converts a single operation to a channel.
func (r *openAPIReader) operation(path, method string, item *openapi3.PathItem, op *openapi3.Operation) (*spec.Channel, error) {
	id := op.OperationID
	if id == "" {
		id = strings.ToLower(method) + path
	}

	description := op.Description
	if description == "" {
		description = op.Summary
	}
	if description == "" {
		description = item.Description
	}

	c := &spec.Channel{
		ID:          id,
		Address:     path,
		Method:      method,
		Description: description,
	}

	params, err := r.parameters(path, item.Parameters, op.Parameters)
	if err != nil {
		return nil, err
	}
	c.Parameters = params

	request := &spec.Message{Name: id + "Request"}
	if op.RequestBody != nil && op.RequestBody.Value != nil {
		body := op.RequestBody.Value
		request.Description = body.Description
		if contentType, media := pickContent(body.Content); media != nil {
			request.ContentType = contentType
			if media.Schema != nil {
				if request.Payload, err = r.schema(media.Schema, ""); err != nil {
					return nil, fmt.Errorf("request body: %w", err)
				}
			}
		}
	}
	c.Messages = []*spec.Message{request}

	reply, err := r.reply(id, op.Responses)
	if err != nil {
		return nil, err
	}

	ext, err := r.extension(op.Extensions)
	if err != nil {
		return nil, err
	}

	c.Operations = []*spec.Operation{{
		ID:          id,
		Action:      spec.ActionSend,
		Description: description,
		Reply:       reply,
		Extension:   ext,
	}}

	return c, nil
}

// parameters returns the path parameters, the ones of the operation
// override the ones of the path item.
func (r *openAPIReader) parameters(path string, itemParams, opParams openapi3.Parameters) ([]*spec.Parameter, error) {
	byName := make(map[string]*openapi3.Parameter)
	for _, list := range []openapi3.Parameters{itemParams, opParams} {
		for _, p := range list {
			if p == nil || p.Value == nil || p.Value.In != "path" {
				continue
			}
			byName[p.Value.Name] = p.Value
		}
	}

	var out []*spec.Parameter
	for _, name := range util.AddressParameters(path) {
		p, ok := byName[name]
		if !ok {
			out = append(out, &spec.Parameter{Name: name})
			continue
		}

		param := &spec.Parameter{
			Name:        name,
			Description: p.Description,
		}
		if p.Schema != nil {
			s, err := r.schema(p.Schema, "")
			if err != nil {
				return nil, fmt.Errorf("parameter %v: %w", name, err)
			}
			param.Schema = s
		}
		out = append(out, param)
	}

	return out, nil
}

// reply returns the first successful response.
func (r *openAPIReader) reply(id string, responses openapi3.Responses) (*spec.Reply, error) {
	codes := make([]string, 0, len(responses))
	for code := range responses {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	msg := &spec.Message{Name: id + "Response"}

	for _, code := range codes {
		res := responses[code]
		if !strings.HasPrefix(code, "2") || res == nil || res.Value == nil {
			continue
		}

		msg.Description = res.Value.Description
		if contentType, media := pickContent(res.Value.Content); media != nil {
			msg.ContentType = contentType
			if media.Schema != nil {
				s, err := r.schema(media.Schema, "")
				if err != nil {
					return nil, fmt.Errorf("response %v: %w", code, err)
				}
				msg.Payload = s
			}
		}
		break
	}

	return &spec.Reply{Messages: []*spec.Message{msg}}, nil
}

// pickContent prefers JSON content, and falls back to the
// first content type in alphabetical order.
func pickContent(content openapi3.Content) (string, *openapi3.MediaType) {
	if media, ok := content["application/json"]; ok {
		return "application/json", media
	}

	types := make([]string, 0, len(content))
	for t := range content {
		types = append(types, t)
	}
	sort.Strings(types)

	for _, t := range types {
		if strings.HasSuffix(t, "+json") {
			return t, content[t]
		}
	}
	if len(types) != 0 {
		return types[0], content[types[0]]
	}
	return "", nil
}

// schema converts a schema, named is the component name if it is known.
func (r *openAPIReader) schema(ref *openapi3.SchemaRef, name string) (*spec.Schema, error) {
	if ref == nil {
		return nil, errs.ErrMissing("schema")
	}

	if ref.Value == nil {
		return nil, errs.ErrMissing("schema", ref.Ref)
	}

	if s, ok := r.schemas[ref.Value]; ok {
		return s, nil
	}

	if name == "" && strings.HasPrefix(ref.Ref, "#/components/schemas/") {
		name = strings.TrimPrefix(ref.Ref, "#/components/schemas/")
	}

	v := ref.Value
	s := &spec.Schema{
		Name:        name,
		Description: v.Description,
		Nullable:    v.Nullable,
	}
	r.schemas[v] = s

	if len(v.AllOf) != 0 {
		s.Variant = spec.VariantObject
		seen := make(map[string]bool)
		for _, part := range v.AllOf {
			ps, err := r.schema(part, "")
			if err != nil {
				return nil, err
			}
			for _, p := range ps.Properties {
				if !seen[p.Name] {
					seen[p.Name] = true
					s.Properties = append(s.Properties, p)
				}
			}
		}
		return s, nil
	}

	if len(v.AnyOf) != 0 || len(v.OneOf) != 0 {
		s.Variant = spec.VariantAny
		return s, nil
	}

	typ := strings.TrimSpace(v.Type)

	if len(v.Enum) != 0 && (typ == "" || typ == "string") {
		s.Variant = spec.VariantEnum
		for _, e := range v.Enum {
			s.Enum = append(s.Enum, fmt.Sprint(e))
		}
		return s, nil
	}

	if typ == "" && len(v.Properties) != 0 {
		typ = "object"
	}

	switch typ {
	case "":
		s.Variant = spec.VariantAny
	case "object":
		if err := r.object(s, v); err != nil {
			return nil, err
		}
	case "array":
		s.Variant = spec.VariantArray
		if v.Items != nil {
			item, err := r.schema(v.Items, "")
			if err != nil {
				return nil, err
			}
			s.Items = item
		}
	default:
		t, ok := primitiveType(typ, v.Format)
		if !ok {
			return nil, fmt.Errorf("unknown type %v", v.Type)
		}
		s.Variant = spec.VariantPrimitive
		s.PrimitiveType = t
	}

	return s, nil
}

func (r *openAPIReader) object(s *spec.Schema, v *openapi3.Schema) error {
	if len(v.Properties) == 0 {
		s.Variant = spec.VariantMap
		if v.AdditionalProperties != nil {
			item, err := r.schema(v.AdditionalProperties, "")
			if err != nil {
				return err
			}
			s.Items = item
		}
		return nil
	}

	required := make(map[string]bool, len(v.Required))
	for _, name := range v.Required {
		required[name] = true
	}

	names := make([]string, 0, len(v.Properties))
	for name := range v.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	s.Variant = spec.VariantObject
	for _, name := range names {
		ps, err := r.schema(v.Properties[name], "")
		if err != nil {
			return fmt.Errorf("property %v: %w", name, err)
		}
		s.Properties = append(s.Properties, &spec.Property{
			Name:     name,
			Required: required[name],
			Schema:   ps,
		})
	}

	return nil
}
