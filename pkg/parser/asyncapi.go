package parser

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/tamasfe/courier/pkg/common"
	"github.com/tamasfe/courier/pkg/errs"
	"github.com/tamasfe/courier/pkg/spec"
	"github.com/tamasfe/courier/pkg/util"
	"gopkg.in/yaml.v3"
)

// AsyncAPIOptions are options for the AsyncAPI parser.
type AsyncAPIOptions struct {
	ExtensionName  string `mapstructure:"extensionName" yaml:"extensionName,omitempty" description:"The name of the extension field"`
	StripExtension bool   `mapstructure:"stripExtension" yaml:"stripExtension" description:"Strip the courier extension from the contract that is available to the generators, it is only needed for code generation"`
}

// MarshalYAML implements YAML Marshaler
func (o *AsyncAPIOptions) MarshalYAML() (interface{}, error) {
	return util.MarshalYAMLWithDescriptions(o)
}

// AsyncAPI parses AsyncAPI 2.x and 3.x documents in YAML or JSON.
type AsyncAPI struct{}

// Name implements Parser
func (a *AsyncAPI) Name() string {
	return "asyncapi"
}

// Description implements Parser
func (a *AsyncAPI) Description() string {
	return "Supports parsing AsyncAPI 2 and 3 documents"
}

// DescriptionMarkdown implements DescriptionMarkdown
func (a *AsyncAPI) DescriptionMarkdown() string {
	return describe(a)
}

// DefaultOptions implements Parser
func (a *AsyncAPI) DefaultOptions() interface{} {
	return &AsyncAPIOptions{
		ExtensionName:  DefaultExtensionName,
		StripExtension: true,
	}
}

// Parse implements Parser
func (a *AsyncAPI) Parse(ctx context.Context, rawOpts interface{}, data []byte) (*spec.Document, error) {
	opts := a.DefaultOptions().(*AsyncAPIOptions)
	if err := decodeOptions(rawOpts, opts); err != nil {
		return nil, err
	}

	raw, err := decodeDocument(data)
	if err != nil {
		return nil, err
	}

	version := str(raw["asyncapi"])
	if version == "" {
		return nil, errs.ErrMissing("asyncapi version")
	}

	r := &asyncAPIReader{
		root:     raw,
		opts:     opts,
		schemas:  make(map[string]*spec.Schema),
		messages: make(map[string]*spec.Message),
		channels: make(map[string]*spec.Channel),
	}

	info := mapOf(raw["info"])
	doc := &spec.Document{
		Title:   str(info["title"]),
		Version: str(info["version"]),
	}

	switch {
	case strings.HasPrefix(version, "2."):
		err = r.channelsV2(doc)
	case strings.HasPrefix(version, "3."):
		err = r.channelsV3(doc)
		if err == nil {
			err = r.operationsV3()
		}
	default:
		return nil, fmt.Errorf("unsupported AsyncAPI version %v", version)
	}
	if err != nil {
		return nil, err
	}

	components := mapOf(mapOf(raw["components"])["schemas"])
	for _, name := range sortedKeys(components) {
		s, err := r.schema(components[name], "#/components/schemas/"+escapePointer(name))
		if err != nil {
			return nil, fmt.Errorf("schema %v: %w", name, err)
		}
		doc.Schemas = append(doc.Schemas, s)
	}

	if state := common.StateFrom(ctx); state != nil {
		if opts.StripExtension {
			stripExtension(raw, opts.ExtensionName)
			b, err := json.Marshal(raw)
			if err != nil {
				return nil, err
			}
			state.SetSpecData(b)
		} else {
			state.SetSpecData(data)
		}
	}

	return doc, nil
}

// decodeDocument decodes JSON with jsoniter and everything else as YAML.
func decodeDocument(data []byte) (map[string]interface{}, error) {
	var raw map[string]interface{}

	if trimmed := bytes.TrimSpace(data); len(trimmed) != 0 && trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return nil, fmt.Errorf("invalid JSON document: %w", err)
		}
		return raw, nil
	}

	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid YAML document: %w", err)
	}
	if raw == nil {
		return nil, errs.ErrMissing("document")
	}

	return normalize(raw).(map[string]interface{}), nil
}

// asyncAPIReader converts the decoded document, values reached
// through the same reference are converted once.
type asyncAPIReader struct {
	root map[string]interface{}
	opts *AsyncAPIOptions

	schemas  map[string]*spec.Schema
	messages map[string]*spec.Message

	// channels by their JSON pointer
	channels map[string]*spec.Channel
}

const maxRefDepth = 32

// deref follows references, returning the value and its JSON pointer.
func (r *asyncAPIReader) deref(val interface{}, pointer string) (map[string]interface{}, string, error) {
	for i := 0; i < maxRefDepth; i++ {
		m := mapOf(val)
		if m == nil {
			return nil, pointer, nil
		}

		ref, ok := m["$ref"].(string)
		if !ok {
			return m, pointer, nil
		}
		if !strings.HasPrefix(ref, "#/") {
			return nil, "", fmt.Errorf("external reference %v is not supported", ref)
		}

		target, err := lookupPointer(r.root, ref)
		if err != nil {
			return nil, "", err
		}
		val, pointer = target, ref
	}
	return nil, "", fmt.Errorf("reference chain at %v is too deep", pointer)
}

func lookupPointer(root map[string]interface{}, pointer string) (interface{}, error) {
	var cur interface{} = root
	for _, part := range strings.Split(strings.TrimPrefix(pointer, "#/"), "/") {
		part = strings.NewReplacer("~1", "/", "~0", "~").Replace(part)
		switch v := cur.(type) {
		case map[string]interface{}:
			next, ok := v[part]
			if !ok {
				return nil, fmt.Errorf("unresolved reference %v", pointer)
			}
			cur = next
		case []interface{}:
			i, err := strconv.Atoi(part)
			if err != nil || i < 0 || i >= len(v) {
				return nil, fmt.Errorf("unresolved reference %v", pointer)
			}
			cur = v[i]
		default:
			return nil, fmt.Errorf("unresolved reference %v", pointer)
		}
	}
	return cur, nil
}

func escapePointer(s string) string {
	return strings.NewReplacer("~", "~0", "/", "~1").Replace(s)
}

func (r *asyncAPIReader) extension(m map[string]interface{}) (*spec.Extension, error) {
	ext, err := extension(m[r.opts.ExtensionName])
	if err == ErrExtNotFound {
		return nil, nil
	}
	return ext, err
}

func (r *asyncAPIReader) channelsV3(doc *spec.Document) error {
	channels := mapOf(r.root["channels"])

	for _, id := range sortedKeys(channels) {
		m, pointer, err := r.deref(channels[id], "#/channels/"+escapePointer(id))
		if err != nil {
			return fmt.Errorf("channel %v: %w", id, err)
		}
		if m == nil {
			continue
		}

		c := &spec.Channel{
			ID:          id,
			Address:     str(m["address"]),
			Description: str(m["description"]),
		}

		if c.Extension, err = r.extension(m); err != nil {
			return fmt.Errorf("channel %v: %w", id, err)
		}

		msgs := mapOf(m["messages"])
		for _, key := range sortedKeys(msgs) {
			msg, err := r.message(msgs[key], pointer+"/messages/"+escapePointer(key), key)
			if err != nil {
				return fmt.Errorf("channel %v: %w", id, err)
			}
			c.Messages = append(c.Messages, msg)
		}

		if c.Parameters, err = r.parameters(c.Address, mapOf(m["parameters"]), pointer+"/parameters"); err != nil {
			return fmt.Errorf("channel %v: %w", id, err)
		}

		r.channels[pointer] = c
		r.channels["#/channels/"+escapePointer(id)] = c
		doc.Channels = append(doc.Channels, c)
	}

	return nil
}

func (r *asyncAPIReader) operationsV3() error {
	operations := mapOf(r.root["operations"])

	for _, id := range sortedKeys(operations) {
		m, pointer, err := r.deref(operations[id], "#/operations/"+escapePointer(id))
		if err != nil {
			return fmt.Errorf("operation %v: %w", id, err)
		}
		if m == nil {
			continue
		}

		c, err := r.channelOf(m["channel"])
		if err != nil {
			return fmt.Errorf("operation %v: %w", id, err)
		}

		op := &spec.Operation{
			ID:          id,
			Action:      spec.Action(str(m["action"])),
			Description: str(m["description"]),
		}
		if op.Action != spec.ActionSend && op.Action != spec.ActionReceive {
			return fmt.Errorf("operation %v: invalid action %q", id, op.Action)
		}

		if op.Extension, err = r.extension(m); err != nil {
			return fmt.Errorf("operation %v: %w", id, err)
		}

		for i, raw := range sliceOf(m["messages"]) {
			msg, err := r.message(raw, pointer+"/messages/"+strconv.Itoa(i), "")
			if err != nil {
				return fmt.Errorf("operation %v: %w", id, err)
			}
			op.Messages = append(op.Messages, msg)
		}

		if reply, ok := m["reply"]; ok {
			if op.Reply, err = r.reply(reply, pointer+"/reply"); err != nil {
				return fmt.Errorf("operation %v reply: %w", id, err)
			}
		}

		c.Operations = append(c.Operations, op)
	}

	return nil
}

func (r *asyncAPIReader) channelOf(val interface{}) (*spec.Channel, error) {
	m := mapOf(val)
	ref, _ := m["$ref"].(string)
	if ref == "" {
		return nil, errs.ErrMissing("channel reference")
	}
	c, ok := r.channels[ref]
	if !ok {
		return nil, fmt.Errorf("unresolved channel reference %v", ref)
	}
	return c, nil
}

func (r *asyncAPIReader) reply(val interface{}, pointer string) (*spec.Reply, error) {
	m, pointer, err := r.deref(val, pointer)
	if err != nil {
		return nil, err
	}

	reply := &spec.Reply{}

	if address := mapOf(m["address"]); address != nil {
		reply.Address = str(address["location"])
	}

	var channelMsgs []*spec.Message
	if ch, ok := m["channel"]; ok {
		c, err := r.channelOf(ch)
		if err != nil {
			return nil, err
		}
		if reply.Address == "" {
			reply.Address = c.Address
		}
		channelMsgs = c.Messages
	}

	for i, raw := range sliceOf(m["messages"]) {
		msg, err := r.message(raw, pointer+"/messages/"+strconv.Itoa(i), "")
		if err != nil {
			return nil, err
		}
		reply.Messages = append(reply.Messages, msg)
	}

	if len(reply.Messages) == 0 {
		reply.Messages = channelMsgs
	}

	return reply, nil
}

func (r *asyncAPIReader) channelsV2(doc *spec.Document) error {
	channels := mapOf(r.root["channels"])

	for _, address := range sortedKeys(channels) {
		m, pointer, err := r.deref(channels[address], "#/channels/"+escapePointer(address))
		if err != nil {
			return fmt.Errorf("channel %v: %w", address, err)
		}
		if m == nil {
			continue
		}

		c := &spec.Channel{
			ID:          address,
			Address:     address,
			Description: str(m["description"]),
		}

		if c.Extension, err = r.extension(m); err != nil {
			return fmt.Errorf("channel %v: %w", address, err)
		}

		if c.Parameters, err = r.parameters(address, mapOf(m["parameters"]), pointer+"/parameters"); err != nil {
			return fmt.Errorf("channel %v: %w", address, err)
		}

		seen := make(map[*spec.Message]bool)
		for _, action := range []spec.Action{spec.ActionPublish, spec.ActionSubscribe} {
			raw, ok := m[string(action)]
			if !ok {
				continue
			}

			opMap, opPointer, err := r.deref(raw, pointer+"/"+string(action))
			if err != nil {
				return fmt.Errorf("channel %v %v: %w", address, action, err)
			}

			op := &spec.Operation{
				ID:          str(opMap["operationId"]),
				Action:      action,
				Description: str(opMap["description"]),
			}

			if op.Extension, err = r.extension(opMap); err != nil {
				return fmt.Errorf("channel %v %v: %w", address, action, err)
			}

			if op.Messages, err = r.messagesV2(opMap["message"], opPointer+"/message"); err != nil {
				return fmt.Errorf("channel %v %v: %w", address, action, err)
			}

			for _, msg := range op.Messages {
				if !seen[msg] {
					seen[msg] = true
					c.Messages = append(c.Messages, msg)
				}
			}

			c.Operations = append(c.Operations, op)
		}

		doc.Channels = append(doc.Channels, c)
	}

	return nil
}

// messagesV2 returns the message of an operation, or every
// message of a oneOf.
func (r *asyncAPIReader) messagesV2(val interface{}, pointer string) ([]*spec.Message, error) {
	m, pointer, err := r.deref(val, pointer)
	if err != nil || m == nil {
		return nil, err
	}

	oneOf, ok := m["oneOf"]
	if !ok {
		msg, err := r.message(m, pointer, "")
		if err != nil {
			return nil, err
		}
		return []*spec.Message{msg}, nil
	}

	var msgs []*spec.Message
	for i, raw := range sliceOf(oneOf) {
		msg, err := r.message(raw, pointer+"/oneOf/"+strconv.Itoa(i), "")
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

func (r *asyncAPIReader) message(val interface{}, pointer, key string) (*spec.Message, error) {
	m, pointer, err := r.deref(val, pointer)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, errs.ErrMissing("message", pointer)
	}

	if msg, ok := r.messages[pointer]; ok {
		return msg, nil
	}

	msg := &spec.Message{
		Name:        str(m["name"]),
		Description: str(m["description"]),
		ContentType: str(m["contentType"]),
	}
	if msg.Description == "" {
		msg.Description = str(m["summary"])
	}
	if msg.Name == "" {
		msg.Name = key
	}
	if msg.Name == "" {
		msg.Name = lastSegment(pointer)
	}
	r.messages[pointer] = msg

	if payload, ok := m["payload"]; ok {
		s, err := r.schema(payload, pointer+"/payload")
		if err != nil {
			return nil, fmt.Errorf("message %v: %w", msg.Name, err)
		}
		msg.Payload = s
	}

	if headers, ok := m["headers"]; ok {
		s, err := r.schema(headers, pointer+"/headers")
		if err != nil {
			return nil, fmt.Errorf("message %v headers: %w", msg.Name, err)
		}
		msg.Headers = s
	}

	return msg, nil
}

// parameters returns the parameters in the order they appear in
// the address, the ones not in the address are sorted by name.
func (r *asyncAPIReader) parameters(address string, params map[string]interface{}, pointer string) ([]*spec.Parameter, error) {
	if len(params) == 0 {
		return nil, nil
	}

	var names util.OrderedSet
	for _, name := range util.AddressParameters(address) {
		if _, ok := params[name]; ok {
			names.Add(name)
		}
	}
	names.Add(sortedKeys(params)...)

	out := make([]*spec.Parameter, 0, names.Len())
	for _, name := range names.Items() {
		m, paramPointer, err := r.deref(params[name], pointer+"/"+escapePointer(name))
		if err != nil {
			return nil, fmt.Errorf("parameter %v: %w", name, err)
		}

		p := &spec.Parameter{
			Name:        name,
			Description: str(m["description"]),
		}

		if s, ok := m["schema"]; ok {
			if p.Schema, err = r.schema(s, paramPointer+"/schema"); err != nil {
				return nil, fmt.Errorf("parameter %v: %w", name, err)
			}
		}

		out = append(out, p)
	}

	return out, nil
}

func (r *asyncAPIReader) schema(val interface{}, pointer string) (*spec.Schema, error) {
	m, pointer, err := r.deref(val, pointer)
	if err != nil {
		return nil, err
	}
	if m == nil {
		if b, ok := val.(bool); ok && b {
			return &spec.Schema{Variant: spec.VariantAny}, nil
		}
		return nil, errs.ErrMissing("schema", pointer)
	}

	if s, ok := r.schemas[pointer]; ok {
		return s, nil
	}

	s := &spec.Schema{
		Description: str(m["description"]),
	}
	if strings.HasPrefix(pointer, "#/components/schemas/") {
		s.Name = lastSegment(pointer)
	}
	r.schemas[pointer] = s

	if err := r.fillSchema(s, m, pointer); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *asyncAPIReader) fillSchema(s *spec.Schema, m map[string]interface{}, pointer string) error {
	typ := ""
	switch t := m["type"].(type) {
	case string:
		typ = t
	case []interface{}:
		for _, v := range t {
			if str(v) == "null" {
				s.Nullable = true
			} else if typ == "" {
				typ = str(v)
			}
		}
	}

	if nullable, ok := m["nullable"].(bool); ok && nullable {
		s.Nullable = true
	}

	if enum := sliceOf(m["enum"]); len(enum) != 0 && (typ == "" || typ == "string") {
		s.Variant = spec.VariantEnum
		for _, v := range enum {
			s.Enum = append(s.Enum, fmt.Sprint(v))
		}
		return nil
	}

	if allOf := sliceOf(m["allOf"]); len(allOf) != 0 {
		return r.allOf(s, allOf, pointer)
	}

	if _, ok := m["oneOf"]; ok && typ == "" {
		s.Variant = spec.VariantAny
		return nil
	}
	if _, ok := m["anyOf"]; ok && typ == "" {
		s.Variant = spec.VariantAny
		return nil
	}

	if typ == "" {
		if _, ok := m["properties"]; ok {
			typ = "object"
		}
	}

	switch typ {
	case "", "null":
		s.Variant = spec.VariantAny
	case "object":
		return r.object(s, m, pointer)
	case "array":
		s.Variant = spec.VariantArray
		if items, ok := m["items"]; ok {
			item, err := r.schema(items, pointer+"/items")
			if err != nil {
				return err
			}
			s.Items = item
		}
	case "string", "number", "integer", "boolean":
		s.Variant = spec.VariantPrimitive
		s.PrimitiveType, _ = primitiveType(typ, str(m["format"]))
	default:
		return fmt.Errorf("unknown type %v", typ)
	}

	return nil
}

func (r *asyncAPIReader) object(s *spec.Schema, m map[string]interface{}, pointer string) error {
	props := mapOf(m["properties"])

	if len(props) == 0 {
		s.Variant = spec.VariantMap
		if additional := mapOf(m["additionalProperties"]); additional != nil {
			item, err := r.schema(additional, pointer+"/additionalProperties")
			if err != nil {
				return err
			}
			s.Items = item
		}
		return nil
	}

	required := make(map[string]bool)
	for _, v := range sliceOf(m["required"]) {
		required[str(v)] = true
	}

	s.Variant = spec.VariantObject
	for _, name := range sortedKeys(props) {
		ps, err := r.schema(props[name], pointer+"/properties/"+escapePointer(name))
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

// allOf merges the properties of every object in the list.
func (r *asyncAPIReader) allOf(s *spec.Schema, parts []interface{}, pointer string) error {
	s.Variant = spec.VariantObject

	seen := make(map[string]bool)
	for i, raw := range parts {
		part, err := r.schema(raw, pointer+"/allOf/"+strconv.Itoa(i))
		if err != nil {
			return err
		}
		if part.Variant != spec.VariantObject {
			if len(parts) == 1 {
				name, desc := s.Name, s.Description
				*s = *part
				s.Name = name
				if desc != "" {
					s.Description = desc
				}
				return nil
			}
			continue
		}
		for _, p := range part.Properties {
			if seen[p.Name] {
				continue
			}
			seen[p.Name] = true
			s.Properties = append(s.Properties, p)
		}
	}

	return nil
}

func str(val interface{}) string {
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

func mapOf(val interface{}) map[string]interface{} {
	m, _ := val.(map[string]interface{})
	return m
}

func sliceOf(val interface{}) []interface{} {
	s, _ := val.([]interface{})
	return s
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func lastSegment(pointer string) string {
	parts := strings.Split(pointer, "/")
	return strings.NewReplacer("~1", "/", "~0", "~").Replace(parts[len(parts)-1])
}
