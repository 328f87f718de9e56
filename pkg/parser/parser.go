package parser

import (
	"context"
	jsonstd "encoding/json"
	"errors"
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/mitchellh/mapstructure"
	"github.com/tamasfe/courier/internal/markdown"
	"github.com/tamasfe/courier/pkg/spec"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DefaultExtensionName is the key of the courier extension
// in the input documents.
const DefaultExtensionName = "x-courier"

// Parser parses a contract, and returns
// the document needed for code generation.
type Parser interface {
	// The name of the parser.
	Name() string

	// A short description of the parser.
	Description() string

	// DefaultOptions Returns the default options of the parser, or nil if it has none.
	DefaultOptions() interface{}

	// Parse parses a contract from data.
	Parse(ctx context.Context, options interface{}, data []byte) (*spec.Document, error)
}

// Parsers returns every available parser.
func Parsers() []Parser {
	return []Parser{
		&AsyncAPI{},
		&OpenAPI3{},
	}
}

// ByName returns the parser with the given name.
func ByName(name string) (Parser, bool) {
	for _, p := range Parsers() {
		if p.Name() == name {
			return p, true
		}
	}
	return nil, false
}

// ErrExtNotFound is returned if an extension doesn't exist
var ErrExtNotFound = errors.New("extension not found")

func decodeOptions(raw interface{}, opts interface{}) error {
	if raw == nil {
		return nil
	}
	if err := mapstructure.Decode(raw, opts); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}
	return nil
}

// extension decodes the courier extension from raw, which is
// either a decoded value or raw JSON.
func extension(raw interface{}) (*spec.Extension, error) {
	var data []byte
	switch v := raw.(type) {
	case nil:
		return nil, ErrExtNotFound
	case []byte:
		data = v
	case jsonstd.RawMessage:
		data = v
	case jsoniter.RawMessage:
		data = v
	default:
		b, err := json.Marshal(normalize(v))
		if err != nil {
			return nil, err
		}
		data = b
	}

	var ext spec.Extension
	if err := json.Unmarshal(data, &ext); err != nil {
		return nil, fmt.Errorf("invalid extension: %w", err)
	}
	return &ext, nil
}

// normalize converts the maps produced by YAML decoders
// into maps with string keys.
func normalize(val interface{}) interface{} {
	switch v := val.(type) {
	case map[interface{}]interface{}:
		m := make(map[string]interface{}, len(v))
		for k, item := range v {
			m[fmt.Sprint(k)] = normalize(item)
		}
		return m
	case map[string]interface{}:
		for k, item := range v {
			v[k] = normalize(item)
		}
		return v
	case []interface{}:
		for i, item := range v {
			v[i] = normalize(item)
		}
		return v
	default:
		return v
	}
}

// stripExtension removes the extension from every object in m.
func stripExtension(m map[string]interface{}, extName string) {
	delete(m, extName)
	for _, val := range m {
		stripValue(val, extName)
	}
}

func stripValue(val interface{}, extName string) {
	switch v := val.(type) {
	case map[string]interface{}:
		stripExtension(v, extName)
	case []interface{}:
		for _, item := range v {
			stripValue(item, extName)
		}
	}
}

// primitiveType returns the Go type of a JSON schema primitive.
func primitiveType(typ, format string) (string, bool) {
	switch typ {
	case "string":
		switch format {
		case "date", "date-time":
			return "time.Time", true
		default:
			return "string", true
		}
	case "number":
		if format == "float" {
			return "float32", true
		}
		return "float64", true
	case "integer":
		switch format {
		case "int32":
			return "int32", true
		case "int64":
			return "int64", true
		default:
			return "int", true
		}
	case "boolean":
		return "bool", true
	default:
		return "", false
	}
}

func describe(p Parser) string {
	return p.Description() + `.

# Options

` + markdown.OptionsTable(p.DefaultOptions()) + `
# Extension

Channels and operations can carry the extension, the value of
an operation takes precedence over the value of its channel.

` + markdown.ExtensionsTable(&spec.Extension{})
}
