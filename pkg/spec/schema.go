package spec

// SchemaVariant defines the variant of the schema.
type SchemaVariant string

const (
	// VariantPrimitive is a schema with a simple Go type.
	VariantPrimitive SchemaVariant = "primitive"

	// VariantAny is a schema where the type can be anything.
	VariantAny SchemaVariant = "any"

	// VariantArray is a list of its items.
	VariantArray SchemaVariant = "array"

	// VariantObject is a struct with properties.
	VariantObject SchemaVariant = "object"

	// VariantMap is an object with additional properties only.
	VariantMap SchemaVariant = "map"

	// VariantEnum is a string with a set of allowed values.
	VariantEnum SchemaVariant = "enum"
)

// Schema is an abstraction over a contract schema.
type Schema struct {
	// Name is the name of the schema if it was declared
	// as a component, empty for inline schemas.
	Name string `json:"name"`

	// GoName is set by the transformer.
	GoName string `json:"goName"`

	Description string `json:"description"`

	Variant SchemaVariant `json:"variant"`

	// PrimitiveType is the Go type of primitive schemas,
	// e.g. "string", "int64" or "time.Time".
	PrimitiveType string `json:"primitiveType,omitempty"`

	// Properties of object schemas in a stable order.
	Properties []*Property `json:"properties,omitempty"`

	// Items of array schemas, or the value schema of maps.
	Items *Schema `json:"items,omitempty"`

	// Enum values of enum schemas.
	Enum []string `json:"enum,omitempty"`

	Nullable bool `json:"nullable,omitempty"`
}

// Property is a named field of an object schema.
type Property struct {
	Name     string  `json:"name"`
	GoName   string  `json:"goName"`
	Required bool    `json:"required"`
	Schema   *Schema `json:"schema"`
}

// IsNamed reports whether the schema was declared as a component.
func (s *Schema) IsNamed() bool {
	return s != nil && s.Name != ""
}

// Walk calls fn for the schema and every schema nested in it,
// parents before children. Named schemas are visited once.
func (s *Schema) Walk(fn func(*Schema)) {
	s.walk(fn, map[*Schema]bool{})
}

func (s *Schema) walk(fn func(*Schema), visited map[*Schema]bool) {
	if s == nil || visited[s] {
		return
	}
	visited[s] = true
	fn(s)
	for _, p := range s.Properties {
		p.Schema.walk(fn, visited)
	}
	s.Items.walk(fn, visited)
}
