package templates

import (
	"github.com/dave/jennifer/jen"
	"github.com/tamasfe/courier/pkg/util/gen"
)

// Serialization encodes and decodes a payload type.
//
// Subst value examples:
//
// type: OrderCreated
// unmarshalFn: UnmarshalOrderCreated
// marshal: json.Marshal
// unmarshal: json.Unmarshal
//
var Serialization = `
// Marshal encodes the payload.
func (m {{ .type }}) Marshal() ([]byte, error) {
	return {{ .marshal }}(m)
}

func {{ .unmarshalFn }}(data []byte) ({{ .type }}, error) {
	var m {{ .type }}
	err := {{ .unmarshal }}(data, &m)
	return m, err
}
`[1:]

type SerializationValues struct {
	Type        jen.Code
	UnmarshalFn jen.Code
	Marshal     jen.Code
	Unmarshal   jen.Code
}

func (s *SerializationValues) Values() gen.Values {
	return gen.Values{
		"Type":        s.Type,
		"UnmarshalFn": s.UnmarshalFn,
		"Marshal":     s.Marshal,
		"Unmarshal":   s.Unmarshal,
	}
}

// SerializationDefaults returns the values for a type name with JSON encoding.
func SerializationDefaults(typeName string) *SerializationValues {
	return &SerializationValues{
		Type:        jen.Id(typeName),
		UnmarshalFn: jen.Id("Unmarshal" + typeName),
		Marshal:     jen.Qual("encoding/json", "Marshal"),
		Unmarshal:   jen.Qual("encoding/json", "Unmarshal"),
	}
}

// JSONForward forwards the JSON methods of the underlying
// type to a defined type.
var JSONForward = `
// MarshalJSON implements json.Marshaler
func (m {{ .type }}) MarshalJSON() ([]byte, error) {
	return {{ .underlying }}(m).MarshalJSON()
}

// UnmarshalJSON implements json.Unmarshaler
func (m *{{ .type }}) UnmarshalJSON(data []byte) error {
	return (*{{ .underlying }})(m).UnmarshalJSON(data)
}
`[1:]

type JSONForwardValues struct {
	Type       jen.Code
	Underlying jen.Code
}

func (j *JSONForwardValues) Values() gen.Values {
	return gen.Values{
		"Type":       j.Type,
		"Underlying": j.Underlying,
	}
}

// FromChannel matches a concrete subject against a channel
// address, the parameters are the submatches of "match".
//
// Subst value examples:
//
// params: []string{"{action}"}
// ret: p
//
var FromChannel = `
pattern := {{ .quote }}(channel)
for _, param := range {{ .params }} {
	quoted := {{ .quote }}(param)
	pattern = {{ .replace }}(pattern, quoted, "(.+?)", 1)
	pattern = {{ .replace }}(pattern, quoted, "(?:.+?)", -1)
}

re, err := {{ .compile }}("^" + pattern + "$")
if err != nil {
	return {{ .ret }}, err
}

match := re.FindStringSubmatch(subject)
if match == nil {
	return {{ .ret }}, {{ .errorf }}({{ .matchErr }}, subject, channel)
}
`[1:]

type FromChannelValues struct {
	Quote    jen.Code
	Replace  jen.Code
	Params   jen.Code
	Compile  jen.Code
	Errorf   jen.Code
	Ret      jen.Code
	MatchErr jen.Code
}

func (f *FromChannelValues) Values() gen.Values {
	return gen.Values{
		"Quote":    f.Quote,
		"Replace":  f.Replace,
		"Params":   f.Params,
		"Compile":  f.Compile,
		"Errorf":   f.Errorf,
		"Ret":      f.Ret,
		"MatchErr": f.MatchErr,
	}
}

// FromChannelDefaults returns the values using the standard library.
func FromChannelDefaults() *FromChannelValues {
	return &FromChannelValues{
		Quote:    jen.Qual("regexp", "QuoteMeta"),
		Replace:  jen.Qual("strings", "Replace"),
		Params:   jen.Index().String().Values(),
		Compile:  jen.Qual("regexp", "Compile"),
		Errorf:   jen.Qual("fmt", "Errorf"),
		Ret:      jen.Id("p"),
		MatchErr: jen.Lit("subject %q does not match channel %q"),
	}
}
