// Package gen contains Jennifer helpers shared by
// the Go generators.
package gen

import (
	"fmt"
	"strings"

	jen "github.com/dave/jennifer/jen"
	"github.com/mitchellh/go-wordwrap"
)

// Comments creates comments from a list of strings
func Comments(comments ...string) jen.Code {
	text := strings.TrimSpace(strings.Join(comments, "\n"))
	if text == "" {
		return jen.Null()
	}

	code := jen.Null()
	for _, c := range strings.Split(wordwrap.WrapString(text, 80), "\n") {
		code.Comment(c).Line()
	}
	return code
}

// Qual is jen.Qual, or jen.Id if path is empty.
func Qual(path, name string) *jen.Statement {
	if path == "" {
		return jen.Id(name)
	}

	return jen.Qual(path, name)
}

// Raw inserts the string as it is.
func Raw(str string) *jen.Statement {
	return jen.Op(str)
}

type primitiveParser struct {
	template string
	values   Values
}

var primitiveParsers = map[string]primitiveParser{
	"int": {
		template: `if _parsed, err := {{ .parse }}({{ .str }}, 10, 64); err == nil {
	{{ .dst }} = int(_parsed)
} else {
	return {{ .ret }}, err
}`,
		values: Values{"parse": jen.Qual("strconv", "ParseInt")},
	},
	"int32": {
		template: `if _parsed, err := {{ .parse }}({{ .str }}, 10, 32); err == nil {
	{{ .dst }} = int32(_parsed)
} else {
	return {{ .ret }}, err
}`,
		values: Values{"parse": jen.Qual("strconv", "ParseInt")},
	},
	"int64": {
		template: `if _parsed, err := {{ .parse }}({{ .str }}, 10, 64); err == nil {
	{{ .dst }} = _parsed
} else {
	return {{ .ret }}, err
}`,
		values: Values{"parse": jen.Qual("strconv", "ParseInt")},
	},
	"bool": {
		template: `if _parsed, err := {{ .parse }}({{ .str }}); err == nil {
	{{ .dst }} = _parsed
} else {
	return {{ .ret }}, err
}`,
		values: Values{"parse": jen.Qual("strconv", "ParseBool")},
	},
	"float32": {
		template: `if _parsed, err := {{ .parse }}({{ .str }}, 32); err == nil {
	{{ .dst }} = float32(_parsed)
} else {
	return {{ .ret }}, err
}`,
		values: Values{"parse": jen.Qual("strconv", "ParseFloat")},
	},
	"float64": {
		template: `if _parsed, err := {{ .parse }}({{ .str }}, 64); err == nil {
	{{ .dst }} = _parsed
} else {
	return {{ .ret }}, err
}`,
		values: Values{"parse": jen.Qual("strconv", "ParseFloat")},
	},
}

// PrimitiveFromString generates code parsing the string expression str
// into dst. On failure the generated code returns ret and the error.
func PrimitiveFromString(primitiveType string, dst, str, ret jen.Code) (jen.Code, error) {
	if primitiveType == "string" || primitiveType == "" {
		return jen.Add(dst).Op("=").Add(str), nil
	}

	p, ok := primitiveParsers[primitiveType]
	if !ok {
		return nil, fmt.Errorf("cannot parse %v from a string", primitiveType)
	}

	vals := Values{
		"str": str,
		"dst": dst,
		"ret": ret,
	}
	for k, v := range p.values {
		vals[k] = v
	}

	return Template(p.template, vals)
}
