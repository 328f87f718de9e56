package gen

import (
	"fmt"
	"regexp"
	"strings"

	jen "github.com/dave/jennifer/jen"
)

var substRe = regexp.MustCompile(`\{\{\s?\.([a-zA-Z0-9]+)\s?\}\}`)

// Template mixes jen code with a string template,
// "{{ .name }}" is replaced with the code of the value "name".
// Value names are case insensitive.
func Template(template string, values IntoValues, options ...TemplatingOption) (jen.Code, error) {
	opts := &templatingOptions{}
	for _, o := range options {
		o(opts)
	}

	vals := make(Values, len(values.Values()))
	for k, v := range values.Values() {
		vals[strings.ToLower(strings.TrimSpace(k))] = v
	}

	indices := substRe.FindAllStringSubmatchIndex(template, -1)
	if len(indices) == 0 {
		return Raw(template), nil
	}

	c := jen.Null()

	var lastIdx int
	for _, idx := range indices {
		codeKey := template[idx[2]:idx[3]]

		substCode, ok := vals[strings.ToLower(codeKey)]
		if !ok {
			if opts.skipNotFound {
				c.Op(template[lastIdx:idx[1]])
				lastIdx = idx[1]
				continue
			}

			return nil, fmt.Errorf("no code substitution for \"%v\" found", codeKey)
		}

		c.Op(template[lastIdx:idx[0]]).Add(substCode)
		lastIdx = idx[1]
	}

	c.Op(template[lastIdx:])

	return c, nil
}

// MustTemplate is like Template, but panics on error.
func MustTemplate(template string, values IntoValues, options ...TemplatingOption) jen.Code {
	c, err := Template(template, values, options...)
	if err != nil {
		panic(err)
	}
	return c
}

// Values are code substitution values for templating.
type Values map[string]jen.Code

// IntoValues is anything that can provide substitution values.
type IntoValues interface {
	Values() Values
}

// Values implements IntoValues
func (v Values) Values() Values {
	return v
}

type templatingOptions struct {
	skipNotFound bool
}

// TemplatingOption is used to set templating options
type TemplatingOption func(*templatingOptions)

// SkipNotFound is an option to leave not found values
// untouched in the template.
func SkipNotFound() TemplatingOption {
	return func(t *templatingOptions) {
		t.skipNotFound = true
	}
}
