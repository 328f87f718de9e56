package golang

import (
	"bytes"
	"strings"
	"text/template"

	"github.com/tamasfe/courier/internal/markdown"
	"github.com/tamasfe/courier/pkg/generator"
	"github.com/tamasfe/courier/pkg/util"
)

const descriptionTemplate = `
# Description

{{ .Description }}

{{ .Details }}

# Options

## List of all options

{{ .OptionsTable }}

## Example usage in courier config

{{ .OptionsExample }}
`

func describe(g generator.Generator, details string) string {
	buf := &bytes.Buffer{}

	templ, err := template.New("desc").Parse(descriptionTemplate[1:])
	if err != nil {
		panic(err)
	}

	yamlComments := util.DisableYAMLMarshalComments
	util.DisableYAMLMarshalComments = true
	defer func() {
		util.DisableYAMLMarshalComments = yamlComments
	}()

	example := g.DefaultSpec()
	example.Options = util.StructToMap(g.DefaultOptions())

	err = templ.Execute(buf, map[string]interface{}{
		"Description":  g.Description(),
		"Details":      strings.TrimSpace(details),
		"OptionsTable": markdown.OptionsTable(g.DefaultOptions()),
		"OptionsExample": "```yaml\n" + string(util.MustMarshalYAML(map[string]interface{}{
			"generators": []*generator.Spec{example},
		})) + "```\n",
	})
	if err != nil {
		panic(err)
	}

	return buf.String()
}
