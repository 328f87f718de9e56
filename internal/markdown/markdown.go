package markdown

import (
	"bufio"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"unicode"

	"github.com/tamasfe/courier/pkg/functions"
	"gopkg.in/yaml.v3"
)

func sortedFields(tp reflect.Type) []reflect.StructField {
	fields := make([]reflect.StructField, 0, tp.NumField())
	for i := 0; i < tp.NumField(); i++ {
		if tp.Field(i).PkgPath != "" {
			continue
		}
		fields = append(fields, tp.Field(i))
	}

	sort.Slice(fields, func(i, j int) bool {
		return fields[i].Name < fields[j].Name
	})

	return fields
}

func tagName(field reflect.StructField) string {
	name := strings.Split(field.Tag.Get("yaml"), ",")[0]
	if name == "" {
		return field.Name
	}
	return name
}

// OptionsTable lists the fields of an options struct with
// their current values as defaults.
func OptionsTable(opts interface{}) string {
	var entriesBuilder strings.Builder

	optsVal := reflect.Indirect(reflect.ValueOf(opts))
	optsTp := optsVal.Type()

	entriesBuilder.WriteString(`
| Option | Description | Type | Default Value |
|:------:|-------------|:----:|:--------------|
`[1:])

	for _, field := range sortedFields(optsTp) {
		val := optsVal.FieldByIndex(field.Index).Interface()

		valB, err := yaml.Marshal(val)
		if err != nil {
			panic(err)
		}

		entriesBuilder.WriteString(
			strings.Join(
				[]string{
					tagName(field),
					field.Tag.Get("description") + ".",
					field.Type.String(),
					strings.Replace("<pre lang=\"yaml\">"+strings.TrimSuffix(string(valB), "\n")+"</pre>", "\n", "<br>", -1),
				},
				"|",
			) + "|\n",
		)
	}

	return entriesBuilder.String()
}

// ExtensionsTable lists the fields of an extension in the input documents.
func ExtensionsTable(ext interface{}) string {
	var entriesBuilder strings.Builder

	optsTp := reflect.Indirect(reflect.ValueOf(ext)).Type()

	entriesBuilder.WriteString(`
| Field | Description | Type |
|:-----:|-------------|:----:|
`[1:])

	for _, field := range sortedFields(optsTp) {
		entriesBuilder.WriteString(
			strings.Join(
				[]string{
					tagName(field),
					field.Tag.Get("description") + ".",
					field.Type.String(),
				},
				"|",
			) + "|\n",
		)
	}

	return entriesBuilder.String()
}

// ValuesTable lists the values available in a template.
func ValuesTable(values interface{}) string {
	var entriesBuilder strings.Builder

	optsTp := reflect.Indirect(reflect.ValueOf(values)).Type()

	entriesBuilder.WriteString(`
| Value | Description |
|:-----:|-------------|
`[1:])

	for _, field := range sortedFields(optsTp) {
		entriesBuilder.WriteString(
			strings.Join(
				[]string{
					"." + field.Name,
					field.Tag.Get("description"),
				},
				"|",
			) + "|\n",
		)
	}

	return entriesBuilder.String()
}

// TargetsTable lists named targets, e.g. presets, with their descriptions.
func TargetsTable(targets map[string]string) string {
	var entriesBuilder strings.Builder

	entriesBuilder.WriteString(`
| Target | Description |
|:------:|-------------|
`[1:])

	keys := make([]string, 0, len(targets))
	for k := range targets {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	for _, k := range keys {
		entriesBuilder.WriteString(
			strings.Join(
				[]string{
					k,
					targets[k],
				},
				"|") + "|\n",
		)
	}

	return entriesBuilder.String()
}

// FunctionsTable lists the entries of a function catalog in order.
func FunctionsTable(entries []functions.Entry) string {
	var entriesBuilder strings.Builder

	entriesBuilder.WriteString(`
| Type | Protocol | Direction | Request/Reply | Description |
|:----:|:--------:|:---------:|:-------------:|-------------|
`[1:])

	for _, e := range entries {
		rr := "no"
		if e.RequestReply {
			rr = "yes"
		}

		entriesBuilder.WriteString(
			strings.Join(
				[]string{
					"`" + string(e.Type) + "`",
					string(e.Protocol),
					e.Direction.String(),
					rr,
					e.Description,
				},
				"|",
			) + "|\n",
		)
	}

	return entriesBuilder.String()
}

// GenTOC prepends a table of contents of the headings in md,
// with GitHub style anchors.
func GenTOC(header, md string) string {
	var toc strings.Builder
	anchors := make(map[string]int)
	inCode := false

	scanner := bufio.NewScanner(strings.NewReader(md))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "```") {
			inCode = !inCode
			continue
		}
		if inCode || !strings.HasPrefix(line, "#") {
			continue
		}

		level := len(line) - len(strings.TrimLeft(line, "#"))
		title := strings.TrimSpace(line[level:])
		if title == "" {
			continue
		}

		anchor := anchorOf(title)
		if n := anchors[anchor]; n > 0 {
			anchors[anchor]++
			anchor = fmt.Sprintf("%v-%v", anchor, n)
		} else {
			anchors[anchor] = 1
		}

		fmt.Fprintf(&toc, "%v* [%v](#%v)\n", strings.Repeat("  ", level-1), title, anchor)
	}

	return header + toc.String() + "\n" + md
}

func anchorOf(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('-')
		}
	}
	return b.String()
}
