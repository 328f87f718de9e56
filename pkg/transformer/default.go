package transformer

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig"
	"github.com/mitchellh/mapstructure"
	"github.com/tamasfe/courier/internal/markdown"
	"github.com/tamasfe/courier/pkg/spec"
	"github.com/tamasfe/courier/pkg/util"
)

// Kinds of named elements.
const (
	KindChannel   = "channel"
	KindOperation = "operation"
	KindMessage   = "message"
	KindParameter = "parameter"
	KindSchema    = "schema"
)

// NameTemplateValues contains values for name templates.
type NameTemplateValues struct {
	Kind    string `description:"Kind of the element: channel, operation, message, parameter or schema"`
	Name    string `description:"Id or name of the element in the input document"`
	Channel string `description:"Id of the channel the element belongs to, empty for schemas"`
}

// DefaultOptions alters the behaviour of the code generator.
type DefaultOptions struct {
	Include       []string          `mapstructure:"include" yaml:"include,omitempty" description:"Regular expressions of channel ids to keep, every channel is kept if empty"`
	Exclude       []string          `mapstructure:"exclude" yaml:"exclude,omitempty" description:"Regular expressions of channel ids to remove"`
	Names         map[string]string `mapstructure:"names" yaml:"names,omitempty" description:"Go names by the id or name of channels, operations, messages and schemas"`
	NameTemplates map[string]string `mapstructure:"nameTemplates" yaml:"nameTemplates,omitempty" description:"Templates with sprig functions by kind, the results are converted to Go names"`
}

// MarshalYAML implements YAML Marshaler.
func (d *DefaultOptions) MarshalYAML() (interface{}, error) {
	return util.MarshalYAMLWithDescriptions(d)
}

// Default is the default Transformer.
type Default struct{}

// Name implements Transformer
func (d *Default) Name() string {
	return "default"
}

// Description implements Transformer
func (d *Default) Description() string {
	return "The default document transformer, it filters channels and assigns Go names"
}

// DescriptionMarkdown implements DescriptionMarkdown
func (d *Default) DescriptionMarkdown() string {
	desc := `
# Description

This transformer assigns the Go names used by every generator. Operation
names have to be unique across the document, as they end up in function names,
colliding operations are prefixed with the name of their channel.

# Options

## List of all options

{{ .OptionsTable }}

## Example usage in courier config

{{ .OptionsExample }}

### Name template values

{{ .ValuesTable }}

`[1:]

	buf := &bytes.Buffer{}

	templ, err := template.New("desc").Parse(desc)
	if err != nil {
		panic(err)
	}

	yamlComments := util.DisableYAMLMarshalComments

	util.DisableYAMLMarshalComments = true

	err = templ.Execute(buf,
		map[string]interface{}{
			"OptionsTable": markdown.OptionsTable(d.DefaultOptions()),
			"OptionsExample": "```yaml\n" + string(util.MustMarshalYAML(
				map[string]interface{}{
					"transformers": map[string]interface{}{
						"default": &DefaultOptions{
							Exclude: []string{"^internal/"},
							Names:   map[string]string{"orders/{action}": "Orders"},
							NameTemplates: map[string]string{
								KindMessage: "{{ .Name }}Event",
							},
						},
					},
				},
			)) + "```\n",
			"ValuesTable": markdown.ValuesTable(NameTemplateValues{}),
		},
	)
	if err != nil {
		panic(err)
	}

	util.DisableYAMLMarshalComments = yamlComments

	return buf.String()
}

// DefaultOptions implements Transformer
func (d *Default) DefaultOptions() interface{} {
	return &DefaultOptions{}
}

// Transform implements Transformer
func (d *Default) Transform(ctx context.Context, rawOpts interface{}, doc *spec.Document) error {
	opts := d.DefaultOptions().(*DefaultOptions)

	if rawOpts != nil {
		err := mapstructure.Decode(rawOpts, opts)
		if err != nil {
			return fmt.Errorf("invalid options: %w", err)
		}
	}

	err := d.FilterChannels(ctx, doc, opts)
	if err != nil {
		return err
	}

	n, err := newNamer(opts)
	if err != nil {
		return err
	}

	return n.document(doc)
}

// FilterChannels removes the channels not matching the options.
func (d *Default) FilterChannels(ctx context.Context, doc *spec.Document, opts *DefaultOptions) error {
	include, err := compileAll(opts.Include)
	if err != nil {
		return err
	}
	exclude, err := compileAll(opts.Exclude)
	if err != nil {
		return err
	}

	kept := doc.Channels[:0]
	for _, c := range doc.Channels {
		if len(include) != 0 && !matchAny(include, c.ID) {
			continue
		}
		if matchAny(exclude, c.ID) {
			continue
		}
		kept = append(kept, c)
	}
	doc.Channels = kept

	return nil
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	res := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid options: pattern %q: %w", p, err)
		}
		res[i] = re
	}
	return res, nil
}

func matchAny(res []*regexp.Regexp, s string) bool {
	for _, re := range res {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// namer assigns Go names to every element of a document.
type namer struct {
	opts      *DefaultOptions
	templates map[string]*template.Template

	schemas  map[*spec.Schema]bool
	messages map[*spec.Message]bool
}

func newNamer(opts *DefaultOptions) (*namer, error) {
	n := &namer{
		opts:      opts,
		templates: make(map[string]*template.Template, len(opts.NameTemplates)),
		schemas:   make(map[*spec.Schema]bool),
		messages:  make(map[*spec.Message]bool),
	}

	for kind, text := range opts.NameTemplates {
		switch kind {
		case KindChannel, KindOperation, KindMessage, KindParameter, KindSchema:
		default:
			return nil, fmt.Errorf("invalid options: unknown name template kind %q", kind)
		}

		templ, err := template.New(kind).Funcs(sprig.TxtFuncMap()).Parse(text)
		if err != nil {
			return nil, fmt.Errorf("invalid options: %v name template: %w", kind, err)
		}
		n.templates[kind] = templ
	}

	return n, nil
}

func (n *namer) name(kind, name, channel string) (string, error) {
	if goName, ok := n.opts.Names[name]; ok && kind != KindParameter {
		return goName, nil
	}

	if templ, ok := n.templates[kind]; ok {
		buf := &bytes.Buffer{}
		err := templ.Execute(buf, &NameTemplateValues{
			Kind:    kind,
			Name:    name,
			Channel: channel,
		})
		if err != nil {
			return "", fmt.Errorf("%v name template: %w", kind, err)
		}
		name = strings.TrimSpace(buf.String())
	}

	return util.ToGoName(name), nil
}

func unique(taken map[string]bool, name string) string {
	if !taken[name] {
		taken[name] = true
		return name
	}
	for i := 2; ; i++ {
		candidate := name + strconv.Itoa(i)
		if !taken[candidate] {
			taken[candidate] = true
			return candidate
		}
	}
}

func (n *namer) document(doc *spec.Document) error {
	channels := make(map[string]bool, len(doc.Channels))
	operations := make(map[string]bool)

	for _, c := range doc.Channels {
		if c.GoName == "" {
			name, err := n.name(KindChannel, c.ID, c.ID)
			if err != nil {
				return fmt.Errorf("channel %v: %w", c.ID, err)
			}
			c.GoName = name
		}
		c.GoName = unique(channels, c.GoName)
	}

	for _, c := range doc.Channels {
		if err := n.channel(c, operations); err != nil {
			return fmt.Errorf("channel %v: %w", c.ID, err)
		}
	}

	for _, s := range doc.Schemas {
		if err := n.schema(s); err != nil {
			return err
		}
	}

	return nil
}

func (n *namer) channel(c *spec.Channel, operations map[string]bool) error {
	params := make(map[string]bool, len(c.Parameters))
	for _, p := range c.Parameters {
		if p.GoName == "" {
			name, err := n.name(KindParameter, p.Name, c.ID)
			if err != nil {
				return err
			}
			p.GoName = name
		}
		p.GoName = unique(params, p.GoName)

		if err := n.schema(p.Schema); err != nil {
			return err
		}
	}

	if err := n.messageList(c.ID, c.Messages); err != nil {
		return err
	}

	for _, op := range c.Operations {
		if op.ID == "" {
			continue
		}

		if op.GoName == "" {
			name, err := n.name(KindOperation, op.ID, c.ID)
			if err != nil {
				return err
			}
			op.GoName = name
		}
		if operations[op.GoName] {
			op.GoName = c.GoName + op.GoName
		}
		op.GoName = unique(operations, op.GoName)

		if err := n.messageList(c.ID, op.Messages); err != nil {
			return err
		}
		if op.Reply != nil {
			if err := n.messageList(c.ID, op.Reply.Messages); err != nil {
				return err
			}
		}
	}

	return nil
}

func (n *namer) messageList(channel string, msgs []*spec.Message) error {
	for _, m := range msgs {
		if n.messages[m] {
			continue
		}
		n.messages[m] = true

		if m.GoName == "" && m.Name != "" {
			name, err := n.name(KindMessage, m.Name, channel)
			if err != nil {
				return fmt.Errorf("message %v: %w", m.Name, err)
			}
			m.GoName = name
		}

		if err := n.schema(m.Payload); err != nil {
			return fmt.Errorf("message %v: %w", m.Name, err)
		}
		if err := n.schema(m.Headers); err != nil {
			return fmt.Errorf("message %v headers: %w", m.Name, err)
		}
	}
	return nil
}

// schema names the schema and every schema nested in it,
// the properties of an object get unique field names.
func (n *namer) schema(root *spec.Schema) error {
	var err error

	root.Walk(func(s *spec.Schema) {
		if err != nil || n.schemas[s] {
			return
		}
		n.schemas[s] = true

		if s.IsNamed() && s.GoName == "" {
			if s.GoName, err = n.name(KindSchema, s.Name, ""); err != nil {
				err = fmt.Errorf("schema %v: %w", s.Name, err)
				return
			}
		}

		fields := make(map[string]bool, len(s.Properties))
		for i, p := range s.Properties {
			if p.GoName == "" {
				p.GoName = util.ToGoName(p.Name)
			}
			if p.GoName == "" {
				p.GoName = "Field" + strconv.Itoa(i)
			}
			p.GoName = unique(fields, p.GoName)
		}
	})

	return err
}
