package generator

import (
	"context"
	"fmt"
	"path"
	"sort"

	"github.com/tamasfe/courier/pkg/common"
	"github.com/tamasfe/courier/pkg/errs"
	"github.com/tamasfe/courier/pkg/genfs"
	"github.com/tamasfe/courier/pkg/spec"
	"github.com/tamasfe/courier/pkg/util"
	"gopkg.in/yaml.v3"
)

// Preset is the kind of a generator.
type Preset string

// Available presets.
const (
	PresetPayloads   Preset = "payloads"
	PresetParameters Preset = "parameters"
	PresetChannels   Preset = "channels"
	PresetClient     Preset = "client"
	PresetCustom     Preset = "custom"
	PresetHeaders    Preset = "headers"
	PresetTypes      Preset = "types"
)

// LanguageGo is the only output language at the moment.
const LanguageGo = "golang"

// Generator generates code for a preset.
type Generator interface {
	common.DescriptionMarkdown

	// Preset of the generator.
	Preset() Preset

	// Language of the generated code.
	Language() string

	// A short description of the generator.
	Description() string

	// DefaultSpec returns the declaration used for filling in
	// partial declarations and for generators added as dependencies.
	DefaultSpec() *Spec

	// DefaultOptions Returns the default options of the generator, or nil if it has none.
	DefaultOptions() interface{}

	// Generate renders the declared generator. The returned value is
	// handed to the generators depending on it.
	Generate(ctx context.Context, in *Input) (interface{}, error)
}

// Requirement is a generator another generator cannot work without.
type Requirement struct {
	ID      string
	Preset  Preset
	SubPath string

	// Options set on the generator if it has to be added.
	Options map[string]interface{}
}

// Requirer is implemented by generators that need the output of other generators.
type Requirer interface {
	Requirements(s *Spec) ([]Requirement, error)
}

// FileProducer is implemented by generator outputs that contain files.
type FileProducer interface {
	GeneratedFiles() []*genfs.File
}

// Spec declares a single generator.
type Spec struct {
	ID           string                 `yaml:"id,omitempty" description:"Unique id of the generator, other generators refer to it with this id"`
	Preset       Preset                 `yaml:"preset" description:"The kind of the generator"`
	Language     string                 `yaml:"language,omitempty" description:"The language of the generated code"`
	OutputPath   string                 `yaml:"outputPath,omitempty" description:"Directory of the generated code, relative to the output directory"`
	Dependencies []string               `yaml:"dependencies,omitempty" description:"Ids of the generators this generator depends on"`
	Options      map[string]interface{} `yaml:"-"`
}

var specKeys = map[string]bool{
	"id":           true,
	"preset":       true,
	"language":     true,
	"outputPath":   true,
	"dependencies": true,
	"options":      true,
}

// UnmarshalYAML implements yaml.Unmarshaler. Every key that is not a
// field of Spec is treated as an option, options can also be given
// under the "options" key.
func (s *Spec) UnmarshalYAML(value *yaml.Node) error {
	type plain Spec
	var p plain
	if err := value.Decode(&p); err != nil {
		return err
	}

	var raw map[string]interface{}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	opts := make(map[string]interface{})
	if nested, ok := raw["options"].(map[string]interface{}); ok {
		for k, v := range nested {
			opts[k] = v
		}
	}
	for k, v := range raw {
		if !specKeys[k] {
			opts[k] = v
		}
	}

	*s = Spec(p)
	if len(opts) != 0 {
		s.Options = opts
	}
	return nil
}

// MarshalYAML implements yaml.Marshaler, the options are
// written next to the other fields.
func (s *Spec) MarshalYAML() (interface{}, error) {
	type plain Spec
	n, err := util.MarshalYAMLWithDescriptions((*plain)(s))
	if err != nil {
		return nil, err
	}
	node := n.(*yaml.Node)

	keys := make([]string, 0, len(s.Options))
	for k := range s.Options {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		var v yaml.Node
		if err := v.Encode(s.Options[k]); err != nil {
			return nil, fmt.Errorf("option %v: %w", k, err)
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
			&v,
		)
	}

	return node, nil
}

// DefaultID returns the id used for a generator of the preset
// when none is given.
func DefaultID(preset Preset) string {
	return string(preset) + "-go"
}

// Input is everything a generator receives for a single run.
type Input struct {
	Spec     *Spec
	Document *spec.Document

	// Dependencies are the outputs of the declared dependencies.
	Dependencies map[string]interface{}

	Options *common.Options
}

// ImportPath is the Go import path of the generated package.
func (in *Input) ImportPath() string {
	if in.Options == nil || in.Options.PackagePath == "" {
		return in.Spec.OutputPath
	}
	return path.Join(in.Options.PackagePath, in.Spec.OutputPath)
}

// PackageName is the name of the generated package.
func (in *Input) PackageName() string {
	return util.ToGoPackageName(in.Spec.OutputPath)
}

// Doc returns the document, or an error if the generator was run without one.
func (in *Input) Doc() (*spec.Document, error) {
	if in.Document == nil {
		return nil, &errs.MissingDependencyError{
			Generator: in.Spec.ID,
			What:      "an input document",
		}
	}
	return in.Document, nil
}

// Dependency returns the output of a dependency.
func (in *Input) Dependency(id string) (interface{}, error) {
	out, ok := in.Dependencies[id]
	if !ok {
		return nil, &errs.MissingDependencyError{
			Generator: in.Spec.ID,
			What:      fmt.Sprintf("the output of generator %q", id),
		}
	}
	return out, nil
}
