package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/hashicorp/go-multierror"
	"github.com/tamasfe/courier/pkg/errs"
	"github.com/tamasfe/courier/pkg/generator"
	"github.com/tamasfe/courier/pkg/generator/golang"
	"github.com/tamasfe/courier/pkg/parser"
	"github.com/tamasfe/courier/pkg/transformer"
	"github.com/tamasfe/courier/pkg/util"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of the environment variables read by the CLI.
const EnvPrefix = "COURIER_"

// Generators supported by the CLI.
var Generators = golang.Generators()

// Parsers supported by the CLI.
var Parsers = parser.Parsers()

// Transformers supported by the CLI.
var Transformers = transformer.Transformers()

// NewRegistry returns a registry of the generators supported by the CLI.
func NewRegistry() (*generator.Registry, error) {
	return generator.NewRegistry(Generators...)
}

// Transformer groups the transformer name and its options
type Transformer struct {
	Name    string      `yaml:"name,omitempty" description:"Name of the transformer"`
	Options interface{} `yaml:"options,omitempty" description:"Options for the transformer"`
}

// MarshalYAML implements YAML Marshaler
func (t *Transformer) MarshalYAML() (interface{}, error) {
	return util.MarshalYAMLWithDescriptions(t)
}

// GlobalOptions are the options of every command.
type GlobalOptions struct {
	Verbose  bool `env:"VERBOSE"`
	Silent   bool `env:"SILENT"`
	NoColors bool `env:"NO_COLORS"`
}

// GenerateOptions contains options for the CLI.
type GenerateOptions struct {
	Yes         bool   `env:"YES"`
	Check       bool   `env:"CHECK"`
	ConfigPath  string `env:"CONFIG"`
	OutPath     string `env:"OUT"`
	Parallelism int    `env:"PARALLELISM"`
}

// GetOptions contains options for the CLI.
type GetOptions struct {
	Force      bool
	NoComments bool
	All        bool
	OutPath    string
}

// LoadEnv sets the fields of opts from the environment,
// fields without a variable are left as they are.
func LoadEnv(opts interface{}) error {
	err := env.ParseWithOptions(opts, env.Options{Prefix: EnvPrefix})
	if err != nil {
		return fmt.Errorf("invalid environment: %w", err)
	}
	return nil
}

// CourierOptions options for Courier.
type CourierOptions struct {
	InputType    string                 `yaml:"inputType,omitempty" description:"Name of the parser of the input document, every parser is tried if empty"`
	InputPath    string                 `yaml:"inputPath" description:"Path of the input document, relative to the configuration file"`
	Language     string                 `yaml:"language" description:"Language of the generators that do not set one"`
	PackagePath  string                 `yaml:"packagePath" description:"Go import path of the output directory"`
	Comments     bool                   `yaml:"comments" description:"Enable comments in the generated code"`
	Timestamp    bool                   `yaml:"timestamp" description:"Add timestamp for the generated code"`
	Parallelism  int                    `yaml:"parallelism" description:"Maximum number of generators rendered at the same time, 0 means no limit"`
	Parsers      map[string]interface{} `yaml:"parsers,omitempty" description:"Parsers to use and their options, leave it empty to infer from the input"`
	Transformers []*Transformer         `yaml:"transformers,omitempty" description:"Transformers to alter the document with before generating code, and their options"`
	Generators   []*generator.Spec      `yaml:"generators,omitempty" description:"Generators for code generation"`
}

// MarshalYAML implements YAML Marshaler
func (c *CourierOptions) MarshalYAML() (interface{}, error) {
	return util.MarshalYAMLWithDescriptions(c)
}

// DefaultCourierOptions returns the default config
func DefaultCourierOptions() *CourierOptions {
	return &CourierOptions{
		InputPath:   "asyncapi.yaml",
		Language:    generator.LanguageGo,
		PackagePath: "",
		Comments:    true,
		Timestamp:   false,
		Parsers:     map[string]interface{}{},
		Transformers: []*Transformer{
			{Name: (&transformer.Default{}).Name()},
		},
		Generators: []*generator.Spec{
			{
				Preset:     generator.PresetChannels,
				OutputPath: "channels",
				Options: map[string]interface{}{
					"protocols": []string{"nats"},
				},
			},
		},
	}
}

// ValidateCourierOptions validates options, every problem is reported.
func ValidateCourierOptions(opts *CourierOptions, registry *generator.Registry) error {
	var result *multierror.Error

	if opts.InputPath == "" {
		result = multierror.Append(result, fmt.Errorf("no input path"))
	}

	if opts.InputType != "" {
		if _, ok := parser.ByName(opts.InputType); !ok {
			result = multierror.Append(result, fmt.Errorf("unknown input type %q", opts.InputType))
		}
	}

	for name := range opts.Parsers {
		if _, ok := parser.ByName(name); !ok {
			result = multierror.Append(result, fmt.Errorf(`parser with name "%v" not found`, name))
		}
	}

	for _, t := range opts.Transformers {
		if _, ok := TransformerByName(t.Name); !ok {
			result = multierror.Append(result, fmt.Errorf(`transformer with name "%v" not found`, t.Name))
		}
	}

	if opts.Parallelism < 0 {
		result = multierror.Append(result, fmt.Errorf("parallelism must not be negative"))
	}

	if len(opts.Generators) == 0 {
		result = multierror.Append(result, fmt.Errorf("no generators"))
	}

	seen := make(map[string]bool, len(opts.Generators))
	var duplicates []string
	for i, g := range opts.Generators {
		language := g.Language
		if language == "" {
			language = opts.Language
		}

		if _, ok := registry.Lookup(g.Preset, language); !ok {
			result = multierror.Append(result, &errs.ConfigurationError{
				Generator: g.ID,
				Reason:    fmt.Sprintf("generator %d: unknown preset %q for language %q", i, g.Preset, language),
			})
		}

		if g.ID == "" {
			continue
		}
		if seen[g.ID] {
			duplicates = append(duplicates, g.ID)
		}
		seen[g.ID] = true
	}

	if len(duplicates) != 0 {
		result = multierror.Append(result, &errs.DuplicateIDError{IDs: duplicates})
	}

	return result.ErrorOrNil()
}

// TransformerByName returns the transformer with the given name.
func TransformerByName(name string) (transformer.Transformer, bool) {
	for _, t := range Transformers {
		if t.Name() == name {
			return t, true
		}
	}
	return nil, false
}

// LoadCourierOptions decodes a YAML or JSON configuration,
// missing keys keep their default values.
func LoadCourierOptions(data []byte) (*CourierOptions, error) {
	opts := DefaultCourierOptions()

	err := yaml.Unmarshal(data, opts)
	if err != nil {
		return nil, err
	}

	return opts, nil
}

// ExampleConfig returns a configuration with every parser,
// transformer and generator with their default options.
func ExampleConfig() *CourierOptions {
	conf := DefaultCourierOptions()

	conf.Generators = make([]*generator.Spec, 0, len(Generators))
	for _, g := range Generators {
		s := g.DefaultSpec()
		s.Options = util.StructToMap(g.DefaultOptions())
		conf.Generators = append(conf.Generators, s)
	}

	conf.Transformers = make([]*Transformer, 0, len(Transformers))
	for _, t := range Transformers {
		conf.Transformers = append(conf.Transformers, &Transformer{
			Name:    t.Name(),
			Options: t.DefaultOptions(),
		})
	}

	conf.Parsers = make(map[string]interface{})
	for _, p := range Parsers {
		conf.Parsers[p.Name()] = p.DefaultOptions()
	}

	return conf
}
