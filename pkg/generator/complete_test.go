package generator

import (
	"context"
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tamasfe/courier/pkg/errs"
	"gopkg.in/yaml.v3"
)

type fakeGenerator struct {
	preset   Preset
	requires func(s *Spec) []Requirement
}

func (f *fakeGenerator) DescriptionMarkdown() string { return "" }
func (f *fakeGenerator) Preset() Preset { return f.preset }
func (f *fakeGenerator) Language() string { return LanguageGo }
func (f *fakeGenerator) Description() string { return string(f.preset) }
func (f *fakeGenerator) DefaultOptions() interface{} { return nil }
func (f *fakeGenerator) Generate(ctx context.Context, in *Input) (interface{}, error) {
	return in.Spec.ID, nil
}

func (f *fakeGenerator) DefaultSpec() *Spec {
	return &Spec{
		ID:         DefaultID(f.preset),
		Preset:     f.preset,
		Language:   LanguageGo,
		OutputPath: "gen/" + string(f.preset),
	}
}

type fakeRequirer struct {
	fakeGenerator
}

func (f *fakeRequirer) Requirements(s *Spec) ([]Requirement, error) {
	return f.requires(s), nil
}

func optionOr(s *Spec, key, def string) string {
	if v, ok := s.Options[key].(string); ok && v != "" {
		return v
	}
	return def
}

func testRegistry(t *testing.T) *Registry {
	r, err := NewRegistry(
		&fakeGenerator{preset: PresetPayloads},
		&fakeGenerator{preset: PresetParameters},
		&fakeGenerator{preset: PresetCustom},
		&fakeRequirer{fakeGenerator{
			preset: PresetChannels,
			requires: func(s *Spec) []Requirement {
				return []Requirement{
					{ID: optionOr(s, "payloadGeneratorId", "payloads-go"), Preset: PresetPayloads, SubPath: "payload"},
					{ID: optionOr(s, "parameterGeneratorId", "parameters-go"), Preset: PresetParameters, SubPath: "parameter"},
				}
			},
		}},
		&fakeRequirer{fakeGenerator{
			preset: PresetClient,
			requires: func(s *Spec) []Requirement {
				return []Requirement{{
					ID:      optionOr(s, "channelsGeneratorId", "channels-go"),
					Preset:  PresetChannels,
					SubPath: "channels",
					Options: map[string]interface{}{"protocols": s.Options["protocols"]},
				}}
			},
		}},
	)
	require.NoError(t, err)
	return r
}

func byID(specs []*Spec) map[string]*Spec {
	m := make(map[string]*Spec, len(specs))
	for _, s := range specs {
		m[s.ID] = s
	}
	return m
}

func TestCompleteClient(t *testing.T) {
	reg := testRegistry(t)

	specs, err := Prepare([]*Spec{
		{Preset: PresetClient, OutputPath: "client", Options: map[string]interface{}{"protocols": []string{"nats"}}},
	}, reg)
	require.NoError(t, err)
	require.Len(t, specs, 4)

	ids := byID(specs)
	assert.Equal(t, []string{"channels-go"}, ids["client-go"].Dependencies)
	assert.Equal(t, "client/channels", ids["channels-go"].OutputPath)
	assert.Equal(t, []string{"nats"}, ids["channels-go"].Options["protocols"])
	assert.Equal(t, []string{"payloads-go", "parameters-go"}, ids["channels-go"].Dependencies)
	assert.Equal(t, "client/channels/payload", ids["payloads-go"].OutputPath)
	assert.Equal(t, "client/channels/parameter", ids["parameters-go"].OutputPath)
}

func TestCompleteUsesExisting(t *testing.T) {
	reg := testRegistry(t)

	specs, err := Prepare([]*Spec{
		{ID: "models", Preset: PresetPayloads, OutputPath: "models"},
		{Preset: PresetChannels, Options: map[string]interface{}{"payloadGeneratorId": "models"}},
	}, reg)
	require.NoError(t, err)
	require.Len(t, specs, 3)

	ids := byID(specs)
	assert.Equal(t, []string{"models", "parameters-go"}, ids["channels-go"].Dependencies)
	assert.Equal(t, "models", ids["models"].OutputPath)
	assert.Equal(t, "gen/channels/parameter", ids["parameters-go"].OutputPath)

	_, err = Prepare([]*Spec{
		{ID: "models", Preset: PresetCustom},
		{Preset: PresetChannels, Options: map[string]interface{}{"payloadGeneratorId": "models"}},
	}, reg)
	var cfg *errs.ConfigurationError
	assert.ErrorAs(t, err, &cfg)
}

func TestRealizeIDs(t *testing.T) {
	reg := testRegistry(t)

	specs, err := Realize([]*Spec{
		{Preset: PresetPayloads},
		{Preset: PresetPayloads, OutputPath: "other"},
		{ID: "payloads-go-1", Preset: PresetCustom},
		{Preset: PresetPayloads},
	}, reg)
	require.NoError(t, err)

	assert.Equal(t, "payloads-go", specs[0].ID)
	assert.Equal(t, "gen/payloads", specs[0].OutputPath)
	assert.Equal(t, "payloads-go-2", specs[1].ID)
	assert.Equal(t, "other", specs[1].OutputPath)
	assert.Equal(t, "payloads-go-1", specs[2].ID)
	assert.Equal(t, "payloads-go-3", specs[3].ID)
	assert.Equal(t, LanguageGo, specs[3].Language)

	_, err = Realize([]*Spec{{ID: "x"}}, reg)
	assert.Error(t, err)
	_, err = Realize([]*Spec{{Preset: "unknown"}}, reg)
	assert.Error(t, err)
}

func TestCompleteDepthLimit(t *testing.T) {
	reg, err := NewRegistry(&fakeRequirer{fakeGenerator{
		preset: PresetCustom,
		requires: func(s *Spec) []Requirement {
			return []Requirement{{ID: s.ID + "-next", Preset: PresetCustom}}
		},
	}})
	require.NoError(t, err)

	_, err = Complete([]*Spec{{ID: "loop", Preset: PresetCustom}}, reg)
	var cfg *errs.ConfigurationError
	require.ErrorAs(t, err, &cfg)
	assert.Contains(t, err.Error(), "deeper")
}

func TestCompleteIdempotent(t *testing.T) {
	reg := testRegistry(t)
	presets := []Preset{PresetPayloads, PresetParameters, PresetChannels, PresetClient, PresetCustom}

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("completing twice equals completing once", prop.ForAll(
		func(picks []int) bool {
			specs := make([]*Spec, len(picks))
			for i, p := range picks {
				specs[i] = &Spec{Preset: presets[p], OutputPath: fmt.Sprintf("out%d", i)}
			}

			once, err := Prepare(specs, reg)
			if err != nil {
				return false
			}
			twice, err := Complete(once, reg)
			if err != nil {
				return false
			}

			a, _ := yaml.Marshal(once)
			b, _ := yaml.Marshal(twice)
			return string(a) == string(b)
		},
		gen.SliceOfN(4, gen.IntRange(0, len(presets)-1)),
	))

	properties.TestingRun(t)
}

func TestSpecYAML(t *testing.T) {
	var s Spec
	err := yaml.Unmarshal([]byte(`
id: channels
preset: channels
outputPath: src/channels
protocols: [nats, kafka]
options:
  asyncapiReverseOperations: true
`), &s)
	require.NoError(t, err)

	assert.Equal(t, "channels", s.ID)
	assert.Equal(t, PresetChannels, s.Preset)
	assert.Equal(t, []interface{}{"nats", "kafka"}, s.Options["protocols"])
	assert.Equal(t, true, s.Options["asyncapiReverseOperations"])

	out, err := yaml.Marshal(&s)
	require.NoError(t, err)
	assert.Contains(t, string(out), "asyncapiReverseOperations: true")
	assert.Contains(t, string(out), "preset: channels")
}
