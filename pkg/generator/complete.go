package generator

import (
	"fmt"
	"path"
	"strconv"

	"github.com/imdario/mergo"
	"github.com/mohae/deepcopy"
	"github.com/tamasfe/courier/pkg/errs"
)

// MaxCompletionDepth limits how deep Complete follows requirements.
const MaxCompletionDepth = 8

// Realize fills in the missing fields of the declarations from the
// default declaration of their preset. Generators without an id get
// the default id of their preset, suffixed with "-1", "-2"... if it is
// already taken. The declarations are not modified.
func Realize(specs []*Spec, registry *Registry) ([]*Spec, error) {
	taken := make(map[string]bool, len(specs))
	for _, s := range specs {
		if s.ID != "" {
			taken[s.ID] = true
		}
	}

	realized := make([]*Spec, 0, len(specs))
	for i, s := range specs {
		if s.Preset == "" {
			return nil, &errs.ConfigurationError{
				Generator: s.ID,
				Reason:    fmt.Sprintf("generator %d has no preset", i),
			}
		}

		def, err := registry.DefaultSpec(s.Preset, s.Language)
		if err != nil {
			return nil, &errs.ConfigurationError{Generator: s.ID, Reason: err.Error()}
		}

		r := deepcopy.Copy(s).(*Spec)
		if r.ID == "" {
			r.ID = uniqueID(def.ID, taken)
			taken[r.ID] = true
		}
		def.ID = r.ID

		if err := mergo.Merge(r, def); err != nil {
			return nil, &errs.ConfigurationError{Generator: r.ID, Reason: err.Error()}
		}

		realized = append(realized, r)
	}

	return realized, nil
}

func uniqueID(id string, taken map[string]bool) string {
	if !taken[id] {
		return id
	}
	for n := 1; ; n++ {
		candidate := id + "-" + strconv.Itoa(n)
		if !taken[candidate] {
			return candidate
		}
	}
}

// Complete adds the generators required by the declared ones, and adds
// the required ids to the dependencies of the requiring generators.
// Added generators are completed as well. Running Complete on its own
// result returns an equal list.
func Complete(specs []*Spec, registry *Registry) ([]*Spec, error) {
	out := make([]*Spec, 0, len(specs))
	byID := make(map[string]*Spec, len(specs))
	for _, s := range specs {
		c := deepcopy.Copy(s).(*Spec)
		out = append(out, c)
		if _, ok := byID[c.ID]; !ok {
			byID[c.ID] = c
		}
	}

	pending := out
	for depth := 0; len(pending) > 0; depth++ {
		if depth >= MaxCompletionDepth {
			ids := make([]string, len(pending))
			for i, s := range pending {
				ids[i] = s.ID
			}
			return nil, &errs.ConfigurationError{
				Reason: fmt.Sprintf("generator requirements are nested deeper than %d levels at %v", MaxCompletionDepth, ids),
			}
		}

		var added []*Spec
		for _, s := range pending {
			g, ok := registry.Lookup(s.Preset, s.Language)
			if !ok {
				return nil, &errs.ConfigurationError{
					Generator: s.ID,
					Reason:    fmt.Sprintf("unknown preset %q for language %q", s.Preset, s.Language),
				}
			}

			req, ok := g.(Requirer)
			if !ok {
				continue
			}

			reqs, err := req.Requirements(s)
			if err != nil {
				return nil, &errs.ConfigurationError{Generator: s.ID, Reason: err.Error()}
			}

			for _, r := range reqs {
				s.Dependencies = appendUnique(s.Dependencies, r.ID)

				if existing, ok := byID[r.ID]; ok {
					if existing.Preset != r.Preset {
						return nil, &errs.ConfigurationError{
							Generator: s.ID,
							Reason:    fmt.Sprintf("requires %v generator %q, but it is a %v generator", r.Preset, r.ID, existing.Preset),
						}
					}
					continue
				}

				dep, err := registry.DefaultSpec(r.Preset, s.Language)
				if err != nil {
					return nil, &errs.ConfigurationError{Generator: s.ID, Reason: err.Error()}
				}
				dep.ID = r.ID
				dep.Language = s.Language
				dep.OutputPath = path.Join(s.OutputPath, r.SubPath)
				if len(r.Options) != 0 {
					if dep.Options == nil {
						dep.Options = make(map[string]interface{}, len(r.Options))
					}
					for k, v := range r.Options {
						dep.Options[k] = deepcopy.Copy(v)
					}
				}

				byID[dep.ID] = dep
				out = append(out, dep)
				added = append(added, dep)
			}
		}

		pending = added
	}

	return out, nil
}

func appendUnique(list []string, val string) []string {
	for _, v := range list {
		if v == val {
			return list
		}
	}
	return append(list, val)
}

// Prepare realizes and completes the declarations.
func Prepare(specs []*Spec, registry *Registry) ([]*Spec, error) {
	realized, err := Realize(specs, registry)
	if err != nil {
		return nil, err
	}
	return Complete(realized, registry)
}
