package errs

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrMissingValue is returned if a value is not given
type ErrMissingValue struct {
	// What is missing
	Kind string

	// Additional info
	Info []string
}

// ErrMissing creates a "missing" error
func ErrMissing(kind string, info ...string) *ErrMissingValue {
	return &ErrMissingValue{
		Kind: kind,
		Info: info,
	}
}

func (e *ErrMissingValue) Error() string {
	if len(e.Info) == 0 {
		return fmt.Sprintf(`%v is missing`, e.Kind)
	}
	return fmt.Sprintf(`%v is missing (%v)`, e.Kind, strings.Join(e.Info, ", "))
}

// Helper is implemented by errors that can tell the user
// how to fix them.
type Helper interface {
	Help() string
}

// Help returns the help text of the first error in the chain
// that has one, or an empty string.
func Help(err error) string {
	var h Helper
	if errors.As(err, &h) {
		return h.Help()
	}
	return ""
}

// ConfigurationError is returned for invalid generator declarations,
// such as a generator depending on itself.
type ConfigurationError struct {
	// Generator is the offending generator id, if known.
	Generator string
	Reason    string
}

func (e *ConfigurationError) Error() string {
	if e.Generator == "" {
		return "invalid configuration: " + e.Reason
	}
	return fmt.Sprintf("invalid configuration for generator %q: %v", e.Generator, e.Reason)
}

// Help implements Helper
func (e *ConfigurationError) Help() string {
	return "Check the generators section of the configuration file, run \"courier get configuration --all\" for an example."
}

// DuplicateIDError is returned when more than one generator shares an id.
type DuplicateIDError struct {
	IDs []string
}

func (e *DuplicateIDError) Error() string {
	ids := append([]string(nil), e.IDs...)
	sort.Strings(ids)
	return fmt.Sprintf("duplicate generator ids: %v", quoteAll(ids))
}

// Help implements Helper
func (e *DuplicateIDError) Help() string {
	return "Every generator must have a unique id, rename or remove the duplicates."
}

// CircularDependencyError is returned when no generator can make progress.
type CircularDependencyError struct {
	// IDs of the generators that could not be rendered.
	IDs []string
}

func (e *CircularDependencyError) Error() string {
	ids := append([]string(nil), e.IDs...)
	sort.Strings(ids)
	return fmt.Sprintf("circular dependency between generators %v", quoteAll(ids))
}

// Help implements Helper
func (e *CircularDependencyError) Help() string {
	return "Remove one of the dependencies between the listed generators."
}

// MissingDependencyError is returned when a generator cannot find
// something it needs, either a document or a lookup in a dependency output.
type MissingDependencyError struct {
	Generator string
	Channel   string
	Operation string

	// What is missing, e.g. "payload" or "parameters".
	What string
}

func (e *MissingDependencyError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "generator %q is missing %v", e.Generator, e.What)
	if e.Channel != "" {
		fmt.Fprintf(&b, " for channel %q", e.Channel)
	}
	if e.Operation != "" {
		fmt.Fprintf(&b, " operation %q", e.Operation)
	}
	return b.String()
}

// Help implements Helper
func (e *MissingDependencyError) Help() string {
	return "Make sure the generator depends on the payloads and parameters generators that cover every channel of the input document."
}

// GeneratorError wraps a failure of a single generator.
type GeneratorError struct {
	ID  string
	Err error
}

func (e *GeneratorError) Error() string {
	return fmt.Sprintf("generator %q failed: %v", e.ID, e.Err)
}

func (e *GeneratorError) Unwrap() error {
	return e.Err
}

func quoteAll(vals []string) string {
	quoted := make([]string, len(vals))
	for i, v := range vals {
		quoted[i] = `"` + v + `"`
	}
	return strings.Join(quoted, ", ")
}
