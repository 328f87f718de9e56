package transformer

import (
	"context"

	"github.com/tamasfe/courier/pkg/common"
	"github.com/tamasfe/courier/pkg/spec"
)

// Transformer transforms a document
// before code generation.
type Transformer interface {
	common.DescriptionMarkdown

	// The name of the transformer.
	Name() string

	// A short description of the transformer.
	Description() string

	// DefaultOptions Returns the default options of the transformer, or nil if it has none.
	DefaultOptions() interface{}

	// Transform transforms the document based on options.
	Transform(ctx context.Context, options interface{}, doc *spec.Document) error
}

// Transformers returns every available transformer.
func Transformers() []Transformer {
	return []Transformer{
		&Default{},
	}
}
