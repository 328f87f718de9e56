package functions

import (
	"github.com/tamasfe/courier/pkg/spec"
)

// Request is a question to the catalog: should any of
// the requested function types be generated for the action?
type Request struct {
	// Types being considered.
	Types []Type

	// Action of the operation.
	Action spec.Action

	// Mapping is the explicit list of function types configured
	// for the channel or operation, only used if HasMapping is set.
	Mapping    []Type
	HasMapping bool

	// Reverse treats the direction of the contract as inverted.
	Reverse bool
}

// ShouldRender decides whether a function type is generated.
//
// Send and subscribe actions have a sending intent, receive and
// publish actions a receiving one. Sending types render for sending
// intents and receiving types for receiving intents, Reverse swaps this.
// An explicit mapping limits the eligible types to the listed ones,
// and does not take Reverse into account.
func (c *Catalog) ShouldRender(req Request) bool {
	sendingIntent := req.Action == spec.ActionSend || req.Action == spec.ActionSubscribe
	receivingIntent := req.Action == spec.ActionReceive || req.Action == spec.ActionPublish

	var sendingType, receivingType bool
	for _, t := range req.Types {
		e, ok := c.Lookup(t)
		if !ok {
			continue
		}
		sendingType = sendingType || e.Direction.Sends()
		receivingType = receivingType || e.Direction.Receives()
	}

	if req.HasMapping {
		if !containsAny(req.Mapping, req.Types) {
			return false
		}
		return (sendingType && sendingIntent) || (receivingType && receivingIntent)
	}

	if req.Reverse {
		return (sendingIntent && receivingType) || (receivingIntent && sendingType)
	}

	return (sendingType && sendingIntent) || (receivingType && receivingIntent)
}

// ShouldRender uses the default catalog.
func ShouldRender(req Request) bool {
	return Default.ShouldRender(req)
}

// ParseTypes converts strings to function types, dropping duplicates.
func ParseTypes(vals []string) []Type {
	types := make([]Type, 0, len(vals))
	seen := make(map[Type]bool, len(vals))
	for _, v := range vals {
		t := Type(v)
		if seen[t] {
			continue
		}
		seen[t] = true
		types = append(types, t)
	}
	return types
}

func containsAny(list, types []Type) bool {
	for _, l := range list {
		for _, t := range types {
			if l == t {
				return true
			}
		}
	}
	return false
}
