package store

import (
	"fmt"

	"github.com/cwbudde/blackbox/params"
)

// Document is the unit of persistence: the most recently observed parameter
// schema plus the full example history. Examples form a set under
// value-equality but keep their insertion order for iteration.
type Document struct {
	Params   params.Params
	Examples []Example
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{Params: params.Params{}}
}

// AddExamples appends each example that is not already present under
// value-equality, preserving the order given. It returns how many examples
// were actually added.
func (d *Document) AddExamples(examples ...Example) int {
	added := 0
	for i := range examples {
		if !d.contains(&examples[i]) {
			d.Examples = append(d.Examples, examples[i])
			added++
		}
	}
	return added
}

func (d *Document) contains(ex *Example) bool {
	for i := range d.Examples {
		if d.Examples[i].Equal(ex) {
			return true
		}
	}
	return false
}

// MaxTimestamp returns the largest committed timestamp in the document,
// or zero when the history is empty.
func (d *Document) MaxTimestamp() float64 {
	max := 0.0
	for i := range d.Examples {
		if d.Examples[i].Timestamp > max {
			max = d.Examples[i].Timestamp
		}
	}
	return max
}

// wire returns the document in the generic layout shared by every
// serialization protocol:
//
//	{"params": {name: [kind, args, kwargs]}, "examples": [...]}
func (d *Document) wire() map[string]any {
	ps := make(map[string]any, len(d.Params))
	for name, decl := range d.Params {
		kwargs := map[string]any{}
		if decl.Options != nil {
			kwargs = normalizeValueMap(decl.Options)
		}
		ps[name] = []any{decl.Kind, normalizeValue(decl.Args), kwargs}
	}
	examples := make([]any, len(d.Examples))
	for i := range d.Examples {
		examples[i] = d.Examples[i].wire()
	}
	return map[string]any{"params": ps, "examples": examples}
}

func documentFromWire(raw any) (*Document, error) {
	m, err := asStringMap(raw)
	if err != nil {
		return nil, fmt.Errorf("malformed document: %w", err)
	}
	rawParams, ok := m["params"]
	if !ok {
		return nil, fmt.Errorf("malformed document: missing params")
	}
	rawExamples, ok := m["examples"]
	if !ok {
		return nil, fmt.Errorf("malformed document: missing examples")
	}

	pm, err := asStringMap(rawParams)
	if err != nil {
		return nil, fmt.Errorf("malformed params: %w", err)
	}
	doc := NewDocument()
	for name, rawDecl := range pm {
		decl, err := declFromWire(rawDecl)
		if err != nil {
			return nil, fmt.Errorf("malformed declaration for %q: %w", name, err)
		}
		doc.Params[name] = decl
	}

	exs, ok := normalizeValue(rawExamples).([]any)
	if !ok {
		return nil, fmt.Errorf("malformed document: examples must be a sequence, got %T", rawExamples)
	}
	for i, rawEx := range exs {
		ex, err := exampleFromWire(rawEx)
		if err != nil {
			return nil, fmt.Errorf("example %d: %w", i, err)
		}
		doc.Examples = append(doc.Examples, ex)
	}
	return doc, nil
}

func declFromWire(raw any) (params.Decl, error) {
	triple, ok := normalizeValue(raw).([]any)
	if !ok || len(triple) != 3 {
		return params.Decl{}, fmt.Errorf("expected a [kind, args, kwargs] triple, got %T", raw)
	}
	kind, ok := triple[0].(string)
	if !ok {
		return params.Decl{}, fmt.Errorf("kind must be a string, got %T", triple[0])
	}
	args, ok := triple[1].([]any)
	if !ok {
		return params.Decl{}, fmt.Errorf("args must be a sequence, got %T", triple[1])
	}
	var options map[string]any
	if triple[2] != nil {
		options, ok = triple[2].(map[string]any)
		if !ok {
			return params.Decl{}, fmt.Errorf("kwargs must be a mapping, got %T", triple[2])
		}
		if len(options) == 0 {
			options = nil
		}
	}
	return params.Decl{Kind: kind, Args: args, Options: options}, nil
}
