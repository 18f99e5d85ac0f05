package docstore

import (
	"encoding/json"
	"fmt"
)

// Document is a JSON-shaped remote document.
// Nested values are limited to JSON types: map[string]any, []any, string, float64, bool and nil.
type Document map[string]any

// Snapshot is the state of one document at read or notification time.
type Snapshot struct {
	Collection string
	ID         string
	Exists     bool
	Data       Document
}

// Encode converts v into a Document by round-tripping it through JSON.
func Encode(v any) (Document, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to normalize document: %w", err)
	}
	return doc, nil
}

// Decode converts a Document into out.
func Decode(doc Document, out any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode document: %w", err)
	}
	return nil
}

// Sequence returns the value of field if it is present and a list.
func (d Document) Sequence(field string) ([]any, bool) {
	v, ok := d[field]
	if !ok {
		return nil, false
	}
	seq, ok := v.([]any)
	return seq, ok
}

// Clone returns a deep copy of the document.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = cloneValue(v)
	}
	return out
}

// MergeDocuments applies patch on top of existing and returns the result. Neither input is modified.
// Fields absent from patch are preserved, nested objects are merged recursively and
// lists are replaced as a whole.
func MergeDocuments(existing, patch Document) Document {
	out := existing.Clone()
	if out == nil {
		out = make(Document, len(patch))
	}
	for k, v := range patch {
		pm, patchIsMap := asMap(v)
		em, existingIsMap := asMap(out[k])
		if patchIsMap && existingIsMap {
			out[k] = map[string]any(MergeDocuments(em, pm))
			continue
		}
		out[k] = cloneValue(v)
	}
	return out
}

func asMap(v any) (Document, bool) {
	switch m := v.(type) {
	case Document:
		return m, true
	case map[string]any:
		return Document(m), true
	default:
		return nil, false
	}
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case Document:
		return map[string]any(t.Clone())
	case map[string]any:
		return map[string]any(Document(t).Clone())
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}
