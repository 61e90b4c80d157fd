package weather

import (
	"bytes"
	"encoding/json"
	"iter"
	"slices"
)

// Field is one labeled detail row. Found is false when the label was seen on the
// page but no row supplied a value for it.
type Field struct {
	Label string `json:"label"`
	Value string `json:"value"`
	Found bool   `json:"found"`
}

// DetailFields is an ordered, read-only mapping from detail label to display value.
// The label set is whatever the page contained, in discovery order.
type DetailFields struct {
	fields []Field
	index  map[string]int
}

// NewDetailFields builds a DetailFields from fields in order. Later duplicates of a
// label are ignored.
func NewDetailFields(fields ...Field) DetailFields {
	d := DetailFields{index: make(map[string]int, len(fields))}
	for _, f := range fields {
		if _, dup := d.index[f.Label]; dup {
			continue
		}
		d.index[f.Label] = len(d.fields)
		d.fields = append(d.fields, f)
	}
	return d
}

// Len returns the number of labels, including those without a value.
func (d DetailFields) Len() int {
	return len(d.fields)
}

// Keys returns the labels in discovery order.
func (d DetailFields) Keys() []string {
	keys := make([]string, len(d.fields))
	for i, f := range d.fields {
		keys[i] = f.Label
	}
	return keys
}

// Get returns the value for label. ok is false if the label is unknown or absent.
func (d DetailFields) Get(label string) (value string, ok bool) {
	i, exists := d.index[label]
	if !exists || !d.fields[i].Found {
		return "", false
	}
	return d.fields[i].Value, true
}

// Has reports whether the label was discovered, whether or not it has a value.
func (d DetailFields) Has(label string) bool {
	_, ok := d.index[label]
	return ok
}

// Fields returns a copy of every field in order.
func (d DetailFields) Fields() []Field {
	return slices.Clone(d.fields)
}

// All iterates labels with a value, in order.
func (d DetailFields) All() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		for _, f := range d.fields {
			if !f.Found {
				continue
			}
			if !yield(f.Label, f.Value) {
				return
			}
		}
	}
}

// MarshalJSON encodes the fields as a JSON object that keeps discovery order.
// Absent values are encoded as null.
func (d DetailFields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range d.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Label)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if !f.Found {
			buf.WriteString("null")
			continue
		}
		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
