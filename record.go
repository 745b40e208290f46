package fastlane

import (
	"bytes"
	"encoding/json"
)

// FieldValue is one field of a Record.
type FieldValue struct {
	Name  string
	Value any
	Phase Phase
}

// Record is an immutable, ordered copy of field states. Callbacks and
// observers receive Records, never live references to the aggregate.
type Record []FieldValue

// Len returns the number of fields in the record.
func (r Record) Len() int { return len(r) }

// Get returns the named field.
func (r Record) Get(name string) (FieldValue, bool) {
	for _, fv := range r {
		if fv.Name == name {
			return fv, true
		}
	}
	return FieldValue{}, false
}

// Names returns the field names in order.
func (r Record) Names() []string {
	names := make([]string, len(r))
	for i, fv := range r {
		names[i] = fv.Name
	}
	return names
}

// Values returns the values of all non-pending fields keyed by name.
func (r Record) Values() map[string]any {
	m := make(map[string]any, len(r))
	for _, fv := range r {
		if fv.Phase != PhasePending {
			m[fv.Name] = fv.Value
		}
	}
	return m
}

// Get returns the named field's value converted to T. It reports false when
// the field is missing, pending, or holds a different type.
func Get[T any](r Record, name string) (T, bool) {
	var zero T
	fv, ok := r.Get(name)
	if !ok || fv.Phase == PhasePending {
		return zero, false
	}
	v, ok := fv.Value.(T)
	if !ok {
		return zero, false
	}
	return v, true
}

// MarshalJSON encodes the record as an object in field order. Pending
// fields are encoded as null.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, fv := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(fv.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		var val []byte
		if fv.Phase == PhasePending {
			val = []byte("null")
		} else if val, err = json.Marshal(fv.Value); err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
