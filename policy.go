package fastlane

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Policy is the completion rule of a field, fixed when the schema is declared.
type Policy string

const (
	// PolicyAtomicDone fields are absent from every snapshot until fully
	// formed, then appear complete and never change.
	PolicyAtomicDone Policy = "done"

	// PolicyIncremental fields may appear with partial values across
	// snapshots before the producer marks them done.
	PolicyIncremental Policy = "with_state"
)

// Valid reports whether p is a known policy.
func (p Policy) Valid() bool {
	return p == PolicyAtomicDone || p == PolicyIncremental
}

// Kind is the value type of a field.
type Kind string

const (
	KindString Kind = "string"
	KindInt    Kind = "int"
	KindFloat  Kind = "float"
	KindBool   Kind = "bool"
	KindJSON   Kind = "json" // any JSON value, decoded to map/slice/scalar
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindString, KindInt, KindFloat, KindBool, KindJSON:
		return true
	}
	return false
}

// Decode converts a raw JSON value into the Go type for k: string, int64,
// float64, bool, or any for KindJSON.
func (k Kind) Decode(raw json.RawMessage) (any, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty value: %w", ErrValidation)
	}
	if bytes.Equal(raw, []byte("null")) {
		return nil, fmt.Errorf("null value: %w", ErrValidation)
	}
	var (
		v   any
		err error
	)
	switch k {
	case KindString:
		var s string
		err = json.Unmarshal(raw, &s)
		v = s
	case KindInt:
		var n int64
		err = json.Unmarshal(raw, &n)
		v = n
	case KindFloat:
		var f float64
		err = json.Unmarshal(raw, &f)
		v = f
	case KindBool:
		var b bool
		err = json.Unmarshal(raw, &b)
		v = b
	case KindJSON:
		err = json.Unmarshal(raw, &v)
	default:
		return nil, fmt.Errorf("unknown kind %q: %w", k, ErrValidation)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %v: %w", k, err, ErrValidation)
	}
	return v, nil
}

// Resolve turns a raw snapshot entry into a field update.
//
// An absent field, or one whose value is null or empty, resolves to
// PhasePending. For PolicyAtomicDone any
// appearance is complete. For PolicyIncremental the producer's Done marker
// decides between complete and incomplete. A value that cannot be decoded
// as kind resolves to PhasePending together with an error wrapping
// ErrValidation; Resolve never panics.
func (p Policy) Resolve(kind Kind, raw RawField, present bool) (FieldUpdate, error) {
	if !present || isNull(raw.Value) {
		return FieldUpdate{Phase: PhasePending}, nil
	}
	v, err := kind.Decode(raw.Value)
	if err != nil {
		return FieldUpdate{Phase: PhasePending}, err
	}
	switch p {
	case PolicyAtomicDone:
		return FieldUpdate{Value: v, Phase: PhaseComplete}, nil
	case PolicyIncremental:
		if raw.Done {
			return FieldUpdate{Value: v, Phase: PhaseComplete}, nil
		}
		return FieldUpdate{Value: v, Phase: PhaseIncomplete}, nil
	default:
		return FieldUpdate{Phase: PhasePending}, fmt.Errorf("unknown policy %q: %w", p, ErrValidation)
	}
}

// isNull reports whether raw carries no value yet. Producers that list every
// declared field send null for the ones they have not reached.
func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}
