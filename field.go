package fastlane

import (
	"fmt"

	"github.com/google/go-cmp/cmp"
)

// StreamState is the completion cell of a single field.
//
// Value is nil while Phase is PhasePending. Once Phase is PhaseComplete the
// value never changes again.
type StreamState struct {
	Value any
	Phase Phase
}

// FieldUpdate is a field-level delta produced by a Policy from a raw
// snapshot entry.
type FieldUpdate struct {
	Value any
	Phase Phase
}

// Apply returns the state that results from applying u. It never mutates s.
//
// A Pending update (the field was absent from a snapshot) leaves the state
// unchanged. Moving the phase backward, or changing a complete value, fails
// with ErrInvalidTransition. Re-reporting a complete value unchanged is a
// no-op.
func (s StreamState) Apply(u FieldUpdate) (StreamState, error) {
	if u.Phase == PhasePending {
		return s, nil
	}
	if u.Phase < s.Phase {
		return s, fmt.Errorf("%s -> %s: %w", s.Phase, u.Phase, ErrInvalidTransition)
	}
	if s.Phase == PhaseComplete {
		if !cmp.Equal(s.Value, u.Value) {
			return s, fmt.Errorf("complete value changed from %v to %v: %w", s.Value, u.Value, ErrInvalidTransition)
		}
		return s, nil
	}
	if u.Value == nil {
		return s, fmt.Errorf("%s update without a value: %w", u.Phase, ErrValidation)
	}
	return StreamState{Value: u.Value, Phase: u.Phase}, nil
}

// Changed reports whether next differs from s in phase or value.
func (s StreamState) Changed(next StreamState) bool {
	return s.Phase != next.Phase || !cmp.Equal(s.Value, next.Value)
}
