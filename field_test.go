package fastlane_test

import (
	"testing"

	"github.com/fwojciec/fastlane"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamState_Apply(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		from    fastlane.StreamState
		update  fastlane.FieldUpdate
		want    fastlane.StreamState
		wantErr error
	}{
		{
			name:   "pending update is a no-op",
			from:   fastlane.StreamState{Value: "Al", Phase: fastlane.PhaseIncomplete},
			update: fastlane.FieldUpdate{Phase: fastlane.PhasePending},
			want:   fastlane.StreamState{Value: "Al", Phase: fastlane.PhaseIncomplete},
		},
		{
			name:   "pending to incomplete",
			from:   fastlane.StreamState{},
			update: fastlane.FieldUpdate{Value: "Al", Phase: fastlane.PhaseIncomplete},
			want:   fastlane.StreamState{Value: "Al", Phase: fastlane.PhaseIncomplete},
		},
		{
			name:   "pending to complete",
			from:   fastlane.StreamState{},
			update: fastlane.FieldUpdate{Value: "Alice", Phase: fastlane.PhaseComplete},
			want:   fastlane.StreamState{Value: "Alice", Phase: fastlane.PhaseComplete},
		},
		{
			name:   "incomplete value grows",
			from:   fastlane.StreamState{Value: "Al", Phase: fastlane.PhaseIncomplete},
			update: fastlane.FieldUpdate{Value: "Alic", Phase: fastlane.PhaseIncomplete},
			want:   fastlane.StreamState{Value: "Alic", Phase: fastlane.PhaseIncomplete},
		},
		{
			name:   "incomplete to complete",
			from:   fastlane.StreamState{Value: "Alic", Phase: fastlane.PhaseIncomplete},
			update: fastlane.FieldUpdate{Value: "Alice", Phase: fastlane.PhaseComplete},
			want:   fastlane.StreamState{Value: "Alice", Phase: fastlane.PhaseComplete},
		},
		{
			name:   "complete re-reported unchanged",
			from:   fastlane.StreamState{Value: "Alice", Phase: fastlane.PhaseComplete},
			update: fastlane.FieldUpdate{Value: "Alice", Phase: fastlane.PhaseComplete},
			want:   fastlane.StreamState{Value: "Alice", Phase: fastlane.PhaseComplete},
		},
		{
			name:    "complete to incomplete",
			from:    fastlane.StreamState{Value: "Alice", Phase: fastlane.PhaseComplete},
			update:  fastlane.FieldUpdate{Value: "Ali", Phase: fastlane.PhaseIncomplete},
			want:    fastlane.StreamState{Value: "Alice", Phase: fastlane.PhaseComplete},
			wantErr: fastlane.ErrInvalidTransition,
		},
		{
			name:    "complete value changed",
			from:    fastlane.StreamState{Value: "Alice", Phase: fastlane.PhaseComplete},
			update:  fastlane.FieldUpdate{Value: "Bob", Phase: fastlane.PhaseComplete},
			want:    fastlane.StreamState{Value: "Alice", Phase: fastlane.PhaseComplete},
			wantErr: fastlane.ErrInvalidTransition,
		},
		{
			name:    "missing value",
			from:    fastlane.StreamState{},
			update:  fastlane.FieldUpdate{Phase: fastlane.PhaseIncomplete},
			want:    fastlane.StreamState{},
			wantErr: fastlane.ErrValidation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := tt.from.Apply(tt.update)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStreamState_ApplyComparesStructuredValues(t *testing.T) {
	t.Parallel()
	from := fastlane.StreamState{
		Value: map[string]any{"city": "Oslo", "zip": []any{"0150"}},
		Phase: fastlane.PhaseComplete,
	}
	got, err := from.Apply(fastlane.FieldUpdate{
		Value: map[string]any{"city": "Oslo", "zip": []any{"0150"}},
		Phase: fastlane.PhaseComplete,
	})
	require.NoError(t, err)
	assert.Equal(t, from, got)
}

func TestStreamState_Changed(t *testing.T) {
	t.Parallel()
	s := fastlane.StreamState{Value: "Al", Phase: fastlane.PhaseIncomplete}
	assert.False(t, s.Changed(fastlane.StreamState{Value: "Al", Phase: fastlane.PhaseIncomplete}))
	assert.True(t, s.Changed(fastlane.StreamState{Value: "Ali", Phase: fastlane.PhaseIncomplete}))
	assert.True(t, s.Changed(fastlane.StreamState{Value: "Al", Phase: fastlane.PhaseComplete}))
}
