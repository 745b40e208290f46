package fastlane_test

import (
	"encoding/json"
	"testing"

	"github.com/fwojciec/fastlane"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rf(v string, done bool) fastlane.RawField {
	return fastlane.RawField{Value: json.RawMessage(v), Done: done}
}

func snap(fields map[string]fastlane.RawField) fastlane.Snapshot {
	return fastlane.Snapshot{Fields: fields}
}

func TestAggregateState_ApplySnapshot(t *testing.T) {
	t.Parallel()

	t.Run("starts pending", func(t *testing.T) {
		t.Parallel()
		a := fastlane.NewAggregateState(contactSchema(t))
		for _, fv := range a.Record() {
			assert.Equal(t, fastlane.PhasePending, fv.Phase, fv.Name)
		}
		assert.False(t, a.IsReady())
		assert.False(t, a.IsFinal())
	})

	t.Run("emits updates in declared order", func(t *testing.T) {
		t.Parallel()
		a := fastlane.NewAggregateState(contactSchema(t))
		events := a.ApplySnapshot(snap(map[string]fastlane.RawField{
			"email": rf(`"a@"`, false),
			"name":  rf(`"Alice"`, true),
		}))
		assert.Equal(t, []fastlane.Event{
			fastlane.EventFieldUpdated{Field: "name", Phase: fastlane.PhaseComplete, Value: "Alice"},
			fastlane.EventFieldUpdated{Field: "email", Phase: fastlane.PhaseIncomplete, Value: "a@"},
		}, events)
	})

	t.Run("absent field keeps its state", func(t *testing.T) {
		t.Parallel()
		a := fastlane.NewAggregateState(contactSchema(t))
		a.ApplySnapshot(snap(map[string]fastlane.RawField{"email": rf(`"a@"`, false)}))
		events := a.ApplySnapshot(snap(map[string]fastlane.RawField{"name": rf(`"Alice"`, true)}))
		require.Len(t, events, 1)

		st, ok := a.Field("email")
		require.True(t, ok)
		assert.Equal(t, fastlane.StreamState{Value: "a@", Phase: fastlane.PhaseIncomplete}, st)
	})

	t.Run("null entry is treated as absent", func(t *testing.T) {
		t.Parallel()
		a := fastlane.NewAggregateState(contactSchema(t))
		a.ApplySnapshot(snap(map[string]fastlane.RawField{"email": rf(`"a@"`, false)}))
		for range 3 {
			events := a.ApplySnapshot(snap(map[string]fastlane.RawField{
				"email": rf(`null`, false),
				"bio":   rf(`null`, false),
			}))
			assert.Empty(t, events)
		}

		email, _ := a.Field("email")
		assert.Equal(t, fastlane.StreamState{Value: "a@", Phase: fastlane.PhaseIncomplete}, email)
		bio, _ := a.Field("bio")
		assert.Equal(t, fastlane.StreamState{}, bio)
	})

	t.Run("unchanged incremental value emits nothing", func(t *testing.T) {
		t.Parallel()
		a := fastlane.NewAggregateState(contactSchema(t))
		a.ApplySnapshot(snap(map[string]fastlane.RawField{"email": rf(`"a@"`, false)}))
		events := a.ApplySnapshot(snap(map[string]fastlane.RawField{"email": rf(`"a@"`, false)}))
		assert.Empty(t, events)
	})

	t.Run("rejects changed complete value without touching other fields", func(t *testing.T) {
		t.Parallel()
		a := fastlane.NewAggregateState(contactSchema(t))
		a.ApplySnapshot(snap(map[string]fastlane.RawField{"name": rf(`"Alice"`, true)}))
		events := a.ApplySnapshot(snap(map[string]fastlane.RawField{
			"name":  rf(`"Bob"`, true),
			"email": rf(`"a@x.com"`, true),
		}))
		require.Len(t, events, 2)
		rej, ok := events[0].(fastlane.EventValidationRejected)
		require.True(t, ok)
		assert.Equal(t, "name", rej.Field)
		assert.ErrorIs(t, rej.Err, fastlane.ErrInvalidTransition)
		assert.Equal(t, fastlane.EventFieldUpdated{Field: "email", Phase: fastlane.PhaseComplete, Value: "a@x.com"}, events[1])

		name, _ := a.Field("name")
		assert.Equal(t, "Alice", name.Value)
	})

	t.Run("rejects regression from complete to incomplete", func(t *testing.T) {
		t.Parallel()
		a := fastlane.NewAggregateState(contactSchema(t))
		a.ApplySnapshot(snap(map[string]fastlane.RawField{"email": rf(`"a@x.com"`, true)}))
		events := a.ApplySnapshot(snap(map[string]fastlane.RawField{"email": rf(`"a@x.co"`, false)}))
		require.Len(t, events, 1)
		rej := events[0].(fastlane.EventValidationRejected)
		assert.ErrorIs(t, rej.Err, fastlane.ErrInvalidTransition)
	})

	t.Run("rejects kind mismatch", func(t *testing.T) {
		t.Parallel()
		a := fastlane.NewAggregateState(contactSchema(t))
		events := a.ApplySnapshot(snap(map[string]fastlane.RawField{"name": rf(`17`, true)}))
		require.Len(t, events, 1)
		rej := events[0].(fastlane.EventValidationRejected)
		assert.Equal(t, "name", rej.Field)
		assert.ErrorIs(t, rej.Err, fastlane.ErrValidation)
		st, _ := a.Field("name")
		assert.Equal(t, fastlane.PhasePending, st.Phase)
	})

	t.Run("rejects undeclared fields in name order", func(t *testing.T) {
		t.Parallel()
		a := fastlane.NewAggregateState(contactSchema(t))
		events := a.ApplySnapshot(snap(map[string]fastlane.RawField{
			"zip":   rf(`"0150"`, true),
			"phone": rf(`"555"`, true),
		}))
		require.Len(t, events, 2)
		assert.Equal(t, "phone", events[0].(fastlane.EventValidationRejected).Field)
		assert.Equal(t, "zip", events[1].(fastlane.EventValidationRejected).Field)
	})

	t.Run("final snapshot completes present fields", func(t *testing.T) {
		t.Parallel()
		a := fastlane.NewAggregateState(contactSchema(t))
		events := a.ApplySnapshot(fastlane.Snapshot{
			Fields: map[string]fastlane.RawField{"bio": rf(`"Likes tea"`, false)},
			Final:  true,
		})
		assert.Equal(t, []fastlane.Event{
			fastlane.EventFieldUpdated{Field: "bio", Phase: fastlane.PhaseComplete, Value: "Likes tea"},
		}, events)
	})

	t.Run("rejects snapshots after seal", func(t *testing.T) {
		t.Parallel()
		a := fastlane.NewAggregateState(contactSchema(t))
		a.Seal()
		events := a.ApplySnapshot(snap(map[string]fastlane.RawField{"name": rf(`"Alice"`, true)}))
		require.Len(t, events, 1)
		assert.ErrorIs(t, events[0].(fastlane.EventValidationRejected).Err, fastlane.ErrSealed)
		st, _ := a.Field("name")
		assert.Equal(t, fastlane.PhasePending, st.Phase)
	})
}

func TestAggregateState_IsReady(t *testing.T) {
	t.Parallel()
	a := fastlane.NewAggregateState(contactSchema(t))

	a.ApplySnapshot(snap(map[string]fastlane.RawField{"name": rf(`"Alice"`, true)}))
	assert.False(t, a.IsReady())
	assert.Equal(t, 1, a.CompleteRequired())

	a.ApplySnapshot(snap(map[string]fastlane.RawField{"email": rf(`"a@x.com"`, false)}))
	assert.False(t, a.IsReady(), "incomplete required field is not ready")

	a.ApplySnapshot(snap(map[string]fastlane.RawField{"email": rf(`"a@x.com"`, true)}))
	assert.True(t, a.IsReady())
	assert.Equal(t, 2, a.CompleteRequired())

	st, _ := a.Field("bio")
	assert.Equal(t, fastlane.PhasePending, st.Phase, "optional fields do not gate readiness")
}

func TestAggregateState_AllComplete(t *testing.T) {
	t.Parallel()
	a := fastlane.NewAggregateState(contactSchema(t))

	a.ApplySnapshot(snap(map[string]fastlane.RawField{
		"name":  rf(`"Alice"`, true),
		"email": rf(`"a@x.com"`, true),
	}))
	assert.True(t, a.IsReady())
	assert.False(t, a.AllComplete(), "optional field still pending")

	a.ApplySnapshot(snap(map[string]fastlane.RawField{"bio": rf(`"Likes"`, false)}))
	assert.False(t, a.AllComplete(), "optional field still incomplete")

	a.ApplySnapshot(snap(map[string]fastlane.RawField{"bio": rf(`"Likes tea"`, true)}))
	assert.True(t, a.AllComplete())
}

func TestAggregateState_Seal(t *testing.T) {
	t.Parallel()
	a := fastlane.NewAggregateState(contactSchema(t))
	a.ApplySnapshot(snap(map[string]fastlane.RawField{
		"name": rf(`"Alice"`, true),
		"bio":  rf(`"Likes"`, false),
	}))

	events := a.Seal()
	assert.Equal(t, []fastlane.Event{
		fastlane.EventFieldUpdated{Field: "bio", Phase: fastlane.PhaseComplete, Value: "Likes"},
	}, events)
	assert.True(t, a.IsFinal())
	assert.Nil(t, a.Seal(), "seal is idempotent")

	for _, fv := range a.Record() {
		assert.NotEqual(t, fastlane.PhaseIncomplete, fv.Phase, fv.Name)
	}
	email, _ := a.Field("email")
	assert.Equal(t, fastlane.PhasePending, email.Phase, "never-seen field stays pending")
}

func TestAggregateState_RecordIsCopy(t *testing.T) {
	t.Parallel()
	a := fastlane.NewAggregateState(contactSchema(t))
	a.ApplySnapshot(snap(map[string]fastlane.RawField{"name": rf(`"Alice"`, true)}))

	rec := a.Record()
	rec[0].Value = "Mallory"
	st, _ := a.Field("name")
	assert.Equal(t, "Alice", st.Value)

	req := a.RequiredRecord()
	assert.Equal(t, []string{"name", "email"}, req.Names())
}

func TestAggregateState_Field(t *testing.T) {
	t.Parallel()
	a := fastlane.NewAggregateState(contactSchema(t))
	_, ok := a.Field("phone")
	assert.False(t, ok)
	assert.Equal(t, "contact", a.Schema().Name())
}
