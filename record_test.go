package fastlane_test

import (
	"encoding/json"
	"testing"

	"github.com/fwojciec/fastlane"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecord() fastlane.Record {
	return fastlane.Record{
		{Name: "name", Value: "Alice", Phase: fastlane.PhaseComplete},
		{Name: "age", Value: int64(41), Phase: fastlane.PhaseComplete},
		{Name: "bio", Value: "Lik", Phase: fastlane.PhaseIncomplete},
		{Name: "email", Phase: fastlane.PhasePending},
	}
}

func TestRecord_Get(t *testing.T) {
	t.Parallel()
	r := testRecord()

	fv, ok := r.Get("bio")
	require.True(t, ok)
	assert.Equal(t, fastlane.PhaseIncomplete, fv.Phase)

	_, ok = r.Get("phone")
	assert.False(t, ok)
	assert.Equal(t, 4, r.Len())
	assert.Equal(t, []string{"name", "age", "bio", "email"}, r.Names())
}

func TestRecord_Values(t *testing.T) {
	t.Parallel()
	assert.Equal(t, map[string]any{
		"name": "Alice",
		"age":  int64(41),
		"bio":  "Lik",
	}, testRecord().Values())
}

func TestGet(t *testing.T) {
	t.Parallel()
	r := testRecord()

	name, ok := fastlane.Get[string](r, "name")
	assert.True(t, ok)
	assert.Equal(t, "Alice", name)

	age, ok := fastlane.Get[int64](r, "age")
	assert.True(t, ok)
	assert.Equal(t, int64(41), age)

	_, ok = fastlane.Get[int](r, "age")
	assert.False(t, ok, "wrong type")

	_, ok = fastlane.Get[string](r, "email")
	assert.False(t, ok, "pending")

	_, ok = fastlane.Get[string](r, "phone")
	assert.False(t, ok, "missing")
}

func TestRecord_MarshalJSON(t *testing.T) {
	t.Parallel()
	data, err := json.Marshal(testRecord())
	require.NoError(t, err)
	assert.Equal(t, `{"name":"Alice","age":41,"bio":"Lik","email":null}`, string(data))

	data, err = json.Marshal(fastlane.Record{})
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(data))
}
