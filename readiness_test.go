package fastlane_test

import (
	"testing"

	"github.com/fwojciec/fastlane"
	"github.com/stretchr/testify/assert"
)

func TestRequireAll(t *testing.T) {
	t.Parallel()
	a := fastlane.NewAggregateState(contactSchema(t))
	r := fastlane.RequireAll()

	a.ApplySnapshot(snap(map[string]fastlane.RawField{"name": rf(`"Alice"`, true)}))
	assert.False(t, r.Ready(a))
	a.ApplySnapshot(snap(map[string]fastlane.RawField{"email": rf(`"a@x.com"`, true)}))
	assert.True(t, r.Ready(a))
}

func TestRequireAtLeast(t *testing.T) {
	t.Parallel()

	t.Run("fires on the nth required field", func(t *testing.T) {
		t.Parallel()
		a := fastlane.NewAggregateState(contactSchema(t))
		r := fastlane.RequireAtLeast(1)
		assert.False(t, r.Ready(a))
		a.ApplySnapshot(snap(map[string]fastlane.RawField{"bio": rf(`"x"`, true)}))
		assert.False(t, r.Ready(a), "optional fields do not count")
		a.ApplySnapshot(snap(map[string]fastlane.RawField{"email": rf(`"a@x.com"`, true)}))
		assert.True(t, r.Ready(a))
	})

	t.Run("clamps to the required set", func(t *testing.T) {
		t.Parallel()
		a := fastlane.NewAggregateState(contactSchema(t))
		a.ApplySnapshot(snap(map[string]fastlane.RawField{
			"name":  rf(`"Alice"`, true),
			"email": rf(`"a@x.com"`, true),
		}))
		assert.True(t, fastlane.RequireAtLeast(10).Ready(a))

		empty := fastlane.NewAggregateState(contactSchema(t))
		assert.False(t, fastlane.RequireAtLeast(0).Ready(empty), "n below one is treated as one")
	})
}

func TestReadinessFunc(t *testing.T) {
	t.Parallel()
	called := false
	r := fastlane.ReadinessFunc(func(*fastlane.AggregateState) bool {
		called = true
		return true
	})
	assert.True(t, r.Ready(nil))
	assert.True(t, called)
}
