package ingest_test

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/fwojciec/fastlane"
	"github.com/stretchr/testify/require"
)

// contactSchema declares name (atomic) and email (incremental) as required
// and bio (incremental) as optional.
func contactSchema(t *testing.T) *fastlane.Schema {
	t.Helper()
	s, err := fastlane.NewSchema("contact", []fastlane.Field{
		{Name: "name", Kind: fastlane.KindString, Policy: fastlane.PolicyAtomicDone, Required: true},
		{Name: "email", Kind: fastlane.KindString, Policy: fastlane.PolicyIncremental, Required: true},
		{Name: "bio", Kind: fastlane.KindString, Policy: fastlane.PolicyIncremental},
	})
	require.NoError(t, err)
	return s
}

func rf(v string, done bool) fastlane.RawField {
	return fastlane.RawField{Value: json.RawMessage(v), Done: done}
}

// contactSnapshots completes name in the first snapshot, email in the second
// and bio in the final one.
func contactSnapshots() []fastlane.Snapshot {
	return []fastlane.Snapshot{
		{Fields: map[string]fastlane.RawField{
			"name":  rf(`"Alice"`, true),
			"email": rf(`"a@x"`, false),
		}},
		{Fields: map[string]fastlane.RawField{
			"email": rf(`"a@x.com"`, true),
			"bio":   rf(`"Likes"`, false),
		}},
		{Fields: map[string]fastlane.RawField{
			"bio": rf(`"Likes tea"`, true),
		}, Final: true},
	}
}

// filter returns the events of type T in order.
func filter[T fastlane.Event](events []fastlane.Event) []T {
	var out []T
	for _, e := range events {
		if v, ok := e.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
