package fastlane

// Readiness decides whether the early trigger may fire. Implementations
// must be monotonic over complete phases: once Ready returns true for a
// state, it must keep returning true as more fields complete.
type Readiness interface {
	Ready(*AggregateState) bool
}

// ReadinessFunc adapts a function to Readiness.
type ReadinessFunc func(*AggregateState) bool

// Ready calls f.
func (f ReadinessFunc) Ready(a *AggregateState) bool { return f(a) }

// RequireAll is ready when every required field is complete. It is the
// default readiness and matches AggregateState.IsReady.
func RequireAll() Readiness {
	return ReadinessFunc(func(a *AggregateState) bool { return a.IsReady() })
}

// RequireAtLeast is ready when at least n required fields are complete.
// n is clamped to [1, len(required)].
func RequireAtLeast(n int) Readiness {
	return ReadinessFunc(func(a *AggregateState) bool {
		want := min(max(n, 1), len(a.schema.required))
		return a.CompleteRequired() >= want
	})
}
