// Package simulate produces snapshots on a timeline of field arrivals. It
// stands in for a real extraction engine in demos and benchmarks.
package simulate

import (
	"cmp"
	"context"
	"encoding/json"
	"io"
	"slices"
	"time"

	"github.com/fwojciec/fastlane"
)

// Arrival is one field value becoming visible at an offset from stream
// start. Done false models an incremental value that is still growing.
type Arrival struct {
	At    time.Duration
	Field string
	Value json.RawMessage
	Done  bool
}

// Arrive returns a done arrival of v encoded as JSON.
func Arrive(at time.Duration, field string, v any) Arrival {
	data, _ := json.Marshal(v)
	return Arrival{At: at, Field: field, Value: data, Done: true}
}

// Partial returns an arrival of a value that is not done yet.
func Partial(at time.Duration, field string, v any) Arrival {
	a := Arrive(at, field, v)
	a.Done = false
	return a
}

// Producer emits one snapshot per arrival, in At order, each after its
// offset has elapsed. The last arrival's snapshot is Final. If Err is set,
// the stream fails with it once FailAfter snapshots have been emitted, or
// after the last arrival when FailAfter exceeds the timeline.
type Producer struct {
	Arrivals  []Arrival
	Err       error
	FailAfter int

	// Sleep waits for d or until ctx is done. Defaults to a timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Interface compliance check.
var _ fastlane.Producer = (*Producer)(nil)

// Stream starts the timeline.
func (p *Producer) Stream(ctx context.Context, _ fastlane.Request) (fastlane.SnapshotStream, error) {
	arrivals := slices.Clone(p.Arrivals)
	slices.SortStableFunc(arrivals, func(a, b Arrival) int {
		return cmp.Compare(a.At, b.At)
	})
	sleep := p.Sleep
	if sleep == nil {
		sleep = Sleep
	}
	return &stream{ctx: ctx, arrivals: arrivals, sleep: sleep, err: p.Err, failAfter: p.FailAfter}, nil
}

type stream struct {
	ctx       context.Context
	arrivals  []Arrival
	sleep     func(context.Context, time.Duration) error
	err       error
	failAfter int
	pos       int
	last      time.Duration
	closed    bool
}

func (s *stream) Next() (fastlane.Snapshot, error) {
	if s.closed {
		return fastlane.Snapshot{}, fastlane.ErrStreamClosed
	}
	if err := s.ctx.Err(); err != nil {
		return fastlane.Snapshot{}, err
	}
	if s.err != nil && s.pos >= min(s.failAfter, len(s.arrivals)) {
		return fastlane.Snapshot{}, s.err
	}
	if s.pos >= len(s.arrivals) {
		return fastlane.Snapshot{}, io.EOF
	}
	a := s.arrivals[s.pos]
	if err := s.sleep(s.ctx, a.At-s.last); err != nil {
		return fastlane.Snapshot{}, err
	}
	s.last = a.At
	s.pos++
	return fastlane.Snapshot{
		Fields: map[string]fastlane.RawField{a.Field: {Value: a.Value, Done: a.Done}},
		Final:  s.pos == len(s.arrivals) && s.err == nil,
	}, nil
}

func (s *stream) Close() error {
	s.closed = true
	return nil
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Scale returns arrivals with every offset multiplied by f.
func Scale(arrivals []Arrival, f float64) []Arrival {
	out := slices.Clone(arrivals)
	for i := range out {
		out[i].At = time.Duration(float64(out[i].At) * f)
	}
	return out
}

// ProfileSchema declares the user profile used by the demo timeline: name
// and email are required, bio and age are not.
func ProfileSchema() *fastlane.Schema {
	return fastlane.MustSchema("user_profile", []fastlane.Field{
		{Name: "name", Kind: fastlane.KindString, Policy: fastlane.PolicyAtomicDone, Required: true, Description: "full name"},
		{Name: "email", Kind: fastlane.KindString, Policy: fastlane.PolicyAtomicDone, Required: true, Description: "contact address"},
		{Name: "bio", Kind: fastlane.KindString, Policy: fastlane.PolicyIncremental, Description: "short biography"},
		{Name: "age", Kind: fastlane.KindInt, Policy: fastlane.PolicyAtomicDone, Description: "age in years"},
	})
}

// ProfileArrivals is a realistic timeline for ProfileSchema: the required
// fields complete at 1.2s, the full record at 3.5s.
func ProfileArrivals() []Arrival {
	return []Arrival{
		Arrive(800*time.Millisecond, "name", "Dr. Sarah Michelle Chen"),
		Arrive(1200*time.Millisecond, "email", "sarah.chen@university.edu"),
		Partial(2000*time.Millisecond, "bio", "Dr. Sarah Michelle Chen is a 35-year-old"),
		Arrive(2800*time.Millisecond, "bio", "Dr. Sarah Michelle Chen is a 35-year-old research scientist."),
		Arrive(3500*time.Millisecond, "age", 35),
	}
}
