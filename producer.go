package fastlane

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"sort"
)

// RawField is a producer's view of one field in a snapshot: the raw JSON
// value seen so far and whether the producer considers it done.
type RawField struct {
	Value json.RawMessage
	Done  bool
}

// Snapshot is one partial update from a producer. Fields absent from the
// map were not mentioned by this update. Final marks the last snapshot of a
// normally terminated stream.
type Snapshot struct {
	Fields map[string]RawField
	Final  bool
}

// SnapshotStream uses a pull-based iterator pattern. Next returns io.EOF
// after the last snapshot; any other error means the stream terminated
// abnormally. Cancellation flows through the context passed to
// Producer.Stream.
type SnapshotStream interface {
	Next() (Snapshot, error)
	Close() error
}

// Producer is the structured-extraction engine seen from the dispatcher:
// something that yields partial snapshots for a request.
type Producer interface {
	Stream(ctx context.Context, req Request) (SnapshotStream, error)
}

// Request identifies one extraction run.
type Request struct {
	Schema *Schema
	Input  string
}

// ValidateSnapshot checks a snapshot against a schema: every mentioned
// field must be declared and carry a value. It reports the first problem
// in field-name order.
func ValidateSnapshot(s *Schema, snap Snapshot) error {
	names := make([]string, 0, len(snap.Fields))
	for name := range snap.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, ok := s.Field(name); !ok {
			return fmt.Errorf("field %q is not declared in schema %q: %w", name, s.Name(), ErrValidation)
		}
		if len(snap.Fields[name].Value) == 0 {
			return fmt.Errorf("field %q has no value: %w", name, ErrValidation)
		}
	}
	return nil
}

// StaticProducer replays a fixed slice of snapshots, optionally ending with
// Err instead of io.EOF.
type StaticProducer struct {
	Snapshots []Snapshot
	Err       error
}

// Interface compliance check.
var _ Producer = (*StaticProducer)(nil)

// Stream returns a stream over a copy of p.Snapshots.
func (p *StaticProducer) Stream(ctx context.Context, _ Request) (SnapshotStream, error) {
	return &staticStream{ctx: ctx, snaps: slices.Clone(p.Snapshots), err: p.Err}, nil
}

type staticStream struct {
	ctx    context.Context
	snaps  []Snapshot
	err    error
	pos    int
	closed bool
}

func (s *staticStream) Next() (Snapshot, error) {
	if s.closed {
		return Snapshot{}, ErrStreamClosed
	}
	if err := s.ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	if s.pos >= len(s.snaps) {
		if s.err != nil {
			return Snapshot{}, s.err
		}
		return Snapshot{}, io.EOF
	}
	snap := s.snaps[s.pos]
	s.pos++
	return snap, nil
}

func (s *staticStream) Close() error {
	s.closed = true
	return nil
}
