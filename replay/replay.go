// Package replay reads and writes snapshot fixtures in JSON Lines format.
//
// Each line is one frame:
//
//	{"fields": {"name": "Alice", "email": "a@"}, "done": ["name"], "at_ms": 120}
//	{"fields": {"email": "a@x.com"}, "done": ["email"], "final": true}
//	{"error": "connection reset"}
//
// A frame with an error terminates the stream abnormally. Blank lines are
// ignored.
package replay

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"github.com/fwojciec/fastlane"
)

// Frame is one line of a fixture.
type Frame struct {
	Fields map[string]json.RawMessage `json:"fields,omitempty"`
	Done   []string                   `json:"done,omitempty"`
	Final  bool                       `json:"final,omitempty"`
	Error  string                     `json:"error,omitempty"`
	AtMS   int64                      `json:"at_ms,omitempty"`
}

// Snapshot converts the frame to a snapshot.
func (f Frame) Snapshot() fastlane.Snapshot {
	snap := fastlane.Snapshot{Final: f.Final}
	if len(f.Fields) > 0 {
		snap.Fields = make(map[string]fastlane.RawField, len(f.Fields))
		for name, v := range f.Fields {
			snap.Fields[name] = fastlane.RawField{Value: v, Done: slices.Contains(f.Done, name)}
		}
	}
	return snap
}

// FrameOf converts a snapshot observed at offset into a frame.
func FrameOf(snap fastlane.Snapshot, at time.Duration) Frame {
	f := Frame{Final: snap.Final, AtMS: at.Milliseconds()}
	if len(snap.Fields) > 0 {
		f.Fields = make(map[string]json.RawMessage, len(snap.Fields))
		for name, raw := range snap.Fields {
			f.Fields[name] = raw.Value
			if raw.Done {
				f.Done = append(f.Done, name)
			}
		}
		slices.Sort(f.Done)
	}
	return f
}

// Option configures a Stream.
type Option func(*Stream)

// WithPacing delays each frame until its at_ms offset has elapsed since the
// first call to Next.
func WithPacing() Option {
	return func(s *Stream) { s.pace = true }
}

// Stream is a fastlane.SnapshotStream over a fixture.
type Stream struct {
	ctx     context.Context
	scanner *bufio.Scanner
	closer  io.Closer
	name    string
	line    int
	pace    bool
	start   time.Time
	ended   bool
	closed  bool
}

// Interface compliance check.
var _ fastlane.SnapshotStream = (*Stream)(nil)

// NewStream reads frames from r. name identifies the fixture in errors. If r
// is an io.Closer, Close closes it.
func NewStream(ctx context.Context, r io.Reader, name string, opts ...Option) *Stream {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	s := &Stream{ctx: ctx, scanner: sc, name: name}
	if c, ok := r.(io.Closer); ok {
		s.closer = c
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open opens a fixture file.
func Open(ctx context.Context, path string, opts ...Option) (*Stream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fixture: %w", err)
	}
	return NewStream(ctx, f, path, opts...), nil
}

// Next returns the next frame's snapshot. It returns io.EOF after a final
// frame or at the end of input.
func (s *Stream) Next() (fastlane.Snapshot, error) {
	if s.closed {
		return fastlane.Snapshot{}, fastlane.ErrStreamClosed
	}
	if s.ended {
		return fastlane.Snapshot{}, io.EOF
	}
	if err := s.ctx.Err(); err != nil {
		return fastlane.Snapshot{}, err
	}
	if s.start.IsZero() {
		s.start = time.Now()
	}
	for s.scanner.Scan() {
		s.line++
		data := s.scanner.Bytes()
		if len(bytes.TrimSpace(data)) == 0 {
			continue
		}
		var f Frame
		if err := json.Unmarshal(data, &f); err != nil {
			return fastlane.Snapshot{}, fmt.Errorf("%s:%d: %v: %w", s.name, s.line, err, fastlane.ErrValidation)
		}
		if f.Error != "" {
			s.ended = true
			return fastlane.Snapshot{}, fmt.Errorf("%s:%d: %s", s.name, s.line, f.Error)
		}
		if err := s.wait(time.Duration(f.AtMS) * time.Millisecond); err != nil {
			return fastlane.Snapshot{}, err
		}
		if f.Final {
			s.ended = true
		}
		return f.Snapshot(), nil
	}
	if err := s.scanner.Err(); err != nil {
		return fastlane.Snapshot{}, fmt.Errorf("read %s: %w", s.name, err)
	}
	s.ended = true
	return fastlane.Snapshot{}, io.EOF
}

func (s *Stream) wait(at time.Duration) error {
	if !s.pace {
		return nil
	}
	d := time.Until(s.start.Add(at))
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-s.ctx.Done():
		return s.ctx.Err()
	case <-t.C:
		return nil
	}
}

// Close releases the underlying reader.
func (s *Stream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

// Producer replays the fixture at Path for every request.
type Producer struct {
	Path string
	Pace bool
}

// Interface compliance check.
var _ fastlane.Producer = (*Producer)(nil)

// Stream opens the fixture.
func (p *Producer) Stream(ctx context.Context, _ fastlane.Request) (fastlane.SnapshotStream, error) {
	var opts []Option
	if p.Pace {
		opts = append(opts, WithPacing())
	}
	return Open(ctx, p.Path, opts...)
}
