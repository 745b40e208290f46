package replay

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	iofs "io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fwojciec/fastlane"
)

// Encoder writes frames as JSON Lines. It is safe for concurrent use.
type Encoder struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewEncoder returns an encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{enc: json.NewEncoder(w)}
}

// Encode writes one frame.
func (e *Encoder) Encode(f Frame) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.enc.Encode(f)
}

// Tee wraps a producer so every snapshot it yields is also written to enc
// with its offset since the stream opened. An abnormal end is recorded as
// an error frame.
func Tee(p fastlane.Producer, enc *Encoder) fastlane.Producer {
	return &teeProducer{inner: p, enc: enc}
}

type teeProducer struct {
	inner fastlane.Producer
	enc   *Encoder
}

func (t *teeProducer) Stream(ctx context.Context, req fastlane.Request) (fastlane.SnapshotStream, error) {
	s, err := t.inner.Stream(ctx, req)
	if err != nil {
		return nil, err
	}
	return &teeStream{inner: s, enc: t.enc, start: time.Now()}, nil
}

type teeStream struct {
	inner fastlane.SnapshotStream
	enc   *Encoder
	start time.Time
}

func (t *teeStream) Next() (fastlane.Snapshot, error) {
	snap, err := t.inner.Next()
	switch {
	case err == io.EOF:
		return snap, err
	case err != nil:
		if werr := t.enc.Encode(Frame{Error: err.Error(), AtMS: time.Since(t.start).Milliseconds()}); werr != nil {
			return snap, fmt.Errorf("%w (recording failed: %v)", err, werr)
		}
		return snap, err
	}
	if werr := t.enc.Encode(FrameOf(snap, time.Since(t.start))); werr != nil {
		return snap, fmt.Errorf("record snapshot: %w", werr)
	}
	return snap, nil
}

func (t *teeStream) Close() error { return t.inner.Close() }

// Glob returns the fixture files under root matching a doublestar pattern
// such as "**/*.jsonl", sorted and joined with root.
func Glob(root, pattern string) ([]string, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid glob pattern %q", pattern)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("fixture root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("fixture root %s is not a directory", root)
	}

	var matches []string
	err = doublestar.GlobWalk(os.DirFS(root), pattern, func(path string, d iofs.DirEntry) error {
		if d.IsDir() {
			return nil
		}
		matches = append(matches, filepath.Join(root, filepath.FromSlash(path)))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("match %q: %w", pattern, err)
	}
	sort.Strings(matches)
	return matches, nil
}
