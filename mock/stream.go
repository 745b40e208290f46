package mock

import (
	"io"

	"github.com/fwojciec/fastlane"
)

// Interface compliance check.
var _ fastlane.SnapshotStream = (*Stream)(nil)

// Stream is a test double for fastlane.SnapshotStream.
// NextFn panics when nil to catch missing setup. CloseFn is nil-safe
// because callers commonly defer stream.Close().
type Stream struct {
	NextFn  func() (fastlane.Snapshot, error)
	CloseFn func() error
}

// Next delegates to NextFn.
func (s *Stream) Next() (fastlane.Snapshot, error) {
	return s.NextFn()
}

// Close delegates to CloseFn. Returns nil when CloseFn is not set.
func (s *Stream) Close() error {
	if s.CloseFn == nil {
		return nil
	}
	return s.CloseFn()
}

// Snapshots returns a NextFn that yields snaps in order and then err, or
// io.EOF when err is nil.
func Snapshots(err error, snaps ...fastlane.Snapshot) func() (fastlane.Snapshot, error) {
	i := 0
	return func() (fastlane.Snapshot, error) {
		if i < len(snaps) {
			i++
			return snaps[i-1], nil
		}
		if err != nil {
			return fastlane.Snapshot{}, err
		}
		return fastlane.Snapshot{}, io.EOF
	}
}
