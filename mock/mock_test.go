package mock_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/fwojciec/fastlane"
	"github.com/fwojciec/fastlane/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProducer_Stream(t *testing.T) {
	t.Parallel()
	t.Run("delegates to StreamFn", func(t *testing.T) {
		t.Parallel()
		var s mock.Stream
		var gotInput string
		p := mock.Producer{
			StreamFn: func(ctx context.Context, req fastlane.Request) (fastlane.SnapshotStream, error) {
				gotInput = req.Input
				return &s, nil
			},
		}
		got, err := p.Stream(context.Background(), fastlane.Request{Input: "contact card"})
		require.NoError(t, err)
		assert.Equal(t, &s, got)
		assert.Equal(t, "contact card", gotInput)
	})

	t.Run("returns error", func(t *testing.T) {
		t.Parallel()
		wantErr := errors.New("connect refused")
		p := mock.Producer{
			StreamFn: func(ctx context.Context, req fastlane.Request) (fastlane.SnapshotStream, error) {
				return nil, wantErr
			},
		}
		_, err := p.Stream(context.Background(), fastlane.Request{})
		assert.ErrorIs(t, err, wantErr)
	})

	t.Run("panics when StreamFn not set", func(t *testing.T) {
		t.Parallel()
		p := mock.Producer{}
		assert.Panics(t, func() {
			_, _ = p.Stream(context.Background(), fastlane.Request{})
		})
	})
}

func TestStream_Next(t *testing.T) {
	t.Parallel()
	t.Run("delegates to NextFn", func(t *testing.T) {
		t.Parallel()
		want := fastlane.Snapshot{Fields: map[string]fastlane.RawField{
			"name": {Value: json.RawMessage(`"Alice"`), Done: true},
		}}
		s := mock.Stream{
			NextFn: func() (fastlane.Snapshot, error) { return want, nil },
		}
		got, err := s.Next()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("panics when NextFn not set", func(t *testing.T) {
		t.Parallel()
		s := mock.Stream{}
		assert.Panics(t, func() { _, _ = s.Next() })
	})
}

func TestStream_Close(t *testing.T) {
	t.Parallel()
	t.Run("delegates to CloseFn", func(t *testing.T) {
		t.Parallel()
		called := false
		s := mock.Stream{
			CloseFn: func() error {
				called = true
				return nil
			},
		}
		require.NoError(t, s.Close())
		assert.True(t, called)
	})

	t.Run("nil-safe", func(t *testing.T) {
		t.Parallel()
		s := mock.Stream{}
		assert.NoError(t, s.Close())
	})
}

func TestSnapshots(t *testing.T) {
	t.Parallel()
	t.Run("yields snapshots then EOF", func(t *testing.T) {
		t.Parallel()
		a := fastlane.Snapshot{Fields: map[string]fastlane.RawField{"a": {Value: json.RawMessage(`1`)}}}
		b := fastlane.Snapshot{Final: true}
		next := mock.Snapshots(nil, a, b)

		got, err := next()
		require.NoError(t, err)
		assert.Equal(t, a, got)
		got, err = next()
		require.NoError(t, err)
		assert.Equal(t, b, got)
		_, err = next()
		assert.ErrorIs(t, err, io.EOF)
	})

	t.Run("ends with error", func(t *testing.T) {
		t.Parallel()
		wantErr := errors.New("connection reset")
		next := mock.Snapshots(wantErr)
		_, err := next()
		assert.ErrorIs(t, err, wantErr)
	})
}

func TestReadiness_Ready(t *testing.T) {
	t.Parallel()
	r := mock.Readiness{
		ReadyFn: func(*fastlane.AggregateState) bool { return true },
	}
	assert.True(t, r.Ready(nil))
}
