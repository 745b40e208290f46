// Package ingest orchestrates one extraction run: it drains a producer's
// snapshot stream into a Dispatcher and reports the terminal state.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/fwojciec/fastlane"
	"github.com/google/uuid"
)

// FailureKind classifies why a session did not complete.
type FailureKind string

const (
	FailureProducer  FailureKind = "producer"
	FailureCancelled FailureKind = "cancelled"
)

// Failure describes a session that ended without a final result.
// TriggerFired tells the caller that downstream work started on the
// trigger ran against unconfirmed data.
type Failure struct {
	Kind         FailureKind
	Err          error
	TriggerFired bool
}

func (f *Failure) Error() string {
	if f.TriggerFired {
		return fmt.Sprintf("%s failure after early trigger: %v", f.Kind, f.Err)
	}
	return fmt.Sprintf("%s failure: %v", f.Kind, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// Result is the outcome of Session.Run. Events is always populated. On
// normal completion Failure is nil and Record is the terminal record; on
// failure Record holds the fields as they stood when the session ended.
type Result struct {
	ID         string
	Schema     *fastlane.Schema
	State      DispatchState
	Record     fastlane.Record
	Events     []fastlane.Event
	Summary    fastlane.Summary
	Failure    *Failure
	StartedAt  time.Time
	FinishedAt time.Time
}

// Session is one StreamIngestSession: one producer, one schema, one run.
// Sessions share no state.
type Session struct {
	producer fastlane.Producer
	schema   *fastlane.Schema
	opts     []Option
	cfg      config
	used     atomic.Bool
}

// NewSession validates its inputs and returns a session ready to Run.
func NewSession(producer fastlane.Producer, schema *fastlane.Schema, opts ...Option) (*Session, error) {
	if schema == nil {
		return nil, fmt.Errorf("nil schema: %w", fastlane.ErrSchemaViolation)
	}
	if producer == nil {
		return nil, errors.New("ingest: nil producer")
	}
	cfg := newConfig(opts)
	if cfg.id == "" {
		cfg.id = uuid.NewString()
	}
	return &Session{producer: producer, schema: schema, opts: opts, cfg: cfg}, nil
}

// ID returns the session ID.
func (s *Session) ID() string { return s.cfg.id }

// Run streams snapshots for input until the producer ends, fails, or ctx
// is cancelled. It returns a Result in every case once streaming has
// started; the error wraps ErrProducerFailed or ErrCancelled when the
// session did not complete.
func (s *Session) Run(ctx context.Context, input string) (*Result, error) {
	if !s.used.CompareAndSwap(false, true) {
		return nil, fastlane.ErrSessionUsed
	}
	log := s.cfg.logger.With(
		slog.String("session_id", s.cfg.id),
		slog.String("schema", s.schema.Name()),
	)
	started := s.cfg.now()
	d := NewDispatcher(fastlane.NewAggregateState(s.schema), s.opts...)
	log.Info("session started", slog.Any("required", s.schema.Required()))

	outcome := s.drain(ctx, d, input)

	res := &Result{
		ID:         s.cfg.id,
		Schema:     s.schema,
		State:      d.State(),
		Record:     d.Aggregate().Record(),
		Events:     d.Events(),
		Summary:    d.Summary(),
		StartedAt:  started,
		FinishedAt: s.cfg.now(),
	}
	if outcome == nil {
		log.Info("session completed",
			slog.Bool("triggered", res.Summary.Triggered),
			slog.Duration("trigger_elapsed", res.Summary.TriggerElapsed),
			slog.Duration("total", res.Summary.Total),
			slog.Int("snapshots", res.Summary.Snapshots),
		)
		return res, nil
	}
	res.Failure = outcome
	log.Warn("session failed",
		slog.String("kind", string(outcome.Kind)),
		slog.Bool("triggered", outcome.TriggerFired),
		slog.Any("error", outcome.Err),
	)
	return res, fmt.Errorf("session %s: %w", s.cfg.id, outcome.Err)
}

// drain feeds the dispatcher until a terminal state. It returns nil on
// normal completion.
func (s *Session) drain(ctx context.Context, d *Dispatcher, input string) *Failure {
	stream, err := s.producer.Stream(ctx, fastlane.Request{Schema: s.schema, Input: input})
	if err != nil {
		return s.fail(ctx, d, err)
	}
	defer stream.Close()

	for {
		if err := ctx.Err(); err != nil {
			return s.cancel(d, err)
		}
		snap, err := stream.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				return s.cancel(d, ctx.Err())
			}
			return s.fail(ctx, d, err)
		}
		// Apply fails only in a terminal state, which drain never leaves
		// the dispatcher in while looping.
		_ = d.Apply(ctx, snap)
		if snap.Final {
			break
		}
	}
	_, _ = d.Complete(ctx)
	return nil
}

func (s *Session) fail(ctx context.Context, d *Dispatcher, err error) *Failure {
	fired := d.Triggered()
	_ = d.Fail(ctx, err)
	return &Failure{
		Kind:         FailureProducer,
		Err:          fmt.Errorf("%w: %w", fastlane.ErrProducerFailed, err),
		TriggerFired: fired,
	}
}

func (s *Session) cancel(d *Dispatcher, err error) *Failure {
	fired := d.Triggered()
	_ = d.Cancel(err)
	return &Failure{
		Kind:         FailureCancelled,
		Err:          fmt.Errorf("%w: %w", fastlane.ErrCancelled, err),
		TriggerFired: fired,
	}
}
