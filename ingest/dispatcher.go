package ingest

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/fwojciec/fastlane"
)

// DispatchState is the lifecycle state of a Dispatcher.
type DispatchState int

const (
	StateIdle       DispatchState = iota // No snapshot consumed yet.
	StateStreaming                       // Consuming snapshots; trigger not fired.
	StateTriggered                       // Trigger fired; remaining fields still streaming.
	StateCompleted                       // Stream ended normally. Terminal.
	StateFailed                          // Producer ended abnormally. Terminal.
	StateCancelled                       // Session cancelled between snapshots. Terminal.
)

var stateNames = map[DispatchState]string{
	StateIdle:      "idle",
	StateStreaming: "streaming",
	StateTriggered: "triggered",
	StateCompleted: "completed",
	StateFailed:    "failed",
	StateCancelled: "cancelled",
}

func (s DispatchState) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return "unknown"
}

// ParseDispatchState is the inverse of DispatchState.String.
func ParseDispatchState(s string) (DispatchState, bool) {
	for st, n := range stateNames {
		if n == s {
			return st, true
		}
	}
	return StateIdle, false
}

// Terminal reports whether no transition leaves s.
func (s DispatchState) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// Dispatcher applies snapshots to an AggregateState, fires the early
// trigger at most once and the final callback exactly once on normal end.
//
// A Dispatcher is driven by a single goroutine and is not safe for
// concurrent use. The trigger callback runs on its own goroutine and
// reports back only through a channel that the dispatcher drains, so every
// event is emitted from the driving goroutine.
type Dispatcher struct {
	agg       *fastlane.AggregateState
	readiness fastlane.Readiness
	onTrigger fastlane.TriggerFunc
	onFinal   fastlane.FinalFunc
	onAll     fastlane.AllCompleteFunc
	handlers  []func(fastlane.Event)
	now       func() time.Time

	state          DispatchState
	start          time.Time
	events         []fastlane.Event
	snapshots      int
	rejections     int
	fired          bool
	triggerElapsed time.Duration
	allComplete    bool
	allElapsed     time.Duration
	total          time.Duration

	triggerCh   chan error // nil until the trigger callback starts
	triggerDone bool
}

// NewDispatcher returns an idle dispatcher over agg. Only the trigger,
// final, all-complete, readiness, event handler and clock options apply.
func NewDispatcher(agg *fastlane.AggregateState, opts ...Option) *Dispatcher {
	cfg := newConfig(opts)
	return &Dispatcher{
		agg:       agg,
		readiness: cfg.readiness,
		onTrigger: cfg.trigger,
		onFinal:   cfg.final,
		onAll:     cfg.complete,
		handlers:  cfg.handlers,
		now:       cfg.now,
		start:     cfg.now(),
	}
}

// State returns the current dispatch state.
func (d *Dispatcher) State() DispatchState { return d.state }

// Triggered reports whether the early trigger has fired.
func (d *Dispatcher) Triggered() bool { return d.fired }

// TriggeredAt returns the time since start at which the trigger fired.
func (d *Dispatcher) TriggeredAt() (time.Duration, bool) {
	return d.triggerElapsed, d.fired
}

// Aggregate returns the state the dispatcher writes to. Callers must not
// mutate it.
func (d *Dispatcher) Aggregate() *fastlane.AggregateState { return d.agg }

// Events returns a copy of the event log.
func (d *Dispatcher) Events() []fastlane.Event { return slices.Clone(d.events) }

// Summary returns the timing summary so far.
func (d *Dispatcher) Summary() fastlane.Summary {
	total := d.total
	if !d.state.Terminal() {
		total = d.elapsed()
	}
	return fastlane.Summary{
		Snapshots:          d.snapshots,
		Rejections:         d.rejections,
		Triggered:          d.fired,
		TriggerElapsed:     d.triggerElapsed,
		AllComplete:        d.allComplete,
		AllCompleteElapsed: d.allElapsed,
		Total:              total,
	}
}

// Apply consumes one snapshot. It re-evaluates readiness after the
// snapshot has been fully applied and fires the trigger the first time it
// holds, then reports EventAllComplete the first time every field is
// complete. Malformed updates are reported as events, never as errors; Apply
// fails only in a terminal state.
func (d *Dispatcher) Apply(ctx context.Context, snap fastlane.Snapshot) error {
	if d.state.Terminal() {
		return fmt.Errorf("apply in state %s: %w", d.state, fastlane.ErrDispatcherClosed)
	}
	if d.state == StateIdle {
		d.state = StateStreaming
	}
	d.snapshots++
	for _, e := range d.agg.ApplySnapshot(snap) {
		if _, ok := e.(fastlane.EventValidationRejected); ok {
			d.rejections++
		}
		d.emit(e)
	}
	d.pollTrigger()
	if d.state == StateStreaming && d.readiness.Ready(d.agg) {
		d.fire(ctx)
	}
	if !d.allComplete && d.agg.AllComplete() {
		d.completeAll()
	}
	return nil
}

func (d *Dispatcher) completeAll() {
	d.allComplete = true
	d.allElapsed = d.elapsed()
	rec := d.agg.Record()
	d.emit(fastlane.EventAllComplete{Fields: rec, Elapsed: d.allElapsed})
	if d.onAll != nil {
		d.onAll(slices.Clone(rec))
	}
}

// fire starts the trigger callback on a detached goroutine. The record is a
// copy; complete fields can no longer change, so the callback needs no
// synchronization.
func (d *Dispatcher) fire(ctx context.Context) {
	d.state = StateTriggered
	d.fired = true
	d.triggerElapsed = d.elapsed()
	rec := d.agg.RequiredRecord()
	d.emit(fastlane.EventEarlyTriggerFired{Fields: rec, Elapsed: d.triggerElapsed})

	fn := d.onTrigger
	if fn == nil {
		d.triggerDone = true
		return
	}
	ch := make(chan error, 1)
	d.triggerCh = ch
	tctx := context.WithoutCancel(ctx)
	go func() {
		ch <- runTrigger(tctx, fn, rec)
	}()
}

func runTrigger(ctx context.Context, fn fastlane.TriggerFunc, rec fastlane.Record) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", fastlane.ErrTriggerFailed, r)
		}
	}()
	if err := fn(ctx, rec); err != nil {
		return fmt.Errorf("%w: %w", fastlane.ErrTriggerFailed, err)
	}
	return nil
}

// pollTrigger records the trigger outcome if it is already available.
func (d *Dispatcher) pollTrigger() {
	if d.triggerCh == nil || d.triggerDone {
		return
	}
	select {
	case err := <-d.triggerCh:
		d.triggerOutcome(err)
	default:
	}
}

// awaitTrigger waits for the trigger outcome or ctx, whichever comes first.
func (d *Dispatcher) awaitTrigger(ctx context.Context) {
	if d.triggerCh == nil || d.triggerDone {
		return
	}
	select {
	case err := <-d.triggerCh:
		d.triggerOutcome(err)
	case <-ctx.Done():
	}
}

func (d *Dispatcher) triggerOutcome(err error) {
	d.triggerDone = true
	if err != nil {
		d.emit(fastlane.EventTriggerFailed{Err: err})
	}
}

// Complete ends the stream normally: the state is sealed, EventFinalCompleted
// is emitted and the final callback runs exactly once with the terminal
// record. The trigger callback may still be running when the final callback
// starts; Complete then waits for its outcome, bounded by ctx.
func (d *Dispatcher) Complete(ctx context.Context) (fastlane.Record, error) {
	if d.state.Terminal() {
		return nil, fmt.Errorf("complete in state %s: %w", d.state, fastlane.ErrDispatcherClosed)
	}
	for _, e := range d.agg.Seal() {
		d.emit(e)
	}
	d.pollTrigger()
	d.state = StateCompleted
	d.total = d.elapsed()
	rec := d.agg.Record()
	d.emit(fastlane.EventFinalCompleted{Fields: rec, Elapsed: d.total})

	if d.onFinal != nil {
		if err := runFinal(ctx, d.onFinal, rec, d.Events()); err != nil {
			d.emit(fastlane.EventFinalFailed{Err: err})
		}
	}
	d.awaitTrigger(ctx)
	return rec, nil
}

func runFinal(ctx context.Context, fn fastlane.FinalFunc, rec fastlane.Record, events []fastlane.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", fastlane.ErrFinalFailed, r)
		}
	}()
	if err := fn(ctx, rec, events); err != nil {
		return fmt.Errorf("%w: %w", fastlane.ErrFinalFailed, err)
	}
	return nil
}

// Fail ends the session after abnormal producer termination. No final
// callback runs. If the trigger had fired, EventPartialFailure is emitted.
// Fail waits for the trigger outcome, bounded by ctx.
func (d *Dispatcher) Fail(ctx context.Context, cause error) error {
	if d.state.Terminal() {
		return fmt.Errorf("fail in state %s: %w", d.state, fastlane.ErrDispatcherClosed)
	}
	d.state = StateFailed
	d.total = d.elapsed()
	err := fmt.Errorf("%w: %w", fastlane.ErrProducerFailed, cause)
	d.emit(fastlane.EventProducerFailed{Err: err})
	if d.fired {
		d.emit(fastlane.EventPartialFailure{Err: err})
	}
	d.awaitTrigger(ctx)
	return nil
}

// Cancel ends the session on cancellation. In-flight callbacks are not
// interrupted and not awaited.
func (d *Dispatcher) Cancel(cause error) error {
	if d.state.Terminal() {
		return fmt.Errorf("cancel in state %s: %w", d.state, fastlane.ErrDispatcherClosed)
	}
	d.state = StateCancelled
	d.total = d.elapsed()
	err := fmt.Errorf("%w: %w", fastlane.ErrCancelled, cause)
	d.emit(fastlane.EventCancelled{Err: err})
	if d.fired {
		d.emit(fastlane.EventPartialFailure{Err: err})
	}
	d.pollTrigger()
	return nil
}

func (d *Dispatcher) emit(e fastlane.Event) {
	d.events = append(d.events, e)
	for _, h := range d.handlers {
		h(e)
	}
}

func (d *Dispatcher) elapsed() time.Duration {
	return d.now().Sub(d.start)
}
