package fastlane

import "context"

// TriggerFunc is the downstream job started by the early trigger. It
// receives the required-field values and runs detached from ingestion; a
// returned error is reported as EventTriggerFailed, never raised into the
// dispatcher.
type TriggerFunc func(ctx context.Context, required Record) error

// FinalFunc receives the terminal record of a normally completed stream and
// the session's event log up to completion.
type FinalFunc func(ctx context.Context, record Record, events []Event) error

// AllCompleteFunc is notified once with the full record when every declared
// field is complete. It runs on the dispatching goroutine and must not block.
type AllCompleteFunc func(record Record)
