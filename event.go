package fastlane

import "time"

// Event is a sealed interface representing an observable dispatch event.
// Events describe what happened to a session; they carry copies, never
// live state. The unexported marker method prevents external
// implementations.
type Event interface {
	event()
}

// EventFieldUpdated reports a field whose phase or value changed.
type EventFieldUpdated struct {
	Field string
	Phase Phase
	Value any
}

func (EventFieldUpdated) event() {}

// EventValidationRejected reports an update that was skipped. The named
// field keeps its previous state.
type EventValidationRejected struct {
	Field  string
	Reason string
	Err    error
}

func (EventValidationRejected) event() {}

// EventEarlyTriggerFired reports that the required fields became complete
// and the trigger callback was started with their values.
type EventEarlyTriggerFired struct {
	Fields  Record
	Elapsed time.Duration
}

func (EventEarlyTriggerFired) event() {}

// EventAllComplete reports that every declared field became complete before
// the stream ended. It is emitted at most once, and never when a field is
// still pending at the end.
type EventAllComplete struct {
	Fields  Record
	Elapsed time.Duration
}

func (EventAllComplete) event() {}

// EventTriggerFailed reports that the trigger callback returned an error
// or panicked. Ingestion is not affected.
type EventTriggerFailed struct {
	Err error
}

func (EventTriggerFailed) event() {}

// EventFinalCompleted reports normal stream end with the terminal record.
type EventFinalCompleted struct {
	Fields  Record
	Elapsed time.Duration
}

func (EventFinalCompleted) event() {}

// EventFinalFailed reports that the final-completion callback returned an error.
type EventFinalFailed struct {
	Err error
}

func (EventFinalFailed) event() {}

// EventProducerFailed reports abnormal termination of the snapshot stream.
type EventProducerFailed struct {
	Err error
}

func (EventProducerFailed) event() {}

// EventCancelled reports that the session was cancelled between snapshots.
type EventCancelled struct {
	Err error
}

func (EventCancelled) event() {}

// EventPartialFailure reports that the early trigger fired but the final
// result is unavailable. Work started by the trigger ran against
// unconfirmed data.
type EventPartialFailure struct {
	Err error
}

func (EventPartialFailure) event() {}

// Interface compliance checks.
var (
	_ Event = EventFieldUpdated{}
	_ Event = EventValidationRejected{}
	_ Event = EventEarlyTriggerFired{}
	_ Event = EventAllComplete{}
	_ Event = EventTriggerFailed{}
	_ Event = EventFinalCompleted{}
	_ Event = EventFinalFailed{}
	_ Event = EventProducerFailed{}
	_ Event = EventCancelled{}
	_ Event = EventPartialFailure{}
)

// EventName returns a stable snake_case name for e, used as the log
// message, metric label and JSON discriminator.
func EventName(e Event) string {
	switch e.(type) {
	case EventFieldUpdated:
		return "field_updated"
	case EventValidationRejected:
		return "validation_rejected"
	case EventEarlyTriggerFired:
		return "early_trigger_fired"
	case EventAllComplete:
		return "all_complete"
	case EventTriggerFailed:
		return "trigger_failed"
	case EventFinalCompleted:
		return "final_completed"
	case EventFinalFailed:
		return "final_failed"
	case EventProducerFailed:
		return "producer_failed"
	case EventCancelled:
		return "cancelled"
	case EventPartialFailure:
		return "partial_failure"
	default:
		return "unknown"
	}
}
