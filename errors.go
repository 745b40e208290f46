package fastlane

import "errors"

// Sentinel errors for common failure modes.
var (
	// ErrValidation indicates a snapshot, field value or declaration failed validation.
	ErrValidation = errors.New("validation error")

	// ErrInvalidTransition indicates an update would move a field's phase
	// backward or change an already-complete value.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrSchemaViolation indicates a schema declaration is inconsistent, for
	// example a required field that is not declared.
	ErrSchemaViolation = errors.New("schema violation")

	// ErrSealed indicates a snapshot was applied after the stream ended.
	ErrSealed = errors.New("aggregate state sealed")

	// ErrTriggerFailed indicates the early-trigger callback failed or panicked.
	ErrTriggerFailed = errors.New("early trigger failed")

	// ErrFinalFailed indicates the final-completion callback returned an error.
	ErrFinalFailed = errors.New("final completion failed")

	// ErrProducerFailed indicates the snapshot stream ended abnormally.
	ErrProducerFailed = errors.New("producer failed")

	// ErrCancelled indicates a session was cancelled between snapshots.
	ErrCancelled = errors.New("session cancelled")

	// ErrDispatcherClosed indicates an operation on a dispatcher in a terminal state.
	ErrDispatcherClosed = errors.New("dispatcher closed")

	// ErrSessionUsed indicates Run was called twice on the same session.
	ErrSessionUsed = errors.New("session already run")

	// ErrStreamClosed indicates Next was called on a closed snapshot stream.
	ErrStreamClosed = errors.New("stream closed")
)
