package json

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fwojciec/fastlane"
)

// eventDTO is the JSON representation of an Event with a type discriminator.
type eventDTO struct {
	Type    string          `json:"type"`
	Field   *string         `json:"field,omitempty"`
	Phase   *string         `json:"phase,omitempty"`
	Value   json.RawMessage `json:"value,omitempty"`
	Reason  *string         `json:"reason,omitempty"`
	Error   *string         `json:"error,omitempty"`
	Fields  []fieldDTO      `json:"fields,omitempty"`
	Elapsed *string         `json:"elapsed,omitempty"`
}

// MarshalEvent serializes a single event in the same shape it takes inside
// a report. Observers that stream events use it.
func MarshalEvent(e fastlane.Event) ([]byte, error) {
	dto, err := marshalEvent(e)
	if err != nil {
		return nil, err
	}
	return json.Marshal(dto)
}

func marshalEvent(e fastlane.Event) (eventDTO, error) {
	dto := eventDTO{Type: fastlane.EventName(e)}
	switch ev := e.(type) {
	case fastlane.EventFieldUpdated:
		phase := ev.Phase.String()
		v, err := json.Marshal(ev.Value)
		if err != nil {
			return dto, fmt.Errorf("field %q: %w", ev.Field, err)
		}
		dto.Field, dto.Phase, dto.Value = &ev.Field, &phase, v
	case fastlane.EventValidationRejected:
		dto.Field, dto.Reason = &ev.Field, &ev.Reason
		dto.Error = errString(ev.Err)
	case fastlane.EventEarlyTriggerFired:
		fields, err := marshalRecord(ev.Fields)
		if err != nil {
			return dto, err
		}
		dto.Fields, dto.Elapsed = fields, durString(ev.Elapsed)
	case fastlane.EventAllComplete:
		fields, err := marshalRecord(ev.Fields)
		if err != nil {
			return dto, err
		}
		dto.Fields, dto.Elapsed = fields, durString(ev.Elapsed)
	case fastlane.EventFinalCompleted:
		fields, err := marshalRecord(ev.Fields)
		if err != nil {
			return dto, err
		}
		dto.Fields, dto.Elapsed = fields, durString(ev.Elapsed)
	case fastlane.EventTriggerFailed:
		dto.Error = errString(ev.Err)
	case fastlane.EventFinalFailed:
		dto.Error = errString(ev.Err)
	case fastlane.EventProducerFailed:
		dto.Error = errString(ev.Err)
	case fastlane.EventCancelled:
		dto.Error = errString(ev.Err)
	case fastlane.EventPartialFailure:
		dto.Error = errString(ev.Err)
	default:
		return dto, fmt.Errorf("unknown event type: %T", e)
	}
	return dto, nil
}

func unmarshalEvent(s *fastlane.Schema, dto eventDTO) (fastlane.Event, error) {
	switch dto.Type {
	case "field_updated":
		field := deref(dto.Field)
		phase, err := fastlane.ParsePhase(deref(dto.Phase))
		if err != nil {
			return nil, err
		}
		v, err := decodeValue(s, field, dto.Value)
		if err != nil {
			return nil, err
		}
		return fastlane.EventFieldUpdated{Field: field, Phase: phase, Value: v}, nil
	case "validation_rejected":
		return fastlane.EventValidationRejected{
			Field:  deref(dto.Field),
			Reason: deref(dto.Reason),
			Err:    restoreError(deref(dto.Error)),
		}, nil
	case "early_trigger_fired", "all_complete", "final_completed":
		rec, err := unmarshalRecord(s, dto.Fields)
		if err != nil {
			return nil, err
		}
		elapsed, err := parseDuration(deref(dto.Elapsed))
		if err != nil {
			return nil, err
		}
		switch dto.Type {
		case "early_trigger_fired":
			return fastlane.EventEarlyTriggerFired{Fields: rec, Elapsed: elapsed}, nil
		case "all_complete":
			return fastlane.EventAllComplete{Fields: rec, Elapsed: elapsed}, nil
		}
		return fastlane.EventFinalCompleted{Fields: rec, Elapsed: elapsed}, nil
	case "trigger_failed":
		return fastlane.EventTriggerFailed{Err: restoreError(deref(dto.Error))}, nil
	case "final_failed":
		return fastlane.EventFinalFailed{Err: restoreError(deref(dto.Error))}, nil
	case "producer_failed":
		return fastlane.EventProducerFailed{Err: restoreError(deref(dto.Error))}, nil
	case "cancelled":
		return fastlane.EventCancelled{Err: restoreError(deref(dto.Error))}, nil
	case "partial_failure":
		return fastlane.EventPartialFailure{Err: restoreError(deref(dto.Error))}, nil
	default:
		return nil, fmt.Errorf("unknown event type: %q", dto.Type)
	}
}

func errString(err error) *string {
	if err == nil {
		return nil
	}
	s := err.Error()
	return &s
}

func durString(d time.Duration) *string {
	s := d.String()
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
