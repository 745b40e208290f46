package fastlane

import (
	"fmt"
	"sort"
)

// AggregateState is the composite record of all tracked fields of one
// session. It has a single writer (the dispatcher); readers receive Record
// copies.
type AggregateState struct {
	schema *Schema
	cells  []StreamState // indexed like schema.fields
	sealed bool
}

// NewAggregateState returns a state with every declared field pending.
func NewAggregateState(s *Schema) *AggregateState {
	return &AggregateState{
		schema: s,
		cells:  make([]StreamState, s.Len()),
	}
}

// Schema returns the schema the state was built from.
func (a *AggregateState) Schema() *Schema { return a.schema }

// ApplySnapshot routes every declared field mentioned by snap through its
// policy and updates its cell. It returns the events produced, in declared
// field order followed by rejections of undeclared fields in name order.
//
// A rejected update leaves only its own field untouched; other fields in the
// same snapshot are still applied.
func (a *AggregateState) ApplySnapshot(snap Snapshot) []Event {
	if a.sealed {
		return []Event{EventValidationRejected{
			Reason: "snapshot after end of stream",
			Err:    ErrSealed,
		}}
	}

	var events []Event
	for i, f := range a.schema.fields {
		raw, present := snap.Fields[f.Name]
		if !present {
			continue
		}
		if snap.Final {
			// The last snapshot carries terminal values.
			raw.Done = true
		}
		upd, err := f.Policy.Resolve(f.Kind, raw, present)
		if err != nil {
			events = append(events, reject(f.Name, err))
			continue
		}
		next, err := a.cells[i].Apply(upd)
		if err != nil {
			events = append(events, reject(f.Name, err))
			continue
		}
		if a.cells[i].Changed(next) {
			a.cells[i] = next
			events = append(events, EventFieldUpdated{Field: f.Name, Phase: next.Phase, Value: next.Value})
		}
	}

	var unknown []string
	for name := range snap.Fields {
		if _, ok := a.schema.index[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)
	for _, name := range unknown {
		events = append(events, reject(name, fmt.Errorf("field %q is not declared: %w", name, ErrValidation)))
	}
	return events
}

func reject(field string, err error) EventValidationRejected {
	return EventValidationRejected{Field: field, Reason: err.Error(), Err: err}
}

// IsReady reports whether every required field is complete.
func (a *AggregateState) IsReady() bool {
	for i, f := range a.schema.fields {
		if f.Required && a.cells[i].Phase != PhaseComplete {
			return false
		}
	}
	return true
}

// AllComplete reports whether every declared field is complete.
func (a *AggregateState) AllComplete() bool {
	for _, c := range a.cells {
		if c.Phase != PhaseComplete {
			return false
		}
	}
	return true
}

// CompleteRequired returns how many required fields are complete.
func (a *AggregateState) CompleteRequired() int {
	n := 0
	for i, f := range a.schema.fields {
		if f.Required && a.cells[i].Phase == PhaseComplete {
			n++
		}
	}
	return n
}

// IsFinal reports whether the stream has ended. Only Seal sets it: a field
// may legitimately stay pending forever.
func (a *AggregateState) IsFinal() bool { return a.sealed }

// Seal marks the end of the stream. Incomplete fields are promoted to
// complete with their last value, so a sealed state holds only complete or
// pending fields. Seal is idempotent.
func (a *AggregateState) Seal() []Event {
	if a.sealed {
		return nil
	}
	a.sealed = true
	var events []Event
	for i, f := range a.schema.fields {
		if a.cells[i].Phase == PhaseIncomplete {
			a.cells[i].Phase = PhaseComplete
			events = append(events, EventFieldUpdated{Field: f.Name, Phase: PhaseComplete, Value: a.cells[i].Value})
		}
	}
	return events
}

// Field returns the current state of the named field.
func (a *AggregateState) Field(name string) (StreamState, bool) {
	i, ok := a.schema.index[name]
	if !ok {
		return StreamState{}, false
	}
	return a.cells[i], true
}

// Record returns a copy of every declared field.
func (a *AggregateState) Record() Record {
	r := make(Record, len(a.cells))
	for i, f := range a.schema.fields {
		r[i] = FieldValue{Name: f.Name, Value: a.cells[i].Value, Phase: a.cells[i].Phase}
	}
	return r
}

// RequiredRecord returns a copy of the required fields only.
func (a *AggregateState) RequiredRecord() Record {
	r := make(Record, 0, len(a.schema.required))
	for i, f := range a.schema.fields {
		if f.Required {
			r = append(r, FieldValue{Name: f.Name, Value: a.cells[i].Value, Phase: a.cells[i].Phase})
		}
	}
	return r
}
