package fastlane

import (
	"encoding/json"
	"fmt"
)

// Phase is the completion phase of a single tracked field. Phases are
// ordered: a field only ever moves forward through them.
type Phase int

const (
	PhasePending    Phase = iota // Not seen in any snapshot yet.
	PhaseIncomplete              // Seen with a partial value that may still change.
	PhaseComplete                // Final value; frozen for the rest of the session.
)

var phaseNames = map[Phase]string{
	PhasePending:    "pending",
	PhaseIncomplete: "incomplete",
	PhaseComplete:   "complete",
}

func (p Phase) String() string {
	if s, ok := phaseNames[p]; ok {
		return s
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// ParsePhase is the inverse of Phase.String.
func ParsePhase(s string) (Phase, error) {
	for p, name := range phaseNames {
		if name == s {
			return p, nil
		}
	}
	return PhasePending, fmt.Errorf("unknown phase %q: %w", s, ErrValidation)
}

// MarshalJSON encodes the phase as its name.
func (p Phase) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON decodes a phase name.
func (p *Phase) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := ParsePhase(s)
	if err != nil {
		return err
	}
	*p = v
	return nil
}
