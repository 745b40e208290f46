// Package json persists session results as versioned JSON reports.
package json

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fwojciec/fastlane"
	"github.com/fwojciec/fastlane/ingest"
)

// envelope is the v1 wire format for a session report.
type envelope struct {
	Version    int         `json:"version"`
	ID         string      `json:"id"`
	Schema     schemaDTO   `json:"schema"`
	State      string      `json:"state"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt time.Time   `json:"finished_at"`
	Summary    summaryDTO  `json:"summary"`
	Record     []fieldDTO  `json:"record"`
	Events     []eventDTO  `json:"events"`
	Failure    *failureDTO `json:"failure,omitempty"`
}

type schemaDTO struct {
	Name   string           `json:"name"`
	Fields []declarationDTO `json:"fields"`
}

type declarationDTO struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Stream      string `json:"stream"`
	Required    bool   `json:"required,omitempty"`
	Description string `json:"description,omitempty"`
	Label       string `json:"label,omitempty"`
}

type summaryDTO struct {
	Snapshots          int     `json:"snapshots"`
	Rejections         int     `json:"rejections"`
	Triggered          bool    `json:"triggered"`
	TriggerElapsed     string  `json:"trigger_elapsed,omitempty"`
	AllComplete        bool    `json:"all_complete"`
	AllCompleteElapsed string  `json:"all_complete_elapsed,omitempty"`
	Total              string  `json:"total"`
	TimeSaved          string  `json:"time_saved,omitempty"`
	SavingsPercent     float64 `json:"savings_percent,omitempty"`
}

// fieldDTO is one record entry. Value is omitted while the field is pending.
type fieldDTO struct {
	Name  string          `json:"name"`
	Phase string          `json:"phase"`
	Value json.RawMessage `json:"value,omitempty"`
}

type failureDTO struct {
	Kind         string `json:"kind"`
	Error        string `json:"error"`
	TriggerFired bool   `json:"trigger_fired"`
}

// MarshalResult serializes a session result to JSON in v1 envelope format.
func MarshalResult(r *ingest.Result) ([]byte, error) {
	if r == nil || r.Schema == nil {
		return nil, errors.New("result without schema")
	}
	env := envelope{
		Version:    1,
		ID:         r.ID,
		Schema:     marshalSchema(r.Schema),
		State:      r.State.String(),
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Summary:    marshalSummary(r.Summary),
		Events:     make([]eventDTO, len(r.Events)),
	}
	rec, err := marshalRecord(r.Record)
	if err != nil {
		return nil, fmt.Errorf("record: %w", err)
	}
	env.Record = rec
	for i, e := range r.Events {
		dto, err := marshalEvent(e)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
		env.Events[i] = dto
	}
	if r.Failure != nil {
		env.Failure = &failureDTO{
			Kind:         string(r.Failure.Kind),
			Error:        r.Failure.Err.Error(),
			TriggerFired: r.Failure.TriggerFired,
		}
	}
	return json.MarshalIndent(env, "", "  ")
}

// UnmarshalResult deserializes a session result from JSON in v1 envelope
// format. Field values are decoded by their declared kind. Errors are
// restored as messages that still match the fastlane sentinels with
// errors.Is.
func UnmarshalResult(data []byte) (*ingest.Result, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if env.Version != 1 {
		return nil, fmt.Errorf("unsupported envelope version: %d", env.Version)
	}
	schema, err := unmarshalSchema(env.Schema)
	if err != nil {
		return nil, err
	}
	state, ok := ingest.ParseDispatchState(env.State)
	if !ok {
		return nil, fmt.Errorf("unknown state %q", env.State)
	}
	summary, err := unmarshalSummary(env.Summary)
	if err != nil {
		return nil, err
	}
	rec, err := unmarshalRecord(schema, env.Record)
	if err != nil {
		return nil, fmt.Errorf("record: %w", err)
	}
	events := make([]fastlane.Event, len(env.Events))
	for i, dto := range env.Events {
		e, err := unmarshalEvent(schema, dto)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
		events[i] = e
	}
	res := &ingest.Result{
		ID:         env.ID,
		Schema:     schema,
		State:      state,
		Record:     rec,
		Events:     events,
		Summary:    summary,
		StartedAt:  env.StartedAt,
		FinishedAt: env.FinishedAt,
	}
	if env.Failure != nil {
		res.Failure = &ingest.Failure{
			Kind:         ingest.FailureKind(env.Failure.Kind),
			Err:          restoreError(env.Failure.Error),
			TriggerFired: env.Failure.TriggerFired,
		}
	}
	return res, nil
}

// Save writes a report to a JSON file, creating parent directories as needed.
func Save(path string, r *ingest.Result) error {
	data, err := MarshalResult(r)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create directories: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// Load reads a report from a JSON file.
func Load(path string) (*ingest.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return UnmarshalResult(data)
}

func marshalSchema(s *fastlane.Schema) schemaDTO {
	dto := schemaDTO{Name: s.Name()}
	for _, f := range s.Fields() {
		dto.Fields = append(dto.Fields, declarationDTO{
			Name:        f.Name,
			Type:        string(f.Kind),
			Stream:      string(f.Policy),
			Required:    f.Required,
			Description: f.Description,
			Label:       f.Label,
		})
	}
	return dto
}

func unmarshalSchema(dto schemaDTO) (*fastlane.Schema, error) {
	fields := make([]fastlane.Field, len(dto.Fields))
	for i, d := range dto.Fields {
		fields[i] = fastlane.Field{
			Name:        d.Name,
			Kind:        fastlane.Kind(d.Type),
			Policy:      fastlane.Policy(d.Stream),
			Required:    d.Required,
			Description: d.Description,
			Label:       d.Label,
		}
	}
	s, err := fastlane.NewSchema(dto.Name, fields)
	if err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}
	return s, nil
}

func marshalSummary(s fastlane.Summary) summaryDTO {
	dto := summaryDTO{
		Snapshots:   s.Snapshots,
		Rejections:  s.Rejections,
		Triggered:   s.Triggered,
		AllComplete: s.AllComplete,
		Total:       s.Total.String(),
	}
	if s.AllComplete {
		dto.AllCompleteElapsed = s.AllCompleteElapsed.String()
	}
	if s.Triggered {
		dto.TriggerElapsed = s.TriggerElapsed.String()
		dto.TimeSaved = s.TimeSaved().String()
		dto.SavingsPercent = s.SavingsPercent()
	}
	return dto
}

func unmarshalSummary(dto summaryDTO) (fastlane.Summary, error) {
	s := fastlane.Summary{
		Snapshots:   dto.Snapshots,
		Rejections:  dto.Rejections,
		Triggered:   dto.Triggered,
		AllComplete: dto.AllComplete,
	}
	var err error
	if s.Total, err = parseDuration(dto.Total); err != nil {
		return s, fmt.Errorf("summary total: %w", err)
	}
	if s.TriggerElapsed, err = parseDuration(dto.TriggerElapsed); err != nil {
		return s, fmt.Errorf("summary trigger elapsed: %w", err)
	}
	if s.AllCompleteElapsed, err = parseDuration(dto.AllCompleteElapsed); err != nil {
		return s, fmt.Errorf("summary all complete elapsed: %w", err)
	}
	return s, nil
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

func marshalRecord(r fastlane.Record) ([]fieldDTO, error) {
	out := make([]fieldDTO, len(r))
	for i, fv := range r {
		out[i] = fieldDTO{Name: fv.Name, Phase: fv.Phase.String()}
		if fv.Phase == fastlane.PhasePending {
			continue
		}
		v, err := json.Marshal(fv.Value)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", fv.Name, err)
		}
		out[i].Value = v
	}
	return out, nil
}

func unmarshalRecord(s *fastlane.Schema, dtos []fieldDTO) (fastlane.Record, error) {
	r := make(fastlane.Record, len(dtos))
	for i, dto := range dtos {
		phase, err := fastlane.ParsePhase(dto.Phase)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", dto.Name, err)
		}
		v, err := decodeValue(s, dto.Name, dto.Value)
		if err != nil {
			return nil, err
		}
		r[i] = fastlane.FieldValue{Name: dto.Name, Value: v, Phase: phase}
	}
	return r, nil
}

// decodeValue decodes a value by the kind declared for field. Empty values
// decode to nil.
func decodeValue(s *fastlane.Schema, field string, raw json.RawMessage) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	f, ok := s.Field(field)
	if !ok {
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("field %q: %w", field, err)
		}
		return v, nil
	}
	v, err := f.Kind.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("field %q: %w", field, err)
	}
	return v, nil
}

// sentinels are matched against stored error messages so a loaded report
// still answers errors.Is.
var sentinels = []error{
	fastlane.ErrTriggerFailed,
	fastlane.ErrFinalFailed,
	fastlane.ErrProducerFailed,
	fastlane.ErrCancelled,
	fastlane.ErrDispatcherClosed,
	fastlane.ErrInvalidTransition,
	fastlane.ErrSchemaViolation,
	fastlane.ErrSealed,
	fastlane.ErrValidation,
}

type restoredError struct {
	msg      string
	sentinel error
}

func (e *restoredError) Error() string { return e.msg }
func (e *restoredError) Unwrap() error { return e.sentinel }

func restoreError(msg string) error {
	if msg == "" {
		return nil
	}
	for _, s := range sentinels {
		if strings.Contains(msg, s.Error()) {
			return &restoredError{msg: msg, sentinel: s}
		}
	}
	return errors.New(msg)
}
