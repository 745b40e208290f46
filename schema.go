package fastlane

import (
	"encoding/json"
	"fmt"
	"slices"
)

// Field declares one tracked field of a schema.
type Field struct {
	Name        string
	Kind        Kind
	Policy      Policy
	Required    bool
	Description string
	// Label is the human-readable name shown by terminal renderers.
	Label string
}

// DisplayName returns the label, or the field name when no label is set.
func (f Field) DisplayName() string {
	if f.Label != "" {
		return f.Label
	}
	return f.Name
}

// Schema is the fixed, ordered declaration of the fields tracked in a
// session. It is immutable once constructed and safe to share between
// sessions.
type Schema struct {
	name     string
	fields   []Field
	index    map[string]int
	required []string
}

// SchemaOption configures NewSchema.
type SchemaOption func(*schemaConfig)

type schemaConfig struct {
	required []string
	override bool
}

// WithRequired replaces the Required flags of the declared fields with the
// given names. Every name must be declared.
func WithRequired(names ...string) SchemaOption {
	return func(c *schemaConfig) {
		c.required = names
		c.override = true
	}
}

// NewSchema validates and builds a schema. Declaration errors wrap
// ErrSchemaViolation and are reported before any streaming begins.
func NewSchema(name string, fields []Field, opts ...SchemaOption) (*Schema, error) {
	var cfg schemaConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("schema %q declares no fields: %w", name, ErrSchemaViolation)
	}

	s := &Schema{
		name:   name,
		fields: make([]Field, len(fields)),
		index:  make(map[string]int, len(fields)),
	}
	for i, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("field %d has no name: %w", i, ErrSchemaViolation)
		}
		if _, dup := s.index[f.Name]; dup {
			return nil, fmt.Errorf("field %q declared twice: %w", f.Name, ErrSchemaViolation)
		}
		if !f.Kind.Valid() {
			return nil, fmt.Errorf("field %q: unknown kind %q: %w", f.Name, f.Kind, ErrSchemaViolation)
		}
		if !f.Policy.Valid() {
			return nil, fmt.Errorf("field %q: unknown policy %q: %w", f.Name, f.Policy, ErrSchemaViolation)
		}
		s.index[f.Name] = i
		s.fields[i] = f
	}

	if cfg.override {
		for i := range s.fields {
			s.fields[i].Required = false
		}
		for _, r := range cfg.required {
			i, ok := s.index[r]
			if !ok {
				return nil, fmt.Errorf("required field %q is not declared: %w", r, ErrSchemaViolation)
			}
			s.fields[i].Required = true
		}
	}

	for _, f := range s.fields {
		if f.Required {
			s.required = append(s.required, f.Name)
		}
	}
	if len(s.required) == 0 {
		return nil, fmt.Errorf("schema %q has no required fields: %w", name, ErrSchemaViolation)
	}
	return s, nil
}

// MustSchema is like NewSchema but panics on error. Intended for package-level
// declarations and tests.
func MustSchema(name string, fields []Field, opts ...SchemaOption) *Schema {
	s, err := NewSchema(name, fields, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// Name returns the schema name.
func (s *Schema) Name() string { return s.name }

// Len returns the number of declared fields.
func (s *Schema) Len() int { return len(s.fields) }

// Fields returns a copy of the declared fields in declaration order.
func (s *Schema) Fields() []Field { return slices.Clone(s.fields) }

// Field returns the declaration of the named field.
func (s *Schema) Field(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// Label returns the display name of the named field. Undeclared names are
// returned unchanged.
func (s *Schema) Label(name string) string {
	f, ok := s.Field(name)
	if !ok {
		return name
	}
	return f.DisplayName()
}

// Required returns the required field names in declaration order.
func (s *Schema) Required() []string { return slices.Clone(s.required) }

// IsRequired reports whether name is in the required set.
func (s *Schema) IsRequired(name string) bool {
	f, ok := s.Field(name)
	return ok && f.Required
}

// JSONSchema renders the declaration as a JSON Schema object. Required
// fields are listed under "required"; streaming policy is recorded in the
// "x-stream" extension.
func (s *Schema) JSONSchema() json.RawMessage {
	props := make(map[string]any, len(s.fields))
	for _, f := range s.fields {
		p := map[string]any{
			"type":     jsonType(f.Kind),
			"x-stream": string(f.Policy),
		}
		if f.Kind == KindJSON {
			delete(p, "type")
		}
		if f.Description != "" {
			p["description"] = f.Description
		}
		if f.Label != "" {
			p["title"] = f.Label
		}
		props[f.Name] = p
	}
	doc := map[string]any{
		"title":      s.name,
		"type":       "object",
		"properties": props,
		"required":   s.required,
	}
	// Only maps, strings and slices of strings: Marshal cannot fail.
	data, _ := json.Marshal(doc)
	return data
}

func jsonType(k Kind) string {
	switch k {
	case KindInt:
		return "integer"
	case KindFloat:
		return "number"
	case KindBool:
		return "boolean"
	default:
		return "string"
	}
}
