// Package yaml reads and writes schema declarations as YAML documents.
//
//	name: user_profile
//	fields:
//	  - {name: name, type: string, stream: done, required: true, label: Full name}
//	  - {name: bio, type: string, stream: with_state}
//
// Omitted types default to string and omitted stream policies to done. A
// top-level required list overrides the per-field flags.
package yaml

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fwojciec/fastlane"
	"gopkg.in/yaml.v3"
)

type schemaDoc struct {
	Name     string     `yaml:"name"`
	Fields   []fieldDoc `yaml:"fields"`
	Required []string   `yaml:"required,omitempty"`
}

type fieldDoc struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type,omitempty"`
	Stream      string `yaml:"stream,omitempty"`
	Required    bool   `yaml:"required,omitempty"`
	Description string `yaml:"description,omitempty"`
	Label       string `yaml:"label,omitempty"`
}

// ParseSchema decodes a schema declaration. Unknown keys are rejected.
func ParseSchema(data []byte) (*fastlane.Schema, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var doc schemaDoc
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty schema document: %w", fastlane.ErrSchemaViolation)
		}
		return nil, fmt.Errorf("decode schema: %v: %w", err, fastlane.ErrSchemaViolation)
	}
	if doc.Name == "" {
		return nil, fmt.Errorf("schema has no name: %w", fastlane.ErrSchemaViolation)
	}

	fields := make([]fastlane.Field, len(doc.Fields))
	for i, f := range doc.Fields {
		kind := fastlane.Kind(f.Type)
		if kind == "" {
			kind = fastlane.KindString
		}
		policy := fastlane.Policy(f.Stream)
		if policy == "" {
			policy = fastlane.PolicyAtomicDone
		}
		fields[i] = fastlane.Field{
			Name:        f.Name,
			Kind:        kind,
			Policy:      policy,
			Required:    f.Required,
			Description: f.Description,
			Label:       f.Label,
		}
	}
	var opts []fastlane.SchemaOption
	if len(doc.Required) > 0 {
		opts = append(opts, fastlane.WithRequired(doc.Required...))
	}
	return fastlane.NewSchema(doc.Name, fields, opts...)
}

// LoadSchema reads a schema declaration from a file.
func LoadSchema(path string) (*fastlane.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	s, err := ParseSchema(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// MarshalSchema encodes s in the form ParseSchema reads.
func MarshalSchema(s *fastlane.Schema) ([]byte, error) {
	doc := schemaDoc{Name: s.Name()}
	for _, f := range s.Fields() {
		doc.Fields = append(doc.Fields, fieldDoc{
			Name:        f.Name,
			Type:        string(f.Kind),
			Stream:      string(f.Policy),
			Required:    f.Required,
			Description: f.Description,
			Label:       f.Label,
		})
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode schema: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode schema: %w", err)
	}
	return buf.Bytes(), nil
}
