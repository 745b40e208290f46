package fastlane_test

import (
	"encoding/json"
	"testing"

	"github.com/fwojciec/fastlane"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// contactSchema declares name (atomic) and email (incremental) as required
// and bio (incremental) as optional.
func contactSchema(t *testing.T) *fastlane.Schema {
	t.Helper()
	s, err := fastlane.NewSchema("contact", []fastlane.Field{
		{Name: "name", Kind: fastlane.KindString, Policy: fastlane.PolicyAtomicDone, Required: true},
		{Name: "email", Kind: fastlane.KindString, Policy: fastlane.PolicyIncremental, Required: true},
		{Name: "bio", Kind: fastlane.KindString, Policy: fastlane.PolicyIncremental},
	})
	require.NoError(t, err)
	return s
}

func TestNewSchema(t *testing.T) {
	t.Parallel()

	t.Run("valid", func(t *testing.T) {
		t.Parallel()
		s := contactSchema(t)
		assert.Equal(t, "contact", s.Name())
		assert.Equal(t, 3, s.Len())
		assert.Equal(t, []string{"name", "email"}, s.Required())
		assert.True(t, s.IsRequired("email"))
		assert.False(t, s.IsRequired("bio"))
		assert.False(t, s.IsRequired("phone"))

		f, ok := s.Field("bio")
		require.True(t, ok)
		assert.Equal(t, fastlane.PolicyIncremental, f.Policy)
	})

	t.Run("WithRequired overrides flags", func(t *testing.T) {
		t.Parallel()
		s, err := fastlane.NewSchema("contact", []fastlane.Field{
			{Name: "name", Kind: fastlane.KindString, Policy: fastlane.PolicyAtomicDone, Required: true},
			{Name: "bio", Kind: fastlane.KindString, Policy: fastlane.PolicyIncremental},
		}, fastlane.WithRequired("bio"))
		require.NoError(t, err)
		assert.Equal(t, []string{"bio"}, s.Required())
	})

	str := func(name string, required bool) fastlane.Field {
		return fastlane.Field{Name: name, Kind: fastlane.KindString, Policy: fastlane.PolicyAtomicDone, Required: required}
	}
	violations := []struct {
		name   string
		fields []fastlane.Field
		opts   []fastlane.SchemaOption
	}{
		{name: "no fields"},
		{name: "empty field name", fields: []fastlane.Field{str("", true)}},
		{name: "duplicate field", fields: []fastlane.Field{str("name", true), str("name", false)}},
		{name: "unknown kind", fields: []fastlane.Field{{Name: "x", Kind: "date", Policy: fastlane.PolicyAtomicDone, Required: true}}},
		{name: "unknown policy", fields: []fastlane.Field{{Name: "x", Kind: fastlane.KindString, Policy: "lazy", Required: true}}},
		{name: "required not declared", fields: []fastlane.Field{str("name", true)}, opts: []fastlane.SchemaOption{fastlane.WithRequired("phone")}},
		{name: "no required fields", fields: []fastlane.Field{str("name", false)}},
	}
	for _, tt := range violations {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := fastlane.NewSchema("bad", tt.fields, tt.opts...)
			assert.ErrorIs(t, err, fastlane.ErrSchemaViolation)
		})
	}
}

func TestMustSchema_Panics(t *testing.T) {
	t.Parallel()
	assert.Panics(t, func() { fastlane.MustSchema("empty", nil) })
}

func TestSchema_FieldsIsCopy(t *testing.T) {
	t.Parallel()
	s := contactSchema(t)
	fields := s.Fields()
	fields[0].Name = "mutated"
	_, ok := s.Field("name")
	assert.True(t, ok)
}

func TestSchema_JSONSchema(t *testing.T) {
	t.Parallel()
	s := fastlane.MustSchema("order", []fastlane.Field{
		{Name: "id", Kind: fastlane.KindInt, Policy: fastlane.PolicyAtomicDone, Required: true, Description: "order number"},
		{Name: "items", Kind: fastlane.KindJSON, Policy: fastlane.PolicyIncremental, Label: "Line items"},
	})

	var doc struct {
		Title      string                    `json:"title"`
		Required   []string                  `json:"required"`
		Properties map[string]map[string]any `json:"properties"`
	}
	require.NoError(t, json.Unmarshal(s.JSONSchema(), &doc))
	assert.Equal(t, "order", doc.Title)
	assert.Equal(t, []string{"id"}, doc.Required)
	assert.Equal(t, "integer", doc.Properties["id"]["type"])
	assert.Equal(t, "done", doc.Properties["id"]["x-stream"])
	assert.Equal(t, "order number", doc.Properties["id"]["description"])
	assert.NotContains(t, doc.Properties["items"], "type")
	assert.Equal(t, "with_state", doc.Properties["items"]["x-stream"])
	assert.Equal(t, "Line items", doc.Properties["items"]["title"])
	assert.NotContains(t, doc.Properties["id"], "title")
}

func TestSchema_Label(t *testing.T) {
	t.Parallel()
	s := fastlane.MustSchema("contact", []fastlane.Field{
		{Name: "name", Kind: fastlane.KindString, Policy: fastlane.PolicyAtomicDone, Required: true, Label: "Full name"},
		{Name: "email", Kind: fastlane.KindString, Policy: fastlane.PolicyIncremental},
	})
	assert.Equal(t, "Full name", s.Label("name"))
	assert.Equal(t, "email", s.Label("email"), "falls back to the field name")
	assert.Equal(t, "phone", s.Label("phone"))

	f, _ := s.Field("name")
	assert.Equal(t, "Full name", f.DisplayName())
}
