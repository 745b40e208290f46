package yaml_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fwojciec/fastlane"
	"github.com/fwojciec/fastlane/yaml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const profileDoc = `name: user_profile
fields:
  - {name: name, type: string, stream: done, required: true, description: full name, label: Full name}
  - {name: email, required: true}
  - {name: bio, stream: with_state}
  - {name: age, type: int}
`

func TestParseSchema(t *testing.T) {
	t.Parallel()
	s, err := yaml.ParseSchema([]byte(profileDoc))
	require.NoError(t, err)

	assert.Equal(t, "user_profile", s.Name())
	assert.Equal(t, []string{"name", "email"}, s.Required())

	want := []fastlane.Field{
		{Name: "name", Kind: fastlane.KindString, Policy: fastlane.PolicyAtomicDone, Required: true, Description: "full name", Label: "Full name"},
		{Name: "email", Kind: fastlane.KindString, Policy: fastlane.PolicyAtomicDone, Required: true},
		{Name: "bio", Kind: fastlane.KindString, Policy: fastlane.PolicyIncremental},
		{Name: "age", Kind: fastlane.KindInt, Policy: fastlane.PolicyAtomicDone},
	}
	assert.Equal(t, want, s.Fields())
}

func TestParseSchema_RequiredOverride(t *testing.T) {
	t.Parallel()
	s, err := yaml.ParseSchema([]byte(profileDoc + "required: [age]\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"age"}, s.Required())
	assert.False(t, s.IsRequired("name"))
}

func TestParseSchema_Errors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		doc  string
	}{
		{"empty", ""},
		{"not yaml", "name: [unterminated"},
		{"no name", "fields:\n  - {name: a, required: true}\n"},
		{"unknown key", "name: s\nfields:\n  - {name: a, required: true, optional: false}\n"},
		{"unknown type", "name: s\nfields:\n  - {name: a, type: date, required: true}\n"},
		{"unknown stream", "name: s\nfields:\n  - {name: a, stream: sometimes, required: true}\n"},
		{"no required fields", "name: s\nfields:\n  - {name: a}\n"},
		{"required not declared", "name: s\nfields:\n  - {name: a}\nrequired: [b]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := yaml.ParseSchema([]byte(tt.doc))
			assert.ErrorIs(t, err, fastlane.ErrSchemaViolation)
		})
	}
}

func TestMarshalSchema_RoundTrip(t *testing.T) {
	t.Parallel()
	s, err := yaml.ParseSchema([]byte(profileDoc))
	require.NoError(t, err)

	data, err := yaml.MarshalSchema(s)
	require.NoError(t, err)
	assert.Contains(t, string(data), "stream: with_state")
	assert.Contains(t, string(data), "label: Full name")

	got, err := yaml.ParseSchema(data)
	require.NoError(t, err)
	assert.Equal(t, s.Fields(), got.Fields())
}

func TestLoadSchema(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte(profileDoc), 0o644))

	s, err := yaml.LoadSchema(path)
	require.NoError(t, err)
	assert.Equal(t, 4, s.Len())

	_, err = yaml.LoadSchema(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("name: s\nfields: []\n"), 0o644))
	_, err = yaml.LoadSchema(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.yaml")
}
