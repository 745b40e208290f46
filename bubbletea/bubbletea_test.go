package bubbletea_test

import (
	"context"
	"encoding/json"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/fastlane"
	bt "github.com/fwojciec/fastlane/bubbletea"
	"github.com/fwojciec/fastlane/ingest"
	"github.com/stretchr/testify/require"
)

func contactSchema() *fastlane.Schema {
	return fastlane.MustSchema("contact", []fastlane.Field{
		{Name: "name", Kind: fastlane.KindString, Policy: fastlane.PolicyAtomicDone, Required: true},
		{Name: "email", Kind: fastlane.KindString, Policy: fastlane.PolicyAtomicDone, Required: true},
		{Name: "bio", Kind: fastlane.KindString, Policy: fastlane.PolicyIncremental},
	})
}

func rf(v string, done bool) fastlane.RawField {
	return fastlane.RawField{Value: json.RawMessage(v), Done: done}
}

// sessionRun returns a RunFunc that drives a real session over snaps.
func sessionRun(snaps ...fastlane.Snapshot) bt.RunFunc {
	return func(ctx context.Context, onEvent func(fastlane.Event)) (*ingest.Result, error) {
		s, err := ingest.NewSession(&fastlane.StaticProducer{Snapshots: snaps}, contactSchema(),
			ingest.WithEventHandler(onEvent), ingest.WithID("run-1"))
		if err != nil {
			return nil, err
		}
		return s.Run(ctx, "")
	}
}

// nopRun is a RunFunc that ends immediately.
func nopRun(context.Context, func(fastlane.Event)) (*ingest.Result, error) {
	return nil, nil
}

// initModel creates a model and sends a WindowSizeMsg to initialize the viewport.
func initModel(t *testing.T, run bt.RunFunc) bt.Model {
	t.Helper()
	m := bt.New(run, contactSchema(), fastlane.NoColorTheme())
	return updateModel(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})
}

// updateModel sends a message and returns the updated Model.
func updateModel(t *testing.T, m bt.Model, msg tea.Msg) bt.Model {
	t.Helper()
	updated, _ := m.Update(msg)
	model, ok := updated.(bt.Model)
	require.True(t, ok)
	return model
}
