// Package bubbletea provides a live field board for a running session.
package bubbletea

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/fastlane"
	"github.com/fwojciec/fastlane/ingest"
)

// RunFunc runs one session. The onEvent callback is called for each
// dispatch event. The function blocks until the session ends or ctx is
// cancelled.
type RunFunc func(ctx context.Context, onEvent func(fastlane.Event)) (*ingest.Result, error)

// Run creates and runs the Bubble Tea program. It blocks until the user
// quits and returns the session result, which is nil if the program quit
// before the session ended. Cancelling ctx quits the program.
func Run(ctx context.Context, m Model) (*ingest.Result, error) {
	p := tea.NewProgram(m, tea.WithAltScreen())
	go func() {
		<-ctx.Done()
		p.Quit()
	}()
	fm, err := p.Run()
	m.cancel()
	if err != nil {
		return nil, fmt.Errorf("run tui: %w", err)
	}
	final, ok := fm.(Model)
	if !ok {
		return nil, fmt.Errorf("unexpected model type %T", fm)
	}
	return final.Result(), final.Err()
}

// EventMsg wraps a dispatch event for delivery to the model.
type EventMsg struct {
	Event fastlane.Event
}

// DoneMsg signals that the session has ended.
type DoneMsg struct {
	Result *ingest.Result
	Err    error
}
