package progress

import (
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/fastlane"
)

// Styles maps a Theme to lipgloss styles.
type Styles struct {
	Pending    lipgloss.Style
	Incomplete lipgloss.Style
	Complete   lipgloss.Style
	Required   lipgloss.Style
	Error      lipgloss.Style
	Success    lipgloss.Style
	Muted      lipgloss.Style
	Accent     lipgloss.Style
}

// NewStyles creates Styles from a Theme.
func NewStyles(t fastlane.Theme) Styles {
	return Styles{
		Pending:    lipgloss.NewStyle().Foreground(ansiColor(t.Pending)).Faint(t.Pending >= 0),
		Incomplete: lipgloss.NewStyle().Foreground(ansiColor(t.Incomplete)),
		Complete:   lipgloss.NewStyle().Foreground(ansiColor(t.Complete)),
		Required:   lipgloss.NewStyle().Foreground(ansiColor(t.Required)).Bold(t.Required >= 0),
		Error:      lipgloss.NewStyle().Foreground(ansiColor(t.Error)),
		Success:    lipgloss.NewStyle().Foreground(ansiColor(t.Success)).Bold(t.Success >= 0),
		Muted:      lipgloss.NewStyle().Foreground(ansiColor(t.Muted)).Faint(t.Muted >= 0),
		Accent:     lipgloss.NewStyle().Foreground(ansiColor(t.Accent)).Bold(t.Accent >= 0),
	}
}

// Phase returns the style for fields in phase p.
func (s Styles) Phase(p fastlane.Phase) lipgloss.Style {
	switch p {
	case fastlane.PhaseComplete:
		return s.Complete
	case fastlane.PhaseIncomplete:
		return s.Incomplete
	default:
		return s.Pending
	}
}

func ansiColor(index int) lipgloss.TerminalColor {
	if index < 0 {
		return lipgloss.NoColor{}
	}
	return lipgloss.Color(strconv.Itoa(index))
}
