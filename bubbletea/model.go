package bubbletea

import (
	"context"
	"io"
	"maps"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/fastlane"
	"github.com/fwojciec/fastlane/ingest"
	"github.com/fwojciec/fastlane/progress"
)

var _ tea.Model = Model{}

// fieldView is what the board shows for one field.
type fieldView struct {
	phase fastlane.Phase
	value string
}

// Model is the Bubble Tea model for the field board: one line per declared
// field above a scrolling event log.
type Model struct {
	// Spinner animates while the session runs. Exported for test access.
	Spinner spinner.Model
	// Viewport is the scrollable event log. Exported for test access.
	Viewport viewport.Model

	run     RunFunc
	schema  *fastlane.Schema
	theme   fastlane.Theme
	styles  progress.Styles
	printer *progress.Printer

	fields  map[string]fieldView
	log     []string
	trigger string // banner once the early trigger fired
	final   string // banner once the final result is ready

	ctx     context.Context
	cancel  context.CancelFunc
	eventCh chan fastlane.Event
	doneCh  chan DoneMsg
	running bool
	result  *ingest.Result
	err     error
	ready   bool
}

// New creates a Model that starts run on Init.
func New(run RunFunc, schema *fastlane.Schema, theme fastlane.Theme) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	ctx, cancel := context.WithCancel(context.Background())
	fields := make(map[string]fieldView, schema.Len())
	for _, f := range schema.Fields() {
		fields[f.Name] = fieldView{phase: fastlane.PhasePending}
	}
	return Model{
		Spinner: sp,
		run:     run,
		schema:  schema,
		theme:   theme,
		styles:  progress.NewStyles(theme),
		printer: progress.NewPrinter(io.Discard, schema, progress.WithTheme(theme)),
		fields:  fields,
		ctx:     ctx,
		cancel:  cancel,
		eventCh: make(chan fastlane.Event, 256),
		doneCh:  make(chan DoneMsg, 1),
		running: true,
	}
}

// Running returns whether the session is still running.
func (m Model) Running() bool { return m.running }

// Err returns the error the session ended with, if any.
func (m Model) Err() error { return m.err }

// Result returns the session result once it has ended.
func (m Model) Result() *ingest.Result { return m.result }

// Phase returns the board phase of a declared field.
func (m Model) Phase(field string) fastlane.Phase { return m.fields[field].phase }

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.Spinner.Tick,
		startSession(m.ctx, m.run, m.eventCh, m.doneCh),
		listenForEvent(m.eventCh, m.doneCh),
	)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleWindowSize(msg), nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case EventMsg:
		m = m.processEvent(msg.Event)
		if m.ready {
			m.Viewport.SetContent(strings.Join(m.log, "\n"))
			m.Viewport.GotoBottom()
		}
		return m, listenForEvent(m.eventCh, m.doneCh)

	case DoneMsg:
		m.running = false
		m.result = msg.Result
		m.err = msg.Err
		if m.final == "" && msg.Result != nil {
			// Events sent after cancellation never reach the channel.
			for _, e := range msg.Result.Events {
				switch e.(type) {
				case fastlane.EventCancelled, fastlane.EventProducerFailed:
					m.final = m.printer.Line(e)
				}
			}
		}
		return m, nil

	case spinner.TickMsg:
		if !m.running {
			return m, nil
		}
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.Viewport, cmd = m.Viewport.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var b strings.Builder
	b.WriteString(m.header())
	b.WriteString("\n")
	for _, f := range m.schema.Fields() {
		fv := m.fields[f.Name]
		b.WriteString(m.printer.FieldLine(f.Name, fv.phase, fv.value))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.trigger)
	b.WriteString("\n")
	b.WriteString(m.final)
	b.WriteString("\n")
	b.WriteString(m.Viewport.View())
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	return b.String()
}

// boardHeight counts the lines View renders besides the viewport.
func (m Model) boardHeight() int {
	// header, fields, blank, two banners, status
	return 1 + m.schema.Len() + 1 + 2 + 1
}

func (m Model) handleWindowSize(msg tea.WindowSizeMsg) Model {
	vpHeight := max(msg.Height-m.boardHeight()-1, 1)
	if !m.ready {
		m.Viewport = viewport.New(msg.Width, vpHeight)
		m.ready = true
	} else {
		m.Viewport.Width = msg.Width
		m.Viewport.Height = vpHeight
	}
	m.printer = progress.NewPrinter(io.Discard, m.schema, progress.WithTheme(m.theme), progress.WithWidth(msg.Width))
	m.Viewport.SetContent(strings.Join(m.log, "\n"))
	m.Viewport.GotoBottom()
	return m
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		if m.running {
			m.cancel()
			return m, nil
		}
		return m, tea.Quit
	case "q", "esc":
		if !m.running {
			return m, tea.Quit
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.Viewport, cmd = m.Viewport.Update(msg)
	return m, cmd
}

// processEvent folds one event into the board and the log.
func (m Model) processEvent(e fastlane.Event) Model {
	switch ev := e.(type) {
	case fastlane.EventFieldUpdated:
		m.fields = maps.Clone(m.fields)
		m.fields[ev.Field] = fieldView{phase: ev.Phase, value: progress.FormatValue(ev.Value)}
	case fastlane.EventEarlyTriggerFired, fastlane.EventTriggerFailed:
		m.trigger = m.printer.Line(e)
	case fastlane.EventFinalCompleted, fastlane.EventFinalFailed,
		fastlane.EventProducerFailed, fastlane.EventCancelled:
		m.final = m.printer.Line(e)
	}
	if line := m.printer.Line(e); line != "" {
		m.log = append(m.log[:len(m.log):len(m.log)], line)
	}
	return m
}

func (m Model) header() string {
	title := m.styles.Accent.Render("fastlane · " + m.schema.Name())
	switch {
	case m.running:
		return title + "  " + m.Spinner.View() + m.styles.Muted.Render("streaming")
	case m.result != nil:
		return title + "  " + m.styles.Muted.Render(m.result.State.String())
	default:
		return title
	}
}

func (m Model) statusLine() string {
	if m.err != nil {
		return m.styles.Error.Render("Error: " + m.err.Error())
	}
	if m.running {
		return m.styles.Muted.Render("Ctrl+C to cancel")
	}
	return m.styles.Muted.Render("q to quit")
}

// startSession runs the session in a goroutine and signals completion.
func startSession(ctx context.Context, run RunFunc, eventCh chan<- fastlane.Event, doneCh chan<- DoneMsg) tea.Cmd {
	return func() tea.Msg {
		res, err := run(ctx, func(e fastlane.Event) {
			select {
			case eventCh <- e:
			case <-ctx.Done():
			}
		})
		close(eventCh)
		doneCh <- DoneMsg{Result: res, Err: err}
		return nil
	}
}

// listenForEvent waits for the next event from the channel. When the
// channel closes, it returns the DoneMsg from doneCh.
func listenForEvent(ch <-chan fastlane.Event, doneCh <-chan DoneMsg) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-ch
		if !ok {
			return <-doneCh
		}
		return EventMsg{Event: e}
	}
}
