// Package progress prints a session's events and summary as plain
// terminal lines.
package progress

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/fastlane"
	"github.com/fwojciec/fastlane/ingest"
	"github.com/rivo/uniseg"
)

// DefaultWidth is the line width used when none is configured.
const DefaultWidth = 80

// Printer writes one line per event. Fields are shown by their label when
// the schema sets one; required fields carry a star.
// It is safe for concurrent use.
type Printer struct {
	mu     sync.Mutex
	w      io.Writer
	schema *fastlane.Schema
	styles Styles
	width  int
	names  int
}

// Option configures a Printer.
type Option func(*Printer)

// WithTheme sets the color theme.
func WithTheme(t fastlane.Theme) Option {
	return func(p *Printer) { p.styles = NewStyles(t) }
}

// WithWidth sets the line width values are truncated to.
func WithWidth(n int) Option {
	return func(p *Printer) {
		if n > 0 {
			p.width = n
		}
	}
}

// NewPrinter returns a Printer for sessions over schema.
func NewPrinter(w io.Writer, schema *fastlane.Schema, opts ...Option) *Printer {
	p := &Printer{
		w:      w,
		schema: schema,
		styles: NewStyles(fastlane.DefaultTheme()),
		width:  DefaultWidth,
		names:  nameWidth(schema),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Handle prints e. It has the signature of an ingest event handler.
func (p *Printer) Handle(e fastlane.Event) {
	line := p.Line(e)
	if line == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.w, line)
}

// Line formats e without printing it. Events with no line yield "".
func (p *Printer) Line(e fastlane.Event) string {
	s := p.styles
	switch ev := e.(type) {
	case fastlane.EventFieldUpdated:
		return p.FieldLine(ev.Field, ev.Phase, FormatValue(ev.Value))
	case fastlane.EventValidationRejected:
		prefix := "  ✗ " + PadRight(p.schema.Label(ev.Field), p.names) + " "
		return s.Error.Render(prefix + Truncate("rejected: "+ev.Reason, p.width-uniseg.StringWidth(prefix)))
	case fastlane.EventEarlyTriggerFired:
		return s.Success.Render("▶ early trigger") + " " +
			s.Muted.Render("at "+FormatDuration(ev.Elapsed)) + " " +
			"(" + strings.Join(ev.Fields.Names(), ", ") + ")"
	case fastlane.EventTriggerFailed:
		return s.Error.Render("! early trigger failed: " + errText(ev.Err))
	case fastlane.EventAllComplete:
		return s.Success.Render("◆ all fields complete") + " " + s.Muted.Render("at "+FormatDuration(ev.Elapsed))
	case fastlane.EventFinalCompleted:
		return s.Success.Render("■ final result") + " " + s.Muted.Render("at "+FormatDuration(ev.Elapsed))
	case fastlane.EventFinalFailed:
		return s.Error.Render("! final callback failed: " + errText(ev.Err))
	case fastlane.EventProducerFailed:
		return s.Error.Render("✗ producer failed: " + errText(ev.Err))
	case fastlane.EventCancelled:
		return s.Error.Render("✗ cancelled: " + errText(ev.Err))
	case fastlane.EventPartialFailure:
		return s.Error.Render("! stream ended after the early trigger; downstream work ran on unconfirmed data")
	}
	return ""
}

// FieldLine formats one field: phase glyph, name padded to the widest
// declared name, and the value truncated to the line width.
func (p *Printer) FieldLine(name string, phase fastlane.Phase, value string) string {
	s := p.styles
	label := p.schema.Label(name)
	if p.schema.IsRequired(name) {
		label += "*"
	}
	glyph := "  " + Glyph(phase) + " "
	label = PadRight(label, p.names)
	avail := p.width - uniseg.StringWidth(glyph+label+" ")
	return s.Phase(phase).Render(glyph) + p.nameStyle(name).Render(label) + " " + Truncate(value, avail)
}

func (p *Printer) nameStyle(name string) lipgloss.Style {
	if p.schema.IsRequired(name) {
		return p.styles.Required
	}
	return p.styles.Muted.UnsetFaint()
}

// Summary prints the result block of a finished session.
func (p *Printer) Summary(res *ingest.Result) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.styles
	row := func(label, value string) {
		fmt.Fprintln(p.w, s.Muted.Render(PadRight(label, 11))+value)
	}

	fmt.Fprintln(p.w, s.Accent.Render("session "+res.ID))
	if res.Schema != nil {
		row("schema", res.Schema.Name())
	}
	row("state", res.State.String())
	row("snapshots", fmt.Sprintf("%d (%d rejected)", res.Summary.Snapshots, res.Summary.Rejections))
	if res.Summary.Triggered {
		row("trigger", FormatDuration(res.Summary.TriggerElapsed))
	} else {
		row("trigger", "not fired")
	}
	if res.Summary.AllComplete {
		row("complete", FormatDuration(res.Summary.AllCompleteElapsed))
	}
	row("total", FormatDuration(res.Summary.Total))
	if res.Summary.Triggered && res.Failure == nil {
		row("saved", fmt.Sprintf("%s (%.1f%%)", FormatDuration(res.Summary.TimeSaved()), res.Summary.SavingsPercent()))
	}
	if res.Failure != nil {
		row("failure", s.Error.Render(res.Failure.Error()))
	}
	for _, fv := range res.Record {
		fmt.Fprintln(p.w, p.FieldLine(fv.Name, fv.Phase, FormatValue(fv.Value)))
	}
}

func errText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
