package progress

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fwojciec/fastlane"
	"github.com/mattn/go-runewidth"
	"github.com/rivo/uniseg"
)

const ellipsis = "…"

// Glyph returns the board symbol for a phase.
func Glyph(p fastlane.Phase) string {
	switch p {
	case fastlane.PhaseComplete:
		return "●"
	case fastlane.PhaseIncomplete:
		return "◐"
	default:
		return "○"
	}
}

// FormatValue renders a field value on one line. Strings are shown as-is
// with line breaks collapsed; other kinds as JSON.
func FormatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return strings.Join(strings.Fields(v), " ")
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(data)
	}
}

// Truncate shortens s to at most width terminal cells, marking the cut
// with an ellipsis.
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return runewidth.Truncate(s, width, ellipsis)
}

// PadRight pads s with spaces to width terminal cells.
func PadRight(s string, width int) string {
	w := uniseg.StringWidth(s)
	if w >= width {
		return s
	}
	return s + strings.Repeat(" ", width-w)
}

// FormatDuration rounds d for display.
func FormatDuration(d time.Duration) string {
	switch {
	case d >= time.Second:
		return d.Round(10 * time.Millisecond).String()
	case d >= time.Millisecond:
		return d.Round(time.Millisecond).String()
	default:
		return d.String()
	}
}

// nameWidth is the widest field name in s plus room for the required marker.
func nameWidth(s *fastlane.Schema) int {
	w := 0
	for _, f := range s.Fields() {
		w = max(w, uniseg.StringWidth(f.DisplayName())+1)
	}
	return w
}
