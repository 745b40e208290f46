package exec

import (
	"strings"
	"sync"

	"github.com/charmbracelet/x/ansi"
)

// tailBuffer is an io.Writer that keeps the last limit bytes written to it.
// It is safe for concurrent use.
type tailBuffer struct {
	mu    sync.Mutex
	buf   []byte
	limit int
	total int64
}

func newTailBuffer(limit int) *tailBuffer {
	return &tailBuffer{limit: limit}
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.total += int64(len(p))
	b.buf = append(b.buf, p...)
	if len(b.buf) > b.limit {
		trimmed := make([]byte, b.limit)
		copy(trimmed, b.buf[len(b.buf)-b.limit:])
		b.buf = trimmed
	}
	return len(p), nil
}

// String returns the cleaned tail of the output, at most maxLines lines.
func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return lastLines(clean(string(b.buf)), maxLines)
}

// Truncated reports whether output was dropped from the front.
func (b *tailBuffer) Truncated() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.total > int64(len(b.buf))
}

// clean strips ANSI escape codes and control characters from command
// output. Tabs and newlines survive, CRLF becomes LF, and a lone CR
// overwrites the line from its start the way a terminal would.
func clean(s string) string {
	// Parser-based strip covers CSI and OSC sequences.
	s = ansi.Strip(s)

	// Normalize CRLF first so the filter below does not drop its CR.
	s = strings.ReplaceAll(s, "\r\n", "\n")

	// Keep tab, newline and CR; every other byte <= 0x1F goes. CR stays only
	// until the overwrite pass resolves it.
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '\t' || r == '\n' || r == '\r' || r > 0x1F {
			b.WriteRune(r)
		}
	}

	lines := strings.Split(b.String(), "\n")
	for i, line := range lines {
		if strings.ContainsRune(line, '\r') {
			lines[i] = overwrite(line)
		}
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}

// overwrite replays the carriage returns of a single line. Each CR moves the
// write position back to column 0 and later runes replace earlier ones.
func overwrite(line string) string {
	segments := strings.Split(line, "\r")
	buf := []rune(segments[0])
	for _, seg := range segments[1:] {
		for j, r := range []rune(seg) {
			if j < len(buf) {
				buf[j] = r
			} else {
				buf = append(buf, r)
			}
		}
		// A shorter segment leaves the tail of the previous content in
		// place, as a terminal does.
	}
	return string(buf)
}

// lastLines keeps the last n lines of s.
func lastLines(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= n {
		return s
	}
	return strings.Join(lines[len(lines)-n:], "\n")
}
