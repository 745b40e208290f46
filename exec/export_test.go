package exec

// Clean exposes output sanitization for tests.
var Clean = clean

// LastLines exposes tail line truncation for tests.
var LastLines = lastLines

// TailString writes chunks to a tail buffer of limit bytes and returns its
// cleaned content and whether output was dropped.
func TailString(limit int, chunks ...string) (string, bool) {
	b := newTailBuffer(limit)
	for _, c := range chunks {
		_, _ = b.Write([]byte(c))
	}
	return b.String(), b.Truncated()
}
