package jsonpartial

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"unicode/utf8"

	"github.com/fwojciec/fastlane"
	"github.com/fwojciec/fastlane/goldmark"
)

// Source yields chunks of model text. Next returns io.EOF after the last
// chunk.
type Source interface {
	Next() (string, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func() (string, error)

// Next calls f.
func (f SourceFunc) Next() (string, error) { return f() }

// Chunks returns a Source over fixed chunks.
func Chunks(chunks ...string) Source {
	i := 0
	return SourceFunc(func() (string, error) {
		if i >= len(chunks) {
			return "", io.EOF
		}
		i++
		return chunks[i-1], nil
	})
}

// ReaderSource reads r in chunks of at most size bytes, never splitting a
// UTF-8 sequence. size below one reads 64 bytes at a time.
func ReaderSource(r io.Reader, size int) Source {
	if size < 1 {
		size = 64
	}
	var carry []byte
	buf := make([]byte, size)
	return SourceFunc(func() (string, error) {
		for {
			n, err := r.Read(buf)
			data := append(carry, buf[:n]...)
			carry = nil
			if err == nil {
				cut := completeRunes(data)
				carry = append(carry, data[cut:]...)
				data = data[:cut]
			}
			if len(data) > 0 {
				return string(data), nil
			}
			if err != nil {
				return "", err
			}
		}
	})
}

// completeRunes returns the length of the longest prefix of b that does not
// end inside a UTF-8 sequence.
func completeRunes(b []byte) int {
	for back := 1; back <= utf8.UTFMax && back <= len(b); back++ {
		c := b[len(b)-back]
		if c < utf8.RuneSelf {
			return len(b)
		}
		if utf8.RuneStart(c) {
			if utf8.FullRune(b[len(b)-back:]) {
				return len(b)
			}
			return len(b) - back
		}
	}
	return len(b)
}

// NewStream returns a SnapshotStream that accumulates chunks from src and
// emits a cumulative snapshot of the schema's fields whenever one of them
// changes. Text is unwrapped from a markdown code fence when present.
//
// Fields with PolicyAtomicDone are withheld until their value is
// terminated; null values and undeclared members are never reported. Text
// that cannot be parsed yet is buffered until more arrives. When src ends,
// one last snapshot marked Final is emitted; if the text still cannot be
// parsed then, Next fails with an error wrapping ErrSyntax.
func NewStream(schema *fastlane.Schema, src Source) fastlane.SnapshotStream {
	return &stream{schema: schema, src: src}
}

type stream struct {
	schema *fastlane.Schema
	src    Source
	text   bytes.Buffer
	last   map[string]fastlane.RawField
	ended  bool
	closed bool
}

func (s *stream) Next() (fastlane.Snapshot, error) {
	if s.closed {
		return fastlane.Snapshot{}, fastlane.ErrStreamClosed
	}
	if s.ended {
		return fastlane.Snapshot{}, io.EOF
	}
	for {
		chunk, err := s.src.Next()
		if errors.Is(err, io.EOF) {
			s.ended = true
			obj, err := Parse(goldmark.ExtractJSON(s.text.String()))
			if err != nil {
				return fastlane.Snapshot{}, err
			}
			return fastlane.Snapshot{Fields: s.fields(obj, true), Final: true}, nil
		}
		if err != nil {
			return fastlane.Snapshot{}, err
		}
		s.text.WriteString(chunk)

		obj, err := Parse(goldmark.ExtractJSON(s.text.String()))
		if err != nil {
			continue
		}
		fields := s.fields(obj, false)
		if maps.EqualFunc(fields, s.last, sameField) {
			continue
		}
		s.last = fields
		return fastlane.Snapshot{Fields: maps.Clone(fields)}, nil
	}
}

func (s *stream) fields(obj Object, final bool) map[string]fastlane.RawField {
	out := make(map[string]fastlane.RawField, len(obj.Fields))
	for name, raw := range obj.Fields {
		f, ok := s.schema.Field(name)
		if !ok || bytes.Equal(raw.Value, []byte("null")) {
			continue
		}
		if f.Policy == fastlane.PolicyAtomicDone && !raw.Done && !final {
			continue
		}
		out[name] = raw
	}
	return out
}

func sameField(a, b fastlane.RawField) bool {
	return a.Done == b.Done && bytes.Equal(a.Value, b.Value)
}

func (s *stream) Close() error {
	s.closed = true
	if c, ok := s.src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Producer adapts a text source to fastlane.Producer. Open is called once
// per Stream with the request; the returned stream checks ctx before every
// chunk.
type Producer struct {
	Open func(ctx context.Context, req fastlane.Request) (Source, error)
}

// Interface compliance check.
var _ fastlane.Producer = (*Producer)(nil)

// Stream opens a source and wraps it with NewStream.
func (p *Producer) Stream(ctx context.Context, req fastlane.Request) (fastlane.SnapshotStream, error) {
	if req.Schema == nil {
		return nil, fmt.Errorf("jsonpartial: request without schema: %w", fastlane.ErrSchemaViolation)
	}
	src, err := p.Open(ctx, req)
	if err != nil {
		return nil, err
	}
	guarded := SourceFunc(func() (string, error) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		return src.Next()
	})
	return &stream{schema: req.Schema, src: closerSource{Source: guarded, inner: src}}, nil
}

// closerSource forwards Close to the wrapped source when it has one.
type closerSource struct {
	Source
	inner Source
}

func (c closerSource) Close() error {
	if cl, ok := c.inner.(io.Closer); ok {
		return cl.Close()
	}
	return nil
}
