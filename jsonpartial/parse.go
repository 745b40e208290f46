// Package jsonpartial decodes JSON objects that are still being written.
//
// Parse accepts any prefix of a valid JSON object and returns its top-level
// members. Open strings, arrays and objects are closed so every returned
// value is valid JSON; a member is Done once its value is syntactically
// terminated. NewStream builds on Parse to turn streamed model text into a
// fastlane.SnapshotStream.
package jsonpartial

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/fwojciec/fastlane"
)

// ErrSyntax indicates text that is not a prefix of any JSON object.
var ErrSyntax = errors.New("jsonpartial: syntax error")

// Object is the decoded state of a partial JSON object.
type Object struct {
	// Fields holds every top-level member whose key is complete and whose
	// value has started. Later duplicates replace earlier ones.
	Fields map[string]fastlane.RawField

	// Keys lists member keys in the order they first appeared.
	Keys []string

	// Closed reports whether the object's closing brace was seen.
	Closed bool
}

// Parse decodes a prefix of a JSON object. Empty or whitespace-only text
// yields an empty object and anything after the closing brace is ignored.
// Text that cannot be extended into a valid object fails with an error
// wrapping ErrSyntax.
func Parse(text string) (Object, error) {
	obj := Object{Fields: make(map[string]fastlane.RawField)}
	p := &parser{s: text}
	p.ws()
	if p.eof() {
		return obj, nil
	}
	if p.s[p.i] != '{' {
		return obj, p.errorf("expected '{'")
	}
	p.i++

	for n := 0; ; n++ {
		p.ws()
		if p.eof() {
			return obj, nil
		}
		if p.s[p.i] == '}' {
			obj.Closed = true
			return obj, nil
		}
		if n > 0 {
			if p.s[p.i] != ',' {
				return obj, p.errorf("expected ',' or '}'")
			}
			p.i++
			p.ws()
			if p.eof() {
				return obj, nil
			}
		}
		key, ok, err := p.key()
		if err != nil || !ok {
			return obj, err
		}
		val, done, ok, err := p.value()
		if err != nil {
			return obj, err
		}
		if !ok {
			return obj, nil
		}
		if _, seen := obj.Fields[key]; !seen {
			obj.Keys = append(obj.Keys, key)
		}
		obj.Fields[key] = fastlane.RawField{Value: json.RawMessage(val), Done: done}
		if !done {
			return obj, nil
		}
	}
}

type parser struct {
	s string
	i int
}

func (p *parser) eof() bool { return p.i >= len(p.s) }

func (p *parser) ws() {
	for !p.eof() {
		switch p.s[p.i] {
		case ' ', '\t', '\n', '\r':
			p.i++
		default:
			return
		}
	}
}

func (p *parser) errorf(msg string) error {
	return fmt.Errorf("%w: %s at offset %d", ErrSyntax, msg, p.i)
}

// key reads a member key and its colon. ok is false when the text ends
// before the value starts.
func (p *parser) key() (string, bool, error) {
	if p.s[p.i] != '"' {
		return "", false, p.errorf("expected string key")
	}
	raw, done := p.str()
	if !done {
		return "", false, nil
	}
	var key string
	if err := json.Unmarshal([]byte(raw), &key); err != nil {
		return "", false, p.errorf("invalid key")
	}
	p.ws()
	if p.eof() {
		return "", false, nil
	}
	if p.s[p.i] != ':' {
		return "", false, p.errorf("expected ':'")
	}
	p.i++
	p.ws()
	if p.eof() {
		return "", false, nil
	}
	return key, true, nil
}

// value reads one JSON value. It returns the value closed into valid JSON,
// whether the value was terminated in the text, and ok=false when nothing
// usable has been written yet.
func (p *parser) value() (val string, done, ok bool, err error) {
	p.ws()
	if p.eof() {
		return "", false, false, nil
	}
	switch c := p.s[p.i]; {
	case c == '"':
		raw, done := p.str()
		return raw, done, true, nil
	case c == '{':
		return p.container('{', '}', true)
	case c == '[':
		return p.container('[', ']', false)
	case c == '-' || (c >= '0' && c <= '9'):
		return p.number()
	case c >= 'a' && c <= 'z':
		return p.literal()
	default:
		return "", false, false, p.errorf(fmt.Sprintf("unexpected %q", c))
	}
}

// str reads a string starting at the opening quote. An unterminated string
// is closed after its last complete character.
func (p *parser) str() (string, bool) {
	start := p.i
	j := p.i + 1
	for j < len(p.s) {
		switch p.s[j] {
		case '"':
			p.i = j + 1
			return p.s[start:p.i], true
		case '\\':
			n := 2
			if j+1 < len(p.s) && p.s[j+1] == 'u' {
				n = 6
			}
			if j+n > len(p.s) {
				p.i = len(p.s)
				return closeString(p.s[start:j]), false
			}
			j += n
		default:
			j++
		}
	}
	p.i = len(p.s)
	return closeString(p.s[start:]), false
}

func closeString(open string) string {
	for len(open) > 1 {
		r, size := utf8.DecodeLastRuneInString(open)
		if r != utf8.RuneError || size != 1 {
			break
		}
		open = open[:len(open)-1]
	}
	return open + `"`
}

// container reads an object or array. Members that have not started are
// dropped; an open container is closed after its last usable member.
func (p *parser) container(open, closing byte, object bool) (string, bool, bool, error) {
	p.i++
	var b strings.Builder
	b.WriteByte(open)
	n := 0
	for {
		p.ws()
		if p.eof() {
			b.WriteByte(closing)
			return b.String(), false, true, nil
		}
		if p.s[p.i] == closing {
			p.i++
			b.WriteByte(closing)
			return b.String(), true, true, nil
		}
		if n > 0 {
			if p.s[p.i] != ',' {
				return "", false, false, p.errorf(fmt.Sprintf("expected ',' or '%c'", closing))
			}
			p.i++
			p.ws()
			if p.eof() {
				b.WriteByte(closing)
				return b.String(), false, true, nil
			}
		}
		var prefix string
		if object {
			if p.s[p.i] != '"' {
				return "", false, false, p.errorf("expected string key")
			}
			raw, done := p.str()
			if !done {
				b.WriteByte(closing)
				return b.String(), false, true, nil
			}
			p.ws()
			if p.eof() {
				b.WriteByte(closing)
				return b.String(), false, true, nil
			}
			if p.s[p.i] != ':' {
				return "", false, false, p.errorf("expected ':'")
			}
			p.i++
			prefix = raw + ":"
		}
		val, done, ok, err := p.value()
		if err != nil {
			return "", false, false, err
		}
		if !ok {
			b.WriteByte(closing)
			return b.String(), false, true, nil
		}
		if n > 0 {
			b.WriteByte(',')
		}
		b.WriteString(prefix)
		b.WriteString(val)
		n++
		if !done {
			b.WriteByte(closing)
			return b.String(), false, true, nil
		}
	}
}

// number reads a number. A number at the end of the text may still grow,
// so it is never done; a prefix such as "-" or "1." is not usable yet.
func (p *parser) number() (string, bool, bool, error) {
	start := p.i
	for !p.eof() && strings.IndexByte("+-.eE0123456789", p.s[p.i]) >= 0 {
		p.i++
	}
	tok := p.s[start:p.i]
	if p.eof() {
		if json.Valid([]byte(tok)) {
			return tok, false, true, nil
		}
		return "", false, false, nil
	}
	if !json.Valid([]byte(tok)) {
		return "", false, false, p.errorf(fmt.Sprintf("invalid number %q", tok))
	}
	return tok, true, true, nil
}

func (p *parser) literal() (string, bool, bool, error) {
	start := p.i
	for !p.eof() && p.s[p.i] >= 'a' && p.s[p.i] <= 'z' {
		p.i++
	}
	tok := p.s[start:p.i]
	switch tok {
	case "true", "false", "null":
		return tok, true, true, nil
	}
	if p.eof() && (strings.HasPrefix("true", tok) || strings.HasPrefix("false", tok) || strings.HasPrefix("null", tok)) {
		return "", false, false, nil
	}
	return "", false, false, p.errorf(fmt.Sprintf("invalid literal %q", tok))
}
