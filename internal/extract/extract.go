// Package extract pulls the narrative "response" string out of a JSON
// document while it is still being streamed, so that it can be shown to the
// user before the document is complete.
package extract

import (
	"context"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// Marker is the exact byte sequence that opens the narrative field. No
// whitespace is tolerated between its parts.
const Marker = `"response":"`

// State is the position of an Extractor in the stream.
type State int

const (
	// Seeking means the marker has not been seen yet.
	Seeking State = iota
	// InField means bytes are being decoded into the narrative.
	InField
	// Done means the closing quote has been seen. Further input is only
	// accumulated as raw text.
	Done
)

func (s State) String() string {
	switch s {
	case Seeking:
		return "seeking"
	case InField:
		return "in_field"
	default:
		return "done"
	}
}

// Source is a pull-based stream of text chunks. Next returns done=true
// once the stream is exhausted.
type Source interface {
	Next() (chunk string, done bool, err error)
}

// Extractor is an incremental decoder for the narrative field. The
// concatenation of the deltas it returns equals the decoded field value
// regardless of how the input is split into chunks. It is not safe for
// concurrent use.
type Extractor struct {
	state   State
	raw     strings.Builder
	value   strings.Builder
	window  string // tail of the input while seeking, shorter than Marker
	pending []byte // undecoded escape or incomplete UTF-8 sequence
}

// New returns an Extractor in the Seeking state.
func New() *Extractor {
	return &Extractor{}
}

// State returns the current state.
func (e *Extractor) State() State { return e.state }

// Raw returns all input fed so far.
func (e *Extractor) Raw() string { return e.raw.String() }

// Value returns the narrative decoded so far.
func (e *Extractor) Value() string { return e.value.String() }

// Feed consumes the next chunk and returns the newly decoded part of the
// narrative, which may be empty.
func (e *Extractor) Feed(chunk string) string {
	e.raw.WriteString(chunk)

	switch e.state {
	case Seeking:
		search := e.window + chunk
		idx := strings.Index(search, Marker)
		if idx < 0 {
			if keep := len(Marker) - 1; len(search) > keep {
				search = search[len(search)-keep:]
			}
			e.window = search
			return ""
		}
		e.window = ""
		e.state = InField
		return e.decode(search[idx+len(Marker):])
	case InField:
		return e.decode(chunk)
	default:
		return ""
	}
}

func (e *Extractor) decode(s string) string {
	data := append(e.pending, s...)
	e.pending = nil

	var out []byte
	i := 0
loop:
	for i < len(data) {
		c := data[i]
		switch {
		case c == '"':
			e.state = Done
			break loop
		case c != '\\':
			out = append(out, c)
			i++
			continue
		}

		// Escape sequence.
		if i+1 >= len(data) {
			break
		}
		esc := data[i+1]
		if esc != 'u' {
			out = append(out, unescape(esc)...)
			i += 2
			continue
		}

		r, ok := hex4(data[i+2:])
		if !ok {
			if len(data)-i < 6 && isHexPrefix(data[i+2:]) {
				break
			}
			out = utf8.AppendRune(out, utf8.RuneError)
			i += 2
			continue
		}
		if !utf16.IsSurrogate(r) {
			out = utf8.AppendRune(out, r)
			i += 6
			continue
		}

		// A high surrogate needs the following \uXXXX to form a rune.
		rest := data[i+6:]
		if len(rest) < 6 && isSurrogateTailPrefix(rest) {
			break
		}
		if lo, ok := lowSurrogate(rest); ok {
			if dec := utf16.DecodeRune(r, lo); dec != utf8.RuneError {
				out = utf8.AppendRune(out, dec)
				i += 12
				continue
			}
		}
		out = utf8.AppendRune(out, utf8.RuneError)
		i += 6
	}

	if e.state == Done {
		e.value.Write(out)
		return string(out)
	}

	// Hold back whatever could not be decoded yet.
	if i < len(data) {
		e.pending = append(e.pending, data[i:]...)
	}
	if n := incompleteSuffix(out); n > 0 {
		e.pending = append(append([]byte(nil), out[len(out)-n:]...), e.pending...)
		out = out[:len(out)-n]
	}
	e.value.Write(out)
	return string(out)
}

func unescape(c byte) []byte {
	switch c {
	case 'n':
		return []byte{'\n'}
	case 't':
		return []byte{'\t'}
	case 'r':
		return []byte{'\r'}
	case 'b':
		return []byte{'\b'}
	case 'f':
		return []byte{'\f'}
	default: // '"', '\\', '/' and anything unknown are taken literally
		return []byte{c}
	}
}

func hex4(b []byte) (rune, bool) {
	if len(b) < 4 {
		return 0, false
	}
	v, err := strconv.ParseUint(string(b[:4]), 16, 32)
	if err != nil {
		return 0, false
	}
	return rune(v), true
}

func isHexPrefix(b []byte) bool {
	for _, c := range b {
		if !isHex(c) {
			return false
		}
	}
	return true
}

func isHex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}

// isSurrogateTailPrefix reports whether b could still grow into \uXXXX.
func isSurrogateTailPrefix(b []byte) bool {
	for j, c := range b {
		switch j {
		case 0:
			if c != '\\' {
				return false
			}
		case 1:
			if c != 'u' {
				return false
			}
		default:
			if !isHex(c) {
				return false
			}
		}
	}
	return true
}

func lowSurrogate(b []byte) (rune, bool) {
	if len(b) < 6 || b[0] != '\\' || b[1] != 'u' {
		return 0, false
	}
	return hex4(b[2:])
}

// incompleteSuffix returns the length of a trailing UTF-8 sequence that
// has started but not finished.
func incompleteSuffix(b []byte) int {
	for n := 1; n < utf8.UTFMax && n <= len(b); n++ {
		c := b[len(b)-n]
		if !utf8.RuneStart(c) {
			continue
		}
		if utf8.FullRune(b[len(b)-n:]) {
			return 0
		}
		return n
	}
	return 0
}

// Run drains src through a fresh Extractor, calling onDelta with every
// non-empty piece of narrative. It returns the complete raw text.
func Run(ctx context.Context, src Source, onDelta func(string)) (string, error) {
	e := New()
	for {
		if err := ctx.Err(); err != nil {
			return e.Raw(), err
		}
		chunk, done, err := src.Next()
		if chunk != "" {
			if delta := e.Feed(chunk); delta != "" && onDelta != nil {
				onDelta(delta)
			}
		}
		if err != nil {
			return e.Raw(), err
		}
		if done {
			return e.Raw(), nil
		}
	}
}
