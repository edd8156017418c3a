// Package bencode implements the self-describing length-prefixed encoding
// used by nREPL frames: length-prefixed strings, ASCII integers terminated
// by 'e', and delimited lists and dictionaries.
//
// The Decoder is resumable: each call consumes at most one complete
// top-level value and retains any trailing partial bytes for the next call,
// so it can sit directly on a socket read loop without blocking.
package bencode

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind discriminates the bencode value variants.
type Kind int

const (
	// KindString is a length-prefixed byte string.
	KindString Kind = iota
	// KindInt is an ASCII integer.
	KindInt
	// KindList is an ordered sequence of values.
	KindList
	// KindDict maps string keys to values.
	KindDict
)

// Value is one bencode value.
type Value struct {
	Kind Kind
	Str  string
	Int  int64
	List []Value
	Dict map[string]Value
}

// String returns a string value.
func String(s string) Value {
	return Value{Kind: KindString, Str: s}
}

// Int returns an integer value.
func Int(i int64) Value {
	return Value{Kind: KindInt, Int: i}
}

// List returns a list value.
func List(vs ...Value) Value {
	return Value{Kind: KindList, List: vs}
}

// Dict returns a dictionary value.
func Dict(m map[string]Value) Value {
	return Value{Kind: KindDict, Dict: m}
}

// Get returns the entry for key in a dictionary value, if present.
func (v Value) Get(key string) (Value, bool) {
	if v.Kind != KindDict {
		return Value{}, false
	}
	e, ok := v.Dict[key]
	return e, ok
}

// StringAt returns the string entry for key in a dictionary value, or "".
func (v Value) StringAt(key string) string {
	e, ok := v.Get(key)
	if !ok || e.Kind != KindString {
		return ""
	}
	return e.Str
}

// Strings returns the string elements of a list value.
func (v Value) Strings() []string {
	if v.Kind != KindList {
		return nil
	}
	out := make([]string, 0, len(v.List))
	for _, e := range v.List {
		if e.Kind == KindString {
			out = append(out, e.Str)
		}
	}
	return out
}

// Encode serializes the value. Dictionary keys are emitted in sorted order
// so encoding is deterministic.
func Encode(v Value) []byte {
	var b strings.Builder
	encode(&b, v)
	return []byte(b.String())
}

func encode(b *strings.Builder, v Value) {
	switch v.Kind {
	case KindString:
		b.WriteString(strconv.Itoa(len(v.Str)))
		b.WriteByte(':')
		b.WriteString(v.Str)
	case KindInt:
		b.WriteByte('i')
		b.WriteString(strconv.FormatInt(v.Int, 10))
		b.WriteByte('e')
	case KindList:
		b.WriteByte('l')
		for _, e := range v.List {
			encode(b, e)
		}
		b.WriteByte('e')
	case KindDict:
		keys := make([]string, 0, len(v.Dict))
		for k := range v.Dict {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('d')
		for _, k := range keys {
			encode(b, String(k))
			encode(b, v.Dict[k])
		}
		b.WriteByte('e')
	}
}

// errIncomplete signals that more bytes are needed for a complete value.
var errIncomplete = errors.New("bencode: incomplete value")

// ErrMalformed reports structurally invalid input. The byte stream cannot
// be resynchronized after it.
var ErrMalformed = errors.New("bencode: malformed input")

// Decoder incrementally decodes a bencode byte stream.
type Decoder struct {
	buf []byte
}

// Feed appends raw bytes to the decode buffer.
func (d *Decoder) Feed(p []byte) {
	d.buf = append(d.buf, p...)
}

// Buffered reports how many undecoded bytes are retained.
func (d *Decoder) Buffered() int {
	return len(d.buf)
}

// Next decodes and consumes one complete top-level value. It returns
// (nil, nil) when the buffered bytes do not yet form a complete value and
// ErrMalformed when they can never form one.
func (d *Decoder) Next() (*Value, error) {
	if len(d.buf) == 0 {
		return nil, nil
	}
	v, n, err := parse(d.buf)
	if errors.Is(err, errIncomplete) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	d.buf = d.buf[n:]
	return &v, nil
}

func parse(b []byte) (Value, int, error) {
	if len(b) == 0 {
		return Value{}, 0, errIncomplete
	}
	switch c := b[0]; {
	case c >= '0' && c <= '9':
		return parseString(b)
	case c == 'i':
		return parseInt(b)
	case c == 'l':
		return parseList(b)
	case c == 'd':
		return parseDict(b)
	default:
		return Value{}, 0, fmt.Errorf("%w: unexpected byte %q", ErrMalformed, c)
	}
}

func parseString(b []byte) (Value, int, error) {
	colon := -1
	for i, c := range b {
		if c == ':' {
			colon = i
			break
		}
		if c < '0' || c > '9' {
			return Value{}, 0, fmt.Errorf("%w: bad string length prefix", ErrMalformed)
		}
	}
	if colon < 0 {
		return Value{}, 0, errIncomplete
	}
	length, err := strconv.Atoi(string(b[:colon]))
	if err != nil {
		return Value{}, 0, fmt.Errorf("%w: string length %q", ErrMalformed, b[:colon])
	}
	end := colon + 1 + length
	if end > len(b) {
		return Value{}, 0, errIncomplete
	}
	return String(string(b[colon+1 : end])), end, nil
}

func parseInt(b []byte) (Value, int, error) {
	end := -1
	for i := 1; i < len(b); i++ {
		if b[i] == 'e' {
			end = i
			break
		}
	}
	if end < 0 {
		return Value{}, 0, errIncomplete
	}
	n, err := strconv.ParseInt(string(b[1:end]), 10, 64)
	if err != nil {
		return Value{}, 0, fmt.Errorf("%w: integer %q", ErrMalformed, b[1:end])
	}
	return Int(n), end + 1, nil
}

func parseList(b []byte) (Value, int, error) {
	pos := 1
	var elems []Value
	for {
		if pos >= len(b) {
			return Value{}, 0, errIncomplete
		}
		if b[pos] == 'e' {
			return Value{Kind: KindList, List: elems}, pos + 1, nil
		}
		v, n, err := parse(b[pos:])
		if err != nil {
			return Value{}, 0, err
		}
		elems = append(elems, v)
		pos += n
	}
}

func parseDict(b []byte) (Value, int, error) {
	pos := 1
	m := make(map[string]Value)
	for {
		if pos >= len(b) {
			return Value{}, 0, errIncomplete
		}
		if b[pos] == 'e' {
			return Value{Kind: KindDict, Dict: m}, pos + 1, nil
		}
		k, n, err := parse(b[pos:])
		if err != nil {
			return Value{}, 0, err
		}
		if k.Kind != KindString {
			return Value{}, 0, fmt.Errorf("%w: dictionary key is not a string", ErrMalformed)
		}
		pos += n
		v, n, err := parse(b[pos:])
		if err != nil {
			return Value{}, 0, err
		}
		pos += n
		m[k.Str] = v
	}
}
