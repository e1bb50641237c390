// Package netstr frames byte strings as netstrings: <length>:<payload>,
//
// A keyed netstring spends the first payload byte on a key so a single
// stream can carry several kinds of message:
//
//	"5:hello,"  // plain
//	"6:thello," // key 't', value "hello"
//
// The inet CLI uses keyed netstrings to move WebSocket messages over stdin
// and stdout.
package netstr

import (
	"bufio"
	"io"
)

// Keys used for WebSocket messages.
const (
	KeyText   byte = 't'
	KeyBinary byte = 'b'
	KeyPing   byte = 'p'
	KeyPong   byte = 'o'
	KeyClose  byte = 'c'
)

// DefaultMaxLength bounds the length field accepted by a Decoder.
const DefaultMaxLength = 1024 * 1024

// Option configures a Decoder.
type Option func(*Decoder)

// MaxLength overrides DefaultMaxLength.
func MaxLength(n int) Option {
	return func(d *Decoder) {
		d.maxLength = n
	}
}

// Lenient skips ASCII whitespace between netstrings, which makes
// hand-typed or echo-produced input usable.
func Lenient() Option {
	return func(d *Decoder) {
		d.lenient = true
	}
}

// Decoder reads netstrings from a buffered reader.
type Decoder struct {
	r         *bufio.Reader
	maxLength int
	lenient   bool
	offset    int
}

// NewDecoder wraps r. A *bufio.Reader is used as is.
func NewDecoder(r io.Reader, opts ...Option) *Decoder {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	d := &Decoder{r: br, maxLength: DefaultMaxLength}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Offset returns the number of bytes consumed so far.
func (d *Decoder) Offset() int {
	return d.offset
}

// Encoder writes netstrings. Each netstring is handed to the underlying
// writer in a single Write call.
type Encoder struct {
	w   io.Writer
	buf []byte
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}
