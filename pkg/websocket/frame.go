package websocket

import (
	"encoding/binary"
	"errors"
	"io"

	"github.com/gobwas/ws"

	"github.com/inetclient/inet/pkg/transport"
)

// OpCode is a frame opcode.
type OpCode = ws.OpCode

const (
	OpContinuation = ws.OpContinuation
	OpText         = ws.OpText
	OpBinary       = ws.OpBinary
	OpClose        = ws.OpClose
	OpPing         = ws.OpPing
	OpPong         = ws.OpPong
)

// Header is a frame header: fin bit, opcode, mask and payload length.
type Header = ws.Header

// FrameType is the kind of message Retrieve delivers. Pings are answered
// internally and never surface.
type FrameType int

const (
	Text FrameType = iota
	Binary
	Pong
	Close
)

func (t FrameType) String() string {
	switch t {
	case Text:
		return "text"
	case Binary:
		return "binary"
	case Pong:
		return "pong"
	case Close:
		return "close"
	default:
		return "unknown"
	}
}

// MaxControlPayload is the largest payload a control frame may carry.
const MaxControlPayload = 125

const (
	len7  = 125
	len16 = 65535
)

// DefaultMask is the fixed client mask key, 0xDEADBEAF in network byte
// order.
var DefaultMask = [4]byte{0xDE, 0xAD, 0xBE, 0xAF}

var errLengthMSB = errors.New("websocket: frame length has the most significant bit set")

// WriteHeader writes h. Lengths below 126 use the 7-bit field, lengths below
// 65535 the 16-bit extension and anything larger the 64-bit extension.
func WriteHeader(w io.Writer, h Header) error {
	var buf [14]byte

	if h.Fin {
		buf[0] = 0x80
	}
	buf[0] |= h.Rsv<<4 | byte(h.OpCode)&0x0f

	if h.Length < 0 {
		return errLengthMSB
	}

	n := 2
	switch {
	case h.Length <= len7:
		buf[1] = byte(h.Length)
	case h.Length < len16:
		buf[1] = 126
		binary.BigEndian.PutUint16(buf[2:], uint16(h.Length))
		n += 2
	default:
		buf[1] = 127
		binary.BigEndian.PutUint64(buf[2:], uint64(h.Length))
		n += 8
	}

	if h.Masked {
		buf[1] |= 0x80
		n += copy(buf[n:], h.Mask[:])
	}

	_, err := w.Write(buf[:n])
	return err
}

// ReadHeader reads a frame header. Both the 16-bit and the 64-bit extended
// length encodings are accepted for any length.
func ReadHeader(r io.Reader) (Header, error) {
	h, err := ws.ReadHeader(r)
	if errors.Is(err, ws.ErrHeaderLengthMSB) || errors.Is(err, ws.ErrHeaderLengthUnexpected) {
		return h, &transport.Error{Kind: transport.KindDecode, Op: "read header", Err: err}
	}
	return h, err
}

// Cipher XORs p in place with mask, starting at byte offset of the payload
// so a payload can be masked in pieces.
func Cipher(p []byte, mask [4]byte, offset int) {
	ws.Cipher(p, mask, offset)
}

// frameType maps a data or close opcode to what Retrieve reports.
func frameType(op OpCode) (FrameType, bool) {
	switch op {
	case OpText:
		return Text, true
	case OpBinary:
		return Binary, true
	case OpPong:
		return Pong, true
	case OpClose:
		return Close, true
	}
	return 0, false
}
