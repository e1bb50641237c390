package netstr

import (
	"errors"
	"fmt"
	"io"
)

// Decode reads the next plain netstring. It returns io.EOF only when the
// stream ends cleanly between netstrings.
func (d *Decoder) Decode() ([]byte, error) {
	n, err := d.readLength()
	if err != nil {
		return nil, err
	}
	return d.readPayload(n)
}

// DecodeKeyed reads the next keyed netstring.
func (d *Decoder) DecodeKeyed() (byte, []byte, error) {
	n, err := d.readLength()
	if err != nil {
		return 0, nil, err
	}
	if n == 0 {
		return 0, nil, d.formatErr("keyed netstring is empty")
	}
	payload, err := d.readPayload(n)
	if err != nil {
		return 0, nil, err
	}
	return payload[0], payload[1:], nil
}

func (d *Decoder) formatErr(format string, args ...any) error {
	return &FormatError{Offset: d.offset, Reason: fmt.Sprintf(format, args...)}
}

func (d *Decoder) readByte() (byte, error) {
	b, err := d.r.ReadByte()
	if err == nil {
		d.offset++
	}
	return b, err
}

// readLength consumes "<digits>:". Leading zeros are rejected except for
// the single digit "0".
func (d *Decoder) readLength() (int, error) {
	var (
		n      int
		digits int
	)
	for {
		b, err := d.readByte()
		if err != nil {
			if errors.Is(err, io.EOF) && digits > 0 {
				return 0, d.formatErr("unexpected EOF in length")
			}
			return 0, err
		}

		switch {
		case b == ':':
			if digits == 0 {
				return 0, d.formatErr("length is empty")
			}
			return n, nil
		case b >= '0' && b <= '9':
			if digits == 1 && n == 0 {
				return 0, d.formatErr("length has a leading zero")
			}
			n = n*10 + int(b-'0')
			digits++
			if n > d.maxLength {
				return 0, ErrTooLarge
			}
		case d.lenient && digits == 0 && isSpace(b):
		default:
			return 0, d.formatErr("expected digit or ':', got %q", b)
		}
	}
}

func (d *Decoder) readPayload(n int) ([]byte, error) {
	payload := make([]byte, n)
	got, err := io.ReadFull(d.r, payload)
	d.offset += got
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, d.formatErr("unexpected EOF: expected %d bytes, got %d", n, got)
		}
		return nil, err
	}

	b, err := d.readByte()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, d.formatErr("unexpected EOF: expected ','")
		}
		return nil, err
	}
	if b != ',' {
		return nil, d.formatErr("expected ',', got %q", b)
	}
	return payload, nil
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
