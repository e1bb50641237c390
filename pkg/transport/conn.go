package transport

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/inetclient/inet/pkg/bufstream"
)

// Conn is the connection facade the protocol engines use. It owns a
// Transport and refuses I/O while the transport is closed.
type Conn struct {
	t Transport
}

// NewConn wraps t.
func NewConn(t Transport) *Conn {
	return &Conn{t: t}
}

// Transport returns the wrapped transport.
func (c *Conn) Transport() Transport {
	return c.t
}

func (c *Conn) Open(ctx context.Context, host, service string) error {
	return c.t.Open(ctx, host, service)
}

func (c *Conn) Close() error {
	return c.t.Close()
}

func (c *Conn) IsOpen() bool {
	return c.t.IsOpen()
}

func (c *Conn) Protocol() string {
	return c.t.Protocol()
}

func (c *Conn) stream(op string) (*bufstream.Stream, error) {
	if !c.t.IsOpen() {
		return nil, &Error{Kind: KindUsage, Op: op, Err: errors.New("connection is closed")}
	}
	return c.t.Stream(), nil
}

// ReadLine reads up to the next CRLF and returns the line without it. A CR
// not followed by LF is kept. At end of stream the bytes read so far are
// returned; io.EOF is returned only when nothing was read.
func (c *Conn) ReadLine() (string, error) {
	s, err := c.stream("read line")
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for {
		b, err := s.ReadByte()
		if err == io.EOF {
			if sb.Len() == 0 {
				return "", io.EOF
			}
			return sb.String(), nil
		}
		if err != nil {
			return sb.String(), Classify("read line", err)
		}
		if b != '\r' {
			sb.WriteByte(b)
			continue
		}

		next, err := s.ReadByte()
		if err == io.EOF {
			sb.WriteByte('\r')
			return sb.String(), nil
		}
		if err != nil {
			return sb.String(), Classify("read line", err)
		}
		if next == '\n' {
			return sb.String(), nil
		}
		sb.WriteByte('\r')
		if err := s.UnreadByte(); err != nil {
			return sb.String(), Classify("read line", err)
		}
	}
}

// ReadByte returns the next byte or io.EOF.
func (c *Conn) ReadByte() (byte, error) {
	s, err := c.stream("read")
	if err != nil {
		return 0, err
	}
	b, err := s.ReadByte()
	if err != nil && err != io.EOF {
		return 0, Classify("read", err)
	}
	return b, err
}

// UnreadByte steps back over the last byte read.
func (c *Conn) UnreadByte() error {
	s, err := c.stream("unread")
	if err != nil {
		return err
	}
	return Classify("unread", s.UnreadByte())
}

// Read implements io.Reader.
func (c *Conn) Read(p []byte) (int, error) {
	s, err := c.stream("read")
	if err != nil {
		return 0, err
	}
	n, err := s.Read(p)
	if err != nil && err != io.EOF {
		return n, Classify("read", err)
	}
	return n, err
}

// ReadFull reads exactly len(p) bytes. A short stream fails with
// io.ErrUnexpectedEOF in the chain.
func (c *Conn) ReadFull(p []byte) error {
	s, err := c.stream("read")
	if err != nil {
		return err
	}
	if _, err := io.ReadFull(s, p); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return Classify("read", err)
	}
	return nil
}

// Discard skips n bytes.
func (c *Conn) Discard(n int64) error {
	s, err := c.stream("discard")
	if err != nil {
		return err
	}
	if _, err := io.CopyN(io.Discard, s, n); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return Classify("discard", err)
	}
	return nil
}

// Write implements io.Writer. Bytes are buffered until Flush.
func (c *Conn) Write(p []byte) (int, error) {
	s, err := c.stream("write")
	if err != nil {
		return 0, err
	}
	n, err := s.Write(p)
	return n, Classify("write", err)
}

func (c *Conn) WriteString(str string) (int, error) {
	s, err := c.stream("write")
	if err != nil {
		return 0, err
	}
	n, err := s.WriteString(str)
	return n, Classify("write", err)
}

func (c *Conn) WriteByte(b byte) error {
	s, err := c.stream("write")
	if err != nil {
		return err
	}
	return Classify("write", s.WriteByte(b))
}

// Flush sends buffered output.
func (c *Conn) Flush() error {
	s, err := c.stream("flush")
	if err != nil {
		return err
	}
	return Classify("flush", s.Flush())
}

func (c *Conn) EnableTimeout(d time.Duration) { c.t.Stream().EnableTimeout(d) }
func (c *Conn) ResetTimeout()                 { c.t.Stream().ResetTimeout() }
func (c *Conn) DisableTimeout()               { c.t.Stream().DisableTimeout() }
func (c *Conn) EnableReadLimit(n int64)       { c.t.Stream().EnableReadLimit(n) }
func (c *Conn) ResetReadLimit()               { c.t.Stream().ResetReadLimit() }
func (c *Conn) DisableReadLimit()             { c.t.Stream().DisableReadLimit() }
func (c *Conn) ReadCount() int64              { return c.t.Stream().ReadCount() }
