package bufstream

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// Channel is the duplex byte source a Stream refills from and drains to.
// net.Conn, *tls.Conn and in-memory pipes all satisfy it.
type Channel interface {
	io.Reader
	io.Writer
}

type readDeadliner interface {
	SetReadDeadline(t time.Time) error
}

type writeDeadliner interface {
	SetWriteDeadline(t time.Time) error
}

// Stream is a buffered duplex stream over a Channel.
type Stream struct {
	ch Channel

	in       []byte
	cur, end int
	putback  int

	out  []byte
	ocur int

	now     func() time.Time
	timed   bool
	timeout time.Duration
	begin   time.Time

	limited bool
	count   int64
	max     int64
}

// New creates a stream that is not bound to any channel.
func New(opts ...Option) *Stream {
	cfg := &config{
		inputSize:  InputSize,
		outputSize: OutputSize,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	putback := PutbackSize
	if putback > cfg.inputSize/2 {
		putback = cfg.inputSize / 2
	}

	return &Stream{
		in:      make([]byte, cfg.inputSize),
		out:     make([]byte, cfg.outputSize),
		putback: putback,
		now:     cfg.now,
	}
}

// Bind associates the stream with ch and clears both buffers. Binding an
// already bound stream rebinds it; the previous channel is not closed.
func (s *Stream) Bind(ch Channel) {
	s.ch = ch
	s.clear()
}

// Unbind detaches the channel without closing it and clears both buffers.
// Pending output is discarded; call Flush first to keep it.
func (s *Stream) Unbind() {
	s.ch = nil
	s.clear()
}

// Bound reports whether a channel is attached.
func (s *Stream) Bound() bool {
	return s.ch != nil
}

func (s *Stream) clear() {
	s.cur, s.end = 0, 0
	s.ocur = 0
}

// Buffered returns the number of unread bytes in the input buffer.
func (s *Stream) Buffered() int {
	return s.end - s.cur
}

// Pending returns the number of bytes waiting in the output buffer.
func (s *Stream) Pending() int {
	return s.ocur
}

// EnableTimeout arms an idle deadline of d measured from now.
func (s *Stream) EnableTimeout(d time.Duration) {
	s.timed = true
	s.timeout = d
	s.begin = s.now()
}

// ResetTimeout re-arms the deadline from now keeping the current duration.
func (s *Stream) ResetTimeout() {
	s.begin = s.now()
}

// DisableTimeout removes the deadline.
func (s *Stream) DisableTimeout() {
	s.timed = false
}

// Deadline returns the armed deadline, or the zero time when disabled.
func (s *Stream) Deadline() time.Time {
	if !s.timed {
		return time.Time{}
	}
	return s.begin.Add(s.timeout)
}

// EnableReadLimit zeroes the read counter and arms a ceiling of n bytes.
func (s *Stream) EnableReadLimit(n int64) {
	s.count = 0
	s.max = n
	s.limited = true
}

// ResetReadLimit zeroes the read counter. The ceiling is unchanged.
func (s *Stream) ResetReadLimit() {
	s.count = 0
}

// DisableReadLimit stops enforcing the ceiling.
func (s *Stream) DisableReadLimit() {
	s.limited = false
}

// ReadCount returns the number of bytes pulled from the channel since the
// limit was last enabled or reset.
func (s *Stream) ReadCount() int64 {
	return s.count
}

// fill pulls more bytes from the channel into the input buffer. It must only
// be called once every buffered byte has been consumed.
func (s *Stream) fill() error {
	if s.ch == nil {
		return ErrUnbound
	}
	if s.limited && s.count >= s.max {
		return ErrQuotaExceeded
	}
	deadline := s.Deadline()
	if s.timed && !s.now().Before(deadline) {
		return ErrTimeout
	}

	if s.cur == len(s.in) {
		copy(s.in, s.in[len(s.in)-s.putback:])
		s.cur, s.end = s.putback, s.putback
	}

	n := len(s.in) - s.end
	if s.limited {
		if remain := s.max - s.count; int64(n) > remain {
			n = int(remain)
		}
	}

	if d, ok := s.ch.(readDeadliner); ok {
		if err := d.SetReadDeadline(deadline); err != nil {
			return fmt.Errorf("bufstream: set read deadline: %w", err)
		}
	}

	m, err := s.ch.Read(s.in[s.end : s.end+n])
	if m > 0 {
		s.end += m
		s.count += int64(m)
		if s.timed {
			s.begin = s.now()
		}
		return nil
	}
	switch {
	case err == nil, errors.Is(err, io.EOF):
		// A read that yields nothing is the end of the stream.
		return io.EOF
	case errors.Is(err, os.ErrDeadlineExceeded):
		return ErrTimeout
	default:
		return fmt.Errorf("bufstream: read: %w", err)
	}
}

// ReadByte returns the next byte, refilling from the channel when the input
// buffer is exhausted. It returns io.EOF at the end of the stream.
func (s *Stream) ReadByte() (byte, error) {
	if s.cur == s.end {
		if err := s.fill(); err != nil {
			return 0, err
		}
	}
	b := s.in[s.cur]
	s.cur++
	return b, nil
}

// Read copies up to len(p) bytes into p, refilling as often as needed. It
// only returns fewer than len(p) bytes when the stream ends or a policy or
// channel error occurs. Use io.ReadFull to demand exactly len(p) bytes.
func (s *Stream) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		if s.cur == s.end {
			if err := s.fill(); err != nil {
				if n > 0 && err == io.EOF {
					return n, nil
				}
				return n, err
			}
		}
		c := copy(p[n:], s.in[s.cur:s.end])
		s.cur += c
		n += c
	}
	return n, nil
}

// UnreadByte steps back over the last consumed byte.
func (s *Stream) UnreadByte() error {
	if s.cur == 0 {
		return ErrNoHistory
	}
	s.cur--
	return nil
}

// PushBack un-consumes one byte, replacing it with b. The next read returns b.
func (s *Stream) PushBack(b byte) error {
	if s.cur == 0 {
		return ErrNoHistory
	}
	s.cur--
	s.in[s.cur] = b
	return nil
}

// WriteByte buffers b, flushing first when the output buffer is full.
func (s *Stream) WriteByte(b byte) error {
	if s.ch == nil {
		return ErrUnbound
	}
	if s.ocur == len(s.out) {
		if err := s.Flush(); err != nil {
			return err
		}
	}
	s.out[s.ocur] = b
	s.ocur++
	return nil
}

// Write buffers p, flushing whenever the output buffer fills up.
func (s *Stream) Write(p []byte) (int, error) {
	if s.ch == nil {
		return 0, ErrUnbound
	}
	n := 0
	for n < len(p) {
		if s.ocur == len(s.out) {
			if err := s.Flush(); err != nil {
				return n, err
			}
		}
		c := copy(s.out[s.ocur:], p[n:])
		s.ocur += c
		n += c
	}
	return n, nil
}

// WriteString buffers str.
func (s *Stream) WriteString(str string) (int, error) {
	if s.ch == nil {
		return 0, ErrUnbound
	}
	n := 0
	for n < len(str) {
		if s.ocur == len(s.out) {
			if err := s.Flush(); err != nil {
				return n, err
			}
		}
		c := copy(s.out[s.ocur:], str[n:])
		s.ocur += c
		n += c
	}
	return n, nil
}

// Flush drains the output buffer through repeated channel writes. A write
// that accepts nothing fails with ErrNoProgress; unwritten bytes stay
// buffered.
func (s *Stream) Flush() error {
	if s.ocur == 0 {
		return nil
	}
	if s.ch == nil {
		return ErrUnbound
	}
	if d, ok := s.ch.(writeDeadliner); ok {
		if err := d.SetWriteDeadline(s.Deadline()); err != nil {
			return fmt.Errorf("bufstream: set write deadline: %w", err)
		}
	}

	done := 0
	for done < s.ocur {
		m, err := s.ch.Write(s.out[done:s.ocur])
		done += m
		if err != nil {
			s.shift(done)
			if errors.Is(err, os.ErrDeadlineExceeded) {
				return ErrTimeout
			}
			return fmt.Errorf("bufstream: write: %w", err)
		}
		if m == 0 {
			s.shift(done)
			return ErrNoProgress
		}
	}
	s.ocur = 0
	return nil
}

// shift drops the first n bytes of the output buffer.
func (s *Stream) shift(n int) {
	copy(s.out, s.out[n:s.ocur])
	s.ocur -= n
}
