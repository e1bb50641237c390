// Package bufstream implements a buffered duplex byte stream over an opaque
// channel.
//
// A Stream owns a fixed-capacity input buffer and a fixed-capacity output
// buffer. Bytes are pulled from the bound Channel only when the input buffer
// is exhausted (a refill) and pushed to it only when the output buffer is
// full or Flush is called (a drain). The stream knows nothing about the
// protocol running on top of it.
//
// # Policy
//
// Two policies are enforced at refill time, before the channel is touched:
//
//   - Timeout: EnableTimeout arms an idle deadline. A refill attempted after
//     the deadline fails with ErrTimeout. The deadline is also pushed down to
//     channels that support SetReadDeadline so a silent peer cannot block a
//     read past it. Every successful refill re-arms the deadline.
//   - Read quota: EnableReadLimit arms a ceiling on the number of bytes
//     pulled from the channel. Once the ceiling is reached further refills
//     fail with ErrQuotaExceeded and no channel read is attempted.
//
// # Putback
//
// When the input buffer has been consumed up to its capacity, the trailing
// PutbackSize bytes are moved to the start of the buffer before the next
// refill. UnreadByte and PushBack can therefore step back over recently read
// bytes even across a refill.
//
// # Usage
//
//	s := bufstream.New()
//	s.Bind(conn)
//	s.EnableTimeout(5 * time.Second)
//	s.WriteString("PING\r\n")
//	if err := s.Flush(); err != nil {
//		// handle err
//	}
//	b, err := s.ReadByte()
//
// A Stream is not safe for concurrent use.
package bufstream
