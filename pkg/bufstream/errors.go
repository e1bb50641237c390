package bufstream

import (
	"errors"
	"fmt"
	"io"
)

var (
	// ErrTimeout indicates the armed deadline passed before data arrived.
	ErrTimeout = errors.New("bufstream: timeout")

	// ErrQuotaExceeded indicates the read limit was reached.
	ErrQuotaExceeded = errors.New("bufstream: read limit reached")

	// ErrNoProgress indicates a channel write accepted zero bytes.
	ErrNoProgress = fmt.Errorf("bufstream: stalled channel: %w", io.ErrNoProgress)

	// ErrNoHistory indicates there is no consumed byte left to push back.
	ErrNoHistory = errors.New("bufstream: no byte to push back")

	// ErrUnbound indicates the stream has no channel.
	ErrUnbound = errors.New("bufstream: stream is not bound to a channel")
)
