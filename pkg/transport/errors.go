package transport

import (
	"errors"
	"fmt"

	"github.com/inetclient/inet/pkg/bufstream"
)

// Kind classifies failures reported by transports and the engines built on
// top of them.
type Kind int

const (
	// KindIO is an unclassified channel read or write failure.
	KindIO Kind = iota
	// KindOpen is a resolution or connection failure.
	KindOpen
	// KindHandshake is a TLS or protocol-upgrade negotiation failure.
	KindHandshake
	// KindCertificate is a peer certificate verification failure.
	KindCertificate
	// KindDecode is malformed data from the peer.
	KindDecode
	// KindTimeout means the armed deadline passed.
	KindTimeout
	// KindQuota means the read limit was reached.
	KindQuota
	// KindUsage is an operation invoked in the wrong state.
	KindUsage
)

// Sentinels for errors.Is. Every *Error matches the sentinel of its Kind.
var (
	ErrIO          = errors.New("i/o failure")
	ErrOpen        = errors.New("open failed")
	ErrHandshake   = errors.New("handshake failed")
	ErrCertificate = errors.New("certificate rejected")
	ErrDecode      = errors.New("malformed data")
	ErrTimeout     = errors.New("timeout")
	ErrQuota       = errors.New("read limit reached")
	ErrUsage       = errors.New("invalid use")
)

var kindSentinels = map[Kind]error{
	KindIO:          ErrIO,
	KindOpen:        ErrOpen,
	KindHandshake:   ErrHandshake,
	KindCertificate: ErrCertificate,
	KindDecode:      ErrDecode,
	KindTimeout:     ErrTimeout,
	KindQuota:       ErrQuota,
	KindUsage:       ErrUsage,
}

func (k Kind) String() string {
	if err, ok := kindSentinels[k]; ok {
		return err.Error()
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is the error type returned by transports, Conn and the engines.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of e's Kind.
func (e *Error) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// Errorf builds an *Error of the given kind with a formatted cause.
func Errorf(kind Kind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// Classify wraps err as an *Error for op. Stream policy failures map to
// KindTimeout and KindQuota, a missing channel to KindUsage, everything else
// to KindIO. Errors that already are *Error pass through unchanged.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}

	kind := KindIO
	switch {
	case errors.Is(err, bufstream.ErrTimeout):
		kind = KindTimeout
	case errors.Is(err, bufstream.ErrQuotaExceeded):
		kind = KindQuota
	case errors.Is(err, bufstream.ErrUnbound):
		kind = KindUsage
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, or KindIO.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindIO
}
