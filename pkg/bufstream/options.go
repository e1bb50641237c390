package bufstream

import "time"

const (
	// InputSize is the default input buffer capacity (18 KiB).
	InputSize = 18 * 1024

	// OutputSize is the default output buffer capacity (16 KiB).
	OutputSize = 16 * 1024

	// PutbackSize is the history kept at the front of the input buffer when
	// it wraps (2 KiB). Streams with small input buffers keep at most half of
	// their capacity.
	PutbackSize = 2 * 1024
)

// config holds stream construction settings.
type config struct {
	inputSize  int
	outputSize int
	now        func() time.Time
}

// Option configures a Stream.
type Option func(*config)

// WithInputSize sets the input buffer capacity. Values below 2 are ignored.
func WithInputSize(n int) Option {
	return func(c *config) {
		if n >= 2 {
			c.inputSize = n
		}
	}
}

// WithOutputSize sets the output buffer capacity. Values below 1 are ignored.
func WithOutputSize(n int) Option {
	return func(c *config) {
		if n >= 1 {
			c.outputSize = n
		}
	}
}

// WithClock replaces time.Now for deadline bookkeeping.
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		if now != nil {
			c.now = now
		}
	}
}
