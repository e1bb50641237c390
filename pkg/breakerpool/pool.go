// Package breakerpool runs an operation against a list of candidates, each
// guarded by its own circuit breaker, failing over from one candidate to the
// next in priority order.
//
// Transports use it to walk the endpoints a host name resolves to: every
// address is a candidate, a failed dial trips that candidate's breaker, and
// the pool moves on to the next one.
package breakerpool

import (
	"context"
	"errors"
	"fmt"
	"sort"

	gobreaker "github.com/sony/gobreaker/v2"
)

// DefaultPriority is used for candidates without an explicit priority.
const DefaultPriority = 100

// Candidate associates state with optional per-candidate breaker settings.
type Candidate[S any] struct {
	// State is handed to the Execute callback.
	State S

	// Priority determines failover order. Higher values are tried first;
	// candidates of equal priority keep their relative order. Zero means
	// DefaultPriority.
	Priority int

	// Settings overrides the pool defaults for this candidate.
	Settings *gobreaker.Settings
}

// Pool tries candidates in priority order until one succeeds. It is safe for
// concurrent use.
type Pool[T, S any] struct {
	candidates []Candidate[S]
	breakers   []*gobreaker.CircuitBreaker[T]
}

// New creates a pool over candidates using defaults for every candidate
// that carries no Settings of its own.
func New[T, S any](candidates []Candidate[S], defaults gobreaker.Settings) *Pool[T, S] {
	sorted := make([]Candidate[S], len(candidates))
	copy(sorted, candidates)
	for i := range sorted {
		if sorted[i].Priority == 0 {
			sorted[i].Priority = DefaultPriority
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority > sorted[j].Priority
	})

	breakers := make([]*gobreaker.CircuitBreaker[T], len(sorted))
	for i, c := range sorted {
		settings := defaults
		if c.Settings != nil {
			settings = *c.Settings
		}
		breakers[i] = gobreaker.NewCircuitBreaker[T](settings)
	}

	return &Pool[T, S]{candidates: sorted, breakers: breakers}
}

// Ordered creates a single-use pool that tries states in the given order and
// abandons a candidate after its first failure. Context cancellation does not
// count as a candidate failure: it stops the walk immediately.
func Ordered[T, S any](states []S) *Pool[T, S] {
	candidates := make([]Candidate[S], len(states))
	for i, s := range states {
		candidates[i] = Candidate[S]{State: s}
	}
	return New[T](candidates, FailFast())
}

// FailFast returns breaker settings that open on the first failure and never
// recover within the lifetime of a pool.
func FailFast() gobreaker.Settings {
	return gobreaker.Settings{
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 1
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
	}
}

// AllUnavailableError reports that every candidate failed or was open.
type AllUnavailableError struct {
	// Attempts is the number of candidates the operation actually ran against.
	Attempts int

	// LastError is the error returned by the last attempted candidate.
	LastError error
}

func (e *AllUnavailableError) Error() string {
	if e.LastError != nil {
		return fmt.Sprintf("all candidates unavailable after %d attempts, last error: %v", e.Attempts, e.LastError)
	}
	return "all candidates unavailable"
}

func (e *AllUnavailableError) Unwrap() error {
	return e.LastError
}

// Execute runs fn against candidates in order. An error that trips the
// candidate's breaker moves on to the next candidate; an error that does not
// (see gobreaker.Settings.IsSuccessful) is returned as is. When no candidate
// is left Execute returns *AllUnavailableError.
func (p *Pool[T, S]) Execute(ctx context.Context, fn func(context.Context, S) (T, error)) (T, error) {
	var zero T
	var lastErr error
	attempts := 0

	for idx := 0; idx < p.Len(); idx++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		breaker := p.breakers[idx]
		if breaker.State() == gobreaker.StateOpen {
			continue
		}

		state := p.candidates[idx].State
		result, err := breaker.Execute(func() (T, error) {
			return fn(ctx, state)
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			continue
		}
		attempts++
		if err == nil {
			return result, nil
		}
		if breaker.State() != gobreaker.StateOpen {
			return zero, err
		}
		lastErr = err
	}

	return zero, &AllUnavailableError{Attempts: attempts, LastError: lastErr}
}

// AllUnavailable reports whether every breaker is open.
func (p *Pool[T, S]) AllUnavailable() bool {
	for _, b := range p.breakers {
		if b.State() != gobreaker.StateOpen {
			return false
		}
	}
	return true
}

// Len returns the number of candidates.
func (p *Pool[T, S]) Len() int {
	return len(p.candidates)
}
