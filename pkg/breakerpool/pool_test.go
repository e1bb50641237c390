package breakerpool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/require"
)

// dialError should trip the breaker
type dialError struct{ addr string }

func (e *dialError) Error() string { return "connection refused: " + e.addr }

// fatalError should NOT trip the breaker
type fatalError struct{ msg string }

func (e *fatalError) Error() string { return e.msg }

func testDefaults(cooldown time.Duration) gobreaker.Settings {
	return gobreaker.Settings{
		Timeout: cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 1
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var fatal *fatalError
			return errors.As(err, &fatal)
		},
	}
}

func TestPool_Execute_SingleCandidate(t *testing.T) {
	pool := New[string]([]Candidate[string]{{State: "10.0.0.1:80"}}, testDefaults(time.Minute))

	result, err := pool.Execute(context.Background(), func(_ context.Context, addr string) (string, error) {
		require.Equal(t, "10.0.0.1:80", addr)
		return "connected", nil
	})

	require.NoError(t, err)
	require.Equal(t, "connected", result)
}

func TestPool_Execute_PriorityOrder(t *testing.T) {
	candidates := []Candidate[string]{
		{State: "low", Priority: 50},
		{State: "high", Priority: 200},
		{State: "default"},
	}
	pool := New[string](candidates, testDefaults(time.Minute))

	var calls []string
	_, err := pool.Execute(context.Background(), func(_ context.Context, s string) (string, error) {
		calls = append(calls, s)
		return "", &dialError{addr: s}
	})

	var all *AllUnavailableError
	require.ErrorAs(t, err, &all)
	require.Equal(t, []string{"high", "default", "low"}, calls)
	require.Equal(t, 3, all.Attempts)
}

func TestPool_Execute_Failover(t *testing.T) {
	pool := Ordered[string]([]string{"[::1]:80", "127.0.0.1:80"})

	var calls []string
	result, err := pool.Execute(context.Background(), func(_ context.Context, addr string) (string, error) {
		calls = append(calls, addr)
		if addr == "[::1]:80" {
			return "", &dialError{addr: addr}
		}
		return addr, nil
	})

	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:80", result)
	require.Equal(t, []string{"[::1]:80", "127.0.0.1:80"}, calls)
}

func TestPool_Execute_NoFailoverOnFatalError(t *testing.T) {
	candidates := []Candidate[string]{{State: "a"}, {State: "b"}}
	pool := New[string](candidates, testDefaults(time.Minute))

	var calls []string
	_, err := pool.Execute(context.Background(), func(_ context.Context, s string) (string, error) {
		calls = append(calls, s)
		return "", &fatalError{msg: "bad request"}
	})

	var fatal *fatalError
	require.ErrorAs(t, err, &fatal)
	require.Equal(t, []string{"a"}, calls)
}

func TestPool_Execute_AllUnavailable(t *testing.T) {
	pool := Ordered[int]([]string{"a", "b", "c"})

	last := &dialError{addr: "c"}
	_, err := pool.Execute(context.Background(), func(_ context.Context, s string) (int, error) {
		if s == "c" {
			return 0, last
		}
		return 0, &dialError{addr: s}
	})

	var all *AllUnavailableError
	require.ErrorAs(t, err, &all)
	require.Equal(t, 3, all.Attempts)
	require.ErrorIs(t, err, last)
	require.True(t, pool.AllUnavailable())
}

func TestPool_Execute_SingleUse(t *testing.T) {
	pool := Ordered[string]([]string{"a"})

	_, err := pool.Execute(context.Background(), func(_ context.Context, s string) (string, error) {
		return "", &dialError{addr: s}
	})
	require.Error(t, err)

	called := false
	_, err = pool.Execute(context.Background(), func(_ context.Context, s string) (string, error) {
		called = true
		return s, nil
	})

	var all *AllUnavailableError
	require.ErrorAs(t, err, &all)
	require.Zero(t, all.Attempts)
	require.False(t, called)
}

func TestPool_Execute_CanceledContextStopsWalk(t *testing.T) {
	pool := Ordered[string]([]string{"a", "b"})
	ctx, cancel := context.WithCancel(context.Background())

	var calls []string
	_, err := pool.Execute(ctx, func(ctx context.Context, s string) (string, error) {
		calls = append(calls, s)
		cancel()
		return "", ctx.Err()
	})

	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, []string{"a"}, calls)
	require.False(t, pool.AllUnavailable())
}

func TestPool_Execute_CanceledBeforeStart(t *testing.T) {
	pool := Ordered[string]([]string{"a"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := pool.Execute(ctx, func(context.Context, string) (string, error) {
		t.Fatal("candidate must not run")
		return "", nil
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestPool_Execute_CircuitBreakerRecovery(t *testing.T) {
	pool := New[string]([]Candidate[string]{{State: "a"}}, testDefaults(50*time.Millisecond))

	_, err := pool.Execute(context.Background(), func(_ context.Context, s string) (string, error) {
		return "", &dialError{addr: s}
	})
	require.Error(t, err)
	require.True(t, pool.AllUnavailable())

	time.Sleep(100 * time.Millisecond)

	result, err := pool.Execute(context.Background(), func(context.Context, string) (string, error) {
		return "recovered", nil
	})
	require.NoError(t, err)
	require.Equal(t, "recovered", result)
}

func TestPool_Execute_Empty(t *testing.T) {
	pool := Ordered[string, string](nil)

	_, err := pool.Execute(context.Background(), func(context.Context, string) (string, error) {
		return "should not be called", nil
	})

	var all *AllUnavailableError
	require.ErrorAs(t, err, &all)
	require.Nil(t, all.LastError)
	require.Equal(t, "all candidates unavailable", all.Error())
	require.Zero(t, pool.Len())
}

func TestPool_PerCandidateSettings(t *testing.T) {
	patient := &gobreaker.Settings{
		Timeout: time.Hour,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
	candidates := []Candidate[string]{
		{State: "patient", Settings: patient},
		{State: "strict"},
	}
	pool := New[string](candidates, testDefaults(time.Minute))

	_, err := pool.Execute(context.Background(), func(_ context.Context, s string) (string, error) {
		return "", &dialError{addr: s}
	})

	// The patient breaker stayed closed so its error came straight back.
	var de *dialError
	require.ErrorAs(t, err, &de)
	require.Equal(t, "patient", de.addr)
	require.False(t, pool.AllUnavailable())
}

func TestPool_Execute_ConcurrentSafety(t *testing.T) {
	pool := New[int]([]Candidate[string]{{State: "a"}, {State: "b"}}, testDefaults(time.Minute))

	var counter atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := pool.Execute(context.Background(), func(context.Context, string) (int, error) {
				return int(counter.Add(1)), nil
			})
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	require.Equal(t, int32(100), counter.Load())
}
