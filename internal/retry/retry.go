// Package retry re-runs device queries that went unanswered.
//
// Only protocol.ErrNoResponse is retried. Remote errors, framing faults and
// sequence mismatches are returned on the first occurrence.
package retry

import (
	"context"
	"errors"
	"math/rand"
	"time"

	retrygo "github.com/avast/retry-go/v5"
	logs "github.com/danmuck/smpctl/internal/logging"
	"github.com/danmuck/smpctl/internal/observability"
	"github.com/danmuck/smpctl/internal/protocol"
)

// Config bounds one retried operation. Attempts counts the first try.
type Config struct {
	Attempts uint
	Backoff  BackoffConfig
}

func DefaultConfig() Config {
	return Config{
		Attempts: 3,
		Backoff: BackoffConfig{
			InitialDelay: 250 * time.Millisecond,
			Multiplier:   2.0,
			MaxDelay:     2 * time.Second,
			Jitter:       true,
		},
	}
}

// Once disables retries.
func Once() Config {
	return Config{Attempts: 1}
}

// Retryable reports whether err is worth another attempt: the device did
// not answer in time, or a late answer to an earlier attempt was read.
func Retryable(err error) bool {
	return errors.Is(err, protocol.ErrNoResponse) || errors.Is(err, protocol.ErrSequenceMismatch)
}

// Do runs fn until it succeeds, fails with a non-retryable error, or
// cfg.Attempts is used up. The last error is returned as is.
func Do[T any](ctx context.Context, cfg Config, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	attempts := cfg.Attempts
	if attempts == 0 {
		attempts = 1
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return retrygo.NewWithData[T](
		retrygo.Context(ctx),
		retrygo.Attempts(attempts),
		retrygo.RetryIf(Retryable),
		retrygo.DelayType(func(n uint, _ error, _ retrygo.DelayContext) time.Duration {
			return NextBackoffDelay(cfg.Backoff, int(n), rng)
		}),
		retrygo.OnRetry(func(n uint, err error) {
			logs.Warnf("retry.Do failed op=%s attempt=%d/%d err=%v", op, n+1, attempts, err)
			observability.RecordRetry(op)
		}),
		retrygo.LastErrorOnly(true),
	).Do(func() (T, error) {
		return fn(ctx)
	})
}
