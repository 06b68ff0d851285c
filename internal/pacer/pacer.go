package pacer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	"golang.org/x/time/rate"

	"anitag/internal/logging"
)

// Policy describes how calls to one service are spaced and retried.
type Policy struct {
	// Cooldown is slept after every attempt.
	Cooldown time.Duration
	// MinInterval is the token bucket spacing between attempts; zero disables it.
	MinInterval time.Duration
	// Attempts bounds the number of tries per call. Values below 1 mean 1.
	Attempts int
	// RetryDelay is the base delay of the exponential backoff.
	RetryDelay time.Duration
}

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Pacer serializes the timing of calls to a single external service.
type Pacer struct {
	name    string
	policy  Policy
	limiter *rate.Limiter
	sleep   Sleeper
	logger  *slog.Logger
}

// Option configures a Pacer.
type Option func(*Pacer)

// WithLogger attaches a logger for retry diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pacer) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithSleeper overrides the cooldown sleeper. Tests use it to avoid real waits.
func WithSleeper(sleep Sleeper) Option {
	return func(p *Pacer) {
		if sleep != nil {
			p.sleep = sleep
		}
	}
}

// New creates a Pacer for the named service.
func New(name string, policy Policy, opts ...Option) *Pacer {
	if policy.Attempts < 1 {
		policy.Attempts = 1
	}
	if policy.RetryDelay <= 0 {
		policy.RetryDelay = time.Second
	}
	p := &Pacer{
		name:   name,
		policy: policy,
		sleep:  sleepContext,
		logger: logging.NewNop(),
	}
	if policy.MinInterval > 0 {
		p.limiter = rate.NewLimiter(rate.Every(policy.MinInterval), 1)
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = logging.NewComponentLogger(p.logger, "pacer").With(logging.String("service", name))
	return p
}

// Unpaced returns a Pacer with no delays and a single attempt.
func Unpaced(name string) *Pacer {
	return New(name, Policy{})
}

// Name returns the service name.
func (p *Pacer) Name() string {
	return p.name
}

// Policy returns the effective policy.
func (p *Pacer) Policy() Policy {
	return p.policy
}

// Do runs fn under the pacing policy. The returned error is the last attempt's.
func (p *Pacer) Do(ctx context.Context, fn func(context.Context) error) error {
	attempt := func() error {
		if p.limiter != nil {
			if err := p.limiter.Wait(ctx); err != nil {
				return retry.Unrecoverable(fmt.Errorf("%s rate limiter: %w", p.name, err))
			}
		}
		err := fn(ctx)
		if sleepErr := p.sleep(ctx, p.policy.Cooldown); sleepErr != nil && err == nil {
			err = retry.Unrecoverable(sleepErr)
		}
		return err
	}

	return retry.Do(
		attempt,
		retry.Context(ctx),
		retry.Attempts(uint(p.policy.Attempts)),
		retry.Delay(p.policy.RetryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(Retryable),
		retry.OnRetry(func(n uint, err error) {
			p.logger.Debug("retrying external call",
				logging.Int("attempt", int(n)+1),
				logging.Int("max_attempts", p.policy.Attempts),
				logging.Error(err),
			)
		}),
	)
}

// StatusError reports an unexpected HTTP status from an external service.
type StatusError struct {
	Service string
	Code    int
	Latency time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned %d (latency=%v)", e.Service, e.Code, e.Latency)
}

// Retryable reports whether err is worth another attempt. Client errors other
// than 429 and context cancellation are final.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var status *StatusError
	if errors.As(err, &status) {
		return status.Code >= http.StatusInternalServerError || status.Code == http.StatusTooManyRequests
	}
	return true
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
