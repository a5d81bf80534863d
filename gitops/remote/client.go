package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Policy bounds the retry loop.
type Policy struct {
	// MaxAttempts is the total number of attempts,
	// first one included.
	MaxAttempts int
	// BaseDelay is the delay before the second
	// attempt; it doubles on each further attempt.
	BaseDelay time.Duration
	// MaxDelay caps the computed backoff.
	MaxDelay time.Duration
}

// DefaultPolicy returns the retry policy used when
// none is configured.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 5,
		BaseDelay:   time.Second,
		MaxDelay:    time.Minute,
	}
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Op identifies a remote call for retries, logging,
// and error context.
type Op struct {
	Name string
	Ref  string
	Oid  string
}

// Client executes remote calls with bounded retries,
// exponential backoff with jitter, and a single
// process-wide rate-limit gate shared by every caller
// of the same Client.
type Client struct {
	transport Transport
	policy    Policy
	sleep     Sleeper
	now       func() time.Time
	jitter    func() float64
	limiter   *rate.Limiter

	mu           sync.Mutex
	blockedUntil time.Time
}

// Option customises a Client.
type Option func(*Client)

// WithPolicy sets the retry policy. Zero fields fall
// back to DefaultPolicy values.
func WithPolicy(p Policy) Option {
	return func(c *Client) {
		def := DefaultPolicy()

		if p.MaxAttempts <= 0 {
			p.MaxAttempts = def.MaxAttempts
		}

		if p.BaseDelay <= 0 {
			p.BaseDelay = def.BaseDelay
		}

		if p.MaxDelay <= 0 {
			p.MaxDelay = def.MaxDelay
		}

		c.policy = p
	}
}

// WithSleeper replaces the function used to wait
// between attempts.
func WithSleeper(s Sleeper) Option {
	return func(c *Client) { c.sleep = s }
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithJitter replaces the jitter source. fn must
// return values in [0, 1).
func WithJitter(fn func() float64) Option {
	return func(c *Client) { c.jitter = fn }
}

// WithRequestRate paces attempts to at most rps per
// second. rps <= 0 disables pacing.
func WithRequestRate(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil

			return
		}

		if burst <= 0 {
			burst = 1
		}

		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// NewClient returns a Client executing requests over
// transport.
func NewClient(transport Transport, opts ...Option) *Client {
	c := &Client{
		transport: transport,
		policy:    DefaultPolicy(),
		sleep:     Sleep,
		now:       time.Now,
		jitter:    rand.Float64,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Query executes a GraphQL document through the retry
// loop and decodes its data into out.
func (c *Client) Query(
	ctx context.Context,
	op Op,
	query string,
	vars map[string]any,
	out any,
) error {
	req := Request{Query: query, Variables: vars}

	return c.Call(ctx, op, func(ctx context.Context) error {
		return c.transport.Execute(ctx, req, out)
	})
}

// Call runs fn up to Policy.MaxAttempts times. Only
// transient failures are retried; terminal failures
// and caller cancellation return immediately. The
// returned error is always an *Error unless the
// context was cancelled.
func (c *Client) Call(
	ctx context.Context,
	op Op,
	fn func(ctx context.Context) error,
) error {
	const errCtx = "calling remote"

	var last *Error

	for attempt := 1; attempt <= c.policy.MaxAttempts; attempt++ {
		if err := c.waitTurn(ctx); err != nil {
			return fmt.Errorf(
				"%s: %s: %w", errCtx, op.Name, err,
			)
		}

		slog.Debug(
			"remote call",
			"op", op.Name,
			"attempt", attempt,
		)

		err := fn(ctx)
		if err == nil {
			return nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf(
				"%s: %s: %w", errCtx, op.Name, ctxErr,
			)
		}

		last = toError(err).WithContext(
			op.Name, op.Ref, op.Oid,
		)
		last.Attempts = attempt

		if !IsRetryable(last) {
			return last
		}

		if attempt == c.policy.MaxAttempts {
			break
		}

		delay := max(c.backoff(attempt), RetryAfterOf(last))

		slog.Warn(
			"retrying remote call",
			"op", op.Name,
			"attempt", attempt,
			"kind", last.Kind.String(),
			"delay", delay,
		)

		if last.Kind == KindRateLimited {
			// Rate limits hold back every caller
			// sharing this client, not only us.
			c.block(delay)

			continue
		}

		if err := c.sleep(ctx, delay); err != nil {
			return fmt.Errorf(
				"%s: %s: %w", errCtx, op.Name, err,
			)
		}
	}

	return last
}

// backoff computes the exponential delay with jitter
// for the given 1-based attempt.
func (c *Client) backoff(attempt int) time.Duration {
	d := c.policy.BaseDelay

	for i := 1; i < attempt && d < c.policy.MaxDelay; i++ {
		d *= 2
	}

	d += time.Duration(c.jitter() * float64(d) / 2)

	if d > c.policy.MaxDelay {
		d = c.policy.MaxDelay
	}

	return d
}

// block pushes the shared gate to at least now+d.
func (c *Client) block(d time.Duration) {
	until := c.now().Add(d)

	c.mu.Lock()
	defer c.mu.Unlock()

	if until.After(c.blockedUntil) {
		c.blockedUntil = until
	}
}

// waitTurn waits for the shared rate-limit gate and
// the optional pacing limiter.
func (c *Client) waitTurn(ctx context.Context) error {
	c.mu.Lock()
	until := c.blockedUntil
	c.mu.Unlock()

	if d := until.Sub(c.now()); d > 0 {
		if err := c.sleep(ctx, d); err != nil {
			return err
		}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	return nil
}

// toError classifies an arbitrary error returned by a
// call.
func toError(err error) *Error {
	var re *Error
	if errors.As(err, &re) {
		return re
	}

	return ClassifyHTTP(err)
}

// Sleep waits for d or until ctx is done. It is the
// default Sleeper.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
