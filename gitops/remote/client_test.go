package remote_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byte4ever/manifest_submit/gitops/remote"
)

// sleepRecorder records requested sleeps without
// waiting.
type sleepRecorder struct {
	mu     sync.Mutex
	sleeps []time.Duration
}

func (r *sleepRecorder) sleep(
	ctx context.Context,
	d time.Duration,
) error {
	r.mu.Lock()
	r.sleeps = append(r.sleeps, d)
	r.mu.Unlock()

	return ctx.Err()
}

func (r *sleepRecorder) recorded() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]time.Duration(nil), r.sleeps...)
}

var epoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestClient(
	rec *sleepRecorder,
	attempts int,
) *remote.Client {
	return remote.NewClient(
		remote.TransportFunc(
			func(context.Context, remote.Request, any) error {
				return nil
			},
		),
		remote.WithPolicy(remote.Policy{
			MaxAttempts: attempts,
			BaseDelay:   time.Second,
			MaxDelay:    time.Minute,
		}),
		remote.WithSleeper(rec.sleep),
		remote.WithClock(func() time.Time { return epoch }),
		remote.WithJitter(func() float64 { return 0 }),
	)
}

// failing returns a call failing with the given errors
// in order, then succeeding.
func failing(calls *int, errs ...error) func(context.Context) error {
	return func(context.Context) error {
		*calls++
		if *calls <= len(errs) {
			return errs[*calls-1]
		}

		return nil
	}
}

func TestCall_success_first_attempt(t *testing.T) {
	t.Parallel()

	rec := &sleepRecorder{}
	c := newTestClient(rec, 5)

	calls := 0
	err := c.Call(
		context.Background(),
		remote.Op{Name: "GetRef"},
		failing(&calls),
	)

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, rec.recorded())
}

func TestCall_retries_transient_then_succeeds(t *testing.T) {
	t.Parallel()

	rec := &sleepRecorder{}
	c := newTestClient(rec, 5)

	transient := &remote.Error{Kind: remote.KindTransientNetwork}

	calls := 0
	err := c.Call(
		context.Background(),
		remote.Op{Name: "GetRef"},
		failing(&calls, transient, transient),
	)

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(
		t,
		[]time.Duration{time.Second, 2 * time.Second},
		rec.recorded(),
	)
}

func TestCall_gives_up_after_max_attempts(t *testing.T) {
	t.Parallel()

	rec := &sleepRecorder{}
	c := newTestClient(rec, 3)

	transient := &remote.Error{Kind: remote.KindTransientNetwork}

	calls := 0
	err := c.Call(
		context.Background(),
		remote.Op{Name: "CreateCommit", Ref: "b", Oid: "abc"},
		failing(&calls, transient, transient, transient, transient),
	)

	require.ErrorIs(t, err, remote.ErrTransientNetwork)
	assert.Equal(t, 3, calls)

	var re *remote.Error
	require.ErrorAs(t, err, &re)
	assert.Equal(t, 3, re.Attempts)
	assert.Equal(t, "CreateCommit", re.Op)
	assert.Equal(t, "b", re.Ref)
	assert.Equal(t, "abc", re.Oid)
}

func TestCall_terminal_errors_are_not_retried(t *testing.T) {
	t.Parallel()

	terminal := []remote.Kind{
		remote.KindNotFound,
		remote.KindPermissionDenied,
		remote.KindOptimisticLockConflict,
		remote.KindMergeConflict,
		remote.KindValidation,
		remote.KindAlreadyExists,
		remote.KindPayloadTooLarge,
		remote.KindUnknown,
	}

	for _, kind := range terminal {
		t.Run(kind.String(), func(t *testing.T) {
			t.Parallel()

			rec := &sleepRecorder{}
			c := newTestClient(rec, 5)

			calls := 0
			err := c.Call(
				context.Background(),
				remote.Op{Name: "op"},
				failing(&calls, &remote.Error{Kind: kind}),
			)

			assert.Equal(t, kind, remote.KindOf(err))
			assert.Equal(t, 1, calls)
			assert.Empty(t, rec.recorded())
		})
	}
}

func TestCall_honours_retry_after(t *testing.T) {
	t.Parallel()

	rec := &sleepRecorder{}
	c := newTestClient(rec, 5)

	calls := 0
	err := c.Call(
		context.Background(),
		remote.Op{Name: "GetBranches"},
		failing(&calls, &remote.Error{
			Kind:       remote.KindRateLimited,
			RetryAfter: 30 * time.Second,
		}),
	)

	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	sleeps := rec.recorded()
	require.Len(t, sleeps, 1)
	assert.GreaterOrEqual(t, sleeps[0], 30*time.Second)
}

func TestCall_rate_limit_gate_is_shared(t *testing.T) {
	t.Parallel()

	rec := &sleepRecorder{}
	// The clock never moves, so the gate set by the
	// first call is still closed for the second one.
	c := newTestClient(rec, 5)

	calls := 0
	require.NoError(t, c.Call(
		context.Background(),
		remote.Op{Name: "first"},
		failing(&calls, &remote.Error{
			Kind:       remote.KindRateLimited,
			RetryAfter: 30 * time.Second,
		}),
	))

	other := 0
	require.NoError(t, c.Call(
		context.Background(),
		remote.Op{Name: "second"},
		failing(&other),
	))

	assert.Equal(
		t,
		[]time.Duration{30 * time.Second, 30 * time.Second},
		rec.recorded(),
	)
}

func TestCall_plain_errors_are_classified(t *testing.T) {
	t.Parallel()

	rec := &sleepRecorder{}
	c := newTestClient(rec, 5)

	calls := 0
	err := c.Call(
		context.Background(),
		remote.Op{Name: "op"},
		failing(&calls, errors.New("boom")),
	)

	assert.ErrorIs(t, err, remote.ErrUnknown)
	assert.Equal(t, 1, calls)
}

func TestCall_cancelled_context_is_not_retried(t *testing.T) {
	t.Parallel()

	rec := &sleepRecorder{}
	c := newTestClient(rec, 5)

	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := c.Call(ctx, remote.Op{Name: "op"},
		func(context.Context) error {
			calls++
			cancel()

			return &remote.Error{Kind: remote.KindTransientNetwork}
		},
	)

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestQuery_decodes_through_transport(t *testing.T) {
	t.Parallel()

	var seen remote.Request

	c := remote.NewClient(
		remote.TransportFunc(
			func(_ context.Context, req remote.Request, out any) error {
				seen = req

				p, ok := out.(*string)
				require.True(t, ok)
				*p = "decoded"

				return nil
			},
		),
	)

	var out string
	err := c.Query(
		context.Background(),
		remote.Op{Name: "GetRef"},
		"query GetRef { x }",
		map[string]any{"a": 1},
		&out,
	)

	require.NoError(t, err)
	assert.Equal(t, "decoded", out)
	assert.Equal(t, "query GetRef { x }", seen.Query)
	assert.Equal(t, map[string]any{"a": 1}, seen.Variables)
}

func TestBackoff_doubles_and_caps(t *testing.T) {
	t.Parallel()

	c := newTestClient(&sleepRecorder{}, 10)

	assert.Equal(t, time.Second, c.BackoffForTest(1))
	assert.Equal(t, 2*time.Second, c.BackoffForTest(2))
	assert.Equal(t, 4*time.Second, c.BackoffForTest(3))
	assert.Equal(t, time.Minute, c.BackoffForTest(9))
}

func TestBackoff_jitter_stays_below_cap(t *testing.T) {
	t.Parallel()

	c := remote.NewClient(
		nil,
		remote.WithPolicy(remote.Policy{
			MaxAttempts: 3,
			BaseDelay:   time.Second,
			MaxDelay:    10 * time.Second,
		}),
		remote.WithJitter(func() float64 { return 0.99 }),
	)

	d := c.BackoffForTest(2)

	assert.Greater(t, d, 2*time.Second)
	assert.LessOrEqual(t, d, 10*time.Second)
}

func TestWithPolicy_zero_fields_use_defaults(t *testing.T) {
	t.Parallel()

	rec := &sleepRecorder{}
	c := remote.NewClient(
		nil,
		remote.WithPolicy(remote.Policy{}),
		remote.WithSleeper(rec.sleep),
		remote.WithJitter(func() float64 { return 0 }),
	)

	transient := &remote.Error{Kind: remote.KindTransientNetwork}

	calls := 0
	err := c.Call(
		context.Background(),
		remote.Op{Name: "op"},
		failing(&calls, transient, transient, transient, transient, transient),
	)

	require.Error(t, err)
	assert.Equal(t, remote.DefaultPolicy().MaxAttempts, calls)
}
