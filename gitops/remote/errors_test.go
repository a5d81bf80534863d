package remote_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/byte4ever/manifest_submit/gitops/remote"
)

func TestError_Is_matches_sentinel_by_kind(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("wrapped: %w", &remote.Error{
		Kind: remote.KindNotFound,
		Op:   "GetRef",
		Ref:  "main",
	})

	assert.ErrorIs(t, err, remote.ErrNotFound)
	assert.NotErrorIs(t, err, remote.ErrValidation)
}

func TestError_Error_renders_context(t *testing.T) {
	t.Parallel()

	err := &remote.Error{
		Kind:       remote.KindRateLimited,
		Op:         "CreateCommit",
		Ref:        "b",
		Oid:        "abc",
		Message:    "slow down",
		RetryAfter: 30 * time.Second,
	}

	assert.Equal(
		t,
		"CreateCommit: rate limited: slow down (ref b)"+
			" (oid abc) (retry after 30s)",
		err.Error(),
	)
}

func TestError_Error_falls_back_to_cause(t *testing.T) {
	t.Parallel()

	err := &remote.Error{
		Kind: remote.KindUnknown,
		Err:  errors.New("boom"),
	}

	assert.Equal(t, "unknown: boom", err.Error())
}

func TestError_WithContext_keeps_existing_fields(t *testing.T) {
	t.Parallel()

	orig := &remote.Error{Kind: remote.KindNotFound, Ref: "x"}
	got := orig.WithContext("GetRef", "y", "abc")

	assert.Equal(t, "GetRef", got.Op)
	assert.Equal(t, "x", got.Ref)
	assert.Equal(t, "abc", got.Oid)
	assert.Empty(t, orig.Op)
}

func TestKind_Transient(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind remote.Kind
		want bool
	}{
		{kind: remote.KindRateLimited, want: true},
		{kind: remote.KindTransientNetwork, want: true},
		{kind: remote.KindNotFound, want: false},
		{kind: remote.KindPermissionDenied, want: false},
		{kind: remote.KindOptimisticLockConflict, want: false},
		{kind: remote.KindMergeConflict, want: false},
		{kind: remote.KindValidation, want: false},
		{kind: remote.KindAlreadyExists, want: false},
		{kind: remote.KindPayloadTooLarge, want: false},
		{kind: remote.KindUnknown, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, tt.kind.Transient())
		})
	}
}

func TestKindOf_unclassified(t *testing.T) {
	t.Parallel()

	assert.Equal(
		t, remote.KindUnknown, remote.KindOf(errors.New("x")),
	)
	assert.False(t, remote.IsRetryable(errors.New("x")))
	assert.Zero(t, remote.RetryAfterOf(errors.New("x")))
}

func TestKind_String_unknown_value(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "kind(99)", remote.Kind(99).String())
}
