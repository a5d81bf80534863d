package git_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byte4ever/manifest_submit/gitops/git"
)

func TestPullRequestCreatorFunc_passes_args(
	t *testing.T,
) {
	t.Parallel()

	var got git.NewPullRequest

	fn := git.PullRequestCreatorFunc(
		func(
			_ context.Context,
			in git.NewPullRequest,
		) (git.PullRequest, error) {
			got = in

			return git.PullRequest{
				Number: 7,
				Head:   in.Head,
				Base:   in.Base,
			}, nil
		},
	)

	pr, err := fn.CreatePullRequest(
		context.Background(),
		git.NewPullRequest{
			RepositoryID: "R_1",
			Head:         "vendor.app-1.2.3",
			Base:         "main",
			Title:        "my title",
			Body:         "my body",
		},
	)

	require.NoError(t, err)
	assert.Equal(t, 7, pr.Number)
	assert.Equal(t, "vendor.app-1.2.3", got.Head)
	assert.Equal(t, "main", got.Base)
	assert.Equal(t, "my title", got.Title)
	assert.Equal(t, "my body", got.Body)
}

func TestPullRequestCreatorFunc_empty_body_uses_title(
	t *testing.T,
) {
	t.Parallel()

	var gotBody string

	fn := git.PullRequestCreatorFunc(
		func(
			_ context.Context,
			in git.NewPullRequest,
		) (git.PullRequest, error) {
			gotBody = in.Body

			return git.PullRequest{}, nil
		},
	)

	_, err := fn.CreatePullRequest(
		context.Background(),
		git.NewPullRequest{Title: "the title"},
	)

	require.NoError(t, err)
	assert.Equal(t, "the title", gotBody)
}

func TestPullRequestCreatorFunc_returns_error(
	t *testing.T,
) {
	t.Parallel()

	errTest := errors.New("test error")

	fn := git.PullRequestCreatorFunc(
		func(
			_ context.Context,
			_ git.NewPullRequest,
		) (git.PullRequest, error) {
			return git.PullRequest{}, errTest
		},
	)

	_, err := fn.CreatePullRequest(
		context.Background(),
		git.NewPullRequest{Title: "t"},
	)

	assert.ErrorIs(t, err, errTest)
}

func TestQualifiedName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "short name is qualified",
			in:   "vendor.app-1.2.3",
			want: "refs/heads/vendor.app-1.2.3",
		},
		{
			name: "qualified name is kept",
			in:   "refs/heads/main",
			want: "refs/heads/main",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, git.QualifiedName(tt.in))
		})
	}

	assert.Equal(
		t, "main", git.ShortName("refs/heads/main"),
	)
}

func TestCommitInput_headline_and_body(t *testing.T) {
	t.Parallel()

	in := git.CommitInput{
		Message: "New version: Vendor.App version 1.2.3\n\nbody line\n",
	}

	assert.Equal(
		t,
		"New version: Vendor.App version 1.2.3",
		in.Headline(),
	)
	assert.Equal(t, "body line", in.Body())
}

func TestOutcome_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "fast forward", git.FastForward.String())
	assert.Equal(t, "conflict", git.Conflict.String())
	assert.Equal(t, "unknown", git.Outcome(42).String())
}
