package commit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/byte4ever/manifest_submit/gitops/git"
	"github.com/byte4ever/manifest_submit/gitops/remote"
)

// DefaultAttempts is the number of submissions made
// when the branch keeps moving.
const DefaultAttempts = 3

// Result describes a submitted commit.
type Result struct {
	// Oid is the new branch head.
	Oid string
	// BaseOid is the head the commit was built on.
	BaseOid string
	// Attempts is the number of submissions made.
	Attempts int
}

// Composer submits commits to branches of one
// repository.
type Composer struct {
	api      git.CommitAPI
	repo     git.Repository
	attempts int
}

// New returns a Composer. attempts <= 0 selects
// DefaultAttempts.
func New(
	api git.CommitAPI,
	repo git.Repository,
	attempts int,
) (*Composer, error) {
	const errCtx = "creating commit composer"

	if api == nil {
		return nil, fmt.Errorf("%s: api must not be nil", errCtx)
	}

	if repo.Owner == "" || repo.Name == "" {
		return nil, fmt.Errorf(
			"%s: repository owner and name must be set", errCtx,
		)
	}

	if attempts <= 0 {
		attempts = DefaultAttempts
	}

	return &Composer{api: api, repo: repo, attempts: attempts}, nil
}

// ComposeCommit submits additions and deletions as one
// commit on branch, expecting its head at baseOid. When
// the branch moved, the true head is re-read and the
// whole submission retried, at most the configured
// number of times in total. Either the commit lands or
// the branch is left unchanged.
func (c *Composer) ComposeCommit(
	ctx context.Context,
	branch string,
	baseOid string,
	message string,
	additions []git.TreeEntry,
	deletions []string,
) (Result, error) {
	const errCtx = "composing commit"

	in := git.CommitInput{
		Repository:      c.repo.NameWithOwner(),
		Branch:          branch,
		ExpectedHeadOid: baseOid,
		Message:         message,
		Additions:       additions,
		Deletions:       deletions,
	}

	if err := validate(in); err != nil {
		return Result{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	var last error

	for attempt := 1; attempt <= c.attempts; attempt++ {
		oid, err := c.api.CreateCommit(ctx, in)
		if err == nil {
			slog.Info(
				"committed",
				"branch", branch,
				"oid", oid,
				"base", in.ExpectedHeadOid,
				"additions", len(additions),
				"deletions", len(deletions),
			)

			return Result{
				Oid:      oid,
				BaseOid:  in.ExpectedHeadOid,
				Attempts: attempt,
			}, nil
		}

		if !errors.Is(err, remote.ErrOptimisticLockConflict) {
			return Result{}, fmt.Errorf("%s: %w", errCtx, err)
		}

		last = err

		if attempt == c.attempts {
			break
		}

		ref, err := c.api.GetRef(ctx, c.repo.Owner, c.repo.Name, branch)
		if err != nil {
			return Result{}, fmt.Errorf(
				"%s: re-reading head: %w", errCtx, err,
			)
		}

		slog.Warn(
			"branch moved, resubmitting commit",
			"branch", branch,
			"expected", in.ExpectedHeadOid,
			"actual", ref.Oid,
			"attempt", attempt,
		)

		in.ExpectedHeadOid = ref.Oid
	}

	return Result{}, fmt.Errorf("%s: %w", errCtx, &remote.Error{
		Kind:     remote.KindOptimisticLockConflict,
		Op:       "CreateCommit",
		Ref:      branch,
		Oid:      in.ExpectedHeadOid,
		Message:  fmt.Sprintf("branch kept moving after %d attempts", c.attempts),
		Attempts: c.attempts,
		Err:      last,
	})
}

func validate(in git.CommitInput) error {
	field, msg := "", ""

	switch {
	case in.Branch == "":
		field, msg = "branch", "must be set"
	case in.ExpectedHeadOid == "":
		field, msg = "expectedHeadOid", "must be set"
	case in.Headline() == "":
		field, msg = "message", "headline must not be empty"
	case len(in.Additions) == 0 && len(in.Deletions) == 0:
		field, msg = "fileChanges", "commit would be empty"
	default:
		return nil
	}

	return &remote.Error{
		Kind:    remote.KindValidation,
		Op:      "CreateCommit",
		Ref:     in.Branch,
		Field:   field,
		Message: msg,
	}
}
