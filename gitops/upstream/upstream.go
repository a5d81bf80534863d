package upstream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/byte4ever/manifest_submit/gitops/git"
	"github.com/byte4ever/manifest_submit/gitops/remote"
)

// Result is the outcome of a merge and the branch head
// to continue from.
type Result struct {
	Outcome git.Outcome
	HeadOid string
}

// Synchronizer merges upstream into branches of one
// repository.
type Synchronizer struct {
	api  git.UpstreamAPI
	repo git.Repository
}

// New returns a Synchronizer working on repo.
func New(api git.UpstreamAPI, repo git.Repository) (*Synchronizer, error) {
	const errCtx = "creating upstream synchronizer"

	if api == nil {
		return nil, fmt.Errorf("%s: api must not be nil", errCtx)
	}

	if repo.ID == "" {
		return nil, fmt.Errorf(
			"%s: repository identity must be resolved", errCtx,
		)
	}

	return &Synchronizer{api: api, repo: repo}, nil
}

// MergeUpstream merges upstreamOid into ref. A branch
// already containing upstreamOid is AlreadyUpToDate; a
// branch strictly behind is fast-forwarded, guarded by
// its current head; a diverged branch gets a merge
// commit. A conflicting merge yields the Conflict
// outcome with the branch left untouched.
func (s *Synchronizer) MergeUpstream(
	ctx context.Context,
	ref git.Ref,
	upstreamOid string,
) (Result, error) {
	const errCtx = "merging upstream"

	cmp, err := s.api.CompareCommits(
		ctx, s.repo.Owner, s.repo.Name, ref.Name, upstreamOid,
	)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	switch cmp {
	case git.ComparisonIdentical, git.ComparisonBehind:
		return s.done(ref, git.AlreadyUpToDate, ref.Oid), nil

	case git.ComparisonAhead:
		updated, err := s.api.UpdateRefs(ctx, s.repo, git.RefUpdate{
			Branch:    ref.Name,
			BeforeOid: ref.Oid,
			AfterOid:  upstreamOid,
		})
		if err != nil {
			return Result{}, fmt.Errorf(
				"%s: fast-forward: %w", errCtx, err,
			)
		}

		return s.done(ref, git.FastForward, updated.Oid), nil

	case git.ComparisonDiverged:
		oid, err := s.api.MergeBranch(
			ctx, s.repo, ref.Name, upstreamOid,
			"Merge upstream "+short(upstreamOid)+" into "+ref.Name,
		)
		if errors.Is(err, remote.ErrMergeConflict) {
			slog.Warn(
				"upstream merge conflict",
				"branch", ref.Name,
				"upstream", upstreamOid,
			)

			return Result{Outcome: git.Conflict, HeadOid: ref.Oid}, nil
		}

		if err != nil {
			return Result{}, fmt.Errorf("%s: %w", errCtx, err)
		}

		if oid == "" {
			return s.done(ref, git.AlreadyUpToDate, ref.Oid), nil
		}

		return s.done(ref, git.Merged, oid), nil

	default:
		return Result{}, fmt.Errorf("%s: %w", errCtx, &remote.Error{
			Kind:    remote.KindUnknown,
			Op:      "CompareCommits",
			Ref:     ref.Name,
			Oid:     upstreamOid,
			Message: "unexpected comparison status " + string(cmp),
		})
	}
}

func (s *Synchronizer) done(
	ref git.Ref,
	outcome git.Outcome,
	head string,
) Result {
	slog.Info(
		"synced with upstream",
		"branch", ref.Name,
		"outcome", outcome.String(),
		"head", head,
	)

	return Result{Outcome: outcome, HeadOid: head}
}

func short(oid string) string {
	if len(oid) > 7 {
		return oid[:7]
	}

	return oid
}
