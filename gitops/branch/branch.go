package branch

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"

	"github.com/byte4ever/manifest_submit/gitops/git"
	"github.com/byte4ever/manifest_submit/gitops/remote"
)

// Manager manages the branches of one repository.
type Manager struct {
	api  git.BranchAPI
	repo git.Repository
}

// New returns a Manager for repo.
func New(api git.BranchAPI, repo git.Repository) (*Manager, error) {
	const errCtx = "creating branch manager"

	if api == nil {
		return nil, fmt.Errorf("%s: api must not be nil", errCtx)
	}

	if repo.ID == "" || repo.Owner == "" || repo.Name == "" {
		return nil, fmt.Errorf(
			"%s: repository identity must be resolved", errCtx,
		)
	}

	return &Manager{api: api, repo: repo}, nil
}

// Pages yields the pages of branches whose name starts
// with prefix, starting after cursor. Each page carries
// the cursor to resume from. Iteration stops at the
// first error.
func (m *Manager) Pages(
	ctx context.Context,
	prefix string,
	cursor string,
) iter.Seq2[git.RefPage, error] {
	return func(yield func(git.RefPage, error) bool) {
		for {
			page, err := m.api.ListBranches(
				ctx, m.repo.Owner, m.repo.Name, prefix, cursor,
			)
			if err != nil {
				yield(git.RefPage{}, fmt.Errorf(
					"listing branches: %w", err,
				))

				return
			}

			if !yield(page, nil) || page.NextCursor == "" {
				return
			}

			// A cursor that does not advance would loop
			// forever.
			if page.NextCursor == cursor {
				yield(git.RefPage{}, &remote.Error{
					Kind:    remote.KindUnknown,
					Op:      "ListBranches",
					Ref:     prefix,
					Message: "cursor did not advance",
				})

				return
			}

			cursor = page.NextCursor
		}
	}
}

// ListBranches lazily yields the branches whose name
// starts with prefix, fetching pages on demand.
func (m *Manager) ListBranches(
	ctx context.Context,
	prefix string,
	cursor string,
) iter.Seq2[git.Ref, error] {
	return func(yield func(git.Ref, error) bool) {
		for page, err := range m.Pages(ctx, prefix, cursor) {
			if err != nil {
				yield(git.Ref{}, err)

				return
			}

			for _, ref := range page.Refs {
				if !yield(ref, nil) {
					return
				}
			}
		}
	}
}

// Lookup returns the named branch and whether it
// exists.
func (m *Manager) Lookup(
	ctx context.Context,
	name string,
) (git.Ref, bool, error) {
	const errCtx = "looking up branch"

	ref, err := m.api.GetRef(ctx, m.repo.Owner, m.repo.Name, name)
	if errors.Is(err, remote.ErrNotFound) {
		return git.Ref{}, false, nil
	}

	if err != nil {
		return git.Ref{}, false, fmt.Errorf(
			"%s: %s: %w", errCtx, name, err,
		)
	}

	return ref, true, nil
}

// EnsureBranch creates refs/heads/name at fromOid when
// absent. An existing branch is not an error: it is
// returned unchanged, wherever it points. created
// reports whether this call created the ref.
func (m *Manager) EnsureBranch(
	ctx context.Context,
	name string,
	fromOid string,
) (ref git.Ref, created bool, err error) {
	const errCtx = "ensuring branch"

	if name == "" || fromOid == "" {
		return git.Ref{}, false, fmt.Errorf("%s: %w", errCtx,
			&remote.Error{
				Kind:    remote.KindValidation,
				Op:      "CreateRef",
				Ref:     name,
				Oid:     fromOid,
				Message: "branch name and oid must be set",
			},
		)
	}

	ref, err = m.api.CreateRef(ctx, m.repo, name, fromOid)
	if err == nil {
		slog.Info(
			"created branch",
			"branch", name,
			"oid", ref.Oid,
			"repository", m.repo.NameWithOwner(),
		)

		return ref, true, nil
	}

	if !errors.Is(err, remote.ErrAlreadyExists) {
		return git.Ref{}, false, fmt.Errorf(
			"%s: %s: %w", errCtx, name, err,
		)
	}

	ref, err = m.api.GetRef(ctx, m.repo.Owner, m.repo.Name, name)
	if err != nil {
		return git.Ref{}, false, fmt.Errorf(
			"%s: reading existing %s: %w", errCtx, name, err,
		)
	}

	slog.Info(
		"reusing branch",
		"branch", name,
		"oid", ref.Oid,
		"repository", m.repo.NameWithOwner(),
	)

	return ref, false, nil
}
