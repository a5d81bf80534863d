package branch_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byte4ever/manifest_submit/gitops/branch"
	"github.com/byte4ever/manifest_submit/gitops/git"
	"github.com/byte4ever/manifest_submit/gitops/git/gittest"
	"github.com/byte4ever/manifest_submit/gitops/remote"
)

func setup(t *testing.T) (*gittest.Remote, *branch.Manager) {
	t.Helper()

	rem := gittest.New("me")
	rem.AddRepository("me", "repo", "main", "abc123", nil)

	repo, err := rem.GetRepositoryInfo(context.Background(), "me", "repo")
	require.NoError(t, err)

	m, err := branch.New(rem, repo)
	require.NoError(t, err)

	return rem, m
}

func TestNew_validates(t *testing.T) {
	t.Parallel()

	_, err := branch.New(nil, git.Repository{})
	assert.ErrorContains(t, err, "api must not be nil")

	_, err = branch.New(gittest.New("me"), git.Repository{Owner: "o"})
	assert.ErrorContains(t, err, "repository identity must be resolved")
}

func TestEnsureBranch_is_idempotent(t *testing.T) {
	t.Parallel()

	rem, m := setup(t)
	ctx := context.Background()

	first, created, err := m.EnsureBranch(ctx, "vendor.app-1.2.3", "abc123")
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := m.EnsureBranch(ctx, "vendor.app-1.2.3", "abc123")
	require.NoError(t, err)
	assert.False(t, created)

	assert.Equal(t, first.Name, second.Name)
	assert.Equal(t, first.Oid, second.Oid)
	assert.Equal(t, 2, rem.Calls("CreateRef"))

	oid, ok := rem.Branch("me", "repo", "vendor.app-1.2.3")
	require.True(t, ok)
	assert.Equal(t, "abc123", oid)
}

func TestEnsureBranch_returns_existing_ref_unchanged(t *testing.T) {
	t.Parallel()

	rem, m := setup(t)
	moved := rem.AddCommit("abc123", "work", map[string][]byte{
		"a.txt": []byte("a"),
	})
	rem.SetBranch("me", "repo", "b", moved)

	ref, created, err := m.EnsureBranch(context.Background(), "b", "abc123")

	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, moved, ref.Oid)
}

func TestEnsureBranch_propagates_other_errors(t *testing.T) {
	t.Parallel()

	rem, m := setup(t)
	rem.FailNext("CreateRef", &remote.Error{
		Kind:    remote.KindValidation,
		Message: "invalid ref name",
	})

	_, _, err := m.EnsureBranch(context.Background(), "bad..name", "abc123")

	require.ErrorIs(t, err, remote.ErrValidation)
	assert.Zero(t, rem.Calls("GetRef"))
}

func TestEnsureBranch_requires_name_and_oid(t *testing.T) {
	t.Parallel()

	rem, m := setup(t)

	_, _, err := m.EnsureBranch(context.Background(), "", "abc123")

	require.ErrorIs(t, err, remote.ErrValidation)
	assert.Zero(t, rem.Calls("CreateRef"))
}

func TestLookup(t *testing.T) {
	t.Parallel()

	_, m := setup(t)

	ref, ok, err := m.Lookup(context.Background(), "main")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "abc123", ref.Oid)

	_, ok, err = m.Lookup(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func addBranches(rem *gittest.Remote, names ...string) {
	for _, n := range names {
		rem.SetBranch("me", "repo", n, "abc123")
	}
}

func collect(t *testing.T, seq func(func(git.Ref, error) bool)) []string {
	t.Helper()

	var names []string

	for ref, err := range seq {
		require.NoError(t, err)

		names = append(names, ref.Name)
	}

	return names
}

func TestListBranches_drains_all_pages(t *testing.T) {
	t.Parallel()

	rem, m := setup(t)
	rem.PageSize = 2
	addBranches(rem, "app-1", "app-2", "app-3", "app-4", "app-5", "other")

	names := collect(t, m.ListBranches(context.Background(), "app-", ""))

	assert.Equal(t, []string{"app-1", "app-2", "app-3", "app-4", "app-5"}, names)
	assert.Equal(t, 3, rem.Calls("ListBranches"))
}

func TestListBranches_is_lazy(t *testing.T) {
	t.Parallel()

	rem, m := setup(t)
	rem.PageSize = 2
	addBranches(rem, "app-1", "app-2", "app-3", "app-4", "app-5")

	for ref, err := range m.ListBranches(context.Background(), "app-", "") {
		require.NoError(t, err)
		assert.Equal(t, "app-1", ref.Name)

		break
	}

	assert.Equal(t, 1, rem.Calls("ListBranches"))
}

func TestPages_restart_from_cursor(t *testing.T) {
	t.Parallel()

	rem, m := setup(t)
	rem.PageSize = 2
	addBranches(rem, "app-1", "app-2", "app-3", "app-4")

	var cursor string

	for page, err := range m.Pages(context.Background(), "app-", "") {
		require.NoError(t, err)

		cursor = page.NextCursor

		break
	}

	require.NotEmpty(t, cursor)

	names := collect(t, m.ListBranches(context.Background(), "app-", cursor))

	assert.Equal(t, []string{"app-3", "app-4"}, names)
}

func TestListBranches_surfaces_errors(t *testing.T) {
	t.Parallel()

	rem, m := setup(t)
	rem.FailNext("ListBranches", &remote.Error{Kind: remote.KindNotFound})

	var errs []error

	for _, err := range m.ListBranches(context.Background(), "x", "") {
		errs = append(errs, err)
	}

	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], remote.ErrNotFound)
}
