package snapshot_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byte4ever/manifest_submit/gitops/git/gittest"
	"github.com/byte4ever/manifest_submit/gitops/remote"
	"github.com/byte4ever/manifest_submit/gitops/snapshot"
)

func noSleep(context.Context, time.Duration) error { return nil }

func newRemote() *gittest.Remote {
	r := gittest.New("me")
	r.AddRepository("microsoft", "winget-pkgs", "master", "abc123", nil)

	return r
}

func newResolver(
	t *testing.T,
	api snapshot.API,
	cfg snapshot.Config,
) *snapshot.Resolver {
	t.Helper()

	if cfg.Owner == "" {
		cfg.Owner = "microsoft"
		cfg.Name = "winget-pkgs"
	}

	r, err := snapshot.New(api, cfg, snapshot.WithSleeper(noSleep))
	require.NoError(t, err)

	return r
}

func TestNew_validates(t *testing.T) {
	t.Parallel()

	_, err := snapshot.New(nil, snapshot.Config{Owner: "o", Name: "n"})
	assert.ErrorContains(t, err, "api must not be nil")

	_, err = snapshot.New(gittest.New("me"), snapshot.Config{})
	assert.ErrorContains(t, err, "upstream owner and name must be set")
}

func TestGetRepositoryInfo_not_found(t *testing.T) {
	t.Parallel()

	r := newResolver(t, newRemote(), snapshot.Config{})

	_, err := r.GetRepositoryInfo(context.Background(), "nobody", "x")

	assert.ErrorIs(t, err, remote.ErrNotFound)
}

func TestGetRepositoryInfo_permission_denied(t *testing.T) {
	t.Parallel()

	rem := newRemote()
	rem.FailNext("GetRepositoryInfo", &remote.Error{
		Kind: remote.KindPermissionDenied,
	})

	r := newResolver(t, rem, snapshot.Config{})

	_, err := r.GetRepositoryInfo(
		context.Background(), "microsoft", "winget-pkgs",
	)

	assert.ErrorIs(t, err, remote.ErrPermissionDenied)
}

func TestResolve_existing_fork(t *testing.T) {
	t.Parallel()

	rem := newRemote()
	rem.AddFork("me", "winget-pkgs", "microsoft", "winget-pkgs")

	r := newResolver(t, rem, snapshot.Config{})

	snap, err := r.Resolve(context.Background())

	require.NoError(t, err)
	assert.True(t, snap.IsFork())
	assert.Equal(t, "me", snap.Login)
	assert.Equal(t, "microsoft/winget-pkgs", snap.Upstream.NameWithOwner())
	assert.Equal(t, "me/winget-pkgs", snap.Head.NameWithOwner())
	assert.Equal(t, "abc123", snap.Upstream.DefaultBranchOid)
	assert.Zero(t, rem.Calls("CreateFork"))
}

func TestResolve_upstream_owner_needs_no_fork(t *testing.T) {
	t.Parallel()

	rem := newRemote()

	r := newResolver(t, rem, snapshot.Config{
		Owner:     "microsoft",
		Name:      "winget-pkgs",
		ForkOwner: "Microsoft",
	})

	snap, err := r.Resolve(context.Background())

	require.NoError(t, err)
	assert.False(t, snap.IsFork())
	assert.Equal(t, snap.Upstream, snap.Head)
	assert.Zero(t, rem.Calls("GetCurrentUserLogin"))
}

func TestResolve_missing_fork_without_creation(t *testing.T) {
	t.Parallel()

	rem := newRemote()

	r := newResolver(t, rem, snapshot.Config{})

	_, err := r.Resolve(context.Background())

	require.ErrorIs(t, err, remote.ErrNotFound)
	assert.Zero(t, rem.Calls("CreateFork"))
}

func TestResolve_creates_fork_and_polls(t *testing.T) {
	t.Parallel()

	rem := newRemote()
	rem.ForkDelay = 2

	r := newResolver(t, rem, snapshot.Config{CreateFork: true})

	snap, err := r.Resolve(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "me/winget-pkgs", snap.Head.NameWithOwner())
	assert.Equal(t, 1, rem.Calls("CreateFork"))
	// upstream, missing fork, two hidden polls, visible.
	assert.Equal(t, 5, rem.Calls("GetRepositoryInfo"))
}

func TestResolve_fork_never_visible(t *testing.T) {
	t.Parallel()

	rem := newRemote()
	rem.ForkDelay = 10

	r := newResolver(t, rem, snapshot.Config{
		CreateFork:   true,
		PollAttempts: 3,
	})

	_, err := r.Resolve(context.Background())

	require.ErrorIs(t, err, remote.ErrNotFound)
	assert.ErrorContains(t, err, "not visible after 3 polls")
}

func TestResolve_rejects_unrelated_repository(t *testing.T) {
	t.Parallel()

	rem := newRemote()
	rem.AddRepository("me", "winget-pkgs", "main", "", nil)

	r := newResolver(t, rem, snapshot.Config{})

	_, err := r.Resolve(context.Background())

	require.ErrorIs(t, err, remote.ErrValidation)
	assert.ErrorContains(t, err, "not a fork of microsoft/winget-pkgs")
}

func TestResolve_creates_fork_in_organization(t *testing.T) {
	t.Parallel()

	rem := newRemote()
	rem.ForkDelay = 1

	r := newResolver(t, rem, snapshot.Config{
		Owner:      "microsoft",
		Name:       "winget-pkgs",
		ForkOwner:  "some-org",
		CreateFork: true,
	})

	snap, err := r.Resolve(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "some-org/winget-pkgs", snap.Head.NameWithOwner())
	assert.Equal(t, 1, rem.Calls("CreateFork"))

	_, ok := rem.Branch("me", "winget-pkgs", "master")
	assert.False(t, ok)
}

func TestResolve_explicit_viewer_fork_owner(t *testing.T) {
	t.Parallel()

	rem := newRemote()

	r := newResolver(t, rem, snapshot.Config{
		Owner:      "microsoft",
		Name:       "winget-pkgs",
		ForkOwner:  "Me",
		CreateFork: true,
	})

	snap, err := r.Resolve(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "me/winget-pkgs", snap.Head.NameWithOwner())
	assert.Equal(t, 1, rem.Calls("GetCurrentUserLogin"))
}
