package snapshot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/byte4ever/manifest_submit/gitops/git"
	"github.com/byte4ever/manifest_submit/gitops/remote"
)

// API is the slice of the remote the snapshot needs.
type API interface {
	git.RepositoryReader
	git.ForkCreator
}

// Config holds the settings needed to resolve a
// snapshot.
type Config struct {
	// Owner and Name identify the upstream repository.
	Owner string
	Name  string
	// ForkOwner owns the head repository. Empty means
	// the credential's owner; equal to Owner means the
	// branch lives in the upstream itself.
	ForkOwner string
	// CreateFork creates a missing fork instead of
	// failing.
	CreateFork bool
	// PollAttempts bounds the wait for a new fork to
	// become visible.
	PollAttempts int
	// PollInterval is the delay between polls.
	PollInterval time.Duration
}

// Snapshot is the resolved repository pair.
type Snapshot struct {
	Upstream git.Repository
	Head     git.Repository
	// Login is the credential owner's login, empty
	// when it was not needed.
	Login string
}

// IsFork reports whether the branch lives in a fork.
func (s Snapshot) IsFork() bool {
	return s.Head.ID != s.Upstream.ID
}

// Resolver reads repository snapshots.
type Resolver struct {
	api   API
	cfg   Config
	sleep remote.Sleeper
}

// Option customises a Resolver.
type Option func(*Resolver)

// WithSleeper replaces the wait between fork polls.
func WithSleeper(s remote.Sleeper) Option {
	return func(r *Resolver) { r.sleep = s }
}

// New validates cfg and returns a Resolver.
func New(api API, cfg Config, opts ...Option) (*Resolver, error) {
	const errCtx = "creating snapshot resolver"

	if api == nil {
		return nil, fmt.Errorf("%s: api must not be nil", errCtx)
	}

	if cfg.Owner == "" || cfg.Name == "" {
		return nil, fmt.Errorf(
			"%s: upstream owner and name must be set", errCtx,
		)
	}

	if cfg.PollAttempts <= 0 {
		cfg.PollAttempts = 10
	}

	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}

	r := &Resolver{
		api:   api,
		cfg:   cfg,
		sleep: remote.Sleep,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r, nil
}

// GetRepositoryInfo reads one repository. Missing or
// invisible repositories fail with NotFound.
func (r *Resolver) GetRepositoryInfo(
	ctx context.Context,
	owner string,
	name string,
) (git.Repository, error) {
	const errCtx = "getting repository info"

	repo, err := r.api.GetRepositoryInfo(ctx, owner, name)
	if err != nil {
		return git.Repository{}, fmt.Errorf(
			"%s: %s/%s: %w", errCtx, owner, name, err,
		)
	}

	if repo.DefaultBranch == "" {
		return git.Repository{}, fmt.Errorf(
			"%s: %s/%s: %w", errCtx, owner, name,
			&remote.Error{
				Kind:    remote.KindValidation,
				Op:      "GetRepositoryInfo",
				Ref:     owner + "/" + name,
				Message: "repository has no default branch",
			},
		)
	}

	return repo, nil
}

// Resolve reads the upstream repository and the head
// repository the branch lives in.
func (r *Resolver) Resolve(ctx context.Context) (Snapshot, error) {
	const errCtx = "resolving snapshot"

	upstream, err := r.GetRepositoryInfo(ctx, r.cfg.Owner, r.cfg.Name)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	snap := Snapshot{Upstream: upstream, Head: upstream}

	owner := r.cfg.ForkOwner
	if owner == "" {
		login, err := r.api.GetCurrentUserLogin(ctx)
		if err != nil {
			return Snapshot{}, fmt.Errorf(
				"%s: current user: %w", errCtx, err,
			)
		}

		snap.Login = login
		owner = login
	}

	if strings.EqualFold(owner, upstream.Owner) {
		slog.Info(
			"working in upstream repository",
			"repository", upstream.NameWithOwner(),
		)

		return snap, nil
	}

	fork, err := r.EnsureFork(ctx, upstream, owner)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	snap.Head = fork

	return snap, nil
}

// EnsureFork returns owner's fork of upstream,
// creating it when allowed. A new fork is polled until
// it becomes visible. The fork must have upstream as
// its parent.
func (r *Resolver) EnsureFork(
	ctx context.Context,
	upstream git.Repository,
	owner string,
) (git.Repository, error) {
	const errCtx = "ensuring fork"

	fork, err := r.api.GetRepositoryInfo(ctx, owner, upstream.Name)

	switch {
	case err == nil:
	case errors.Is(err, remote.ErrNotFound) && r.cfg.CreateFork:
		fork, err = r.createFork(ctx, upstream, owner)
		if err != nil {
			return git.Repository{}, fmt.Errorf("%s: %w", errCtx, err)
		}
	default:
		return git.Repository{}, fmt.Errorf(
			"%s: %s/%s: %w", errCtx, owner, upstream.Name, err,
		)
	}

	if err := checkParent(fork, upstream); err != nil {
		return git.Repository{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	return fork, nil
}

func (r *Resolver) createFork(
	ctx context.Context,
	upstream git.Repository,
	owner string,
) (git.Repository, error) {
	const errCtx = "creating fork"

	login, err := r.api.GetCurrentUserLogin(ctx)
	if err != nil {
		return git.Repository{}, fmt.Errorf(
			"%s: current user: %w", errCtx, err,
		)
	}

	// Forks outside the viewer's account go to an
	// organisation.
	org := ""
	if !strings.EqualFold(owner, login) {
		org = owner
	}

	if err := r.api.CreateFork(
		ctx, upstream.Owner, upstream.Name, org,
	); err != nil {
		return git.Repository{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	var last error

	for attempt := 1; attempt <= r.cfg.PollAttempts; attempt++ {
		if err := r.sleep(ctx, r.cfg.PollInterval); err != nil {
			return git.Repository{}, fmt.Errorf("%s: %w", errCtx, err)
		}

		fork, err := r.api.GetRepositoryInfo(ctx, owner, upstream.Name)
		if err == nil {
			slog.Info(
				"fork ready",
				"repository", fork.NameWithOwner(),
				"polls", attempt,
			)

			return fork, nil
		}

		// The fork shows up eventually.
		if !errors.Is(err, remote.ErrNotFound) {
			return git.Repository{}, fmt.Errorf("%s: %w", errCtx, err)
		}

		slog.Debug(
			"fork not visible yet",
			"repository", owner+"/"+upstream.Name,
			"attempt", attempt,
		)

		last = err
	}

	return git.Repository{}, fmt.Errorf(
		"%s: not visible after %d polls: %w",
		errCtx, r.cfg.PollAttempts, last,
	)
}

func checkParent(fork git.Repository, upstream git.Repository) error {
	if fork.Parent != nil && (fork.Parent.ID == upstream.ID ||
		strings.EqualFold(
			fork.Parent.NameWithOwner(), upstream.NameWithOwner(),
		)) {
		return nil
	}

	return &remote.Error{
		Kind:    remote.KindValidation,
		Op:      "GetRepositoryInfo",
		Ref:     fork.NameWithOwner(),
		Message: "not a fork of " + upstream.NameWithOwner(),
	}
}
