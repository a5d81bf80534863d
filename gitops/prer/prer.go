package prer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/byte4ever/manifest_submit/gitops/branch"
	"github.com/byte4ever/manifest_submit/gitops/change"
	"github.com/byte4ever/manifest_submit/gitops/commit"
	"github.com/byte4ever/manifest_submit/gitops/commitmsg"
	"github.com/byte4ever/manifest_submit/gitops/content"
	"github.com/byte4ever/manifest_submit/gitops/git"
	"github.com/byte4ever/manifest_submit/gitops/pullrequest"
	"github.com/byte4ever/manifest_submit/gitops/remote"
	"github.com/byte4ever/manifest_submit/gitops/snapshot"
	"github.com/byte4ever/manifest_submit/gitops/upstream"
	"github.com/byte4ever/manifest_submit/templating"
)

// API is the remote surface the workflow needs.
type API interface {
	git.RepositoryReader
	git.ForkCreator
	git.BranchAPI
	git.UpstreamAPI
	git.ContentAPI
	git.CommitAPI
	git.PullRequestAPI
}

// Config holds all settings for a submission. Use a
// Config struct instead of many arguments.
type Config struct {
	// Owner and Name identify the upstream repository.
	Owner string
	Name  string

	// ForkOwner owns the repository holding the branch.
	// Empty means the credential's owner; equal to
	// Owner means no fork.
	ForkOwner string

	// CreateFork creates a missing fork.
	CreateFork bool

	// ManifestRoot is the repository directory holding
	// every package.
	ManifestRoot string

	// CommitAttempts bounds commit submissions while
	// the branch keeps moving.
	CommitAttempts int

	// Concurrency bounds parallel read fetches.
	Concurrency int

	// Depth bounds the directory levels fetched under
	// the manifest directory; zero means no limit.
	Depth int

	// MaxTextSize is the largest blob whose text is
	// fetched for previews.
	MaxTextSize int

	// Amend replaces a previous commit of the same
	// change instead of stacking a new one on it.
	Amend bool

	// Draft opens new pull requests as drafts.
	Draft bool

	// DryRun stops after the diff is computed.
	DryRun bool

	// Labels are added to the pull request.
	Labels []string

	// Templates render the commit message and the pull
	// request text. Empty templates use the defaults.
	Templates templating.Templates

	// Engine renders Templates.
	Engine templating.Engine
}

// Result is what a run did. On failure it holds
// everything done before the failing step.
type Result struct {
	State    State
	Snapshot snapshot.Snapshot

	// Branch is the working branch with its latest
	// known head.
	Branch        git.Ref
	BranchCreated bool
	// Amended reports that a previous commit of the
	// change was dropped from the branch.
	Amended bool
	Outcome git.Outcome

	UpdateState change.UpdateState
	Diff        content.Diff
	// Preview is the rendered diff, set on dry runs.
	Preview string
	DryRun  bool
	// NoChanges reports that upstream already holds the
	// desired files and the branch carries nothing.
	NoChanges bool

	Commit             *commit.Result
	PullRequest        *git.PullRequest
	PullRequestCreated bool
}

// Option customises a Submitter.
type Option func(*Submitter)

// WithSnapshotOptions passes options to the snapshot
// resolver, e.g. a fork polling sleeper.
func WithSnapshotOptions(opts ...snapshot.Option) Option {
	return func(s *Submitter) {
		s.snapOpts = append(s.snapOpts, opts...)
	}
}

// Submitter proposes changes to one upstream
// repository.
type Submitter struct {
	api      API
	cfg      Config
	snapOpts []snapshot.Option
}

// New validates cfg and returns a Submitter.
func New(api API, cfg Config, opts ...Option) (*Submitter, error) {
	const errCtx = "creating submitter"

	if api == nil {
		return nil, fmt.Errorf("%s: api must not be nil", errCtx)
	}

	if cfg.Owner == "" || cfg.Name == "" {
		return nil, fmt.Errorf(
			"%s: upstream owner and name must be set", errCtx,
		)
	}

	if cfg.ManifestRoot == "" {
		cfg.ManifestRoot = "manifests"
	}

	cfg.Templates = cfg.Templates.WithDefaults()

	s := &Submitter{api: api, cfg: cfg}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// run carries the state of one submission.
type run struct {
	s  *Submitter
	ch change.Change

	res       Result
	persisted []string
	final     State
	stop      bool

	snap         snapshot.Snapshot
	upstreamOid  string
	branches     *branch.Manager
	sync         *upstream.Synchronizer
	headTree     *content.Resolver
	upstreamTree *content.Resolver
	commits      *commit.Composer
	prs          *pullrequest.Manager
}

type step struct {
	to State
	fn func(context.Context) error
}

// Run submits ch. Mutating steps run strictly in
// order; cancellation is checked between steps. A
// failure returns a *StageError and the partial Result.
func (s *Submitter) Run(
	ctx context.Context,
	ch change.Change,
) (Result, error) {
	const errCtx = "submitting change"

	r := &run{
		s:  s,
		ch: ch,
		res: Result{
			State:  Init,
			Branch: git.Ref{Name: ch.BranchName()},
			DryRun: s.cfg.DryRun,
		},
	}

	if err := ch.Validate(); err != nil {
		return r.fail(SnapshotFetched, fmt.Errorf("%s: %w", errCtx, err))
	}

	steps := []step{
		{to: SnapshotFetched, fn: r.fetchSnapshot},
		{to: BranchResolved, fn: r.resolveBranch},
		{to: Synced, fn: r.syncUpstream},
		{to: DiffComputed, fn: r.computeDiff},
		{to: Committed, fn: r.commit},
		{to: PullRequestReady, fn: r.ensurePullRequest},
	}

	for _, st := range steps {
		if err := ctx.Err(); err != nil {
			return r.fail(st.to, fmt.Errorf("%s: %w", errCtx, err))
		}

		if err := st.fn(ctx); err != nil {
			return r.fail(st.to, fmt.Errorf("%s: %w", errCtx, err))
		}

		r.advance(st.to)

		if r.stop {
			if r.final != st.to {
				r.advance(r.final)
			}

			return r.res, nil
		}
	}

	r.advance(Done)

	return r.res, nil
}

func (r *run) advance(to State) {
	slog.Info(
		"workflow state",
		"from", r.res.State.String(),
		"to", to.String(),
		"branch", r.res.Branch.Name,
	)

	r.res.State = to
}

func (r *run) halt(final State) {
	r.stop = true
	r.final = final
}

func (r *run) persist(format string, args ...any) {
	r.persisted = append(r.persisted, fmt.Sprintf(format, args...))
}

func (r *run) fail(stage State, err error) (Result, error) {
	reached := r.res.State
	r.res.State = Failed

	slog.Error(
		"workflow failed",
		"stage", stage.String(),
		"reached", reached.String(),
		"persisted", r.persisted,
		"error", err,
	)

	return r.res, &StageError{
		Stage:     stage,
		Reached:   reached,
		Persisted: slices.Clone(r.persisted),
		Err:       err,
	}
}

// fetchSnapshot resolves the repositories and wires
// the components bound to them.
func (r *run) fetchSnapshot(ctx context.Context) error {
	cfg := r.s.cfg

	resolver, err := snapshot.New(r.s.api, snapshot.Config{
		Owner:      cfg.Owner,
		Name:       cfg.Name,
		ForkOwner:  cfg.ForkOwner,
		CreateFork: cfg.CreateFork && !cfg.DryRun,
	}, r.s.snapOpts...)
	if err != nil {
		return err
	}

	snap, err := resolver.Resolve(ctx)
	if err != nil {
		return err
	}

	r.snap = snap
	r.res.Snapshot = snap
	r.upstreamOid = snap.Upstream.DefaultBranchOid
	r.res.Branch.Repository = snap.Head.NameWithOwner()

	return r.wire()
}

func (r *run) wire() error {
	cfg := r.s.cfg

	var err error

	if r.branches, err = branch.New(r.s.api, r.snap.Head); err != nil {
		return err
	}

	if r.sync, err = upstream.New(r.s.api, r.snap.Head); err != nil {
		return err
	}

	if r.headTree, err = content.New(r.s.api, content.Config{
		Owner:       r.snap.Head.Owner,
		Name:        r.snap.Head.Name,
		Concurrency: cfg.Concurrency,
		MaxTextSize: cfg.MaxTextSize,
	}); err != nil {
		return err
	}

	if r.upstreamTree, err = content.New(r.s.api, content.Config{
		Owner:       r.snap.Upstream.Owner,
		Name:        r.snap.Upstream.Name,
		Concurrency: cfg.Concurrency,
		MaxTextSize: cfg.MaxTextSize,
	}); err != nil {
		return err
	}

	if r.commits, err = commit.New(
		r.s.api, r.snap.Head, cfg.CommitAttempts,
	); err != nil {
		return err
	}

	r.prs, err = pullrequest.New(r.s.api, pullrequest.Config{
		Upstream: r.snap.Upstream,
		Head:     r.snap.Head,
		Labels:   cfg.Labels,
		Draft:    cfg.Draft,
	})

	return err
}

// resolveBranch ensures the change branch, created at
// the upstream head when missing. A dry run only looks
// the branch up.
func (r *run) resolveBranch(ctx context.Context) error {
	if r.s.cfg.DryRun {
		ref, ok, err := r.branches.Lookup(ctx, r.res.Branch.Name)
		if err != nil {
			return err
		}

		if !ok {
			ref = git.Ref{
				Name:       r.res.Branch.Name,
				Oid:        r.upstreamOid,
				Repository: r.snap.Head.NameWithOwner(),
			}
		}

		r.res.Branch = ref

		return nil
	}

	ref, created, err := r.branches.EnsureBranch(
		ctx, r.res.Branch.Name, r.upstreamOid,
	)
	if err != nil {
		return err
	}

	r.res.Branch = ref
	r.res.BranchCreated = created
	r.persist("branch %s at %s", ref.Name, short(ref.Oid))

	return nil
}

// syncUpstream drops a previous commit of the change
// when amending, then merges upstream into the branch.
// A conflict fails the run before any commit.
func (r *run) syncUpstream(ctx context.Context) error {
	ref := r.res.Branch

	if r.s.cfg.DryRun {
		slog.Info("dry run: not merging upstream", "branch", ref.Name)

		return nil
	}

	if r.s.cfg.Amend && !r.res.BranchCreated && ref.Oid != r.upstreamOid {
		amended, err := r.amend(ctx, ref)
		if err != nil {
			return err
		}

		ref = amended
	}

	out, err := r.sync.MergeUpstream(ctx, ref, r.upstreamOid)
	if err != nil {
		return err
	}

	r.res.Outcome = out.Outcome

	if out.Outcome == git.Conflict {
		return &remote.Error{
			Kind: remote.KindMergeConflict,
			Op:   "MergeUpstream",
			Ref:  ref.Name,
			Oid:  r.upstreamOid,
			Message: "branch conflicts with " +
				r.snap.Upstream.DefaultBranch +
				", resolve it before submitting again",
		}
	}

	ref.Oid = out.HeadOid
	r.res.Branch = ref

	if out.Outcome != git.AlreadyUpToDate {
		r.persist("branch %s synced to %s", ref.Name, short(ref.Oid))
	}

	return nil
}

// amend re-points the branch at the upstream head when
// its head commit was made for the same change.
func (r *run) amend(ctx context.Context, ref git.Ref) (git.Ref, error) {
	const errCtx = "amending"

	head, err := r.s.api.GetCommit(
		ctx, r.snap.Head.Owner, r.snap.Head.Name, ref.Oid,
	)
	if err != nil {
		return git.Ref{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	if !commitmsg.Carries(head.Message, r.ch.Key()) {
		return ref, nil
	}

	moved, err := r.prs.UpdateRefs(ctx, ref.Name, ref.Oid, r.upstreamOid)
	if err != nil {
		return git.Ref{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	r.res.Amended = true
	r.persist("branch %s reset to %s", ref.Name, short(r.upstreamOid))

	ref.Oid = moved.Oid

	return ref, nil
}

// computeDiff reads the manifest directory on the
// branch and the package directory upstream
// concurrently, then diffs the desired files.
func (r *run) computeDiff(ctx context.Context) error {
	const errCtx = "computing diff"

	root := r.s.cfg.ManifestRoot
	manifestDir := r.ch.ManifestDir(root)
	packageDir := r.ch.PackageDir(root)

	var (
		existing *content.Cache
		pkg      *content.Cache
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error

		existing, err = r.headTree.Deep(
			gctx, r.res.Branch.Oid, manifestDir,
			r.s.cfg.Depth, r.s.cfg.DryRun,
		)

		return err
	})

	g.Go(func() error {
		var err error

		pkg, err = r.upstreamTree.Shallow(
			gctx, r.upstreamOid, packageDir, false,
		)

		return err
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	r.res.UpdateState = change.StateOf(
		r.ch.PackageVersion, versions(pkg, packageDir), pkg.Exists(),
	)

	d, err := content.ComputeDiff(
		existing, r.ch.DesiredFiles(root), manifestDir,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	r.res.Diff = d

	slog.Info(
		"diff computed",
		"branch", r.res.Branch.Name,
		"state", r.res.UpdateState.String(),
		"additions", len(d.Additions),
		"deletions", len(d.Deletions),
		"unchanged", len(d.Unchanged),
	)

	if r.s.cfg.DryRun {
		r.res.Preview = content.Preview(existing, d)

		slog.Info("dry run: stopping before commit", "preview", r.res.Preview)
		r.halt(DiffComputed)

		return nil
	}

	if d.Empty() && r.res.Branch.Oid == r.upstreamOid {
		r.res.NoChanges = true

		slog.Info(
			"upstream already holds the change",
			"directory", manifestDir,
		)
		r.halt(Done)
	}

	return nil
}

// versions lists the version directories of a package
// listing.
func versions(pkg *content.Cache, dir string) []string {
	var out []string

	for _, e := range pkg.Children(dir) {
		if e.Type == git.EntryTree {
			out = append(out, path.Base(e.Path))
		}
	}

	return out
}

// commit submits the diff as one commit on the branch.
// An empty diff on a branch that already carries the
// change commits nothing.
func (r *run) commit(ctx context.Context) error {
	d := r.res.Diff
	if d.Empty() {
		slog.Info(
			"branch already carries the change",
			"branch", r.res.Branch.Name,
			"oid", r.res.Branch.Oid,
		)

		return nil
	}

	headline, err := r.render(r.s.cfg.Templates.Commit)
	if err != nil {
		return err
	}

	msg := headline + "\n" + commitmsg.Generate([]string{r.ch.Key()})

	res, err := r.commits.ComposeCommit(
		ctx, r.res.Branch.Name, r.res.Branch.Oid, msg,
		d.Additions, d.Deletions,
	)
	if err != nil {
		return err
	}

	r.res.Commit = &res
	r.res.Branch.Oid = res.Oid
	r.persist("commit %s on %s", short(res.Oid), r.res.Branch.Name)

	return nil
}

// ensurePullRequest reuses the open pull request of the
// branch or opens one against the upstream default
// branch.
func (r *run) ensurePullRequest(ctx context.Context) error {
	title, err := r.render(r.s.cfg.Templates.Title)
	if err != nil {
		return err
	}

	body, err := r.render(r.s.cfg.Templates.Body)
	if err != nil {
		return err
	}

	pr, created, err := r.prs.Ensure(
		ctx, r.res.Branch.Name, r.snap.Upstream.DefaultBranch, title, body,
	)
	if err != nil {
		if created {
			r.res.PullRequest = &pr
			r.res.PullRequestCreated = true
			r.persist("pull request #%d", pr.Number)
		}

		return err
	}

	r.res.PullRequest = &pr
	r.res.PullRequestCreated = created
	r.persist("pull request #%d", pr.Number)

	slog.Info(
		"pull request ready",
		"number", pr.Number,
		"url", pr.URL,
		"created", created,
	)

	return nil
}

func (r *run) render(tpl string) (string, error) {
	tpl, err := templating.ReadTemplate(tpl)
	if err != nil {
		return "", err
	}

	out, err := r.s.cfg.Engine.Render(tpl, r.vars())
	if err != nil {
		return "", err
	}

	if out == "" {
		return "", errors.New("rendered template is empty")
	}

	return out, nil
}

func (r *run) vars() map[string]string {
	root := r.s.cfg.ManifestRoot

	return map[string]string{
		"state":      r.res.UpdateState.String(),
		"identifier": r.ch.PackageIdentifier,
		"version":    r.ch.PackageVersion,
		"branch":     r.res.Branch.Name,
		"directory":  r.ch.ManifestDir(root),
		"files":      templating.FileList(r.ch.FileNames()),
		"upstream":   r.snap.Upstream.NameWithOwner(),
		"head":       r.snap.Head.NameWithOwner(),
		"login":      r.snap.Login,
	}
}

func short(oid string) string {
	if len(oid) > 7 {
		return oid[:7]
	}

	return oid
}
