package git

import "context"

// Pattern: Strategy -- each pipeline component depends
// only on the slice of the remote it needs, so tests
// and alternative backends swap in without touching
// the workflow.

// RepositoryReader resolves repository identity.
type RepositoryReader interface {
	GetRepositoryInfo(
		ctx context.Context,
		owner string,
		name string,
	) (Repository, error)
	GetCurrentUserLogin(ctx context.Context) (string, error)
}

// ForkCreator requests a fork of a repository. The
// fork may become visible only some time later.
type ForkCreator interface {
	// CreateFork forks owner/name into organization,
	// or into the credential owner's account when
	// organization is empty.
	CreateFork(
		ctx context.Context,
		owner string,
		name string,
		organization string,
	) error
}

// RefReader reads a single branch ref.
type RefReader interface {
	// GetRef returns the ref or a NotFound error.
	GetRef(
		ctx context.Context,
		owner string,
		name string,
		branch string,
	) (Ref, error)
}

// BranchAPI lists and creates branch refs.
type BranchAPI interface {
	RefReader
	ListBranches(
		ctx context.Context,
		owner string,
		name string,
		prefix string,
		cursor string,
	) (RefPage, error)
	CreateRef(
		ctx context.Context,
		repo Repository,
		branch string,
		oid string,
	) (Ref, error)
}

// RefUpdate re-points one ref. BeforeOid, when set, is
// the expected current target.
type RefUpdate struct {
	Branch    string
	BeforeOid string
	AfterOid  string
	Force     bool
}

// RefUpdater re-points existing refs.
type RefUpdater interface {
	UpdateRefs(
		ctx context.Context,
		repo Repository,
		update RefUpdate,
	) (Ref, error)
}

// UpstreamAPI compares and merges commits into a
// branch.
type UpstreamAPI interface {
	RefReader
	RefUpdater
	// CompareCommits compares headOid with the branch
	// as base.
	CompareCommits(
		ctx context.Context,
		owner string,
		name string,
		branch string,
		headOid string,
	) (Comparison, error)
	// MergeBranch merges head into branch and returns
	// the merge commit oid, empty when there was
	// nothing to merge.
	MergeBranch(
		ctx context.Context,
		repo Repository,
		branch string,
		head string,
		message string,
	) (string, error)
}

// ContentAPI reads trees.
type ContentAPI interface {
	// GetDirectoryContent lists the entries of the
	// directory at path on ref. withText requests
	// decoded blob text.
	GetDirectoryContent(
		ctx context.Context,
		owner string,
		name string,
		ref string,
		path string,
		withText bool,
	) ([]TreeEntry, error)
}

// CommitAPI submits commits and reads them back.
type CommitAPI interface {
	RefReader
	CreateCommit(
		ctx context.Context,
		in CommitInput,
	) (string, error)
	GetCommit(
		ctx context.Context,
		owner string,
		name string,
		oid string,
	) (Commit, error)
}

// PullRequestCreator opens pull requests.
type PullRequestCreator interface {
	CreatePullRequest(
		ctx context.Context,
		in NewPullRequest,
	) (PullRequest, error)
}

// PullRequestCreatorFunc adapts a plain function to the
// PullRequestCreator interface. When the body is empty
// the title is used as body.
type PullRequestCreatorFunc func(
	ctx context.Context,
	in NewPullRequest,
) (PullRequest, error)

// CreatePullRequest delegates to the wrapped function.
// If the body is empty, the title is substituted.
func (f PullRequestCreatorFunc) CreatePullRequest(
	ctx context.Context,
	in NewPullRequest,
) (PullRequest, error) {
	if in.Body == "" {
		in.Body = in.Title
	}

	return f(ctx, in)
}

// PullRequestAPI finds, creates, and updates pull
// requests.
type PullRequestAPI interface {
	PullRequestCreator
	RefUpdater
	// GetExistingPullRequest returns the open pull
	// request from headOwner:head into base, nil when
	// there is none.
	GetExistingPullRequest(
		ctx context.Context,
		owner string,
		name string,
		headOwner string,
		head string,
		base string,
	) (*PullRequest, error)
	UpdatePullRequest(
		ctx context.Context,
		id string,
		update PullRequestUpdate,
	) (PullRequest, error)
	// LabelIDs resolves label names to node ids,
	// skipping unknown labels.
	LabelIDs(
		ctx context.Context,
		owner string,
		name string,
		labels []string,
	) ([]string, error)
	AddLabels(
		ctx context.Context,
		labelableID string,
		labelIDs []string,
	) error
	// GetAllValues lists the values of a schema enum.
	GetAllValues(
		ctx context.Context,
		enum string,
	) ([]string, error)
}
