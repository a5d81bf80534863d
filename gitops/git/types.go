package git

import "strings"

// HeadsPrefix is the namespace of branch refs.
const HeadsPrefix = "refs/heads/"

// Repository is the identity of a hosted repository as
// observed at one instant.
type Repository struct {
	// ID is the opaque node id used by mutations.
	ID string
	// Owner is the login of the owning user or
	// organisation.
	Owner string
	// Name is the repository name without owner.
	Name string
	// DefaultBranch is the name of the default branch.
	DefaultBranch string
	// DefaultBranchOid is the head oid of the default
	// branch.
	DefaultBranchOid string
	// Parent is the upstream repository when this one
	// is a fork.
	Parent *Repository
}

// NameWithOwner returns "owner/name".
func (r Repository) NameWithOwner() string {
	return r.Owner + "/" + r.Name
}

// IsFork reports whether the repository has a parent.
func (r Repository) IsFork() bool {
	return r.Parent != nil
}

// Ref is a named branch pointer.
type Ref struct {
	// ID is the opaque node id of the ref, empty when
	// not fetched.
	ID string
	// Name is the short branch name (no refs/heads/).
	Name string
	// Oid is the commit the ref points at.
	Oid string
	// Repository is "owner/name" of the owning
	// repository.
	Repository string
}

// QualifiedName returns the fully qualified ref name.
func (r Ref) QualifiedName() string {
	return QualifiedName(r.Name)
}

// QualifiedName prefixes a short branch name with
// refs/heads/. Already qualified names are returned
// unchanged.
func QualifiedName(branch string) string {
	if strings.HasPrefix(branch, "refs/") {
		return branch
	}

	return HeadsPrefix + branch
}

// ShortName strips refs/heads/ from a ref name.
func ShortName(ref string) string {
	return strings.TrimPrefix(ref, HeadsPrefix)
}

// RefPage is one page of a branch listing.
type RefPage struct {
	Refs []Ref
	// NextCursor restarts the listing after this page;
	// empty when the listing is exhausted.
	NextCursor string
}

// Commit is the head commit of a ref with the fields
// needed to detect a previous run's commit.
type Commit struct {
	Oid     string
	Message string
	Parents []string
}

// EntryType is the kind of a tree entry.
type EntryType string

// Tree entry kinds as reported by the remote.
const (
	EntryBlob   EntryType = "blob"
	EntryTree   EntryType = "tree"
	EntryCommit EntryType = "commit"
)

// TreeEntry is one path of a tree. For additions
// Content carries the file bytes; Deleted marks a
// removal.
type TreeEntry struct {
	Path string
	Mode int
	Type EntryType
	// Oid is the blob or tree oid.
	Oid string
	// Size is the blob byte size, when known.
	Size int
	// Text is the decoded content; only set when
	// HasText is true.
	Text    string
	HasText bool
	// Binary is set when the remote flagged the blob as
	// binary.
	Binary  bool
	Content []byte
	Deleted bool
}

// CommitInput is one atomic commit submission. The
// commit is accepted only if ExpectedHeadOid is the
// branch's true head at submission time.
type CommitInput struct {
	// Repository is "owner/name" of the repository
	// holding Branch.
	Repository      string
	Branch          string
	ExpectedHeadOid string
	Message         string
	Additions       []TreeEntry
	Deletions       []string
}

// Headline returns the first line of the message.
func (c CommitInput) Headline() string {
	headline, _, _ := strings.Cut(c.Message, "\n")

	return strings.TrimSpace(headline)
}

// Body returns everything after the first line.
func (c CommitInput) Body() string {
	_, body, _ := strings.Cut(c.Message, "\n")

	return strings.TrimSpace(body)
}

// PullRequestState is the lifecycle state of a pull
// request.
type PullRequestState string

// Pull request states.
const (
	PullRequestOpen   PullRequestState = "OPEN"
	PullRequestClosed PullRequestState = "CLOSED"
	PullRequestMerged PullRequestState = "MERGED"
)

// PullRequest is a proposed merge of Head into Base.
type PullRequest struct {
	ID     string
	Number int
	URL    string
	// HeadOwner is the login owning the head branch; it
	// differs from the base owner for forks.
	HeadOwner string
	Head      string
	Base      string
	Title     string
	Body      string
	State     PullRequestState
}

// NewPullRequest carries the inputs of a pull request
// creation.
type NewPullRequest struct {
	// RepositoryID is the node id of the base
	// repository.
	RepositoryID string
	// HeadRepositoryID is the node id of the fork
	// holding Head; empty for same-repository PRs.
	HeadRepositoryID string
	Head             string
	Base             string
	Title            string
	Body             string
	Draft            bool
}

// PullRequestUpdate changes an existing pull request.
// Empty fields are left unchanged.
type PullRequestUpdate struct {
	Title    string
	Body     string
	LabelIDs []string
}

// Outcome is the result of merging upstream into a
// branch.
type Outcome int

// Merge outcomes.
const (
	AlreadyUpToDate Outcome = iota
	FastForward
	Merged
	Conflict
)

var outcomeNames = [...]string{
	AlreadyUpToDate: "already up to date",
	FastForward:     "fast forward",
	Merged:          "merged",
	Conflict:        "conflict",
}

// String returns a human readable outcome.
func (o Outcome) String() string {
	if int(o) < len(outcomeNames) {
		return outcomeNames[o]
	}

	return "unknown"
}

// Comparison is the relation between a base ref and a
// head commit.
type Comparison string

// Comparison statuses, from the point of view of the
// head compared with the base.
const (
	ComparisonIdentical Comparison = "IDENTICAL"
	ComparisonAhead     Comparison = "AHEAD"
	ComparisonBehind    Comparison = "BEHIND"
	ComparisonDiverged  Comparison = "DIVERGED"
)
