package gittest

import (
	"context"
	"fmt"
	"path"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/byte4ever/manifest_submit/gitops/digester"
	"github.com/byte4ever/manifest_submit/gitops/git"
	"github.com/byte4ever/manifest_submit/gitops/remote"
)

var (
	_ git.RepositoryReader = (*Remote)(nil)
	_ git.ForkCreator      = (*Remote)(nil)
	_ git.BranchAPI        = (*Remote)(nil)
	_ git.UpstreamAPI      = (*Remote)(nil)
	_ git.ContentAPI       = (*Remote)(nil)
	_ git.CommitAPI        = (*Remote)(nil)
	_ git.PullRequestAPI   = (*Remote)(nil)
)

// Commit is a stored commit with its full file set.
type Commit struct {
	Oid     string
	Message string
	Parents []string
	Files   map[string][]byte
}

type repo struct {
	info     git.Repository
	branches map[string]string
}

type pullRequest struct {
	repoID string
	pr     git.PullRequest
	labels []string
}

// Remote is an in-memory hosted git service. All
// repositories share one object store, the way forks
// share objects with their parent. The zero value is
// not usable; call New.
type Remote struct {
	mu sync.Mutex

	login   string
	repos   map[string]*repo
	commits map[string]*Commit
	prs     []*pullRequest
	labels  map[string]string
	enums   map[string][]string
	calls   []string
	fail    map[string][]error
	oids    []string
	seq     int

	// PageSize bounds ListBranches pages.
	PageSize int
	// ForkDelay is the number of GetRepositoryInfo
	// calls for which a new fork stays invisible.
	ForkDelay int
	// ConflictingMerges makes MergeBranch report a
	// merge conflict.
	ConflictingMerges bool

	forkHidden map[string]int
}

// New returns an empty remote whose viewer is login.
func New(login string) *Remote {
	return &Remote{
		login:      login,
		repos:      map[string]*repo{},
		commits:    map[string]*Commit{},
		labels:     map[string]string{},
		fail:       map[string][]error{},
		forkHidden: map[string]int{},
		PageSize:   100,
		enums: map[string][]string{
			"PullRequestState": {"OPEN", "CLOSED", "MERGED"},
		},
	}
}

func key(owner string, name string) string {
	return strings.ToLower(owner + "/" + name)
}

// AddRepository registers owner/name with a default
// branch holding one root commit with files. It
// returns the root commit oid.
func (r *Remote) AddRepository(
	owner string,
	name string,
	defaultBranch string,
	oid string,
	files map[string][]byte,
) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if oid == "" {
		oid = r.newOidLocked()
	}

	r.commits[oid] = &Commit{
		Oid:     oid,
		Message: "initial",
		Files:   cloneFiles(files),
	}

	id := "R_" + key(owner, name)
	r.repos[key(owner, name)] = &repo{
		info: git.Repository{
			ID:            id,
			Owner:         owner,
			Name:          name,
			DefaultBranch: defaultBranch,
		},
		branches: map[string]string{defaultBranch: oid},
	}

	return oid
}

// AddFork registers owner/name as a fork of parent
// sharing its default branch head.
func (r *Remote) AddFork(
	owner string,
	name string,
	parentOwner string,
	parentName string,
) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.forkLocked(owner, name, parentOwner, parentName)
}

func (r *Remote) forkLocked(
	owner string,
	name string,
	parentOwner string,
	parentName string,
) {
	parent := r.repos[key(parentOwner, parentName)]
	def := parent.info.DefaultBranch

	r.repos[key(owner, name)] = &repo{
		info: git.Repository{
			ID:            "R_" + key(owner, name),
			Owner:         owner,
			Name:          name,
			DefaultBranch: def,
		},
		branches: map[string]string{def: parent.branches[def]},
	}
	r.repos[key(owner, name)].info.Parent = &git.Repository{
		ID:    parent.info.ID,
		Owner: parent.info.Owner,
		Name:  parent.info.Name,
	}
}

// AddCommit stores a commit on top of parent with the
// given changes and returns its oid. A nil content
// deletes the path.
func (r *Remote) AddCommit(
	parent string,
	message string,
	changes map[string][]byte,
) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	files := map[string][]byte{}
	if p, ok := r.commits[parent]; ok {
		files = cloneFiles(p.Files)
	}

	for p, content := range changes {
		if content == nil {
			delete(files, p)

			continue
		}

		files[p] = content
	}

	oid := r.newOidLocked()
	r.commits[oid] = &Commit{
		Oid:     oid,
		Message: message,
		Parents: []string{parent},
		Files:   files,
	}

	return oid
}

// SetBranch points owner/name's branch at oid.
func (r *Remote) SetBranch(
	owner string,
	name string,
	branch string,
	oid string,
) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.repos[key(owner, name)].branches[branch] = oid
}

// Branch returns the head of a branch and whether it
// exists.
func (r *Remote) Branch(
	owner string,
	name string,
	branch string,
) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rp, ok := r.repos[key(owner, name)]
	if !ok {
		return "", false
	}

	oid, ok := rp.branches[branch]

	return oid, ok
}

// Commit returns a stored commit.
func (r *Remote) Commit(oid string) (Commit, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.commits[oid]
	if !ok {
		return Commit{}, false
	}

	return *c, true
}

// AddLabel makes a label resolvable by name.
func (r *Remote) AddLabel(name string, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.labels[name] = id
}

// AddPullRequest registers an existing pull request on
// owner/name.
func (r *Remote) AddPullRequest(
	owner string,
	name string,
	pr git.PullRequest,
) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.prs = append(r.prs, &pullRequest{
		repoID: r.repos[key(owner, name)].info.ID,
		pr:     pr,
	})
}

// PullRequests returns the pull requests of owner/name.
func (r *Remote) PullRequests(
	owner string,
	name string,
) []git.PullRequest {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.repos[key(owner, name)].info.ID

	var out []git.PullRequest

	for _, p := range r.prs {
		if p.repoID == id {
			out = append(out, p.pr)
		}
	}

	return out
}

// PullRequestLabels returns the label ids attached to a
// pull request.
func (r *Remote) PullRequestLabels(id string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.prs {
		if p.pr.ID == id {
			return slices.Clone(p.labels)
		}
	}

	return nil
}

// QueueOids makes the next created commits use the
// given oids.
func (r *Remote) QueueOids(oids ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.oids = append(r.oids, oids...)
}

// FailNext makes the next calls of op return errs in
// order.
func (r *Remote) FailNext(op string, errs ...error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.fail[op] = append(r.fail[op], errs...)
}

// Calls returns the number of calls made to op.
func (r *Remote) Calls(op string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0

	for _, c := range r.calls {
		if c == op {
			n++
		}
	}

	return n
}

// CallLog returns every operation name in call order.
func (r *Remote) CallLog() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return slices.Clone(r.calls)
}

// enter records a call and pops an injected failure.
// The lock is held on return.
func (r *Remote) enter(op string) error {
	r.mu.Lock()

	r.calls = append(r.calls, op)

	if q := r.fail[op]; len(q) > 0 {
		r.fail[op] = q[1:]

		return q[0]
	}

	return nil
}

func (r *Remote) newOidLocked() string {
	if len(r.oids) > 0 {
		oid := r.oids[0]
		r.oids = r.oids[1:]

		return oid
	}

	r.seq++

	return fmt.Sprintf("%040x", r.seq)
}

func cloneFiles(files map[string][]byte) map[string][]byte {
	out := make(map[string][]byte, len(files))
	for p, c := range files {
		out[p] = slices.Clone(c)
	}

	return out
}

func rerr(kind remote.Kind, op string, ref string, msg string) error {
	return &remote.Error{Kind: kind, Op: op, Ref: ref, Message: msg}
}

func (r *Remote) repoLocked(
	op string,
	owner string,
	name string,
) (*repo, error) {
	rp, ok := r.repos[key(owner, name)]
	if !ok {
		return nil, rerr(
			remote.KindNotFound, op, owner+"/"+name,
			"repository not found",
		)
	}

	return rp, nil
}

func (r *Remote) repoByIDLocked(op string, id string) (*repo, error) {
	for _, rp := range r.repos {
		if rp.info.ID == id {
			return rp, nil
		}
	}

	return nil, rerr(remote.KindNotFound, op, id, "repository not found")
}

// GetRepositoryInfo implements git.RepositoryReader.
func (r *Remote) GetRepositoryInfo(
	_ context.Context,
	owner string,
	name string,
) (git.Repository, error) {
	const op = "GetRepositoryInfo"

	err := r.enter(op)
	defer r.mu.Unlock()

	if err != nil {
		return git.Repository{}, err
	}

	k := key(owner, name)
	if n := r.forkHidden[k]; n > 0 {
		r.forkHidden[k] = n - 1

		return git.Repository{}, rerr(
			remote.KindNotFound, op, owner+"/"+name,
			"repository not found",
		)
	}

	rp, err := r.repoLocked(op, owner, name)
	if err != nil {
		return git.Repository{}, err
	}

	info := rp.info
	info.DefaultBranchOid = rp.branches[info.DefaultBranch]

	if info.Parent != nil {
		parent := *info.Parent
		if p, ok := r.repos[key(parent.Owner, parent.Name)]; ok {
			parent.DefaultBranch = p.info.DefaultBranch
			parent.DefaultBranchOid = p.branches[p.info.DefaultBranch]
		}

		info.Parent = &parent
	}

	return info, nil
}

// GetCurrentUserLogin implements git.RepositoryReader.
func (r *Remote) GetCurrentUserLogin(context.Context) (string, error) {
	err := r.enter("GetCurrentUserLogin")
	defer r.mu.Unlock()

	if err != nil {
		return "", err
	}

	return r.login, nil
}

// CreateFork implements git.ForkCreator. The fork is
// owned by organization, or by the viewer when empty,
// and hidden for ForkDelay reads.
func (r *Remote) CreateFork(
	_ context.Context,
	owner string,
	name string,
	organization string,
) error {
	const op = "CreateFork"

	err := r.enter(op)
	defer r.mu.Unlock()

	if err != nil {
		return err
	}

	if _, err := r.repoLocked(op, owner, name); err != nil {
		return err
	}

	forkOwner := r.login
	if organization != "" {
		forkOwner = organization
	}

	if _, ok := r.repos[key(forkOwner, name)]; ok {
		return nil
	}

	r.forkLocked(forkOwner, name, owner, name)
	r.forkHidden[key(forkOwner, name)] = r.ForkDelay

	return nil
}

// ListBranches implements git.BranchAPI. Cursors are
// opaque offsets into the sorted branch names.
func (r *Remote) ListBranches(
	_ context.Context,
	owner string,
	name string,
	prefix string,
	cursor string,
) (git.RefPage, error) {
	const op = "ListBranches"

	err := r.enter(op)
	defer r.mu.Unlock()

	if err != nil {
		return git.RefPage{}, err
	}

	rp, err := r.repoLocked(op, owner, name)
	if err != nil {
		return git.RefPage{}, err
	}

	names := make([]string, 0, len(rp.branches))
	for b := range rp.branches {
		if strings.HasPrefix(b, prefix) {
			names = append(names, b)
		}
	}

	sort.Strings(names)

	start := 0
	if cursor != "" {
		start, err = strconv.Atoi(cursor)
		if err != nil || start > len(names) {
			return git.RefPage{}, rerr(
				remote.KindValidation, op, cursor, "bad cursor",
			)
		}
	}

	end := min(start+r.PageSize, len(names))

	page := git.RefPage{}
	for _, b := range names[start:end] {
		page.Refs = append(page.Refs, git.Ref{
			ID:         "REF_" + b,
			Name:       b,
			Oid:        rp.branches[b],
			Repository: rp.info.NameWithOwner(),
		})
	}

	if end < len(names) {
		page.NextCursor = strconv.Itoa(end)
	}

	return page, nil
}

// GetRef implements git.RefReader.
func (r *Remote) GetRef(
	_ context.Context,
	owner string,
	name string,
	branch string,
) (git.Ref, error) {
	const op = "GetRef"

	err := r.enter(op)
	defer r.mu.Unlock()

	if err != nil {
		return git.Ref{}, err
	}

	rp, err := r.repoLocked(op, owner, name)
	if err != nil {
		return git.Ref{}, err
	}

	oid, ok := rp.branches[branch]
	if !ok {
		return git.Ref{}, rerr(remote.KindNotFound, op, branch, "ref not found")
	}

	return git.Ref{
		ID:         "REF_" + branch,
		Name:       branch,
		Oid:        oid,
		Repository: rp.info.NameWithOwner(),
	}, nil
}

// CreateRef implements git.BranchAPI.
func (r *Remote) CreateRef(
	_ context.Context,
	repository git.Repository,
	branch string,
	oid string,
) (git.Ref, error) {
	const op = "CreateRef"

	err := r.enter(op)
	defer r.mu.Unlock()

	if err != nil {
		return git.Ref{}, err
	}

	rp, err := r.repoByIDLocked(op, repository.ID)
	if err != nil {
		return git.Ref{}, err
	}

	if _, ok := rp.branches[branch]; ok {
		return git.Ref{}, rerr(
			remote.KindAlreadyExists, op, branch,
			"reference already exists",
		)
	}

	if _, ok := r.commits[oid]; !ok {
		return git.Ref{}, rerr(
			remote.KindValidation, op, branch, "unknown oid "+oid,
		)
	}

	rp.branches[branch] = oid

	return git.Ref{
		ID:         "REF_" + branch,
		Name:       branch,
		Oid:        oid,
		Repository: rp.info.NameWithOwner(),
	}, nil
}

// UpdateRefs implements git.RefUpdater.
func (r *Remote) UpdateRefs(
	_ context.Context,
	repository git.Repository,
	update git.RefUpdate,
) (git.Ref, error) {
	const op = "UpdateRefs"

	err := r.enter(op)
	defer r.mu.Unlock()

	if err != nil {
		return git.Ref{}, err
	}

	rp, err := r.repoByIDLocked(op, repository.ID)
	if err != nil {
		return git.Ref{}, err
	}

	cur, ok := rp.branches[update.Branch]
	if !ok {
		return git.Ref{}, rerr(
			remote.KindNotFound, op, update.Branch, "ref not found",
		)
	}

	if update.BeforeOid != "" && cur != update.BeforeOid {
		return git.Ref{}, rerr(
			remote.KindOptimisticLockConflict, op, update.Branch,
			"ref moved",
		)
	}

	rp.branches[update.Branch] = update.AfterOid

	return git.Ref{
		Name:       update.Branch,
		Oid:        update.AfterOid,
		Repository: rp.info.NameWithOwner(),
	}, nil
}

func (r *Remote) ancestorsLocked(oid string) map[string]bool {
	seen := map[string]bool{}
	stack := []string{oid}

	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if seen[cur] {
			continue
		}

		seen[cur] = true

		if c, ok := r.commits[cur]; ok {
			stack = append(stack, c.Parents...)
		}
	}

	return seen
}

// CompareCommits implements git.UpstreamAPI.
func (r *Remote) CompareCommits(
	_ context.Context,
	owner string,
	name string,
	branch string,
	headOid string,
) (git.Comparison, error) {
	const op = "CompareCommits"

	err := r.enter(op)
	defer r.mu.Unlock()

	if err != nil {
		return "", err
	}

	rp, err := r.repoLocked(op, owner, name)
	if err != nil {
		return "", err
	}

	base, ok := rp.branches[branch]
	if !ok {
		return "", rerr(remote.KindNotFound, op, branch, "ref not found")
	}

	switch {
	case base == headOid:
		return git.ComparisonIdentical, nil
	case r.ancestorsLocked(base)[headOid]:
		return git.ComparisonBehind, nil
	case r.ancestorsLocked(headOid)[base]:
		return git.ComparisonAhead, nil
	default:
		return git.ComparisonDiverged, nil
	}
}

// MergeBranch implements git.UpstreamAPI. Files of the
// branch win over files of head.
func (r *Remote) MergeBranch(
	_ context.Context,
	repository git.Repository,
	branch string,
	head string,
	message string,
) (string, error) {
	const op = "MergeUpstream"

	err := r.enter(op)
	defer r.mu.Unlock()

	if err != nil {
		return "", err
	}

	if r.ConflictingMerges {
		return "", rerr(
			remote.KindMergeConflict, op, branch, "merge conflict",
		)
	}

	rp, err := r.repoByIDLocked(op, repository.ID)
	if err != nil {
		return "", err
	}

	base := rp.branches[branch]
	if r.ancestorsLocked(base)[head] {
		return "", nil
	}

	files := cloneFiles(r.commits[head].Files)
	for p, c := range r.commits[base].Files {
		files[p] = slices.Clone(c)
	}

	if message == "" {
		message = "Merge " + head + " into " + branch
	}

	oid := r.newOidLocked()
	r.commits[oid] = &Commit{
		Oid:     oid,
		Message: message,
		Parents: []string{base, head},
		Files:   files,
	}
	rp.branches[branch] = oid

	return oid, nil
}

// GetDirectoryContent implements git.ContentAPI. ref is
// a branch of owner/name or a commit oid. Content
// containing a NUL byte is reported as binary.
func (r *Remote) GetDirectoryContent(
	_ context.Context,
	owner string,
	name string,
	ref string,
	dir string,
	withText bool,
) ([]git.TreeEntry, error) {
	const op = "GetDirectoryContent"

	err := r.enter(op)
	defer r.mu.Unlock()

	if err != nil {
		return nil, err
	}

	rp, err := r.repoLocked(op, owner, name)
	if err != nil {
		return nil, err
	}

	oid := ref
	if b, ok := rp.branches[ref]; ok {
		oid = b
	}

	c, ok := r.commits[oid]
	if !ok {
		return nil, rerr(remote.KindNotFound, op, ref, "commit not found")
	}

	dir = strings.Trim(dir, "/")
	prefix := dir + "/"

	if dir == "" {
		prefix = ""
	}

	trees := map[string]bool{}

	var entries []git.TreeEntry

	for p, content := range c.Files {
		if !strings.HasPrefix(p, prefix) {
			continue
		}

		rest := strings.TrimPrefix(p, prefix)
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			trees[prefix+rest[:i]] = true

			continue
		}

		entry := git.TreeEntry{
			Path: p,
			Mode: 0o100644,
			Type: git.EntryBlob,
			Oid:  digester.BlobOID(content),
			Size: len(content),
		}

		switch {
		case slices.Contains(content, 0):
			entry.Binary = true
		case withText:
			entry.Text = string(content)
			entry.HasText = true
		}

		entries = append(entries, entry)
	}

	for t := range trees {
		entries = append(entries, git.TreeEntry{
			Path: t,
			Mode: 0o40000,
			Type: git.EntryTree,
			Oid:  "tree:" + oid + ":" + t,
		})
	}

	if len(entries) == 0 {
		return nil, rerr(
			remote.KindNotFound, op, ref,
			path.Join(ref, dir)+" not found",
		)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Path < entries[j].Path
	})

	return entries, nil
}

// GetCommit implements git.CommitAPI.
func (r *Remote) GetCommit(
	_ context.Context,
	_ string,
	_ string,
	oid string,
) (git.Commit, error) {
	const op = "GetCommit"

	err := r.enter(op)
	defer r.mu.Unlock()

	if err != nil {
		return git.Commit{}, err
	}

	c, ok := r.commits[oid]
	if !ok {
		return git.Commit{}, rerr(remote.KindNotFound, op, oid, "commit not found")
	}

	return git.Commit{
		Oid:     c.Oid,
		Message: c.Message,
		Parents: slices.Clone(c.Parents),
	}, nil
}

// CreateCommit implements git.CommitAPI with the
// expected head check of the real service.
func (r *Remote) CreateCommit(
	_ context.Context,
	in git.CommitInput,
) (string, error) {
	const op = "CreateCommit"

	err := r.enter(op)
	defer r.mu.Unlock()

	if err != nil {
		return "", err
	}

	owner, name, _ := strings.Cut(in.Repository, "/")

	rp, err := r.repoLocked(op, owner, name)
	if err != nil {
		return "", err
	}

	head, ok := rp.branches[in.Branch]
	if !ok {
		return "", rerr(remote.KindNotFound, op, in.Branch, "ref not found")
	}

	if head != in.ExpectedHeadOid {
		return "", rerr(
			remote.KindOptimisticLockConflict, op, in.Branch,
			"expected branch to point to "+in.ExpectedHeadOid+
				" but it did not",
		)
	}

	files := cloneFiles(r.commits[head].Files)

	for _, p := range in.Deletions {
		delete(files, p)
	}

	for _, add := range in.Additions {
		files[add.Path] = slices.Clone(add.Content)
	}

	oid := r.newOidLocked()
	r.commits[oid] = &Commit{
		Oid:     oid,
		Message: in.Message,
		Parents: []string{head},
		Files:   files,
	}
	rp.branches[in.Branch] = oid

	return oid, nil
}

// GetExistingPullRequest implements git.PullRequestAPI.
func (r *Remote) GetExistingPullRequest(
	_ context.Context,
	owner string,
	name string,
	headOwner string,
	head string,
	base string,
) (*git.PullRequest, error) {
	const op = "GetExistingPullRequest"

	err := r.enter(op)
	defer r.mu.Unlock()

	if err != nil {
		return nil, err
	}

	rp, err := r.repoLocked(op, owner, name)
	if err != nil {
		return nil, err
	}

	for _, p := range r.prs {
		if p.repoID != rp.info.ID ||
			p.pr.State != git.PullRequestOpen ||
			p.pr.Head != head || p.pr.Base != base {
			continue
		}

		if headOwner != "" && !strings.EqualFold(p.pr.HeadOwner, headOwner) {
			continue
		}

		pr := p.pr

		return &pr, nil
	}

	return nil, nil
}

// CreatePullRequest implements git.PullRequestCreator.
// A second open pull request for the same head and
// base is rejected.
func (r *Remote) CreatePullRequest(
	_ context.Context,
	in git.NewPullRequest,
) (git.PullRequest, error) {
	const op = "CreatePullRequest"

	err := r.enter(op)
	defer r.mu.Unlock()

	if err != nil {
		return git.PullRequest{}, err
	}

	rp, err := r.repoByIDLocked(op, in.RepositoryID)
	if err != nil {
		return git.PullRequest{}, err
	}

	headRepo := rp
	if in.HeadRepositoryID != "" {
		headRepo, err = r.repoByIDLocked(op, in.HeadRepositoryID)
		if err != nil {
			return git.PullRequest{}, err
		}
	}

	if _, ok := headRepo.branches[in.Head]; !ok {
		return git.PullRequest{}, rerr(
			remote.KindValidation, op, in.Head, "head ref not found",
		)
	}

	for _, p := range r.prs {
		if p.repoID == rp.info.ID && p.pr.State == git.PullRequestOpen &&
			p.pr.Head == in.Head && p.pr.Base == in.Base &&
			strings.EqualFold(p.pr.HeadOwner, headRepo.info.Owner) {
			return git.PullRequest{}, rerr(
				remote.KindValidation, op, in.Head,
				"a pull request already exists",
			)
		}
	}

	pr := git.PullRequest{
		ID:        fmt.Sprintf("PR_%d", len(r.prs)+1),
		Number:    len(r.prs) + 1,
		URL:       fmt.Sprintf("https://example.test/%s/pull/%d", rp.info.NameWithOwner(), len(r.prs)+1),
		HeadOwner: headRepo.info.Owner,
		Head:      in.Head,
		Base:      in.Base,
		Title:     in.Title,
		Body:      in.Body,
		State:     git.PullRequestOpen,
	}

	r.prs = append(r.prs, &pullRequest{repoID: rp.info.ID, pr: pr})

	return pr, nil
}

// UpdatePullRequest implements git.PullRequestAPI.
func (r *Remote) UpdatePullRequest(
	_ context.Context,
	id string,
	update git.PullRequestUpdate,
) (git.PullRequest, error) {
	const op = "UpdatePullRequest"

	err := r.enter(op)
	defer r.mu.Unlock()

	if err != nil {
		return git.PullRequest{}, err
	}

	for _, p := range r.prs {
		if p.pr.ID != id {
			continue
		}

		if update.Title != "" {
			p.pr.Title = update.Title
		}

		if update.Body != "" {
			p.pr.Body = update.Body
		}

		p.labels = appendNew(p.labels, update.LabelIDs...)

		return p.pr, nil
	}

	return git.PullRequest{}, rerr(remote.KindNotFound, op, id, "pull request not found")
}

// LabelIDs implements git.PullRequestAPI.
func (r *Remote) LabelIDs(
	_ context.Context,
	_ string,
	_ string,
	labels []string,
) ([]string, error) {
	err := r.enter("GetLabel")
	defer r.mu.Unlock()

	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(labels))

	for _, l := range labels {
		if id, ok := r.labels[l]; ok {
			ids = append(ids, id)
		}
	}

	return ids, nil
}

// AddLabels implements git.PullRequestAPI.
func (r *Remote) AddLabels(
	_ context.Context,
	labelableID string,
	labelIDs []string,
) error {
	const op = "AddLabels"

	err := r.enter(op)
	defer r.mu.Unlock()

	if err != nil {
		return err
	}

	for _, p := range r.prs {
		if p.pr.ID == labelableID {
			p.labels = appendNew(p.labels, labelIDs...)

			return nil
		}
	}

	return rerr(remote.KindNotFound, op, labelableID, "labelable not found")
}

// GetAllValues implements git.PullRequestAPI.
func (r *Remote) GetAllValues(
	_ context.Context,
	enum string,
) ([]string, error) {
	const op = "GetAllValues"

	err := r.enter(op)
	defer r.mu.Unlock()

	if err != nil {
		return nil, err
	}

	values, ok := r.enums[enum]
	if !ok {
		return nil, rerr(remote.KindNotFound, op, enum, "enum not found")
	}

	return slices.Clone(values), nil
}

func appendNew(dst []string, values ...string) []string {
	for _, v := range values {
		if !slices.Contains(dst, v) {
			dst = append(dst, v)
		}
	}

	return dst
}
