package github

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	gh "github.com/google/go-github/v68/github"

	"github.com/byte4ever/manifest_submit/gitops/git"
	"github.com/byte4ever/manifest_submit/gitops/remote"
)

// Config holds the settings needed to create a GitHub
// provider.
type Config struct {
	// AccessToken is a personal access token or
	// GitHub App token used for authentication.
	AccessToken string
	// EnterpriseHost is an optional GitHub Enterprise
	// hostname (e.g. "git.corp.example.com"). Leave
	// empty for github.com.
	EnterpriseHost string
	// Policy bounds retries of transient failures.
	Policy remote.Policy
	// RequestsPerSecond paces requests; zero disables
	// pacing.
	RequestsPerSecond float64
}

// Provider performs repository operations through the
// GitHub GraphQL API. Every call goes through a single
// retrying client.
//
// Pattern: Strategy -- implements the gitops/git
// interfaces.
type Provider struct {
	client *remote.Client
	rest   *gh.Client
}

// NewProvider validates cfg and returns a Provider
// ready to talk to GitHub.
func NewProvider(cfg Config) (*Provider, error) {
	const errCtx = "creating github provider"

	transport, err := remote.NewGitHubTransport(
		remote.TransportConfig{
			AccessToken:    cfg.AccessToken,
			EnterpriseHost: cfg.EnterpriseHost,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	client := remote.NewClient(
		transport,
		remote.WithPolicy(cfg.Policy),
		remote.WithRequestRate(cfg.RequestsPerSecond, 1),
	)

	return New(client, transport.Client()), nil
}

// New wraps an existing retrying client. rest is used
// for the REST-only fork endpoint and may be nil when
// forks are never created.
func New(client *remote.Client, rest *gh.Client) *Provider {
	return &Provider{
		client: client,
		rest:   rest,
	}
}

// GetRepositoryInfo resolves the repository identity,
// default branch, and fork parent.
func (p *Provider) GetRepositoryInfo(
	ctx context.Context,
	owner string,
	name string,
) (git.Repository, error) {
	const op = "GetRepositoryInfo"

	var out struct {
		Repository *repositoryNode `json:"repository"`
	}

	if err := p.client.Query(
		ctx,
		remote.Op{Name: op, Ref: owner + "/" + name},
		getRepositoryInfoQuery,
		map[string]any{"owner": owner, "name": name},
		&out,
	); err != nil {
		return git.Repository{}, err
	}

	if out.Repository == nil {
		return git.Repository{}, notFound(
			op, owner+"/"+name, "repository",
		)
	}

	return out.Repository.toRepository(), nil
}

// GetCurrentUserLogin returns the login of the
// credential's owner.
func (p *Provider) GetCurrentUserLogin(
	ctx context.Context,
) (string, error) {
	const op = "GetCurrentUserLogin"

	var out struct {
		Viewer *ownerNode `json:"viewer"`
	}

	if err := p.client.Query(
		ctx,
		remote.Op{Name: op},
		getCurrentUserLoginQuery,
		nil,
		&out,
	); err != nil {
		return "", err
	}

	if out.Viewer == nil || out.Viewer.Login == "" {
		return "", &remote.Error{
			Kind:    remote.KindPermissionDenied,
			Op:      op,
			Message: "credential has no viewer",
		}
	}

	return out.Viewer.Login, nil
}

// CreateFork asks GitHub to fork owner/name into
// organization, or into the credential owner's account
// when organization is empty. The fork is created
// asynchronously.
func (p *Provider) CreateFork(
	ctx context.Context,
	owner string,
	name string,
	organization string,
) error {
	const op = "CreateFork"

	if p.rest == nil {
		return &remote.Error{
			Kind:    remote.KindValidation,
			Op:      op,
			Message: "no REST client configured",
		}
	}

	return p.client.Call(
		ctx,
		remote.Op{Name: op, Ref: owner + "/" + name},
		func(ctx context.Context) error {
			_, _, err := p.rest.Repositories.CreateFork(
				ctx, owner, name,
				&gh.RepositoryCreateForkOptions{
					Organization:      organization,
					DefaultBranchOnly: true,
				},
			)

			// HTTP 202: the fork is being created.
			var accepted *gh.AcceptedError
			if err == nil || errors.As(err, &accepted) {
				slog.Info(
					"fork requested",
					"repository", owner+"/"+name,
					"organization", organization,
				)

				return nil
			}

			return remote.ClassifyHTTP(err)
		},
	)
}

// ListBranches returns one page of branches whose
// name starts with prefix, starting after cursor.
func (p *Provider) ListBranches(
	ctx context.Context,
	owner string,
	name string,
	prefix string,
	cursor string,
) (git.RefPage, error) {
	const op = "ListBranches"

	var out struct {
		Repository *struct {
			Refs struct {
				Nodes    []refNode    `json:"nodes"`
				PageInfo pageInfoNode `json:"pageInfo"`
			} `json:"refs"`
		} `json:"repository"`
	}

	vars := map[string]any{
		"owner":  owner,
		"name":   name,
		"query":  nullable(prefix),
		"cursor": nullable(cursor),
	}

	if err := p.client.Query(
		ctx,
		remote.Op{Name: op, Ref: owner + "/" + name},
		getBranchesQuery,
		vars,
		&out,
	); err != nil {
		return git.RefPage{}, err
	}

	if out.Repository == nil {
		return git.RefPage{}, notFound(
			op, owner+"/"+name, "repository",
		)
	}

	repo := owner + "/" + name
	page := git.RefPage{}

	// The remote query matches anywhere in the name;
	// keep prefix matches only.
	for i := range out.Repository.Refs.Nodes {
		ref := out.Repository.Refs.Nodes[i].toRef(repo)
		if strings.HasPrefix(ref.Name, prefix) {
			page.Refs = append(page.Refs, ref)
		}
	}

	if out.Repository.Refs.PageInfo.HasNextPage {
		page.NextCursor = out.Repository.Refs.PageInfo.EndCursor
	}

	return page, nil
}

// GetRef returns the named branch or a NotFound error.
func (p *Provider) GetRef(
	ctx context.Context,
	owner string,
	name string,
	branch string,
) (git.Ref, error) {
	const op = "GetRef"

	var out struct {
		Repository *struct {
			Ref *refNode `json:"ref"`
		} `json:"repository"`
	}

	if err := p.client.Query(
		ctx,
		remote.Op{Name: op, Ref: branch},
		getRefQuery,
		map[string]any{
			"owner":         owner,
			"name":          name,
			"qualifiedName": git.QualifiedName(branch),
		},
		&out,
	); err != nil {
		return git.Ref{}, err
	}

	if out.Repository == nil || out.Repository.Ref == nil {
		return git.Ref{}, notFound(op, branch, "ref")
	}

	return out.Repository.Ref.toRef(owner + "/" + name), nil
}

// CreateRef creates refs/heads/branch at oid. An
// existing ref is reported as an AlreadyExists error.
func (p *Provider) CreateRef(
	ctx context.Context,
	repo git.Repository,
	branch string,
	oid string,
) (git.Ref, error) {
	const op = "CreateRef"

	var out struct {
		CreateRef *struct {
			Ref *refNode `json:"ref"`
		} `json:"createRef"`
	}

	if err := p.client.Query(
		ctx,
		remote.Op{Name: op, Ref: branch, Oid: oid},
		createRefMutation,
		map[string]any{
			"repositoryId": repo.ID,
			"name":         git.QualifiedName(branch),
			"oid":          oid,
		},
		&out,
	); err != nil {
		return git.Ref{}, err
	}

	if out.CreateRef == nil || out.CreateRef.Ref == nil {
		return git.Ref{
			Name:       branch,
			Oid:        oid,
			Repository: repo.NameWithOwner(),
		}, nil
	}

	return out.CreateRef.Ref.toRef(repo.NameWithOwner()), nil
}

// UpdateRefs re-points a branch. Force allows a non
// fast-forward move. When BeforeOid is set, a
// mismatching current target is reported as an
// OptimisticLockConflict.
func (p *Provider) UpdateRefs(
	ctx context.Context,
	repo git.Repository,
	update git.RefUpdate,
) (git.Ref, error) {
	const op = "UpdateRefs"

	refUpdate := map[string]any{
		"name":     git.QualifiedName(update.Branch),
		"afterOid": update.AfterOid,
		"force":    update.Force,
	}

	if update.BeforeOid != "" {
		refUpdate["beforeOid"] = update.BeforeOid
	}

	err := p.client.Query(
		ctx,
		remote.Op{
			Name: op,
			Ref:  update.Branch,
			Oid:  update.AfterOid,
		},
		updateRefsMutation,
		map[string]any{
			"repositoryId": repo.ID,
			"refUpdates":   []any{refUpdate},
		},
		nil,
	)
	if err != nil {
		// A guarded update is rejected as unprocessable
		// when the ref moved.
		if update.BeforeOid != "" &&
			remote.KindOf(err) == remote.KindValidation {
			return git.Ref{}, &remote.Error{
				Kind: remote.KindOptimisticLockConflict,
				Op:   op,
				Ref:  update.Branch,
				Oid:  update.BeforeOid,
				Err:  err,
			}
		}

		return git.Ref{}, err
	}

	return git.Ref{
		Name:       update.Branch,
		Oid:        update.AfterOid,
		Repository: repo.NameWithOwner(),
	}, nil
}

// CompareCommits compares headOid against branch.
func (p *Provider) CompareCommits(
	ctx context.Context,
	owner string,
	name string,
	branch string,
	headOid string,
) (git.Comparison, error) {
	const op = "CompareCommits"

	var out struct {
		Repository *struct {
			Ref *struct {
				Compare *struct {
					Status string `json:"status"`
				} `json:"compare"`
			} `json:"ref"`
		} `json:"repository"`
	}

	if err := p.client.Query(
		ctx,
		remote.Op{Name: op, Ref: branch, Oid: headOid},
		compareCommitsQuery,
		map[string]any{
			"owner":         owner,
			"name":          name,
			"qualifiedName": git.QualifiedName(branch),
			"headRef":       headOid,
		},
		&out,
	); err != nil {
		return "", err
	}

	if out.Repository == nil || out.Repository.Ref == nil ||
		out.Repository.Ref.Compare == nil {
		return "", notFound(op, branch, "comparison")
	}

	return git.Comparison(out.Repository.Ref.Compare.Status), nil
}

// MergeBranch merges head into branch. It returns the
// merge commit oid, or empty when nothing was merged.
func (p *Provider) MergeBranch(
	ctx context.Context,
	repo git.Repository,
	branch string,
	head string,
	message string,
) (string, error) {
	const op = "MergeUpstream"

	var out struct {
		MergeBranch *struct {
			MergeCommit *targetNode `json:"mergeCommit"`
		} `json:"mergeBranch"`
	}

	if err := p.client.Query(
		ctx,
		remote.Op{Name: op, Ref: branch, Oid: head},
		mergeBranchMutation,
		map[string]any{
			"repositoryId":  repo.ID,
			"base":          branch,
			"head":          head,
			"commitMessage": nullable(message),
		},
		&out,
	); err != nil {
		return "", err
	}

	if out.MergeBranch == nil || out.MergeBranch.MergeCommit == nil {
		return "", nil
	}

	return out.MergeBranch.MergeCommit.Oid, nil
}

// GetDirectoryContent lists the directory at path on
// ref. A missing directory is reported as NotFound.
func (p *Provider) GetDirectoryContent(
	ctx context.Context,
	owner string,
	name string,
	ref string,
	path string,
	withText bool,
) ([]git.TreeEntry, error) {
	const op = "GetDirectoryContent"

	query := getDirectoryContentQuery
	if withText {
		query = getDirectoryContentWithTextQuery
	}

	var out struct {
		Repository *struct {
			Object *treeNode `json:"object"`
		} `json:"repository"`
	}

	expression := ref + ":" + strings.Trim(path, "/")

	if err := p.client.Query(
		ctx,
		remote.Op{Name: op, Ref: ref},
		query,
		map[string]any{
			"owner":      owner,
			"name":       name,
			"expression": expression,
		},
		&out,
	); err != nil {
		return nil, err
	}

	if out.Repository == nil || out.Repository.Object == nil {
		return nil, notFound(op, ref, expression)
	}

	if out.Repository.Object.Entries == nil {
		return nil, &remote.Error{
			Kind:    remote.KindValidation,
			Op:      op,
			Ref:     ref,
			Field:   "path",
			Message: expression + " is not a directory",
		}
	}

	nodes := *out.Repository.Object.Entries
	entries := make([]git.TreeEntry, 0, len(nodes))

	for i := range nodes {
		entries = append(entries, nodes[i].toEntry())
	}

	return entries, nil
}

// GetCommit reads a commit's message and parents.
func (p *Provider) GetCommit(
	ctx context.Context,
	owner string,
	name string,
	oid string,
) (git.Commit, error) {
	const op = "GetCommit"

	var out struct {
		Repository *struct {
			Object *commitNode `json:"object"`
		} `json:"repository"`
	}

	if err := p.client.Query(
		ctx,
		remote.Op{Name: op, Oid: oid},
		getCommitQuery,
		map[string]any{
			"owner": owner,
			"name":  name,
			"oid":   oid,
		},
		&out,
	); err != nil {
		return git.Commit{}, err
	}

	if out.Repository == nil || out.Repository.Object == nil ||
		out.Repository.Object.Oid == "" {
		return git.Commit{}, notFound(op, oid, "commit")
	}

	node := out.Repository.Object
	commit := git.Commit{
		Oid:     node.Oid,
		Message: node.Message,
	}

	for _, parent := range node.Parents.Nodes {
		commit.Parents = append(commit.Parents, parent.Oid)
	}

	return commit, nil
}

// CreateCommit submits one atomic commit on the branch
// guarded by the expected head oid.
func (p *Provider) CreateCommit(
	ctx context.Context,
	in git.CommitInput,
) (string, error) {
	const op = "CreateCommit"

	additions := make([]map[string]any, 0, len(in.Additions))
	for _, add := range in.Additions {
		additions = append(additions, map[string]any{
			"path": add.Path,
			"contents": base64.StdEncoding.EncodeToString(
				add.Content,
			),
		})
	}

	deletions := make([]map[string]any, 0, len(in.Deletions))
	for _, path := range in.Deletions {
		deletions = append(deletions, map[string]any{
			"path": path,
		})
	}

	message := map[string]any{"headline": in.Headline()}
	if body := in.Body(); body != "" {
		message["body"] = body
	}

	input := map[string]any{
		"branch": map[string]any{
			"repositoryNameWithOwner": in.Repository,
			"branchName":              in.Branch,
		},
		"message":         message,
		"expectedHeadOid": in.ExpectedHeadOid,
		"fileChanges": map[string]any{
			"additions": additions,
			"deletions": deletions,
		},
	}

	var out struct {
		CreateCommitOnBranch *struct {
			Commit *targetNode `json:"commit"`
		} `json:"createCommitOnBranch"`
	}

	if err := p.client.Query(
		ctx,
		remote.Op{
			Name: op,
			Ref:  in.Branch,
			Oid:  in.ExpectedHeadOid,
		},
		createCommitMutation,
		map[string]any{"input": input},
		&out,
	); err != nil {
		return "", err
	}

	if out.CreateCommitOnBranch == nil ||
		out.CreateCommitOnBranch.Commit == nil {
		return "", &remote.Error{
			Kind:    remote.KindUnknown,
			Op:      op,
			Ref:     in.Branch,
			Oid:     in.ExpectedHeadOid,
			Message: "no commit in response",
		}
	}

	return out.CreateCommitOnBranch.Commit.Oid, nil
}

// GetExistingPullRequest returns the open pull request
// from headOwner:head into base, nil when none exists.
func (p *Provider) GetExistingPullRequest(
	ctx context.Context,
	owner string,
	name string,
	headOwner string,
	head string,
	base string,
) (*git.PullRequest, error) {
	const op = "GetExistingPullRequest"

	var out struct {
		Repository *struct {
			PullRequests struct {
				Nodes []pullRequestNode `json:"nodes"`
			} `json:"pullRequests"`
		} `json:"repository"`
	}

	if err := p.client.Query(
		ctx,
		remote.Op{Name: op, Ref: head},
		getExistingPullRequestQuery,
		map[string]any{
			"owner": owner,
			"name":  name,
			"head":  head,
			"base":  base,
		},
		&out,
	); err != nil {
		return nil, err
	}

	if out.Repository == nil {
		return nil, nil
	}

	for i := range out.Repository.PullRequests.Nodes {
		pr := out.Repository.PullRequests.Nodes[i].toPullRequest()

		if pr.State != git.PullRequestOpen {
			continue
		}

		if headOwner != "" &&
			!strings.EqualFold(pr.HeadOwner, headOwner) {
			continue
		}

		return &pr, nil
	}

	return nil, nil
}

// CreatePullRequest opens a pull request.
func (p *Provider) CreatePullRequest(
	ctx context.Context,
	in git.NewPullRequest,
) (git.PullRequest, error) {
	const op = "CreatePullRequest"

	input := map[string]any{
		"repositoryId": in.RepositoryID,
		"baseRefName":  in.Base,
		"headRefName":  in.Head,
		"title":        in.Title,
		"body":         in.Body,
		"draft":        in.Draft,
	}

	if in.HeadRepositoryID != "" {
		input["headRepositoryId"] = in.HeadRepositoryID
	}

	var out struct {
		CreatePullRequest *struct {
			PullRequest *pullRequestNode `json:"pullRequest"`
		} `json:"createPullRequest"`
	}

	if err := p.client.Query(
		ctx,
		remote.Op{Name: op, Ref: in.Head},
		createPullRequestMutation,
		map[string]any{"input": input},
		&out,
	); err != nil {
		return git.PullRequest{}, err
	}

	if out.CreatePullRequest == nil ||
		out.CreatePullRequest.PullRequest == nil {
		return git.PullRequest{}, &remote.Error{
			Kind:    remote.KindUnknown,
			Op:      op,
			Ref:     in.Head,
			Message: "no pull request in response",
		}
	}

	pr := out.CreatePullRequest.PullRequest.toPullRequest()

	slog.Info(
		"created pull request",
		"url", pr.URL,
		"number", pr.Number,
	)

	return pr, nil
}

// UpdatePullRequest changes the title and body of an
// existing pull request and adds the given labels.
func (p *Provider) UpdatePullRequest(
	ctx context.Context,
	id string,
	update git.PullRequestUpdate,
) (git.PullRequest, error) {
	const op = "UpdatePullRequest"

	input := map[string]any{"pullRequestId": id}

	if update.Title != "" {
		input["title"] = update.Title
	}

	if update.Body != "" {
		input["body"] = update.Body
	}

	var out struct {
		UpdatePullRequest *struct {
			PullRequest *pullRequestNode `json:"pullRequest"`
		} `json:"updatePullRequest"`
	}

	if err := p.client.Query(
		ctx,
		remote.Op{Name: op, Ref: id},
		updatePullRequestMutation,
		map[string]any{"input": input},
		&out,
	); err != nil {
		return git.PullRequest{}, err
	}

	if out.UpdatePullRequest == nil ||
		out.UpdatePullRequest.PullRequest == nil {
		return git.PullRequest{}, notFound(op, id, "pull request")
	}

	if err := p.AddLabels(ctx, id, update.LabelIDs); err != nil {
		return git.PullRequest{}, err
	}

	return out.UpdatePullRequest.PullRequest.toPullRequest(), nil
}

// LabelIDs resolves label names to node ids. Unknown
// labels are skipped with a warning.
func (p *Provider) LabelIDs(
	ctx context.Context,
	owner string,
	name string,
	labels []string,
) ([]string, error) {
	const op = "GetLabel"

	ids := make([]string, 0, len(labels))

	for _, label := range labels {
		var out struct {
			Repository *struct {
				Label *struct {
					ID string `json:"id"`
				} `json:"label"`
			} `json:"repository"`
		}

		if err := p.client.Query(
			ctx,
			remote.Op{Name: op, Ref: label},
			getLabelQuery,
			map[string]any{
				"owner": owner,
				"name":  name,
				"label": label,
			},
			&out,
		); err != nil {
			return nil, err
		}

		if out.Repository == nil || out.Repository.Label == nil {
			slog.Warn("unknown label", "label", label)

			continue
		}

		ids = append(ids, out.Repository.Label.ID)
	}

	return ids, nil
}

// AddLabels attaches labels to a pull request or
// issue. An empty list is a no-op.
func (p *Provider) AddLabels(
	ctx context.Context,
	labelableID string,
	labelIDs []string,
) error {
	const op = "AddLabels"

	if len(labelIDs) == 0 {
		return nil
	}

	return p.client.Query(
		ctx,
		remote.Op{Name: op, Ref: labelableID},
		addLabelsMutation,
		map[string]any{
			"labelableId": labelableID,
			"labelIds":    labelIDs,
		},
		nil,
	)
}

// GetAllValues lists the values of a GraphQL enum.
func (p *Provider) GetAllValues(
	ctx context.Context,
	enum string,
) ([]string, error) {
	const op = "GetAllValues"

	var out struct {
		Type *struct {
			EnumValues []struct {
				Name string `json:"name"`
			} `json:"enumValues"`
		} `json:"__type"`
	}

	if err := p.client.Query(
		ctx,
		remote.Op{Name: op, Ref: enum},
		getAllValuesQuery,
		map[string]any{"enum": enum},
		&out,
	); err != nil {
		return nil, err
	}

	if out.Type == nil {
		return nil, notFound(op, enum, "enum")
	}

	values := make([]string, 0, len(out.Type.EnumValues))
	for _, v := range out.Type.EnumValues {
		values = append(values, v.Name)
	}

	return values, nil
}

// nullable maps empty strings to GraphQL null.
func nullable(s string) any {
	if s == "" {
		return nil
	}

	return s
}

func notFound(op string, ref string, what string) error {
	return &remote.Error{
		Kind:    remote.KindNotFound,
		Op:      op,
		Ref:     ref,
		Message: what + " not found",
	}
}
