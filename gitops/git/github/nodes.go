package github

import (
	"strings"

	"github.com/byte4ever/manifest_submit/gitops/git"
)

// Response shapes. Each operation decodes into its own
// struct so that an outcome is either a typed value or
// a classified error, never an untyped blob.

type ownerNode struct {
	Login string `json:"login"`
}

type targetNode struct {
	Oid string `json:"oid"`
}

type refNode struct {
	ID     string      `json:"id"`
	Name   string      `json:"name"`
	Target *targetNode `json:"target"`
}

func (n *refNode) toRef(repo string) git.Ref {
	ref := git.Ref{
		ID:         n.ID,
		Name:       git.ShortName(n.Name),
		Repository: repo,
	}

	if n.Target != nil {
		ref.Oid = n.Target.Oid
	}

	return ref
}

type repositoryNode struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	Owner            ownerNode       `json:"owner"`
	DefaultBranchRef *refNode        `json:"defaultBranchRef"`
	Parent           *repositoryNode `json:"parent"`
}

func (n *repositoryNode) toRepository() git.Repository {
	repo := git.Repository{
		ID:    n.ID,
		Owner: n.Owner.Login,
		Name:  n.Name,
	}

	if n.DefaultBranchRef != nil {
		repo.DefaultBranch = n.DefaultBranchRef.Name

		if n.DefaultBranchRef.Target != nil {
			repo.DefaultBranchOid = n.DefaultBranchRef.Target.Oid
		}
	}

	if n.Parent != nil {
		parent := n.Parent.toRepository()
		repo.Parent = &parent
	}

	return repo
}

type blobNode struct {
	IsBinary *bool   `json:"isBinary"`
	ByteSize int     `json:"byteSize"`
	Text     *string `json:"text"`
}

type entryNode struct {
	Name   string    `json:"name"`
	Path   string    `json:"path"`
	Type   string    `json:"type"`
	Mode   int       `json:"mode"`
	Oid    string    `json:"oid"`
	Size   int       `json:"size"`
	Object *blobNode `json:"object"`
}

func (n *entryNode) toEntry() git.TreeEntry {
	entry := git.TreeEntry{
		Path: n.Path,
		Mode: n.Mode,
		Type: git.EntryType(n.Type),
		Oid:  n.Oid,
		Size: n.Size,
	}

	if n.Object == nil {
		return entry
	}

	if n.Object.ByteSize > 0 {
		entry.Size = n.Object.ByteSize
	}

	if n.Object.IsBinary != nil && *n.Object.IsBinary {
		entry.Binary = true

		return entry
	}

	if n.Object.Text != nil {
		entry.Text = *n.Object.Text
		entry.HasText = true
	}

	return entry
}

type treeNode struct {
	Entries *[]entryNode `json:"entries"`
}

type pullRequestNode struct {
	ID                  string     `json:"id"`
	Number              int        `json:"number"`
	URL                 string     `json:"url"`
	Title               string     `json:"title"`
	Body                string     `json:"body"`
	State               string     `json:"state"`
	HeadRefName         string     `json:"headRefName"`
	BaseRefName         string     `json:"baseRefName"`
	HeadRepositoryOwner *ownerNode `json:"headRepositoryOwner"`
}

func (n *pullRequestNode) toPullRequest() git.PullRequest {
	pr := git.PullRequest{
		ID:     n.ID,
		Number: n.Number,
		URL:    n.URL,
		Head:   n.HeadRefName,
		Base:   n.BaseRefName,
		Title:  n.Title,
		Body:   n.Body,
		State:  git.PullRequestState(strings.ToUpper(n.State)),
	}

	if n.HeadRepositoryOwner != nil {
		pr.HeadOwner = n.HeadRepositoryOwner.Login
	}

	return pr
}

type pageInfoNode struct {
	HasNextPage bool   `json:"hasNextPage"`
	EndCursor   string `json:"endCursor"`
}

type commitNode struct {
	Oid     string `json:"oid"`
	Message string `json:"message"`
	Parents struct {
		Nodes []targetNode `json:"nodes"`
	} `json:"parents"`
}
