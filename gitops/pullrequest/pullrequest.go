package pullrequest

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/byte4ever/manifest_submit/gitops/git"
	"github.com/byte4ever/manifest_submit/gitops/remote"
)

// stateEnum is the schema enum holding pull request
// states.
const stateEnum = "PullRequestState"

// Config holds the settings needed to manage pull
// requests.
type Config struct {
	// Upstream receives the pull request.
	Upstream git.Repository
	// Head carries the branch; equal to Upstream when
	// no fork is used.
	Head git.Repository
	// Labels are added to created and reused pull
	// requests. Unknown labels are skipped.
	Labels []string
	// Draft opens new pull requests as drafts.
	Draft bool
}

// Manager manages the pull requests of one repository
// pair.
type Manager struct {
	api git.PullRequestAPI
	cfg Config

	mu            sync.Mutex
	statesChecked bool
}

// New validates cfg and returns a Manager.
func New(api git.PullRequestAPI, cfg Config) (*Manager, error) {
	const errCtx = "creating pull request manager"

	if api == nil {
		return nil, fmt.Errorf("%s: api must not be nil", errCtx)
	}

	if cfg.Upstream.ID == "" || cfg.Head.ID == "" {
		return nil, fmt.Errorf(
			"%s: upstream and head repositories must be resolved",
			errCtx,
		)
	}

	return &Manager{api: api, cfg: cfg}, nil
}

// FindOpenPullRequest returns the open pull request
// from the head repository's branch head into base, or
// nil.
func (m *Manager) FindOpenPullRequest(
	ctx context.Context,
	head string,
	base string,
) (*git.PullRequest, error) {
	const errCtx = "finding open pull request"

	if err := m.checkStates(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	pr, err := m.api.GetExistingPullRequest(
		ctx,
		m.cfg.Upstream.Owner, m.cfg.Upstream.Name,
		m.cfg.Head.Owner, head, base,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	return pr, nil
}

// CreatePullRequest opens a pull request from head into
// base. An empty body is replaced by the title.
func (m *Manager) CreatePullRequest(
	ctx context.Context,
	head string,
	base string,
	title string,
	body string,
) (git.PullRequest, error) {
	const errCtx = "creating pull request"

	in := git.NewPullRequest{
		RepositoryID: m.cfg.Upstream.ID,
		Head:         head,
		Base:         base,
		Title:        title,
		Body:         body,
		Draft:        m.cfg.Draft,
	}

	if m.cfg.Head.ID != m.cfg.Upstream.ID {
		in.HeadRepositoryID = m.cfg.Head.ID
	}

	creator := git.PullRequestCreatorFunc(m.api.CreatePullRequest)

	pr, err := creator.CreatePullRequest(ctx, in)
	if err != nil {
		return git.PullRequest{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	return pr, nil
}

// Ensure reuses the open pull request for head and
// base, updating its title, body, and labels, or
// creates one. created reports which happened.
func (m *Manager) Ensure(
	ctx context.Context,
	head string,
	base string,
	title string,
	body string,
) (pr git.PullRequest, created bool, err error) {
	const errCtx = "ensuring pull request"

	existing, err := m.FindOpenPullRequest(ctx, head, base)
	if err != nil {
		return git.PullRequest{}, false, err
	}

	labelIDs, err := m.labelIDs(ctx)
	if err != nil {
		return git.PullRequest{}, false, fmt.Errorf("%s: %w", errCtx, err)
	}

	if existing != nil {
		pr, err = m.api.UpdatePullRequest(ctx, existing.ID, git.PullRequestUpdate{
			Title:    title,
			Body:     body,
			LabelIDs: labelIDs,
		})
		if err != nil {
			return git.PullRequest{}, false, fmt.Errorf(
				"%s: updating #%d: %w", errCtx, existing.Number, err,
			)
		}

		slog.Info(
			"reusing pull request",
			"number", pr.Number,
			"url", pr.URL,
		)

		return pr, false, nil
	}

	pr, err = m.CreatePullRequest(ctx, head, base, title, body)
	if err != nil {
		return git.PullRequest{}, false, err
	}

	if err := m.api.AddLabels(ctx, pr.ID, labelIDs); err != nil {
		return pr, true, fmt.Errorf(
			"%s: labelling #%d: %w", errCtx, pr.Number, err,
		)
	}

	return pr, true, nil
}

// UpdateRefs re-points branch of the head repository
// to newOid, expecting it at expectedOid. The move need
// not be a fast-forward.
func (m *Manager) UpdateRefs(
	ctx context.Context,
	branch string,
	expectedOid string,
	newOid string,
) (git.Ref, error) {
	const errCtx = "updating ref"

	ref, err := m.api.UpdateRefs(ctx, m.cfg.Head, git.RefUpdate{
		Branch:    branch,
		BeforeOid: expectedOid,
		AfterOid:  newOid,
		Force:     true,
	})
	if err != nil {
		return git.Ref{}, fmt.Errorf("%s: %s: %w", errCtx, branch, err)
	}

	slog.Info(
		"re-pointed branch",
		"branch", branch,
		"from", expectedOid,
		"to", newOid,
	)

	return ref, nil
}

func (m *Manager) labelIDs(ctx context.Context) ([]string, error) {
	if len(m.cfg.Labels) == 0 {
		return nil, nil
	}

	return m.api.LabelIDs(
		ctx, m.cfg.Upstream.Owner, m.cfg.Upstream.Name, m.cfg.Labels,
	)
}

// checkStates verifies once that the remote schema
// still knows the OPEN state the lookup filters on.
func (m *Manager) checkStates(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.statesChecked {
		return nil
	}

	values, err := m.api.GetAllValues(ctx, stateEnum)
	if err != nil {
		return err
	}

	if !slices.Contains(values, string(git.PullRequestOpen)) {
		return &remote.Error{
			Kind:    remote.KindValidation,
			Op:      "GetAllValues",
			Ref:     stateEnum,
			Message: "OPEN is not a pull request state",
		}
	}

	m.statesChecked = true

	return nil
}
