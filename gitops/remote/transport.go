package remote

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	gh "github.com/google/go-github/v68/github"
)

// Request is one GraphQL document with its variables.
type Request struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// Transport executes a single GraphQL request and
// decodes its "data" member into out. Failures are
// returned as classified *Error values.
type Transport interface {
	Execute(ctx context.Context, req Request, out any) error
}

// TransportFunc adapts a plain function to the
// Transport interface.
type TransportFunc func(
	ctx context.Context,
	req Request,
	out any,
) error

// Execute delegates to the wrapped function.
func (f TransportFunc) Execute(
	ctx context.Context,
	req Request,
	out any,
) error {
	return f(ctx, req, out)
}

// TransportConfig holds the settings needed to reach
// the GitHub GraphQL endpoint.
type TransportConfig struct {
	// AccessToken is the bearer credential supplied by
	// the caller.
	AccessToken string
	// EnterpriseHost is an optional GitHub Enterprise
	// hostname (e.g. "git.corp.example.com"). Leave
	// empty for github.com.
	EnterpriseHost string
	// HTTPClient overrides the underlying HTTP client.
	HTTPClient *http.Client
}

// GitHubTransport posts GraphQL documents through a
// go-github client, reusing its authentication,
// enterprise URL handling, and error types.
type GitHubTransport struct {
	client   *gh.Client
	endpoint string
	now      func() time.Time
}

// envelope is the top-level GraphQL response shape.
type envelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []GraphQLError  `json:"errors"`
}

// NewGitHubTransport validates cfg and returns a
// transport ready to execute requests.
func NewGitHubTransport(
	cfg TransportConfig,
) (*GitHubTransport, error) {
	const errCtx = "creating github transport"

	if cfg.AccessToken == "" {
		return nil, fmt.Errorf(
			"%s: access token must be set", errCtx,
		)
	}

	client := gh.NewClient(cfg.HTTPClient).
		WithAuthToken(cfg.AccessToken)

	endpoint := "graphql"

	if cfg.EnterpriseHost != "" {
		baseURL := "https://" +
			cfg.EnterpriseHost + "/api/v3/"
		uploadURL := "https://" +
			cfg.EnterpriseHost + "/api/uploads/"

		var err error

		client, err = client.WithEnterpriseURLs(
			baseURL, uploadURL,
		)
		if err != nil {
			return nil, fmt.Errorf(
				"%s: enterprise urls: %w",
				errCtx, err,
			)
		}

		// Enterprise serves GraphQL at /api/graphql,
		// next to the /api/v3/ REST root.
		endpoint = "../graphql"
	}

	return &GitHubTransport{
		client:   client,
		endpoint: endpoint,
		now:      time.Now,
	}, nil
}

// NewGitHubTransportFromClient wraps an existing
// go-github client. endpoint is resolved against the
// client's BaseURL.
func NewGitHubTransportFromClient(
	client *gh.Client,
	endpoint string,
) *GitHubTransport {
	if endpoint == "" {
		endpoint = "graphql"
	}

	return &GitHubTransport{
		client:   client,
		endpoint: endpoint,
		now:      time.Now,
	}
}

// Client exposes the go-github client for the few
// operations only available over REST.
func (t *GitHubTransport) Client() *gh.Client {
	return t.client
}

// Execute posts req and decodes the response data into
// out. GraphQL-level errors take precedence over data.
func (t *GitHubTransport) Execute(
	ctx context.Context,
	req Request,
	out any,
) error {
	const errCtx = "executing graphql request"

	hreq, err := t.client.NewRequest(
		http.MethodPost, t.endpoint, req,
	)
	if err != nil {
		return &Error{
			Kind:    KindValidation,
			Message: fmt.Sprintf("%s: %v", errCtx, err),
			Err:     err,
		}
	}

	var buf bytes.Buffer

	resp, err := t.client.Do(ctx, hreq, &buf)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%s: %w", errCtx, err)
		}

		return ClassifyHTTP(err)
	}

	var env envelope
	if err := json.Unmarshal(buf.Bytes(), &env); err != nil {
		return &Error{
			Kind:    KindTransientNetwork,
			Message: "malformed graphql response",
			Err:     err,
		}
	}

	if gqlErr := ClassifyGraphQL(env.Errors); gqlErr != nil {
		if gqlErr.Kind == KindRateLimited {
			gqlErr.RetryAfter = rateLimitWait(resp, t.now())
		}

		return gqlErr
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}

	if err := json.Unmarshal(env.Data, out); err != nil {
		return &Error{
			Kind:    KindUnknown,
			Message: "decoding graphql data",
			Err:     err,
		}
	}

	return nil
}

// rateLimitWait reads the wait hinted by a successful
// HTTP response carrying a GraphQL rate limit error:
// the longer of Retry-After and the reset of an
// exhausted primary limit.
func rateLimitWait(resp *gh.Response, now time.Time) time.Duration {
	if resp == nil || resp.Response == nil {
		return 0
	}

	wait := parseRetryAfter(resp.Header.Get("Retry-After"), now)

	// go-github refuses requests locally until an
	// exhausted limit resets.
	if resp.Rate.Remaining == 0 && !resp.Rate.Reset.IsZero() {
		wait = max(wait, resp.Rate.Reset.Sub(now))
	}

	return wait
}
