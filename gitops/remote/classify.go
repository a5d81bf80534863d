package remote

import (
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"syscall"
	"time"

	gh "github.com/google/go-github/v68/github"
)

// GraphQLError is one entry of the "errors" array of a
// GraphQL response.
type GraphQLError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Path    []any  `json:"path"`
}

// graphQLKinds maps GitHub GraphQL error types to
// kinds.
var graphQLKinds = map[string]Kind{
	"NOT_FOUND":                KindNotFound,
	"FORBIDDEN":                KindPermissionDenied,
	"INSUFFICIENT_SCOPES":      KindPermissionDenied,
	"RATE_LIMITED":             KindRateLimited,
	"UNPROCESSABLE":            KindValidation,
	"STALE_DATA":               KindOptimisticLockConflict,
	"MAX_NODE_LIMIT_EXCEEDED":  KindPayloadTooLarge,
	"RESOURCE_LIMITS_EXCEEDED": KindPayloadTooLarge,
	"SERVICE_UNAVAILABLE":      KindTransientNetwork,
	"INTERNAL":                 KindTransientNetwork,
}

// messageKinds are matched against lower-cased error
// messages before the type mapping, since GitHub
// reports several distinct conditions as
// UNPROCESSABLE.
var messageKinds = []struct {
	needle string
	kind   Kind
}{
	{needle: "already exists", kind: KindAlreadyExists},
	{needle: "but it did not", kind: KindOptimisticLockConflict},
	{needle: "expected head oid", kind: KindOptimisticLockConflict},
	{needle: "is not a fast forward", kind: KindOptimisticLockConflict},
	{needle: "merge conflict", kind: KindMergeConflict},
	{needle: "too large", kind: KindPayloadTooLarge},
	{needle: "timeout", kind: KindTransientNetwork},
	{needle: "something went wrong", kind: KindTransientNetwork},
}

// ClassifyGraphQL turns the errors array of a GraphQL
// response into a classified Error. The first entry
// decides the kind; all messages are kept.
func ClassifyGraphQL(errs []GraphQLError) *Error {
	if len(errs) == 0 {
		return nil
	}

	first := errs[0]

	kind := KindUnknown
	if k, ok := graphQLKinds[first.Type]; ok {
		kind = k
	}

	lower := strings.ToLower(first.Message)
	for _, mk := range messageKinds {
		if strings.Contains(lower, mk.needle) {
			kind = mk.kind

			break
		}
	}

	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.Message)
	}

	return &Error{
		Kind:    kind,
		Field:   pathString(first.Path),
		Message: strings.Join(msgs, "; "),
	}
}

// ClassifyHTTP turns a transport-level failure
// returned by the go-github client into a classified
// Error.
func ClassifyHTTP(err error) *Error {
	if err == nil {
		return nil
	}

	var re *Error
	if errors.As(err, &re) {
		return re
	}

	var rle *gh.RateLimitError
	if errors.As(err, &rle) {
		wait := time.Until(rle.Rate.Reset.Time)
		if wait < 0 {
			wait = 0
		}

		return &Error{
			Kind:       KindRateLimited,
			Message:    rle.Message,
			RetryAfter: wait,
			Err:        err,
		}
	}

	var abuse *gh.AbuseRateLimitError
	if errors.As(err, &abuse) {
		var wait time.Duration
		if abuse.RetryAfter != nil {
			wait = *abuse.RetryAfter
		}

		return &Error{
			Kind:       KindRateLimited,
			Message:    abuse.Message,
			RetryAfter: wait,
			Err:        err,
		}
	}

	var er *gh.ErrorResponse
	if errors.As(err, &er) {
		out := &Error{
			Kind:    KindUnknown,
			Message: er.Message,
			Err:     err,
		}

		if er.Response != nil {
			out.Kind = statusKind(er.Response.StatusCode)
			out.RetryAfter = parseRetryAfter(
				er.Response.Header.Get("Retry-After"),
				time.Now(),
			)
		}

		return out
	}

	var ne net.Error
	if errors.As(err, &ne) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) {
		return &Error{Kind: KindTransientNetwork, Err: err}
	}

	return &Error{Kind: KindUnknown, Err: err}
}

// statusKind maps an HTTP status code to a kind.
func statusKind(code int) Kind {
	switch {
	case code == http.StatusUnauthorized,
		code == http.StatusForbidden:
		return KindPermissionDenied
	case code == http.StatusNotFound:
		return KindNotFound
	case code == http.StatusConflict:
		return KindMergeConflict
	case code == http.StatusRequestEntityTooLarge:
		return KindPayloadTooLarge
	case code == http.StatusUnprocessableEntity,
		code == http.StatusBadRequest:
		return KindValidation
	case code == http.StatusTooManyRequests:
		return KindRateLimited
	case code == http.StatusRequestTimeout,
		code >= http.StatusInternalServerError:
		return KindTransientNetwork
	default:
		return KindUnknown
	}
}

// parseRetryAfter reads a Retry-After header holding
// either delay seconds or an HTTP date.
func parseRetryAfter(val string, now time.Time) time.Duration {
	val = strings.TrimSpace(val)
	if val == "" {
		return 0
	}

	if secs, err := strconv.Atoi(val); err == nil {
		if secs < 0 {
			return 0
		}

		return time.Duration(secs) * time.Second
	}

	at, err := http.ParseTime(val)
	if err != nil {
		return 0
	}

	if d := at.Sub(now); d > 0 {
		return d
	}

	return 0
}

func pathString(path []any) string {
	if len(path) == 0 {
		return ""
	}

	parts := make([]string, 0, len(path))

	for _, p := range path {
		switch v := p.(type) {
		case string:
			parts = append(parts, v)
		case float64:
			parts = append(parts, strconv.Itoa(int(v)))
		default:
			continue
		}
	}

	return strings.Join(parts, ".")
}
