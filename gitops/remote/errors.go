package remote

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Kind classifies a remote failure.
type Kind int

const (
	// KindUnknown is any failure that could not be
	// classified.
	KindUnknown Kind = iota
	// KindNotFound means the repository, ref, or
	// object does not exist or is not visible.
	KindNotFound
	// KindPermissionDenied means the credential lacks
	// the required scope.
	KindPermissionDenied
	// KindOptimisticLockConflict means the expected
	// head oid did not match the ref's true head.
	KindOptimisticLockConflict
	// KindMergeConflict means a merge could not be
	// completed without manual resolution.
	KindMergeConflict
	// KindRateLimited means the remote asked us to
	// slow down.
	KindRateLimited
	// KindValidation means the remote rejected the
	// input.
	KindValidation
	// KindTransientNetwork covers 5xx responses,
	// timeouts, and dropped connections.
	KindTransientNetwork
	// KindAlreadyExists means the object to create is
	// already there.
	KindAlreadyExists
	// KindPayloadTooLarge means the response or
	// request exceeded the remote's size limits.
	KindPayloadTooLarge
)

var kindNames = map[Kind]string{
	KindUnknown:                "unknown",
	KindNotFound:               "not found",
	KindPermissionDenied:       "permission denied",
	KindOptimisticLockConflict: "optimistic lock conflict",
	KindMergeConflict:          "merge conflict",
	KindRateLimited:            "rate limited",
	KindValidation:             "validation error",
	KindTransientNetwork:       "transient network error",
	KindAlreadyExists:          "already exists",
	KindPayloadTooLarge:        "payload too large",
}

// String returns a human readable kind name.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}

	return fmt.Sprintf("kind(%d)", int(k))
}

// Transient reports whether failures of this kind are
// worth retrying.
func (k Kind) Transient() bool {
	return k == KindRateLimited || k == KindTransientNetwork
}

// Error is a classified remote failure. Op names the
// remote operation; Ref and Oid carry the ref and
// object involved, when known.
type Error struct {
	Kind       Kind
	Op         string
	Ref        string
	Oid        string
	Field      string
	Message    string
	RetryAfter time.Duration
	// Attempts is the number of attempts made before
	// the error was returned.
	Attempts int
	Err      error
}

// Sentinels for errors.Is matching by kind.
var (
	ErrNotFound               = &Error{Kind: KindNotFound}
	ErrPermissionDenied       = &Error{Kind: KindPermissionDenied}
	ErrOptimisticLockConflict = &Error{Kind: KindOptimisticLockConflict}
	ErrMergeConflict          = &Error{Kind: KindMergeConflict}
	ErrRateLimited            = &Error{Kind: KindRateLimited}
	ErrValidation             = &Error{Kind: KindValidation}
	ErrTransientNetwork       = &Error{Kind: KindTransientNetwork}
	ErrAlreadyExists          = &Error{Kind: KindAlreadyExists}
	ErrPayloadTooLarge        = &Error{Kind: KindPayloadTooLarge}
	ErrUnknown                = &Error{Kind: KindUnknown}
)

// Error renders the failure with its operation and
// the ref/oid context.
func (e *Error) Error() string {
	var sb strings.Builder

	if e.Op != "" {
		sb.WriteString(e.Op)
		sb.WriteString(": ")
	}

	sb.WriteString(e.Kind.String())

	if e.Field != "" {
		sb.WriteString(" on ")
		sb.WriteString(e.Field)
	}

	if e.Message != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Message)
	}

	if e.Ref != "" {
		sb.WriteString(" (ref ")
		sb.WriteString(e.Ref)
		sb.WriteString(")")
	}

	if e.Oid != "" {
		sb.WriteString(" (oid ")
		sb.WriteString(e.Oid)
		sb.WriteString(")")
	}

	if e.RetryAfter > 0 {
		fmt.Fprintf(&sb, " (retry after %s)", e.RetryAfter)
	}

	if e.Err != nil && e.Message == "" {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}

	return sb.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches sentinel errors by kind.
func (e *Error) Is(target error) bool {
	var te *Error
	if !errors.As(target, &te) {
		return false
	}

	return te.Op == "" && te.Kind == e.Kind
}

// WithContext returns a copy of e carrying the given
// operation, ref, and oid when they are not already
// set.
func (e *Error) WithContext(
	op string,
	ref string,
	oid string,
) *Error {
	cp := *e

	if cp.Op == "" {
		cp.Op = op
	}

	if cp.Ref == "" {
		cp.Ref = ref
	}

	if cp.Oid == "" {
		cp.Oid = oid
	}

	return &cp
}

// KindOf extracts the kind of err. Errors that are not
// classified report KindUnknown.
func KindOf(err error) Kind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}

	return KindUnknown
}

// IsRetryable reports whether err is a transient
// remote failure.
func IsRetryable(err error) bool {
	return KindOf(err).Transient()
}

// RetryAfterOf returns the retry hint carried by err,
// zero when none.
func RetryAfterOf(err error) time.Duration {
	var re *Error
	if errors.As(err, &re) {
		return re.RetryAfter
	}

	return 0
}
