// Package commit submits one atomic commit per change under optimistic
// concurrency control: every submission names the head oid it expects, and a
// moved branch is re-read and the submission retried a bounded number of
// times.
package commit
