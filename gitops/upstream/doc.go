// Package upstream brings a working branch up to date with the upstream
// default branch before a commit is composed on it. Merge conflicts are
// reported as an outcome and never resolved automatically.
package upstream
