// Package gittest provides an in-memory implementation of the gitops/git
// interfaces for tests: repositories, forks, branches, commits with full file
// sets, and pull requests, with the same optimistic concurrency checks and
// error kinds as the GitHub provider. Failures can be injected per operation.
package gittest
