// Package prer proposes one manifest change as a pull
// request without a local clone. Run walks the states
// Init, SnapshotFetched, BranchResolved, Synced,
// DiffComputed, Committed, PullRequestReady, and Done.
// Every step talks to the remote through the gitops/git
// interfaces, so a failed run leaves only valid remote
// state behind and the next run resumes from it through
// the deterministic branch name and the open pull
// request lookup.
package prer
