// Package git models a hosted git repository without a working copy: the
// repository identity, branch refs, tree entries, commit submissions, and pull
// requests that the gitops pipeline manipulates through a remote API.
//
// The interfaces in this package slice the remote into the few operations each
// pipeline component needs. The github sub-package implements all of them on
// top of the GitHub GraphQL API. PullRequestCreatorFunc is a convenience
// adapter that lets plain functions satisfy PullRequestCreator.
package git
