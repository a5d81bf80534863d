// Package github implements the gitops/git interfaces on top of the GitHub
// GraphQL API (cloud or enterprise): repository info, branch listing and
// creation, tree listing with optional decoded text, guarded commits and ref
// updates, upstream merges, and pull-request lookup, creation, and update.
//
// Every call goes through a remote.Client so that transient failures are
// retried and rate limits are honoured process-wide. Configure with a Config
// containing the access token. Set EnterpriseHost for GitHub Enterprise
// installations.
package github
