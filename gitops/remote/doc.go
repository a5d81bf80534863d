// Package remote is the single gateway between the gitops pipeline and a
// hosted git service. It executes GraphQL documents over a go-github client,
// classifies every failure into a small Kind taxonomy, and retries transient
// failures with exponential backoff and jitter.
//
// A Client holds one rate-limit gate for all of its callers: when any call is
// told to slow down, every later attempt through the same Client waits until
// the advertised time has passed.
package remote
