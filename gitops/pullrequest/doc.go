// Package pullrequest finds, creates, and updates the single open pull
// request of a change. An open pull request for the same head and base is
// always reused, never duplicated. It also re-points the head branch when a
// previous commit is amended.
package pullrequest
