// Package snapshot resolves the repositories a run works against: the
// upstream repository that receives the pull request and the head repository
// (a fork, or the upstream itself) that carries the branch. Results are
// authoritative only for the instant they were read; later steps re-read oids
// before mutating anything.
package snapshot
