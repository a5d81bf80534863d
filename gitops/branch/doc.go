// Package branch lists and ensures branch refs. Branch names are idempotency
// keys: ensuring a branch that already exists returns the existing ref
// unchanged, so repeated runs for the same change converge on one branch.
package branch
