// Package commitmsg embeds change keys in commit messages between marker
// lines so that a later run can recognise a commit it produced itself and
// amend it instead of stacking another one.
package commitmsg
