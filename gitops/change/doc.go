// Package change describes one proposed package change: its identity, the
// branch name and manifest directory derived from it, and how the version
// relates to the versions already published.
package change
