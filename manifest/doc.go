// Package manifest loads the desired files of a change
// from a local directory of YAML manifests and derives
// the change identity from their PackageIdentifier and
// PackageVersion fields.
package manifest
