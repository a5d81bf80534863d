// Package content reads remote trees into a DirectoryContentCache and diffs
// them against a desired file set.
//
// A fetch is either shallow (one directory) or deep (breadth-first to a
// bounded depth, each level's directories fetched with bounded concurrency).
// Text is decoded only for non-binary blobs under a size threshold; other
// blobs are known by oid alone. Desired content is compared with remote
// entries through git blob oids, so unchanged files never need decoding.
//
// A cache that still holds unexpanded subtrees is incomplete and is refused by
// Diff.
package content
