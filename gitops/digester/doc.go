// Package digester computes git blob object ids for local content so that
// desired files can be compared with remote tree entries by hash alone,
// without downloading or decoding the remote blobs.
package digester
