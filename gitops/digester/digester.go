package digester

import (
	"github.com/go-git/go-git/v5/plumbing"
)

// BlobOID returns the git blob object id of data, the
// same id a remote reports for a tree entry holding
// exactly these bytes.
func BlobOID(data []byte) string {
	return plumbing.ComputeHash(plumbing.BlobObject, data).String()
}
