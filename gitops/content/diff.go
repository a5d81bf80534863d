package content

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/byte4ever/manifest_submit/gitops/digester"
	"github.com/byte4ever/manifest_submit/gitops/git"
	"github.com/byte4ever/manifest_submit/gitops/remote"
)

const blobMode = 0o100644

// Diff is the change set turning an existing tree into
// the desired one.
type Diff struct {
	// Additions are new or modified files, sorted by
	// path.
	Additions []git.TreeEntry
	// Deletions are paths to remove, sorted.
	Deletions []string
	// Unchanged are desired paths already present with
	// identical content.
	Unchanged []string
}

// Empty reports whether the diff changes nothing.
func (d Diff) Empty() bool {
	return len(d.Additions) == 0 && len(d.Deletions) == 0
}

// ComputeDiff compares desired (path to content)
// against existing. Only blobs under managed are
// candidates for deletion. existing must be complete.
func ComputeDiff(
	existing *Cache,
	desired map[string][]byte,
	managed string,
) (Diff, error) {
	const errCtx = "computing diff"

	if existing == nil {
		existing = newCache(managed)
	}

	if !existing.Complete() {
		return Diff{}, fmt.Errorf("%s: %w", errCtx, &remote.Error{
			Kind: remote.KindPayloadTooLarge,
			Op:   "GetDirectoryContent",
			Ref:  existing.Root(),
			Message: "tree not fully fetched: " +
				strings.Join(existing.Pending(), ", "),
		})
	}

	var d Diff

	for p, data := range desired {
		p = strings.Trim(p, "/")
		oid := digester.BlobOID(data)

		if e, ok := existing.Get(p); ok &&
			e.Type == git.EntryBlob && e.Oid == oid {
			d.Unchanged = append(d.Unchanged, p)

			continue
		}

		d.Additions = append(d.Additions, git.TreeEntry{
			Path:    p,
			Mode:    blobMode,
			Type:    git.EntryBlob,
			Oid:     oid,
			Size:    len(data),
			Content: data,
		})
	}

	wanted := make(map[string]bool, len(desired))
	for p := range desired {
		wanted[strings.Trim(p, "/")] = true
	}

	for _, e := range existing.Blobs(managed) {
		if !wanted[e.Path] {
			d.Deletions = append(d.Deletions, e.Path)
		}
	}

	sort.Slice(d.Additions, func(i, j int) bool {
		return d.Additions[i].Path < d.Additions[j].Path
	})
	sort.Strings(d.Deletions)
	sort.Strings(d.Unchanged)

	return d, nil
}

// Preview renders d as unified diffs against the text
// held by existing. Entries without cached text are
// summarised by oid.
func Preview(existing *Cache, d Diff) string {
	var sb strings.Builder

	for _, add := range d.Additions {
		var (
			old      string
			fromFile = "/dev/null"
		)

		if existing != nil {
			if e, ok := existing.Get(add.Path); ok {
				fromFile = "a/" + add.Path

				if !e.HasText {
					fmt.Fprintf(
						&sb, "modified %s (%s -> %s)\n",
						add.Path, short(e.Oid), short(add.Oid),
					)

					continue
				}

				old = e.Text
			}
		}

		if isBinary(add.Content) {
			fmt.Fprintf(&sb, "binary %s (%s)\n", add.Path, short(add.Oid))

			continue
		}

		var before []string
		if old != "" {
			before = difflib.SplitLines(old)
		}

		text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:        before,
			B:        difflib.SplitLines(string(add.Content)),
			FromFile: fromFile,
			ToFile:   "b/" + add.Path,
			Context:  3,
		})
		if err != nil {
			fmt.Fprintf(&sb, "modified %s\n", add.Path)

			continue
		}

		sb.WriteString(text)
	}

	for _, p := range d.Deletions {
		fmt.Fprintf(&sb, "deleted %s\n", p)
	}

	return sb.String()
}

func isBinary(data []byte) bool {
	return bytes.IndexByte(data, 0) >= 0
}

func short(oid string) string {
	if len(oid) > 7 {
		return oid[:7]
	}

	return oid
}
