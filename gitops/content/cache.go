package content

import (
	"path"
	"sort"
	"strings"

	"github.com/byte4ever/manifest_submit/gitops/git"
)

// Cache is the DirectoryContentCache: the entries found
// under one root directory during a single fetch. It is
// discarded after use.
type Cache struct {
	root    string
	exists  bool
	entries map[string]git.TreeEntry
	pending []string
}

func newCache(root string) *Cache {
	return &Cache{
		root:    strings.Trim(root, "/"),
		entries: map[string]git.TreeEntry{},
	}
}

// Root returns the directory the cache was fetched
// from.
func (c *Cache) Root() string { return c.root }

// Exists reports whether the root directory exists.
func (c *Cache) Exists() bool { return c.exists }

// Complete reports whether every subtree under the
// root was fetched.
func (c *Cache) Complete() bool { return len(c.pending) == 0 }

// Pending returns the subtrees left unexpanded.
func (c *Cache) Pending() []string {
	out := append([]string(nil), c.pending...)
	sort.Strings(out)

	return out
}

// Get returns the entry at p.
func (c *Cache) Get(p string) (git.TreeEntry, bool) {
	e, ok := c.entries[strings.Trim(p, "/")]

	return e, ok
}

// Blobs returns the blob entries under prefix, sorted
// by path. An empty prefix selects every blob.
func (c *Cache) Blobs(prefix string) []git.TreeEntry {
	prefix = strings.Trim(prefix, "/")

	var out []git.TreeEntry

	for p, e := range c.entries {
		if e.Type != git.EntryBlob || !within(p, prefix) {
			continue
		}

		out = append(out, e)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Path < out[j].Path
	})

	return out
}

// Children returns the direct entries of dir, sorted by
// path.
func (c *Cache) Children(dir string) []git.TreeEntry {
	dir = strings.Trim(dir, "/")

	var out []git.TreeEntry

	for p, e := range c.entries {
		if path.Dir(p) == dir || (dir == "" && !strings.Contains(p, "/")) {
			out = append(out, e)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Path < out[j].Path
	})

	return out
}

func (c *Cache) add(e git.TreeEntry) {
	c.entries[strings.Trim(e.Path, "/")] = e
}

// within reports whether p is prefix or below it.
func within(p string, prefix string) bool {
	return prefix == "" || p == prefix ||
		strings.HasPrefix(p, prefix+"/")
}
