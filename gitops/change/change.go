package change

import (
	"fmt"
	"path"
	"sort"
	"strings"
	"unicode"
)

// Change is one package version to propose.
type Change struct {
	PackageIdentifier string
	PackageVersion    string
	// Files maps file names, relative to the manifest
	// directory, to their content.
	Files map[string][]byte
}

// Validate checks that the identity can be turned into
// paths and a branch name.
func (c Change) Validate() error {
	const errCtx = "validating change"

	switch {
	case strings.TrimSpace(c.PackageIdentifier) == "":
		return fmt.Errorf("%s: package identifier must be set", errCtx)
	case strings.TrimSpace(c.PackageVersion) == "":
		return fmt.Errorf("%s: package version must be set", errCtx)
	case strings.ContainsAny(c.PackageIdentifier, `/\`) ||
		strings.ContainsAny(c.PackageVersion, `/\`):
		return fmt.Errorf("%s: identity must not contain path separators", errCtx)
	case len(c.Files) == 0:
		return fmt.Errorf("%s: no manifest files", errCtx)
	}

	for name := range c.Files {
		if name == "" || strings.Contains(name, "..") ||
			path.IsAbs(name) {
			return fmt.Errorf("%s: invalid file name %q", errCtx, name)
		}
	}

	return nil
}

// Key identifies the change in commit message markers.
func (c Change) Key() string {
	return c.PackageIdentifier + " " + c.PackageVersion
}

// BranchName derives the idempotency key of the change:
// the same identity always yields the same branch.
func (c Change) BranchName() string {
	return SanitizeRefName(c.PackageIdentifier + "-" + c.PackageVersion)
}

// PackageDir returns root/<first letter>/<identifier
// parts>.
func (c Change) PackageDir(root string) string {
	parts := strings.Split(c.PackageIdentifier, ".")

	first := ""
	for _, r := range c.PackageIdentifier {
		first = string(unicode.ToLower(r))

		break
	}

	return path.Join(append([]string{root, first}, parts...)...)
}

// ManifestDir returns the directory holding the files
// of this version.
func (c Change) ManifestDir(root string) string {
	return path.Join(c.PackageDir(root), c.PackageVersion)
}

// DesiredFiles returns the files keyed by their full
// repository path under root.
func (c Change) DesiredFiles(root string) map[string][]byte {
	dir := c.ManifestDir(root)
	out := make(map[string][]byte, len(c.Files))

	for name, content := range c.Files {
		out[path.Join(dir, name)] = content
	}

	return out
}

// FileNames returns the sorted file names.
func (c Change) FileNames() []string {
	names := make([]string, 0, len(c.Files))
	for name := range c.Files {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// SanitizeRefName replaces what git refuses in a branch
// name with '-'.
func SanitizeRefName(name string) string {
	var sb strings.Builder

	for _, r := range name {
		switch {
		case r < 0x20 || r == 0x7f,
			strings.ContainsRune(" ~^:?*[\\", r):
			sb.WriteByte('-')
		default:
			sb.WriteRune(r)
		}
	}

	out := sb.String()

	for strings.Contains(out, "..") {
		out = strings.ReplaceAll(out, "..", ".")
	}

	out = strings.ReplaceAll(out, "@{", "-{")
	out = strings.Trim(out, "./-")
	out = strings.TrimSuffix(out, ".lock")

	return out
}
