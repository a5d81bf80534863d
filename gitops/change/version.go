package change

import (
	"strconv"
	"strings"
)

// UpdateState relates a version to the versions
// already published for its package.
type UpdateState int

const (
	// NewPackage means the package has no published
	// version yet.
	NewPackage UpdateState = iota
	// NewVersion means the version is higher than every
	// published one.
	NewVersion
	// AddVersion means an older version is added.
	AddVersion
	// UpdateVersion means the version is already
	// published and gets replaced.
	UpdateVersion
)

var stateNames = map[UpdateState]string{
	NewPackage:    "New package",
	NewVersion:    "New version",
	AddVersion:    "Add version",
	UpdateVersion: "Update version",
}

// String returns the commit headline prefix of the
// state.
func (s UpdateState) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}

	return "Update"
}

// StateOf derives the update state of version given the
// published versions of its package. packageExists is
// false when the package directory is absent.
func StateOf(
	version string,
	published []string,
	packageExists bool,
) UpdateState {
	if !packageExists || len(published) == 0 {
		return NewPackage
	}

	for _, v := range published {
		if v == version {
			return UpdateVersion
		}
	}

	if HighestVersion(append([]string{version}, published...)) == version {
		return NewVersion
	}

	return AddVersion
}

type versionPart struct {
	value      int
	supplement string
}

func parsePart(part string) versionPart {
	i := 0
	for i < len(part) && part[i] >= '0' && part[i] <= '9' {
		i++
	}

	value, err := strconv.Atoi(part[:i])
	if err != nil {
		value = 0
	}

	return versionPart{value: value, supplement: part[i:]}
}

func comparePart(l versionPart, r versionPart) int {
	switch {
	case l.value != r.value:
		if l.value < r.value {
			return -1
		}

		return 1
	case l.supplement == r.supplement:
		return 0
	case l.supplement == "":
		return 1
	case r.supplement == "":
		return -1
	default:
		return strings.Compare(l.supplement, r.supplement)
	}
}

// CompareVersions orders dot-separated versions part by
// part: leading digits numerically, then a part without
// suffix after one with a suffix, then suffixes
// lexically. When the common parts tie, the longer
// version is higher.
func CompareVersions(left string, right string) int {
	lp := strings.Split(left, ".")
	rp := strings.Split(right, ".")

	for i := 0; i < len(lp) && i < len(rp); i++ {
		if c := comparePart(parsePart(lp[i]), parsePart(rp[i])); c != 0 {
			return c
		}
	}

	switch {
	case len(lp) < len(rp):
		return -1
	case len(lp) > len(rp):
		return 1
	default:
		return strings.Compare(left, right)
	}
}

// HighestVersion returns the highest of versions, or
// empty when there is none.
func HighestVersion(versions []string) string {
	highest := ""

	for i, v := range versions {
		if i == 0 || CompareVersions(v, highest) > 0 {
			highest = v
		}
	}

	return highest
}
