// Package version provides the library version and firmware version helpers.
package version

import (
	"fmt"
	"strconv"
	"strings"
)

// Current is the library version, reported in User-Agent headers and by the
// command line tools.
const Current = "0.3.1"

// Version represents a parsed dotted firmware or library version.
type Version struct {
	Major int
	Minor int
	Patch int
}

// Parse parses a dotted version string as devices report them. Accepted
// forms include "2.800.16", "v1.2", and "5.5.82 build 180314"; a leading v
// and anything after the first whitespace are ignored. One to three numeric
// components are read, missing ones default to zero.
func Parse(s string) (Version, error) {
	orig := s
	if i := strings.IndexAny(s, " \t"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimPrefix(strings.TrimPrefix(s, "v"), "V")
	if s == "" {
		return Version{}, fmt.Errorf("invalid version %q: no numeric components", orig)
	}

	parts := strings.Split(s, ".")
	if len(parts) > 3 {
		parts = parts[:3]
	}

	var nums [3]int
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || part == "" {
			return Version{}, fmt.Errorf("invalid version %q: bad component %q", orig, part)
		}
		nums[i] = n
	}
	return Version{Major: nums[0], Minor: nums[1], Patch: nums[2]}, nil
}

// String returns the version as "major.minor.patch".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Compare returns -1, 0, or 1 as v sorts before, equal to, or after other.
func (v Version) Compare(other Version) int {
	pairs := [][2]int{
		{v.Major, other.Major},
		{v.Minor, other.Minor},
		{v.Patch, other.Patch},
	}
	for _, p := range pairs {
		switch {
		case p[0] < p[1]:
			return -1
		case p[0] > p[1]:
			return 1
		}
	}
	return 0
}

// Less reports whether v sorts before other.
func (v Version) Less(other Version) bool {
	return v.Compare(other) < 0
}
