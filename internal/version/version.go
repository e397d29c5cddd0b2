// Package version handles the semantic version stamped into snapshot
// metadata, so restores can refuse snapshots written by an incompatible
// format generation.
package version

import (
	"fmt"
	"strconv"
	"strings"
)

// Current is the snapshot format version written into new metadata.
const Current = "1.0.0"

type Version struct {
	Major int
	Minor int
	Patch int
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Parse parses a version string in the format "X.Y.Z". A leading "v" is
// accepted and ignored.
func Parse(versionStr string) (Version, error) {
	core := strings.TrimPrefix(strings.TrimSpace(versionStr), "v")
	parts := strings.Split(core, ".")
	if len(parts) != 3 {
		return Version{}, fmt.Errorf("invalid version format: expected X.Y.Z, got %s", versionStr)
	}

	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return Version{}, fmt.Errorf("invalid major version: %w", err)
	}
	minor, err := strconv.Atoi(parts[1])
	if err != nil {
		return Version{}, fmt.Errorf("invalid minor version: %w", err)
	}
	patch, err := strconv.Atoi(parts[2])
	if err != nil {
		return Version{}, fmt.Errorf("invalid patch version: %w", err)
	}

	return Version{Major: major, Minor: minor, Patch: patch}, nil
}

func (v Version) LessThan(other Version) bool {
	if v.Major != other.Major {
		return v.Major < other.Major
	}
	if v.Minor != other.Minor {
		return v.Minor < other.Minor
	}
	return v.Patch < other.Patch
}

// Compatible reports whether a snapshot written with format version s can
// be restored by this build. Major versions must match.
func Compatible(s string) (bool, error) {
	snap, err := Parse(s)
	if err != nil {
		return false, err
	}
	cur, err := Parse(Current)
	if err != nil {
		return false, err
	}
	return snap.Major == cur.Major, nil
}
