package version

import (
	"fmt"
	"strings"

	"github.com/blang/semver/v4"
)

// VersionType represents a semantic version bump level
type VersionType string

const (
	None  VersionType = ""
	Patch VersionType = "Patch"
	Minor VersionType = "Minor"
	Major VersionType = "Major"
)

func (vt VersionType) String() string {
	if vt == None {
		return "None"
	}
	return string(vt)
}

func (vt VersionType) rank() int {
	switch vt {
	case Patch:
		return 1
	case Minor:
		return 2
	case Major:
		return 3
	default:
		return 0
	}
}

// Max returns the larger of two bumps.
func Max(a, b VersionType) VersionType {
	if b.rank() > a.rank() {
		return b
	}
	return a
}

// Parse parses "X.Y.Z" with an optional "v" prefix.
func Parse(versionStr string) (semver.Version, error) {
	v, err := semver.ParseTolerant(strings.TrimSpace(versionStr))
	if err != nil {
		return semver.Version{}, fmt.Errorf("invalid version %q: %w", versionStr, err)
	}
	return v, nil
}

// Increment returns v bumped by the given type with pre-release and build
// metadata dropped. An unknown or empty bump returns v unchanged.
func Increment(v semver.Version, bump VersionType) semver.Version {
	switch bump {
	case Major:
		return semver.Version{Major: v.Major + 1}
	case Minor:
		return semver.Version{Major: v.Major, Minor: v.Minor + 1}
	case Patch:
		return semver.Version{Major: v.Major, Minor: v.Minor, Patch: v.Patch + 1}
	default:
		return v
	}
}

// ForecastNext takes the latest tag (e.g., "v1.2.3" or "1.2.3")
// and the desired bump, and returns the next version preserving any "v" prefix.
func ForecastNext(latestTag string, bump VersionType) (string, error) {
	latestTag = strings.TrimSpace(latestTag)
	hasV := strings.HasPrefix(latestTag, "v")

	// No latest -> treat as 0.0.0 and bump
	base := semver.Version{}
	if core := strings.TrimPrefix(latestTag, "v"); core != "" {
		v, err := Parse(core)
		if err != nil {
			return "", fmt.Errorf("unable to parse latest tag %q: %w", latestTag, err)
		}
		base = v
	}

	next := Increment(base, bump).String()
	if hasV {
		return "v" + next, nil
	}
	return next, nil
}
