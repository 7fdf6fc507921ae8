package docker

import (
	"path/filepath"
	"regexp"
	"slices"
	"strings"
)

// absPath is p made absolute for log output, or p itself.
func absPath(p string) string {
	if a, err := filepath.Abs(p); err == nil {
		return a
	}
	return p
}

// ---- Redaction ----

// secretArg matches build-arg names whose values must not reach the log.
var secretArg = regexp.MustCompile(`(?i)(PASSWORD|TOKEN|SECRET|AUTH|ACCESS_KEY)`)

// redactBuildArgs returns a copy of a buildx argument list with secret
// --build-arg values replaced. Labels are public and left alone.
func redactBuildArgs(args []string) []string {
	out := slices.Clone(args)
	for i := 1; i < len(out); i++ {
		if out[i-1] != "--build-arg" {
			continue
		}
		if key, val, ok := strings.Cut(out[i], "="); ok && val != "" && secretArg.MatchString(key) {
			out[i] = key + "=REDACTED"
		}
	}
	return out
}

// ---- Tag normalization / validation ----

const maxTagLen = 128

var (
	tagAllowed = regexp.MustCompile(`^[a-z0-9_.-]{1,128}$`)
	tagUnsafe  = regexp.MustCompile(`[/+\s]+`)
	tagDashes  = regexp.MustCompile(`-{2,}`)
)

// cleanTag lowercases s and maps characters a version or stage name may
// carry (semver build metadata "+", path separators) onto "-".
func cleanTag(s string) string {
	s = tagUnsafe.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "-")
	s = tagDashes.ReplaceAllString(s, "-")
	if len(s) > maxTagLen {
		s = s[:maxTagLen]
	}
	return s
}

func validateTag(tag string) bool {
	return tagAllowed.MatchString(tag)
}

// dedupRefs drops repeated refs, keeping the first occurrence.
func dedupRefs(refs []string) []string {
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		if !slices.Contains(out, r) {
			out = append(out, r)
		}
	}
	return out
}
