package version

import (
	"context"
	"regexp"
	"strings"

	"github.com/blang/semver/v4"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/pkg/errors"
)

// InitialRelease is the version of the first release in a repo without tags.
const InitialRelease = "1.0.0"

var conventionalHeader = regexp.MustCompile(`^(\w+)(\([^)]*\))?(!)?:\s*\S`)

// ClassifyCommit maps a conventional commit message to the bump it implies.
func ClassifyCommit(message string) VersionType {
	header, body, _ := strings.Cut(strings.TrimSpace(message), "\n")
	m := conventionalHeader.FindStringSubmatch(strings.TrimSpace(header))
	if m == nil {
		return None
	}
	if m[3] == "!" || strings.Contains(body, "BREAKING CHANGE:") || strings.Contains(body, "BREAKING-CHANGE:") {
		return Major
	}
	switch strings.ToLower(m[1]) {
	case "feat":
		return Minor
	case "fix", "perf":
		return Patch
	default:
		return None
	}
}

// IsRepo reports whether dir sits inside a git working tree.
func IsRepo(dir string) bool {
	_, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	return err == nil
}

// Analyzer computes the next release from the commits since the latest
// semver tag, the way semantic-release does for conventional commits.
type Analyzer struct {
	Dir string
}

type taggedVersion struct {
	name string
	v    semver.Version
}

// NextRelease returns the next version without "v" prefix, or "" when no
// commit since the last release warrants one. The last release is the
// highest semver tag reachable from HEAD; every commit reachable from HEAD
// but not from that tag is classified, merged branches included.
func (a Analyzer) NextRelease(ctx context.Context) (string, error) {
	repo, err := git.PlainOpenWithOptions(a.Dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", errors.Wrapf(err, "open git repository at %s", a.Dir)
	}
	head, err := repo.Head()
	if err != nil {
		return "", errors.Wrap(err, "resolve HEAD")
	}
	tags, err := tagIndex(repo)
	if err != nil {
		return "", err
	}

	history, err := ancestors(ctx, repo, head.Hash())
	if err != nil {
		return "", err
	}

	var last *taggedVersion
	var lastHash plumbing.Hash
	for h := range history {
		if tv, ok := tags[h]; ok && (last == nil || tv.v.GT(last.v)) {
			last, lastHash = &tv, h
		}
	}

	released := map[plumbing.Hash]string{}
	if last != nil {
		if released, err = ancestors(ctx, repo, lastHash); err != nil {
			return "", err
		}
	}

	bump := None
	for h, msg := range history {
		if _, ok := released[h]; !ok {
			bump = Max(bump, ClassifyCommit(msg))
		}
	}

	if bump == None {
		return "", nil
	}
	if last == nil {
		return InitialRelease, nil
	}
	next, err := ForecastNext(last.name, bump)
	if err != nil {
		return "", err
	}
	return strings.TrimPrefix(next, "v"), nil
}

// ancestors returns every commit reachable from from, itself included,
// mapped to its message.
func ancestors(ctx context.Context, repo *git.Repository, from plumbing.Hash) (map[plumbing.Hash]string, error) {
	commits, err := repo.Log(&git.LogOptions{From: from})
	if err != nil {
		return nil, errors.Wrap(err, "read commit log")
	}
	defer commits.Close()

	seen := make(map[plumbing.Hash]string)
	err = commits.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		seen[c.Hash] = c.Message
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "walk commit log")
	}
	return seen, nil
}

// tagIndex maps commit hashes to the highest release tag pointing at them.
// Pre-release tags are ignored.
func tagIndex(repo *git.Repository) (map[plumbing.Hash]taggedVersion, error) {
	refs, err := repo.Tags()
	if err != nil {
		return nil, errors.Wrap(err, "list tags")
	}
	defer refs.Close()

	idx := make(map[plumbing.Hash]taggedVersion)
	err = refs.ForEach(func(ref *plumbing.Reference) error {
		name := ref.Name().Short()
		v, perr := semver.ParseTolerant(name)
		if perr != nil || len(v.Pre) > 0 {
			return nil
		}
		hash := ref.Hash()
		// annotated tags point at a tag object, not the commit
		if tag, terr := repo.TagObject(hash); terr == nil {
			c, cerr := tag.Commit()
			if cerr != nil {
				return nil
			}
			hash = c.Hash
		}
		if cur, ok := idx[hash]; !ok || v.GT(cur.v) {
			idx[hash] = taggedVersion{name: name, v: v}
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "index tags")
	}
	return idx, nil
}
