// internal/docker/plan.go
//
// Tag and cache planning for stage images:
//   - every image gets :<version> and :dev
//   - :latest is added when tagLatest is set
//   - the registry cache is keyed by stage name (<cache>:<stage>)

package docker

import (
	"fmt"
	"strings"
)

// DevTag is the moving tag every build publishes and digest inspection reads.
const DevTag = "dev"

// ImageName returns <prefix>/<name>.
func ImageName(prefix, name string) string {
	return strings.TrimRight(strings.TrimSpace(prefix), "/") + "/" + name
}

// PlanTags returns the fully-qualified refs for one image.
func PlanTags(image, version string, tagLatest bool) []string {
	var refs []string
	add := func(tag string) {
		tag = cleanTag(tag)
		if tag == "" || !validateTag(tag) {
			return
		}
		refs = append(refs, fmt.Sprintf("%s:%s", image, tag))
	}

	add(version)
	add(DevTag)
	if tagLatest {
		add("latest")
	}
	return dedupRefs(refs)
}

// DevRef is the dev-tagged reference of image.
func DevRef(image string) string {
	return image + ":" + DevTag
}

// CacheRefs returns the buildx cache import and export specs for a stage.
func CacheRefs(cacheRegistry, stage string) (from, to string) {
	ref := fmt.Sprintf("%s:%s", strings.TrimRight(cacheRegistry, "/"), cleanTag(stage))
	return "type=registry,ref=" + ref, "type=registry,ref=" + ref + ",mode=max"
}
