// internal/docker/types.go
package docker

// BuildOptions describes one `docker buildx build` invocation.
type BuildOptions struct {
	Dockerfile  string      // default: "Dockerfile"
	ContextPath string      // default: "."
	BuildArgs   [][2]string // KEY,VALUE (deterministic)
	Labels      [][2]string // optional

	FullRefs []string // e.g. ["facsimilab/facsimilab-base:v1.2.0","facsimilab/facsimilab-base:dev"]

	Target    string   // optional multi-stage target
	Platform  string   // e.g. linux/amd64
	CacheFrom []string // buildx --cache-from specs
	CacheTo   []string // buildx --cache-to specs

	Push         bool   // output to registry
	Load         bool   // output to local image store
	MetadataFile string // buildx --metadata-file
	Pull         bool   // --pull
	NoCache      bool   // --no-cache
	DryRun       bool   // print only
}

// Credentials for `docker login`.
type Credentials struct {
	Server   string
	User     string
	Password string
}
