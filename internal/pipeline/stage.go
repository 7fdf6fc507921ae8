package pipeline

import (
	"path/filepath"

	"facsimilab/internal/config"
	"facsimilab/internal/docker"
	"facsimilab/internal/envfile"
	"facsimilab/internal/params"
)

// Stage names in build order.
const (
	StageBase = "base"
	StageMain = "main"
	StageFull = "full"
)

// Settings is the immutable input of a run, built once at startup.
type Settings struct {
	Config        config.Config
	Flags         params.Flags
	QuartoVersion string
}

// StageSpec is the static description of one image build.
type StageSpec struct {
	Name         string
	Image        string // repository without tag
	Dockerfile   string
	Context      string
	Upstream     string      // stage whose digest feeds BASE_IMAGE; "" means the vendor image
	BuildArgs    [][2]string // static build args, appended after the run-derived ones
	CacheFrom    string
	CacheTo      string
	Push         bool
	Load         bool
	MetadataFile string
	Enabled      bool
	EnvKey       string // env file key receiving this image's digest

	// Env is the Python environment image built before this one. It is
	// enabled only when this stage is; a disabled Env is neither built nor
	// inspected and its env file key is omitted.
	Env *StageSpec
}

// Stages returns base, main and full in dependency order.
func Stages(s Settings) []StageSpec {
	cfg := s.Config
	quarto := [][2]string{{"QUARTO_VERSION", s.QuartoVersion}}

	image := func(name, upstream, envKey string, enabled bool) StageSpec {
		from, to := docker.CacheRefs(cfg.CacheRegistry, name)
		return StageSpec{
			Name:         name,
			Image:        docker.ImageName(cfg.RepoPrefix, "facsimilab-"+name),
			Dockerfile:   filepath.Join(cfg.Paths.DockerDir, name, "Dockerfile"),
			Context:      filepath.Join(cfg.Paths.DockerDir, name),
			Upstream:     upstream,
			CacheFrom:    from,
			CacheTo:      to,
			Push:         cfg.Push,
			Load:         cfg.Load,
			MetadataFile: filepath.Join(cfg.Paths.MetadataDir, name+"-metadata.json"),
			Enabled:      enabled,
			EnvKey:       envKey,
		}
	}
	// A sub-image belongs to its stage: a skipped stage skips it too.
	envImage := func(parent StageSpec, envKey string) *StageSpec {
		stage := parent.Name
		spec := image(stage+"-env", parent.Upstream, envKey, parent.Enabled && s.Flags.BuildPythonImages)
		spec.Dockerfile = filepath.Join(cfg.Paths.DockerDir, stage, "Dockerfile.env")
		spec.Context = cfg.Paths.PythonEnvDir
		return &spec
	}

	base := image(StageBase, "", envfile.KeyBaseSHA, s.Flags.BuildBase)

	main := image(StageMain, StageBase, envfile.KeyMainSHA, s.Flags.BuildMain)
	main.BuildArgs = quarto
	main.Env = envImage(main, envfile.KeyMainEnvSHA)

	full := image(StageFull, StageMain, envfile.KeyFullSHA, s.Flags.BuildFull)
	full.BuildArgs = quarto
	full.Env = envImage(full, envfile.KeyFullEnvSHA)

	return []StageSpec{base, main, full}
}
