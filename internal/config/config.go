// Package config builds the immutable tool configuration from defaults, an
// optional facsimilab.yaml, FACSIMILAB_* environment variables and flags.
package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides (FACSIMILAB_PUSH=false).
const EnvPrefix = "FACSIMILAB"

// Paths are the project files the pipeline reads and writes.
type Paths struct {
	Secrets        string
	Parameters     string
	QuartoVersion  string
	VersionFile    string
	EnvFile        string
	LogFile        string
	MetricsFile    string
	CondaEnv       string
	CondaLock      string
	CondaLockLog   string
	MetadataDir    string
	DockerDir      string
	PythonEnvDir   string
	SmokeConfig    string
	SmokeResultDir string
}

// Notify configures the push-notification endpoint.
type Notify struct {
	URL     string
	Title   string
	Timeout time.Duration
}

// Lock configures conda-lock.
type Lock struct {
	Command  string
	Platform string
	CUDA     string
}

// Registry holds optional login credentials.
type Registry struct {
	Server   string
	User     string
	Password string
}

// Config is built once at startup and passed by value.
type Config struct {
	Root          string
	RepoPrefix    string
	BaseImage     string
	CacheRegistry string
	Platform      string
	Push          bool
	Load          bool
	TagLatest     bool
	DryRun        bool

	Paths    Paths
	Notify   Notify
	Lock     Lock
	Registry Registry
}

// SetDefaults registers every key with its default value.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("root", ".")
	v.SetDefault("repo_prefix", "facsimilab")
	v.SetDefault("base_image", "nvidia/cuda:12.4.1-cudnn-runtime-ubuntu22.04")
	v.SetDefault("cache_registry", "")
	v.SetDefault("platform", "linux/amd64")
	v.SetDefault("push", true)
	v.SetDefault("load", false)
	v.SetDefault("tag_latest", true)
	v.SetDefault("dry_run", false)

	v.SetDefault("paths.secrets", "token.secrets")
	v.SetDefault("paths.parameters", "parameters/build_parameters")
	v.SetDefault("paths.quarto_version", "parameters/quarto_version")
	v.SetDefault("paths.version_file", "docker/image_version.txt")
	v.SetDefault("paths.env_file", "docker/.env")
	v.SetDefault("paths.log_file", "log/docker-build.log")
	v.SetDefault("paths.metrics_file", "log/build-metrics.prom")
	v.SetDefault("paths.conda_env", "python-env/environment.yml")
	v.SetDefault("paths.conda_lock", "python-env/conda-lock.yml")
	v.SetDefault("paths.conda_lock_log", "log/conda-lock.log")
	v.SetDefault("paths.metadata_dir", "log")
	v.SetDefault("paths.docker_dir", "docker")
	v.SetDefault("paths.python_env_dir", "python-env")
	v.SetDefault("paths.smoke_config", ".github/smoke.yaml")
	v.SetDefault("paths.smoke_result_dir", "results")

	v.SetDefault("notify.url", "https://ntfy.sh/facsimilab-build")
	v.SetDefault("notify.title", "FacsimiLab - Build")
	v.SetDefault("notify.timeout", "10s")

	v.SetDefault("lock.command", "conda-lock")
	v.SetDefault("lock.platform", "linux-64")
	v.SetDefault("lock.cuda", "12.0")

	v.SetDefault("registry.server", "")
	v.SetDefault("registry.user", "")
	v.SetDefault("registry.password", "")
}

// New returns a viper instance with defaults, env binding and the optional
// config file search path set up. Flags are bound by the caller.
func New(configFile string) *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("facsimilab")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	return v
}

// Load reads the config file if present and resolves the Config. Relative
// paths are anchored at root.
func Load(v *viper.Viper) (Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, errors.Wrap(err, "read config file")
		}
	}

	root, err := filepath.Abs(v.GetString("root"))
	if err != nil {
		return Config{}, errors.Wrap(err, "resolve project root")
	}
	at := func(key string) string {
		p := v.GetString(key)
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(root, p)
	}

	prefix := strings.TrimRight(strings.TrimSpace(v.GetString("repo_prefix")), "/")
	if prefix == "" {
		return Config{}, errors.New("repo_prefix must not be empty")
	}
	cache := strings.TrimSpace(v.GetString("cache_registry"))
	if cache == "" {
		cache = prefix + "/facsimilab-cache"
	}

	cfg := Config{
		Root:          root,
		RepoPrefix:    prefix,
		BaseImage:     strings.TrimSpace(v.GetString("base_image")),
		CacheRegistry: cache,
		Platform:      v.GetString("platform"),
		Push:          v.GetBool("push"),
		Load:          v.GetBool("load"),
		TagLatest:     v.GetBool("tag_latest"),
		DryRun:        v.GetBool("dry_run"),
		Paths: Paths{
			Secrets:        at("paths.secrets"),
			Parameters:     at("paths.parameters"),
			QuartoVersion:  at("paths.quarto_version"),
			VersionFile:    at("paths.version_file"),
			EnvFile:        at("paths.env_file"),
			LogFile:        at("paths.log_file"),
			MetricsFile:    at("paths.metrics_file"),
			CondaEnv:       at("paths.conda_env"),
			CondaLock:      at("paths.conda_lock"),
			CondaLockLog:   at("paths.conda_lock_log"),
			MetadataDir:    at("paths.metadata_dir"),
			DockerDir:      at("paths.docker_dir"),
			PythonEnvDir:   at("paths.python_env_dir"),
			SmokeConfig:    at("paths.smoke_config"),
			SmokeResultDir: at("paths.smoke_result_dir"),
		},
		Notify: Notify{
			URL:     v.GetString("notify.url"),
			Title:   v.GetString("notify.title"),
			Timeout: v.GetDuration("notify.timeout"),
		},
		Lock: Lock{
			Command:  v.GetString("lock.command"),
			Platform: v.GetString("lock.platform"),
			CUDA:     v.GetString("lock.cuda"),
		},
		Registry: Registry{
			Server:   v.GetString("registry.server"),
			User:     v.GetString("registry.user"),
			Password: v.GetString("registry.password"),
		},
	}
	if cfg.BaseImage == "" {
		return Config{}, errors.New("base_image must not be empty")
	}
	if !cfg.Push && !cfg.Load && !cfg.DryRun {
		return Config{}, errors.New("at least one of push or load must be enabled")
	}
	return cfg, nil
}
