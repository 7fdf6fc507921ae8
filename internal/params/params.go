// Package params reads the shell-style KEY=VALUE input files that steer a
// build: feature flags, the quarto version pin and the notification token.
package params

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

// ErrMissing marks an optional input file that does not exist.
var ErrMissing = errors.New("optional input file missing")

// DefaultQuartoVersion is used when parameters/quarto_version is absent.
const DefaultQuartoVersion = "1.6.1"

// Flags are the per-run feature switches from parameters/build_parameters.
type Flags struct {
	BuildBase         bool
	BuildMain         bool
	BuildFull         bool
	GenerateCondaLock bool
	BuildPythonImages bool
}

// DefaultFlags builds every stage and skips lock/python image generation.
func DefaultFlags() Flags {
	return Flags{BuildBase: true, BuildMain: true, BuildFull: true}
}

// LoadFlags parses the parameters file. A missing file returns DefaultFlags
// together with an error wrapping ErrMissing; keys absent from an existing
// file also keep their defaults.
func LoadFlags(path string) (Flags, error) {
	flags := DefaultFlags()
	vals, err := read(path)
	if err != nil {
		return flags, err
	}

	for key, dst := range map[string]*bool{
		"build_base":          &flags.BuildBase,
		"build_main":          &flags.BuildMain,
		"build_full":          &flags.BuildFull,
		"generate_conda_lock": &flags.GenerateCondaLock,
		"build_python_images": &flags.BuildPythonImages,
	} {
		raw, ok := vals[key]
		if !ok {
			continue
		}
		b, err := parseBool(raw)
		if err != nil {
			return flags, errors.Wrapf(err, "%s: %s", path, key)
		}
		*dst = b
	}
	return flags, nil
}

// LoadQuartoVersion returns quarto_version from path, or the default with an
// ErrMissing error when the file is absent or does not define it.
func LoadQuartoVersion(path string) (string, error) {
	vals, err := read(path)
	if err != nil {
		return DefaultQuartoVersion, err
	}
	v := strings.TrimSpace(vals["quarto_version"])
	if v == "" {
		return DefaultQuartoVersion, errors.Wrapf(ErrMissing, "%s: quarto_version not set", path)
	}
	return v, nil
}

// LoadToken returns NTFY_DRPM_TOKEN from the secrets file. The token is
// empty when the file or key is missing.
func LoadToken(path string) (string, error) {
	vals, err := read(path)
	if err != nil {
		return "", err
	}
	tok, ok := vals["NTFY_DRPM_TOKEN"]
	if !ok {
		return "", errors.Wrapf(ErrMissing, "%s: NTFY_DRPM_TOKEN not set", path)
	}
	return strings.TrimSpace(tok), nil
}

func read(path string) (map[string]string, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(ErrMissing, path)
		}
		return nil, errors.Wrapf(err, "stat %s", path)
	}
	vals, err := godotenv.Read(path)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	return vals, nil
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "y", "on":
		return true, nil
	case "no", "n", "off", "":
		return false, nil
	}
	return strconv.ParseBool(strings.TrimSpace(s))
}
