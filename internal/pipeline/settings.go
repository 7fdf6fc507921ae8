package pipeline

import (
	"github.com/pkg/errors"

	"facsimilab/internal/config"
	"facsimilab/internal/logging"
	"facsimilab/internal/params"
)

// LoadSettings reads the build parameters and the quarto pin. Neither is
// fatal: a missing parameters file is reported at ERROR and the defaults
// are used, a missing quarto pin at WARN.
func LoadSettings(cfg config.Config, log *logging.Logger) Settings {
	flags, err := params.LoadFlags(cfg.Paths.Parameters)
	if err != nil {
		if errors.Is(err, params.ErrMissing) {
			log.Errorf("Build parameters not found at %s; building base, main and full with defaults", cfg.Paths.Parameters)
		} else {
			log.Errorf("Invalid build parameters (%v); using defaults", err)
		}
	}

	quarto, err := params.LoadQuartoVersion(cfg.Paths.QuartoVersion)
	if err != nil {
		log.Warnf("Quarto version not pinned (%v); using %s", err, quarto)
	}

	log.Debugf("Flags: base=%t main=%t full=%t conda_lock=%t python_images=%t",
		flags.BuildBase, flags.BuildMain, flags.BuildFull, flags.GenerateCondaLock, flags.BuildPythonImages)

	return Settings{Config: cfg, Flags: flags, QuartoVersion: quarto}
}
