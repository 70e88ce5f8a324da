package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

const (
	// ProjectConfigFile is the name of the project-level config file
	ProjectConfigFile = "purec.yaml"
	// UserConfigDir is the directory for user-level config
	UserConfigDir = ".config/purec"
	// UserConfigFile is the name of the user-level config file
	UserConfigFile = "config.yaml"
)

// Loader handles configuration loading with layered precedence
type Loader struct {
	logger *slog.Logger

	// home and workDir default to the user's home directory and the
	// process working directory.
	home    string
	workDir string
}

// NewLoader creates a new configuration loader
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	l := &Loader{logger: logger}
	l.home, _ = os.UserHomeDir()
	l.workDir, _ = os.Getwd()
	return l
}

// Load loads configuration with layered precedence:
// 1. Default config
// 2. User config (~/.config/purec/config.yaml)
// 3. Project config (purec.yaml in the working directory or a parent)
// 4. explicit, when not empty
//
// A missing user or project file is skipped; a missing explicit file is an
// error. Later layers only override the keys they set.
func (l *Loader) Load(explicit string) (*Config, error) {
	config := DefaultConfig()

	if path := l.userConfigPath(); path != "" {
		err := config.apply(path)
		switch {
		case err == nil:
			l.logger.Debug("loaded user config", slog.String("path", path))
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, err
		}
	}

	if path := l.findProjectConfig(); path != "" {
		if err := config.apply(path); err != nil {
			return nil, err
		}
		l.logger.Debug("loaded project config", slog.String("path", path))
	} else {
		l.logger.Debug("no project config found")
	}

	if explicit != "" {
		if err := config.apply(explicit); err != nil {
			return nil, err
		}
		l.logger.Debug("loaded config", slog.String("path", explicit))
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// userConfigPath returns the path to the user config file
func (l *Loader) userConfigPath() string {
	if l.home == "" {
		return ""
	}
	return filepath.Join(l.home, UserConfigDir, UserConfigFile)
}

// findProjectConfig searches for purec.yaml in the working directory and
// its parents.
func (l *Loader) findProjectConfig() string {
	if l.workDir == "" {
		return ""
	}
	dir := l.workDir
	for {
		configPath := filepath.Join(dir, ProjectConfigFile)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
