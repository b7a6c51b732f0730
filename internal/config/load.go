package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/adrg/xdg"
	"github.com/tidwall/jsonc"
)

const configFileName = "coach.json"

// Environment overrides, applied after every config file.
const (
	EnvAPIURL     = "COACH_API_URL"
	EnvAPIOrigin  = "COACH_API_ORIGIN"
	EnvAPITimeout = "COACH_API_TIMEOUT_MS"
	EnvDataDir    = "COACH_DATA_DIR"
)

// Load finds and loads configuration from standard locations.
// The global file is read first, then the nearest project file
// (coach.json or .coach.json, searched upward from the working directory),
// then environment overrides. The result is not validated: commands that
// repair configuration must still be able to load a broken one.
func Load() (*Config, error) {
	cfg := NewConfig()

	if err := loadFile(GlobalConfigPath(), cfg); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("loading global config: %w", err)
	}

	if projectPath := findProjectConfig(); projectPath != "" {
		if err := loadFile(projectPath, cfg); err != nil {
			return nil, fmt.Errorf("loading project config: %w", err)
		}
	}

	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	applyDefaults(cfg)

	return cfg, nil
}

// LoadFromFile loads configuration from a specific file path plus
// environment overrides, skipping the global and project files. Like Load,
// it does not validate.
func LoadFromFile(path string) (*Config, error) {
	cfg := NewConfig()
	if err := loadFile(path, cfg); err != nil {
		return nil, err
	}
	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	return cfg, nil
}

// loadFile decodes path into cfg. Fields absent from the file keep their
// current values, which is what layers project config over global config.
func loadFile(path string, cfg *Config) error {
	//nolint:gosec // G304: Path is from trusted config locations, not user input.
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(jsonc.ToJSON(data), cfg); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvAPIURL); ok && v != "" {
		cfg.API.BaseURL = v
	}
	if v, ok := lookup(EnvAPIOrigin); ok && v != "" {
		cfg.API.Origin = v
	}
	if v, ok := lookup(EnvAPITimeout); ok && v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvAPITimeout, err)
		}
		cfg.API.TimeoutMS = ms
	}
	if v, ok := lookup(EnvDataDir); ok && v != "" {
		if cfg.Options == nil {
			cfg.Options = &Options{}
		}
		cfg.Options.DataDir = v
	}
	return nil
}

func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	dir := cwd
	for {
		for _, name := range []string{configFileName, "." + configFileName} {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// GlobalConfigPath returns the path to the global configuration file.
func GlobalConfigPath() string {
	return filepath.Join(xdg.ConfigHome, appName, configFileName)
}
