package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/tidwall/jsonc"
	"github.com/tidwall/sjson"
)

// SetConfigFieldAt updates a single field of the config file at path using
// JSON path notation ("api.base_url"). Other fields are left untouched. The
// file is not written when the result would fail Validate.
func SetConfigFieldAt(path, key string, value any) error {
	//nolint:gosec // G304: path is the trusted config location.
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("reading config file: %w", err)
		}
		data = []byte("{}")
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
	}

	// Comments do not survive the rewrite.
	newData, err := sjson.SetBytes(jsonc.ToJSON(data), key, value)
	if err != nil {
		return fmt.Errorf("setting config field %q: %w", key, err)
	}

	// The file alone must still describe a usable configuration.
	probe := NewConfig()
	if err := json.Unmarshal(newData, probe); err != nil {
		return fmt.Errorf("config field %q: %w", key, err)
	}
	applyDefaults(probe)
	if err := probe.Validate(); err != nil {
		return fmt.Errorf("config field %q: %w", key, err)
	}

	//nolint:gosec // 0o600 is intentionally restrictive for security.
	if err := os.WriteFile(path, newData, 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// ParseValue converts a command-line string into the JSON value it most
// likely denotes: integers and booleans are typed, everything else is a string.
func ParseValue(raw string) any {
	if n, err := strconv.Atoi(raw); err == nil {
		return n
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	return raw
}
