package config

import (
	"os"
)

// IsFirstRun reports whether no configuration file exists yet, neither the
// global one nor a project one. The client still works on defaults; the CLI
// only uses this to print a setup hint.
func IsFirstRun() bool {
	if _, err := os.Stat(GlobalConfigPath()); err == nil {
		return false
	}
	return findProjectConfig() == ""
}
