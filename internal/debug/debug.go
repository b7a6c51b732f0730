// Package debug provides development logging for the coach CLI.
package debug

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

var (
	enabled bool
	logFile *os.File
	mu      sync.Mutex
	logPath string
)

// Enable turns on debug logging to the specified file.
func Enable(path string) error {
	mu.Lock()
	defer mu.Unlock()

	if enabled {
		return nil
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating log directory: %w", err)
	}

	// Open log file (append mode)
	//nolint:gosec // G304: path comes from the XDG data directory.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}

	logFile = f
	logPath = path
	enabled = true

	// Write session header directly (can't call Log() - would deadlock)
	now := time.Now()
	stamp := now.Format("15:04:05.000")
	fmt.Fprintf(logFile, "[%s] --- coach debug session %s (pid %d) ---\n",
		stamp, now.Format(time.RFC3339), os.Getpid())
	_ = logFile.Sync() //nolint:errcheck // best effort

	return nil
}

// Disable turns off debug logging and closes the file.
func Disable() {
	mu.Lock()
	defer mu.Unlock()

	if !enabled {
		return
	}
	if logFile != nil {
		_ = logFile.Close() //nolint:errcheck // nothing useful to do on close failure
		logFile = nil
	}
	enabled = false
}

// IsEnabled returns whether debug logging is enabled.
func IsEnabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return enabled
}

// Log writes a debug message if logging is enabled.
func Log(format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()

	if !enabled || logFile == nil {
		return
	}

	stamp := time.Now().Format("15:04:05.000")
	fmt.Fprintf(logFile, "[%s] %s\n", stamp, fmt.Sprintf(format, args...))
	_ = logFile.Sync() //nolint:errcheck // flush for tail -f
}

// LogPath returns the path to the log file.
func LogPath() string {
	mu.Lock()
	defer mu.Unlock()
	return logPath
}

// Event logs a store or transport event with component context.
func Event(component, eventType, details string) {
	Log("[%s] %s: %s", component, eventType, details)
}

// Error logs an error with context.
func Error(component string, err error, context string) {
	Log("[%s] ERROR: %s - %v", component, context, err)
}
