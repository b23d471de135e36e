package store

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Environment variables consulted when resolving the database location.
const (
	// EnvDBHome overrides the database directory outright.
	EnvDBHome = "ACP_DB_HOME"

	// EnvXDGDataHome is the XDG Base Directory data root.
	EnvXDGDataHome = "XDG_DATA_HOME"
)

// appDirName is the subdirectory used under XDG_DATA_HOME and HOME.
const appDirName = "acp"

// dbFileName is the database file name inside the resolved directory.
const dbFileName = "db.sqlite3"

// defaultPath memoizes the resolved database path for the process lifetime.
// The precedence checks and directory creation run exactly once; every
// caller within one run sees the same resolved path.
var defaultPath struct {
	once sync.Once
	path string
	err  error
}

// DefaultPath resolves the on-disk database location.
//
// Precedence: $ACP_DB_HOME (with a leading ~ expanded against the home
// directory), then $XDG_DATA_HOME/acp, then $HOME/.local/share/acp, and as
// a last resort the OS-reported home directory. Parent directories are
// created with default permissions (the umask applies).
//
// Returns ErrPathConflict if the resolved directory exists as a file.
// The result is computed once per process and cached.
func DefaultPath(logger *slog.Logger) (string, error) {
	defaultPath.once.Do(func() {
		defaultPath.path, defaultPath.err = resolvePath(logger)
	})

	return defaultPath.path, defaultPath.err
}

// resolvePath performs the actual precedence walk. Called once via
// DefaultPath; tests call it directly with a scrubbed environment.
func resolvePath(logger *slog.Logger) (string, error) {
	dir, err := resolveBaseDir(logger)
	if err != nil {
		return "", err
	}

	if err := ensureDir(dir); err != nil {
		return "", err
	}

	return filepath.Join(dir, dbFileName), nil
}

// resolveBaseDir picks the database directory from the environment.
func resolveBaseDir(logger *slog.Logger) (string, error) {
	if override := os.Getenv(EnvDBHome); override != "" {
		logger.Debug("using ACP_DB_HOME", "dir", override)
		return expandHome(override)
	}

	if xdg := os.Getenv(EnvXDGDataHome); xdg != "" {
		dir := filepath.Join(xdg, appDirName)
		logger.Debug("using XDG_DATA_HOME", "dir", dir)

		return dir, nil
	}

	if home := os.Getenv("HOME"); home != "" {
		dir := filepath.Join(home, ".local", "share", appDirName)
		logger.Debug("using HOME", "dir", dir)

		return dir, nil
	}

	// POSIX requires $HOME to be set, so this is worth a warning.
	logger.Warn("HOME is not set, falling back to OS home directory lookup")

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("store: resolving home directory: %w", err)
	}

	return filepath.Join(home, ".local", "share", appDirName), nil
}

// expandHome expands a leading ~ path component against the user's home
// directory. Paths without a leading ~ are returned unchanged.
func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~"+string(filepath.Separator)) {
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("store: expanding ~ in %s: %w", path, err)
	}

	if path == "~" {
		return home, nil
	}

	return filepath.Join(home, path[2:]), nil
}

// ensureDir creates dir (and parents) if missing and verifies that an
// existing entry is actually a directory.
func ensureDir(dir string) error {
	info, err := os.Stat(dir)

	switch {
	case os.IsNotExist(err):
		if mkErr := os.MkdirAll(dir, 0o755); mkErr != nil {
			return fmt.Errorf("store: creating directory %s: %w", dir, mkErr)
		}

		return nil
	case err != nil:
		return fmt.Errorf("store: checking directory %s: %w", dir, err)
	case !info.IsDir():
		return fmt.Errorf("%w: %s", ErrPathConflict, dir)
	}

	return nil
}
