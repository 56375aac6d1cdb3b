// Package paths resolves where the dbo command keeps its configuration and
// its default SQLite database.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// File names inside the resolved directories.
const (
	ConfigFileName   = "config.yaml"
	DatabaseFileName = "dbo.db"
)

// Environment variable names for directory overrides.
const (
	EnvConfigDir = "DBO_CONFIG_DIR"
	EnvDataDir   = "DBO_DATA_DIR"
)

const appName = "dbo"

// platformDir holds platform-detection functions that can be overridden in tests.
var platformDir = struct {
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
}{
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
}

// DefaultConfigDir returns the platform-specific default configuration directory.
//
// Linux:   $XDG_CONFIG_HOME/dbo (fallback ~/.config/dbo)
// macOS:   ~/Library/Application Support/dbo
// Windows: %APPDATA%/dbo
func DefaultConfigDir() (string, error) {
	if runtime.GOOS == "linux" {
		return xdgDir("XDG_CONFIG_HOME", ".config")
	}
	dir, err := platformDir.userConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appName), nil
}

// DefaultDataDir returns the platform-specific default data directory.
//
// Linux:   $XDG_DATA_HOME/dbo (fallback ~/.local/share/dbo)
// macOS and Windows: same as the config directory.
func DefaultDataDir() (string, error) {
	if runtime.GOOS == "linux" {
		return xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
	}
	return DefaultConfigDir()
}

func xdgDir(env, fallback string) (string, error) {
	if xdg := os.Getenv(env); xdg != "" {
		return filepath.Join(xdg, appName), nil
	}
	home, err := platformDir.homeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, fallback, appName), nil
}

// ResolveConfigDir returns the configuration directory following the precedence
// chain: flag > DBO_CONFIG_DIR env > DefaultConfigDir().
func ResolveConfigDir(flag string) (string, error) {
	return resolve(flag, EnvConfigDir, DefaultConfigDir)
}

// ResolveDataDir returns the data directory following the precedence chain:
// flag > DBO_DATA_DIR env > DefaultDataDir().
func ResolveDataDir(flag string) (string, error) {
	return resolve(flag, EnvDataDir, DefaultDataDir)
}

// DefaultDatabase returns the SQLite database file used when the
// configuration names no DSN.
func DefaultDatabase(dataDirFlag string) (string, error) {
	dir, err := ResolveDataDir(dataDirFlag)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DatabaseFileName), nil
}

func resolve(flag, env string, fallback func() (string, error)) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if v := os.Getenv(env); v != "" {
		return filepath.Abs(v)
	}
	return fallback()
}
