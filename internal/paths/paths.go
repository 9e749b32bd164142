// Package paths resolves the grove configuration and data directories.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// Directory names used relative to the working directory.
const (
	DefaultConfigDirName = ".grove"
	DefaultDataDirName   = ".grove-db"
)

// Environment overrides.
const (
	EnvConfigDir = "GROVE_CONFIG_DIR"
	EnvDataDir   = "GROVE_DATA_DIR"
)

const appName = "grove"

// platformDir can be replaced in tests.
var platformDir = struct {
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
}{
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
}

// DefaultConfigDir returns the per-user configuration directory:
// $XDG_CONFIG_HOME/grove or ~/.config/grove on Linux, os.UserConfigDir
// elsewhere.
func DefaultConfigDir() (string, error) {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

// DefaultDataDir returns the per-user data directory:
// $XDG_DATA_HOME/grove or ~/.local/share/grove on Linux, os.UserConfigDir
// elsewhere.
func DefaultDataDir() (string, error) {
	return xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
}

func xdgDir(env, homeRel string) (string, error) {
	if runtime.GOOS != "linux" {
		dir, err := platformDir.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, appName), nil
	}
	if xdg := os.Getenv(env); xdg != "" {
		return filepath.Join(xdg, appName), nil
	}
	home, err := platformDir.homeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, homeRel, appName), nil
}

// ResolveConfigDir picks the configuration directory: flag, then
// GROVE_CONFIG_DIR, then $(CWD)/.grove when it exists, then
// DefaultConfigDir. The result is absolute.
func ResolveConfigDir(flag string) (string, error) {
	if dir, _ := resolve(flag, os.Getenv(EnvConfigDir)); dir != "" {
		return dir, nil
	}
	if info, err := os.Stat(DefaultConfigDirName); err == nil && info.IsDir() {
		return filepath.Abs(DefaultConfigDirName)
	}
	return DefaultConfigDir()
}

// ResolveDataDir picks the data directory: flag, then the data_dir value
// from config.yaml, then GROVE_DATA_DIR, then $(CWD)/.grove-db. The result
// is absolute.
func ResolveDataDir(flag, configValue string) (string, error) {
	return resolve(flag, configValue, os.Getenv(EnvDataDir), DefaultDataDirName)
}

// resolve returns the first non-empty candidate as an absolute path, or ""
// when all are empty.
func resolve(candidates ...string) (string, error) {
	for _, c := range candidates {
		if c != "" {
			return filepath.Abs(c)
		}
	}
	return "", nil
}
