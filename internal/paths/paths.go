// Package paths resolves the repokit configuration and data directories.
//
// Each directory is taken from the first source that sets it: command-line
// flag, then config.yaml (data directory only), then environment, then the
// default.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// Directory names used when nothing overrides them.
const (
	AppName              = "repokit"
	DefaultConfigDirName = ".repokit"
	DefaultDataDirName   = ".repokit-db"
)

// Environment variables overriding the directories.
const (
	EnvConfigDir = "REPOKIT_CONFIG_DIR"
	EnvDataDir   = "REPOKIT_DATA_DIR"
)

// platform is swapped in tests.
var platform = struct {
	goos          string
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
	getwd         func() (string, error)
}{
	goos:          runtime.GOOS,
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
	getwd:         os.Getwd,
}

// UserConfigDir returns the per-user configuration directory:
// $XDG_CONFIG_HOME/repokit or ~/.config/repokit on Linux, and
// os.UserConfigDir()/repokit elsewhere.
func UserConfigDir() (string, error) {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

// UserDataDir returns the per-user data directory:
// $XDG_DATA_HOME/repokit or ~/.local/share/repokit on Linux, and
// os.UserConfigDir()/repokit elsewhere.
func UserDataDir() (string, error) {
	return xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
}

func xdgDir(env, fallback string) (string, error) {
	if platform.goos != "linux" {
		dir, err := platform.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, AppName), nil
	}
	if xdg := os.Getenv(env); xdg != "" {
		return filepath.Join(xdg, AppName), nil
	}
	home, err := platform.homeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, fallback, AppName), nil
}

// ResolveConfigDir returns the absolute configuration directory:
// flag > REPOKIT_CONFIG_DIR > $(CWD)/.repokit.
func ResolveConfigDir(flag string) (string, error) {
	return resolve(DefaultConfigDirName, flag, os.Getenv(EnvConfigDir))
}

// ResolveDataDir returns the absolute data directory:
// flag > config.yaml data_dir > REPOKIT_DATA_DIR > $(CWD)/.repokit-db.
func ResolveDataDir(flag, configValue string) (string, error) {
	return resolve(DefaultDataDirName, flag, configValue, os.Getenv(EnvDataDir))
}

// resolve returns the first non-empty candidate made absolute, or name
// under the working directory.
func resolve(name string, candidates ...string) (string, error) {
	for _, c := range candidates {
		if c != "" {
			return filepath.Abs(c)
		}
	}
	cwd, err := platform.getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, name), nil
}
