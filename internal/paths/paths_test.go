package paths

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePlatform replaces platform detection for the duration of a test.
func fakePlatform(t *testing.T, goos string) {
	t.Helper()
	saved := platform
	t.Cleanup(func() { platform = saved })
	platform.goos = goos
	platform.homeDir = func() (string, error) { return "/home/gopher", nil }
	platform.userConfigDir = func() (string, error) { return "/Users/gopher/Library/Application Support", nil }
	platform.getwd = func() (string, error) { return "/work", nil }
}

func TestUserDirs(t *testing.T) {
	tests := []struct {
		name       string
		goos       string
		env        map[string]string
		wantConfig string
		wantData   string
	}{
		{
			name:       "linux with XDG variables",
			goos:       "linux",
			env:        map[string]string{"XDG_CONFIG_HOME": "/xdg/config", "XDG_DATA_HOME": "/xdg/data"},
			wantConfig: "/xdg/config/repokit",
			wantData:   "/xdg/data/repokit",
		},
		{
			name:       "linux home fallback",
			goos:       "linux",
			env:        map[string]string{"XDG_CONFIG_HOME": "", "XDG_DATA_HOME": ""},
			wantConfig: "/home/gopher/.config/repokit",
			wantData:   "/home/gopher/.local/share/repokit",
		},
		{
			name:       "darwin ignores XDG",
			goos:       "darwin",
			env:        map[string]string{"XDG_CONFIG_HOME": "/xdg/config"},
			wantConfig: "/Users/gopher/Library/Application Support/repokit",
			wantData:   "/Users/gopher/Library/Application Support/repokit",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fakePlatform(t, tt.goos)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			got, err := UserConfigDir()
			require.NoError(t, err)
			assert.Equal(t, tt.wantConfig, got)

			got, err = UserDataDir()
			require.NoError(t, err)
			assert.Equal(t, tt.wantData, got)
		})
	}
}

func TestUserDirsHomeError(t *testing.T) {
	fakePlatform(t, "linux")
	t.Setenv("XDG_CONFIG_HOME", "")
	errNoHome := errors.New("no home")
	platform.homeDir = func() (string, error) { return "", errNoHome }

	_, err := UserConfigDir()
	assert.ErrorIs(t, err, errNoHome)
}

func TestResolveConfigDir(t *testing.T) {
	tests := []struct {
		name string
		flag string
		env  string
		want string
	}{
		{name: "flag wins over env", flag: "/explicit/config", env: "/env/config", want: "/explicit/config"},
		{name: "env wins when flag empty", env: "/env/config", want: "/env/config"},
		{name: "cwd default when both empty", want: "/work/.repokit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fakePlatform(t, "linux")
			t.Setenv(EnvConfigDir, tt.env)
			got, err := ResolveConfigDir(tt.flag)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveDataDir(t *testing.T) {
	tests := []struct {
		name   string
		flag   string
		config string
		env    string
		want   string
	}{
		{name: "flag wins over all", flag: "/flag/data", config: "/config/data", env: "/env/data", want: "/flag/data"},
		{name: "config.yaml wins over env", config: "/config/data", env: "/env/data", want: "/config/data"},
		{name: "env wins when flag and config empty", env: "/env/data", want: "/env/data"},
		{name: "cwd default when all empty", want: "/work/.repokit-db"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fakePlatform(t, "linux")
			t.Setenv(EnvDataDir, tt.env)
			got, err := ResolveDataDir(tt.flag, tt.config)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveMakesPathsAbsolute(t *testing.T) {
	cwd, err := os.Getwd()
	require.NoError(t, err)

	t.Setenv(EnvConfigDir, "relative/env")
	got, err := ResolveConfigDir("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cwd, "relative/env"), got)

	t.Setenv(EnvDataDir, "")
	got, err = ResolveDataDir("", "relative/config")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cwd, "relative/config"), got)
}
