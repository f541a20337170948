// Integration tests for configuration loading and directory precedence.
package integration

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestDirectoriesFromEnvironment(t *testing.T) {
	env := NewTestEnv(t)
	configDir := env.Path("env-config")
	dataDir := env.Path("env-data")
	env.Env = []string{"REPOKIT_CONFIG_DIR=" + configDir, "REPOKIT_DATA_DIR=" + dataDir}

	env.MustRun("init")
	assert.FileExists(t, filepath.Join(configDir, "config.yaml"))
	assert.FileExists(t, filepath.Join(dataDir, "repokit.db"))
	assert.NoDirExists(t, env.Path(".repokit"))
}

func TestFlagsBeatEnvironment(t *testing.T) {
	env := NewTestEnv(t)
	env.Env = []string{"REPOKIT_CONFIG_DIR=" + env.Path("env-config"), "REPOKIT_DATA_DIR=" + env.Path("env-data")}

	env.MustRun("--config-dir", "flag-config", "--data-dir", "flag-data", "init")
	assert.FileExists(t, env.Path("flag-config", "config.yaml"))
	assert.FileExists(t, env.Path("flag-data", "repokit.db"))
	assert.NoDirExists(t, env.Path("env-config"))
	assert.NoDirExists(t, env.Path("env-data"))
}

func TestConfigDataDirBeatsEnvironment(t *testing.T) {
	env := NewTestEnv(t)
	writeFile(t, env.Path(".repokit", "config.yaml"), "backend: sqlite\ndata_dir: "+env.Path("from-config")+"\n")
	env.Env = []string{"REPOKIT_DATA_DIR=" + env.Path("from-env")}

	env.MustRun("init")
	assert.FileExists(t, env.Path("from-config", "repokit.db"))
	assert.NoDirExists(t, env.Path("from-env"))
}

func TestBackendFromDotenv(t *testing.T) {
	env := NewTestEnv(t)
	writeFile(t, env.Path(".env"), "REPOKIT_BACKEND=memory\n")

	// The memory backend needs no init and keeps nothing between runs.
	env.MustRun("create", `{"type":"parent","str_column":"gone","int_column":1}`)
	result := env.MustRun("list")
	assert.Equal(t, "0-0 of 0\n", result.Stdout)
	assert.NoDirExists(t, env.Path(".repokit-db"))

	result = env.Run("--env-file", "missing.env", "list")
	assert.Equal(t, 1, result.ExitCode, "falls back to sqlite without a database")
}

func TestEnvironmentBeatsDotenv(t *testing.T) {
	env := NewTestEnv(t)
	writeFile(t, env.Path(".env"), "REPOKIT_BACKEND=memory\n")
	env.Env = []string{"REPOKIT_BACKEND=postgres"}

	result := env.Run("list")
	assert.Equal(t, 1, result.ExitCode)
	assert.Contains(t, result.Stderr, "dsn")
}

func TestInvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown backend", "backend: cassandra\n"},
		{"postgres without dsn", "backend: postgres\n"},
		{"unknown log mode", "backend: memory\nlog_mode: loud\n"},
		{"malformed yaml", "backend: [memory\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := NewTestEnv(t)
			writeFile(t, env.Path(".repokit", "config.yaml"), tt.content)
			result := env.Run("list")
			assert.Equal(t, 1, result.ExitCode, result.Stderr)
		})
	}
}

func TestUserDirectories(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG directories apply on Linux only")
	}
	env := NewTestEnv(t)
	env.Env = []string{"XDG_CONFIG_HOME=" + env.Path("xdg-config"), "XDG_DATA_HOME=" + env.Path("xdg-data")}

	env.MustRun("--user", "init")
	assert.FileExists(t, env.Path("xdg-config", "repokit", "config.yaml"))
	assert.FileExists(t, env.Path("xdg-data", "repokit", "repokit.db"))
	assert.NoDirExists(t, env.Path(".repokit"))
}
