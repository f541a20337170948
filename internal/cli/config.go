package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/repokit/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFile     = "config.yaml"
	envPrefix      = "REPOKIT"
)

// Config keys.
const (
	cfgKeyBackend = "backend"
	cfgKeyDataDir = "data_dir"
	cfgKeyDSN     = "dsn"
	cfgKeyLogMode = "log_mode"
)

// loadConfig reads config.yaml from configDir. REPOKIT_BACKEND, REPOKIT_DSN
// and REPOKIT_LOG_MODE override the file; data_dir is left to the paths
// package, where the file wins over REPOKIT_DATA_DIR. A missing file yields
// the defaults.
func loadConfig(configDir string) (types.Config, error) {
	v := viper.New()
	v.SetDefault(cfgKeyBackend, types.BackendSQLite)
	v.SetDefault(cfgKeyDataDir, "")
	v.SetDefault(cfgKeyDSN, "")
	v.SetDefault(cfgKeyLogMode, "")
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)
	v.SetEnvPrefix(envPrefix)
	for _, key := range []string{cfgKeyBackend, cfgKeyDSN, cfgKeyLogMode} {
		if err := v.BindEnv(key); err != nil {
			return types.Config{}, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return types.Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// defaultConfig is the content of a freshly written config.yaml.
type defaultConfig struct {
	Backend string `yaml:"backend"`
	DataDir string `yaml:"data_dir,omitempty"`
	LogMode string `yaml:"log_mode"`
}

// writeConfigIfMissing creates configDir and a default config.yaml in it.
// An existing file is left untouched. It reports whether a file was written.
func writeConfigIfMissing(configDir, dataDir string) (bool, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return false, fmt.Errorf("create config dir: %w", err)
	}
	path := filepath.Join(configDir, configFile)
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("stat config file: %w", err)
	}

	data, err := yaml.Marshal(defaultConfig{
		Backend: types.BackendSQLite,
		DataDir: dataDir,
		LogMode: "quiet",
	})
	if err != nil {
		return false, fmt.Errorf("marshal config: %w", err)
	}
	header := []byte("# repokit configuration\n# backend: memory, sqlite or postgres; postgres needs dsn.\n")
	if err := os.WriteFile(path, append(header, data...), 0o644); err != nil {
		return false, fmt.Errorf("write config: %w", err)
	}
	return true, nil
}
