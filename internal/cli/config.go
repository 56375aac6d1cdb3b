package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/dbo/internal/paths"
	"github.com/mesh-intelligence/dbo/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	envPrefix      = "DBO"

	cfgKeyDriver = "driver"
	cfgKeyDSN    = "dsn"
)

// configFile holds the structure written to config.yaml.
type configFile struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn,omitempty"`
}

// loadConfig reads config.yaml from configDir and DBO_* environment
// variables. A missing config.yaml is not an error.
func loadConfig(configDir string) (*viper.Viper, error) {
	v := viper.New()
	v.SetDefault(cfgKeyDriver, types.DriverSQLite)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

// resolveConfig builds the database config with precedence
// flag > DBO_* env > config.yaml > default. A SQLite config without a DSN
// uses the database file in the data directory.
func (f *rootFlags) resolveConfig() (types.Config, string, error) {
	configDir, err := paths.ResolveConfigDir(f.configDir)
	if err != nil {
		return types.Config{}, "", fmt.Errorf("resolve config dir: %w", err)
	}
	v, err := loadConfig(configDir)
	if err != nil {
		return types.Config{}, "", err
	}

	cfg := types.Config{
		Driver: v.GetString(cfgKeyDriver),
		DSN:    v.GetString(cfgKeyDSN),
	}
	if f.driver != "" {
		cfg.Driver = f.driver
	}
	if f.dsn != "" {
		cfg.DSN = f.dsn
	}

	if cfg.Driver == types.DriverSQLite && cfg.DSN == "" {
		path, err := paths.DefaultDatabase(f.dataDir)
		if err != nil {
			return types.Config{}, "", fmt.Errorf("resolve data dir: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return types.Config{}, "", fmt.Errorf("create data dir: %w", err)
		}
		cfg.DSN = path
	}

	if err := cfg.Validate(); err != nil {
		return types.Config{}, "", err
	}
	return cfg, configDir, nil
}

// writeConfigIfMissing creates config.yaml from cfg if the file does not
// exist. It reports whether a file was written.
func writeConfigIfMissing(configDir string, cfg types.Config) (bool, error) {
	path := filepath.Join(configDir, paths.ConfigFileName)
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("stat config file: %w", err)
	}

	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return false, fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(&configFile{Driver: cfg.Driver, DSN: cfg.DSN})
	if err != nil {
		return false, fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return false, err
	}
	return true, nil
}
