package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/grove/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"
	envPrefix      = "GROVE"

	cfgKeyBackend        = "backend"
	cfgKeyDriver         = "driver"
	cfgKeyDataDir        = "data_dir"
	cfgKeyRepresentation = "representation"
	cfgKeyLogLevel       = "log_level"
	cfgKeyListenAddr     = "listen_addr"

	defaultLogLevel   = "warn"
	defaultListenAddr = "127.0.0.1:8080"
)

// envKeys can be overridden by GROVE_<KEY>. data_dir is resolved by
// internal/paths, which ranks config.yaml above GROVE_DATA_DIR.
var envKeys = []string{cfgKeyBackend, cfgKeyDriver, cfgKeyRepresentation, cfgKeyLogLevel, cfgKeyListenAddr}

// configFile is the layout grove init writes to config.yaml.
type configFile struct {
	Backend        string `yaml:"backend"`
	Driver         string `yaml:"driver,omitempty"`
	DataDir        string `yaml:"data_dir,omitempty"`
	Representation string `yaml:"representation"`
	LogLevel       string `yaml:"log_level"`
	ListenAddr     string `yaml:"listen_addr"`
}

const configHeader = "# grove configuration. Flags and GROVE_* environment variables override these values.\n"

// loadConfig reads config.yaml from configDir. A missing file or directory
// yields the defaults.
func loadConfig(configDir string) (*viper.Viper, error) {
	v := viper.New()
	v.SetDefault(cfgKeyBackend, types.BackendSQLite)
	v.SetDefault(cfgKeyRepresentation, types.RepresentationClosure)
	v.SetDefault(cfgKeyLogLevel, defaultLogLevel)
	v.SetDefault(cfgKeyListenAddr, defaultListenAddr)
	v.SetDefault(cfgKeyDataDir, "")
	v.SetDefault(cfgKeyDriver, "")

	v.SetEnvPrefix(envPrefix)
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// writeConfigIfMissing creates config.yaml from cfg. An existing file is
// left untouched and reported as not written.
func writeConfigIfMissing(configDir string, cfg configFile) (bool, error) {
	path := filepath.Join(configDir, configFileExt)
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("stat config file: %w", err)
	}

	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return false, fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return false, fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, append([]byte(configHeader), data...), 0o644); err != nil {
		return false, fmt.Errorf("write config: %w", err)
	}
	return true, nil
}
