package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/cauldron/internal/paths"
	"github.com/mesh-intelligence/cauldron/pkg/types"
)

// Config keys in config.yaml.
const (
	cfgKeyBackend        = "backend"
	cfgKeyDataDir        = "data_dir"
	cfgKeyTimeout        = "timeout"
	cfgKeyRedisAddr      = "redis.addr"
	cfgKeyRedisPassword  = "redis.password"
	cfgKeyRedisDB        = "redis.db"
	cfgKeyRedisNamespace = "redis.namespace"
)

// configFile is the structure written to config.yaml on first run.
type configFile struct {
	Backend string          `yaml:"backend"`
	DataDir string          `yaml:"data_dir,omitempty"`
	Timeout string          `yaml:"timeout"`
	Redis   redisConfigFile `yaml:"redis"`
}

type redisConfigFile struct {
	Addr      string `yaml:"addr"`
	Namespace string `yaml:"namespace"`
}

// defaultConfigFile is written when config.yaml does not exist.
var defaultConfigFile = configFile{
	Backend: types.BackendSQLite,
	Timeout: types.DefaultTimeout.String(),
	Redis: redisConfigFile{
		Addr:      "localhost:6379",
		Namespace: types.DefaultRedisNamespace,
	},
}

// loadConfig resolves the config directory, creates a default config.yaml
// on first run, and builds a.config from flags and file values.
func (a *app) loadConfig() error {
	configDir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return fmt.Errorf("resolve config dir: %w", err)
	}
	if err := writeConfigIfMissing(configDir); err != nil {
		return fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	v.SetDefault(cfgKeyBackend, types.BackendSQLite)
	v.SetDefault(cfgKeyTimeout, types.DefaultTimeout)
	v.SetConfigFile(paths.ConfigFile(configDir))
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	backend := v.GetString(cfgKeyBackend)
	if a.flags.backend != "" {
		backend = a.flags.backend
	}
	dataDir, err := paths.ResolveDataDir(a.flags.dataDir, v.GetString(cfgKeyDataDir))
	if err != nil {
		return fmt.Errorf("resolve data dir: %w", err)
	}

	cfg := types.Config{
		Backend: backend,
		DataDir: dataDir,
		Timeout: v.GetDuration(cfgKeyTimeout),
		Redis: types.RedisConfig{
			Addr:      v.GetString(cfgKeyRedisAddr),
			Password:  v.GetString(cfgKeyRedisPassword),
			DB:        v.GetInt(cfgKeyRedisDB),
			Namespace: v.GetString(cfgKeyRedisNamespace),
		},
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config %s: %w", paths.ConfigFile(configDir), err)
	}

	a.configDir = configDir
	a.config = cfg
	return nil
}

// writeConfigIfMissing creates configDir and a default config.yaml if the
// file does not exist. Existing files are left alone.
func writeConfigIfMissing(configDir string) error {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return err
	}
	path := paths.ConfigFile(configDir)
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat config file: %w", err)
	}

	data, err := yaml.Marshal(&defaultConfigFile)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, append([]byte("# cauldron configuration\n"), data...), 0o644)
}

// effectiveConfig is what "cauldron config" prints.
type effectiveConfig struct {
	ConfigDir string       `yaml:"config_dir" json:"config_dir"`
	Config    types.Config `yaml:",inline" json:"config"`
}

func (a *app) newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := a.config
			if cfg.Redis.Password != "" {
				cfg.Redis.Password = "********"
			}
			shown := effectiveConfig{ConfigDir: a.configDir, Config: cfg}
			if a.flags.jsonMode {
				return printJSON(cmd, shown)
			}
			data, err := yaml.Marshal(&shown)
			if err != nil {
				return fmt.Errorf("marshal config: %w", err)
			}
			_, err = out(cmd).Write(data)
			return err
		},
	}
}
