package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/rtxops/rtxctl/pkg/backup"
	"github.com/rtxops/rtxctl/pkg/telemetry"
)

// EnvPrefix prefixes environment overrides, e.g. RTXCTL_STORE_PATH.
const EnvPrefix = "RTXCTL"

var validate = validator.New()

// DefaultConfigPath returns ~/.config/rtxctl/config.yaml.
func DefaultConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve config directory: %w", err)
	}
	return filepath.Join(dir, "rtxctl", "config.yaml"), nil
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() Config {
	tel := telemetry.DefaultConfig()
	return Config{
		ConfigVersion: CurrentConfigVersion,
		Defaults: Device{
			Port:           22,
			AuthMethod:     "password",
			Charset:        "ascii",
			ConnectTimeout: 30 * time.Second,
			CommandTimeout: 60 * time.Second,
		},
		Store: StoreConfig{
			Path: "rtxctl.db",
		},
		Backup: backup.Options{
			DirPath: backup.DefaultDir,
		},
		Policy: PolicyConfig{
			Enabled:          true,
			MaxBatchCommands: 200,
		},
		Fleet: FleetConfig{
			MaxParallel: 4,
		},
		Telemetry: *tel,
	}
}

// Load reads configuration from path, or DefaultConfigPath when path is
// empty. A missing file yields the defaults; a present file must declare
// config_version. Environment variables prefixed with EnvPrefix override
// scalar keys, and ${VAR} references in secrets and paths are expanded.
func Load(path string) (*Config, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return nil, err
		}
		path = defaultPath
	}

	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, cfg)

	configLoaded := false
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else {
		configLoaded = true
	}

	if configLoaded {
		if !v.InConfig("config_version") {
			return nil, fmt.Errorf("config_version is required; expected %d", CurrentConfigVersion)
		}
		if got := v.GetInt("config_version"); got != CurrentConfigVersion {
			return nil, fmt.Errorf("unsupported config_version %d; expected %d", got, CurrentConfigVersion)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
	}

	expandConfigEnv(&cfg)
	for i := range cfg.Devices {
		cfg.Devices[i] = cfg.Defaults.Merge(cfg.Devices[i])
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("config_version", cfg.ConfigVersion)
	v.SetDefault("defaults.port", cfg.Defaults.Port)
	v.SetDefault("defaults.auth_method", cfg.Defaults.AuthMethod)
	v.SetDefault("defaults.charset", cfg.Defaults.Charset)
	v.SetDefault("defaults.connect_timeout", cfg.Defaults.ConnectTimeout)
	v.SetDefault("defaults.command_timeout", cfg.Defaults.CommandTimeout)
	v.SetDefault("store.path", cfg.Store.Path)
	v.SetDefault("store.disabled", cfg.Store.Disabled)
	v.SetDefault("backup.dir_path", cfg.Backup.DirPath)
	v.SetDefault("policy.enabled", cfg.Policy.Enabled)
	v.SetDefault("policy.max_batch_commands", cfg.Policy.MaxBatchCommands)
	v.SetDefault("fleet.max_parallel", cfg.Fleet.MaxParallel)
	v.SetDefault("telemetry.service_name", cfg.Telemetry.ServiceName)
	v.SetDefault("telemetry.service_version", cfg.Telemetry.ServiceVersion)
	v.SetDefault("telemetry.environment", cfg.Telemetry.Environment)
	v.SetDefault("telemetry.logging.level", cfg.Telemetry.Logging.Level)
	v.SetDefault("telemetry.logging.format", cfg.Telemetry.Logging.Format)
	v.SetDefault("telemetry.logging.output", cfg.Telemetry.Logging.Output)
	v.SetDefault("telemetry.tracing.enabled", cfg.Telemetry.Tracing.Enabled)
	v.SetDefault("telemetry.tracing.exporter", cfg.Telemetry.Tracing.Exporter)
	v.SetDefault("telemetry.metrics.enabled", cfg.Telemetry.Metrics.Enabled)
	v.SetDefault("telemetry.metrics.listen_address", cfg.Telemetry.Metrics.ListenAddress)
	v.SetDefault("telemetry.events.enabled", cfg.Telemetry.Events.Enabled)
}

// Validate checks struct tags, unique device names and the telemetry block.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config: %s failed on %s", fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("invalid config: %w", err)
	}

	seen := make(map[string]bool, len(c.Devices))
	for _, d := range c.Devices {
		if seen[d.Name] {
			return fmt.Errorf("invalid config: duplicate device name %q", d.Name)
		}
		seen[d.Name] = true
	}

	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("invalid telemetry config: %w", err)
	}
	return nil
}

func expandConfigEnv(cfg *Config) {
	expandDevice(&cfg.Defaults)
	for i := range cfg.Devices {
		expandDevice(&cfg.Devices[i])
	}
	cfg.Store.Path = expandEnv(cfg.Store.Path)
	cfg.Backup.DirPath = expandEnv(cfg.Backup.DirPath)
	for i, p := range cfg.Policy.Paths {
		cfg.Policy.Paths[i] = expandEnv(p)
	}
}

func expandDevice(d *Device) {
	d.Password = expandEnv(d.Password)
	d.BecomePassword = expandEnv(d.BecomePassword)
	d.Passphrase = expandEnv(d.Passphrase)
	d.PrivateKey = expandEnv(d.PrivateKey)
	d.KnownHosts = expandEnv(d.KnownHosts)
}

// expandEnv substitutes $VAR and ${VAR}; unknown variables are left as
// written so a literal "$" in a password survives.
func expandEnv(value string) string {
	if !strings.Contains(value, "$") {
		return value
	}
	return os.Expand(value, func(key string) string {
		if val, ok := os.LookupEnv(key); ok {
			return val
		}
		return "$" + key
	})
}

// WriteDefault writes an example configuration to path and returns where it
// went. An existing file is kept unless overwrite is set.
func WriteDefault(path string, overwrite bool) (string, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", err
		}
		path = defaultPath
	}

	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("config already exists at %s", path)
		}
	}

	cfg := DefaultConfig()
	cfg.Defaults.User = "admin"
	cfg.Defaults.Password = "${RTX_PASSWORD}"
	cfg.Defaults.BecomePassword = "${RTX_ADMIN_PASSWORD}"
	cfg.Devices = []Device{
		{Name: "rtx1", Host: "192.168.100.1", Groups: []string{"branch"}},
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write config: %w", err)
	}
	return path, nil
}
