package config

import (
	"time"

	"github.com/rtxops/rtxctl/pkg/backup"
	"github.com/rtxops/rtxctl/pkg/policy"
	"github.com/rtxops/rtxctl/pkg/telemetry"
)

// CurrentConfigVersion is the inventory format this build reads.
const CurrentConfigVersion = 1

// Config is the rtxctl inventory and application configuration.
type Config struct {
	// ConfigVersion must equal CurrentConfigVersion when a file is loaded.
	ConfigVersion int `mapstructure:"config_version" yaml:"config_version"`

	// Defaults fills every field a device leaves empty.
	Defaults Device `mapstructure:"defaults" yaml:"defaults" validate:"-"`

	// Devices is the inventory. After Load each entry has Defaults merged in.
	Devices []Device `mapstructure:"devices" yaml:"devices" validate:"dive"`

	Store  StoreConfig    `mapstructure:"store" yaml:"store"`
	Backup backup.Options `mapstructure:"backup" yaml:"backup"`
	Policy PolicyConfig   `mapstructure:"policy" yaml:"policy"`
	Fleet  FleetConfig    `mapstructure:"fleet" yaml:"fleet"`

	Telemetry telemetry.Config `mapstructure:"telemetry" yaml:"telemetry" validate:"-"`
}

// Device describes one router and how to reach it.
type Device struct {
	Name       string `mapstructure:"name" yaml:"name,omitempty" validate:"required"`
	Host       string `mapstructure:"host" yaml:"host,omitempty" validate:"required"`
	Port       int    `mapstructure:"port" yaml:"port,omitempty" validate:"omitempty,min=1,max=65535"`
	User       string `mapstructure:"user" yaml:"user,omitempty"`
	Password   string `mapstructure:"password" yaml:"password,omitempty"`
	AuthMethod string `mapstructure:"auth_method" yaml:"auth_method,omitempty" validate:"omitempty,oneof=password key agent"`

	PrivateKey string `mapstructure:"private_key" yaml:"private_key,omitempty"`
	Passphrase string `mapstructure:"passphrase" yaml:"passphrase,omitempty"`

	// Become enters administrator mode before configuration changes.
	Become         *bool  `mapstructure:"become" yaml:"become,omitempty"`
	BecomePassword string `mapstructure:"become_password" yaml:"become_password,omitempty"`

	// Charset is the console character set: ascii, sjis, euc or utf8.
	Charset string `mapstructure:"charset" yaml:"charset,omitempty" validate:"omitempty,oneof=ascii sjis euc utf8"`

	KnownHosts            string `mapstructure:"known_hosts" yaml:"known_hosts,omitempty"`
	StrictHostKeyChecking *bool  `mapstructure:"strict_host_key_checking" yaml:"strict_host_key_checking,omitempty"`

	ConnectTimeout time.Duration `mapstructure:"connect_timeout" yaml:"connect_timeout,omitempty" validate:"omitempty,min=0"`
	CommandTimeout time.Duration `mapstructure:"command_timeout" yaml:"command_timeout,omitempty" validate:"omitempty,min=0"`

	// ProxyHost is an optional jump host.
	ProxyHost string `mapstructure:"proxy_host" yaml:"proxy_host,omitempty"`
	ProxyPort int    `mapstructure:"proxy_port" yaml:"proxy_port,omitempty" validate:"omitempty,min=1,max=65535"`
	ProxyUser string `mapstructure:"proxy_user" yaml:"proxy_user,omitempty"`

	// Groups are labels for --group selection.
	Groups []string `mapstructure:"groups" yaml:"groups,omitempty"`
}

// StoreConfig locates the run history database.
type StoreConfig struct {
	Path     string `mapstructure:"path" yaml:"path"`
	Disabled bool   `mapstructure:"disabled" yaml:"disabled"`
}

// PolicyConfig controls the command-batch policy gate.
type PolicyConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Paths are extra .rego, .json or .yaml policy files or directories.
	Paths []string `mapstructure:"paths" yaml:"paths,omitempty"`

	// Environment is passed to policies as input.context.environment.
	Environment string `mapstructure:"environment" yaml:"environment,omitempty"`

	AllowCredentialChanges bool `mapstructure:"allow_credential_changes" yaml:"allow_credential_changes"`
	MaxBatchCommands       int  `mapstructure:"max_batch_commands" yaml:"max_batch_commands" validate:"min=0"`

	// Disabled lists built-in or loaded policies that are skipped.
	Disabled []string `mapstructure:"disabled" yaml:"disabled,omitempty"`

	// Rules are policies written inline in the inventory.
	Rules []PolicyRule `mapstructure:"rules" yaml:"rules,omitempty" validate:"dive"`
}

// PolicyRule is an inline Rego policy.
type PolicyRule struct {
	Name        string `mapstructure:"name" yaml:"name" validate:"required"`
	Description string `mapstructure:"description" yaml:"description,omitempty"`
	Severity    string `mapstructure:"severity" yaml:"severity,omitempty" validate:"omitempty,oneof=info warning error critical"`
	Rego        string `mapstructure:"rego" yaml:"rego" validate:"required"`
}

// Policy converts the rule for the policy engine. Inline rules are always
// enabled; list them under disabled to turn them off.
func (r PolicyRule) Policy() policy.Policy {
	return policy.Policy{
		Name:        r.Name,
		Description: r.Description,
		Severity:    policy.Severity(r.Severity),
		Rego:        r.Rego,
		Enabled:     true,
		Tags:        []string{"inventory"},
	}
}

// Params returns the data.params document the built-in policies read.
func (p PolicyConfig) Params() map[string]interface{} {
	limit := p.MaxBatchCommands
	if limit == 0 {
		limit = policy.DefaultMaxBatchCommands
	}
	return map[string]interface{}{
		"allow_credential_changes": p.AllowCredentialChanges,
		"max_batch_commands":       limit,
	}
}

// FleetConfig bounds concurrent device sessions.
type FleetConfig struct {
	MaxParallel int `mapstructure:"max_parallel" yaml:"max_parallel" validate:"min=0"`
}
