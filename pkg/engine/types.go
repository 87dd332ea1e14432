package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rtxops/rtxctl/pkg/backup"
	"github.com/rtxops/rtxctl/pkg/netconfig"
	"github.com/rtxops/rtxctl/pkg/transports"
)

// MatchMode selects how wait_for conditions combine.
type MatchMode string

const (
	// MatchAll requires every condition to be satisfied.
	MatchAll MatchMode = "all"

	// MatchAny is satisfied by the first condition that holds.
	MatchAny MatchMode = "any"
)

// SaveWhen selects when the running configuration is saved to flash.
type SaveWhen string

const (
	SaveAlways  SaveWhen = "always"
	SaveNever   SaveWhen = "never"
	SaveChanged SaveWhen = "changed"
)

// DiffAgainst selects the base of the reported configuration diff.
type DiffAgainst string

const (
	DiffAgainstRunning  DiffAgainst = "running"
	DiffAgainstIntended DiffAgainst = "intended"
)

// Defaults for CommandOptions.
const (
	DefaultRetries  = 10
	DefaultInterval = time.Second
)

var validate = validator.New()

// CommandOptions configures RunCommands.
type CommandOptions struct {
	// Commands run in order on every attempt.
	Commands []transports.Command `json:"commands" yaml:"commands" mapstructure:"commands" validate:"required,min=1,dive"`

	// WaitFor holds conditions over the command outputs, such as
	// `result[0] contains "RTX1210"`.
	WaitFor []string `json:"wait_for,omitempty" yaml:"wait_for,omitempty" mapstructure:"wait_for"`

	// Match combines WaitFor conditions. Defaults to MatchAll.
	Match MatchMode `json:"match,omitempty" yaml:"match,omitempty" mapstructure:"match" validate:"omitempty,oneof=all any"`

	// Retries is the total number of attempts. Zero selects DefaultRetries.
	Retries int `json:"retries,omitempty" yaml:"retries,omitempty" mapstructure:"retries" validate:"gte=0"`

	// Interval is the pause between attempts.
	Interval time.Duration `json:"interval,omitempty" yaml:"interval,omitempty" mapstructure:"interval" validate:"gte=0"`

	// CheckMode runs only show commands.
	CheckMode bool `json:"check_mode,omitempty" yaml:"check_mode,omitempty" mapstructure:"check_mode"`
}

// DefaultCommandOptions returns options with the documented defaults.
func DefaultCommandOptions(commands ...string) CommandOptions {
	return CommandOptions{
		Commands: transports.Commands(commands...),
		Match:    MatchAll,
		Retries:  DefaultRetries,
		Interval: DefaultInterval,
	}
}

func (o *CommandOptions) setDefaults() {
	if o.Match == "" {
		o.Match = MatchAll
	}
	if o.Retries == 0 {
		o.Retries = DefaultRetries
	}
}

// Validate checks the options.
func (o *CommandOptions) Validate() error {
	if err := validate.Struct(o); err != nil {
		return validationError(err)
	}
	return nil
}

// CommandResult is the outcome of RunCommands.
type CommandResult struct {
	Stdout           []string   `json:"stdout" yaml:"stdout"`
	StdoutLines      [][]string `json:"stdout_lines" yaml:"stdout_lines"`
	FailedConditions []string   `json:"failed_conditions,omitempty" yaml:"failed_conditions,omitempty"`
	Warnings         []string   `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Attempts         int        `json:"attempts" yaml:"attempts"`
	Changed          bool       `json:"changed" yaml:"changed"`
	RunID            string     `json:"run_id,omitempty" yaml:"run_id,omitempty"`
}

// ConfigOptions configures ApplyConfig.
type ConfigOptions struct {
	// Lines are candidate commands placed under Parents.
	Lines []string `json:"lines,omitempty" yaml:"lines,omitempty" mapstructure:"lines"`

	// Parents is the block path Lines belong to. It also scopes the diff.
	Parents []string `json:"parents,omitempty" yaml:"parents,omitempty" mapstructure:"parents"`

	// Src is a full candidate configuration text.
	Src string `json:"src,omitempty" yaml:"src,omitempty" mapstructure:"src"`

	// Before and After wrap a non-empty change set.
	Before []string `json:"before,omitempty" yaml:"before,omitempty" mapstructure:"before"`
	After  []string `json:"after,omitempty" yaml:"after,omitempty" mapstructure:"after"`

	Match   netconfig.MatchPolicy   `json:"match,omitempty" yaml:"match,omitempty" mapstructure:"match" validate:"omitempty,oneof=line strict exact none"`
	Replace netconfig.ReplacePolicy `json:"replace,omitempty" yaml:"replace,omitempty" mapstructure:"replace" validate:"omitempty,oneof=line block"`

	// RunningConfig replaces the configuration read from the device.
	RunningConfig string `json:"running_config,omitempty" yaml:"running_config,omitempty" mapstructure:"running_config"`

	// Backup writes the running configuration to disk before any change.
	Backup        bool           `json:"backup,omitempty" yaml:"backup,omitempty" mapstructure:"backup"`
	BackupOptions backup.Options `json:"backup_options,omitempty" yaml:"backup_options,omitempty" mapstructure:"backup_options"`

	SaveWhen SaveWhen `json:"save_when,omitempty" yaml:"save_when,omitempty" mapstructure:"save_when" validate:"omitempty,oneof=always never changed"`

	// Diff requests a before/after comparison in the result.
	Diff            bool        `json:"diff,omitempty" yaml:"diff,omitempty" mapstructure:"diff"`
	DiffAgainst     DiffAgainst `json:"diff_against,omitempty" yaml:"diff_against,omitempty" mapstructure:"diff_against" validate:"omitempty,oneof=running intended"`
	DiffIgnoreLines []string    `json:"diff_ignore_lines,omitempty" yaml:"diff_ignore_lines,omitempty" mapstructure:"diff_ignore_lines"`
	IntendedConfig  string      `json:"intended_config,omitempty" yaml:"intended_config,omitempty" mapstructure:"intended_config"`

	// CheckMode computes the change set without pushing or saving it.
	CheckMode bool `json:"check_mode,omitempty" yaml:"check_mode,omitempty" mapstructure:"check_mode"`
}

func (o *ConfigOptions) setDefaults() {
	if o.Match == "" {
		o.Match = netconfig.MatchLine
	}
	if o.Replace == "" {
		o.Replace = netconfig.ReplaceLine
	}
	if o.SaveWhen == "" {
		o.SaveWhen = SaveNever
	}
}

// Validate checks the options, including the rules between fields.
func (o *ConfigOptions) Validate() error {
	if err := validate.Struct(o); err != nil {
		return validationError(err)
	}

	var problems []string
	if len(o.Lines) > 0 && o.Src != "" {
		problems = append(problems, "lines and src are mutually exclusive")
	}
	if len(o.Parents) > 0 && o.Src != "" {
		problems = append(problems, "parents and src are mutually exclusive")
	}
	if (o.Match == netconfig.MatchStrict || o.Match == netconfig.MatchExact) && len(o.Lines) == 0 {
		problems = append(problems, fmt.Sprintf("match=%s requires lines", o.Match))
	}
	if o.Replace == netconfig.ReplaceBlock && len(o.Lines) == 0 {
		problems = append(problems, "replace=block requires lines")
	}
	if o.DiffAgainst == DiffAgainstIntended && o.IntendedConfig == "" {
		problems = append(problems, "diff_against=intended requires intended_config")
	}
	if len(problems) > 0 {
		return NewPermanentError("invalid options", fmt.Errorf("%s", strings.Join(problems, "; "))).
			WithCode(ErrCodeValidation)
	}
	return nil
}

// ConfigResult is the outcome of ApplyConfig.
type ConfigResult struct {
	// Commands is the pushed (or, in check mode, computed) change set.
	Commands []string     `json:"commands,omitempty" yaml:"commands,omitempty"`
	Changed  bool         `json:"changed" yaml:"changed"`
	Saved    bool         `json:"saved,omitempty" yaml:"saved,omitempty"`
	Backup   *backup.Info `json:"backup,omitempty" yaml:"backup,omitempty"`
	Diff     *ConfigDiff  `json:"diff,omitempty" yaml:"diff,omitempty"`
	Warnings []string     `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	RunID    string       `json:"run_id,omitempty" yaml:"run_id,omitempty"`
}

// ConfigDiff compares two configurations.
type ConfigDiff struct {
	Changed bool   `json:"changed" yaml:"changed"`
	Before  string `json:"before,omitempty" yaml:"before,omitempty"`
	After   string `json:"after,omitempty" yaml:"after,omitempty"`

	// Unified is a unified diff from Before to After.
	Unified string `json:"unified,omitempty" yaml:"unified,omitempty"`

	BeforeFingerprint string `json:"before_fingerprint" yaml:"before_fingerprint"`
	AfterFingerprint  string `json:"after_fingerprint" yaml:"after_fingerprint"`
}

// BackupResult is the outcome of Backup.
type BackupResult struct {
	Info        *backup.Info `json:"backup" yaml:"backup"`
	Fingerprint string       `json:"fingerprint" yaml:"fingerprint"`
	RunID       string       `json:"run_id,omitempty" yaml:"run_id,omitempty"`
}

// validationError converts validator output into an EngineError.
func validationError(err error) error {
	if verrs, ok := err.(validator.ValidationErrors); ok {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s failed on %s", fe.Namespace(), fe.Tag()))
		}
		err = fmt.Errorf("%s", strings.Join(msgs, "; "))
	}
	return NewPermanentError("invalid options", err).WithCode(ErrCodeValidation)
}
