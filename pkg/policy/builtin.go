package policy

import (
	"time"
)

// Built-in policy names.
const (
	PolicyDestructiveCommands = "destructive-commands"
	PolicyCredentialChanges   = "credential-changes"
	PolicyEmptyCommands       = "empty-commands"
	PolicyBatchSize           = "batch-size"
)

// DefaultMaxBatchCommands is the batch size above which batch-size warns.
const DefaultMaxBatchCommands = 200

// GetBuiltinPolicies returns all built-in policies.
func GetBuiltinPolicies() []Policy {
	return []Policy{
		destructiveCommandsPolicy(),
		credentialChangesPolicy(),
		emptyCommandsPolicy(),
		batchSizePolicy(),
	}
}

// destructiveCommandsPolicy forbids commands that reset, reboot or erase the
// device.
func destructiveCommandsPolicy() Policy {
	return Policy{
		Name:        PolicyDestructiveCommands,
		Description: "Forbids commands that reset, restart or erase the router",
		Severity:    SeverityCritical,
		Enabled:     true,
		Tags:        []string{"safety"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package rtxctl.policies.destructive

import rego.v1

destructive := [
	{"pattern": "^cold\\s+start", "reason": "resets the router to factory defaults"},
	{"pattern": "^restart(\\s|$)", "reason": "restarts the router"},
	{"pattern": "^delete\\s+config", "reason": "erases a stored configuration"},
	{"pattern": "^clear\\s+log", "reason": "erases the system log"},
	{"pattern": "^format\\s", "reason": "formats external storage"},
]

deny contains violation if {
	some cmd in input.commands
	some rule in destructive
	regex.match(rule.pattern, lower(trim_space(cmd)))
	violation := {
		"message": sprintf("command '%s' %s", [trim_space(cmd), rule.reason]),
		"severity": "critical",
		"command": cmd,
	}
}`,
	}
}

// credentialChangesPolicy forbids changing login and administrator
// credentials unless data.params.allow_credential_changes is true.
func credentialChangesPolicy() Policy {
	return Policy{
		Name:        PolicyCredentialChanges,
		Description: "Forbids changing login or administrator credentials unless explicitly allowed",
		Severity:    SeverityError,
		Enabled:     true,
		Tags:        []string{"security", "credentials"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package rtxctl.policies.credentials

import rego.v1

credential_prefixes := [
	"administrator password",
	"login password",
	"login user",
]

default allow_changes := false

allow_changes if data.params.allow_credential_changes == true

deny contains violation if {
	not allow_changes
	some cmd in input.commands
	some prefix in credential_prefixes
	startswith(trim_space(cmd), prefix)
	violation := {
		"message": sprintf("credential change '%s' requires allow_credential_changes", [prefix]),
		"severity": "error",
		"command": cmd,
	}
}`,
	}
}

// emptyCommandsPolicy rejects blank entries, which the device would answer
// with a bare prompt and which usually point at a templating mistake.
func emptyCommandsPolicy() Policy {
	return Policy{
		Name:        PolicyEmptyCommands,
		Description: "Rejects empty commands in a batch",
		Severity:    SeverityError,
		Enabled:     true,
		Tags:        []string{"validation"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package rtxctl.policies.empty

import rego.v1

deny contains violation if {
	some i, cmd in input.commands
	trim_space(cmd) == ""
	violation := {
		"message": sprintf("command %d is empty", [i]),
		"severity": "error",
		"command": cmd,
	}
}`,
	}
}

// batchSizePolicy warns about unusually large pushes.
func batchSizePolicy() Policy {
	return Policy{
		Name:        PolicyBatchSize,
		Description: "Warns when a batch exceeds max_batch_commands",
		Severity:    SeverityWarning,
		Enabled:     true,
		Tags:        []string{"review"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package rtxctl.policies.batch

import rego.v1

default max_commands := 200

max_commands := data.params.max_batch_commands

deny contains violation if {
	not input.check_mode
	count(input.commands) > max_commands
	violation := {
		"message": sprintf("batch of %d commands exceeds %d, review before pushing", [count(input.commands), max_commands]),
		"severity": "warning",
	}
}`,
	}
}
