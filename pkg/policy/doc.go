// Package policy gates command batches with Open Policy Agent (OPA) Rego
// policies before they reach a router.
//
// Every policy module defines a "deny" set. The engine evaluates each enabled
// policy with the batch as input:
//
//	{
//	  "host": "rtx1",
//	  "operation": "config",
//	  "commands": ["pp select 1", "pp keepalive use on", "exit"],
//	  "check_mode": false,
//	  "context": {"user": "ops", "environment": "production", "timestamp": "..."}
//	}
//
// Elements of "deny" are either a message string or an object with
// "message", "severity" and "command". Violations with severity error or
// critical deny the batch; warning and info are returned as warnings.
//
// # Usage
//
//	pe, err := policy.NewEngine(logger, policy.WithParams(map[string]interface{}{
//	    "allow_credential_changes": false,
//	}))
//	if err != nil {
//	    return err
//	}
//	if err := pe.LoadPolicies(ctx, []string{"/etc/rtxctl/policies"}); err != nil {
//	    return err
//	}
//	eng := engine.New(transport, engine.WithPolicy(pe))
//
// # Built-in Policies
//
//   - destructive-commands (critical): cold start, restart, delete config,
//     clear log and format.
//   - credential-changes (error): administrator password, login password and
//     login user, unless data.params.allow_credential_changes is true.
//   - empty-commands (error): blank entries in a batch.
//   - batch-size (warning): more than data.params.max_batch_commands
//     commands (default 200) outside check mode.
//
// # Custom Policies
//
// Files ending in .rego become a policy named after the file with severity
// error. JSON and YAML files hold a full Policy definition:
//
//	name: no-nat-changes
//	severity: error
//	rego: |
//	  package site.nat
//	  import rego.v1
//	  deny contains msg if {
//	    some cmd in input.commands
//	    startswith(cmd, "nat descriptor")
//	    msg := "NAT is managed by the firewall team"
//	  }
package policy
