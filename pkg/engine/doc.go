// Package engine runs operations against Yamaha RTX devices over a CLI
// session.
//
// # Overview
//
// An Engine owns one device session and performs one operation at a time:
//
//  1. RunCommands - run commands until wait_for conditions hold (Command Retry Loop)
//  2. ApplyConfig - diff a candidate against the running configuration and push the delta
//  3. CheckIntended - compare the running configuration with an intended one
//  4. Backup - write the running configuration to disk
//  5. Facts - collect model, firmware and load information
//
// Every operation runs inside a console guard: the session's console
// settings are switched to a scripted state (no pager, wide columns) before
// the first command and put back afterwards, even when the operation fails.
//
// # Command Retry Loop
//
// RetryLoop executes the whole command batch once per attempt and evaluates
// the still-active conditions against the fresh outputs. With MatchAll a
// satisfied condition leaves the active set; with MatchAny the first
// satisfied condition ends the loop. Retries counts total attempts:
//
//	res, err := eng.RunCommands(ctx, engine.CommandOptions{
//	    Commands: transports.Commands("show environment"),
//	    WaitFor:  []string{`result[0] contains "RTX1210"`},
//	    Retries:  5,
//	    Interval: 2 * time.Second,
//	})
//
// Unsatisfied conditions are not a generic failure: the result carries the
// outputs of the last attempt and the returned error wraps
// *UnsatisfiedConditionsError with the raw expressions.
//
// # Configuration Reconciliation
//
// ApplyConfig builds the candidate tree from Lines and Parents or from Src,
// parses the running configuration with DiffIgnoreLines applied, and uses
// netconfig.ComputeDiff to find the commands to push. An empty diff means
// nothing is sent and Changed stays false.
//
//	res, err := eng.ApplyConfig(ctx, engine.ConfigOptions{
//	    Lines:   []string{"description pp test"},
//	    Parents: []string{"pp select anonymous"},
//	})
//	// res.Commands == ["pp select anonymous", "description pp test", "exit"]
//
// # Error Handling
//
// Errors are *EngineError values with a class (transient, permanent, soft)
// and a code:
//
//   - TRANSPORT_ERROR: the session failed; transient when the transport says so
//   - PARSE_ERROR: configuration text could not be parsed
//   - CONDITION_SYNTAX: a wait_for expression is malformed; nothing was run
//   - UNSATISFIED_CONDITIONS: retries exhausted with conditions still active
//   - POLICY_DENIED: a policy rejected the command batch before it was sent
//   - VALIDATION_ERROR: options are inconsistent
//
// # Fleets
//
// Fleet runs one Engine per device on its own goroutine with bounded
// parallelism. Engines never share state.
package engine
