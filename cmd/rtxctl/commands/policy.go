package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rtxops/rtxctl/pkg/engine"
)

var errNoPolicy = errors.New("policy evaluation is disabled in the configuration")

func newPolicyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Inspect and test command policies",
		Long: `Rego policies are evaluated against every batch of commands before it is
sent to a device. Built-in policies guard against batches that would cut the
management session, change credentials or are too large. Additional policies
are loaded from the paths listed under policy.paths and from the inline Rego
modules under policy.rules in the configuration. Policies named under
policy.disabled stay listed but are not evaluated.`,
	}

	cmd.AddCommand(newPolicyListCommand())
	cmd.AddCommand(newPolicyShowCommand())
	cmd.AddCommand(newPolicyEvalCommand())

	return cmd
}

func newPolicyListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List loaded policies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app) error {
				if a.policy == nil {
					return errNoPolicy
				}
				policies := a.policy.ListPolicies()
				return printValue(os.Stdout, policies, func(w io.Writer) {
					tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
					fmt.Fprintln(tw, "NAME\tSEVERITY\tENABLED\tDESCRIPTION")
					for _, p := range policies {
						fmt.Fprintf(tw, "%s\t%s\t%t\t%s\n", p.Name, p.Severity, p.Enabled, p.Description)
					}
					_ = tw.Flush()
				})
			})
		},
	}
}

func newPolicyShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Print the Rego source of a policy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app) error {
				if a.policy == nil {
					return errNoPolicy
				}
				p, err := a.policy.GetPolicy(args[0])
				if err != nil {
					return err
				}
				return printValue(os.Stdout, p, func(w io.Writer) {
					fmt.Fprintf(w, "%s %s\n", hostStyle.Render(p.Name), mutedStyle.Render(string(p.Severity)))
					if p.Description != "" {
						fmt.Fprintln(w, p.Description)
					}
					if !p.Enabled {
						fmt.Fprintln(w, warningStyle.Render("disabled"))
					}
					fmt.Fprintln(w)
					fmt.Fprintln(w, strings.TrimSpace(p.Rego))
				})
			})
		},
	}
}

func newPolicyEvalCommand() *cobra.Command {
	var operation string

	cmd := &cobra.Command{
		Use:   "eval <command>...",
		Short: "Evaluate policies against commands without contacting a device",
		Example: `  # Would this batch be allowed?
  rtxctl policy eval "ip lan1 address 10.0.0.1/24" "no ip lan1 address"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			host := ""
			if len(hosts) > 0 {
				host = hosts[0]
			}

			return withApp(cmd.Context(), func(a *app) error {
				if a.policy == nil {
					return errNoPolicy
				}
				res, err := a.policy.EvaluateCommands(cmd.Context(), &engine.CommandBatch{
					Host:      host,
					Operation: operation,
					Commands:  args,
					CheckMode: checkMode,
				})
				if err != nil {
					return err
				}
				if err := printValue(os.Stdout, res, func(w io.Writer) { renderPolicyResult(w, res) }); err != nil {
					return err
				}
				if !res.Allowed {
					return fmt.Errorf("denied by %d policy violation(s)", len(res.Violations))
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&operation, "operation", "config", "operation the batch belongs to (command, config)")
	return cmd
}

func renderPolicyResult(w io.Writer, res *engine.PolicyResult) {
	if res.Allowed {
		fmt.Fprintln(w, okStyle.Render("allowed"))
	} else {
		fmt.Fprintln(w, failedStyle.Render("denied"))
	}
	for _, v := range res.Violations {
		line := fmt.Sprintf("[%s] %s: %s", v.Severity, v.Policy, v.Message)
		if v.Command != "" {
			line += fmt.Sprintf(" (%s)", strings.TrimSpace(v.Command))
		}
		if v.Severity == "warning" {
			fmt.Fprintln(w, warningStyle.Render(line))
			continue
		}
		fmt.Fprintln(w, failedStyle.Render(line))
	}
	printWarnings(w, res.Warnings)
}
