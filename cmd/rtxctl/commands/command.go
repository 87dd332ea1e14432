package commands

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/rtxops/rtxctl/pkg/engine"
	"github.com/rtxops/rtxctl/pkg/transports"
)

func newCommandCommand() *cobra.Command {
	var (
		waitFor  []string
		match    string
		retries  int
		interval time.Duration
		prompt   string
		answer   string
	)

	cmd := &cobra.Command{
		Use:   "command <command>...",
		Short: "Run commands on devices",
		Long: `Run CLI commands on the selected devices and return their output.

With --wait-for the commands are repeated until the conditions hold or the
retry budget is spent. Conditions refer to command outputs by index:

  result[0] contains "RTX1210"
  result[1] not contains "down"
  result[0] matches "Rev\.14\.01\.\d+"

In check mode only show commands are run.`,
		Example: `  # Show the environment of every device
  rtxctl command "show environment"

  # Wait until the tunnel is up
  rtxctl command "show status tunnel 1" --host rtx1 \
    --wait-for 'result[0] contains "Current status is Online"' --retries 30 --interval 2s

  # Answer an interactive prompt
  rtxctl command "clear log" --prompt '\(Y/N\)' --answer Y`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := engine.CommandOptions{
				Commands:  transports.Commands(args...),
				WaitFor:   waitFor,
				Match:     engine.MatchMode(match),
				Retries:   retries,
				Interval:  interval,
				CheckMode: checkMode,
			}
			if prompt != "" {
				last := &opts.Commands[len(opts.Commands)-1]
				last.Prompt = prompt
				last.Answer = answer
			}
			if err := opts.Validate(); err != nil {
				return err
			}

			log.Info().
				Strs("commands", args).
				Strs("wait_for", waitFor).
				Bool("check", checkMode).
				Msg("Running commands")

			return withApp(cmd.Context(), func(a *app) error {
				results, runErr := a.runFleet(cmd.Context(), func(ctx context.Context, e *engine.Engine) (interface{}, error) {
					res, err := e.RunCommands(ctx, opts)
					if res == nil {
						return nil, err
					}
					return res, err
				})
				if results == nil {
					return runErr
				}
				if err := printResults(results, renderCommandResult); err != nil {
					return err
				}
				return runErr
			})
		},
	}

	cmd.Flags().StringArrayVarP(&waitFor, "wait-for", "w", nil, "condition over the outputs; repeatable")
	cmd.Flags().StringVar(&match, "match", string(engine.MatchAll), "how conditions combine (all, any)")
	cmd.Flags().IntVar(&retries, "retries", engine.DefaultRetries, "total number of attempts")
	cmd.Flags().DurationVar(&interval, "interval", engine.DefaultInterval, "pause between attempts")
	cmd.Flags().StringVar(&prompt, "prompt", "", "regular expression for a prompt raised by the last command")
	cmd.Flags().StringVar(&answer, "answer", "", "answer sent when --prompt matches")

	return cmd
}

func renderCommandResult(w io.Writer, value interface{}) {
	res, ok := value.(*engine.CommandResult)
	if !ok {
		return
	}
	for i, out := range res.Stdout {
		if len(res.Stdout) > 1 {
			fmt.Fprintf(w, "-- result[%d]\n", i)
		}
		fmt.Fprintln(w, out)
	}
	if res.Attempts > 1 {
		fmt.Fprintf(w, "attempts: %d\n", res.Attempts)
	}
	printLines(w, failedStyle.Render("unsatisfied: "), res.FailedConditions)
	printWarnings(w, res.Warnings)
}
