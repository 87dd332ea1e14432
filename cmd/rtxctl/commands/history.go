package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rtxops/rtxctl/pkg/stores"
)

var errNoStore = errors.New("history store is disabled in the configuration")

func newHistoryCommand() *cobra.Command {
	var (
		operation string
		limit     int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded runs",
		Long: `List the operations recorded in the history store, newest first.

Every command, config, diff, backup and facts operation is recorded with its
device, status, whether it changed anything and the commands it sent.`,
		Example: `  # Last 20 runs
  rtxctl history

  # Config runs against one device
  rtxctl history --host rtx1 --operation config

  # Details of one run
  rtxctl history show 6f1c...`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app) error {
				if a.store == nil {
					return errNoStore
				}
				host, err := a.historyHost()
				if err != nil {
					return err
				}
				runs, err := a.store.ListRuns(cmd.Context(), stores.RunFilter{
					Host:      host,
					Operation: operation,
					Limit:     limit,
				})
				if err != nil {
					return err
				}
				return printValue(os.Stdout, runs, func(w io.Writer) { renderRuns(w, runs) })
			})
		},
	}

	cmd.Flags().StringVar(&operation, "operation", "", "filter by operation (command, config, diff, backup, facts)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of runs")

	cmd.AddCommand(newHistoryShowCommand())
	cmd.AddCommand(newHistoryDeleteCommand())
	cmd.AddCommand(newHistorySnapshotsCommand())

	return cmd
}

func newHistoryShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app) error {
				if a.store == nil {
					return errNoStore
				}
				run, err := a.store.GetRun(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printValue(os.Stdout, run, func(w io.Writer) { renderRun(w, run) })
			})
		},
	}
}

func newHistoryDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <run-id>...",
		Short: "Delete recorded runs",
		Long: `Delete runs from the history store. Snapshots taken by a deleted run are
kept but no longer reference it.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app) error {
				if a.store == nil {
					return errNoStore
				}
				for _, id := range args {
					if err := a.store.DeleteRun(cmd.Context(), id); err != nil {
						return fmt.Errorf("failed to delete run %s: %w", id, err)
					}
					fmt.Printf("%s Deleted run %s\n", okStyle.Render("✓"), id)
				}
				return nil
			})
		},
	}
}

func newHistorySnapshotShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <snapshot-id>",
		Short: "Print a stored configuration snapshot",
		Example: `  # Restore a known good configuration from history
  rtxctl history snapshots show 3b9e... > known-good.conf
  rtxctl config --src known-good.conf --host rtx1`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app) error {
				if a.store == nil {
					return errNoStore
				}
				snap, err := a.store.GetSnapshot(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printValue(os.Stdout, snap, func(w io.Writer) {
					_, _ = io.WriteString(w, snap.Content)
					if !strings.HasSuffix(snap.Content, "\n") {
						fmt.Fprintln(w)
					}
				})
			})
		},
	}
}

func newHistorySnapshotsCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "snapshots",
		Short: "List configuration snapshots of a device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(hosts) == 0 {
				return errors.New("--host is required")
			}

			return withApp(cmd.Context(), func(a *app) error {
				if a.store == nil {
					return errNoStore
				}
				host, err := a.historyHost()
				if err != nil {
					return err
				}
				snaps, err := a.store.ListSnapshots(cmd.Context(), host, limit)
				if err != nil {
					return err
				}
				return printValue(os.Stdout, snaps, func(w io.Writer) {
					tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
					fmt.Fprintln(tw, "TAKEN\tSOURCE\tFINGERPRINT\tRUN")
					for _, s := range snaps {
						runID := ""
						if s.RunID != nil {
							runID = *s.RunID
						}
						fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
							s.TakenAt.Local().Format(time.DateTime), s.Source, short(s.Fingerprint, 12), runID)
					}
					_ = tw.Flush()
				})
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of snapshots")
	cmd.AddCommand(newHistorySnapshotShowCommand())
	return cmd
}

// historyHost returns the --host filter; history takes at most one. An
// inventory name is translated to the address runs are recorded under.
func (a *app) historyHost() (string, error) {
	switch len(hosts) {
	case 0:
		return "", nil
	case 1:
		if d, ok := a.cfg.Device(hosts[0]); ok {
			return d.Host, nil
		}
		return hosts[0], nil
	}
	return "", errors.New("history accepts a single --host")
}

func renderRuns(w io.Writer, runs []*stores.Run) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tHOST\tOPERATION\tSTATUS\tCHANGED\tID")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\t%s\n",
			r.StartedAt.Local().Format(time.DateTime), r.Host, r.Operation, styleStatus(r.Status), r.Changed, r.ID)
	}
	_ = tw.Flush()
}

func renderRun(w io.Writer, r *stores.Run) {
	fmt.Fprintf(w, "id:        %s\n", r.ID)
	fmt.Fprintf(w, "host:      %s\n", r.Host)
	fmt.Fprintf(w, "operation: %s\n", r.Operation)
	fmt.Fprintf(w, "status:    %s\n", styleStatus(r.Status))
	fmt.Fprintf(w, "changed:   %t\n", r.Changed)
	fmt.Fprintf(w, "started:   %s\n", r.StartedAt.Local().Format(time.DateTime))
	if r.CompletedAt != nil {
		fmt.Fprintf(w, "duration:  %s\n", r.CompletedAt.Sub(r.StartedAt).Round(time.Millisecond))
	}
	if r.Error != nil {
		fmt.Fprintf(w, "error:     %s\n", *r.Error)
	}
	if len(r.Commands) > 0 {
		fmt.Fprintln(w, "commands:")
		printLines(w, "  ", r.Commands)
	}
	if len(r.FailedConditions) > 0 {
		fmt.Fprintln(w, "failed conditions:")
		printLines(w, "  ", r.FailedConditions)
	}
}

func styleStatus(s stores.RunStatus) string {
	switch s {
	case stores.RunStatusSucceeded:
		return okStyle.Render(string(s))
	case stores.RunStatusFailed:
		return failedStyle.Render(string(s))
	case stores.RunStatusUnsatisfied:
		return warningStyle.Render(string(s))
	}
	return string(s)
}

func short(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n]
}
