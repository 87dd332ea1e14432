package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/rtxops/rtxctl/pkg/engine"
	"github.com/rtxops/rtxctl/pkg/stores"
)

func newDiffCommand() *cobra.Command {
	var (
		intendedFile string
		ignoreLines  []string
	)

	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Detect configuration drift",
		Long: `Compare the running configuration of each device with an intended
configuration, or with the last snapshot recorded in the history store when
no intended configuration is given.

Lines matching --ignore-line patterns are left out of both sides. A pattern
matches a line exactly, or as a regular expression anchored at the start of
the line.`,
		Example: `  # Compare against an intended configuration
  rtxctl diff --intended branch.conf --host rtx1

  # Show what changed since the last backup or push
  rtxctl diff --group branch --ignore-line "^# "`,
		RunE: func(cmd *cobra.Command, args []string) error {
			intended, err := readOptionalFile(intendedFile)
			if err != nil {
				return err
			}

			log.Info().
				Str("intended", intendedFile).
				Strs("ignore_lines", ignoreLines).
				Msg("Detecting drift")

			return withApp(cmd.Context(), func(a *app) error {
				if intended == "" && a.store == nil {
					return errors.New("--intended is required when the history store is disabled")
				}

				results, runErr := a.runFleet(cmd.Context(), func(ctx context.Context, e *engine.Engine) (interface{}, error) {
					var (
						d   *engine.ConfigDiff
						err error
					)
					if intended != "" {
						d, err = e.CheckIntended(ctx, intended, ignoreLines)
					} else {
						d, err = diffSinceSnapshot(ctx, a.store, e, ignoreLines)
					}
					if d == nil {
						return nil, err
					}
					return d, err
				})
				if results == nil {
					return runErr
				}
				if err := printResults(results, renderDiff); err != nil {
					return err
				}
				return runErr
			})
		},
	}

	cmd.Flags().StringVar(&intendedFile, "intended", "", "file with the intended configuration")
	cmd.Flags().StringArrayVar(&ignoreLines, "ignore-line", nil, "line pattern to ignore; repeatable")

	return cmd
}

// diffSinceSnapshot compares the latest stored snapshot of the device with
// its running configuration.
func diffSinceSnapshot(ctx context.Context, store *stores.SQLiteStore, e *engine.Engine, ignoreLines []string) (*engine.ConfigDiff, error) {
	snap, err := store.LatestSnapshot(ctx, e.Host())
	if err != nil {
		if errors.Is(err, stores.ErrNotFound) {
			return nil, fmt.Errorf("no snapshot recorded for %s; run a backup first", e.Host())
		}
		return nil, err
	}

	running, err := e.GetConfig(ctx, "")
	if err != nil {
		return nil, err
	}
	return engine.CompareConfigs(snap.Content, running, ignoreLines)
}

func renderDiff(w io.Writer, value interface{}) {
	if d, ok := value.(*engine.ConfigDiff); ok {
		printDiff(w, d)
	}
}
