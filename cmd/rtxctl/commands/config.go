package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/rtxops/rtxctl/pkg/engine"
	"github.com/rtxops/rtxctl/pkg/netconfig"
)

func newConfigCommand() *cobra.Command {
	var (
		lines           []string
		parents         []string
		srcFile         string
		before          []string
		after           []string
		match           string
		replace         string
		runningFile     string
		doBackup        bool
		backupDir       string
		backupFilename  string
		saveWhen        string
		diff            bool
		diffAgainst     string
		diffIgnoreLines []string
		intendedFile    string
	)

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Reconcile configuration on devices",
		Long: `Push configuration lines, or a whole configuration file, to the selected
devices. Only the lines missing from the running configuration are sent.

Lines are placed under the block given by repeated --parent flags. Match
selects how the candidate is compared with the running configuration (line,
strict, exact, none) and replace selects whether the whole block is resent
(line, block).`,
		Example: `  # Make sure an interface has an address
  rtxctl config --line "ip lan2 address 192.168.2.1/24" --host rtx1

  # Configure a PP block, resending it entirely on any difference
  rtxctl config --parent "pp select 1" \
    --line "pp bind lan2" --line "pppoe use lan2" --replace block

  # Push a file and save when something changed
  rtxctl config --src branch.conf --save-when changed --backup

  # Preview the commands without sending them
  rtxctl config --src branch.conf --check --diff`,
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := readOptionalFile(srcFile)
			if err != nil {
				return err
			}
			running, err := readOptionalFile(runningFile)
			if err != nil {
				return err
			}
			intended, err := readOptionalFile(intendedFile)
			if err != nil {
				return err
			}

			opts := engine.ConfigOptions{
				Lines:           lines,
				Parents:         parents,
				Src:             src,
				Before:          before,
				After:           after,
				Match:           netconfig.MatchPolicy(match),
				Replace:         netconfig.ReplacePolicy(replace),
				RunningConfig:   running,
				Backup:          doBackup,
				SaveWhen:        engine.SaveWhen(saveWhen),
				Diff:            diff,
				DiffAgainst:     engine.DiffAgainst(diffAgainst),
				DiffIgnoreLines: diffIgnoreLines,
				IntendedConfig:  intended,
				CheckMode:       checkMode,
			}
			if diffAgainst != "" {
				opts.Diff = true
			}
			if err := opts.Validate(); err != nil {
				return err
			}
			if len(opts.Lines) == 0 && opts.Src == "" {
				return fmt.Errorf("nothing to apply: pass --line or --src")
			}

			log.Info().
				Int("lines", len(lines)).
				Strs("parents", parents).
				Str("src", srcFile).
				Bool("check", checkMode).
				Msg("Reconciling configuration")

			return withApp(cmd.Context(), func(a *app) error {
				opts.BackupOptions = a.cfg.Backup
				if backupDir != "" {
					opts.BackupOptions.DirPath = backupDir
				}
				if backupFilename != "" {
					opts.BackupOptions.Filename = backupFilename
				}

				results, runErr := a.runFleet(cmd.Context(), func(ctx context.Context, e *engine.Engine) (interface{}, error) {
					res, err := e.ApplyConfig(ctx, opts)
					if res == nil {
						return nil, err
					}
					return res, err
				})
				if results == nil {
					return runErr
				}
				if err := printResults(results, renderConfigResult); err != nil {
					return err
				}
				return runErr
			})
		},
	}

	cmd.Flags().StringArrayVarP(&lines, "line", "l", nil, "configuration line; repeatable")
	cmd.Flags().StringArrayVarP(&parents, "parent", "p", nil, "parent block of the lines, outermost first; repeatable")
	cmd.Flags().StringVar(&srcFile, "src", "", "file with a full candidate configuration")
	cmd.Flags().StringArrayVar(&before, "before", nil, "command sent before a non-empty change set; repeatable")
	cmd.Flags().StringArrayVar(&after, "after", nil, "command sent after a non-empty change set; repeatable")
	cmd.Flags().StringVar(&match, "match", string(netconfig.MatchLine), "comparison policy (line, strict, exact, none)")
	cmd.Flags().StringVar(&replace, "replace", string(netconfig.ReplaceLine), "replacement policy (line, block)")
	cmd.Flags().StringVar(&runningFile, "running-config", "", "file used instead of the device running configuration")
	cmd.Flags().BoolVar(&doBackup, "backup", false, "back up the running configuration before changing it")
	cmd.Flags().StringVar(&backupDir, "backup-dir", "", "backup directory (default from config)")
	cmd.Flags().StringVar(&backupFilename, "backup-filename", "", "backup file name")
	cmd.Flags().StringVar(&saveWhen, "save-when", string(engine.SaveNever), "when to save to flash (always, never, changed)")
	cmd.Flags().BoolVar(&diff, "diff", false, "report a before/after diff")
	cmd.Flags().StringVar(&diffAgainst, "diff-against", "", "diff base (running, intended)")
	cmd.Flags().StringArrayVar(&diffIgnoreLines, "diff-ignore-line", nil, "line pattern left out of the diff; repeatable")
	cmd.Flags().StringVar(&intendedFile, "intended-config", "", "file with the intended configuration for --diff-against intended")

	return cmd
}

func renderConfigResult(w io.Writer, value interface{}) {
	res, ok := value.(*engine.ConfigResult)
	if !ok {
		return
	}
	if !res.Changed {
		fmt.Fprintln(w, "unchanged")
	}
	printLines(w, addedStyle.Render("+ "), res.Commands)
	if res.Saved {
		fmt.Fprintln(w, "saved")
	}
	if res.Backup != nil {
		fmt.Fprintf(w, "backup: %s\n", res.Backup.Path)
	}
	printDiff(w, res.Diff)
	printWarnings(w, res.Warnings)
}

func readOptionalFile(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}
