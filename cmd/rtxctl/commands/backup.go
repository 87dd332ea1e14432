package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/rtxops/rtxctl/pkg/engine"
)

func newBackupCommand() *cobra.Command {
	var (
		dir        string
		filename   string
		viaSFTP    bool
		remotePath string
	)

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Back up device configurations",
		Long: `Write the running configuration of each device to disk.

Files are named <host>_config.<YYYY-MM-DD>@<HH:MM:SS> inside the backup
directory unless --filename is given. Each backup is also stored as a
snapshot in the history store, which "rtxctl diff" compares against.

With --via-sftp the saved configuration file is copied over SFTP instead of
being read from the command line; the device must have sftpd enabled.`,
		Example: `  # Back up every device
  rtxctl backup

  # Back up one device into a given directory
  rtxctl backup --host rtx1 --dir /srv/backups

  # Copy the startup configuration over SFTP
  rtxctl backup --via-sftp --remote-path /system/config0`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app) error {
				opts := a.cfg.Backup
				if dir != "" {
					opts.DirPath = dir
				}
				if filename != "" {
					opts.Filename = filename
				}

				log.Info().
					Str("dir", opts.DirPath).
					Bool("via_sftp", viaSFTP).
					Msg("Backing up configurations")

				results, runErr := a.runFleet(cmd.Context(), func(ctx context.Context, e *engine.Engine) (interface{}, error) {
					var (
						res *engine.BackupResult
						err error
					)
					if viaSFTP {
						res, err = e.BackupFile(ctx, remotePath, opts)
					} else {
						res, err = e.Backup(ctx, opts)
					}
					if res == nil {
						return nil, err
					}
					return res, err
				})
				if results == nil {
					return runErr
				}
				if err := printResults(results, renderBackup); err != nil {
					return err
				}
				return runErr
			})
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", "", "backup directory (default from config)")
	cmd.Flags().StringVar(&filename, "filename", "", "backup file name")
	cmd.Flags().BoolVar(&viaSFTP, "via-sftp", false, "copy the configuration file over SFTP")
	cmd.Flags().StringVar(&remotePath, "remote-path", engine.DefaultConfigFile, "configuration file on the device for --via-sftp")

	return cmd
}

func renderBackup(w io.Writer, value interface{}) {
	res, ok := value.(*engine.BackupResult)
	if !ok || res.Info == nil {
		return
	}
	fmt.Fprintf(w, "%s\nfingerprint: %s\n", res.Info.Path, res.Fingerprint)
}
