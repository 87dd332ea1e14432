package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/rtxops/rtxctl/pkg/backup"
)

// DefaultConfigFile is the startup configuration on the device file system.
const DefaultConfigFile = "/system/config0"

// FileFetcher is implemented by transports that can copy files off the
// device, such as the SSH transport over SFTP.
type FileFetcher interface {
	FetchFile(ctx context.Context, remotePath string) ([]byte, error)
}

// BackupFile writes a configuration file copied from the device to disk.
// Unlike Backup it does not go through the CLI, so the console is left
// untouched.
func (e *Engine) BackupFile(ctx context.Context, remotePath string, opts backup.Options) (*BackupResult, error) {
	if remotePath == "" {
		remotePath = DefaultConfigFile
	}
	ctx, op := e.begin(ctx, OpBackup, nil)

	fetcher, ok := e.transport.(FileFetcher)
	if !ok {
		return nil, op.end(NewPermanentError("file backup unavailable",
			errors.New("transport does not support file transfer")).WithCode(ErrCodeValidation))
	}

	data, err := fetcher.FetchFile(ctx, remotePath)
	if err != nil {
		return nil, op.end(e.classify(err, fmt.Sprintf("failed to fetch %s", remotePath)))
	}

	text := string(data)
	info, err := e.writeBackup(ctx, op, text, opts)
	if err != nil {
		return nil, op.end(err)
	}

	e.log(ctx).Info().
		Str("remote_path", remotePath).
		Str("path", info.Path).
		Msg("Configuration file backed up")

	return &BackupResult{
		Info:        info,
		Fingerprint: fingerprint(text),
		RunID:       op.runID(),
	}, op.end(nil)
}
