package ssh

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/pkg/sftp"
	"github.com/rs/zerolog/log"
)

// fileTransfer reads files from the device over SFTP. RTX routers expose
// their configuration and logs as files when the SFTP server is enabled.
type fileTransfer struct {
	client *SSHClient
	config *Config
}

// FetchFile reads a remote file into memory.
func (c *SSHClient) FetchFile(ctx context.Context, remotePath string) ([]byte, error) {
	if c.fileTransfer == nil {
		return nil, &TransportError{
			Op:  "fetch",
			Err: fmt.Errorf("file transfer not initialized"),
		}
	}
	var buf bytes.Buffer
	result, err := c.fileTransfer.download(ctx, remotePath, &buf)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("host", c.config.Host).
		Str("remote", remotePath).
		Int64("bytes", result.BytesTransferred).
		Dur("duration", result.Duration).
		Msg("file fetched")

	return buf.Bytes(), nil
}

// createSFTPClient creates a new SFTP client.
func (f *fileTransfer) createSFTPClient() (*sftp.Client, error) {
	sshClient, err := f.client.getClient()
	if err != nil {
		return nil, err
	}

	sftpClient, err := sftp.NewClient(sshClient)
	if err != nil {
		return nil, &TransportError{
			Op:          "sftp-init",
			Err:         fmt.Errorf("failed to create SFTP client: %w", err),
			IsTemporary: true,
		}
	}

	return sftpClient, nil
}

// download streams remotePath into dst.
func (f *fileTransfer) download(ctx context.Context, remotePath string, dst io.Writer) (*FileTransferResult, error) {
	startTime := time.Now()

	log.Debug().
		Str("host", f.config.Host).
		Str("remote", remotePath).
		Msg("downloading file")

	sftpClient, err := f.createSFTPClient()
	if err != nil {
		return nil, err
	}
	defer sftpClient.Close()

	remoteFile, err := sftpClient.Open(remotePath)
	if err != nil {
		return nil, &TransportError{
			Op:  "download",
			Err: fmt.Errorf("failed to open remote file: %w", err),
		}
	}
	defer remoteFile.Close()

	n, err := copyWithContext(ctx, dst, remoteFile)
	if err != nil {
		return nil, &TransportError{
			Op:          "download",
			Err:         fmt.Errorf("failed to copy file: %w", err),
			IsTemporary: true,
		}
	}

	finishedAt := time.Now()
	return &FileTransferResult{
		BytesTransferred: n,
		Duration:         finishedAt.Sub(startTime),
		StartedAt:        startTime,
		FinishedAt:       finishedAt,
	}, nil
}

// copyWithContext copies data from src to dst while respecting context cancellation.
func copyWithContext(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	buf := make([]byte, 32*1024)
	var written int64

	for {
		select {
		case <-ctx.Done():
			return written, ctx.Err()
		default:
		}

		nr, err := src.Read(buf)
		if nr > 0 {
			nw, werr := dst.Write(buf[:nr])
			if nw > 0 {
				written += int64(nw)
			}
			if werr != nil {
				return written, werr
			}
			if nr != nw {
				return written, io.ErrShortWrite
			}
		}
		if err != nil {
			if err == io.EOF {
				return written, nil
			}
			return written, err
		}
	}
}
