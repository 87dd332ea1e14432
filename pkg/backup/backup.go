// Package backup writes running-configuration snapshots to disk under
// deterministic names derived from the device and the time of the backup.
package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultDir is the directory backups go to when Options.DirPath is empty.
const DefaultDir = "backup"

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04:05"
)

// Options controls where a backup is written.
type Options struct {
	// Filename overrides the generated file name.
	Filename string `json:"filename,omitempty" yaml:"filename,omitempty" mapstructure:"filename"`

	// DirPath overrides DefaultDir.
	DirPath string `json:"dir_path,omitempty" yaml:"dir_path,omitempty" mapstructure:"dir_path"`
}

// Info describes a written backup.
type Info struct {
	Path      string `json:"backup_path" yaml:"backup_path"`
	Filename  string `json:"filename" yaml:"filename"`
	Shortname string `json:"shortname" yaml:"shortname"`
	Date      string `json:"date" yaml:"date"`
	Time      string `json:"time" yaml:"time"`
}

// Filename returns the default backup file name for host at now, in the form
// <host>_config.<YYYY-MM-DD>@<HH:MM:SS>.
func Filename(host string, now time.Time) string {
	return fmt.Sprintf("%s_config.%s@%s", sanitize(host), now.Format(dateLayout), now.Format(timeLayout))
}

// Write stores contents for host and returns where it went.
func Write(host, contents string, opts Options, now time.Time) (*Info, error) {
	dir := opts.DirPath
	if dir == "" {
		dir = DefaultDir
	}
	name := opts.Filename
	if name == "" {
		name = Filename(host, now)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	path := filepath.Join(dir, name)
	if !strings.HasSuffix(contents, "\n") {
		contents += "\n"
	}
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		return nil, fmt.Errorf("failed to write backup: %w", err)
	}

	info := &Info{
		Path:      path,
		Filename:  name,
		Shortname: strings.TrimSuffix(path, filepath.Ext(path)),
		Date:      now.Format(dateLayout),
		Time:      now.Format(timeLayout),
	}

	log.Info().
		Str("host", host).
		Str("path", path).
		Int("bytes", len(contents)).
		Msg("Configuration backed up")

	return info, nil
}

// sanitize keeps host usable as part of a file name.
func sanitize(host string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':':
			return '_'
		}
		return r
	}, host)
}
