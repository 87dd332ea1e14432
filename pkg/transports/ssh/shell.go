package ssh

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/rtxops/rtxctl/pkg/transports"
)

// pagerRe matches the pagination prompt in English and Japanese consoles.
var pagerRe = regexp.MustCompile(`-+\s*(?:More|つづく)\s*-+`)

// shell drives one interactive device session. Output is read by a pump
// goroutine and consumed by readUntil; commands are written one at a time.
type shell struct {
	stdin   io.Writer
	chunks  chan []byte
	readErr chan error
	done    chan struct{}
	pending bytes.Buffer

	prompt  *regexp.Regexp
	errRe   *regexp.Regexp
	charset Charset
	timeout time.Duration

	lastPrompt string
}

func newShell(stdin io.Writer, stdout io.Reader, config *Config) *shell {
	s := &shell{
		stdin:   stdin,
		chunks:  make(chan []byte, 64),
		readErr: make(chan error, 1),
		done:    make(chan struct{}),
		prompt:  config.promptRegexp(),
		errRe:   config.errorRegexp(),
		charset: config.Charset,
		timeout: config.CommandTimeout,
	}
	go s.pump(config.Charset.decodeReader(stdout))
	return s
}

func (s *shell) pump(r io.Reader) {
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := append([]byte(nil), buf[:n]...)
			select {
			case s.chunks <- chunk:
			case <-s.done:
				return
			}
		}
		if err != nil {
			s.readErr <- err
			close(s.chunks)
			return
		}
	}
}

func (s *shell) close() {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}

// write sends text followed by a carriage return.
func (s *shell) write(text string) error {
	encoded, err := s.charset.encodeString(text)
	if err != nil {
		return err
	}
	_, err = io.WriteString(s.stdin, encoded+"\r")
	return err
}

// readUntil collects output until the last line matches one of matchers and
// returns the output with the index of the matcher that fired.
func (s *shell) readUntil(ctx context.Context, matchers []*regexp.Regexp) (string, int, error) {
	timer := time.NewTimer(s.timeout)
	defer timer.Stop()

	for {
		if idx := s.scan(matchers); idx >= 0 {
			out := s.pending.String()
			s.pending.Reset()
			return out, idx, nil
		}

		select {
		case chunk, ok := <-s.chunks:
			if !ok {
				err := ErrSessionClosed
				select {
				case readErr := <-s.readErr:
					if readErr != io.EOF {
						err = fmt.Errorf("%w: %v", ErrSessionClosed, readErr)
					}
				default:
				}
				return s.pending.String(), -1, err
			}
			s.pending.Write(bytes.ReplaceAll(chunk, []byte("\r"), nil))
		case <-ctx.Done():
			return s.pending.String(), -1, ctx.Err()
		case <-timer.C:
			return s.pending.String(), -1, ErrTimeout
		}
	}
}

// scan answers a pagination prompt if one is pending and checks the last
// line against matchers.
func (s *shell) scan(matchers []*regexp.Regexp) int {
	text := s.pending.String()

	if loc := pagerRe.FindStringIndex(text); loc != nil {
		rest := text[:loc[0]] + text[loc[1]:]
		s.pending.Reset()
		s.pending.WriteString(rest)
		if _, err := io.WriteString(s.stdin, " "); err != nil {
			log.Warn().Err(err).Msg("failed to answer pager prompt")
		}
		text = rest
	}

	last := lastLine(text)
	for i, m := range matchers {
		if m.MatchString(last) {
			return i
		}
	}
	return -1
}

// execute runs one command and returns its cleaned output. A device error
// message in the output is returned as *CommandError along with the output.
func (s *shell) execute(ctx context.Context, cmd transports.Command) (string, error) {
	var answer *regexp.Regexp
	if cmd.Prompt != "" {
		var err error
		answer, err = regexp.Compile(cmd.Prompt)
		if err != nil {
			return "", fmt.Errorf("invalid prompt pattern %q: %w", cmd.Prompt, err)
		}
	}

	if err := s.write(cmd.Command); err != nil {
		return "", fmt.Errorf("failed to send command: %w", err)
	}

	var raw strings.Builder
	for {
		matchers := []*regexp.Regexp{s.prompt}
		if answer != nil {
			matchers = []*regexp.Regexp{answer, s.prompt}
		}

		text, idx, err := s.readUntil(ctx, matchers)
		raw.WriteString(text)
		if err != nil {
			return "", err
		}

		if answer != nil && idx == 0 {
			// Each prompt is answered once.
			answer = nil
			if err := s.write(cmd.Answer); err != nil {
				return "", fmt.Errorf("failed to answer prompt: %w", err)
			}
			continue
		}
		break
	}

	s.lastPrompt = strings.TrimSpace(lastLine(raw.String()))
	out := cleanOutput(raw.String(), cmd.Command)

	if s.errRe.MatchString(out) {
		return out, &CommandError{Command: cmd.Command, Output: out}
	}
	return out, nil
}

// waitPrompt discards output up to the next prompt, such as a login banner.
func (s *shell) waitPrompt(ctx context.Context) error {
	text, _, err := s.readUntil(ctx, []*regexp.Regexp{s.prompt})
	if err != nil {
		return err
	}
	s.lastPrompt = strings.TrimSpace(lastLine(text))
	return nil
}

// administrator reports whether the last prompt was the administrator one.
func (s *shell) administrator() bool {
	return strings.HasSuffix(s.lastPrompt, "#")
}

// cleanOutput strips the echoed command and the trailing prompt line.
func cleanOutput(raw, command string) string {
	lines := strings.Split(raw, "\n")

	if len(lines) > 0 && strings.HasSuffix(strings.TrimSpace(lines[0]), strings.TrimSpace(command)) {
		lines = lines[1:]
	}
	if len(lines) > 0 {
		lines = lines[:len(lines)-1]
	}

	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func lastLine(text string) string {
	if i := strings.LastIndexByte(text, '\n'); i >= 0 {
		return text[i+1:]
	}
	return text
}
