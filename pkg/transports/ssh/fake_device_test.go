package ssh

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	gliderssh "github.com/gliderlabs/ssh"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

const (
	fakeUser          = "rtx"
	fakePassword      = "login-pass"
	fakeAdminPassword = "admin-pass"
)

// fakeDevice is an SSH server that behaves like the RTX console closely
// enough to exercise the shell: prompts, paging, administrator mode and
// device errors.
type fakeDevice struct {
	listener net.Listener
	server   *gliderssh.Server

	opts fakeOptions

	mu       sync.Mutex
	config   []string
	console  map[string]string
	received []string
	saved    bool
}

type fakeOptions struct {
	// PageSize splits "show config" output with a ---More--- prompt when
	// positive.
	PageSize int

	// FilterUnsupported rejects "show config <section>".
	FilterUnsupported bool
}

func newFakeDevice(t *testing.T, opts fakeOptions, config ...string) *fakeDevice {
	t.Helper()

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate host key: %v", err)
	}
	signer, err := ssh.NewSignerFromKey(priv)
	if err != nil {
		t.Fatalf("failed to create host signer: %v", err)
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}

	d := &fakeDevice{
		listener: listener,
		opts:     opts,
		config:   append([]string(nil), config...),
		console: map[string]string{
			"character": "ascii",
			"lines":     "24",
			"columns":   "80",
		},
	}
	d.server = &gliderssh.Server{
		Handler: d.handleSession,
		PasswordHandler: func(ctx gliderssh.Context, password string) bool {
			return ctx.User() == fakeUser && password == fakePassword
		},
		SubsystemHandlers: map[string]gliderssh.SubsystemHandler{
			"sftp": handleSFTP,
		},
	}
	d.server.AddHostKey(signer)

	go func() { _ = d.server.Serve(listener) }()
	t.Cleanup(func() { _ = d.server.Close() })

	return d
}

func handleSFTP(sess gliderssh.Session) {
	server, err := sftp.NewServer(sess)
	if err != nil {
		return
	}
	_ = server.Serve()
}

// clientConfig returns a transport config pointing at the device.
func (d *fakeDevice) clientConfig() *Config {
	addr := d.listener.Addr().(*net.TCPAddr)

	config := DefaultConfig("127.0.0.1", fakeUser)
	config.Port = addr.Port
	config.Password = fakePassword
	config.BecomePassword = fakeAdminPassword
	config.StrictHostKeyChecking = false
	config.KnownHostsPath = ""
	config.ConnectionTimeout = 5 * time.Second
	config.CommandTimeout = 5 * time.Second
	return config
}

// Received returns every line the device read, in order.
func (d *fakeDevice) Received() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.received...)
}

func (d *fakeDevice) Config() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.config...)
}

func (d *fakeDevice) Saved() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.saved
}

func (d *fakeDevice) Console(name string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.console[name]
}

// session holds per-connection console state.
type session struct {
	rw      io.ReadWriter
	admin   bool
	dirty   bool
	pending func(line string) string
}

func (s *session) prompt() string {
	if s.admin {
		return "# "
	}
	return "> "
}

func (d *fakeDevice) handleSession(sess gliderssh.Session) {
	if _, _, ok := sess.Pty(); !ok {
		_, _ = io.WriteString(sess, "pty required\r\n")
		return
	}

	s := &session{rw: sess}
	_, _ = io.WriteString(sess, "\r\nRTX1210 Rev.14.01.42 (Fri Jan 15 10:00:00 2026)\r\n\r\n> ")

	var line strings.Builder
	buf := make([]byte, 1)
	for {
		if _, err := sess.Read(buf); err != nil {
			return
		}
		switch buf[0] {
		case '\n':
			continue
		case '\r':
			text := line.String()
			line.Reset()
			if !d.handleLine(s, text) {
				return
			}
		default:
			line.WriteByte(buf[0])
		}
	}
}

// handleLine processes one input line and reports whether the session
// stays open.
func (d *fakeDevice) handleLine(s *session, text string) bool {
	d.mu.Lock()
	d.received = append(d.received, text)
	d.mu.Unlock()

	if s.pending != nil {
		answer := s.pending
		s.pending = nil
		// Answers are not echoed.
		_, _ = io.WriteString(s.rw, "\r\n"+answer(text))
		return true
	}

	_, _ = io.WriteString(s.rw, text+"\r\n")

	command := strings.TrimSpace(text)
	switch {
	case command == "":
	case command == "administrator":
		_, _ = io.WriteString(s.rw, "Password: ")
		s.pending = func(answer string) string {
			if answer != fakeAdminPassword {
				return "Error: Password is incorrect\r\n" + s.prompt()
			}
			s.admin = true
			return s.prompt()
		}
		return true
	case command == "exit":
		if !s.admin {
			return false
		}
		if s.dirty {
			_, _ = io.WriteString(s.rw, "Save new configuration ? (Y/N)")
			s.pending = func(answer string) string {
				if strings.EqualFold(answer, "Y") {
					d.mu.Lock()
					d.saved = true
					d.mu.Unlock()
				}
				s.admin = false
				s.dirty = false
				return s.prompt()
			}
			return true
		}
		s.admin = false
	case command == "show config | grep console":
		d.writeLines(s, d.consoleLines())
	case strings.HasPrefix(command, "show config"):
		filter := strings.TrimSpace(strings.TrimPrefix(command, "show config"))
		if filter != "" && d.opts.FilterUnsupported {
			d.writeLines(s, []string{"Error: Invalid parameter"})
			break
		}
		if !d.showConfig(s, filter) {
			return false
		}
	case command == "show environment":
		d.writeLines(s, []string{"RTX1210 Rev.14.01.42", "Uptime: 3days 02:10:45", "CPU: 3%(5sec)"})
	case strings.HasPrefix(command, "console "):
		d.setConsole(strings.Fields(command))
	case strings.HasPrefix(command, "no console "):
		d.setConsole(strings.Fields(command)[1:])
	case command == "save":
		if !s.admin {
			d.writeLines(s, []string{"Error: Invalid command name"})
			break
		}
		d.mu.Lock()
		d.saved = true
		d.mu.Unlock()
		s.dirty = false
		d.writeLines(s, []string{"Saving ... CONFIG0 Done ."})
	case strings.HasPrefix(command, "show "):
		d.writeLines(s, []string{"Error: Invalid parameter"})
	case command == "invalid" || !s.admin:
		d.writeLines(s, []string{"Error: Invalid command name"})
	default:
		d.mu.Lock()
		d.config = append(d.config, command)
		d.mu.Unlock()
		s.dirty = true
	}

	_, _ = io.WriteString(s.rw, s.prompt())
	return true
}

func (d *fakeDevice) writeLines(s *session, lines []string) {
	for _, l := range lines {
		_, _ = io.WriteString(s.rw, l+"\r\n")
	}
}

// showConfig writes the configuration, pausing at every page boundary
// until a space arrives.
func (d *fakeDevice) showConfig(s *session, filter string) bool {
	var lines []string
	for _, l := range d.Config() {
		if filter == "" || strings.Contains(l, filter) {
			lines = append(lines, l)
		}
	}

	for i, l := range lines {
		if d.opts.PageSize > 0 && i > 0 && i%d.opts.PageSize == 0 {
			_, _ = io.WriteString(s.rw, "---More---")
			b := make([]byte, 1)
			if _, err := s.rw.Read(b); err != nil {
				return false
			}
		}
		_, _ = io.WriteString(s.rw, l+"\r\n")
	}
	return true
}

func (d *fakeDevice) consoleLines() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	var lines []string
	for _, name := range []string{"character", "lines", "columns"} {
		if v := d.console[name]; v != "" {
			lines = append(lines, fmt.Sprintf("console %s %s", name, v))
		}
	}
	return lines
}

// setConsole applies "console <name> <value>"; a missing value resets.
func (d *fakeDevice) setConsole(fields []string) {
	if len(fields) < 2 {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	value := ""
	if len(fields) > 2 {
		value = fields[2]
		if fields[1] == "columns" {
			if _, err := strconv.Atoi(value); err != nil {
				return
			}
		}
	}
	d.console[fields[1]] = value
}
