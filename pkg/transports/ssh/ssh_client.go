package ssh

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
)

// SSHClient implements Transport over a single interactive shell.
type SSHClient struct {
	config *Config

	// Connection management
	client      *ssh.Client
	proxy       *ssh.Client
	session     *ssh.Session
	shell       *shell
	connMu      sync.RWMutex
	isConnected bool
	connectedAt time.Time
	lastUsedAt  time.Time

	// agent is the SSH agent used for AuthMethodAgent
	agent     agent.Agent
	agentConn net.Conn

	// File transfer handler
	fileTransfer *fileTransfer
}

// NewSSHClient creates a new SSH transport client.
func NewSSHClient(config *Config) (*SSHClient, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	client := &SSHClient{
		config: config,
	}
	client.fileTransfer = &fileTransfer{
		client: client,
		config: config,
	}

	return client, nil
}

// Connect establishes an SSH connection to the remote host and waits for
// the first prompt of the device shell.
func (c *SSHClient) Connect(ctx context.Context) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.isConnected && c.client != nil {
		return nil
	}

	needsAgent := c.config.AuthMethod == AuthMethodAgent ||
		(c.config.IsProxyEnabled() && c.config.ProxyAuthMethod == AuthMethodAgent)
	if needsAgent && c.agent == nil {
		conn, ag, err := c.config.dialAgent()
		if err != nil {
			return &TransportError{
				Op:          "connect",
				Err:         err,
				IsTemporary: false,
				IsAuthError: true,
			}
		}
		c.agentConn = conn
		c.agent = ag
	}

	// Build SSH client config
	clientConfig, err := c.config.buildClientConfig(c.agent)
	if err != nil {
		return &TransportError{
			Op:          "connect",
			Err:         err,
			IsTemporary: false,
			IsAuthError: true,
		}
	}

	// Handle proxy/jump host if configured
	if c.config.IsProxyEnabled() {
		err = c.connectViaProxy(ctx, clientConfig)
	} else {
		err = c.connectDirect(ctx, clientConfig)
	}
	if err != nil {
		return err
	}

	if err := c.openShell(ctx); err != nil {
		_ = c.closeLocked()
		return err
	}

	if c.config.KeepAliveInterval > 0 {
		go c.keepAlive()
	}

	return nil
}

// connectDirect establishes a direct SSH connection.
func (c *SSHClient) connectDirect(ctx context.Context, clientConfig *ssh.ClientConfig) error {
	address := c.config.Address()
	log.Debug().Str("address", address).Msg("establishing SSH connection")

	// Create a channel to handle connection with timeout
	connChan := make(chan *ssh.Client, 1)
	errChan := make(chan error, 1)

	go func() {
		client, err := ssh.Dial("tcp", address, clientConfig)
		if err != nil {
			errChan <- err
			return
		}
		connChan <- client
	}()

	select {
	case <-ctx.Done():
		return &TransportError{
			Op:          "connect",
			Err:         ctx.Err(),
			IsTemporary: true,
			IsAuthError: false,
		}
	case err := <-errChan:
		return &TransportError{
			Op:          "connect",
			Err:         err,
			IsTemporary: true,
			IsAuthError: false,
		}
	case client := <-connChan:
		c.client = client
		c.isConnected = true
		c.connectedAt = time.Now()
		c.lastUsedAt = time.Now()

		log.Info().Str("address", address).Msg("SSH connection established")
		return nil
	}
}

// connectViaProxy establishes an SSH connection through a proxy/jump host.
func (c *SSHClient) connectViaProxy(ctx context.Context, targetConfig *ssh.ClientConfig) error {
	// First, connect to the proxy
	proxyConfig := &Config{
		Host:                  c.config.ProxyHost,
		Port:                  c.config.ProxyPort,
		User:                  c.config.ProxyUser,
		AuthMethod:            c.config.ProxyAuthMethod,
		Password:              c.config.ProxyPassword,
		PrivateKeyPath:        c.config.ProxyPrivateKeyPath,
		ConnectionTimeout:     c.config.ConnectionTimeout,
		StrictHostKeyChecking: c.config.StrictHostKeyChecking,
		KnownHostsPath:        c.config.KnownHostsPath,
	}

	proxyClientConfig, err := proxyConfig.buildClientConfig(c.agent)
	if err != nil {
		return fmt.Errorf("failed to build proxy config: %w", err)
	}

	log.Debug().Str("proxy", proxyConfig.Address()).Msg("connecting to proxy host")

	dialer := net.Dialer{Timeout: c.config.ConnectionTimeout}
	rawConn, err := dialer.DialContext(ctx, "tcp", proxyConfig.Address())
	if err != nil {
		return &TransportError{
			Op:          "connect-proxy",
			Err:         err,
			IsTemporary: true,
			IsAuthError: false,
		}
	}
	pcc, pchans, preqs, err := ssh.NewClientConn(rawConn, proxyConfig.Address(), proxyClientConfig)
	if err != nil {
		_ = rawConn.Close()
		return &TransportError{
			Op:          "connect-proxy",
			Err:         err,
			IsTemporary: true,
			IsAuthError: true,
		}
	}
	proxyClient := ssh.NewClient(pcc, pchans, preqs)

	// Now connect to the target through the proxy
	targetAddress := c.config.Address()
	log.Debug().Str("target", targetAddress).Msg("connecting to target through proxy")

	proxyConn, err := proxyClient.Dial("tcp", targetAddress)
	if err != nil {
		_ = proxyClient.Close()
		return &TransportError{
			Op:          "connect-via-proxy",
			Err:         err,
			IsTemporary: true,
			IsAuthError: false,
		}
	}

	ncc, chans, reqs, err := ssh.NewClientConn(proxyConn, targetAddress, targetConfig)
	if err != nil {
		_ = proxyConn.Close()
		_ = proxyClient.Close()
		return &TransportError{
			Op:          "connect-via-proxy",
			Err:         err,
			IsTemporary: true,
			IsAuthError: true,
		}
	}

	c.client = ssh.NewClient(ncc, chans, reqs)
	c.proxy = proxyClient
	c.isConnected = true
	c.connectedAt = time.Now()
	c.lastUsedAt = time.Now()

	log.Info().Str("target", targetAddress).Str("proxy", proxyConfig.Address()).Msg("SSH connection established via proxy")
	return nil
}

// openShell starts the interactive shell and consumes the login banner.
func (c *SSHClient) openShell(ctx context.Context) error {
	session, err := c.client.NewSession()
	if err != nil {
		return &TransportError{
			Op:          "shell",
			Err:         fmt.Errorf("failed to create session: %w", err),
			IsTemporary: true,
		}
	}

	stdin, err := session.StdinPipe()
	if err != nil {
		session.Close()
		return &TransportError{
			Op:  "shell",
			Err: fmt.Errorf("failed to create stdin pipe: %w", err),
		}
	}

	stdout, err := session.StdoutPipe()
	if err != nil {
		session.Close()
		return &TransportError{
			Op:  "shell",
			Err: fmt.Errorf("failed to create stdout pipe: %w", err),
		}
	}

	// Request a pseudo-terminal
	if err := session.RequestPty("vt100", c.config.TerminalHeight, c.config.TerminalWidth, ssh.TerminalModes{
		ssh.ECHO:          1,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}); err != nil {
		session.Close()
		return &TransportError{
			Op:          "shell",
			Err:         fmt.Errorf("failed to request pseudo-terminal: %w", err),
			IsTemporary: true,
		}
	}

	if err := session.Shell(); err != nil {
		session.Close()
		return &TransportError{
			Op:          "shell",
			Err:         fmt.Errorf("failed to start shell: %w", err),
			IsTemporary: true,
		}
	}

	sh := newShell(stdin, stdout, c.config)
	if err := sh.waitPrompt(ctx); err != nil {
		sh.close()
		session.Close()
		return &TransportError{
			Op:          "shell",
			Err:         fmt.Errorf("no prompt after login: %w", err),
			IsTemporary: true,
		}
	}

	c.session = session
	c.shell = sh

	log.Debug().Str("host", c.config.Host).Str("prompt", sh.lastPrompt).Msg("interactive shell ready")
	return nil
}

// Disconnect closes the SSH connection and releases all resources.
func (c *SSHClient) Disconnect() error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if !c.isConnected || c.client == nil {
		return nil
	}

	log.Debug().Str("host", c.config.Host).Msg("closing SSH connection")

	if err := c.closeLocked(); err != nil {
		return &TransportError{
			Op:          "disconnect",
			Err:         err,
			IsTemporary: false,
			IsAuthError: false,
		}
	}

	return nil
}

func (c *SSHClient) closeLocked() error {
	if c.shell != nil {
		c.shell.close()
		c.shell = nil
	}
	if c.session != nil {
		_ = c.session.Close()
		c.session = nil
	}

	var err error
	if c.client != nil {
		err = c.client.Close()
		c.client = nil
	}
	if c.proxy != nil {
		_ = c.proxy.Close()
		c.proxy = nil
	}
	if c.agentConn != nil {
		_ = c.agentConn.Close()
		c.agentConn = nil
		c.agent = nil
	}
	c.isConnected = false

	return err
}

// Close leaves administrator mode without saving and disconnects.
func (c *SSHClient) Close() error {
	if c.IsConnected() {
		ctx, cancel := context.WithTimeout(context.Background(), c.config.CommandTimeout)
		defer cancel()
		if err := c.Unbecome(ctx); err != nil {
			log.Warn().Err(err).Str("host", c.config.Host).Msg("failed to leave administrator mode")
		}
	}
	return c.Disconnect()
}

// IsConnected returns true if the transport has an active connection.
func (c *SSHClient) IsConnected() bool {
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	return c.isConnected
}

// HealthCheck sends an empty line and waits for the prompt.
func (c *SSHClient) HealthCheck(ctx context.Context) error {
	sh, err := c.getShell()
	if err != nil {
		return err
	}

	if err := sh.write(""); err != nil {
		return &TransportError{Op: "healthcheck", Err: err, IsTemporary: true}
	}
	if err := sh.waitPrompt(ctx); err != nil {
		return &TransportError{Op: "healthcheck", Err: err, IsTemporary: true}
	}
	return nil
}

// keepAlive sends periodic keep-alive messages to keep the connection alive.
func (c *SSHClient) keepAlive() {
	ticker := time.NewTicker(c.config.KeepAliveInterval)
	defer ticker.Stop()

	retries := 0
	maxRetries := c.config.MaxKeepAliveRetries

	for range ticker.C {
		c.connMu.RLock()
		client := c.client
		if !c.isConnected || client == nil {
			c.connMu.RUnlock()
			return
		}
		c.connMu.RUnlock()

		// Send a keep-alive request
		_, _, err := client.SendRequest("keepalive@openssh.com", true, nil)
		if err != nil {
			retries++
			log.Warn().Err(err).Int("retries", retries).Msg("keep-alive failed")
			if retries >= maxRetries {
				log.Error().Msg("keep-alive failed too many times, connection may be dead")
				return
			}
		} else {
			retries = 0
		}
	}
}

// GetConnectionInfo returns information about the current connection.
func (c *SSHClient) GetConnectionInfo() ConnectionInfo {
	c.connMu.RLock()
	defer c.connMu.RUnlock()

	info := ConnectionInfo{
		Host:         c.config.Host,
		Port:         c.config.Port,
		User:         c.config.User,
		ConnectedAt:  c.connectedAt,
		LastActivity: c.lastUsedAt,
	}
	if c.shell != nil {
		info.Administrator = c.shell.administrator()
	}
	return info
}

// Host returns the configured device address.
func (c *SSHClient) Host() string {
	return c.config.Host
}

// getClient returns the underlying SSH client (used by file transfer).
func (c *SSHClient) getClient() (*ssh.Client, error) {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if !c.isConnected || c.client == nil {
		return nil, &TransportError{
			Op:          "get-client",
			Err:         fmt.Errorf("not connected"),
			IsTemporary: false,
			IsAuthError: false,
		}
	}

	c.lastUsedAt = time.Now()
	return c.client, nil
}

// getShell returns the interactive shell.
func (c *SSHClient) getShell() (*shell, error) {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if !c.isConnected || c.shell == nil {
		return nil, &TransportError{
			Op:          "get-shell",
			Err:         fmt.Errorf("not connected"),
			IsTemporary: false,
			IsAuthError: false,
		}
	}

	c.lastUsedAt = time.Now()
	return c.shell, nil
}
