package dialer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
	"golang.org/x/sync/singleflight"
)

// SSHAgentKey is the Config.SSHKeyPath value that selects the SSH agent.
const SSHAgentKey = "agent"

// SSHProxyDialer reaches origins through "direct-tcpip" channels on one
// shared SSH transport.
//
// The transport is connected lazily on first use. If opening a channel
// fails for a reason other than the destination refusing it, the transport
// is discarded and re-established once.
type SSHProxyDialer struct {
	addr   string
	config *ssh.ClientConfig
	cfg    Config
	direct Dialer

	mu     sync.Mutex
	client *ssh.Client
	sf     singleflight.Group
}

// NewSSHProxyDialer validates credentials and host key settings for an SSH
// upstream at addr. It does not connect.
func NewSSHProxyDialer(cfg Config, addr, username, password string) (*SSHProxyDialer, error) {
	if username == "" {
		return nil, errors.New("ssh dialer: missing username")
	}

	signers, err := loadSigners(cfg.SSHKeyPath)
	if err != nil {
		return nil, fmt.Errorf("ssh dialer: %w", err)
	}

	var auth []ssh.AuthMethod
	if len(signers) > 0 {
		auth = append(auth, ssh.PublicKeys(signers...))
	}
	if password != "" {
		auth = append(auth, ssh.Password(password))
	}
	if len(auth) == 0 {
		return nil, errors.New("ssh dialer: missing password or key")
	}

	hostKeyCallback, err := newHostKeyCallback(cfg.SSHKnownHostsPath)
	if err != nil {
		return nil, fmt.Errorf("ssh dialer: %w", err)
	}

	return &SSHProxyDialer{
		addr: addr,
		config: &ssh.ClientConfig{
			User:            username,
			Auth:            auth,
			HostKeyCallback: hostKeyCallback,
			Timeout:         cfg.DialTimeout,
		},
		cfg:    cfg,
		direct: NewDirectDialer(cfg),
	}, nil
}

// DialContext opens a channel to address over the shared transport.
func (d *SSHProxyDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	if !strings.HasPrefix(network, "tcp") {
		return nil, fmt.Errorf("ssh proxy dial %s %s: unsupported network", network, address)
	}

	client, err := d.getClient(ctx)
	if err != nil {
		return nil, err
	}

	conn, err := client.DialContext(ctx, "tcp", address)
	if err == nil {
		return conn, nil
	}

	// The server answered, so the transport is fine.
	var openErr *ssh.OpenChannelError
	if errors.As(err, &openErr) {
		return nil, fmt.Errorf("ssh proxy dial %s: %w", address, err)
	}

	d.invalidate(client)
	client, err2 := d.getClient(ctx)
	if err2 != nil {
		return nil, fmt.Errorf("ssh proxy dial %s: %w", address, err)
	}
	conn, err = client.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("ssh proxy dial %s: %w", address, err)
	}
	return conn, nil
}

func (d *SSHProxyDialer) getClient(ctx context.Context) (*ssh.Client, error) {
	d.mu.Lock()
	client := d.client
	d.mu.Unlock()
	if client != nil {
		return client, nil
	}

	ch := d.sf.DoChan("connect", func() (any, error) {
		d.mu.Lock()
		if d.client != nil {
			c := d.client
			d.mu.Unlock()
			return c, nil
		}
		d.mu.Unlock()

		// Other waiters may outlive the caller that started the connect.
		c, err := d.connect(context.Background())
		if err != nil {
			return nil, err
		}

		d.mu.Lock()
		d.client = c
		d.mu.Unlock()
		return c, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*ssh.Client), nil
	}
}

func (d *SSHProxyDialer) connect(ctx context.Context) (*ssh.Client, error) {
	conn, err := d.direct.DialContext(ctx, "tcp", d.addr)
	if err != nil {
		return nil, fmt.Errorf("ssh transport dial: %w", err)
	}

	if d.cfg.NegotiationTimeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(d.cfg.NegotiationTimeout))
	}

	cc, chans, reqs, err := ssh.NewClientConn(conn, d.addr, d.config)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ssh handshake: %w", err)
	}

	if d.cfg.NegotiationTimeout > 0 {
		_ = conn.SetDeadline(time.Time{})
	}
	return ssh.NewClient(cc, chans, reqs), nil
}

// invalidate drops client if it is still the shared one.
func (d *SSHProxyDialer) invalidate(client *ssh.Client) {
	d.mu.Lock()
	if d.client == client {
		d.client = nil
	}
	d.mu.Unlock()
	_ = client.Close()
}

// loadSigners returns no signers for "", the agent's keys for SSHAgentKey,
// and otherwise the private key stored at keyPath.
func loadSigners(keyPath string) ([]ssh.Signer, error) {
	switch keyPath {
	case "":
		return nil, nil
	case SSHAgentKey:
		socket := os.Getenv("SSH_AUTH_SOCK")
		if socket == "" {
			return nil, errors.New("SSH_AUTH_SOCK not set")
		}
		var nd net.Dialer
		conn, err := nd.DialContext(context.Background(), "unix", socket)
		if err != nil {
			return nil, fmt.Errorf("connecting to ssh agent: %w", err)
		}
		// conn stays open for the lifetime of the returned signers.
		signers, err := agent.NewClient(conn).Signers()
		if err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("ssh agent signers: %w", err)
		}
		return signers, nil
	default:
		pem, err := os.ReadFile(keyPath) //nolint:gosec // Path is from user config.
		if err != nil {
			return nil, fmt.Errorf("reading key file: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(pem)
		if err != nil {
			return nil, fmt.Errorf("parsing key file: %w", err)
		}
		return []ssh.Signer{signer}, nil
	}
}

// newHostKeyCallback verifies host keys against a known_hosts file, adding
// keys for hosts it has never seen. An empty path disables verification.
func newHostKeyCallback(path string) (ssh.HostKeyCallback, error) {
	if path == "" {
		return ssh.InsecureIgnoreHostKey(), nil //nolint:gosec // Host key checking explicitly disabled.
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating known_hosts directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o600) //nolint:gosec // Path is from user config.
	if err != nil {
		return nil, fmt.Errorf("creating known_hosts file: %w", err)
	}
	_ = f.Close()

	check, err := knownhosts.New(path)
	if err != nil {
		return nil, fmt.Errorf("loading known_hosts: %w", err)
	}

	var mu sync.Mutex
	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		err := check(hostname, remote, key)
		var keyErr *knownhosts.KeyError
		if err == nil || !errors.As(err, &keyErr) {
			return err
		}
		if len(keyErr.Want) > 0 {
			return fmt.Errorf("host key mismatch for %s: %w", hostname, err)
		}

		mu.Lock()
		defer mu.Unlock()

		f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o600) //nolint:gosec // Path is from user config.
		if err != nil {
			return fmt.Errorf("opening known_hosts: %w", err)
		}
		defer f.Close()

		line := knownhosts.Line([]string{knownhosts.Normalize(hostname)}, key)
		if _, err := f.WriteString(line + "\n"); err != nil {
			return fmt.Errorf("writing known_hosts: %w", err)
		}
		slog.Info("ssh: added host key", "host", hostname, "path", path)
		return nil
	}, nil
}
