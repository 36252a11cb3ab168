package ssh

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/imamik/lambda-provisioner/internal/util/retry"
)

const (
	defaultPort        = 22
	defaultDialTimeout = 10 * time.Second
	defaultMaxRetries  = 30
	defaultRetryDelay  = 5 * time.Second
	defaultMaxDelay    = 20 * time.Second
)

// ReadyCommand waits for cloud-init to finish where it is installed.
const ReadyCommand = "cloud-init status --wait >/dev/null 2>&1 || true"

// Config holds SSH client configuration.
type Config struct {
	Host       string
	Port       int
	User       string
	PrivateKey []byte

	// DialTimeout bounds one TCP connect and handshake. Zero means defaultDialTimeout.
	DialTimeout time.Duration

	// MaxRetries bounds connection retries. Zero means defaultMaxRetries.
	MaxRetries int

	// RetryDelay is the initial delay between attempts. Zero means defaultRetryDelay.
	RetryDelay time.Duration

	// HostKeyCallback verifies the host key. Nil accepts any key; cluster
	// VMs are freshly created and their host keys are not known in advance.
	HostKeyCallback ssh.HostKeyCallback
}

// Client executes commands on one node. The private key is parsed once and
// a connection is opened per Execute call.
type Client struct {
	config *Config
	signer ssh.Signer
}

// NewClient validates cfg and parses its private key.
func NewClient(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Host == "" {
		return nil, fmt.Errorf("config host cannot be empty")
	}
	if cfg.User == "" {
		return nil, fmt.Errorf("config user cannot be empty")
	}
	if len(cfg.PrivateKey) == 0 {
		return nil, fmt.Errorf("config private key cannot be empty")
	}

	c := *cfg
	if c.Port == 0 {
		c.Port = defaultPort
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = defaultDialTimeout
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = defaultMaxRetries
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = defaultRetryDelay
	}
	if c.HostKeyCallback == nil {
		c.HostKeyCallback = ssh.InsecureIgnoreHostKey() //nolint:gosec // host keys of new VMs are unknown
	}

	signer, err := ssh.ParsePrivateKey(c.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	return &Client{config: &c, signer: signer}, nil
}

// Addr returns host:port of the node.
func (c *Client) Addr() string {
	return net.JoinHostPort(c.config.Host, strconv.Itoa(c.config.Port))
}

// Execute runs command and returns its combined output.
func (c *Client) Execute(ctx context.Context, command string) (string, error) {
	client, err := c.connect(ctx)
	if err != nil {
		return "", err
	}
	defer func() { _ = client.Close() }()

	return c.run(client, command)
}

// WaitReady connects to the node and waits until its first boot is complete.
func (c *Client) WaitReady(ctx context.Context) error {
	_, err := c.Execute(ctx, ReadyCommand)
	return err
}

func (c *Client) connect(ctx context.Context) (*ssh.Client, error) {
	cc := &ssh.ClientConfig{
		User:            c.config.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(c.signer)},
		HostKeyCallback: c.config.HostKeyCallback,
		Timeout:         c.config.DialTimeout,
	}
	addr := c.Addr()

	var client *ssh.Client
	err := retry.WithExponentialBackoff(ctx, func() error {
		var dialErr error
		client, dialErr = c.dial(ctx, addr, cc)
		return dialErr
	},
		retry.WithMaxRetries(c.config.MaxRetries),
		retry.WithInitialDelay(c.config.RetryDelay),
		retry.WithMaxDelay(defaultMaxDelay),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to establish SSH connection to %s: %w", addr, err)
	}
	return client, nil
}

// dial connects through ctx so cancellation aborts a pending connect.
func (c *Client) dial(ctx context.Context, addr string, cc *ssh.ClientConfig) (*ssh.Client, error) {
	d := net.Dialer{Timeout: c.config.DialTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	if err := conn.SetDeadline(time.Now().Add(c.config.DialTimeout)); err != nil {
		_ = conn.Close()
		return nil, err
	}
	sc, chans, reqs, err := ssh.NewClientConn(conn, addr, cc)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	_ = conn.SetDeadline(time.Time{})
	return ssh.NewClient(sc, chans, reqs), nil
}

func (c *Client) run(client *ssh.Client, command string) (string, error) {
	session, err := client.NewSession()
	if err != nil {
		return "", fmt.Errorf("failed to create SSH session on %s: %w", c.config.Host, err)
	}
	defer func() { _ = session.Close() }()

	output, err := session.CombinedOutput(command)
	if err != nil {
		return string(output), fmt.Errorf("command failed on %s: %w\nCommand: %s\nOutput: %s",
			c.config.Host, err, command, string(output))
	}
	return string(output), nil
}
