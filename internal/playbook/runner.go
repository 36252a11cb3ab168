package playbook

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/imamik/lambda-provisioner/internal/config"
	"github.com/imamik/lambda-provisioner/internal/platform/ssh"
	"github.com/imamik/lambda-provisioner/internal/provisioning"
)

// ExecFunc runs a command and returns its combined output.
type ExecFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

func execCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	// #nosec G204 -- binary and arguments come from local configuration
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// ReadyFunc blocks until host accepts SSH connections with key and has
// finished booting.
type ReadyFunc func(ctx context.Context, host, user string, key []byte) error

func waitSSH(ctx context.Context, host, user string, key []byte) error {
	client, err := ssh.NewClient(&ssh.Config{Host: host, User: user, PrivateKey: key})
	if err != nil {
		return err
	}
	return client.WaitReady(ctx)
}

// Runner runs playbooks against clusters.
type Runner struct {
	bin       string
	dir       string
	user      string
	playbooks []string
	exec      ExecFunc
	ready     ReadyFunc
	observer  provisioning.Observer
}

// Option configures a Runner.
type Option func(*Runner)

// WithExec replaces the command executor.
func WithExec(fn ExecFunc) Option {
	return func(r *Runner) {
		r.exec = fn
	}
}

// WithReadiness replaces the master readiness probe.
func WithReadiness(fn ReadyFunc) Option {
	return func(r *Runner) {
		r.ready = fn
	}
}

// WithObserver sets the observer progress is reported to.
func WithObserver(o provisioning.Observer) Option {
	return func(r *Runner) {
		r.observer = o
	}
}

// NewRunner creates a runner from the playbook configuration.
func NewRunner(cfg config.PlaybooksConfig, opts ...Option) *Runner {
	r := &Runner{
		bin:       cfg.AnsibleBin,
		dir:       config.ExpandHome(cfg.Dir),
		user:      cfg.User,
		playbooks: cfg.Run,
		exec:      execCommand,
		ready:     waitSSH,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.observer == nil {
		r.observer = provisioning.NewConsoleObserver()
	}
	return r
}

// Playbooks returns the playbooks Run executes, in order.
func (r *Runner) Playbooks() []string {
	return r.playbooks
}

// Path returns the location of a playbook file.
func (r *Runner) Path(playbook string) string {
	return filepath.Join(r.dir, "playbooks", playbook)
}

// Run writes the inventory of desc and runs every configured playbook in
// order. keyPath is the private key Ansible connects with. When desc still
// carries the private key and the master is public, Run first waits for the
// master to finish booting.
func (r *Runner) Run(ctx context.Context, desc *provisioning.ClusterDescriptor, keyPath string) error {
	if r.dir == "" {
		return fmt.Errorf("playbook directory is not configured")
	}

	if host := desc.Master.PublicAddress(); host != "" && len(desc.PrivateKey) > 0 {
		r.observer.Printf("Waiting for SSH on %s", host)
		if err := r.ready(ctx, host, r.user, desc.PrivateKey); err != nil {
			return fmt.Errorf("master %s is not reachable: %w", desc.Master.Name, err)
		}
	}

	inv, err := NewInventory(desc, r.user, keyPath)
	if err != nil {
		return err
	}
	data, err := inv.Marshal()
	if err != nil {
		return err
	}

	tmpfile, err := os.CreateTemp("", fmt.Sprintf("lambda-%s-*.yaml", desc.ClusterID))
	if err != nil {
		return fmt.Errorf("failed to create inventory file: %w", err)
	}
	defer func() {
		_ = os.Remove(tmpfile.Name())
	}()
	if _, err := tmpfile.Write(data); err != nil {
		_ = tmpfile.Close()
		return fmt.Errorf("failed to write inventory file: %w", err)
	}
	if err := tmpfile.Close(); err != nil {
		return fmt.Errorf("failed to close inventory file: %w", err)
	}

	for i, pb := range r.playbooks {
		if err := r.RunOne(ctx, tmpfile.Name(), pb); err != nil {
			return err
		}
		r.observer.Progress("playbooks", i+1, len(r.playbooks))
	}
	return nil
}

// RunOne runs a single playbook against an existing inventory file.
func (r *Runner) RunOne(ctx context.Context, inventoryPath, playbook string) error {
	path := r.Path(playbook)
	r.observer.Printf("Running playbook %s", path)
	output, err := r.exec(ctx, r.bin, "-i", inventoryPath, path)
	if err != nil {
		return fmt.Errorf("playbook %s failed: %w\nOutput: %s", playbook, err, string(output))
	}
	return nil
}
