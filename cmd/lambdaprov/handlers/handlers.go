// Package handlers implements the business logic for CLI commands.
//
// Handlers are called by the command definitions in the commands package and
// know nothing about cobra. Collaborators are built through package level
// factory variables so tests can replace them.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/imamik/lambda-provisioner/internal/config"
	"github.com/imamik/lambda-provisioner/internal/instance"
	"github.com/imamik/lambda-provisioner/internal/platform/cloud"
	"github.com/imamik/lambda-provisioner/internal/platform/hcloud"
	"github.com/imamik/lambda-provisioner/internal/platform/openstack"
	"github.com/imamik/lambda-provisioner/internal/provisioning"
	"github.com/imamik/lambda-provisioner/internal/provisioning/keys"
)

// Records reads and writes instance records.
type Records interface {
	instance.Recorder
	Load(id string) (*instance.Instance, error)
}

// Factory function variables - can be replaced in tests for dependency injection.
var (
	// loadConfigFile loads config from file.
	loadConfigFile = config.LoadFile

	// loadTimeouts reads operation timeouts from the environment.
	loadTimeouts = config.LoadTimeouts

	// newGateway connects to the configured cloud provider.
	newGateway = defaultGateway

	// newKeyStore opens the private key store.
	newKeyStore = keys.NewStore

	// newRecords opens the instance record directory.
	newRecords = func(dir string) Records {
		return instance.NewFileRecorder(dir)
	}

	// newObserver creates the observer progress is reported to.
	newObserver = func() provisioning.Observer {
		return provisioning.NewConsoleObserver()
	}
)

// defaultGateway builds the gateway of cfg.Provider. Credentials come from
// HCLOUD_TOKEN for Hetzner and from the OS_* variables for OpenStack.
func defaultGateway(_ context.Context, cfg *config.Config, timeouts *config.Timeouts) (cloud.Gateway, error) {
	switch cfg.Provider {
	case config.ProviderHCloud:
		token := os.Getenv("HCLOUD_TOKEN")
		if token == "" {
			return nil, errors.New("HCLOUD_TOKEN environment variable is required")
		}
		return hcloud.NewRealClient(token,
			hcloud.WithTimeouts(timeouts),
			hcloud.WithSettings(cfg.HCloud),
			hcloud.WithProject(cfg.Project.Name),
		), nil
	case config.ProviderOpenStack:
		return openstack.NewFromEnv(cfg.OpenStack, openstack.WithTimeouts(timeouts))
	default:
		return nil, fmt.Errorf("unsupported provider %q", cfg.Provider)
	}
}

// env is what every cloud facing handler needs.
type env struct {
	cfg      *config.Config
	timeouts *config.Timeouts
	gateway  cloud.Gateway
	observer provisioning.Observer
}

func setup(ctx context.Context, configPath string) (*env, error) {
	cfg, err := loadConfigFile(configPath)
	if err != nil {
		return nil, err
	}
	timeouts := loadTimeouts()
	gw, err := newGateway(ctx, cfg, timeouts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Provider, err)
	}
	return &env{cfg: cfg, timeouts: timeouts, gateway: gw, observer: newObserver()}, nil
}
