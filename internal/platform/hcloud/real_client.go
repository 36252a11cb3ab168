package hcloud

import (
	"context"
	"fmt"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/imamik/lambda-provisioner/internal/config"
	"github.com/imamik/lambda-provisioner/internal/platform/cloud"
)

// DefaultProject is the name of the synthetic project a token maps to.
const DefaultProject = "default"

// RealClient implements cloud.Gateway using the Hetzner Cloud API.
type RealClient struct {
	client      *hcloud.Client
	timeouts    *config.Timeouts
	limits      config.HCloudLimits
	location    string
	networkZone string
	project     string
}

var _ cloud.Gateway = (*RealClient)(nil)

// ClientOption configures a RealClient.
type ClientOption func(*RealClient)

// WithTimeouts sets custom timeouts for the client.
func WithTimeouts(t *config.Timeouts) ClientOption {
	return func(c *RealClient) {
		c.timeouts = t
	}
}

// WithHCloudClient sets a custom hcloud client (useful for testing).
func WithHCloudClient(hc *hcloud.Client) ClientOption {
	return func(c *RealClient) {
		c.client = hc
	}
}

// WithSettings applies location, network zone and limits from configuration.
func WithSettings(cfg config.HCloudConfig) ClientOption {
	return func(c *RealClient) {
		if cfg.Location != "" {
			c.location = cfg.Location
		}
		if cfg.NetworkZone != "" {
			c.networkZone = cfg.NetworkZone
		}
		c.limits = cfg.Limits
	}
}

// WithProject names the synthetic project reported by ListProjects.
func WithProject(name string) ClientOption {
	return func(c *RealClient) {
		if name != "" {
			c.project = name
		}
	}
}

// NewRealClient creates a new RealClient with optional configuration.
func NewRealClient(token string, opts ...ClientOption) *RealClient {
	c := &RealClient{
		client:      hcloud.NewClient(hcloud.WithToken(token), hcloud.WithApplication("lambdaprov", "")),
		timeouts:    config.LoadTimeouts(),
		location:    "nbg1",
		networkZone: string(hcloud.NetworkZoneEUCentral),
		project:     DefaultProject,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListProjects returns the single project the API token belongs to, if it matches filter.
func (c *RealClient) ListProjects(_ context.Context, filter cloud.ProjectFilter) ([]cloud.Project, error) {
	p := cloud.Project{ID: c.project, Name: c.project, State: "active"}
	if !filter.Matches(p) {
		return nil, nil
	}
	return []cloud.Project{p}, nil
}

func (c *RealClient) checkProject(projectID string) error {
	if projectID != "" && projectID != c.project {
		return fmt.Errorf("%w: project %s", cloud.ErrNotFound, projectID)
	}
	return nil
}
