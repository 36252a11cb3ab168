package openstack

import (
	"errors"
	"fmt"
	"os"

	"github.com/gophercloud/gophercloud"
	"github.com/gophercloud/gophercloud/openstack"

	"github.com/imamik/lambda-provisioner/internal/config"
	"github.com/imamik/lambda-provisioner/internal/platform/cloud"
)

// Client implements cloud.Gateway against an OpenStack cloud.
type Client struct {
	identity *gophercloud.ServiceClient
	compute  *gophercloud.ServiceClient
	network  *gophercloud.ServiceClient
	// volume is nil when the cloud has no block storage endpoint.
	volume *gophercloud.ServiceClient

	timeouts          *config.Timeouts
	externalNetworkID string
}

var _ cloud.Gateway = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithTimeouts sets custom timeouts for polling.
func WithTimeouts(t *config.Timeouts) Option {
	return func(c *Client) {
		c.timeouts = t
	}
}

// WithExternalNetwork sets the network floating IPs are allocated from.
func WithExternalNetwork(id string) Option {
	return func(c *Client) {
		c.externalNetworkID = id
	}
}

// ServiceClients groups the per-service endpoints a Client talks to.
type ServiceClients struct {
	Identity *gophercloud.ServiceClient
	Compute  *gophercloud.ServiceClient
	Network  *gophercloud.ServiceClient
	Volume   *gophercloud.ServiceClient
}

// NewClient creates a Client from already authenticated service clients.
func NewClient(sc ServiceClients, opts ...Option) *Client {
	c := &Client{
		identity: sc.Identity,
		compute:  sc.Compute,
		network:  sc.Network,
		volume:   sc.Volume,
		timeouts: config.LoadTimeouts(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewFromEnv authenticates with the OS_* environment variables and builds a Client.
// cfg.Region overrides OS_REGION_NAME.
func NewFromEnv(cfg config.OpenStackConfig, opts ...Option) (*Client, error) {
	authOpts, err := openstack.AuthOptionsFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to get auth options from env: %w", err)
	}
	authOpts.AllowReauth = true

	provider, err := openstack.AuthenticatedClient(authOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to get authenticated client: %w", err)
	}

	region := cfg.Region
	if region == "" {
		region = os.Getenv("OS_REGION_NAME")
	}
	eo := gophercloud.EndpointOpts{Region: region}

	identity, err := openstack.NewIdentityV3(provider, eo)
	if err != nil {
		return nil, fmt.Errorf("failed to get identity client: %w", err)
	}
	compute, err := openstack.NewComputeV2(provider, eo)
	if err != nil {
		return nil, fmt.Errorf("failed to get compute client: %w", err)
	}
	network, err := openstack.NewNetworkV2(provider, eo)
	if err != nil {
		return nil, fmt.Errorf("failed to get network client: %w", err)
	}
	// Block storage is optional; without it the disk quota is reported unlimited.
	volume, err := openstack.NewBlockStorageV3(provider, eo)
	if err != nil {
		volume = nil
	}

	opts = append([]Option{WithExternalNetwork(cfg.ExternalNetworkID)}, opts...)
	return NewClient(ServiceClients{
		Identity: identity,
		Compute:  compute,
		Network:  network,
		Volume:   volume,
	}, opts...), nil
}

// isNotFound reports whether err is an HTTP 404 from any OpenStack service.
func isNotFound(err error) bool {
	var e404 gophercloud.ErrDefault404
	if errors.As(err, &e404) {
		return true
	}
	var missing gophercloud.ErrResourceNotFound
	return errors.As(err, &missing)
}

// translate marks 404 errors with cloud.ErrNotFound.
func translate(err error) error {
	if err != nil && isNotFound(err) {
		return fmt.Errorf("%w: %w", cloud.ErrNotFound, err)
	}
	return err
}
