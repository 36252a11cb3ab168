package hcloud

import (
	"context"
	"fmt"
	"time"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/imamik/lambda-provisioner/internal/platform/cloud"
	"github.com/imamik/lambda-provisioner/internal/poller"
	"github.com/imamik/lambda-provisioner/internal/util/retry"
)

// ListFlavors returns every server type as a flavor.
func (c *RealClient) ListFlavors(ctx context.Context) ([]cloud.Flavor, error) {
	types, err := c.client.ServerType.All(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]cloud.Flavor, 0, len(types))
	for _, st := range types {
		out = append(out, flavorOf(st))
	}
	return out, nil
}

func flavorOf(st *hcloud.ServerType) cloud.Flavor {
	return cloud.Flavor{
		ID:          formatID(st.ID),
		Name:        st.Name,
		VCPUs:       st.Cores,
		RAM:         int(st.Memory * 1024),
		Disk:        st.Disk,
		AllowCreate: true,
	}
}

// ListImages returns available system images and snapshots.
// Images are named by their description, which carries the distribution name.
func (c *RealClient) ListImages(ctx context.Context) ([]cloud.Image, error) {
	images, err := c.client.Image.AllWithOpts(ctx, hcloud.ImageListOpts{
		Type:   []hcloud.ImageType{hcloud.ImageTypeSystem, hcloud.ImageTypeSnapshot},
		Status: []hcloud.ImageStatus{hcloud.ImageStatusAvailable},
	})
	if err != nil {
		return nil, err
	}
	out := make([]cloud.Image, 0, len(images))
	for _, img := range images {
		name := img.Description
		if name == "" {
			name = img.Name
		}
		out = append(out, cloud.Image{ID: formatID(img.ID), Name: name, Status: string(img.Status)})
	}
	return out, nil
}

// CreateVM creates a server attached to the spec's network and assigns its
// floating IP. If the assignment fails the created server is returned along
// with the error.
func (c *RealClient) CreateVM(ctx context.Context, spec cloud.VMSpec) (*cloud.VM, error) {
	if err := c.checkProject(spec.ProjectID); err != nil {
		return nil, err
	}
	opts, err := c.buildServerCreateOpts(spec)
	if err != nil {
		return nil, err
	}

	result, err := c.createServerWithRetry(ctx, opts)
	if err != nil {
		return nil, err
	}

	vm := &cloud.VM{
		ID:        formatID(result.Server.ID),
		Name:      result.Server.Name,
		Status:    mapServerStatus(result.Server.Status),
		AdminPass: result.RootPassword,
	}
	if spec.FloatingIP != nil {
		if err := c.assignFloatingIP(ctx, spec.FloatingIP.ID, result.Server); err != nil {
			return vm, err
		}
	}
	return vm, nil
}

// buildServerCreateOpts maps a VM spec onto server creation options.
func (c *RealClient) buildServerCreateOpts(spec cloud.VMSpec) (hcloud.ServerCreateOpts, error) {
	serverTypeID, err := parseID("flavor", spec.FlavorID)
	if err != nil {
		return hcloud.ServerCreateOpts{}, err
	}
	imageID, err := parseID("image", spec.ImageID)
	if err != nil {
		return hcloud.ServerCreateOpts{}, err
	}

	var networks []*hcloud.Network
	if spec.NetworkID != "" {
		networkID, err := parseID("network", spec.NetworkID)
		if err != nil {
			return hcloud.ServerCreateOpts{}, err
		}
		networks = append(networks, &hcloud.Network{ID: networkID})
	}

	userData, err := cloud.CloudInit(spec.Personality, floatingIPCommands(spec.FloatingIP)...)
	if err != nil {
		return hcloud.ServerCreateOpts{}, err
	}

	// Nodes without a floating IP stay on the private network only.
	public := spec.FloatingIP != nil || len(networks) == 0

	return hcloud.ServerCreateOpts{
		Name:       spec.Name,
		ServerType: &hcloud.ServerType{ID: serverTypeID},
		Image:      &hcloud.Image{ID: imageID},
		Location:   &hcloud.Location{Name: c.location},
		Labels:     spec.Labels,
		UserData:   userData,
		Networks:   networks,
		PublicNet: &hcloud.ServerCreatePublicNet{
			EnableIPv4: public,
			EnableIPv6: public,
		},
	}, nil
}

// createServerWithRetry creates a server with exponential backoff retry logic.
// It does not wait for the server to boot; WaitVM does that.
func (c *RealClient) createServerWithRetry(ctx context.Context, opts hcloud.ServerCreateOpts) (hcloud.ServerCreateResult, error) {
	var result hcloud.ServerCreateResult

	err := retry.WithExponentialBackoff(ctx, func() error {
		res, _, err := c.client.Server.Create(ctx, opts)
		if err != nil {
			if !isRetryable(err) {
				return retry.Fatal(err)
			}
			return err
		}
		result = res
		return nil
	}, retry.WithMaxRetries(c.timeouts.RetryMaxAttempts), retry.WithInitialDelay(c.timeouts.RetryInitialDelay))

	if err != nil {
		return result, fmt.Errorf("failed to create server: %w", err)
	}
	return result, nil
}

// assignFloatingIP binds the floating IP to a freshly created server.
// The server may still be locked by its create action, so locked errors are retried.
func (c *RealClient) assignFloatingIP(ctx context.Context, fipID string, server *hcloud.Server) error {
	id, err := parseID("floating IP", fipID)
	if err != nil {
		return err
	}

	var action *hcloud.Action
	err = retry.WithExponentialBackoff(ctx, func() error {
		a, _, err := c.client.FloatingIP.Assign(ctx, &hcloud.FloatingIP{ID: id}, server)
		if err != nil {
			if isRetryable(err) {
				return err
			}
			return retry.Fatal(err)
		}
		action = a
		return nil
	}, retry.WithMaxRetries(c.timeouts.RetryMaxAttempts), retry.WithInitialDelay(c.timeouts.RetryInitialDelay))
	if err != nil {
		return fmt.Errorf("failed to assign floating IP %s to server %d: %w", fipID, server.ID, err)
	}

	if err := waitForActions(ctx, c.client, action); err != nil {
		return fmt.Errorf("failed to wait for floating IP assignment: %w", err)
	}
	return nil
}

// GetVM returns the server status and addresses. A missing server reports StatusDeleted.
func (c *RealClient) GetVM(ctx context.Context, id string) (*cloud.NodeStatus, error) {
	serverID, err := parseID("server", id)
	if err != nil {
		return nil, err
	}
	server, _, err := c.client.Server.GetByID(ctx, serverID)
	if err != nil {
		if IsNotFound(err) {
			return &cloud.NodeStatus{ID: id, Status: cloud.StatusDeleted}, nil
		}
		return nil, fmt.Errorf("failed to get server %s: %w", id, err)
	}
	if server == nil {
		return &cloud.NodeStatus{ID: id, Status: cloud.StatusDeleted}, nil
	}

	return &cloud.NodeStatus{
		ID:        id,
		Status:    mapServerStatus(server.Status),
		Addresses: serverAddresses(server),
	}, nil
}

// serverAddresses lists the public IPv4 first, then every private network address.
func serverAddresses(s *hcloud.Server) []string {
	var out []string
	if ip := s.PublicNet.IPv4.IP; ip != nil && !ip.IsUnspecified() {
		out = append(out, ip.String())
	}
	for _, pn := range s.PrivateNet {
		if pn.IP != nil {
			out = append(out, pn.IP.String())
		}
	}
	return out
}

// DeleteVM deletes the server. A missing server is not an error.
func (c *RealClient) DeleteVM(ctx context.Context, id string) error {
	return (&DeleteOperation[*hcloud.Server]{
		ID:           id,
		ResourceType: "server",
		Get:          c.client.Server.GetByID,
		Delete: func(ctx context.Context, server *hcloud.Server) (*hcloud.Response, error) {
			_, resp, err := c.client.Server.DeleteWithResult(ctx, server)
			return resp, err
		},
	}).Execute(ctx, c)
}

// WaitVM polls the server until its status differs from prior.
func (c *RealClient) WaitVM(ctx context.Context, id string, prior cloud.VMStatus, maxWait time.Duration) (cloud.VMStatus, error) {
	return poller.WaitUntil(ctx, id, cloud.StatusGetter(c, id), prior, maxWait,
		poller.WithInterval(c.timeouts.PollInitial, c.timeouts.PollMax))
}

// floatingIPCommands binds a floating IP to eth0, since Hetzner routes it without configuring it.
func floatingIPCommands(fip *cloud.FloatingIP) [][]string {
	if fip == nil || fip.Address == "" {
		return nil
	}
	return [][]string{{"ip", "addr", "add", fip.Address + "/32", "dev", "eth0"}}
}

// mapServerStatus folds Hetzner server states onto the normalized VM states.
func mapServerStatus(s hcloud.ServerStatus) cloud.VMStatus {
	switch s {
	case hcloud.ServerStatusRunning:
		return cloud.StatusActive
	case hcloud.ServerStatusOff, hcloud.ServerStatusStopping:
		return cloud.StatusStopped
	case hcloud.ServerStatusInitializing, hcloud.ServerStatusStarting,
		hcloud.ServerStatusRebuilding, hcloud.ServerStatusMigrating:
		return cloud.StatusBuild
	default:
		// deleting and unknown
		return cloud.StatusUnknown
	}
}
