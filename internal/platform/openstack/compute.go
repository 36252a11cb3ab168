package openstack

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gophercloud/gophercloud/openstack/compute/v2/flavors"
	"github.com/gophercloud/gophercloud/openstack/compute/v2/images"
	"github.com/gophercloud/gophercloud/openstack/compute/v2/servers"
	"github.com/gophercloud/gophercloud/openstack/networking/v2/ports"

	"github.com/imamik/lambda-provisioner/internal/platform/cloud"
	"github.com/imamik/lambda-provisioner/internal/poller"
)

const allowCreateSpec = "SNF:allow_create"

// ListFlavors lists every flavor with its allow_create flag.
func (c *Client) ListFlavors(ctx context.Context) ([]cloud.Flavor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pages, err := flavors.ListDetail(c.compute, flavors.ListOpts{}).AllPages()
	if err != nil {
		return nil, fmt.Errorf("failed to list flavors: %w", err)
	}
	all, err := flavors.ExtractFlavors(pages)
	if err != nil {
		return nil, fmt.Errorf("failed to extract flavors: %w", err)
	}
	out := make([]cloud.Flavor, 0, len(all))
	for _, f := range all {
		allow, err := c.allowCreate(f.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, cloud.Flavor{
			ID:          f.ID,
			Name:        f.Name,
			VCPUs:       f.VCPUs,
			RAM:         f.RAM,
			Disk:        f.Disk,
			AllowCreate: allow,
		})
	}
	return out, nil
}

// allowCreate reads the SNF:allow_create extra spec of a flavor. A flavor
// without the spec, or whose specs cannot be found, may be booted.
func (c *Client) allowCreate(flavorID string) (bool, error) {
	specs, err := flavors.ListExtraSpecs(c.compute, flavorID).Extract()
	if err != nil {
		if isNotFound(err) {
			return true, nil
		}
		return false, fmt.Errorf("failed to get extra specs of flavor %s: %w", flavorID, err)
	}
	v, ok := specs[allowCreateSpec]
	if !ok {
		return true, nil
	}
	allow, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return true, nil
	}
	return allow, nil
}

// ListImages lists the images known to the compute service.
func (c *Client) ListImages(ctx context.Context) ([]cloud.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pages, err := images.ListDetail(c.compute, images.ListOpts{}).AllPages()
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	all, err := images.ExtractImages(pages)
	if err != nil {
		return nil, fmt.Errorf("failed to extract images: %w", err)
	}
	out := make([]cloud.Image, 0, len(all))
	for _, img := range all {
		out = append(out, cloud.Image{ID: img.ID, Name: img.Name, Status: img.Status})
	}
	return out, nil
}

// CreateVM boots a server with the spec's personality files. A VM with a
// floating IP is booted on a dedicated port the address is associated with.
func (c *Client) CreateVM(ctx context.Context, spec cloud.VMSpec) (*cloud.VM, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	personality, err := personalityOf(spec.Personality)
	if err != nil {
		return nil, err
	}
	// Nova writes personality files without owner or mode, so cloud-init applies them.
	cc, err := cloud.CloudInit(nil, cloud.OwnershipCommands(spec.Personality)...)
	if err != nil {
		return nil, err
	}
	var userData []byte
	if cc != "" {
		userData = []byte(cc)
	}

	var nets []servers.Network
	if spec.NetworkID != "" {
		nets = append(nets, servers.Network{UUID: spec.NetworkID})
	}
	if spec.FloatingIP != nil && spec.NetworkID != "" {
		port, err := ports.Create(c.network, ports.CreateOpts{
			NetworkID: spec.NetworkID,
			Name:      spec.Name,
		}).Extract()
		if err != nil {
			return nil, fmt.Errorf("failed to create port for %s: %w", spec.Name, err)
		}
		if err := c.associateFloatingIP(spec.FloatingIP.ID, port.ID); err != nil {
			return nil, err
		}
		nets = []servers.Network{{Port: port.ID}}
	}

	server, err := servers.Create(c.compute, servers.CreateOpts{
		Name:        spec.Name,
		ImageRef:    spec.ImageID,
		FlavorRef:   spec.FlavorID,
		Networks:    nets,
		Metadata:    spec.Labels,
		Personality: personality,
		UserData:    userData,
	}).Extract()
	if err != nil {
		return nil, fmt.Errorf("failed to create server '%s': %w", spec.Name, err)
	}

	status := mapServerStatus(server.Status)
	if server.Status == "" {
		status = cloud.StatusBuild
	}
	return &cloud.VM{ID: server.ID, Name: spec.Name, Status: status, AdminPass: server.AdminPass}, nil
}

// personalityOf decodes base64 contents; gophercloud re-encodes them on the wire.
func personalityOf(files []cloud.PersonalityFile) (servers.Personality, error) {
	var out servers.Personality
	for _, f := range files {
		data, err := base64.StdEncoding.DecodeString(f.Contents)
		if err != nil {
			return nil, fmt.Errorf("personality file %s is not base64: %w", f.Path, err)
		}
		out = append(out, &servers.File{Path: f.Path, Contents: data})
	}
	return out, nil
}

// GetVM returns the server status and addresses. A missing server reports StatusDeleted.
func (c *Client) GetVM(ctx context.Context, id string) (*cloud.NodeStatus, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	server, err := servers.Get(c.compute, id).Extract()
	if err != nil {
		if isNotFound(err) {
			return &cloud.NodeStatus{ID: id, Status: cloud.StatusDeleted}, nil
		}
		return nil, fmt.Errorf("failed to get server %s: %w", id, err)
	}
	return &cloud.NodeStatus{
		ID:        id,
		Status:    mapServerStatus(server.Status),
		Addresses: serverAddresses(server.Addresses),
	}, nil
}

// serverAddresses flattens nova's per-network address lists, IPv4 only.
func serverAddresses(addresses map[string]any) []string {
	var out []string
	for _, list := range addresses {
		entries, ok := list.([]any)
		if !ok {
			continue
		}
		for _, e := range entries {
			m, ok := e.(map[string]any)
			if !ok {
				continue
			}
			if v, _ := m["version"].(float64); v != 4 {
				continue
			}
			if addr, ok := m["addr"].(string); ok {
				out = append(out, addr)
			}
		}
	}
	return out
}

// DeleteVM deletes the server. A missing server is not an error.
func (c *Client) DeleteVM(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := servers.Delete(c.compute, id).ExtractErr(); err != nil && !isNotFound(err) {
		return fmt.Errorf("failed to delete server %s: %w", id, err)
	}
	return nil
}

// WaitVM polls the server until its status differs from prior.
func (c *Client) WaitVM(ctx context.Context, id string, prior cloud.VMStatus, maxWait time.Duration) (cloud.VMStatus, error) {
	return poller.WaitUntil(ctx, id, cloud.StatusGetter(c, id), prior, maxWait,
		poller.WithInterval(c.timeouts.PollInitial, c.timeouts.PollMax))
}

// mapServerStatus folds nova server states onto the normalized VM states.
func mapServerStatus(s string) cloud.VMStatus {
	switch s {
	case "ACTIVE":
		return cloud.StatusActive
	case "BUILD", "REBUILD", "REBOOT", "HARD_REBOOT", "MIGRATING", "RESIZE", "VERIFY_RESIZE", "PASSWORD":
		return cloud.StatusBuild
	case "SHUTOFF", "STOPPED", "PAUSED", "SUSPENDED", "SHELVED", "SHELVED_OFFLOADED":
		return cloud.StatusStopped
	case "ERROR":
		return cloud.StatusError
	case "DELETED", "SOFT_DELETED":
		return cloud.StatusDeleted
	default:
		return cloud.StatusUnknown
	}
}
