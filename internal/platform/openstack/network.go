package openstack

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gophercloud/gophercloud"
	"github.com/gophercloud/gophercloud/openstack/networking/v2/extensions/layer3/floatingips"
	"github.com/gophercloud/gophercloud/openstack/networking/v2/extensions/layer3/routers"
	"github.com/gophercloud/gophercloud/openstack/networking/v2/networks"
	"github.com/gophercloud/gophercloud/openstack/networking/v2/ports"
	"github.com/gophercloud/gophercloud/openstack/networking/v2/subnets"

	"github.com/imamik/lambda-provisioner/internal/platform/cloud"
)

const (
	ownerRouterInterface = "network:router_interface"
	ownerNetworkPrefix   = "network:"
)

// routerName is the router created for a network's subnets.
func routerName(networkName string) string {
	return networkName + "-router"
}

// CreateNetwork creates a private network owned by the spec's project.
func (c *Client) CreateNetwork(ctx context.Context, spec cloud.NetworkSpec) (*cloud.Network, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	up := true
	n, err := networks.Create(c.network, networks.CreateOpts{
		Name:         spec.Name,
		AdminStateUp: &up,
		ProjectID:    spec.ProjectID,
	}).Extract()
	if err != nil {
		return nil, fmt.Errorf("failed to create network: %w", err)
	}
	return &cloud.Network{ID: n.ID, Name: n.Name}, nil
}

// CreateSubnet creates an IPv4 subnet. With an external network configured,
// the subnet is also routed to it so floating IPs reach the VMs.
func (c *Client) CreateSubnet(ctx context.Context, spec cloud.SubnetSpec) (*cloud.Subnet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dhcp := spec.DHCP
	gateway := spec.Gateway
	opts := subnets.CreateOpts{
		NetworkID:  spec.NetworkID,
		Name:       spec.Name,
		CIDR:       spec.CIDR,
		IPVersion:  gophercloud.IPv4,
		EnableDHCP: &dhcp,
	}
	if gateway != "" {
		opts.GatewayIP = &gateway
	}
	s, err := subnets.Create(c.network, opts).Extract()
	if err != nil {
		return nil, fmt.Errorf("failed to create subnet: %w", translate(err))
	}

	if c.externalNetworkID != "" {
		if err := c.routeSubnet(spec.NetworkID, s.ID); err != nil {
			return nil, err
		}
	}

	return &cloud.Subnet{
		ID:        s.ID,
		NetworkID: s.NetworkID,
		CIDR:      s.CIDR,
		Gateway:   s.GatewayIP,
		DHCP:      s.EnableDHCP,
	}, nil
}

// routeSubnet creates the network's router with a gateway on the external
// network and plugs the subnet into it.
func (c *Client) routeSubnet(networkID, subnetID string) error {
	n, err := networks.Get(c.network, networkID).Extract()
	if err != nil {
		return fmt.Errorf("failed to get network %s: %w", networkID, translate(err))
	}
	up := true
	r, err := routers.Create(c.network, routers.CreateOpts{
		Name:         routerName(n.Name),
		AdminStateUp: &up,
		GatewayInfo:  &routers.GatewayInfo{NetworkID: c.externalNetworkID},
	}).Extract()
	if err != nil {
		return fmt.Errorf("failed to create router: %w", err)
	}
	if _, err := routers.AddInterface(c.network, r.ID, routers.AddInterfaceOpts{SubnetID: subnetID}).Extract(); err != nil {
		attachErr := fmt.Errorf("failed to attach subnet %s to router %s: %w", subnetID, r.ID, err)
		// Teardown finds routers through their interface ports only.
		if delErr := routers.Delete(c.network, r.ID).ExtractErr(); delErr != nil && !isNotFound(delErr) {
			return errors.Join(attachErr, fmt.Errorf("failed to delete router %s: %w", r.ID, delErr))
		}
		return attachErr
	}
	return nil
}

// CreateFloatingIP allocates a floating IP from the external network.
func (c *Client) CreateFloatingIP(ctx context.Context, spec cloud.FloatingIPSpec) (*cloud.FloatingIP, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.externalNetworkID == "" {
		return nil, fmt.Errorf("no external network configured for floating IP %s", spec.Name)
	}
	fip, err := floatingips.Create(c.network, floatingips.CreateOpts{
		FloatingNetworkID: c.externalNetworkID,
		Description:       spec.Name,
		ProjectID:         spec.ProjectID,
	}).Extract()
	if err != nil {
		return nil, fmt.Errorf("failed to create floating IP: %w", err)
	}
	return &cloud.FloatingIP{ID: fip.ID, Address: fip.FloatingIP}, nil
}

// associateFloatingIP points the floating IP at a port.
func (c *Client) associateFloatingIP(fipID, portID string) error {
	_, err := floatingips.Update(c.network, fipID, floatingips.UpdateOpts{PortID: &portID}).Extract()
	if err != nil {
		return fmt.Errorf("failed to associate floating IP %s with port %s: %w", fipID, portID, err)
	}
	return nil
}

// DeleteFloatingIP releases the floating IP. A missing address is not an error.
func (c *Client) DeleteFloatingIP(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := floatingips.Delete(c.network, id).ExtractErr(); err != nil && !isNotFound(err) {
		return fmt.Errorf("failed to delete floating IP %s: %w", id, err)
	}
	return nil
}

// DeleteNetwork removes the network together with its subnets, the ports
// left behind by deleted VMs and the router created for it.
func (c *Client) DeleteNetwork(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n, err := networks.Get(c.network, id).Extract()
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return fmt.Errorf("failed to get network %s: %w", id, err)
	}

	pages, err := ports.List(c.network, ports.ListOpts{NetworkID: id}).AllPages()
	if err != nil {
		return fmt.Errorf("failed to list ports of network %s: %w", id, err)
	}
	all, err := ports.ExtractPorts(pages)
	if err != nil {
		return fmt.Errorf("failed to extract ports: %w", err)
	}

	for _, p := range all {
		switch {
		case p.DeviceOwner == ownerRouterInterface:
			if err := c.dropRouter(p.DeviceID, p.ID, routerName(n.Name)); err != nil {
				return err
			}
		case strings.HasPrefix(p.DeviceOwner, ownerNetworkPrefix):
			// dhcp and other service ports go with the network
		default:
			if err := ports.Delete(c.network, p.ID).ExtractErr(); err != nil && !isNotFound(err) {
				return fmt.Errorf("failed to delete port %s: %w", p.ID, err)
			}
		}
	}

	if err := networks.Delete(c.network, id).ExtractErr(); err != nil && !isNotFound(err) {
		return fmt.Errorf("failed to delete network %s: %w", id, err)
	}
	return nil
}

// dropRouter detaches the interface port and deletes the router when it is ours.
func (c *Client) dropRouter(routerID, portID, name string) error {
	if _, err := routers.RemoveInterface(c.network, routerID, routers.RemoveInterfaceOpts{PortID: portID}).Extract(); err != nil && !isNotFound(err) {
		return fmt.Errorf("failed to detach port %s from router %s: %w", portID, routerID, err)
	}
	r, err := routers.Get(c.network, routerID).Extract()
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return fmt.Errorf("failed to get router %s: %w", routerID, err)
	}
	if r.Name != name {
		return nil
	}
	if err := routers.Delete(c.network, routerID).ExtractErr(); err != nil && !isNotFound(err) {
		return fmt.Errorf("failed to delete router %s: %w", routerID, err)
	}
	return nil
}
