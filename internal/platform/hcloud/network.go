package hcloud

import (
	"context"
	"fmt"
	"net"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/imamik/lambda-provisioner/internal/platform/cloud"
)

// NetworkIPRange is the range of every private network; subnets are carved from it.
const NetworkIPRange = "192.168.0.0/16"

// CreateNetwork creates a private network.
func (c *RealClient) CreateNetwork(ctx context.Context, spec cloud.NetworkSpec) (*cloud.Network, error) {
	if err := c.checkProject(spec.ProjectID); err != nil {
		return nil, err
	}
	_, ipRange, err := net.ParseCIDR(NetworkIPRange)
	if err != nil {
		return nil, err
	}

	create := simpleCreate(c.client.Network.Create)
	result, _, err := create(ctx, hcloud.NetworkCreateOpts{
		Name:    spec.Name,
		IPRange: ipRange,
		Labels:  spec.Labels,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create network: %w", err)
	}
	return &cloud.Network{ID: formatID(result.Resource.ID), Name: result.Resource.Name}, nil
}

// CreateSubnet adds a cloud subnet in the configured network zone.
// Hetzner always runs DHCP and picks the first address as gateway.
func (c *RealClient) CreateSubnet(ctx context.Context, spec cloud.SubnetSpec) (*cloud.Subnet, error) {
	networkID, err := parseID("network", spec.NetworkID)
	if err != nil {
		return nil, err
	}
	_, ipRange, err := net.ParseCIDR(spec.CIDR)
	if err != nil {
		return nil, fmt.Errorf("invalid subnet ip range: %w", err)
	}

	action, _, err := c.client.Network.AddSubnet(ctx, &hcloud.Network{ID: networkID}, hcloud.NetworkAddSubnetOpts{
		Subnet: hcloud.NetworkSubnet{
			Type:        hcloud.NetworkSubnetTypeCloud,
			IPRange:     ipRange,
			NetworkZone: hcloud.NetworkZone(c.networkZone),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add subnet: %w", translate(err))
	}
	if err := waitForActions(ctx, c.client, action); err != nil {
		return nil, fmt.Errorf("failed to wait for subnet creation: %w", err)
	}

	return &cloud.Subnet{
		ID:        spec.NetworkID + "/" + ipRange.String(),
		NetworkID: spec.NetworkID,
		CIDR:      ipRange.String(),
		Gateway:   spec.Gateway,
		DHCP:      true,
	}, nil
}

// DeleteNetwork deletes the network. Its subnets go with it.
func (c *RealClient) DeleteNetwork(ctx context.Context, id string) error {
	return (&DeleteOperation[*hcloud.Network]{
		ID:           id,
		ResourceType: "network",
		Get:          c.client.Network.GetByID,
		Delete:       c.client.Network.Delete,
	}).Execute(ctx, c)
}
