package hcloud

import (
	"context"
	"fmt"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/imamik/lambda-provisioner/internal/platform/cloud"
)

// CreateFloatingIP reserves an IPv4 floating IP homed in the configured location.
func (c *RealClient) CreateFloatingIP(ctx context.Context, spec cloud.FloatingIPSpec) (*cloud.FloatingIP, error) {
	if err := c.checkProject(spec.ProjectID); err != nil {
		return nil, err
	}

	res, _, err := c.client.FloatingIP.Create(ctx, hcloud.FloatingIPCreateOpts{
		Name:         hcloud.Ptr(spec.Name),
		Type:         hcloud.FloatingIPTypeIPv4,
		HomeLocation: &hcloud.Location{Name: c.location},
		Labels:       spec.Labels,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create floating IP: %w", err)
	}
	result := &CreateResult[*hcloud.FloatingIP]{Resource: res.FloatingIP, Action: res.Action}
	if err := waitForActionResult(ctx, c.client, result); err != nil {
		return nil, fmt.Errorf("failed to wait for floating IP creation: %w", err)
	}

	return &cloud.FloatingIP{ID: formatID(res.FloatingIP.ID), Address: res.FloatingIP.IP.String()}, nil
}

// DeleteFloatingIP releases the floating IP. A missing address is not an error.
func (c *RealClient) DeleteFloatingIP(ctx context.Context, id string) error {
	return (&DeleteOperation[*hcloud.FloatingIP]{
		ID:           id,
		ResourceType: "floating IP",
		Get:          c.client.FloatingIP.GetByID,
		Delete:       c.client.FloatingIP.Delete,
	}).Execute(ctx, c)
}
