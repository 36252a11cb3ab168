package hcloud

import (
	"context"
	"fmt"

	"github.com/imamik/lambda-provisioner/internal/platform/cloud"
)

const (
	mib = int64(1) << 20
	gib = int64(1) << 30

	// unlimited stands in for a zero configured limit.
	unlimited = cloud.Unlimited
)

// GetQuota reports the configured limits against the usage counted across the project.
func (c *RealClient) GetQuota(ctx context.Context, projectID string) (*cloud.QuotaSnapshot, error) {
	if err := c.checkProject(projectID); err != nil {
		return nil, err
	}

	servers, err := c.client.Server.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list servers: %w", err)
	}
	fips, err := c.client.FloatingIP.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list floating IPs: %w", err)
	}
	networks, err := c.client.Network.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list networks: %w", err)
	}

	var cores, ram, disk int64
	for _, s := range servers {
		if s.ServerType == nil {
			continue
		}
		cores += int64(s.ServerType.Cores)
		ram += int64(s.ServerType.Memory*1024) * mib
		disk += int64(s.ServerType.Disk) * gib
	}

	return &cloud.QuotaSnapshot{
		ProjectID:       c.project,
		VMs:             quotaOf(c.limits.Servers, 1, int64(len(servers))),
		VCPUs:           quotaOf(c.limits.Cores, 1, cores),
		RAM:             quotaOf(c.limits.RAM, mib, ram),
		Disk:            quotaOf(c.limits.Disk, gib, disk),
		FloatingIPs:     quotaOf(c.limits.FloatingIPs, 1, int64(len(fips))),
		PrivateNetworks: quotaOf(c.limits.Networks, 1, int64(len(networks))),
	}, nil
}

func quotaOf(limit int, unit, usage int64) cloud.Quota {
	l := int64(limit) * unit
	if limit == 0 {
		l = unlimited
	}
	return cloud.Quota{Limit: l, Usage: usage}
}
