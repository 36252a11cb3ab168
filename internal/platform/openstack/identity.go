package openstack

import (
	"context"
	"fmt"

	blockquotas "github.com/gophercloud/gophercloud/openstack/blockstorage/extensions/quotasets"
	computequotas "github.com/gophercloud/gophercloud/openstack/compute/v2/extensions/quotasets"
	"github.com/gophercloud/gophercloud/openstack/identity/v3/projects"
	networkquotas "github.com/gophercloud/gophercloud/openstack/networking/v2/extensions/quotas"

	"github.com/imamik/lambda-provisioner/internal/platform/cloud"
)

const (
	mib = int64(1) << 20
	gib = int64(1) << 30

	// unlimited stands in for OpenStack's -1 limit.
	unlimited = cloud.Unlimited
)

// Project states reported for enabled and disabled projects.
const (
	ProjectActive   = "active"
	ProjectDisabled = "disabled"
)

// ListProjects lists the projects visible to the token that match filter.
// The name is filtered server side; the remaining fields are matched locally.
func (c *Client) ListProjects(ctx context.Context, filter cloud.ProjectFilter) ([]cloud.Project, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pages, err := projects.List(c.identity, projects.ListOpts{Name: filter.Name}).AllPages()
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	all, err := projects.ExtractProjects(pages)
	if err != nil {
		return nil, fmt.Errorf("failed to extract projects: %w", err)
	}

	var out []cloud.Project
	for _, p := range all {
		state := ProjectActive
		if !p.Enabled {
			state = ProjectDisabled
		}
		project := cloud.Project{ID: p.ID, Name: p.Name, State: state, Owner: p.DomainID}
		if filter.Matches(project) {
			out = append(out, project)
		}
	}
	return out, nil
}

// GetQuota collects compute, network and block storage quotas of the project.
func (c *Client) GetQuota(ctx context.Context, projectID string) (*cloud.QuotaSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	compute, err := computequotas.GetDetail(c.compute, projectID).Extract()
	if err != nil {
		return nil, fmt.Errorf("failed to get compute quota: %w", translate(err))
	}
	network, err := networkquotas.GetDetail(c.network, projectID).Extract()
	if err != nil {
		return nil, fmt.Errorf("failed to get network quota: %w", translate(err))
	}

	snap := &cloud.QuotaSnapshot{
		ProjectID:       projectID,
		VMs:             computeQuota(compute.Instances, 1),
		VCPUs:           computeQuota(compute.Cores, 1),
		RAM:             computeQuota(compute.RAM, mib),
		Disk:            cloud.Quota{Limit: unlimited},
		FloatingIPs:     networkQuota(network.FloatingIP),
		PrivateNetworks: networkQuota(network.Network),
	}

	if c.volume != nil {
		usage, err := blockquotas.GetUsage(c.volume, projectID).Extract()
		if err != nil {
			return nil, fmt.Errorf("failed to get volume quota: %w", translate(err))
		}
		snap.Disk = quotaOf(usage.Gigabytes.Limit, usage.Gigabytes.InUse, usage.Gigabytes.Reserved, gib)
	}
	return snap, nil
}

func computeQuota(d computequotas.QuotaDetail, unit int64) cloud.Quota {
	return quotaOf(d.Limit, d.InUse, d.Reserved, unit)
}

func networkQuota(d networkquotas.QuotaDetail) cloud.Quota {
	return quotaOf(d.Limit, d.Used, d.Reserved, 1)
}

func quotaOf(limit, used, reserved int, unit int64) cloud.Quota {
	l := int64(limit) * unit
	if limit < 0 {
		l = unlimited
	}
	return cloud.Quota{Limit: l, Usage: int64(used) * unit, Pending: int64(reserved) * unit}
}
