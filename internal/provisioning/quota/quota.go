// Package quota admits or rejects a cluster request against a project quota snapshot.
//
// Dimensions are checked in a fixed order: VM count, vCPU, RAM, disk,
// floating IP and private network. Validation stops at the first dimension
// whose available amount is below the requested amount. RAM and disk quotas
// are byte denominated and compared in MiB and GiB after floor division.
package quota

import (
	"github.com/imamik/lambda-provisioner/internal/platform/cloud"
	"github.com/imamik/lambda-provisioner/internal/provisioning"
)

const (
	mib = 1 << 20
	gib = 1 << 30
)

// Requirements are the resource totals implied by a request.
type Requirements struct {
	VMs             int64
	VCPUs           int64
	RAM             int64 // MiB
	Disk            int64 // GiB
	FloatingIPs     int64
	PrivateNetworks int64
}

// FromRequest derives the requirements of req.
func FromRequest(req *provisioning.ClusterRequest) Requirements {
	return Requirements{
		VMs:             int64(req.ClusterSize()),
		VCPUs:           int64(req.TotalVCPUs()),
		RAM:             int64(req.TotalRAM()),
		Disk:            int64(req.TotalDisk()),
		FloatingIPs:     int64(req.FloatingIPCount()),
		PrivateNetworks: int64(req.NetworkRequest),
	}
}

// Line is the evaluation of one dimension.
type Line struct {
	Dimension provisioning.Dimension
	Limit     int64
	Usage     int64
	Pending   int64
	Available int64
	Requested int64
	Unlimited bool
}

// OK reports whether the dimension admits the request.
func (l Line) OK() bool {
	return l.Available >= l.Requested
}

// Report evaluates every dimension in check order, converting RAM to MiB and disk to GiB.
func Report(snap *cloud.QuotaSnapshot, req Requirements) []Line {
	return []Line{
		line(provisioning.DimensionVM, snap.VMs, 1, req.VMs),
		line(provisioning.DimensionVCPU, snap.VCPUs, 1, req.VCPUs),
		line(provisioning.DimensionRAM, snap.RAM, mib, req.RAM),
		line(provisioning.DimensionDisk, snap.Disk, gib, req.Disk),
		line(provisioning.DimensionFloatingIP, snap.FloatingIPs, 1, req.FloatingIPs),
		line(provisioning.DimensionPrivateNetwork, snap.PrivateNetworks, 1, req.PrivateNetworks),
	}
}

func line(d provisioning.Dimension, q cloud.Quota, unit, requested int64) Line {
	l := Line{
		Dimension: d,
		Limit:     q.Limit / unit,
		Usage:     q.Usage / unit,
		Pending:   q.Pending / unit,
		Requested: requested,
		Available: floorDiv(q.Available(), unit),
		Unlimited: q.IsUnlimited(),
	}
	return l
}

// floorDiv divides rounding toward negative infinity, so a fractional
// shortfall never reads as available capacity.
func floorDiv(v, unit int64) int64 {
	d := v / unit
	if v%unit != 0 && v < 0 {
		d--
	}
	return d
}

// Validate returns a *provisioning.QuotaExceededError for the first dimension
// that cannot satisfy req, or nil when every dimension admits it.
// The snapshot is never modified.
func Validate(snap *cloud.QuotaSnapshot, req Requirements) error {
	for _, l := range Report(snap, req) {
		if !l.OK() {
			return &provisioning.QuotaExceededError{
				Dimension: l.Dimension,
				Requested: l.Requested,
				Available: l.Available,
			}
		}
	}
	return nil
}
