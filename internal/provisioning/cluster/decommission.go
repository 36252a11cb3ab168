package cluster

import (
	"context"
	"errors"
	"time"

	"github.com/imamik/lambda-provisioner/internal/platform/cloud"
	"github.com/imamik/lambda-provisioner/internal/provisioning"
)

const phaseDecommission = "decommission"

// Decommission tears down every resource named by desc. It is safe to call
// on a fragment and to call again after a partial failure.
func (p *Provisioner) Decommission(ctx context.Context, desc *provisioning.ClusterDescriptor) (err error) {
	start := time.Now()
	defer func() { provisioning.RecordOperation(OperationDecommission, start, err) }()

	observer := p.observer.WithFields(map[string]string{"cluster": desc.ClusterID})
	observer.Printf("Decommissioning cluster %s", desc.ClusterID)

	var errs []error
	nodes := desc.Nodes()

	prior := make(map[string]cloud.VMStatus, len(nodes))
	for _, n := range nodes {
		st, err := p.cloud.GetVM(ctx, n.ID)
		switch {
		case cloud.IsNotFound(err):
			prior[n.ID] = cloud.StatusDeleted
		case err != nil:
			errs = append(errs, provisioning.Remote("get", resourceVM, n.ID, err))
			prior[n.ID] = cloud.StatusUnknown
		default:
			prior[n.ID] = st.Status
		}
	}

	var deleting []provisioning.Node
	for _, n := range nodes {
		if prior[n.ID] == cloud.StatusDeleted {
			provisioning.LogResourceSkipped(observer, phaseDecommission, resourceVM, n.ID, "already deleted")
			continue
		}
		provisioning.LogResourceDeleting(observer, phaseDecommission, resourceVM, n.ID)
		if err := p.cloud.DeleteVM(ctx, n.ID); err != nil {
			if cloud.IsNotFound(err) {
				provisioning.LogResourceDeleted(observer, phaseDecommission, resourceVM, n.ID)
				continue
			}
			provisioning.LogResourceFailed(observer, phaseDecommission, resourceVM, n.ID, err)
			errs = append(errs, provisioning.Remote("delete", resourceVM, n.ID, err))
			continue
		}
		deleting = append(deleting, n)
	}

	for _, n := range deleting {
		status, err := waitForStatus(ctx, p.cloud, n.ID, prior[n.ID], deletedOrFailed, p.timeouts.ServerDelete)
		if err == nil && status == cloud.StatusError {
			err = provisioning.Remote("delete", resourceVM, n.ID, errors.New("VM entered status ERROR"))
		}
		if err != nil {
			provisioning.LogResourceFailed(observer, phaseDecommission, resourceVM, n.ID, err)
			errs = append(errs, err)
			continue
		}
		provisioning.LogResourceDeleted(observer, phaseDecommission, resourceVM, n.ID)
	}

	for _, fip := range desc.FloatingIPs {
		provisioning.LogResourceDeleting(observer, phaseDecommission, resourceFloatingIP, fip.ID)
		if err := p.cloud.DeleteFloatingIP(ctx, fip.ID); err != nil && !cloud.IsNotFound(err) {
			provisioning.LogResourceFailed(observer, phaseDecommission, resourceFloatingIP, fip.ID, err)
			errs = append(errs, provisioning.Remote("delete", resourceFloatingIP, fip.ID, err))
			continue
		}
		provisioning.LogResourceDeleted(observer, phaseDecommission, resourceFloatingIP, fip.ID)
	}

	if desc.NetworkID != "" {
		provisioning.LogResourceDeleting(observer, phaseDecommission, resourceNetwork, desc.NetworkID)
		if err := p.cloud.DeleteNetwork(ctx, desc.NetworkID); err != nil && !cloud.IsNotFound(err) {
			provisioning.LogResourceFailed(observer, phaseDecommission, resourceNetwork, desc.NetworkID, err)
			errs = append(errs, provisioning.Remote("delete", resourceNetwork, desc.NetworkID, err))
		} else {
			provisioning.LogResourceDeleted(observer, phaseDecommission, resourceNetwork, desc.NetworkID)
		}
	}

	if err := p.keys.Purge(ctx, desc.ClusterID); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return &provisioning.DecommissionError{ClusterID: desc.ClusterID, Errs: errs}
	}
	observer.Printf("Cluster %s decommissioned", desc.ClusterID)
	return nil
}

func deletedOrFailed(s cloud.VMStatus) bool {
	return s == cloud.StatusDeleted || s == cloud.StatusError
}
