package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/imamik/lambda-provisioner/internal/instance"
	"github.com/imamik/lambda-provisioner/internal/playbook"
	"github.com/imamik/lambda-provisioner/internal/provisioning"
	"github.com/imamik/lambda-provisioner/internal/provisioning/cluster"
	"github.com/imamik/lambda-provisioner/internal/provisioning/keys"
)

// CreateOptions override the cluster defaults of the configuration file.
type CreateOptions struct {
	Slaves       *int
	IPAllocation string
	ImageName    string
	NoWait       bool
	SkipPlaybook bool
}

// Create provisions the cluster of a new lambda instance and records it.
//
// A record that exists and is not destroyed blocks the call, so one cluster
// id is never provisioned twice.
func Create(ctx context.Context, configPath, clusterID string, opts CreateOptions) error {
	if err := provisioning.ValidateClusterID(clusterID); err != nil {
		return err
	}
	e, err := setup(ctx, configPath)
	if err != nil {
		return err
	}

	records := newRecords(e.cfg.StateDir)
	if existing, err := records.Load(clusterID); err == nil {
		if existing.Status != instance.StatusDestroyed {
			return fmt.Errorf("cluster %s already exists with status %s", clusterID, existing.Status)
		}
	} else if !errors.Is(err, instance.ErrNotFound) {
		return err
	}

	req := provisioning.RequestFromConfig(clusterID, e.cfg)
	applyOverrides(&req, opts)

	store, err := newKeyStore(ctx, e.cfg.Keys)
	if err != nil {
		return fmt.Errorf("failed to open key store: %w", err)
	}

	prov := cluster.NewProvisioner(e.gateway, keys.NewManager(store),
		cluster.WithObserver(e.observer),
		cluster.WithTimeouts(e.timeouts),
		cluster.WithRollback(e.cfg.Cluster.RollbackOnFailure),
	)

	var configurer instance.Configurer
	if e.cfg.Playbooks.Dir != "" && !opts.SkipPlaybook {
		configurer = playbook.NewRunner(e.cfg.Playbooks, playbook.WithObserver(e.observer))
	}

	inst := &instance.Instance{ID: clusterID}
	mgr := instance.NewManager(prov, configurer, store, records)
	if err := mgr.Create(ctx, inst, &req); err != nil {
		return fmt.Errorf("create failed: %w", err)
	}

	fmt.Print(renderInstance(inst, store.Location(clusterID)))
	return nil
}

func applyOverrides(req *provisioning.ClusterRequest, opts CreateOptions) {
	if opts.Slaves != nil {
		req.Slaves = *opts.Slaves
	}
	if opts.IPAllocation != "" {
		req.IPAllocation = provisioning.IPAllocation(opts.IPAllocation)
	}
	if opts.ImageName != "" {
		req.ImageName = opts.ImageName
		req.ImageID = ""
	}
	if opts.NoWait {
		req.Wait = false
	}
}
