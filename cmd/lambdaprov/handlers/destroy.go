package handlers

import (
	"context"
	"fmt"
	"log"

	"github.com/imamik/lambda-provisioner/internal/instance"
	"github.com/imamik/lambda-provisioner/internal/provisioning"
	"github.com/imamik/lambda-provisioner/internal/provisioning/cluster"
	"github.com/imamik/lambda-provisioner/internal/provisioning/keys"
)

// Destroy tears down the cluster recorded under clusterID.
//
// Every resource is attempted even when an earlier one fails; the record
// ends DESTROYED on success and FAILED otherwise.
func Destroy(ctx context.Context, configPath, clusterID string) error {
	if err := provisioning.ValidateClusterID(clusterID); err != nil {
		return err
	}
	e, err := setup(ctx, configPath)
	if err != nil {
		return err
	}

	records := newRecords(e.cfg.StateDir)
	inst, err := records.Load(clusterID)
	if err != nil {
		return err
	}
	if inst.Status == instance.StatusDestroyed {
		log.Printf("Cluster %s is already destroyed", clusterID)
		return nil
	}

	store, err := newKeyStore(ctx, e.cfg.Keys)
	if err != nil {
		return fmt.Errorf("failed to open key store: %w", err)
	}

	prov := cluster.NewProvisioner(e.gateway, keys.NewManager(store),
		cluster.WithObserver(e.observer),
		cluster.WithTimeouts(e.timeouts),
	)

	log.Printf("Destroying cluster: %s", clusterID)
	mgr := instance.NewManager(prov, nil, store, records)
	if err := mgr.Destroy(ctx, inst); err != nil {
		return fmt.Errorf("destroy failed: %w", err)
	}

	log.Printf("Cluster %s destroyed successfully", clusterID)
	return nil
}
