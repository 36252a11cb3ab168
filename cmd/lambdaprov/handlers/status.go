package handlers

import (
	"context"
	"fmt"

	"github.com/imamik/lambda-provisioner/internal/provisioning"
)

// Status prints the recorded state of a cluster. With live set, the current
// VM states are fetched from the cloud as well.
func Status(ctx context.Context, configPath, clusterID string, live bool) error {
	if err := provisioning.ValidateClusterID(clusterID); err != nil {
		return err
	}
	cfg, err := loadConfigFile(configPath)
	if err != nil {
		return err
	}
	inst, err := newRecords(cfg.StateDir).Load(clusterID)
	if err != nil {
		return err
	}

	keyLocation := ""
	if inst.Descriptor != nil {
		store, err := newKeyStore(ctx, cfg.Keys)
		if err != nil {
			return fmt.Errorf("failed to open key store: %w", err)
		}
		keyLocation = store.Location(clusterID)
	}
	fmt.Print(renderInstance(inst, keyLocation))

	if !live || inst.Descriptor == nil {
		return nil
	}

	gw, err := newGateway(ctx, cfg, loadTimeouts())
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", cfg.Provider, err)
	}
	nodes := append([]provisioning.Node{inst.Descriptor.Master}, inst.Descriptor.Slaves...)
	rows := make([][]string, 0, len(nodes))
	for _, n := range nodes {
		st, err := gw.GetVM(ctx, n.ID)
		if err != nil {
			return fmt.Errorf("failed to get VM %s: %w", n.ID, err)
		}
		rows = append(rows, []string{n.Name, n.ID, string(st.Status)})
	}
	fmt.Print(renderTable([]string{"NAME", "ID", "VM STATUS"}, rows))
	return nil
}
