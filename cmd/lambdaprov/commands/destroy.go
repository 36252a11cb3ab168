package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/lambda-provisioner/cmd/lambdaprov/handlers"
)

// Destroy returns the destroy command.
func Destroy() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "destroy CLUSTER_ID",
		Short: "Destroy a cluster and all associated resources",
		Long: `Destroy removes every resource of a recorded cluster.

Resources are deleted in order:
  - Master and slave VMs, waiting until each is gone
  - Floating IPs
  - The private network and its subnet
  - The cluster private key

Resources that are already gone are skipped. A failure does not stop the
remaining deletions; all failures are reported together.

Example:
  lambdaprov destroy my-cluster

WARNING: This operation is irreversible.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.Destroy(cmd.Context(), configPath, args[0])
		},
	}

	addConfigFlag(cmd, &configPath)

	return cmd
}
