package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/lambda-provisioner/cmd/lambdaprov/handlers"
)

// Create returns the create command.
//
// Flags override the cluster section of the configuration file for one
// invocation.
//
// Environment variables:
//
//	HCLOUD_TOKEN: Hetzner Cloud API token (provider hcloud)
//	OS_*: OpenStack credentials (provider openstack)
func Create() *cobra.Command {
	var configPath string
	var opts handlers.CreateOptions
	var slaves int

	cmd := &cobra.Command{
		Use:   "create CLUSTER_ID",
		Short: "Provision the cluster of a new lambda instance",
		Long: `Create provisions a cluster and records it in the state directory.

Resources are created in order:
  1. Private network and subnet 192.168.0.0/24
  2. Floating IPs, according to the IP allocation policy
  3. Master VM
  4. Slave VMs, one at a time

The project quota is checked before anything is created. On failure the
created resources stay recorded so 'lambdaprov destroy' can remove them,
unless cluster.rollback_on_failure is set.

When playbooks.dir is configured, the playbooks run against the cluster once
every VM is active.

Examples:
  lambdaprov create my-cluster
  lambdaprov create my-cluster --slaves 3 --ip-allocation all`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("slaves") {
				opts.Slaves = &slaves
			}
			return handlers.Create(cmd.Context(), configPath, args[0], opts)
		},
	}

	addConfigFlag(cmd, &configPath)
	addShapeFlags(cmd, &opts, &slaves)
	cmd.Flags().BoolVar(&opts.NoWait, "no-wait", false, "Return once the VMs are requested, without waiting for them to become active")
	cmd.Flags().BoolVar(&opts.SkipPlaybook, "skip-playbooks", false, "Do not run the configured playbooks")

	return cmd
}

func addShapeFlags(cmd *cobra.Command, opts *handlers.CreateOptions, slaves *int) {
	cmd.Flags().IntVar(slaves, "slaves", 0, "Number of slave VMs (default from configuration)")
	cmd.Flags().StringVar(&opts.IPAllocation, "ip-allocation", "", "Floating IP policy: none, master or all (default from configuration)")
	cmd.Flags().StringVar(&opts.ImageName, "image", "", "Image name substring (default from configuration)")
}
