package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/lambda-provisioner/cmd/lambdaprov/handlers"
)

// Status returns the status command.
func Status() *cobra.Command {
	var configPath string
	var live bool

	cmd := &cobra.Command{
		Use:   "status CLUSTER_ID",
		Short: "Show the recorded state of a cluster",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.Status(cmd.Context(), configPath, args[0], live)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().BoolVar(&live, "live", false, "Also query the current VM states from the cloud")

	return cmd
}
