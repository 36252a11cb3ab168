package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/lambda-provisioner/cmd/lambdaprov/handlers"
)

// Quota returns the quota command.
func Quota() *cobra.Command {
	var configPath string
	var opts handlers.CreateOptions
	var slaves int

	cmd := &cobra.Command{
		Use:   "quota",
		Short: "Check the project quota against a cluster request",
		Long: `Quota prints limit, usage, pending and available amounts of every quota
dimension next to the amounts a cluster of the configured shape requests.

It exits with an error when the request would be rejected.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("slaves") {
				opts.Slaves = &slaves
			}
			return handlers.Quota(cmd.Context(), configPath, opts)
		},
	}

	addConfigFlag(cmd, &configPath)
	addShapeFlags(cmd, &opts, &slaves)

	return cmd
}
