package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/lambda-provisioner/cmd/lambdaprov/handlers"
)

// Flavors returns the flavors command.
func Flavors() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "flavors",
		Short: "List the flavors of the configured cloud",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Flavors(cmd.Context(), configPath)
		},
	}

	addConfigFlag(cmd, &configPath)

	return cmd
}

// Images returns the images command.
func Images() *cobra.Command {
	var configPath string
	var filter string

	cmd := &cobra.Command{
		Use:   "images",
		Short: "List the images of the configured cloud",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Images(cmd.Context(), configPath, filter)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVar(&filter, "name", "", "Only list images whose name contains this substring")

	return cmd
}
