// Package commands defines the CLI command structure and flag bindings.
//
// Command execution is delegated to handler functions in the handlers package.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/lambda-provisioner/cmd/lambdaprov/handlers"
)

const defaultConfigPath = "lambdaprov.yaml"

// serveMetrics is replaced in tests.
var serveMetrics = handlers.ServeMetrics

// Root returns the root command for the lambdaprov CLI.
func Root() *cobra.Command {
	var metricsAddr string
	var stopMetrics func()

	cmd := &cobra.Command{
		Use:   "lambdaprov",
		Short: "Provision lambda instance clusters on OpenStack or Hetzner Cloud",
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if metricsAddr == "" {
				return nil
			}
			stop, err := serveMetrics(metricsAddr)
			if err != nil {
				return err
			}
			stopMetrics = stop
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if stopMetrics != nil {
				stopMetrics()
			}
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&metricsAddr, "metrics-listen", "", "Serve Prometheus metrics on this address while the command runs (e.g. :9090)")

	cmd.AddCommand(Create())
	cmd.AddCommand(Destroy())
	cmd.AddCommand(Status())
	cmd.AddCommand(Quota())
	cmd.AddCommand(Flavors())
	cmd.AddCommand(Images())
	cmd.AddCommand(Version())

	return cmd
}

func addConfigFlag(cmd *cobra.Command, configPath *string) {
	cmd.Flags().StringVarP(configPath, "config", "c", defaultConfigPath, "Path to configuration file")
}
