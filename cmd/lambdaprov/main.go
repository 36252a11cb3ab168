// Package main is the entry point for the lambdaprov CLI.
//
// lambdaprov provisions and decommissions lambda instance clusters on an
// OpenStack or Hetzner Cloud project: a private network, floating IPs, one
// master and any number of slave VMs sharing a generated SSH key.
//
// Commands: create, destroy, status, quota, flavors, images, version.
//
// For detailed usage information, run:
//
//	lambdaprov --help
package main

import (
	"fmt"
	"os"

	"github.com/imamik/lambda-provisioner/cmd/lambdaprov/commands"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
