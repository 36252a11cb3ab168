// Package config defines the configuration model for lambdaprov.
//
// A [Config] is loaded from a YAML file with [LoadFile], defaulted and
// validated. It selects the cloud provider, the project to provision into,
// the default cluster shape, where private keys are persisted and which
// playbooks run after a cluster is built. Operation timeouts are read
// separately from the environment by [LoadTimeouts].
package config
