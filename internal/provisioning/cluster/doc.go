// Package cluster creates and tears down lambda clusters.
//
// Provision runs a fixed sequence of phases: admission (request validation,
// project lookup and quota check), catalog resolution, key generation,
// network and subnet, floating IPs, master VM, slave VMs, an optional wait
// for every VM to become active, and finally persistence of the private key.
// The first three phases create nothing. A failure after the first created
// resource is reported as a *provisioning.PartialProvisionError carrying
// the fragment, which Decommission accepts like any other descriptor.
//
// Decommission deletes VMs, waits for them to disappear, then deletes the
// floating IPs, the network and the persisted key. Every step treats an
// already missing resource as success and failures never block later steps.
package cluster
