// Package cloud defines the provider-neutral contract between the cluster
// orchestrator and an IaaS cloud.
//
// [Gateway] groups three capability interfaces: [IdentityService] for
// projects and quotas, [ComputeService] for flavors, images and VMs, and
// [NetworkService] for private networks, subnets and floating IPs.
// Implementations live in sibling packages (openstack, hcloud). They own no
// cluster state and report missing resources with [ErrNotFound].
//
// [MockClient] implements Gateway with overridable functions and records
// every call, for use in tests of packages that depend on the contract.
package cloud
