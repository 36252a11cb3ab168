// Package openstack implements cloud.Gateway with gophercloud.
//
// Credentials are read from the usual OS_* environment variables. The
// gateway talks to four services: identity (projects), compute (flavors,
// images, servers, instance and core quotas), networking (networks,
// subnets, ports, routers, floating IPs and their quotas) and, when the
// cloud offers it, block storage for the disk quota.
//
// A VM that receives a floating IP is booted on a pre-created port so
// the address can be associated before the VM is active. When an
// external network is configured, every subnet is attached to a router
// with a gateway on it, which floating IPs need to be reachable.
package openstack
