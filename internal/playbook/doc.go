// Package playbook configures a provisioned cluster with Ansible.
//
// An inventory in Ansible's YAML format is generated from a cluster
// descriptor: the master and the slaves form two groups, and slaves without
// a public address are reached through the master with ProxyJump. Each
// configured playbook is then run in order with ansible-playbook, stopping
// at the first failure. The playbook directory is always given explicitly.
package playbook
