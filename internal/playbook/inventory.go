package playbook

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/imamik/lambda-provisioner/internal/provisioning"
)

// Group names in the generated inventory.
const (
	GroupMaster = "master"
	GroupSlaves = "slaves"
)

// Inventory is an Ansible YAML inventory rooted at the "all" group.
type Inventory struct {
	All Group `yaml:"all"`
}

// Group is an inventory group with optional hosts, vars and child groups.
type Group struct {
	Vars     map[string]string `yaml:"vars,omitempty"`
	Hosts    map[string]Host   `yaml:"hosts,omitempty"`
	Children map[string]Group  `yaml:"children,omitempty"`
}

// Host holds the connection variables of one node.
type Host struct {
	AnsibleHost   string `yaml:"ansible_host"`
	InternalIP    string `yaml:"internal_ip,omitempty"`
	SSHCommonArgs string `yaml:"ansible_ssh_common_args,omitempty"`
	ProviderID    string `yaml:"provider_id"`
	PublicIP      string `yaml:"public_ip,omitempty"`
}

// NewInventory builds the inventory of desc. user is the SSH login and
// keyPath the private key file on the machine running Ansible.
func NewInventory(desc *provisioning.ClusterDescriptor, user, keyPath string) (*Inventory, error) {
	master := desc.Master
	if master.ID == "" {
		return nil, fmt.Errorf("cluster %s has no master", desc.ClusterID)
	}
	bastion := master.PublicAddress()

	masterHost, err := host(master, user, bastion)
	if err != nil {
		return nil, err
	}
	slaves := make(map[string]Host, len(desc.Slaves))
	for _, s := range desc.Slaves {
		h, err := host(s, user, bastion)
		if err != nil {
			return nil, err
		}
		slaves[s.Name] = h
	}

	return &Inventory{All: Group{
		Vars: map[string]string{
			"ansible_user":                 user,
			"ansible_ssh_private_key_file": keyPath,
			"cluster_id":                   desc.ClusterID,
			"master_internal_ip":           master.InternalIP,
		},
		Children: map[string]Group{
			GroupMaster: {Hosts: map[string]Host{master.Name: masterHost}},
			GroupSlaves: {Hosts: slaves},
		},
	}}, nil
}

// host picks how Ansible reaches n: directly over its floating IP, or over
// its internal address through the bastion.
func host(n provisioning.Node, user, bastion string) (Host, error) {
	h := Host{InternalIP: n.InternalIP, ProviderID: n.ID, PublicIP: n.PublicAddress()}
	switch {
	case n.PublicAddress() != "":
		h.AnsibleHost = n.PublicAddress()
	case n.InternalIP != "" && bastion != "":
		h.AnsibleHost = n.InternalIP
		h.SSHCommonArgs = fmt.Sprintf("-o StrictHostKeyChecking=no -o ProxyJump=%s@%s", user, bastion)
	case n.InternalIP != "":
		h.AnsibleHost = n.InternalIP
	default:
		return Host{}, fmt.Errorf("node %s has no reachable address", n.Name)
	}
	return h, nil
}

// Marshal renders the inventory as YAML.
func (inv *Inventory) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(inv)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal inventory: %w", err)
	}
	return data, nil
}
