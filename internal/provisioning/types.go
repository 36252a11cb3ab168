package provisioning

import (
	"github.com/imamik/lambda-provisioner/internal/config"
	"github.com/imamik/lambda-provisioner/internal/platform/cloud"
)

// Fixed private network topology of every cluster.
const (
	SubnetCIDR    = "192.168.0.0/24"
	SubnetGateway = "192.168.0.1"
	// SubnetPrefix identifies internal addresses among a VM's addresses.
	SubnetPrefix = "192.168.0."
)

// Role distinguishes the master node from slaves.
type Role string

const (
	RoleMaster Role = "master"
	RoleSlave  Role = "slave"
)

// IPAllocation decides which nodes receive a floating IP.
type IPAllocation string

const (
	IPAllocationNone   IPAllocation = config.IPAllocationNone
	IPAllocationMaster IPAllocation = config.IPAllocationMaster
	IPAllocationAll    IPAllocation = config.IPAllocationAll
)

// Valid reports whether the policy is one of none, master or all.
func (a IPAllocation) Valid() bool {
	switch a {
	case IPAllocationNone, IPAllocationMaster, IPAllocationAll:
		return true
	}
	return false
}

// NodeSize is the capacity requested for one node. RAM is in MiB, Disk in GB.
type NodeSize struct {
	VCPUs int `yaml:"vcpus"`
	RAM   int `yaml:"ram"`
	Disk  int `yaml:"disk"`
}

// ClusterRequest is the input of one provisioning call.
type ClusterRequest struct {
	ClusterID       string
	NamePrefix      string
	Slaves          int
	Master          NodeSize
	Slave           NodeSize
	IPAllocation    IPAllocation
	NetworkRequest  int
	Project         cloud.ProjectFilter
	ImageName       string
	ImageID         string
	ExtraPublicKeys []string
	Wait            bool
}

// ClusterSize is the number of VMs: one master plus the slaves.
func (r *ClusterRequest) ClusterSize() int {
	return r.Slaves + 1
}

// FloatingIPCount is the number of floating IPs the allocation policy requires.
func (r *ClusterRequest) FloatingIPCount() int {
	switch r.IPAllocation {
	case IPAllocationMaster:
		return 1
	case IPAllocationAll:
		return r.ClusterSize()
	default:
		return 0
	}
}

// TotalVCPUs sums the vCPUs of every node.
func (r *ClusterRequest) TotalVCPUs() int {
	return r.Master.VCPUs + r.Slaves*r.Slave.VCPUs
}

// TotalRAM sums the RAM of every node in MiB.
func (r *ClusterRequest) TotalRAM() int {
	return r.Master.RAM + r.Slaves*r.Slave.RAM
}

// TotalDisk sums the disk of every node in GB.
func (r *ClusterRequest) TotalDisk() int {
	return r.Master.Disk + r.Slaves*r.Slave.Disk
}

// RequestFromConfig builds a request from the cluster defaults of cfg.
func RequestFromConfig(clusterID string, cfg *config.Config) ClusterRequest {
	c := cfg.Cluster
	return ClusterRequest{
		ClusterID:       clusterID,
		NamePrefix:      c.NamePrefix,
		Slaves:          c.SlaveCount(),
		Master:          NodeSize(c.Master),
		Slave:           NodeSize(c.Slave),
		IPAllocation:    IPAllocation(c.IPAllocation),
		NetworkRequest:  c.NetworkRequest,
		Project:         cloud.ProjectFilter(cfg.Project),
		ImageName:       c.ImageName,
		ImageID:         c.ImageID,
		ExtraPublicKeys: c.ExtraPublicKeys,
		Wait:            c.ShouldWait(),
	}
}

// Node is one VM of a cluster.
type Node struct {
	Role       Role              `yaml:"role"`
	ID         string            `yaml:"id"`
	Name       string            `yaml:"name"`
	FloatingIP *cloud.FloatingIP `yaml:"floating_ip,omitempty"`
	InternalIP string            `yaml:"internal_ip,omitempty"`
	AdminPass  string            `yaml:"admin_pass,omitempty"`
}

// PublicAddress returns the floating IP address, if any.
func (n *Node) PublicAddress() string {
	if n.FloatingIP == nil {
		return ""
	}
	return n.FloatingIP.Address
}

// ClusterDescriptor is the result of a provisioning call and the handle for teardown.
// The private key is never serialized.
type ClusterDescriptor struct {
	ClusterID   string             `yaml:"cluster_id"`
	ProjectID   string             `yaml:"project_id"`
	NetworkID   string             `yaml:"network_id"`
	Subnet      cloud.Subnet       `yaml:"subnet"`
	FloatingIPs []cloud.FloatingIP `yaml:"floating_ips"`
	Master      Node               `yaml:"master"`
	Slaves      []Node             `yaml:"slaves"`
	PrivateKey  []byte             `yaml:"-" json:"-"`
}

// Nodes returns the master followed by every slave. Nodes without an id are skipped.
func (d *ClusterDescriptor) Nodes() []Node {
	nodes := make([]Node, 0, len(d.Slaves)+1)
	if d.Master.ID != "" {
		nodes = append(nodes, d.Master)
	}
	for _, s := range d.Slaves {
		if s.ID != "" {
			nodes = append(nodes, s)
		}
	}
	return nodes
}
