package cloud

import (
	"os"
	"strings"
)

// VMStatus is the lifecycle state of a virtual machine as reported by the provider.
type VMStatus string

// Normalized VM states. Providers map their native states onto these.
const (
	StatusBuild   VMStatus = "BUILD"
	StatusActive  VMStatus = "ACTIVE"
	StatusStopped VMStatus = "STOPPED"
	StatusError   VMStatus = "ERROR"
	StatusDeleted VMStatus = "DELETED"
	StatusUnknown VMStatus = "UNKNOWN"
)

// Terminal reports whether no further automatic transition is expected.
func (s VMStatus) Terminal() bool {
	switch s {
	case StatusActive, StatusStopped, StatusError, StatusDeleted:
		return true
	}
	return false
}

// Project is an identity-service project that owns quota.
type Project struct {
	ID    string
	Name  string
	State string
	Owner string
	Mode  string
}

// ProjectFilter selects projects. Empty fields match anything.
type ProjectFilter struct {
	Name  string `yaml:"name,omitempty"`
	State string `yaml:"state,omitempty"`
	Owner string `yaml:"owner,omitempty"`
	Mode  string `yaml:"mode,omitempty"`
}

// Matches reports whether p satisfies every set field of the filter.
func (f ProjectFilter) Matches(p Project) bool {
	return matchField(f.Name, p.Name) &&
		matchField(f.State, p.State) &&
		matchField(f.Owner, p.Owner) &&
		matchField(f.Mode, p.Mode)
}

func matchField(want, got string) bool {
	return want == "" || want == got
}

// Unlimited is the limit reported for a dimension the provider does not cap.
const Unlimited = int64(1) << 50

// Quota is one dimension of a project's quota.
type Quota struct {
	Limit   int64
	Usage   int64
	Pending int64
}

// Available returns Limit - Usage - Pending.
func (q Quota) Available() int64 {
	return q.Limit - q.Usage - q.Pending
}

// IsUnlimited reports whether the dimension is uncapped.
func (q Quota) IsUnlimited() bool {
	return q.Limit >= Unlimited
}

// QuotaSnapshot is the quota of one project at one point in time.
// RAM and Disk are byte denominated.
type QuotaSnapshot struct {
	ProjectID       string
	VMs             Quota
	VCPUs           Quota
	RAM             Quota
	Disk            Quota
	FloatingIPs     Quota
	PrivateNetworks Quota
}

// Flavor is a compute capacity bundle. RAM is in MiB, Disk in GB.
type Flavor struct {
	ID          string
	Name        string
	VCPUs       int
	RAM         int
	Disk        int
	AllowCreate bool
}

// Image is a bootable catalog image.
type Image struct {
	ID     string
	Name   string
	Status string
}

// PersonalityFile is injected into a VM's filesystem at boot.
// Contents is base64 encoded.
type PersonalityFile struct {
	Path     string
	Contents string
	Owner    string
	Group    string
	Mode     os.FileMode
}

// VMSpec describes a VM to create.
type VMSpec struct {
	Name        string
	FlavorID    string
	ImageID     string
	ProjectID   string
	NetworkID   string
	FloatingIP  *FloatingIP
	Personality []PersonalityFile
	Labels      map[string]string
}

// VM is the result of a create call.
type VM struct {
	ID        string
	Name      string
	Status    VMStatus
	AdminPass string
}

// NodeStatus is the observed state of a VM. A VM that no longer exists
// is reported with StatusDeleted.
type NodeStatus struct {
	ID     string
	Status VMStatus
	// Addresses lists every IP attached to the VM.
	Addresses []string
}

// AddressIn returns the first address starting with prefix.
func (s *NodeStatus) AddressIn(prefix string) string {
	for _, a := range s.Addresses {
		if strings.HasPrefix(a, prefix) {
			return a
		}
	}
	return ""
}

// NetworkSpec describes a private network to create.
type NetworkSpec struct {
	Name      string
	ProjectID string
	Labels    map[string]string
}

// Network is a private virtual network.
type Network struct {
	ID   string
	Name string
}

// SubnetSpec describes a subnet inside a network.
type SubnetSpec struct {
	NetworkID string
	Name      string
	CIDR      string
	Gateway   string
	DHCP      bool
}

// Subnet is an address range inside a network.
type Subnet struct {
	ID        string `yaml:"id"`
	NetworkID string `yaml:"network_id"`
	CIDR      string `yaml:"cidr"`
	Gateway   string `yaml:"gateway"`
	DHCP      bool   `yaml:"dhcp"`
}

// FloatingIPSpec describes a floating IP to reserve.
type FloatingIPSpec struct {
	Name      string
	ProjectID string
	Labels    map[string]string
}

// FloatingIP is a publicly routable address.
type FloatingIP struct {
	ID      string `yaml:"id"`
	Address string `yaml:"address"`
}
