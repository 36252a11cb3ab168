package config

// Provider names accepted in the provider field.
const (
	ProviderOpenStack = "openstack"
	ProviderHCloud    = "hcloud"
)

// IP allocation policies.
const (
	IPAllocationNone   = "none"
	IPAllocationMaster = "master"
	IPAllocationAll    = "all"
)

// Config is the root configuration document.
type Config struct {
	Provider  string          `yaml:"provider"`
	Project   ProjectConfig   `yaml:"project"`
	Cluster   ClusterConfig   `yaml:"cluster"`
	Keys      KeysConfig      `yaml:"keys"`
	OpenStack OpenStackConfig `yaml:"openstack"`
	HCloud    HCloudConfig    `yaml:"hcloud"`
	Playbooks PlaybooksConfig `yaml:"playbooks"`

	// StateDir holds one YAML record per cluster written by the CLI.
	StateDir string `yaml:"state_dir"`
}

// ProjectConfig filters the identity service's project list. Empty fields match anything.
type ProjectConfig struct {
	Name  string `yaml:"name"`
	State string `yaml:"state"`
	Owner string `yaml:"owner"`
	Mode  string `yaml:"mode"`
}

// NodeSize describes the capacity requested for one node.
type NodeSize struct {
	VCPUs int `yaml:"vcpus"`
	RAM   int `yaml:"ram"`  // MiB
	Disk  int `yaml:"disk"` // GB
}

// ClusterConfig holds default cluster shape, overridable per invocation.
type ClusterConfig struct {
	NamePrefix      string   `yaml:"name_prefix"`
	Slaves          *int     `yaml:"slaves"`
	Master          NodeSize `yaml:"master"`
	Slave           NodeSize `yaml:"slave"`
	IPAllocation    string   `yaml:"ip_allocation"`
	NetworkRequest  int      `yaml:"network_request"`
	ImageName       string   `yaml:"image_name"`
	ImageID         string   `yaml:"image_id"`
	ExtraPublicKeys []string `yaml:"extra_public_keys"`
	Wait            *bool    `yaml:"wait"`
	// RollbackOnFailure tears down partially created resources when provisioning fails.
	RollbackOnFailure bool `yaml:"rollback_on_failure"`
}

// SlaveCount returns the configured number of slaves.
func (c ClusterConfig) SlaveCount() int {
	if c.Slaves == nil {
		return 0
	}
	return *c.Slaves
}

// ShouldWait reports whether provisioning blocks until every VM is active.
func (c ClusterConfig) ShouldWait() bool {
	return c.Wait == nil || *c.Wait
}

// KeysConfig selects where cluster private keys are persisted.
type KeysConfig struct {
	// Dir is used by the file store. A leading ~ is expanded.
	Dir string    `yaml:"dir"`
	S3  *S3Config `yaml:"s3,omitempty"`
}

// S3Config enables the S3 key store when Bucket is set.
type S3Config struct {
	Bucket    string `yaml:"bucket"`
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Prefix    string `yaml:"prefix"`
}

// OpenStackConfig holds OpenStack specific settings. Credentials come from OS_* variables.
type OpenStackConfig struct {
	Region            string `yaml:"region"`
	ExternalNetworkID string `yaml:"external_network_id"`
}

// HCloudConfig holds Hetzner Cloud settings. The token comes from HCLOUD_TOKEN.
type HCloudConfig struct {
	Location    string       `yaml:"location"`
	NetworkZone string       `yaml:"network_zone"`
	Limits      HCloudLimits `yaml:"limits"`
}

// HCloudLimits are the project limits enforced locally, since the Hetzner API exposes none.
type HCloudLimits struct {
	Servers     int `yaml:"servers"`
	Cores       int `yaml:"cores"`
	RAM         int `yaml:"ram"`  // MiB
	Disk        int `yaml:"disk"` // GB
	FloatingIPs int `yaml:"floating_ips"`
	Networks    int `yaml:"networks"`
}

// PlaybooksConfig lists the playbooks run against a freshly built cluster.
type PlaybooksConfig struct {
	Dir        string   `yaml:"dir"`
	Run        []string `yaml:"run"`
	AnsibleBin string   `yaml:"ansible_bin"`
	User       string   `yaml:"user"`
}
