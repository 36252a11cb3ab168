package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Defaults applied to empty fields.
var (
	DefaultNodeSize = NodeSize{VCPUs: 4, RAM: 4096, Disk: 40}

	DefaultPlaybooks = []string{
		"initialize.yml",
		"common-install.yml",
		"hadoop-install.yml",
		"kafka-install.yml",
		"flink-install.yml",
	}
)

// LoadFile reads, defaults and validates the configuration from a YAML file.
func LoadFile(path string) (*Config, error) {
	// #nosec G304
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML into a Config, applies defaults and validates it.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
	}

	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// SetDefaults fills every empty field with its default.
func (c *Config) SetDefaults() {
	if c.Provider == "" {
		c.Provider = ProviderOpenStack
	}
	if c.Cluster.NamePrefix == "" {
		c.Cluster.NamePrefix = "lambda"
	}
	if c.Cluster.Slaves == nil {
		c.Cluster.Slaves = intPtr(1)
	}
	c.Cluster.Master = defaultSize(c.Cluster.Master)
	c.Cluster.Slave = defaultSize(c.Cluster.Slave)
	if c.Cluster.IPAllocation == "" {
		c.Cluster.IPAllocation = IPAllocationMaster
	}
	if c.Cluster.NetworkRequest == 0 {
		c.Cluster.NetworkRequest = 1
	}
	if c.Cluster.ImageName == "" && c.Cluster.ImageID == "" {
		c.Cluster.ImageName = "debian"
	}
	if c.Keys.Dir == "" {
		c.Keys.Dir = "~/.ssh/lambda_instances"
	}
	c.Keys.Dir = ExpandHome(c.Keys.Dir)
	if c.StateDir == "" {
		c.StateDir = "~/.lambdaprov/clusters"
	}
	c.StateDir = ExpandHome(c.StateDir)
	if c.HCloud.Location == "" {
		c.HCloud.Location = "nbg1"
	}
	if c.HCloud.NetworkZone == "" {
		c.HCloud.NetworkZone = "eu-central"
	}
	if len(c.Playbooks.Run) == 0 {
		c.Playbooks.Run = DefaultPlaybooks
	}
	if c.Playbooks.AnsibleBin == "" {
		c.Playbooks.AnsibleBin = "ansible-playbook"
	}
	if c.Playbooks.User == "" {
		c.Playbooks.User = "root"
	}
}

func defaultSize(s NodeSize) NodeSize {
	if s.VCPUs == 0 {
		s.VCPUs = DefaultNodeSize.VCPUs
	}
	if s.RAM == 0 {
		s.RAM = DefaultNodeSize.RAM
	}
	if s.Disk == 0 {
		s.Disk = DefaultNodeSize.Disk
	}
	return s
}

// ExpandHome replaces a leading ~ with the current user's home directory.
func ExpandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

func intPtr(v int) *int {
	return &v
}
