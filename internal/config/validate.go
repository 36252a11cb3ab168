package config

import (
	"errors"
	"fmt"
	"slices"
)

// ValidProviders lists the supported cloud providers.
var ValidProviders = []string{ProviderOpenStack, ProviderHCloud}

// ValidIPAllocations lists the accepted floating IP policies.
var ValidIPAllocations = []string{IPAllocationNone, IPAllocationMaster, IPAllocationAll}

// Validate checks the configuration and returns every problem found.
func (c *Config) Validate() error {
	var errs []error

	if !slices.Contains(ValidProviders, c.Provider) {
		errs = append(errs, fmt.Errorf("invalid provider %q: must be one of %v", c.Provider, ValidProviders))
	}

	if err := c.Cluster.validate(); err != nil {
		errs = append(errs, fmt.Errorf("cluster validation failed: %w", err))
	}

	if c.Keys.S3 != nil && c.Keys.S3.Bucket == "" {
		errs = append(errs, errors.New("keys.s3.bucket is required when keys.s3 is set"))
	}
	if c.Keys.S3 != nil && c.Playbooks.Dir != "" {
		errs = append(errs, errors.New("playbooks.dir requires the file key store: ansible reads the private key from disk"))
	}

	if c.Provider == ProviderHCloud {
		if err := c.HCloud.Limits.validate(); err != nil {
			errs = append(errs, fmt.Errorf("hcloud limits validation failed: %w", err))
		}
	}

	return errors.Join(errs...)
}

func (c ClusterConfig) validate() error {
	var errs []error
	if c.SlaveCount() < 0 {
		errs = append(errs, fmt.Errorf("slaves must be >= 0, got %d", c.SlaveCount()))
	}
	if err := c.Master.validate("master"); err != nil {
		errs = append(errs, err)
	}
	if err := c.Slave.validate("slave"); err != nil {
		errs = append(errs, err)
	}
	if !slices.Contains(ValidIPAllocations, c.IPAllocation) {
		errs = append(errs, fmt.Errorf("invalid ip_allocation %q: must be one of %v", c.IPAllocation, ValidIPAllocations))
	}
	if c.NetworkRequest < 1 {
		errs = append(errs, fmt.Errorf("network_request must be >= 1, got %d", c.NetworkRequest))
	}
	return errors.Join(errs...)
}

func (s NodeSize) validate(role string) error {
	if s.VCPUs <= 0 || s.RAM <= 0 || s.Disk <= 0 {
		return fmt.Errorf("%s size must be positive, got vcpus=%d ram=%d disk=%d", role, s.VCPUs, s.RAM, s.Disk)
	}
	return nil
}

func (l HCloudLimits) validate() error {
	if l.Servers < 0 || l.Cores < 0 || l.RAM < 0 || l.Disk < 0 || l.FloatingIPs < 0 || l.Networks < 0 {
		return errors.New("limits must not be negative")
	}
	return nil
}
