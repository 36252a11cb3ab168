package cloud

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned, possibly wrapped, when a resource does not exist.
var ErrNotFound = errors.New("resource not found")

// IsNotFound reports whether err indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IdentityService resolves projects and their quotas.
type IdentityService interface {
	ListProjects(ctx context.Context, filter ProjectFilter) ([]Project, error)
	GetQuota(ctx context.Context, projectID string) (*QuotaSnapshot, error)
}

// ComputeService manages flavors, images and VMs.
type ComputeService interface {
	ListFlavors(ctx context.Context) ([]Flavor, error)
	ListImages(ctx context.Context) ([]Image, error)
	// CreateVM may return a VM together with an error when the server
	// exists but a follow-up step failed; callers must still clean it up.
	CreateVM(ctx context.Context, spec VMSpec) (*VM, error)
	// GetVM reports StatusDeleted for a VM that no longer exists.
	GetVM(ctx context.Context, id string) (*NodeStatus, error)
	DeleteVM(ctx context.Context, id string) error
	// WaitVM blocks until the VM's status differs from prior or maxWait elapses.
	WaitVM(ctx context.Context, id string, prior VMStatus, maxWait time.Duration) (VMStatus, error)
}

// NetworkService manages private networks, subnets and floating IPs.
type NetworkService interface {
	CreateNetwork(ctx context.Context, spec NetworkSpec) (*Network, error)
	CreateSubnet(ctx context.Context, spec SubnetSpec) (*Subnet, error)
	CreateFloatingIP(ctx context.Context, spec FloatingIPSpec) (*FloatingIP, error)
	DeleteFloatingIP(ctx context.Context, id string) error
	// DeleteNetwork removes the network together with its subnets.
	DeleteNetwork(ctx context.Context, id string) error
}

// Gateway is the full capability set the orchestrator needs.
type Gateway interface {
	IdentityService
	ComputeService
	NetworkService
}
