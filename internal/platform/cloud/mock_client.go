package cloud

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/imamik/lambda-provisioner/internal/poller"
)

// MockClient is a mock implementation of Gateway.
// Unset functions fall back to simple successful defaults.
type MockClient struct {
	// Identity
	ListProjectsFunc func(ctx context.Context, filter ProjectFilter) ([]Project, error)
	GetQuotaFunc     func(ctx context.Context, projectID string) (*QuotaSnapshot, error)

	// Compute
	ListFlavorsFunc func(ctx context.Context) ([]Flavor, error)
	ListImagesFunc  func(ctx context.Context) ([]Image, error)
	CreateVMFunc    func(ctx context.Context, spec VMSpec) (*VM, error)
	GetVMFunc       func(ctx context.Context, id string) (*NodeStatus, error)
	DeleteVMFunc    func(ctx context.Context, id string) error
	WaitVMFunc      func(ctx context.Context, id string, prior VMStatus, maxWait time.Duration) (VMStatus, error)

	// Network
	CreateNetworkFunc    func(ctx context.Context, spec NetworkSpec) (*Network, error)
	CreateSubnetFunc     func(ctx context.Context, spec SubnetSpec) (*Subnet, error)
	CreateFloatingIPFunc func(ctx context.Context, spec FloatingIPSpec) (*FloatingIP, error)
	DeleteFloatingIPFunc func(ctx context.Context, id string) error
	DeleteNetworkFunc    func(ctx context.Context, id string) error

	mu    sync.Mutex
	calls []string
	fips  int
}

var _ Gateway = (*MockClient)(nil)

func (m *MockClient) record(format string, args ...any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, fmt.Sprintf(format, args...))
}

// Calls returns every recorded call in order, formatted as "Method arg".
func (m *MockClient) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// CountCalls returns how many recorded calls start with method.
func (m *MockClient) CountCalls(method string) int {
	n := 0
	for _, c := range m.Calls() {
		if c == method || len(c) > len(method) && c[:len(method)+1] == method+" " {
			n++
		}
	}
	return n
}

func (m *MockClient) ListProjects(ctx context.Context, filter ProjectFilter) ([]Project, error) {
	m.record("ListProjects %s", filter.Name)
	if m.ListProjectsFunc != nil {
		return m.ListProjectsFunc(ctx, filter)
	}
	return []Project{{ID: "project-id", Name: filter.Name}}, nil
}

func (m *MockClient) GetQuota(ctx context.Context, projectID string) (*QuotaSnapshot, error) {
	m.record("GetQuota %s", projectID)
	if m.GetQuotaFunc != nil {
		return m.GetQuotaFunc(ctx, projectID)
	}
	unlimited := Quota{Limit: Unlimited}
	return &QuotaSnapshot{
		ProjectID:       projectID,
		VMs:             unlimited,
		VCPUs:           unlimited,
		RAM:             unlimited,
		Disk:            unlimited,
		FloatingIPs:     unlimited,
		PrivateNetworks: unlimited,
	}, nil
}

func (m *MockClient) ListFlavors(ctx context.Context) ([]Flavor, error) {
	m.record("ListFlavors")
	if m.ListFlavorsFunc != nil {
		return m.ListFlavorsFunc(ctx)
	}
	return nil, nil
}

func (m *MockClient) ListImages(ctx context.Context) ([]Image, error) {
	m.record("ListImages")
	if m.ListImagesFunc != nil {
		return m.ListImagesFunc(ctx)
	}
	return nil, nil
}

func (m *MockClient) CreateVM(ctx context.Context, spec VMSpec) (*VM, error) {
	m.record("CreateVM %s", spec.Name)
	if m.CreateVMFunc != nil {
		return m.CreateVMFunc(ctx, spec)
	}
	return &VM{ID: "vm-" + spec.Name, Name: spec.Name, Status: StatusBuild, AdminPass: "mock-pass"}, nil
}

func (m *MockClient) GetVM(ctx context.Context, id string) (*NodeStatus, error) {
	m.record("GetVM %s", id)
	if m.GetVMFunc != nil {
		return m.GetVMFunc(ctx, id)
	}
	return &NodeStatus{ID: id, Status: StatusActive}, nil
}

func (m *MockClient) DeleteVM(ctx context.Context, id string) error {
	m.record("DeleteVM %s", id)
	if m.DeleteVMFunc != nil {
		return m.DeleteVMFunc(ctx, id)
	}
	return nil
}

// WaitVM polls GetVM through the shared poller unless WaitVMFunc is set.
func (m *MockClient) WaitVM(ctx context.Context, id string, prior VMStatus, maxWait time.Duration) (VMStatus, error) {
	m.record("WaitVM %s", id)
	if m.WaitVMFunc != nil {
		return m.WaitVMFunc(ctx, id, prior, maxWait)
	}
	return poller.WaitUntil(ctx, id, StatusGetter(m, id), prior, maxWait,
		poller.WithInterval(time.Millisecond, 5*time.Millisecond))
}

func (m *MockClient) CreateNetwork(ctx context.Context, spec NetworkSpec) (*Network, error) {
	m.record("CreateNetwork %s", spec.Name)
	if m.CreateNetworkFunc != nil {
		return m.CreateNetworkFunc(ctx, spec)
	}
	return &Network{ID: "net-" + spec.Name, Name: spec.Name}, nil
}

func (m *MockClient) CreateSubnet(ctx context.Context, spec SubnetSpec) (*Subnet, error) {
	m.record("CreateSubnet %s", spec.NetworkID)
	if m.CreateSubnetFunc != nil {
		return m.CreateSubnetFunc(ctx, spec)
	}
	return &Subnet{
		ID:        "subnet-" + spec.NetworkID,
		NetworkID: spec.NetworkID,
		CIDR:      spec.CIDR,
		Gateway:   spec.Gateway,
		DHCP:      spec.DHCP,
	}, nil
}

func (m *MockClient) CreateFloatingIP(ctx context.Context, spec FloatingIPSpec) (*FloatingIP, error) {
	m.record("CreateFloatingIP %s", spec.Name)
	if m.CreateFloatingIPFunc != nil {
		return m.CreateFloatingIPFunc(ctx, spec)
	}
	m.mu.Lock()
	m.fips++
	n := m.fips
	m.mu.Unlock()
	return &FloatingIP{ID: fmt.Sprintf("fip-%d", n), Address: fmt.Sprintf("203.0.113.%d", n)}, nil
}

func (m *MockClient) DeleteFloatingIP(ctx context.Context, id string) error {
	m.record("DeleteFloatingIP %s", id)
	if m.DeleteFloatingIPFunc != nil {
		return m.DeleteFloatingIPFunc(ctx, id)
	}
	return nil
}

func (m *MockClient) DeleteNetwork(ctx context.Context, id string) error {
	m.record("DeleteNetwork %s", id)
	if m.DeleteNetworkFunc != nil {
		return m.DeleteNetworkFunc(ctx, id)
	}
	return nil
}
