package cluster

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-logr/logr"

	"github.com/imamik/lambda-provisioner/internal/config"
	"github.com/imamik/lambda-provisioner/internal/platform/cloud"
	"github.com/imamik/lambda-provisioner/internal/provisioning"
	"github.com/imamik/lambda-provisioner/internal/provisioning/keys"
)

// fakeCloud keeps VM state behind a MockClient so that creates, deletes and
// status reads agree with each other.
type fakeCloud struct {
	*cloud.MockClient

	mu  sync.Mutex
	vms map[string]cloud.VMStatus
	seq int
}

func newFakeCloud() *fakeCloud {
	f := &fakeCloud{vms: map[string]cloud.VMStatus{}}
	f.MockClient = &cloud.MockClient{
		ListFlavorsFunc: func(context.Context) ([]cloud.Flavor, error) {
			return []cloud.Flavor{
				{ID: "flavor-small", Name: "C2R2048D20", VCPUs: 2, RAM: 2048, Disk: 20, AllowCreate: true},
				{ID: "flavor-large", Name: "C4R4096D40", VCPUs: 4, RAM: 4096, Disk: 40, AllowCreate: true},
			}, nil
		},
		ListImagesFunc: func(context.Context) ([]cloud.Image, error) {
			return []cloud.Image{{ID: "img-debian", Name: "Debian Base 12", Status: "ACTIVE"}}, nil
		},
		CreateVMFunc: func(_ context.Context, spec cloud.VMSpec) (*cloud.VM, error) {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.seq++
			id := fmt.Sprintf("vm-%d", f.seq)
			// Building VMs become active on their first status read.
			f.vms[id] = cloud.StatusBuild
			return &cloud.VM{ID: id, Name: spec.Name, Status: cloud.StatusBuild, AdminPass: "pw"}, nil
		},
		GetVMFunc: func(_ context.Context, id string) (*cloud.NodeStatus, error) {
			f.mu.Lock()
			defer f.mu.Unlock()
			st, ok := f.vms[id]
			if !ok {
				return &cloud.NodeStatus{ID: id, Status: cloud.StatusDeleted}, nil
			}
			if st == cloud.StatusBuild {
				f.vms[id] = cloud.StatusActive
				st = cloud.StatusActive
			}
			return &cloud.NodeStatus{
				ID:        id,
				Status:    st,
				Addresses: []string{"203.0.113.200", "192.168.0.1" + strings.TrimPrefix(id, "vm-")},
			}, nil
		},
		DeleteVMFunc: func(_ context.Context, id string) error {
			f.mu.Lock()
			defer f.mu.Unlock()
			if _, ok := f.vms[id]; !ok {
				return fmt.Errorf("server %s: %w", id, cloud.ErrNotFound)
			}
			delete(f.vms, id)
			return nil
		},
	}
	return f
}

func (f *fakeCloud) setStatus(id string, st cloud.VMStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if st == cloud.StatusDeleted {
		delete(f.vms, id)
		return
	}
	f.vms[id] = st
}

func (f *fakeCloud) liveVMs() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.vms)
}

func testTimeouts() *config.Timeouts {
	t := config.TestTimeouts()
	t.ServerBuild = 50 * time.Millisecond
	t.ServerDelete = 50 * time.Millisecond
	return t
}

func newTestProvisioner(gw cloud.Gateway, keyDir string, opts ...Option) *Provisioner {
	opts = append([]Option{
		WithObserver(provisioning.NewLogrObserver(logr.Discard())),
		WithTimeouts(testTimeouts()),
	}, opts...)
	return NewProvisioner(gw, keys.NewManager(keys.NewFileStore(keyDir)), opts...)
}

func keyDir(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "lambda_instances")
}

func newRequest(slaves int, ip provisioning.IPAllocation) *provisioning.ClusterRequest {
	return &provisioning.ClusterRequest{
		ClusterID:      "c1",
		NamePrefix:     "lambda",
		Slaves:         slaves,
		Master:         provisioning.NodeSize{VCPUs: 4, RAM: 4096, Disk: 40},
		Slave:          provisioning.NodeSize{VCPUs: 2, RAM: 2048, Disk: 20},
		IPAllocation:   ip,
		NetworkRequest: 1,
		Project:        cloud.ProjectFilter{Name: "lambda.grnet.gr"},
		ImageName:      "Debian",
		Wait:           true,
	}
}
