package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/lambda-provisioner/internal/config"
	"github.com/imamik/lambda-provisioner/internal/instance"
	"github.com/imamik/lambda-provisioner/internal/platform/cloud"
	"github.com/imamik/lambda-provisioner/internal/platform/hcloud"
	"github.com/imamik/lambda-provisioner/internal/provisioning"
	"github.com/imamik/lambda-provisioner/internal/provisioning/keys"
)

// fakeCloud keeps VM state so that creates, status reads and deletes agree.
type fakeCloud struct {
	*cloud.MockClient

	mu  sync.Mutex
	vms map[string]cloud.VMStatus
	seq int
}

func newFakeCloud() *fakeCloud {
	f := &fakeCloud{vms: map[string]cloud.VMStatus{}}
	f.MockClient = &cloud.MockClient{
		ListProjectsFunc: func(_ context.Context, filter cloud.ProjectFilter) ([]cloud.Project, error) {
			return []cloud.Project{{ID: "p-1", Name: "lambda", State: "active"}}, nil
		},
		ListFlavorsFunc: func(context.Context) ([]cloud.Flavor, error) {
			return []cloud.Flavor{
				{ID: "large", Name: "C4R4096D40", VCPUs: 4, RAM: 4096, Disk: 40, AllowCreate: true},
				{ID: "small", Name: "C2R2048D20", VCPUs: 2, RAM: 2048, Disk: 20, AllowCreate: true},
			}, nil
		},
		ListImagesFunc: func(context.Context) ([]cloud.Image, error) {
			return []cloud.Image{
				{ID: "img-debian", Name: "Debian 12", Status: "ACTIVE"},
				{ID: "img-ubuntu", Name: "Ubuntu 24.04", Status: "ACTIVE"},
			}, nil
		},
		CreateVMFunc: func(_ context.Context, spec cloud.VMSpec) (*cloud.VM, error) {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.seq++
			id := fmt.Sprintf("vm-%d", f.seq)
			f.vms[id] = cloud.StatusActive
			return &cloud.VM{ID: id, Name: spec.Name, Status: cloud.StatusBuild}, nil
		},
		GetVMFunc: func(_ context.Context, id string) (*cloud.NodeStatus, error) {
			f.mu.Lock()
			defer f.mu.Unlock()
			st, ok := f.vms[id]
			if !ok {
				return &cloud.NodeStatus{ID: id, Status: cloud.StatusDeleted}, nil
			}
			return &cloud.NodeStatus{ID: id, Status: st, Addresses: []string{"192.168.0.1" + id[len("vm-"):]}}, nil
		},
		DeleteVMFunc: func(_ context.Context, id string) error {
			f.mu.Lock()
			defer f.mu.Unlock()
			delete(f.vms, id)
			return nil
		},
	}
	return f
}

// stubEnv points the factories at gw and returns the path of a config file
// whose state and keys live in a temporary directory.
func stubEnv(t *testing.T, gw cloud.Gateway) (configPath, dir string) {
	t.Helper()
	origGateway := newGateway
	origTimeouts := loadTimeouts
	origStyled := styled
	t.Cleanup(func() {
		newGateway = origGateway
		loadTimeouts = origTimeouts
		styled = origStyled
	})

	newGateway = func(context.Context, *config.Config, *config.Timeouts) (cloud.Gateway, error) {
		return gw, nil
	}
	loadTimeouts = config.TestTimeouts
	styled = func() bool { return false }

	dir = t.TempDir()
	doc := fmt.Sprintf(`
provider: openstack
project:
  name: lambda
cluster:
  slaves: 1
  master: {vcpus: 2, ram: 2048, disk: 20}
  slave: {vcpus: 2, ram: 2048, disk: 20}
  image_name: Debian
keys:
  dir: %s
state_dir: %s
`, filepath.Join(dir, "keys"), filepath.Join(dir, "state"))
	configPath = filepath.Join(dir, "lambdaprov.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(doc), 0o600))
	return configPath, dir
}

func loadRecord(t *testing.T, dir, id string) *instance.Instance {
	t.Helper()
	inst, err := instance.NewFileRecorder(filepath.Join(dir, "state")).Load(id)
	require.NoError(t, err)
	return inst
}

func TestCreateStatusDestroy(t *testing.T) {
	fc := newFakeCloud()
	configPath, dir := stubEnv(t, fc)
	ctx := context.Background()

	require.NoError(t, Create(ctx, configPath, "c1", CreateOptions{}))

	inst := loadRecord(t, dir, "c1")
	assert.Equal(t, instance.StatusStarted, inst.Status)
	require.NotNil(t, inst.Descriptor)
	assert.Equal(t, "vm-1", inst.Descriptor.Master.ID)
	require.Len(t, inst.Descriptor.Slaves, 1)
	assert.Equal(t, "192.168.0.12", inst.Descriptor.Slaves[0].InternalIP)
	assert.NotNil(t, inst.Descriptor.Master.FloatingIP, "master gets the floating IP by default")

	keyPath := keys.NewFileStore(filepath.Join(dir, "keys")).Location("c1")
	info, err := os.Stat(keyPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	require.NoError(t, Status(ctx, configPath, "c1", true))

	err = Create(ctx, configPath, "c1", CreateOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists with status STARTED")

	require.NoError(t, Destroy(ctx, configPath, "c1"))
	assert.Equal(t, instance.StatusDestroyed, loadRecord(t, dir, "c1").Status)
	assert.Equal(t, 1, fc.CountCalls("DeleteNetwork"))
	assert.Equal(t, 2, fc.CountCalls("DeleteVM"))
	_, err = os.Stat(keyPath)
	assert.True(t, os.IsNotExist(err), "private key purged")

	require.NoError(t, Destroy(ctx, configPath, "c1"), "destroying twice is a no-op")
	assert.Equal(t, 1, fc.CountCalls("DeleteNetwork"))
}

func TestCreate_Overrides(t *testing.T) {
	fc := newFakeCloud()
	configPath, dir := stubEnv(t, fc)

	slaves := 3
	require.NoError(t, Create(context.Background(), configPath, "c2", CreateOptions{
		Slaves:       &slaves,
		IPAllocation: config.IPAllocationAll,
		NoWait:       true,
	}))

	inst := loadRecord(t, dir, "c2")
	require.NotNil(t, inst.Descriptor)
	assert.Len(t, inst.Descriptor.Slaves, 3)
	assert.Len(t, inst.Descriptor.FloatingIPs, 4)
	assert.Equal(t, 4, fc.CountCalls("CreateFloatingIP"))
	assert.Equal(t, 0, fc.CountCalls("WaitVM"))
}

func TestCreate_QuotaExceeded(t *testing.T) {
	fc := newFakeCloud()
	fc.GetQuotaFunc = func(_ context.Context, projectID string) (*cloud.QuotaSnapshot, error) {
		roomy := cloud.Quota{Limit: cloud.Unlimited}
		return &cloud.QuotaSnapshot{
			ProjectID: projectID, VMs: cloud.Quota{Limit: 1},
			VCPUs: roomy, RAM: roomy, Disk: roomy, FloatingIPs: roomy, PrivateNetworks: roomy,
		}, nil
	}
	configPath, dir := stubEnv(t, fc)

	err := Create(context.Background(), configPath, "c3", CreateOptions{})
	require.Error(t, err)
	var qe *provisioning.QuotaExceededError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, provisioning.DimensionVM, qe.Dimension)

	inst := loadRecord(t, dir, "c3")
	assert.Equal(t, instance.StatusClusterFailed, inst.Status)
	assert.Nil(t, inst.Descriptor)
	assert.Equal(t, 0, fc.CountCalls("CreateNetwork"))
}

func TestDestroy_UnknownCluster(t *testing.T) {
	configPath, _ := stubEnv(t, newFakeCloud())

	err := Destroy(context.Background(), configPath, "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, instance.ErrNotFound)
}

func TestHandlers_RejectUnsafeClusterID(t *testing.T) {
	f := newFakeCloud()
	configPath, dir := stubEnv(t, f)

	for name, run := range map[string]func(id string) error{
		"create":  func(id string) error { return Create(context.Background(), configPath, id, CreateOptions{}) },
		"destroy": func(id string) error { return Destroy(context.Background(), configPath, id) },
		"status":  func(id string) error { return Status(context.Background(), configPath, id, false) },
	} {
		t.Run(name, func(t *testing.T) {
			err := run("../escape")
			require.Error(t, err)
			assert.Contains(t, err.Error(), `cluster id "../escape"`)
		})
	}

	assert.Empty(t, f.Calls())
	assert.NoFileExists(t, filepath.Join(filepath.Dir(dir), "escape"))
}

func TestQuota(t *testing.T) {
	fc := newFakeCloud()
	configPath, _ := stubEnv(t, fc)

	require.NoError(t, Quota(context.Background(), configPath, CreateOptions{}))
	assert.Equal(t, []string{"ListProjects lambda", "GetQuota p-1"}, fc.Calls())

	fc.GetQuotaFunc = func(_ context.Context, projectID string) (*cloud.QuotaSnapshot, error) {
		return &cloud.QuotaSnapshot{ProjectID: projectID, VMs: cloud.Quota{Limit: 10}, VCPUs: cloud.Quota{Limit: 1}}, nil
	}
	err := Quota(context.Background(), configPath, CreateOptions{})
	var qe *provisioning.QuotaExceededError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, provisioning.DimensionVCPU, qe.Dimension)
}

func TestQuota_NoProject(t *testing.T) {
	fc := newFakeCloud()
	fc.ListProjectsFunc = func(context.Context, cloud.ProjectFilter) ([]cloud.Project, error) {
		return nil, nil
	}
	configPath, _ := stubEnv(t, fc)

	err := Quota(context.Background(), configPath, CreateOptions{})
	var ce *provisioning.CatalogNotFoundError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "project", ce.Kind)
}

func TestFlavorsAndImages(t *testing.T) {
	fc := newFakeCloud()
	configPath, _ := stubEnv(t, fc)
	ctx := context.Background()

	require.NoError(t, Flavors(ctx, configPath))
	require.NoError(t, Images(ctx, configPath, "Ubuntu"))
	assert.Equal(t, []string{"ListFlavors", "ListImages"}, fc.Calls())

	fc.ListImagesFunc = func(context.Context) ([]cloud.Image, error) {
		return nil, errors.New("boom")
	}
	require.Error(t, Images(ctx, configPath, ""))
}

func TestSetup_GatewayError(t *testing.T) {
	configPath, _ := stubEnv(t, nil)
	newGateway = func(context.Context, *config.Config, *config.Timeouts) (cloud.Gateway, error) {
		return nil, errors.New("no credentials")
	}

	err := Flavors(context.Background(), configPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to openstack")
}

func TestDefaultGateway(t *testing.T) {
	timeouts := config.TestTimeouts()

	t.Run("hcloud without token", func(t *testing.T) {
		t.Setenv("HCLOUD_TOKEN", "")
		_, err := defaultGateway(context.Background(), &config.Config{Provider: config.ProviderHCloud}, timeouts)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "HCLOUD_TOKEN")
	})

	t.Run("hcloud", func(t *testing.T) {
		t.Setenv("HCLOUD_TOKEN", "token")
		gw, err := defaultGateway(context.Background(), &config.Config{Provider: config.ProviderHCloud}, timeouts)
		require.NoError(t, err)
		assert.IsType(t, &hcloud.RealClient{}, gw)
	})

	t.Run("unsupported", func(t *testing.T) {
		_, err := defaultGateway(context.Background(), &config.Config{Provider: "aws"}, timeouts)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported provider")
	})
}

func TestServeMetrics(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	stop, err := ServeMetrics(addr)
	require.NoError(t, err)
	defer stop()

	resp, err := http.Get("http://" + addr + "/metrics")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "go_goroutines")
}
