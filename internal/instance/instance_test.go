package instance

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/lambda-provisioner/internal/platform/cloud"
	"github.com/imamik/lambda-provisioner/internal/provisioning"
)

func TestStatus_Transitions(t *testing.T) {
	t.Parallel()
	tests := []struct {
		from, to Status
		want     bool
	}{
		{"", StatusPending, true},
		{"", StatusStarted, false},
		{StatusPending, StatusClusterCreated, true},
		{StatusPending, StatusClusterFailed, true},
		{StatusPending, StatusStarted, false},
		{StatusClusterCreated, StatusStarted, true},
		{StatusClusterCreated, StatusFailed, true},
		{StatusStarted, StatusStopping, true},
		{StatusStopping, StatusStopped, true},
		{StatusStopped, StatusStarting, true},
		{StatusStarting, StatusStarted, true},
		{StatusStopped, StatusStarted, false},
		{StatusClusterFailed, StatusDestroying, true},
		{StatusFailed, StatusDestroying, true},
		{StatusDestroying, StatusDestroyed, true},
		{StatusDestroying, StatusFailed, true},
		{StatusDestroyed, StatusDestroying, false},
		{StatusDestroyed, StatusPending, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.from.CanTransition(tt.to))
		})
	}
}

func TestStatus_Terminal(t *testing.T) {
	t.Parallel()
	assert.True(t, StatusDestroyed.Terminal())
	assert.False(t, StatusFailed.Terminal())
	assert.False(t, Status("BOGUS").Terminal())
}

func TestApplication_Transition(t *testing.T) {
	t.Parallel()
	app := &Application{Name: "wordcount.jar"}

	require.NoError(t, app.Transition(AppUploading))
	require.NoError(t, app.Transition(AppUploaded))
	require.NoError(t, app.Transition(AppDeploying))
	require.NoError(t, app.Transition(AppDeployed))

	err := app.Transition(AppUploaded)
	var te *TransitionError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "illegal application transition DEPLOYED -> UPLOADED", err.Error())
	assert.Equal(t, AppDeployed, app.Status)
}

type fakeClusters struct {
	desc          *provisioning.ClusterDescriptor
	provisionErr  error
	decommErr     error
	decommissions int
}

func (f *fakeClusters) Provision(context.Context, *provisioning.ClusterRequest) (*provisioning.ClusterDescriptor, error) {
	return f.desc, f.provisionErr
}

func (f *fakeClusters) Decommission(context.Context, *provisioning.ClusterDescriptor) error {
	f.decommissions++
	return f.decommErr
}

type fakeConfigurer struct {
	keyPath string
	err     error
}

func (f *fakeConfigurer) Run(_ context.Context, _ *provisioning.ClusterDescriptor, keyPath string) error {
	f.keyPath = keyPath
	return f.err
}

type keyLocator struct{}

func (keyLocator) Location(id string) string { return "/keys/" + id }

type memoryRecorder struct {
	history []Status
	err     error
}

func (r *memoryRecorder) Save(_ context.Context, inst *Instance) error {
	r.history = append(r.history, inst.Status)
	return r.err
}

func testDescriptor() *provisioning.ClusterDescriptor {
	return &provisioning.ClusterDescriptor{
		ClusterID: "c1",
		NetworkID: "net-1",
		Master:    provisioning.Node{Role: provisioning.RoleMaster, ID: "vm-1", Name: "lambda-master"},
	}
}

func TestManager_Create(t *testing.T) {
	t.Parallel()
	clusters := &fakeClusters{desc: testDescriptor()}
	conf := &fakeConfigurer{}
	rec := &memoryRecorder{}
	m := NewManager(clusters, conf, keyLocator{}, rec)
	inst := &Instance{ID: "c1"}

	require.NoError(t, m.Create(context.Background(), inst, &provisioning.ClusterRequest{ClusterID: "c1"}))

	assert.Equal(t, []Status{StatusPending, StatusClusterCreated, StatusStarted}, rec.history)
	assert.Equal(t, StatusStarted, inst.Status)
	assert.Equal(t, "net-1", inst.Descriptor.NetworkID)
	assert.Equal(t, "/keys/c1", conf.keyPath)
	assert.False(t, inst.UpdatedAt.IsZero())
}

func TestManager_CreateWithoutConfigurer(t *testing.T) {
	t.Parallel()
	rec := &memoryRecorder{}
	m := NewManager(&fakeClusters{desc: testDescriptor()}, nil, keyLocator{}, rec)

	require.NoError(t, m.Create(context.Background(), &Instance{ID: "c1"}, &provisioning.ClusterRequest{}))
	assert.Equal(t, []Status{StatusPending, StatusClusterCreated, StatusStarted}, rec.history)
}

func TestManager_CreateRejected(t *testing.T) {
	t.Parallel()
	quotaErr := &provisioning.QuotaExceededError{Dimension: provisioning.DimensionVM, Requested: 3, Available: 2}
	rec := &memoryRecorder{}
	m := NewManager(&fakeClusters{provisionErr: quotaErr}, nil, keyLocator{}, rec)
	inst := &Instance{ID: "c1"}

	err := m.Create(context.Background(), inst, &provisioning.ClusterRequest{})
	assert.True(t, provisioning.IsQuotaExceeded(err))
	assert.Equal(t, []Status{StatusPending, StatusClusterFailed}, rec.history)
	assert.Nil(t, inst.Descriptor)
	assert.Contains(t, inst.Message, "quota exceeded for vm")
}

func TestManager_CreatePartialKeepsFragment(t *testing.T) {
	t.Parallel()
	frag := &provisioning.ClusterDescriptor{
		ClusterID:   "c1",
		NetworkID:   "net-1",
		FloatingIPs: []cloud.FloatingIP{{ID: "fip-1"}},
	}
	partial := &provisioning.PartialProvisionError{Fragment: frag, Err: errors.New("no valid host")}
	clusters := &fakeClusters{provisionErr: partial}
	rec := &memoryRecorder{}
	m := NewManager(clusters, nil, keyLocator{}, rec)
	inst := &Instance{ID: "c1"}

	err := m.Create(context.Background(), inst, &provisioning.ClusterRequest{})
	_, ok := provisioning.IsPartial(err)
	require.True(t, ok)
	assert.Same(t, frag, inst.Descriptor)
	assert.Equal(t, StatusClusterFailed, inst.Status)

	require.NoError(t, m.Destroy(context.Background(), inst))
	assert.Equal(t, 1, clusters.decommissions)
	assert.Equal(t, StatusDestroyed, inst.Status)
}

func TestManager_CreatePlaybookFailure(t *testing.T) {
	t.Parallel()
	rec := &memoryRecorder{}
	m := NewManager(&fakeClusters{desc: testDescriptor()}, &fakeConfigurer{err: errors.New("playbook initialize.yml failed")}, keyLocator{}, rec)
	inst := &Instance{ID: "c1"}

	err := m.Create(context.Background(), inst, &provisioning.ClusterRequest{})
	assert.ErrorContains(t, err, "initialize.yml")
	assert.Equal(t, []Status{StatusPending, StatusClusterCreated, StatusFailed}, rec.history)
	assert.NotNil(t, inst.Descriptor)
}

func TestManager_Destroy(t *testing.T) {
	t.Parallel()
	clusters := &fakeClusters{}
	rec := &memoryRecorder{}
	m := NewManager(clusters, nil, keyLocator{}, rec)
	inst := &Instance{ID: "c1", Status: StatusStarted, Descriptor: testDescriptor()}

	require.NoError(t, m.Destroy(context.Background(), inst))
	assert.Equal(t, []Status{StatusDestroying, StatusDestroyed}, rec.history)
	assert.Equal(t, 1, clusters.decommissions)

	err := m.Destroy(context.Background(), inst)
	var te *TransitionError
	assert.True(t, errors.As(err, &te), "destroyed is terminal")
	assert.Equal(t, 1, clusters.decommissions)
}

func TestManager_DestroyFailure(t *testing.T) {
	t.Parallel()
	clusters := &fakeClusters{decommErr: &provisioning.DecommissionError{ClusterID: "c1", Errs: []error{errors.New("conflict")}}}
	rec := &memoryRecorder{}
	m := NewManager(clusters, nil, keyLocator{}, rec)
	inst := &Instance{ID: "c1", Status: StatusStarted, Descriptor: testDescriptor()}

	err := m.Destroy(context.Background(), inst)
	var de *provisioning.DecommissionError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, StatusFailed, inst.Status)

	// A failed destroy can be retried.
	clusters.decommErr = nil
	require.NoError(t, m.Destroy(context.Background(), inst))
	assert.Equal(t, StatusDestroyed, inst.Status)
}

func TestManager_RecorderFailure(t *testing.T) {
	t.Parallel()
	clusters := &fakeClusters{desc: testDescriptor()}
	m := NewManager(clusters, nil, keyLocator{}, &memoryRecorder{err: errors.New("disk full")})

	err := m.Create(context.Background(), &Instance{ID: "c1"}, &provisioning.ClusterRequest{})
	assert.ErrorContains(t, err, "failed to record instance c1 as PENDING: disk full")
}
