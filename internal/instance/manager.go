package instance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/imamik/lambda-provisioner/internal/provisioning"
)

// Instance is the tracked state of one lambda instance.
type Instance struct {
	ID           string                          `yaml:"id"`
	Status       Status                          `yaml:"status"`
	Message      string                          `yaml:"message,omitempty"`
	Descriptor   *provisioning.ClusterDescriptor `yaml:"descriptor,omitempty"`
	Applications []Application                   `yaml:"applications,omitempty"`
	UpdatedAt    time.Time                       `yaml:"updated_at"`
}

// Recorder durably stores instance state.
type Recorder interface {
	Save(ctx context.Context, inst *Instance) error
}

// Clusters creates and tears down clusters.
type Clusters interface {
	Provision(ctx context.Context, req *provisioning.ClusterRequest) (*provisioning.ClusterDescriptor, error)
	Decommission(ctx context.Context, desc *provisioning.ClusterDescriptor) error
}

// Configurer installs software on a freshly created cluster.
type Configurer interface {
	Run(ctx context.Context, desc *provisioning.ClusterDescriptor, keyPath string) error
}

// KeyLocator resolves where the private key of a cluster is stored.
type KeyLocator interface {
	Location(clusterID string) string
}

// Manager drives instances through their lifecycle.
type Manager struct {
	clusters   Clusters
	configurer Configurer
	keys       KeyLocator
	recorder   Recorder
	now        func() time.Time
}

// NewManager creates a manager. configurer may be nil, in which case a
// created cluster is marked started without running playbooks.
func NewManager(clusters Clusters, configurer Configurer, keys KeyLocator, recorder Recorder) *Manager {
	return &Manager{
		clusters:   clusters,
		configurer: configurer,
		keys:       keys,
		recorder:   recorder,
		now:        time.Now,
	}
}

// transition validates and records a status change.
func (m *Manager) transition(ctx context.Context, inst *Instance, next Status, message string) error {
	if !inst.Status.CanTransition(next) {
		return &TransitionError{Kind: "instance", From: string(inst.Status), To: string(next)}
	}
	inst.Status = next
	inst.Message = message
	inst.UpdatedAt = m.now()
	if err := m.recorder.Save(ctx, inst); err != nil {
		return fmt.Errorf("failed to record instance %s as %s: %w", inst.ID, next, err)
	}
	return nil
}

// Create provisions the cluster of a new instance and configures it.
//
// A partially created cluster is recorded with its fragment so that Destroy
// can remove it.
func (m *Manager) Create(ctx context.Context, inst *Instance, req *provisioning.ClusterRequest) error {
	if err := m.transition(ctx, inst, StatusPending, ""); err != nil {
		return err
	}

	desc, err := m.clusters.Provision(ctx, req)
	if err != nil {
		if pe, ok := provisioning.IsPartial(err); ok && !pe.RolledBack {
			inst.Descriptor = pe.Fragment
		}
		return errors.Join(err, m.transition(ctx, inst, StatusClusterFailed, err.Error()))
	}

	inst.Descriptor = desc
	if err := m.transition(ctx, inst, StatusClusterCreated, ""); err != nil {
		return err
	}

	if m.configurer != nil {
		if err := m.configurer.Run(ctx, desc, m.keys.Location(desc.ClusterID)); err != nil {
			return errors.Join(err, m.transition(ctx, inst, StatusFailed, err.Error()))
		}
	}
	return m.transition(ctx, inst, StatusStarted, "")
}

// Destroy tears down the cluster of an instance. An instance without a
// descriptor has nothing to remove and is marked destroyed directly.
func (m *Manager) Destroy(ctx context.Context, inst *Instance) error {
	if err := m.transition(ctx, inst, StatusDestroying, ""); err != nil {
		return err
	}

	if inst.Descriptor != nil {
		if err := m.clusters.Decommission(ctx, inst.Descriptor); err != nil {
			return errors.Join(err, m.transition(ctx, inst, StatusFailed, err.Error()))
		}
	}
	return m.transition(ctx, inst, StatusDestroyed, "")
}
