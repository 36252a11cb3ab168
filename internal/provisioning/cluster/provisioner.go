package cluster

import (
	"context"
	"time"

	"github.com/imamik/lambda-provisioner/internal/config"
	"github.com/imamik/lambda-provisioner/internal/platform/cloud"
	"github.com/imamik/lambda-provisioner/internal/provisioning"
	"github.com/imamik/lambda-provisioner/internal/provisioning/keys"
)

// Operation names used for metrics.
const (
	OperationProvision    = "provision"
	OperationDecommission = "decommission"
)

// Provisioner holds the collaborators of cluster operations. It keeps no
// per-cluster state between calls.
type Provisioner struct {
	cloud    cloud.Gateway
	keys     *keys.Manager
	observer provisioning.Observer
	timeouts *config.Timeouts
	rollback bool
}

// Option configures a Provisioner.
type Option func(*Provisioner)

// WithObserver sets the observer events are reported to.
func WithObserver(o provisioning.Observer) Option {
	return func(p *Provisioner) {
		p.observer = o
	}
}

// WithTimeouts overrides the timeouts loaded from the environment.
func WithTimeouts(t *config.Timeouts) Option {
	return func(p *Provisioner) {
		p.timeouts = t
	}
}

// WithRollback makes Provision decommission the fragment of a failed attempt.
func WithRollback(enabled bool) Option {
	return func(p *Provisioner) {
		p.rollback = enabled
	}
}

// NewProvisioner creates a provisioner over gw, keeping private keys through km.
func NewProvisioner(gw cloud.Gateway, km *keys.Manager, opts ...Option) *Provisioner {
	p := &Provisioner{
		cloud: gw,
		keys:  km,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.observer == nil {
		p.observer = provisioning.NewConsoleObserver()
	}
	if p.timeouts == nil {
		p.timeouts = config.LoadTimeouts()
	}
	return p
}

// Provision creates the cluster described by req and returns its descriptor.
//
// Rejections before any resource exists are returned as is. Later failures
// are wrapped in a *provisioning.PartialProvisionError.
func (p *Provisioner) Provision(ctx context.Context, req *provisioning.ClusterRequest) (desc *provisioning.ClusterDescriptor, err error) {
	start := time.Now()
	defer func() { provisioning.RecordOperation(OperationProvision, start, err) }()

	pctx := provisioning.NewContext(ctx, req, p.cloud, p.observer)
	pctx.Timeouts = p.timeouts

	if err := provisioning.RunPhases(pctx, p.phases()); err != nil {
		if !pctx.State.CreatedAny() {
			return nil, err
		}
		return nil, p.partial(ctx, pctx, err)
	}

	desc = pctx.State.Descriptor(req.ClusterID)
	pctx.Observer.Printf("Cluster %s ready: master %s, %d slave(s)", req.ClusterID, desc.Master.ID, len(desc.Slaves))
	return desc, nil
}

func (p *Provisioner) partial(ctx context.Context, pctx *provisioning.Context, cause error) error {
	perr := &provisioning.PartialProvisionError{
		Fragment: pctx.State.Descriptor(pctx.Request.ClusterID),
		Err:      cause,
	}
	if !p.rollback {
		return perr
	}

	pctx.Observer.Printf("Rolling back partially created cluster %s", pctx.Request.ClusterID)
	if err := p.Decommission(ctx, perr.Fragment); err != nil {
		perr.CleanupErr = err
	} else {
		perr.RolledBack = true
	}
	return perr
}

func (p *Provisioner) phases() []provisioning.Phase {
	return []provisioning.Phase{
		provisioning.PhaseFunc{PhaseName: "admission", Fn: admit},
		provisioning.PhaseFunc{PhaseName: "catalog", Fn: resolveCatalog},
		provisioning.PhaseFunc{PhaseName: "keys", Fn: p.prepareKeys},
		provisioning.PhaseFunc{PhaseName: "network", Fn: createNetwork},
		provisioning.PhaseFunc{PhaseName: "floating-ips", Fn: reserveFloatingIPs},
		provisioning.PhaseFunc{PhaseName: "master", Fn: createMaster},
		provisioning.PhaseFunc{PhaseName: "slaves", Fn: createSlaves},
		provisioning.PhaseFunc{PhaseName: "wait", Fn: waitActive},
		provisioning.PhaseFunc{PhaseName: "persist", Fn: p.persistKey},
	}
}
