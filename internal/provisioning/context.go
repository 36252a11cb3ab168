package provisioning

import (
	"context"

	"github.com/imamik/lambda-provisioner/internal/config"
	"github.com/imamik/lambda-provisioner/internal/platform/cloud"
	"github.com/imamik/lambda-provisioner/internal/util/keygen"
)

// State holds the shared results of provisioning phases.
// It is progressively populated as each phase completes and is passed
// to subsequent phases that need earlier results.
type State struct {
	// Admission results
	Project *cloud.Project
	Quota   *cloud.QuotaSnapshot

	// Catalog results
	MasterFlavor *cloud.Flavor
	SlaveFlavor  *cloud.Flavor
	Image        *cloud.Image

	// Key material
	KeyPair     *keygen.KeyPair
	MasterFiles []cloud.PersonalityFile
	SlaveFiles  []cloud.PersonalityFile

	// Created resources, in creation order
	Network     *cloud.Network
	Subnet      *cloud.Subnet
	FloatingIPs []cloud.FloatingIP
	Master      *Node
	Slaves      []Node
}

// NewState creates an empty provisioning state.
func NewState() *State {
	return &State{}
}

// CreatedAny reports whether any cloud resource has been created.
func (s *State) CreatedAny() bool {
	return s.Network != nil || len(s.FloatingIPs) > 0 || s.Master != nil || len(s.Slaves) > 0
}

// Descriptor assembles a descriptor from whatever has been created so far.
func (s *State) Descriptor(clusterID string) *ClusterDescriptor {
	d := &ClusterDescriptor{
		ClusterID:   clusterID,
		FloatingIPs: append([]cloud.FloatingIP(nil), s.FloatingIPs...),
		Slaves:      append([]Node(nil), s.Slaves...),
	}
	if s.Project != nil {
		d.ProjectID = s.Project.ID
	}
	if s.Network != nil {
		d.NetworkID = s.Network.ID
	}
	if s.Subnet != nil {
		d.Subnet = *s.Subnet
	}
	if s.Master != nil {
		d.Master = *s.Master
	}
	if s.KeyPair != nil {
		d.PrivateKey = s.KeyPair.PrivateKey
	}
	return d
}

// Context wraps all dependencies and state needed for a provisioning phase.
type Context struct {
	context.Context
	Request  *ClusterRequest
	State    *State
	Cloud    cloud.Gateway
	Observer Observer
	Timeouts *config.Timeouts
}

// NewContext creates a new provisioning context for one request.
func NewContext(ctx context.Context, req *ClusterRequest, gw cloud.Gateway, observer Observer) *Context {
	if observer == nil {
		observer = NewConsoleObserver()
	}
	return &Context{
		Context:  ctx,
		Request:  req,
		State:    NewState(),
		Cloud:    gw,
		Observer: observer.WithFields(map[string]string{"cluster": req.ClusterID}),
		Timeouts: config.LoadTimeouts(),
	}
}
