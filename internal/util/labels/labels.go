package labels

import "maps"

// Standard label keys.
const (
	// KeyCluster identifies which cluster a resource belongs to
	KeyCluster = "lambda.io/cluster"

	// KeyRole identifies the role of a server (master, slave)
	KeyRole = "lambda.io/role"

	// KeyManagedBy identifies the management system
	KeyManagedBy = "lambda.io/managed-by"
)

// Role values
const (
	RoleMaster = "master"
	RoleSlave  = "slave"
)

// ManagedByLambda marks resources created by lambdaprov.
const ManagedByLambda = "lambdaprov"

// LabelBuilder provides a fluent interface for building resource labels.
type LabelBuilder struct {
	labels map[string]string
}

// NewLabelBuilder creates a new label builder with the cluster id pre-set.
func NewLabelBuilder(clusterID string) *LabelBuilder {
	return &LabelBuilder{
		labels: map[string]string{
			KeyCluster:   clusterID,
			KeyManagedBy: ManagedByLambda,
		},
	}
}

// WithRole adds a role label.
func (lb *LabelBuilder) WithRole(role string) *LabelBuilder {
	lb.labels[KeyRole] = role
	return lb
}

// Merge adds all labels from the provided map.
func (lb *LabelBuilder) Merge(extra map[string]string) *LabelBuilder {
	maps.Copy(lb.labels, extra)
	return lb
}

// Build returns a copy of the labels map.
func (lb *LabelBuilder) Build() map[string]string {
	return maps.Clone(lb.labels)
}

// SelectorForCluster returns a label selector string for all resources in a cluster.
func SelectorForCluster(clusterID string) string {
	return KeyCluster + "=" + clusterID
}

// SelectorManaged returns a label selector matching every resource lambdaprov created.
func SelectorManaged() string {
	return KeyManagedBy + "=" + ManagedByLambda
}
