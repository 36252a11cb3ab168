// Package naming provides consistent names for cluster resources.
//
// Names are derived from the cluster name prefix: {prefix}-vpn for the
// private network, {prefix}-master for the master node and {prefix}-node{i}
// for slaves. Floating IPs are named after the node they serve.
package naming
