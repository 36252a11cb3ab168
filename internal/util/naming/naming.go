package naming

import (
	"fmt"
	"path"
)

// DefaultPrefix is used when a request carries no name prefix.
const DefaultPrefix = "lambda"

func prefixOrDefault(prefix string) string {
	if prefix == "" {
		return DefaultPrefix
	}
	return prefix
}

// Network returns the name of the cluster's private network.
func Network(prefix string) string {
	return fmt.Sprintf("%s-vpn", prefixOrDefault(prefix))
}

// Subnet returns the name of the cluster's subnet.
func Subnet(prefix string) string {
	return fmt.Sprintf("%s-subnet", prefixOrDefault(prefix))
}

// Master returns the name of the master node.
func Master(prefix string) string {
	return fmt.Sprintf("%s-master", prefixOrDefault(prefix))
}

// Slave returns the name of the i-th slave, counting from 1.
func Slave(prefix string, index int) string {
	return fmt.Sprintf("%s-node%d", prefixOrDefault(prefix), index)
}

// FloatingIP returns the name of the floating IP reserved for a node.
func FloatingIP(nodeName string) string {
	return fmt.Sprintf("%s-ipv4", nodeName)
}

// PrivateKeyObject returns the object key under which a cluster's private key is stored.
func PrivateKeyObject(clusterID string) string {
	return path.Join("lambda_instances", clusterID)
}
