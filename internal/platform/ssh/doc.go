// Package ssh runs commands on cluster nodes with the cluster's private key.
//
// A freshly built VM accepts connections only once its boot sequence is
// done, so connecting is retried with exponential backoff. WaitReady
// additionally blocks until cloud-init has applied the personality files.
package ssh
