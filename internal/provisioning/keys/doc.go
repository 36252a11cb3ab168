// Package keys manages the per-cluster SSH key pair.
//
// A fresh 2048-bit RSA key pair is generated for each cluster and injected
// into every node as boot-time personality files. Only the master receives
// the private half. After a successful provision the private key is
// persisted to a Store keyed by cluster id, and teardown removes it again.
package keys
