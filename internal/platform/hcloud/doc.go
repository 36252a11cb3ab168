// Package hcloud implements cloud.Gateway on top of the Hetzner Cloud API.
//
// # Mapping
//
// Hetzner has no identity service and no quota API, so the gateway
// reports a single synthetic project and computes quota from the limits
// configured under hcloud.limits minus the usage it counts by listing
// servers, floating IPs and networks. A zero limit means unlimited.
//
// Flavors are server types, personality files are delivered through
// cloud-init write_files, and a VM created with a floating IP gets the
// address assigned right after creation.
//
// # Generic Operations
//
// DeleteOperation provides idempotent deletion by ID with retry logic:
//   - Handles resource locking with exponential backoff
//   - Returns success if the resource doesn't exist
//   - Bounded by the ServerDelete timeout
//
// # Retry and Timeout Configuration
//
// Timeouts come from config.LoadTimeouts and can be overridden with
// WithTimeouts. Server creation is retried on locked or rate limited
// errors up to RetryMaxAttempts times.
package hcloud
