// Package provisioning provides shared types, interfaces, and orchestration for cluster provisioning.
//
// # Subpackages
//
//   - quota/: admission of a request against a project quota snapshot
//   - catalog/: first-match resolution of flavors, images and projects
//   - keys/: cluster key pairs, personality files and private key storage
//   - cluster/: ordered creation and teardown of a whole cluster
//
// # Core Types
//
// ClusterRequest is the immutable input of one provisioning call and
// ClusterDescriptor its result, the only handle needed for teardown.
// Context carries the request, the cloud gateway, the observer and the
// per-call State that phases fill in. Phase defines a provisioning step with
// Name() and Provision() methods, run in order by RunPhases.
//
// Failures are reported with typed errors: QuotaExceededError,
// CatalogNotFoundError, RemoteOperationError, PollTimeoutError,
// PartialProvisionError and DecommissionError.
package provisioning
