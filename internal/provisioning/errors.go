package provisioning

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/imamik/lambda-provisioner/internal/platform/cloud"
)

// Dimension is one countable quota resource.
type Dimension string

// Quota dimensions in the order they are checked.
const (
	DimensionVM             Dimension = "vm"
	DimensionVCPU           Dimension = "cpu"
	DimensionRAM            Dimension = "ram"
	DimensionDisk           Dimension = "disk"
	DimensionFloatingIP     Dimension = "floating_ip"
	DimensionPrivateNetwork Dimension = "private_network"
)

// Unit returns the unit requested and available amounts are expressed in.
func (d Dimension) Unit() string {
	switch d {
	case DimensionRAM:
		return "MiB"
	case DimensionDisk:
		return "GiB"
	default:
		return ""
	}
}

// QuotaExceededError rejects a request before any resource is created.
type QuotaExceededError struct {
	Dimension Dimension
	Requested int64
	Available int64
}

func (e *QuotaExceededError) Error() string {
	unit := e.Dimension.Unit()
	if unit != "" {
		unit = " " + unit
	}
	return fmt.Sprintf("quota exceeded for %s: requested %d%s, available %d%s",
		e.Dimension, e.Requested, unit, e.Available, unit)
}

// CatalogNotFoundError reports a flavor, image or project without a match.
type CatalogNotFoundError struct {
	Kind  string
	Query string
}

func (e *CatalogNotFoundError) Error() string {
	return fmt.Sprintf("no %s matches %s", e.Kind, e.Query)
}

// RemoteOperationError wraps a failed cloud API call.
type RemoteOperationError struct {
	Operation    string
	ResourceType string
	ResourceID   string
	Err          error
}

func (e *RemoteOperationError) Error() string {
	if e.ResourceID == "" {
		return fmt.Sprintf("%s %s: %v", e.Operation, e.ResourceType, e.Err)
	}
	return fmt.Sprintf("%s %s %s: %v", e.Operation, e.ResourceType, e.ResourceID, e.Err)
}

func (e *RemoteOperationError) Unwrap() error {
	return e.Err
}

// Remote wraps err as a RemoteOperationError, passing nil through.
func Remote(operation, resourceType, resourceID string, err error) error {
	if err == nil {
		return nil
	}
	return &RemoteOperationError{Operation: operation, ResourceType: resourceType, ResourceID: resourceID, Err: err}
}

// PollTimeoutError reports a wait that ended without observing a transition.
// Callers may re-poll instead of treating it as fatal.
type PollTimeoutError struct {
	ResourceID  string
	PriorStatus cloud.VMStatus
	Waited      time.Duration
	Err         error
}

func (e *PollTimeoutError) Error() string {
	return fmt.Sprintf("timed out after %v waiting for %s to leave %s", e.Waited, e.ResourceID, e.PriorStatus)
}

func (e *PollTimeoutError) Unwrap() error {
	return e.Err
}

// PartialProvisionError reports a failure after at least one resource was created.
// Fragment lists what exists and can be passed to teardown.
type PartialProvisionError struct {
	Fragment *ClusterDescriptor
	Err      error
	// CleanupErr is set when a rollback was attempted and failed.
	CleanupErr error
	// RolledBack is true when the fragment was torn down successfully.
	RolledBack bool
}

func (e *PartialProvisionError) Error() string {
	msg := fmt.Sprintf("cluster %s partially provisioned: %v", e.Fragment.ClusterID, e.Err)
	switch {
	case e.CleanupErr != nil:
		msg += fmt.Sprintf(" (rollback failed: %v)", e.CleanupErr)
	case e.RolledBack:
		msg += " (rolled back)"
	}
	return msg
}

func (e *PartialProvisionError) Unwrap() error {
	return e.Err
}

// DecommissionError aggregates every step failure of a teardown.
type DecommissionError struct {
	ClusterID string
	Errs      []error
}

func (e *DecommissionError) Error() string {
	msgs := make([]string, len(e.Errs))
	for i, err := range e.Errs {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("decommission of cluster %s failed with %d error(s): %s",
		e.ClusterID, len(e.Errs), strings.Join(msgs, "; "))
}

func (e *DecommissionError) Unwrap() []error {
	return e.Errs
}

// IsQuotaExceeded reports whether err is or wraps a QuotaExceededError.
func IsQuotaExceeded(err error) bool {
	var qe *QuotaExceededError
	return errors.As(err, &qe)
}

// IsPartial returns the PartialProvisionError in err's chain, if any.
func IsPartial(err error) (*PartialProvisionError, bool) {
	var pe *PartialProvisionError
	ok := errors.As(err, &pe)
	return pe, ok
}
