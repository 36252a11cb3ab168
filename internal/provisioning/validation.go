package provisioning

import (
	"errors"
	"fmt"
	"regexp"
)

// clusterIDPattern keeps cluster ids usable as file and object names.
var clusterIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidateClusterID rejects ids that are empty or could escape the key and
// state directories they are joined into.
func ValidateClusterID(id string) error {
	if id == "" {
		return fmt.Errorf("cluster id is required")
	}
	if !clusterIDPattern.MatchString(id) {
		return fmt.Errorf("cluster id %q must start with a letter or digit and contain only letters, digits, '.', '_' or '-'", id)
	}
	return nil
}

// ValidationError represents a request validation error or warning.
type ValidationError struct {
	Field    string // Request field that failed validation
	Message  string // Human-readable error message
	Severity string // "error" or "warning"
}

// Error implements the error interface.
func (ve ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", ve.Severity, ve.Field, ve.Message)
}

// IsError returns true if this is an error (not a warning).
func (ve ValidationError) IsError() bool {
	return ve.Severity == "error"
}

// Check returns every validation error and warning of the request.
func (r *ClusterRequest) Check() []ValidationError {
	var errs []ValidationError
	add := func(field, severity, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...), Severity: severity})
	}

	if err := ValidateClusterID(r.ClusterID); err != nil {
		add("ClusterID", "error", "%s", err)
	}
	if r.Slaves < 0 {
		add("Slaves", "error", "slave count must be >= 0, got %d", r.Slaves)
	}
	for _, s := range []struct {
		role string
		size NodeSize
	}{{"Master", r.Master}, {"Slave", r.Slave}} {
		if s.size.VCPUs <= 0 {
			add(s.role+".VCPUs", "error", "must be > 0, got %d", s.size.VCPUs)
		}
		if s.size.RAM <= 0 {
			add(s.role+".RAM", "error", "must be > 0, got %d", s.size.RAM)
		}
		if s.size.Disk <= 0 {
			add(s.role+".Disk", "error", "must be > 0, got %d", s.size.Disk)
		}
	}
	if !r.IPAllocation.Valid() {
		add("IPAllocation", "error", "must be one of none, master, all, got %q", r.IPAllocation)
	}
	if r.NetworkRequest < 1 {
		add("NetworkRequest", "error", "must be >= 1, got %d", r.NetworkRequest)
	}
	if r.ImageName == "" && r.ImageID == "" {
		add("ImageName", "error", "an image name or id is required")
	}
	if r.IPAllocation == IPAllocationNone {
		add("IPAllocation", "warning", "no floating IP is reserved, the master is reachable only from inside the cloud")
	}
	return errs
}

// Validate returns the joined validation errors, ignoring warnings.
func (r *ClusterRequest) Validate() error {
	var errs []error
	for _, ve := range r.Check() {
		if ve.IsError() {
			errs = append(errs, ve)
		}
	}
	return errors.Join(errs...)
}
