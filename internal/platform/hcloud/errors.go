package hcloud

import (
	"errors"
	"fmt"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/imamik/lambda-provisioner/internal/platform/cloud"
)

// isResourceLocked checks if an error indicates a resource is locked.
// Locked resources typically occur while another action on the same
// resource is still running. These errors are retryable.
func isResourceLocked(err error) bool {
	return isHCloudErrorCode(err,
		hcloud.ErrorCodeLocked,   // Item is locked (action running)
		hcloud.ErrorCodeConflict, // Resource changed during request
		hcloud.ErrorCodeResourceLocked,
		hcloud.ErrorCodeResourceUnavailable,
	)
}

// isRetryable reports whether a failed call may succeed when repeated.
func isRetryable(err error) bool {
	return isResourceLocked(err) || IsRateLimited(err)
}

// isHCloudErrorCode checks if the error is an hcloud API error with one of the given codes.
func isHCloudErrorCode(err error, codes ...hcloud.ErrorCode) bool {
	if err == nil {
		return false
	}

	var hcloudErr hcloud.Error
	if errors.As(err, &hcloudErr) {
		for _, code := range codes {
			if hcloudErr.Code == code {
				return true
			}
		}
	}
	return false
}

// IsNotFound checks if an error indicates a resource was not found.
func IsNotFound(err error) bool {
	return isHCloudErrorCode(err, hcloud.ErrorCodeNotFound)
}

// IsRateLimited checks if an error indicates rate limiting.
func IsRateLimited(err error) bool {
	return isHCloudErrorCode(err, hcloud.ErrorCodeRateLimitExceeded)
}

// translate marks hcloud not-found errors with cloud.ErrNotFound.
func translate(err error) error {
	if IsNotFound(err) {
		return fmt.Errorf("%w: %w", cloud.ErrNotFound, err)
	}
	return err
}
