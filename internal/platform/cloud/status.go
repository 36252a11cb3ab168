package cloud

import (
	"context"

	"github.com/imamik/lambda-provisioner/internal/poller"
)

// StatusGetter adapts ComputeService.GetVM to a poller.Getter for one VM.
func StatusGetter(c ComputeService, id string) poller.Getter[VMStatus] {
	return func(ctx context.Context) (VMStatus, error) {
		st, err := c.GetVM(ctx, id)
		if err != nil {
			if IsNotFound(err) {
				return StatusDeleted, nil
			}
			return StatusUnknown, err
		}
		return st.Status, nil
	}
}
