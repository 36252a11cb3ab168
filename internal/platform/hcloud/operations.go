package hcloud

import (
	"context"
	"fmt"
	"reflect"
	"strconv"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/imamik/lambda-provisioner/internal/util/retry"
)

// CreateResult wraps the result of a resource creation operation.
// It handles both single and multiple actions that may need to be awaited.
type CreateResult[T any] struct {
	Resource T
	Action   *hcloud.Action
	Actions  []*hcloud.Action
}

// DeleteOperation encapsulates deletion logic for any hcloud resource addressed by ID.
//
// Usage example:
//
//	func (c *RealClient) DeleteFloatingIP(ctx context.Context, id string) error {
//	    return (&DeleteOperation[*hcloud.FloatingIP]{
//	        ID:           id,
//	        ResourceType: "floating IP",
//	        Get:          c.client.FloatingIP.GetByID,
//	        Delete:       c.client.FloatingIP.Delete,
//	    }).Execute(ctx, c)
//	}
type DeleteOperation[T any] struct {
	ID           string
	ResourceType string

	// Get retrieves the resource by ID, returning nil when it doesn't exist
	Get func(ctx context.Context, id int64) (T, *hcloud.Response, error)

	// Delete removes the resource
	Delete func(ctx context.Context, resource T) (*hcloud.Response, error)
}

// Execute performs the delete operation with retry logic and timeout handling.
// The operation is idempotent - it succeeds if the resource doesn't exist.
// Locked resources are retried with exponential backoff.
func (op *DeleteOperation[T]) Execute(ctx context.Context, client *RealClient) error {
	id, err := parseID(op.ResourceType, op.ID)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, client.timeouts.ServerDelete)
	defer cancel()

	return retry.WithExponentialBackoff(ctx, func() error {
		resource, _, err := op.Get(ctx, id)
		if err != nil {
			if IsNotFound(err) {
				return nil
			}
			return retry.Fatal(fmt.Errorf("failed to get %s: %w", op.ResourceType, err))
		}

		// Check if resource is nil (already deleted)
		if reflect.ValueOf(resource).IsNil() {
			return nil
		}

		_, err = op.Delete(ctx, resource)
		if err != nil {
			if IsNotFound(err) {
				return nil
			}
			if isResourceLocked(err) {
				return err // Retryable
			}
			return retry.Fatal(err)
		}
		return nil
	},
		retry.WithMaxRetries(client.timeouts.RetryMaxAttempts),
		retry.WithInitialDelay(client.timeouts.RetryInitialDelay))
}

// parseID converts a gateway ID back to the numeric hcloud ID.
func parseID(resourceType, id string) (int64, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s id %q: %w", resourceType, id, err)
	}
	return n, nil
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// waitForActions waits for one or more actions to complete.
// Handles both single actions and multiple actions uniformly.
func waitForActions(ctx context.Context, client *hcloud.Client, actions ...*hcloud.Action) error {
	actions = compactActions(actions)
	if len(actions) == 0 {
		return nil
	}
	return client.Action.WaitFor(ctx, actions...)
}

// waitForActionResult waits for actions from a CreateResult.
// Handles both singular Action and plural Actions fields.
func waitForActionResult[T any](ctx context.Context, client *hcloud.Client, result *CreateResult[T]) error {
	if result.Action != nil {
		return client.Action.WaitFor(ctx, result.Action)
	}
	return waitForActions(ctx, client, result.Actions...)
}

func compactActions(actions []*hcloud.Action) []*hcloud.Action {
	out := actions[:0:0]
	for _, a := range actions {
		if a != nil {
			out = append(out, a)
		}
	}
	return out
}

// simpleCreate wraps create functions returning the resource directly.
// Use for: Network (return Resource, Response, error)
func simpleCreate[T any, Opts any](
	createFn func(context.Context, Opts) (T, *hcloud.Response, error),
) func(context.Context, Opts) (*CreateResult[T], *hcloud.Response, error) {
	return func(ctx context.Context, opts Opts) (*CreateResult[T], *hcloud.Response, error) {
		resource, resp, err := createFn(ctx, opts)
		if err != nil {
			return nil, resp, err
		}
		return &CreateResult[T]{Resource: resource}, resp, nil
	}
}
