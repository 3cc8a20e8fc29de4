package repository

import "context"

// CredentialInventory holds, per plan, an ordered list of unused account
// credentials. TakeOne must be atomic: two concurrent calls for the same
// plan never receive the same credential.
type CredentialInventory interface {
	// TakeOne removes and returns the first credential for the plan;
	// domain.ErrInventoryEmpty (no mutation) when the list is empty.
	TakeOne(ctx context.Context, planID string) (string, error)
	// ReturnOne reinserts a credential at the front of the plan's list. Used
	// when fulfillment is abandoned after allocation.
	ReturnOne(ctx context.Context, planID, credential string) error
	// Add appends fresh credentials to the back of the plan's list.
	Add(ctx context.Context, planID string, credentials ...string) error
	Count(ctx context.Context, planID string) (int, error)
}
