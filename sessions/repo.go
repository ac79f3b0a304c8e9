package sessions

import "context"

// Repo defines the interface for vendor session record storage. Records are
// keyed by vendor ID; the tracker owns their lifecycle, not the medium.
type Repo interface {
	// Get retrieves the session record for a vendor. Returns ErrNotFound
	// when the vendor has no session.
	Get(ctx context.Context, vendorID string) (*VendorSession, error)

	// Upsert creates or replaces the session record for its vendor.
	Upsert(ctx context.Context, session *VendorSession) error

	// Delete removes the session record for a vendor. Deleting an absent
	// record is not an error.
	Delete(ctx context.Context, vendorID string) error
}
