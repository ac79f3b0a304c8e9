// Package sessions tracks, per vendor, the external WhatsApp connection
// identifier and its lifecycle state.
package sessions

import "time"

// Status is the lifecycle state of a vendor's connection to the messaging
// network. The absence of a record is the none state; a successful create
// call produces qr_ready directly.
type Status string

const (
	StatusNone          Status = "none"
	StatusQRReady       Status = "qr_ready"
	StatusAuthenticated Status = "authenticated"
	StatusFailed        Status = "failed"
	StatusDisconnected  Status = "disconnected"
)

// VendorSession is the persisted per-vendor session record. A vendor has at
// most one session record at a time.
type VendorSession struct {
	VendorID  string    `json:"vendor_id"`  // Owning vendor
	ClientID  string    `json:"client_id"`  // Opaque session identifier assigned by the external service
	Name      string    `json:"name"`       // Human-readable session name
	Status    Status    `json:"status"`     // Current lifecycle state
	CreatedAt time.Time `json:"created_at"` // When the session record was created
}
