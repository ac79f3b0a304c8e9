// Package vendors models marketplace caller identities and resolves their
// vendor affiliation.
package vendors

// Identity is the authenticated caller as supplied by the host platform.
type Identity struct {
	ID       string   `json:"id"`       // Unique identifier for the user
	Username string   `json:"username"` // Platform username
	Email    string   `json:"email"`    // User's email address
	Roles    []string `json:"roles"`    // Platform roles assigned to the user
}

// HasAnyRole reports whether the identity holds at least one of the given roles.
func (id Identity) HasAnyRole(roles []string) bool {
	for _, have := range id.Roles {
		for _, want := range roles {
			if have == want {
				return true
			}
		}
	}
	return false
}

// VendorInfo is a resolved vendor affiliation.
type VendorInfo struct {
	VendorID  string `json:"vendor_id"`
	StoreName string `json:"store_name"`
}

// Resolver maps an identity to its vendor affiliation. One implementation
// exists per marketplace integration; the registry probes for the first
// available one at startup.
type Resolver interface {
	// Name identifies the marketplace integration.
	Name() string

	// Available reports whether this marketplace integration is usable in
	// the current deployment.
	Available() bool

	// Resolve returns the vendor affiliation for the identity, and false if
	// the identity is not a vendor.
	Resolve(identity Identity) (VendorInfo, bool)
}
