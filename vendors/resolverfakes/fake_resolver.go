package resolverfakes

import (
	"sync"

	"github.com/vendormesh/wabridge/vendors"
)

var _ vendors.Resolver = (*FakeResolver)(nil)

// FakeResolver is an in-memory vendors.Resolver for tests.
type FakeResolver struct {
	name      string
	available bool
	vendors   map[string]vendors.VendorInfo
	lock      sync.RWMutex
}

func NewFakeResolver(name string, available bool) *FakeResolver {
	return &FakeResolver{
		name:      name,
		available: available,
		vendors:   make(map[string]vendors.VendorInfo),
	}
}

// AddVendor maps a user ID to a vendor affiliation.
func (r *FakeResolver) AddVendor(userID string, info vendors.VendorInfo) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.vendors[userID] = info
}

func (r *FakeResolver) Name() string {
	return r.name
}

func (r *FakeResolver) Available() bool {
	return r.available
}

func (r *FakeResolver) Resolve(identity vendors.Identity) (vendors.VendorInfo, bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	info, ok := r.vendors[identity.ID]
	return info, ok
}
