package vendors

var _ Resolver = (*StaticResolver)(nil)

// StaticResolver resolves vendor affiliation from a fixed mapping of user ID
// to vendor. It backs deployments where the host platform pushes its vendor
// table into configuration rather than exposing a lookup API.
type StaticResolver struct {
	name    string
	vendors map[string]VendorInfo
}

// NewStaticResolver creates a resolver over the given user-to-vendor mapping.
func NewStaticResolver(name string, vendors map[string]VendorInfo) *StaticResolver {
	if vendors == nil {
		vendors = make(map[string]VendorInfo)
	}
	return &StaticResolver{name: name, vendors: vendors}
}

func (r *StaticResolver) Name() string {
	return r.name
}

// Available reports true when the resolver has at least one vendor mapping.
func (r *StaticResolver) Available() bool {
	return len(r.vendors) > 0
}

func (r *StaticResolver) Resolve(identity Identity) (VendorInfo, bool) {
	info, ok := r.vendors[identity.ID]
	return info, ok
}
