package vendors

import "github.com/pkg/errors"

// ErrNoResolver is returned when no registered marketplace integration is
// available in the current deployment.
var ErrNoResolver = errors.New("no available vendor resolver")

// Registry selects a marketplace integration by capability probing.
type Registry struct {
	resolvers []Resolver
}

// NewRegistry creates a registry over the given resolvers. Order matters:
// the first available resolver wins.
func NewRegistry(resolvers ...Resolver) *Registry {
	return &Registry{resolvers: resolvers}
}

// Register appends a resolver to the registry.
func (r *Registry) Register(resolver Resolver) {
	r.resolvers = append(r.resolvers, resolver)
}

// Select probes registered resolvers and returns the first available one.
func (r *Registry) Select() (Resolver, error) {
	for _, resolver := range r.resolvers {
		if resolver.Available() {
			return resolver, nil
		}
	}
	return nil, ErrNoResolver
}
