package platforms

// Registry holds the fixed set of platform adapters, keyed by platform
// tag. It is populated once at startup and read-only afterwards, so it is
// safe to share across concurrent resolutions.
type Registry struct {
	adapters map[Platform]Adapter
	order    []Platform
}

// NewRegistry creates a registry from the given adapters. Registering two
// adapters for the same platform keeps the last one.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{
		adapters: make(map[Platform]Adapter, len(adapters)),
	}
	for _, a := range adapters {
		if _, exists := r.adapters[a.Platform()]; !exists {
			r.order = append(r.order, a.Platform())
		}
		r.adapters[a.Platform()] = a
	}
	return r
}

// Extractor returns the extract capability for a platform, if the
// adapter implements it. A missing capability is a static limitation to
// route around, not an error.
func (r *Registry) Extractor(p Platform) (Extractor, bool) {
	e, ok := r.adapters[p].(Extractor)
	return e, ok
}

// Searcher returns the search capability for a platform, if the adapter
// implements it.
func (r *Registry) Searcher(p Platform) (Searcher, bool) {
	s, ok := r.adapters[p].(Searcher)
	return s, ok
}

// Platforms returns all registered platform tags in registration order.
func (r *Registry) Platforms() []Platform {
	out := make([]Platform, len(r.order))
	copy(out, r.order)
	return out
}

// Searchers returns every adapter with search capability, in
// registration order.
func (r *Registry) Searchers() []Searcher {
	var out []Searcher
	for _, p := range r.order {
		if s, ok := r.adapters[p].(Searcher); ok {
			out = append(out, s)
		}
	}
	return out
}
