package provider

import "fmt"

// Router chooses an adapter and model for a request given a tool's
// policy and the live availability snapshot. Routing is a pure,
// synchronous, side-effect-free function over already-known
// availability: it never performs network calls, so dispatch latency
// is dominated by the provider call, not by routing.
type Router struct {
	registry *Registry
}

// NewRouter creates a router over the given registry.
func NewRouter(registry *Registry) *Router {
	return &Router{registry: registry}
}

// Pick selects the first available adapter in preference order: the
// policy's provider list when non-empty, otherwise the registry's
// registration order. The chosen model is the policy's first listed
// model, then the request's model, then empty (the adapter decides its
// own default).
func (r *Router) Pick(req GenerateRequest, policy *Policy) (Adapter, string, error) {
	available := r.registry.Available()
	if len(available) == 0 {
		return nil, "", ErrNoProviderEnabled
	}

	var preferred []string
	if policy != nil && len(policy.Providers) > 0 {
		preferred = policy.Providers
	} else {
		for _, a := range available {
			preferred = append(preferred, a.ID())
		}
	}

	var adapter Adapter
	for _, id := range preferred {
		if a := r.registry.Get(id); a != nil && a.Available() {
			adapter = a
			break
		}
	}
	if adapter == nil {
		return nil, "", fmt.Errorf("%w: preferred=%v",
			ErrNoPreferredProviderAvailable, preferred)
	}

	model := req.Model
	if policy != nil && len(policy.Models) > 0 {
		model = policy.Models[0]
	}

	return adapter, model, nil
}
