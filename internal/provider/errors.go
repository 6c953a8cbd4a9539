package provider

import "errors"

// Routing errors surfaced by the router's pick operation.
var (
	// ErrNoProviderEnabled is returned when no adapter at all is
	// currently available.
	ErrNoProviderEnabled = errors.New("no provider enabled")

	// ErrNoPreferredProviderAvailable is returned when a policy names
	// providers but none of them is currently available.
	ErrNoPreferredProviderAvailable = errors.New("no preferred provider available")
)
