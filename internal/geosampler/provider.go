package geosampler

import "driver-client/internal/domain/geo"

// Options are passed through to the device location provider.
type Options struct {
	// HighAccuracy requests GPS-grade fixes instead of network location.
	HighAccuracy bool
}

// Subscription is one live stream of raw fixes from a provider.
// Fixes and Errors are closed after Unsubscribe returns.
type Subscription interface {
	// Fixes delivers raw device fixes in provider order.
	Fixes() <-chan geo.LocationSample
	// Errors delivers provider failures (e.g. GPS disabled) without
	// terminating the subscription.
	Errors() <-chan error
	// Unsubscribe stops delivery and releases provider resources.
	// Safe to call more than once.
	Unsubscribe()
}

// Provider abstracts the device's location service.
type Provider interface {
	Subscribe(opts Options) (Subscription, error)
}
