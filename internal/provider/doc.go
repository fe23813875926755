// Package provider defines the external lookup capabilities the progression
// engine depends on: word definitions, semantic branches, ascended fusion
// words and hidden moves. Every call is bounded by a timeout and every
// failure is reported as domain.ErrProviderUnavailable so callers can fall
// back to the deterministic values this package also provides.
package provider
