package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/phrazzld/wordmon-api/internal/domain"
)

// DefaultTimeout bounds a single provider call.
const DefaultTimeout = 8 * time.Second

// Call runs fn with a deadline of timeout. Any failure, including the
// deadline, comes back wrapped in domain.ErrProviderUnavailable. A
// cancellation of the parent context is returned as is so callers can tell
// the user left from the provider failing.
func Call[T any](ctx context.Context, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	v, err := fn(callCtx)
	if err == nil {
		return v, nil
	}

	var zero T
	if ctx.Err() != nil {
		return zero, ctx.Err()
	}
	if errors.Is(err, domain.ErrProviderUnavailable) {
		return zero, err
	}
	return zero, fmt.Errorf("%w: %w", domain.ErrProviderUnavailable, err)
}

// Chain tries each definition provider in turn and returns the first hit.
type Chain []DefinitionProvider

var _ DefinitionProvider = Chain(nil)

// Lookup implements DefinitionProvider.
func (c Chain) Lookup(ctx context.Context, word string) (*Definition, error) {
	var errs []error
	for _, p := range c {
		def, err := p.Lookup(ctx, word)
		if err == nil && def != nil {
			return def, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil, ErrNotFound
	}
	return nil, fmt.Errorf("%w: %w", domain.ErrProviderUnavailable, errors.Join(errs...))
}
