package provider

import (
	"errors"
	"fmt"

	"github.com/phrazzld/wordmon-api/internal/domain"
)

// Errors returned by provider implementations. All of them are also
// domain.ErrProviderUnavailable.
var (
	// ErrInvalidResponse is returned when a response cannot be parsed.
	ErrInvalidResponse = fmt.Errorf("%w: invalid response", domain.ErrProviderUnavailable)

	// ErrContentBlocked is returned when a language model refused the prompt.
	ErrContentBlocked = fmt.Errorf("%w: content blocked", domain.ErrProviderUnavailable)

	// ErrTransientFailure is returned for errors that may resolve on retry.
	ErrTransientFailure = fmt.Errorf("%w: transient failure", domain.ErrProviderUnavailable)

	// ErrNotFound is returned when the provider knows nothing about a word.
	ErrNotFound = fmt.Errorf("%w: word not found", domain.ErrProviderUnavailable)
)

// ErrInvalidConfig is returned when a provider cannot be constructed.
var ErrInvalidConfig = errors.New("invalid provider configuration")
