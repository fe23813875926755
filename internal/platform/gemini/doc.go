// Package gemini implements the language-model providers (branch words,
// ascended fusion words, hidden moves and definition hints) on Google's
// Gemini API.
//
// Every call renders an embedded prompt template, asks the model for a JSON
// reply and decodes it into a small response schema. Transient API failures
// are retried with exponential backoff and jitter; blocked or malformed
// replies are not. Every failure is reported as
// domain.ErrProviderUnavailable so callers fall back to deterministic
// results.
package gemini
