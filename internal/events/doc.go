// Package events carries domain facts (captures, evolutions, fusions,
// finished battles) from the services that produce them to the components
// that react, such as the background task runner.
package events
