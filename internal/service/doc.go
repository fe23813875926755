// Package service holds what the progression services share: the service
// error type, ownership errors and team upkeep after entries disappear.
//
// Each use case lives in its own subpackage (dex, word_review, evolution,
// arena, auth). Services receive stores and providers through their
// constructors, run every multi-row change inside store.RunInTransaction and
// take the per-entry lock from entrylock before mutating an entry.
package service
