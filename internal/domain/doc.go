// Package domain contains the core business entities, value objects, and
// domain logic of the application: word entries, their rarity and evolution
// state, arena profiles, and the error taxonomy shared by every layer.
// It is independent of any specific infrastructure or delivery mechanism.
package domain
