// Package store implements the in-memory document store backing the Papyr
// practice server.
package store

import "errors"

var (
	// ErrCollectionNotFound is returned when a requested collection does not exist.
	ErrCollectionNotFound = errors.New("collection does not exist")
	// ErrEntryNotFound is returned when a requested entry does not exist within a collection.
	ErrEntryNotFound = errors.New("entry does not exist")
)

// Protected collection names owned by the auth subsystem. They live in a
// separate MemStore instance and are never reachable through the generic
// data service.
const (
	UsersCollection    = "users"
	SessionsCollection = "sessions"
)
