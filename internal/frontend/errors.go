package frontend

import "errors"

var (
	// ErrNotConfigured is returned when an entity was never registered.
	ErrNotConfigured = errors.New("entity is not configured")
	// ErrKeyNotFound is returned when unregistering an absent key.
	ErrKeyNotFound = errors.New("registry key not found")
	// ErrSealed is returned when mutating a registry after startup completed.
	ErrSealed = errors.New("registry is sealed")
	// ErrUnknownImplementation is returned by Open for an unregistered name.
	ErrUnknownImplementation = errors.New("unknown registry implementation")
)
