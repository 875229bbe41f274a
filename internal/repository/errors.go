// Package repository implements all database queries for the registration
// system. It uses pgx directly (no ORM) for transparency and performance.
package repository

import "errors"

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// ErrCapacityExceeded is returned when a commit would overfill an event.
var ErrCapacityExceeded = errors.New("event capacity exceeded")

// ErrAlreadyRegistered is returned when a participant already has a roster
// entry for the event.
var ErrAlreadyRegistered = errors.New("participant already registered for this event")

// ErrUnknownTemplate is returned when a waiver references a template the
// event does not require.
var ErrUnknownTemplate = errors.New("event does not require this waiver template")
