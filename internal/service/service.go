// Package service implements the registration engine: it orchestrates
// join/remove operations across the event roster, profile store, and waiver
// store, and enforces capacity, deadline, and completeness rules.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/trailpost/event-registration/internal/model"
)

// ErrDeadlinePassed is returned when registration is attempted after the
// event's deadline.
var ErrDeadlinePassed = errors.New("registration deadline has passed")

// ErrProfileIncomplete is returned when a participant's profile is missing
// required fields.
var ErrProfileIncomplete = errors.New("participant profile is incomplete")

// ErrForbidden is returned when the actor lacks the privilege or ownership
// an operation requires.
var ErrForbidden = errors.New("operation not permitted")

// EventStore persists events.
type EventStore interface {
	Create(ctx context.Context, req model.CreateEventRequest) (*model.Event, error)
	GetByID(ctx context.Context, id string) (*model.Event, error)
	List(ctx context.Context) ([]model.Event, error)
}

// RosterStore is the authoritative membership list. CommitRegistrations and
// RemoveParticipant must be atomic: capacity and duplicate checks are
// re-validated inside the commit, and removal cascades roster entry, profile
// back-reference, and waiver documents together.
type RosterStore interface {
	CommitRegistrations(ctx context.Context, eventID string, refs []model.ParticipantRef) ([]model.RegistrationEntry, error)
	RemoveParticipant(ctx context.Context, eventID string, ref model.ParticipantRef) error
	IsRegistered(ctx context.Context, eventID string, ref model.ParticipantRef) (bool, error)
	HasRegistrationForUser(ctx context.Context, eventID, userID string) (bool, error)
	ListByEvent(ctx context.Context, eventID string) ([]model.RegistrationEntry, error)
}

// ProfileStore looks up participant identity records.
type ProfileStore interface {
	FindByExternalID(ctx context.Context, userID string) (*model.Profile, error)
	FindChild(ctx context.Context, parentID, childID string) (*model.ChildProfile, error)
}

// WaiverStore persists signed waiver documents.
type WaiverStore interface {
	CreateCompleted(ctx context.Context, eventID string, ref model.ParticipantRef, templateID, storageKey string) (*model.WaiverDoc, error)
	DeleteAll(ctx context.Context, eventID string, ref model.ParticipantRef) (int, error)
	FindCompleted(ctx context.Context, eventID string, ref model.ParticipantRef) ([]model.WaiverDoc, error)
}

// RegistrationService orchestrates event and registration operations.
type RegistrationService struct {
	events   EventStore
	roster   RosterStore
	profiles ProfileStore
	waivers  WaiverStore

	now func() time.Time
}

// NewRegistrationService constructs a RegistrationService with its stores.
func NewRegistrationService(events EventStore, roster RosterStore, profiles ProfileStore, waivers WaiverStore) *RegistrationService {
	return &RegistrationService{
		events:   events,
		roster:   roster,
		profiles: profiles,
		waivers:  waivers,
		now:      time.Now,
	}
}
