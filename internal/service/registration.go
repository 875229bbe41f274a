package service

import (
	"context"
	"fmt"

	"github.com/trailpost/event-registration/internal/model"
	"github.com/trailpost/event-registration/internal/repository"
)

// JoinResult is the outcome of a join request. Either Entries is populated
// (free event, committed synchronously) or PaymentRequired is set and the
// roster was not touched: the commit is deferred until the payment
// processor confirms the checkout session.
type JoinResult struct {
	PaymentRequired bool
	AmountCents     int64
	Event           *model.Event
	Participants    []model.ParticipantRef
	Entries         []model.RegistrationEntry
}

// JoinEvent registers a batch of participants for an event.
//
// Every precondition must hold for all participants before anything commits:
// the event exists and its deadline has not passed, drafts require a
// privileged actor, every profile is complete, the batch fits remaining
// capacity, and nobody is already registered. The capacity and duplicate
// checks here are advisory; the roster commit re-validates them under the
// event row lock, which is what actually closes the race near the capacity
// boundary.
func (s *RegistrationService) JoinEvent(ctx context.Context, actor model.Actor, eventID string, participants []model.ParticipantRef) (*JoinResult, error) {
	if len(participants) == 0 {
		return nil, fmt.Errorf("at least one participant is required")
	}
	for i, ref := range participants {
		if !ref.Valid() {
			return nil, fmt.Errorf("participant %d is malformed", i)
		}
		if !actor.Privileged && !ref.OwnedBy(actor.ID) {
			return nil, ErrForbidden
		}
		for _, prev := range participants[:i] {
			if ref.Equal(prev) {
				return nil, fmt.Errorf("participant %s listed twice", ref)
			}
		}
	}

	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.DeadlinePassed(s.now()) {
		return nil, ErrDeadlinePassed
	}
	if event.Draft && !actor.Privileged {
		return nil, ErrForbidden
	}

	for _, ref := range participants {
		if err := s.checkProfileComplete(ctx, ref); err != nil {
			return nil, err
		}
	}

	if event.Capacity > 0 && event.RegisteredCount+len(participants) > event.Capacity {
		return nil, repository.ErrCapacityExceeded
	}
	for _, ref := range participants {
		registered, err := s.roster.IsRegistered(ctx, eventID, ref)
		if err != nil {
			return nil, err
		}
		if registered {
			return nil, repository.ErrAlreadyRegistered
		}
	}

	if !event.Free() {
		return &JoinResult{
			PaymentRequired: true,
			AmountCents:     event.FeeCents * int64(len(participants)),
			Event:           event,
			Participants:    participants,
		}, nil
	}

	entries, err := s.roster.CommitRegistrations(ctx, eventID, participants)
	if err != nil {
		return nil, err
	}
	return &JoinResult{Event: event, Participants: participants, Entries: entries}, nil
}

// CommitConfirmed performs the deferred commit for a confirmed checkout
// session. It is the same atomic roster mutation the free-event path uses;
// the caller (payment reconciliation) decides how to treat
// ErrAlreadyRegistered on redelivery.
func (s *RegistrationService) CommitConfirmed(ctx context.Context, eventID string, participants []model.ParticipantRef) ([]model.RegistrationEntry, error) {
	if _, err := s.events.GetByID(ctx, eventID); err != nil {
		return nil, err
	}
	return s.roster.CommitRegistrations(ctx, eventID, participants)
}

// RemoveParticipant removes one participant from an event. Privileged only.
// The store runs the cascade (roster entry, profile back-reference, waiver
// documents) in one transaction; removal of a non-member succeeds as a
// no-op.
func (s *RegistrationService) RemoveParticipant(ctx context.Context, actor model.Actor, eventID string, ref model.ParticipantRef) error {
	if !actor.Privileged {
		return ErrForbidden
	}
	if !ref.Valid() {
		return fmt.Errorf("participant reference is malformed")
	}
	if _, err := s.events.GetByID(ctx, eventID); err != nil {
		return err
	}
	return s.roster.RemoveParticipant(ctx, eventID, ref)
}

// CompleteWaiver records a finished signing flow for one required template.
// The actor must own the participant (self or own child) or be privileged.
func (s *RegistrationService) CompleteWaiver(ctx context.Context, actor model.Actor, eventID string, req model.CompleteWaiverRequest) (*model.WaiverDoc, error) {
	if !req.Participant.Valid() {
		return nil, fmt.Errorf("participant reference is malformed")
	}
	if req.TemplateID == "" || req.StorageKey == "" {
		return nil, fmt.Errorf("template_id and storage_key are required")
	}
	if !actor.Privileged && !req.Participant.OwnedBy(actor.ID) {
		return nil, ErrForbidden
	}
	return s.waivers.CreateCompleted(ctx, eventID, req.Participant, req.TemplateID, req.StorageKey)
}

func (s *RegistrationService) checkProfileComplete(ctx context.Context, ref model.ParticipantRef) error {
	if ref.IsChild() {
		child, err := s.profiles.FindChild(ctx, ref.ParentID, ref.ChildID)
		if err != nil {
			return err
		}
		if !child.Complete() {
			return fmt.Errorf("%w: child %s", ErrProfileIncomplete, ref.ChildID)
		}
		return nil
	}
	profile, err := s.profiles.FindByExternalID(ctx, ref.UserID)
	if err != nil {
		return err
	}
	if !profile.Complete() {
		return fmt.Errorf("%w: user %s", ErrProfileIncomplete, ref.UserID)
	}
	return nil
}
