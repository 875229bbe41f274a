package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/trailpost/event-registration/internal/model"
)

// CreateEvent validates the request and delegates to the event store.
// Only privileged actors may create events.
func (s *RegistrationService) CreateEvent(ctx context.Context, actor model.Actor, req model.CreateEventRequest) (*model.Event, error) {
	if !actor.Privileged {
		return nil, ErrForbidden
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return nil, fmt.Errorf("event title is required")
	}
	if req.StartAt.IsZero() || req.EndAt.IsZero() {
		return nil, fmt.Errorf("start and end times are required")
	}
	if !req.StartAt.Before(req.EndAt) {
		return nil, fmt.Errorf("event start must be before its end")
	}
	if req.Deadline.IsZero() {
		req.Deadline = req.StartAt
	}
	if req.Deadline.After(req.EndAt) {
		return nil, fmt.Errorf("registration deadline cannot be after the event ends")
	}
	if req.Capacity < 0 {
		return nil, fmt.Errorf("capacity cannot be negative")
	}
	if req.FeeCents < 0 {
		return nil, fmt.Errorf("fee cannot be negative")
	}
	return s.events.Create(ctx, req)
}

// GetEvent returns a single event by ID. Draft events are visible only to
// privileged actors and to users already on the roster (directly or via a
// child).
func (s *RegistrationService) GetEvent(ctx context.Context, actor model.Actor, id string) (*model.Event, error) {
	if id == "" {
		return nil, fmt.Errorf("event id is required")
	}
	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if event.Draft && !actor.Privileged {
		ok, err := s.registeredAsAnyone(ctx, event.ID, actor.ID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrForbidden
		}
	}
	return event, nil
}

// ListEvents returns all events the actor may see; drafts are filtered out
// for non-privileged callers.
func (s *RegistrationService) ListEvents(ctx context.Context, actor model.Actor) ([]model.Event, error) {
	events, err := s.events.List(ctx)
	if err != nil {
		return nil, err
	}
	if actor.Privileged {
		return events, nil
	}
	visible := make([]model.Event, 0, len(events))
	for _, e := range events {
		if !e.Draft {
			visible = append(visible, e)
		}
	}
	return visible, nil
}

// ListRoster returns all roster entries for an event. Restricted to
// privileged actors and participants already on the roster.
func (s *RegistrationService) ListRoster(ctx context.Context, actor model.Actor, eventID string) ([]model.RegistrationEntry, error) {
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !actor.Privileged {
		ok, err := s.registeredAsAnyone(ctx, event.ID, actor.ID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrForbidden
		}
	}
	return s.roster.ListByEvent(ctx, eventID)
}

// registeredAsAnyone reports whether the user is on the roster directly or
// through one of their children.
func (s *RegistrationService) registeredAsAnyone(ctx context.Context, eventID, userID string) (bool, error) {
	if userID == "" {
		return false, nil
	}
	return s.roster.HasRegistrationForUser(ctx, eventID, userID)
}
