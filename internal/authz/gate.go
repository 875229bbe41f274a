// Package authz decides whether a caller may obtain a retrieval link for a
// stored artifact, based on ownership and roster membership. Decisions are
// made per request and never cached: roster membership changes.
package authz

import (
	"context"
	"errors"
	"strings"

	"github.com/trailpost/event-registration/internal/model"
	"github.com/trailpost/event-registration/internal/repository"
)

// ErrUnauthorized is returned when the artifact requires an authenticated
// caller and none was presented.
var ErrUnauthorized = errors.New("authentication required")

// ErrForbidden is returned when an authenticated caller is not permitted to
// access the artifact.
var ErrForbidden = errors.New("access to artifact denied")

// ErrInvalidKey is returned for keys that match no known artifact class.
// Deny is the default: a new artifact class needs an explicit rule here,
// never an implicit allow.
var ErrInvalidKey = errors.New("unknown artifact key")

// Artifact key-space prefixes.
const (
	prefixEventImages      = "event-images/"
	prefixProfileImages    = "profile-images/"
	prefixWaiverTemplates  = "waivers/templates/"
	prefixCompletedWaivers = "waivers/completed/"
)

// EventLookup reads the event an artifact belongs to.
type EventLookup interface {
	GetByID(ctx context.Context, id string) (*model.Event, error)
}

// RosterLookup answers membership questions for draft-event artifacts.
type RosterLookup interface {
	HasRegistrationForUser(ctx context.Context, eventID, userID string) (bool, error)
}

// Gate evaluates artifact access rules.
type Gate struct {
	events EventLookup
	roster RosterLookup
}

// NewGate constructs a Gate.
func NewGate(events EventLookup, roster RosterLookup) *Gate {
	return &Gate{events: events, roster: roster}
}

// Authorize decides access for one artifact key. A nil actor is an
// anonymous caller. It returns nil to allow, or one of the package's
// sentinel errors to deny.
func (g *Gate) Authorize(ctx context.Context, actor *model.Actor, key string) error {
	switch {
	case strings.HasPrefix(key, prefixEventImages):
		return g.authorizeEventImage(ctx, actor, key)

	case strings.HasPrefix(key, prefixProfileImages):
		owner := firstSegment(key[len(prefixProfileImages):])
		if owner == "" {
			return ErrInvalidKey
		}
		if actor == nil {
			return ErrUnauthorized
		}
		if actor.Privileged || actor.ID == owner {
			return nil
		}
		return ErrForbidden

	case strings.HasPrefix(key, prefixWaiverTemplates):
		if actor == nil {
			return ErrUnauthorized
		}
		return nil

	case strings.HasPrefix(key, prefixCompletedWaivers):
		rest := key[len(prefixCompletedWaivers):]
		segments := strings.SplitN(rest, "/", 3)
		if len(segments) < 3 {
			return ErrInvalidKey
		}
		ref, ok := model.ParseParticipantRef(segments[1])
		if !ok {
			return ErrInvalidKey
		}
		if actor == nil {
			return ErrUnauthorized
		}
		if actor.Privileged || ref.OwnedBy(actor.ID) {
			return nil
		}
		return ErrForbidden

	default:
		return ErrInvalidKey
	}
}

// authorizeEventImage allows everyone for published events; draft-event
// images are restricted to privileged actors and users on the roster,
// directly or via a child.
func (g *Gate) authorizeEventImage(ctx context.Context, actor *model.Actor, key string) error {
	eventID := firstSegment(key[len(prefixEventImages):])
	if eventID == "" {
		return ErrInvalidKey
	}
	event, err := g.events.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidKey
		}
		return err
	}
	if !event.Draft {
		return nil
	}
	if actor == nil {
		return ErrUnauthorized
	}
	if actor.Privileged {
		return nil
	}
	registered, err := g.roster.HasRegistrationForUser(ctx, eventID, actor.ID)
	if err != nil {
		return err
	}
	if !registered {
		return ErrForbidden
	}
	return nil
}

// AuthorizeUpload decides whether the actor may create objects under the
// given prefix. Uploads always require authentication; non-privileged
// actors may only write their own profile images and their own (or their
// children's) completed waivers. Unknown prefixes are denied.
func (g *Gate) AuthorizeUpload(_ context.Context, actor *model.Actor, prefix string) error {
	if actor == nil {
		return ErrUnauthorized
	}
	switch {
	case strings.HasPrefix(prefix, prefixProfileImages):
		owner := firstSegment(prefix[len(prefixProfileImages):])
		if owner == "" {
			return ErrInvalidKey
		}
		if actor.Privileged || actor.ID == owner {
			return nil
		}
		return ErrForbidden

	case strings.HasPrefix(prefix, prefixCompletedWaivers):
		rest := prefix[len(prefixCompletedWaivers):]
		segments := strings.SplitN(rest, "/", 3)
		if len(segments) < 2 {
			return ErrInvalidKey
		}
		ref, ok := model.ParseParticipantRef(segments[1])
		if !ok {
			return ErrInvalidKey
		}
		if actor.Privileged || ref.OwnedBy(actor.ID) {
			return nil
		}
		return ErrForbidden

	case strings.HasPrefix(prefix, prefixEventImages), strings.HasPrefix(prefix, prefixWaiverTemplates):
		if actor.Privileged {
			return nil
		}
		return ErrForbidden

	default:
		return ErrInvalidKey
	}
}

func firstSegment(s string) string {
	if i := strings.IndexByte(s, '/'); i >= 0 {
		return s[:i]
	}
	return s
}
