// Package model defines the core domain types for the event registration
// system: events, roster entries, participant references, profiles, and
// signed waiver documents.
package model

import "time"

// WaiverStatus tracks a single required waiver for one roster entry.
type WaiverStatus string

const (
	// WaiverPending means the participant has not yet signed this template.
	WaiverPending WaiverStatus = "pending"
	// WaiverSigned means a completed waiver document exists.
	WaiverSigned WaiverStatus = "signed"
)

// Event represents a scheduled event participants can register for.
// Capacity 0 means unlimited; FeeCents 0 means free.
type Event struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	StartAt         time.Time `json:"start_at"`
	EndAt           time.Time `json:"end_at"`
	Deadline        time.Time `json:"deadline"`
	Capacity        int       `json:"capacity"`
	FeeCents        int64     `json:"fee_cents"`
	Draft           bool      `json:"draft"`
	RequiredWaivers []string  `json:"required_waivers"`
	RegisteredCount int       `json:"registered_count"`
	CreatedAt       time.Time `json:"created_at"`
}

// Free reports whether registration requires no payment.
func (e *Event) Free() bool {
	return e.FeeCents == 0
}

// Remaining returns the number of open slots, or -1 for unlimited capacity.
func (e *Event) Remaining() int {
	if e.Capacity == 0 {
		return -1
	}
	return e.Capacity - e.RegisteredCount
}

// DeadlinePassed reports whether registration closed before the given time.
func (e *Event) DeadlinePassed(now time.Time) bool {
	return now.After(e.Deadline)
}

// RegistrationEntry is one participant's membership on an event roster,
// carrying the signing state of every waiver the event requires. Entries are
// created and removed only through the registration engine.
type RegistrationEntry struct {
	ID          string                  `json:"id"`
	EventID     string                  `json:"event_id"`
	Participant ParticipantRef          `json:"participant"`
	Waivers     map[string]WaiverStatus `json:"waivers"`
	CreatedAt   time.Time               `json:"created_at"`
}

// PendingWaivers returns the template ids still awaiting a signature.
func (r *RegistrationEntry) PendingWaivers() []string {
	var pending []string
	for id, st := range r.Waivers {
		if st == WaiverPending {
			pending = append(pending, id)
		}
	}
	return pending
}

// Actor is the request-scoped identity every core operation receives.
// It replaces ambient session state: handlers resolve it once from the
// bearer token and pass it down explicitly.
type Actor struct {
	ID         string
	Privileged bool
}
