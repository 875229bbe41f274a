package model

import "time"

// CreateEventRequest is the payload for creating a new event.
type CreateEventRequest struct {
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	StartAt         time.Time `json:"start_at"`
	EndAt           time.Time `json:"end_at"`
	Deadline        time.Time `json:"deadline"`
	Capacity        int       `json:"capacity"`
	FeeCents        int64     `json:"fee_cents"`
	Draft           bool      `json:"draft"`
	RequiredWaivers []string  `json:"required_waivers"`
}

// JoinRequest is the payload for registering participants onto an event.
// The acting user may register themselves and any of their children in one
// call; the whole batch succeeds or fails together.
type JoinRequest struct {
	Participants []ParticipantRef `json:"participants"`
}

// JoinResponse reports a synchronous (free-event) registration.
type JoinResponse struct {
	Entries []RegistrationEntry `json:"entries"`
}

// PaymentRequiredResponse reports that the roster was not touched and the
// caller must complete checkout before the registration commits.
type PaymentRequiredResponse struct {
	PaymentRequired bool             `json:"payment_required"`
	AmountCents     int64            `json:"amount_cents"`
	Participants    []ParticipantRef `json:"participants"`
	CheckoutURL     string           `json:"checkout_url"`
}

// RemoveParticipantRequest identifies the roster entry an admin removes.
type RemoveParticipantRequest struct {
	Participant ParticipantRef `json:"participant"`
}

// CompleteWaiverRequest records a finished signing flow for one template.
type CompleteWaiverRequest struct {
	Participant ParticipantRef `json:"participant"`
	TemplateID  string         `json:"template_id"`
	StorageKey  string         `json:"storage_key"`
}

// PresignResponse carries a short-lived retrieval link for a stored artifact.
type PresignResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
