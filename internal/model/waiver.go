package model

import "time"

// WaiverKind distinguishes reusable templates from signed instances.
type WaiverKind string

const (
	// WaiverTemplate is a blank liability document an event can require.
	WaiverTemplate WaiverKind = "template"
	// WaiverCompleted is a signed instance scoped to one event and participant.
	WaiverCompleted WaiverKind = "completed"
)

// WaiverDoc is a stored waiver document. Completed waivers are created when a
// participant finishes the signing flow for one template on one event, and
// deleted only as part of that participant's removal from the event.
type WaiverDoc struct {
	ID          string         `json:"id"`
	EventID     string         `json:"event_id"`
	Participant ParticipantRef `json:"participant"`
	TemplateID  string         `json:"template_id"`
	Kind        WaiverKind     `json:"kind"`
	StorageKey  string         `json:"storage_key"`
	UploadedAt  time.Time      `json:"uploaded_at"`
}
