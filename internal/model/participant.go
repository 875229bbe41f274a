package model

import "fmt"

// ParticipantRef identifies a roster participant: either an adult (their own
// user id) or a child (the parent's user id plus the child sub-record id).
// Exactly one of the two shapes is populated; use the constructors.
type ParticipantRef struct {
	UserID   string `json:"user_id,omitempty"`
	ParentID string `json:"parent_id,omitempty"`
	ChildID  string `json:"child_id,omitempty"`
}

// Adult returns a participant reference for a registered adult.
func Adult(userID string) ParticipantRef {
	return ParticipantRef{UserID: userID}
}

// Child returns a participant reference for a child registered by a parent.
func Child(parentID, childID string) ParticipantRef {
	return ParticipantRef{ParentID: parentID, ChildID: childID}
}

// IsChild reports whether the reference points at a child sub-record.
func (p ParticipantRef) IsChild() bool {
	return p.ChildID != ""
}

// Valid reports whether the reference has exactly one well-formed shape.
func (p ParticipantRef) Valid() bool {
	if p.IsChild() {
		return p.UserID == "" && p.ParentID != ""
	}
	return p.UserID != "" && p.ParentID == ""
}

// Equal reports whether two references identify the same participant.
func (p ParticipantRef) Equal(o ParticipantRef) bool {
	return p.UserID == o.UserID && p.ParentID == o.ParentID && p.ChildID == o.ChildID
}

// OwnedBy reports whether the given user owns this participant: adults own
// themselves, parents own their children.
func (p ParticipantRef) OwnedBy(userID string) bool {
	if p.IsChild() {
		return p.ParentID == userID
	}
	return p.UserID == userID
}

// String renders a stable textual form, also used in artifact storage keys.
func (p ParticipantRef) String() string {
	if p.IsChild() {
		return fmt.Sprintf("c:%s:%s", p.ParentID, p.ChildID)
	}
	return fmt.Sprintf("u:%s", p.UserID)
}

// ParseParticipantRef is the inverse of String. It returns false for any
// input that does not round-trip to a valid reference.
func ParseParticipantRef(s string) (ParticipantRef, bool) {
	var ref ParticipantRef
	switch {
	case len(s) > 2 && s[:2] == "u:":
		ref = Adult(s[2:])
	case len(s) > 2 && s[:2] == "c:":
		rest := s[2:]
		for i := 0; i < len(rest); i++ {
			if rest[i] == ':' {
				ref = Child(rest[:i], rest[i+1:])
				break
			}
		}
	}
	return ref, ref.Valid()
}
