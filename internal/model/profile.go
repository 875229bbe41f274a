package model

import (
	"strings"
	"time"
)

// Address is a participant's postal address. All fields are required for a
// profile to count as complete.
type Address struct {
	Street string `json:"street"`
	City   string `json:"city"`
	State  string `json:"state"`
	Zip    string `json:"zip"`
}

func (a Address) complete() bool {
	return a.Street != "" && a.City != "" && a.State != "" && a.Zip != ""
}

// EmergencyContact is a person to reach when a participant needs help.
type EmergencyContact struct {
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Relationship string `json:"relationship"`
}

func (c EmergencyContact) complete() bool {
	return c.Name != "" && c.Phone != "" && c.Relationship != ""
}

// MedicalInfo holds the health block required before registration.
// PhotoRelease is a pointer because "not yet decided" differs from "declined";
// an undecided release keeps the profile incomplete.
type MedicalInfo struct {
	Allergies    string `json:"allergies"`
	Medications  string `json:"medications"`
	Conditions   string `json:"conditions"`
	PhotoRelease *bool  `json:"photo_release"`
}

func (m MedicalInfo) complete() bool {
	return m.PhotoRelease != nil
}

// Profile is an adult participant's identity record, keyed by the external
// identity provider's user id.
type Profile struct {
	UserID            string             `json:"user_id"`
	Name              string             `json:"name"`
	Gender            string             `json:"gender"`
	Birthday          time.Time          `json:"birthday"`
	Address           Address            `json:"address"`
	Medical           MedicalInfo        `json:"medical"`
	EmergencyContacts []EmergencyContact `json:"emergency_contacts"`
	RegisteredEvents  []string           `json:"registered_events"`
}

// Complete reports whether the profile satisfies every field registration
// requires: name, gender, birthday, full address, decided medical block, and
// at least one fully-specified emergency contact.
func (p *Profile) Complete() bool {
	return profileFieldsComplete(p.Name, p.Gender, p.Birthday, p.Address, p.Medical, p.EmergencyContacts)
}

// ChildProfile is a child sub-record owned by a parent profile.
type ChildProfile struct {
	ChildID           string             `json:"child_id"`
	ParentID          string             `json:"parent_id"`
	Name              string             `json:"name"`
	Gender            string             `json:"gender"`
	Birthday          time.Time          `json:"birthday"`
	Address           Address            `json:"address"`
	Medical           MedicalInfo        `json:"medical"`
	EmergencyContacts []EmergencyContact `json:"emergency_contacts"`
	RegisteredEvents  []string           `json:"registered_events"`
}

// Complete applies the same completeness rule as adult profiles.
func (c *ChildProfile) Complete() bool {
	return profileFieldsComplete(c.Name, c.Gender, c.Birthday, c.Address, c.Medical, c.EmergencyContacts)
}

func profileFieldsComplete(name, gender string, birthday time.Time, addr Address, med MedicalInfo, contacts []EmergencyContact) bool {
	if strings.TrimSpace(name) == "" || gender == "" || birthday.IsZero() {
		return false
	}
	if !addr.complete() || !med.complete() {
		return false
	}
	for _, c := range contacts {
		if c.complete() {
			return true
		}
	}
	return false
}
