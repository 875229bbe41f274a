package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/trailpost/event-registration/internal/model"
	"github.com/trailpost/event-registration/internal/repository"
)

// fakeStores implements all four store interfaces over in-memory maps with
// the same transactional semantics as the Postgres repositories: the commit
// re-validates capacity and duplicates under one lock, and removal cascades
// roster entry, profile back-reference, and waivers together.
type fakeStores struct {
	mu       sync.Mutex
	events   map[string]*model.Event
	roster   map[string][]model.RegistrationEntry
	profiles map[string]*model.Profile
	children map[string]*model.ChildProfile
	waivers  map[string][]model.WaiverDoc
}

func newFakeStores() *fakeStores {
	return &fakeStores{
		events:   make(map[string]*model.Event),
		roster:   make(map[string][]model.RegistrationEntry),
		profiles: make(map[string]*model.Profile),
		children: make(map[string]*model.ChildProfile),
		waivers:  make(map[string][]model.WaiverDoc),
	}
}

func childKey(parentID, childID string) string { return parentID + "/" + childID }

// ─── EventStore ───────────────────────────────────────────────────────────────

func (f *fakeStores) Create(_ context.Context, req model.CreateEventRequest) (*model.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e := &model.Event{
		ID:              uuid.New().String(),
		Title:           req.Title,
		Description:     req.Description,
		StartAt:         req.StartAt,
		EndAt:           req.EndAt,
		Deadline:        req.Deadline,
		Capacity:        req.Capacity,
		FeeCents:        req.FeeCents,
		Draft:           req.Draft,
		RequiredWaivers: req.RequiredWaivers,
		CreatedAt:       time.Now().UTC(),
	}
	f.events[e.ID] = e
	return e, nil
}

func (f *fakeStores) GetByID(_ context.Context, id string) (*model.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.events[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *e
	out.RegisteredCount = len(f.roster[id])
	return &out, nil
}

func (f *fakeStores) List(_ context.Context) ([]model.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var events []model.Event
	for id, e := range f.events {
		out := *e
		out.RegisteredCount = len(f.roster[id])
		events = append(events, out)
	}
	return events, nil
}

// ─── RosterStore ──────────────────────────────────────────────────────────────

func (f *fakeStores) CommitRegistrations(_ context.Context, eventID string, refs []model.ParticipantRef) ([]model.RegistrationEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	event, ok := f.events[eventID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	current := f.roster[eventID]
	if event.Capacity > 0 && len(current)+len(refs) > event.Capacity {
		return nil, repository.ErrCapacityExceeded
	}
	for _, ref := range refs {
		for _, entry := range current {
			if entry.Participant.Equal(ref) {
				return nil, repository.ErrAlreadyRegistered
			}
		}
	}

	waivers := make(map[string]model.WaiverStatus, len(event.RequiredWaivers))
	for _, id := range event.RequiredWaivers {
		waivers[id] = model.WaiverPending
	}
	entries := make([]model.RegistrationEntry, 0, len(refs))
	for _, ref := range refs {
		entry := model.RegistrationEntry{
			ID:          uuid.New().String(),
			EventID:     eventID,
			Participant: ref,
			Waivers:     waivers,
			CreatedAt:   time.Now().UTC(),
		}
		f.roster[eventID] = append(f.roster[eventID], entry)
		f.appendRegisteredEventLocked(ref, eventID)
		entries = append(entries, entry)
	}
	return entries, nil
}

func (f *fakeStores) RemoveParticipant(_ context.Context, eventID string, ref model.ParticipantRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries := f.roster[eventID]
	kept := entries[:0]
	for _, entry := range entries {
		if !entry.Participant.Equal(ref) {
			kept = append(kept, entry)
		}
	}
	f.roster[eventID] = kept

	f.removeRegisteredEventLocked(ref, eventID)

	docs := f.waivers[eventID]
	keptDocs := docs[:0]
	for _, d := range docs {
		if !d.Participant.Equal(ref) {
			keptDocs = append(keptDocs, d)
		}
	}
	f.waivers[eventID] = keptDocs
	return nil
}

func (f *fakeStores) IsRegistered(_ context.Context, eventID string, ref model.ParticipantRef) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, entry := range f.roster[eventID] {
		if entry.Participant.Equal(ref) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStores) HasRegistrationForUser(_ context.Context, eventID, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, entry := range f.roster[eventID] {
		if entry.Participant.OwnedBy(userID) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStores) ListByEvent(_ context.Context, eventID string) ([]model.RegistrationEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.RegistrationEntry(nil), f.roster[eventID]...), nil
}

func (f *fakeStores) appendRegisteredEventLocked(ref model.ParticipantRef, eventID string) {
	if ref.IsChild() {
		if c, ok := f.children[childKey(ref.ParentID, ref.ChildID)]; ok {
			c.RegisteredEvents = append(c.RegisteredEvents, eventID)
		}
		return
	}
	if p, ok := f.profiles[ref.UserID]; ok {
		p.RegisteredEvents = append(p.RegisteredEvents, eventID)
	}
}

func (f *fakeStores) removeRegisteredEventLocked(ref model.ParticipantRef, eventID string) {
	remove := func(list []string) []string {
		kept := list[:0]
		for _, id := range list {
			if id != eventID {
				kept = append(kept, id)
			}
		}
		return kept
	}
	if ref.IsChild() {
		if c, ok := f.children[childKey(ref.ParentID, ref.ChildID)]; ok {
			c.RegisteredEvents = remove(c.RegisteredEvents)
		}
		return
	}
	if p, ok := f.profiles[ref.UserID]; ok {
		p.RegisteredEvents = remove(p.RegisteredEvents)
	}
}

// ─── ProfileStore ─────────────────────────────────────────────────────────────

func (f *fakeStores) FindByExternalID(_ context.Context, userID string) (*model.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return p, nil
}

func (f *fakeStores) FindChild(_ context.Context, parentID, childID string) (*model.ChildProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.children[childKey(parentID, childID)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return c, nil
}

// ─── WaiverStore ──────────────────────────────────────────────────────────────

func (f *fakeStores) CreateCompleted(_ context.Context, eventID string, ref model.ParticipantRef, templateID, storageKey string) (*model.WaiverDoc, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	event, ok := f.events[eventID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	required := false
	for _, id := range event.RequiredWaivers {
		if id == templateID {
			required = true
		}
	}
	if !required {
		return nil, repository.ErrUnknownTemplate
	}

	registered := false
	for i, entry := range f.roster[eventID] {
		if entry.Participant.Equal(ref) {
			registered = true
			updated := make(map[string]model.WaiverStatus, len(entry.Waivers))
			for k, v := range entry.Waivers {
				updated[k] = v
			}
			updated[templateID] = model.WaiverSigned
			f.roster[eventID][i].Waivers = updated
		}
	}
	if !registered {
		return nil, repository.ErrNotFound
	}

	doc := model.WaiverDoc{
		ID:          uuid.New().String(),
		EventID:     eventID,
		Participant: ref,
		TemplateID:  templateID,
		Kind:        model.WaiverCompleted,
		StorageKey:  storageKey,
		UploadedAt:  time.Now().UTC(),
	}
	f.waivers[eventID] = append(f.waivers[eventID], doc)
	return &doc, nil
}

func (f *fakeStores) DeleteAll(_ context.Context, eventID string, ref model.ParticipantRef) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	docs := f.waivers[eventID]
	kept := docs[:0]
	deleted := 0
	for _, d := range docs {
		if d.Participant.Equal(ref) {
			deleted++
		} else {
			kept = append(kept, d)
		}
	}
	f.waivers[eventID] = kept
	return deleted, nil
}

func (f *fakeStores) FindCompleted(_ context.Context, eventID string, ref model.ParticipantRef) ([]model.WaiverDoc, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var docs []model.WaiverDoc
	for _, d := range f.waivers[eventID] {
		if d.Participant.Equal(ref) && d.Kind == model.WaiverCompleted {
			docs = append(docs, d)
		}
	}
	return docs, nil
}

// ─── Test data helpers ────────────────────────────────────────────────────────

func completeProfile(userID string) *model.Profile {
	decided := false
	return &model.Profile{
		UserID:   userID,
		Name:     "Jordan Doe",
		Gender:   "nonbinary",
		Birthday: time.Date(1990, 4, 2, 0, 0, 0, 0, time.UTC),
		Address:  model.Address{Street: "1 Main St", City: "Springfield", State: "OR", Zip: "97477"},
		Medical:  model.MedicalInfo{PhotoRelease: &decided},
		EmergencyContacts: []model.EmergencyContact{
			{Name: "Sam Doe", Phone: "555-0100", Relationship: "sibling"},
		},
	}
}

func completeChild(parentID, childID string) *model.ChildProfile {
	decided := true
	return &model.ChildProfile{
		ChildID:  childID,
		ParentID: parentID,
		Name:     "Riley Doe",
		Gender:   "female",
		Birthday: time.Date(2015, 9, 12, 0, 0, 0, 0, time.UTC),
		Address:  model.Address{Street: "1 Main St", City: "Springfield", State: "OR", Zip: "97477"},
		Medical:  model.MedicalInfo{Allergies: "peanuts", PhotoRelease: &decided},
		EmergencyContacts: []model.EmergencyContact{
			{Name: "Jordan Doe", Phone: "555-0100", Relationship: "parent"},
		},
	}
}
