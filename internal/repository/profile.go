package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/trailpost/event-registration/internal/model"
)

// ProfileRepository reads participant identity records. Profiles are written
// by the account-management surface, which is outside this service; the
// registration engine only needs lookups and completeness checks.
type ProfileRepository struct {
	db *pgxpool.Pool
}

// NewProfileRepository constructs a ProfileRepository.
func NewProfileRepository(db *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// FindByExternalID returns the adult profile for an identity-provider user
// id, or ErrNotFound.
func (r *ProfileRepository) FindByExternalID(ctx context.Context, userID string) (*model.Profile, error) {
	var p model.Profile
	var addr, med, contacts []byte
	err := r.db.QueryRow(ctx,
		`SELECT user_id, name, gender, COALESCE(birthday, '0001-01-01'),
		        address, medical, emergency_contacts, registered_events
		 FROM profiles WHERE user_id = $1`,
		userID,
	).Scan(&p.UserID, &p.Name, &p.Gender, &p.Birthday, &addr, &med, &contacts, &p.RegisteredEvents)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	if err := unmarshalProfileBlocks(addr, med, contacts, &p.Address, &p.Medical, &p.EmergencyContacts); err != nil {
		return nil, err
	}
	return &p, nil
}

// FindChild returns a child sub-record, verifying it belongs to the given
// parent. A child id under the wrong parent is ErrNotFound, not a different
// error, so callers cannot probe for other families' children.
func (r *ProfileRepository) FindChild(ctx context.Context, parentID, childID string) (*model.ChildProfile, error) {
	var c model.ChildProfile
	var addr, med, contacts []byte
	err := r.db.QueryRow(ctx,
		`SELECT child_id, parent_id, name, gender, COALESCE(birthday, '0001-01-01'),
		        address, medical, emergency_contacts, registered_events
		 FROM children WHERE child_id = $1 AND parent_id = $2`,
		childID, parentID,
	).Scan(&c.ChildID, &c.ParentID, &c.Name, &c.Gender, &c.Birthday, &addr, &med, &contacts, &c.RegisteredEvents)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get child profile: %w", err)
	}
	if err := unmarshalProfileBlocks(addr, med, contacts, &c.Address, &c.Medical, &c.EmergencyContacts); err != nil {
		return nil, err
	}
	return &c, nil
}

func unmarshalProfileBlocks(addr, med, contacts []byte, a *model.Address, m *model.MedicalInfo, e *[]model.EmergencyContact) error {
	if err := json.Unmarshal(addr, a); err != nil {
		return fmt.Errorf("unmarshal address: %w", err)
	}
	if err := json.Unmarshal(med, m); err != nil {
		return fmt.Errorf("unmarshal medical info: %w", err)
	}
	if err := json.Unmarshal(contacts, e); err != nil {
		return fmt.Errorf("unmarshal emergency contacts: %w", err)
	}
	return nil
}
