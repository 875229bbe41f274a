package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/trailpost/event-registration/internal/model"
)

// RosterRepository owns the per-event membership list. Registration commits
// and removals run inside a single transaction so capacity and duplicate
// checks are re-validated at commit time, not only when the request was
// first validated.
type RosterRepository struct {
	db *pgxpool.Pool
}

// NewRosterRepository constructs a RosterRepository.
func NewRosterRepository(db *pgxpool.Pool) *RosterRepository {
	return &RosterRepository{db: db}
}

// CommitRegistrations atomically adds every participant to the event roster.
//
// The event row is locked with SELECT ... FOR UPDATE so that two commits
// racing for the last capacity slots serialize: the second transaction
// blocks on the row lock, then re-reads the registration count the first
// one committed. Without the lock, both would read the same count and a
// capacity-C event could end up with C+1 entries.
//
// All-or-nothing: a duplicate or capacity failure for any participant rolls
// back the whole batch. Every entry starts with all required waivers pending,
// and the event is appended to each participant's registered-events list in
// the same transaction.
func (r *RosterRepository) CommitRegistrations(ctx context.Context, eventID string, refs []model.ParticipantRef) ([]model.RegistrationEntry, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var capacity int
	var requiredWaivers []string
	err = tx.QueryRow(ctx,
		`SELECT capacity, required_waivers FROM events WHERE id = $1 FOR UPDATE`,
		eventID,
	).Scan(&capacity, &requiredWaivers)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lock event row: %w", err)
	}

	var count int
	err = tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM registrations WHERE event_id = $1`, eventID,
	).Scan(&count)
	if err != nil {
		return nil, fmt.Errorf("count registrations: %w", err)
	}
	if capacity > 0 && count+len(refs) > capacity {
		err = ErrCapacityExceeded
		return nil, err
	}

	for _, ref := range refs {
		var dup bool
		dup, err = registered(ctx, tx, eventID, ref)
		if err != nil {
			return nil, err
		}
		if dup {
			err = ErrAlreadyRegistered
			return nil, err
		}
	}

	waivers := make(map[string]model.WaiverStatus, len(requiredWaivers))
	for _, id := range requiredWaivers {
		waivers[id] = model.WaiverPending
	}
	waiversJSON, err := json.Marshal(waivers)
	if err != nil {
		return nil, fmt.Errorf("marshal waiver statuses: %w", err)
	}

	now := time.Now().UTC()
	entries := make([]model.RegistrationEntry, 0, len(refs))
	for _, ref := range refs {
		entry := model.RegistrationEntry{
			ID:          uuid.New().String(),
			EventID:     eventID,
			Participant: ref,
			Waivers:     waivers,
			CreatedAt:   now,
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO registrations (id, event_id, user_id, parent_id, child_id, waivers, created_at)
			 VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), $6, $7)`,
			entry.ID, eventID, ref.UserID, ref.ParentID, ref.ChildID, waiversJSON, now,
		)
		if err != nil {
			return nil, fmt.Errorf("insert registration: %w", err)
		}

		if err = appendRegisteredEvent(ctx, tx, ref, eventID); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return entries, nil
}

// RemoveParticipant deletes a participant's roster entry, pulls the event
// from their registered-events list, and deletes every waiver document
// scoped to (event, participant), all in one transaction, so a failure in
// any step leaves no partial removal. Removing a non-member is a no-op
// success so cascade cleanup never has to pre-check membership.
func (r *RosterRepository) RemoveParticipant(ctx context.Context, eventID string, ref model.ParticipantRef) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	_, err = tx.Exec(ctx,
		`DELETE FROM registrations WHERE event_id = $1 AND `+participantClause(ref, 2),
		participantArgs(eventID, ref)...,
	)
	if err != nil {
		return fmt.Errorf("delete registration: %w", err)
	}

	if err = removeRegisteredEvent(ctx, tx, ref, eventID); err != nil {
		return err
	}

	_, err = tx.Exec(ctx,
		`DELETE FROM waivers WHERE event_id = $1 AND `+participantClause(ref, 2),
		participantArgs(eventID, ref)...,
	)
	if err != nil {
		return fmt.Errorf("delete waivers: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// IsRegistered reports whether the participant has a roster entry.
func (r *RosterRepository) IsRegistered(ctx context.Context, eventID string, ref model.ParticipantRef) (bool, error) {
	return registered(ctx, r.db, eventID, ref)
}

// HasRegistrationForUser reports whether the user appears on the roster
// directly or through any of their children.
func (r *RosterRepository) HasRegistrationForUser(ctx context.Context, eventID, userID string) (bool, error) {
	var found bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM registrations
		   WHERE event_id = $1 AND (user_id = $2 OR parent_id = $2))`,
		eventID, userID,
	).Scan(&found)
	if err != nil {
		return false, fmt.Errorf("check user registration: %w", err)
	}
	return found, nil
}

// ListByEvent returns all roster entries for an event, oldest first.
func (r *RosterRepository) ListByEvent(ctx context.Context, eventID string) ([]model.RegistrationEntry, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, event_id, COALESCE(user_id, ''), COALESCE(parent_id, ''),
		        COALESCE(child_id, ''), waivers, created_at
		 FROM registrations
		 WHERE event_id = $1
		 ORDER BY created_at ASC`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("list roster: %w", err)
	}
	defer rows.Close()

	var entries []model.RegistrationEntry
	for rows.Next() {
		var entry model.RegistrationEntry
		var waiversJSON []byte
		if err := rows.Scan(&entry.ID, &entry.EventID, &entry.Participant.UserID,
			&entry.Participant.ParentID, &entry.Participant.ChildID,
			&waiversJSON, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan roster entry: %w", err)
		}
		if err := json.Unmarshal(waiversJSON, &entry.Waivers); err != nil {
			return nil, fmt.Errorf("unmarshal waiver statuses: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func registered(ctx context.Context, q querier, eventID string, ref model.ParticipantRef) (bool, error) {
	var found bool
	err := q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM registrations WHERE event_id = $1 AND `+participantClause(ref, 2)+`)`,
		participantArgs(eventID, ref)...,
	).Scan(&found)
	if err != nil {
		return false, fmt.Errorf("check registration: %w", err)
	}
	return found, nil
}

// participantClause builds the WHERE fragment selecting one participant,
// with placeholders starting at index start.
func participantClause(ref model.ParticipantRef, start int) string {
	if ref.IsChild() {
		return fmt.Sprintf("parent_id = $%d AND child_id = $%d", start, start+1)
	}
	return fmt.Sprintf("user_id = $%d", start)
}

func participantArgs(eventID string, ref model.ParticipantRef) []any {
	if ref.IsChild() {
		return []any{eventID, ref.ParentID, ref.ChildID}
	}
	return []any{eventID, ref.UserID}
}

func appendRegisteredEvent(ctx context.Context, tx pgx.Tx, ref model.ParticipantRef, eventID string) error {
	var err error
	if ref.IsChild() {
		_, err = tx.Exec(ctx,
			`UPDATE children SET registered_events = array_append(registered_events, $1)
			 WHERE child_id = $2 AND NOT ($1 = ANY(registered_events))`,
			eventID, ref.ChildID,
		)
	} else {
		_, err = tx.Exec(ctx,
			`UPDATE profiles SET registered_events = array_append(registered_events, $1)
			 WHERE user_id = $2 AND NOT ($1 = ANY(registered_events))`,
			eventID, ref.UserID,
		)
	}
	if err != nil {
		return fmt.Errorf("append registered event: %w", err)
	}
	return nil
}

func removeRegisteredEvent(ctx context.Context, tx pgx.Tx, ref model.ParticipantRef, eventID string) error {
	var err error
	if ref.IsChild() {
		_, err = tx.Exec(ctx,
			`UPDATE children SET registered_events = array_remove(registered_events, $1)
			 WHERE child_id = $2`,
			eventID, ref.ChildID,
		)
	} else {
		_, err = tx.Exec(ctx,
			`UPDATE profiles SET registered_events = array_remove(registered_events, $1)
			 WHERE user_id = $2`,
			eventID, ref.UserID,
		)
	}
	if err != nil {
		return fmt.Errorf("remove registered event: %w", err)
	}
	return nil
}
