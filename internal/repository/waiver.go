package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/trailpost/event-registration/internal/model"
)

// WaiverRepository handles persistence for signed waiver documents.
type WaiverRepository struct {
	db *pgxpool.Pool
}

// NewWaiverRepository constructs a WaiverRepository.
func NewWaiverRepository(db *pgxpool.Pool) *WaiverRepository {
	return &WaiverRepository{db: db}
}

// CreateCompleted records a finished signing flow: it inserts the completed
// waiver document and flips the roster entry's status for that template to
// signed, in one transaction. The participant must be registered and the
// template must be one the event requires.
func (r *WaiverRepository) CreateCompleted(ctx context.Context, eventID string, ref model.ParticipantRef, templateID, storageKey string) (*model.WaiverDoc, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var requiredWaivers []string
	err = tx.QueryRow(ctx,
		`SELECT required_waivers FROM events WHERE id = $1`, eventID,
	).Scan(&requiredWaivers)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get event waivers: %w", err)
	}
	required := false
	for _, id := range requiredWaivers {
		if id == templateID {
			required = true
			break
		}
	}
	if !required {
		err = ErrUnknownTemplate
		return nil, err
	}

	args := []any{templateID, string(model.WaiverSigned), eventID}
	if ref.IsChild() {
		args = append(args, ref.ParentID, ref.ChildID)
	} else {
		args = append(args, ref.UserID)
	}
	tag, err := tx.Exec(ctx,
		`UPDATE registrations
		 SET waivers = jsonb_set(waivers, ARRAY[$1], to_jsonb($2::text))
		 WHERE event_id = $3 AND `+participantClause(ref, 4),
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("mark waiver signed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		err = ErrNotFound
		return nil, err
	}

	doc := &model.WaiverDoc{
		ID:          uuid.New().String(),
		EventID:     eventID,
		Participant: ref,
		TemplateID:  templateID,
		Kind:        model.WaiverCompleted,
		StorageKey:  storageKey,
		UploadedAt:  time.Now().UTC(),
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO waivers (id, event_id, user_id, parent_id, child_id, template_id, kind, storage_key, uploaded_at)
		 VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), $6, $7, $8, $9)`,
		doc.ID, eventID, ref.UserID, ref.ParentID, ref.ChildID,
		doc.TemplateID, doc.Kind, doc.StorageKey, doc.UploadedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert waiver: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return doc, nil
}

// DeleteAll removes every waiver document scoped to (event, participant) and
// returns how many were deleted. Zero is a valid result.
func (r *WaiverRepository) DeleteAll(ctx context.Context, eventID string, ref model.ParticipantRef) (int, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM waivers WHERE event_id = $1 AND `+participantClause(ref, 2),
		participantArgs(eventID, ref)...,
	)
	if err != nil {
		return 0, fmt.Errorf("delete waivers: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// FindCompleted returns the participant's signed waivers for an event.
func (r *WaiverRepository) FindCompleted(ctx context.Context, eventID string, ref model.ParticipantRef) ([]model.WaiverDoc, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, event_id, COALESCE(user_id, ''), COALESCE(parent_id, ''),
		        COALESCE(child_id, ''), template_id, kind, storage_key, uploaded_at
		 FROM waivers
		 WHERE event_id = $1 AND kind = '`+string(model.WaiverCompleted)+`' AND `+participantClause(ref, 2)+`
		 ORDER BY uploaded_at ASC`,
		participantArgs(eventID, ref)...,
	)
	if err != nil {
		return nil, fmt.Errorf("find waivers: %w", err)
	}
	defer rows.Close()

	var docs []model.WaiverDoc
	for rows.Next() {
		var d model.WaiverDoc
		if err := rows.Scan(&d.ID, &d.EventID, &d.Participant.UserID,
			&d.Participant.ParentID, &d.Participant.ChildID,
			&d.TemplateID, &d.Kind, &d.StorageKey, &d.UploadedAt); err != nil {
			return nil, fmt.Errorf("scan waiver: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}
