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

// EventRepository handles persistence for events.
type EventRepository struct {
	db *pgxpool.Pool
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	return &EventRepository{db: db}
}

const eventColumns = `id, title, description, start_at, end_at, deadline,
	capacity, fee_cents, draft, required_waivers, created_at,
	(SELECT COUNT(*) FROM registrations r WHERE r.event_id = events.id)`

func scanEvent(row pgx.Row) (*model.Event, error) {
	var e model.Event
	err := row.Scan(&e.ID, &e.Title, &e.Description, &e.StartAt, &e.EndAt,
		&e.Deadline, &e.Capacity, &e.FeeCents, &e.Draft, &e.RequiredWaivers,
		&e.CreatedAt, &e.RegisteredCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan event: %w", err)
	}
	return &e, nil
}

// Create inserts a new event and returns it with a generated UUID.
func (r *EventRepository) Create(ctx context.Context, req model.CreateEventRequest) (*model.Event, error) {
	event := &model.Event{
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
	if event.RequiredWaivers == nil {
		event.RequiredWaivers = []string{}
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO events (id, title, description, start_at, end_at, deadline,
		                     capacity, fee_cents, draft, required_waivers, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		event.ID, event.Title, event.Description, event.StartAt, event.EndAt,
		event.Deadline, event.Capacity, event.FeeCents, event.Draft,
		event.RequiredWaivers, event.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	return event, nil
}

// GetByID returns a single event or ErrNotFound.
func (r *EventRepository) GetByID(ctx context.Context, id string) (*model.Event, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1`, id)
	return scanEvent(row)
}

// List returns all events ordered by start time ascending.
func (r *EventRepository) List(ctx context.Context) ([]model.Event, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+eventColumns+` FROM events ORDER BY start_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}
