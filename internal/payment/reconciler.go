package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/trailpost/event-registration/internal/model"
	"github.com/trailpost/event-registration/internal/repository"
)

// EventTypeCheckoutCompleted is the only notification type that commits a
// registration. Everything else is acknowledged and ignored.
const EventTypeCheckoutCompleted = "checkout.session.completed"

// Notification is the processor's webhook payload. The metadata inside it,
// not anything the client supplied, is the source of truth for what the
// payment authorizes.
type Notification struct {
	Type string `json:"type"`
	Data struct {
		SessionID string   `json:"session_id"`
		Metadata  Metadata `json:"metadata"`
	} `json:"data"`
}

// Engine is the slice of the registration service reconciliation needs.
type Engine interface {
	CommitConfirmed(ctx context.Context, eventID string, participants []model.ParticipantRef) ([]model.RegistrationEntry, error)
}

// Reconciler turns verified payment confirmations into idempotent roster
// commits. The processor delivers at least once, possibly out of order and
// possibly replayed, so a commit that finds the participants already
// registered is a success, not an error.
type Reconciler struct {
	engine Engine
	secret []byte
	log    *zap.Logger

	now func() time.Time
}

// NewReconciler constructs a Reconciler with the shared signing secret.
func NewReconciler(engine Engine, secret string, log *zap.Logger) *Reconciler {
	return &Reconciler{
		engine: engine,
		secret: []byte(secret),
		log:    log,
		now:    time.Now,
	}
}

// HandleNotification verifies and processes one webhook delivery.
//
// Any error other than nil tells the caller to respond with a failure so
// the processor's retry policy re-drives the callback; a silently dropped
// failed commit would strand a paid registration.
func (r *Reconciler) HandleNotification(ctx context.Context, payload []byte, sigHeader string) error {
	if err := VerifySignature(r.secret, payload, sigHeader, r.now()); err != nil {
		r.log.Warn("rejected webhook with bad signature", zap.Error(err))
		return err
	}

	var n Notification
	if err := json.Unmarshal(payload, &n); err != nil {
		return fmt.Errorf("decode notification: %w", err)
	}
	if n.Type != EventTypeCheckoutCompleted {
		r.log.Debug("ignoring notification", zap.String("type", n.Type))
		return nil
	}

	meta := n.Data.Metadata
	if meta.EventID == "" || len(meta.Participants) == 0 {
		return fmt.Errorf("notification metadata incomplete for session %s", n.Data.SessionID)
	}
	for _, ref := range meta.Participants {
		if !ref.Valid() {
			return fmt.Errorf("notification carries malformed participant for session %s", n.Data.SessionID)
		}
	}

	_, err := r.engine.CommitConfirmed(ctx, meta.EventID, meta.Participants)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyRegistered) {
			// Redelivery of an already-applied confirmation.
			r.log.Info("duplicate payment confirmation",
				zap.String("session_id", n.Data.SessionID),
				zap.String("event_id", meta.EventID))
			return nil
		}
		return fmt.Errorf("commit confirmed registration: %w", err)
	}

	r.log.Info("payment confirmed, roster committed",
		zap.String("session_id", n.Data.SessionID),
		zap.String("event_id", meta.EventID),
		zap.Int("participants", len(meta.Participants)))
	return nil
}
