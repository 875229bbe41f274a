package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/trailpost/event-registration/internal/model"
	"github.com/trailpost/event-registration/internal/payment"
	"github.com/trailpost/event-registration/internal/repository"
)

const webhookSecret = "whsec_test"

type stubEngine struct {
	commits  int
	seen     map[string]bool
	failWith error
}

func (s *stubEngine) CommitConfirmed(_ context.Context, eventID string, refs []model.ParticipantRef) ([]model.RegistrationEntry, error) {
	if s.failWith != nil {
		return nil, s.failWith
	}
	if s.seen == nil {
		s.seen = make(map[string]bool)
	}
	for _, ref := range refs {
		if s.seen[eventID+"/"+ref.String()] {
			return nil, repository.ErrAlreadyRegistered
		}
	}
	s.commits++
	entries := make([]model.RegistrationEntry, 0, len(refs))
	for _, ref := range refs {
		s.seen[eventID+"/"+ref.String()] = true
		entries = append(entries, model.RegistrationEntry{EventID: eventID, Participant: ref})
	}
	return entries, nil
}

func signedWebhookRequest(t *testing.T, body []byte, secret string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", bytes.NewReader(body))
	req.Header.Set(SignatureHeader, payment.SignPayload([]byte(secret), body, time.Now()))
	return req
}

func checkoutCompletedBody(t *testing.T) []byte {
	t.Helper()
	var n payment.Notification
	n.Type = payment.EventTypeCheckoutCompleted
	n.Data.SessionID = "cs_123"
	n.Data.Metadata = payment.Metadata{
		EventID:      "evt-1",
		PayerID:      "user-1",
		Participants: []model.ParticipantRef{model.Adult("user-1")},
	}
	body, err := json.Marshal(n)
	require.NoError(t, err)
	return body
}

func TestPaymentConfirmedAcknowledges(t *testing.T) {
	engine := &stubEngine{}
	h := NewWebhookHandler(payment.NewReconciler(engine, webhookSecret, zap.NewNop()), zap.NewNop())
	body := checkoutCompletedBody(t)

	rec := httptest.NewRecorder()
	h.PaymentConfirmed(rec, signedWebhookRequest(t, body, webhookSecret))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, engine.commits)

	// Redelivery of the same notification is acknowledged without a second commit.
	rec = httptest.NewRecorder()
	h.PaymentConfirmed(rec, signedWebhookRequest(t, body, webhookSecret))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, engine.commits)
}

func TestPaymentConfirmedRejectsBadSignature(t *testing.T) {
	engine := &stubEngine{}
	h := NewWebhookHandler(payment.NewReconciler(engine, webhookSecret, zap.NewNop()), zap.NewNop())
	body := checkoutCompletedBody(t)

	rec := httptest.NewRecorder()
	h.PaymentConfirmed(rec, signedWebhookRequest(t, body, "wrong-secret"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, engine.commits)

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", bytes.NewReader(body))
	h.PaymentConfirmed(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "missing signature header")
}

func TestPaymentConfirmedSignals5xxOnCommitFailure(t *testing.T) {
	engine := &stubEngine{failWith: repository.ErrCapacityExceeded}
	h := NewWebhookHandler(payment.NewReconciler(engine, webhookSecret, zap.NewNop()), zap.NewNop())

	rec := httptest.NewRecorder()
	h.PaymentConfirmed(rec, signedWebhookRequest(t, checkoutCompletedBody(t), webhookSecret))
	assert.Equal(t, http.StatusInternalServerError, rec.Code, "processor must redeliver")
}
