package handler

import (
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/trailpost/event-registration/internal/payment"
)

// SignatureHeader carries the processor's notification signature.
const SignatureHeader = "X-Payment-Signature"

// WebhookHandler receives payment-processor callbacks.
type WebhookHandler struct {
	reconciler *payment.Reconciler
	log        *zap.Logger
}

// NewWebhookHandler constructs a WebhookHandler.
func NewWebhookHandler(reconciler *payment.Reconciler, log *zap.Logger) *WebhookHandler {
	return &WebhookHandler{reconciler: reconciler, log: log}
}

// PaymentConfirmed handles POST /webhooks/payment.
//
// Status codes drive the processor's redelivery: 2xx acknowledges (including
// duplicate deliveries), 400 rejects bad payloads and signatures for good,
// and 5xx asks the processor to retry a commit that failed transiently.
func (h *WebhookHandler) PaymentConfirmed(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}

	err = h.reconciler.HandleNotification(r.Context(), body, r.Header.Get(SignatureHeader))
	if err != nil {
		if errors.Is(err, payment.ErrInvalidSignature) {
			writeError(w, http.StatusBadRequest, "invalid signature")
			return
		}
		h.log.Error("payment reconciliation failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "reconciliation failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "received"})
}
