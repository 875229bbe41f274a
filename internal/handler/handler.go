// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the registration engine.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/trailpost/event-registration/internal/model"
	"github.com/trailpost/event-registration/internal/payment"
	"github.com/trailpost/event-registration/internal/repository"
	"github.com/trailpost/event-registration/internal/service"
)

// EventHandler holds the HTTP handlers for event and registration routes.
type EventHandler struct {
	svc      *service.RegistrationService
	checkout *payment.Initiator
	log      *zap.Logger
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(svc *service.RegistrationService, checkout *payment.Initiator, log *zap.Logger) *EventHandler {
	return &EventHandler{svc: svc, checkout: checkout, log: log}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// writeDomainError maps engine errors onto the API's status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, repository.ErrAlreadyRegistered):
		writeError(w, http.StatusConflict, "participant already registered for this event")
	case errors.Is(err, repository.ErrCapacityExceeded):
		writeError(w, http.StatusBadRequest, "event capacity exceeded")
	case errors.Is(err, repository.ErrUnknownTemplate):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrDeadlinePassed):
		writeError(w, http.StatusBadRequest, "registration deadline has passed")
	case errors.Is(err, service.ErrProfileIncomplete):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, "operation not permitted")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// requireActor returns the authenticated actor or writes a 401.
func requireActor(w http.ResponseWriter, r *http.Request) (model.Actor, bool) {
	actor := ActorFrom(r.Context())
	if actor == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return model.Actor{}, false
	}
	return *actor, true
}

// actorOrAnonymous returns the actor, or a zero Actor for anonymous calls.
func actorOrAnonymous(r *http.Request) model.Actor {
	if actor := ActorFrom(r.Context()); actor != nil {
		return *actor
	}
	return model.Actor{}
}

// ─── Handlers ─────────────────────────────────────────────────────────────────

// CreateEvent handles POST /events (privileged only).
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req model.CreateEventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	event, err := h.svc.CreateEvent(r.Context(), actor, req)
	if err != nil {
		if errors.Is(err, service.ErrForbidden) || isDomainError(err) {
			writeDomainError(w, err)
		} else {
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

// ListEvents handles GET /events.
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.svc.ListEvents(r.Context(), actorOrAnonymous(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}
	if events == nil {
		events = []model.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

// GetEvent handles GET /events/{id}.
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.svc.GetEvent(r.Context(), actorOrAnonymous(r), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// Join handles POST /events/{id}/join. Free events commit synchronously and
// return 201; paid events return the checkout session to complete instead,
// leaving the roster untouched.
func (h *EventHandler) Join(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req model.JoinRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	res, err := h.svc.JoinEvent(r.Context(), actor, chi.URLParam(r, "id"), req.Participants)
	if err != nil {
		if isDomainError(err) {
			writeDomainError(w, err)
		} else {
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	if !res.PaymentRequired {
		writeJSON(w, http.StatusCreated, model.JoinResponse{Entries: res.Entries})
		return
	}

	sess, err := h.checkout.InitiateCheckout(r.Context(), res.Event, res.Participants, actor.ID)
	if err != nil {
		h.log.Error("checkout initiation failed", zap.Error(err), zap.String("event_id", res.Event.ID))
		writeError(w, http.StatusBadGateway, "payment processor unavailable")
		return
	}
	writeJSON(w, http.StatusOK, model.PaymentRequiredResponse{
		PaymentRequired: true,
		AmountCents:     res.AmountCents,
		Participants:    res.Participants,
		CheckoutURL:     sess.URL,
	})
}

// RemoveParticipant handles DELETE /events/{id}/participants (privileged
// only). Removal cascades waivers and profile back-references atomically.
func (h *EventHandler) RemoveParticipant(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req model.RemoveParticipantRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := h.svc.RemoveParticipant(r.Context(), actor, chi.URLParam(r, "id"), req.Participant); err != nil {
		if isDomainError(err) {
			writeDomainError(w, err)
		} else {
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

// ListRoster handles GET /events/{id}/roster.
func (h *EventHandler) ListRoster(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	entries, err := h.svc.ListRoster(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if entries == nil {
		entries = []model.RegistrationEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// CompleteWaiver handles POST /events/{id}/waivers.
func (h *EventHandler) CompleteWaiver(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req model.CompleteWaiverRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	doc, err := h.svc.CompleteWaiver(r.Context(), actor, chi.URLParam(r, "id"), req)
	if err != nil {
		if isDomainError(err) {
			writeDomainError(w, err)
		} else {
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

func isDomainError(err error) bool {
	return errors.Is(err, repository.ErrNotFound) ||
		errors.Is(err, repository.ErrAlreadyRegistered) ||
		errors.Is(err, repository.ErrCapacityExceeded) ||
		errors.Is(err, repository.ErrUnknownTemplate) ||
		errors.Is(err, service.ErrDeadlinePassed) ||
		errors.Is(err, service.ErrProfileIncomplete) ||
		errors.Is(err, service.ErrForbidden)
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health.
func HealthCheck(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
