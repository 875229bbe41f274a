// Package payment bridges the external payment processor and the
// registration engine: checkout initiation packages the intent as session
// metadata, and reconciliation turns a verified completion notification
// into an idempotent roster commit.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/trailpost/event-registration/internal/model"
)

// Metadata is the checkout intent embedded in the external session. It is
// the only durable description of what a confirmed payment authorizes; no
// local pending record exists.
type Metadata struct {
	EventID      string                 `json:"event_id"`
	PayerID      string                 `json:"payer_id"`
	Participants []model.ParticipantRef `json:"participants"`
}

// CheckoutRequest describes the session to create with the processor.
type CheckoutRequest struct {
	AmountCents int64    `json:"amount_cents"`
	Description string   `json:"description"`
	SuccessURL  string   `json:"success_url"`
	CancelURL   string   `json:"cancel_url"`
	Metadata    Metadata `json:"metadata"`
}

// Session is the processor's handle for a created checkout session.
type Session struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Processor creates checkout sessions with the external payment service.
type Processor interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*Session, error)
}

// Initiator starts checkout for paid registrations. It performs no local
// mutation: an abandoned session simply never commits.
type Initiator struct {
	proc       Processor
	successURL string
	cancelURL  string
}

// NewInitiator constructs an Initiator.
func NewInitiator(proc Processor, successURL, cancelURL string) *Initiator {
	return &Initiator{proc: proc, successURL: successURL, cancelURL: cancelURL}
}

// InitiateCheckout creates an external session whose metadata carries the
// event, payer, and participant set a later confirmation will commit.
func (i *Initiator) InitiateCheckout(ctx context.Context, event *model.Event, participants []model.ParticipantRef, payerID string) (*Session, error) {
	req := CheckoutRequest{
		AmountCents: event.FeeCents * int64(len(participants)),
		Description: fmt.Sprintf("%s (%d participant(s))", event.Title, len(participants)),
		SuccessURL:  i.successURL,
		CancelURL:   i.cancelURL,
		Metadata: Metadata{
			EventID:      event.ID,
			PayerID:      payerID,
			Participants: participants,
		},
	}
	sess, err := i.proc.CreateCheckoutSession(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	return sess, nil
}

// RESTProcessor talks to the processor's session API over HTTP.
type RESTProcessor struct {
	apiURL string
	client *http.Client
}

// NewRESTProcessor constructs a RESTProcessor for the given endpoint.
func NewRESTProcessor(apiURL string) *RESTProcessor {
	return &RESTProcessor{
		apiURL: apiURL,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// CreateCheckoutSession posts the session request and decodes the handle.
func (p *RESTProcessor) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*Session, error) {
	if p.apiURL == "" {
		return nil, fmt.Errorf("payment processor not configured")
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal checkout request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL+"/v1/checkout/sessions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build checkout request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("call payment processor: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("payment processor returned %d", resp.StatusCode)
	}

	var sess Session
	if err := json.NewDecoder(resp.Body).Decode(&sess); err != nil {
		return nil, fmt.Errorf("decode checkout session: %w", err)
	}
	return &sess, nil
}
