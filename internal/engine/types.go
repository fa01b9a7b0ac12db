package engine

import (
	"context"

	"monger-backend/internal/model"
)

// Message is one history entry handed to the dialogue backend. Only the
// visitor-facing transcript crosses this boundary.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CustomerSummary is the only customer information the adapter may forward to
// a backend: derived booleans and counts, never raw ids.
type CustomerSummary struct {
	TotalShirtsBought int
	IsRepeatBuyer     bool
	IsTimeWaster      bool
	ReferralStatus    string
}

// TurnRequest bundles one visitor turn with a snapshot of everything the
// persona needs to continue the sale.
type TurnRequest struct {
	UserInput    string
	Collected    model.Collected
	Checkout     model.Checkout
	CheckoutMode bool
	Customer     CustomerSummary
	History      []Message
}

// TurnResult is the normalized output of a dialogue backend. Every field has
// a defined zero fallback; callers may rely on Size/Mood being canonical.
type TurnResult struct {
	Reply              string
	Collected          model.Collected
	Checkout           model.Checkout
	ReadyForCheckout   bool
	ReadyForPayment    bool
	Mood               string
	WantsReferralCheck string
}

type Health struct {
	Status    string
	Model     string
	LatencyMS int64
	Err       string
}

const (
	HealthOK       = "ok"
	HealthDegraded = "degraded"
	HealthError    = "error"
)

// Engine is the pluggable dialogue backend contract. Implementations must be
// safe for concurrent use; the caller enforces per-session serialization.
type Engine interface {
	Reply(ctx context.Context, req TurnRequest) (TurnResult, error)
	OpeningLine(ctx context.Context, customer CustomerSummary) (string, error)
	ReferralLine(ctx context.Context, tier string, discount int) (string, error)
	Health(ctx context.Context) (Health, error)
}
