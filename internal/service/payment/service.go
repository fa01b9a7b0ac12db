package payment

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"monger-backend/internal/logger"
	"monger-backend/internal/model"
)

const (
	EventPaymentSucceeded = "payment_intent.succeeded"
	EventPaymentFailed    = "payment_intent.payment_failed"
)

type ErrorCode string

const (
	ErrorCodeValidation ErrorCode = "validation_error"
	ErrorCodeInternal   ErrorCode = "internal_error"
)

type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code ErrorCode, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// Event is one decoded provider webhook delivery. CorrelationID is the
// payment intent id and drives idempotency.
type Event struct {
	EventID       string
	Type          string
	CorrelationID string
	SessionID     string
	AmountCents   int64
	Currency      string
	Size          string
	Phrase        string
	DiscountCode  string
}

type wireEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID       string            `json:"id"`
			Amount   int64             `json:"amount"`
			Currency string            `json:"currency"`
			Metadata map[string]string `json:"metadata"`
		} `json:"object"`
	} `json:"data"`
}

// ParseEvent decodes a provider payload. The session id rides in the payment
// intent metadata set at intent creation.
func ParseEvent(body []byte) (Event, error) {
	var w wireEvent
	if err := json.Unmarshal(body, &w); err != nil {
		return Event{}, newError(ErrorCodeValidation, "malformed webhook payload", err)
	}
	if w.Type == "" || w.Data.Object.ID == "" {
		return Event{}, newError(ErrorCodeValidation, "webhook payload missing type or intent id", nil)
	}
	return Event{
		EventID:       w.ID,
		Type:          w.Type,
		CorrelationID: w.Data.Object.ID,
		SessionID:     w.Data.Object.Metadata["session_id"],
		AmountCents:   w.Data.Object.Amount,
		Currency:      w.Data.Object.Currency,
		Size:          w.Data.Object.Metadata["size"],
		Phrase:        w.Data.Object.Metadata["phrase"],
		DiscountCode:  w.Data.Object.Metadata["discount_code"],
	}, nil
}

// Completer transitions a session to its terminal phase and returns the
// resulting snapshot.
type Completer interface {
	CompletePurchase(ctx context.Context, sessionID string) (model.Session, error)
}

// PurchaseRecorder bumps the durable customer record.
type PurchaseRecorder interface {
	RecordPurchase(ctx context.Context, customerID string) (model.CustomerItem, error)
}

// Notifier sends the order confirmation. Failures are logged, never surfaced
// to the provider.
type Notifier interface {
	OrderConfirmation(ctx context.Context, order model.OrderItem) error
}

// Publisher pushes a session event to connected storefront clients.
type Publisher func(sessionID string, event interface{})

type Service struct {
	repo      Repository
	sessions  Completer
	customers PurchaseRecorder
	notifier  Notifier
	publish   Publisher
	now       func() time.Time
}

func New(repo Repository, sessions Completer, customers PurchaseRecorder, notifier Notifier, publish Publisher) *Service {
	return &Service{
		repo:      repo,
		sessions:  sessions,
		customers: customers,
		notifier:  notifier,
		publish:   publish,
		now:       time.Now,
	}
}

// HandleEvent processes one verified webhook delivery. The conditional order
// archive is the idempotency gate: it runs before any side effect that must
// happen exactly once, so a delivery that fails mid-way stays retryable and a
// redelivery after success is a no-op. A missing session (expired before the
// webhook landed) still archives the order from the intent metadata.
func (s *Service) HandleEvent(ctx context.Context, ev Event) error {
	log := logger.Logger.With().
		Str("eventId", ev.EventID).
		Str("correlationId", ev.CorrelationID).
		Str("sessionId", ev.SessionID).
		Logger()

	switch ev.Type {
	case EventPaymentFailed:
		log.Info().Msg("payment failed, no state change")
		return nil
	case EventPaymentSucceeded:
	default:
		log.Info().Str("type", ev.Type).Msg("ignoring webhook event type")
		return nil
	}

	order := model.OrderItem{
		OrderID:      ev.CorrelationID,
		SessionID:    ev.SessionID,
		AmountCents:  ev.AmountCents,
		Currency:     ev.Currency,
		Size:         ev.Size,
		Phrase:       ev.Phrase,
		DiscountCode: ev.DiscountCode,
		CreatedAt:    s.now().UTC().Format(time.RFC3339),
	}

	sess, err := s.sessions.CompletePurchase(ctx, ev.SessionID)
	if err != nil {
		log.Warn().Err(err).Msg("session gone before webhook, archiving from metadata only")
	} else {
		order.CustomerID = sess.CustomerID
		order.ShippingName = sess.Checkout.Shipping.Name
		order.Line1 = sess.Checkout.Shipping.Line1
		order.City = sess.Checkout.Shipping.City
		order.State = sess.Checkout.Shipping.State
		order.Zip = sess.Checkout.Shipping.Zip
		order.Country = sess.Checkout.Shipping.Country
		order.Email = sess.Checkout.Email
		if order.Size == "" {
			order.Size = sess.Collected.Size
		}
		if order.Phrase == "" {
			order.Phrase = sess.Collected.Phrase
		}
		if order.DiscountCode == "" {
			order.DiscountCode = sess.Referral.DiscountCode
		}
	}

	if err := s.repo.PutOrder(ctx, order); err != nil {
		if errors.Is(err, ErrAlreadyProcessed) {
			log.Info().Msg("duplicate webhook delivery, order already archived")
			return nil
		}
		return newError(ErrorCodeInternal, "failed to archive order", err)
	}

	if order.CustomerID != "" {
		if _, err := s.customers.RecordPurchase(ctx, order.CustomerID); err != nil {
			log.Error().Err(err).Msg("failed to record purchase on customer")
		}
	}

	if s.publish != nil && ev.SessionID != "" {
		s.publish(ev.SessionID, map[string]interface{}{
			"type":          "purchase_complete",
			"correlationId": ev.CorrelationID,
		})
	}

	if s.notifier != nil {
		if err := s.notifier.OrderConfirmation(ctx, order); err != nil {
			log.Error().Err(err).Msg("order confirmation email failed")
		}
	}

	log.Info().Int64("amountCents", order.AmountCents).Msg("order archived")
	return nil
}
