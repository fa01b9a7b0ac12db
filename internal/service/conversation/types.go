package conversation

import (
	"context"
	"time"

	"monger-backend/internal/model"
	"monger-backend/internal/service/customer"
	"monger-backend/internal/service/referral"
)

type ErrorCode string

const (
	ErrorCodeValidation ErrorCode = "validation_error"
	ErrorCodeNotFound   ErrorCode = "not_found"
	ErrorCodeConflict   ErrorCode = "conflict"
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
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// CustomerDirectory is the slice of the customer service the conversation
// pipeline needs.
type CustomerDirectory interface {
	Resolve(ctx context.Context, token string) (customer.Resolved, error)
	Get(ctx context.Context, customerID string) (model.CustomerItem, error)
	MarkBlocked(ctx context.Context, customerID string, d time.Duration) (time.Time, error)
}

// ReferralLookup resolves a referrer mention to a tier and discount.
type ReferralLookup interface {
	Lookup(ctx context.Context, query string) (referral.Result, error)
}

// UIHints tell the storefront how to render one reply. They are derived
// server-side from session state, never taken from the dialogue backend.
type UIHints struct {
	SkipTypewriter  bool `json:"skipTypewriter"`
	ShowPaymentForm bool `json:"showPaymentForm"`
	Blocked         bool `json:"blocked"`
	InputDisabled   bool `json:"inputDisabled"`
}

// InitResult is a freshly opened session plus the identity token the
// transport should set as a cookie. Token is empty for a recognized visitor.
type InitResult struct {
	Session model.Session
	Opening model.SessionMessage
	Token   string
	Hints   UIHints
}

// TurnOutcome is everything the transport needs to answer one visitor turn.
type TurnOutcome struct {
	SessionID string
	Reply     model.SessionMessage
	Mode      model.Mode
	Phase     model.Phase
	Mood      string
	Collected model.Collected
	Checkout  model.Checkout
	Referral  model.Referral
	Hints     UIHints
}
