package endpoints

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"monger-backend/internal/env"
	paymentservice "monger-backend/internal/service/payment"
)

// SignatureHeader carries the provider's HMAC over the raw request body.
const SignatureHeader = "X-Payment-Signature"

const maxWebhookBody = 1 << 20

type WebhookEndpoints interface {
	Payments(http.ResponseWriter, *http.Request) error
}

type webhookEndpoints struct {
	service *paymentservice.Service
	secret  func() []byte
}

func NewWebhookEndpoints(service *paymentservice.Service) WebhookEndpoints {
	return &webhookEndpoints{
		service: service,
		secret: func() []byte {
			return []byte(env.Get(env.PaymentWebhookSecret))
		},
	}
}

func NewWebhookEndpointsWithSecret(service *paymentservice.Service, secret []byte) WebhookEndpoints {
	return &webhookEndpoints{
		service: service,
		secret:  func() []byte { return secret },
	}
}

func (h *webhookEndpoints) Payments(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handlePaymentEvent,
	})
}

func (h *webhookEndpoints) handlePaymentEvent(w http.ResponseWriter, r *http.Request) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Unreadable body",
			ErrorLog:   fmt.Errorf("read webhook body: %w", err),
		}
	}

	// the signature covers the raw bytes; verify before any decoding
	if !paymentservice.VerifySignature(h.secret(), body, r.Header.Get(SignatureHeader)) {
		return &HTTPError{
			StatusCode: http.StatusUnauthorized,
			Message:    "Invalid signature",
			ErrorLog:   fmt.Errorf("webhook signature verification failed"),
		}
	}

	event, err := paymentservice.ParseEvent(body)
	if err != nil {
		return h.serviceError(err)
	}

	if err := h.service.HandleEvent(r.Context(), event); err != nil {
		return h.serviceError(err)
	}

	return WriteJSON(w, http.StatusOK, map[string]bool{"received": true})
}

func (h *webhookEndpoints) serviceError(err error) error {
	if err == nil {
		return nil
	}

	var svcErr *paymentservice.Error
	if !errors.As(err, &svcErr) {
		return &HTTPError{
			StatusCode: http.StatusInternalServerError,
			Message:    "Internal server error",
			ErrorLog:   fmt.Errorf("payment service: %w", err),
		}
	}

	var logErr error
	if svcErr.Err != nil {
		logErr = fmt.Errorf("%s: %w", svcErr.Message, svcErr.Err)
	} else {
		logErr = svcErr
	}

	switch svcErr.Code {
	case paymentservice.ErrorCodeValidation:
		return &HTTPError{StatusCode: http.StatusBadRequest, Message: svcErr.Message, ErrorLog: logErr}
	default:
		return &HTTPError{StatusCode: http.StatusInternalServerError, Message: "Internal server error", ErrorLog: logErr}
	}
}
