package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultTimeout is the ceiling for one dialogue backend call. The turn loop
// must never block the transport longer than this; on expiry the caller takes
// the fallback path.
const DefaultTimeout = 120 * time.Second

// HTTPEngine talks to the LLM sidecar over its plain JSON contract:
// POST /chat, POST /opening-line, POST /referral-line, GET /health.
type HTTPEngine struct {
	baseURL string
	client  *http.Client
}

func NewHTTPEngine(baseURL string, timeout time.Duration) *HTTPEngine {
	if timeout <= 0 || timeout > DefaultTimeout {
		timeout = DefaultTimeout
	}
	return &HTTPEngine{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (e *HTTPEngine) Reply(ctx context.Context, req TurnRequest) (TurnResult, error) {
	start := time.Now()

	payload := chatRequest{
		UserInput: req.UserInput,
		Context: chatContext{
			TotalShirtsBought: req.Customer.TotalShirtsBought,
			IsRepeatBuyer:     req.Customer.IsRepeatBuyer,
			CurrentState: wireCurrentState{
				HasAffirmation: req.Collected.HasAffirmation,
				Size:           stringPtr(req.Collected.Size),
				Phrase:         stringPtr(req.Collected.Phrase),
			},
			HasReferral:    req.Customer.ReferralStatus != "",
			IsCheckoutMode: req.CheckoutMode,
			CheckoutState: toWireCheckout(wireCheckoutIn{
				Name:    req.Checkout.Shipping.Name,
				Line1:   req.Checkout.Shipping.Line1,
				City:    req.Checkout.Shipping.City,
				State:   req.Checkout.Shipping.State,
				Zip:     req.Checkout.Shipping.Zip,
				Country: req.Checkout.Shipping.Country,
				Email:   req.Checkout.Email,
			}),
		},
		ConversationHistory: req.History,
	}

	var resp chatResponse
	err := e.post(ctx, "/chat", payload, &resp)
	observeCall("chat", start, err)
	recordCall(time.Since(start), err)
	if err != nil {
		return TurnResult{}, err
	}

	result := normalizeTurnResult(resp)
	if result.Reply == "" {
		return TurnResult{}, fmt.Errorf("engine returned empty reply")
	}
	return result, nil
}

func (e *HTTPEngine) OpeningLine(ctx context.Context, customer CustomerSummary) (string, error) {
	start := time.Now()

	payload := openingLineRequest{
		TotalShirtsBought: customer.TotalShirtsBought,
		IsTimeWaster:      customer.IsTimeWaster,
		ReferralStatus:    customer.ReferralStatus,
	}

	var resp lineResponse
	err := e.post(ctx, "/opening-line", payload, &resp)
	observeCall("opening_line", start, err)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(resp.Line) == "" {
		return "", fmt.Errorf("engine returned empty opening line")
	}
	return resp.Line, nil
}

func (e *HTTPEngine) ReferralLine(ctx context.Context, tier string, discount int) (string, error) {
	start := time.Now()

	payload := referralLineRequest{
		Status:             tier,
		DiscountPercentage: discount,
	}

	var resp lineResponse
	err := e.post(ctx, "/referral-line", payload, &resp)
	observeCall("referral_line", start, err)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(resp.Line) == "" {
		return "", fmt.Errorf("engine returned empty referral line")
	}
	return resp.Line, nil
}

func (e *HTTPEngine) Health(ctx context.Context) (Health, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/health", nil)
	if err != nil {
		return Health{Status: HealthError, Err: err.Error()}, err
	}

	res, err := e.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		return Health{Status: HealthError, LatencyMS: latency.Milliseconds(), Err: err.Error()}, err
	}
	defer res.Body.Close()

	var body healthResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return Health{Status: HealthError, LatencyMS: latency.Milliseconds(), Err: err.Error()}, err
	}

	status := body.Status
	if status == "" || (status != HealthOK && status != HealthDegraded) {
		status = HealthError
	}

	return Health{
		Status:    status,
		Model:     body.LLMModel,
		LatencyMS: latency.Milliseconds(),
		Err:       body.Error,
	}, nil
}

func (e *HTTPEngine) post(ctx context.Context, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("engine %s: %w", path, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return fmt.Errorf("engine %s: HTTP %d: %s", path, res.StatusCode, strings.TrimSpace(string(raw)))
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
