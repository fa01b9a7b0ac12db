package endpoints

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"monger-backend/internal/engine"
	"monger-backend/internal/model"
	conversationservice "monger-backend/internal/service/conversation"
	"monger-backend/internal/service/customer"
	"monger-backend/internal/service/referral"
	"monger-backend/internal/service/session"
)

type stubCustomers struct {
	record model.CustomerItem
}

func (c *stubCustomers) Resolve(ctx context.Context, token string) (customer.Resolved, error) {
	if token != "" {
		return customer.Resolved{Customer: c.record}, nil
	}
	return customer.Resolved{Customer: c.record, Token: "minted-token"}, nil
}

func (c *stubCustomers) Get(ctx context.Context, customerID string) (model.CustomerItem, error) {
	return c.record, nil
}

func (c *stubCustomers) MarkBlocked(ctx context.Context, customerID string, d time.Duration) (time.Time, error) {
	until := time.Now().Add(24 * time.Hour)
	c.record.BlockedUntil = until.Format(time.RFC3339)
	return until, nil
}

type stubReferrals struct{}

func (r *stubReferrals) Lookup(ctx context.Context, query string) (referral.Result, error) {
	if query == "big tony" {
		return referral.Result{
			Tier: referral.TierVip, Discount: 20, DiscountCode: "MONGER-VIP-1",
			ReferrerName: "Big Tony", MatchType: referral.MatchName,
		}, nil
	}
	return referral.Result{Tier: referral.TierUnknown}, nil
}

func newTestEndpoints(t *testing.T) (SessionEndpoints, *conversationservice.Service) {
	t.Helper()
	store := session.NewMemoryStore()
	service := conversationservice.New(store, &stubCustomers{record: model.CustomerItem{CustomerID: "cust-1"}}, &stubReferrals{}, engine.NewScriptedEngine())
	return NewSessionEndpoints(service, nil, "/api/public/v1"), service
}

func createSession(t *testing.T, h SessionEndpoints) sessionRes {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/public/v1/sessions", nil)
	rec := httptest.NewRecorder()
	if err := h.Sessions(rec, req); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d", rec.Code)
	}

	var res sessionRes
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	return res
}

func postTurn(t *testing.T, h SessionEndpoints, sessionID, input string) (*httptest.ResponseRecorder, turnRes) {
	t.Helper()
	body, _ := json.Marshal(turnReq{Input: input})
	req := httptest.NewRequest(http.MethodPost, "/api/public/v1/sessions/"+sessionID+"/turns", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	err := h.SessionOps(rec, req)
	if err != nil {
		t.Fatalf("turn failed: %v", err)
	}

	var res turnRes
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	return rec, res
}

func TestCreateSessionSetsVisitorCookie(t *testing.T) {
	h, _ := newTestEndpoints(t)

	req := httptest.NewRequest(http.MethodPost, "/api/public/v1/sessions", nil)
	rec := httptest.NewRecorder()
	if err := h.Sessions(rec, req); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d", rec.Code)
	}

	cookies := rec.Result().Cookies()
	found := false
	for _, c := range cookies {
		if c.Name == VisitorCookieName {
			found = true
			if c.Value != "minted-token" {
				t.Errorf("cookie value = %q", c.Value)
			}
			if !c.HttpOnly {
				t.Error("visitor cookie must be http-only")
			}
		}
	}
	if !found {
		t.Error("visitor cookie not set for a stranger")
	}

	var res sessionRes
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.Phase != model.PhaseCollecting {
		t.Errorf("phase = %s", res.Phase)
	}
	if len(res.Messages) != 1 {
		t.Errorf("messages = %d, want the opening line", len(res.Messages))
	}
}

func TestCreateSessionGetMethodNotAllowed(t *testing.T) {
	h, _ := newTestEndpoints(t)

	req := httptest.NewRequest(http.MethodGet, "/api/public/v1/sessions", nil)
	rec := httptest.NewRecorder()
	err := h.Sessions(rec, req)
	httpErr, ok := err.(*HTTPError)
	if !ok || httpErr.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("err = %v", err)
	}
}

func TestTurnRoundTrip(t *testing.T) {
	h, _ := newTestEndpoints(t)
	created := createSession(t, h)

	rec, res := postTurn(t, h, created.SessionID, "yes")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !res.Collected.HasAffirmation {
		t.Error("affirmation not collected")
	}
	if res.Reply.Content == "" {
		t.Error("empty reply")
	}
}

func TestTurnUnknownSession(t *testing.T) {
	h, _ := newTestEndpoints(t)

	body, _ := json.Marshal(turnReq{Input: "hello"})
	req := httptest.NewRequest(http.MethodPost, "/api/public/v1/sessions/ghost/turns", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	err := h.SessionOps(rec, req)
	httpErr, ok := err.(*HTTPError)
	if !ok || httpErr.StatusCode != http.StatusNotFound {
		t.Fatalf("err = %v", err)
	}
}

func TestGetSessionSnapshot(t *testing.T) {
	h, _ := newTestEndpoints(t)
	created := createSession(t, h)
	postTurn(t, h, created.SessionID, "yes")

	req := httptest.NewRequest(http.MethodGet, "/api/public/v1/sessions/"+created.SessionID, nil)
	rec := httptest.NewRecorder()
	if err := h.SessionOps(rec, req); err != nil {
		t.Fatal(err)
	}

	var res sessionRes
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if len(res.Messages) != 3 {
		t.Errorf("messages = %d, want opening + turn pair", len(res.Messages))
	}
}

func TestReferralEndpoint(t *testing.T) {
	h, _ := newTestEndpoints(t)
	created := createSession(t, h)

	body, _ := json.Marshal(referralReq{Query: "big tony"})
	req := httptest.NewRequest(http.MethodPost, "/api/public/v1/sessions/"+created.SessionID+"/referral", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	if err := h.SessionOps(rec, req); err != nil {
		t.Fatal(err)
	}

	var res turnRes
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.Referral.Tier != referral.TierVip || res.Referral.DiscountCode != "MONGER-VIP-1" {
		t.Errorf("referral = %+v", res.Referral)
	}
	if res.Referral.ReferrerName != "Big Tony" || res.Referral.MatchType != referral.MatchName {
		t.Errorf("referral identity = %+v", res.Referral)
	}
}

func TestTimeWasterEndpoint(t *testing.T) {
	h, _ := newTestEndpoints(t)
	created := createSession(t, h)

	req := httptest.NewRequest(http.MethodPost, "/api/public/v1/sessions/"+created.SessionID+"/time-waster", nil)
	rec := httptest.NewRecorder()
	if err := h.SessionOps(rec, req); err != nil {
		t.Fatal(err)
	}

	var res turnRes
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.Phase != model.PhaseBlocked {
		t.Errorf("phase = %s", res.Phase)
	}
	if !res.Hints.InputDisabled {
		t.Error("input must be disabled after a block")
	}
}

func TestUnknownOperation(t *testing.T) {
	h, _ := newTestEndpoints(t)
	created := createSession(t, h)

	req := httptest.NewRequest(http.MethodPost, "/api/public/v1/sessions/"+created.SessionID+"/frobnicate", nil)
	rec := httptest.NewRecorder()
	err := h.SessionOps(rec, req)
	httpErr, ok := err.(*HTTPError)
	if !ok || httpErr.StatusCode != http.StatusNotFound {
		t.Fatalf("err = %v", err)
	}
}
