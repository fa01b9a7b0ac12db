package conversation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"monger-backend/internal/engine"
	"monger-backend/internal/model"
	"monger-backend/internal/service/customer"
	"monger-backend/internal/service/referral"
	"monger-backend/internal/service/session"
)

type stubEngine struct {
	replies    []engine.TurnResult
	replyErr   error
	replyCalls int
	lastReq    engine.TurnRequest
	opening    string
}

func (e *stubEngine) Reply(ctx context.Context, req engine.TurnRequest) (engine.TurnResult, error) {
	e.replyCalls++
	e.lastReq = req
	if e.replyErr != nil {
		return engine.TurnResult{}, e.replyErr
	}
	if len(e.replies) == 0 {
		return engine.TurnResult{Reply: "mm.", Collected: req.Collected, Checkout: req.Checkout, Mood: "neutral"}, nil
	}
	next := e.replies[0]
	if len(e.replies) > 1 {
		e.replies = e.replies[1:]
	}
	return next, nil
}

func (e *stubEngine) OpeningLine(ctx context.Context, c engine.CustomerSummary) (string, error) {
	if e.opening == "" {
		return "shirts.", nil
	}
	return e.opening, nil
}

func (e *stubEngine) ReferralLine(ctx context.Context, tier string, discount int) (string, error) {
	return "referral line for " + tier, nil
}

func (e *stubEngine) Health(ctx context.Context) (engine.Health, error) {
	return engine.Health{Status: engine.HealthOK, Model: "stub"}, nil
}

type stubCustomers struct {
	record       model.CustomerItem
	blockedCalls int
}

func (c *stubCustomers) Resolve(ctx context.Context, token string) (customer.Resolved, error) {
	return customer.Resolved{Customer: c.record, Token: "fresh-token"}, nil
}

func (c *stubCustomers) Get(ctx context.Context, customerID string) (model.CustomerItem, error) {
	return c.record, nil
}

func (c *stubCustomers) MarkBlocked(ctx context.Context, customerID string, d time.Duration) (time.Time, error) {
	c.blockedCalls++
	until := time.Now().Add(24 * time.Hour)
	c.record.BlockedUntil = until.Format(time.RFC3339)
	return until, nil
}

type stubReferrals struct {
	results map[string]referral.Result
}

func (r *stubReferrals) Lookup(ctx context.Context, query string) (referral.Result, error) {
	if res, ok := r.results[query]; ok {
		return res, nil
	}
	return referral.Result{Tier: referral.TierUnknown}, nil
}

func newTestService(eng *stubEngine, cust *stubCustomers) (*Service, session.Store) {
	store := session.NewMemoryStore()
	if cust == nil {
		cust = &stubCustomers{record: model.CustomerItem{CustomerID: "cust-1"}}
	}
	refs := &stubReferrals{results: map[string]referral.Result{
		"big tony": {Tier: referral.TierUltra, Discount: 30, DiscountCode: "MONGER-ULTRA-1"},
	}}
	return New(store, cust, refs, eng), store
}

func mustInit(t *testing.T, svc *Service) InitResult {
	t.Helper()
	res, err := svc.Init(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	return res
}

func TestInitOpensSessionWithOpeningLine(t *testing.T) {
	eng := &stubEngine{opening: "you again."}
	svc, _ := newTestService(eng, nil)

	res := mustInit(t, svc)
	if res.Session.Phase != model.PhaseCollecting {
		t.Errorf("phase = %s", res.Session.Phase)
	}
	if res.Opening.Content != "you again." {
		t.Errorf("opening = %q", res.Opening.Content)
	}
	if res.Token != "fresh-token" {
		t.Errorf("token = %q", res.Token)
	}
	if len(res.Session.Messages) != 1 {
		t.Errorf("messages = %d", len(res.Session.Messages))
	}
}

func TestInitBlockedVisitorSkipsEngine(t *testing.T) {
	eng := &stubEngine{}
	cust := &stubCustomers{record: model.CustomerItem{
		CustomerID:   "cust-1",
		BlockedUntil: time.Now().Add(time.Hour).Format(time.RFC3339),
	}}
	svc, _ := newTestService(eng, cust)

	res := mustInit(t, svc)
	if res.Session.Phase != model.PhaseBlocked {
		t.Errorf("phase = %s", res.Session.Phase)
	}
	if !res.Hints.Blocked || !res.Hints.InputDisabled {
		t.Errorf("hints = %+v", res.Hints)
	}
}

func TestTurnVerifiedReadinessTransitions(t *testing.T) {
	eng := &stubEngine{replies: []engine.TurnResult{{
		Reply:            "that's everything i need.",
		Collected:        model.Collected{HasAffirmation: true, Size: "m", Phrase: "hello"},
		ReadyForCheckout: true,
		Mood:             "warm",
	}}}
	svc, _ := newTestService(eng, nil)
	res := mustInit(t, svc)

	out, err := svc.Turn(context.Background(), res.Session.SessionID, "yes, medium, it should say hello")
	if err != nil {
		t.Fatal(err)
	}
	if out.Phase != model.PhaseCheckoutStarted {
		t.Errorf("phase = %s, want checkout_started", out.Phase)
	}
	if out.Reply.Content != "that's everything i need." {
		t.Errorf("reply = %q", out.Reply.Content)
	}
}

func TestTurnUnverifiedFlagFallsBack(t *testing.T) {
	eng := &stubEngine{replies: []engine.TurnResult{{
		Reply:            "ready to check out!",
		Collected:        model.Collected{HasAffirmation: true, Size: "m"}, // no phrase
		ReadyForCheckout: true,
		Mood:             "warm",
	}}}
	svc, _ := newTestService(eng, nil)
	res := mustInit(t, svc)

	out, err := svc.Turn(context.Background(), res.Session.SessionID, "medium")
	if err != nil {
		t.Fatal(err)
	}
	if out.Phase != model.PhaseCollecting {
		t.Errorf("phase = %s, must not transition on unverified flag", out.Phase)
	}
	if out.Reply.Content != engine.FallbackLine {
		t.Errorf("reply = %q, want fallback line", out.Reply.Content)
	}
	if out.Collected.Size != "m" {
		t.Error("verified fields from the same turn must still merge")
	}
}

func TestTurnEngineFailurePreservesState(t *testing.T) {
	eng := &stubEngine{replies: []engine.TurnResult{{
		Reply:     "what size.",
		Collected: model.Collected{HasAffirmation: true, Size: "l"},
		Mood:      "neutral",
	}}}
	svc, _ := newTestService(eng, nil)
	res := mustInit(t, svc)
	id := res.Session.SessionID

	if _, err := svc.Turn(context.Background(), id, "large"); err != nil {
		t.Fatal(err)
	}

	eng.replyErr = context.DeadlineExceeded
	out, err := svc.Turn(context.Background(), id, "anything")
	if err != nil {
		t.Fatal(err)
	}
	if out.Reply.Content != engine.FallbackLine {
		t.Errorf("reply = %q", out.Reply.Content)
	}
	if out.Collected.Size != "l" {
		t.Error("fallback must not regress collected size")
	}
	if out.Phase != model.PhaseCollecting {
		t.Errorf("phase = %s", out.Phase)
	}
}

func TestTurnBlockedShortCircuits(t *testing.T) {
	eng := &stubEngine{}
	cust := &stubCustomers{record: model.CustomerItem{
		CustomerID:   "cust-1",
		BlockedUntil: time.Now().Add(time.Hour).Format(time.RFC3339),
	}}
	svc, _ := newTestService(eng, cust)
	res := mustInit(t, svc)

	out, err := svc.Turn(context.Background(), res.Session.SessionID, "let me in")
	if err != nil {
		t.Fatal(err)
	}
	if eng.replyCalls != 0 {
		t.Errorf("engine called %d times for a blocked visitor", eng.replyCalls)
	}
	if !out.Hints.Blocked || !out.Hints.InputDisabled {
		t.Errorf("hints = %+v", out.Hints)
	}
}

func TestDiagnosticEntryAndExit(t *testing.T) {
	eng := &stubEngine{replies: []engine.TurnResult{{
		Reply:     "noted.",
		Collected: model.Collected{HasAffirmation: true, Phrase: "keep me"},
		Mood:      "neutral",
	}}}
	svc, store := newTestService(eng, nil)
	res := mustInit(t, svc)
	id := res.Session.SessionID
	ctx := context.Background()

	// collect something first so exit has state to preserve
	if _, err := svc.Turn(ctx, id, "yes, it should say keep me"); err != nil {
		t.Fatal(err)
	}

	// near-miss must go to the engine, not the trapdoor
	out, err := svc.Turn(ctx, id, "diagnostics")
	if err != nil {
		t.Fatal(err)
	}
	if out.Mode != model.ModeConversation {
		t.Fatal("\"diagnostics\" must not enter diagnostic mode")
	}

	out, err = svc.Turn(ctx, id, "Diagnostic")
	if err != nil {
		t.Fatal(err)
	}
	if out.Mode != model.ModeDiagnostic {
		t.Fatal("expected diagnostic mode")
	}
	if !strings.Contains(out.Reply.Content, "exit diagnostic") {
		t.Error("entry notice must explain how to leave")
	}
	if !out.Hints.SkipTypewriter {
		t.Error("diagnostic replies render without the typewriter")
	}

	engineCalls := eng.replyCalls
	out, err = svc.Turn(ctx, id, "state")
	if err != nil {
		t.Fatal(err)
	}
	if eng.replyCalls != engineCalls {
		t.Error("diagnostic commands must be answered locally")
	}
	if !strings.Contains(out.Reply.Content, "[diagnostic]") {
		t.Errorf("reply = %q", out.Reply.Content)
	}

	out, err = svc.Turn(ctx, id, "exit diagnostic")
	if err != nil {
		t.Fatal(err)
	}
	if out.Mode != model.ModeConversation {
		t.Fatal("expected conversation mode after exit")
	}

	sess, _ := store.Get(id)
	if len(sess.Messages) != 1 {
		t.Errorf("transcript after exit = %d messages, want only the exit notice", len(sess.Messages))
	}
	if sess.Collected.Phrase != "keep me" {
		t.Error("collected state must survive the diagnostic round trip")
	}
}

func TestDiagnosticTriggerMatching(t *testing.T) {
	entries := map[string]bool{
		"diagnostic":                   true,
		"Diagnostic":                   true,
		"diagnostic.":                  true,
		"diagnostic mode":              true,
		"enter diagnostic mode":        true,
		"enter diagnostic mode please": true,
		"diagnostic, now":              true,
		"diagnostics":                  false,
		"diagnostics please":           false,
		"run a diagnostic":             false,
		"":                             false,
	}
	for input, want := range entries {
		if got := isDiagnosticEntry(input); got != want {
			t.Errorf("isDiagnosticEntry(%q) = %v, want %v", input, got, want)
		}
	}

	exits := map[string]bool{
		"exit diagnostic":          true,
		"exit diagnostic mode":     true,
		"Exit Diagnostic Mode now": true,
		"exit diagnostics":         false,
		"exit":                     false,
	}
	for input, want := range exits {
		if got := isDiagnosticExit(input); got != want {
			t.Errorf("isDiagnosticExit(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestTurnReferralLookup(t *testing.T) {
	eng := &stubEngine{replies: []engine.TurnResult{{
		Reply:              "who sent you.",
		WantsReferralCheck: "big tony",
		Mood:               "suspicious",
	}}}
	svc, _ := newTestService(eng, nil)
	res := mustInit(t, svc)

	out, err := svc.Turn(context.Background(), res.Session.SessionID, "big tony sent me")
	if err != nil {
		t.Fatal(err)
	}
	if out.Referral.Tier != referral.TierUltra || out.Referral.Discount != 30 {
		t.Errorf("referral = %+v", out.Referral)
	}
	if out.Referral.DiscountCode != "MONGER-ULTRA-1" {
		t.Errorf("code = %q", out.Referral.DiscountCode)
	}
	if !strings.Contains(out.Reply.Content, "referral line for ultra") {
		t.Errorf("reply = %q", out.Reply.Content)
	}
}

func TestCheckoutToPayment(t *testing.T) {
	full := model.Collected{HasAffirmation: true, Size: "m", Phrase: "hi"}
	eng := &stubEngine{replies: []engine.TurnResult{
		{Reply: "checkout then.", Collected: full, ReadyForCheckout: true, Mood: "warm"},
		{Reply: "name.", Collected: full, Checkout: model.Checkout{
			Shipping: model.ShippingAddress{Name: "Jane Doe"},
		}, Mood: "neutral"},
		{Reply: "pay up.", Collected: full, Checkout: model.Checkout{
			Shipping: model.ShippingAddress{
				Name: "Jane Doe", Line1: "1 Main St", City: "Springfield",
				State: "IL", Zip: "62704", Country: "US",
			},
			Email: "jane@example.com",
		}, ReadyForPayment: true, Mood: "warm"},
	}}
	svc, _ := newTestService(eng, nil)
	res := mustInit(t, svc)
	id := res.Session.SessionID
	ctx := context.Background()

	out, err := svc.Turn(ctx, id, "yes medium hi")
	if err != nil {
		t.Fatal(err)
	}
	if out.Phase != model.PhaseCheckoutStarted {
		t.Fatalf("phase = %s", out.Phase)
	}

	out, err = svc.Turn(ctx, id, "Jane Doe")
	if err != nil {
		t.Fatal(err)
	}
	if out.Phase != model.PhaseCollectingShipping {
		t.Fatalf("phase = %s, want collecting_shipping", out.Phase)
	}

	out, err = svc.Turn(ctx, id, "rest of the address and jane@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if out.Phase != model.PhaseReadyForPayment {
		t.Fatalf("phase = %s", out.Phase)
	}
	if !out.Hints.ShowPaymentForm {
		t.Error("payment form hint expected")
	}
}

func TestCompletePurchaseAndReset(t *testing.T) {
	eng := &stubEngine{replies: []engine.TurnResult{
		{
			Reply:     "noted.",
			Mood:      "neutral",
			Collected: model.Collected{HasAffirmation: true, Size: "m", Phrase: "carpe diem"},
		},
		{Reply: "mm.", Mood: "neutral"},
	}}
	svc, _ := newTestService(eng, nil)
	res := mustInit(t, svc)
	id := res.Session.SessionID
	ctx := context.Background()

	if _, err := svc.Turn(ctx, id, "yes, medium, carpe diem"); err != nil {
		t.Fatal(err)
	}

	done, err := svc.CompletePurchase(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if done.Phase != model.PhasePurchaseComplete {
		t.Fatalf("phase = %s", done.Phase)
	}
	msgCount := len(done.Messages)

	again, err := svc.CompletePurchase(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if len(again.Messages) != msgCount {
		t.Error("repeated completion must not add messages")
	}

	out, err := svc.Turn(ctx, id, "one more shirt")
	if err != nil {
		t.Fatal(err)
	}
	if out.Phase != model.PhaseCollecting {
		t.Errorf("phase = %s, want a fresh collecting cycle", out.Phase)
	}
	if out.Collected.HasAffirmation || out.Collected.Size != "" || out.Collected.Phrase != "" {
		t.Errorf("collected = %+v, must reset for the next purchase", out.Collected)
	}
	// the dialogue backend must see the reloaded session, not the one read
	// before the reset
	if eng.lastReq.Collected.Size != "" || eng.lastReq.Collected.Phrase != "" {
		t.Errorf("engine saw stale collected state %+v", eng.lastReq.Collected)
	}
}

func TestMarkTimeWaster(t *testing.T) {
	eng := &stubEngine{}
	cust := &stubCustomers{record: model.CustomerItem{CustomerID: "cust-1"}}
	svc, _ := newTestService(eng, cust)
	res := mustInit(t, svc)

	out, err := svc.MarkTimeWaster(context.Background(), res.Session.SessionID)
	if err != nil {
		t.Fatal(err)
	}
	if cust.blockedCalls != 1 {
		t.Errorf("blockedCalls = %d", cust.blockedCalls)
	}
	if out.Phase != model.PhaseBlocked {
		t.Errorf("phase = %s", out.Phase)
	}
	if !out.Hints.InputDisabled {
		t.Error("input must be disabled after a block")
	}
}

func TestTurnUnknownSession(t *testing.T) {
	eng := &stubEngine{}
	svc, _ := newTestService(eng, nil)

	_, err := svc.Turn(context.Background(), "nope", "hello")
	if err == nil {
		t.Fatal("expected error")
	}
	var serr *Error
	if !errors.As(err, &serr) || serr.Code != ErrorCodeNotFound {
		t.Errorf("err = %v", err)
	}
}
