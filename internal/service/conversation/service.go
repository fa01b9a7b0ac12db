package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"monger-backend/internal/engine"
	"monger-backend/internal/logger"
	"monger-backend/internal/model"
	"monger-backend/internal/service/customer"
	"monger-backend/internal/service/session"
)

const (
	defaultOpeningLine   = "shirts.  you buying or browsing."
	defaultHistoryWindow = 20

	roleVisitor = "visitor"
	roleMonger  = "monger"
)

type Service struct {
	store     session.Store
	customers CustomerDirectory
	referrals ReferralLookup
	engine    engine.Engine
	now       func() time.Time

	// BlockDuration is how long a time-waster stays out. Zero uses the
	// customer service default.
	BlockDuration time.Duration

	historyWindow int
}

func New(store session.Store, customers CustomerDirectory, referrals ReferralLookup, eng engine.Engine) *Service {
	return &Service{
		store:         store,
		customers:     customers,
		referrals:     referrals,
		engine:        eng,
		now:           time.Now,
		historyWindow: defaultHistoryWindow,
	}
}

// Init resolves the visitor identity, opens a session, and speaks the opening
// line. A blocked visitor gets a blocked session and never reaches the
// dialogue backend.
func (s *Service) Init(ctx context.Context, token string) (InitResult, error) {
	resolved, err := s.customers.Resolve(ctx, token)
	if err != nil {
		return InitResult{}, newError(ErrorCodeInternal, "failed to resolve visitor", err)
	}

	now := s.now().UTC()
	sess := model.Session{
		SessionID:      uuid.NewString(),
		CustomerID:     resolved.Customer.CustomerID,
		Mode:           model.ModeConversation,
		Phase:          model.PhaseCollecting,
		CreatedAt:      now,
		LastActivityAt: now,
	}

	opening := defaultOpeningLine
	if customer.IsBlocked(resolved.Customer, now) {
		sess.Phase = model.PhaseBlocked
		opening = blockedLine
	} else {
		line, err := s.engine.OpeningLine(ctx, s.summaryFor(resolved.Customer, sess))
		if err != nil {
			logger.Logger.Warn().Err(err).Msg("opening line failed, using default")
		} else {
			opening = line
		}
	}

	if err := s.store.Create(sess); err != nil {
		return InitResult{}, newError(ErrorCodeInternal, "failed to create session", err)
	}

	msg, err := s.store.AppendMessage(sess.SessionID, roleMonger, opening)
	if err != nil {
		return InitResult{}, newError(ErrorCodeInternal, "failed to record opening line", err)
	}

	created, err := s.store.Get(sess.SessionID)
	if err != nil {
		return InitResult{}, newError(ErrorCodeInternal, "failed to load session", err)
	}

	return InitResult{
		Session: created,
		Opening: msg,
		Token:   resolved.Token,
		Hints:   hintsFor(&created),
	}, nil
}

// Turn runs one visitor message through the pipeline. The whole
// load-think-merge-persist sequence holds the session lock so concurrent
// turns on one session serialize.
func (s *Service) Turn(ctx context.Context, sessionID, input string) (TurnOutcome, error) {
	input = strings.TrimSpace(input)
	if sessionID == "" || input == "" {
		return TurnOutcome{}, newError(ErrorCodeValidation, "session id and input are required", nil)
	}

	var out TurnOutcome
	err := s.store.WithLock(sessionID, func() error {
		sess, err := s.store.Get(sessionID)
		if err != nil {
			if errors.Is(err, session.ErrNotFound) {
				return newError(ErrorCodeNotFound, "session not found", err)
			}
			return newError(ErrorCodeInternal, "failed to load session", err)
		}

		cust := s.loadCustomer(ctx, sess.CustomerID)

		if sess.Phase == model.PhaseBlocked || customer.IsBlocked(cust, s.now().UTC()) {
			out, err = s.blockedTurn(sessionID)
			return err
		}

		// mode trapdoors run on the raw input before anything else
		if sess.Mode == model.ModeConversation && isDiagnosticEntry(input) {
			out, err = s.enterDiagnostic(sessionID)
			return err
		}
		if sess.Mode == model.ModeDiagnostic {
			if isDiagnosticExit(input) {
				out, err = s.exitDiagnostic(sessionID)
				return err
			}
			out, err = s.diagnosticTurn(ctx, sessionID, input)
			return err
		}

		if sess.Phase == model.PhasePurchaseComplete {
			if err := s.store.Update(sessionID, func(live *model.Session) error {
				live.Phase = model.PhaseCollecting
				live.Collected = model.Collected{}
				live.Checkout = model.Checkout{}
				return nil
			}); err != nil {
				return newError(ErrorCodeInternal, "failed to reset session", err)
			}
			sess, err = s.store.Get(sessionID)
			if err != nil {
				return newError(ErrorCodeInternal, "failed to load session", err)
			}
		}

		out, err = s.conversationTurn(ctx, sess, cust, input)
		return err
	})
	return out, err
}

func (s *Service) conversationTurn(ctx context.Context, sess model.Session, cust model.CustomerItem, input string) (TurnOutcome, error) {
	// history is the transcript before this turn; the input rides separately
	history := s.history(sess.SessionID)

	if _, err := s.store.AppendMessage(sess.SessionID, roleVisitor, input); err != nil {
		return TurnOutcome{}, newError(ErrorCodeInternal, "failed to record message", err)
	}

	req := engine.TurnRequest{
		UserInput:    input,
		Collected:    sess.Collected,
		Checkout:     sess.Checkout,
		CheckoutMode: inCheckout(sess.Phase),
		Customer:     s.summaryFor(cust, sess),
		History:      history,
	}

	result, err := s.engine.Reply(ctx, req)
	fellBack := false
	if err != nil {
		logger.Logger.Warn().Err(err).Str("sessionId", sess.SessionID).Msg("engine turn failed, falling back")
		result = engine.Fallback(req)
		fellBack = true
	}

	reply := result.Reply
	mood := result.Mood
	var referralState model.Referral

	updateErr := s.store.Update(sess.SessionID, func(live *model.Session) error {
		mergeTurn(live, result)
		if !fellBack {
			if unverified := advancePhase(live, result); unverified {
				reply = engine.FallbackLine
				mood = "neutral"
			}
		}
		referralState = live.Referral
		return nil
	})
	if updateErr != nil {
		return TurnOutcome{}, newError(ErrorCodeInternal, "failed to persist turn", updateErr)
	}

	if !fellBack && result.WantsReferralCheck != "" {
		if line, ref, ok := s.checkReferral(ctx, sess.SessionID, result.WantsReferralCheck); ok {
			referralState = ref
			reply = reply + "\n\n" + line
		}
	}

	msg, err := s.store.AppendMessage(sess.SessionID, roleMonger, reply)
	if err != nil {
		return TurnOutcome{}, newError(ErrorCodeInternal, "failed to record reply", err)
	}

	updated, err := s.store.Get(sess.SessionID)
	if err != nil {
		return TurnOutcome{}, newError(ErrorCodeInternal, "failed to load session", err)
	}

	return TurnOutcome{
		SessionID: updated.SessionID,
		Reply:     msg,
		Mode:      updated.Mode,
		Phase:     updated.Phase,
		Mood:      mood,
		Collected: updated.Collected,
		Checkout:  updated.Checkout,
		Referral:  referralState,
		Hints:     hintsFor(&updated),
	}, nil
}

// checkReferral resolves a referrer mention and rewrites the session's
// referral state. The latest lookup always wins, including a miss wiping an
// earlier discount.
func (s *Service) checkReferral(ctx context.Context, sessionID, query string) (string, model.Referral, bool) {
	res, err := s.referrals.Lookup(ctx, query)
	if err != nil {
		logger.Logger.Warn().Err(err).Str("sessionId", sessionID).Msg("referral lookup failed")
		return "", model.Referral{}, false
	}

	ref := model.Referral{
		ReferrerQuery: query,
		ReferrerName:  res.ReferrerName,
		MatchType:     res.MatchType,
		DiscountCode:  res.DiscountCode,
		Tier:          res.Tier,
		Discount:      res.Discount,
	}
	if err := s.store.Update(sessionID, func(live *model.Session) error {
		live.Referral = ref
		return nil
	}); err != nil {
		logger.Logger.Warn().Err(err).Str("sessionId", sessionID).Msg("referral persist failed")
		return "", model.Referral{}, false
	}

	line, err := s.engine.ReferralLine(ctx, res.Tier, res.Discount)
	if err != nil {
		logger.Logger.Warn().Err(err).Str("sessionId", sessionID).Msg("referral line failed")
		line = "i'll keep that name in mind."
	}
	return line, ref, true
}

func (s *Service) blockedTurn(sessionID string) (TurnOutcome, error) {
	if err := s.store.Update(sessionID, func(live *model.Session) error {
		live.Phase = model.PhaseBlocked
		return nil
	}); err != nil {
		return TurnOutcome{}, newError(ErrorCodeInternal, "failed to persist block", err)
	}
	msg, err := s.store.AppendMessage(sessionID, roleMonger, blockedLine)
	if err != nil {
		return TurnOutcome{}, newError(ErrorCodeInternal, "failed to record reply", err)
	}
	return s.outcomeFor(sessionID, msg, "suspicious")
}

func (s *Service) enterDiagnostic(sessionID string) (TurnOutcome, error) {
	if err := s.store.Update(sessionID, func(live *model.Session) error {
		live.Mode = model.ModeDiagnostic
		return nil
	}); err != nil {
		return TurnOutcome{}, newError(ErrorCodeInternal, "failed to switch mode", err)
	}
	msg, err := s.store.AppendMessage(sessionID, roleMonger, diagnosticEnterLine)
	if err != nil {
		return TurnOutcome{}, newError(ErrorCodeInternal, "failed to record reply", err)
	}
	return s.outcomeFor(sessionID, msg, "neutral")
}

// exitDiagnostic drops the diagnostic transcript but keeps everything the
// visitor already gave: collected order fields, checkout, referral, phase.
func (s *Service) exitDiagnostic(sessionID string) (TurnOutcome, error) {
	if err := s.store.ClearMessages(sessionID); err != nil {
		return TurnOutcome{}, newError(ErrorCodeInternal, "failed to clear transcript", err)
	}
	if err := s.store.Update(sessionID, func(live *model.Session) error {
		live.Mode = model.ModeConversation
		return nil
	}); err != nil {
		return TurnOutcome{}, newError(ErrorCodeInternal, "failed to switch mode", err)
	}
	msg, err := s.store.AppendMessage(sessionID, roleMonger, diagnosticExitLine)
	if err != nil {
		return TurnOutcome{}, newError(ErrorCodeInternal, "failed to record reply", err)
	}
	return s.outcomeFor(sessionID, msg, "neutral")
}

func (s *Service) diagnosticTurn(ctx context.Context, sessionID, input string) (TurnOutcome, error) {
	if _, err := s.store.AppendMessage(sessionID, roleVisitor, input); err != nil {
		return TurnOutcome{}, newError(ErrorCodeInternal, "failed to record message", err)
	}

	sess, err := s.store.Get(sessionID)
	if err != nil {
		return TurnOutcome{}, newError(ErrorCodeInternal, "failed to load session", err)
	}

	reply := s.diagnosticReply(ctx, sess, input)
	msg, err := s.store.AppendMessage(sessionID, roleMonger, reply)
	if err != nil {
		return TurnOutcome{}, newError(ErrorCodeInternal, "failed to record reply", err)
	}
	return s.outcomeFor(sessionID, msg, "neutral")
}

// diagnosticReply answers diagnostic commands locally; the dialogue backend
// is only consulted for the health probe.
func (s *Service) diagnosticReply(ctx context.Context, sess model.Session, input string) string {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "state":
		snapshot := map[string]interface{}{
			"sessionId": sess.SessionID,
			"mode":      sess.Mode,
			"phase":     sess.Phase,
			"collected": sess.Collected,
			"checkout":  sess.Checkout,
			"referral":  sess.Referral,
			"messages":  len(sess.Messages),
		}
		body, err := json.MarshalIndent(snapshot, "", "  ")
		if err != nil {
			return "[diagnostic] state unavailable: " + err.Error()
		}
		return "[diagnostic] " + string(body)
	case "stats":
		stats := engine.CallStats()
		return fmt.Sprintf("[diagnostic] engine calls=%d failures=%d lastLatencyMs=%d lastError=%q",
			stats.TotalCalls, stats.TotalFailures, stats.LastLatencyMS, stats.LastError)
	case "health":
		h, err := s.engine.Health(ctx)
		if err != nil {
			return "[diagnostic] engine health: error: " + err.Error()
		}
		return fmt.Sprintf("[diagnostic] engine health: status=%s model=%s latencyMs=%d", h.Status, h.Model, h.LatencyMS)
	default:
		return "[diagnostic] commands: state, stats, health, help. say \"exit diagnostic\" to resume."
	}
}

// CheckReferral runs an explicit referral lookup for the session, outside the
// normal turn flow. The result is spoken as a monger message and recorded the
// same way an engine-requested check would be.
func (s *Service) CheckReferral(ctx context.Context, sessionID, query string) (TurnOutcome, error) {
	query = strings.TrimSpace(query)
	if sessionID == "" || query == "" {
		return TurnOutcome{}, newError(ErrorCodeValidation, "session id and query are required", nil)
	}

	var out TurnOutcome
	err := s.store.WithLock(sessionID, func() error {
		if _, err := s.store.Get(sessionID); err != nil {
			if errors.Is(err, session.ErrNotFound) {
				return newError(ErrorCodeNotFound, "session not found", err)
			}
			return newError(ErrorCodeInternal, "failed to load session", err)
		}

		line, _, ok := s.checkReferral(ctx, sessionID, query)
		if !ok {
			return newError(ErrorCodeInternal, "referral lookup failed", nil)
		}

		msg, err := s.store.AppendMessage(sessionID, roleMonger, line)
		if err != nil {
			return newError(ErrorCodeInternal, "failed to record reply", err)
		}
		out, err = s.outcomeFor(sessionID, msg, "neutral")
		return err
	})
	return out, err
}

// MarkTimeWaster blocks the visitor behind the session and ends the
// conversation.
func (s *Service) MarkTimeWaster(ctx context.Context, sessionID string) (TurnOutcome, error) {
	var out TurnOutcome
	err := s.store.WithLock(sessionID, func() error {
		sess, err := s.store.Get(sessionID)
		if err != nil {
			if errors.Is(err, session.ErrNotFound) {
				return newError(ErrorCodeNotFound, "session not found", err)
			}
			return newError(ErrorCodeInternal, "failed to load session", err)
		}

		if _, err := s.customers.MarkBlocked(ctx, sess.CustomerID, s.BlockDuration); err != nil {
			return newError(ErrorCodeInternal, "failed to block customer", err)
		}
		out, err = s.blockedTurn(sessionID)
		return err
	})
	return out, err
}

// CompletePurchase is the webhook-driven terminal transition. It is
// idempotent: a session already complete is returned unchanged.
func (s *Service) CompletePurchase(ctx context.Context, sessionID string) (model.Session, error) {
	var snapshot model.Session
	err := s.store.WithLock(sessionID, func() error {
		sess, err := s.store.Get(sessionID)
		if err != nil {
			if errors.Is(err, session.ErrNotFound) {
				return newError(ErrorCodeNotFound, "session not found", err)
			}
			return newError(ErrorCodeInternal, "failed to load session", err)
		}

		if sess.Phase == model.PhasePurchaseComplete {
			snapshot = sess
			return nil
		}

		if err := s.store.Update(sessionID, func(live *model.Session) error {
			live.Phase = model.PhasePurchaseComplete
			return nil
		}); err != nil {
			return newError(ErrorCodeInternal, "failed to complete purchase", err)
		}
		if _, err := s.store.AppendMessage(sessionID, roleMonger, purchaseCompleteLine); err != nil {
			return newError(ErrorCodeInternal, "failed to record reply", err)
		}

		snapshot, err = s.store.Get(sessionID)
		if err != nil {
			return newError(ErrorCodeInternal, "failed to load session", err)
		}
		return nil
	})
	return snapshot, err
}

// Snapshot returns a copy of the session for read-only rendering.
func (s *Service) Snapshot(ctx context.Context, sessionID string) (model.Session, UIHints, error) {
	sess, err := s.store.Get(sessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return model.Session{}, UIHints{}, newError(ErrorCodeNotFound, "session not found", err)
		}
		return model.Session{}, UIHints{}, newError(ErrorCodeInternal, "failed to load session", err)
	}
	return sess, hintsFor(&sess), nil
}

func (s *Service) outcomeFor(sessionID string, msg model.SessionMessage, mood string) (TurnOutcome, error) {
	sess, err := s.store.Get(sessionID)
	if err != nil {
		return TurnOutcome{}, newError(ErrorCodeInternal, "failed to load session", err)
	}
	return TurnOutcome{
		SessionID: sess.SessionID,
		Reply:     msg,
		Mode:      sess.Mode,
		Phase:     sess.Phase,
		Mood:      mood,
		Collected: sess.Collected,
		Checkout:  sess.Checkout,
		Referral:  sess.Referral,
		Hints:     hintsFor(&sess),
	}, nil
}

func (s *Service) loadCustomer(ctx context.Context, customerID string) model.CustomerItem {
	cust, err := s.customers.Get(ctx, customerID)
	if err != nil {
		logger.Logger.Warn().Err(err).Str("customerId", customerID).Msg("customer load failed, treating as stranger")
		return model.CustomerItem{CustomerID: customerID}
	}
	return cust
}

func (s *Service) summaryFor(cust model.CustomerItem, sess model.Session) engine.CustomerSummary {
	return engine.CustomerSummary{
		TotalShirtsBought: cust.ShirtsBought,
		IsRepeatBuyer:     cust.ShirtsBought > 0,
		IsTimeWaster:      cust.BlockedUntil != "",
		ReferralStatus:    sess.Referral.Tier,
	}
}

func (s *Service) history(sessionID string) []engine.Message {
	msgs, err := s.store.RecentMessages(sessionID, s.historyWindow)
	if err != nil {
		return nil
	}
	out := make([]engine.Message, 0, len(msgs))
	for _, m := range msgs {
		role := "assistant"
		if m.Role == roleVisitor {
			role = "user"
		}
		out = append(out, engine.Message{Role: role, Content: m.Content})
	}
	return out
}
