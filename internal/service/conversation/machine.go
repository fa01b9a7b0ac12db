package conversation

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"monger-backend/internal/engine"
	"monger-backend/internal/model"
)

// Fixed lines spoken without consulting the dialogue backend.
const (
	blockedLine          = "out.  come back when you're serious."
	diagnosticEnterLine  = "[diagnostic] entering diagnostic mode. commands: state, stats, health, help. say \"exit diagnostic\" to resume."
	diagnosticExitLine   = "[diagnostic] leaving diagnostic mode. transcript cleared, order intact."
	purchaseCompleteLine = "it's done.  wear it or don't."
)

var diagnosticEnterTriggers = []string{"diagnostic", "enter diagnostic mode"}
var diagnosticExitTriggers = []string{"exit diagnostic", "exit diagnostic mode"}

// matchesTrigger accepts input that equals a trigger or begins with one at a
// word boundary, modulo case, surrounding space, and trailing punctuation.
// "enter diagnostic mode please" matches; "diagnostics" must not.
func matchesTrigger(input string, triggers []string) bool {
	normalized := strings.ToLower(strings.TrimSpace(input))
	normalized = strings.TrimRight(normalized, ".!?")
	normalized = strings.TrimSpace(normalized)
	for _, t := range triggers {
		if normalized == t {
			return true
		}
		if strings.HasPrefix(normalized, t) {
			r, _ := utf8.DecodeRuneInString(normalized[len(t):])
			if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
				return true
			}
		}
	}
	return false
}

func isDiagnosticEntry(input string) bool {
	return matchesTrigger(input, diagnosticEnterTriggers)
}

func isDiagnosticExit(input string) bool {
	return matchesTrigger(input, diagnosticExitTriggers)
}

// inCheckout reports whether the phase puts the dialogue backend into
// shipping-collection mode.
func inCheckout(phase model.Phase) bool {
	switch phase {
	case model.PhaseCheckoutStarted, model.PhaseCollectingShipping, model.PhaseReadyForPayment:
		return true
	}
	return false
}

// mergeTurn folds a backend result into the session without ever regressing:
// a set field is only replaced by another non-empty value, never cleared.
func mergeTurn(s *model.Session, result engine.TurnResult) {
	if result.Collected.HasAffirmation {
		s.Collected.HasAffirmation = true
	}
	if result.Collected.Size != "" {
		s.Collected.Size = result.Collected.Size
	}
	if result.Collected.Phrase != "" {
		s.Collected.Phrase = result.Collected.Phrase
	}

	mergeField(&s.Checkout.Shipping.Name, result.Checkout.Shipping.Name)
	mergeField(&s.Checkout.Shipping.Line1, result.Checkout.Shipping.Line1)
	mergeField(&s.Checkout.Shipping.City, result.Checkout.Shipping.City)
	mergeField(&s.Checkout.Shipping.State, result.Checkout.Shipping.State)
	mergeField(&s.Checkout.Shipping.Zip, result.Checkout.Shipping.Zip)
	mergeField(&s.Checkout.Shipping.Country, result.Checkout.Shipping.Country)
	mergeField(&s.Checkout.Email, result.Checkout.Email)
}

func mergeField(dst *string, src string) {
	if src != "" {
		*dst = src
	}
}

// advancePhase applies the backend's readiness claims after local
// verification. A claimed flag whose backing fields are missing is discarded
// and reported so the caller can degrade the reply; the phase never moves on
// an unverified claim.
func advancePhase(s *model.Session, result engine.TurnResult) (unverified bool) {
	if result.ReadyForPayment && inCheckout(s.Phase) {
		if s.Collected.Complete() && s.Checkout.Complete() {
			s.Phase = model.PhaseReadyForPayment
			return false
		}
		unverified = true
	}

	if result.ReadyForCheckout && s.Phase == model.PhaseCollecting {
		if s.Collected.Complete() {
			s.Phase = model.PhaseCheckoutStarted
			return false
		}
		unverified = true
	}

	// once shipping collection has begun, reflect that in the phase
	if s.Phase == model.PhaseCheckoutStarted && partialShipping(s.Checkout) {
		s.Phase = model.PhaseCollectingShipping
	}

	return unverified
}

func partialShipping(c model.Checkout) bool {
	s := c.Shipping
	return s.Name != "" || s.Line1 != "" || s.City != "" || s.State != "" ||
		s.Zip != "" || c.Email != ""
}

// hintsFor derives render hints purely from session state.
func hintsFor(s *model.Session) UIHints {
	return UIHints{
		SkipTypewriter:  s.Mode == model.ModeDiagnostic,
		ShowPaymentForm: s.Phase == model.PhaseReadyForPayment,
		Blocked:         s.Phase == model.PhaseBlocked,
		InputDisabled:   s.Phase == model.PhaseBlocked,
	}
}
