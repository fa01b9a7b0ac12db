package engine

import (
	"strings"

	"monger-backend/internal/model"
)

var validMoods = map[string]bool{
	"suspicious": true,
	"uneasy":     true,
	"neutral":    true,
	"warm":       true,
}

// NormalizeMood coerces backend mood output to a known value; anything
// unrecognized becomes neutral.
func NormalizeMood(raw string) string {
	mood := strings.ToLower(strings.TrimSpace(raw))
	if !validMoods[mood] {
		return "neutral"
	}
	return mood
}

// normalizeTurnResult applies total defaults to a decoded backend payload.
// The backend is treated as unreliable: partial, malformed, or stale output
// must never produce an invalid TurnResult.
func normalizeTurnResult(resp chatResponse) TurnResult {
	state := resp.State

	out := TurnResult{
		Reply: strings.TrimSpace(resp.Reply),
		Collected: model.Collected{
			HasAffirmation: state.HasAffirmation,
			Size:           model.NormalizeSize(stringValue(state.Size)),
			Phrase:         model.ClampPhrase(stringValue(state.Phrase)),
		},
		ReadyForCheckout:   state.ReadyForCheckout,
		ReadyForPayment:    state.ReadyForPayment,
		Mood:               NormalizeMood(state.Mood),
		WantsReferralCheck: strings.TrimSpace(stringValue(state.WantsReferralCheck)),
	}

	shipping := state.Checkout.Shipping
	out.Checkout = model.Checkout{
		Shipping: model.ShippingAddress{
			Name:    strings.TrimSpace(stringValue(shipping.Name)),
			Line1:   strings.TrimSpace(stringValue(shipping.Line1)),
			City:    strings.TrimSpace(stringValue(shipping.City)),
			State:   strings.TrimSpace(stringValue(shipping.State)),
			Zip:     strings.TrimSpace(stringValue(shipping.Zip)),
			Country: strings.TrimSpace(stringValue(shipping.Country)),
		},
		Email: strings.ToLower(strings.TrimSpace(stringValue(state.Checkout.Email))),
	}
	if out.Checkout.Shipping.Country == "" {
		out.Checkout.Shipping.Country = "US"
	}

	return out
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
