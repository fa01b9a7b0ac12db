package model

import (
	"strings"
	"time"
	"unicode/utf8"
)

type Mode string

const (
	ModeConversation Mode = "conversation"
	ModeDiagnostic   Mode = "diagnostic"
)

type Phase string

const (
	PhaseCollecting         Phase = "collecting"
	PhaseCheckoutStarted    Phase = "checkout_started"
	PhaseCollectingShipping Phase = "collecting_shipping"
	PhaseReadyForPayment    Phase = "ready_for_payment"
	PhasePurchaseComplete   Phase = "purchase_complete"
	PhaseBlocked            Phase = "blocked"
)

// Collected holds the three things the monger needs before checkout.
// Empty string means not collected yet.
type Collected struct {
	HasAffirmation bool   `json:"hasAffirmation"`
	Size           string `json:"size,omitempty"`
	Phrase         string `json:"phrase,omitempty"`
}

// Complete reports whether all three pieces are in hand. This conjunction is
// re-verified locally on every readiness claim; the dialogue engine's flag is
// never trusted on its own.
func (c Collected) Complete() bool {
	return c.HasAffirmation && c.Size != "" && c.Phrase != ""
}

type ShippingAddress struct {
	Name    string `json:"name,omitempty"`
	Line1   string `json:"line1,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	Zip     string `json:"zip,omitempty"`
	Country string `json:"country,omitempty"`
}

type Checkout struct {
	Shipping ShippingAddress `json:"shipping"`
	Email    string          `json:"email,omitempty"`
}

// Complete reports whether every field needed to hand off to the payment
// provider is present. Country is defaulted, not required.
func (c Checkout) Complete() bool {
	s := c.Shipping
	return s.Name != "" && s.Line1 != "" && s.City != "" && s.State != "" &&
		s.Zip != "" && c.Email != ""
}

type Referral struct {
	ReferrerQuery string `json:"referrerQuery,omitempty"`
	ReferrerName  string `json:"referrerName,omitempty"`
	MatchType     string `json:"matchType,omitempty"`
	DiscountCode  string `json:"discountCode,omitempty"`
	Tier          string `json:"tier,omitempty"`
	Discount      int    `json:"discount,omitempty"`
}

type SessionMessage struct {
	MessageID string    `json:"messageId"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Session is one ephemeral conversational visit. It lives only in process
// memory and is evicted by the TTL sweeper; the durable facts about the
// visitor live on CustomerItem.
type Session struct {
	SessionID      string           `json:"sessionId"`
	CustomerID     string           `json:"customerId"`
	Mode           Mode             `json:"mode"`
	Phase          Phase            `json:"phase"`
	Collected      Collected        `json:"collected"`
	Checkout       Checkout         `json:"checkout"`
	Referral       Referral         `json:"referral"`
	Messages       []SessionMessage `json:"messages,omitempty"`
	CreatedAt      time.Time        `json:"createdAt"`
	LastActivityAt time.Time        `json:"lastActivityAt"`
}

// Clone returns a deep copy so callers can read session state outside the
// store's per-id lock without aliasing the message slice.
func (s Session) Clone() Session {
	out := s
	if len(s.Messages) > 0 {
		out.Messages = make([]SessionMessage, len(s.Messages))
		copy(out.Messages, s.Messages)
	}
	return out
}

var sizeAliases = map[string]string{
	"xs": "xs", "extra small": "xs", "extra-small": "xs",
	"s": "s", "small": "s",
	"m": "m", "medium": "m",
	"l": "l", "large": "l",
	"xl": "xl", "extra large": "xl", "extra-large": "xl",
	"2xl": "2xl", "xxl": "2xl", "2x": "2xl",
}

// NormalizeSize coerces free-form size text to one of the six canonical
// tokens. Unknown input returns the empty string.
func NormalizeSize(raw string) string {
	return sizeAliases[strings.ToLower(strings.TrimSpace(raw))]
}

const MaxPhraseLength = 500

// ClampPhrase trims and truncates a custom phrase to the printable budget.
// The limit counts characters, not bytes, so a multibyte phrase is never cut
// mid-rune.
func ClampPhrase(raw string) string {
	phrase := strings.TrimSpace(raw)
	if utf8.RuneCountInString(phrase) > MaxPhraseLength {
		runes := []rune(phrase)
		phrase = string(runes[:MaxPhraseLength])
	}
	return phrase
}
