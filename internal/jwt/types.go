package jwt

// Identity is the anonymous visitor identity carried in the cookie token.
// There are no accounts; the id is minted on first contact and reused for
// repeat-buyer and time-waster tracking.
type Identity struct {
	CustomerID string `json:"customerId"`
}
