package model

const (
	CustomersTable = "MongerCustomers"
	ReferralsTable = "MongerReferrals"
	OrdersTable    = "MongerOrders"
)

// CustomerItem is the long-lived anonymous visitor record. It survives across
// sessions; the session only carries its id.
type CustomerItem struct {
	CustomerID     string `dynamodbav:"customerId"`
	ShirtsBought   int    `dynamodbav:"shirtsBought"`
	LastPurchaseAt string `dynamodbav:"lastPurchaseAt,omitempty"`
	BlockedUntil   string `dynamodbav:"blockedUntil,omitempty"`
	CreatedAt      string `dynamodbav:"createdAt"`
	LastSeenAt     string `dynamodbav:"lastSeenAt"`
}

// ReferralItem is one known buyer in the monger's network, keyed by the
// normalized lookup query (email, phone digits, or lowercased name). Written
// by the fulfillment side; the backend only reads it.
type ReferralItem struct {
	QueryKey       string `dynamodbav:"queryKey"`
	Name           string `dynamodbav:"name"`
	Nickname       string `dynamodbav:"nickname,omitempty"`
	TotalPurchases int    `dynamodbav:"totalPurchases"`
	IsVip          bool   `dynamodbav:"isVip"`
	UpdatedAt      string `dynamodbav:"updatedAt,omitempty"`
}

// OrderItem archives a completed purchase, keyed by the payment intent id.
// The conditional write of this row is the webhook idempotency gate: an intent
// id archives exactly once, no matter how often the provider redelivers.
type OrderItem struct {
	OrderID      string `dynamodbav:"orderId"`
	SessionID    string `dynamodbav:"sessionId"`
	CustomerID   string `dynamodbav:"customerId"`
	AmountCents  int64  `dynamodbav:"amountCents"`
	Currency     string `dynamodbav:"currency"`
	Size         string `dynamodbav:"size"`
	Phrase       string `dynamodbav:"phrase"`
	DiscountCode string `dynamodbav:"discountCode,omitempty"`
	ShippingName string `dynamodbav:"shippingName"`
	Line1        string `dynamodbav:"line1"`
	City         string `dynamodbav:"city"`
	State        string `dynamodbav:"state"`
	Zip          string `dynamodbav:"zip"`
	Country      string `dynamodbav:"country"`
	Email        string `dynamodbav:"email"`
	CreatedAt    string `dynamodbav:"createdAt"`
}
