package fulfillment

import (
	"context"
	"fmt"
	"strings"

	"github.com/resendlabs/resend-go"

	"monger-backend/internal/env"
	"monger-backend/internal/model"
)

// Notifier sends the order confirmation to the buyer and a copy to the print
// shop. Email is best effort; the caller logs failures and moves on.
type Notifier interface {
	OrderConfirmation(ctx context.Context, order model.OrderItem) error
}

type ResendNotifier struct {
	client          *resend.Client
	fromAddress     string
	fulfillmentAddr string
}

func NewResendNotifier() (*ResendNotifier, error) {
	apiKey := env.Get(env.ResendAPIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("resend api key not configured")
	}
	return &ResendNotifier{
		client:          resend.NewClient(apiKey),
		fromAddress:     "Monger <orders@monger.example>",
		fulfillmentAddr: env.Get(env.FulfillmentEmail),
	}, nil
}

func (n *ResendNotifier) OrderConfirmation(ctx context.Context, order model.OrderItem) error {
	to := []string{}
	if order.Email != "" {
		to = append(to, order.Email)
	}
	if n.fulfillmentAddr != "" {
		to = append(to, n.fulfillmentAddr)
	}
	if len(to) == 0 {
		return fmt.Errorf("order %s has no recipient", order.OrderID)
	}

	params := &resend.SendEmailRequest{
		From:    n.fromAddress,
		To:      to,
		Subject: fmt.Sprintf("order %s. it's done.", order.OrderID),
		Text:    orderConfirmationBody(order),
	}

	if _, err := n.client.Emails.Send(params); err != nil {
		return fmt.Errorf("send order confirmation: %w", err)
	}
	return nil
}

func orderConfirmationBody(order model.OrderItem) string {
	var b strings.Builder
	fmt.Fprintf(&b, "one shirt, size %s.\n", order.Size)
	fmt.Fprintf(&b, "it says: %q\n\n", order.Phrase)
	if order.DiscountCode != "" {
		fmt.Fprintf(&b, "discount applied: %s\n", order.DiscountCode)
	}
	fmt.Fprintf(&b, "ships to:\n%s\n%s\n%s, %s %s\n%s\n",
		order.ShippingName, order.Line1, order.City, order.State, order.Zip, order.Country)
	fmt.Fprintf(&b, "\norder %s.  don't ask when it arrives.\n", order.OrderID)
	return b.String()
}
