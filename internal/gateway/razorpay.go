package gateway

import (
	"context"
	"fmt"

	razorpay "github.com/razorpay/razorpay-go"
)

// Gateway creates payment-gateway orders. Signature verification lives in
// the payment service, next to the secrets.
type Gateway interface {
	CreateOrder(ctx context.Context, amount int64, currency, receipt string) (string, error)
}

type razorpayGateway struct {
	client *razorpay.Client
}

func NewRazorpay(keyID, keySecret string) Gateway {
	return &razorpayGateway{client: razorpay.NewClient(keyID, keySecret)}
}

// CreateOrder registers an order with Razorpay and returns the gateway
// order id. Amount is in paise. The underlying SDK does not take a
// context; ctx is accepted for interface symmetry.
func (g *razorpayGateway) CreateOrder(_ context.Context, amount int64, currency, receipt string) (string, error) {
	data := map[string]interface{}{
		"amount":   amount,
		"currency": currency,
		"receipt":  receipt,
	}

	body, err := g.client.Order.Create(data, nil)
	if err != nil {
		return "", fmt.Errorf("razorpay order create: %w", err)
	}

	id, ok := body["id"].(string)
	if !ok || id == "" {
		return "", fmt.Errorf("razorpay order create: response has no order id")
	}
	return id, nil
}
