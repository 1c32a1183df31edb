// Package razorpay wraps the Razorpay SDK for plan checkouts: order creation
// plus payment and webhook signature checks.
package razorpay

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	razorpay "github.com/razorpay/razorpay-go"
	"github.com/razorpay/razorpay-go/utils"

	"github.com/angelmondragon/gigdesk-backend/pkg/config"
	"github.com/angelmondragon/gigdesk-backend/pkg/logger"
)

var (
	errKeyIDRequired     = errors.New("razorpay key id is required")
	errKeySecretRequired = errors.New("razorpay key secret is required")
)

type orderCreator interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

// Client holds Razorpay credentials and the order API.
type Client struct {
	orders        orderCreator
	keyID         string
	keySecret     string
	webhookSecret string
}

// Order is a created Razorpay order, ready for the client-side checkout widget.
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

func NewClient(ctx context.Context, cfg config.RazorpayConfig, logg *logger.Logger) (*Client, error) {
	keyID := strings.TrimSpace(cfg.KeyID)
	if keyID == "" {
		return nil, errKeyIDRequired
	}
	keySecret := strings.TrimSpace(cfg.KeySecret)
	if keySecret == "" {
		return nil, errKeySecretRequired
	}

	api := razorpay.NewClient(keyID, keySecret)

	if logg != nil {
		mode := "live"
		if strings.HasPrefix(keyID, "rzp_test_") {
			mode = "test"
		}
		logg.Info(ctx, fmt.Sprintf("razorpay client initialized (%s)", mode))
	}

	return &Client{
		orders:        api.Order,
		keyID:         keyID,
		keySecret:     keySecret,
		webhookSecret: strings.TrimSpace(cfg.WebhookSecret),
	}, nil
}

// KeyID is the publishable key the frontend checkout needs.
func (c *Client) KeyID() string {
	if c == nil {
		return ""
	}
	return c.keyID
}

// SigningSecret returns the webhook secret.
func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.webhookSecret
}

// CreateOrder creates an order for amountMinor paise. Notes travel back on
// payment webhooks.
func (c *Client) CreateOrder(_ context.Context, amountMinor int64, currency, receipt string, notes map[string]string) (*Order, error) {
	if amountMinor <= 0 {
		return nil, errors.New("order amount must be positive")
	}
	data := map[string]interface{}{
		"amount":   amountMinor,
		"currency": strings.ToUpper(currency),
		"receipt":  receipt,
	}
	if len(notes) > 0 {
		n := make(map[string]interface{}, len(notes))
		for k, v := range notes {
			n[k] = v
		}
		data["notes"] = n
	}

	body, err := c.orders.Create(data, nil)
	if err != nil {
		return nil, fmt.Errorf("create razorpay order: %w", err)
	}
	return orderFromMap(body)
}

// VerifyPaymentSignature checks the checkout callback signature, an HMAC of
// "order_id|payment_id" keyed with the API secret.
func (c *Client) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	if orderID == "" || paymentID == "" || signature == "" {
		return false
	}
	return utils.VerifySignature([]byte(orderID+"|"+paymentID), signature, c.keySecret)
}

// VerifyWebhookSignature checks the X-Razorpay-Signature header against the raw body.
func VerifyWebhookSignature(body []byte, signature, secret string) bool {
	if secret == "" || signature == "" {
		return false
	}
	return utils.VerifyWebhookSignature(string(body), signature, secret)
}

// Sign computes the hex HMAC-SHA256 Razorpay uses for both callbacks and webhooks.
func Sign(payload, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

func orderFromMap(body map[string]interface{}) (*Order, error) {
	id, _ := body["id"].(string)
	if id == "" {
		return nil, errors.New("razorpay order response missing id")
	}
	order := &Order{ID: id}
	order.Currency, _ = body["currency"].(string)
	order.Receipt, _ = body["receipt"].(string)
	order.Status, _ = body["status"].(string)
	switch amount := body["amount"].(type) {
	case float64:
		order.Amount = int64(amount)
	case int64:
		order.Amount = amount
	case int:
		order.Amount = int64(amount)
	}
	return order, nil
}
