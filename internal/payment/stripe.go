package payment

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/bits"
	"strconv"

	"github.com/Alias1177/FixPredict/internal/apperr"
	"github.com/Alias1177/FixPredict/internal/config"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
	"github.com/stripe/stripe-go/v76/webhook"
)

// Checkout session metadata keys.
const (
	MetadataAccount = "account"
	MetadataTokens  = "tokens"
)

var (
	// ErrIgnoredEvent marks webhook events that carry no token purchase.
	ErrIgnoredEvent = errors.New("event carries no token purchase")
	// ErrNotPaid marks a completed checkout whose payment has not settled.
	ErrNotPaid = errors.New("checkout session not paid")
)

// Purchase is a settled token purchase.
type Purchase struct {
	Reference string // checkout session id, unique per purchase
	EventID   string
	Account   string
	Tokens    uint64
}

// StripeService handles Stripe payment operations
type StripeService struct {
	TokenPriceID  string
	WebhookSecret string
	TokensPerUnit uint64
	SuccessURL    string
	CancelURL     string
}

// NewStripeService creates a new Stripe payment service
func NewStripeService(cfg config.StripeConfig) *StripeService {
	stripe.Key = cfg.APIKey

	return &StripeService{
		TokenPriceID:  cfg.TokenPriceID,
		WebhookSecret: cfg.WebhookSecret,
		TokensPerUnit: cfg.TokensPerUnit,
		SuccessURL:    cfg.SuccessURL,
		CancelURL:     cfg.CancelURL,
	}
}

// TokensFor returns how many FIX tokens units of the price buy.
func (s *StripeService) TokensFor(units uint64) (uint64, error) {
	hi, tokens := bits.Mul64(units, s.TokensPerUnit)
	if hi != 0 {
		return 0, fmt.Errorf("%d units: %w", units, apperr.ErrOverflow)
	}
	if tokens == 0 {
		return 0, fmt.Errorf("purchase of %d units buys nothing: %w", units, apperr.ErrInvalidInput)
	}
	return tokens, nil
}

// SessionParams builds the checkout parameters for account buying units.
func (s *StripeService) SessionParams(account string, units uint64) (*stripe.CheckoutSessionParams, error) {
	if account == "" {
		return nil, fmt.Errorf("empty account: %w", apperr.ErrInvalidInput)
	}
	if s.TokenPriceID == "" {
		return nil, fmt.Errorf("stripe token price id not configured: %w", apperr.ErrInvalidInput)
	}
	tokens, err := s.TokensFor(units)
	if err != nil {
		return nil, err
	}

	return &stripe.CheckoutSessionParams{
		SuccessURL: stripe.String(s.SuccessURL),
		CancelURL:  stripe.String(s.CancelURL),
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(s.TokenPriceID),
				Quantity: stripe.Int64(int64(units)),
			},
		},
		Metadata: map[string]string{
			MetadataAccount: account,
			MetadataTokens:  strconv.FormatUint(tokens, 10),
		},
	}, nil
}

// CreateCheckoutSession creates a Stripe checkout for account buying units of
// the token price. It returns the session id and the payment URL.
func (s *StripeService) CreateCheckoutSession(account string, units uint64) (string, string, error) {
	params, err := s.SessionParams(account, units)
	if err != nil {
		return "", "", err
	}

	sess, err := session.New(params)
	if err != nil {
		return "", "", err
	}
	return sess.ID, sess.URL, nil
}

// VerifyWebhookSignature verifies the signature of a Stripe webhook event
func (s *StripeService) VerifyWebhookSignature(payload []byte, signature string) (*stripe.Event, error) {
	event, err := webhook.ConstructEvent(payload, signature, s.WebhookSecret)
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// ParseTokenPurchase extracts the purchase from a paid checkout event.
func ParseTokenPurchase(event *stripe.Event) (Purchase, error) {
	switch event.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
	default:
		return Purchase{}, fmt.Errorf("%s: %w", event.Type, ErrIgnoredEvent)
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return Purchase{}, fmt.Errorf("failed to parse checkout session: %w", err)
	}
	if sess.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		return Purchase{}, fmt.Errorf("session %s is %s: %w", sess.ID, sess.PaymentStatus, ErrNotPaid)
	}

	account := sess.Metadata[MetadataAccount]
	if account == "" {
		return Purchase{}, fmt.Errorf("session %s: %s not found in metadata: %w", sess.ID, MetadataAccount, apperr.ErrInvalidInput)
	}
	tokens, err := strconv.ParseUint(sess.Metadata[MetadataTokens], 10, 64)
	if err != nil || tokens == 0 {
		return Purchase{}, fmt.Errorf("session %s: invalid %s %q: %w", sess.ID, MetadataTokens, sess.Metadata[MetadataTokens], apperr.ErrInvalidInput)
	}

	return Purchase{
		Reference: sess.ID,
		EventID:   event.ID,
		Account:   account,
		Tokens:    tokens,
	}, nil
}
