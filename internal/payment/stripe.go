package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/paymentintent"

	"github.com/flicky/go-storefront/internal/config"
	"github.com/flicky/go-storefront/internal/pricing"
)

const (
	testEnv = "test"
	liveEnv = "live"
)

var errInvalidStripeEnv = fmt.Errorf("stripe environment must be %q or %q", testEnv, liveEnv)

type intentAPI interface {
	New(ctx context.Context, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	Capture(ctx context.Context, id string, params *stripe.PaymentIntentCaptureParams) (*stripe.PaymentIntent, error)
}

type intentClient struct{}

func (intentClient) New(ctx context.Context, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	params.Context = ctx
	return paymentintent.New(params)
}

func (intentClient) Capture(ctx context.Context, id string, params *stripe.PaymentIntentCaptureParams) (*stripe.PaymentIntent, error) {
	params.Context = ctx
	return paymentintent.Capture(id, params)
}

// Stripe opens manual-capture PaymentIntents so the browser confirms the card
// and the server captures the authorized amount later.
type Stripe struct {
	api      intentAPI
	currency string
}

func NewStripe(cfg config.StripeConfig) (*Stripe, error) {
	if !cfg.Enabled() {
		return nil, ErrNotConfigured
	}
	key := strings.TrimSpace(cfg.SecretKey)
	if err := validateStripeKey(cfg.Environment, key); err != nil {
		return nil, err
	}
	stripe.Key = key
	return &Stripe{api: intentClient{}, currency: strings.ToLower(cfg.Currency)}, nil
}

func validateStripeKey(rawEnv, key string) error {
	env := strings.ToLower(strings.TrimSpace(rawEnv))
	if env == "" {
		env = testEnv
	}
	switch env {
	case testEnv:
		if strings.HasPrefix(key, "sk_test") || strings.HasPrefix(key, "rk_test") {
			return nil
		}
		return fmt.Errorf("stripe environment %q requires a test secret key (sk_test/rk_test)", testEnv)
	case liveEnv:
		if strings.HasPrefix(key, "sk_live") || strings.HasPrefix(key, "rk_live") {
			return nil
		}
		return fmt.Errorf("stripe environment %q requires a live secret key (sk_live/rk_live)", liveEnv)
	default:
		return errInvalidStripeEnv
	}
}

func (s *Stripe) CreateOrder(ctx context.Context, reference string, amount decimal.Decimal) (*Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(pricing.ToMinorUnits(amount)),
		Currency:      stripe.String(s.currency),
		CaptureMethod: stripe.String(string(stripe.PaymentIntentCaptureMethodManual)),
	}
	params.AddMetadata("order_id", reference)

	pi, err := s.api.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("stripe create payment intent: %w", err)
	}
	return &Intent{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

func (s *Stripe) Capture(ctx context.Context, externalID string) (*Capture, error) {
	pi, err := s.api.Capture(ctx, externalID, &stripe.PaymentIntentCaptureParams{})
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) {
			return nil, fmt.Errorf("stripe capture %s: %s: %w", externalID, stripeErr.Code, err)
		}
		return nil, fmt.Errorf("stripe capture %s: %w", externalID, err)
	}

	out := &Capture{ID: pi.ID, Status: string(pi.Status), PayerEmail: pi.ReceiptEmail, Amount: pricing.FromMinorUnits(pi.AmountReceived)}
	if pi.Status == stripe.PaymentIntentStatusSucceeded {
		out.Status = StatusCompleted
	}
	if out.PayerEmail == "" && pi.LatestCharge != nil && pi.LatestCharge.BillingDetails != nil {
		out.PayerEmail = pi.LatestCharge.BillingDetails.Email
	}
	return out, nil
}
