package payment

import (
	"context"
	"fmt"

	"github.com/plutov/paypal/v4"
	"github.com/shopspring/decimal"

	"github.com/flicky/go-storefront/internal/config"
	"github.com/flicky/go-storefront/internal/pricing"
)

type paypalAPI interface {
	CreateOrder(ctx context.Context, intent string, units []paypal.PurchaseUnitRequest,
		payer *paypal.CreateOrderPayer, app *paypal.ApplicationContext) (*paypal.Order, error)
	CaptureOrder(ctx context.Context, orderID string, req paypal.CaptureOrderRequest) (*paypal.CaptureOrderResponse, error)
}

// PayPal drives the Orders v2 API: an order is created with intent CAPTURE and
// captured after the buyer approves it.
type PayPal struct {
	api      paypalAPI
	currency string
}

func NewPayPal(cfg config.PayPalConfig) (*PayPal, error) {
	if !cfg.Enabled() {
		return nil, ErrNotConfigured
	}
	client, err := paypal.NewClient(cfg.ClientID, cfg.Secret, cfg.APIBase)
	if err != nil {
		return nil, fmt.Errorf("paypal client: %w", err)
	}
	return &PayPal{api: client, currency: cfg.Currency}, nil
}

func (p *PayPal) CreateOrder(ctx context.Context, reference string, amount decimal.Decimal) (*Intent, error) {
	order, err := p.api.CreateOrder(ctx, paypal.OrderIntentCapture, []paypal.PurchaseUnitRequest{{
		ReferenceID: reference,
		Amount:      &paypal.PurchaseUnitAmount{Currency: p.currency, Value: pricing.Format(amount)},
	}}, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("paypal create order: %w", err)
	}
	return &Intent{ID: order.ID}, nil
}

func (p *PayPal) Capture(ctx context.Context, externalID string) (*Capture, error) {
	resp, err := p.api.CaptureOrder(ctx, externalID, paypal.CaptureOrderRequest{})
	if err != nil {
		return nil, fmt.Errorf("paypal capture order: %w", err)
	}

	out := &Capture{ID: resp.ID, Status: resp.Status}
	if resp.Payer != nil {
		out.PayerEmail = resp.Payer.EmailAddress
	}
	if len(resp.PurchaseUnits) > 0 {
		if pays := resp.PurchaseUnits[0].Payments; pays != nil && len(pays.Captures) > 0 && pays.Captures[0].Amount != nil {
			out.Amount, err = decimal.NewFromString(pays.Captures[0].Amount.Value)
			if err != nil {
				return nil, fmt.Errorf("paypal captured amount %q: %w", pays.Captures[0].Amount.Value, err)
			}
		}
	}
	return out, nil
}
