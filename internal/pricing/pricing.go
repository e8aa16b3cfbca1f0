// Package pricing derives the four cart price fields from a list of cart lines.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/flicky/go-storefront/internal/config"
	"github.com/flicky/go-storefront/internal/model"
)

var hundred = decimal.NewFromInt(100)

type Prices struct {
	ItemsPrice    decimal.Decimal
	ShippingPrice decimal.Decimal
	TaxPrice      decimal.Decimal
	TotalPrice    decimal.Decimal
}

type Calculator struct {
	FreeShippingThreshold decimal.Decimal
	ShippingFee           decimal.Decimal
	TaxRate               decimal.Decimal
}

func NewCalculator(cfg config.PricingConfig) *Calculator {
	return &Calculator{
		FreeShippingThreshold: cfg.FreeShippingThreshold,
		ShippingFee:           cfg.ShippingFee,
		TaxRate:               cfg.TaxRate,
	}
}

// Default matches the storefront's stock settings: free shipping above 100.00,
// otherwise 10.00, and 15% tax.
func Default() *Calculator {
	return &Calculator{
		FreeShippingThreshold: hundred,
		ShippingFee:           decimal.NewFromInt(10),
		TaxRate:               decimal.RequireFromString("0.15"),
	}
}

func (c *Calculator) Calculate(items []model.CartItem) Prices {
	itemsPrice := decimal.Zero
	for _, item := range items {
		itemsPrice = itemsPrice.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	itemsPrice = Round2(itemsPrice)

	shippingPrice := Round2(c.ShippingFee)
	if itemsPrice.GreaterThan(c.FreeShippingThreshold) {
		shippingPrice = decimal.Zero
	}

	taxPrice := Round2(itemsPrice.Mul(c.TaxRate))

	return Prices{
		ItemsPrice:    itemsPrice,
		ShippingPrice: shippingPrice,
		TaxPrice:      taxPrice,
		TotalPrice:    Round2(itemsPrice.Add(shippingPrice).Add(taxPrice)),
	}
}

// Apply recomputes and stores the derived price fields on the cart.
func (c *Calculator) Apply(cart *model.Cart) {
	p := c.Calculate(cart.Items)
	cart.ItemsPrice = p.ItemsPrice
	cart.ShippingPrice = p.ShippingPrice
	cart.TaxPrice = p.TaxPrice
	cart.TotalPrice = p.TotalPrice
}

// Round2 rounds half away from zero to two decimal places.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Format renders an amount as a fixed two-decimal string.
func Format(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// ToMinorUnits converts an amount to cents after rounding to two places.
func ToMinorUnits(d decimal.Decimal) int64 {
	return Round2(d).Mul(hundred).IntPart()
}

func FromMinorUnits(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}
