package pricing

import (
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flicky/go-storefront/internal/model"
)

func item(price string, qty int) model.CartItem {
	return model.CartItem{ProductID: uuid.New(), Price: decimal.RequireFromString(price), Quantity: qty}
}

func TestRound2_HalfAwayFromZero(t *testing.T) {
	assert.Equal(t, "5.13", Round2(decimal.RequireFromString("5.125")).StringFixed(2))
	assert.Equal(t, "-5.13", Round2(decimal.RequireFromString("-5.125")).StringFixed(2))
	assert.Equal(t, "0.30", Round2(decimal.NewFromFloat(0.1).Add(decimal.NewFromFloat(0.2))).StringFixed(2))
	assert.Equal(t, "0.30", Round2(decimal.NewFromFloat(0.1+0.2)).StringFixed(2))
	assert.Equal(t, "15.00", Round2(decimal.RequireFromString("14.997")).StringFixed(2))
}

func TestCalculate_Example(t *testing.T) {
	p := Default().Calculate([]model.CartItem{item("49.99", 2)})

	assert.Equal(t, "99.98", Format(p.ItemsPrice))
	assert.Equal(t, "10.00", Format(p.ShippingPrice))
	assert.Equal(t, "15.00", Format(p.TaxPrice))
	assert.Equal(t, "124.98", Format(p.TotalPrice))
}

func TestCalculate_ShippingThreshold(t *testing.T) {
	calc := Default()

	atThreshold := calc.Calculate([]model.CartItem{item("100.00", 1)})
	assert.Equal(t, "10.00", Format(atThreshold.ShippingPrice))

	above := calc.Calculate([]model.CartItem{item("100.01", 1)})
	assert.True(t, above.ShippingPrice.IsZero())
	assert.Equal(t, "115.01", Format(above.TotalPrice))
}

func TestCalculate_Empty(t *testing.T) {
	p := Default().Calculate(nil)
	assert.True(t, p.ItemsPrice.IsZero())
	assert.Equal(t, "10.00", Format(p.ShippingPrice))
	assert.True(t, p.TaxPrice.IsZero())
	assert.Equal(t, "10.00", Format(p.TotalPrice))
}

func TestCalculate_RandomizedSums(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	calc := Default()

	for run := 0; run < 64; run++ {
		n := rng.Intn(6) + 1
		items := make([]model.CartItem, 0, n)
		expected := decimal.Zero
		for i := 0; i < n; i++ {
			price := decimal.New(rng.Int63n(50000), -2)
			qty := rng.Intn(5)
			items = append(items, model.CartItem{ProductID: uuid.New(), Price: price, Quantity: qty})
			expected = expected.Add(price.Mul(decimal.NewFromInt(int64(qty))))
		}

		p := calc.Calculate(items)
		require.True(t, p.ItemsPrice.Equal(Round2(expected)), "run %d items price", run)
		require.True(t, p.TotalPrice.Equal(Round2(p.ItemsPrice.Add(p.ShippingPrice).Add(p.TaxPrice))), "run %d total", run)
		require.True(t, p.TaxPrice.Equal(Round2(p.ItemsPrice.Mul(calc.TaxRate))), "run %d tax", run)
		if p.ItemsPrice.GreaterThan(calc.FreeShippingThreshold) {
			require.True(t, p.ShippingPrice.IsZero(), "run %d shipping", run)
		} else {
			require.True(t, p.ShippingPrice.Equal(calc.ShippingFee), "run %d shipping", run)
		}
	}
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(12498), ToMinorUnits(decimal.RequireFromString("124.98")))
	assert.Equal(t, "124.98", Format(FromMinorUnits(12498)))
}
