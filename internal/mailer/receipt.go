package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/shopspring/decimal"

	"github.com/flicky/go-storefront/internal/model"
	"github.com/flicky/go-storefront/internal/pricing"
)

var receiptTmpl = template.Must(template.New("receipt").Funcs(template.FuncMap{
	"money": func(d decimal.Decimal) string { return "$" + pricing.Format(d) },
	"date":  func(t time.Time) string { return t.Format("Jan 2, 2006") },
	"short": func(s string) string {
		if len(s) > 8 {
			return s[len(s)-8:]
		}
		return s
	},
}).Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif">
<h2>{{.AppName}}: thanks for your purchase!</h2>
<table>
<tr><td>Order ID</td><td>{{short .Order.ID.String}}</td></tr>
<tr><td>Purchase date</td><td>{{date .Order.CreatedAt}}</td></tr>
<tr><td>Price paid</td><td>{{money .Order.TotalPrice}}</td></tr>
</table>
<hr>
<table>
{{range .Order.Items}}<tr><td>{{.Name}}</td><td>{{.Quantity}} x {{money .Price}}</td></tr>
{{end}}</table>
<hr>
<table>
<tr><td>Items</td><td>{{money .Order.ItemsPrice}}</td></tr>
<tr><td>Tax</td><td>{{money .Order.TaxPrice}}</td></tr>
<tr><td>Shipping</td><td>{{money .Order.ShippingPrice}}</td></tr>
<tr><td><b>Total</b></td><td><b>{{money .Order.TotalPrice}}</b></td></tr>
</table>
</body>
</html>
`))

// RenderReceipt returns the subject and HTML body of an order receipt.
func RenderReceipt(appName string, order *model.Order) (string, string, error) {
	var buf bytes.Buffer
	data := struct {
		AppName string
		Order   *model.Order
	}{appName, order}
	if err := receiptTmpl.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("render receipt: %w", err)
	}
	return fmt.Sprintf("Order Confirmation %s", order.ID), buf.String(), nil
}
