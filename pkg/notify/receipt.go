package notify

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/example/storefront/pkg/models"
)

var receiptTemplate = template.Must(template.New("receipt").Funcs(template.FuncMap{
	"money": func(v float64) string { return fmt.Sprintf("$%.2f", v) },
	"date":  func(o *models.Order) string { return o.CreatedAt.Format("2006-01-02") },
}).Parse(`<h1>Thanks for shopping with us</h1>
<p>Hi {{.User.Name}},</p>
<p>We have finished processing your order.</p>
<h2>[Order {{.Order.ID.Hex}}] ({{date .Order}})</h2>
<table>
<thead>
<tr><td><strong>Product</strong></td><td><strong>Quantity</strong></td><td align="right"><strong>Price</strong></td></tr>
</thead>
<tbody>
{{range .Order.OrderItems}}<tr><td>{{.Name}}</td><td align="center">{{.Quantity}}</td><td align="right">{{money .Price}}</td></tr>
{{end}}</tbody>
<tfoot>
<tr><td colspan="2">Items Price:</td><td align="right">{{money .Order.ItemsPrice}}</td></tr>
<tr><td colspan="2">Shipping Price:</td><td align="right">{{money .Order.ShippingPrice}}</td></tr>
<tr><td colspan="2">Tax Price:</td><td align="right">{{money .Order.TaxPrice}}</td></tr>
<tr><td colspan="2"><strong>Total Price:</strong></td><td align="right"><strong>{{money .Order.TotalPrice}}</strong></td></tr>
<tr><td colspan="2">Payment Method:</td><td align="right">{{.Order.PaymentMethod}}</td></tr>
</tfoot>
</table>
<h2>Shipping address</h2>
<p>{{with .Order.ShippingAddress}}{{.FullName}},<br/>{{.Address}},<br/>{{.City}},<br/>{{.Country}},<br/>{{.PostalCode}}{{end}}</p>
<hr/>
<p>Thanks for shopping with us.</p>
`))

// Receipt renders the payment confirmation email for order.
func Receipt(from string, order *models.Order, user *models.User) (Message, error) {
	var body bytes.Buffer
	if err := receiptTemplate.Execute(&body, struct {
		Order *models.Order
		User  *models.User
	}{order, user}); err != nil {
		return Message{}, fmt.Errorf("render receipt: %w", err)
	}
	return Message{
		From:    from,
		To:      fmt.Sprintf("%s <%s>", user.Name, user.Email),
		Subject: fmt.Sprintf("New order %s", order.ID.Hex()),
		HTML:    body.String(),
	}, nil
}
