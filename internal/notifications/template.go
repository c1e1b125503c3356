package notifications

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"github.com/angelmondragon/sunrise-backend/pkg/mail"
	"github.com/angelmondragon/sunrise-backend/pkg/outbox/payloads"
	"github.com/shopspring/decimal"
)

const confirmationText = `Thanks for your order!

Order {{.ShortID}}
Delivery: {{.DeliveryDate}} at {{.DeliveryTime}}
Address: {{.DeliveryAddress}}
{{range .Items}}
{{.Quantity}} x {{.Name}}  {{money .LineTotalCents}}{{if .Additions}}
  + {{join .Additions ", "}}{{end}}{{if .Subtractions}}
  - {{join .Subtractions ", "}}{{end}}{{if .Note}}
  note: {{.Note}}{{end}}{{end}}

Subtotal:     {{money .SubtotalCents}}
Tax:          {{money .TaxCents}}
Delivery fee: {{money .DeliveryFeeCents}}
Tip:          {{money .TipCents}}
Total:        {{money .TotalCents}}
`

const confirmationHTML = `<h2>Thanks for your order!</h2>
<p>Order <strong>{{.ShortID}}</strong><br>
Delivery {{.DeliveryDate}} at {{.DeliveryTime}}<br>
{{.DeliveryAddress}}</p>
<table>
{{range .Items}}<tr><td>{{.Quantity}} &times; {{.Name}}{{if .Additions}}<br><small>+ {{join .Additions ", "}}</small>{{end}}{{if .Subtractions}}<br><small>- {{join .Subtractions ", "}}</small>{{end}}</td><td>{{money .LineTotalCents}}</td></tr>
{{end}}<tr><td>Subtotal</td><td>{{money .SubtotalCents}}</td></tr>
<tr><td>Tax</td><td>{{money .TaxCents}}</td></tr>
<tr><td>Delivery fee</td><td>{{money .DeliveryFeeCents}}</td></tr>
<tr><td>Tip</td><td>{{money .TipCents}}</td></tr>
<tr><td><strong>Total</strong></td><td><strong>{{money .TotalCents}}</strong></td></tr>
</table>
`

var templateFuncs = map[string]any{
	"money": formatCents,
	"join":  strings.Join,
}

var (
	textTmpl = texttemplate.Must(texttemplate.New("confirmation.txt").Funcs(templateFuncs).Parse(confirmationText))
	htmlTmpl = htmltemplate.Must(htmltemplate.New("confirmation.html").Funcs(templateFuncs).Parse(confirmationHTML))
)

type confirmationView struct {
	payloads.OrderCreatedEvent
	ShortID string
}

func renderConfirmation(event payloads.OrderCreatedEvent) (mail.Message, error) {
	view := confirmationView{
		OrderCreatedEvent: event,
		ShortID:           strings.ToUpper(event.OrderID.String()[:8]),
	}

	var text, html bytes.Buffer
	if err := textTmpl.Execute(&text, view); err != nil {
		return mail.Message{}, err
	}
	if err := htmlTmpl.Execute(&html, view); err != nil {
		return mail.Message{}, err
	}

	return mail.Message{
		To:        strings.TrimSpace(event.PurchaserEmail),
		Subject:   fmt.Sprintf("Your Sunrise breakfast order %s", view.ShortID),
		PlainText: text.String(),
		HTML:      html.String(),
	}, nil
}

func formatCents(cents int64) string {
	return "$" + decimal.New(cents, -2).StringFixed(2)
}
