// Hortal - Bakery Ordering and Realtime Order Sync
// Copyright 2026 Padaria Hortal
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/padaria-hortal/hortal

// Package receipt renders the printable 80mm order coupon.
package receipt

import (
	"fmt"
	"html"
	"strings"

	"github.com/padaria-hortal/hortal/internal/models"
)

const (
	appName     = "Padaria Hortal"
	appSubtitle = "Pães artesanais e delícias caseiras"
	appPhone    = "(17) 99253-7394"
)

var paymentLabels = map[models.PaymentMethod]string{
	models.PaymentPix:   "PIX",
	models.PaymentMoney: "DINHEIRO",
	models.PaymentCard:  "CARTÃO",
}

// FormatCurrency renders a BRL amount with a comma decimal separator.
func FormatCurrency(v float64) string {
	return "R$ " + strings.ReplaceAll(fmt.Sprintf("%.2f", v), ".", ",")
}

// ShortID is the four character order reference printed on the coupon.
func ShortID(id string) string {
	if len(id) <= 4 {
		return id
	}
	return id[len(id)-4:]
}

func paymentLabel(o *models.Order) string {
	label, ok := paymentLabels[o.PaymentMethod]
	if !ok {
		label = strings.ToUpper(string(o.PaymentMethod))
	}
	if o.PaymentDetail != "" {
		label += fmt.Sprintf(" (%s)", html.EscapeString(o.PaymentDetail))
	}
	return label
}

// BuildHTML renders the coupon for a thermal printer page. All
// customer-provided text is escaped.
func BuildHTML(o *models.Order) string {
	var items strings.Builder
	for _, item := range o.Items {
		fmt.Fprintf(&items, `
      <tr>
        <td style="padding: 5px 0;">%dx %s</td>
        <td style="text-align: right; padding: 5px 0;">%s</td>
      </tr>`,
			item.Quantity, html.EscapeString(item.Name), FormatCurrency(item.Price*float64(item.Quantity)))
	}

	address := fmt.Sprintf("%s, %s<br/>%s - %s",
		html.EscapeString(o.Address.Street),
		html.EscapeString(o.Address.Number),
		html.EscapeString(o.Address.Neighborhood),
		html.EscapeString(o.Address.City))

	return fmt.Sprintf(`<html>
  <head>
    <title>Pedido #%[1]s</title>
    <style>
      body { font-family: 'Courier New', Courier, monospace; width: 80mm; margin: 0 auto; padding: 10px; font-size: 12px; color: #000; }
      .center { text-align: center; }
      .bold { font-weight: bold; }
      .dashed { border-top: 1px dashed #000; margin: 10px 0; }
      table { width: 100%%; border-collapse: collapse; }
      .total-row { font-size: 14px; font-weight: bold; }
      .footer { margin-top: 20px; font-size: 10px; }
    </style>
  </head>
  <body>
    <div class="center bold" style="font-size: 16px;">%[2]s</div>
    <div class="center">%[3]s</div>
    <div class="center">Tel: %[4]s</div>
    <div class="dashed"></div>
    <div><b>PEDIDO:</b> #%[1]s</div>
    <div><b>DATA:</b> %[5]s</div>
    <div class="dashed"></div>
    <div><b>CLIENTE:</b> %[6]s</div>
    <div><b>TEL:</b> %[7]s</div>
    <div><b>ENDEREÇO:</b><br/>%[8]s</div>
    <div class="dashed"></div>
    <table>
      <thead><tr><th style="text-align: left;">QTD ITEM</th><th style="text-align: right;">VALOR</th></tr></thead>
      <tbody>%[9]s</tbody>
    </table>
    <div class="dashed"></div>
    <div><b>PAGAMENTO:</b> %[10]s</div>
    <div class="dashed"></div>
    <div style="display: flex; justify-content: space-between;"><span>Subtotal:</span><span>%[11]s</span></div>
    <div style="display: flex; justify-content: space-between;"><span>Taxa Entrega:</span><span>%[12]s</span></div>
    <div class="total-row" style="display: flex; justify-content: space-between; margin-top: 5px;"><span>TOTAL:</span><span>%[13]s</span></div>
    <div class="dashed"></div>
    <div class="center footer">Obrigado pela preferência!<br/>Este cupom não tem valor fiscal.</div>
  </body>
</html>`,
		ShortID(o.ID),
		appName,
		appSubtitle,
		appPhone,
		o.CreatedAt.Format("02/01/2006 15:04:05"),
		html.EscapeString(o.CustomerName),
		html.EscapeString(o.CustomerPhone),
		address,
		items.String(),
		paymentLabel(o),
		FormatCurrency(o.Subtotal),
		FormatCurrency(o.DeliveryFee),
		FormatCurrency(o.Total),
	)
}
