// Hortal - Bakery Ordering and Realtime Order Sync
// Copyright 2026 Padaria Hortal
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/padaria-hortal/hortal

package receipt

import (
	"strings"
	"testing"
	"time"

	"github.com/padaria-hortal/hortal/internal/models"
)

func testReceiptOrder() *models.Order {
	return &models.Order{
		ID:            "f3a9c1d2-7b44-4e1c-9d0a-551234567890",
		CustomerName:  "Maria Silva",
		CustomerPhone: "(17) 98888-7777",
		Address: models.Address{
			Street:       "Rua das Flores",
			Number:       "123",
			Neighborhood: "Centro",
			City:         "Bebedouro",
		},
		Items: []models.OrderItem{
			{Name: "Pão Francês", Price: 0.75, Quantity: 10},
			{Name: "Bolo de Fubá", Price: 16.00, Quantity: 1},
		},
		Subtotal:      23.50,
		DeliveryFee:   8.50,
		Total:         32.00,
		PaymentMethod: models.PaymentMoney,
		PaymentDetail: "troco para 50",
		CreatedAt:     time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
	}
}

func TestBuildHTML(t *testing.T) {
	got := BuildHTML(testReceiptOrder())

	for _, want := range []string{
		"Padaria Hortal",
		"Pedido #7890",
		"<b>PEDIDO:</b> #7890",
		"14/03/2026 09:30:00",
		"Maria Silva",
		"(17) 98888-7777",
		"Rua das Flores, 123<br/>Centro - Bebedouro",
		"10x Pão Francês",
		"R$ 7,50",
		"1x Bolo de Fubá",
		"R$ 16,00",
		"DINHEIRO (troco para 50)",
		"R$ 23,50",
		"R$ 8,50",
		"R$ 32,00",
		"Este cupom não tem valor fiscal.",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("receipt missing %q", want)
		}
	}
}

func TestBuildHTMLEscapesCustomerText(t *testing.T) {
	o := testReceiptOrder()
	o.CustomerName = `<script>alert("x")</script>`
	got := BuildHTML(o)

	if strings.Contains(got, "<script>") {
		t.Error("customer name not escaped")
	}
	if !strings.Contains(got, "&lt;script&gt;") {
		t.Error("escaped customer name missing")
	}
}

func TestPaymentLabelFallsBackToUppercase(t *testing.T) {
	o := testReceiptOrder()
	o.PaymentMethod = "voucher"
	o.PaymentDetail = ""

	if got := BuildHTML(o); !strings.Contains(got, "<b>PAGAMENTO:</b> VOUCHER") {
		t.Error("unknown payment method not uppercased")
	}
}

func TestFormatCurrency(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "R$ 0,00"},
		{0.75, "R$ 0,75"},
		{32, "R$ 32,00"},
		{1234.5, "R$ 1234,50"},
	}
	for _, tt := range tests {
		if got := FormatCurrency(tt.in); got != tt.want {
			t.Errorf("FormatCurrency(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestShortID(t *testing.T) {
	if got := ShortID("abc"); got != "abc" {
		t.Errorf("ShortID short input = %q", got)
	}
	if got := ShortID("f3a9c1d2-7890"); got != "7890" {
		t.Errorf("ShortID = %q, want 7890", got)
	}
}
