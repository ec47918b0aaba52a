// Hortal - Bakery Ordering and Realtime Order Sync
// Copyright 2026 Padaria Hortal
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/padaria-hortal/hortal

package validation

import (
	"strings"
	"testing"
)

type statusUpdateRequest struct {
	Status string `validate:"required,orderstatus"`
}

type checkoutRequest struct {
	PaymentMethod string `validate:"required,payment"`
	ZipCode       string `validate:"omitempty,cep"`
}

func TestOrderStatusValidator(t *testing.T) {
	tests := []struct {
		status string
		ok     bool
	}{
		{"received", true},
		{"preparing", true},
		{"delivery", true},
		{"completed", true},
		{"cancelled", true},
		{"shipped", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			err := ValidateStruct(&statusUpdateRequest{Status: tt.status})
			if tt.ok && err != nil {
				t.Errorf("status %q should validate, got %v", tt.status, err)
			}
			if !tt.ok && err == nil {
				t.Errorf("status %q should fail validation", tt.status)
			}
		})
	}
}

func TestPaymentAndCEPValidators(t *testing.T) {
	if err := ValidateStruct(&checkoutRequest{PaymentMethod: "pix", ZipCode: "01310-100"}); err != nil {
		t.Errorf("valid request rejected: %v", err)
	}
	if err := ValidateStruct(&checkoutRequest{PaymentMethod: "pix", ZipCode: "01310100"}); err != nil {
		t.Errorf("cep without dash should validate: %v", err)
	}
	if err := ValidateStruct(&checkoutRequest{PaymentMethod: "bitcoin"}); err == nil {
		t.Error("unknown payment method should fail")
	}
	if err := ValidateStruct(&checkoutRequest{PaymentMethod: "card", ZipCode: "123"}); err == nil {
		t.Error("short cep should fail")
	}
}

func TestToAPIErrorAggregatesFields(t *testing.T) {
	err := ValidateStruct(&checkoutRequest{PaymentMethod: "bogus", ZipCode: "nope"})
	if err == nil {
		t.Fatal("expected validation failure")
	}

	apiErr := err.ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("code = %q, want VALIDATION_ERROR", apiErr.Code)
	}
	if len(err.Errors()) != 2 {
		t.Errorf("expected 2 field errors, got %d", len(err.Errors()))
	}
	if !strings.Contains(apiErr.Message, "PaymentMethod") {
		t.Errorf("message should name the failed field, got %q", apiErr.Message)
	}
}
