// Hortal - Bakery Ordering and Realtime Order Sync
// Copyright 2026 Padaria Hortal
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/padaria-hortal/hortal

package cep

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"01310-100", "01310100", false},
		{"01310100", "01310100", false},
		{" 01.310-100 ", "01310100", false},
		{"1310100", "", true},
		{"013101000", "", true},
		{"abcdefgh", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Normalize(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Normalize(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/ws/01310100/json/":
			_, _ = w.Write([]byte(`{"cep":"01310-100","logradouro":"Avenida Paulista","bairro":"Bela Vista","localidade":"São Paulo","uf":"SP"}`))
		case "/ws/99999999/json/":
			_, _ = w.Write([]byte(`{"erro":true}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)

	t.Run("known code", func(t *testing.T) {
		addr, err := c.Lookup(context.Background(), "01310-100")
		if err != nil {
			t.Fatalf("Lookup: %v", err)
		}
		if addr.Street != "Avenida Paulista" || addr.Neighborhood != "Bela Vista" ||
			addr.City != "São Paulo" || addr.State != "SP" {
			t.Errorf("Lookup = %+v", addr)
		}
	})

	t.Run("unknown code", func(t *testing.T) {
		_, err := c.Lookup(context.Background(), "99999-999")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("Lookup error = %v, want ErrNotFound", err)
		}
	})

	t.Run("invalid input rejected before the network", func(t *testing.T) {
		_, err := c.Lookup(context.Background(), "123")
		if !errors.Is(err, ErrInvalidCEP) {
			t.Errorf("Lookup error = %v, want ErrInvalidCEP", err)
		}
	})

	t.Run("upstream failure surfaces", func(t *testing.T) {
		_, err := c.Lookup(context.Background(), "00000000")
		if err == nil {
			t.Error("expected error from 404")
		}
	})
}
