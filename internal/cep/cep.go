// Hortal - Bakery Ordering and Realtime Order Sync
// Copyright 2026 Padaria Hortal
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/padaria-hortal/hortal

// Package cep resolves Brazilian postal codes to street addresses via
// the ViaCEP service, used by the profile and checkout address forms.
package cep

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

var (
	// ErrInvalidCEP is returned for input that is not eight digits.
	ErrInvalidCEP = errors.New("cep: must be eight digits")

	// ErrNotFound is returned when the service does not know the code.
	ErrNotFound = errors.New("cep: not found")
)

const defaultBaseURL = "https://viacep.com.br"

// Address is the resolved location for a postal code.
type Address struct {
	CEP          string `json:"cep"`
	Street       string `json:"street"`
	Neighborhood string `json:"neighborhood"`
	City         string `json:"city"`
	State        string `json:"state"`
}

// Client queries the ViaCEP API.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient builds a lookup client. baseURL is optional; empty uses
// the public service.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
	}
}

// Normalize strips formatting characters and validates the code.
func Normalize(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	clean := b.String()
	if len(clean) != 8 {
		return "", ErrInvalidCEP
	}
	return clean, nil
}

// viaCEPResponse mirrors the upstream payload. The service answers 200
// with an "erro" flag for unknown codes.
type viaCEPResponse struct {
	CEP          string `json:"cep"`
	Street       string `json:"logradouro"`
	Neighborhood string `json:"bairro"`
	City         string `json:"localidade"`
	State        string `json:"uf"`
	Erro         bool   `json:"erro"`
}

// Lookup resolves a postal code. raw may carry punctuation, it is
// normalized first.
func (c *Client) Lookup(ctx context.Context, raw string) (*Address, error) {
	clean, err := Normalize(raw)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/ws/%s/json/", c.baseURL, clean)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lookup cep: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("lookup cep: status %d", resp.StatusCode)
	}

	var decoded viaCEPResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode cep response: %w", err)
	}
	if decoded.Erro {
		return nil, ErrNotFound
	}

	return &Address{
		CEP:          decoded.CEP,
		Street:       decoded.Street,
		Neighborhood: decoded.Neighborhood,
		City:         decoded.City,
		State:        decoded.State,
	}, nil
}
