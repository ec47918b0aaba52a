// Hortal - Bakery Ordering and Realtime Order Sync
// Copyright 2026 Padaria Hortal
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/padaria-hortal/hortal

package models

import "time"

// Role separates the two access levels of the application.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleCustomer || r == RoleAdmin
}

// Profile is a registered user. CashbackBalance is a simple running number,
// not an append-only ledger; adjustments overwrite the previous value with no
// transactional audit trail.
type Profile struct {
	ID              string    `json:"id"`
	Name            string    `json:"name" validate:"required"`
	Email           string    `json:"email" validate:"required,email"`
	Phone           string    `json:"phone"`
	CPF             string    `json:"cpf"`
	Role            Role      `json:"role"`
	CashbackBalance float64   `json:"cashback_balance"`
	Address         Address   `json:"address"`
	PasswordHash    string    `json:"password_hash,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// Public returns a copy safe to serialize to clients, with the password hash
// stripped.
func (p Profile) Public() Profile {
	p.PasswordHash = ""
	return p
}

// IsAdmin reports whether the profile has the admin role.
func (p *Profile) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// Settings holds the admin-tunable storefront parameters.
type Settings struct {
	DeliveryFee        float64 `json:"delivery_fee"`
	MinOrderValue      float64 `json:"min_order_value"`
	CashbackPercentage float64 `json:"cashback_percentage"`
}

// DefaultSettings returns the storefront defaults used until an admin saves
// their own values.
func DefaultSettings() Settings {
	return Settings{
		DeliveryFee:        8.50,
		MinOrderValue:      20.00,
		CashbackPercentage: 0.05,
	}
}
