// Hortal - Bakery Ordering and Realtime Order Sync
// Copyright 2026 Padaria Hortal
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/padaria-hortal/hortal

// Package loyalty computes the customer tier from the number of
// completed orders. The table is fixed; there is no configuration and
// no state, tiers are derived on every read.
package loyalty

import "math"

// Tier is one row of the loyalty table.
type Tier struct {
	Name      string `json:"name"`
	Emoji     string `json:"emoji"`
	MinOrders int    `json:"min_orders"`
}

// Tiers is ordered by ascending MinOrders.
var Tiers = []Tier{
	{Name: "Novo Cliente", Emoji: "🌱", MinOrders: 0},
	{Name: "Cliente Frequente", Emoji: "☕", MinOrders: 3},
	{Name: "Apreciador", Emoji: "⭐", MinOrders: 8},
	{Name: "Conhecedor", Emoji: "🧁", MinOrders: 15},
	{Name: "Explorador Gourmet", Emoji: "🏅", MinOrders: 25},
	{Name: "Cliente Ouro", Emoji: "🥇", MinOrders: 40},
	{Name: "Cliente Diamante", Emoji: "💎", MinOrders: 60},
	{Name: "Embaixador Hortal", Emoji: "👑", MinOrders: 85},
	{Name: "Lenda da Padaria", Emoji: "🌟", MinOrders: 120},
	{Name: "Família Hortal", Emoji: "🏠", MinOrders: 170},
}

// Status is the derived tier view for one customer.
type Status struct {
	Current Tier `json:"current"`

	// Next is nil at the top tier.
	Next *Tier `json:"next,omitempty"`

	// Progress is the percentage toward Next, 0 to 100. Pinned to 100
	// at the top tier.
	Progress int `json:"progress"`

	// Remaining is how many completed orders are still needed to reach
	// Next. Zero at the top tier.
	Remaining int `json:"remaining"`
}

// Compute derives the tier status from the completed order count.
// Negative counts are treated as zero.
func Compute(completedOrders int) Status {
	if completedOrders < 0 {
		completedOrders = 0
	}

	current := Tiers[0]
	var next *Tier
	for i := len(Tiers) - 1; i >= 0; i-- {
		if completedOrders >= Tiers[i].MinOrders {
			current = Tiers[i]
			if i+1 < len(Tiers) {
				n := Tiers[i+1]
				next = &n
			}
			break
		}
	}

	status := Status{Current: current, Next: next, Progress: 100}
	if next != nil {
		tierRange := next.MinOrders - current.MinOrders
		done := completedOrders - current.MinOrders
		pct := int(math.Round(float64(done) / float64(tierRange) * 100))
		if pct > 100 {
			pct = 100
		}
		status.Progress = pct
		status.Remaining = next.MinOrders - completedOrders
	}
	return status
}
