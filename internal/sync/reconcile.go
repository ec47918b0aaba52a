// Hortal - Bakery Ordering and Realtime Order Sync
// Copyright 2026 Padaria Hortal
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/padaria-hortal/hortal

package sync

import "github.com/padaria-hortal/hortal/internal/models"

// removeMessage drops the entry with the given ID.
func removeMessage(msgs []models.Message, id string) []models.Message {
	out := msgs[:0]
	for _, m := range msgs {
		if m.ID != id {
			out = append(out, m)
		}
	}
	return out
}

// confirmMessage resolves the send path: the provisional entry with
// tempID becomes the stored row. When the realtime event already
// replaced it, the confirmation is a no-op; when the provisional entry
// vanished entirely the stored row is appended so the send is not lost.
func confirmMessage(msgs []models.Message, tempID string, stored models.Message) []models.Message {
	for i := range msgs {
		if msgs[i].ID == tempID {
			msgs[i] = stored
			return msgs
		}
	}
	for i := range msgs {
		if msgs[i].ID == stored.ID {
			return msgs
		}
	}
	return append(msgs, stored)
}

// mergeMessage resolves the receive path: confirmed rows dedup strictly
// by ID; a confirmed row may replace one provisional entry carrying the
// same text and sender (the realtime event winning the race against the
// send path's confirmation); otherwise it appends.
func mergeMessage(msgs []models.Message, incoming models.Message) []models.Message {
	for i := range msgs {
		if msgs[i].ID == incoming.ID {
			return msgs
		}
	}
	for i := range msgs {
		if msgs[i].IsProvisional() && msgs[i].Text == incoming.Text && msgs[i].SenderID == incoming.SenderID {
			msgs[i] = incoming
			return msgs
		}
	}
	return append(msgs, incoming)
}
