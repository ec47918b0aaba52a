// Hortal - Bakery Ordering and Realtime Order Sync
// Copyright 2026 Padaria Hortal
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/padaria-hortal/hortal

package sync

import (
	"testing"
	"time"

	"github.com/padaria-hortal/hortal/internal/models"
)

func provisional(text, sender string) models.Message {
	return models.Message{
		ID:       models.NewTempMessageID(time.Now()),
		SenderID: sender,
		Text:     text,
	}
}

func TestConfirmMessage(t *testing.T) {
	temp := provisional("oi", "cust-1")
	stored := models.Message{ID: "m1", SenderID: "cust-1", Text: "oi"}

	t.Run("replaces provisional by temp id", func(t *testing.T) {
		msgs := confirmMessage([]models.Message{temp}, temp.ID, stored)
		if len(msgs) != 1 || msgs[0].ID != "m1" {
			t.Errorf("messages = %+v, want single stored row", msgs)
		}
	})

	t.Run("noop when realtime already replaced it", func(t *testing.T) {
		msgs := confirmMessage([]models.Message{stored}, temp.ID, stored)
		if len(msgs) != 1 || msgs[0].ID != "m1" {
			t.Errorf("messages = %+v, want unchanged", msgs)
		}
	})

	t.Run("appends when provisional vanished", func(t *testing.T) {
		msgs := confirmMessage(nil, temp.ID, stored)
		if len(msgs) != 1 || msgs[0].ID != "m1" {
			t.Errorf("messages = %+v, want appended stored row", msgs)
		}
	})
}

func TestMergeMessage(t *testing.T) {
	temp := provisional("oi", "cust-1")
	stored := models.Message{ID: "m1", SenderID: "cust-1", Text: "oi"}

	t.Run("dedup by id", func(t *testing.T) {
		msgs := mergeMessage([]models.Message{stored}, stored)
		if len(msgs) != 1 {
			t.Errorf("messages = %+v, want no duplicate", msgs)
		}
	})

	t.Run("replaces matching provisional", func(t *testing.T) {
		msgs := mergeMessage([]models.Message{temp}, stored)
		if len(msgs) != 1 || msgs[0].ID != "m1" {
			t.Errorf("messages = %+v, want provisional replaced", msgs)
		}
	})

	t.Run("text match alone is not enough", func(t *testing.T) {
		other := provisional("oi", "cust-2")
		msgs := mergeMessage([]models.Message{other}, stored)
		if len(msgs) != 2 {
			t.Errorf("messages = %+v, want append (different sender)", msgs)
		}
	})

	t.Run("never replaces a confirmed row", func(t *testing.T) {
		confirmed := models.Message{ID: "m0", SenderID: "cust-1", Text: "oi"}
		msgs := mergeMessage([]models.Message{confirmed}, stored)
		if len(msgs) != 2 {
			t.Errorf("messages = %+v, want append (no provisional present)", msgs)
		}
	})

	t.Run("appends unrelated", func(t *testing.T) {
		msgs := mergeMessage([]models.Message{temp}, models.Message{ID: "m2", SenderID: "admin-1", Text: "olá"})
		if len(msgs) != 2 {
			t.Errorf("messages = %+v, want 2", msgs)
		}
	})
}

func TestRemoveMessage(t *testing.T) {
	temp := provisional("oi", "cust-1")
	msgs := removeMessage([]models.Message{temp, {ID: "m1"}}, temp.ID)
	if len(msgs) != 1 || msgs[0].ID != "m1" {
		t.Errorf("messages = %+v, want provisional removed", msgs)
	}
}
