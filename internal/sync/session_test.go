// Hortal - Bakery Ordering and Realtime Order Sync
// Copyright 2026 Padaria Hortal
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/padaria-hortal/hortal

package sync

import (
	"context"
	stdsync "sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/padaria-hortal/hortal/internal/devicecache"
	"github.com/padaria-hortal/hortal/internal/events"
	"github.com/padaria-hortal/hortal/internal/models"
	"github.com/padaria-hortal/hortal/internal/realtime"
	"github.com/padaria-hortal/hortal/internal/store"
)

// frameRecorder captures outbound frames for assertions.
type frameRecorder struct {
	mu     stdsync.Mutex
	frames []realtime.Outbound
}

func (r *frameRecorder) Send(msg realtime.Outbound) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, msg)
}

// last returns the most recent frame of the given type.
func (r *frameRecorder) last(frameType string) (realtime.Outbound, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.frames) - 1; i >= 0; i-- {
		if r.frames[i].Type == frameType {
			return r.frames[i], true
		}
	}
	return realtime.Outbound{}, false
}

// framesOf returns every frame of the given type, in send order.
func (r *frameRecorder) framesOf(frameType string) []realtime.Outbound {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []realtime.Outbound
	for _, f := range r.frames {
		if f.Type == frameType {
			out = append(out, f)
		}
	}
	return out
}

func (r *frameRecorder) count(frameType string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, f := range r.frames {
		if f.Type == frameType {
			n++
		}
	}
	return n
}

func lastOrders(t *testing.T, rec *frameRecorder) []models.Order {
	t.Helper()
	frame, ok := rec.last(FrameOrders)
	if !ok {
		t.Fatal("no orders frame sent")
	}
	orders, ok := frame.Data.([]models.Order)
	if !ok {
		t.Fatalf("orders frame data = %T", frame.Data)
	}
	return orders
}

func lastMessages(t *testing.T, rec *frameRecorder) []models.Message {
	t.Helper()
	frame, ok := rec.last(FrameMessages)
	if !ok {
		t.Fatal("no messages frame sent")
	}
	msgs, ok := frame.Data.([]models.Message)
	if !ok {
		t.Fatalf("messages frame data = %T", frame.Data)
	}
	return msgs
}

func newSessionStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(store.Config{InMemory: true}, nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedOrder(t *testing.T, st *store.Store, customerID string, status models.OrderStatus) *models.Order {
	t.Helper()
	o := &models.Order{
		CustomerID:    customerID,
		CustomerName:  "Maria Silva",
		Items:         []models.OrderItem{{ProductID: "p1", Name: "Pão Francês", Price: 0.75, Quantity: 10}},
		Subtotal:      7.50,
		DeliveryFee:   8.50,
		Total:         16.00,
		PaymentMethod: models.PaymentPix,
		Status:        status,
	}
	if err := st.CreateOrder(context.Background(), o); err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return o
}

func startSession(t *testing.T, st *store.Store, bus events.Bus, identity realtime.Identity) (*Session, *frameRecorder) {
	t.Helper()
	rec := &frameRecorder{}
	cfg := DefaultConfig()
	// Long intervals so the pollers stay quiet during assertions.
	cfg.OrderPollInterval = time.Hour
	cfg.MessagePollInterval = time.Hour
	s := NewSession(identity, st, bus, rec, cfg, nil)
	s.Start(context.Background())
	t.Cleanup(s.Close)
	return s, rec
}

func startSessionWithCache(t *testing.T, st *store.Store, identity realtime.Identity, cache SnapshotCache) (*Session, *frameRecorder) {
	t.Helper()
	rec := &frameRecorder{}
	cfg := DefaultConfig()
	cfg.OrderPollInterval = time.Hour
	cfg.MessagePollInterval = time.Hour
	s := NewSession(identity, st, nil, rec, cfg, cache)
	s.Start(context.Background())
	t.Cleanup(s.Close)
	return s, rec
}

func customerIdentity(id string) realtime.Identity {
	return realtime.Identity{ProfileID: id, Name: "Maria", Role: models.RoleCustomer}
}

func adminIdentity() realtime.Identity {
	return realtime.Identity{ProfileID: "admin-1", Name: "Dona Hortal", Role: models.RoleAdmin}
}

func TestSessionInitialSnapshotIsRoleFiltered(t *testing.T) {
	st := newSessionStore(t)
	seedOrder(t, st, "cust-1", models.StatusReceived)
	seedOrder(t, st, "cust-2", models.StatusReceived)

	_, rec := startSession(t, st, nil, customerIdentity("cust-1"))

	orders := lastOrders(t, rec)
	if len(orders) != 1 || orders[0].CustomerID != "cust-1" {
		t.Errorf("initial snapshot = %+v, want only cust-1 orders", orders)
	}
}

func TestOrderUpdatePatchesStatusAndCodeOnly(t *testing.T) {
	st := newSessionStore(t)
	o := seedOrder(t, st, "cust-1", models.StatusReceived)

	s, rec := startSession(t, st, nil, customerIdentity("cust-1"))

	// The event row carries a different customer name; only status and
	// delivery code may reach the view.
	row := *o
	row.Status = models.StatusPreparing
	row.DeliveryCode = "4321"
	row.CustomerName = "Someone Else"
	ev, err := events.NewChangeEvent(events.TableOrders, events.OpUpdate, o.ID, &row)
	if err != nil {
		t.Fatalf("NewChangeEvent: %v", err)
	}
	s.HandleEvent(realtime.Event{Change: ev})

	orders := lastOrders(t, rec)
	if orders[0].Status != models.StatusPreparing || orders[0].DeliveryCode != "4321" {
		t.Errorf("patch missed: %+v", orders[0])
	}
	if orders[0].CustomerName != "Maria Silva" {
		t.Errorf("patch leaked beyond status and code: name = %q", orders[0].CustomerName)
	}
}

func TestOrderInsertTriggersRefetch(t *testing.T) {
	st := newSessionStore(t)
	seedOrder(t, st, "cust-1", models.StatusReceived)

	s, rec := startSession(t, st, nil, customerIdentity("cust-1"))

	// A second order lands in the store after the initial snapshot; the
	// INSERT event must trigger a full refetch that picks it up.
	second := seedOrder(t, st, "cust-1", models.StatusReceived)
	ev, err := events.NewChangeEvent(events.TableOrders, events.OpInsert, second.ID, second)
	if err != nil {
		t.Fatalf("NewChangeEvent: %v", err)
	}
	s.HandleEvent(realtime.Event{Change: ev})

	if got := len(lastOrders(t, rec)); got != 2 {
		t.Errorf("orders after INSERT refetch = %d, want 2", got)
	}
}

func TestOrderDeleteWithKeyOnlyRowRefetches(t *testing.T) {
	st := newSessionStore(t)
	o := seedOrder(t, st, "cust-1", models.StatusReceived)

	s, rec := startSession(t, st, nil, customerIdentity("cust-1"))
	before := rec.count(FrameOrders)

	// A DELETE event carries only the row key. The refetch must still
	// run; the empty row is no reason to drop the event.
	ev, err := events.NewChangeEvent(events.TableOrders, events.OpDelete, o.ID, nil)
	if err != nil {
		t.Fatalf("NewChangeEvent: %v", err)
	}
	s.HandleEvent(realtime.Event{Change: ev})

	if rec.count(FrameOrders) != before+1 {
		t.Error("key-only DELETE did not trigger a refetch")
	}
}

func TestOrderUpdateForOtherCustomerIsIgnored(t *testing.T) {
	st := newSessionStore(t)
	seedOrder(t, st, "cust-1", models.StatusReceived)
	other := seedOrder(t, st, "cust-2", models.StatusReceived)

	s, rec := startSession(t, st, nil, customerIdentity("cust-1"))
	before := rec.count(FrameOrders)

	row := *other
	row.Status = models.StatusPreparing
	ev, err := events.NewChangeEvent(events.TableOrders, events.OpUpdate, other.ID, &row)
	if err != nil {
		t.Fatalf("NewChangeEvent: %v", err)
	}
	s.HandleEvent(realtime.Event{Change: ev})

	if rec.count(FrameOrders) != before {
		t.Error("event for another customer produced a frame")
	}
}

func TestStatusSyncNeverResurrectsTerminalOrders(t *testing.T) {
	st := newSessionStore(t)
	live := seedOrder(t, st, "cust-1", models.StatusReceived)
	done := seedOrder(t, st, "cust-1", models.StatusCompleted)

	s, rec := startSession(t, st, nil, customerIdentity("cust-1"))

	s.HandleEvent(realtime.Event{StatusSync: events.NewOrderStatusSyncEvent(done.ID, models.StatusPreparing)})
	s.HandleEvent(realtime.Event{StatusSync: events.NewOrderStatusSyncEvent(live.ID, models.StatusPreparing)})

	for _, o := range lastOrders(t, rec) {
		switch o.ID {
		case done.ID:
			if o.Status != models.StatusCompleted {
				t.Errorf("terminal order resurrected to %s", o.Status)
			}
		case live.ID:
			if o.Status != models.StatusPreparing {
				t.Errorf("live order status = %s, want preparing", o.Status)
			}
		}
	}

	t.Run("idempotent", func(t *testing.T) {
		before := rec.count(FrameOrders)
		s.HandleEvent(realtime.Event{StatusSync: events.NewOrderStatusSyncEvent(live.ID, models.StatusPreparing)})
		if rec.count(FrameOrders) != before {
			t.Error("repeated hint produced a frame")
		}
	})

	t.Run("unknown order ignored", func(t *testing.T) {
		before := rec.count(FrameOrders)
		s.HandleEvent(realtime.Event{StatusSync: events.NewOrderStatusSyncEvent("missing", models.StatusPreparing)})
		if rec.count(FrameOrders) != before {
			t.Error("hint for unknown order produced a frame")
		}
	})
}

func TestOptimisticSendConfirms(t *testing.T) {
	st := newSessionStore(t)
	s, rec := startSession(t, st, events.NewInProcBus(), customerIdentity("cust-1"))

	payload, _ := json.Marshal(sendMessagePayload{Text: "Tem pão de queijo?"})
	s.HandleInbound(realtime.Inbound{Type: CommandSendMessage, Data: payload})

	msgs := lastMessages(t, rec)
	if len(msgs) != 1 {
		t.Fatalf("messages = %d, want 1", len(msgs))
	}
	if msgs[0].IsProvisional() {
		t.Errorf("message still provisional after confirmation: %q", msgs[0].ID)
	}
	if msgs[0].Text != "Tem pão de queijo?" || msgs[0].CustomerID != "cust-1" {
		t.Errorf("confirmed message = %+v", msgs[0])
	}
}

func TestSendMessageRollsBackOnWriteFailure(t *testing.T) {
	st := newSessionStore(t)
	s, rec := startSession(t, st, nil, customerIdentity("cust-1"))

	// Closing the store makes the write fail after the optimistic append.
	_ = st.Close()

	payload, _ := json.Marshal(sendMessagePayload{Text: "oi"})
	s.HandleInbound(realtime.Inbound{Type: CommandSendMessage, Data: payload})

	if got := len(lastMessages(t, rec)); got != 0 {
		t.Errorf("messages after rollback = %d, want 0", got)
	}
	if _, ok := rec.last(FrameError); !ok {
		t.Error("failure not surfaced to the client")
	}
}

func TestRealtimeRaceReplacesProvisional(t *testing.T) {
	st := newSessionStore(t)
	s, rec := startSession(t, st, nil, customerIdentity("cust-1"))

	temp := models.Message{
		ID:         models.NewTempMessageID(time.Now()),
		SenderID:   "cust-1",
		CustomerID: "cust-1",
		Text:       "oi",
	}
	s.mu.Lock()
	s.messages = append(s.messages, temp)
	s.mu.Unlock()

	confirmed := models.Message{ID: "m1", SenderID: "cust-1", CustomerID: "cust-1", Text: "oi", CreatedAt: time.Now()}
	s.HandleEvent(realtime.Event{NewMessage: events.NewNewMessageEvent(confirmed)})

	msgs := lastMessages(t, rec)
	if len(msgs) != 1 || msgs[0].ID != "m1" {
		t.Errorf("messages = %+v, want provisional replaced by m1", msgs)
	}

	t.Run("duplicate event is a no-op", func(t *testing.T) {
		s.HandleEvent(realtime.Event{NewMessage: events.NewNewMessageEvent(confirmed)})
		if got := len(lastMessages(t, rec)); got != 1 {
			t.Errorf("messages after duplicate = %d, want 1", got)
		}
	})
}

func TestCachedSnapshotIsRoleFiltered(t *testing.T) {
	// The device cache is shared by every session on the machine, so an
	// admin's saved snapshot can hold threads from several customers.
	snapshot := []models.Message{
		{ID: "m1", SenderID: "cust-1", CustomerID: "cust-1", Text: "meu pedido", CreatedAt: time.Now()},
		{ID: "m2", SenderID: "cust-2", CustomerID: "cust-2", Text: "segredo", CreatedAt: time.Now()},
	}

	warmCache := func(t *testing.T) *devicecache.Cache {
		t.Helper()
		cache, err := devicecache.Open(devicecache.Config{InMemory: true})
		if err != nil {
			t.Fatalf("open cache: %v", err)
		}
		t.Cleanup(func() { _ = cache.Close() })
		if err := cache.SaveMessages(snapshot); err != nil {
			t.Fatalf("SaveMessages: %v", err)
		}
		return cache
	}

	t.Run("customer never paints foreign threads", func(t *testing.T) {
		st := newSessionStore(t)
		_, rec := startSessionWithCache(t, st, customerIdentity("cust-1"), warmCache(t))

		frames := rec.framesOf(FrameMessages)
		if len(frames) == 0 {
			t.Fatal("no messages frame sent")
		}
		for _, f := range frames {
			msgs, ok := f.Data.([]models.Message)
			if !ok {
				t.Fatalf("messages frame data = %T", f.Data)
			}
			for _, m := range msgs {
				if m.CustomerID != "cust-1" {
					t.Errorf("foreign thread message painted: %+v", m)
				}
			}
		}
	})

	t.Run("admin paints the full snapshot", func(t *testing.T) {
		st := newSessionStore(t)
		_, rec := startSessionWithCache(t, st, adminIdentity(), warmCache(t))

		frames := rec.framesOf(FrameMessages)
		if len(frames) == 0 {
			t.Fatal("no messages frame sent")
		}
		msgs, ok := frames[0].Data.([]models.Message)
		if !ok {
			t.Fatalf("messages frame data = %T", frames[0].Data)
		}
		if len(msgs) != 2 {
			t.Errorf("first painted snapshot = %d messages, want 2", len(msgs))
		}
	})
}

func TestMessageVisibilityFilter(t *testing.T) {
	st := newSessionStore(t)
	s, rec := startSession(t, st, nil, customerIdentity("cust-1"))
	before := rec.count(FrameMessages)

	foreign := models.Message{ID: "m9", SenderID: "cust-2", CustomerID: "cust-2", Text: "segredo"}
	s.HandleEvent(realtime.Event{NewMessage: events.NewNewMessageEvent(foreign)})

	if rec.count(FrameMessages) != before {
		t.Error("foreign thread message produced a frame")
	}
}

func TestUpdateStatusRequiresAdmin(t *testing.T) {
	st := newSessionStore(t)
	o := seedOrder(t, st, "cust-1", models.StatusReceived)

	s, rec := startSession(t, st, nil, customerIdentity("cust-1"))

	payload, _ := json.Marshal(updateStatusPayload{OrderID: o.ID, Status: models.StatusPreparing})
	s.HandleInbound(realtime.Inbound{Type: CommandUpdateStatus, Data: payload})

	if _, ok := rec.last(FrameError); !ok {
		t.Error("customer update_status not rejected")
	}
	got, err := st.GetOrder(context.Background(), o.ID)
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if got.Status != models.StatusReceived {
		t.Errorf("store status = %s, customer write got through", got.Status)
	}
}

func TestAdminUpdateStatusSequence(t *testing.T) {
	st := newSessionStore(t)
	o := seedOrder(t, st, "cust-1", models.StatusReceived)

	bus := events.NewInProcBus()
	t.Cleanup(func() { _ = bus.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	broadcasts, err := bus.Subscribe(ctx, events.TopicOrderStatusSync)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	s, rec := startSession(t, st, bus, adminIdentity())
	s.HandleInbound(realtime.Inbound{Type: CommandSubscribe})
	if !s.Channel().Online() {
		t.Fatal("channel not subscribed")
	}

	payload, _ := json.Marshal(updateStatusPayload{OrderID: o.ID, Status: models.StatusPreparing})
	s.HandleInbound(realtime.Inbound{Type: CommandUpdateStatus, Data: payload})

	got, err := st.GetOrder(context.Background(), o.ID)
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if got.Status != models.StatusPreparing {
		t.Errorf("store status = %s, want preparing", got.Status)
	}

	select {
	case msg := <-broadcasts:
		ev, err := events.DecodeOrderStatusSync(msg)
		if err != nil {
			t.Fatalf("DecodeOrderStatusSync: %v", err)
		}
		if ev.OrderID != o.ID || ev.Status != models.StatusPreparing {
			t.Errorf("broadcast = %+v", ev)
		}
		msg.Ack()
	case <-time.After(2 * time.Second):
		t.Fatal("no status broadcast published")
	}

	if orders := lastOrders(t, rec); orders[0].Status != models.StatusPreparing {
		t.Errorf("view after refetch = %s, want preparing", orders[0].Status)
	}

	t.Run("store rejection refetches and surfaces error", func(t *testing.T) {
		bad, _ := json.Marshal(updateStatusPayload{OrderID: o.ID, Status: models.StatusReceived})
		s.HandleInbound(realtime.Inbound{Type: CommandUpdateStatus, Data: bad})

		if _, ok := rec.last(FrameError); !ok {
			t.Error("rejected transition not surfaced")
		}
		if orders := lastOrders(t, rec); orders[0].Status != models.StatusPreparing {
			t.Errorf("view after failed write = %s, want preparing restored", orders[0].Status)
		}
	})
}

func TestBroadcastDeferredUntilSubscribed(t *testing.T) {
	st := newSessionStore(t)
	o := seedOrder(t, st, "cust-1", models.StatusReceived)

	bus := events.NewInProcBus()
	t.Cleanup(func() { _ = bus.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	broadcasts, err := bus.Subscribe(ctx, events.TopicOrderStatusSync)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	s, _ := startSession(t, st, bus, adminIdentity())

	// Arm the channel directly so it stays in subscribing.
	if err := s.Channel().Subscribe(time.Hour); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	s.broadcastStatus(o.ID, models.StatusPreparing)

	select {
	case <-broadcasts:
		t.Fatal("broadcast sent while still subscribing")
	case <-time.After(50 * time.Millisecond):
	}

	if err := s.Channel().Confirm(); err != nil {
		t.Fatalf("Confirm: %v", err)
	}

	select {
	case msg := <-broadcasts:
		msg.Ack()
	case <-time.After(2 * time.Second):
		t.Fatal("deferred broadcast never flushed")
	}
}

func TestBroadcastSkippedWhenOffline(t *testing.T) {
	st := newSessionStore(t)
	o := seedOrder(t, st, "cust-1", models.StatusReceived)

	bus := events.NewInProcBus()
	t.Cleanup(func() { _ = bus.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	broadcasts, err := bus.Subscribe(ctx, events.TopicOrderStatusSync)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	s, _ := startSession(t, st, bus, adminIdentity())

	// Channel unsubscribed: the hint is skipped outright.
	s.broadcastStatus(o.ID, models.StatusPreparing)

	select {
	case <-broadcasts:
		t.Fatal("broadcast sent with channel offline")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPollRefetchOverwritesView(t *testing.T) {
	st := newSessionStore(t)
	seedOrder(t, st, "cust-1", models.StatusReceived)

	rec := &frameRecorder{}
	cfg := DefaultConfig()
	cfg.OrderPollInterval = 20 * time.Millisecond
	cfg.MessagePollInterval = time.Hour
	s := NewSession(adminIdentity(), st, nil, rec, cfg, nil)
	s.Start(context.Background())
	t.Cleanup(s.Close)

	// New order lands without any realtime event; the poller must pick
	// it up.
	seedOrder(t, st, "cust-2", models.StatusReceived)

	deadline := time.After(2 * time.Second)
	for {
		if orders := lastOrders(t, rec); len(orders) == 2 {
			return
		}
		select {
		case <-deadline:
			t.Fatal("poller never refreshed the view")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestSubscriptionStateFrames(t *testing.T) {
	st := newSessionStore(t)
	s, rec := startSession(t, st, nil, customerIdentity("cust-1"))

	s.HandleInbound(realtime.Inbound{Type: CommandSubscribe})

	frame, ok := rec.last(FrameSubscriptionState)
	if !ok {
		t.Fatal("no subscription_state frame")
	}
	data, ok := frame.Data.(map[string]string)
	if !ok || data["state"] != string(realtime.StateSubscribed) {
		t.Errorf("subscription_state = %+v, want subscribed", frame.Data)
	}

	t.Run("double subscribe surfaces error", func(t *testing.T) {
		s.HandleInbound(realtime.Inbound{Type: CommandSubscribe})
		if _, ok := rec.last(FrameError); !ok {
			t.Error("double subscribe not rejected")
		}
	})
}
