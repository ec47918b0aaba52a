// Hortal - Bakery Ordering and Realtime Order Sync
// Copyright 2026 Padaria Hortal
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/padaria-hortal/hortal

package sync

import (
	"context"
	"fmt"
	stdsync "sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/padaria-hortal/hortal/internal/events"
	"github.com/padaria-hortal/hortal/internal/logging"
	"github.com/padaria-hortal/hortal/internal/metrics"
	"github.com/padaria-hortal/hortal/internal/models"
	"github.com/padaria-hortal/hortal/internal/realtime"
	"github.com/padaria-hortal/hortal/internal/store"
)

// Outbound frame types.
const (
	FrameOrders            = "orders"
	FrameMessages          = "messages"
	FrameSubscriptionState = "subscription_state"
	FrameCatalogChanged    = "catalog_changed"
	FrameSettingsChanged   = "settings_changed"
	FrameProfileChanged    = "profile_changed"
	FrameError             = "error"
)

// Inbound command types.
const (
	CommandSubscribe    = "subscribe"
	CommandSendMessage  = "send_message"
	CommandUpdateStatus = "update_status"
	CommandRefresh      = "refresh"
)

// Config tunes the session's timers.
type Config struct {
	// OrderPollInterval drives the admin order refetch ticker.
	OrderPollInterval time.Duration

	// MessagePollInterval drives the message refetch ticker.
	MessagePollInterval time.Duration

	// SubscribeTimeout bounds how long a subscribe may stay pending.
	SubscribeTimeout time.Duration
}

// DefaultConfig returns the production intervals.
func DefaultConfig() Config {
	return Config{
		OrderPollInterval:   15 * time.Second,
		MessagePollInterval: 5 * time.Second,
		SubscribeTimeout:    10 * time.Second,
	}
}

// Sender is where the session pushes its frames; the realtime client in
// production, a recorder in tests.
type Sender interface {
	Send(msg realtime.Outbound)
}

// SnapshotCache persists view snapshots across restarts. Optional.
type SnapshotCache interface {
	LoadMessages() ([]models.Message, error)
	SaveMessages(msgs []models.Message) error
}

// pendingBroadcast is a status broadcast held back while the channel is
// still subscribing.
type pendingBroadcast struct {
	orderID string
	status  models.OrderStatus
}

// Session is the server-side engine behind one realtime connection. It
// implements realtime.Handler: the client's read pump delivers commands,
// the hub delivers bus events, and the session pushes view frames back
// through the sender.
type Session struct {
	identity realtime.Identity
	store    *store.Store
	bus      events.Bus
	sender   Sender
	cfg      Config
	cache    SnapshotCache
	channel  *realtime.Channel

	ctx    context.Context
	cancel context.CancelFunc
	wg     stdsync.WaitGroup

	mu       stdsync.Mutex
	orders   []models.Order
	messages []models.Message
	deferred []pendingBroadcast
}

// NewSession builds a session for one connection. cache may be nil.
func NewSession(identity realtime.Identity, st *store.Store, bus events.Bus, sender Sender, cfg Config, cache SnapshotCache) *Session {
	s := &Session{
		identity: identity,
		store:    st,
		bus:      bus,
		sender:   sender,
		cfg:      cfg,
		cache:    cache,
	}
	s.channel = realtime.NewChannel(s.onChannelState)
	return s
}

// Channel exposes the subscription state machine.
func (s *Session) Channel() *realtime.Channel {
	return s.channel
}

func (s *Session) viewer() store.Viewer {
	return store.Viewer{ProfileID: s.identity.ProfileID, Role: s.identity.Role}
}

// Start seeds the view and launches the polling fallback. The cached
// message snapshot, when present, is pushed immediately so the client
// paints before the store answers.
func (s *Session) Start(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(ctx)

	if s.cache != nil {
		if cached, err := s.cache.LoadMessages(); err == nil {
			if visible := s.visibleMessages(cached); len(visible) > 0 {
				s.mu.Lock()
				s.messages = visible
				s.mu.Unlock()
				s.sendMessages()
			}
		}
	}

	s.refetchOrders()
	s.refetchMessages()

	s.wg.Add(1)
	go s.pollMessages()
	if s.identity.IsAdmin() {
		s.wg.Add(1)
		go s.pollOrders()
	}
}

// visibleMessages applies the role filter to a cached snapshot. The
// cache is shared by every session on the device, so an admin's saved
// snapshot can hold foreign threads a customer must never paint.
func (s *Session) visibleMessages(msgs []models.Message) []models.Message {
	if s.identity.IsAdmin() {
		return msgs
	}
	visible := make([]models.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.CustomerID == s.identity.ProfileID {
			visible = append(visible, m)
		}
	}
	return visible
}

// Close tears the session down. Safe to call more than once.
func (s *Session) Close() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.channel.Close()
}

// onChannelState runs on every channel transition. It must not call back
// into the channel; deferred work is handed to a goroutine.
func (s *Session) onChannelState(state realtime.ChannelState) {
	s.sender.Send(realtime.Outbound{Type: FrameSubscriptionState, Data: map[string]string{"state": string(state)}})
	if state == realtime.StateSubscribed {
		go s.flushDeferred()
	}
}

// HandleInbound processes one command frame from the client.
func (s *Session) HandleInbound(msg realtime.Inbound) {
	switch msg.Type {
	case CommandSubscribe:
		s.handleSubscribe()
	case CommandSendMessage:
		s.handleSendMessage(msg.Data)
	case CommandUpdateStatus:
		s.handleUpdateStatus(msg.Data)
	case CommandRefresh:
		s.refetchOrders()
		s.refetchMessages()
	default:
		s.sendError(fmt.Sprintf("unknown command %q", msg.Type))
	}
}

// handleSubscribe arms the channel. The hub already routes events to
// this connection, so confirmation is immediate; the timeout machinery
// still guards the transition for transports that answer slowly.
func (s *Session) handleSubscribe() {
	if err := s.channel.Subscribe(s.cfg.SubscribeTimeout); err != nil {
		s.sendError(err.Error())
		return
	}
	if err := s.channel.Confirm(); err != nil {
		logging.Ctx(s.ctx).Warn().Err(err).Msg("Subscription confirmation lost the race")
	}
}

type sendMessagePayload struct {
	Text       string `json:"text"`
	CustomerID string `json:"customer_id,omitempty"`
	TempID     string `json:"temp_id,omitempty"`
}

// handleSendMessage runs the optimistic send path: a provisional entry
// goes into the view first, the store write follows, and the provisional
// entry is replaced by the stored row or rolled back on failure.
func (s *Session) handleSendMessage(data json.RawMessage) {
	var payload sendMessagePayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.Text == "" {
		s.sendError("send_message requires text")
		return
	}

	customerID := s.identity.ProfileID
	if s.identity.IsAdmin() {
		if payload.CustomerID == "" {
			s.sendError("send_message requires customer_id for admins")
			return
		}
		customerID = payload.CustomerID
	}

	tempID := payload.TempID
	if tempID == "" {
		tempID = models.NewTempMessageID(time.Now())
	}
	provisional := models.Message{
		ID:         tempID,
		SenderID:   s.identity.ProfileID,
		SenderName: s.identity.Name,
		CustomerID: customerID,
		Text:       payload.Text,
		IsAdmin:    s.identity.IsAdmin(),
		CreatedAt:  time.Now().UTC(),
	}

	s.mu.Lock()
	s.messages = append(s.messages, provisional)
	s.mu.Unlock()
	s.sendMessages()

	stored := provisional
	if err := s.store.CreateMessage(s.ctx, &stored); err != nil {
		// Rollback: drop the provisional entry and surface the failure.
		s.mu.Lock()
		s.messages = removeMessage(s.messages, tempID)
		s.mu.Unlock()
		s.sendMessages()
		s.sendError("message could not be sent")
		logging.Ctx(s.ctx).Error().Err(err).Msg("Message write failed, provisional entry rolled back")
		return
	}

	s.mu.Lock()
	s.messages = confirmMessage(s.messages, tempID, stored)
	s.mu.Unlock()
	s.sendMessages()
	s.saveSnapshot()

	if s.bus != nil {
		if err := events.PublishNewMessage(s.ctx, s.bus, stored); err != nil {
			logging.Ctx(s.ctx).Warn().Err(err).Msg("New message broadcast failed")
		}
	}
}

type updateStatusPayload struct {
	OrderID string             `json:"order_id"`
	Status  models.OrderStatus `json:"status"`
}

// handleUpdateStatus is the admin write sequence: optimistic local
// patch, store write, best-effort broadcast, then an unconditional
// refetch that makes the view authoritative either way.
func (s *Session) handleUpdateStatus(data json.RawMessage) {
	if !s.identity.IsAdmin() {
		s.sendError("update_status requires the admin role")
		return
	}
	var payload updateStatusPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.OrderID == "" {
		s.sendError("update_status requires order_id and status")
		return
	}
	if !payload.Status.Valid() {
		s.sendError(fmt.Sprintf("unknown status %q", payload.Status))
		return
	}

	s.mu.Lock()
	for i := range s.orders {
		if s.orders[i].ID == payload.OrderID {
			s.orders[i].Status = payload.Status
		}
	}
	s.mu.Unlock()
	s.sendOrders()

	if _, err := s.store.UpdateOrderStatus(s.ctx, payload.OrderID, payload.Status); err != nil {
		s.refetchOrders()
		s.sendError(fmt.Sprintf("status update failed: %v", err))
		return
	}

	s.broadcastStatus(payload.OrderID, payload.Status)
	s.refetchOrders()
}

// broadcastStatus emits the ephemeral fast-path hint. With the channel
// subscribed it goes out immediately; while subscribing it is deferred
// until confirmation; otherwise it is skipped, since the change feed
// and the refetch already carry the state.
func (s *Session) broadcastStatus(orderID string, status models.OrderStatus) {
	switch s.channel.State() {
	case realtime.StateSubscribed:
		s.publishStatus(orderID, status)
	case realtime.StateSubscribing:
		s.mu.Lock()
		s.deferred = append(s.deferred, pendingBroadcast{orderID: orderID, status: status})
		s.mu.Unlock()
		metrics.RealtimeBroadcastsDeferred.Inc()
	default:
		metrics.RealtimeBroadcastsSkipped.Inc()
		logging.Ctx(s.ctx).Debug().
			Str("order_id", orderID).
			Str("channel_state", string(s.channel.State())).
			Msg("Status broadcast skipped, channel offline")
	}
}

func (s *Session) publishStatus(orderID string, status models.OrderStatus) {
	if s.bus == nil {
		return
	}
	if err := events.PublishOrderStatusSync(s.ctx, s.bus, orderID, status); err != nil {
		logging.Ctx(s.ctx).Warn().Err(err).Str("order_id", orderID).Msg("Status broadcast failed")
	}
}

func (s *Session) flushDeferred() {
	s.mu.Lock()
	pending := s.deferred
	s.deferred = nil
	s.mu.Unlock()

	for _, p := range pending {
		s.publishStatus(p.orderID, p.status)
	}
}

// HandleEvent applies one bus event to the view. Events the viewer must
// not see are dropped here.
func (s *Session) HandleEvent(ev realtime.Event) {
	switch {
	case ev.Change != nil:
		s.applyChange(ev.Change)
	case ev.StatusSync != nil:
		s.applyStatusSync(ev.StatusSync)
	case ev.NewMessage != nil:
		s.applyNewMessage(ev.NewMessage.Message)
	}
}

func (s *Session) applyChange(ev *events.ChangeEvent) {
	switch ev.Table {
	case events.TableOrders:
		s.applyOrderChange(ev)
	case events.TableMessages:
		s.applyMessageChange(ev)
	case events.TableProducts, events.TableCategories:
		s.sender.Send(realtime.Outbound{Type: FrameCatalogChanged, Data: map[string]string{"table": string(ev.Table)}})
	case events.TableSettings:
		s.sender.Send(realtime.Outbound{Type: FrameSettingsChanged})
	case events.TableProfiles:
		if s.identity.IsAdmin() || ev.RowID == s.identity.ProfileID {
			s.sender.Send(realtime.Outbound{Type: FrameProfileChanged, Data: map[string]string{"profile_id": ev.RowID}})
		}
	}
}

// applyOrderChange follows the row-change rules: UPDATE patches only the
// status and delivery code of a matching row, with a full refetch when
// the new status is terminal; INSERT and DELETE always refetch because
// the event row has no item relations. A DELETE may carry only the row
// key, so the refetch runs before any row decoding; the refetch applies
// the role filter on its own.
func (s *Session) applyOrderChange(ev *events.ChangeEvent) {
	if ev.Op != events.OpUpdate {
		s.refetchOrders()
		return
	}

	var row models.Order
	if len(ev.Row) > 0 {
		if err := json.Unmarshal(ev.Row, &row); err != nil {
			logging.Ctx(s.ctx).Warn().Err(err).Msg("Undecodable order row in change event")
			return
		}
	}
	if !s.identity.IsAdmin() && row.CustomerID != s.identity.ProfileID {
		return
	}

	s.mu.Lock()
	for i := range s.orders {
		if s.orders[i].ID == ev.RowID {
			s.orders[i].Status = row.Status
			s.orders[i].DeliveryCode = row.DeliveryCode
		}
	}
	s.mu.Unlock()
	s.sendOrders()

	if row.Status == models.StatusCompleted || row.Status == models.StatusCancelled {
		s.refetchOrders()
	}
}

func (s *Session) applyMessageChange(ev *events.ChangeEvent) {
	if ev.Op != events.OpInsert {
		s.refetchMessages()
		return
	}
	var row models.Message
	if err := json.Unmarshal(ev.Row, &row); err != nil {
		logging.Ctx(s.ctx).Warn().Err(err).Msg("Undecodable message row in change event")
		return
	}
	s.applyNewMessage(row)
}

// applyStatusSync applies the ephemeral hint. A hint never resurrects a
// terminal order and never triggers a refetch; it only nudges the status
// of a live row the view already has.
func (s *Session) applyStatusSync(ev *events.OrderStatusSyncEvent) {
	s.mu.Lock()
	changed := false
	for i := range s.orders {
		if s.orders[i].ID != ev.OrderID {
			continue
		}
		if s.orders[i].Status.IsTerminal() {
			break
		}
		if s.orders[i].Status != ev.Status {
			s.orders[i].Status = ev.Status
			changed = true
		}
	}
	s.mu.Unlock()

	if changed {
		s.sendOrders()
	}
}

// applyNewMessage reconciles an incoming message against the view:
// dedup by ID first, then replacement of a matching provisional entry,
// then plain append.
func (s *Session) applyNewMessage(m models.Message) {
	if !s.identity.IsAdmin() && m.CustomerID != s.identity.ProfileID {
		return
	}

	s.mu.Lock()
	s.messages = mergeMessage(s.messages, m)
	s.mu.Unlock()
	s.sendMessages()
	s.saveSnapshot()
}

func (s *Session) pollOrders() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cfg.OrderPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			metrics.PollRefreshes.WithLabelValues("orders").Inc()
			s.refetchOrders()
		}
	}
}

func (s *Session) pollMessages() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cfg.MessagePollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			metrics.PollRefreshes.WithLabelValues("messages").Inc()
			s.refetchMessages()
		}
	}
}

// refetchOrders replaces the order snapshot from the store.
func (s *Session) refetchOrders() {
	orders, err := s.store.ListOrders(s.ctx, s.viewer())
	if err != nil {
		logging.Ctx(s.ctx).Error().Err(err).Msg("Order refetch failed")
		return
	}
	s.mu.Lock()
	s.orders = orders
	s.mu.Unlock()
	s.sendOrders()
}

// refetchMessages replaces the message snapshot but keeps provisional
// entries that are still awaiting confirmation.
func (s *Session) refetchMessages() {
	msgs, err := s.store.ListMessages(s.ctx, s.viewer())
	if err != nil {
		logging.Ctx(s.ctx).Error().Err(err).Msg("Message refetch failed")
		return
	}
	s.mu.Lock()
	for _, m := range s.messages {
		if m.IsProvisional() {
			msgs = append(msgs, m)
		}
	}
	s.messages = msgs
	s.mu.Unlock()
	s.sendMessages()
	s.saveSnapshot()
}

func (s *Session) sendOrders() {
	s.mu.Lock()
	snapshot := make([]models.Order, len(s.orders))
	copy(snapshot, s.orders)
	s.mu.Unlock()
	s.sender.Send(realtime.Outbound{Type: FrameOrders, Data: snapshot})
}

func (s *Session) sendMessages() {
	s.mu.Lock()
	snapshot := make([]models.Message, len(s.messages))
	copy(snapshot, s.messages)
	s.mu.Unlock()
	s.sender.Send(realtime.Outbound{Type: FrameMessages, Data: snapshot})
}

func (s *Session) sendError(msg string) {
	s.sender.Send(realtime.Outbound{Type: FrameError, Data: map[string]string{"message": msg}})
}

func (s *Session) saveSnapshot() {
	if s.cache == nil {
		return
	}
	s.mu.Lock()
	snapshot := make([]models.Message, 0, len(s.messages))
	for _, m := range s.messages {
		if !m.IsProvisional() {
			snapshot = append(snapshot, m)
		}
	}
	s.mu.Unlock()

	if err := s.cache.SaveMessages(snapshot); err != nil {
		logging.Ctx(s.ctx).Warn().Err(err).Msg("Snapshot save failed")
	}
}
