// Hortal - Bakery Ordering and Realtime Order Sync
// Copyright 2026 Padaria Hortal
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/padaria-hortal/hortal

package realtime

import (
	"errors"
	"sync"
	"time"
)

// ChannelState is the lifecycle of one realtime subscription.
type ChannelState string

const (
	StateUnsubscribed ChannelState = "unsubscribed"
	StateSubscribing  ChannelState = "subscribing"
	StateSubscribed   ChannelState = "subscribed"
	StateClosed       ChannelState = "closed"
	StateErrored      ChannelState = "errored"
	StateTimedOut     ChannelState = "timed_out"
)

// Terminal reports whether the state admits no further transitions. A
// terminal channel never recovers on its own; the client must mount a
// fresh one.
func (s ChannelState) Terminal() bool {
	return s == StateClosed || s == StateErrored || s == StateTimedOut
}

// Online reports whether broadcasts can be delivered through the channel.
func (s ChannelState) Online() bool {
	return s == StateSubscribed
}

var (
	ErrChannelTerminal   = errors.New("channel in terminal state")
	ErrChannelNotPending = errors.New("channel not subscribing")
	ErrAlreadySubscribed = errors.New("channel already subscribed or subscribing")
)

// Channel tracks one subscription's state. There is no retry or backoff
// here: once a channel errors, times out, or closes it stays that way,
// and the owning connection falls back to polling until it remounts.
type Channel struct {
	mu      sync.Mutex
	state   ChannelState
	timer   *time.Timer
	onState func(ChannelState)
}

// NewChannel returns a channel in the unsubscribed state. onState, when
// non-nil, is invoked after every transition with the new state; it runs
// with the channel lock held, so it must not call back into the channel.
func NewChannel(onState func(ChannelState)) *Channel {
	return &Channel{state: StateUnsubscribed, onState: onState}
}

// State returns the current state.
func (c *Channel) State() ChannelState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe moves unsubscribed → subscribing and arms the confirmation
// timeout. If no Confirm arrives within timeout the channel transitions
// to timed_out.
func (c *Channel) Subscribe(timeout time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Terminal() {
		return ErrChannelTerminal
	}
	if c.state != StateUnsubscribed {
		return ErrAlreadySubscribed
	}
	c.set(StateSubscribing)
	c.timer = time.AfterFunc(timeout, c.timeout)
	return nil
}

// Confirm moves subscribing → subscribed and disarms the timeout.
func (c *Channel) Confirm() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateSubscribing {
		return ErrChannelNotPending
	}
	c.stopTimer()
	c.set(StateSubscribed)
	return nil
}

// Fail marks the channel errored from any non-terminal state.
func (c *Channel) Fail() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Terminal() {
		return
	}
	c.stopTimer()
	c.set(StateErrored)
}

// Close marks the channel closed. Closing an already terminal channel is
// a no-op so teardown paths can call it unconditionally.
func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Terminal() {
		return
	}
	c.stopTimer()
	c.set(StateClosed)
}

// Online reports whether the channel is currently subscribed.
func (c *Channel) Online() bool {
	return c.State().Online()
}

func (c *Channel) timeout() {
	c.mu.Lock()
	defer c.mu.Unlock()

	// The confirmation may have raced the timer.
	if c.state != StateSubscribing {
		return
	}
	c.set(StateTimedOut)
}

func (c *Channel) stopTimer() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Channel) set(next ChannelState) {
	c.state = next
	if c.onState != nil {
		c.onState(next)
	}
}
