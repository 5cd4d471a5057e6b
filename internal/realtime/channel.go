/*
 * This file is part of Speechdev (https://github.com/fadejevs/speechdev).
 * Copyright (C) 2025 Speechdev
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program. If not, see <https://www.gnu.org/licenses/>.
 */

package realtime

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/fadejevs/speechdev/internal/logging"
)

// ConnectionState describes where the channel is in its lifecycle.
type ConnectionState string

const (
	StateDisconnected ConnectionState = "disconnected"
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
	StateError        ConnectionState = "error"
)

// StateListener is invoked on every state transition.
type StateListener func(state ConnectionState)

// StatusHandler receives session status updates broadcast by other room
// members.
type StatusHandler func(update UpdateEventStatus)

// Options tune connection and recovery behavior.
type Options struct {
	ConnectTimeout time.Duration // handshake deadline per dial attempt
	ReconnectDelay time.Duration // pause before each automatic reattempt
	MaxReconnects  int           // automatic attempts before giving up
}

// DefaultOptions returns the standard connection tuning.
func DefaultOptions() Options {
	return Options{
		ConnectTimeout: 10 * time.Second,
		ReconnectDelay: 2 * time.Second,
		MaxReconnects:  3,
	}
}

// Channel maintains a websocket connection to the broadcast server for one
// room. Unplanned drops trigger a bounded automatic reconnect; once that is
// exhausted the channel parks in the error state until Retry or Disconnect.
type Channel struct {
	url  string
	opts Options

	mu         sync.Mutex
	state      ConnectionState
	conn       *websocket.Conn
	room       string
	generation uint64
	closing    bool

	writeMu sync.Mutex

	listeners     []StateListener
	statusHandler StatusHandler
}

// NewChannel creates a channel for the given websocket URL. The channel
// starts disconnected; call Connect to join a room.
func NewChannel(url string, opts Options) *Channel {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = DefaultOptions().ConnectTimeout
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = DefaultOptions().ReconnectDelay
	}
	if opts.MaxReconnects <= 0 {
		opts.MaxReconnects = DefaultOptions().MaxReconnects
	}

	return &Channel{
		url:   url,
		opts:  opts,
		state: StateDisconnected,
	}
}

// State returns the current connection state.
func (c *Channel) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// OnStateChange registers a listener for state transitions. Listeners are
// called outside the channel's lock, in registration order.
func (c *Channel) OnStateChange(fn StateListener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// OnStatus registers the handler for inbound session status broadcasts.
func (c *Channel) OnStatus(fn StatusHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statusHandler = fn
}

// Connect dials the broadcast server and joins the room named by the
// session ID. A channel that is already connecting or connected ignores the
// call.
func (c *Channel) Connect(sessionID string) error {
	c.mu.Lock()
	if c.state == StateConnecting || c.state == StateConnected {
		c.mu.Unlock()
		return nil
	}
	c.room = sessionID
	c.closing = false
	c.generation++
	gen := c.generation
	c.mu.Unlock()

	c.transition(gen, StateConnecting)
	return c.establish(gen, sessionID)
}

// Retry tears down whatever connection exists and starts a fresh attempt
// with a reset reconnect budget. Valid from any state.
func (c *Channel) Retry() error {
	c.mu.Lock()
	room := c.room
	c.closing = false
	c.generation++
	gen := c.generation
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.mu.Unlock()

	if room == "" {
		return fmt.Errorf("no room to retry: channel was never connected")
	}

	c.transition(gen, StateConnecting)
	return c.establish(gen, room)
}

// Disconnect closes the connection and parks the channel. Safe to call
// repeatedly and from any state.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	c.closing = true
	c.generation++
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	changed := c.state != StateDisconnected
	c.state = StateDisconnected
	listeners := append([]StateListener{}, c.listeners...)
	room := c.room
	c.mu.Unlock()

	if changed {
		logging.LogChannelEvent("disconnected", room)
		for _, fn := range listeners {
			fn(StateDisconnected)
		}
	}
}

// Send publishes a payload to the room. Messages sent while the channel is
// not connected are dropped.
func (c *Channel) Send(event string, payload interface{}) {
	c.mu.Lock()
	conn := c.conn
	connected := c.state == StateConnected
	room := c.room
	c.mu.Unlock()

	if !connected || conn == nil {
		logging.LogChannelEvent("send_dropped", room)
		return
	}

	env, err := Encode(event, payload)
	if err != nil {
		logging.LogError(err, "Failed to encode outbound message",
			zap.String("event", event))
		return
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := conn.WriteJSON(env); err != nil {
		logging.LogError(err, "Failed to write to broadcast server",
			zap.String("event", event))
	}
}

// establish dials, performs the join handshake, and installs the connection
// if this attempt is still the current one.
func (c *Channel) establish(gen uint64, room string) error {
	conn, err := c.dial(room)
	if err != nil {
		c.transition(gen, StateError)
		return err
	}

	c.mu.Lock()
	if c.generation != gen {
		c.mu.Unlock()
		conn.Close()
		return nil
	}
	c.conn = conn
	c.mu.Unlock()

	c.transition(gen, StateConnected)
	logging.LogChannelEvent("connected", room)

	go c.readLoop(conn, gen)
	return nil
}

func (c *Channel) dial(room string) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: c.opts.ConnectTimeout}

	conn, _, err := dialer.Dial(c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open socket connection to %s: %w", c.url, err)
	}

	env, err := Encode(EventJoinRoom, JoinRoom{Room: room})
	if err != nil {
		conn.Close()
		return nil, err
	}

	conn.SetWriteDeadline(time.Now().Add(c.opts.ConnectTimeout))
	if err := conn.WriteJSON(env); err != nil {
		conn.Close()
		return nil, fmt.Errorf("join handshake failed: %w", err)
	}
	conn.SetWriteDeadline(time.Time{})

	return conn, nil
}

func (c *Channel) readLoop(conn *websocket.Conn, gen uint64) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			conn.Close()

			c.mu.Lock()
			stale := c.generation != gen || c.closing
			if c.conn == conn {
				c.conn = nil
			}
			room := c.room
			c.mu.Unlock()

			if stale {
				return
			}

			logging.LogChannelEvent("connection_lost", room)
			c.reconnect(gen, room)
			return
		}

		c.dispatch(data)
	}
}

// reconnect runs the bounded automatic recovery loop after an unplanned
// drop. Success hands off to a fresh read loop; exhaustion parks the channel
// in the error state.
func (c *Channel) reconnect(gen uint64, room string) {
	for attempt := 1; attempt <= c.opts.MaxReconnects; attempt++ {
		c.transition(gen, StateConnecting)
		time.Sleep(c.opts.ReconnectDelay)

		c.mu.Lock()
		stale := c.generation != gen || c.closing
		c.mu.Unlock()
		if stale {
			return
		}

		conn, err := c.dial(room)
		if err != nil {
			logging.LogWarn("Reconnect attempt failed",
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", c.opts.MaxReconnects),
				zap.Error(err))
			continue
		}

		c.mu.Lock()
		if c.generation != gen || c.closing {
			c.mu.Unlock()
			conn.Close()
			return
		}
		c.conn = conn
		c.mu.Unlock()

		c.transition(gen, StateConnected)
		logging.LogChannelEvent("reconnected", room)

		go c.readLoop(conn, gen)
		return
	}

	logging.LogWarn("Reconnect budget exhausted",
		zap.String("room", room),
		zap.Int("attempts", c.opts.MaxReconnects))
	c.transition(gen, StateError)
}

// transition updates the state if the attempt is still current and notifies
// listeners outside the lock.
func (c *Channel) transition(gen uint64, state ConnectionState) {
	c.mu.Lock()
	if c.generation != gen || c.state == state {
		c.mu.Unlock()
		return
	}
	c.state = state
	listeners := append([]StateListener{}, c.listeners...)
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(state)
	}
}

func (c *Channel) dispatch(data []byte) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		logging.LogWarn("Dropping malformed inbound frame", zap.Error(err))
		return
	}

	switch env.Event {
	case EventUpdateEventStatus:
		var update UpdateEventStatus
		if err := json.Unmarshal(env.Data, &update); err != nil {
			logging.LogWarn("Dropping malformed status update", zap.Error(err))
			return
		}

		c.mu.Lock()
		handler := c.statusHandler
		c.mu.Unlock()

		if handler != nil {
			handler(update)
		}
	default:
		logging.LogWarn("Dropping unrecognized inbound event",
			zap.String("event", env.Event))
	}
}
