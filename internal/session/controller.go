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

package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fadejevs/speechdev/internal/events"
	"github.com/fadejevs/speechdev/internal/logging"
	"github.com/fadejevs/speechdev/internal/realtime"
)

// CaptureGate is the subset of the transcript coalescer the controller
// drives. Pausing a session closes the gate; resuming reopens it.
type CaptureGate interface {
	Activate()
	Deactivate()
}

// Recognizer is an optional in-flight speech recognition handle the
// controller stops when leaving the live state.
type Recognizer interface {
	Stop() error
}

// Broadcaster is the subset of the realtime channel the controller uses.
type Broadcaster interface {
	Send(event string, payload interface{})
	State() realtime.ConnectionState
	Retry() error
}

// Options tune controller timing.
type Options struct {
	NotifyRetryInterval time.Duration // pause between post-auto-pause broadcast attempts
	ResumeGrace         time.Duration // wait after a channel retry before resuming
}

// DefaultOptions returns the standard controller timing.
func DefaultOptions() Options {
	return Options{
		NotifyRetryInterval: time.Second,
		ResumeGrace:         time.Second,
	}
}

// Controller owns the session lifecycle state machine. Every transition
// persists to the backing store before it is applied locally, so a failed
// persistence leaves the session where it was.
type Controller struct {
	store      StatusStore
	channel    Broadcaster
	gate       CaptureGate
	recognizer Recognizer
	opts       Options

	mu            sync.Mutex
	session       events.EventSession
	autoPausedFor string // session id the one-shot auto-pause already fired for

	closeOnce sync.Once
	closed    chan struct{}
	notifyWG  sync.WaitGroup
}

// NewController creates a lifecycle controller. recognizer may be nil when
// no in-process recognition is attached.
func NewController(store StatusStore, channel Broadcaster, gate CaptureGate, recognizer Recognizer, opts Options) *Controller {
	if opts.NotifyRetryInterval <= 0 {
		opts.NotifyRetryInterval = DefaultOptions().NotifyRetryInterval
	}
	if opts.ResumeGrace <= 0 {
		opts.ResumeGrace = DefaultOptions().ResumeGrace
	}

	return &Controller{
		store:      store,
		channel:    channel,
		gate:       gate,
		recognizer: recognizer,
		opts:       opts,
		closed:     make(chan struct{}),
	}
}

// Session returns a copy of the current session state.
func (c *Controller) Session() events.EventSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Load installs a freshly fetched session. If the stored status is live,
// the controller silently pauses it so a stale context never resumes audio
// capture on its own. The silent pause fires at most once per session id;
// reloading the same session is a no-op.
func (c *Controller) Load(ctx context.Context, session events.EventSession) error {
	if err := session.IsValid(); err != nil {
		return err
	}

	c.mu.Lock()
	if c.autoPausedFor != "" && c.autoPausedFor != session.ID {
		c.autoPausedFor = ""
	}
	alreadyFired := c.autoPausedFor == session.ID
	c.session = session
	c.mu.Unlock()

	if session.Status != events.StatusLive || alreadyFired {
		return nil
	}

	persisted, err := c.store.UpdateStatus(ctx, session.ID, events.StatusPaused)
	if err != nil {
		return fmt.Errorf("auto-pause persistence failed: %w", err)
	}

	c.mu.Lock()
	c.session.Status = persisted.Status
	c.session.WasAutoPaused = true
	c.autoPausedFor = session.ID
	c.mu.Unlock()

	c.gate.Deactivate()
	c.stopRecognition()

	logging.LogSessionTransition(session.ID, string(events.StatusLive), string(events.StatusPaused),
		zap.Bool("auto_pause", true))

	c.notifyWG.Add(1)
	go c.notifyUntilDelivered(session.ID, events.StatusPaused)

	return nil
}

// TransitionTo moves the session to the target status. The order is fixed:
// persist, apply locally, drive side effects, broadcast.
func (c *Controller) TransitionTo(ctx context.Context, target events.Status) error {
	c.mu.Lock()
	current := c.session
	c.mu.Unlock()

	if current.ID == "" {
		return fmt.Errorf("no session loaded")
	}
	if current.Status == events.StatusCompleted {
		return fmt.Errorf("session %s is completed: no further transitions", current.ID)
	}
	if !events.CanTransition(current.Status, target) {
		return fmt.Errorf("invalid transition %s -> %s for session %s",
			current.Status, target, current.ID)
	}

	// Resuming over a dead channel: kick off a reconnect and give it a
	// moment before the transition proceeds, whether or not it worked.
	if target == events.StatusLive && c.channel.State() == realtime.StateError {
		if err := c.channel.Retry(); err != nil {
			logging.LogWarn("Channel retry before resume failed", zap.Error(err))
		}
		time.Sleep(c.opts.ResumeGrace)
	}

	persisted, err := c.store.UpdateStatus(ctx, current.ID, target)
	if err != nil {
		return fmt.Errorf("status persistence failed, transition aborted: %w", err)
	}

	c.mu.Lock()
	c.session.Status = persisted.Status
	if target == events.StatusLive {
		c.session.WasAutoPaused = false
	}
	c.mu.Unlock()

	switch target {
	case events.StatusLive:
		c.gate.Activate()
	case events.StatusPaused, events.StatusCompleted:
		c.gate.Deactivate()
		c.stopRecognition()
	}

	logging.LogSessionTransition(current.ID, string(current.Status), string(target))
	c.broadcast(current.ID, target)

	return nil
}

// ApplyRemote reconciles a status change another room member already
// persisted. It skips the store but still enforces the state machine, so a
// completed session cannot be revived by a stray broadcast.
func (c *Controller) ApplyRemote(status events.Status) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session.ID == "" {
		return fmt.Errorf("no session loaded")
	}
	if c.session.Status == status {
		return nil
	}
	if c.session.Status == events.StatusCompleted {
		return fmt.Errorf("session %s is completed: ignoring remote status %s", c.session.ID, status)
	}
	if !events.CanTransition(c.session.Status, status) {
		return fmt.Errorf("invalid remote transition %s -> %s", c.session.Status, status)
	}

	c.session.Status = status
	if status == events.StatusLive {
		c.session.WasAutoPaused = false
	}
	return nil
}

// Close stops any pending notification retries.
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		close(c.closed)
	})
	c.notifyWG.Wait()
}

// broadcast publishes the status over the channel when it is connected.
// Anything else is a silent drop; participants reconcile on their next poll.
func (c *Controller) broadcast(sessionID string, status events.Status) {
	if c.channel.State() != realtime.StateConnected {
		return
	}
	c.channel.Send(realtime.EventUpdateEventStatus, realtime.UpdateEventStatus{
		RoomID: sessionID,
		Status: string(status),
	})
}

// notifyUntilDelivered keeps trying to broadcast a status until the channel
// is connected. There is no attempt cap; Close is the only way out.
func (c *Controller) notifyUntilDelivered(sessionID string, status events.Status) {
	defer c.notifyWG.Done()

	for {
		if c.channel.State() == realtime.StateConnected {
			c.channel.Send(realtime.EventUpdateEventStatus, realtime.UpdateEventStatus{
				RoomID: sessionID,
				Status: string(status),
			})
			return
		}

		select {
		case <-c.closed:
			return
		case <-time.After(c.opts.NotifyRetryInterval):
		}
	}
}

func (c *Controller) stopRecognition() {
	if c.recognizer == nil {
		return
	}
	if err := c.recognizer.Stop(); err != nil {
		logging.LogWarn("Failed to stop recognition", zap.Error(err))
	}
}
