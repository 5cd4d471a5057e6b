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

package events

import "fmt"

// Status is the lifecycle state of an event session.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusLive      Status = "live"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
)

// ParseStatus converts a wire value into a Status
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusDraft, StatusLive, StatusPaused, StatusCompleted:
		return Status(s), nil
	default:
		return "", fmt.Errorf("unknown session status: %q", s)
	}
}

// CanTransition reports whether a session may move from one status to
// another. Completed is terminal.
func CanTransition(from, to Status) bool {
	if from == to {
		return false
	}

	switch from {
	case StatusDraft:
		return to == StatusLive
	case StatusLive:
		return to == StatusPaused || to == StatusCompleted
	case StatusPaused:
		return to == StatusLive || to == StatusCompleted
	case StatusCompleted:
		return false
	default:
		return false
	}
}

// EventSession is one live captioning event. Status is mutated only through
// the session controller.
type EventSession struct {
	ID            string `json:"id"`
	Status        Status `json:"status"`
	WasAutoPaused bool   `json:"was_auto_paused"`
}

// IsValid performs basic validation on the session
func (es *EventSession) IsValid() error {
	if es.ID == "" {
		return fmt.Errorf("session id is required")
	}

	if _, err := ParseStatus(string(es.Status)); err != nil {
		return err
	}

	return nil
}

// String returns a human-readable representation of the session
func (es *EventSession) String() string {
	return fmt.Sprintf("EventSession{ID: %s, Status: %s, WasAutoPaused: %t}",
		es.ID, es.Status, es.WasAutoPaused)
}
