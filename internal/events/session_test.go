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

import "testing"

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from Status
		to   Status
		want bool
	}{
		{StatusDraft, StatusLive, true},
		{StatusDraft, StatusPaused, false},
		{StatusLive, StatusPaused, true},
		{StatusLive, StatusCompleted, true},
		{StatusLive, StatusDraft, false},
		{StatusPaused, StatusLive, true},
		{StatusPaused, StatusCompleted, true},
		{StatusCompleted, StatusLive, false},
		{StatusCompleted, StatusPaused, false},
		{StatusCompleted, StatusDraft, false},
		{StatusLive, StatusLive, false},
	}

	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %t, want %t", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestParseStatus(t *testing.T) {
	for _, valid := range []string{"draft", "live", "paused", "completed"} {
		if _, err := ParseStatus(valid); err != nil {
			t.Errorf("ParseStatus(%q) unexpected error: %v", valid, err)
		}
	}

	if _, err := ParseStatus("archived"); err == nil {
		t.Error("ParseStatus(\"archived\") expected error")
	}
}

func TestEventSessionIsValid(t *testing.T) {
	session := &EventSession{ID: "event-1", Status: StatusLive}
	if err := session.IsValid(); err != nil {
		t.Errorf("IsValid() unexpected error: %v", err)
	}

	session.ID = ""
	if err := session.IsValid(); err == nil {
		t.Error("IsValid() expected error for missing id")
	}

	session.ID = "event-1"
	session.Status = "bogus"
	if err := session.IsValid(); err == nil {
		t.Error("IsValid() expected error for unknown status")
	}
}
