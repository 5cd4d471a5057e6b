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

package security

import "testing"

func TestSanitizeLogInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"clean string", "session-123", "session-123"},
		{"newline injection", "session\nFAKE LOG LINE", "sessionFAKE LOG LINE"},
		{"carriage return", "session\r\nFAKE", "sessionFAKE"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeLogInput(tt.input); got != tt.want {
				t.Errorf("SanitizeLogInput(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestValidateSessionID(t *testing.T) {
	valid := []string{"ev-1", "session_42", "ABC123", "a"}
	for _, id := range valid {
		if err := ValidateSessionID(id); err != nil {
			t.Errorf("ValidateSessionID(%q) unexpectedly failed: %v", id, err)
		}
	}

	invalid := []string{"", "../etc/passwd", "a/b", "a\\b", "id with spaces", "id\n", "id;drop"}
	for _, id := range invalid {
		if err := ValidateSessionID(id); err == nil {
			t.Errorf("ValidateSessionID(%q) should have failed", id)
		}
	}
}
