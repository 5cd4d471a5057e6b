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
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fadejevs/speechdev/internal/events"
)

func TestHTTPStatusStoreUpdateStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("expected PATCH, got %s", r.Method)
		}
		if r.URL.Path != "/events/ev-1" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}

		var patch map[string]string
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			t.Fatalf("failed to decode patch body: %v", err)
		}
		if patch["status"] != "paused" {
			t.Errorf("expected status paused in body, got %q", patch["status"])
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]map[string]string{
			{"id": "ev-1", "status": "paused"},
			{"id": "ev-1-dup", "status": "live"},
		})
	}))
	defer server.Close()

	store := NewHTTPStatusStore(server.URL+"/events", 2*time.Second)
	session, err := store.UpdateStatus(context.Background(), "ev-1", events.StatusPaused)
	if err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}

	// First record wins when the API returns more than one.
	if session.ID != "ev-1" || session.Status != events.StatusPaused {
		t.Errorf("unexpected session: %+v", session)
	}
}

func TestHTTPStatusStoreServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	store := NewHTTPStatusStore(server.URL, 2*time.Second)
	if _, err := store.UpdateStatus(context.Background(), "ev-1", events.StatusLive); err == nil {
		t.Error("expected error on 500 response")
	}
}

func TestHTTPStatusStoreEmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte("[]"))
	}))
	defer server.Close()

	store := NewHTTPStatusStore(server.URL, 2*time.Second)
	if _, err := store.UpdateStatus(context.Background(), "ev-1", events.StatusLive); err == nil {
		t.Error("expected error when no records are returned")
	}
}

func TestHTTPStatusStoreUnreachable(t *testing.T) {
	store := NewHTTPStatusStore("http://127.0.0.1:1", 200*time.Millisecond)
	if _, err := store.UpdateStatus(context.Background(), "ev-1", events.StatusLive); err == nil {
		t.Error("expected error against a dead endpoint")
	}
}
