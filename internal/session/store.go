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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fadejevs/speechdev/internal/events"
	"github.com/fadejevs/speechdev/internal/security"
)

// StatusStore persists session status transitions. Persistence must succeed
// before a transition is applied locally.
type StatusStore interface {
	UpdateStatus(ctx context.Context, sessionID string, status events.Status) (*events.EventSession, error)
}

// HTTPStatusStore persists status changes against the backing event API.
// baseURL is the events resource root; a session's record lives at
// baseURL/<session id>.
type HTTPStatusStore struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPStatusStore creates a store for the given events resource URL.
func NewHTTPStatusStore(baseURL string, timeout time.Duration) *HTTPStatusStore {
	return &HTTPStatusStore{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type statusPatch struct {
	Status string `json:"status"`
}

type eventRecord struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// UpdateStatus issues a PATCH for the session's status. The API responds
// with the updated records; the first one wins.
func (s *HTTPStatusStore) UpdateStatus(ctx context.Context, sessionID string, status events.Status) (*events.EventSession, error) {
	if err := security.ValidateSessionID(sessionID); err != nil {
		return nil, fmt.Errorf("refusing to persist status: %w", err)
	}

	body, err := json.Marshal(statusPatch{Status: string(status)})
	if err != nil {
		return nil, fmt.Errorf("failed to encode status patch: %w", err)
	}

	url := fmt.Sprintf("%s/%s", s.baseURL, sessionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create status request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("status persistence request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("status persistence failed with %d: %s", resp.StatusCode, string(data))
	}

	var records []eventRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode status response: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("status persistence returned no records for session %s", sessionID)
	}

	persisted, err := events.ParseStatus(records[0].Status)
	if err != nil {
		return nil, fmt.Errorf("status persistence returned invalid status: %w", err)
	}

	return &events.EventSession{
		ID:     records[0].ID,
		Status: persisted,
	}, nil
}
