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
)

// Wire event names. The broadcast server routes on these, so they form a
// closed set; anything else inbound is logged and dropped.
const (
	EventJoinRoom          = "join_room"
	EventTranscription     = "realtime_transcription"
	EventUpdateEventStatus = "update_event_status"
)

// Envelope is the frame every message travels in.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// JoinRoom is the handshake sent immediately after the socket opens. The
// room is the session identifier.
type JoinRoom struct {
	Room string `json:"room"`
}

// UpdateEventStatus broadcasts a session lifecycle change to the room.
type UpdateEventStatus struct {
	RoomID string `json:"room_id"`
	Status string `json:"status"`
}

// Transcription carries a coalesced utterance to listeners in the room.
type Transcription struct {
	Text           string            `json:"text"`
	IsFinal        bool              `json:"is_final"`
	IsLLMProcessed bool              `json:"is_llm_processed"`
	SourceLanguage string            `json:"source_language"`
	RoomID         string            `json:"room_id"`
	Translations   map[string]string `json:"translations,omitempty"`
	ProcessingTime int64             `json:"processing_time,omitempty"`
	ChunkIDs       []string          `json:"chunk_ids,omitempty"`
}

// Encode wraps a payload in an envelope ready for the wire.
func Encode(event string, payload interface{}) (*Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", event, err)
	}
	return &Envelope{Event: event, Data: data}, nil
}
