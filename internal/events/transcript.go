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

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TranscriptChunk is one raw fragment of transcribed speech. Chunks are
// immutable once created; the coalescer owns them until the next flush.
type TranscriptChunk struct {
	ID             string            `json:"id" db:"id"`
	Text           string            `json:"text" db:"text"`
	SourceLanguage string            `json:"source_language" db:"source_language"`
	Translations   map[string]string `json:"translations" db:"translations"`
	Timestamp      time.Time         `json:"timestamp" db:"timestamp"`
	ArrivalOrder   int               `json:"arrival_order" db:"arrival_order"`
}

// NewTranscriptChunk creates a chunk with a generated id and current timestamp.
// ArrivalOrder is assigned by the coalescer on submission.
func NewTranscriptChunk(text, sourceLanguage string, translations map[string]string) *TranscriptChunk {
	if translations == nil {
		translations = make(map[string]string)
	}
	return &TranscriptChunk{
		ID:             uuid.NewString(),
		Text:           text,
		SourceLanguage: sourceLanguage,
		Translations:   translations,
		Timestamp:      time.Now(),
	}
}

// IsValid performs basic validation on the chunk
func (tc *TranscriptChunk) IsValid() error {
	if tc.ID == "" {
		return fmt.Errorf("chunk id is required")
	}

	if tc.Text == "" {
		return fmt.Errorf("chunk text is required")
	}

	if tc.Timestamp.IsZero() {
		return fmt.Errorf("chunk timestamp is required")
	}

	return nil
}

// CoalescedUtterance is the result of flushing the transcript buffer: a
// single cleaned sentence covering every chunk buffered at flush time.
type CoalescedUtterance struct {
	Text           string            `json:"text" db:"text"`
	SourceLanguage string            `json:"source_language" db:"source_language"`
	Translations   map[string]string `json:"translations" db:"translations"`
	ChunkIDs       []string          `json:"chunk_ids" db:"chunk_ids"`
	ProcessingTime int64             `json:"processing_time_ms" db:"processing_time_ms"`
	Cleaned        bool              `json:"cleaned" db:"cleaned"`
}

// IsValid performs basic validation on the utterance
func (cu *CoalescedUtterance) IsValid() error {
	if cu.Text == "" {
		return fmt.Errorf("utterance text is required")
	}

	if len(cu.ChunkIDs) == 0 {
		return fmt.Errorf("utterance must cover at least one chunk")
	}

	return nil
}

// ChunkIDsJSON returns chunk ids as a JSON string for database storage
func (cu *CoalescedUtterance) ChunkIDsJSON() (string, error) {
	data, err := json.Marshal(cu.ChunkIDs)
	if err != nil {
		return "", fmt.Errorf("failed to marshal chunk ids: %w", err)
	}
	return string(data), nil
}

// TranslationsJSON returns translations as a JSON string for database storage
func (cu *CoalescedUtterance) TranslationsJSON() (string, error) {
	if cu.Translations == nil {
		return "{}", nil
	}

	data, err := json.Marshal(cu.Translations)
	if err != nil {
		return "", fmt.Errorf("failed to marshal translations: %w", err)
	}
	return string(data), nil
}

// String returns a human-readable representation of the utterance
func (cu *CoalescedUtterance) String() string {
	return fmt.Sprintf("CoalescedUtterance{Text: %q, Chunks: %d, Cleaned: %t, ProcessingTime: %dms}",
		cu.Text, len(cu.ChunkIDs), cu.Cleaned, cu.ProcessingTime)
}

// PlaybackItem is one unit of speech handed to the playback queue.
type PlaybackItem struct {
	Text  string `json:"text"`
	Voice string `json:"voice"`
}
