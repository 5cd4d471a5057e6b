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

package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/fadejevs/speechdev/internal/events"
	"github.com/fadejevs/speechdev/internal/security"
)

// StoredUtterance is one archived utterance row. Rejected utterances are
// archived too, with Broadcast false, so nothing the speaker said is lost.
type StoredUtterance struct {
	UUID      string
	SessionID string
	Utterance events.CoalescedUtterance
	Broadcast bool
	CreatedAt time.Time
}

// UtteranceStore handles database operations for coalesced utterances
type UtteranceStore struct {
	db *Database
}

// NewUtteranceStore creates a new utterance store
func NewUtteranceStore(db *Database) *UtteranceStore {
	return &UtteranceStore{db: db}
}

// Insert archives an utterance for the given session
func (s *UtteranceStore) Insert(sessionID string, utterance *events.CoalescedUtterance, broadcast bool) error {
	if sessionID == "" {
		return fmt.Errorf("session id is required")
	}
	if err := utterance.IsValid(); err != nil {
		return fmt.Errorf("invalid utterance: %w", err)
	}

	chunkIDsJSON, err := utterance.ChunkIDsJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize chunk ids: %w", err)
	}
	translationsJSON, err := utterance.TranslationsJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize translations: %w", err)
	}

	query := `
		INSERT INTO utterances (
			uuid, session_id, text, source_language,
			translations, chunk_ids, processing_time_ms, cleaned, broadcast, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	rowID := uuid.NewString()
	_, err = s.db.DB().Exec(query,
		rowID, sessionID, utterance.Text, utterance.SourceLanguage,
		translationsJSON, chunkIDsJSON, utterance.ProcessingTime,
		utterance.Cleaned, broadcast, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert utterance: %w", err)
	}

	log.Printf("📝 Stored utterance: %s (session: %s, chunks: %d)",
		rowID, security.SanitizeLogInput(sessionID), len(utterance.ChunkIDs))
	return nil
}

// GetByUUID retrieves an archived utterance by its row UUID
func (s *UtteranceStore) GetByUUID(rowID string) (*StoredUtterance, error) {
	query := `
		SELECT uuid, session_id, text, source_language,
			   translations, chunk_ids, processing_time_ms, cleaned, broadcast, created_at
		FROM utterances
		WHERE uuid = ?`

	row := s.db.DB().QueryRow(query, rowID)
	return s.scanUtterance(row)
}

// ListBySession retrieves a session's utterances in arrival order. A limit
// of 0 returns everything.
func (s *UtteranceStore) ListBySession(sessionID string, limit int) ([]*StoredUtterance, error) {
	query := `
		SELECT uuid, session_id, text, source_language,
			   translations, chunk_ids, processing_time_ms, cleaned, broadcast, created_at
		FROM utterances
		WHERE session_id = ?
		ORDER BY id ASC`

	var args []interface{}
	args = append(args, sessionID)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.DB().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query utterances: %w", err)
	}
	defer rows.Close()

	var utterances []*StoredUtterance
	for rows.Next() {
		stored, err := s.scanUtterance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan utterance: %w", err)
		}
		utterances = append(utterances, stored)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating utterances: %w", err)
	}

	return utterances, nil
}

// CountBySession returns how many utterances a session has archived
func (s *UtteranceStore) CountBySession(sessionID string) (int64, error) {
	var count int64
	err := s.db.DB().QueryRow(
		"SELECT COUNT(*) FROM utterances WHERE session_id = ?", sessionID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count utterances: %w", err)
	}
	return count, nil
}

// DeleteBySession removes a session's archive, e.g. when the event is
// deleted upstream
func (s *UtteranceStore) DeleteBySession(sessionID string) (int64, error) {
	result, err := s.db.DB().Exec("DELETE FROM utterances WHERE session_id = ?", sessionID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete utterances: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	log.Printf("🗑️  Deleted %d utterances for session: %s", rowsAffected, security.SanitizeLogInput(sessionID))
	return rowsAffected, nil
}

// scanner matches both sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func (s *UtteranceStore) scanUtterance(row scanner) (*StoredUtterance, error) {
	var stored StoredUtterance
	var translationsJSON, chunkIDsJSON string

	err := row.Scan(
		&stored.UUID, &stored.SessionID, &stored.Utterance.Text, &stored.Utterance.SourceLanguage,
		&translationsJSON, &chunkIDsJSON, &stored.Utterance.ProcessingTime,
		&stored.Utterance.Cleaned, &stored.Broadcast, &stored.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("utterance not found")
	}
	if err != nil {
		return nil, err
	}

	if translationsJSON != "" {
		if err := json.Unmarshal([]byte(translationsJSON), &stored.Utterance.Translations); err != nil {
			return nil, fmt.Errorf("failed to parse translations: %w", err)
		}
	}
	if chunkIDsJSON != "" {
		if err := json.Unmarshal([]byte(chunkIDsJSON), &stored.Utterance.ChunkIDs); err != nil {
			return nil, fmt.Errorf("failed to parse chunk ids: %w", err)
		}
	}

	return &stored, nil
}
