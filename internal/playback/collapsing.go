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

package playback

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fadejevs/speechdev/internal/events"
	"github.com/fadejevs/speechdev/internal/logging"
	"github.com/fadejevs/speechdev/internal/timing"
)

// DefaultCollapseWindow is the burst-collapse delay used when none is
// configured.
const DefaultCollapseWindow = 250 * time.Millisecond

// CollapsingQueue keeps a single pending slot. An item arriving while
// another is pending replaces it and restarts the delay window; only the
// item still pending when the window elapses is played. Under rapid bursts
// strictly fewer items play than were submitted, which is the point: low
// perceived latency over completeness.
type CollapsingQueue struct {
	mu      sync.Mutex
	pending *events.PlaybackItem

	// playMu serializes access to the audio device across window firings
	playMu sync.Mutex

	window  *timing.Debouncer
	speaker Speaker
}

// NewCollapsingQueue creates a burst-collapsing playback queue
func NewCollapsingQueue(speaker Speaker, collapseWindow time.Duration) *CollapsingQueue {
	if collapseWindow <= 0 {
		collapseWindow = DefaultCollapseWindow
	}

	return &CollapsingQueue{
		window:  timing.NewDebouncer(collapseWindow),
		speaker: speaker,
	}
}

// Enqueue replaces any pending item and restarts the delay window
func (q *CollapsingQueue) Enqueue(item events.PlaybackItem) {
	q.mu.Lock()
	replaced := q.pending != nil
	q.pending = &item
	q.mu.Unlock()

	if replaced {
		logging.LogPlaybackOperation("collapse", zap.Int("text_length", len(item.Text)))
	}

	q.window.Schedule(q.playPending)
}

// Clear drops the pending item and cancels the delay window
func (q *CollapsingQueue) Clear() {
	q.mu.Lock()
	q.pending = nil
	q.mu.Unlock()

	q.window.Cancel()
}

// playPending renders whatever survived the delay window
func (q *CollapsingQueue) playPending() {
	q.mu.Lock()
	item := q.pending
	q.pending = nil
	q.mu.Unlock()

	if item == nil {
		return
	}

	q.playMu.Lock()
	defer q.playMu.Unlock()

	if err := q.speaker.Speak(*item); err != nil {
		logging.LogError(err, "Playback item failed",
			zap.Int("text_length", len(item.Text)),
			zap.String("voice", item.Voice),
		)
	}
}
