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

	"go.uber.org/zap"

	"github.com/fadejevs/speechdev/internal/events"
	"github.com/fadejevs/speechdev/internal/logging"
)

// SequentialQueue plays every enqueued item to completion in submission
// order. The speaking flag is the sole admission gate for the drain loop:
// it is set and checked under the same lock, so exactly one drain loop owns
// the audio device at any time.
type SequentialQueue struct {
	mu       sync.Mutex
	items    []events.PlaybackItem
	speaking bool
	speaker  Speaker
}

// NewSequentialQueue creates a strict-sequential playback queue
func NewSequentialQueue(speaker Speaker) *SequentialQueue {
	return &SequentialQueue{speaker: speaker}
}

// Enqueue appends the item and starts the drain loop if idle
func (q *SequentialQueue) Enqueue(item events.PlaybackItem) {
	q.mu.Lock()
	q.items = append(q.items, item)

	if q.speaking {
		q.mu.Unlock()
		return
	}
	q.speaking = true
	q.mu.Unlock()

	go q.drain()
}

// Clear drops all pending items. The item currently playing finishes; the
// drain loop then finds the queue empty and releases the speaking flag.
func (q *SequentialQueue) Clear() {
	q.mu.Lock()
	dropped := len(q.items)
	q.items = nil
	q.mu.Unlock()

	if dropped > 0 {
		logging.LogPlaybackOperation("clear", zap.Int("dropped", dropped))
	}
}

// drain plays items one at a time until the queue empties. A failed item is
// logged and skipped; it never blocks the items behind it.
func (q *SequentialQueue) drain() {
	for {
		q.mu.Lock()
		if len(q.items) == 0 {
			q.speaking = false
			q.mu.Unlock()
			return
		}
		item := q.items[0]
		q.items = q.items[1:]
		q.mu.Unlock()

		if err := q.speaker.Speak(item); err != nil {
			logging.LogError(err, "Playback item failed, continuing with queue",
				zap.Int("text_length", len(item.Text)),
				zap.String("voice", item.Voice),
			)
		}
	}
}
