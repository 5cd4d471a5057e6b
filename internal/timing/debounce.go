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

// Package timing provides cancellable scheduled-task primitives shared by
// the transcript coalescer and the playback queue.
package timing

import (
	"sync"
	"time"

	"github.com/bep/debounce"
)

// Debouncer schedules a function to run after a quiet window. Each Schedule
// call replaces the pending function and restarts the window, so the wait is
// always relative to the most recent call. Cancel invalidates whatever is
// pending without firing it.
type Debouncer struct {
	mu         sync.Mutex
	debounced  func(func())
	generation uint64
}

// NewDebouncer creates a debouncer with the given quiet window.
func NewDebouncer(window time.Duration) *Debouncer {
	return &Debouncer{
		debounced: debounce.New(window),
	}
}

// Schedule arms the debouncer with fn, replacing any pending function and
// restarting the window.
func (d *Debouncer) Schedule(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	generation := d.generation
	d.debounced(func() {
		d.mu.Lock()
		stale := generation != d.generation
		d.mu.Unlock()

		if stale {
			return
		}
		fn()
	})
}

// Cancel drops the pending function, if any. A function already running is
// not interrupted.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.generation++
}
