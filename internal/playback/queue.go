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

// Package playback serializes text-to-speech output so translated captions
// never overlap on the single shared audio device.
package playback

import (
	"fmt"
	"time"

	"github.com/fadejevs/speechdev/internal/events"
)

// Queue accepts speech items and renders them as audio. Implementations
// differ in what they do under bursts; none ever overlaps two utterances.
type Queue interface {
	// Enqueue submits one item for playback
	Enqueue(item events.PlaybackItem)

	// Clear drops all pending items. Audio already playing is not
	// interrupted.
	Clear()
}

// Profile selects a playback strategy for the runtime environment.
type Profile string

const (
	// ProfileFull collapses bursts: only the most recent item submitted
	// within the delay window is actually played.
	ProfileFull Profile = "full"

	// ProfileConstrained plays every item strictly in submission order.
	ProfileConstrained Profile = "constrained"
)

// ParseProfile converts a config value into a Profile
func ParseProfile(s string) (Profile, error) {
	switch Profile(s) {
	case ProfileFull, ProfileConstrained:
		return Profile(s), nil
	default:
		return "", fmt.Errorf("unknown playback profile: %q", s)
	}
}

// NewQueue resolves the strategy once at construction. Call sites never
// branch on the profile again.
func NewQueue(profile Profile, speaker Speaker, collapseWindow time.Duration) Queue {
	if profile == ProfileConstrained {
		return NewSequentialQueue(speaker)
	}
	return NewCollapsingQueue(speaker, collapseWindow)
}
