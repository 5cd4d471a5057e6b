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
	"fmt"

	"go.uber.org/zap"

	"github.com/fadejevs/speechdev/internal/events"
	"github.com/fadejevs/speechdev/internal/llm"
	"github.com/fadejevs/speechdev/internal/logging"
)

// Speaker synthesizes one item and renders it to completion. A Speak call
// returns only after the audio has finished playing.
type Speaker interface {
	Speak(item events.PlaybackItem) error
}

// FallbackSpeaker tries local synthesis first and falls back to the cloud
// service. Each item's attempt is independent; one failed item never blocks
// the next.
type FallbackSpeaker struct {
	native llm.Synthesizer // nil when the local capability is unavailable
	cloud  llm.Synthesizer
	sink   Sink
}

// NewFallbackSpeaker creates a speaker over the given backends. native may
// be nil; cloud may be nil only if native is not.
func NewFallbackSpeaker(native, cloud llm.Synthesizer, sink Sink) (*FallbackSpeaker, error) {
	if native == nil && cloud == nil {
		return nil, fmt.Errorf("at least one synthesis backend is required")
	}
	if sink == nil {
		return nil, fmt.Errorf("audio sink is required")
	}

	return &FallbackSpeaker{
		native: native,
		cloud:  cloud,
		sink:   sink,
	}, nil
}

// Speak synthesizes the item and plays it through the sink
func (s *FallbackSpeaker) Speak(item events.PlaybackItem) error {
	if item.Text == "" {
		return nil
	}

	options := &llm.TTSOptions{Voice: item.Voice}

	if s.native != nil {
		result, err := s.native.Synthesize(item.Text, options)
		if err == nil {
			return s.sink.Play(result.Audio, result.ContentType)
		}

		logging.LogWarn("Native synthesis failed, falling back to cloud",
			zap.Error(err),
			zap.Int("text_length", len(item.Text)),
		)
	}

	if s.cloud == nil {
		return fmt.Errorf("no synthesis backend available for item")
	}

	result, err := s.cloud.Synthesize(item.Text, options)
	if err != nil {
		return fmt.Errorf("cloud synthesis failed: %w", err)
	}

	return s.sink.Play(result.Audio, result.ContentType)
}
