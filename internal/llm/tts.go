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

package llm

import (
	"io"
)

// TTSOptions holds options for text-to-speech synthesis
type TTSOptions struct {
	Voice          string  // Voice to use (e.g., "af_bella")
	Speed          float32 // Speech speed (1.0 = normal)
	ResponseFormat string  // Audio format (mp3, wav)
}

// TTSResult holds the result of text-to-speech synthesis
type TTSResult struct {
	Audio       io.Reader // Audio stream
	ContentType string    // MIME type of the audio
	Length      int64     // Audio length in bytes (-1 if unknown)
}

// Synthesizer defines the interface for text-to-speech synthesis services
type Synthesizer interface {
	// Synthesize converts text to speech audio
	Synthesize(text string, options *TTSOptions) (*TTSResult, error)

	// GetAvailableVoices returns the list of available voices
	GetAvailableVoices() ([]string, error)

	// Close cleans up resources
	Close() error
}
