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
	"io"
	"os/exec"
)

// Sink renders an audio stream to the output device. Play blocks until the
// stream has been fully rendered.
type Sink interface {
	Play(audio io.Reader, contentType string) error
}

// CommandSink pipes audio into an external player process such as mpg123.
type CommandSink struct {
	command string
	args    []string
}

// NewCommandSink verifies the player binary exists and returns a sink that
// shells out to it for each stream.
func NewCommandSink(command string, args ...string) (*CommandSink, error) {
	path, err := exec.LookPath(command)
	if err != nil {
		return nil, fmt.Errorf("audio player %q not found: %w", command, err)
	}

	return &CommandSink{command: path, args: args}, nil
}

// Play feeds the stream to the player's stdin and waits for it to exit.
func (s *CommandSink) Play(audio io.Reader, contentType string) error {
	args := append([]string{}, s.args...)
	args = append(args, "-") // read from stdin

	cmd := exec.Command(s.command, args...)
	cmd.Stdin = audio

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("audio player failed: %w", err)
	}

	return nil
}

// DiscardSink consumes audio without playing it. Used when no output device
// is configured.
type DiscardSink struct{}

func (DiscardSink) Play(audio io.Reader, contentType string) error {
	_, err := io.Copy(io.Discard, audio)
	return err
}
