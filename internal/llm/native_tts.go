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
	"bytes"
	"fmt"
	"os/exec"
	"strings"

	"github.com/fadejevs/speechdev/internal/logging"
)

// NativeSynthesizer implements Synthesizer with a local speech synthesis
// binary (espeak-ng style). No network is involved; availability is probed
// once at construction by resolving the binary and listing its voices.
type NativeSynthesizer struct {
	command string
	path    string
	voices  []string
}

// NewNativeSynthesizer resolves the local synthesis binary and queries its
// voice list. An error means the capability is unavailable on this host and
// callers should use the cloud fallback.
func NewNativeSynthesizer(command string) (*NativeSynthesizer, error) {
	if command == "" {
		return nil, fmt.Errorf("native synthesis command not configured")
	}

	path, err := exec.LookPath(command)
	if err != nil {
		return nil, fmt.Errorf("native synthesis unavailable: %w", err)
	}

	n := &NativeSynthesizer{
		command: command,
		path:    path,
	}

	voices, err := n.listVoices()
	if err != nil {
		return nil, fmt.Errorf("native synthesis voice probe failed: %w", err)
	}
	if len(voices) == 0 {
		return nil, fmt.Errorf("native synthesis reports no voices")
	}
	n.voices = voices

	if logging.Sugar != nil {
		logging.Sugar.Infow("🔊 Native synthesizer available",
			"command", command,
			"voices", len(voices),
		)
	}

	return n, nil
}

// Synthesize renders text through the local binary and returns the encoded
// audio from its stdout.
func (n *NativeSynthesizer) Synthesize(text string, options *TTSOptions) (*TTSResult, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	args := []string{"--stdout"}
	if options != nil && options.Voice != "" {
		args = append(args, "-v", options.Voice)
	}
	args = append(args, text)

	out, err := exec.Command(n.path, args...).Output()
	if err != nil {
		return nil, fmt.Errorf("native synthesis failed: %w", err)
	}

	return &TTSResult{
		Audio:       bytes.NewReader(out),
		ContentType: "audio/wav",
		Length:      int64(len(out)),
	}, nil
}

// GetAvailableVoices returns the voice list captured at construction
func (n *NativeSynthesizer) GetAvailableVoices() ([]string, error) {
	voices := make([]string, len(n.voices))
	copy(voices, n.voices)
	return voices, nil
}

// Close cleans up resources
func (n *NativeSynthesizer) Close() error {
	return nil
}

// listVoices runs the binary's voice listing and parses language codes from
// the table it prints.
func (n *NativeSynthesizer) listVoices() ([]string, error) {
	out, err := exec.Command(n.path, "--voices").Output()
	if err != nil {
		return nil, err
	}

	var voices []string
	lines := strings.Split(string(out), "\n")
	for i, line := range lines {
		if i == 0 {
			// Header row
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		voices = append(voices, fields[1])
	}

	return voices, nil
}
