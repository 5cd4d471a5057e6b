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
	"strings"
	"testing"

	"github.com/fadejevs/speechdev/internal/events"
	"github.com/fadejevs/speechdev/internal/llm"
)

// fakeSynthesizer implements llm.Synthesizer and records what it was asked
// to synthesize.
type fakeSynthesizer struct {
	audio string
	err   error
	calls []string
}

func (f *fakeSynthesizer) Synthesize(text string, options *llm.TTSOptions) (*llm.TTSResult, error) {
	f.calls = append(f.calls, text)
	if f.err != nil {
		return nil, f.err
	}
	return &llm.TTSResult{
		Audio:       strings.NewReader(f.audio),
		ContentType: "audio/mpeg",
		Length:      int64(len(f.audio)),
	}, nil
}

func (f *fakeSynthesizer) GetAvailableVoices() ([]string, error) { return []string{"af_bella"}, nil }
func (f *fakeSynthesizer) Close() error                          { return nil }

// captureSink remembers everything played through it.
type captureSink struct {
	streams []string
}

func (s *captureSink) Play(audio io.Reader, contentType string) error {
	data, err := io.ReadAll(audio)
	if err != nil {
		return err
	}
	s.streams = append(s.streams, string(data))
	return nil
}

func TestFallbackSpeakerPrefersNative(t *testing.T) {
	native := &fakeSynthesizer{audio: "native-audio"}
	cloud := &fakeSynthesizer{audio: "cloud-audio"}
	sink := &captureSink{}

	speaker, err := NewFallbackSpeaker(native, cloud, sink)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := speaker.Speak(events.PlaybackItem{Text: "hello"}); err != nil {
		t.Fatalf("Speak failed: %v", err)
	}

	if len(cloud.calls) != 0 {
		t.Error("cloud backend should not be touched when native succeeds")
	}
	if len(sink.streams) != 1 || sink.streams[0] != "native-audio" {
		t.Errorf("expected native audio in sink, got %v", sink.streams)
	}
}

func TestFallbackSpeakerFallsBackOnNativeError(t *testing.T) {
	native := &fakeSynthesizer{err: fmt.Errorf("engine unavailable")}
	cloud := &fakeSynthesizer{audio: "cloud-audio"}
	sink := &captureSink{}

	speaker, err := NewFallbackSpeaker(native, cloud, sink)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := speaker.Speak(events.PlaybackItem{Text: "hello"}); err != nil {
		t.Fatalf("Speak failed: %v", err)
	}

	if len(cloud.calls) != 1 {
		t.Fatalf("expected one cloud call, got %d", len(cloud.calls))
	}
	if len(sink.streams) != 1 || sink.streams[0] != "cloud-audio" {
		t.Errorf("expected cloud audio in sink, got %v", sink.streams)
	}
}

func TestFallbackSpeakerCloudOnly(t *testing.T) {
	cloud := &fakeSynthesizer{audio: "cloud-audio"}
	sink := &captureSink{}

	speaker, err := NewFallbackSpeaker(nil, cloud, sink)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := speaker.Speak(events.PlaybackItem{Text: "hello"}); err != nil {
		t.Fatalf("Speak failed: %v", err)
	}
	if len(cloud.calls) != 1 {
		t.Errorf("expected one cloud call, got %d", len(cloud.calls))
	}
}

func TestFallbackSpeakerErrorsWhenBothFail(t *testing.T) {
	native := &fakeSynthesizer{err: fmt.Errorf("engine unavailable")}
	cloud := &fakeSynthesizer{err: fmt.Errorf("service down")}

	speaker, err := NewFallbackSpeaker(native, cloud, &captureSink{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := speaker.Speak(events.PlaybackItem{Text: "hello"}); err == nil {
		t.Error("expected error when both backends fail")
	}
}

func TestFallbackSpeakerSkipsEmptyText(t *testing.T) {
	cloud := &fakeSynthesizer{audio: "cloud-audio"}
	sink := &captureSink{}

	speaker, err := NewFallbackSpeaker(nil, cloud, sink)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := speaker.Speak(events.PlaybackItem{}); err != nil {
		t.Fatalf("Speak failed: %v", err)
	}
	if len(cloud.calls) != 0 || len(sink.streams) != 0 {
		t.Error("empty item should not reach any backend")
	}
}

func TestNewFallbackSpeakerRequiresBackend(t *testing.T) {
	if _, err := NewFallbackSpeaker(nil, nil, &captureSink{}); err == nil {
		t.Error("expected error with no backends")
	}
	if _, err := NewFallbackSpeaker(&fakeSynthesizer{}, nil, nil); err == nil {
		t.Error("expected error with no sink")
	}
}
