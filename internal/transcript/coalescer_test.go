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

package transcript

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fadejevs/speechdev/internal/events"
)

// fakeCleaner returns a canned result or error per call
type fakeCleaner struct {
	mu     sync.Mutex
	result func(input string) (string, error)
	inputs []string
}

func (f *fakeCleaner) Clean(_ context.Context, text string) (string, error) {
	f.mu.Lock()
	f.inputs = append(f.inputs, text)
	result := f.result
	f.mu.Unlock()

	if result == nil {
		return text, nil
	}
	return result(text)
}

func (f *fakeCleaner) lastInput() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.inputs) == 0 {
		return ""
	}
	return f.inputs[len(f.inputs)-1]
}

// recorder collects published and persisted utterances
type recorder struct {
	mu        sync.Mutex
	published []*events.CoalescedUtterance
	persisted []*events.CoalescedUtterance
}

func (r *recorder) publish(u *events.CoalescedUtterance) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.published = append(r.published, u)
}

func (r *recorder) persist(u *events.CoalescedUtterance) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.persisted = append(r.persisted, u)
}

func (r *recorder) publishedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.published)
}

func (r *recorder) persistedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.persisted)
}

func (r *recorder) lastPublished() *events.CoalescedUtterance {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.published) == 0 {
		return nil
	}
	return r.published[len(r.published)-1]
}

func (r *recorder) lastPersisted() *events.CoalescedUtterance {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.persisted) == 0 {
		return nil
	}
	return r.persisted[len(r.persisted)-1]
}

func newTestCoalescer(cleaner *fakeCleaner, window time.Duration) (*Coalescer, *recorder) {
	rec := &recorder{}
	c := NewCoalescer(cleaner, window, rec.publish, rec.persist)
	c.Activate()
	return c, rec
}

func TestSafetyFlushCollectsAllChunksInOrder(t *testing.T) {
	cleaner := &fakeCleaner{}
	c, rec := newTestCoalescer(cleaner, 60*time.Millisecond)

	first := events.NewTranscriptChunk("Hello", "en", nil)
	second := events.NewTranscriptChunk(" world", "en", map[string]string{"lv": "pasaule"})

	c.Submit(first)
	time.Sleep(20 * time.Millisecond)
	c.Submit(second)

	time.Sleep(200 * time.Millisecond)

	if rec.publishedCount() != 1 {
		t.Fatalf("published %d utterances, want exactly 1", rec.publishedCount())
	}

	utterance := rec.lastPublished()
	if utterance.Text != "Hello world" {
		t.Errorf("Text = %q, want %q", utterance.Text, "Hello world")
	}
	if len(utterance.ChunkIDs) != 2 || utterance.ChunkIDs[0] != first.ID || utterance.ChunkIDs[1] != second.ID {
		t.Errorf("ChunkIDs = %v, want [%s %s]", utterance.ChunkIDs, first.ID, second.ID)
	}
	if utterance.SourceLanguage != "en" {
		t.Errorf("SourceLanguage = %q, want from first chunk", utterance.SourceLanguage)
	}
	if utterance.Translations["lv"] != "pasaule" {
		t.Errorf("Translations = %v, want from last chunk", utterance.Translations)
	}
	if cleaner.lastInput() != "Hello world" {
		t.Errorf("cleanup input = %q, want joined text", cleaner.lastInput())
	}
}

func TestImmediateTriggerOnSentenceEnd(t *testing.T) {
	cleaner := &fakeCleaner{}
	c, rec := newTestCoalescer(cleaner, 10*time.Second)

	c.Submit(events.NewTranscriptChunk("This is a sentence.", "en", nil))

	// The long safety window never had a chance to fire; the flush must have
	// happened synchronously inside Submit.
	if rec.publishedCount() != 1 {
		t.Fatalf("published %d utterances, want 1 synchronous flush", rec.publishedCount())
	}
	if got := rec.lastPublished().Text; got != "This is a sentence." {
		t.Errorf("Text = %q", got)
	}
}

func TestImmediateTriggerHandlesTrailingWhitespaceAndQuestion(t *testing.T) {
	cleaner := &fakeCleaner{}
	c, rec := newTestCoalescer(cleaner, 10*time.Second)

	c.Submit(events.NewTranscriptChunk("Is anyone", "en", nil))
	if rec.publishedCount() != 0 {
		t.Fatal("unterminated text must not flush")
	}

	c.Submit(events.NewTranscriptChunk("listening?  ", "en", nil))
	if rec.publishedCount() != 1 {
		t.Fatalf("published %d utterances, want 1", rec.publishedCount())
	}
	if got := rec.lastPublished().Text; got != "Is anyone listening?" {
		t.Errorf("Text = %q", got)
	}
}

func TestSafetyWindowRenewsPerChunk(t *testing.T) {
	cleaner := &fakeCleaner{}
	c, rec := newTestCoalescer(cleaner, 80*time.Millisecond)

	// Keep submitting faster than the window; nothing should flush.
	for i := 0; i < 4; i++ {
		c.Submit(events.NewTranscriptChunk("and then", "en", nil))
		time.Sleep(30 * time.Millisecond)
	}

	if rec.publishedCount() != 0 {
		t.Fatalf("published %d utterances while window kept renewing, want 0", rec.publishedCount())
	}

	time.Sleep(200 * time.Millisecond)

	if rec.publishedCount() != 1 {
		t.Fatalf("published %d utterances after quiet period, want 1", rec.publishedCount())
	}
	if got := len(rec.lastPublished().ChunkIDs); got != 4 {
		t.Errorf("flush covered %d chunks, want all 4", got)
	}
}

func TestInactiveSubmitIsNoOp(t *testing.T) {
	cleaner := &fakeCleaner{}
	rec := &recorder{}
	c := NewCoalescer(cleaner, 30*time.Millisecond, rec.publish, rec.persist)

	c.Submit(events.NewTranscriptChunk("Ignored.", "en", nil))

	time.Sleep(100 * time.Millisecond)
	if rec.publishedCount() != 0 || rec.persistedCount() != 0 {
		t.Error("submit while inactive must not produce utterances")
	}
}

func TestDeactivateDiscardsBufferAndTimer(t *testing.T) {
	cleaner := &fakeCleaner{}
	c, rec := newTestCoalescer(cleaner, 40*time.Millisecond)

	c.Submit(events.NewTranscriptChunk("half a", "en", nil))
	c.Deactivate()

	time.Sleep(150 * time.Millisecond)

	if rec.publishedCount() != 0 || rec.persistedCount() != 0 {
		t.Error("deactivate must discard buffered chunks without flushing")
	}
	if c.Active() {
		t.Error("coalescer should be inactive")
	}
}

func TestEmptyFlushIsNoOp(t *testing.T) {
	cleaner := &fakeCleaner{}
	c, rec := newTestCoalescer(cleaner, 40*time.Millisecond)

	c.Flush()

	if rec.publishedCount() != 0 || rec.persistedCount() != 0 {
		t.Error("flushing an empty buffer must emit nothing")
	}
}

func TestCleanupFailureFallsBackToRawAndBroadcasts(t *testing.T) {
	cleaner := &fakeCleaner{result: func(string) (string, error) {
		return "", errors.New("upstream timeout")
	}}
	c, rec := newTestCoalescer(cleaner, 10*time.Second)

	c.Submit(events.NewTranscriptChunk("Raw words survive.", "en", nil))

	if rec.publishedCount() != 1 {
		t.Fatalf("published %d utterances, want raw fallback broadcast", rec.publishedCount())
	}

	utterance := rec.lastPublished()
	if utterance.Text != "Raw words survive." {
		t.Errorf("Text = %q, want raw joined text", utterance.Text)
	}
	if utterance.Cleaned {
		t.Error("fallback utterance must not be marked cleaned")
	}
	if rec.persistedCount() != 1 {
		t.Errorf("persisted %d utterances, want 1", rec.persistedCount())
	}
}

func TestValidationFailureIsPersistedButNotBroadcast(t *testing.T) {
	cleaner := &fakeCleaner{result: func(string) (string, error) {
		return "There is no text provided.", nil
	}}
	c, rec := newTestCoalescer(cleaner, 10*time.Second)

	c.Submit(events.NewTranscriptChunk("Something was said.", "en", nil))

	if rec.publishedCount() != 0 {
		t.Errorf("published %d utterances, want 0 for rejected cleanup", rec.publishedCount())
	}
	if rec.persistedCount() != 1 {
		t.Fatalf("persisted %d utterances, want 1", rec.persistedCount())
	}

	utterance := rec.lastPersisted()
	if utterance.Text != "Something was said." {
		t.Errorf("persisted Text = %q, want raw text", utterance.Text)
	}
	if utterance.Cleaned {
		t.Error("rejected utterance must not be marked cleaned")
	}
}

func TestCleanedUtteranceMarkedAndTimed(t *testing.T) {
	cleaner := &fakeCleaner{result: func(string) (string, error) {
		time.Sleep(10 * time.Millisecond)
		return "A tidy sentence.", nil
	}}
	c, rec := newTestCoalescer(cleaner, 10*time.Second)

	c.Submit(events.NewTranscriptChunk("a tidy sentence.", "en", nil))

	utterance := rec.lastPublished()
	if utterance == nil {
		t.Fatal("expected a published utterance")
	}
	if !utterance.Cleaned {
		t.Error("expected utterance to be marked cleaned")
	}
	if utterance.ProcessingTime < 10 {
		t.Errorf("ProcessingTime = %dms, want at least the cleanup latency", utterance.ProcessingTime)
	}
}

func TestNoChunkAppearsInTwoUtterances(t *testing.T) {
	cleaner := &fakeCleaner{}
	c, rec := newTestCoalescer(cleaner, 10*time.Second)

	first := events.NewTranscriptChunk("First sentence.", "en", nil)
	second := events.NewTranscriptChunk("Second sentence.", "en", nil)
	c.Submit(first)
	c.Submit(second)

	if rec.publishedCount() != 2 {
		t.Fatalf("published %d utterances, want 2", rec.publishedCount())
	}

	seen := make(map[string]int)
	rec.mu.Lock()
	for _, u := range rec.published {
		for _, id := range u.ChunkIDs {
			seen[id]++
		}
	}
	rec.mu.Unlock()

	for id, count := range seen {
		if count != 1 {
			t.Errorf("chunk %s appeared in %d utterances, want 1", id, count)
		}
	}
}
