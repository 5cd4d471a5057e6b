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

// Package transcript merges bursty ASR fragments into clean, readable
// utterances before they are broadcast and persisted.
package transcript

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fadejevs/speechdev/internal/events"
	"github.com/fadejevs/speechdev/internal/llm"
	"github.com/fadejevs/speechdev/internal/logging"
	"github.com/fadejevs/speechdev/internal/timing"
)

// DefaultFlushWindow is the safety flush window used when none is configured.
const DefaultFlushWindow = 3 * time.Second

// sentenceEnd matches text whose concatenation ends in sentence-final
// punctuation, optionally followed by whitespace.
var sentenceEnd = regexp.MustCompile(`[.!?]\s*$`)

// Publisher receives utterances bound for the realtime channel.
type Publisher func(utterance *events.CoalescedUtterance)

// Persister receives every utterance for local storage, including those that
// failed cleanup validation and were kept out of the broadcast path.
type Persister func(utterance *events.CoalescedUtterance)

// Coalescer buffers transcript chunks and flushes them as a single cleaned
// utterance. A flush fires synchronously when the buffered text ends a
// sentence, or after a quiet window renewed by every new chunk. The window
// renewal means continuous unpunctuated speech defers the safety flush; that
// matches the product behavior and is left unbounded on purpose.
type Coalescer struct {
	mu      sync.Mutex
	active  bool
	buffer  []*events.TranscriptChunk
	arrival int

	cleaner     llm.Cleaner
	flushTimer  *timing.Debouncer
	flushWindow time.Duration

	publish Publisher
	persist Persister
}

// NewCoalescer creates an inactive coalescer. A zero flushWindow selects
// DefaultFlushWindow. Either callback may be nil.
func NewCoalescer(cleaner llm.Cleaner, flushWindow time.Duration, publish Publisher, persist Persister) *Coalescer {
	if flushWindow <= 0 {
		flushWindow = DefaultFlushWindow
	}

	return &Coalescer{
		cleaner:     cleaner,
		flushWindow: flushWindow,
		flushTimer:  timing.NewDebouncer(flushWindow),
		publish:     publish,
		persist:     persist,
	}
}

// Activate enables chunk intake.
func (c *Coalescer) Activate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = true
}

// Deactivate disables intake and discards any buffered chunks and pending
// safety timer. Stop means stop: buffered content is not flushed.
func (c *Coalescer) Deactivate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.active = false
	c.buffer = nil
	c.flushTimer.Cancel()
}

// Active reports whether the coalescer is accepting chunks
func (c *Coalescer) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Submit appends a chunk to the buffer. If the buffered text now ends a
// sentence the buffer flushes synchronously; otherwise the safety window is
// (re)armed from this arrival.
func (c *Coalescer) Submit(chunk *events.TranscriptChunk) {
	if chunk == nil {
		return
	}

	c.mu.Lock()

	if !c.active {
		c.mu.Unlock()
		return
	}

	chunk.ArrivalOrder = c.arrival
	c.arrival++
	c.buffer = append(c.buffer, chunk)

	if sentenceEnd.MatchString(c.joinedLocked()) {
		chunks := c.takeLocked()
		c.mu.Unlock()
		c.flush(chunks)
		return
	}

	c.flushTimer.Schedule(c.flushPending)
	c.mu.Unlock()
}

// Flush forces a flush of whatever is buffered. Empty buffer is a no-op.
func (c *Coalescer) Flush() {
	c.mu.Lock()
	chunks := c.takeLocked()
	c.mu.Unlock()

	c.flush(chunks)
}

// flushPending is the safety-timer callback.
func (c *Coalescer) flushPending() {
	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return
	}
	chunks := c.takeLocked()
	c.mu.Unlock()

	c.flush(chunks)
}

// takeLocked empties the buffer and cancels the safety timer. Callers must
// hold the mutex.
func (c *Coalescer) takeLocked() []*events.TranscriptChunk {
	chunks := c.buffer
	c.buffer = nil
	c.flushTimer.Cancel()
	return chunks
}

// joinedLocked space-joins the buffered chunk texts. Callers must hold the
// mutex.
func (c *Coalescer) joinedLocked() string {
	texts := make([]string, 0, len(c.buffer))
	for _, chunk := range c.buffer {
		texts = append(texts, strings.TrimSpace(chunk.Text))
	}
	return strings.Join(texts, " ")
}

// flush runs the cleanup call and routes the resulting utterance. The
// coalescer always makes forward progress: cleanup failure falls back to the
// raw joined text, and only an explicit validation rejection keeps the
// utterance out of the broadcast path.
func (c *Coalescer) flush(chunks []*events.TranscriptChunk) {
	if len(chunks) == 0 {
		return
	}

	startTime := time.Now()

	texts := make([]string, 0, len(chunks))
	chunkIDs := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		texts = append(texts, strings.TrimSpace(chunk.Text))
		chunkIDs = append(chunkIDs, chunk.ID)
	}
	raw := strings.Join(texts, " ")

	utterance := &events.CoalescedUtterance{
		SourceLanguage: chunks[0].SourceLanguage,
		Translations:   chunks[len(chunks)-1].Translations,
		ChunkIDs:       chunkIDs,
	}

	broadcast := true

	cleaned, err := c.clean(raw)
	switch {
	case err == nil:
		utterance.Text = cleaned
		utterance.Cleaned = true
	case errors.Is(err, llm.ErrRejected):
		logging.LogWarn("Cleanup result rejected, keeping raw transcript local",
			zap.Error(err),
			zap.Int("chunk_count", len(chunks)),
		)
		utterance.Text = raw
		broadcast = false
	default:
		logging.LogError(err, "Cleanup call failed, falling back to raw transcript",
			zap.Int("chunk_count", len(chunks)),
		)
		utterance.Text = raw
	}

	utterance.ProcessingTime = time.Since(startTime).Milliseconds()

	logging.LogTranscriptOperation("flush",
		zap.Int("chunk_count", len(chunks)),
		zap.Bool("cleaned", utterance.Cleaned),
		zap.Bool("broadcast", broadcast),
		zap.Int64("processing_time_ms", utterance.ProcessingTime),
	)

	if broadcast && c.publish != nil {
		c.publish(utterance)
	}
	if c.persist != nil {
		c.persist(utterance)
	}
}

// clean invokes the cleanup service and validates its output
func (c *Coalescer) clean(raw string) (string, error) {
	if c.cleaner == nil {
		return "", errors.New("no cleaner configured")
	}

	cleaned, err := c.cleaner.Clean(context.Background(), raw)
	if err != nil {
		return "", err
	}

	if err := llm.ValidateCleaned(cleaned); err != nil {
		return "", err
	}

	return cleaned, nil
}
