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

package app

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/fadejevs/speechdev/internal/config"
	"github.com/fadejevs/speechdev/internal/events"
	"github.com/fadejevs/speechdev/internal/llm"
	"github.com/fadejevs/speechdev/internal/logging"
	"github.com/fadejevs/speechdev/internal/playback"
	"github.com/fadejevs/speechdev/internal/realtime"
	"github.com/fadejevs/speechdev/internal/session"
	"github.com/fadejevs/speechdev/internal/storage"
	"github.com/fadejevs/speechdev/internal/transcript"
)

// App wires the captioning pipeline together: transcript coalescing, LLM
// cleanup, realtime broadcast, speech playback, lifecycle control, and the
// local caption archive.
type App struct {
	cfg *config.Config

	db         *storage.Database
	archive    *storage.UtteranceStore
	channel    *realtime.Channel
	coalescer  *transcript.Coalescer
	queue      playback.Queue
	speaker    *playback.FallbackSpeaker
	cloudTTS   *llm.CloudTTSClient
	nativeTTS  *llm.NativeSynthesizer
	controller *session.Controller

	mu          sync.Mutex
	sessionID   string
	broadcasted map[*events.CoalescedUtterance]struct{}
}

// New builds the full pipeline from configuration. Optional capabilities
// (native synthesis, an audio player binary) degrade gracefully when absent.
func New(cfg *config.Config) (*App, error) {
	a := &App{
		cfg:         cfg,
		broadcasted: make(map[*events.CoalescedUtterance]struct{}),
	}

	db, err := storage.NewDatabase(storage.DatabaseConfig{Path: cfg.Storage.DBPath})
	if err != nil {
		return nil, fmt.Errorf("failed to open caption archive: %w", err)
	}
	a.db = db
	a.archive = storage.NewUtteranceStore(db)

	cloudTTS, err := llm.NewCloudTTSClient(cfg.TTS)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create TTS client: %w", err)
	}
	a.cloudTTS = cloudTTS

	nativeTTS, err := llm.NewNativeSynthesizer(cfg.TTS.NativeCommand)
	if err != nil {
		logging.LogWarn("Native synthesis unavailable, cloud TTS only",
			zap.String("command", cfg.TTS.NativeCommand),
			zap.Error(err))
	} else {
		a.nativeTTS = nativeTTS
	}

	var sink playback.Sink
	commandSink, err := playback.NewCommandSink(cfg.Playback.PlayerCommand)
	if err != nil {
		logging.LogWarn("Audio player unavailable, playback will be silent",
			zap.String("command", cfg.Playback.PlayerCommand),
			zap.Error(err))
		sink = playback.DiscardSink{}
	} else {
		sink = commandSink
	}

	var native llm.Synthesizer
	if a.nativeTTS != nil {
		native = a.nativeTTS
	}
	speaker, err := playback.NewFallbackSpeaker(native, cloudTTS, sink)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create speaker: %w", err)
	}
	a.speaker = speaker

	profile, err := playback.ParseProfile(cfg.Playback.Profile)
	if err != nil {
		db.Close()
		return nil, err
	}
	a.queue = playback.NewQueue(profile, speaker, cfg.Playback.CollapseWindow)

	a.channel = realtime.NewChannel(cfg.Realtime.URL, realtime.Options{
		ConnectTimeout: cfg.Realtime.ConnectTimeout,
		ReconnectDelay: cfg.Realtime.ReconnectDelay,
		MaxReconnects:  cfg.Realtime.MaxReconnects,
	})

	cleaner := llm.NewOpenAICleaner(cfg.Cleanup)
	a.coalescer = transcript.NewCoalescer(cleaner, cfg.Transcript.FlushWindow,
		a.publishUtterance, a.persistUtterance)

	store := session.NewHTTPStatusStore(cfg.Session.APIURL, cfg.Session.Timeout)
	a.controller = session.NewController(store, a.channel, a.coalescer, nil, session.Options{
		NotifyRetryInterval: cfg.Session.NotifyRetryInterval,
		ResumeGrace:         cfg.Session.ResumeGrace,
	})

	a.configureComponents()

	return a, nil
}

// configureComponents sets up integration between components
func (a *App) configureComponents() {
	a.channel.OnStateChange(func(state realtime.ConnectionState) {
		logging.LogChannelEvent("state_change", a.roomID(),
			zap.String("state", string(state)))
	})
	a.channel.OnStatus(a.handleRemoteStatus)

	logging.Sugar.Infow("🔧 Components configured",
		"cleanup_url", a.cfg.Cleanup.URL,
		"tts_url", a.cfg.TTS.URL,
		"realtime_url", a.cfg.Realtime.URL,
		"playback_profile", a.cfg.Playback.Profile)
}

// Join loads the session and opens its realtime room.
func (a *App) Join(ctx context.Context, sess events.EventSession) error {
	a.mu.Lock()
	a.sessionID = sess.ID
	a.mu.Unlock()

	if err := a.channel.Connect(sess.ID); err != nil {
		// A dead channel is not fatal: the session still works locally
		// and the controller retries on resume.
		logging.LogError(err, "Initial channel connect failed",
			zap.String("session_id", sess.ID))
	}

	if err := a.controller.Load(ctx, sess); err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}

	logging.Sugar.Infow("🚀 Session joined",
		"session_id", sess.ID,
		"status", string(a.controller.Session().Status))
	return nil
}

// Controller exposes the lifecycle controller for UI-driven transitions.
func (a *App) Controller() *session.Controller {
	return a.controller
}

// Coalescer exposes the transcript intake for the recognition source.
func (a *App) Coalescer() *transcript.Coalescer {
	return a.coalescer
}

// Close shuts the pipeline down. Buffered transcript data is discarded,
// matching the stop-means-stop contract of deactivation.
func (a *App) Close() error {
	logging.Sugar.Infow("🛑 Shutting down Speechdev pipeline")

	a.controller.Close()
	a.coalescer.Deactivate()
	a.queue.Clear()
	a.channel.Disconnect()

	if a.nativeTTS != nil {
		a.nativeTTS.Close()
	}
	a.cloudTTS.Close()

	if err := a.db.Close(); err != nil {
		return fmt.Errorf("failed to close caption archive: %w", err)
	}

	logging.Sugar.Infow("✅ Speechdev pipeline shut down")
	return nil
}

func (a *App) roomID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sessionID
}

// publishUtterance sends an utterance to the room and queues it for speech.
func (a *App) publishUtterance(utterance *events.CoalescedUtterance) {
	room := a.roomID()

	a.channel.Send(realtime.EventTranscription, realtime.Transcription{
		Text:           utterance.Text,
		IsFinal:        true,
		IsLLMProcessed: utterance.Cleaned,
		SourceLanguage: utterance.SourceLanguage,
		RoomID:         room,
		Translations:   utterance.Translations,
		ProcessingTime: utterance.ProcessingTime,
		ChunkIDs:       utterance.ChunkIDs,
	})

	a.queue.Enqueue(events.PlaybackItem{
		Text:  utterance.Text,
		Voice: a.cfg.TTS.Voice,
	})

	a.mu.Lock()
	a.broadcasted[utterance] = struct{}{}
	a.mu.Unlock()
}

// persistUtterance archives every utterance, including ones the validator
// kept off the broadcast path.
func (a *App) persistUtterance(utterance *events.CoalescedUtterance) {
	room := a.roomID()

	a.mu.Lock()
	_, broadcast := a.broadcasted[utterance]
	delete(a.broadcasted, utterance)
	a.mu.Unlock()

	if err := a.archive.Insert(room, utterance, broadcast); err != nil {
		logging.LogError(err, "Failed to archive utterance",
			zap.String("session_id", room),
			zap.Int("chunk_count", len(utterance.ChunkIDs)))
	}
}

// handleRemoteStatus applies status changes broadcast by other room members.
// The sender already persisted, so this only reconciles local state.
func (a *App) handleRemoteStatus(update realtime.UpdateEventStatus) {
	room := a.roomID()
	if update.RoomID != room {
		return
	}

	status, err := events.ParseStatus(update.Status)
	if err != nil {
		logging.LogWarn("Ignoring remote status update with unknown status",
			zap.String("status", update.Status))
		return
	}

	previous := a.controller.Session().Status
	if err := a.controller.ApplyRemote(status); err != nil {
		logging.LogWarn("Rejected remote status update", zap.Error(err))
		return
	}

	logging.LogSessionTransition(room, string(previous), string(status),
		zap.Bool("remote", true))

	switch status {
	case events.StatusLive:
		a.coalescer.Activate()
	case events.StatusPaused, events.StatusCompleted:
		a.coalescer.Deactivate()
		a.queue.Clear()
	}
}
