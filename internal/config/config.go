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

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the captioning pipeline
type Config struct {
	Realtime   RealtimeConfig
	Transcript TranscriptConfig
	Cleanup    CleanupConfig
	TTS        TTSConfig
	Playback   PlaybackConfig
	Session    SessionConfig
	Storage    StorageConfig
	Logging    LoggingConfig
}

// RealtimeConfig holds realtime channel configuration
type RealtimeConfig struct {
	URL            string        // WebSocket URL of the realtime server
	ConnectTimeout time.Duration // Handshake timeout per connection attempt
	ReconnectDelay time.Duration // Delay between automatic reconnection attempts
	MaxReconnects  int           // Automatic reconnection attempts before Error state
}

// TranscriptConfig holds transcript coalescer configuration
type TranscriptConfig struct {
	FlushWindow time.Duration // Safety flush window, renewed per chunk
}

// CleanupConfig holds the transcript cleanup (LLM) service configuration
type CleanupConfig struct {
	URL         string        // OpenAI-compatible chat completions base URL
	APIKey      string        // API key, may be empty for local services
	Model       string        // Model used for transcript rewriting
	MaxTokens   int           // Completion token cap
	Temperature float32       // Sampling temperature
	Timeout     time.Duration // Request timeout
}

// TTSConfig holds cloud text-to-speech service configuration
type TTSConfig struct {
	URL            string        // REST API URL of the synthesis service
	Voice          string        // Default voice
	Speed          float32       // Speech speed (1.0 = normal)
	ResponseFormat string        // Audio format (mp3, wav)
	Timeout        time.Duration // Request timeout
	NativeCommand  string        // Local synthesis binary probed before cloud fallback
}

// PlaybackConfig holds speech playback queue configuration
type PlaybackConfig struct {
	Profile        string        // "full" (burst-collapsing) or "constrained" (sequential)
	CollapseWindow time.Duration // Burst-collapse delay window
	PlayerCommand  string        // Binary that renders encoded audio from stdin
}

// SessionConfig holds event session API configuration
type SessionConfig struct {
	APIURL              string        // REST base URL for event status persistence
	Timeout             time.Duration // Request timeout
	NotifyRetryInterval time.Duration // Retry interval for post-auto-pause broadcasts
	ResumeGrace         time.Duration // Grace period after channel retry on resume
}

// StorageConfig holds local persistence configuration
type StorageConfig struct {
	DBPath string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// Load loads configuration from environment variables with defaults
func Load() (*Config, error) {
	config := &Config{
		Realtime: RealtimeConfig{
			URL:            getEnvString("REALTIME_URL", "ws://localhost:8080/ws"),
			ConnectTimeout: getEnvDuration("REALTIME_CONNECT_TIMEOUT", 10*time.Second),
			ReconnectDelay: getEnvDuration("REALTIME_RECONNECT_DELAY", 2*time.Second),
			MaxReconnects:  getEnvInt("REALTIME_MAX_RECONNECTS", 3),
		},
		Transcript: TranscriptConfig{
			FlushWindow: getEnvDuration("TRANSCRIPT_FLUSH_WINDOW", 3*time.Second),
		},
		Cleanup: CleanupConfig{
			URL:         getEnvString("CLEANUP_URL", "https://api.openai.com/v1"),
			APIKey:      getEnvString("CLEANUP_API_KEY", ""),
			Model:       getEnvString("CLEANUP_MODEL", "gpt-4o-mini"),
			MaxTokens:   getEnvInt("CLEANUP_MAX_TOKENS", 300),
			Temperature: getEnvFloat32("CLEANUP_TEMPERATURE", 0.3),
			Timeout:     getEnvDuration("CLEANUP_TIMEOUT", 15*time.Second),
		},
		TTS: TTSConfig{
			URL:            getEnvString("TTS_URL", "http://localhost:8880/v1"),
			Voice:          getEnvString("TTS_VOICE", "af_bella"),
			Speed:          getEnvFloat32("TTS_SPEED", 1.0),
			ResponseFormat: getEnvString("TTS_FORMAT", "mp3"),
			Timeout:        getEnvDuration("TTS_TIMEOUT", 10*time.Second),
			NativeCommand:  getEnvString("TTS_NATIVE_COMMAND", "espeak-ng"),
		},
		Playback: PlaybackConfig{
			Profile:        getEnvString("PLAYBACK_PROFILE", "full"),
			CollapseWindow: getEnvDuration("PLAYBACK_COLLAPSE_WINDOW", 250*time.Millisecond),
			PlayerCommand:  getEnvString("PLAYBACK_PLAYER_COMMAND", "mpg123"),
		},
		Session: SessionConfig{
			APIURL:              getEnvString("SESSION_API_URL", "http://localhost:8081/api/events"),
			Timeout:             getEnvDuration("SESSION_API_TIMEOUT", 10*time.Second),
			NotifyRetryInterval: getEnvDuration("SESSION_NOTIFY_RETRY_INTERVAL", time.Second),
			ResumeGrace:         getEnvDuration("SESSION_RESUME_GRACE", time.Second),
		},
		Storage: StorageConfig{
			DBPath: getEnvString("DB_PATH", "./data/speechdev.db"),
		},
		Logging: LoggingConfig{
			Level:  getEnvString("LOG_LEVEL", "info"),
			Format: getEnvString("LOG_FORMAT", "json"),
		},
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// validate checks if the configuration is valid
func (c *Config) validate() error {
	if c.Realtime.URL == "" {
		return fmt.Errorf("realtime URL must be provided")
	}

	if c.Realtime.MaxReconnects < 0 {
		return fmt.Errorf("realtime max reconnects must not be negative: %d", c.Realtime.MaxReconnects)
	}

	if c.Transcript.FlushWindow <= 0 {
		return fmt.Errorf("transcript flush window must be positive: %v", c.Transcript.FlushWindow)
	}

	if c.Cleanup.URL == "" {
		return fmt.Errorf("cleanup URL must be provided")
	}

	if c.Cleanup.MaxTokens <= 0 {
		return fmt.Errorf("cleanup max tokens must be positive: %d", c.Cleanup.MaxTokens)
	}

	if c.TTS.URL == "" {
		return fmt.Errorf("TTS URL must be provided")
	}

	if c.TTS.Speed <= 0 {
		return fmt.Errorf("TTS speed must be positive: %f", c.TTS.Speed)
	}

	if c.Playback.Profile != "full" && c.Playback.Profile != "constrained" {
		return fmt.Errorf("unknown playback profile: %q", c.Playback.Profile)
	}

	if c.Playback.CollapseWindow <= 0 {
		return fmt.Errorf("playback collapse window must be positive: %v", c.Playback.CollapseWindow)
	}

	if c.Session.APIURL == "" {
		return fmt.Errorf("session API URL must be provided")
	}

	return nil
}

// Helper functions for environment variable parsing
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatValue)
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
