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
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fadejevs/speechdev/internal/config"
	"github.com/fadejevs/speechdev/internal/logging"
)

// CloudTTSRequest represents a request to the cloud synthesis API
type CloudTTSRequest struct {
	Text  string  `json:"text"`
	Voice string  `json:"voice"`
	Speed float32 `json:"speed,omitempty"`
}

// CloudTTSVoicesResponse represents the response from the voices endpoint
type CloudTTSVoicesResponse struct {
	Voices []string `json:"voices"`
}

// CloudTTSClient implements Synthesizer against the cloud synthesis service.
// It returns encoded audio bytes (MPEG by default) for direct playback.
type CloudTTSClient struct {
	baseURL         string
	client          *http.Client
	config          config.TTSConfig
	mu              sync.RWMutex
	cachedVoices    []string
	voicesCacheTime time.Time
}

// NewCloudTTSClient creates a new cloud TTS client
func NewCloudTTSClient(cfg config.TTSConfig) (*CloudTTSClient, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("cloud TTS URL cannot be empty")
	}

	client := &http.Client{
		Timeout: cfg.Timeout,
	}

	ttsClient := &CloudTTSClient{
		baseURL: strings.TrimSuffix(cfg.URL, "/"),
		client:  client,
		config:  cfg,
	}

	if logging.Sugar != nil {
		logging.Sugar.Infow("🔊 Cloud TTS client initialized",
			"url", cfg.URL,
			"voice", cfg.Voice,
			"format", cfg.ResponseFormat,
		)
	}

	return ttsClient, nil
}

// Synthesize converts text to speech via the cloud service
func (c *CloudTTSClient) Synthesize(text string, options *TTSOptions) (*TTSResult, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	startTime := time.Now()

	voice := c.config.Voice
	speed := c.config.Speed
	if options != nil {
		if options.Voice != "" {
			voice = options.Voice
		}
		if options.Speed > 0 {
			speed = options.Speed
		}
	}

	request := CloudTTSRequest{
		Text:  text,
		Voice: voice,
		Speed: speed,
	}

	requestBody, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal TTS request: %w", err)
	}

	if logging.Logger != nil {
		logging.LogTTSOperation("synthesis_start",
			zap.String("voice", voice),
			zap.Int("text_length", len(text)),
			zap.Float32("speed", speed),
		)
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/tts", bytes.NewBuffer(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/*")

	resp, err := c.client.Do(req)
	if err != nil {
		if logging.Logger != nil {
			logging.LogError(err, "Cloud TTS HTTP request failed",
				zap.String("voice", voice),
				zap.Int("text_length", len(text)),
			)
		}
		return nil, fmt.Errorf("TTS HTTP request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if logging.Logger != nil {
			logging.LogWarn("Cloud TTS request failed",
				zap.Int("status_code", resp.StatusCode),
				zap.String("response_body", string(body)),
			)
		}
		return nil, fmt.Errorf("TTS request failed with status %d: %s", resp.StatusCode, string(body))
	}

	if logging.Logger != nil {
		logging.LogTTSOperation("synthesis_complete",
			zap.String("voice", voice),
			zap.Int("text_length", len(text)),
			zap.Duration("processing_time", time.Since(startTime)),
			zap.String("content_type", resp.Header.Get("Content-Type")),
			zap.Int64("content_length", resp.ContentLength),
		)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "audio/mpeg"
	}

	return &TTSResult{
		Audio:       resp.Body,
		ContentType: contentType,
		Length:      resp.ContentLength,
	}, nil
}

// GetAvailableVoices returns the list of available voices
func (c *CloudTTSClient) GetAvailableVoices() ([]string, error) {
	c.mu.RLock()
	// Return cached voices if they're fresh (cache for 1 hour)
	if len(c.cachedVoices) > 0 && time.Since(c.voicesCacheTime) < time.Hour {
		voices := make([]string, len(c.cachedVoices))
		copy(voices, c.cachedVoices)
		c.mu.RUnlock()
		return voices, nil
	}
	c.mu.RUnlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/voices", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create voices request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch voices: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("voices request failed with status %d", resp.StatusCode)
	}

	var voicesResponse CloudTTSVoicesResponse
	if err := json.NewDecoder(resp.Body).Decode(&voicesResponse); err != nil {
		return nil, fmt.Errorf("failed to decode voices response: %w", err)
	}

	c.mu.Lock()
	c.cachedVoices = make([]string, len(voicesResponse.Voices))
	copy(c.cachedVoices, voicesResponse.Voices)
	c.voicesCacheTime = time.Now()
	c.mu.Unlock()

	if logging.Sugar != nil {
		logging.Sugar.Debugw("🔊 Retrieved available voices",
			"count", len(voicesResponse.Voices),
		)
	}

	return voicesResponse.Voices, nil
}

// Close cleans up resources
func (c *CloudTTSClient) Close() error {
	c.client.CloseIdleConnections()
	return nil
}
