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
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/fadejevs/speechdev/internal/config"
	"github.com/fadejevs/speechdev/internal/logging"
)

// cleanupSystemPrompt instructs the model to merge fragments without
// translating, repeating, or commenting. The whole pipeline depends on the
// output being nothing but the cleaned transcript.
const cleanupSystemPrompt = `You clean up live speech transcription fragments. ` +
	`Merge the fragments into clear, grammatically correct sentences in the same language they were spoken. ` +
	`Do not translate. Do not repeat phrases. Do not add commentary, notes, or any words that were not spoken. ` +
	`Respond with the cleaned transcript only.`

// OpenAICleaner implements Cleaner against any OpenAI-compatible chat
// completions endpoint.
type OpenAICleaner struct {
	client *openai.Client
	cfg    config.CleanupConfig
}

// NewOpenAICleaner creates a cleanup client for the configured endpoint
func NewOpenAICleaner(cfg config.CleanupConfig) *OpenAICleaner {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.URL != "" {
		clientConfig.BaseURL = strings.TrimSuffix(cfg.URL, "/")
	}
	clientConfig.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &OpenAICleaner{
		client: openai.NewClientWithConfig(clientConfig),
		cfg:    cfg,
	}
}

// Clean sends the joined chunk text through the rewriting model and returns
// the trimmed completion. Validation of the result is the caller's concern.
func (c *OpenAICleaner) Clean(ctx context.Context, text string) (string, error) {
	if text == "" {
		return "", fmt.Errorf("cleanup input cannot be empty")
	}

	startTime := time.Now()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: cleanupSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("cleanup request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("cleanup response contained no choices")
	}

	cleaned := strings.TrimSpace(resp.Choices[0].Message.Content)

	if logging.Logger != nil {
		logging.LogTranscriptOperation("cleanup_complete",
			zap.String("model", c.cfg.Model),
			zap.Int("input_length", len(text)),
			zap.Int("output_length", len(cleaned)),
			zap.Duration("processing_time", time.Since(startTime)),
		)
	}

	return cleaned, nil
}
