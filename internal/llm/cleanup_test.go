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
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fadejevs/speechdev/internal/config"
)

func TestValidateCleaned(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantErr bool
	}{
		{name: "valid sentence", text: "This is a clean sentence."},
		{name: "empty", text: "", wantErr: true},
		{name: "whitespace only", text: "   ", wantErr: true},
		{name: "too short", text: "ok", wantErr: true},
		{name: "exactly four runes", text: "okay"},
		{name: "refusal no text provided", text: "There is no text provided to clean up.", wantErr: true},
		{name: "refusal apology", text: "I'm sorry, but I can't help with that.", wantErr: true},
		{name: "refusal ai disclaimer", text: "As an AI, I cannot process audio.", wantErr: true},
		{name: "multibyte short", text: "日本", wantErr: true},
		{name: "multibyte long enough", text: "日本語です"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCleaned(tt.text)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ValidateCleaned(%q) expected error", tt.text)
				} else if !errors.Is(err, ErrRejected) {
					t.Errorf("ValidateCleaned(%q) error = %v, want ErrRejected", tt.text, err)
				}
				return
			}
			if err != nil {
				t.Errorf("ValidateCleaned(%q) unexpected error: %v", tt.text, err)
			}
		})
	}
}

func TestOpenAICleanerClean(t *testing.T) {
	var gotRequest map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotRequest); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  Hello world.  "}}]}`))
	}))
	defer server.Close()

	cleaner := NewOpenAICleaner(config.CleanupConfig{
		URL:         server.URL,
		APIKey:      "test-key",
		Model:       "gpt-4o-mini",
		MaxTokens:   300,
		Temperature: 0.3,
		Timeout:     5 * time.Second,
	})

	cleaned, err := cleaner.Clean(context.Background(), "hello world")
	if err != nil {
		t.Fatalf("Clean() unexpected error: %v", err)
	}

	if cleaned != "Hello world." {
		t.Errorf("Clean() = %q, want trimmed %q", cleaned, "Hello world.")
	}

	if gotRequest["model"] != "gpt-4o-mini" {
		t.Errorf("request model = %v, want gpt-4o-mini", gotRequest["model"])
	}

	messages, ok := gotRequest["messages"].([]interface{})
	if !ok || len(messages) != 2 {
		t.Fatalf("expected 2 messages in request, got %v", gotRequest["messages"])
	}

	system := messages[0].(map[string]interface{})
	if system["role"] != "system" {
		t.Errorf("first message role = %v, want system", system["role"])
	}

	user := messages[1].(map[string]interface{})
	if user["content"] != "hello world" {
		t.Errorf("user content = %v, want joined chunk text", user["content"])
	}
}

func TestOpenAICleanerCleanEmptyInput(t *testing.T) {
	cleaner := NewOpenAICleaner(config.CleanupConfig{
		URL:     "http://localhost:1",
		Model:   "gpt-4o-mini",
		Timeout: time.Second,
	})

	if _, err := cleaner.Clean(context.Background(), ""); err == nil {
		t.Error("Clean(\"\") expected error")
	}
}

func TestOpenAICleanerCleanServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
	}))
	defer server.Close()

	cleaner := NewOpenAICleaner(config.CleanupConfig{
		URL:     server.URL,
		Model:   "gpt-4o-mini",
		Timeout: time.Second,
	})

	if _, err := cleaner.Clean(context.Background(), "some text"); err == nil {
		t.Error("Clean() expected error for server failure")
	}
}
