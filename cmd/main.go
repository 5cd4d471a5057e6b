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

package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/fadejevs/speechdev/internal/app"
	"github.com/fadejevs/speechdev/internal/config"
	"github.com/fadejevs/speechdev/internal/events"
	"github.com/fadejevs/speechdev/internal/logging"
)

func main() {
	sessionID := flag.String("session", "", "event session id to join")
	status := flag.String("status", "draft", "stored status of the session (draft, live, paused, completed)")
	flag.Parse()

	// Initialize structured logging
	if err := logging.Initialize(); err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	defer logging.Close()

	if *sessionID == "" {
		log.Fatal("a session id is required: -session <id>")
	}

	loadedStatus, err := events.ParseStatus(*status)
	if err != nil {
		log.Fatalf("Invalid session status: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		logging.LogError(err, "Failed to load configuration")
		log.Fatalf("Failed to load configuration: %v", err)
	}

	pipeline, err := app.New(cfg)
	if err != nil {
		logging.LogError(err, "Failed to build pipeline")
		log.Fatalf("Failed to build pipeline: %v", err)
	}

	logging.Sugar.Infow("🚀 speechdev starting",
		"session_id", *sessionID,
		"realtime_url", cfg.Realtime.URL,
		"db_path", cfg.Storage.DBPath,
	)

	ctx := context.Background()
	if err := pipeline.Join(ctx, events.EventSession{ID: *sessionID, Status: loadedStatus}); err != nil {
		logging.LogError(err, "Failed to join session")
		pipeline.Close()
		log.Fatalf("Failed to join session: %v", err)
	}

	// Run until interrupted
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	if err := pipeline.Close(); err != nil {
		logging.LogError(err, "Shutdown failed")
		os.Exit(1)
	}
}
