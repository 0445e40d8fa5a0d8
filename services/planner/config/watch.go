// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"
)

// =============================================================================
// Rules File Watcher
// =============================================================================

// reloadSettleTick is how often the watcher checks for a pending reload.
const reloadSettleTick = 250 * time.Millisecond

// RulesWatcher reloads a rules file when it changes on disk.
//
// Description:
//
//	Watches the directory containing the rules file (editors replace
//	files by rename, so watching the file itself misses updates) and
//	invokes the reload callback with freshly validated tables. Reloads
//	are rate limited to one per second; bursts of write events collapse
//	into a single trailing reload. A file that fails validation is
//	logged and skipped, the previous tables stay active.
//
// Thread Safety: Safe for concurrent use. Start may be called once.
type RulesWatcher struct {
	path     string
	watcher  *fsnotify.Watcher
	limiter  *rate.Limiter
	onReload func(*PlannerRules)
}

// NewRulesWatcher creates a watcher for the given rules file.
//
// Inputs:
//
//	path - Path to the YAML rules file.
//	onReload - Called with each successfully loaded table set. Must not
//	    be nil.
//
// Outputs:
//
//	*RulesWatcher - The watcher. Call Start to begin watching.
//	error - Non-nil if the filesystem watcher could not be created.
func NewRulesWatcher(path string, onReload func(*PlannerRules)) (*RulesWatcher, error) {
	if onReload == nil {
		return nil, fmt.Errorf("NewRulesWatcher: onReload must not be nil")
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("NewRulesWatcher: %w", err)
	}
	return &RulesWatcher{
		path:     path,
		watcher:  watcher,
		limiter:  rate.NewLimiter(rate.Every(time.Second), 1),
		onReload: onReload,
	}, nil
}

// Start watches the rules file until the context is cancelled.
//
// Description:
//
//	Blocks until ctx is done or the watcher fails. Intended to run in
//	its own goroutine (the server runs it under an errgroup).
//
// Inputs:
//
//	ctx - Cancelling this context stops the watcher.
//
// Outputs:
//
//	error - Non-nil if the watch could not be established or the event
//	    stream closed unexpectedly. Context cancellation returns nil.
func (rw *RulesWatcher) Start(ctx context.Context) error {
	defer rw.watcher.Close()

	dir := filepath.Dir(rw.path)
	if err := rw.watcher.Add(dir); err != nil {
		return fmt.Errorf("RulesWatcher: watching %s: %w", dir, err)
	}
	slog.Info("watching rules file", slog.String("path", rw.path))

	target := filepath.Clean(rw.path)
	pending := false

	settle := time.NewTicker(reloadSettleTick)
	defer settle.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-rw.watcher.Events:
			if !ok {
				return fmt.Errorf("RulesWatcher: event channel closed")
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			pending = true

		case err, ok := <-rw.watcher.Errors:
			if !ok {
				return fmt.Errorf("RulesWatcher: error channel closed")
			}
			slog.Error("rules watcher error", slog.String("error", err.Error()))

		case <-settle.C:
			if !pending || !rw.limiter.Allow() {
				continue
			}
			pending = false
			rw.reload(ctx)
		}
	}
}

// reload loads the rules file and hands the tables to the callback.
func (rw *RulesWatcher) reload(ctx context.Context) {
	rules, err := LoadPlannerRulesFile(ctx, rw.path)
	if err != nil {
		slog.Error("rules reload failed, keeping previous tables",
			slog.String("path", rw.path),
			slog.String("error", err.Error()),
		)
		return
	}
	rw.onReload(rules)
	slog.Info("rules reloaded", slog.String("path", rw.path))
}
