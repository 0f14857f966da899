// Copyright 2026 The Gatekeeper Authors
// SPDX-License-Identifier: Apache-2.0

package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/parkcoop/gatekeeper/lib/clock"
)

// UpdateHandler processes one update. Errors are logged and do not
// stop the watcher; the update is considered consumed either way.
type UpdateHandler func(ctx context.Context, update Update) error

// WatcherConfig holds configuration for creating an UpdateWatcher.
type WatcherConfig struct {
	// Client performs the long-poll requests.
	Client *Client
	// PollTimeout is the server-side long-poll hold, in seconds.
	// Zero means 50.
	PollTimeout int
	// Clock is used for the retry backoff. If nil, the real clock is
	// used.
	Clock clock.Clock
	// Logger is used for structured logging. If nil, the client's
	// logger is used.
	Logger *slog.Logger
}

// UpdateWatcher drives the long-poll loop, tracking the update offset
// so each update is delivered once. A poll failure backs off and
// retries with the same offset; the platform redelivers anything
// unacknowledged.
type UpdateWatcher struct {
	client      *Client
	pollTimeout int
	clock       clock.Clock
	logger      *slog.Logger

	offset int64
}

// retryBackoff is the pause after a failed poll before retrying.
const retryBackoff = 5 * time.Second

// NewUpdateWatcher creates a watcher over the client's update stream.
func NewUpdateWatcher(config WatcherConfig) (*UpdateWatcher, error) {
	if config.Client == nil {
		return nil, fmt.Errorf("telegram: Client is required")
	}
	pollTimeout := config.PollTimeout
	if pollTimeout == 0 {
		pollTimeout = 50
	}
	watcherClock := config.Clock
	if watcherClock == nil {
		watcherClock = clock.Real()
	}
	logger := config.Logger
	if logger == nil {
		logger = config.Client.logger
	}
	return &UpdateWatcher{
		client:      config.Client,
		pollTimeout: pollTimeout,
		clock:       watcherClock,
		logger:      logger,
	}, nil
}

// Run polls until the context is cancelled. Each update is handed to
// the handler in arrival order; the offset advances past an update
// only after the handler returns.
func (w *UpdateWatcher) Run(ctx context.Context, handler UpdateHandler) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		updates, err := w.client.getUpdates(ctx, w.offset, w.pollTimeout)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return ctx.Err()
			}
			w.logger.Warn("update poll failed, backing off",
				"error", err,
				"backoff", retryBackoff,
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-w.clock.After(retryBackoff):
			}
			continue
		}

		for _, update := range updates {
			if err := handler(ctx, update); err != nil {
				w.logger.Error("update handler failed",
					"update_id", update.UpdateID,
					"error", err,
				)
			}
			w.offset = update.UpdateID + 1
		}
	}
}
