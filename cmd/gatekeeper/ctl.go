// Copyright 2026 The Gatekeeper Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/parkcoop/gatekeeper/engine"
	"github.com/parkcoop/gatekeeper/lib/ctlsock"
	"github.com/parkcoop/gatekeeper/lib/version"
	"github.com/parkcoop/gatekeeper/registry"
	"github.com/parkcoop/gatekeeper/reminder"
)

// statusResponse is the "status" action payload.
type statusResponse struct {
	Version       string `cbor:"version"`
	UptimeSeconds int64  `cbor:"uptime_seconds"`
	LiveSessions  int    `cbor:"live_sessions"`
	Subscribers   int    `cbor:"subscribers"`
}

// sessionsResponse is the "sessions" action payload.
type sessionsResponse struct {
	Sessions []engine.SessionInfo `cbor:"sessions"`
}

// remindRequest carries the parameters of the "remind" action.
type remindRequest struct {
	Firing string `cbor:"firing"`
}

// registerControlActions wires the operator actions onto the control
// socket.
func registerControlActions(server *ctlsock.Server, router *engine.Router, scheduler *reminder.Scheduler, store registry.Store) {
	startedAt := time.Now()

	server.Handle("status", func(ctx context.Context, raw []byte) (any, error) {
		subscribers, err := store.Subscribers(ctx)
		if err != nil {
			return nil, err
		}
		return statusResponse{
			Version:       version.Info(),
			UptimeSeconds: int64(time.Since(startedAt).Seconds()),
			LiveSessions:  len(router.Sessions()),
			Subscribers:   len(subscribers),
		}, nil
	})

	server.Handle("sessions", func(ctx context.Context, raw []byte) (any, error) {
		return sessionsResponse{Sessions: router.Sessions()}, nil
	})

	// "remind" forces a firing outside its schedule, typically after
	// a late calendar edit.
	server.Handle("remind", func(ctx context.Context, raw []byte) (any, error) {
		var request remindRequest
		if err := cbor.Unmarshal(raw, &request); err != nil {
			return nil, err
		}
		if request.Firing == "" {
			request.Firing = reminder.FiringToday
		}
		if err := scheduler.Fire(ctx, request.Firing); err != nil {
			return nil, err
		}
		return nil, nil
	})
}
