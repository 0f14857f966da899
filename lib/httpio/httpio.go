// Copyright 2026 The Gatekeeper Authors
// SPDX-License-Identifier: Apache-2.0

// Package httpio provides bounded HTTP response reading for the
// platform, registry, and calendar clients.
//
// Every body read is capped at MaxResponseSize so that a misbehaving
// server cannot exhaust memory. These helpers are for JSON API
// responses — short payloads by nature; the bound is generous enough
// to never interfere with legitimate traffic.
package httpio

import (
	"encoding/json"
	"fmt"
	"io"
)

// MaxResponseSize bounds response body reads: 8 MB. Chat messages,
// sheet ranges, and calendar windows are all orders of magnitude
// smaller.
const MaxResponseSize int64 = 8 << 20

// ReadBody reads a response body up to MaxResponseSize bytes. Use
// instead of io.ReadAll when reading HTTP response bodies.
func ReadBody(body io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(body, MaxResponseSize))
}

// DecodeBody reads a response body (bounded) and JSON-decodes it
// into v.
func DecodeBody(body io.Reader, v any) error {
	data, err := ReadBody(body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}
	return json.Unmarshal(data, v)
}
