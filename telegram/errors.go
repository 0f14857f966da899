// Copyright 2026 The Gatekeeper Authors
// SPDX-License-Identifier: Apache-2.0

package telegram

import (
	"errors"
	"fmt"
)

// APIError is a non-OK response from the bot API.
type APIError struct {
	// Code is the error_code field of the response.
	Code int
	// Description is the human-readable description field.
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram: API error %d: %s", e.Code, e.Description)
}

// IsBlocked reports whether the error means the user has blocked the
// bot or never started a private chat with it. Reminder fan-out skips
// such recipients without failing the firing.
func IsBlocked(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == 403
}
