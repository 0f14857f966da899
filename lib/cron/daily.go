// Copyright 2026 The Gatekeeper Authors
// SPDX-License-Identifier: Apache-2.0

// Package cron computes daily firing times for the reminder
// scheduler. A Daily schedule is a wall-clock time of day ("HH:MM")
// in a fixed location; Next walks forward to the next occurrence.
package cron

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Daily represents a parsed time-of-day schedule. Use Parse to create
// one from a string, then call Next to compute the next firing.
type Daily struct {
	hour     int
	minute   int
	location *time.Location
}

// Parse parses a "HH:MM" time-of-day expression in the given
// location. Returns an error if the expression is malformed or
// contains out-of-range values.
func Parse(expression string, location *time.Location) (Daily, error) {
	if location == nil {
		return Daily{}, fmt.Errorf("cron: location is required")
	}
	hourText, minuteText, found := strings.Cut(expression, ":")
	if !found {
		return Daily{}, fmt.Errorf("cron: expected HH:MM, got %q", expression)
	}
	hour, err := strconv.Atoi(hourText)
	if err != nil {
		return Daily{}, fmt.Errorf("cron: invalid hour %q: %w", hourText, err)
	}
	if hour < 0 || hour > 23 {
		return Daily{}, fmt.Errorf("cron: hour out of range [0-23]: got %d", hour)
	}
	minute, err := strconv.Atoi(minuteText)
	if err != nil {
		return Daily{}, fmt.Errorf("cron: invalid minute %q: %w", minuteText, err)
	}
	if minute < 0 || minute > 59 {
		return Daily{}, fmt.Errorf("cron: minute out of range [0-59]: got %d", minute)
	}
	return Daily{hour: hour, minute: minute, location: location}, nil
}

// Next returns the earliest time strictly after t that matches the
// schedule's time of day in the schedule's location.
//
// The candidate is built with time.Date, so DST transitions resolve
// the way the time package resolves them: a firing time that does not
// exist on a transition day maps to the adjusted wall-clock instant
// rather than being skipped.
func (d Daily) Next(t time.Time) time.Time {
	local := t.In(d.location)
	candidate := time.Date(local.Year(), local.Month(), local.Day(), d.hour, d.minute, 0, 0, d.location)
	if !candidate.After(t) {
		candidate = time.Date(local.Year(), local.Month(), local.Day()+1, d.hour, d.minute, 0, 0, d.location)
	}
	return candidate
}

// String returns the schedule in "HH:MM" form.
func (d Daily) String() string {
	return fmt.Sprintf("%02d:%02d", d.hour, d.minute)
}
