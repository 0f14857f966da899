// Copyright 2026 The Gatekeeper Authors
// SPDX-License-Identifier: Apache-2.0

// Package reminder turns the shared calendar into scheduled
// announcements. Three daily firings cover the co-op's rhythm: a
// morning digest of today's events, an evening heads-up for
// tomorrow, and a week-ahead notice for general meetings.
package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/parkcoop/gatekeeper/calendar"
	"github.com/parkcoop/gatekeeper/lib/clock"
	"github.com/parkcoop/gatekeeper/lib/cron"
	"github.com/parkcoop/gatekeeper/telegram"
)

// EventSource reads calendar events in a window.
type EventSource interface {
	Events(ctx context.Context, from, to time.Time) ([]calendar.Event, error)
}

// Sender delivers one reminder message to a chat.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// SubscriberSource lists the users subscribed to direct reminders.
type SubscriberSource interface {
	Subscribers(ctx context.Context) ([]int64, error)
}

// firing is one scheduled reminder: when it runs, which day it looks
// at, which event categories it announces, and whether subscribers
// get a direct copy in addition to the channel post.
type firing struct {
	name     string
	schedule cron.Daily
	// dayOffset selects the announced day relative to the firing day.
	dayOffset int
	include   func(calendar.Category) bool
	header    string
	direct    bool
}

// Firing names, used by the control socket's manual trigger.
const (
	FiringToday    = "today"
	FiringTomorrow = "tomorrow"
	FiringMeeting  = "meeting"
)

// SchedulerConfig holds configuration for creating a Scheduler.
type SchedulerConfig struct {
	// Calendar supplies the events.
	Calendar EventSource
	// Subscribers supplies the direct-reminder audience. The
	// registry Store satisfies this.
	Subscribers SubscriberSource
	// Sender delivers messages.
	Sender Sender
	// Clock drives the schedule. If nil, the real clock is used.
	Clock clock.Clock
	// Logger is used for structured logging. If nil, slog.Default()
	// is used.
	Logger *slog.Logger

	// Location is the co-op's timezone; firings and day windows are
	// computed in it.
	Location *time.Location
	// ChannelChatID is the announcement channel.
	ChannelChatID int64
	// TodayAt, TomorrowAt and MeetingAt are the three firing times.
	TodayAt    cron.Daily
	TomorrowAt cron.Daily
	MeetingAt  cron.Daily
}

// Scheduler runs the reminder firings.
type Scheduler struct {
	calendar    EventSource
	subscribers SubscriberSource
	sender      Sender
	clock       clock.Clock
	logger      *slog.Logger
	location    *time.Location
	channelID   int64
	firings     []firing
}

// NewScheduler creates a scheduler.
func NewScheduler(config SchedulerConfig) (*Scheduler, error) {
	if config.Calendar == nil {
		return nil, fmt.Errorf("reminder: Calendar is required")
	}
	if config.Subscribers == nil {
		return nil, fmt.Errorf("reminder: Subscribers is required")
	}
	if config.Sender == nil {
		return nil, fmt.Errorf("reminder: Sender is required")
	}
	if config.Location == nil {
		return nil, fmt.Errorf("reminder: Location is required")
	}
	if config.ChannelChatID == 0 {
		return nil, fmt.Errorf("reminder: ChannelChatID is required")
	}

	schedulerClock := config.Clock
	if schedulerClock == nil {
		schedulerClock = clock.Real()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	anyCategory := func(calendar.Category) bool { return true }
	return &Scheduler{
		calendar:    config.Calendar,
		subscribers: config.Subscribers,
		sender:      config.Sender,
		clock:       schedulerClock,
		logger:      logger,
		location:    config.Location,
		channelID:   config.ChannelChatID,
		firings: []firing{
			{
				name:      FiringToday,
				schedule:  config.TodayAt,
				dayOffset: 0,
				include:   anyCategory,
				header:    "Сегодня:",
				direct:    true,
			},
			{
				name:      FiringTomorrow,
				schedule:  config.TomorrowAt,
				dayOffset: 1,
				// Meetings get their own week-ahead firing; repeating
				// them the evening before would double-post.
				include: func(c calendar.Category) bool { return c != calendar.CategoryMeeting },
				header:  "Завтра:",
				direct:  false,
			},
			{
				name:      FiringMeeting,
				schedule:  config.MeetingAt,
				dayOffset: 7,
				include:   func(c calendar.Category) bool { return c == calendar.CategoryMeeting },
				header:    "Через неделю собрание:",
				direct:    true,
			},
		},
	}, nil
}

// Run fires reminders on schedule until the context is cancelled. A
// failed firing is logged and skipped; the schedule marches on.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		now := s.clock.Now().In(s.location)
		next, nextAt := s.nextFiring(now)

		s.logger.Debug("waiting for next reminder firing",
			"firing", next.name,
			"at", nextAt,
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.clock.After(nextAt.Sub(now)):
		}

		if err := s.fire(ctx, next); err != nil {
			s.logger.Warn("reminder firing failed, skipping",
				"firing", next.name,
				"error", err,
			)
		}
	}
}

// Fire triggers one named firing immediately. Used by the control
// socket for manual runs after calendar edits.
func (s *Scheduler) Fire(ctx context.Context, name string) error {
	for _, f := range s.firings {
		if f.name == name {
			return s.fire(ctx, f)
		}
	}
	return fmt.Errorf("reminder: unknown firing %q", name)
}

// nextFiring picks the earliest upcoming firing strictly after now.
func (s *Scheduler) nextFiring(now time.Time) (firing, time.Time) {
	next := s.firings[0]
	nextAt := next.schedule.Next(now)
	for _, f := range s.firings[1:] {
		if at := f.schedule.Next(now); at.Before(nextAt) {
			next = f
			nextAt = at
		}
	}
	return next, nextAt
}

// fire reads the firing's day window, filters by category, and
// announces. A day with no matching events announces nothing.
func (s *Scheduler) fire(ctx context.Context, f firing) error {
	now := s.clock.Now().In(s.location)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.location)
	from := dayStart.AddDate(0, 0, f.dayOffset)
	to := from.AddDate(0, 0, 1)

	events, err := s.calendar.Events(ctx, from, to)
	if err != nil {
		return fmt.Errorf("reminder: reading calendar for %s: %w", f.name, err)
	}

	var matching []calendar.Event
	for _, event := range events {
		if f.include(event.Category) {
			matching = append(matching, event)
		}
	}
	if len(matching) == 0 {
		s.logger.Debug("no events for firing", "firing", f.name, "from", from)
		return nil
	}

	text := formatReminder(f.header, matching)
	if err := s.sender.SendMessage(ctx, s.channelID, text); err != nil {
		s.logger.Warn("failed to post reminder to channel",
			"firing", f.name,
			"error", err,
		)
	}

	if !f.direct {
		return nil
	}
	subscribers, err := s.subscribers.Subscribers(ctx)
	if err != nil {
		return fmt.Errorf("reminder: reading subscribers for %s: %w", f.name, err)
	}
	for _, userID := range subscribers {
		err := s.sender.SendMessage(ctx, userID, text)
		if err == nil {
			continue
		}
		// One unreachable subscriber must not starve the rest. A
		// blocked bot is the subscriber's own doing and not worth a
		// warning; anything else is.
		if telegram.IsBlocked(err) {
			s.logger.Info("skipping subscriber who blocked the bot",
				"firing", f.name,
				"user_id", userID,
			)
			continue
		}
		s.logger.Warn("failed to send direct reminder",
			"firing", f.name,
			"user_id", userID,
			"error", err,
		)
	}
	return nil
}

// formatReminder renders the announcement: header, then one line per
// event with the start time for timed events and the tag stripped
// from the title.
func formatReminder(header string, events []calendar.Event) string {
	var b strings.Builder
	b.WriteString(header)
	for _, event := range events {
		b.WriteString("\n• ")
		if !event.AllDay {
			b.WriteString(event.Start.Format("15:04"))
			b.WriteString(" — ")
		}
		b.WriteString(calendar.StripTag(event.Summary))
	}
	return b.String()
}
