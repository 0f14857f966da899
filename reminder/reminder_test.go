// Copyright 2026 The Gatekeeper Authors
// SPDX-License-Identifier: Apache-2.0

package reminder

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/parkcoop/gatekeeper/calendar"
	"github.com/parkcoop/gatekeeper/lib/clock"
	"github.com/parkcoop/gatekeeper/lib/cron"
	"github.com/parkcoop/gatekeeper/lib/testutil"
	"github.com/parkcoop/gatekeeper/telegram"
)

// fakeCalendar serves a fixed event list and records the requested
// windows.
type fakeCalendar struct {
	mu      sync.Mutex
	events  []calendar.Event
	err     error
	windows [][2]time.Time
}

func (f *fakeCalendar) Events(ctx context.Context, from, to time.Time) ([]calendar.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.windows = append(f.windows, [2]time.Time{from, to})
	if f.err != nil {
		return nil, f.err
	}
	var inWindow []calendar.Event
	for _, event := range f.events {
		if !event.Start.Before(from) && event.Start.Before(to) {
			inWindow = append(inWindow, event)
		}
	}
	return inWindow, nil
}

func (f *fakeCalendar) lastWindow() [2]time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.windows[len(f.windows)-1]
}

// fakeSubscribers serves a fixed subscriber list.
type fakeSubscribers struct {
	ids []int64
	err error
}

func (f *fakeSubscribers) Subscribers(ctx context.Context) ([]int64, error) {
	return f.ids, f.err
}

// fakeSender records sends and fails for selected chats.
type fakeSender struct {
	mu     sync.Mutex
	sent   []sentReminder
	failTo map[int64]error
	notify chan sentReminder
}

type sentReminder struct {
	ChatID int64
	Text   string
}

func (f *fakeSender) SendMessage(ctx context.Context, chatID int64, text string) error {
	f.mu.Lock()
	message := sentReminder{ChatID: chatID, Text: text}
	f.sent = append(f.sent, message)
	err := f.failTo[chatID]
	f.mu.Unlock()
	if f.notify != nil {
		f.notify <- message
	}
	return err
}

func (f *fakeSender) messages() []sentReminder {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentReminder(nil), f.sent...)
}

var minsk = time.FixedZone("Europe/Minsk", 3*60*60)

func mustDaily(t *testing.T, expression string) cron.Daily {
	t.Helper()
	daily, err := cron.Parse(expression, minsk)
	if err != nil {
		t.Fatalf("parsing %q: %v", expression, err)
	}
	return daily
}

func newTestScheduler(t *testing.T, cal *fakeCalendar, subs *fakeSubscribers, sender *fakeSender, fakeClock clock.Clock) *Scheduler {
	t.Helper()
	scheduler, err := NewScheduler(SchedulerConfig{
		Calendar:      cal,
		Subscribers:   subs,
		Sender:        sender,
		Clock:         fakeClock,
		Location:      minsk,
		ChannelChatID: -100900,
		TodayAt:       mustDaily(t, "10:00"),
		TomorrowAt:    mustDaily(t, "19:00"),
		MeetingAt:     mustDaily(t, "10:00"),
	})
	if err != nil {
		t.Fatalf("creating scheduler: %v", err)
	}
	return scheduler
}

func TestTodayFiringFansOutToSubscribers(t *testing.T) {
	day := time.Date(2026, 5, 1, 0, 0, 0, 0, minsk)
	cal := &fakeCalendar{events: []calendar.Event{
		{Summary: "[собрание] Общее собрание", Category: calendar.CategoryMeeting, Start: day.Add(19 * time.Hour)},
		{Summary: "[оплата] Взнос за май", Category: calendar.CategoryPayment, Start: day, AllDay: true},
	}}
	subs := &fakeSubscribers{ids: []int64{11, 22}}
	sender := &fakeSender{}

	scheduler := newTestScheduler(t, cal, subs, sender, clock.Fake(day.Add(9*time.Hour)))
	if err := scheduler.Fire(context.Background(), FiringToday); err != nil {
		t.Fatalf("Fire: %v", err)
	}

	window := cal.lastWindow()
	if !window[0].Equal(day) || !window[1].Equal(day.AddDate(0, 0, 1)) {
		t.Errorf("expected today's window, got %v", window)
	}

	messages := sender.messages()
	if len(messages) != 3 {
		t.Fatalf("expected channel + 2 subscribers, got %d: %v", len(messages), messages)
	}
	if messages[0].ChatID != -100900 || messages[1].ChatID != 11 || messages[2].ChatID != 22 {
		t.Errorf("unexpected recipients: %v", messages)
	}

	text := messages[0].Text
	if !strings.HasPrefix(text, "Сегодня:") {
		t.Errorf("expected today header, got %q", text)
	}
	if !strings.Contains(text, "19:00 — Общее собрание") {
		t.Errorf("expected timed meeting line, got %q", text)
	}
	if strings.Contains(text, "[собрание]") || strings.Contains(text, "[оплата]") {
		t.Errorf("tags must be stripped: %q", text)
	}
	if !strings.Contains(text, "Взнос за май") || strings.Contains(text, "00:00 — Взнос") {
		t.Errorf("all-day event must not carry a time: %q", text)
	}
}

func TestTomorrowFiringSkipsMeetingsAndSubscribers(t *testing.T) {
	day := time.Date(2026, 5, 1, 0, 0, 0, 0, minsk)
	tomorrow := day.AddDate(0, 0, 1)
	cal := &fakeCalendar{events: []calendar.Event{
		{Summary: "[собрание] Собрание", Category: calendar.CategoryMeeting, Start: tomorrow.Add(19 * time.Hour)},
		{Summary: "[оплата] Взнос", Category: calendar.CategoryPayment, Start: tomorrow, AllDay: true},
	}}
	subs := &fakeSubscribers{ids: []int64{11}}
	sender := &fakeSender{}

	scheduler := newTestScheduler(t, cal, subs, sender, clock.Fake(day.Add(19*time.Hour)))
	if err := scheduler.Fire(context.Background(), FiringTomorrow); err != nil {
		t.Fatalf("Fire: %v", err)
	}

	messages := sender.messages()
	if len(messages) != 1 {
		t.Fatalf("tomorrow firing is channel-only, got %d messages", len(messages))
	}
	if messages[0].ChatID != -100900 {
		t.Errorf("expected channel, got %d", messages[0].ChatID)
	}
	if strings.Contains(messages[0].Text, "Собрание") {
		t.Errorf("meetings are excluded from the evening firing: %q", messages[0].Text)
	}
	if !strings.Contains(messages[0].Text, "Взнос") {
		t.Errorf("expected payment line: %q", messages[0].Text)
	}
}

func TestMeetingFiringLooksAWeekAhead(t *testing.T) {
	day := time.Date(2026, 5, 1, 0, 0, 0, 0, minsk)
	weekAhead := day.AddDate(0, 0, 7)
	cal := &fakeCalendar{events: []calendar.Event{
		{Summary: "[собрание] Годовое собрание", Category: calendar.CategoryMeeting, Start: weekAhead.Add(19 * time.Hour)},
		{Summary: "[оплата] Взнос", Category: calendar.CategoryPayment, Start: weekAhead, AllDay: true},
	}}
	subs := &fakeSubscribers{ids: []int64{11}}
	sender := &fakeSender{}

	scheduler := newTestScheduler(t, cal, subs, sender, clock.Fake(day.Add(10*time.Hour)))
	if err := scheduler.Fire(context.Background(), FiringMeeting); err != nil {
		t.Fatalf("Fire: %v", err)
	}

	window := cal.lastWindow()
	if !window[0].Equal(weekAhead) {
		t.Errorf("expected window starting %v, got %v", weekAhead, window[0])
	}

	messages := sender.messages()
	if len(messages) != 2 {
		t.Fatalf("expected channel + 1 subscriber, got %d", len(messages))
	}
	if !strings.Contains(messages[0].Text, "Годовое собрание") || strings.Contains(messages[0].Text, "Взнос") {
		t.Errorf("meeting firing announces meetings only: %q", messages[0].Text)
	}
}

func TestEmptyWindowAnnouncesNothing(t *testing.T) {
	day := time.Date(2026, 5, 1, 0, 0, 0, 0, minsk)
	cal := &fakeCalendar{}
	sender := &fakeSender{}

	scheduler := newTestScheduler(t, cal, &fakeSubscribers{ids: []int64{11}}, sender, clock.Fake(day))
	if err := scheduler.Fire(context.Background(), FiringToday); err != nil {
		t.Fatalf("Fire: %v", err)
	}
	if len(sender.messages()) != 0 {
		t.Errorf("empty day must announce nothing, got %v", sender.messages())
	}
}

func TestCalendarFailureSkipsFiring(t *testing.T) {
	cal := &fakeCalendar{err: errors.New("calendar down")}
	sender := &fakeSender{}
	scheduler := newTestScheduler(t, cal, &fakeSubscribers{}, sender, clock.Fake(time.Now()))

	if err := scheduler.Fire(context.Background(), FiringToday); err == nil {
		t.Fatal("expected error when calendar is down")
	}
	if len(sender.messages()) != 0 {
		t.Errorf("failed firing must not send, got %v", sender.messages())
	}
}

func TestBlockedSubscriberDoesNotStarveOthers(t *testing.T) {
	day := time.Date(2026, 5, 1, 0, 0, 0, 0, minsk)
	cal := &fakeCalendar{events: []calendar.Event{
		{Summary: "Субботник", Category: calendar.CategoryOther, Start: day, AllDay: true},
	}}
	// 22 blocked the bot (403 from the platform), 33 fails some other
	// way; neither may stop the fan-out.
	sender := &fakeSender{failTo: map[int64]error{
		22: &telegram.APIError{Code: 403, Description: "bot was blocked by the user"},
		33: errors.New("network down"),
	}}

	scheduler := newTestScheduler(t, cal, &fakeSubscribers{ids: []int64{11, 22, 33, 44}}, sender, clock.Fake(day))
	if err := scheduler.Fire(context.Background(), FiringToday); err != nil {
		t.Fatalf("Fire: %v", err)
	}

	var reached []int64
	for _, message := range sender.messages() {
		reached = append(reached, message.ChatID)
	}
	want := []int64{-100900, 11, 22, 33, 44}
	if len(reached) != len(want) {
		t.Fatalf("expected all recipients attempted, got %v", reached)
	}
	for i := range want {
		if reached[i] != want[i] {
			t.Errorf("recipient %d: expected %d, got %d", i, want[i], reached[i])
		}
	}
}

func TestUnknownFiringName(t *testing.T) {
	scheduler := newTestScheduler(t, &fakeCalendar{}, &fakeSubscribers{}, &fakeSender{}, clock.Fake(time.Now()))
	if err := scheduler.Fire(context.Background(), "lunch"); err == nil {
		t.Fatal("expected error for unknown firing")
	}
}

func TestRunFiresOnSchedule(t *testing.T) {
	day := time.Date(2026, 5, 1, 0, 0, 0, 0, minsk)
	cal := &fakeCalendar{events: []calendar.Event{
		{Summary: "[оплата] Взнос", Category: calendar.CategoryPayment, Start: day.Add(12 * time.Hour)},
	}}
	sender := &fakeSender{notify: make(chan sentReminder, 8)}
	fakeClock := clock.Fake(day.Add(9 * time.Hour))

	scheduler := newTestScheduler(t, cal, &fakeSubscribers{}, sender, fakeClock)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- scheduler.Run(ctx)
	}()

	// 09:00 -> the scheduler waits for the 10:00 firing.
	fakeClock.WaitForTimers(1)
	fakeClock.Advance(time.Hour)

	message := testutil.RequireReceive(t, sender.notify, time.Second, "today firing")
	if message.ChatID != -100900 || !strings.Contains(message.Text, "Взнос") {
		t.Errorf("unexpected firing output: %+v", message)
	}

	cancel()
	if err := testutil.RequireReceive(t, done, time.Second, "scheduler exit"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
