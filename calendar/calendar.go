// Copyright 2026 The Gatekeeper Authors
// SPDX-License-Identifier: Apache-2.0

// Package calendar reads the co-op's shared event calendar. Events
// carry an optional category tag in square brackets at the start of
// the summary ("[собрание] Общее собрание"); the tag drives which
// reminder firings pick the event up and is stripped from outgoing
// reminder text.
package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/parkcoop/gatekeeper/lib/httpio"
	"github.com/parkcoop/gatekeeper/lib/secret"
)

// Category classifies an event by its summary tag.
type Category string

const (
	// CategoryMeeting marks general meetings ("[собрание]").
	CategoryMeeting Category = "meeting"
	// CategoryPayment marks payment deadlines ("[оплата]").
	CategoryPayment Category = "payment"
	// CategoryOther is everything untagged or unrecognized.
	CategoryOther Category = "other"
)

// summaryTags maps the bracket tag (lowercased, no brackets) to its
// category.
var summaryTags = map[string]Category{
	"собрание": CategoryMeeting,
	"оплата":   CategoryPayment,
}

// Event is one calendar entry within a reminder window.
type Event struct {
	// Summary is the raw event title, tag included.
	Summary string
	// Category is derived from the summary tag.
	Category Category
	// Start is the event start. For all-day events this is midnight
	// in the calendar's timezone.
	Start time.Time
	// AllDay reports whether the event is date-only.
	AllDay bool
}

// ParseCategory extracts the category from a summary's leading
// bracket tag. Unrecognized or absent tags yield CategoryOther.
func ParseCategory(summary string) Category {
	tag, _, ok := splitTag(summary)
	if !ok {
		return CategoryOther
	}
	if category, known := summaryTags[strings.ToLower(tag)]; known {
		return category
	}
	return CategoryOther
}

// StripTag removes a recognized leading bracket tag from a summary,
// returning the trimmed remainder. Summaries without a recognized tag
// are returned unchanged.
func StripTag(summary string) string {
	tag, rest, ok := splitTag(summary)
	if !ok {
		return summary
	}
	if _, known := summaryTags[strings.ToLower(tag)]; !known {
		return summary
	}
	return rest
}

// splitTag splits "[tag] rest" into ("tag", "rest", true).
func splitTag(summary string) (tag, rest string, ok bool) {
	trimmed := strings.TrimSpace(summary)
	if !strings.HasPrefix(trimmed, "[") {
		return "", "", false
	}
	closing := strings.Index(trimmed, "]")
	if closing < 0 {
		return "", "", false
	}
	tag = strings.TrimSpace(trimmed[1:closing])
	rest = strings.TrimSpace(trimmed[closing+1:])
	if tag == "" {
		return "", "", false
	}
	return tag, rest, true
}

// ClientConfig holds configuration for creating a Client.
type ClientConfig struct {
	// BaseURL is the calendar API base URL.
	BaseURL string
	// CalendarID names the shared calendar.
	CalendarID string
	// Key is the API key. The caller retains ownership.
	Key *secret.Buffer
	// HTTPClient is used for all requests. If nil, http.DefaultClient
	// is used.
	HTTPClient *http.Client
	// Logger is used for structured logging. If nil, slog.Default()
	// is used.
	Logger *slog.Logger
}

// Client reads events over HTTP.
type Client struct {
	baseURL    string
	calendarID string
	key        *secret.Buffer
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a calendar client.
func NewClient(config ClientConfig) (*Client, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("calendar: BaseURL is required")
	}
	if config.CalendarID == "" {
		return nil, fmt.Errorf("calendar: CalendarID is required")
	}
	if config.Key == nil {
		return nil, fmt.Errorf("calendar: Key is required")
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		calendarID: config.CalendarID,
		key:        config.Key,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// eventsResponse is the wire shape of the events list endpoint.
type eventsResponse struct {
	Items []struct {
		Summary string `json:"summary"`
		Start   struct {
			DateTime string `json:"dateTime"`
			Date     string `json:"date"`
		} `json:"start"`
	} `json:"items"`
}

// Events returns events starting within [from, to), ordered by start
// time. Recurring events are expanded into their instances.
func (c *Client) Events(ctx context.Context, from, to time.Time) ([]Event, error) {
	query := url.Values{}
	query.Set("key", c.key.String())
	query.Set("timeMin", from.Format(time.RFC3339))
	query.Set("timeMax", to.Format(time.RFC3339))
	query.Set("singleEvents", "true")
	query.Set("orderBy", "startTime")

	requestURL := fmt.Sprintf("%s/calendar/v3/calendars/%s/events?%s",
		c.baseURL, url.PathEscape(c.calendarID), query.Encode())

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("calendar: failed to create request: %w", err)
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("calendar: events request: %w", err)
	}
	defer response.Body.Close()

	body, err := httpio.ReadBody(response.Body)
	if err != nil {
		return nil, fmt.Errorf("calendar: failed to read response body: %w", err)
	}
	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("calendar: events request returned %d: %s",
			response.StatusCode, string(body))
	}

	var decoded eventsResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("calendar: failed to parse events response: %w", err)
	}

	location := from.Location()
	var events []Event
	for _, item := range decoded.Items {
		event, ok := c.parseEvent(item.Summary, item.Start.DateTime, item.Start.Date, location)
		if !ok {
			continue
		}
		events = append(events, event)
	}
	return events, nil
}

// parseEvent decodes one item. Items with an unparseable start are
// logged and skipped.
func (c *Client) parseEvent(summary, dateTime, date string, location *time.Location) (Event, bool) {
	event := Event{
		Summary:  summary,
		Category: ParseCategory(summary),
	}
	switch {
	case dateTime != "":
		start, err := time.Parse(time.RFC3339, dateTime)
		if err != nil {
			c.logger.Warn("skipping event with bad start time",
				"summary", summary, "start", dateTime)
			return Event{}, false
		}
		event.Start = start.In(location)
	case date != "":
		start, err := time.ParseInLocation("2006-01-02", date, location)
		if err != nil {
			c.logger.Warn("skipping event with bad start date",
				"summary", summary, "start", date)
			return Event{}, false
		}
		event.Start = start
		event.AllDay = true
	default:
		c.logger.Warn("skipping event without start", "summary", summary)
		return Event{}, false
	}
	return event, true
}
