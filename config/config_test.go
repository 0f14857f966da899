// Copyright 2026 The Gatekeeper Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// validYAML is a minimal complete configuration.
const validYAML = `
telegram:
  token_file: /etc/gatekeeper/bot-token
chats:
  admin_chat_id: -1001234567890
  channel_chat_id: -1009876543210
registry:
  spreadsheet_id: sheet-abc
  token_file: /etc/gatekeeper/registry-token
calendar:
  calendar_id: coop@example.org
  key_file: /etc/gatekeeper/calendar-key
filter:
  words: [бля, хуй]
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gatekeeper.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadValid(t *testing.T) {
	configuration, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if configuration.Telegram.APIURL != "https://api.telegram.org" {
		t.Errorf("APIURL default = %q", configuration.Telegram.APIURL)
	}
	if configuration.Places.Min != 1 || configuration.Places.Max != 37 {
		t.Errorf("place bounds = [%d, %d], want [1, 37]", configuration.Places.Min, configuration.Places.Max)
	}
	if configuration.Chats.AdminChatID != -1001234567890 {
		t.Errorf("AdminChatID = %d", configuration.Chats.AdminChatID)
	}
	if len(configuration.Verification.YesTokens) == 0 {
		t.Error("YesTokens default missing")
	}
	if configuration.Reminders.TodayAt != "10:00" || configuration.Reminders.TomorrowAt != "19:00" {
		t.Errorf("firing time defaults = %q / %q", configuration.Reminders.TodayAt, configuration.Reminders.TomorrowAt)
	}
	if configuration.Location() == nil {
		t.Error("Location() = nil")
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	content := validYAML + `
places:
  min: 1
  max: 80
reminders:
  timezone: UTC
  today_at: "09:30"
  tomorrow_at: "20:00"
  meeting_at: "09:30"
`
	configuration, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if configuration.Places.Max != 80 {
		t.Errorf("Places.Max = %d, want 80", configuration.Places.Max)
	}
	if configuration.Reminders.TodayAt != "09:30" {
		t.Errorf("TodayAt = %q, want 09:30", configuration.Reminders.TodayAt)
	}
}

func TestFilterWordsDefault(t *testing.T) {
	// Without a filter section the stock word list applies: an
	// unconfigured filter must not mean no filtering.
	content := strings.Replace(validYAML, "filter:\n  words: [бля, хуй]\n", "", 1)
	configuration, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(configuration.Filter.Words) == 0 {
		t.Fatal("Filter.Words default missing")
	}
	var found bool
	for _, word := range configuration.Filter.Words {
		if word == "хуй" {
			found = true
		}
	}
	if !found {
		t.Errorf("default word list incomplete: %v", configuration.Filter.Words)
	}

	// An explicit filter section replaces the default wholesale.
	overridden, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(overridden.Filter.Words) != 2 {
		t.Errorf("explicit word list = %v, want the file's 2 words", overridden.Filter.Words)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv(EnvVar, "")
	if _, err := Load(""); err == nil || !strings.Contains(err.Error(), EnvVar) {
		t.Errorf("Load(\"\") = %v, want error naming %s", err, EnvVar)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv(EnvVar, writeConfig(t, validYAML))
	if _, err := Load(""); err != nil {
		t.Errorf("Load via env: %v", err)
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing_token", func(c *Config) { c.Telegram.TokenFile = "" }, "telegram.token_file"},
		{"missing_admin_chat", func(c *Config) { c.Chats.AdminChatID = 0 }, "admin_chat_id"},
		{"missing_channel", func(c *Config) { c.Chats.ChannelChatID = 0 }, "channel_chat_id"},
		{"inverted_places", func(c *Config) { c.Places.Min = 10; c.Places.Max = 5 }, "places.max"},
		{"zero_place_min", func(c *Config) { c.Places.Min = 0 }, "places.min"},
		{"no_yes_tokens", func(c *Config) { c.Verification.YesTokens = nil }, "yes_tokens"},
		{"missing_spreadsheet", func(c *Config) { c.Registry.SpreadsheetID = "" }, "spreadsheet_id"},
		{"missing_calendar", func(c *Config) { c.Calendar.CalendarID = "" }, "calendar_id"},
		{"bad_timezone", func(c *Config) { c.Reminders.Timezone = "Mars/Olympus" }, "timezone"},
		{"bad_firing_time", func(c *Config) { c.Reminders.TodayAt = "25:00" }, "today_at"},
		{"zero_poll_timeout", func(c *Config) { c.Telegram.PollTimeoutSeconds = 0 }, "poll_timeout"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			configuration, err := Load(writeConfig(t, validYAML))
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			test.mutate(configuration)
			err = configuration.Validate()
			if err == nil {
				t.Fatalf("Validate = nil, want error containing %q", test.wantErr)
			}
			if !strings.Contains(err.Error(), test.wantErr) {
				t.Errorf("error %q does not contain %q", err, test.wantErr)
			}
		})
	}
}
