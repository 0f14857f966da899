// Copyright 2026 The Gatekeeper Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for the gatekeeper
// daemon.
//
// Configuration is loaded from a single YAML file specified by:
//   - GATEKEEPER_CONFIG environment variable, or
//   - --config flag passed to the daemon
//
// There are no fallbacks or automatic discovery. Secrets (bot token,
// registry and calendar keys) are never stored inline — the file
// names paths, and the daemon reads them into protected buffers at
// startup.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/parkcoop/gatekeeper/lib/cron"
)

// Config is the master configuration for the daemon.
type Config struct {
	// Telegram configures the platform client.
	Telegram TelegramConfig `yaml:"telegram"`

	// Chats identifies the administrative and channel sinks.
	Chats ChatsConfig `yaml:"chats"`

	// Places bounds the facility's place numbers.
	Places PlacesConfig `yaml:"places"`

	// Verification configures the membership question.
	Verification VerificationConfig `yaml:"verification"`

	// Filter configures the profanity filter.
	Filter FilterConfig `yaml:"filter"`

	// Registry configures the sheet-backed member store.
	Registry RegistryConfig `yaml:"registry"`

	// Calendar configures the reminder event source.
	Calendar CalendarConfig `yaml:"calendar"`

	// Reminders configures the scheduler's firing times.
	Reminders RemindersConfig `yaml:"reminders"`

	// Contacts is the board contact copy shown to residents.
	Contacts ContactsConfig `yaml:"contacts"`

	// Ctl configures the operator control socket.
	Ctl CtlConfig `yaml:"ctl"`
}

// TelegramConfig configures the platform client.
type TelegramConfig struct {
	// APIURL is the Bot API base URL. Override for tests or a local
	// Bot API server.
	APIURL string `yaml:"api_url"`

	// TokenFile is the path to the bot token.
	TokenFile string `yaml:"token_file"`

	// PollTimeoutSeconds is the getUpdates long-poll timeout.
	PollTimeoutSeconds int `yaml:"poll_timeout_seconds"`
}

// ChatsConfig identifies the chats the bot writes to.
type ChatsConfig struct {
	// AdminChatID is the board's administrative chat: complaint and
	// conflict notifications, neighbor relays.
	AdminChatID int64 `yaml:"admin_chat_id"`

	// ChannelChatID is the community channel that join requests
	// target and reminders are posted to.
	ChannelChatID int64 `yaml:"channel_chat_id"`
}

// PlacesConfig bounds the facility's place numbers.
type PlacesConfig struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

// VerificationConfig configures the membership question.
type VerificationConfig struct {
	// YesTokens are the case-insensitive answers accepted as "yes"
	// to the cooperative-membership question. Any other answer is
	// treated as "no".
	YesTokens []string `yaml:"yes_tokens"`
}

// FilterConfig configures the profanity filter.
type FilterConfig struct {
	// Words are literal substrings matched after lowercasing.
	Words []string `yaml:"words"`

	// Patterns are regular expressions matched after stripping
	// non-letter/digit runes, to catch punctuation obfuscation.
	Patterns []string `yaml:"patterns"`
}

// RegistryConfig configures the sheet-backed store.
type RegistryConfig struct {
	// BaseURL is the spreadsheet API base URL.
	BaseURL string `yaml:"base_url"`

	// SpreadsheetID names the co-op's spreadsheet.
	SpreadsheetID string `yaml:"spreadsheet_id"`

	// TokenFile is the path to the API access token.
	TokenFile string `yaml:"token_file"`
}

// CalendarConfig configures the reminder event source.
type CalendarConfig struct {
	// BaseURL is the calendar API base URL.
	BaseURL string `yaml:"base_url"`

	// CalendarID names the co-op's event calendar.
	CalendarID string `yaml:"calendar_id"`

	// KeyFile is the path to the API key.
	KeyFile string `yaml:"key_file"`
}

// RemindersConfig configures the scheduler.
type RemindersConfig struct {
	// Timezone is the IANA zone all firing times are interpreted in.
	Timezone string `yaml:"timezone"`

	// TodayAt is when the same-day firing runs (HH:MM).
	TodayAt string `yaml:"today_at"`

	// TomorrowAt is when the next-day-evening firing runs (HH:MM).
	TomorrowAt string `yaml:"tomorrow_at"`

	// MeetingAt is when the 7-days-ahead meeting firing runs (HH:MM).
	MeetingAt string `yaml:"meeting_at"`
}

// ContactsConfig is the board contact copy.
type ContactsConfig struct {
	// Chairman is the chairman's public handle.
	Chairman string `yaml:"chairman"`

	// Accountant is the accountant's contact line.
	Accountant string `yaml:"accountant"`

	// OfficeHours is the board's reception hours line.
	OfficeHours string `yaml:"office_hours"`
}

// CtlConfig configures the operator control socket.
type CtlConfig struct {
	// SocketPath is the Unix socket path. Empty disables the socket.
	SocketPath string `yaml:"socket_path"`
}

// Default returns the configuration defaults applied before the file
// is loaded. The file is still required — these exist so optional
// fields have working zero-configuration values, not as a substitute
// for the file.
func Default() *Config {
	return &Config{
		Telegram: TelegramConfig{
			APIURL:             "https://api.telegram.org",
			PollTimeoutSeconds: 50,
		},
		Places: PlacesConfig{Min: 1, Max: 37},
		Filter: FilterConfig{
			Words: []string{
				"бля", "блядь", "ебать", "ёбать", "пизда", "хуй",
				"хер", "сука", "гандон", "говно", "нахуй", "пидор",
				"педик", "еблан", "лох", "мудак",
			},
		},
		Verification: VerificationConfig{
			YesTokens: []string{"да", "д", "yes", "y"},
		},
		Registry: RegistryConfig{
			BaseURL: "https://sheets.googleapis.com",
		},
		Calendar: CalendarConfig{
			BaseURL: "https://www.googleapis.com",
		},
		Reminders: RemindersConfig{
			Timezone:   "Europe/Minsk",
			TodayAt:    "10:00",
			TomorrowAt: "19:00",
			MeetingAt:  "10:00",
		},
	}
}

// EnvVar is the environment variable naming the config file.
const EnvVar = "GATEKEEPER_CONFIG"

// Load reads and validates the configuration. path may be empty, in
// which case the GATEKEEPER_CONFIG environment variable is consulted.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvVar)
	}
	if path == "" {
		return nil, fmt.Errorf("config: no config file: set %s or pass --config", EnvVar)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	configuration := Default()
	if err := yaml.Unmarshal(data, configuration); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if err := configuration.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return configuration, nil
}

// Validate checks that required fields are present and well-formed.
func (c *Config) Validate() error {
	if c.Telegram.TokenFile == "" {
		return fmt.Errorf("telegram.token_file is required")
	}
	if c.Telegram.PollTimeoutSeconds <= 0 {
		return fmt.Errorf("telegram.poll_timeout_seconds must be positive, got %d", c.Telegram.PollTimeoutSeconds)
	}
	if c.Chats.AdminChatID == 0 {
		return fmt.Errorf("chats.admin_chat_id is required")
	}
	if c.Chats.ChannelChatID == 0 {
		return fmt.Errorf("chats.channel_chat_id is required")
	}
	if c.Places.Min < 1 {
		return fmt.Errorf("places.min must be at least 1, got %d", c.Places.Min)
	}
	if c.Places.Max < c.Places.Min {
		return fmt.Errorf("places.max (%d) must not be below places.min (%d)", c.Places.Max, c.Places.Min)
	}
	if len(c.Verification.YesTokens) == 0 {
		return fmt.Errorf("verification.yes_tokens must not be empty")
	}
	if c.Registry.SpreadsheetID == "" {
		return fmt.Errorf("registry.spreadsheet_id is required")
	}
	if c.Registry.TokenFile == "" {
		return fmt.Errorf("registry.token_file is required")
	}
	if c.Calendar.CalendarID == "" {
		return fmt.Errorf("calendar.calendar_id is required")
	}
	if c.Calendar.KeyFile == "" {
		return fmt.Errorf("calendar.key_file is required")
	}

	location, err := time.LoadLocation(c.Reminders.Timezone)
	if err != nil {
		return fmt.Errorf("reminders.timezone: %w", err)
	}
	for name, at := range map[string]string{
		"reminders.today_at":    c.Reminders.TodayAt,
		"reminders.tomorrow_at": c.Reminders.TomorrowAt,
		"reminders.meeting_at":  c.Reminders.MeetingAt,
	} {
		if _, err := cron.Parse(at, location); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// Location returns the configured reminder timezone. Validate must
// have succeeded first.
func (c *Config) Location() *time.Location {
	location, err := time.LoadLocation(c.Reminders.Timezone)
	if err != nil {
		panic("config: Location called on unvalidated config: " + err.Error())
	}
	return location
}
