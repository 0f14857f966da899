// Copyright 2026 The Gatekeeper Authors
// SPDX-License-Identifier: Apache-2.0

// Gatekeeper is the parking co-op's chat bot: it verifies join
// requests against the place registry, runs the complaint and
// neighbor-contact workflows, answers rule-book questions, moderates
// the common chat, and posts calendar reminders.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/parkcoop/gatekeeper/bot"
	"github.com/parkcoop/gatekeeper/calendar"
	"github.com/parkcoop/gatekeeper/config"
	"github.com/parkcoop/gatekeeper/engine"
	"github.com/parkcoop/gatekeeper/lib/cron"
	"github.com/parkcoop/gatekeeper/lib/ctlsock"
	"github.com/parkcoop/gatekeeper/lib/secret"
	"github.com/parkcoop/gatekeeper/lib/version"
	"github.com/parkcoop/gatekeeper/registry/sheets"
	"github.com/parkcoop/gatekeeper/reminder"
	"github.com/parkcoop/gatekeeper/telegram"
	"github.com/parkcoop/gatekeeper/textfilter"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath string
	var showVersion bool
	var logLevel string

	flagSet := pflag.NewFlagSet("gatekeeper", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to config file (or set "+config.EnvVar+")")
	flagSet.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	if showVersion {
		fmt.Printf("gatekeeper %s\n", version.Info())
		return nil
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return fmt.Errorf("invalid --log-level %q: %w", logLevel, err)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	configuration, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting gatekeeper",
		"version", version.Info(),
		"places", fmt.Sprintf("%d-%d", configuration.Places.Min, configuration.Places.Max),
	)

	// Secrets live in mlocked buffers for the daemon's lifetime.
	botToken, err := secret.ReadFromPath(configuration.Telegram.TokenFile)
	if err != nil {
		return fmt.Errorf("reading bot token: %w", err)
	}
	defer botToken.Close()

	registryToken, err := secret.ReadFromPath(configuration.Registry.TokenFile)
	if err != nil {
		return fmt.Errorf("reading registry token: %w", err)
	}
	defer registryToken.Close()

	calendarKey, err := secret.ReadFromPath(configuration.Calendar.KeyFile)
	if err != nil {
		return fmt.Errorf("reading calendar key: %w", err)
	}
	defer calendarKey.Close()

	// No client timeout: getUpdates holds the connection for the
	// configured long-poll window.
	client, err := telegram.NewClient(telegram.ClientConfig{
		APIURL:     configuration.Telegram.APIURL,
		Token:      botToken,
		HTTPClient: &http.Client{},
		Logger:     logger.With("component", "telegram"),
	})
	if err != nil {
		return err
	}

	me, err := client.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("verifying bot token: %w", err)
	}
	logger.Info("authenticated", "bot", me.Username, "bot_id", me.ID)

	store, err := sheets.NewStore(sheets.StoreConfig{
		BaseURL:       configuration.Registry.BaseURL,
		SpreadsheetID: configuration.Registry.SpreadsheetID,
		Token:         registryToken,
		Logger:        logger.With("component", "registry"),
	})
	if err != nil {
		return err
	}

	events, err := calendar.NewClient(calendar.ClientConfig{
		BaseURL:    configuration.Calendar.BaseURL,
		CalendarID: configuration.Calendar.CalendarID,
		Key:        calendarKey,
		Logger:     logger.With("component", "calendar"),
	})
	if err != nil {
		return err
	}

	filter, err := textfilter.New(configuration.Filter.Words, configuration.Filter.Patterns)
	if err != nil {
		return fmt.Errorf("building text filter: %w", err)
	}

	router, err := engine.NewRouter(engine.RouterConfig{
		Store:        store,
		Filter:       filter,
		Messenger:    bot.NewExecutor(client),
		Logger:       logger.With("component", "engine"),
		PlaceMin:     configuration.Places.Min,
		PlaceMax:     configuration.Places.Max,
		YesTokens:    configuration.Verification.YesTokens,
		AdminChatID:  configuration.Chats.AdminChatID,
		ContactsText: contactsText(configuration),
	})
	if err != nil {
		return err
	}

	gatekeeper, err := bot.New(bot.Config{
		Client: client,
		Router: router,
		Store:  store,
		Filter: filter,
		Logger: logger.With("component", "bot"),
	})
	if err != nil {
		return err
	}

	location := configuration.Location()
	parseFiring := func(at string) cron.Daily {
		// Validate has already accepted these.
		daily, parseErr := cron.Parse(at, location)
		if parseErr != nil {
			panic(parseErr)
		}
		return daily
	}
	scheduler, err := reminder.NewScheduler(reminder.SchedulerConfig{
		Calendar:      events,
		Subscribers:   store,
		Sender:        bot.NewReminderSender(client),
		Logger:        logger.With("component", "reminder"),
		Location:      location,
		ChannelChatID: configuration.Chats.ChannelChatID,
		TodayAt:       parseFiring(configuration.Reminders.TodayAt),
		TomorrowAt:    parseFiring(configuration.Reminders.TomorrowAt),
		MeetingAt:     parseFiring(configuration.Reminders.MeetingAt),
	})
	if err != nil {
		return err
	}

	watcher, err := telegram.NewUpdateWatcher(telegram.WatcherConfig{
		Client:      client,
		PollTimeout: configuration.Telegram.PollTimeoutSeconds,
		Logger:      logger.With("component", "watcher"),
	})
	if err != nil {
		return err
	}

	errs := make(chan error, 3)

	go func() {
		errs <- watcher.Run(ctx, gatekeeper.HandleUpdate)
	}()
	go func() {
		errs <- scheduler.Run(ctx)
	}()
	if configuration.Ctl.SocketPath != "" {
		ctlServer := ctlsock.NewServer(configuration.Ctl.SocketPath, logger.With("component", "ctl"))
		registerControlActions(ctlServer, router, scheduler, store)
		go func() {
			errs <- ctlServer.Serve(ctx)
		}()
	}

	err = <-errs
	stop()
	if err != nil && ctx.Err() == nil {
		return err
	}
	logger.Info("shut down")
	return nil
}

// contactsText assembles the board-contacts reply from configuration.
func contactsText(configuration *config.Config) string {
	var lines []string
	if configuration.Contacts.Chairman != "" {
		lines = append(lines, "Председатель: "+configuration.Contacts.Chairman)
	}
	if configuration.Contacts.Accountant != "" {
		lines = append(lines, "Бухгалтер: "+configuration.Contacts.Accountant)
	}
	if configuration.Contacts.OfficeHours != "" {
		lines = append(lines, "Приём: "+configuration.Contacts.OfficeHours)
	}
	if len(lines) == 0 {
		return "Контакты правления уточняйте на стенде у въезда."
	}
	return strings.Join(lines, "\n")
}
