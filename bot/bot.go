// Copyright 2026 The Gatekeeper Authors
// SPDX-License-Identifier: Apache-2.0

// Package bot bridges the platform update stream and the
// conversation engine: it decodes updates into engine events, handles
// the slash commands that live outside any workflow, and moderates
// the common chat.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/parkcoop/gatekeeper/engine"
	"github.com/parkcoop/gatekeeper/registry"
	"github.com/parkcoop/gatekeeper/telegram"
	"github.com/parkcoop/gatekeeper/textfilter"
)

// eventHandler is the engine surface the bot drives.
type eventHandler interface {
	HandleEvent(ctx context.Context, event engine.Event) error
	Reset(userID int64)
}

// Command replies.
const (
	subscribedText   = "Вы подписаны на личные напоминания."
	unsubscribedText = "Личные напоминания отключены."
	commandFailText  = "Сервис временно недоступен. Попробуйте позже."
	moderationText   = "Сообщение удалено: недопустимая лексика."

	helpText = "Справка по боту.\n\n" +
		"Верификация: подайте заявку на вступление в канал и ответьте " +
		"на вопросы бота в личном чате.\n" +
		"Справочник: /start, затем «Поиск по правилам», введите " +
		"ключевое слово (мойка, снег).\n" +
		"Жалоба: /start, затем «Сообщить о нарушении».\n" +
		"Связь с соседом: /start, затем «Связаться с соседом»; " +
		"сообщение передаётся анонимно через правление.\n" +
		"Напоминания: /subscribe включает личные напоминания, " +
		"/unsubscribe отключает."
)

// Config holds configuration for creating a Bot.
type Config struct {
	// Client performs outbound API calls (moderation, command
	// replies).
	Client *telegram.Client
	// Router receives decoded engine events.
	Router eventHandler
	// Store handles the subscription commands.
	Store registry.Store
	// Filter screens messages in group chats.
	Filter *textfilter.Filter
	// Logger is used for structured logging. If nil, slog.Default()
	// is used.
	Logger *slog.Logger
}

// Bot decodes updates and dispatches them.
type Bot struct {
	client *telegram.Client
	router eventHandler
	store  registry.Store
	filter *textfilter.Filter
	logger *slog.Logger
}

// New creates a bot.
func New(config Config) (*Bot, error) {
	if config.Client == nil {
		return nil, fmt.Errorf("bot: Client is required")
	}
	if config.Router == nil {
		return nil, fmt.Errorf("bot: Router is required")
	}
	if config.Store == nil {
		return nil, fmt.Errorf("bot: Store is required")
	}
	if config.Filter == nil {
		return nil, fmt.Errorf("bot: Filter is required")
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Bot{
		client: config.Client,
		router: config.Router,
		store:  config.Store,
		filter: config.Filter,
		logger: logger,
	}, nil
}

// HandleUpdate routes one update. Satisfies telegram.UpdateHandler.
func (b *Bot) HandleUpdate(ctx context.Context, update telegram.Update) error {
	switch {
	case update.ChatJoinRequest != nil:
		request := update.ChatJoinRequest
		return b.router.HandleEvent(ctx, engine.JoinRequested{
			UserID:      request.From.ID,
			ChatID:      request.Chat.ID,
			Handle:      request.From.Username,
			DisplayName: request.From.DisplayName(),
		})

	case update.CallbackQuery != nil:
		return b.handleCallback(ctx, update.CallbackQuery)

	case update.Message != nil:
		return b.handleMessage(ctx, update.Message)

	default:
		// Update types outside the allowed_updates set; nothing to do.
		return nil
	}
}

// handleCallback decodes a button press. Data outside the engine's
// action set (stale buttons from an older deployment) is acknowledged
// and dropped.
func (b *Bot) handleCallback(ctx context.Context, query *telegram.CallbackQuery) error {
	action, known := engine.KnownAction(query.Data)
	if !known {
		b.logger.Warn("dropping callback with unknown data",
			"user_id", query.From.ID,
			"data", query.Data,
		)
		return b.client.AnswerCallbackQuery(ctx, query.ID)
	}

	chatID := query.From.ID
	if query.Message != nil {
		chatID = query.Message.Chat.ID
	}
	return b.router.HandleEvent(ctx, engine.ButtonPressed{
		UserID:     query.From.ID,
		ChatID:     chatID,
		CallbackID: query.ID,
		Action:     action,
	})
}

// handleMessage routes a text message: moderation for group chats,
// commands and workflow text for private ones.
func (b *Bot) handleMessage(ctx context.Context, message *telegram.Message) error {
	if message.From == nil || message.Text == "" {
		return nil
	}

	if message.Chat.Type != "private" {
		return b.moderate(ctx, message)
	}

	if strings.HasPrefix(message.Text, "/") {
		return b.handleCommand(ctx, message)
	}

	return b.router.HandleEvent(ctx, engine.TextReceived{
		UserID: message.From.ID,
		ChatID: message.Chat.ID,
		Text:   message.Text,
	})
}

// moderate removes profanity from group chats. Deletion failures are
// logged only: the bot may lack admin rights in a misconfigured chat,
// and that should not kill the update loop.
func (b *Bot) moderate(ctx context.Context, message *telegram.Message) error {
	if !b.filter.Match(message.Text) {
		return nil
	}
	b.logger.Info("removing filtered message",
		"chat_id", message.Chat.ID,
		"user_id", message.From.ID,
		"message_id", message.MessageID,
	)
	if err := b.client.DeleteMessage(ctx, message.Chat.ID, message.MessageID); err != nil {
		b.logger.Warn("failed to delete filtered message",
			"chat_id", message.Chat.ID,
			"message_id", message.MessageID,
			"error", err,
		)
		return nil
	}
	if _, err := b.client.SendMessage(ctx, telegram.SendMessageRequest{
		ChatID: message.Chat.ID,
		Text:   moderationText,
	}); err != nil {
		b.logger.Warn("failed to send moderation notice",
			"chat_id", message.Chat.ID,
			"error", err,
		)
	}
	return nil
}

// handleCommand handles the slash commands. Unknown commands show the
// menu rather than an error: every private conversation should end in
// a usable prompt.
func (b *Bot) handleCommand(ctx context.Context, message *telegram.Message) error {
	command := strings.ToLower(strings.Fields(message.Text)[0])
	// Commands may arrive addressed ("/start@gatekeeper_bot").
	if at := strings.Index(command, "@"); at > 0 {
		command = command[:at]
	}

	switch command {
	case "/subscribe":
		return b.setSubscription(ctx, message, true, subscribedText)
	case "/unsubscribe":
		return b.setSubscription(ctx, message, false, unsubscribedText)
	case "/help":
		_, err := b.client.SendMessage(ctx, telegram.SendMessageRequest{
			ChatID: message.Chat.ID,
			Text:   helpText,
		})
		return err
	default:
		// The menu path resets any live conversation: /start is the
		// universal way out of a half-finished workflow.
		b.router.Reset(message.From.ID)
		text, buttons := engine.MainMenu()
		_, err := b.client.SendMessage(ctx, telegram.SendMessageRequest{
			ChatID:      message.Chat.ID,
			Text:        text,
			ReplyMarkup: convertButtons(buttons),
		})
		return err
	}
}

// setSubscription flips the direct-reminder flag and confirms.
func (b *Bot) setSubscription(ctx context.Context, message *telegram.Message, subscribed bool, confirmation string) error {
	err := b.store.SetSubscribed(ctx, message.From.ID,
		message.From.Username, message.From.DisplayName(), subscribed)
	if err != nil {
		b.logger.Error("failed to update subscription",
			"user_id", message.From.ID,
			"subscribed", subscribed,
			"error", err,
		)
		confirmation = commandFailText
	}
	if _, sendErr := b.client.SendMessage(ctx, telegram.SendMessageRequest{
		ChatID: message.Chat.ID,
		Text:   confirmation,
	}); sendErr != nil {
		b.logger.Warn("failed to send command reply",
			"chat_id", message.Chat.ID,
			"error", sendErr,
		)
	}
	return err
}
