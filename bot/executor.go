// Copyright 2026 The Gatekeeper Authors
// SPDX-License-Identifier: Apache-2.0

package bot

import (
	"context"

	"github.com/parkcoop/gatekeeper/engine"
	"github.com/parkcoop/gatekeeper/telegram"
)

// Executor implements engine.Messenger over the API client.
type Executor struct {
	client *telegram.Client
}

// NewExecutor creates an executor.
func NewExecutor(client *telegram.Client) *Executor {
	return &Executor{client: client}
}

// SendMessage sends text with an optional inline keyboard.
func (e *Executor) SendMessage(ctx context.Context, chatID int64, text string, buttons [][]engine.Button) error {
	_, err := e.client.SendMessage(ctx, telegram.SendMessageRequest{
		ChatID:      chatID,
		Text:        text,
		ReplyMarkup: convertButtons(buttons),
	})
	return err
}

// ApproveJoin approves a pending join request.
func (e *Executor) ApproveJoin(ctx context.Context, chatID, userID int64) error {
	return e.client.ApproveChatJoinRequest(ctx, chatID, userID)
}

// DeclineJoin declines a pending join request.
func (e *Executor) DeclineJoin(ctx context.Context, chatID, userID int64) error {
	return e.client.DeclineChatJoinRequest(ctx, chatID, userID)
}

// AnswerCallback acknowledges a button press.
func (e *Executor) AnswerCallback(ctx context.Context, callbackID string) error {
	return e.client.AnswerCallbackQuery(ctx, callbackID)
}

// ReminderSender implements reminder.Sender over the API client.
// Separate from Executor because the reminder path sends plain text
// only.
type ReminderSender struct {
	client *telegram.Client
}

// NewReminderSender creates a reminder sender.
func NewReminderSender(client *telegram.Client) *ReminderSender {
	return &ReminderSender{client: client}
}

// SendMessage sends plain text.
func (s *ReminderSender) SendMessage(ctx context.Context, chatID int64, text string) error {
	_, err := s.client.SendMessage(ctx, telegram.SendMessageRequest{
		ChatID: chatID,
		Text:   text,
	})
	return err
}

// convertButtons maps engine button rows onto the wire keyboard.
// Empty input yields nil so messages without buttons omit the markup
// field entirely.
func convertButtons(buttons [][]engine.Button) *telegram.InlineKeyboardMarkup {
	if len(buttons) == 0 {
		return nil
	}
	markup := &telegram.InlineKeyboardMarkup{
		InlineKeyboard: make([][]telegram.InlineKeyboardButton, len(buttons)),
	}
	for rowIndex, row := range buttons {
		wireRow := make([]telegram.InlineKeyboardButton, len(row))
		for buttonIndex, button := range row {
			wireRow[buttonIndex] = telegram.InlineKeyboardButton{
				Text: button.Label,
				Data: string(button.Action),
			}
		}
		markup.InlineKeyboard[rowIndex] = wireRow
	}
	return markup
}
