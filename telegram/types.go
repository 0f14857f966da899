// Copyright 2026 The Gatekeeper Authors
// SPDX-License-Identifier: Apache-2.0

package telegram

// User is a bot platform account.
type User struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
	Username  string `json:"username,omitempty"`
}

// DisplayName returns the user's human name, first plus last when the
// last name is set.
func (u User) DisplayName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// Chat is a conversation: a private chat, a group, or a channel.
type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

// Message is one message within a chat.
type Message struct {
	MessageID int64  `json:"message_id"`
	From      *User  `json:"from,omitempty"`
	Chat      Chat   `json:"chat"`
	Text      string `json:"text,omitempty"`
}

// CallbackQuery is a press on an inline keyboard button.
type CallbackQuery struct {
	ID      string   `json:"id"`
	From    User     `json:"from"`
	Message *Message `json:"message,omitempty"`
	Data    string   `json:"data,omitempty"`
}

// ChatJoinRequest is a pending request to join a chat that requires
// admin approval.
type ChatJoinRequest struct {
	Chat Chat `json:"chat"`
	From User `json:"from"`
}

// Update is one event from the long-poll stream. Exactly one of the
// payload fields is set.
type Update struct {
	UpdateID        int64            `json:"update_id"`
	Message         *Message         `json:"message,omitempty"`
	CallbackQuery   *CallbackQuery   `json:"callback_query,omitempty"`
	ChatJoinRequest *ChatJoinRequest `json:"chat_join_request,omitempty"`
}

// InlineKeyboardButton is one button of an inline keyboard. Data is
// echoed back in the resulting CallbackQuery.
type InlineKeyboardButton struct {
	Text string `json:"text"`
	Data string `json:"callback_data"`
}

// InlineKeyboardMarkup is a grid of inline buttons attached to a
// message.
type InlineKeyboardMarkup struct {
	InlineKeyboard [][]InlineKeyboardButton `json:"inline_keyboard"`
}

// SendMessageRequest is the payload of SendMessage.
type SendMessageRequest struct {
	ChatID      int64                 `json:"chat_id"`
	Text        string                `json:"text"`
	ReplyMarkup *InlineKeyboardMarkup `json:"reply_markup,omitempty"`
}
