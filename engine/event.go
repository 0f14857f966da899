// Copyright 2026 The Gatekeeper Authors
// SPDX-License-Identifier: Apache-2.0

// Package engine is the conversation core: a session table keyed by
// user, pure state transitions per workflow, and an effect executor.
// It knows nothing about the bot platform's wire format — the bot
// package decodes updates into Events and implements the Messenger
// side of the effects.
package engine

// Action identifies an inline keyboard button. The engine only ever
// reacts to actions from this closed set; unknown callback data is
// dropped at the decoding boundary.
type Action string

const (
	// ActionDocs shows the governing-documents links.
	ActionDocs Action = "docs"
	// ActionReport starts the complaint workflow.
	ActionReport Action = "report"
	// ActionContact starts the neighbor-contact workflow.
	ActionContact Action = "contact"
	// ActionContacts shows the board contacts.
	ActionContacts Action = "contacts"
	// ActionSearchRules starts the rule-search workflow.
	ActionSearchRules Action = "search_rules"
	// ActionBackMain returns to the main menu.
	ActionBackMain Action = "back_main"
)

// KnownAction reports whether data names an action the engine
// handles.
func KnownAction(data string) (Action, bool) {
	switch Action(data) {
	case ActionDocs, ActionReport, ActionContact, ActionContacts,
		ActionSearchRules, ActionBackMain:
		return Action(data), true
	}
	return "", false
}

// Event is one input to the engine. Exactly one of the concrete types
// below.
type Event interface {
	isEvent()
	// UserKey is the session-table key: the platform user the event
	// belongs to.
	UserKey() int64
}

// JoinRequested is a pending request to join the gated chat.
type JoinRequested struct {
	UserID      int64
	ChatID      int64 // the gated chat the user asked to join
	Handle      string
	DisplayName string
}

func (JoinRequested) isEvent()         {}
func (e JoinRequested) UserKey() int64 { return e.UserID }

// ButtonPressed is a press on an inline keyboard button in the user's
// private chat.
type ButtonPressed struct {
	UserID     int64
	ChatID     int64 // private chat with the user
	CallbackID string
	Action     Action
}

func (ButtonPressed) isEvent()         {}
func (e ButtonPressed) UserKey() int64 { return e.UserID }

// TextReceived is a plain text message in the user's private chat.
type TextReceived struct {
	UserID int64
	ChatID int64
	Text   string
}

func (TextReceived) isEvent()         {}
func (e TextReceived) UserKey() int64 { return e.UserID }
