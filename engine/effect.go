// Copyright 2026 The Gatekeeper Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"

	"github.com/parkcoop/gatekeeper/registry"
)

// Button is one inline keyboard button in an outgoing message.
type Button struct {
	Label  string
	Action Action
}

// Effect is one side effect a transition wants executed. Effects run
// in order; the failure policy lives in the router, not here.
type Effect interface{ isEffect() }

// SendMessage sends text to a chat, optionally with button rows.
type SendMessage struct {
	ChatID  int64
	Text    string
	Buttons [][]Button
}

// SendGreeting opens the verification conversation. Unlike
// SendMessage, delivery failure is terminal: a user who never started
// a private chat with the bot cannot be verified, so the pending join
// request is declined rather than left hanging.
type SendGreeting struct {
	ChatID int64
	Text   string
	Join   JoinRequested
}

// ApproveJoin approves the user's pending request to join the gated
// chat.
type ApproveJoin struct {
	ChatID int64
	UserID int64
}

// DeclineJoin declines the user's pending join request.
type DeclineJoin struct {
	ChatID int64
	UserID int64
}

// AnswerCallback acknowledges a button press.
type AnswerCallback struct {
	CallbackID string
}

// SaveMember appends a member record to the registry.
type SaveMember struct {
	Record registry.MemberRecord
}

// SaveComplaint appends a complaint to the registry.
type SaveComplaint struct {
	Complaint registry.Complaint
}

// SaveNeighborRequest appends a neighbor-contact request to the
// registry.
type SaveNeighborRequest struct {
	Request registry.NeighborRequest
}

// NotifyAdmin sends text to the administrative chat.
type NotifyAdmin struct {
	Text string
}

func (SendMessage) isEffect()         {}
func (SendGreeting) isEffect()        {}
func (ApproveJoin) isEffect()         {}
func (DeclineJoin) isEffect()         {}
func (AnswerCallback) isEffect()      {}
func (SaveMember) isEffect()          {}
func (SaveComplaint) isEffect()       {}
func (SaveNeighborRequest) isEffect() {}
func (NotifyAdmin) isEffect()         {}

// Messenger is the outbound side of the bot platform, implemented by
// the bot package over the API client.
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string, buttons [][]Button) error
	ApproveJoin(ctx context.Context, chatID, userID int64) error
	DeclineJoin(ctx context.Context, chatID, userID int64) error
	AnswerCallback(ctx context.Context, callbackID string) error
}
