// Copyright 2026 The Gatekeeper Authors
// SPDX-License-Identifier: Apache-2.0

package bot

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/parkcoop/gatekeeper/engine"
	"github.com/parkcoop/gatekeeper/lib/secret"
	"github.com/parkcoop/gatekeeper/registry"
	"github.com/parkcoop/gatekeeper/telegram"
	"github.com/parkcoop/gatekeeper/textfilter"
)

// recordingRouter captures engine events and session resets.
type recordingRouter struct {
	events []engine.Event
	resets []int64
}

func (r *recordingRouter) HandleEvent(ctx context.Context, event engine.Event) error {
	r.events = append(r.events, event)
	return nil
}

func (r *recordingRouter) Reset(userID int64) {
	r.resets = append(r.resets, userID)
}

// apiCall is one method call the fake API saw.
type apiCall struct {
	Method string
	Body   map[string]any
}

func newTestBot(t *testing.T) (*Bot, *recordingRouter, *registry.Memory, *[]apiCall) {
	t.Helper()
	var calls []apiCall
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		segments := strings.Split(r.URL.Path, "/")
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		calls = append(calls, apiCall{Method: segments[len(segments)-1], Body: body})
		json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": map[string]any{}})
	}))
	t.Cleanup(server.Close)

	token, err := secret.NewFromBytes([]byte("t"))
	if err != nil {
		t.Fatalf("creating token: %v", err)
	}
	t.Cleanup(func() { token.Close() })

	client, err := telegram.NewClient(telegram.ClientConfig{APIURL: server.URL, Token: token})
	if err != nil {
		t.Fatalf("creating client: %v", err)
	}

	filter, err := textfilter.New([]string{"хуй"}, nil)
	if err != nil {
		t.Fatalf("creating filter: %v", err)
	}

	router := &recordingRouter{}
	store := registry.NewMemory()
	b, err := New(Config{Client: client, Router: router, Store: store, Filter: filter})
	if err != nil {
		t.Fatalf("creating bot: %v", err)
	}
	return b, router, store, &calls
}

func TestJoinRequestDecoding(t *testing.T) {
	b, router, _, _ := newTestBot(t)

	err := b.HandleUpdate(context.Background(), telegram.Update{
		ChatJoinRequest: &telegram.ChatJoinRequest{
			Chat: telegram.Chat{ID: -100500, Type: "supergroup"},
			From: telegram.User{ID: 42, FirstName: "Ivan", LastName: "Petrov", Username: "ivan"},
		},
	})
	if err != nil {
		t.Fatalf("HandleUpdate: %v", err)
	}

	if len(router.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(router.events))
	}
	join, ok := router.events[0].(engine.JoinRequested)
	if !ok {
		t.Fatalf("expected JoinRequested, got %T", router.events[0])
	}
	if join.UserID != 42 || join.ChatID != -100500 {
		t.Errorf("unexpected event: %+v", join)
	}
	if join.Handle != "ivan" || join.DisplayName != "Ivan Petrov" {
		t.Errorf("unexpected identity: %+v", join)
	}
}

func TestCallbackDecoding(t *testing.T) {
	b, router, _, calls := newTestBot(t)

	err := b.HandleUpdate(context.Background(), telegram.Update{
		CallbackQuery: &telegram.CallbackQuery{
			ID:      "cb-1",
			From:    telegram.User{ID: 42},
			Message: &telegram.Message{Chat: telegram.Chat{ID: 42, Type: "private"}},
			Data:    "report",
		},
	})
	if err != nil {
		t.Fatalf("HandleUpdate: %v", err)
	}

	pressed, ok := router.events[0].(engine.ButtonPressed)
	if !ok {
		t.Fatalf("expected ButtonPressed, got %T", router.events[0])
	}
	if pressed.Action != engine.ActionReport || pressed.CallbackID != "cb-1" {
		t.Errorf("unexpected event: %+v", pressed)
	}
	if len(*calls) != 0 {
		t.Errorf("known actions go to the engine, not the client: %v", *calls)
	}
}

func TestUnknownCallbackDataDropped(t *testing.T) {
	b, router, _, calls := newTestBot(t)

	err := b.HandleUpdate(context.Background(), telegram.Update{
		CallbackQuery: &telegram.CallbackQuery{
			ID:   "cb-2",
			From: telegram.User{ID: 42},
			Data: "legacy_action",
		},
	})
	if err != nil {
		t.Fatalf("HandleUpdate: %v", err)
	}

	if len(router.events) != 0 {
		t.Errorf("unknown data must not reach the engine, got %v", router.events)
	}
	// The press is still acknowledged so the client stops spinning.
	if len(*calls) != 1 || (*calls)[0].Method != "answerCallbackQuery" {
		t.Errorf("expected callback acknowledged, got %v", *calls)
	}
}

func TestPrivateTextRouted(t *testing.T) {
	b, router, _, _ := newTestBot(t)

	err := b.HandleUpdate(context.Background(), telegram.Update{
		Message: &telegram.Message{
			From: &telegram.User{ID: 42},
			Chat: telegram.Chat{ID: 42, Type: "private"},
			Text: "17",
		},
	})
	if err != nil {
		t.Fatalf("HandleUpdate: %v", err)
	}

	text, ok := router.events[0].(engine.TextReceived)
	if !ok {
		t.Fatalf("expected TextReceived, got %T", router.events[0])
	}
	if text.Text != "17" || text.UserID != 42 {
		t.Errorf("unexpected event: %+v", text)
	}
}

func TestStartCommandShowsMenu(t *testing.T) {
	b, router, _, calls := newTestBot(t)

	for _, command := range []string{"/start", "/start@gatekeeper_bot", "/menu"} {
		err := b.HandleUpdate(context.Background(), telegram.Update{
			Message: &telegram.Message{
				From: &telegram.User{ID: 42},
				Chat: telegram.Chat{ID: 42, Type: "private"},
				Text: command,
			},
		})
		if err != nil {
			t.Fatalf("HandleUpdate(%s): %v", command, err)
		}
	}

	if len(router.events) != 0 {
		t.Errorf("commands must not reach the engine, got %v", router.events)
	}
	// Every menu path resets the user's conversation first.
	if len(router.resets) != 3 || router.resets[0] != 42 {
		t.Errorf("expected 3 session resets for user 42, got %v", router.resets)
	}
	if len(*calls) != 3 {
		t.Fatalf("expected 3 menu sends, got %d", len(*calls))
	}
	for _, call := range *calls {
		if call.Method != "sendMessage" {
			t.Errorf("expected sendMessage, got %s", call.Method)
		}
		if _, ok := call.Body["reply_markup"]; !ok {
			t.Errorf("menu must carry a keyboard: %v", call.Body)
		}
	}
}

func TestHelpCommandShowsHelp(t *testing.T) {
	b, router, _, calls := newTestBot(t)

	err := b.HandleUpdate(context.Background(), telegram.Update{
		Message: &telegram.Message{
			From: &telegram.User{ID: 42},
			Chat: telegram.Chat{ID: 42, Type: "private"},
			Text: "/help",
		},
	})
	if err != nil {
		t.Fatalf("HandleUpdate: %v", err)
	}

	if len(*calls) != 1 || (*calls)[0].Body["text"] != helpText {
		t.Fatalf("expected the help text, got %v", *calls)
	}
	// Help is informational: it neither resets nor feeds a workflow.
	if len(router.resets) != 0 {
		t.Errorf("/help must not reset the session, got %v", router.resets)
	}
	if len(router.events) != 0 {
		t.Errorf("/help must not reach the engine, got %v", router.events)
	}
}

func TestSubscribeCommands(t *testing.T) {
	b, _, store, calls := newTestBot(t)
	ctx := context.Background()
	message := func(text string) telegram.Update {
		return telegram.Update{Message: &telegram.Message{
			From: &telegram.User{ID: 42, FirstName: "Ivan", Username: "ivan"},
			Chat: telegram.Chat{ID: 42, Type: "private"},
			Text: text,
		}}
	}

	if err := b.HandleUpdate(ctx, message("/subscribe")); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	subscribers, _ := store.Subscribers(ctx)
	if len(subscribers) != 1 || subscribers[0] != 42 {
		t.Errorf("expected user subscribed, got %v", subscribers)
	}

	if err := b.HandleUpdate(ctx, message("/unsubscribe")); err != nil {
		t.Fatalf("unsubscribe: %v", err)
	}
	subscribers, _ = store.Subscribers(ctx)
	if len(subscribers) != 0 {
		t.Errorf("expected user unsubscribed, got %v", subscribers)
	}

	if len(*calls) != 2 {
		t.Fatalf("expected 2 confirmations, got %d", len(*calls))
	}
	if got := (*calls)[0].Body["text"]; got != subscribedText {
		t.Errorf("expected subscribe confirmation, got %v", got)
	}
}

func TestGroupProfanityDeleted(t *testing.T) {
	b, router, _, calls := newTestBot(t)

	err := b.HandleUpdate(context.Background(), telegram.Update{
		Message: &telegram.Message{
			MessageID: 77,
			From:      &telegram.User{ID: 42},
			Chat:      telegram.Chat{ID: -100500, Type: "supergroup"},
			Text:      "ну и хуй с ним",
		},
	})
	if err != nil {
		t.Fatalf("HandleUpdate: %v", err)
	}

	if len(router.events) != 0 {
		t.Errorf("group messages must not reach the engine")
	}
	if len(*calls) != 2 {
		t.Fatalf("expected delete + notice, got %v", *calls)
	}
	if (*calls)[0].Method != "deleteMessage" {
		t.Errorf("expected deleteMessage first, got %s", (*calls)[0].Method)
	}
	if (*calls)[0].Body["message_id"].(float64) != 77 {
		t.Errorf("unexpected delete body: %v", (*calls)[0].Body)
	}
}

func TestGroupCleanTextIgnored(t *testing.T) {
	b, router, _, calls := newTestBot(t)

	err := b.HandleUpdate(context.Background(), telegram.Update{
		Message: &telegram.Message{
			From: &telegram.User{ID: 42},
			Chat: telegram.Chat{ID: -100500, Type: "supergroup"},
			Text: "кто-нибудь видел мою лопату?",
		},
	})
	if err != nil {
		t.Fatalf("HandleUpdate: %v", err)
	}
	if len(router.events) != 0 || len(*calls) != 0 {
		t.Errorf("clean group text is a no-op, got events=%v calls=%v", router.events, *calls)
	}
}
