// Copyright 2026 The Gatekeeper Authors
// SPDX-License-Identifier: Apache-2.0

package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/parkcoop/gatekeeper/lib/secret"
)

// newTestClient starts a fake bot API and returns a client pointed at
// it. The handler receives the method name (the path segment after
// the token) and the decoded request body.
func newTestClient(t *testing.T, handle func(method string, body map[string]any) (any, *APIError)) *Client {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		segments := strings.Split(strings.TrimPrefix(r.URL.Path, "/"), "/")
		if len(segments) != 2 || segments[0] != "bottest-token" {
			t.Errorf("unexpected path %q", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)

		result, apiErr := handle(segments[1], body)
		if apiErr != nil {
			json.NewEncoder(w).Encode(map[string]any{
				"ok":          false,
				"error_code":  apiErr.Code,
				"description": apiErr.Description,
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": result})
	}))
	t.Cleanup(server.Close)

	token, err := secret.NewFromBytes([]byte("test-token"))
	if err != nil {
		t.Fatalf("creating token: %v", err)
	}
	t.Cleanup(func() { token.Close() })

	client, err := NewClient(ClientConfig{APIURL: server.URL, Token: token})
	if err != nil {
		t.Fatalf("creating client: %v", err)
	}
	return client
}

func TestGetMe(t *testing.T) {
	client := newTestClient(t, func(method string, body map[string]any) (any, *APIError) {
		if method != "getMe" {
			t.Errorf("unexpected method %q", method)
		}
		return User{ID: 99, IsBot: true, FirstName: "Gatekeeper", Username: "gatekeeper_bot"}, nil
	})

	user, err := client.GetMe(context.Background())
	if err != nil {
		t.Fatalf("GetMe: %v", err)
	}
	if user.ID != 99 || !user.IsBot || user.Username != "gatekeeper_bot" {
		t.Errorf("unexpected user: %+v", user)
	}
}

func TestSendMessageWithKeyboard(t *testing.T) {
	var gotBody map[string]any
	client := newTestClient(t, func(method string, body map[string]any) (any, *APIError) {
		gotBody = body
		return Message{MessageID: 7, Chat: Chat{ID: 123}}, nil
	})

	message, err := client.SendMessage(context.Background(), SendMessageRequest{
		ChatID: 123,
		Text:   "Выберите действие",
		ReplyMarkup: &InlineKeyboardMarkup{
			InlineKeyboard: [][]InlineKeyboardButton{
				{{Text: "Документы", Data: "docs"}},
			},
		},
	})
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if message.MessageID != 7 {
		t.Errorf("expected message ID 7, got %d", message.MessageID)
	}
	if gotBody["chat_id"].(float64) != 123 {
		t.Errorf("unexpected chat_id: %v", gotBody["chat_id"])
	}
	markup, ok := gotBody["reply_markup"].(map[string]any)
	if !ok {
		t.Fatalf("expected reply_markup, got %v", gotBody)
	}
	if _, ok := markup["inline_keyboard"]; !ok {
		t.Errorf("expected inline_keyboard in markup: %v", markup)
	}
}

func TestAPIErrorSurfaced(t *testing.T) {
	client := newTestClient(t, func(method string, body map[string]any) (any, *APIError) {
		return nil, &APIError{Code: 403, Description: "Forbidden: bot was blocked by the user"}
	})

	_, err := client.SendMessage(context.Background(), SendMessageRequest{ChatID: 1, Text: "hi"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != 403 {
		t.Errorf("expected code 403, got %d", apiErr.Code)
	}
	if !IsBlocked(err) {
		t.Errorf("expected IsBlocked for 403")
	}
	if IsBlocked(fmt.Errorf("plain error")) {
		t.Errorf("IsBlocked should be false for non-API errors")
	}
}

func TestJoinRequestDecisions(t *testing.T) {
	var methods []string
	client := newTestClient(t, func(method string, body map[string]any) (any, *APIError) {
		methods = append(methods, method)
		if body["chat_id"].(float64) != 555 || body["user_id"].(float64) != 42 {
			t.Errorf("unexpected body for %s: %v", method, body)
		}
		return true, nil
	})

	if err := client.ApproveChatJoinRequest(context.Background(), 555, 42); err != nil {
		t.Fatalf("ApproveChatJoinRequest: %v", err)
	}
	if err := client.DeclineChatJoinRequest(context.Background(), 555, 42); err != nil {
		t.Fatalf("DeclineChatJoinRequest: %v", err)
	}
	if len(methods) != 2 || methods[0] != "approveChatJoinRequest" || methods[1] != "declineChatJoinRequest" {
		t.Errorf("unexpected methods: %v", methods)
	}
}

func TestUserDisplayName(t *testing.T) {
	if got := (User{FirstName: "Ivan"}).DisplayName(); got != "Ivan" {
		t.Errorf("expected Ivan, got %q", got)
	}
	if got := (User{FirstName: "Ivan", LastName: "Petrov"}).DisplayName(); got != "Ivan Petrov" {
		t.Errorf("expected Ivan Petrov, got %q", got)
	}
}
