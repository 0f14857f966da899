// Copyright 2026 The Gatekeeper Authors
// SPDX-License-Identifier: Apache-2.0

// Package telegram is a minimal bot API client: send messages, answer
// callback queries, approve or decline chat join requests, and watch
// the long-poll update stream. It covers exactly the surface the bot
// uses; it is not a general bindings package.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/parkcoop/gatekeeper/lib/httpio"
	"github.com/parkcoop/gatekeeper/lib/secret"
)

// ClientConfig holds configuration for creating a Client.
type ClientConfig struct {
	// APIURL is the bot API base URL (e.g., "https://api.telegram.org").
	APIURL string
	// Token is the bot token. The caller retains ownership and closes
	// it at shutdown.
	Token *secret.Buffer
	// HTTPClient is used for all requests. If nil, http.DefaultClient
	// is used. Watch overrides the timeout on its own client, so the
	// caller should pass a client without one.
	HTTPClient *http.Client
	// Logger is used for structured logging. If nil, slog.Default()
	// is used.
	Logger *slog.Logger
}

// Client is an authenticated bot API client.
type Client struct {
	baseURL    string
	token      *secret.Buffer
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a bot API client.
func NewClient(config ClientConfig) (*Client, error) {
	if config.APIURL == "" {
		return nil, fmt.Errorf("telegram: APIURL is required")
	}
	if _, err := url.Parse(config.APIURL); err != nil {
		return nil, fmt.Errorf("telegram: invalid APIURL %q: %w", config.APIURL, err)
	}
	if config.Token == nil {
		return nil, fmt.Errorf("telegram: Token is required")
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    strings.TrimRight(config.APIURL, "/"),
		token:      config.Token,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// apiResponse is the envelope every bot API method returns.
type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result,omitempty"`
	ErrorCode   int             `json:"error_code,omitempty"`
	Description string          `json:"description,omitempty"`
}

// doMethod calls one bot API method. On OK, returns the raw result.
// Non-OK responses become *APIError.
func (c *Client) doMethod(ctx context.Context, method string, request any) (json.RawMessage, error) {
	var bodyReader io.Reader
	if request != nil {
		encoded, err := json.Marshal(request)
		if err != nil {
			return nil, fmt.Errorf("telegram: failed to encode %s request: %w", method, err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	// The token lives in the URL path, per the bot API convention.
	requestURL := c.baseURL + "/bot" + c.token.String() + "/" + method
	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost, requestURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("telegram: failed to create %s request: %w", method, err)
	}
	if request != nil {
		httpRequest.Header.Set("Content-Type", "application/json")
	}

	httpResponse, err := c.httpClient.Do(httpRequest)
	if err != nil {
		return nil, fmt.Errorf("telegram: %s request: %w", method, err)
	}
	defer httpResponse.Body.Close()

	var response apiResponse
	if err := httpio.DecodeBody(httpResponse.Body, &response); err != nil {
		return nil, fmt.Errorf("telegram: failed to decode %s response: %w", method, err)
	}
	if !response.OK {
		return nil, &APIError{Code: response.ErrorCode, Description: response.Description}
	}
	return response.Result, nil
}

// GetMe returns the bot's own account. Used at startup to verify the
// token before entering the poll loop.
func (c *Client) GetMe(ctx context.Context) (*User, error) {
	result, err := c.doMethod(ctx, "getMe", nil)
	if err != nil {
		return nil, err
	}
	var user User
	if err := json.Unmarshal(result, &user); err != nil {
		return nil, fmt.Errorf("telegram: failed to parse getMe result: %w", err)
	}
	return &user, nil
}

// SendMessage sends a text message, optionally with an inline
// keyboard.
func (c *Client) SendMessage(ctx context.Context, request SendMessageRequest) (*Message, error) {
	result, err := c.doMethod(ctx, "sendMessage", request)
	if err != nil {
		return nil, err
	}
	var message Message
	if err := json.Unmarshal(result, &message); err != nil {
		return nil, fmt.Errorf("telegram: failed to parse sendMessage result: %w", err)
	}
	return &message, nil
}

// ApproveChatJoinRequest approves a pending join request.
func (c *Client) ApproveChatJoinRequest(ctx context.Context, chatID, userID int64) error {
	_, err := c.doMethod(ctx, "approveChatJoinRequest", map[string]int64{
		"chat_id": chatID,
		"user_id": userID,
	})
	return err
}

// DeclineChatJoinRequest declines a pending join request.
func (c *Client) DeclineChatJoinRequest(ctx context.Context, chatID, userID int64) error {
	_, err := c.doMethod(ctx, "declineChatJoinRequest", map[string]int64{
		"chat_id": chatID,
		"user_id": userID,
	})
	return err
}

// AnswerCallbackQuery acknowledges a button press so the client stops
// showing its progress indicator.
func (c *Client) AnswerCallbackQuery(ctx context.Context, callbackQueryID string) error {
	_, err := c.doMethod(ctx, "answerCallbackQuery", map[string]string{
		"callback_query_id": callbackQueryID,
	})
	return err
}

// DeleteMessage removes a message from a chat. Used to take down
// filtered content.
func (c *Client) DeleteMessage(ctx context.Context, chatID, messageID int64) error {
	_, err := c.doMethod(ctx, "deleteMessage", map[string]int64{
		"chat_id":    chatID,
		"message_id": messageID,
	})
	return err
}

// getUpdates fetches the next batch of updates at or after offset,
// long-polling for up to timeoutSeconds.
func (c *Client) getUpdates(ctx context.Context, offset int64, timeoutSeconds int) ([]Update, error) {
	result, err := c.doMethod(ctx, "getUpdates", map[string]any{
		"offset":          offset,
		"timeout":         timeoutSeconds,
		"allowed_updates": []string{"message", "callback_query", "chat_join_request"},
	})
	if err != nil {
		return nil, err
	}
	var updates []Update
	if err := json.Unmarshal(result, &updates); err != nil {
		return nil, fmt.Errorf("telegram: failed to parse getUpdates result: %w", err)
	}
	return updates, nil
}
