// Copyright 2026 The Gatekeeper Authors
// SPDX-License-Identifier: Apache-2.0

// Package sheets implements registry.Store against a spreadsheet
// values API. Each collection is a worksheet: "Members" is the
// append-only member log, "Requests" holds complaint and neighbor
// rows, "Subscriptions" the direct-reminder opt-ins, "Rules" the
// keyword/answer rule book.
//
// The client speaks the values endpoints only — read a range, append
// rows, point-update a cell. No schema management: the worksheets are
// created and titled by the board, the bot just reads and appends.
package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/parkcoop/gatekeeper/lib/httpio"
	"github.com/parkcoop/gatekeeper/lib/secret"
	"github.com/parkcoop/gatekeeper/registry"
)

// StoreConfig holds configuration for creating a Store.
type StoreConfig struct {
	// BaseURL is the spreadsheet API base URL (e.g.
	// "https://sheets.googleapis.com").
	BaseURL string
	// SpreadsheetID names the co-op's spreadsheet.
	SpreadsheetID string
	// Token is the API bearer token. The Store reads it on every
	// request; the caller retains ownership and closes it at
	// shutdown.
	Token *secret.Buffer
	// HTTPClient is used for all requests. If nil, http.DefaultClient
	// is used.
	HTTPClient *http.Client
	// Logger is used for structured logging. If nil, slog.Default()
	// is used.
	Logger *slog.Logger
}

// Store is a registry.Store backed by the spreadsheet API.
type Store struct {
	baseURL       string
	spreadsheetID string
	token         *secret.Buffer
	httpClient    *http.Client
	logger        *slog.Logger
}

// Worksheet titles. Fixed contract with the board's spreadsheet.
const (
	membersSheet       = "Members"
	requestsSheet      = "Requests"
	subscriptionsSheet = "Subscriptions"
	rulesSheet         = "Rules"
)

// Request-row kinds within the Requests worksheet.
const (
	kindComplaint = "complaint"
	kindNeighbor  = "neighbor"
)

// NewStore creates a spreadsheet-backed store.
func NewStore(config StoreConfig) (*Store, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("sheets: BaseURL is required")
	}
	if _, err := url.Parse(config.BaseURL); err != nil {
		return nil, fmt.Errorf("sheets: invalid BaseURL %q: %w", config.BaseURL, err)
	}
	if config.SpreadsheetID == "" {
		return nil, fmt.Errorf("sheets: SpreadsheetID is required")
	}
	if config.Token == nil {
		return nil, fmt.Errorf("sheets: Token is required")
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{
		baseURL:       strings.TrimRight(config.BaseURL, "/"),
		spreadsheetID: config.SpreadsheetID,
		token:         config.Token,
		httpClient:    httpClient,
		logger:        logger,
	}, nil
}

// SaveMember appends a member record to the Members worksheet.
func (s *Store) SaveMember(ctx context.Context, record registry.MemberRecord) error {
	row := []string{
		strconv.FormatInt(record.UserID, 10),
		record.Handle,
		record.DisplayName,
		strconv.Itoa(record.Place),
		strconv.FormatBool(record.Member),
		record.RecordedAt.Format(time.RFC3339),
		string(record.Status),
	}
	return s.appendRow(ctx, membersSheet, row)
}

// SaveComplaint appends a complaint row to the Requests worksheet.
func (s *Store) SaveComplaint(ctx context.Context, complaint registry.Complaint) error {
	row := []string{
		complaint.CreatedAt.Format(time.RFC3339),
		kindComplaint,
		strconv.Itoa(complaint.FromPlace),
		strconv.Itoa(complaint.ToPlace),
		complaint.Text,
		"new",
	}
	return s.appendRow(ctx, requestsSheet, row)
}

// SaveNeighborRequest appends a neighbor-relay row to the Requests
// worksheet.
func (s *Store) SaveNeighborRequest(ctx context.Context, request registry.NeighborRequest) error {
	row := []string{
		request.CreatedAt.Format(time.RFC3339),
		kindNeighbor,
		strconv.Itoa(request.FromPlace),
		strconv.Itoa(request.ToPlace),
		request.Text,
		"new",
	}
	return s.appendRow(ctx, requestsSheet, row)
}

// MemberByPlace returns the first active record for the place, or nil.
func (s *Store) MemberByPlace(ctx context.Context, place int) (*registry.MemberRecord, error) {
	records, err := s.MembersByPlace(ctx, place)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

// MembersByPlace returns every active record for the place, in sheet
// order.
func (s *Store) MembersByPlace(ctx context.Context, place int) ([]registry.MemberRecord, error) {
	rows, err := s.readRange(ctx, membersSheet+"!A2:G")
	if err != nil {
		return nil, err
	}

	var matches []registry.MemberRecord
	for index, row := range rows {
		record, ok := s.parseMemberRow(index+2, row)
		if !ok {
			continue
		}
		if record.Place == place && record.Status == registry.StatusActive {
			matches = append(matches, record)
		}
	}
	return matches, nil
}

// SetSubscribed toggles a user's direct-reminder subscription. The
// Subscriptions worksheet holds one row per user; re-subscribing
// point-updates the existing row instead of appending a duplicate.
func (s *Store) SetSubscribed(ctx context.Context, userID int64, handle, displayName string, subscribed bool) error {
	rows, err := s.readRange(ctx, subscriptionsSheet+"!A2:E")
	if err != nil {
		return err
	}

	userText := strconv.FormatInt(userID, 10)
	for index, row := range rows {
		if len(row) > 0 && row[0] == userText {
			// Column D is the subscribed flag; row numbering is
			// 1-based with a header row.
			cell := fmt.Sprintf("%s!D%d", subscriptionsSheet, index+2)
			return s.updateRange(ctx, cell, [][]string{{strconv.FormatBool(subscribed)}})
		}
	}

	row := []string{
		userText,
		handle,
		displayName,
		strconv.FormatBool(subscribed),
		time.Now().UTC().Format(time.RFC3339),
	}
	return s.appendRow(ctx, subscriptionsSheet, row)
}

// Subscribers returns the user IDs currently subscribed to direct
// reminders.
func (s *Store) Subscribers(ctx context.Context) ([]int64, error) {
	rows, err := s.readRange(ctx, subscriptionsSheet+"!A2:E")
	if err != nil {
		return nil, err
	}

	var subscribers []int64
	for index, row := range rows {
		if len(row) < 4 || row[3] != "true" {
			continue
		}
		userID, err := strconv.ParseInt(row[0], 10, 64)
		if err != nil {
			s.logger.Warn("skipping malformed subscription row",
				"row", index+2,
				"user_id", row[0],
			)
			continue
		}
		subscribers = append(subscribers, userID)
	}
	return subscribers, nil
}

// Rules returns the rule book: column A holds comma-separated
// keywords, column B the answer text.
func (s *Store) Rules(ctx context.Context) ([]registry.Rule, error) {
	rows, err := s.readRange(ctx, rulesSheet+"!A2:B")
	if err != nil {
		return nil, err
	}

	var rules []registry.Rule
	for _, row := range rows {
		if len(row) < 2 || row[0] == "" || row[1] == "" {
			continue
		}
		var keywords []string
		for _, keyword := range strings.Split(row[0], ",") {
			keyword = strings.TrimSpace(keyword)
			if keyword != "" {
				keywords = append(keywords, keyword)
			}
		}
		if len(keywords) == 0 {
			continue
		}
		rules = append(rules, registry.Rule{Keywords: keywords, Text: row[1]})
	}
	return rules, nil
}

// parseMemberRow decodes one Members row. Malformed rows are logged
// and skipped rather than failing the whole read — the sheet is
// hand-editable by the board.
func (s *Store) parseMemberRow(rowNumber int, row []string) (registry.MemberRecord, bool) {
	if len(row) < 7 {
		return registry.MemberRecord{}, false
	}
	userID, err := strconv.ParseInt(row[0], 10, 64)
	if err != nil {
		s.logger.Warn("skipping malformed member row", "row", rowNumber, "user_id", row[0])
		return registry.MemberRecord{}, false
	}
	place, err := strconv.Atoi(row[3])
	if err != nil {
		s.logger.Warn("skipping malformed member row", "row", rowNumber, "place", row[3])
		return registry.MemberRecord{}, false
	}
	recordedAt, _ := time.Parse(time.RFC3339, row[5])

	return registry.MemberRecord{
		UserID:      userID,
		Handle:      row[1],
		DisplayName: row[2],
		Place:       place,
		Member:      row[4] == "true",
		RecordedAt:  recordedAt,
		Status:      registry.Status(row[6]),
	}, true
}

// valueRange is the wire shape of the values endpoints.
type valueRange struct {
	Values [][]string `json:"values"`
}

// appendRow appends one row to a worksheet.
func (s *Store) appendRow(ctx context.Context, sheet string, row []string) error {
	path := fmt.Sprintf("/v4/spreadsheets/%s/values/%s:append?valueInputOption=RAW",
		url.PathEscape(s.spreadsheetID), url.PathEscape(sheet))
	_, err := s.doRequest(ctx, http.MethodPost, path, valueRange{Values: [][]string{row}})
	return err
}

// readRange reads a worksheet range.
func (s *Store) readRange(ctx context.Context, rangeRef string) ([][]string, error) {
	path := fmt.Sprintf("/v4/spreadsheets/%s/values/%s",
		url.PathEscape(s.spreadsheetID), url.PathEscape(rangeRef))
	body, err := s.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var decoded valueRange
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("sheets: failed to parse range response: %w", err)
	}
	return decoded.Values, nil
}

// updateRange point-updates a worksheet range.
func (s *Store) updateRange(ctx context.Context, rangeRef string, values [][]string) error {
	path := fmt.Sprintf("/v4/spreadsheets/%s/values/%s?valueInputOption=RAW",
		url.PathEscape(s.spreadsheetID), url.PathEscape(rangeRef))
	_, err := s.doRequest(ctx, http.MethodPut, path, valueRange{Values: values})
	return err
}

// doRequest performs an HTTP request against the values API. On 2xx,
// returns the body. Transport errors and 5xx responses wrap
// registry.ErrUnavailable so workflows terminate with the
// "contact the board" path; 4xx responses are surfaced verbatim —
// they indicate a broken spreadsheet contract, not an outage.
func (s *Store) doRequest(ctx context.Context, method, path string, requestBody any) ([]byte, error) {
	var bodyReader io.Reader
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return nil, fmt.Errorf("sheets: failed to encode request body: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("sheets: failed to create request: %w", err)
	}
	if requestBody != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	request.Header.Set("Authorization", "Bearer "+s.token.String())

	response, err := s.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("sheets: request to %s %s: %w: %w", method, path, registry.ErrUnavailable, err)
	}
	defer response.Body.Close()

	responseBody, err := httpio.ReadBody(response.Body)
	if err != nil {
		return nil, fmt.Errorf("sheets: failed to read response body: %w", err)
	}

	switch {
	case response.StatusCode >= 200 && response.StatusCode < 300:
		return responseBody, nil
	case response.StatusCode >= 500:
		return nil, fmt.Errorf("sheets: %s %s returned %d: %w", method, path, response.StatusCode, registry.ErrUnavailable)
	default:
		return nil, fmt.Errorf("sheets: %s %s returned %d: %s", method, path, response.StatusCode, string(responseBody))
	}
}
