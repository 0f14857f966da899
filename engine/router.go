// Copyright 2026 The Gatekeeper Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/parkcoop/gatekeeper/lib/clock"
	"github.com/parkcoop/gatekeeper/registry"
	"github.com/parkcoop/gatekeeper/textfilter"
)

// RouterConfig holds configuration for creating a Router.
type RouterConfig struct {
	// Store is the membership registry.
	Store registry.Store
	// Filter screens complaint and neighbor-message text.
	Filter *textfilter.Filter
	// Messenger executes outbound effects.
	Messenger Messenger
	// Clock stamps registry records. If nil, the real clock is used.
	Clock clock.Clock
	// Logger is used for structured logging. If nil, slog.Default()
	// is used.
	Logger *slog.Logger

	// PlaceMin and PlaceMax bound valid place numbers, inclusive.
	PlaceMin int
	PlaceMax int
	// YesTokens are the normalized answers counted as "yes" in the
	// member-or-guest question.
	YesTokens []string
	// AdminChatID is the administrative chat for notifications and
	// anonymous relay.
	AdminChatID int64
	// ContactsText is the board-contacts answer, assembled from
	// configuration.
	ContactsText string
}

// Router owns the session table and drives workflow transitions.
// HandleEvent is called from the single update-poll goroutine;
// Sessions may be called concurrently from the control socket.
type Router struct {
	store        registry.Store
	filter       *textfilter.Filter
	messenger    Messenger
	clock        clock.Clock
	logger       *slog.Logger
	placeMin     int
	placeMax     int
	yesTokens    map[string]bool
	adminChatID  int64
	contactsText string

	mu       sync.Mutex
	sessions map[int64]session
}

// NewRouter creates a router with an empty session table.
func NewRouter(config RouterConfig) (*Router, error) {
	if config.Store == nil {
		return nil, fmt.Errorf("engine: Store is required")
	}
	if config.Filter == nil {
		return nil, fmt.Errorf("engine: Filter is required")
	}
	if config.Messenger == nil {
		return nil, fmt.Errorf("engine: Messenger is required")
	}
	if config.PlaceMin < 1 || config.PlaceMax < config.PlaceMin {
		return nil, fmt.Errorf("engine: invalid place range [%d, %d]", config.PlaceMin, config.PlaceMax)
	}
	if config.AdminChatID == 0 {
		return nil, fmt.Errorf("engine: AdminChatID is required")
	}

	routerClock := config.Clock
	if routerClock == nil {
		routerClock = clock.Real()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	yesTokens := make(map[string]bool, len(config.YesTokens))
	for _, token := range config.YesTokens {
		yesTokens[strings.ToLower(strings.TrimSpace(token))] = true
	}

	return &Router{
		store:        config.Store,
		filter:       config.Filter,
		messenger:    config.Messenger,
		clock:        routerClock,
		logger:       logger,
		placeMin:     config.PlaceMin,
		placeMax:     config.PlaceMax,
		yesTokens:    yesTokens,
		adminChatID:  config.AdminChatID,
		contactsText: config.ContactsText,
		sessions:     make(map[int64]session),
	}, nil
}

// Sessions returns a snapshot of live sessions, ordered by user ID.
func (r *Router) Sessions() []SessionInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	infos := make([]SessionInfo, 0, len(r.sessions))
	for userID, current := range r.sessions {
		infos = append(infos, SessionInfo{
			UserID:   userID,
			Workflow: current.Workflow(),
			State:    current.State(),
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].UserID < infos[j].UserID })
	return infos
}

// Reset drops the user's live session, if any. The /start command
// resets the conversation this way before showing the menu, so a
// half-finished workflow never swallows the user's next message.
func (r *Router) Reset(userID int64) {
	r.setSession(userID, nil)
}

// HandleEvent routes one event through the session table and executes
// the resulting effects. Send failures are logged and skipped;
// registry failures terminate the session with an apology to the
// user. The returned error reflects only failures worth surfacing to
// the caller's log, never a reason to stop the update loop.
func (r *Router) HandleEvent(ctx context.Context, event Event) error {
	userID := event.UserKey()
	current := r.session(userID)

	next, effects, err := r.transition(ctx, current, event)
	if err != nil {
		// A registry read failed mid-workflow. Apologize and drop the
		// session: retrying the same state would fail the same way.
		r.logger.Error("workflow transition failed",
			"user_id", userID,
			"error", err,
		)
		if chat := sessionChat(current); chat != 0 {
			if sendErr := r.messenger.SendMessage(ctx, chat, storeDownText, nil); sendErr != nil {
				r.logger.Warn("failed to send registry-failure notice",
					"user_id", userID,
					"error", sendErr,
				)
			}
		}
		r.setSession(userID, nil)
		return err
	}

	aborted := r.execute(ctx, userID, effects)
	if aborted {
		next = nil
	}
	r.setSession(userID, next)
	return nil
}

// execute runs effects in order. Returns true when a registry write
// failed and the remaining effects were abandoned.
func (r *Router) execute(ctx context.Context, userID int64, effects []Effect) bool {
	for index, effect := range effects {
		switch e := effect.(type) {
		case SendMessage:
			if err := r.messenger.SendMessage(ctx, e.ChatID, e.Text, e.Buttons); err != nil {
				r.logger.Warn("failed to send message",
					"user_id", userID,
					"chat_id", e.ChatID,
					"error", err,
				)
			}
		case SendGreeting:
			if err := r.messenger.SendMessage(ctx, e.ChatID, e.Text, nil); err != nil {
				// Unreachable user: decline rather than leave the
				// join request pending forever.
				r.logger.Warn("cannot reach join applicant, declining",
					"user_id", e.Join.UserID,
					"error", err,
				)
				if declineErr := r.messenger.DeclineJoin(ctx, e.Join.ChatID, e.Join.UserID); declineErr != nil {
					r.logger.Error("failed to decline unreachable applicant",
						"user_id", e.Join.UserID,
						"error", declineErr,
					)
				}
				return true
			}
		case NotifyAdmin:
			if err := r.messenger.SendMessage(ctx, r.adminChatID, e.Text, nil); err != nil {
				r.logger.Warn("failed to notify admin chat",
					"user_id", userID,
					"error", err,
				)
			}
		case AnswerCallback:
			if err := r.messenger.AnswerCallback(ctx, e.CallbackID); err != nil {
				r.logger.Warn("failed to answer callback query",
					"user_id", userID,
					"error", err,
				)
			}
		case ApproveJoin:
			// The registry record is already written at this point;
			// the user keeps their data even if approval fails.
			if err := r.messenger.ApproveJoin(ctx, e.ChatID, e.UserID); err != nil {
				r.logger.Error("failed to approve join request",
					"user_id", e.UserID,
					"chat_id", e.ChatID,
					"error", err,
				)
				if sendErr := r.messenger.SendMessage(ctx, e.UserID, approveFailedText, nil); sendErr != nil {
					r.logger.Warn("failed to send approval-failure notice",
						"user_id", e.UserID,
						"error", sendErr,
					)
				}
			}
		case DeclineJoin:
			if err := r.messenger.DeclineJoin(ctx, e.ChatID, e.UserID); err != nil {
				r.logger.Error("failed to decline join request",
					"user_id", e.UserID,
					"chat_id", e.ChatID,
					"error", err,
				)
			}
		case SaveMember:
			if err := r.store.SaveMember(ctx, e.Record); err != nil {
				return r.abortOnStoreFailure(ctx, userID, "member record", err, effects[index+1:])
			}
		case SaveComplaint:
			if err := r.store.SaveComplaint(ctx, e.Complaint); err != nil {
				return r.abortOnStoreFailure(ctx, userID, "complaint", err, effects[index+1:])
			}
		case SaveNeighborRequest:
			if err := r.store.SaveNeighborRequest(ctx, e.Request); err != nil {
				return r.abortOnStoreFailure(ctx, userID, "neighbor request", err, effects[index+1:])
			}
		}
	}
	return false
}

// abortOnStoreFailure logs a failed registry write, tells the user,
// and abandons the rest of the effect list. Approval never happens
// without its record: the ApproveJoin effect is always ordered after
// SaveMember, so skipping the remainder keeps that invariant.
func (r *Router) abortOnStoreFailure(ctx context.Context, userID int64, what string, err error, skipped []Effect) bool {
	r.logger.Error("registry write failed, abandoning workflow",
		"user_id", userID,
		"record", what,
		"skipped_effects", len(skipped),
		"error", err,
	)
	if sendErr := r.messenger.SendMessage(ctx, userID, storeDownText, nil); sendErr != nil {
		r.logger.Warn("failed to send registry-failure notice",
			"user_id", userID,
			"error", sendErr,
		)
	}
	return true
}

// transition dispatches one event against the current session.
func (r *Router) transition(ctx context.Context, current session, event Event) (session, []Effect, error) {
	switch e := event.(type) {
	case JoinRequested:
		return r.onJoinRequested(current, e)
	case ButtonPressed:
		return r.onButtonPressed(current, e)
	case TextReceived:
		return r.onTextReceived(ctx, current, e)
	default:
		return current, nil, fmt.Errorf("engine: unknown event type %T", event)
	}
}

// onButtonPressed handles menu buttons. Workflow-starting buttons
// replace whatever session the user had; informational buttons leave
// it untouched.
func (r *Router) onButtonPressed(current session, event ButtonPressed) (session, []Effect, error) {
	effects := []Effect{AnswerCallback{CallbackID: event.CallbackID}}

	switch event.Action {
	case ActionDocs:
		effects = append(effects, SendMessage{ChatID: event.ChatID, Text: docsText, Buttons: backButton()})
		return current, effects, nil
	case ActionContacts:
		effects = append(effects, SendMessage{ChatID: event.ChatID, Text: r.contactsText, Buttons: backButton()})
		return current, effects, nil
	case ActionBackMain:
		effects = append(effects, SendMessage{ChatID: event.ChatID, Text: menuText, Buttons: mainMenuButtons()})
		return nil, effects, nil
	case ActionReport:
		effects = append(effects, SendMessage{ChatID: event.ChatID, Text: askOwnPlaceText})
		return complaintAwaitingOwnPlace{chat: event.ChatID}, effects, nil
	case ActionContact:
		effects = append(effects, SendMessage{ChatID: event.ChatID, Text: askOwnPlaceText})
		return neighborAwaitingOwnPlace{chat: event.ChatID}, effects, nil
	case ActionSearchRules:
		effects = append(effects, SendMessage{ChatID: event.ChatID, Text: askRuleQueryText})
		return ruleSearchAwaitingQuery{chat: event.ChatID}, effects, nil
	default:
		// The decoding boundary only admits known actions; anything
		// else is a stale button from an older bot version.
		r.logger.Warn("ignoring unknown button action", "action", event.Action)
		return current, effects, nil
	}
}

// onTextReceived dispatches plain text against the session state.
// Text with no live session is a no-op: the user is typing into the
// void between workflows, and the menu is one /start away.
func (r *Router) onTextReceived(ctx context.Context, current session, event TextReceived) (session, []Effect, error) {
	switch state := current.(type) {
	case nil:
		return nil, nil, nil
	case verifyAwaitingPlace:
		return r.verifyPlace(state, event)
	case verifyAwaitingStatus:
		return r.verifyStatus(ctx, state, event)
	case complaintAwaitingOwnPlace:
		return r.complaintOwnPlace(state, event)
	case complaintAwaitingTargetPlace:
		return r.complaintTargetPlace(state, event)
	case complaintAwaitingText:
		return r.complaintText(state, event)
	case neighborAwaitingOwnPlace:
		return r.neighborOwnPlace(state, event)
	case neighborAwaitingTargetPlace:
		return r.neighborTargetPlace(ctx, state, event)
	case neighborAwaitingText:
		return r.neighborText(state, event)
	case ruleSearchAwaitingQuery:
		return r.ruleSearch(ctx, state, event)
	default:
		return nil, nil, fmt.Errorf("engine: unknown session type %T", current)
	}
}

// parsePlace parses a place number, enforcing the configured range.
// Only unsigned digit runs count as numeric: "+5" and "5.0" are
// malformed input, not places.
func (r *Router) parsePlace(text string) (int, bool, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0, false, false
	}
	for _, ch := range trimmed {
		if ch < '0' || ch > '9' {
			return 0, false, false
		}
	}
	place, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, false, false
	}
	inRange := place >= r.placeMin && place <= r.placeMax
	return place, true, inRange
}

// isYes reports whether the text is an affirmative answer.
func (r *Router) isYes(text string) bool {
	return r.yesTokens[strings.ToLower(strings.TrimSpace(text))]
}

// session reads the session table.
func (r *Router) session(userID int64) session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[userID]
}

// setSession writes or clears a table entry.
func (r *Router) setSession(userID int64, next session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if next == nil {
		delete(r.sessions, userID)
		return
	}
	r.sessions[userID] = next
}

// sessionChat returns the private chat a session converses in, or 0.
func sessionChat(current session) int64 {
	switch state := current.(type) {
	case verifyAwaitingPlace:
		return state.chat
	case verifyAwaitingStatus:
		return state.chat
	case complaintAwaitingOwnPlace:
		return state.chat
	case complaintAwaitingTargetPlace:
		return state.chat
	case complaintAwaitingText:
		return state.chat
	case neighborAwaitingOwnPlace:
		return state.chat
	case neighborAwaitingTargetPlace:
		return state.chat
	case neighborAwaitingText:
		return state.chat
	case ruleSearchAwaitingQuery:
		return state.chat
	default:
		return 0
	}
}
