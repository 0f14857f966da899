// Copyright 2026 The Gatekeeper Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"fmt"

	"github.com/parkcoop/gatekeeper/registry"
)

// onJoinRequested opens a verification session. A user with a live
// session who applies again gets the new request declined while the
// existing conversation continues: one onboarding at a time, no
// duplicate registry writes.
func (r *Router) onJoinRequested(current session, event JoinRequested) (session, []Effect, error) {
	if current != nil {
		r.logger.Info("declining duplicate join request",
			"user_id", event.UserID,
			"workflow", current.Workflow(),
			"state", current.State(),
		)
		return current, []Effect{
			DeclineJoin{ChatID: event.ChatID, UserID: event.UserID},
		}, nil
	}

	// Private chats share the user's ID.
	chat := event.UserID
	next := verifyAwaitingPlace{join: event, chat: chat}
	effects := []Effect{
		SendGreeting{ChatID: chat, Text: greetingText, Join: event},
	}
	return next, effects, nil
}

// verifyPlace consumes the place-number answer. Nonsense re-prompts;
// a number outside the facility declines the join outright.
func (r *Router) verifyPlace(state verifyAwaitingPlace, event TextReceived) (session, []Effect, error) {
	place, numeric, inRange := r.parsePlace(event.Text)
	if !numeric {
		return state, []Effect{
			SendMessage{ChatID: state.chat, Text: placeNotANumberText},
		}, nil
	}
	if !inRange {
		return nil, []Effect{
			DeclineJoin{ChatID: state.join.ChatID, UserID: state.join.UserID},
			SendMessage{ChatID: state.chat, Text: declinedText},
		}, nil
	}

	next := verifyAwaitingStatus{join: state.join, chat: state.chat, place: place}
	return next, []Effect{
		SendMessage{ChatID: state.chat, Text: askStatusText},
	}, nil
}

// verifyStatus consumes the member-or-guest answer and completes
// verification: record first, approval second. A conflicting claim is
// still approved — the record lands flagged and the board reviews.
func (r *Router) verifyStatus(ctx context.Context, state verifyAwaitingStatus, event TextReceived) (session, []Effect, error) {
	member := r.isYes(event.Text)

	existing, err := r.store.MembersByPlace(ctx, state.place)
	if err != nil {
		return nil, nil, fmt.Errorf("engine: conflict check for place %d: %w", state.place, err)
	}
	status := registry.CheckConflict(existing, member)

	record := registry.MemberRecord{
		UserID:      state.join.UserID,
		Handle:      state.join.Handle,
		DisplayName: state.join.DisplayName,
		Place:       state.place,
		Member:      member,
		RecordedAt:  r.clock.Now().UTC(),
		Status:      status,
	}

	welcome := welcomeText
	if status != registry.StatusActive {
		welcome = welcomeFlaggedText
	}
	effects := []Effect{
		SaveMember{Record: record},
		ApproveJoin{ChatID: state.join.ChatID, UserID: state.join.UserID},
		SendMessage{ChatID: state.chat, Text: welcome},
	}
	if status != registry.StatusActive {
		effects = append(effects, NotifyAdmin{
			Text: conflictNoticeText(record),
		})
	}
	return nil, effects, nil
}

// conflictNoticeText formats the admin notification for a flagged
// claim.
func conflictNoticeText(record registry.MemberRecord) string {
	role := "гость"
	if record.Member {
		role = "член кооператива"
	}
	name := record.DisplayName
	if record.Handle != "" {
		name = fmt.Sprintf("%s (@%s)", name, record.Handle)
	}
	return fmt.Sprintf(
		"Конфликт по месту %d: %s заявился как %s, но место уже занято. Запись помечена: %s.",
		record.Place, name, role, record.Status,
	)
}
