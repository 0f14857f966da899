// Copyright 2026 The Gatekeeper Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"fmt"

	"github.com/parkcoop/gatekeeper/registry"
)

// complaintOwnPlace consumes the reporter's place. Invalid input
// re-prompts; there is no retry cap.
func (r *Router) complaintOwnPlace(state complaintAwaitingOwnPlace, event TextReceived) (session, []Effect, error) {
	place, numeric, inRange := r.parsePlace(event.Text)
	if !numeric || !inRange {
		return state, []Effect{
			SendMessage{ChatID: state.chat, Text: placeRetryText(r.placeMin, r.placeMax)},
		}, nil
	}
	next := complaintAwaitingTargetPlace{chat: state.chat, ownPlace: place}
	return next, []Effect{
		SendMessage{ChatID: state.chat, Text: askComplaintTargetText},
	}, nil
}

// complaintTargetPlace consumes the offending place.
func (r *Router) complaintTargetPlace(state complaintAwaitingTargetPlace, event TextReceived) (session, []Effect, error) {
	place, numeric, inRange := r.parsePlace(event.Text)
	if !numeric || !inRange {
		return state, []Effect{
			SendMessage{ChatID: state.chat, Text: placeRetryText(r.placeMin, r.placeMax)},
		}, nil
	}
	next := complaintAwaitingText{chat: state.chat, ownPlace: state.ownPlace, targetPlace: place}
	return next, []Effect{
		SendMessage{ChatID: state.chat, Text: askComplaintText},
	}, nil
}

// complaintText consumes the description, screens it, and files the
// complaint. Filtered text re-prompts in place.
func (r *Router) complaintText(state complaintAwaitingText, event TextReceived) (session, []Effect, error) {
	if r.filter.Match(event.Text) {
		return state, []Effect{
			SendMessage{ChatID: state.chat, Text: filteredText},
		}, nil
	}

	complaint := registry.Complaint{
		FromPlace: state.ownPlace,
		ToPlace:   state.targetPlace,
		Text:      event.Text,
		CreatedAt: r.clock.Now().UTC(),
	}
	effects := []Effect{
		SaveComplaint{Complaint: complaint},
		NotifyAdmin{Text: fmt.Sprintf(
			"Жалоба: место %d на место %d.\n%s",
			complaint.FromPlace, complaint.ToPlace, complaint.Text,
		)},
		SendMessage{ChatID: state.chat, Text: complaintSavedText, Buttons: backButton()},
	}
	return nil, effects, nil
}

// placeRetryText names the valid range in the re-prompt.
func placeRetryText(min, max int) string {
	return fmt.Sprintf("Нужен номер места от %d до %d. Попробуйте ещё раз.", min, max)
}
