// Copyright 2026 The Gatekeeper Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"fmt"

	"github.com/parkcoop/gatekeeper/registry"
)

// The neighbor-contact workflow relays a message between two places
// without exposing either side's account. The bot never messages the
// recipient directly: the request lands in the administrative chat
// and the registry, and the board passes it on. Sender identity stays
// out of the relayed text — only place numbers travel.

// neighborOwnPlace consumes the sender's place.
func (r *Router) neighborOwnPlace(state neighborAwaitingOwnPlace, event TextReceived) (session, []Effect, error) {
	place, numeric, inRange := r.parsePlace(event.Text)
	if !numeric || !inRange {
		return state, []Effect{
			SendMessage{ChatID: state.chat, Text: placeRetryText(r.placeMin, r.placeMax)},
		}, nil
	}
	next := neighborAwaitingTargetPlace{chat: state.chat, ownPlace: place}
	return next, []Effect{
		SendMessage{ChatID: state.chat, Text: askNeighborTargetText},
	}, nil
}

// neighborTargetPlace consumes the recipient's place and checks the
// registry for a verified holder. A place nobody has claimed has no
// mailbox to relay to, so the workflow ends there.
func (r *Router) neighborTargetPlace(ctx context.Context, state neighborAwaitingTargetPlace, event TextReceived) (session, []Effect, error) {
	place, numeric, inRange := r.parsePlace(event.Text)
	if !numeric || !inRange {
		return state, []Effect{
			SendMessage{ChatID: state.chat, Text: placeRetryText(r.placeMin, r.placeMax)},
		}, nil
	}

	holder, err := r.store.MemberByPlace(ctx, place)
	if err != nil {
		return nil, nil, fmt.Errorf("engine: neighbor lookup for place %d: %w", place, err)
	}
	if holder == nil {
		return nil, []Effect{
			SendMessage{ChatID: state.chat, Text: noNeighborText, Buttons: backButton()},
		}, nil
	}

	next := neighborAwaitingText{chat: state.chat, ownPlace: state.ownPlace, targetPlace: place}
	return next, []Effect{
		SendMessage{ChatID: state.chat, Text: askNeighborText},
	}, nil
}

// neighborText consumes the message, screens it, and hands it to the
// board for relay.
func (r *Router) neighborText(state neighborAwaitingText, event TextReceived) (session, []Effect, error) {
	if r.filter.Match(event.Text) {
		return state, []Effect{
			SendMessage{ChatID: state.chat, Text: filteredText},
		}, nil
	}

	request := registry.NeighborRequest{
		FromPlace: state.ownPlace,
		ToPlace:   state.targetPlace,
		Text:      event.Text,
		CreatedAt: r.clock.Now().UTC(),
	}
	effects := []Effect{
		SaveNeighborRequest{Request: request},
		NotifyAdmin{Text: fmt.Sprintf(
			"Связь с соседом: место %d просит передать месту %d:\n%s",
			request.FromPlace, request.ToPlace, request.Text,
		)},
		SendMessage{ChatID: state.chat, Text: neighborSavedText, Buttons: backButton()},
	}
	return nil, effects, nil
}
