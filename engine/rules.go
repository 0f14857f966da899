// Copyright 2026 The Gatekeeper Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"fmt"

	"github.com/parkcoop/gatekeeper/registry"
)

// ruleSearch answers one rule-book query and ends the session. The
// rule book is read fresh on every query: it is small, board-edited,
// and staleness surprises cost more than the extra read.
func (r *Router) ruleSearch(ctx context.Context, state ruleSearchAwaitingQuery, event TextReceived) (session, []Effect, error) {
	rules, err := r.store.Rules(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("engine: loading rule book: %w", err)
	}

	answer, found := registry.SearchRules(rules, event.Text)
	text := answer
	if !found {
		// A miss still has to leave the user somewhere to go.
		text = ruleNotFoundText + "\n\n" + r.contactsText
	}
	return nil, []Effect{
		SendMessage{ChatID: state.chat, Text: text, Buttons: backButton()},
	}, nil
}
