// Copyright 2026 The Gatekeeper Authors
// SPDX-License-Identifier: Apache-2.0

// Package registry defines the co-op's external tabular store:
// verified members and their claimed places, complaint and
// neighbor-request logs, reminder subscriptions, and the rule book.
//
// The store is append-mostly. Member records in particular are an
// append-only log: superseding claims are detected and flagged, never
// merged or rejected. The stated policy is to always approve entry
// and leave conflicting claims for the board to review.
package registry

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrUnavailable reports that the external store cannot be reached.
// Workflows treat this as a hard failure: the conversation ends with
// a "contact the board" message rather than retrying.
var ErrUnavailable = errors.New("registry: store unavailable")

// Status classifies a member record's claim.
type Status string

const (
	// StatusActive is an unchallenged claim.
	StatusActive Status = "active"

	// StatusConflictMember flags a membership claim on a place that
	// already has an active cooperative member.
	StatusConflictMember Status = "conflict_member"

	// StatusConflictGuest flags a guest claim on a place that already
	// has an active guest.
	StatusConflictGuest Status = "conflict_guest"
)

// MemberRecord is one row of the member log: a person's verified
// claim to a place.
type MemberRecord struct {
	UserID      int64
	Handle      string // public platform handle; empty when the user has none
	DisplayName string
	Place       int
	Member      bool // cooperative member, as opposed to guest (renter)
	RecordedAt  time.Time
	Status      Status
}

// Complaint is one reported violation.
type Complaint struct {
	FromPlace int
	ToPlace   int
	Text      string
	CreatedAt time.Time
}

// NeighborRequest is one anonymously relayed message between two
// place-holders, mediated by the administrative chat. The bot never
// mutates a request after creation; the board handles it manually.
type NeighborRequest struct {
	FromPlace int
	ToPlace   int
	Text      string
	CreatedAt time.Time
}

// Rule is one entry of the co-op rule book: a set of lookup keywords
// and the answer text they map to.
type Rule struct {
	Keywords []string
	Text     string
}

// Store is the interface to the external tabular store. All methods
// return ErrUnavailable (possibly wrapped) when the store cannot be
// reached.
type Store interface {
	// SaveMember appends a member record. Never updates in place.
	SaveMember(ctx context.Context, record MemberRecord) error

	// SaveComplaint appends a complaint.
	SaveComplaint(ctx context.Context, complaint Complaint) error

	// SaveNeighborRequest appends a neighbor-contact request.
	SaveNeighborRequest(ctx context.Context, request NeighborRequest) error

	// MemberByPlace returns the first active record claiming the
	// place, or nil when the place has no verified holder.
	MemberByPlace(ctx context.Context, place int) (*MemberRecord, error)

	// MembersByPlace returns every active record claiming the place,
	// in record order. Used for conflict detection.
	MembersByPlace(ctx context.Context, place int) ([]MemberRecord, error)

	// SetSubscribed marks a user as subscribed or unsubscribed to
	// direct reminders, creating the subscription row if needed.
	SetSubscribed(ctx context.Context, userID int64, handle, displayName string, subscribed bool) error

	// Subscribers returns the user IDs currently subscribed to
	// direct reminders.
	Subscribers(ctx context.Context) ([]int64, error)

	// Rules returns the rule book in its stored order.
	Rules(ctx context.Context) ([]Rule, error)
}

// CheckConflict decides the status of a new claim given the existing
// active records for the same place.
//
// Tie-break rules: any existing active cooperative member conflicts
// with a new member claim. A new guest claim conflicts only with an
// existing active guest — a member and a guest may coexist on one
// place (an owner plus a renter on record), flagged separately.
//
// The scan-then-write sequence around this check is not transactional:
// two simultaneous verifications for the same place may both read "no
// conflict" before either write lands. Accepted eventual-consistency
// gap — both records land, individually flagged by whoever writes
// second, and the board reviews.
func CheckConflict(existing []MemberRecord, member bool) Status {
	var hasActiveMember, hasActiveGuest bool
	for _, record := range existing {
		if record.Status != StatusActive {
			continue
		}
		if record.Member {
			hasActiveMember = true
		} else {
			hasActiveGuest = true
		}
	}

	if member && hasActiveMember {
		return StatusConflictMember
	}
	if !member && hasActiveGuest {
		return StatusConflictGuest
	}
	return StatusActive
}

// SearchRules finds the first rule matching the query: a rule matches
// when, case-insensitively, the query contains one of its keywords or
// the keyword contains the query. Rules are scanned in stored order,
// keywords in listed order, so the result is deterministic. Returns
// false when nothing matches.
func SearchRules(rules []Rule, query string) (string, bool) {
	query = normalize(query)
	if query == "" {
		return "", false
	}
	for _, rule := range rules {
		for _, keyword := range rule.Keywords {
			keyword = normalize(keyword)
			if keyword == "" {
				continue
			}
			if strings.Contains(query, keyword) || strings.Contains(keyword, query) {
				return rule.Text, true
			}
		}
	}
	return "", false
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
