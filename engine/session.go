// Copyright 2026 The Gatekeeper Authors
// SPDX-License-Identifier: Apache-2.0

package engine

// session is one user's position inside a workflow. Each variant
// carries exactly the data its state needs; there is no generic
// scratch map. Sessions live until the workflow terminates — there is
// no expiry, matching the manual pace of the co-op's conversations.
type session interface {
	// Workflow names the workflow for introspection.
	Workflow() string
	// State names the current state for introspection.
	State() string
}

// Verification: join request received, waiting for the place number.
type verifyAwaitingPlace struct {
	join JoinRequested
	chat int64 // private chat to converse in
}

func (verifyAwaitingPlace) Workflow() string { return "verification" }
func (verifyAwaitingPlace) State() string    { return "awaiting_place" }

// Verification: place accepted, waiting for member-or-guest answer.
type verifyAwaitingStatus struct {
	join  JoinRequested
	chat  int64
	place int
}

func (verifyAwaitingStatus) Workflow() string { return "verification" }
func (verifyAwaitingStatus) State() string    { return "awaiting_status" }

// Complaint: waiting for the reporter's own place.
type complaintAwaitingOwnPlace struct {
	chat int64
}

func (complaintAwaitingOwnPlace) Workflow() string { return "complaint" }
func (complaintAwaitingOwnPlace) State() string    { return "awaiting_own_place" }

// Complaint: waiting for the offending place.
type complaintAwaitingTargetPlace struct {
	chat     int64
	ownPlace int
}

func (complaintAwaitingTargetPlace) Workflow() string { return "complaint" }
func (complaintAwaitingTargetPlace) State() string    { return "awaiting_target_place" }

// Complaint: waiting for the free-form description.
type complaintAwaitingText struct {
	chat        int64
	ownPlace    int
	targetPlace int
}

func (complaintAwaitingText) Workflow() string { return "complaint" }
func (complaintAwaitingText) State() string    { return "awaiting_text" }

// Neighbor contact: waiting for the sender's own place.
type neighborAwaitingOwnPlace struct {
	chat int64
}

func (neighborAwaitingOwnPlace) Workflow() string { return "neighbor_contact" }
func (neighborAwaitingOwnPlace) State() string    { return "awaiting_own_place" }

// Neighbor contact: waiting for the recipient's place.
type neighborAwaitingTargetPlace struct {
	chat     int64
	ownPlace int
}

func (neighborAwaitingTargetPlace) Workflow() string { return "neighbor_contact" }
func (neighborAwaitingTargetPlace) State() string    { return "awaiting_target_place" }

// Neighbor contact: waiting for the message to relay.
type neighborAwaitingText struct {
	chat        int64
	ownPlace    int
	targetPlace int
}

func (neighborAwaitingText) Workflow() string { return "neighbor_contact" }
func (neighborAwaitingText) State() string    { return "awaiting_text" }

// Rule search: waiting for the query.
type ruleSearchAwaitingQuery struct {
	chat int64
}

func (ruleSearchAwaitingQuery) Workflow() string { return "rule_search" }
func (ruleSearchAwaitingQuery) State() string    { return "awaiting_query" }

// SessionInfo is an introspection snapshot of one live session,
// served over the control socket.
type SessionInfo struct {
	UserID   int64  `json:"user_id" cbor:"user_id"`
	Workflow string `json:"workflow" cbor:"workflow"`
	State    string `json:"state" cbor:"state"`
}
