// Copyright 2026 The Gatekeeper Authors
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"context"
	"sync"
)

// Memory is an in-process Store. It backs tests and local development
// runs; production uses the sheets client.
//
// Memory is safe for concurrent use.
type Memory struct {
	mu               sync.Mutex
	members          []MemberRecord
	complaints       []Complaint
	neighborRequests []NeighborRequest
	subscriptions    map[int64]bool
	rules            []Rule
}

// NewMemory creates an empty in-process store.
func NewMemory() *Memory {
	return &Memory{subscriptions: make(map[int64]bool)}
}

// SaveMember appends a member record.
func (m *Memory) SaveMember(ctx context.Context, record MemberRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.members = append(m.members, record)
	return nil
}

// SaveComplaint appends a complaint.
func (m *Memory) SaveComplaint(ctx context.Context, complaint Complaint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.complaints = append(m.complaints, complaint)
	return nil
}

// SaveNeighborRequest appends a neighbor-contact request.
func (m *Memory) SaveNeighborRequest(ctx context.Context, request NeighborRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.neighborRequests = append(m.neighborRequests, request)
	return nil
}

// MemberByPlace returns the first active record for the place, or nil.
func (m *Memory) MemberByPlace(ctx context.Context, place int) (*MemberRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, record := range m.members {
		if record.Place == place && record.Status == StatusActive {
			found := record
			return &found, nil
		}
	}
	return nil, nil
}

// MembersByPlace returns every active record for the place.
func (m *Memory) MembersByPlace(ctx context.Context, place int) ([]MemberRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matches []MemberRecord
	for _, record := range m.members {
		if record.Place == place && record.Status == StatusActive {
			matches = append(matches, record)
		}
	}
	return matches, nil
}

// SetSubscribed toggles a user's direct-reminder subscription.
func (m *Memory) SetSubscribed(ctx context.Context, userID int64, handle, displayName string, subscribed bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptions[userID] = subscribed
	return nil
}

// Subscribers returns the currently subscribed user IDs.
func (m *Memory) Subscribers(ctx context.Context) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var subscribers []int64
	for userID, subscribed := range m.subscriptions {
		if subscribed {
			subscribers = append(subscribers, userID)
		}
	}
	return subscribers, nil
}

// Rules returns the rule book.
func (m *Memory) Rules(ctx context.Context) ([]Rule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Rule(nil), m.rules...), nil
}

// SetRules replaces the rule book. Test and development seeding.
func (m *Memory) SetRules(rules []Rule) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append([]Rule(nil), rules...)
}

// Members returns a copy of the member log. Test inspection.
func (m *Memory) Members() []MemberRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MemberRecord(nil), m.members...)
}

// Complaints returns a copy of the complaint log. Test inspection.
func (m *Memory) Complaints() []Complaint {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Complaint(nil), m.complaints...)
}

// NeighborRequests returns a copy of the request log. Test inspection.
func (m *Memory) NeighborRequests() []NeighborRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]NeighborRequest(nil), m.neighborRequests...)
}
