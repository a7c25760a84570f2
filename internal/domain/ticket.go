package domain

import (
	"slices"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpened TicketStatus = "Opened"
	TicketStatusClosed TicketStatus = "Closed"
)

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	return s == TicketStatusOpened || s == TicketStatusClosed
}

// TicketPriority enumerates urgency levels.
type TicketPriority string

const (
	TicketPriorityHigh   TicketPriority = "High"
	TicketPriorityMedium TicketPriority = "Medium"
	TicketPriorityLow    TicketPriority = "Low"
)

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityHigh, TicketPriorityMedium, TicketPriorityLow:
		return true
	}
	return false
}

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID           string
	QueueID      string
	CategoryID   string
	Title        string
	Details      string
	Status       TicketStatus
	Priority     TicketPriority
	AssignedToID *string
	CreatedByID  string
	DocumentIDs  []string
	ClosingNotes string
	Archived     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
	ClosedAt     *time.Time
}

// HasDocument reports whether documentID is attached.
func (t *Ticket) HasDocument(documentID string) bool {
	return slices.Contains(t.DocumentIDs, documentID)
}

// Clone returns a deep copy so callers can mutate without aliasing.
func (t *Ticket) Clone() *Ticket {
	if t == nil {
		return nil
	}
	out := *t
	out.DocumentIDs = slices.Clone(t.DocumentIDs)
	if t.AssignedToID != nil {
		v := *t.AssignedToID
		out.AssignedToID = &v
	}
	if t.ClosedAt != nil {
		v := *t.ClosedAt
		out.ClosedAt = &v
	}
	return &out
}

// TicketPatch lists the fields a store update should overwrite. Nil pointers
// are left untouched; Nullable fields distinguish "set to null" from "unset".
type TicketPatch struct {
	Title        *string
	Details      *string
	CategoryID   *string
	Priority     *TicketPriority
	Status       *TicketStatus
	ClosingNotes *string
	Archived     *bool
	DocumentIDs  *[]string
	AssignedToID Nullable[string]
	ClosedAt     Nullable[time.Time]
}

// Empty reports whether the patch changes nothing.
func (p TicketPatch) Empty() bool {
	return p.Title == nil && p.Details == nil && p.CategoryID == nil && p.Priority == nil &&
		p.Status == nil && p.ClosingNotes == nil && p.Archived == nil && p.DocumentIDs == nil &&
		!p.AssignedToID.Set && !p.ClosedAt.Set
}

// Apply writes the patch onto t. UpdatedAt is left to the store.
func (p TicketPatch) Apply(t *Ticket) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Details != nil {
		t.Details = *p.Details
	}
	if p.CategoryID != nil {
		t.CategoryID = *p.CategoryID
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.ClosingNotes != nil {
		t.ClosingNotes = *p.ClosingNotes
	}
	if p.Archived != nil {
		t.Archived = *p.Archived
	}
	if p.DocumentIDs != nil {
		t.DocumentIDs = slices.Clone(*p.DocumentIDs)
	}
	if p.AssignedToID.Set {
		t.AssignedToID = p.AssignedToID.Ptr()
	}
	if p.ClosedAt.Set {
		t.ClosedAt = p.ClosedAt.Ptr()
	}
}
