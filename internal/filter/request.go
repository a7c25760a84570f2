package filter

import "github.com/spec-kit/helpdesk/internal/domain"

// Request describes a ticket query. Singular and array forms of the same
// dimension may both be present; Resolve decides which one applies.
type Request struct {
	QueueID     *string
	QueueIDs    []string
	CategoryID  *string
	CategoryIDs []string
	Status      *domain.TicketStatus
	Statuses    []domain.TicketStatus
	Priority    *domain.TicketPriority
	Priorities  []domain.TicketPriority

	// AssignedTo set to null selects unassigned tickets.
	AssignedTo domain.Nullable[string]
	// A nil element selects unassigned tickets alongside the listed users.
	AssignedToUserIDs []*string
	CreatedBy         *string
	CreatedByUserIDs  []string
	// UserIDs selects tickets created by or assigned to any of the users.
	UserIDs []string

	Search *string

	// Date bounds are raw strings (RFC3339 or YYYY-MM-DD) and inclusive.
	CreatedAfter  string
	CreatedBefore string
	UpdatedAfter  string
	UpdatedBefore string
	ClosedAfter   string
	ClosedBefore  string

	HasDocuments    *bool
	HasComments     *bool
	IncludeArchived bool
	ServiceDesk     *ServiceDesk
}

// ServiceDesk scopes visibility to a set of queues plus the user's own tickets.
type ServiceDesk struct {
	QueueIDs []string
	UserID   string
}
