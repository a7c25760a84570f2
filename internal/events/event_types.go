package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated         EventType = "ticket_created"
	EventTicketAssigned        EventType = "ticket_assigned"
	EventTicketStatusChanged   EventType = "ticket_status_changed"
	EventTicketPriorityChanged EventType = "ticket_priority_changed"
	EventTicketCategoryChanged EventType = "ticket_category_changed"
	EventTicketDocumentAdded   EventType = "ticket_document_added"
	EventTicketDocumentRemoved EventType = "ticket_document_removed"
	EventTicketCommented       EventType = "ticket_commented"
)

// AllTypes lists every event the ticket lifecycle emits.
var AllTypes = []EventType{
	EventTicketCreated,
	EventTicketAssigned,
	EventTicketStatusChanged,
	EventTicketPriorityChanged,
	EventTicketCategoryChanged,
	EventTicketDocumentAdded,
	EventTicketDocumentRemoved,
	EventTicketCommented,
}

// Event represents a domain event emitted by the ticket lifecycle.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	TicketID  string    `json:"ticket_id"`
	ActorID   string    `json:"actor_id"`
	Timestamp time.Time `json:"timestamp"`
	// Recipients are the users to notify; the actor is never included.
	Recipients []string `json:"recipients,omitempty"`
	Payload    any      `json:"payload"`
}

// New stamps an event for ticket t. Recipients are the creator and the
// current assignee, minus the actor.
func New(typ EventType, t *domain.Ticket, actorID string, payload any, extra ...string) Event {
	candidates := append([]string{t.CreatedByID}, extra...)
	if t.AssignedToID != nil {
		candidates = append(candidates, *t.AssignedToID)
	}
	seen := map[string]bool{actorID: true}
	var recipients []string
	for _, id := range candidates {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		recipients = append(recipients, id)
	}
	return Event{
		ID:         uuid.NewString(),
		Type:       typ,
		TicketID:   t.ID,
		ActorID:    actorID,
		Timestamp:  time.Now().UTC(),
		Recipients: recipients,
		Payload:    payload,
	}
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	QueueID    string                `json:"queue_id"`
	CategoryID string                `json:"category_id"`
	Priority   domain.TicketPriority `json:"priority"`
	Title      string                `json:"title"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	PreviousAssigneeID *string `json:"previous_assignee_id,omitempty"`
	AssigneeID         *string `json:"assignee_id,omitempty"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TicketPriorityChangedPayload payload.
type TicketPriorityChangedPayload struct {
	OldPriority domain.TicketPriority `json:"old_priority"`
	NewPriority domain.TicketPriority `json:"new_priority"`
}

// TicketCategoryChangedPayload payload.
type TicketCategoryChangedPayload struct {
	OldCategoryID string `json:"old_category_id"`
	NewCategoryID string `json:"new_category_id"`
}

// TicketDocumentPayload is shared by document added/removed events.
type TicketDocumentPayload struct {
	DocumentID string `json:"document_id"`
}

// TicketCommentedPayload payload.
type TicketCommentedPayload struct {
	CommentID   string `json:"comment_id"`
	BodyPreview string `json:"body_preview"`
}
