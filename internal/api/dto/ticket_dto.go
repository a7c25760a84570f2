package dto

import (
	"encoding/json"
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	QueueID     string                `json:"queue_id"`
	CategoryID  string                `json:"category_id"`
	Title       string                `json:"title"`
	Details     string                `json:"details"`
	Priority    domain.TicketPriority `json:"priority"`
	DocumentIDs []string              `json:"document_ids"`
}

// UpdateTicketRequest is a partial update. assigned_to_id and closed_at
// distinguish an explicit null from an absent key.
type UpdateTicketRequest struct {
	Title        *string                `json:"title"`
	Details      *string                `json:"details"`
	CategoryID   *string                `json:"category_id"`
	Priority     *domain.TicketPriority `json:"priority"`
	Status       *domain.TicketStatus   `json:"status"`
	ClosingNotes *string                `json:"closing_notes"`
	AssignedToID json.RawMessage        `json:"assigned_to_id"`
	ClosedAt     json.RawMessage        `json:"closed_at"`
}

// AssignTicketRequest payload. A null assignee unassigns.
type AssignTicketRequest struct {
	AssigneeID *string `json:"assignee_id"`
}

// ChangeStatusRequest payload.
type ChangeStatusRequest struct {
	Status domain.TicketStatus `json:"status"`
}

// ChangePriorityRequest payload.
type ChangePriorityRequest struct {
	Priority domain.TicketPriority `json:"priority"`
}

// ChangeCategoryRequest payload.
type ChangeCategoryRequest struct {
	CategoryID string `json:"category_id"`
}

// CreateCommentRequest payload.
type CreateCommentRequest struct {
	Body string `json:"body"`
}

// TicketResponse represents a ticket.
type TicketResponse struct {
	ID           string                `json:"id"`
	QueueID      string                `json:"queue_id"`
	CategoryID   string                `json:"category_id"`
	Title        string                `json:"title"`
	Details      string                `json:"details"`
	Status       domain.TicketStatus   `json:"status"`
	Priority     domain.TicketPriority `json:"priority"`
	AssignedToID *string               `json:"assigned_to_id"`
	CreatedByID  string                `json:"created_by_id"`
	DocumentIDs  []string              `json:"document_ids"`
	ClosingNotes string                `json:"closing_notes,omitempty"`
	Archived     bool                  `json:"archived"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
	ClosedAt     *time.Time            `json:"closed_at"`
}

// HistoryItemResponse represents one audit entry.
type HistoryItemResponse struct {
	ID        string             `json:"id"`
	TicketID  string             `json:"ticket_id"`
	UserID    string             `json:"user_id"`
	Type      domain.HistoryType `json:"type"`
	Details   string             `json:"details"`
	CreatedAt time.Time          `json:"created_at"`
}

// PageMeta describes a listing page.
type PageMeta struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}

// NewTicketResponse maps a domain ticket.
func NewTicketResponse(t *domain.Ticket) TicketResponse {
	docs := t.DocumentIDs
	if docs == nil {
		docs = []string{}
	}
	return TicketResponse{
		ID:           t.ID,
		QueueID:      t.QueueID,
		CategoryID:   t.CategoryID,
		Title:        t.Title,
		Details:      t.Details,
		Status:       t.Status,
		Priority:     t.Priority,
		AssignedToID: t.AssignedToID,
		CreatedByID:  t.CreatedByID,
		DocumentIDs:  docs,
		ClosingNotes: t.ClosingNotes,
		Archived:     t.Archived,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
		ClosedAt:     t.ClosedAt,
	}
}

// NewTicketResponses maps a slice.
func NewTicketResponses(tickets []domain.Ticket) []TicketResponse {
	out := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		out = append(out, NewTicketResponse(&tickets[i]))
	}
	return out
}

// NewHistoryItemResponse maps a history entry.
func NewHistoryItemResponse(item *domain.HistoryItem) HistoryItemResponse {
	return HistoryItemResponse{
		ID:        item.ID,
		TicketID:  item.TicketID,
		UserID:    item.UserID,
		Type:      item.Type,
		Details:   item.Details,
		CreatedAt: item.CreatedAt,
	}
}
