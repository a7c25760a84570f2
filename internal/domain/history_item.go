package domain

import "time"

// HistoryType captures what a history entry records.
type HistoryType string

const (
	HistoryTypeComment         HistoryType = "Comment"
	HistoryTypeCreated         HistoryType = "Created"
	HistoryTypeAssigned        HistoryType = "Assigned"
	HistoryTypeStatusChanged   HistoryType = "StatusChanged"
	HistoryTypeClosed          HistoryType = "Closed"
	HistoryTypeReopened        HistoryType = "Reopened"
	HistoryTypeDocumentAdded   HistoryType = "DocumentAdded"
	HistoryTypeDocumentRemoved HistoryType = "DocumentRemoved"
	HistoryTypePriorityChanged HistoryType = "PriorityChanged"
	HistoryTypeCategoryChanged HistoryType = "CategoryChanged"
)

// HistoryItem is an immutable audit trail entry.
type HistoryItem struct {
	ID        string
	TicketID  string
	UserID    string
	Type      HistoryType
	Details   string
	CreatedAt time.Time
}
