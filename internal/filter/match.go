package filter

import (
	"slices"
	"strings"
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// Match evaluates p against a ticket held in memory.
func Match(p Predicate, t *domain.Ticket) bool {
	switch p.Op {
	case OpAll:
		return true
	case OpNone:
		return false
	case OpAnd:
		for _, c := range p.Children {
			if !Match(c, t) {
				return false
			}
		}
		return true
	case OpOr:
		for _, c := range p.Children {
			if Match(c, t) {
				return true
			}
		}
		return false
	case OpNot:
		return !Match(p.Children[0], t)
	case OpIn:
		v, ok := stringValue(p.Field, t)
		return ok && slices.Contains(p.Values, v)
	case OpIsNull:
		switch p.Field {
		case FieldAssignedTo:
			return t.AssignedToID == nil
		case FieldClosedAt:
			return t.ClosedAt == nil
		}
		return false
	case OpGTE, OpLTE:
		v, ok := timeValue(p.Field, t)
		if !ok {
			return false
		}
		if p.Op == OpGTE {
			return !v.Before(p.Time)
		}
		return !v.After(p.Time)
	case OpContains:
		v, ok := stringValue(p.Field, t)
		return ok && strings.Contains(strings.ToLower(v), strings.ToLower(p.Text))
	case OpEmpty:
		return p.Field == FieldDocuments && len(t.DocumentIDs) == 0
	case OpIsTrue:
		return p.Field == FieldArchived && t.Archived
	}
	return false
}

func stringValue(field Field, t *domain.Ticket) (string, bool) {
	switch field {
	case FieldID:
		return t.ID, true
	case FieldQueue:
		return t.QueueID, true
	case FieldCategory:
		return t.CategoryID, true
	case FieldStatus:
		return string(t.Status), true
	case FieldPriority:
		return string(t.Priority), true
	case FieldAssignedTo:
		if t.AssignedToID == nil {
			return "", false
		}
		return *t.AssignedToID, true
	case FieldCreatedBy:
		return t.CreatedByID, true
	case FieldTitle:
		return t.Title, true
	case FieldDetails:
		return t.Details, true
	}
	return "", false
}

func timeValue(field Field, t *domain.Ticket) (time.Time, bool) {
	switch field {
	case FieldCreatedAt:
		return t.CreatedAt, true
	case FieldUpdatedAt:
		return t.UpdatedAt, true
	case FieldClosedAt:
		if t.ClosedAt == nil {
			return time.Time{}, false
		}
		return *t.ClosedAt, true
	}
	return time.Time{}, false
}
