package filter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/helpdesk/internal/domain"
)

func TestMatchNullableFields(t *testing.T) {
	agent := "agent"
	closedAt := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	open := ticket("open", nil)
	done := ticket("done", func(t *domain.Ticket) {
		t.AssignedToID = &agent
		t.Status = domain.TicketStatusClosed
		t.ClosedAt = &closedAt
	})

	assert.Equal(t, []string{"open"}, matching(IsNull(FieldAssignedTo), open, done))
	assert.Equal(t, []string{"done"}, matching(Eq(FieldAssignedTo, "agent"), open, done))
	assert.Equal(t, []string{"open"}, matching(Not(Eq(FieldAssignedTo, "agent")), open, done))
	assert.Equal(t, []string{"done"}, matching(GTE(FieldClosedAt, closedAt), open, done))
	assert.Empty(t, matching(LTE(FieldClosedAt, closedAt.Add(-time.Second)), open, done))
}

func TestMatchContainsIsLiteral(t *testing.T) {
	tk := ticket("a", func(t *domain.Ticket) { t.Title = "Costs 50% more (really)" })
	assert.True(t, Match(Contains(FieldTitle, "50% MORE"), tk))
	assert.True(t, Match(Contains(FieldTitle, "(really)"), tk))
	assert.False(t, Match(Contains(FieldTitle, "50.*more"), tk))
}

func TestMatchDocumentsAndArchived(t *testing.T) {
	bare := ticket("bare", nil)
	filed := ticket("filed", func(t *domain.Ticket) {
		t.DocumentIDs = []string{"d1"}
		t.Archived = true
	})
	assert.Equal(t, []string{"bare"}, matching(Empty(FieldDocuments), bare, filed))
	assert.Equal(t, []string{"filed"}, matching(IsTrue(FieldArchived), bare, filed))
	assert.Equal(t, []string{"bare", "filed"}, matching(All(), bare, filed))
	assert.Empty(t, matching(None(), bare, filed))
}
