package service

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/spec-kit/helpdesk/internal/domain"
)

func exportFixture() []domain.Ticket {
	closedAt := time.Date(2026, 2, 2, 8, 0, 0, 0, time.UTC)
	bob := "bob"
	return []domain.Ticket{
		{
			ID: "t2", QueueID: "q1", CategoryID: "c1", Title: "Label, with comma",
			Status: domain.TicketStatusClosed, Priority: domain.TicketPriorityHigh,
			AssignedToID: &bob, CreatedByID: "alice", DocumentIDs: []string{"d1", "d2"},
			CreatedAt: time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC), UpdatedAt: closedAt, ClosedAt: &closedAt,
		},
		{
			ID: "t1", QueueID: "q1", CategoryID: "c2", Title: "Second",
			Status: domain.TicketStatusOpened, Priority: domain.TicketPriorityLow, CreatedByID: "alice",
			CreatedAt: time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC), UpdatedAt: time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC),
		},
	}
}

func TestWriteTicketsCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTicketsCSV(&buf, exportFixture()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, exportHeaders, rows[0])
	assert.Equal(t, "Label, with comma", rows[1][3])
	assert.Equal(t, "bob", rows[1][6])
	assert.Equal(t, "d1;d2", rows[1][8])
	assert.Equal(t, "2026-02-02T08:00:00Z", rows[1][11])
	assert.Equal(t, "", rows[2][6])
	assert.Equal(t, "", rows[2][11])
}

func TestWriteTicketsXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTicketsXLSX(&buf, exportFixture()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Tickets")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, exportHeaders, rows[0])
	assert.Equal(t, "t2", rows[1][0])
	assert.Equal(t, "t1", rows[2][0])
}
