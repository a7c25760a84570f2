package service

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/filter"
	apperrors "github.com/spec-kit/helpdesk/pkg/errorutil"
)

func ids(tickets []domain.Ticket) []string {
	out := make([]string, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, t.ID)
	}
	return out
}

func TestCountMatchesAllAndPagesArePrefixes(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	var created []string
	for i := 0; i < 7; i++ {
		created = append(created, e.create(t, "alice", nil).ID)
	}
	e.create(t, "alice", func(in *CreateInput) { in.QueueID, in.CategoryID = "q2", "c3" })

	req := filter.Request{QueueID: ptr("q1")}
	all, err := e.query.All(ctx, req)
	require.NoError(t, err)
	count, err := e.query.Count(ctx, req)
	require.NoError(t, err)
	assert.EqualValues(t, len(all), count)
	assert.Len(t, all, 7)

	// newest first
	assert.Equal(t, created[6], all[0].ID)
	assert.Equal(t, created[0], all[6].ID)

	for limit := 1; limit <= 8; limit++ {
		var paged []string
		for page := 1; ; page++ {
			items, err := e.query.Page(ctx, req, page, limit)
			require.NoError(t, err)
			if len(items) == 0 {
				break
			}
			paged = append(paged, ids(items)...)
		}
		assert.Equal(t, ids(all), paged, "limit %d", limit)
	}

	first, err := e.query.Page(ctx, req, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, ids(all)[:3], ids(first))

	list, err := e.query.List(ctx, req, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultPage, list.Page)
	assert.Equal(t, DefaultLimit, list.Limit)
	assert.EqualValues(t, 7, list.Total)
	assert.Len(t, list.Items, 7)
}

func TestSingularStatusWinsOverArray(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	open := e.create(t, "alice", nil)
	closed := e.create(t, "alice", nil)
	_, err := e.svc.ChangeStatus(ctx, "agent", closed.ID, domain.TicketStatusClosed)
	require.NoError(t, err)

	got, err := e.query.All(ctx, filter.Request{
		Status:   ptr(domain.TicketStatusOpened),
		Statuses: []domain.TicketStatus{domain.TicketStatusClosed},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{open.ID}, ids(got))
}

func TestSearchCoversComments(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	byTitle := e.create(t, "alice", func(in *CreateInput) { in.Title = "Printer JAM on floor 2" })
	byComment := e.create(t, "alice", func(in *CreateInput) { in.Title = "Office supplies" })
	e.create(t, "alice", func(in *CreateInput) { in.Title = "Laptop" })
	_, err := e.svc.AddComment(ctx, "bob", byComment.ID, "Looks like a printer jam")
	require.NoError(t, err)

	got, err := e.query.All(ctx, filter.Request{Search: ptr("printer jam")})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{byTitle.ID, byComment.ID}, ids(got))

	withComments, err := e.query.All(ctx, filter.Request{HasComments: ptr(true)})
	require.NoError(t, err)
	assert.Equal(t, []string{byComment.ID}, ids(withComments))
}

func TestAssignmentFilters(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	unassigned := e.create(t, "alice", nil)
	bobs := e.create(t, "carol", nil)
	_, err := e.svc.Assign(ctx, "lead", bobs.ID, ptr("bob"))
	require.NoError(t, err)

	got, err := e.query.All(ctx, filter.Request{AssignedTo: domain.Null[string]()})
	require.NoError(t, err)
	assert.Equal(t, []string{unassigned.ID}, ids(got))

	got, err = e.query.All(ctx, filter.Request{UserIDs: []string{"bob"}, CreatedBy: ptr("alice")})
	require.NoError(t, err)
	assert.Equal(t, []string{bobs.ID}, ids(got), "user ids replace creator filter")
}

func TestInvalidDateBound(t *testing.T) {
	e := newEnv(t)
	_, err := e.query.Count(context.Background(), filter.Request{CreatedAfter: "yesterday"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidFilter))
}

func TestPageOffsetOverflow(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.create(t, "alice", nil)

	assert.NotPanics(t, func() {
		_, err := e.query.Page(ctx, filter.Request{}, math.MaxInt64/5, 10)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
	})

	_, err := e.query.List(ctx, filter.Request{}, math.MaxInt, 2)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	last, err := e.query.Page(ctx, filter.Request{}, math.MaxInt/10, 10)
	require.NoError(t, err)
	assert.Empty(t, last)
}
