package service

import (
	"context"
	"testing"
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/filter"
	"github.com/spec-kit/helpdesk/internal/repository"
)

var fixedNow = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

type directory struct {
	queues     map[string]*domain.Queue
	categories map[string]*domain.Category
}

type queueDir struct{ d *directory }

func (q queueDir) GetByID(_ context.Context, id string) (*domain.Queue, error) {
	if v, ok := q.d.queues[id]; ok {
		return v, nil
	}
	return nil, repository.ErrNotFound
}

type categoryDir struct{ d *directory }

func (c categoryDir) GetByID(_ context.Context, id string) (*domain.Category, error) {
	if v, ok := c.d.categories[id]; ok {
		return v, nil
	}
	return nil, repository.ErrNotFound
}

type admins map[string]bool

func (a admins) HasAdminCapability(_ context.Context, actorID string) (bool, error) {
	return a[actorID], nil
}

type env struct {
	tickets *repository.MemoryTicketRepository
	history *HistoryService
	svc     *TicketService
	query   *TicketQueryService
	builder *filter.Builder
}

func newEnv(t *testing.T) *env {
	t.Helper()
	dir := &directory{
		queues: map[string]*domain.Queue{
			"q1": {ID: "q1", Name: "IT", IsActive: true},
			"q2": {ID: "q2", Name: "HR", IsActive: true},
		},
		categories: map[string]*domain.Category{
			"c1": {ID: "c1", QueueID: "q1", Name: "Hardware", IsActive: true},
			"c2": {ID: "c2", QueueID: "q1", Name: "Software", IsActive: true},
			"c3": {ID: "c3", QueueID: "q2", Name: "Payroll", IsActive: true},
		},
	}
	now := func() time.Time { return fixedNow }
	tickets := repository.NewMemoryTicketRepository(now)
	history := NewHistoryService(repository.NewMemoryHistoryRepository(now))
	builder := filter.NewBuilder(history)
	return &env{
		tickets: tickets,
		history: history,
		builder: builder,
		query:   NewTicketQueryService(tickets, builder),
		svc: NewTicketService(TicketDependencies{
			TicketRepo:  tickets,
			History:     history,
			Queues:      queueDir{dir},
			Categories:  categoryDir{dir},
			Permissions: admins{"root": true},
			Now:         now,
		}),
	}
}

func (e *env) create(t *testing.T, creator string, mutate func(*CreateInput)) *domain.Ticket {
	t.Helper()
	in := CreateInput{QueueID: "q1", CategoryID: "c1", Title: "Printer broken", Details: "third floor"}
	if mutate != nil {
		mutate(&in)
	}
	out, err := e.svc.Create(context.Background(), creator, in)
	if err != nil {
		t.Fatalf("create ticket: %v", err)
	}
	return out.Ticket
}

func ptr[T any](v T) *T { return &v }
