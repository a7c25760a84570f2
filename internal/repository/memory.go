package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/filter"
)

// clock hands out strictly increasing UTC timestamps so equal wall-clock
// readings still order deterministically.
type clock struct {
	mu   sync.Mutex
	now  func() time.Time
	last time.Time
}

func newClock(now func() time.Time) *clock {
	if now == nil {
		now = time.Now
	}
	return &clock{now: now}
}

func (c *clock) tick() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now().UTC()
	if !t.After(c.last) {
		t = c.last.Add(time.Microsecond)
	}
	c.last = t
	return t
}

// MemoryTicketRepository keeps tickets in process. It backs tests and the
// "memory" store backend.
type MemoryTicketRepository struct {
	mu      sync.RWMutex
	tickets map[string]*domain.Ticket
	clock   *clock
}

// NewMemoryTicketRepository builds an empty store. A nil now uses time.Now.
func NewMemoryTicketRepository(now func() time.Time) *MemoryTicketRepository {
	return &MemoryTicketRepository{tickets: map[string]*domain.Ticket{}, clock: newClock(now)}
}

func (r *MemoryTicketRepository) Insert(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket.ID = uuid.NewString()
	ticket.CreatedAt = r.clock.tick()
	ticket.UpdatedAt = ticket.CreatedAt
	if ticket.DocumentIDs == nil {
		ticket.DocumentIDs = []string{}
	}
	r.tickets[ticket.ID] = ticket.Clone()
	return nil
}

func (r *MemoryTicketRepository) FindByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	return t.Clone(), nil
}

func (r *MemoryTicketRepository) FindMatching(_ context.Context, pred filter.Predicate, s Sort, skip, limit int) ([]domain.Ticket, error) {
	matched := r.matching(pred)
	sortTickets(matched, s)
	if skip < 0 {
		skip = 0
	}
	if skip > len(matched) {
		skip = len(matched)
	}
	matched = matched[skip:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	out := make([]domain.Ticket, 0, len(matched))
	for _, t := range matched {
		out = append(out, *t)
	}
	return out, nil
}

func (r *MemoryTicketRepository) CountMatching(_ context.Context, pred filter.Predicate) (int64, error) {
	return int64(len(r.matching(pred))), nil
}

func (r *MemoryTicketRepository) matching(pred filter.Predicate) []*domain.Ticket {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.Ticket
	for _, t := range r.tickets {
		if filter.Match(pred, t) {
			out = append(out, t.Clone())
		}
	}
	return out
}

func (r *MemoryTicketRepository) UpdateFields(_ context.Context, id string, patch domain.TicketPatch) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	if !patch.Empty() {
		patch.Apply(t)
		t.UpdatedAt = r.clock.tick()
	}
	return t.Clone(), nil
}

func (r *MemoryTicketRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tickets[id]; !ok {
		return ErrNotFound
	}
	delete(r.tickets, id)
	return nil
}

func sortTickets(tickets []*domain.Ticket, s Sort) {
	key := func(t *domain.Ticket) time.Time {
		switch s.Field {
		case filter.FieldUpdatedAt:
			return t.UpdatedAt
		case filter.FieldClosedAt:
			if t.ClosedAt != nil {
				return *t.ClosedAt
			}
			return time.Time{}
		default:
			return t.CreatedAt
		}
	}
	sort.SliceStable(tickets, func(i, j int) bool {
		a, b := tickets[i], tickets[j]
		ka, kb := key(a), key(b)
		if !ka.Equal(kb) {
			if s.Desc {
				return ka.After(kb)
			}
			return ka.Before(kb)
		}
		if s.Desc {
			return a.ID > b.ID
		}
		return a.ID < b.ID
	})
}

// MemoryHistoryRepository keeps history entries in process.
type MemoryHistoryRepository struct {
	mu    sync.RWMutex
	items []domain.HistoryItem
	clock *clock
}

// NewMemoryHistoryRepository builds an empty log. A nil now uses time.Now.
func NewMemoryHistoryRepository(now func() time.Time) *MemoryHistoryRepository {
	return &MemoryHistoryRepository{clock: newClock(now)}
}

func (r *MemoryHistoryRepository) Create(_ context.Context, item *domain.HistoryItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	item.ID = uuid.NewString()
	item.CreatedAt = r.clock.tick()
	r.items = append(r.items, *item)
	return nil
}

func (r *MemoryHistoryRepository) GetByID(_ context.Context, id string) (*domain.HistoryItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, item := range r.items {
		if item.ID == id {
			found := item
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryHistoryRepository) ListByTicket(_ context.Context, ticketID string) ([]domain.HistoryItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []domain.HistoryItem{}
	for i := len(r.items) - 1; i >= 0; i-- {
		if r.items[i].TicketID == ticketID {
			out = append(out, r.items[i])
		}
	}
	return out, nil
}

func (r *MemoryHistoryRepository) FindTicketIDs(_ context.Context, typ domain.HistoryType, text *string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := map[string]bool{}
	ids := []string{}
	for _, item := range r.items {
		if item.Type != typ || seen[item.TicketID] {
			continue
		}
		if text != nil && !strings.Contains(strings.ToLower(item.Details), strings.ToLower(*text)) {
			continue
		}
		seen[item.TicketID] = true
		ids = append(ids, item.TicketID)
	}
	return ids, nil
}

func (r *MemoryHistoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, item := range r.items {
		if item.ID == id {
			r.items = append(r.items[:i], r.items[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}
