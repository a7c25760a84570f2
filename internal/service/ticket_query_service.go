package service

import (
	"context"
	"math"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/filter"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/errorutil"
)

// Listing defaults.
const (
	DefaultPage  = 1
	DefaultLimit = 10
)

// TicketPage is one page of a listing plus the total match count.
type TicketPage struct {
	Items []domain.Ticket
	Total int64
	Page  int
	Limit int
}

// TicketQueryService runs filter requests against the ticket store. Page,
// All and Count build their predicate the same way, so for one request the
// count equals len(All) and every page is a slice of All.
type TicketQueryService struct {
	tickets repository.TicketRepository
	builder *filter.Builder
}

// NewTicketQueryService constructs the service.
func NewTicketQueryService(tickets repository.TicketRepository, builder *filter.Builder) *TicketQueryService {
	return &TicketQueryService{tickets: tickets, builder: builder}
}

// Page returns the requested page, newest first. Non-positive page and
// limit fall back to the defaults; a page whose offset does not fit in an
// int is a validation error.
func (s *TicketQueryService) Page(ctx context.Context, req filter.Request, page, limit int) ([]domain.Ticket, error) {
	page, limit, err := normalizePage(page, limit)
	if err != nil {
		return nil, err
	}
	pred, err := s.builder.Build(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.tickets.FindMatching(ctx, pred, repository.DefaultSort, (page-1)*limit, limit)
}

// All returns every match, newest first. There is no internal cap.
func (s *TicketQueryService) All(ctx context.Context, req filter.Request) ([]domain.Ticket, error) {
	pred, err := s.builder.Build(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.tickets.FindMatching(ctx, pred, repository.DefaultSort, 0, 0)
}

// Count returns the number of matches.
func (s *TicketQueryService) Count(ctx context.Context, req filter.Request) (int64, error) {
	pred, err := s.builder.Build(ctx, req)
	if err != nil {
		return 0, err
	}
	return s.tickets.CountMatching(ctx, pred)
}

// List returns a page together with the total, both from one predicate.
func (s *TicketQueryService) List(ctx context.Context, req filter.Request, page, limit int) (*TicketPage, error) {
	page, limit, err := normalizePage(page, limit)
	if err != nil {
		return nil, err
	}
	pred, err := s.builder.Build(ctx, req)
	if err != nil {
		return nil, err
	}
	items, err := s.tickets.FindMatching(ctx, pred, repository.DefaultSort, (page-1)*limit, limit)
	if err != nil {
		return nil, err
	}
	total, err := s.tickets.CountMatching(ctx, pred)
	if err != nil {
		return nil, err
	}
	return &TicketPage{Items: items, Total: total, Page: page, Limit: limit}, nil
}

func normalizePage(page, limit int) (int, int, error) {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if page-1 > math.MaxInt/limit {
		return 0, 0, apperrors.NewValidationError("page out of range", map[string]any{"page": page, "limit": limit})
	}
	return page, limit, nil
}
