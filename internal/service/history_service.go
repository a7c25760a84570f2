package service

import (
	"context"
	"errors"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/errorutil"
)

// HistoryService is the append-only audit log. It also serves as the
// comment index the filter builder searches.
type HistoryService struct {
	repo repository.HistoryRepository
}

// NewHistoryService constructs the service.
func NewHistoryService(repo repository.HistoryRepository) *HistoryService {
	return &HistoryService{repo: repo}
}

// Append records an entry. The ticket is not checked for existence here.
func (s *HistoryService) Append(ctx context.Context, ticketID, userID string, typ domain.HistoryType, details string) (*domain.HistoryItem, error) {
	item := &domain.HistoryItem{
		TicketID: ticketID,
		UserID:   userID,
		Type:     typ,
		Details:  details,
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// ListByTicket returns a ticket's entries, newest first.
func (s *HistoryService) ListByTicket(ctx context.Context, ticketID string) ([]domain.HistoryItem, error) {
	return s.repo.ListByTicket(ctx, ticketID)
}

// FindTicketIDsMatching returns ids of tickets with a comment containing
// text. A nil text matches any comment.
func (s *HistoryService) FindTicketIDsMatching(ctx context.Context, text *string) ([]string, error) {
	return s.repo.FindTicketIDs(ctx, domain.HistoryTypeComment, text)
}

// Get returns one history item or NOT_FOUND.
func (s *HistoryService) Get(ctx context.Context, id string) (*domain.HistoryItem, error) {
	item, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewNotFound("history item", map[string]any{"history_id": id})
	}
	return item, err
}

// Remove deletes one history item. A missing id is NOT_FOUND.
func (s *HistoryService) Remove(ctx context.Context, id string) error {
	err := s.repo.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound("history item", map[string]any{"history_id": id})
	}
	return err
}
