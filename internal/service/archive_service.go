package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/filter"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/repository"
)

// ArchiveService flags tickets closed longer than the retention window as
// archived, hiding them from default listings.
type ArchiveService struct {
	tickets   repository.TicketRepository
	builder   *filter.Builder
	retention time.Duration
	logger    *zap.Logger
	metrics   *observability.Metrics
	now       func() time.Time
}

// NewArchiveService constructs the service. A nil now uses time.Now.
func NewArchiveService(tickets repository.TicketRepository, builder *filter.Builder, retention time.Duration, logger *zap.Logger, metrics *observability.Metrics, now func() time.Time) *ArchiveService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	return &ArchiveService{
		tickets:   tickets,
		builder:   builder,
		retention: retention,
		logger:    logger,
		metrics:   metrics,
		now:       now,
	}
}

// ArchiveExpired archives every closed, unarchived ticket whose closedAt is
// at or before now minus the retention window. It returns how many were
// archived before any error.
func (s *ArchiveService) ArchiveExpired(ctx context.Context) (int64, error) {
	closed := domain.TicketStatusClosed
	cutoff := s.now().UTC().Add(-s.retention)
	pred, err := s.builder.Build(ctx, filter.Request{
		Status:       &closed,
		ClosedBefore: cutoff.Format(time.RFC3339Nano),
	})
	if err != nil {
		return 0, err
	}

	expired, err := s.tickets.FindMatching(ctx, pred, repository.DefaultSort, 0, 0)
	if err != nil {
		return 0, err
	}

	archived := true
	var n int64
	for _, t := range expired {
		if _, err := s.tickets.UpdateFields(ctx, t.ID, domain.TicketPatch{Archived: &archived}); err != nil {
			s.metrics.RecordArchived(n)
			return n, err
		}
		n++
	}
	s.metrics.RecordArchived(n)
	if n > 0 {
		s.logger.Info("archived closed tickets", zap.Int64("count", n), zap.Time("cutoff", cutoff))
	}
	return n, nil
}
