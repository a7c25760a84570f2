package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Archiver archives closed tickets past their retention window.
type Archiver interface {
	ArchiveExpired(ctx context.Context) (int64, error)
}

// ArchiveScheduler runs the archiver on a cron schedule.
type ArchiveScheduler struct {
	cron     *cron.Cron
	archiver Archiver
	logger   *zap.Logger
	timeout  time.Duration
	wg       sync.WaitGroup
}

// NewArchiveScheduler parses spec (standard five-field cron syntax) and
// registers the job. It is not running until Start.
func NewArchiveScheduler(spec string, archiver Archiver, timeout time.Duration, logger *zap.Logger) (*ArchiveScheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	s := &ArchiveScheduler{
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		archiver: archiver,
		logger:   logger,
		timeout:  timeout,
	}
	if _, err := s.cron.AddFunc(spec, s.RunOnce); err != nil {
		return nil, fmt.Errorf("schedule archive job %q: %w", spec, err)
	}
	return s, nil
}

// RunOnce executes a single archive pass with the configured timeout.
func (s *ArchiveScheduler) RunOnce() {
	s.wg.Add(1)
	defer s.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	n, err := s.archiver.ArchiveExpired(ctx)
	if err != nil {
		s.logger.Error("archive job failed", zap.Duration("duration", time.Since(start)), zap.Error(err))
		return
	}
	s.logger.Info("archive job completed", zap.Int64("archived", n), zap.Duration("duration", time.Since(start)))
}

// Start begins executing the schedule.
func (s *ArchiveScheduler) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for a running pass to finish.
func (s *ArchiveScheduler) Stop() {
	<-s.cron.Stop().Done()
	s.wg.Wait()
}
