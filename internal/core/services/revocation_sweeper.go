package services

import (
	"context"
	"time"

	"salesforge-api/internal/pkg/metrics"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// RevocationSweeper periodically drops expired entries from a RevocationSet
type RevocationSweeper struct {
	set  RevocationSet
	cron *cron.Cron
	spec string
	log  *zap.Logger
}

// NewRevocationSweeper creates a sweeper running on the given cron spec, e.g. "@every 10m"
func NewRevocationSweeper(set RevocationSet, spec string, log *zap.Logger) *RevocationSweeper {
	return &RevocationSweeper{
		set:  set,
		cron: cron.New(),
		spec: spec,
		log:  log,
	}
}

// Start schedules the sweep job
func (s *RevocationSweeper) Start() error {
	if _, err := s.cron.AddFunc(s.spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		s.SweepOnce(ctx)
	}); err != nil {
		return err
	}
	s.cron.Start()
	s.log.Info("Revocation sweeper started", zap.String("schedule", s.spec))
	return nil
}

// SweepOnce runs a single sweep and returns how many entries were removed
func (s *RevocationSweeper) SweepOnce(ctx context.Context) int {
	removed, err := s.set.Sweep(ctx)
	if err != nil {
		s.log.Warn("Revocation sweep failed", zap.Error(err))
		return 0
	}
	if removed > 0 {
		metrics.RecordSweep(removed)
		s.log.Debug("Revocation sweep", zap.Int("removed", removed))
	}
	return removed
}

// Stop waits for a running sweep to finish or ctx to end
func (s *RevocationSweeper) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}
