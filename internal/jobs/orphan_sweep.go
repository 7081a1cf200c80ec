package jobs

import (
	"context"
	"time"

	"constructerp/internal/logger"
	"constructerp/internal/models"

	"github.com/rs/zerolog"
)

// OrphanCleaner deletes child rows whose parent invoice type no longer owns their family.
type OrphanCleaner interface {
	DeleteOrphanedChildren(ctx context.Context) (map[models.ChildFamily]int64, error)
}

// OrphanSweeper removes child rows left behind when a type-change cleanup failed.
type OrphanSweeper struct {
	cleaner OrphanCleaner
	log     zerolog.Logger
}

func NewOrphanSweeper(cleaner OrphanCleaner) *OrphanSweeper {
	return &OrphanSweeper{cleaner: cleaner, log: logger.WithComponent("orphan_sweep")}
}

// Run sweeps every child family once and returns the per-family deleted counts.
// Families swept before a failure are still reported.
func (s *OrphanSweeper) Run(ctx context.Context) (map[models.ChildFamily]int64, error) {
	started := time.Now()
	deleted, err := s.cleaner.DeleteOrphanedChildren(ctx)

	var total int64
	event := zerolog.Dict()
	for _, family := range models.ChildFamilies {
		if n, ok := deleted[family]; ok {
			event.Int64(string(family), n)
			total += n
		}
	}

	if err != nil {
		s.log.Error().Err(err).Dict("deleted", event).Msg("orphaned child sweep failed")
		return deleted, err
	}

	s.log.Info().
		Dict("deleted", event).
		Int64("total", total).
		Dur("took", time.Since(started)).
		Msg("orphaned child sweep completed")
	return deleted, nil
}
