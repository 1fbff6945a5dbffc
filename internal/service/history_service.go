package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmehra2102/prod-golang-projects/medscan/internal/config"
	"github.com/dmehra2102/prod-golang-projects/medscan/internal/domain/scan"
	"go.uber.org/zap"
)

type HistoryService struct {
	repo scan.Repository
	cfg  config.HistoryConfig
	log  *zap.Logger
	now  func() time.Time
}

func NewHistoryService(repo scan.Repository, cfg config.HistoryConfig, log *zap.Logger) *HistoryService {
	return &HistoryService{repo: repo, cfg: cfg, log: log, now: time.Now}
}

// ListByActor returns the transitions actor performed, newest first.
// A non-positive limit selects the default; larger ones are clamped.
func (s *HistoryService) ListByActor(ctx context.Context, actor string, limit int) ([]scan.HistoryEntry, error) {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return nil, &ValidationError{Fields: []string{"user is required"}}
	}

	switch {
	case limit <= 0:
		limit = s.cfg.DefaultLimit
	case limit > s.cfg.MaxLimit:
		limit = s.cfg.MaxLimit
	}

	ctx, span := tracer.Start(ctx, "HistoryService.ListByActor")
	defer span.End()

	records, err := s.repo.ListByActor(ctx, actor, limit)
	if err != nil {
		return nil, fmt.Errorf("listing history: %w", err)
	}

	entries, skipped := scan.HistoryFor(records, actor, s.now())
	for _, code := range skipped {
		s.log.Warn("unable to decode legacy dispensing time", zap.String("code", code))
	}

	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}
