package reports

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const (
	summaryCacheKey = "reports:summary"
	summaryCacheTTL = 5 * time.Minute
)

// Service assembles dashboard summaries with a short lived Redis cache.
// Aggregates hit four tables, so repeated dashboard loads go through the
// cache and concurrent misses collapse into one query pass.
type Service struct {
	repo   RepositoryPort
	rdb    *redis.Client
	logger *slog.Logger
	group  singleflight.Group
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, rdb *redis.Client, logger *slog.Logger) *Service {
	return &Service{repo: repo, rdb: rdb, logger: logger}
}

// Summary returns the current aggregate counts, served from cache when fresh.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	if s.rdb != nil {
		raw, err := s.rdb.Get(ctx, summaryCacheKey).Bytes()
		if err == nil {
			var cached Summary
			if jsonErr := json.Unmarshal(raw, &cached); jsonErr == nil {
				return cached, nil
			}
		}
	}
	v, err, _ := s.group.Do(summaryCacheKey, func() (any, error) {
		return s.build(ctx)
	})
	if err != nil {
		return Summary{}, err
	}
	return v.(Summary), nil
}

// Refresh rebuilds the summary and rewrites the cache. The background
// worker calls this so dashboards rarely pay for a cold build.
func (s *Service) Refresh(ctx context.Context) (Summary, error) {
	return s.build(ctx)
}

func (s *Service) build(ctx context.Context) (Summary, error) {
	assets, err := s.repo.AssetCountsByStatus(ctx)
	if err != nil {
		return Summary{}, err
	}
	tickets, err := s.repo.TicketCountsByStatus(ctx)
	if err != nil {
		return Summary{}, err
	}
	repairs, err := s.repo.OpenRepairCount(ctx)
	if err != nil {
		return Summary{}, err
	}
	issuances, err := s.repo.ActiveIssuanceCount(ctx)
	if err != nil {
		return Summary{}, err
	}
	summary := Summary{
		AssetsByStatus:  assets,
		TicketsByStatus: tickets,
		OpenRepairs:     repairs,
		ActiveIssuances: issuances,
		GeneratedAt:     time.Now().UTC(),
	}
	s.cache(ctx, summary)
	return summary, nil
}

func (s *Service) cache(ctx context.Context, summary Summary) {
	if s.rdb == nil {
		return
	}
	raw, err := json.Marshal(summary)
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, summaryCacheKey, raw, summaryCacheTTL).Err(); err != nil && s.logger != nil {
		s.logger.Warn("cache report summary", slog.Any("error", err))
	}
}
