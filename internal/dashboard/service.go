package dashboard

import (
	"context"
	"log/slog"
	"time"
)

// Service serves cached dashboard stats.
type Service struct {
	repo   Repository
	cache  *Cache
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs a Service. cache may be nil.
func NewService(repo Repository, cache *Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: cache, logger: logger, now: time.Now}
}

// Stats returns the user's stats, computing them on a cache miss. A Redis
// failure falls back to the database.
func (s *Service) Stats(ctx context.Context, userID int64) (Stats, error) {
	load := func(ctx context.Context) (any, error) {
		stats, err := s.repo.Stats(ctx, userID)
		if err != nil {
			return nil, err
		}
		stats.GeneratedAt = s.now().UTC()
		return stats, nil
	}

	key, err := s.cache.BuildKey(ctx, userID)
	if err != nil {
		s.logger.Warn("dashboard cache unavailable", slog.Int64("user_id", userID), slog.Any("error", err))
		return s.direct(ctx, load)
	}
	var stats Stats
	if err := s.cache.FetchJSON(ctx, key, &stats, load); err != nil {
		if ctx.Err() != nil {
			return Stats{}, ctx.Err()
		}
		return Stats{}, err
	}
	return stats, nil
}

// Bump invalidates the user's cached stats.
func (s *Service) Bump(ctx context.Context, userID int64) error {
	return s.cache.Bump(ctx, userID)
}

func (s *Service) direct(ctx context.Context, load func(context.Context) (any, error)) (Stats, error) {
	v, err := load(ctx)
	if err != nil {
		return Stats{}, err
	}
	return v.(Stats), nil
}
