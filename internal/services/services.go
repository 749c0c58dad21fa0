package services

import (
	"time"

	"go.uber.org/zap"

	"invite-exchange/internal/config"
	"invite-exchange/internal/repository"
)

// Services wires the domain services over one repository
type Services struct {
	Quota  *QuotaService
	Cache  *ListCache
	Codes  *CodeService
	Claims *ClaimService
	Pool   *PoolStatsService
}

// Option customises Services construction
type Option func(*Services)

// WithClock replaces the wall clock used for quota days, timestamps and the
// cache TTL
func WithClock(now func() time.Time) Option {
	return func(s *Services) {
		s.Quota.now = now
		s.Cache.now = now
		s.Codes.now = now
		s.Claims.now = now
	}
}

func New(repo *repository.Repository, cfg *config.PoolConfig, log *zap.Logger, opts ...Option) (*Services, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	quota := NewQuotaService(repo, cfg.DailyPostLimit, cfg.DailyClaimLimit, loc)
	cache := NewListCache(cfg.ListCacheTTL, ActiveListLoader(repo, cfg.MaxListLimit))

	s := &Services{
		Quota:  quota,
		Cache:  cache,
		Codes:  NewCodeService(repo, quota, cache, cfg.InitialUses, log),
		Claims: NewClaimService(repo, quota, log),
		Pool:   NewPoolStatsService(repo, quota),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}
