package services

import (
	"context"
	"fmt"

	"invite-exchange/internal/models"
	"invite-exchange/internal/repository"
)

// PoolStatsService summarises the pool for operators
type PoolStatsService struct {
	repo  *repository.Repository
	quota *QuotaService
}

func NewPoolStatsService(repo *repository.Repository, quota *QuotaService) *PoolStatsService {
	return &PoolStatsService{repo: repo, quota: quota}
}

// Summary returns pool totals for the current quota day
func (s *PoolStatsService) Summary(ctx context.Context) (*models.PoolSummary, error) {
	today := s.quota.Today()

	codes, uses, err := s.repo.Codes.ActiveTotals(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load active totals: %w", err)
	}
	claims, err := s.repo.Claims.CountByDate(ctx, today)
	if err != nil {
		return nil, fmt.Errorf("failed to count claims: %w", err)
	}
	posted, err := s.repo.Codes.CountByDate(ctx, today)
	if err != nil {
		return nil, fmt.Errorf("failed to count posted codes: %w", err)
	}

	return &models.PoolSummary{
		ActiveCodes:      codes,
		RemainingUses:    uses,
		ClaimsToday:      claims,
		CodesPostedToday: posted,
	}, nil
}
