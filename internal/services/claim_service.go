package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"invite-exchange/internal/models"
	"invite-exchange/internal/repository"
)

// ClaimService arbitrates concurrent claims on the shared pool.
//
// Each claim runs in one transaction: lock the code row (postgres) or
// rely on the single writer connection (sqlite), validate, insert the
// claim record, then decrement only while uses remain. The unique
// (user_id, code_id) index and the conditional decrement keep the pool
// consistent even if two transactions pass validation together.
type ClaimService struct {
	repo  *repository.Repository
	quota *QuotaService
	log   *zap.Logger
	now   func() time.Time
}

func NewClaimService(repo *repository.Repository, quota *QuotaService, log *zap.Logger) *ClaimService {
	return &ClaimService{
		repo:  repo,
		quota: quota,
		log:   log,
		now:   time.Now,
	}
}

// ClaimCode consumes one use of codeID on behalf of userID
func (s *ClaimService) ClaimCode(ctx context.Context, userID, codeID string) (*models.ClaimResult, error) {
	var result *models.ClaimResult

	err := s.repo.WithTransaction(ctx, func(tx *repository.Repository) error {
		code, err := tx.Codes.GetForUpdate(ctx, codeID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCodeNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to load code: %w", err)
		}

		// Self-claims are refused even once the code is exhausted.
		if code.CreatorID == userID {
			return ErrSelfClaim
		}
		if !code.IsActive() {
			return ErrCodeExhausted
		}

		now := s.now()
		today := s.quota.DateOf(now)
		if err := s.quota.checkClaim(ctx, tx, userID, today); err != nil {
			return err
		}

		claim := &models.Claim{
			UserID:    userID,
			CodeID:    codeID,
			ClaimedAt: float64(now.UnixNano()) / float64(time.Second),
			DateStr:   today,
		}
		if err := tx.Claims.Create(ctx, claim); err != nil {
			if errors.Is(err, repository.ErrUniqueViolation) {
				return ErrAlreadyClaimed
			}
			return fmt.Errorf("failed to record claim: %w", err)
		}

		ok, err := tx.Codes.DecrementIfPositive(ctx, codeID)
		if err != nil {
			return fmt.Errorf("failed to decrement code: %w", err)
		}
		if !ok {
			return ErrCodeExhausted
		}

		updated, err := tx.Codes.GetByID(ctx, codeID)
		if err != nil {
			return fmt.Errorf("failed to reload code: %w", err)
		}

		result = &models.ClaimResult{
			ID:            updated.ID,
			RemainingUses: updated.RemainingUses,
			IsOwn:         false,
			IsUsed:        true,
		}
		return nil
	})

	if err != nil {
		if isClaimRejection(err) {
			return nil, err
		}
		s.log.Error("Claim failed",
			zap.String("user_id", userID),
			zap.String("code_id", codeID),
			zap.Error(err),
		)
		return nil, ErrClaimSystemBusy
	}

	s.log.Debug("Code claimed",
		zap.String("user_id", userID),
		zap.String("code_id", codeID),
		zap.Int("remaining_uses", result.RemainingUses),
	)
	return result, nil
}
