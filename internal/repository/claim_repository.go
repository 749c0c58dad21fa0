package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"invite-exchange/internal/models"
)

type ClaimRepository struct {
	db *gorm.DB
}

// Create inserts a claim. A second claim by the same user on the same code
// fails with ErrUniqueViolation.
func (r *ClaimRepository) Create(ctx context.Context, claim *models.Claim) error {
	err := r.db.WithContext(ctx).Create(claim).Error
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %v", ErrUniqueViolation, err)
	}
	return err
}

// CountByUserAndDate counts the claims a user made on the given day
func (r *ClaimRepository) CountByUserAndDate(ctx context.Context, userID, date string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Claim{}).
		Where("user_id = ? AND date_str = ?", userID, date).
		Count(&count).Error
	return count, err
}

// CountByDate counts all claims made on the given day
func (r *ClaimRepository) CountByDate(ctx context.Context, date string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Claim{}).Where("date_str = ?", date).Count(&count).Error
	return count, err
}

// ClaimedCodeIDs returns the subset of codeIDs the user has claimed
func (r *ClaimRepository) ClaimedCodeIDs(ctx context.Context, userID string, codeIDs []string) (map[string]struct{}, error) {
	claimed := make(map[string]struct{})
	if len(codeIDs) == 0 {
		return claimed, nil
	}

	var ids []string
	err := r.db.WithContext(ctx).
		Model(&models.Claim{}).
		Where("user_id = ? AND code_id IN ?", userID, codeIDs).
		Pluck("code_id", &ids).Error
	if err != nil {
		return nil, err
	}

	for _, id := range ids {
		claimed[id] = struct{}{}
	}
	return claimed, nil
}
