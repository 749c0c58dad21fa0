package repository

import (
	"context"
	"fmt"
	"sort"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"invite-exchange/internal/database"
	"invite-exchange/internal/models"
)

type CodeRepository struct {
	db *gorm.DB
}

// Create inserts a new code
func (r *CodeRepository) Create(ctx context.Context, code *models.Code) error {
	err := r.db.WithContext(ctx).Create(code).Error
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %v", ErrUniqueViolation, err)
	}
	return err
}

// GetByID retrieves a code by ID
func (r *CodeRepository) GetByID(ctx context.Context, id string) (*models.Code, error) {
	var code models.Code
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&code).Error
	if err != nil {
		return nil, err
	}
	return &code, nil
}

// GetForUpdate retrieves a code by ID with SELECT ... FOR UPDATE where the
// backend supports row locks. Must be called inside WithTransaction.
func (r *CodeRepository) GetForUpdate(ctx context.Context, id string) (*models.Code, error) {
	query := r.db.WithContext(ctx)
	if database.SupportsRowLocking(r.db) {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var code models.Code
	if err := query.Where("id = ?", id).First(&code).Error; err != nil {
		return nil, err
	}
	return &code, nil
}

// ExistsByID reports whether a code with this ID was ever created
func (r *CodeRepository) ExistsByID(ctx context.Context, id string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Code{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// ExistsActiveCoreCode reports whether a claimable code with this core code exists
func (r *CodeRepository) ExistsActiveCoreCode(ctx context.Context, coreCode string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Code{}).
		Where("core_code = ? AND remaining_uses > 0", coreCode).
		Count(&count).Error
	return count > 0, err
}

// ListActive returns the newest `limit` claimable codes, ordered oldest first
func (r *CodeRepository) ListActive(ctx context.Context, limit int) ([]models.Code, error) {
	var codes []models.Code
	err := r.db.WithContext(ctx).
		Where("remaining_uses > 0").
		Order("created_at DESC").
		Limit(limit).
		Find(&codes).Error
	if err != nil {
		return nil, err
	}

	sort.SliceStable(codes, func(i, j int) bool {
		return codes[i].CreatedAt < codes[j].CreatedAt
	})
	return codes, nil
}

// DecrementIfPositive takes one use from the code in a single conditional
// UPDATE. It reports false when the code was already exhausted or missing.
func (r *CodeRepository) DecrementIfPositive(ctx context.Context, id string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Code{}).
		Where("id = ? AND remaining_uses > 0", id).
		UpdateColumn("remaining_uses", gorm.Expr("remaining_uses - 1"))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// CountByCreatorAndDate counts the codes a user posted on the given day
func (r *CodeRepository) CountByCreatorAndDate(ctx context.Context, creatorID, date string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Code{}).
		Where("creator_id = ? AND date_str = ?", creatorID, date).
		Count(&count).Error
	return count, err
}

// CountByDate counts all codes posted on the given day
func (r *CodeRepository) CountByDate(ctx context.Context, date string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Code{}).Where("date_str = ?", date).Count(&count).Error
	return count, err
}

// ActiveTotals returns the number of claimable codes and their summed remaining uses
func (r *CodeRepository) ActiveTotals(ctx context.Context) (codes int64, uses int64, err error) {
	var row struct {
		Codes int64
		Uses  int64
	}
	err = r.db.WithContext(ctx).
		Model(&models.Code{}).
		Select("COUNT(*) AS codes, COALESCE(SUM(remaining_uses), 0) AS uses").
		Where("remaining_uses > 0").
		Scan(&row).Error
	return row.Codes, row.Uses, err
}
