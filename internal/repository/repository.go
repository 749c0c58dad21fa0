package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"invite-exchange/internal/database"
)

// ErrUniqueViolation is returned when an insert hits a primary key or
// unique index, whatever the backend.
var ErrUniqueViolation = errors.New("unique constraint violation")

// Repository bundles the code and claim stores bound to one connection or
// one open transaction.
type Repository struct {
	db     *gorm.DB
	Codes  *CodeRepository
	Claims *ClaimRepository
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:     db,
		Codes:  &CodeRepository{db: db},
		Claims: &ClaimRepository{db: db},
	}
}

// SupportsRowLocking reports whether CodeRepository.GetForUpdate takes a
// real row lock. When false, claim correctness rests on the conditional
// decrement and the uq_user_code_claim index.
func (r *Repository) SupportsRowLocking() bool {
	return database.SupportsRowLocking(r.db)
}

// WithTransaction runs fn as one unit of work. The transaction commits if
// fn returns nil and rolls back on any error or panic.
func (r *Repository) WithTransaction(ctx context.Context, fn func(tx *Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepository(tx))
	})
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
