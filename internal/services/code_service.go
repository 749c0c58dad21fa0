package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"invite-exchange/internal/models"
	"invite-exchange/internal/repository"
)

// CodeService publishes codes and serves the personalised listing
type CodeService struct {
	repo        *repository.Repository
	quota       *QuotaService
	cache       *ListCache
	initialUses int
	log         *zap.Logger
	now         func() time.Time
}

func NewCodeService(
	repo *repository.Repository,
	quota *QuotaService,
	cache *ListCache,
	initialUses int,
	log *zap.Logger,
) *CodeService {
	return &CodeService{
		repo:        repo,
		quota:       quota,
		cache:       cache,
		initialUses: initialUses,
		log:         log,
		now:         time.Now,
	}
}

// ActiveListLoader builds the shared listing from the newest `limit` active codes
func ActiveListLoader(repo *repository.Repository, limit int) ListLoader {
	return func(ctx context.Context) ([]CachedCode, error) {
		codes, err := repo.Codes.ListActive(ctx, limit)
		if err != nil {
			return nil, fmt.Errorf("failed to list active codes: %w", err)
		}

		listing := make([]CachedCode, 0, len(codes))
		for i := range codes {
			listing = append(listing, CachedCode{
				ID:            codes[i].ID,
				Content:       codes[i].Content,
				RemainingUses: codes[i].RemainingUses,
				CreatedAt:     codes[i].CreatedAtMillis(),
				CreatorID:     codes[i].CreatorID,
			})
		}
		return listing, nil
	}
}

// ListCodes returns the active listing with isOwn/isUsed computed for userID.
// Only the shared listing is cached; the caller's claims are read every time.
func (s *CodeService) ListCodes(ctx context.Context, userID string) ([]models.CodeView, error) {
	listing, err := s.cache.Get(ctx)
	if err != nil {
		return nil, err
	}

	views := make([]models.CodeView, 0, len(listing))
	if len(listing) == 0 {
		return views, nil
	}

	ids := make([]string, len(listing))
	for i := range listing {
		ids[i] = listing[i].ID
	}
	claimed, err := s.repo.Claims.ClaimedCodeIDs(ctx, userID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load user claims: %w", err)
	}

	for _, c := range listing {
		_, used := claimed[c.ID]
		views = append(views, models.CodeView{
			ID:            c.ID,
			Content:       c.Content,
			RemainingUses: c.RemainingUses,
			CreatedAt:     c.CreatedAt,
			IsOwn:         c.CreatorID == userID,
			IsUsed:        used,
		})
	}
	return views, nil
}

// CreateCode publishes a new code for userID
func (s *CodeService) CreateCode(ctx context.Context, userID string, req *models.CreateCodeRequest) (*models.CodeView, error) {
	coreCode, err := ExtractCoreCode(req.Content)
	if err != nil {
		return nil, err
	}

	now := s.now()
	code := &models.Code{
		ID:            req.ID,
		Content:       req.Content,
		CoreCode:      coreCode,
		CreatorID:     userID,
		RemainingUses: s.initialUses,
		CreatedAt:     float64(now.UnixNano()) / float64(time.Second),
		DateStr:       s.quota.DateOf(now),
	}

	err = s.repo.WithTransaction(ctx, func(tx *repository.Repository) error {
		if err := s.quota.checkPost(ctx, tx, userID, code.DateStr); err != nil {
			return err
		}

		exists, err := tx.Codes.ExistsActiveCoreCode(ctx, coreCode)
		if err != nil {
			return fmt.Errorf("failed to check core code: %w", err)
		}
		if exists {
			return ErrDuplicateCoreCode
		}

		return tx.Codes.Create(ctx, code)
	})
	if errors.Is(err, repository.ErrUniqueViolation) {
		return nil, s.classifyDuplicate(ctx, req.ID)
	}
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate()

	s.log.Info("Code created",
		zap.String("code_id", code.ID),
		zap.String("creator_id", userID),
		zap.String("date", code.DateStr),
	)

	return &models.CodeView{
		ID:            code.ID,
		Content:       code.Content,
		RemainingUses: code.RemainingUses,
		CreatedAt:     code.CreatedAtMillis(),
		IsOwn:         true,
		IsUsed:        false,
	}, nil
}

// classifyDuplicate decides which constraint a racing insert lost on. The
// transaction is closed by now, so the lookup sees the winner's row.
func (s *CodeService) classifyDuplicate(ctx context.Context, id string) error {
	exists, err := s.repo.Codes.ExistsByID(ctx, id)
	if err != nil {
		s.log.Warn("Failed to classify duplicate code", zap.String("code_id", id), zap.Error(err))
		return ErrDuplicateCoreCode
	}
	if exists {
		return ErrDuplicateID
	}
	return ErrDuplicateCoreCode
}
