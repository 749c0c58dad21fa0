package services

import (
	"context"
	"fmt"
	"time"

	"invite-exchange/internal/models"
	"invite-exchange/internal/repository"
)

const dateLayout = "2006-01-02"

// QuotaService counts today's posts and claims per user
type QuotaService struct {
	repo       *repository.Repository
	postLimit  int
	claimLimit int
	loc        *time.Location
	now        func() time.Time
}

func NewQuotaService(repo *repository.Repository, postLimit, claimLimit int, loc *time.Location) *QuotaService {
	if loc == nil {
		loc = time.Local
	}
	return &QuotaService{
		repo:       repo,
		postLimit:  postLimit,
		claimLimit: claimLimit,
		loc:        loc,
		now:        time.Now,
	}
}

// DateOf returns the quota bucket (YYYY-MM-DD) for t
func (s *QuotaService) DateOf(t time.Time) string {
	return t.In(s.loc).Format(dateLayout)
}

// Today returns the current quota bucket
func (s *QuotaService) Today() string {
	return s.DateOf(s.now())
}

// CountPosts returns how many codes the user posted on date
func (s *QuotaService) CountPosts(ctx context.Context, userID, date string) (int, error) {
	return s.countPosts(ctx, s.repo, userID, date)
}

// CountClaims returns how many codes the user claimed on date
func (s *QuotaService) CountClaims(ctx context.Context, userID, date string) (int, error) {
	return s.countClaims(ctx, s.repo, userID, date)
}

// Stats returns today's counts for the user alongside the configured limits
func (s *QuotaService) Stats(ctx context.Context, userID string) (*models.QuotaStats, error) {
	today := s.Today()

	posts, err := s.CountPosts(ctx, userID, today)
	if err != nil {
		return nil, err
	}
	claims, err := s.CountClaims(ctx, userID, today)
	if err != nil {
		return nil, err
	}

	return &models.QuotaStats{
		TodayPostCount:  posts,
		TodayClaimCount: claims,
		PostLimit:       s.postLimit,
		ClaimLimit:      s.claimLimit,
	}, nil
}

// checkPost fails with ErrPostQuotaExceeded once the user reached the daily post limit
func (s *QuotaService) checkPost(ctx context.Context, repo *repository.Repository, userID, date string) error {
	posts, err := s.countPosts(ctx, repo, userID, date)
	if err != nil {
		return err
	}
	if posts >= s.postLimit {
		return fmt.Errorf("%w (%d per day)", ErrPostQuotaExceeded, s.postLimit)
	}
	return nil
}

// checkClaim fails with ErrClaimQuotaExceeded once the user reached the daily claim limit
func (s *QuotaService) checkClaim(ctx context.Context, repo *repository.Repository, userID, date string) error {
	claims, err := s.countClaims(ctx, repo, userID, date)
	if err != nil {
		return err
	}
	if claims >= s.claimLimit {
		return fmt.Errorf("%w (%d per day)", ErrClaimQuotaExceeded, s.claimLimit)
	}
	return nil
}

func (s *QuotaService) countPosts(ctx context.Context, repo *repository.Repository, userID, date string) (int, error) {
	n, err := repo.Codes.CountByCreatorAndDate(ctx, userID, date)
	if err != nil {
		return 0, fmt.Errorf("failed to count posts: %w", err)
	}
	return int(n), nil
}

func (s *QuotaService) countClaims(ctx context.Context, repo *repository.Repository, userID, date string) (int, error) {
	n, err := repo.Claims.CountByUserAndDate(ctx, userID, date)
	if err != nil {
		return 0, fmt.Errorf("failed to count claims: %w", err)
	}
	return int(n), nil
}
