package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"invite-exchange/internal/config"
	"invite-exchange/internal/models"
	"invite-exchange/internal/repository"
	"invite-exchange/internal/testutil"
)

func testPoolConfig() *config.PoolConfig {
	cfg := config.Default().Pool
	cfg.QuotaTimezone = "UTC"
	return &cfg
}

func newTestServices(t *testing.T, db *gorm.DB, clock *fakeClock) (*Services, *repository.Repository) {
	t.Helper()
	repo := repository.NewRepository(db)
	svc, err := New(repo, testPoolConfig(), zap.NewNop(), WithClock(clock.Now))
	if err != nil {
		t.Fatalf("failed to build services: %v", err)
	}
	return svc, repo
}

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)}
}

func codeContent(n int) string {
	return fmt.Sprintf("use my invite AB%04d join:/CODE%d", n, n)
}

func postCode(t *testing.T, svc *Services, userID, id string, n int) *models.CodeView {
	t.Helper()
	view, err := svc.Codes.CreateCode(context.Background(), userID, &models.CreateCodeRequest{ID: id, Content: codeContent(n)})
	if err != nil {
		t.Fatalf("create %s: %v", id, err)
	}
	return view
}

func TestClaimScenario(t *testing.T) {
	svc, _ := newTestServices(t, testutil.NewSQLiteDB(t), newClock())
	ctx := context.Background()

	view := postCode(t, svc, "alice", "c1", 1)
	if view.RemainingUses != 10 || !view.IsOwn || view.IsUsed {
		t.Fatalf("unexpected created view: %+v", view)
	}

	result, err := svc.Claims.ClaimCode(ctx, "bob", "c1")
	if err != nil {
		t.Fatalf("bob claim: %v", err)
	}
	if result.RemainingUses != 9 || result.IsOwn || !result.IsUsed {
		t.Errorf("unexpected claim result: %+v", result)
	}

	if _, err := svc.Claims.ClaimCode(ctx, "bob", "c1"); !errors.Is(err, ErrAlreadyClaimed) {
		t.Errorf("expected ErrAlreadyClaimed, got %v", err)
	}
	if _, err := svc.Claims.ClaimCode(ctx, "alice", "c1"); !errors.Is(err, ErrSelfClaim) {
		t.Errorf("expected ErrSelfClaim, got %v", err)
	}
	if _, err := svc.Claims.ClaimCode(ctx, "bob", "missing"); !errors.Is(err, ErrCodeNotFound) {
		t.Errorf("expected ErrCodeNotFound, got %v", err)
	}

	codes, err := svc.Codes.ListCodes(ctx, "bob")
	if err != nil {
		t.Fatalf("ListCodes: %v", err)
	}
	if len(codes) != 1 {
		t.Fatalf("expected 1 listed code, got %d", len(codes))
	}
	// Creation invalidated the cache, so this first read reflects the claim.
	if codes[0].RemainingUses != 9 || codes[0].IsOwn || !codes[0].IsUsed {
		t.Errorf("unexpected listing for bob: %+v", codes[0])
	}

	stats, err := svc.Quota.Stats(ctx, "bob")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	want := models.QuotaStats{TodayPostCount: 0, TodayClaimCount: 1, PostLimit: 5, ClaimLimit: 3}
	if *stats != want {
		t.Errorf("expected %+v, got %+v", want, *stats)
	}
}

func TestClaimCode_SelfClaimOnExhaustedCode(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	svc, _ := newTestServices(t, db, newClock())
	postCode(t, svc, "alice", "c1", 1)

	if err := db.Model(&models.Code{}).Where("id = ?", "c1").Update("remaining_uses", 0).Error; err != nil {
		t.Fatalf("exhaust: %v", err)
	}

	if _, err := svc.Claims.ClaimCode(context.Background(), "alice", "c1"); !errors.Is(err, ErrSelfClaim) {
		t.Errorf("expected ErrSelfClaim, got %v", err)
	}
	if _, err := svc.Claims.ClaimCode(context.Background(), "bob", "c1"); !errors.Is(err, ErrCodeExhausted) {
		t.Errorf("expected ErrCodeExhausted, got %v", err)
	}
}

func TestClaimCode_Quota(t *testing.T) {
	clock := newClock()
	svc, _ := newTestServices(t, testutil.NewSQLiteDB(t), clock)
	ctx := context.Background()

	for i := 1; i <= 4; i++ {
		postCode(t, svc, "alice", fmt.Sprintf("c%d", i), i)
	}
	for i := 1; i <= 3; i++ {
		if _, err := svc.Claims.ClaimCode(ctx, "bob", fmt.Sprintf("c%d", i)); err != nil {
			t.Fatalf("claim %d: %v", i, err)
		}
	}
	if _, err := svc.Claims.ClaimCode(ctx, "bob", "c4"); !errors.Is(err, ErrClaimQuotaExceeded) {
		t.Fatalf("expected ErrClaimQuotaExceeded, got %v", err)
	}

	// Quotas are bucketed per calendar day.
	clock.Advance(24 * time.Hour)
	if _, err := svc.Claims.ClaimCode(ctx, "bob", "c4"); err != nil {
		t.Errorf("expected claim on the next day to succeed, got %v", err)
	}
}

func TestCreateCode_Quota(t *testing.T) {
	clock := newClock()
	svc, _ := newTestServices(t, testutil.NewSQLiteDB(t), clock)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		postCode(t, svc, "alice", fmt.Sprintf("c%d", i), i)
	}
	_, err := svc.Codes.CreateCode(ctx, "alice", &models.CreateCodeRequest{ID: "c6", Content: codeContent(6)})
	if !errors.Is(err, ErrPostQuotaExceeded) {
		t.Fatalf("expected ErrPostQuotaExceeded, got %v", err)
	}

	// Another user is unaffected.
	postCode(t, svc, "bob", "b1", 7)

	clock.Advance(24 * time.Hour)
	postCode(t, svc, "alice", "c6", 6)
}

func TestCreateCode_Rejections(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	svc, _ := newTestServices(t, db, newClock())
	ctx := context.Background()
	postCode(t, svc, "alice", "c1", 1)

	tests := []struct {
		name    string
		userID  string
		req     models.CreateCodeRequest
		wantErr error
	}{
		{"invalid format", "bob", models.CreateCodeRequest{ID: "x1", Content: "no code here"}, ErrInvalidFormat},
		{"duplicate core code", "bob", models.CreateCodeRequest{ID: "x2", Content: "again " + codeContent(1)}, ErrDuplicateCoreCode},
		{"duplicate id", "bob", models.CreateCodeRequest{ID: "c1", Content: codeContent(2)}, ErrDuplicateID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			if _, err := svc.Codes.CreateCode(ctx, tt.userID, &req); !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	// Rejected posts do not count against the quota.
	count, err := svc.Quota.CountPosts(ctx, "bob", "2024-05-01")
	if err != nil || count != 0 {
		t.Errorf("expected 0 posts for bob, got (%d, %v)", count, err)
	}

	// An exhausted code frees its core code for republishing.
	if err := db.Model(&models.Code{}).Where("id = ?", "c1").Update("remaining_uses", 0).Error; err != nil {
		t.Fatalf("exhaust: %v", err)
	}
	postCode(t, svc, "bob", "c1-again", 1)
}

func TestListCodes_CacheAndInvalidation(t *testing.T) {
	clock := newClock()
	db := testutil.NewSQLiteDB(t)
	svc, _ := newTestServices(t, db, clock)
	ctx := context.Background()

	postCode(t, svc, "alice", "c1", 1)
	clock.Advance(time.Second)
	postCode(t, svc, "alice", "c2", 2)

	codes, err := svc.Codes.ListCodes(ctx, "alice")
	if err != nil {
		t.Fatalf("ListCodes: %v", err)
	}
	if len(codes) != 2 || codes[0].ID != "c1" || codes[1].ID != "c2" {
		t.Fatalf("expected [c1 c2] oldest first, got %+v", codes)
	}
	if !codes[0].IsOwn || codes[0].IsUsed {
		t.Errorf("expected own unused code, got %+v", codes[0])
	}
	if codes[1].CreatedAt-codes[0].CreatedAt != 1000 {
		t.Errorf("expected createdAt in milliseconds, got %d and %d", codes[0].CreatedAt, codes[1].CreatedAt)
	}

	// Claims do not invalidate: the shared counter is stale within the TTL,
	// but personalization is computed on every read.
	if _, err := svc.Claims.ClaimCode(ctx, "bob", "c1"); err != nil {
		t.Fatalf("claim: %v", err)
	}
	codes, _ = svc.Codes.ListCodes(ctx, "bob")
	if codes[0].RemainingUses != 10 {
		t.Errorf("expected cached remaining 10, got %d", codes[0].RemainingUses)
	}
	if !codes[0].IsUsed || codes[0].IsOwn {
		t.Errorf("expected fresh personalization, got %+v", codes[0])
	}

	clock.Advance(3 * time.Second)
	codes, _ = svc.Codes.ListCodes(ctx, "bob")
	if codes[0].RemainingUses != 9 {
		t.Errorf("expected refreshed remaining 9, got %d", codes[0].RemainingUses)
	}

	// Creation invalidates immediately.
	postCode(t, svc, "carol", "c3", 3)
	codes, _ = svc.Codes.ListCodes(ctx, "bob")
	if len(codes) != 3 || codes[2].ID != "c3" {
		t.Errorf("expected new code visible immediately, got %+v", codes)
	}
}

func TestListCodes_Empty(t *testing.T) {
	svc, _ := newTestServices(t, testutil.NewSQLiteDB(t), newClock())

	codes, err := svc.Codes.ListCodes(context.Background(), "bob")
	if err != nil {
		t.Fatalf("ListCodes: %v", err)
	}
	if codes == nil || len(codes) != 0 {
		t.Errorf("expected empty non-nil list, got %v", codes)
	}
}

func TestClaimCode_ConcurrentDistinctClaimants(t *testing.T) {
	svc, repo := newTestServices(t, testutil.NewSQLiteDB(t), newClock())
	postCode(t, svc, "alice", "c1", 1)
	assertConcurrentDistinctClaimants(t, svc, repo, "c1", 10, 25)
}

func TestClaimCode_ConcurrentSameUser(t *testing.T) {
	svc, repo := newTestServices(t, testutil.NewSQLiteDB(t), newClock())
	postCode(t, svc, "alice", "c1", 1)
	assertConcurrentSameUser(t, svc, repo, "c1", 8)
}

func assertConcurrentDistinctClaimants(t *testing.T, svc *Services, repo *repository.Repository, codeID string, uses, claimants int) {
	t.Helper()
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, claimants)
	for i := 0; i < claimants; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Claims.ClaimCode(ctx, fmt.Sprintf("user-%d", i), codeID)
		}(i)
	}
	wg.Wait()

	succeeded, exhausted := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrCodeExhausted):
			exhausted++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if succeeded != uses || exhausted != claimants-uses {
		t.Errorf("expected %d successes and %d exhausted, got %d and %d", uses, claimants-uses, succeeded, exhausted)
	}

	code, err := repo.Codes.GetByID(ctx, codeID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if code.RemainingUses != 0 {
		t.Errorf("expected 0 remaining, got %d", code.RemainingUses)
	}
}

func assertConcurrentSameUser(t *testing.T, svc *Services, repo *repository.Repository, codeID string, attempts int) {
	t.Helper()
	ctx := context.Background()

	before, err := repo.Codes.GetByID(ctx, codeID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}

	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Claims.ClaimCode(ctx, "bob", codeID)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrAlreadyClaimed):
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Errorf("expected exactly one success, got %d", succeeded)
	}

	after, err := repo.Codes.GetByID(ctx, codeID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if before.RemainingUses-after.RemainingUses != 1 {
		t.Errorf("expected a single decrement, went from %d to %d", before.RemainingUses, after.RemainingUses)
	}
}

func TestClaimCode_StorageFailureIsBusy(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	svc, repo := newTestServices(t, db, newClock())
	ctx := context.Background()
	postCode(t, svc, "alice", "c1", 1)

	err := db.Callback().Create().Before("gorm:create").Register("test:fail_claims", func(tx *gorm.DB) {
		if tx.Statement.Table == "claims" {
			tx.AddError(errors.New("disk I/O error"))
		}
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}

	if _, err := svc.Claims.ClaimCode(ctx, "bob", "c1"); !errors.Is(err, ErrClaimSystemBusy) {
		t.Fatalf("expected ErrClaimSystemBusy, got %v", err)
	}

	code, err := repo.Codes.GetByID(ctx, "c1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if code.RemainingUses != 10 {
		t.Errorf("expected no decrement after failure, got %d", code.RemainingUses)
	}
}

func TestPoolStats_Summary(t *testing.T) {
	svc, _ := newTestServices(t, testutil.NewSQLiteDB(t), newClock())
	ctx := context.Background()

	postCode(t, svc, "alice", "c1", 1)
	postCode(t, svc, "alice", "c2", 2)
	if _, err := svc.Claims.ClaimCode(ctx, "bob", "c1"); err != nil {
		t.Fatalf("claim: %v", err)
	}

	summary, err := svc.Pool.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	want := models.PoolSummary{ActiveCodes: 2, RemainingUses: 19, ClaimsToday: 1, CodesPostedToday: 2}
	if *summary != want {
		t.Errorf("expected %+v, got %+v", want, *summary)
	}
}

func TestQuotaService_DateOfUsesLocation(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	q := NewQuotaService(nil, 5, 3, tokyo)

	// 20:00 UTC is already the next day in Tokyo.
	got := q.DateOf(time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC))
	if got != "2024-05-02" {
		t.Errorf("expected 2024-05-02, got %s", got)
	}
}
