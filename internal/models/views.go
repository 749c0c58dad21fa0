package models

// CodeView is a code as presented to one caller
type CodeView struct {
	ID            string `json:"id"`
	Content       string `json:"content"`
	RemainingUses int    `json:"remainingUses"`
	CreatedAt     int64  `json:"createdAt"` // milliseconds since epoch
	IsOwn         bool   `json:"isOwn"`
	IsUsed        bool   `json:"isUsed"`
}

// ClaimResult is returned after a successful claim
type ClaimResult struct {
	ID            string `json:"id"`
	RemainingUses int    `json:"remainingUses"`
	IsOwn         bool   `json:"isOwn"`
	IsUsed        bool   `json:"isUsed"`
}

// QuotaStats holds today's usage for a caller together with the limits
type QuotaStats struct {
	TodayPostCount  int `json:"todayPostCount"`
	TodayClaimCount int `json:"todayClaimCount"`
	PostLimit       int `json:"postLimit"`
	ClaimLimit      int `json:"claimLimit"`
}

// PoolSummary aggregates the state of the whole code pool
type PoolSummary struct {
	ActiveCodes      int64 `json:"active_codes"`
	RemainingUses    int64 `json:"remaining_uses"`
	ClaimsToday      int64 `json:"claims_today"`
	CodesPostedToday int64 `json:"codes_posted_today"`
}

// CreateCodeRequest represents a request to publish a code. Content is not
// validated at bind time; ExtractCoreCode decides whether it is usable.
type CreateCodeRequest struct {
	ID      string `json:"id" binding:"required,max=128"`
	Content string `json:"content"`
}
