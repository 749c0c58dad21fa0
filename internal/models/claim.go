package models

// Claim records one user consuming one use of one code. A user may hold at
// most one claim per code, enforced by uq_user_code_claim.
type Claim struct {
	ID        uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    string  `gorm:"size:128;not null;index;uniqueIndex:uq_user_code_claim,priority:1;index:idx_user_date,priority:1" json:"user_id"`
	CodeID    string  `gorm:"size:128;not null;index;uniqueIndex:uq_user_code_claim,priority:2" json:"code_id"`
	ClaimedAt float64 `gorm:"not null" json:"claimed_at"` // seconds since epoch
	DateStr   string  `gorm:"size:10;not null;index;index:idx_user_date,priority:2" json:"date_str"`
}

// TableName specifies the table name for Claim model
func (Claim) TableName() string {
	return "claims"
}
