package models

import "math"

// Code is an invitation code published by a user. RemainingUses only ever
// goes down, one step per distinct claimant.
type Code struct {
	ID            string  `gorm:"primaryKey;size:128" json:"id"`
	Content       string  `gorm:"type:text;not null" json:"content"`
	CoreCode      string  `gorm:"size:255;not null;index" json:"core_code"`
	CreatorID     string  `gorm:"size:128;not null;index;index:idx_creator_date,priority:1" json:"creator_id"`
	RemainingUses int     `gorm:"not null;check:chk_codes_remaining_uses,remaining_uses >= 0" json:"remaining_uses"`
	CreatedAt     float64 `gorm:"not null;index;autoCreateTime:false" json:"created_at"` // seconds since epoch
	DateStr       string  `gorm:"size:10;not null;index;index:idx_creator_date,priority:2" json:"date_str"`
}

// TableName specifies the table name for Code model
func (Code) TableName() string {
	return "codes"
}

// IsActive reports whether the code can still be claimed
func (c *Code) IsActive() bool {
	return c.RemainingUses > 0
}

// CreatedAtMillis converts the stored seconds timestamp for API responses
func (c *Code) CreatedAtMillis() int64 {
	return SecondsToMillis(c.CreatedAt)
}

// SecondsToMillis converts stored seconds to the milliseconds used by the API
func SecondsToMillis(sec float64) int64 {
	return int64(math.Round(sec * 1000))
}
