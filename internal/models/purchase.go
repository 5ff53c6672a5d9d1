// internal/models/purchase.go
package models

import "time"

// PendingPurchase is the ledger entry for one checkout attempt, keyed by the
// Stripe checkout-session id. It transitions pending -> completed exactly
// once; a completed entry with a license key is the idempotency guard against
// redelivered completion events. Entries are never deleted.
type PendingPurchase struct {
	SessionID   string         `json:"session_id" gorm:"primaryKey;size:255"`
	Username    string         `json:"username" gorm:"index;size:20;not null"`
	Email       string         `json:"email" gorm:"size:255"`
	Status      PurchaseStatus `json:"status" gorm:"type:varchar(20);default:'pending';index"`
	CouponCode  string         `json:"coupon_code,omitempty" gorm:"size:64"`
	LicenseKey  string         `json:"license_key,omitempty" gorm:"size:32"`
	Amount      float64        `json:"amount" gorm:"type:decimal(10,2)"`
	Currency    string         `json:"currency" gorm:"size:8"`
	CompletedAt *time.Time     `json:"completed_at"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}
