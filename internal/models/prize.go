// internal/models/prize.go
package models

import "time"

// WheelSpin marks an identity as having used its one-time draw. The row is
// primary-keyed by username and created with an insert-if-absent, which makes
// the create itself the eligibility gate under concurrent requests.
type WheelSpin struct {
	Username     string     `json:"username" gorm:"primaryKey;size:20"`
	HasSpun      bool       `json:"has_spun" gorm:"default:true"`
	LastSpinTime *time.Time `json:"last_spin_time"`
	TotalSpins   int        `json:"total_spins" gorm:"default:0"`
	LastPrize    PrizeType  `json:"last_prize" gorm:"type:varchar(20)"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Prize is a won-but-possibly-unredeemed draw outcome, keyed by
// "<username>_<unix millis>". The coupon code (or free-license key) is only
// materialized on demand, not at draw time.
type Prize struct {
	ID           string     `json:"id" gorm:"primaryKey;size:64"`
	Username     string     `json:"username" gorm:"index;size:20;not null"`
	PrizeType    PrizeType  `json:"prize_type" gorm:"type:varchar(20);not null"`
	PrizeValue   int        `json:"prize_value"`
	WonAt        time.Time  `json:"won_at"`
	Redeemed     bool       `json:"redeemed" gorm:"default:false;index"`
	RedeemedAt   *time.Time `json:"redeemed_at"`
	CouponCode   string     `json:"coupon_code,omitempty" gorm:"size:64"`
	LicenseKey   string     `json:"license_key,omitempty" gorm:"size:32"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
