// internal/models/license.go
package models

import "time"

// License is the canonical registry entry for an issued license key. The key
// string is the primary lookup (unique index); username is a secondary index.
// PurchaseID carries the originating checkout-session id (or a spin prize
// reference) and is unique so that one purchase can never issue two keys.
type License struct {
	BaseModel
	Key             string     `json:"key" gorm:"uniqueIndex;size:32;not null"`
	Username        string     `json:"username" gorm:"index;size:20;not null"`
	Email           string     `json:"email" gorm:"size:255"`
	Active          bool       `json:"active" gorm:"default:true"`
	PurchaseID      string     `json:"purchase_id" gorm:"uniqueIndex;size:255;not null"`
	ProductID       string     `json:"product_id" gorm:"size:32"`
	ProductName     string     `json:"product_name" gorm:"size:255"`
	Amount          float64    `json:"amount" gorm:"type:decimal(10,2)"`
	Currency        string     `json:"currency" gorm:"size:8"`
	Notes           string     `json:"notes,omitempty" gorm:"type:text"`
	HWID            *string    `json:"hwid" gorm:"column:hwid;size:128"`
	LastActivated   *time.Time `json:"last_activated"`
	LastValidated   *time.Time `json:"last_validated"`
	ActivationCount int64      `json:"activation_count" gorm:"default:0"`
}
