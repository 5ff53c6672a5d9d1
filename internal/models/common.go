// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// JSONB type for PostgreSQL
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, j)
	case string:
		return json.Unmarshal([]byte(v), j)
	default:
		return fmt.Errorf("unsupported type for JSONB: %T", value)
	}
}

// Enums
type AccountType string

const (
	AccountTypeFree    AccountType = "free"
	AccountTypePremium AccountType = "premium"
)

type PurchaseStatus string

const (
	PurchaseStatusPending   PurchaseStatus = "pending"
	PurchaseStatusCompleted PurchaseStatus = "completed"
)

type LicenseRecordStatus string

const (
	LicenseRecordStatusActive   LicenseRecordStatus = "active"
	LicenseRecordStatusInactive LicenseRecordStatus = "inactive"
)

type PrizeType string

const (
	PrizeTypeFreeLicense PrizeType = "freeLicense"
	PrizeTypeDiscount25  PrizeType = "discount25"
	PrizeTypeDiscount17  PrizeType = "discount17"
	PrizeTypeDiscount10  PrizeType = "discount10"
	PrizeTypeDiscount7   PrizeType = "discount7"
	PrizeTypeTryAgain    PrizeType = "tryAgain"
)
