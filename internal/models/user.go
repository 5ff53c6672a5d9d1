// internal/models/user.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// LicenseRecord is the denormalized copy of an issued license embedded in the
// user profile. The License registry row is the source of truth; every write
// path that issues a key updates both in the same transaction.
type LicenseRecord struct {
	Key          string              `json:"key"`
	PurchaseDate time.Time           `json:"purchase_date"`
	Status       LicenseRecordStatus `json:"status"`
	Source       string              `json:"source,omitempty"`
}

// PurchaseRecord is the denormalized copy of a completed purchase embedded in
// the user profile.
type PurchaseRecord struct {
	Product    string    `json:"product"`
	Amount     float64   `json:"amount"`
	Date       time.Time `json:"date"`
	LicenseKey string    `json:"license_key"`
}

type LicenseRecordList []LicenseRecord

func (l LicenseRecordList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return json.Marshal(l)
}

func (l *LicenseRecordList) Scan(value interface{}) error {
	return scanJSON(value, l)
}

type PurchaseRecordList []PurchaseRecord

func (l PurchaseRecordList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return json.Marshal(l)
}

func (l *PurchaseRecordList) Scan(value interface{}) error {
	return scanJSON(value, l)
}

func scanJSON(value, dest interface{}) error {
	if value == nil {
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, dest)
	case string:
		return json.Unmarshal([]byte(v), dest)
	default:
		return fmt.Errorf("unsupported type for JSON column: %T", value)
	}
}

// User is the account record, keyed by username (the purchasing identity).
// Licenses and Purchases are projections of the License registry and the
// pending_purchases ledger for fast client-side display.
type User struct {
	BaseModel
	Username     string            `json:"username" gorm:"uniqueIndex;size:20;not null"`
	Email        string            `json:"email" gorm:"index;size:255"`
	PasswordHash string            `json:"-" gorm:"size:255"`
	AccountType  AccountType       `json:"account_type" gorm:"type:varchar(20);default:'free'"`
	Licenses     LicenseRecordList `json:"licenses" gorm:"type:jsonb"`
	Purchases    PurchaseRecordList `json:"purchases" gorm:"type:jsonb"`
	LastLoginAt  *time.Time        `json:"last_login_at"`
}

func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashedPassword)
	return nil
}

func (u *User) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
}
