// internal/models/audit.go
package models

// AuditLog records mutating API calls for manual reconciliation and support.
type AuditLog struct {
	BaseModel
	Username     string `json:"username" gorm:"index;size:20"`
	Action       string `json:"action" gorm:"size:255;not null"`
	ResourceType string `json:"resource_type" gorm:"size:50;index"`
	IPAddress    string `json:"ip_address" gorm:"size:45"`
	UserAgent    string `json:"user_agent" gorm:"size:500"`
	NewValues    JSONB  `json:"new_values" gorm:"type:jsonb"`
}
