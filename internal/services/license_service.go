// internal/services/license_service.go
package services

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/radiantoptimizer/backend/internal/apperrors"
	"github.com/radiantoptimizer/backend/internal/models"
	"github.com/radiantoptimizer/backend/internal/utils"
)

// maxKeyAttempts bounds the generate-and-check loop. The keyspace is 36^15,
// so more than one retry already signals something badly wrong with the
// random source or the registry query.
const maxKeyAttempts = 10

type LicenseService struct {
	db *gorm.DB
}

type VerificationResult struct {
	Valid          bool       `json:"valid"`
	Username       string     `json:"username"`
	Email          string     `json:"email"`
	ProductName    string     `json:"productName"`
	Bound          bool       `json:"bound"`
	ActivationDate *time.Time `json:"activationDate"`
}

type LicenseStats struct {
	TotalLicenses          int64 `json:"totalLicenses"`
	ActiveLicenses         int64 `json:"activeLicenses"`
	BoundLicenses          int64 `json:"boundLicenses"`
	ActivationsLast24Hours int64 `json:"activationsLast24Hours"`
	ValidationsLast24Hours int64 `json:"validationsLast24Hours"`
}

func NewLicenseService(db *gorm.DB) *LicenseService {
	return &LicenseService{db: db}
}

// GenerateUniqueKey produces a license key that does not yet exist in the
// registry. The uniqueness check is a read against tx, so callers issuing a
// key inside a transaction see their own uncommitted rows. Fails with an
// exhaustion error after the retry bound; the calling operation must abort
// and stay retryable.
func (s *LicenseService) GenerateUniqueKey(tx *gorm.DB) (string, error) {
	for attempt := 0; attempt < maxKeyAttempts; attempt++ {
		key, err := utils.GenerateLicenseKey()
		if err != nil {
			return "", fmt.Errorf("failed to generate license key: %w", err)
		}

		var count int64
		if err := tx.Model(&models.License{}).Where("key = ?", key).Count(&count).Error; err != nil {
			return "", fmt.Errorf("failed to check key uniqueness: %w", err)
		}

		if count == 0 {
			return key, nil
		}
	}

	return "", apperrors.New(apperrors.KindExhausted,
		"failed to generate a unique license key after multiple attempts")
}

// Verify validates a license key and, when a device fingerprint is supplied,
// enforces first-use binding: an unbound key binds to the fingerprint, a key
// bound elsewhere is rejected with the bound fingerprint in the error
// details. Counters are only touched on successful validation.
func (s *LicenseService) Verify(key, hwid string) (*VerificationResult, error) {
	var license models.License
	if err := s.db.Where("key = ?", key).First(&license).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.KindNotFound, "license key not found")
		}
		return nil, fmt.Errorf("failed to look up license: %w", err)
	}

	if !license.Active {
		return nil, apperrors.New(apperrors.KindConflict, "license is not active")
	}

	now := time.Now()
	updates := map[string]interface{}{
		"last_validated":   now,
		"activation_count": gorm.Expr("activation_count + ?", 1),
	}

	if hwid != "" {
		if license.HWID != nil && *license.HWID != hwid {
			return nil, apperrors.New(apperrors.KindConflict, "license is bound to another device").
				WithDetails(map[string]interface{}{
					"bound":        true,
					"current_hwid": *license.HWID,
				})
		}

		if license.HWID == nil {
			updates["hwid"] = hwid
			updates["last_activated"] = now
			license.HWID = &hwid
			license.LastActivated = &now
		}
	}

	if err := s.db.Model(&models.License{}).Where("id = ?", license.ID).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update license: %w", err)
	}

	return &VerificationResult{
		Valid:          true,
		Username:       license.Username,
		Email:          license.Email,
		ProductName:    license.ProductName,
		Bound:          license.HWID != nil,
		ActivationDate: license.LastActivated,
	}, nil
}

// ResetHWID clears the device binding. This is the only sanctioned unbind
// path; Verify never overwrites an existing fingerprint.
func (s *LicenseService) ResetHWID(key string) error {
	var license models.License
	if err := s.db.Where("key = ?", key).First(&license).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.New(apperrors.KindNotFound, "license key not found")
		}
		return fmt.Errorf("failed to look up license: %w", err)
	}

	if err := s.db.Model(&models.License{}).Where("id = ?", license.ID).
		Update("hwid", nil).Error; err != nil {
		return fmt.Errorf("failed to reset hwid: %w", err)
	}

	return nil
}

// Stats aggregates registry counters for the admin view. Not used for any
// access-control decision.
func (s *LicenseService) Stats() (*LicenseStats, error) {
	stats := &LicenseStats{}
	oneDayAgo := time.Now().Add(-24 * time.Hour)

	queries := []struct {
		dest  *int64
		query *gorm.DB
	}{
		{&stats.TotalLicenses, s.db.Model(&models.License{})},
		{&stats.ActiveLicenses, s.db.Model(&models.License{}).Where("active = ?", true)},
		{&stats.BoundLicenses, s.db.Model(&models.License{}).Where("hwid IS NOT NULL")},
		{&stats.ActivationsLast24Hours, s.db.Model(&models.License{}).Where("last_activated >= ?", oneDayAgo)},
		{&stats.ValidationsLast24Hours, s.db.Model(&models.License{}).Where("last_validated >= ?", oneDayAgo)},
	}

	for _, q := range queries {
		if err := q.query.Count(q.dest).Error; err != nil {
			return nil, fmt.Errorf("failed to aggregate license stats: %w", err)
		}
	}

	return stats, nil
}

func (s *LicenseService) ListLicenses(params utils.PaginationParams) ([]models.License, int64, error) {
	query := s.db.Model(&models.License{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count licenses: %w", err)
	}

	allowedSortFields := []string{"created_at", "last_validated", "activation_count", "username"}
	query = utils.ApplySort(query, params, allowedSortFields)
	query = utils.ApplyPagination(query, params)

	var licenses []models.License
	if err := query.Find(&licenses).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch licenses: %w", err)
	}

	return licenses, total, nil
}

// CountForUser reports how many licenses an identity owns; used as the
// paying-customer check by the spin module.
func (s *LicenseService) CountForUser(username string) (int64, error) {
	var count int64
	if err := s.db.Model(&models.License{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count user licenses: %w", err)
	}
	return count, nil
}
