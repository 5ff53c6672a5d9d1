// internal/services/spin_service.go
package services

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v74"
	"gorm.io/gorm"

	"github.com/radiantoptimizer/backend/internal/apperrors"
	"github.com/radiantoptimizer/backend/internal/config"
	"github.com/radiantoptimizer/backend/internal/database"
	"github.com/radiantoptimizer/backend/internal/models"
)

// prizeTable is the cumulative probability distribution of the wheel, over a
// roll in [0,100):
//
//	 0.00 -  0.01  free license
//	 0.01 -  1.08  25% off
//	 1.08 -  8.08  17% off
//	 8.08 - 28.08  10% off
//	28.08 - 53.08   7% off
//	53.08 -  100   try again
var prizeTable = []struct {
	threshold float64
	prizeType models.PrizeType
	value     int
	label     string
}{
	{0.01, models.PrizeTypeFreeLicense, 100, "FREE LICENSE!"},
	{1.08, models.PrizeTypeDiscount25, 25, "25% OFF"},
	{8.08, models.PrizeTypeDiscount17, 17, "17% OFF"},
	{28.08, models.PrizeTypeDiscount10, 10, "10% OFF"},
	{53.08, models.PrizeTypeDiscount7, 7, "7% OFF"},
	{100, models.PrizeTypeTryAgain, 0, "Try Again Tomorrow"},
}

type SpinService struct {
	db       *gorm.DB
	cfg      *config.Config
	provider PaymentProvider
	licenses *LicenseService
	roll     func() float64
}

type Eligibility struct {
	Eligible bool   `json:"eligible"`
	Reason   string `json:"reason,omitempty"`
	Message  string `json:"message,omitempty"`
}

type PrizeOutcome struct {
	Type    models.PrizeType `json:"type"`
	Value   int              `json:"value"`
	Label   string           `json:"label"`
	PrizeID string           `json:"prizeId,omitempty"`
}

type RedemptionResult struct {
	Type       string `json:"type"` // "license" or "coupon"
	LicenseKey string `json:"licenseKey,omitempty"`
	CouponCode string `json:"couponCode,omitempty"`
	Discount   int    `json:"discount,omitempty"`
}

type PrizeSummary struct {
	ID         string           `json:"id"`
	Type       models.PrizeType `json:"type"`
	Value      int              `json:"value"`
	WonAt      time.Time        `json:"wonAt"`
	CouponCode string           `json:"couponCode,omitempty"`
}

func NewSpinService(db *gorm.DB, cfg *config.Config, provider PaymentProvider, licenses *LicenseService) *SpinService {
	return &SpinService{
		db:       db,
		cfg:      cfg,
		provider: provider,
		licenses: licenses,
		roll: func() float64 {
			return rand.Float64() * 100
		},
	}
}

// CheckEligibility is advisory: the UI uses it to decide whether to show the
// wheel. The authoritative gate is the conditional insert inside Spin.
func (s *SpinService) CheckEligibility(username string) (*Eligibility, error) {
	if username == "" {
		return nil, apperrors.New(apperrors.KindValidation, "username is required")
	}

	var spin models.WheelSpin
	err := s.db.Where("username = ?", username).First(&spin).Error
	if err == nil && spin.HasSpun {
		return &Eligibility{
			Eligible: false,
			Reason:   "already_spun",
			Message:  "You have already used your one-time spin!",
		}, nil
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check spin record: %w", err)
	}

	count, err := s.licenses.CountForUser(username)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return &Eligibility{
			Eligible: false,
			Reason:   "not_customer",
			Message:  "Only paying customers can spin the wheel!",
		}, nil
	}

	return &Eligibility{Eligible: true}, nil
}

// Spin draws a prize for the identity. The spin record is created with an
// insert-if-absent before the prize is persisted, so the draw itself is the
// idempotent boundary: two concurrent requests cannot both win.
func (s *SpinService) Spin(username string) (*PrizeOutcome, error) {
	if username == "" {
		return nil, apperrors.New(apperrors.KindValidation, "username is required")
	}

	count, err := s.licenses.CountForUser(username)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, apperrors.New(apperrors.KindConflict, "only paying customers can spin the wheel")
	}

	outcome := drawPrize(s.roll())

	now := time.Now()
	record := models.WheelSpin{
		Username:     username,
		HasSpun:      true,
		LastSpinTime: &now,
		TotalSpins:   1,
		LastPrize:    outcome.Type,
	}
	if err := s.db.Create(&record).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, apperrors.New(apperrors.KindConflict, "you have already used your one-time spin")
		}
		return nil, fmt.Errorf("failed to record spin: %w", err)
	}

	if outcome.Type != models.PrizeTypeTryAgain {
		prize := models.Prize{
			ID:         fmt.Sprintf("%s_%d", username, now.UnixMilli()),
			Username:   username,
			PrizeType:  outcome.Type,
			PrizeValue: outcome.Value,
			WonAt:      now,
		}
		if err := s.db.Create(&prize).Error; err != nil {
			// The spin is already spent; the prize must not be lost silently.
			logrus.WithError(err).WithField("username", username).
				Error("Failed to persist prize after spin")
			return nil, fmt.Errorf("failed to store prize: %w", err)
		}
		outcome.PrizeID = prize.ID
	}

	logrus.WithFields(logrus.Fields{
		"username": username,
		"prize":    outcome.Type,
	}).Info("Wheel spin processed")

	return &outcome, nil
}

func drawPrize(roll float64) PrizeOutcome {
	for _, tier := range prizeTable {
		if roll < tier.threshold {
			return PrizeOutcome{Type: tier.prizeType, Value: tier.value, Label: tier.label}
		}
	}

	last := prizeTable[len(prizeTable)-1]
	return PrizeOutcome{Type: last.prizeType, Value: last.value, Label: last.label}
}

// RedeemPrize materializes a drawn prize: a free license mints a key through
// the same issuance path as a purchase; a discount asks the payment provider
// for a single-use percent-off coupon. Coupon materialization is idempotent:
// a prize that already carries a coupon code returns it rather than minting
// another.
func (s *SpinService) RedeemPrize(prizeID, username string) (*RedemptionResult, error) {
	if prizeID == "" || username == "" {
		return nil, apperrors.New(apperrors.KindValidation, "prize ID and username are required")
	}

	var prize models.Prize
	if err := s.db.Where("id = ?", prizeID).First(&prize).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.KindNotFound, "prize not found")
		}
		return nil, fmt.Errorf("failed to look up prize: %w", err)
	}

	if prize.Username != username {
		return nil, apperrors.New(apperrors.KindUnauthorized, "prize does not belong to this user")
	}

	if prize.Redeemed {
		return nil, apperrors.New(apperrors.KindConflict, "prize already redeemed")
	}

	if prize.PrizeType == models.PrizeTypeFreeLicense {
		return s.redeemFreeLicense(&prize)
	}

	return s.redeemDiscount(&prize)
}

func (s *SpinService) redeemFreeLicense(prize *models.Prize) (*RedemptionResult, error) {
	var issued string
	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		now := time.Now()

		// The guarded update is the unredeemed->redeemed transition; zero
		// rows means another request claimed the prize first.
		res := tx.Model(&models.Prize{}).
			Where("id = ? AND redeemed = ?", prize.ID, false).
			Updates(map[string]interface{}{"redeemed": true, "redeemed_at": now})
		if res.Error != nil {
			return fmt.Errorf("failed to mark prize redeemed: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperrors.New(apperrors.KindConflict, "prize already redeemed")
		}

		key, err := s.licenses.GenerateUniqueKey(tx)
		if err != nil {
			return err
		}

		var email string
		var user models.User
		if err := tx.Where("username = ?", prize.Username).First(&user).Error; err == nil {
			email = user.Email
		}

		license := models.License{
			Key:         key,
			Username:    prize.Username,
			Email:       email,
			Active:      true,
			PurchaseID:  "spin_" + prize.ID,
			ProductID:   s.cfg.Payment.ProductID,
			ProductName: "Radiant Optimizer",
			Amount:      0,
			Currency:    "USD",
			Notes:       "Won from spin wheel",
		}
		if err := tx.Create(&license).Error; err != nil {
			return fmt.Errorf("failed to create license: %w", err)
		}

		if err := appendLicenseToProfile(tx, prize.Username, email, projectionUpdate{
			Key:    key,
			Source: "spin_wheel",
		}); err != nil {
			return err
		}

		if err := tx.Model(&models.Prize{}).Where("id = ?", prize.ID).
			Update("license_key", key).Error; err != nil {
			return fmt.Errorf("failed to attach license to prize: %w", err)
		}

		issued = key
		return nil
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"username": prize.Username,
		"prize_id": prize.ID,
	}).Info("Free license prize redeemed")

	return &RedemptionResult{Type: "license", LicenseKey: issued}, nil
}

func (s *SpinService) redeemDiscount(prize *models.Prize) (*RedemptionResult, error) {
	if prize.CouponCode != "" {
		return &RedemptionResult{
			Type:       "coupon",
			CouponCode: prize.CouponCode,
			Discount:   prize.PrizeValue,
		}, nil
	}

	couponID := fmt.Sprintf("SPIN_%s_%d", strings.ToUpper(prize.Username), time.Now().UnixMilli())
	if len(couponID) > 40 {
		couponID = couponID[:40]
	}

	params := &stripe.CouponParams{
		ID:             stripe.String(couponID),
		PercentOff:     stripe.Float64(float64(prize.PrizeValue)),
		Duration:       stripe.String(string(stripe.CouponDurationOnce)),
		MaxRedemptions: stripe.Int64(1),
		RedeemBy:       stripe.Int64(time.Now().Add(7 * 24 * time.Hour).Unix()),
	}
	params.AddMetadata("username", prize.Username)
	params.AddMetadata("prize_id", prize.ID)
	params.AddMetadata("source", "spin_wheel")

	coupon, err := s.provider.CreateCoupon(params)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindUpstream, "failed to create coupon", err)
	}

	if err := s.db.Model(&models.Prize{}).Where("id = ?", prize.ID).
		Update("coupon_code", coupon.ID).Error; err != nil {
		return nil, fmt.Errorf("failed to attach coupon to prize: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"username": prize.Username,
		"coupon":   coupon.ID,
	}).Info("Discount coupon created for prize")

	return &RedemptionResult{
		Type:       "coupon",
		CouponCode: coupon.ID,
		Discount:   prize.PrizeValue,
	}, nil
}

// GetUserPrizes lists the identity's unredeemed prizes.
func (s *SpinService) GetUserPrizes(username string) ([]PrizeSummary, error) {
	if username == "" {
		return nil, apperrors.New(apperrors.KindValidation, "username is required")
	}

	var prizes []models.Prize
	if err := s.db.Where("username = ? AND redeemed = ?", username, false).
		Order("won_at DESC").Find(&prizes).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch prizes: %w", err)
	}

	summaries := make([]PrizeSummary, 0, len(prizes))
	for _, p := range prizes {
		summaries = append(summaries, PrizeSummary{
			ID:         p.ID,
			Type:       p.PrizeType,
			Value:      p.PrizeValue,
			WonAt:      p.WonAt,
			CouponCode: p.CouponCode,
		})
	}

	return summaries, nil
}
