// internal/services/purchase_service.go
package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v74"
	"gorm.io/gorm"

	"github.com/radiantoptimizer/backend/internal/apperrors"
	"github.com/radiantoptimizer/backend/internal/config"
	"github.com/radiantoptimizer/backend/internal/database"
	"github.com/radiantoptimizer/backend/internal/models"
	"github.com/radiantoptimizer/backend/internal/utils"
)

// errConcurrentIssue signals that another request completed (or is
// completing) the same session while this transaction was in flight. The
// loser rolls back and re-reads the winner's result.
var errConcurrentIssue = errors.New("purchase completed concurrently")

type PurchaseService struct {
	db       *gorm.DB
	cfg      *config.Config
	provider PaymentProvider
	licenses *LicenseService
}

type CreateCheckoutRequest struct {
	UID        string `json:"uid" validate:"required,username"`
	Email      string `json:"email" validate:"omitempty,email"`
	CouponCode string `json:"couponCode" validate:"omitempty,max=64"`
}

func NewPurchaseService(db *gorm.DB, cfg *config.Config, provider PaymentProvider, licenses *LicenseService) *PurchaseService {
	return &PurchaseService{
		db:       db,
		cfg:      cfg,
		provider: provider,
		licenses: licenses,
	}
}

// CreateCheckoutSession opens a hosted payment session for the fixed-price
// product and records a pending ledger entry keyed by the session id. The
// username travels as the session's client reference so completion can
// recover it without a secondary lookup.
func (s *PurchaseService) CreateCheckoutSession(req *CreateCheckoutRequest, origin string) (string, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return "", apperrors.Wrap(apperrors.KindValidation, "invalid checkout request", err)
	}

	// Resolve the purchaser's email from the profile when the caller omits it.
	email := req.Email
	if email == "" {
		var user models.User
		if err := s.db.Where("username = ?", req.UID).First(&user).Error; err == nil {
			email = user.Email
		}
	}

	if origin == "" {
		origin = s.cfg.Frontend.AppURL
	}

	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(s.cfg.Payment.Currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String(s.cfg.Payment.ProductName),
						Description: stripe.String(s.cfg.Payment.ProductDescription),
					},
					UnitAmount: stripe.Int64(s.cfg.Payment.PriceCents),
				},
				Quantity: stripe.Int64(1),
			},
		},
		Mode:                stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:          stripe.String(fmt.Sprintf("%s/dashboard.html?purchase=success&session_id={CHECKOUT_SESSION_ID}", origin)),
		CancelURL:           stripe.String(fmt.Sprintf("%s/dashboard.html?purchase=cancelled", origin)),
		CustomerEmail:       stripe.String(email),
		ClientReferenceID:   stripe.String(req.UID),
		AllowPromotionCodes: stripe.Bool(true),
	}
	params.AddMetadata("username", req.UID)
	params.AddMetadata("email", email)

	if req.CouponCode != "" {
		params.Discounts = []*stripe.CheckoutSessionDiscountParams{
			{Coupon: stripe.String(req.CouponCode)},
		}
	}

	session, err := s.provider.CreateCheckoutSession(params)
	if err != nil {
		return "", apperrors.Wrap(apperrors.KindUpstream, "failed to create checkout session", err)
	}

	entry := models.PendingPurchase{
		SessionID:  session.ID,
		Username:   req.UID,
		Email:      email,
		Status:     models.PurchaseStatusPending,
		CouponCode: req.CouponCode,
	}
	if err := s.db.Create(&entry).Error; err != nil {
		return "", fmt.Errorf("failed to record pending purchase: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"session_id": session.ID,
		"username":   req.UID,
	}).Info("Checkout session created")

	return session.URL, nil
}

// CompletePurchase is the client-polling completion path. The caller only
// supplies a session id; payment truth is re-derived from the provider, never
// taken from the client.
func (s *PurchaseService) CompletePurchase(sessionID string) (string, error) {
	if sessionID == "" {
		return "", apperrors.New(apperrors.KindValidation, "session ID is required")
	}

	session, err := s.provider.GetCheckoutSession(sessionID)
	if err != nil {
		return "", apperrors.Wrap(apperrors.KindUpstream, "failed to retrieve checkout session", err)
	}

	if session.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		return "", apperrors.New(apperrors.KindValidation, "payment not complete").
			WithDetails(map[string]interface{}{"status": string(session.PaymentStatus)})
	}

	return s.ProcessCompletedSession(session)
}

// HandleWebhookEvent is the asynchronous completion path. The signature is
// verified before any business field is parsed; an invalid signature touches
// no state.
func (s *PurchaseService) HandleWebhookEvent(payload []byte, signature string) error {
	event, err := s.provider.ConstructWebhookEvent(payload, signature)
	if err != nil {
		return apperrors.Wrap(apperrors.KindUnauthorized, "webhook signature verification failed", err)
	}

	if event.Type != "checkout.session.completed" {
		logrus.WithField("type", event.Type).Debug("Ignoring webhook event")
		return nil
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return apperrors.Wrap(apperrors.KindValidation, "malformed checkout session payload", err)
	}

	if session.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		logrus.WithFields(logrus.Fields{
			"session_id": session.ID,
			"status":     session.PaymentStatus,
		}).Info("Checkout completed but payment not yet settled")
		return nil
	}

	_, err = s.ProcessCompletedSession(&session)
	return err
}

// ProcessCompletedSession is the core state transition: exactly one license
// key per paid session, no matter how many times the completion signal is
// delivered or how the deliveries interleave.
//
// The idempotency check precedes key generation, and ledger, registry, and
// profile projection are written in one transaction. The unique index on the
// registry's purchase id plus the status-guarded ledger update collapse
// concurrent redeliveries to a single issuance; losers roll back and return
// the winner's key.
func (s *PurchaseService) ProcessCompletedSession(session *stripe.CheckoutSession) (string, error) {
	username := session.ClientReferenceID
	if username == "" {
		username = session.Metadata["username"]
	}
	if username == "" {
		username = session.Metadata["uid"]
	}

	email := session.CustomerEmail
	if email == "" {
		email = session.Metadata["email"]
	}

	if username == "" {
		logrus.WithField("session_id", session.ID).
			Error("Completed session carries no username; needs manual reconciliation")
		return "", apperrors.New(apperrors.KindValidation, "no username found in session")
	}

	amount := float64(session.AmountTotal) / 100
	currency := strings.ToUpper(string(session.Currency))
	if currency == "" {
		currency = "USD"
	}

	var issued string
	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		var entry models.PendingPurchase
		err := database.LockForUpdate(tx).Where("session_id = ?", session.ID).First(&entry).Error
		switch {
		case err == nil:
			if entry.Status == models.PurchaseStatusCompleted && entry.LicenseKey != "" {
				issued = entry.LicenseKey
				return nil
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			// The webhook can fire for a session this process never opened
			// (e.g. the ledger write was lost); recreate the entry.
			entry = models.PendingPurchase{
				SessionID: session.ID,
				Username:  username,
				Email:     email,
				Status:    models.PurchaseStatusPending,
			}
			if err := tx.Create(&entry).Error; err != nil {
				if database.IsUniqueViolation(err) {
					return errConcurrentIssue
				}
				return fmt.Errorf("failed to create ledger entry: %w", err)
			}
		default:
			return fmt.Errorf("failed to read ledger entry: %w", err)
		}

		key, err := s.licenses.GenerateUniqueKey(tx)
		if err != nil {
			return err
		}

		license := models.License{
			Key:         key,
			Username:    username,
			Email:       email,
			Active:      true,
			PurchaseID:  session.ID,
			ProductID:   s.cfg.Payment.ProductID,
			ProductName: "Radiant Optimizer",
			Amount:      amount,
			Currency:    currency,
			Notes:       "Generated from Stripe purchase",
		}
		if err := tx.Create(&license).Error; err != nil {
			if database.IsUniqueViolation(err) {
				return errConcurrentIssue
			}
			return fmt.Errorf("failed to create license: %w", err)
		}

		if err := appendLicenseToProfile(tx, username, email, projectionUpdate{
			Key:             key,
			Amount:          amount,
			IncludePurchase: true,
		}); err != nil {
			return err
		}

		now := time.Now()
		res := tx.Model(&models.PendingPurchase{}).
			Where("session_id = ? AND status = ?", session.ID, models.PurchaseStatusPending).
			Updates(map[string]interface{}{
				"status":       models.PurchaseStatusCompleted,
				"license_key":  key,
				"completed_at": now,
				"username":     username,
				"email":        email,
				"amount":       amount,
				"currency":     currency,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to complete ledger entry: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return errConcurrentIssue
		}

		issued = key
		return nil
	})

	if errors.Is(err, errConcurrentIssue) {
		return s.existingKeyForSession(session.ID)
	}
	if err != nil {
		return "", err
	}

	logrus.WithFields(logrus.Fields{
		"session_id": session.ID,
		"username":   username,
		"license":    issued,
	}).Info("Purchase completed")

	return issued, nil
}

// existingKeyForSession resolves the losing side of a completion race: the
// winning transaction has committed, so the ledger now carries the key.
func (s *PurchaseService) existingKeyForSession(sessionID string) (string, error) {
	var entry models.PendingPurchase
	if err := s.db.Where("session_id = ?", sessionID).First(&entry).Error; err != nil {
		return "", fmt.Errorf("failed to re-read ledger entry: %w", err)
	}

	if entry.Status == models.PurchaseStatusCompleted && entry.LicenseKey != "" {
		return entry.LicenseKey, nil
	}

	return "", apperrors.New(apperrors.KindConflict, "purchase is being processed, retry shortly")
}

func (s *PurchaseService) ListPurchases(params utils.PaginationParams) ([]models.PendingPurchase, int64, error) {
	query := s.db.Model(&models.PendingPurchase{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count purchases: %w", err)
	}

	allowedSortFields := []string{"created_at", "completed_at", "status", "username"}
	query = utils.ApplySort(query, params, allowedSortFields)
	query = utils.ApplyPagination(query, params)

	var purchases []models.PendingPurchase
	if err := query.Find(&purchases).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch purchases: %w", err)
	}

	return purchases, total, nil
}

type projectionUpdate struct {
	Key             string
	Amount          float64
	Source          string
	IncludePurchase bool
}

// appendLicenseToProfile keeps the user projection in step with the registry.
// Additions are appended, never blind-overwritten, and the user row is read
// under the same transaction as the registry write. A missing profile is
// created (a purchase can complete before signup propagation).
func appendLicenseToProfile(tx *gorm.DB, username, email string, update projectionUpdate) error {
	now := time.Now()

	licenseRecord := models.LicenseRecord{
		Key:          update.Key,
		PurchaseDate: now,
		Status:       models.LicenseRecordStatusActive,
		Source:       update.Source,
	}

	var user models.User
	err := database.LockForUpdate(tx).Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user = models.User{
			Username:    username,
			Email:       email,
			AccountType: models.AccountTypePremium,
			Licenses:    models.LicenseRecordList{licenseRecord},
		}
		if update.IncludePurchase {
			user.Purchases = models.PurchaseRecordList{{
				Product:    "RadiantOptimizer",
				Amount:     update.Amount,
				Date:       now,
				LicenseKey: update.Key,
			}}
		}
		if err := tx.Create(&user).Error; err != nil {
			return fmt.Errorf("failed to create profile for %s: %w", username, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to look up profile for %s: %w", username, err)
	}

	updates := map[string]interface{}{
		"account_type": models.AccountTypePremium,
		"licenses":     append(user.Licenses, licenseRecord),
	}
	if update.IncludePurchase {
		updates["purchases"] = append(user.Purchases, models.PurchaseRecord{
			Product:    "RadiantOptimizer",
			Amount:     update.Amount,
			Date:       now,
			LicenseKey: update.Key,
		})
	}

	if err := tx.Model(&models.User{}).Where("id = ?", user.ID).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to update profile for %s: %w", username, err)
	}

	return nil
}
