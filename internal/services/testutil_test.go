// internal/services/testutil_test.go
package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stripe/stripe-go/v74"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/radiantoptimizer/backend/internal/config"
	"github.com/radiantoptimizer/backend/internal/database"
)

// setupTestDB opens an isolated in-memory database with the full schema.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	// A fresh connection sees a fresh :memory: database, so keep one.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := database.RunMigrations(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

func testConfig() *config.Config {
	return &config.Config{
		Environment: "test",
		Payment: config.PaymentConfig{
			AdminAPIKey:        "test-admin-key",
			ProductID:          "4626177",
			ProductName:        "Radiant Optimizer Premium",
			ProductDescription: "Lifetime access to premium features",
			PriceCents:         3300,
			Currency:           "usd",
		},
		JWT: config.JWTConfig{
			SecretKey:       "test-secret",
			AccessTokenTTL:  1,
			RefreshTokenTTL: 24,
		},
		Frontend: config.FrontendConfig{
			AppURL: "https://radiantoptimizer.test",
		},
	}
}

// fakeProvider is an in-memory PaymentProvider double. Checkout sessions are
// registered by tests and looked up by id; webhook "signatures" are the
// literal string "valid".
type fakeProvider struct {
	sessions      map[string]*stripe.CheckoutSession
	couponCalls   int
	lastCoupon    *stripe.CouponParams
	createErr     error
	checkoutCalls int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{sessions: make(map[string]*stripe.CheckoutSession)}
}

func (f *fakeProvider) CreateCheckoutSession(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}

	f.checkoutCalls++
	id := fmt.Sprintf("cs_test_%d", f.checkoutCalls)
	session := &stripe.CheckoutSession{
		ID:  id,
		URL: "https://checkout.stripe.test/" + id,
	}
	if params.ClientReferenceID != nil {
		session.ClientReferenceID = *params.ClientReferenceID
	}
	f.sessions[id] = session
	return session, nil
}

func (f *fakeProvider) GetCheckoutSession(id string) (*stripe.CheckoutSession, error) {
	session, ok := f.sessions[id]
	if !ok {
		return nil, errors.New("no such checkout session")
	}
	return session, nil
}

func (f *fakeProvider) CreateCoupon(params *stripe.CouponParams) (*stripe.Coupon, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}

	f.couponCalls++
	f.lastCoupon = params
	return &stripe.Coupon{ID: *params.ID, PercentOff: *params.PercentOff}, nil
}

func (f *fakeProvider) ConstructWebhookEvent(payload []byte, signature string) (stripe.Event, error) {
	if signature != "valid" {
		return stripe.Event{}, errors.New("signature verification failed")
	}

	var event stripe.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return stripe.Event{}, err
	}
	return event, nil
}

// paidSession registers a paid checkout session with the fake provider and
// returns it.
func paidSession(f *fakeProvider, id, username, email string, amountCents int64) *stripe.CheckoutSession {
	session := &stripe.CheckoutSession{
		ID:                id,
		ClientReferenceID: username,
		CustomerEmail:     email,
		AmountTotal:       amountCents,
		Currency:          stripe.CurrencyUSD,
		PaymentStatus:     stripe.CheckoutSessionPaymentStatusPaid,
		Metadata:          map[string]string{"username": username, "email": email},
	}
	f.sessions[id] = session
	return session
}

// webhookPayload wraps a checkout session in a checkout.session.completed
// event envelope the way Stripe delivers it.
func webhookPayload(t *testing.T, session *stripe.CheckoutSession) []byte {
	t.Helper()

	object, err := json.Marshal(session)
	if err != nil {
		t.Fatalf("failed to marshal session: %v", err)
	}

	payload, err := json.Marshal(map[string]interface{}{
		"id":   "evt_test_1",
		"type": "checkout.session.completed",
		"data": map[string]interface{}{"object": json.RawMessage(object)},
	})
	if err != nil {
		t.Fatalf("failed to marshal event: %v", err)
	}
	return payload
}
