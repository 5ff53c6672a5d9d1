// internal/services/payment_provider.go
package services

import (
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/client"
	"github.com/stripe/stripe-go/v74/webhook"

	"github.com/radiantoptimizer/backend/internal/config"
)

// PaymentProvider is the surface of the external payment processor this
// service depends on. It exists so request handlers never touch a
// process-wide Stripe handle and so tests can substitute a fake.
type PaymentProvider interface {
	CreateCheckoutSession(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	GetCheckoutSession(id string) (*stripe.CheckoutSession, error)
	CreateCoupon(params *stripe.CouponParams) (*stripe.Coupon, error)
	ConstructWebhookEvent(payload []byte, signature string) (stripe.Event, error)
}

type StripeProvider struct {
	api           *client.API
	webhookSecret string
}

func NewStripeProvider(cfg *config.Config) *StripeProvider {
	api := &client.API{}
	api.Init(cfg.Payment.StripeSecretKey, nil)

	return &StripeProvider{
		api:           api,
		webhookSecret: cfg.Payment.StripeWebhookSecret,
	}
}

func (p *StripeProvider) CreateCheckoutSession(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	return p.api.CheckoutSessions.New(params)
}

func (p *StripeProvider) GetCheckoutSession(id string) (*stripe.CheckoutSession, error) {
	return p.api.CheckoutSessions.Get(id, nil)
}

func (p *StripeProvider) CreateCoupon(params *stripe.CouponParams) (*stripe.Coupon, error) {
	return p.api.Coupons.New(params)
}

func (p *StripeProvider) ConstructWebhookEvent(payload []byte, signature string) (stripe.Event, error) {
	return webhook.ConstructEvent(payload, signature, p.webhookSecret)
}
