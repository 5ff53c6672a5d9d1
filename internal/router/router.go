// internal/router/router.go
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/radiantoptimizer/backend/internal/config"
	"github.com/radiantoptimizer/backend/internal/handlers"
	"github.com/radiantoptimizer/backend/internal/middleware"
	"github.com/radiantoptimizer/backend/internal/services"
	"github.com/radiantoptimizer/backend/internal/utils"
)

func Initialize(db *gorm.DB, cfg *config.Config) *gin.Engine {
	// Initialize services
	paymentProvider := services.NewStripeProvider(cfg)
	storageService, err := services.NewStorageService(cfg)
	if err != nil {
		logrus.WithError(err).Warn("Storage service unavailable; downloads disabled")
		storageService, _ = services.NewStorageService(&config.Config{})
	}

	licenseService := services.NewLicenseService(db)
	purchaseService := services.NewPurchaseService(db, cfg, paymentProvider, licenseService)
	spinService := services.NewSpinService(db, cfg, paymentProvider, licenseService)
	authService := services.NewAuthService(db, cfg)

	// Initialize handlers
	purchaseHandler := handlers.NewPurchaseHandler(purchaseService)
	licenseHandler := handlers.NewLicenseHandler(licenseService, storageService)
	adminHandler := handlers.NewAdminHandler(licenseService, purchaseService, cfg)
	spinHandler := handlers.NewSpinHandler(spinService)
	authHandler := handlers.NewAuthHandler(authService)

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cfg.Server.CORSOrigin))
	r.Use(middleware.GeneralRateLimit())
	r.Use(middleware.AuditLogMiddleware(db))

	// Health check
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "radiant-optimizer-backend",
		})
	})

	// Purchase flow
	r.POST("/create-checkout-session", purchaseHandler.CreateCheckoutSession)
	r.POST("/purchase-complete", purchaseHandler.CompletePurchase)
	r.POST("/webhook", purchaseHandler.Webhook)

	// License verification (desktop client)
	r.POST("/verify-license", licenseHandler.VerifyLicense)
	r.POST("/download", middleware.DownloadRateLimit(), licenseHandler.Download)

	// Admin
	admin := r.Group("/admin")
	{
		admin.POST("/reset-hwid", adminHandler.ResetHWID)
		admin.GET("/license-stats", adminHandler.LicenseStats)
		admin.GET("/licenses", adminHandler.ListLicenses)
		admin.GET("/purchases", adminHandler.ListPurchases)
	}

	// Spin wheel
	spin := r.Group("")
	spin.Use(middleware.SpinRateLimit())
	{
		spin.POST("/check-spin-eligibility", spinHandler.CheckEligibility)
		spin.POST("/spin-wheel", spinHandler.Spin)
		spin.POST("/create-prize-coupon", spinHandler.RedeemPrize)
		spin.POST("/get-user-prizes", spinHandler.GetUserPrizes)
	}

	// Account
	auth := r.Group("/auth")
	auth.Use(middleware.AuthRateLimit())
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.GET("/me", middleware.AuthRequired(), authHandler.Me)
	}

	return r
}
