// internal/handlers/admin.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/radiantoptimizer/backend/internal/config"
	"github.com/radiantoptimizer/backend/internal/services"
	"github.com/radiantoptimizer/backend/internal/utils"
)

type AdminHandler struct {
	licenseService  *services.LicenseService
	purchaseService *services.PurchaseService
	cfg             *config.Config
}

func NewAdminHandler(licenseService *services.LicenseService, purchaseService *services.PurchaseService, cfg *config.Config) *AdminHandler {
	return &AdminHandler{
		licenseService:  licenseService,
		purchaseService: purchaseService,
		cfg:             cfg,
	}
}

// authorize checks the shared admin key with a constant-time compare. An
// unconfigured key locks the admin surface rather than opening it.
func (h *AdminHandler) authorize(c *gin.Context, providedKey string) bool {
	if h.cfg.Payment.AdminAPIKey == "" || !utils.SecureCompare(providedKey, h.cfg.Payment.AdminAPIKey) {
		utils.UnauthorizedResponse(c, "Invalid admin key")
		return false
	}
	return true
}

// POST /admin/reset-hwid
func (h *AdminHandler) ResetHWID(c *gin.Context) {
	var req struct {
		AdminKey   string `json:"adminKey"`
		LicenseKey string `json:"licenseKey"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	if !h.authorize(c, req.AdminKey) {
		return
	}

	if req.LicenseKey == "" {
		utils.BadRequestResponse(c, "License key is required", nil)
		return
	}

	if err := h.licenseService.ResetHWID(req.LicenseKey); err != nil {
		utils.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "HWID reset successfully",
	})
}

// GET /admin/license-stats
func (h *AdminHandler) LicenseStats(c *gin.Context) {
	if !h.authorize(c, c.Query("adminKey")) {
		return
	}

	stats, err := h.licenseService.Stats()
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GET /admin/licenses
func (h *AdminHandler) ListLicenses(c *gin.Context) {
	if !h.authorize(c, c.Query("adminKey")) {
		return
	}

	params := utils.GetPaginationParams(c)
	licenses, total, err := h.licenseService.ListLicenses(params)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, utils.CreatePaginationResult(licenses, total, params))
}

// GET /admin/purchases
func (h *AdminHandler) ListPurchases(c *gin.Context) {
	if !h.authorize(c, c.Query("adminKey")) {
		return
	}

	params := utils.GetPaginationParams(c)
	purchases, total, err := h.purchaseService.ListPurchases(params)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, utils.CreatePaginationResult(purchases, total, params))
}
