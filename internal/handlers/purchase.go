// internal/handlers/purchase.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/radiantoptimizer/backend/internal/services"
	"github.com/radiantoptimizer/backend/internal/utils"
)

type PurchaseHandler struct {
	purchaseService *services.PurchaseService
}

func NewPurchaseHandler(purchaseService *services.PurchaseService) *PurchaseHandler {
	return &PurchaseHandler{
		purchaseService: purchaseService,
	}
}

// POST /create-checkout-session
func (h *PurchaseHandler) CreateCheckoutSession(c *gin.Context) {
	var req services.CreateCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	url, err := h.purchaseService.CreateCheckoutSession(&req, c.GetHeader("Origin"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}

// POST /purchase-complete
//
// Client-polling completion path. The body carries only the session id;
// payment status is re-checked against the provider.
func (h *PurchaseHandler) CompletePurchase(c *gin.Context) {
	var req struct {
		SessionID string `json:"session_id"`
		UserID    string `json:"user_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	key, err := h.purchaseService.CompletePurchase(req.SessionID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"licenseKey": key,
		"message":    "Purchase processed successfully",
	})
}

// POST /webhook
//
// Stripe delivery path. The raw body is passed untouched to signature
// verification; a verified event that fails processing still returns an error
// status so Stripe retries it.
func (h *PurchaseHandler) Webhook(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		utils.BadRequestResponse(c, "Failed to read request body", nil)
		return
	}

	if err := h.purchaseService.HandleWebhookEvent(payload, c.GetHeader("Stripe-Signature")); err != nil {
		utils.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
