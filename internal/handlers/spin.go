// internal/handlers/spin.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/radiantoptimizer/backend/internal/services"
	"github.com/radiantoptimizer/backend/internal/utils"
)

type SpinHandler struct {
	spinService *services.SpinService
}

func NewSpinHandler(spinService *services.SpinService) *SpinHandler {
	return &SpinHandler{
		spinService: spinService,
	}
}

type usernameRequest struct {
	Username string `json:"username"`
}

// POST /check-spin-eligibility
func (h *SpinHandler) CheckEligibility(c *gin.Context) {
	var req usernameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	eligibility, err := h.spinService.CheckEligibility(req.Username)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, eligibility)
}

// POST /spin-wheel
func (h *SpinHandler) Spin(c *gin.Context) {
	var req usernameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	prize, err := h.spinService.Spin(req.Username)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"prize":   prize,
	})
}

// POST /create-prize-coupon
func (h *SpinHandler) RedeemPrize(c *gin.Context) {
	var req struct {
		PrizeID  string `json:"prizeId"`
		Username string `json:"username"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	result, err := h.spinService.RedeemPrize(req.PrizeID, req.Username)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"type":       result.Type,
		"licenseKey": result.LicenseKey,
		"couponCode": result.CouponCode,
		"discount":   result.Discount,
	})
}

// POST /get-user-prizes
func (h *SpinHandler) GetUserPrizes(c *gin.Context) {
	var req usernameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	prizes, err := h.spinService.GetUserPrizes(req.Username)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"prizes": prizes})
}
