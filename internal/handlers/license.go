// internal/handlers/license.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/radiantoptimizer/backend/internal/apperrors"
	"github.com/radiantoptimizer/backend/internal/services"
	"github.com/radiantoptimizer/backend/internal/utils"
)

type LicenseHandler struct {
	licenseService *services.LicenseService
	storageService *services.StorageService
}

func NewLicenseHandler(licenseService *services.LicenseService, storageService *services.StorageService) *LicenseHandler {
	return &LicenseHandler{
		licenseService: licenseService,
		storageService: storageService,
	}
}

// POST /verify-license
//
// The desktop client consumes this response shape directly, so failures are
// reported in its vocabulary: valid:false always, bound/currentHwid on a
// device mismatch.
func (h *LicenseHandler) VerifyLicense(c *gin.Context) {
	var req struct {
		LicenseKey string `json:"licenseKey"`
		HWID       string `json:"hwid"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "valid": false})
		return
	}

	if req.LicenseKey == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "License key is required", "valid": false})
		return
	}

	result, err := h.licenseService.Verify(req.LicenseKey, req.HWID)
	if err != nil {
		kind := apperrors.KindOf(err)

		body := gin.H{"valid": false}
		if kind == apperrors.KindInternal {
			body["error"] = "Failed to verify license"
		} else {
			body["error"] = err.Error()
		}
		if details := apperrors.DetailsOf(err); details != nil {
			if bound, ok := details["bound"].(bool); ok && bound {
				body["bound"] = true
				body["currentHwid"] = details["current_hwid"]
			}
		}

		c.JSON(apperrors.HTTPStatus(kind), body)
		return
	}

	c.JSON(http.StatusOK, result)
}

// POST /download
//
// The release archive is only handed to holders of a valid license; the
// check runs through the same verification path as the desktop client, so a
// bound license still only downloads from its device.
func (h *LicenseHandler) Download(c *gin.Context) {
	var req struct {
		LicenseKey string `json:"licenseKey"`
		HWID       string `json:"hwid"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	if req.LicenseKey == "" {
		utils.BadRequestResponse(c, "License key is required", nil)
		return
	}

	if _, err := h.licenseService.Verify(req.LicenseKey, req.HWID); err != nil {
		utils.RespondError(c, err)
		return
	}

	link, err := h.storageService.ReleaseDownloadURL()
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, link)
}
