// internal/utils/response.go
package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/radiantoptimizer/backend/internal/apperrors"
)

type APIError struct {
	Code    string      `json:"code"`
	Error   string      `json:"error"`
	Details interface{} `json:"details,omitempty"`
}

func ErrorResponse(c *gin.Context, statusCode int, code, message string, details interface{}) {
	c.JSON(statusCode, APIError{
		Code:    code,
		Error:   message,
		Details: details,
	})
}

// RespondError maps a service error onto the wire. Typed errors carry their
// own status and diagnostic details (e.g. current_hwid on a device mismatch);
// anything else is an opaque 500.
func RespondError(c *gin.Context, err error) {
	kind := apperrors.KindOf(err)

	message := err.Error()
	if kind == apperrors.KindInternal {
		message = "Internal server error"
	}

	var details interface{}
	if d := apperrors.DetailsOf(err); d != nil {
		details = d
	}

	ErrorResponse(c, apperrors.HTTPStatus(kind), string(kind), message, details)
}

func BadRequestResponse(c *gin.Context, message string, details interface{}) {
	if message == "" {
		message = "Invalid request"
	}
	ErrorResponse(c, http.StatusBadRequest, string(apperrors.KindValidation), message, details)
}

func UnauthorizedResponse(c *gin.Context, message string) {
	if message == "" {
		message = "Unauthorized"
	}
	ErrorResponse(c, http.StatusForbidden, string(apperrors.KindUnauthorized), message, nil)
}

func ValidationErrorResponse(c *gin.Context, errors []ValidationError) {
	ErrorResponse(c, http.StatusBadRequest, string(apperrors.KindValidation), "Invalid input", errors)
}
