// internal/utils/validator.go
package utils

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

var (
	usernameRegex   = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	licenseKeyRegex = regexp.MustCompile(`^[A-Z0-9]{5}(-[A-Z0-9]{5}){2}$`)
)

func init() {
	validate = validator.New()
	validate.RegisterValidation("strong_password", validateStrongPassword)
	validate.RegisterValidation("username", validateUsername)
	validate.RegisterValidation("license_key", validateLicenseKey)
}

func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}

// IsValidUsername checks the identity rules: 3-20 characters, letters,
// digits, underscore, hyphen.
func IsValidUsername(username string) bool {
	if len(username) < 3 || len(username) > 20 {
		return false
	}
	return usernameRegex.MatchString(username)
}

// IsValidLicenseKey checks the fixed key format without touching the registry.
func IsValidLicenseKey(key string) bool {
	return licenseKeyRegex.MatchString(key)
}

func validateUsername(fl validator.FieldLevel) bool {
	return IsValidUsername(fl.Field().String())
}

func validateLicenseKey(fl validator.FieldLevel) bool {
	return IsValidLicenseKey(fl.Field().String())
}

func validateStrongPassword(fl validator.FieldLevel) bool {
	password := fl.Field().String()

	if len(password) < 8 {
		return false
	}

	var hasUpper, hasLower, hasNumber bool

	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsNumber(char):
			hasNumber = true
		}
	}

	return hasUpper && hasLower && hasNumber
}

type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

func GetValidationErrors(err error) []ValidationError {
	var validationErrors []ValidationError

	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		for _, e := range validationErrs {
			validationErrors = append(validationErrors, ValidationError{
				Field:   strings.ToLower(e.Field()),
				Tag:     e.Tag(),
				Message: getValidationMessage(e),
			})
		}
	}

	return validationErrors
}

func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return e.Field() + " is required"
	case "email":
		return "Invalid email format"
	case "min":
		return e.Field() + " must be at least " + e.Param() + " characters"
	case "max":
		return e.Field() + " must be at most " + e.Param() + " characters"
	case "strong_password":
		return "Password must contain at least 8 characters with uppercase, lowercase, and number"
	case "username":
		return "Username must be 3-20 characters and contain only letters, numbers, underscores, and hyphens"
	case "license_key":
		return "License key must look like XXXXX-XXXXX-XXXXX"
	default:
		return e.Field() + " is invalid"
	}
}
