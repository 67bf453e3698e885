// internal/utils/validator.go
package utils

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	validate.RegisterValidation("version", validateVersion)
	validate.RegisterValidation("eco_type", validateECOType)
	validate.RegisterValidation("user_role", validateUserRole)
	validate.RegisterValidation("entity_id", validateEntityID)
}

func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}

func validateVersion(fl validator.FieldLevel) bool {
	return IsValidVersion(fl.Field().String())
}

func validateECOType(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "Product", "BoM":
		return true
	}
	return false
}

func validateUserRole(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "Admin", "Engineer", "ECO Manager", "Approver", "Operations":
		return true
	}
	return false
}

// Identifiers are human-facing codes such as "P100" or "ECO-9001".
func validateEntityID(fl validator.FieldLevel) bool {
	id := fl.Field().String()
	if id == "" || len(id) > 64 {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '.':
		default:
			return false
		}
	}
	return true
}

// Validation tags for common fields
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
				Field:   e.Field(),
				Tag:     e.Tag(),
				Message: getValidationMessage(e),
			})
		}
	}

	return validationErrors
}

// ValidationFailure converts a validator error into an AppError carrying the
// per-field details.
func ValidationFailure(err error) *AppError {
	details := GetValidationErrors(err)
	message := "invalid input"
	if len(details) > 0 {
		message = details[0].Message
	}
	return NewValidationError(message, details)
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
	case "gte":
		return e.Field() + " must be greater than or equal to " + e.Param()
	case "oneof":
		return e.Field() + " must be one of: " + e.Param()
	case "version":
		return e.Field() + " must be a dotted numeric version such as v1.2"
	case "eco_type":
		return "type must be Product or BoM"
	case "user_role":
		return "role must be one of Admin, Engineer, ECO Manager, Approver, Operations"
	case "entity_id":
		return e.Field() + " may contain only letters, digits, '-', '_' and '.'"
	default:
		return e.Field() + " is invalid"
	}
}
