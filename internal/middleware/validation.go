package middleware

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	apierrors "licensor/internal/errors"
)

// RequestValidator wraps a validator.Validate configured to report field
// names by their JSON tags. Handlers run bound request structs through it
// before touching the service layer.
type RequestValidator struct {
	validate *validator.Validate
}

// NewRequestValidator creates the validator used by all handlers.
func NewRequestValidator() *RequestValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &RequestValidator{validate: v}
}

// Struct validates a bound request struct, translating the first failure
// into a field-level API validation error.
func (rv *RequestValidator) Struct(req interface{}) error {
	err := rv.validate.Struct(req)
	if err == nil {
		return nil
	}
	if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
		first := verrs[0]
		return apierrors.ErrValidation(first.Field(), validationMessage(first))
	}
	return apierrors.InvalidInputWithError(err)
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "is too short"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	default:
		return "is invalid"
	}
}
