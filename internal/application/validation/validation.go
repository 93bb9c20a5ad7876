// Package validation checks edit buffers with go-playground/validator and
// reports failures as *shared.ValidationError.
package validation

import (
	"errors"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/erp/console/internal/domain/shared"
)

// Validator validates draft structs by their `validate` tags
type Validator struct {
	v *validator.Validate
}

// New creates a validator that names fields by their json tag, or by the
// lower-camel Go field name when there is none.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(fieldName)
	return &Validator{v: v}
}

func fieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name != "" && name != "-" {
		return name
	}
	runes := []rune(fld.Name)
	runes[0] = unicode.ToLower(runes[0])
	return string(runes)
}

// Struct validates s and returns the first failing field
func (v *Validator) Struct(s any) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		e := fieldErrs[0]
		return shared.NewValidationError(e.Field(), message(e))
	}
	return shared.NewValidationError("", err.Error())
}

// message returns a human-readable validation message
func message(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "min":
		if e.Kind() == reflect.String {
			return "must be at least " + e.Param() + " characters"
		}
		return "must be at least " + e.Param()
	case "max":
		if e.Kind() == reflect.String {
			return "must be at most " + e.Param() + " characters"
		}
		return "must be at most " + e.Param()
	case "oneof":
		return "must be one of: " + e.Param()
	case "gt":
		return "must be greater than " + e.Param()
	case "gte":
		return "must be greater than or equal to " + e.Param()
	default:
		return "is invalid"
	}
}
