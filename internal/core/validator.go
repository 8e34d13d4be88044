// AngelaMos | 2026
// validator.go

package core

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// NewValidator returns the validator shared by every handler. Field errors
// are reported with their JSON names and the notblank tag is registered for
// free-text fields.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})

	//nolint:errcheck // registration only fails on an empty tag
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	return v
}
