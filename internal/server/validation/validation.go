// Package validation checks caller input with go-playground/validator and
// reports failures as *common.ValidationError keyed by JSON field name.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/dmitrijs2005/rooftop/internal/common"
	"github.com/dmitrijs2005/rooftop/internal/server/models"
	"github.com/go-playground/validator/v10"
)

// Validator is safe for concurrent use. It also satisfies echo.Validator.
type Validator struct {
	v *validator.Validate
}

var enums = map[string][]string{
	"bourough":     models.Bouroughs,
	"crowdcontrol": models.CrowdControls,
	"partytype":    models.PartyTypes,
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})

	for tag, allowed := range enums {
		allowed := allowed
		// Registration only fails on an empty tag or nil func.
		_ = v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return slices.Contains(allowed, fl.Field().String())
		})
	}

	return &Validator{v: v}
}

// Struct validates s. A nil error means s passed.
func (v *Validator) Struct(s any) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	out := &common.ValidationError{Fields: make(map[string]string, len(fieldErrs))}
	for _, fe := range fieldErrs {
		out.Fields[fe.Field()] = message(fe)
	}
	return out
}

// Validate is Struct under the name echo expects.
func (v *Validator) Validate(i interface{}) error {
	return v.Struct(i)
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "alphanum":
		return "must contain only letters and digits"
	case "url":
		return "must be a valid URL"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return "must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return "must be at most " + fe.Param()
	case "gte":
		return "must not be less than " + fe.Param()
	case "len":
		return fmt.Sprintf("must be exactly %s characters", fe.Param())
	}
	if allowed, ok := enums[fe.Tag()]; ok {
		return "must be one of: " + strings.Join(allowed, ", ")
	}
	return "is invalid"
}
