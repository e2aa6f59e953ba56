// Package validation checks catalog rows and configuration with validator/v10
// struct tags and reports failures as domain validation errors.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ohadschn/HowLongToBeatSteam-sub000/internal/domain"
	domainerrors "github.com/ohadschn/HowLongToBeatSteam-sub000/internal/errors"
)

// messages maps a failed tag to its detail text; %s receives the tag param.
var messages = map[string]string{
	"required": "is required",
	"observed": "must be positive when observed",
	"oneof":    "must be one of: %s",
	"url":      "must be a valid URL",
	"min":      "must be at least %s",
	"max":      "must not exceed %s",
	"gt":       "must be greater than %s",
	"gte":      "must be greater than or equal to %s",
}

// Validator wraps go-playground/validator with domain error conversion.
type Validator struct {
	v *validator.Validate
}

// New creates a validator that names fields by their json tag and checks
// the observed TTB fields of titles.
func New() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(jsonName)
	v.RegisterStructValidation(validateTitleTimes, domain.Title{})
	return &Validator{v: v}
}

// Validate checks s. Failures come back as an errors.ErrValidation whose
// details map each failing field path to a message. Paths are relative to
// s, e.g. "main" for a title or "Store.Path" for a config.
func (v *Validator) Validate(s any) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	details := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		details[fieldPath(fe)] = message(fe)
	}

	fields := make([]string, 0, len(details))
	for f := range details {
		fields = append(fields, f)
	}
	slices.Sort(fields)

	return domainerrors.ValidationWithDetails(
		"validation failed: "+strings.Join(fields, ", "), details)
}

func jsonName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return fld.Name
	}
	return name
}

// fieldPath drops the root struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	if _, path, ok := strings.Cut(fe.Namespace(), "."); ok {
		return path
	}
	return fe.Field()
}

func message(fe validator.FieldError) string {
	tmpl, ok := messages[fe.Tag()]
	if !ok {
		return "is invalid"
	}
	if strings.Contains(tmpl, "%s") {
		return fmt.Sprintf(tmpl, fe.Param())
	}
	return tmpl
}

// validateTitleTimes rejects observed fields that are not positive. A scraped
// zero has to be loaded as missing.
func validateTitleTimes(sl validator.StructLevel) {
	t, ok := sl.Current().Interface().(domain.Title)
	if !ok {
		return
	}
	for name, f := range map[string]domain.TTB{
		"main":          t.Main,
		"extras":        t.Extras,
		"completionist": t.Completionist,
	} {
		if f.IsObserved() && f.Value <= 0 {
			sl.ReportError(f.Value, name, name, "observed", "")
		}
	}
}
