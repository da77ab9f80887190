package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"forgedb/internal/models"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator returns the shared struct validator with ForgeDB's custom tags
// registered: "imagehost" (allow-listed image URL) and "issuetype".
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
		_ = v.RegisterValidation("imagehost", func(fl validator.FieldLevel) bool {
			return ValidateImageURL(fl.Field().String()) == nil
		})
		_ = v.RegisterValidation("issuetype", func(fl validator.FieldLevel) bool {
			return models.IssueType(fl.Field().String()).Valid()
		})
		validate = v
	})
	return validate
}

// Struct validates s and converts failures into a validation AppError whose
// message names the first offending field.
func Struct(s interface{}) error {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return models.NewValidationError(err.Error())
	}

	fe := fieldErrs[0]
	return models.NewValidationError(describe(fe))
}

func describe(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "imagehost":
		return fmt.Sprintf("%s must be an image URL on one of: %s", field, strings.Join(AllowedImageHosts, ", "))
	case "issuetype":
		return fmt.Sprintf("%s must be one of client, server, both", field)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email", field)
	default:
		return fmt.Sprintf("%s is invalid (%s)", field, fe.Tag())
	}
}
