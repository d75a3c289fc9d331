// Package validation holds the go-playground validator setup shared by the
// domain validators: field-error types, json field naming, and the custom
// contact and payment tags.
package validation

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	apperrors "geobus/pkg/errors"

	"github.com/go-playground/validator/v10"
)

const (
	TagMobile = "mobile_in"
	TagEmail  = "email_strict"
	TagUPI    = "upi_id"
)

var (
	MobileRegex = regexp.MustCompile(`^[6-9]\d{9}$`)
	EmailRegex  = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	UPIRegex    = regexp.MustCompile(`^[a-zA-Z0-9.\-_]{2,256}@[a-zA-Z]{2,64}$`)
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

// ToAppError converts field errors into a VALIDATION_ERROR whose message is the
// first problem and whose details list all of them.
func (v ValidationErrors) ToAppError() *apperrors.AppError {
	if len(v) == 0 {
		return apperrors.Validation("Validation failed", nil)
	}
	return apperrors.Validation(v[0].Message, map[string]any{
		"field":  v[0].Field,
		"errors": []ValidationError(v),
	})
}

// New returns a validator that reports json field names and knows the custom tags.
func New() (*validator.Validate, error) {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	custom := map[string]*regexp.Regexp{
		TagMobile: MobileRegex,
		TagEmail:  EmailRegex,
		TagUPI:    UPIRegex,
	}
	for tag, re := range custom {
		re := re
		if err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return re.MatchString(fl.Field().String())
		}); err != nil {
			return nil, fmt.Errorf("register %q: %w", tag, err)
		}
	}

	return v, nil
}

// Translate turns validator output into readable field errors. prefix, when
// set, is prepended to every field name.
func Translate(errs validator.ValidationErrors, prefix string) ValidationErrors {
	var out ValidationErrors

	for _, err := range errs {
		field := fieldPath(err)
		if prefix != "" {
			field = prefix + "." + field
		}

		message := err.Error()
		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", field)
		case "min":
			if err.Kind() == reflect.Slice {
				message = fmt.Sprintf("%s must contain at least %s item(s)", field, err.Param())
			} else if err.Kind() == reflect.String {
				message = fmt.Sprintf("%s must be at least %s characters", field, err.Param())
			} else {
				message = fmt.Sprintf("%s must be at least %s", field, err.Param())
			}
		case "max":
			if err.Kind() == reflect.String {
				message = fmt.Sprintf("%s must be at most %s characters", field, err.Param())
			} else {
				message = fmt.Sprintf("%s must be at most %s", field, err.Param())
			}
		case "gt":
			message = fmt.Sprintf("%s must be greater than %s", field, err.Param())
		case "nefield":
			message = fmt.Sprintf("%s must differ from %s", field, strings.ToLower(err.Param()))
		case "mongodb":
			message = fmt.Sprintf("%s must be a valid id", field)
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", field, err.Param())
		case TagMobile:
			message = "Invalid mobile number. Must be 10 digits starting with 6-9"
		case TagEmail:
			message = "Invalid email address. Must contain @ and a valid domain (e.g., name@example.com)"
		case TagUPI:
			message = "Invalid UPI ID format. Use: name@provider (e.g., name@paytm, name@phonepe)"
		}

		out = append(out, ValidationError{
			Field:   field,
			Message: message,
		})
	}

	return out
}

// fieldPath is the json path of the failing field below the validated struct,
// e.g. "passenger_details.mobile".
func fieldPath(err validator.FieldError) string {
	ns := err.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return err.Field()
}
