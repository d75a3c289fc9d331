package validator

import (
	"errors"

	"geobus/pkg/model"
	"geobus/pkg/sanitizer"
	"geobus/pkg/validation"

	"github.com/go-playground/validator/v10"
)

type UserValidator struct {
	validate *validator.Validate
}

func NewUserValidator() (*UserValidator, error) {
	v, err := validation.New()
	if err != nil {
		return nil, err
	}
	return &UserValidator{validate: v}, nil
}

// NormalizeRegister trims and canonicalizes contact fields. The password is
// left untouched.
func (v *UserValidator) NormalizeRegister(req *model.RegisterRequest) {
	req.Name = sanitizer.NormalizeName(req.Name)
	req.Email = sanitizer.NormalizeEmail(req.Email)
	req.Mobile = sanitizer.NormalizeMobile(req.Mobile)
}

func (v *UserValidator) ValidateRegister(req *model.RegisterRequest) error {
	return v.check(req)
}

func (v *UserValidator) ValidateLogin(req *model.LoginRequest) error {
	req.Email = sanitizer.NormalizeEmail(req.Email)
	return v.check(req)
}

func (v *UserValidator) check(s any) error {
	if err := v.validate.Struct(s); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return validation.Translate(validationErrs, "")
		}
		return err
	}
	return nil
}
