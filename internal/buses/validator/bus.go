package validator

import (
	"errors"

	"geobus/pkg/journeytime"
	"geobus/pkg/model"
	"geobus/pkg/validation"

	"github.com/go-playground/validator/v10"
)

type BusValidator struct {
	validate *validator.Validate
}

func NewBusValidator() (*BusValidator, error) {
	v, err := validation.New()
	if err != nil {
		return nil, err
	}
	return &BusValidator{validate: v}, nil
}

// Validate checks a bus about to be inserted.
func (v *BusValidator) Validate(bus *model.Bus) error {
	if err := v.validate.Struct(bus); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return validation.Translate(validationErrs, "")
		}
		return err
	}

	var errs validation.ValidationErrors
	for field, clock := range map[string]string{
		"departure_time": bus.DepartureTime,
		"arrival_time":   bus.ArrivalTime,
	} {
		if !journeytime.IsClock(clock) {
			errs = append(errs, validation.ValidationError{
				Field:   field,
				Message: field + " must look like 10:30 PM or 22:30",
			})
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}
