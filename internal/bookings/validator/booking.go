package validator

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"geobus/pkg/journeytime"
	"geobus/pkg/model"
	"geobus/pkg/sanitizer"
	"geobus/pkg/validation"

	"github.com/go-playground/validator/v10"
)

type BookingValidator struct {
	validate *validator.Validate
}

func NewBookingValidator() (*BookingValidator, error) {
	v, err := validation.New()
	if err != nil {
		return nil, err
	}
	return &BookingValidator{validate: v}, nil
}

// Normalize cleans user-entered fields in place before validation.
func (v *BookingValidator) Normalize(req *model.BookSeatsRequest) {
	req.BusID = strings.TrimSpace(req.BusID)
	for i := range req.Seats {
		seat := &req.Seats[i]
		seat.SeatNumber = strings.ToUpper(sanitizer.TrimAndNormalize(seat.SeatNumber))
		seat.PassengerName = sanitizer.NormalizeName(seat.PassengerName)
		seat.PassengerGender = sanitizer.NormalizeGender(seat.PassengerGender)
	}
	req.PassengerDetails.Mobile = sanitizer.NormalizeMobile(req.PassengerDetails.Mobile)
	req.PassengerDetails.Email = sanitizer.NormalizeEmail(req.PassengerDetails.Email)
	req.PaymentMethod = strings.ToLower(strings.TrimSpace(req.PaymentMethod))
	req.UPIID = sanitizer.NormalizeUPI(req.UPIID)
	req.JourneyDate = strings.TrimSpace(req.JourneyDate)
}

// ValidateReserve checks a normalized booking request and returns the journey
// day when one was supplied. Errors name the failing field or seat.
func (v *BookingValidator) ValidateReserve(req *model.BookSeatsRequest) (*time.Time, error) {
	var errs validation.ValidationErrors

	if err := v.validate.Struct(req); err != nil {
		var validationErrs validator.ValidationErrors
		if !errors.As(err, &validationErrs) {
			return nil, err
		}
		errs = append(errs, validation.Translate(validationErrs, "")...)
	}

	errs = append(errs, v.validateSeats(req.Seats)...)

	if req.PaymentMethod == model.PaymentMethodUPI && !validation.UPIRegex.MatchString(req.UPIID) {
		errs = append(errs, validation.ValidationError{
			Field:   "upi_id",
			Message: "Invalid UPI ID format. Use: name@provider (e.g., name@paytm, name@phonepe)",
		})
	}
	if req.PaymentMethod != model.PaymentMethodUPI {
		req.UPIID = ""
	}

	var journeyDay *time.Time
	if req.JourneyDate != "" {
		day, err := journeytime.ParseDay(req.JourneyDate)
		if err != nil {
			errs = append(errs, validation.ValidationError{
				Field:   "journey_date",
				Message: "Invalid journey_date. Use YYYY-MM-DD or ISO date.",
			})
		} else {
			journeyDay = &day
		}
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return journeyDay, nil
}

func (v *BookingValidator) validateSeats(seats []model.BookedSeat) validation.ValidationErrors {
	var errs validation.ValidationErrors
	seen := make(map[string]bool, len(seats))

	for i, seat := range seats {
		label := seat.SeatNumber
		if label == "" {
			label = fmt.Sprintf("#%d", i+1)
		}
		prefix := fmt.Sprintf("seats[%s]", label)

		if seat.SeatNumber != "" {
			if seen[seat.SeatNumber] {
				errs = append(errs, validation.ValidationError{
					Field:   prefix + ".seat_number",
					Message: fmt.Sprintf("Seat %s is selected more than once", seat.SeatNumber),
				})
			}
			seen[seat.SeatNumber] = true
		}

		err := v.validate.Struct(seat)
		if err == nil {
			continue
		}
		var validationErrs validator.ValidationErrors
		if !errors.As(err, &validationErrs) {
			errs = append(errs, validation.ValidationError{Field: prefix, Message: err.Error()})
			continue
		}
		for _, fe := range validationErrs {
			errs = append(errs, validation.ValidationError{
				Field:   prefix + "." + fe.Field(),
				Message: seatMessage(fe.Field(), label),
			})
		}
	}

	return errs
}

func seatMessage(field, seat string) string {
	switch field {
	case "passenger_name":
		return "Passenger name is required for seat " + seat
	case "passenger_age":
		return "Valid age (1-120) is required for seat " + seat
	case "passenger_gender":
		return "Gender is required for seat " + seat
	default:
		return "Seat number is required for seat " + seat
	}
}
