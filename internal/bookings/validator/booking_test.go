package validator

import (
	"errors"
	"testing"
	"time"

	"geobus/pkg/model"
	"geobus/pkg/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRequest() *model.BookSeatsRequest {
	return &model.BookSeatsRequest{
		BusID: "507f1f77bcf86cd799439011",
		Seats: []model.BookedSeat{
			{SeatNumber: " s01 ", PassengerName: "  Asha   Rao ", PassengerAge: 30, PassengerGender: " Female "},
			{SeatNumber: "S02", PassengerName: "Ravi", PassengerAge: 8, PassengerGender: "male"},
		},
		PassengerDetails: model.PassengerDetails{Mobile: "+91-98765-43210", Email: "ASHA@Example.com"},
		PaymentMethod:    " UPI ",
		UPIID:            " Asha@OKAXIS ",
	}
}

func fields(err error) []string {
	var verrs validation.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make([]string, len(verrs))
	for i, e := range verrs {
		out[i] = e.Field
	}
	return out
}

func TestNormalize(t *testing.T) {
	v, err := NewBookingValidator()
	require.NoError(t, err)

	req := validRequest()
	v.Normalize(req)

	assert.Equal(t, "S01", req.Seats[0].SeatNumber)
	assert.Equal(t, "Asha Rao", req.Seats[0].PassengerName)
	assert.Equal(t, "female", req.Seats[0].PassengerGender)
	assert.Equal(t, "9876543210", req.PassengerDetails.Mobile)
	assert.Equal(t, "asha@example.com", req.PassengerDetails.Email)
	assert.Equal(t, "upi", req.PaymentMethod)
	assert.Equal(t, "asha@okaxis", req.UPIID)

	day, err := v.ValidateReserve(req)
	require.NoError(t, err)
	assert.Nil(t, day)
}

func TestValidateReserve_JourneyDate(t *testing.T) {
	v, err := NewBookingValidator()
	require.NoError(t, err)

	req := validRequest()
	req.JourneyDate = "2026-05-02"
	v.Normalize(req)

	day, err := v.ValidateReserve(req)
	require.NoError(t, err)
	require.NotNil(t, day)
	assert.Equal(t, time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC), *day)
}

func TestValidateReserve_CollectsEveryError(t *testing.T) {
	v, err := NewBookingValidator()
	require.NoError(t, err)

	req := validRequest()
	req.Seats[0].PassengerAge = 0
	req.Seats[1].PassengerName = ""
	req.PassengerDetails.Email = "nobody"
	req.UPIID = "no-at-sign"
	v.Normalize(req)

	_, err = v.ValidateReserve(req)
	require.Error(t, err)
	assert.ElementsMatch(t, []string{
		"passenger_details.email",
		"seats[S01].passenger_age",
		"seats[S02].passenger_name",
		"upi_id",
	}, fields(err))

	var verrs validation.ValidationErrors
	require.True(t, errors.As(err, &verrs))
	for _, e := range verrs {
		if e.Field == "seats[S02].passenger_name" {
			assert.Equal(t, "Passenger name is required for seat S02", e.Message)
		}
	}
}

func TestValidateReserve_UnlabelledSeat(t *testing.T) {
	v, err := NewBookingValidator()
	require.NoError(t, err)

	req := validRequest()
	req.Seats[1].SeatNumber = ""
	v.Normalize(req)

	_, err = v.ValidateReserve(req)
	assert.Equal(t, []string{"seats[#2].seat_number"}, fields(err))
}

func TestValidateReserve_QRDropsUPI(t *testing.T) {
	v, err := NewBookingValidator()
	require.NoError(t, err)

	req := validRequest()
	req.PaymentMethod = "qr"
	req.UPIID = "garbage"
	v.Normalize(req)

	_, err = v.ValidateReserve(req)
	require.NoError(t, err)
	assert.Empty(t, req.UPIID)
}
