package sanitizer

import (
	"strconv"

	"github.com/nyaruka/phonenumbers"
)

const (
	mobileRegion      = "IN"
	mobileCountryCode = 91
	mobileDigits      = 10
)

// NormalizeMobile strips whitespace and reduces an Indian number written with a
// +91, 91 or 0 prefix to its 10-digit national form. Anything it cannot
// interpret is returned with whitespace removed.
func NormalizeMobile(mobile string) string {
	mobile = removeSpaces(mobile)
	if mobile == "" || len(mobile) == mobileDigits {
		return mobile
	}

	parsed, err := phonenumbers.Parse(mobile, mobileRegion)
	if err != nil || int(parsed.GetCountryCode()) != mobileCountryCode {
		return mobile
	}

	national := strconv.FormatUint(parsed.GetNationalNumber(), 10)
	if len(national) != mobileDigits {
		return mobile
	}
	return national
}
