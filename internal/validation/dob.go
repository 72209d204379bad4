// Package validation holds the client-side checks applied to a birth date
// before anything is sent to the analysis backend.
package validation

import (
	"errors"
	"strings"
	"time"
)

// DateLayout is the ISO calendar date format of the date input and the backend.
const DateLayout = "2006-01-02"

var (
	ErrDateRequired = errors.New("Please select a date")
	ErrInvalidDate  = errors.New("Please enter a valid date")
	ErrFutureDate   = errors.New("Future dates are not allowed")
)

// ValidateDOB checks input against now's calendar date and returns the parsed day.
// A birth date equal to today is accepted.
func ValidateDOB(input string, now time.Time) (time.Time, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return time.Time{}, ErrDateRequired
	}

	dob, err := time.ParseInLocation(DateLayout, input, now.Location())
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}

	if dob.After(today(now)) {
		return time.Time{}, ErrFutureDate
	}
	return dob, nil
}

// MaxDate is the latest date the form accepts, formatted for the input's max attribute.
func MaxDate(now time.Time) string {
	return now.Format(DateLayout)
}

// IsValidationError reports whether err is one of the inline form errors.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrDateRequired) || errors.Is(err, ErrInvalidDate) || errors.Is(err, ErrFutureDate)
}

func today(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
}
