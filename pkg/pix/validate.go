package pix

import (
	"fmt"
	"regexp"
	"time"
)

var (
	amountPattern = regexp.MustCompile(`^[0-9]{1,10}\.[0-9]{2}$`)
	txidPattern   = regexp.MustCompile(`^[A-Za-z0-9]{26,35}$`)
	datePattern   = regexp.MustCompile(`^[0-9]{4}-[0-9]{2}-[0-9]{2}-[0-9]{2}-[0-9]{2}-[0-9]{2}$`)
)

// DateLayout is the caller-facing layout for list ranges (YYYY-MM-DD-HH-MM-SS).
const DateLayout = "2006-01-02-15-04-05"

// ValidateAmount accepts decimal BRL amounts with exactly two fraction digits.
func ValidateAmount(s string) error {
	if !amountPattern.MatchString(s) {
		return fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return nil
}

// ValidateTxid accepts 26 to 35 ASCII letters and digits.
func ValidateTxid(s string) error {
	if !txidPattern.MatchString(s) {
		return fmt.Errorf("%w: %q", ErrInvalidTxid, s)
	}
	return nil
}

// ValidateDateRange checks both endpoints and returns them as RFC 3339 UTC
// timestamps. The input carries no zone and is taken to be UTC already.
func ValidateDateRange(start, end string) (string, string, error) {
	s, err := parseRangeDate(start)
	if err != nil {
		return "", "", err
	}
	e, err := parseRangeDate(end)
	if err != nil {
		return "", "", err
	}
	return s.Format(time.RFC3339), e.Format(time.RFC3339), nil
}

func parseRangeDate(v string) (time.Time, error) {
	if !datePattern.MatchString(v) {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDateRange, v)
	}
	t, err := time.ParseInLocation(DateLayout, v, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDateRange, v)
	}
	return t, nil
}
