package invoicing

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"constructerp/internal/models"
)

var ErrInvalidDate = errors.New("invalid date")

var billDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// NormalizeBillDate parses a bill date and truncates it to midnight UTC.
func NormalizeBillDate(v interface{}) (time.Time, error) {
	switch val := v.(type) {
	case time.Time:
		return startOfDayUTC(val), nil
	case *time.Time:
		if val != nil {
			return startOfDayUTC(*val), nil
		}
	case string:
		s := strings.TrimSpace(val)
		for _, layout := range billDateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return startOfDayUTC(t), nil
			}
		}
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, val)
	}
	return time.Time{}, ErrInvalidDate
}

// DueDate is the bill date plus the credit term's days, at the last millisecond of that UTC day.
// Unknown or empty terms yield nil.
func DueDate(billDate time.Time, creditDays *string) *time.Time {
	if creditDays == nil {
		return nil
	}
	days, ok := models.CreditDays[*creditDays]
	if !ok {
		return nil
	}
	due := startOfDayUTC(billDate).AddDate(0, 0, days).Add(24*time.Hour - time.Millisecond)
	return &due
}

// IsValidCreditDays reports whether term is one of the accepted NET_* terms.
func IsValidCreditDays(term string) bool {
	_, ok := models.CreditDays[term]
	return ok
}

func startOfDayUTC(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
