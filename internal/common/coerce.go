package common

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// ToNumberOrNull reads a money or quantity field from untrusted input.
// nil, empty strings and anything that does not parse to a finite number yield nil.
func ToNumberOrNull(v interface{}) *float64 {
	var f float64

	switch val := v.(type) {
	case nil:
		return nil
	case *float64:
		if val == nil {
			return nil
		}
		f = *val
	case float64:
		f = val
	case float32:
		f = float64(val)
	case int:
		f = float64(val)
	case int8:
		f = float64(val)
	case int16:
		f = float64(val)
	case int32:
		f = float64(val)
	case int64:
		f = float64(val)
	case uint:
		f = float64(val)
	case uint8:
		f = float64(val)
	case uint16:
		f = float64(val)
	case uint32:
		f = float64(val)
	case uint64:
		f = float64(val)
	case bool:
		if val {
			f = 1
		}
	case json.Number:
		parsed, err := val.Float64()
		if err != nil {
			return nil
		}
		f = parsed
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return nil
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// ToNumberOrZero is ToNumberOrNull with 0 in place of nil.
func ToNumberOrZero(v interface{}) float64 {
	return SafeFloat64(ToNumberOrNull(v))
}

// ToBoolean canonicalizes a flag. Recognized strings are matched case-insensitively;
// anything else falls back to truthiness.
func ToBoolean(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case *bool:
		return val != nil && *val
	case string:
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "true", "1", "yes", "y":
			return true
		case "false", "0", "no", "n":
			return false
		}
		return val != ""
	}

	if n := ToNumberOrNull(v); n != nil {
		return *n != 0
	}
	switch val := v.(type) {
	case float64:
		// NaN
		return false
	case float32:
		return !math.IsNaN(float64(val))
	}
	return true
}

// NormalizeID turns a foreign key from untrusted input into a non-empty string or nil.
func NormalizeID(v interface{}) *string {
	switch val := v.(type) {
	case nil:
		return nil
	case *string:
		if val == nil {
			return nil
		}
		return NormalizeID(*val)
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return nil
		}
		return &s
	case json.Number:
		return NormalizeID(val.String())
	case float64, int, int64:
		s := strings.TrimSpace(strconv.FormatFloat(ToNumberOrZero(val), 'f', -1, 64))
		return &s
	}
	return nil
}

// StringOrNil returns a trimmed string pointer for text fields, nil when absent.
func StringOrNil(v interface{}) *string {
	switch val := v.(type) {
	case string:
		if strings.TrimSpace(val) == "" {
			return nil
		}
		return &val
	case *string:
		if val == nil {
			return nil
		}
		return StringOrNil(*val)
	case json.Number:
		s := val.String()
		return &s
	case float64:
		s := strconv.FormatFloat(val, 'f', -1, 64)
		return &s
	}
	return nil
}

// StringValue reads a text field as a plain string, "" when absent.
func StringValue(v interface{}) string {
	return SafeString(StringOrNil(v))
}

// Float64Ptr returns a pointer to f.
func Float64Ptr(f float64) *float64 {
	return &f
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}
