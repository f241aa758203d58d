// Package convert turns raw values decoded from a YAML document into the
// native types used by package model.
//
// Every converter takes the untyped value yaml.v3 produced (nil, bool, int,
// float64, string, time.Time, []any or map[string]any) and returns the
// typed value, or nil when the input is nil. Converters never invent
// defaults.
package convert

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/httpreqs/internal/model"
)

// Conversion errors. Each converter wraps one of these so callers can use
// errors.Is regardless of the detail message.
var (
	// ErrInvalidTimestamp is returned when a value is not an epoch number.
	ErrInvalidTimestamp = errors.New("invalid timestamp")

	// ErrMalformedHeaders is returned when a header list is not a sequence
	// of [name, [values...]] pairs.
	ErrMalformedHeaders = errors.New("malformed header list")

	// ErrInvalidBool is returned when a value cannot be read as a boolean.
	ErrInvalidBool = errors.New("invalid boolean")

	// ErrInvalidFloat is returned when a value cannot be read as a number.
	ErrInvalidFloat = errors.New("invalid number")

	// ErrInvalidText is returned when a compound value is found where text
	// is expected.
	ErrInvalidText = errors.New("invalid text")

	// ErrInvalidList is returned when a non-sequence is found where a list
	// is expected.
	ErrInvalidList = errors.New("invalid list")

	// ErrInvalidMapping is returned when a non-mapping is found where a
	// mapping is expected.
	ErrInvalidMapping = errors.New("invalid mapping")
)

// Timestamp converts a Unix epoch number into a Timestamp.
// Integers, floats and numeric strings are accepted. A YAML timestamp
// value (time.Time) is accepted as well.
func Timestamp(v any) (*model.Timestamp, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		ts := model.TimestampFromTime(val)
		return &ts, nil
	case bool:
		return nil, fmt.Errorf("%w: %v", ErrInvalidTimestamp, val)
	}

	epoch, err := number(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTimestamp, v)
	}
	if math.IsNaN(epoch) || math.IsInf(epoch, 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTimestamp, v)
	}
	ts := model.NewTimestamp(epoch)
	return &ts, nil
}

// Text converts a scalar into text. Strings pass through unchanged; numbers
// and booleans are formatted the way YAML wrote them.
func Text(v any) (*string, error) {
	var s string
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		s = val
	case bool:
		s = strconv.FormatBool(val)
	case int:
		s = strconv.Itoa(val)
	case int64:
		s = strconv.FormatInt(val, 10)
	case uint64:
		s = strconv.FormatUint(val, 10)
	case float64:
		s = strconv.FormatFloat(val, 'f', -1, 64)
	case time.Time:
		s = val.Format(time.RFC3339Nano)
	default:
		return nil, fmt.Errorf("%w: got %T", ErrInvalidText, v)
	}
	return &s, nil
}

// Bool converts a boolean, the integers 0 and 1, or one of the strings
// true/false/yes/no/on/off/1/0 (case-insensitive).
func Bool(v any) (*bool, error) {
	var b bool
	switch val := v.(type) {
	case nil:
		return nil, nil
	case bool:
		b = val
	case int:
		switch val {
		case 0:
			b = false
		case 1:
			b = true
		default:
			return nil, fmt.Errorf("%w: %d", ErrInvalidBool, val)
		}
	case string:
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "true", "yes", "on", "1":
			b = true
		case "false", "no", "off", "0":
			b = false
		default:
			return nil, fmt.Errorf("%w: %q", ErrInvalidBool, val)
		}
	default:
		return nil, fmt.Errorf("%w: got %T", ErrInvalidBool, v)
	}
	return &b, nil
}

// Float converts an integer, float or numeric string. NaN and infinities
// are rejected since they have no JSON form.
func Float(v any) (*float64, error) {
	if v == nil {
		return nil, nil
	}
	if _, ok := v.(bool); ok {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFloat, v)
	}
	f, err := number(v)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("%w: %v is not finite", ErrInvalidFloat, f)
	}
	return &f, nil
}

// TextList converts a sequence of scalars into a list of text.
func TextList(v any) ([]string, error) {
	if v == nil {
		return nil, nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: got %T", ErrInvalidList, v)
	}
	out := make([]string, 0, len(items))
	for i, item := range items {
		s, err := Text(item)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		if s == nil {
			return nil, fmt.Errorf("[%d]: %w: null item", i, ErrInvalidText)
		}
		out = append(out, *s)
	}
	return out, nil
}

// TextMap converts a mapping of scalars into a text-to-text mapping.
// Null values become empty strings.
func TextMap(v any) (map[string]string, error) {
	if v == nil {
		return nil, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: got %T", ErrInvalidMapping, v)
	}
	out := make(map[string]string, len(m))
	for k, item := range m {
		s, err := Text(item)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		if s != nil {
			out[k] = *s
		} else {
			out[k] = ""
		}
	}
	return out, nil
}

// Mapping asserts that v is a mapping, returning nil for nil.
func Mapping(v any) (map[string]any, error) {
	if v == nil {
		return nil, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: got %T", ErrInvalidMapping, v)
	}
	return m, nil
}

// List asserts that v is a sequence, returning nil for nil.
func List(v any) ([]any, error) {
	if v == nil {
		return nil, nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: got %T", ErrInvalidList, v)
	}
	return items, nil
}

// number reads any numeric scalar as float64.
func number(v any) (float64, error) {
	switch val := v.(type) {
	case int:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case uint64:
		return float64(val), nil
	case float64:
		return val, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidFloat, val)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("%w: got %T", ErrInvalidFloat, v)
	}
}
