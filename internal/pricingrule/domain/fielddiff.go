package domain

import (
	"fmt"

	"github.com/lib/pq"
	"github.com/spf13/cast"
)

// updatableFields is the allow-list for partial rule updates. Anything not
// listed here is rejected before it reaches SQL.
var updatableFields = map[string]func(any) (any, error){
	"name":             asText,
	"category":         asNullableText,
	"region":           asNullableText,
	"postal_prefix":    asNullableText,
	"city":             asNullableText,
	"days_of_week":     asDays,
	"window_start_min": asNullableMinute,
	"window_end_min":   asNullableMinute,
	"is_emergency":     asNullableBool,
	"base_price_cents": asCents,
	"multiplier":       asMultiplier,
	"priority":         asPriority,
	"active":           asBool,
}

// BuildUpdate validates a raw field map against the allow-list and returns a
// typed diff ready to hand to a parameterized UPDATE.
func BuildUpdate(fields map[string]any) (map[string]any, error) {
	if len(fields) == 0 {
		return nil, ErrEmptyUpdate
	}
	diff := make(map[string]any, len(fields))
	for name, raw := range fields {
		coerce, ok := updatableFields[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrInvalidField, name)
		}
		value, err := coerce(raw)
		if err != nil {
			return nil, err
		}
		diff[name] = value
	}
	return diff, nil
}

func asText(raw any) (any, error) {
	s, err := cast.ToStringE(raw)
	if err != nil || s == "" {
		return nil, ErrInvalidRuleName
	}
	return s, nil
}

func asNullableText(raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}
	s, err := cast.ToStringE(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: expected string", ErrInvalidField)
	}
	if s == "" {
		return nil, nil
	}
	return s, nil
}

func asDays(raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}
	values, err := cast.ToIntSliceE(raw)
	if err != nil {
		return nil, ErrInvalidDays
	}
	days := make(pq.Int64Array, 0, len(values))
	for _, d := range values {
		if d < 0 || d > 6 {
			return nil, ErrInvalidDays
		}
		days = append(days, int64(d))
	}
	return days, nil
}

func asNullableMinute(raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}
	minute, err := cast.ToIntE(raw)
	if err != nil || minute < 0 || minute > 1439 {
		return nil, ErrInvalidWindow
	}
	return minute, nil
}

func asNullableBool(raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}
	b, err := cast.ToBoolE(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: expected bool", ErrInvalidField)
	}
	return b, nil
}

func asBool(raw any) (any, error) {
	b, err := cast.ToBoolE(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: expected bool", ErrInvalidField)
	}
	return b, nil
}

func asCents(raw any) (any, error) {
	cents, err := cast.ToInt64E(raw)
	if err != nil || cents < 0 {
		return nil, ErrInvalidPrice
	}
	return cents, nil
}

func asMultiplier(raw any) (any, error) {
	m, err := cast.ToFloat64E(raw)
	if err != nil || m < 0 {
		return nil, ErrInvalidMultiplier
	}
	return m, nil
}

func asPriority(raw any) (any, error) {
	p, err := cast.ToIntE(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: expected integer priority", ErrInvalidField)
	}
	return p, nil
}
