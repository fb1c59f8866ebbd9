package transform

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"time"
)

// DateLayout is the stored form of DateAsString values.
const DateLayout = "2006-01-02"

// String stores values as text; nil stays nil.
var String = Codec{
	Name:   "string",
	Encode: toNullableString,
	Decode: toNullableString,
}

// EmptyNullString stores nil as the empty string.
var EmptyNullString = Codec{
	Name: "empty_null_string",
	Encode: func(v any) (any, error) {
		if v == nil {
			return "", nil
		}
		return toString(v), nil
	},
	Decode: func(v any) (any, error) {
		if v == nil {
			return "", nil
		}
		return toString(v), nil
	},
}

// Int stores values as int64.
var Int = Codec{
	Name:   "int",
	Encode: func(v any) (any, error) { return toInt64(v) },
	Decode: func(v any) (any, error) { return toInt64(v) },
}

// Float stores values as float64; a NULL decodes to NaN.
var Float = Codec{
	Name:   "float",
	Encode: func(v any) (any, error) { return toFloat64(v) },
	Decode: func(v any) (any, error) {
		if v == nil {
			return math.NaN(), nil
		}
		return toFloat64(v)
	},
}

// BoolAsInt stores booleans as 0/1.
var BoolAsInt = Codec{
	Name: "bool_as_int",
	Encode: func(v any) (any, error) {
		b, err := toBool(v)
		if err != nil {
			return nil, err
		}
		if b {
			return int64(1), nil
		}
		return int64(0), nil
	},
	Decode: func(v any) (any, error) { return toBool(v) },
}

// JSON stores values as JSON text.
var JSON = Codec{
	Name:   "json",
	Encode: marshalJSON,
	Decode: unmarshalJSON,
}

// NullableJSON is JSON where a NULL decodes to nil.
var NullableJSON = Codec{
	Name:   "nullable_json",
	Encode: marshalJSON,
	Decode: func(v any) (any, error) {
		if v == nil {
			return nil, nil
		}
		return unmarshalJSON(v)
	},
}

// DateAsString stores dates as YYYY-MM-DD text and decodes to time.Time.
var DateAsString = Codec{
	Name:   "date_as_string",
	Encode: func(v any) (any, error) { return formatTime(v, DateLayout) },
	Decode: func(v any) (any, error) { return time.Parse(DateLayout, toString(v)) },
}

// NullableDateAsString is DateAsString where nil and "" are stored as "".
var NullableDateAsString = Codec{
	Name: "nullable_date_as_string",
	Encode: func(v any) (any, error) {
		if v == nil || v == "" {
			return "", nil
		}
		return formatTime(v, DateLayout)
	},
	Decode: func(v any) (any, error) {
		if v == nil || toString(v) == "" {
			return nil, nil
		}
		return time.Parse(DateLayout, toString(v))
	},
}

// DateTimeAsString stores timestamps as RFC 3339 text.
var DateTimeAsString = Codec{
	Name: "datetime_as_string",
	Encode: func(v any) (any, error) {
		if s, ok := v.(string); ok {
			t, err := parseDateTime(s)
			if err != nil {
				return nil, err
			}
			return t.Format(time.RFC3339Nano), nil
		}
		return formatTime(v, time.RFC3339Nano)
	},
	Decode: func(v any) (any, error) { return parseDateTime(toString(v)) },
}

// NullableDateTimeAsString is DateTimeAsString where nil and "" are stored as "".
var NullableDateTimeAsString = Codec{
	Name: "nullable_datetime_as_string",
	Encode: func(v any) (any, error) {
		if v == nil || v == "" {
			return "", nil
		}
		if s, ok := v.(string); ok {
			return s, nil
		}
		return formatTime(v, time.RFC3339Nano)
	},
	Decode: func(v any) (any, error) {
		if v == nil || toString(v) == "" {
			return nil, nil
		}
		return parseDateTime(toString(v))
	},
}

// FloatAsString stores floats as text.
var FloatAsString = Codec{
	Name: "float_as_string",
	Encode: func(v any) (any, error) {
		f, err := toFloat64(v)
		if err != nil {
			return nil, err
		}
		return strconv.FormatFloat(f, 'g', -1, 64), nil
	},
	Decode: func(v any) (any, error) { return toFloat64(v) },
}

// Category accepts only the given values on encode.
func Category(values ...string) Codec {
	return Codec{
		Name: "category",
		Encode: func(v any) (any, error) {
			s := toString(v)
			if !slices.Contains(values, s) {
				return nil, fmt.Errorf("category %q not in %v", s, values)
			}
			return s, nil
		},
		Decode: func(v any) (any, error) { return toNullableString(v) },
	}
}

// List stores a slice as a JSON array whose items are encoded by inner.
func List(inner Codec) Codec {
	return Codec{
		Name: "list_" + inner.Name,
		Encode: func(v any) (any, error) {
			items, ok := v.([]any)
			if !ok {
				return nil, fmt.Errorf("list codec: expected []any, got %T", v)
			}
			encoded := make([]any, len(items))
			for i, item := range items {
				ev, err := inner.Apply(item, Encode)
				if err != nil {
					return nil, fmt.Errorf("[%d]: %w", i, err)
				}
				encoded[i] = ev
			}
			return marshalJSON(encoded)
		},
		Decode: func(v any) (any, error) {
			var items []any
			if err := json.Unmarshal([]byte(toString(v)), &items); err != nil {
				return nil, fmt.Errorf("list codec: %w", err)
			}
			for i, item := range items {
				dv, err := inner.Apply(item, Decode)
				if err != nil {
					return nil, fmt.Errorf("[%d]: %w", i, err)
				}
				items[i] = dv
			}
			return items, nil
		},
	}
}

// Nullable wraps inner so nil passes through in both directions.
func Nullable(inner Codec) Codec {
	wrap := func(dir Direction) func(any) (any, error) {
		return func(v any) (any, error) {
			if v == nil {
				return nil, nil
			}
			return inner.Apply(v, dir)
		}
	}
	return Codec{
		Name:   "nullable_" + inner.Name,
		Encode: wrap(Encode),
		Decode: wrap(Decode),
	}
}

func toString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []byte:
		return string(val)
	case nil:
		return ""
	default:
		return fmt.Sprint(val)
	}
}

func toNullableString(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	return toString(v), nil
}

func toInt64(v any) (int64, error) {
	switch val := v.(type) {
	case int:
		return int64(val), nil
	case int8:
		return int64(val), nil
	case int16:
		return int64(val), nil
	case int32:
		return int64(val), nil
	case int64:
		return val, nil
	case uint:
		return int64(val), nil
	case uint8:
		return int64(val), nil
	case uint16:
		return int64(val), nil
	case uint32:
		return int64(val), nil
	case uint64:
		return int64(val), nil
	case float32:
		return int64(val), nil
	case float64:
		return int64(val), nil
	case bool:
		if val {
			return 1, nil
		}
		return 0, nil
	case string, []byte:
		return strconv.ParseInt(toString(val), 10, 64)
	default:
		return 0, fmt.Errorf("cannot convert %T to int", v)
	}
}

func toFloat64(v any) (float64, error) {
	switch val := v.(type) {
	case float64:
		return val, nil
	case float32:
		return float64(val), nil
	case string, []byte:
		return strconv.ParseFloat(toString(val), 64)
	default:
		i, err := toInt64(v)
		if err != nil {
			return 0, fmt.Errorf("cannot convert %T to float", v)
		}
		return float64(i), nil
	}
}

func toBool(v any) (bool, error) {
	if b, ok := v.(bool); ok {
		return b, nil
	}
	i, err := toInt64(v)
	if err != nil {
		return false, fmt.Errorf("cannot convert %T to bool", v)
	}
	return i != 0, nil
}

func marshalJSON(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func unmarshalJSON(v any) (any, error) {
	var out any
	if err := json.Unmarshal([]byte(toString(v)), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func formatTime(v any, layout string) (any, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case time.Time:
		return val.Format(layout), nil
	default:
		return nil, fmt.Errorf("cannot format %T as time", v)
	}
}

func parseDateTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05", DateLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse %q as datetime", s)
}
