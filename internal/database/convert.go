package database

import (
	"database/sql/driver"
	"encoding/json"
	"strings"
	"time"
)

// timestampLayouts are tried in order for text timestamps. Prisma writes
// the first two; the rest cover values written by hand or by older tools.
var timestampLayouts = []string{
	"2006-01-02T15:04:05.999999Z",
	"2006-01-02T15:04:05Z",
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
}

// JSONValue carries a JSON document to a json/jsonb column. Data is either
// the validated source text (json.RawMessage) or an already decoded value.
type JSONValue struct {
	Data any
}

// Value implements driver.Valuer. The document is sent as text so that
// lib/pq does not encode it as bytea. Raw text goes out byte for byte, which
// keeps integers wider than a float64 mantissa intact.
func (j JSONValue) Value() (driver.Value, error) {
	if raw, ok := j.Data.(json.RawMessage); ok {
		return string(raw), nil
	}
	b, err := json.Marshal(j.Data)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (c TargetColumn) isBoolean() bool {
	return c.DataType == "boolean"
}

func (c TargetColumn) isJSON() bool {
	return c.DataType == "json" || c.UDTName == "json" || c.UDTName == "jsonb"
}

func (c TargetColumn) isNumeric() bool {
	return c.DataType == "numeric"
}

func (c TargetColumn) isTimestamp() bool {
	return strings.Contains(c.DataType, "timestamp")
}

// ConvertValue turns a raw SQLite value into what the target column expects.
// Values it cannot interpret are returned unchanged and left for PostgreSQL
// to accept or reject.
func ConvertValue(v any, col TargetColumn) any {
	if v == nil {
		return nil
	}

	switch {
	case col.isBoolean():
		return toBool(v)
	case col.isJSON():
		return toJSON(v)
	case col.isNumeric():
		if s, ok := v.(string); ok && s == "" {
			return nil
		}
		return v
	case col.isTimestamp():
		return toTimestamp(v)
	default:
		return v
	}
}

func toBool(v any) any {
	switch val := v.(type) {
	case bool:
		return val
	case int64:
		return val != 0
	case int:
		return val != 0
	case int32:
		return val != 0
	case float64:
		return val != 0
	case string:
		return truthy(val)
	case []byte:
		// blobs are not text: any non-empty value counts as set
		return len(val) > 0
	default:
		return v
	}
}

func truthy(s string) bool {
	switch strings.ToLower(s) {
	case "1", "true", "t", "yes":
		return true
	}
	return false
}

func toJSON(v any) any {
	var text string
	switch val := v.(type) {
	case map[string]any, []any:
		return JSONValue{Data: val}
	case string:
		text = val
	case []byte:
		text = string(val)
	default:
		return v
	}

	if !json.Valid([]byte(text)) {
		return v
	}
	return JSONValue{Data: json.RawMessage(text)}
}

func toTimestamp(v any) any {
	switch val := v.(type) {
	case int64:
		return fromEpochMillis(val)
	case int:
		return fromEpochMillis(int64(val))
	case time.Time:
		return naiveUTC(val)
	case string:
		if t, ok := parseTimestamp(val); ok {
			return t
		}
		return v
	case []byte:
		if t, ok := parseTimestamp(string(val)); ok {
			return t
		}
		return v
	default:
		return v
	}
}

// fromEpochMillis returns nil when the instant falls outside the years a
// PostgreSQL timestamp (and most clients) can round-trip.
func fromEpochMillis(ms int64) any {
	const maxSeconds = 253402300799 // 9999-12-31T23:59:59Z
	const minSeconds = -62135596800 // 0001-01-01T00:00:00Z
	sec := ms / 1000
	if sec > maxSeconds || sec < minSeconds || (sec == minSeconds && ms%1000 < 0) {
		return nil
	}
	return naiveUTC(time.UnixMilli(ms))
}

func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return naiveUTC(t), true
		}
	}
	return time.Time{}, false
}

// naiveUTC drops any zone information so the wall clock is UTC.
func naiveUTC(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), u.Hour(), u.Minute(), u.Second(), u.Nanosecond(), time.UTC)
}
