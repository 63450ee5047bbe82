package database

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	boolCol      = TargetColumn{Name: "active", DataType: "boolean", UDTName: "bool"}
	jsonbCol     = TargetColumn{Name: "meta", DataType: "jsonb", UDTName: "jsonb"}
	jsonCol      = TargetColumn{Name: "meta", DataType: "json", UDTName: "json"}
	numericCol   = TargetColumn{Name: "price", DataType: "numeric", UDTName: "numeric"}
	timestampCol = TargetColumn{Name: "createdAt", DataType: "timestamp without time zone", UDTName: "timestamp"}
	textCol      = TargetColumn{Name: "name", DataType: "text", UDTName: "text"}
)

func TestConvertValueNil(t *testing.T) {
	for _, col := range []TargetColumn{boolCol, jsonbCol, numericCol, timestampCol, textCol} {
		assert.Nil(t, ConvertValue(nil, col), col.DataType)
	}
}

func TestConvertValueBoolean(t *testing.T) {
	tests := []struct {
		in   any
		want bool
	}{
		{int64(0), false},
		{int64(1), true},
		{int64(2), true},
		{"0", false},
		{"1", true},
		{"true", true},
		{"TRUE", true},
		{"t", true},
		{"false", false},
		{"yes", true},
		{"no", false},
		{[]byte("1"), true},
		{[]byte("0"), true},
		{[]byte{}, false},
		{true, true},
		{false, false},
		{float64(0), false},
		{float64(1), true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ConvertValue(tt.in, boolCol), "input %#v", tt.in)
	}
}

func TestConvertValueJSON(t *testing.T) {
	t.Run("valid text round-trips", func(t *testing.T) {
		src := `{"name":"pizza","sizes":[1,2,3],"extra":{"cheese":true},"price":12.5}`
		got := ConvertValue(src, jsonbCol)

		jv, ok := got.(JSONValue)
		require.True(t, ok, "expected JSONValue, got %T", got)

		v, err := jv.Value()
		require.NoError(t, err)
		require.IsType(t, "", v)

		var want, back any
		require.NoError(t, json.Unmarshal([]byte(src), &want))
		require.NoError(t, json.Unmarshal([]byte(v.(string)), &back))
		assert.Equal(t, want, back)
	})

	t.Run("text is sent verbatim", func(t *testing.T) {
		// wider than a float64 mantissa, plus characters json.Marshal would escape
		src := `{"id":12345678901234567890,"n":9007199254740993,"tag":"<b>&"}`
		jv, ok := ConvertValue(src, jsonbCol).(JSONValue)
		require.True(t, ok)

		v, err := jv.Value()
		require.NoError(t, err)
		assert.Equal(t, src, v)

		dec := json.NewDecoder(strings.NewReader(v.(string)))
		dec.UseNumber()
		var doc map[string]any
		require.NoError(t, dec.Decode(&doc))
		assert.Equal(t, json.Number("12345678901234567890"), doc["id"])
		assert.Equal(t, json.Number("9007199254740993"), doc["n"])
	})

	t.Run("udt name alone marks json", func(t *testing.T) {
		col := TargetColumn{Name: "payload", DataType: "USER-DEFINED", UDTName: "jsonb"}
		assert.IsType(t, JSONValue{}, ConvertValue(`[1,2]`, col))
	})

	t.Run("json data type", func(t *testing.T) {
		assert.IsType(t, JSONValue{}, ConvertValue(`"plain"`, jsonCol))
	})

	t.Run("bytes are validated", func(t *testing.T) {
		got := ConvertValue([]byte(`{"a":1}`), jsonbCol)
		assert.Equal(t, JSONValue{Data: json.RawMessage(`{"a":1}`)}, got)
	})

	t.Run("structured values are wrapped", func(t *testing.T) {
		m := map[string]any{"a": "b"}
		assert.Equal(t, JSONValue{Data: m}, ConvertValue(m, jsonbCol))

		v, err := JSONValue{Data: m}.Value()
		require.NoError(t, err)
		assert.Equal(t, `{"a":"b"}`, v)

		l := []any{"x", float64(2)}
		assert.Equal(t, JSONValue{Data: l}, ConvertValue(l, jsonbCol))
	})

	t.Run("invalid text passes through", func(t *testing.T) {
		for _, src := range []string{`{not json`, `hello`, ``, `{"a":1} trailing`} {
			assert.Equal(t, src, ConvertValue(src, jsonbCol))
		}
	})

	t.Run("other types pass through", func(t *testing.T) {
		assert.Equal(t, int64(7), ConvertValue(int64(7), jsonbCol))
	})
}

func TestConvertValueNumeric(t *testing.T) {
	assert.Nil(t, ConvertValue("", numericCol))
	assert.Equal(t, "12.50", ConvertValue("12.50", numericCol))
	assert.Equal(t, "abc", ConvertValue("abc", numericCol))
	assert.Equal(t, int64(3), ConvertValue(int64(3), numericCol))
	assert.Equal(t, 4.25, ConvertValue(4.25, numericCol))
}

func TestConvertValueTimestampEpochMillis(t *testing.T) {
	got := ConvertValue(int64(1700000000123), timestampCol)
	want := time.Date(2023, 11, 14, 22, 13, 20, 123000000, time.UTC)
	assert.Equal(t, want, got)

	assert.Equal(t, time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC), ConvertValue(int64(0), timestampCol))
	assert.Equal(t, time.Date(1969, 12, 31, 23, 59, 59, 0, time.UTC), ConvertValue(int64(-1000), timestampCol))
}

func TestConvertValueTimestampOutOfRange(t *testing.T) {
	for _, ms := range []int64{
		253402300800000, // 10000-01-01
		-62135596800001, // one millisecond before year 1
		9223372036854775807,
		-9223372036854775808,
	} {
		assert.Nil(t, ConvertValue(ms, timestampCol), "ms %d", ms)
	}

	assert.Equal(t,
		time.Date(9999, 12, 31, 23, 59, 59, 999000000, time.UTC),
		ConvertValue(int64(253402300799999), timestampCol))
	assert.Equal(t,
		time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC),
		ConvertValue(int64(-62135596800000), timestampCol))
}

func TestConvertValueTimestampStrings(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-03-05T06:07:08.123Z", time.Date(2024, 3, 5, 6, 7, 8, 123000000, time.UTC)},
		{"2024-03-05T06:07:08Z", time.Date(2024, 3, 5, 6, 7, 8, 0, time.UTC)},
		{"2024-03-05 06:07:08.123456", time.Date(2024, 3, 5, 6, 7, 8, 123456000, time.UTC)},
		{"2024-03-05 06:07:08", time.Date(2024, 3, 5, 6, 7, 8, 0, time.UTC)},
		{"2024-03-05T06:07:08.5", time.Date(2024, 3, 5, 6, 7, 8, 500000000, time.UTC)},
		{"2024-03-05T06:07:08", time.Date(2024, 3, 5, 6, 7, 8, 0, time.UTC)},
	}

	for _, tt := range tests {
		got := ConvertValue(tt.in, timestampCol)
		assert.Equal(t, tt.want, got, tt.in)

		// the same instant also survives as bytes
		assert.Equal(t, tt.want, ConvertValue([]byte(tt.in), timestampCol), tt.in)
	}
}

func TestConvertValueTimestampPassThrough(t *testing.T) {
	assert.Equal(t, "yesterday", ConvertValue("yesterday", timestampCol))
	assert.Equal(t, "05/03/2024", ConvertValue("05/03/2024", timestampCol))
	assert.Equal(t, 1.5, ConvertValue(1.5, timestampCol))

	tz := time.FixedZone("BRT", -3*60*60)
	in := time.Date(2024, 3, 5, 3, 7, 8, 0, tz)
	assert.Equal(t, time.Date(2024, 3, 5, 6, 7, 8, 0, time.UTC), ConvertValue(in, timestampCol))
}

func TestConvertValueTimestampWithTimeZone(t *testing.T) {
	col := TargetColumn{Name: "paidAt", DataType: "timestamp with time zone", UDTName: "timestamptz"}
	assert.Equal(t, time.Date(2024, 3, 5, 6, 7, 8, 0, time.UTC), ConvertValue("2024-03-05 06:07:08", col))
}

func TestConvertValueOtherTypes(t *testing.T) {
	for _, v := range []any{"hello", int64(1), 2.5, []byte{0x00, 0x01}, "", true} {
		assert.Equal(t, v, ConvertValue(v, textCol))
	}
}
