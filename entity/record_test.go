package entity

import (
	"regexp"
	"testing"
	"time"

	"github.com/dekarrin/sms"
	"github.com/stretchr/testify/assert"
)

func Test_Record_ID(t *testing.T) {
	testCases := []struct {
		name   string
		input  Record
		expect string
	}{
		{name: "missing", input: Record{}, expect: ""},
		{name: "string", input: Record{"id": "STU0001"}, expect: "STU0001"},
		{name: "whole float", input: Record{"id": 42.0}, expect: "42"},
		{name: "fractional float", input: Record{"id": 4.5}, expect: "4.5"},
		{name: "int", input: Record{"id": 7}, expect: "7"},
		{name: "nil record", input: nil, expect: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			assert.Equal(tc.expect, tc.input.ID())
		})
	}
}

func Test_Record_Clone(t *testing.T) {
	assert := assert.New(t)

	orig := Record{
		"items": []any{map[string]any{"amount": 10.0}},
		"meta":  map[string]any{"term": "1"},
	}

	clone := orig.Clone()
	clone["items"].([]any)[0].(map[string]any)["amount"] = 20.0
	clone["meta"].(map[string]any)["term"] = "2"

	assert.Equal(10.0, orig["items"].([]any)[0].(map[string]any)["amount"])
	assert.Equal("1", orig["meta"].(map[string]any)["term"])
}

func Test_Record_Merge(t *testing.T) {
	assert := assert.New(t)

	orig := Record{"a": 1.0, "b": 2.0, "nested": map[string]any{"x": 1.0, "y": 2.0}}

	merged := orig.Merge(Record{"b": 3.0, "nested": map[string]any{"x": 5.0}})

	assert.Equal(Record{"a": 1.0, "b": 3.0, "nested": map[string]any{"x": 5.0}}, merged)
	assert.Equal(2.0, orig["b"], "original must not change")
}

func Test_Record_Time(t *testing.T) {
	testCases := []struct {
		name     string
		input    any
		expect   time.Time
		expectOK bool
	}{
		{
			name:     "millisecond ISO",
			input:    "2024-03-01T08:30:00.250Z",
			expect:   time.Date(2024, time.March, 1, 8, 30, 0, 250000000, time.UTC),
			expectOK: true,
		},
		{
			name:     "date only",
			input:    "2024-03-01",
			expect:   time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
			expectOK: true,
		},
		{
			name:     "not a time",
			input:    "tomorrow",
			expectOK: false,
		},
		{
			name:     "number",
			input:    12.0,
			expectOK: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			actual, ok := Record{"when": tc.input}.Time("when")

			assert.Equal(tc.expectOK, ok)
			if tc.expectOK {
				assert.True(tc.expect.Equal(actual), "expected %v, got %v", tc.expect, actual)
			}
		})
	}
}

func Test_FormatTime(t *testing.T) {
	assert := assert.New(t)

	loc := time.FixedZone("GMT+1", 3600)
	input := time.Date(2024, time.March, 1, 9, 30, 0, 123456789, loc)

	assert.Equal("2024-03-01T08:30:00.123Z", FormatTime(input))
}

type recordTestStudent struct {
	ID        string  `json:"id,omitempty"`
	FirstName string  `json:"firstName"`
	Fees      float64 `json:"fees"`
}

func Test_ToRecord_FromRecord(t *testing.T) {
	assert := assert.New(t)

	r, err := ToRecord(recordTestStudent{FirstName: "Ama", Fees: 250})
	if !assert.NoError(err) {
		return
	}
	assert.Equal(Record{"firstName": "Ama", "fees": 250.0}, r)

	r["id"] = "STU0001"
	s, err := FromRecord[recordTestStudent](r)
	if !assert.NoError(err) {
		return
	}
	assert.Equal(recordTestStudent{ID: "STU0001", FirstName: "Ama", Fees: 250}, s)
}

func Test_FromRecord_wrongType(t *testing.T) {
	assert := assert.New(t)

	_, err := FromRecord[recordTestStudent](Record{"fees": "lots"})

	assert.ErrorIs(err, sms.ErrDecodingFailure)
}

func Test_ToRecord_unencodable(t *testing.T) {
	assert := assert.New(t)

	_, err := ToRecord(map[string]any{"ch": make(chan int)})

	assert.ErrorIs(err, sms.ErrBadArgument)
}

func Test_TimestampIDs(t *testing.T) {
	assert := assert.New(t)

	fixed := time.UnixMilli(1700000000123)
	gen := TimestampIDs{Now: func() time.Time { return fixed }}

	id1, err := gen.NewID()
	if !assert.NoError(err) {
		return
	}
	id2, err := gen.NewID()
	if !assert.NoError(err) {
		return
	}

	assert.Regexp(regexp.MustCompile(`^1700000000123_[0-9a-z]{9}$`), id1)
	assert.NotEqual(id1, id2)
}

func Test_UUIDs(t *testing.T) {
	assert := assert.New(t)

	id, err := UUIDs{}.NewID()

	assert.NoError(err)
	assert.Regexp(regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`), id)
}

func Test_GeneratorFor(t *testing.T) {
	testCases := []struct {
		name      string
		scheme    sms.IDScheme
		expect    IDGenerator
		expectErr bool
	}{
		{name: "timestamp", scheme: sms.IDTimestamp, expect: TimestampIDs{}},
		{name: "blank", scheme: "", expect: TimestampIDs{}},
		{name: "uuid", scheme: sms.IDUUID, expect: UUIDs{}},
		{name: "unknown", scheme: "serial", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			actual, err := GeneratorFor(tc.scheme)
			if tc.expectErr {
				assert.Error(err)
				return
			}
			assert.NoError(err)
			assert.IsType(tc.expect, actual)
		})
	}
}

func Test_NextSerial(t *testing.T) {
	testCases := []struct {
		name    string
		records []Record
		prefix  string
		width   int
		expect  string
	}{
		{
			name:   "empty",
			prefix: "STU",
			width:  4,
			expect: "STU0001",
		},
		{
			name: "after highest",
			records: []Record{
				{"studentId": "STU0003"},
				{"studentId": "STU0010"},
				{"studentId": "STU0002"},
			},
			prefix: "STU",
			width:  4,
			expect: "STU0011",
		},
		{
			name: "ignores other prefixes and junk",
			records: []Record{
				{"studentId": "STAFF0099"},
				{"studentId": "STUxyz"},
				{"studentId": 5.0},
				{},
			},
			prefix: "STU",
			width:  4,
			expect: "STU0001",
		},
		{
			name:    "overflows width",
			records: []Record{{"studentId": "BILL999999"}},
			prefix:  "BILL",
			width:   6,
			expect:  "BILL1000000",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			actual := NextSerial(tc.records, "studentId", tc.prefix, tc.width)

			assert.Equal(tc.expect, actual)
		})
	}
}
