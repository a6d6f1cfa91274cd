package quarry

import (
	"errors"
	"testing"
	"time"
)

func TestFormatTimestamp(t *testing.T) {
	tests := []struct {
		in   time.Time
		want string
	}{
		{time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), "2024-01-02T03:04:05"},
		{time.Date(2024, 1, 2, 3, 4, 5, 120_000_000, time.UTC), "2024-01-02T03:04:05.12"},
		{time.Date(2024, 1, 2, 3, 4, 5, 1, time.UTC), "2024-01-02T03:04:05.000000001"},
		{time.Date(2024, 1, 2, 5, 4, 5, 0, time.FixedZone("x", 2*3600)), "2024-01-02T03:04:05"},
	}

	for _, tt := range tests {
		if got := FormatTimestamp(tt.in); got != tt.want {
			t.Errorf("FormatTimestamp(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-01-02T03:04:05", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)},
		{"2024-01-02T03:04:05.123", time.Date(2024, 1, 2, 3, 4, 5, 123_000_000, time.UTC)},
		{"2024-01-02T03:04:05.1234567891", time.Date(2024, 1, 2, 3, 4, 5, 123_456_789, time.UTC)},
		{"2024-01-02", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
		{"2024/1/2 3:4:5", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)},
		{"2024-01-02T03:04:05+02:00", time.Date(2024, 1, 2, 1, 4, 5, 0, time.UTC)},
		{"2024-01-02T03:04:05Z", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimestamp(tt.in)
			if err != nil {
				t.Fatalf("ParseTimestamp() error: %v", err)
			}
			if !got.Equal(tt.want) || got.Location() != time.UTC {
				t.Errorf("ParseTimestamp() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseTimestampInvalid(t *testing.T) {
	for _, in := range []string{"", "2024-01", "20240102", "2024-13-01", "2024-02-30", "2024-01-02T24:00:00", "not a date"} {
		if _, err := ParseTimestamp(in); !errors.Is(err, ErrInvalidTimestamp) {
			t.Errorf("ParseTimestamp(%q) error = %v, want ErrInvalidTimestamp", in, err)
		}
	}
}

func TestTimestampRoundTrip(t *testing.T) {
	in := time.Date(1999, 12, 31, 23, 59, 59, 987_654_321, time.UTC)
	out, err := ParseTimestamp(FormatTimestamp(in))
	if err != nil {
		t.Fatalf("ParseTimestamp() error: %v", err)
	}
	if !out.Equal(in) {
		t.Errorf("round trip = %v, want %v", out, in)
	}
}

func TestDate(t *testing.T) {
	d, err := ParseDate("2024-03-09T10:11:12")
	if err != nil {
		t.Fatalf("ParseDate() error: %v", err)
	}
	want := Date{Year: 2024, Month: time.March, Day: 9}
	if d != want {
		t.Errorf("ParseDate() = %v, want %v", d, want)
	}
	if d.String() != "2024-03-09" {
		t.Errorf("String() = %q", d.String())
	}
	if d.IsZero() || !(Date{}).IsZero() {
		t.Error("IsZero() mismatch")
	}
	if got := d.In(time.UTC); !got.Equal(time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("In() = %v", got)
	}
	if DateOf(time.Date(2024, 3, 9, 23, 0, 0, 0, time.UTC)) != want {
		t.Error("DateOf() mismatch")
	}

	if _, err := ParseDate("March 9"); !errors.Is(err, ErrInvalidTimestamp) {
		t.Errorf("ParseDate(invalid) error = %v", err)
	}
}

func TestDateText(t *testing.T) {
	d := Date{Year: 7, Month: time.January, Day: 2}
	text, err := d.MarshalText()
	if err != nil || string(text) != "0007-01-02" {
		t.Fatalf("MarshalText() = %q, %v", text, err)
	}

	var back Date
	if err := back.UnmarshalText(text); err != nil || back != d {
		t.Errorf("UnmarshalText() = %v, %v", back, err)
	}
	if err := back.UnmarshalText([]byte("bad")); err == nil {
		t.Error("UnmarshalText(bad) should fail")
	}
}

func TestDateSQL(t *testing.T) {
	want := Date{Year: 2020, Month: time.February, Day: 29}

	v, err := want.Value()
	if err != nil || v != "2020-02-29" {
		t.Errorf("Value() = %v, %v", v, err)
	}

	tests := []struct {
		name string
		src  any
		want Date
	}{
		{"string", "2020-02-29", want},
		{"bytes", []byte("2020-02-29"), want},
		{"time", time.Date(2020, 2, 29, 12, 0, 0, 0, time.UTC), want},
		{"nil", nil, Date{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Date{Year: 1}
			if err := d.Scan(tt.src); err != nil {
				t.Fatalf("Scan() error: %v", err)
			}
			if d != tt.want {
				t.Errorf("Scan() = %v, want %v", d, tt.want)
			}
		})
	}

	var d Date
	if err := d.Scan(42); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("Scan(int) error = %v, want ErrTypeMismatch", err)
	}
}
