package util

import (
	"testing"
	"time"
)

func TestFormatSeconds(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "00:00:00.000"},
		{1.5, "00:00:01.500"},
		{59.999, "00:00:59.999"},
		{61.25, "00:01:01.250"},
		{3661.001, "01:01:01.001"},
		{-5, "00:00:00.000"},
	}

	for _, tc := range cases {
		if got := FormatSeconds(tc.in); got != tc.want {
			t.Errorf("FormatSeconds(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	d := 90*time.Second + 500*time.Millisecond
	if got := FormatDuration(d); got != "00:01:30.500" {
		t.Errorf("FormatDuration(%v) = %q", d, got)
	}
}

func TestParseTimestamp(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
	}{
		{"5", 5 * time.Second},
		{"5.25", 5*time.Second + 250*time.Millisecond},
		{"1:30", 90 * time.Second},
		{"01:01:01.5", time.Hour + time.Minute + time.Second + 500*time.Millisecond},
		{"  10  ", 10 * time.Second},
	}

	for _, tc := range cases {
		got, err := ParseTimestamp(tc.in)
		if err != nil {
			t.Errorf("ParseTimestamp(%q) error: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseTimestamp(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestParseTimestampInvalid(t *testing.T) {
	for _, in := range []string{"", "a:b", "1:2:3:4", "one"} {
		if _, err := ParseTimestamp(in); err == nil {
			t.Errorf("ParseTimestamp(%q) should fail", in)
		}
	}
}

func TestParseFrameRate(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"30/1", 30},
		{"30000/1001", 29.97002997002997},
		{"0/0", 0},
		{"30", 0},
		{"garbage", 0},
	}

	for _, tc := range cases {
		if got := ParseFrameRate(tc.in); got != tc.want {
			t.Errorf("ParseFrameRate(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestClamp(t *testing.T) {
	if got := Clamp(5, 0, 10); got != 5 {
		t.Errorf("Clamp(5, 0, 10) = %v", got)
	}
	if got := Clamp(-1, 0, 10); got != 0 {
		t.Errorf("Clamp(-1, 0, 10) = %v", got)
	}
	if got := Clamp(11, 0, 10); got != 10 {
		t.Errorf("Clamp(11, 0, 10) = %v", got)
	}
}
