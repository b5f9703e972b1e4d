package match

import (
	"testing"
	"time"

	"github.com/gocoa/ruleengine"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func datePtr(s string) *time.Time {
	d := date(s)
	return &d
}

func TestIsValidOn_OpenEndedWindow(t *testing.T) {
	code := &ruleengine.SegmentCode{
		SegmentID: "fund",
		Value:     "101",
		Active:    true,
		ValidFrom: date("2020-01-01"),
	}

	tests := []struct {
		name string
		on   string
		want bool
	}{
		{"well inside window", "2025-01-01", true},
		{"on validFrom day", "2020-01-01", true},
		{"day before validFrom", "2019-12-31", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidOn(code, date(tt.on)); got != tt.want {
				t.Errorf("IsValidOn(%s) = %v; want %v", tt.on, got, tt.want)
			}
		})
	}
}

func TestIsValidOn_BoundedWindow(t *testing.T) {
	code := &ruleengine.SegmentCode{
		SegmentID: "fund",
		Value:     "101",
		Active:    true,
		ValidFrom: date("2020-01-01"),
		ValidTo:   datePtr("2024-12-31"),
	}

	tests := []struct {
		name string
		on   string
		want bool
	}{
		{"inside window", "2022-06-15", true},
		{"on validTo day", "2024-12-31", true},
		{"day after validTo", "2025-01-01", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidOn(code, date(tt.on)); got != tt.want {
				t.Errorf("IsValidOn(%s) = %v; want %v", tt.on, got, tt.want)
			}
		})
	}
}

func TestIsValidOn_InactiveCode(t *testing.T) {
	code := &ruleengine.SegmentCode{
		SegmentID: "fund",
		Value:     "101",
		Active:    false,
		ValidFrom: date("2020-01-01"),
	}

	if IsValidOn(code, date("2025-01-01")) {
		t.Error("inactive code should never be valid, even inside its window")
	}
}

func TestIsValidOn_NilCode(t *testing.T) {
	if IsValidOn(nil, date("2025-01-01")) {
		t.Error("nil code should not be valid")
	}
}

func TestIsValidOn_IgnoresTimeOfDay(t *testing.T) {
	code := &ruleengine.SegmentCode{
		SegmentID: "fund",
		Value:     "101",
		Active:    true,
		ValidFrom: date("2020-01-01"),
		ValidTo:   datePtr("2020-01-01"),
	}

	// 23:59 on the last valid day still counts.
	on := time.Date(2020, 1, 1, 23, 59, 59, 0, time.UTC)
	if !IsValidOn(code, on) {
		t.Error("time-of-day should be ignored; end of validTo day is still valid")
	}
}
