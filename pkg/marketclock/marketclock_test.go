package marketclock

import (
	"testing"
	"time"
)

func TestNormalizeRegularSession(t *testing.T) {
	cases := []struct {
		name    string
		utc     time.Time
		date    string
		tod     string
		regular bool
	}{
		// 2024-03-14 is a Thursday under EDT (UTC-4).
		{"mid session", time.Date(2024, 3, 14, 14, 0, 0, 0, time.UTC), "2024-03-14", "10:00:00", true},
		{"open inclusive", time.Date(2024, 3, 14, 13, 30, 0, 0, time.UTC), "2024-03-14", "09:30:00", true},
		{"just before open", time.Date(2024, 3, 14, 13, 29, 59, 0, time.UTC), "2024-03-14", "09:29:59", false},
		{"last second", time.Date(2024, 3, 14, 19, 59, 59, 0, time.UTC), "2024-03-14", "15:59:59", true},
		{"close exclusive", time.Date(2024, 3, 14, 20, 0, 0, 0, time.UTC), "2024-03-14", "16:00:00", false},
		{"after hours", time.Date(2024, 3, 14, 22, 0, 0, 0, time.UTC), "2024-03-14", "18:00:00", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			date, tod, regular := Normalize(tc.utc)
			if date != tc.date || tod != tc.tod || regular != tc.regular {
				t.Fatalf("Normalize(%v) = (%s, %s, %v), want (%s, %s, %v)",
					tc.utc, date, tod, regular, tc.date, tc.tod, tc.regular)
			}
		})
	}
}

func TestNormalizeWeekend(t *testing.T) {
	// 2024-03-16 is a Saturday; time-of-day is inside session hours.
	sat := time.Date(2024, 3, 16, 14, 0, 0, 0, time.UTC)
	if IsRegularSession(sat) {
		t.Fatalf("expected Saturday %v to be outside the regular session", sat)
	}
}

func TestNormalizeDSTOffsets(t *testing.T) {
	// January runs on EST (UTC-5): 14:30 UTC is the open.
	est := time.Date(2024, 1, 16, 14, 30, 0, 0, time.UTC)
	if _, tod, regular := Normalize(est); tod != "09:30:00" || !regular {
		t.Fatalf("EST open: got (%s, %v), want (09:30:00, true)", tod, regular)
	}
	// July runs on EDT (UTC-4): 13:30 UTC is the open.
	edt := time.Date(2024, 7, 16, 13, 30, 0, 0, time.UTC)
	if _, tod, regular := Normalize(edt); tod != "09:30:00" || !regular {
		t.Fatalf("EDT open: got (%s, %v), want (09:30:00, true)", tod, regular)
	}
}

func TestTradingDateCrossesMidnight(t *testing.T) {
	// 03:00 UTC is still the previous evening in New York.
	ts := time.Date(2024, 3, 15, 3, 0, 0, 0, time.UTC)
	if got := TradingDate(ts); got != "2024-03-14" {
		t.Fatalf("TradingDate(%v) = %s, want 2024-03-14", ts, got)
	}
}
