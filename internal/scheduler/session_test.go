package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetMarketSession(t *testing.T) {
	tests := []struct {
		name     string
		timeStr  string // UTC, "2006-01-02 15:04:05"
		expected MarketSession
	}{
		{"Pre-Open", "2024-01-15 03:35:00", SessionPreOpen},      // 9:05 AM IST
		{"Market open", "2024-01-15 03:45:00", SessionMarket},    // 9:15 AM IST
		{"Market mid", "2024-01-15 07:00:00", SessionMarket},     // 12:30 PM IST
		{"Market late", "2024-01-15 09:59:00", SessionMarket},    // 3:29 PM IST
		{"Post-Close", "2024-01-15 10:00:00", SessionPostClose},  // 3:30 PM IST
		{"Evening", "2024-01-15 13:00:00", SessionClosed},        // 6:30 PM IST
		{"Early morning", "2024-01-15 02:00:00", SessionClosed},  // 7:30 AM IST
		{"Saturday", "2024-01-13 06:00:00", SessionClosed},
		{"Sunday", "2024-01-14 06:00:00", SessionClosed},
		{"Friday evening UTC is Saturday IST", "2024-01-19 20:00:00", SessionClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testTime, err := time.Parse("2006-01-02 15:04:05", tt.timeStr)
			if err != nil {
				t.Fatalf("Failed to parse time: %v", err)
			}
			assert.Equal(t, tt.expected, GetMarketSession(testTime))
		})
	}
}

func TestMarketOpenCloseTimes(t *testing.T) {
	day := time.Date(2024, 1, 15, 7, 0, 0, 0, time.UTC)

	open := GetMarketOpenTime(day)
	assert.True(t, open.Equal(time.Date(2024, 1, 15, 3, 45, 0, 0, time.UTC)))

	close := GetMarketCloseTime(day)
	assert.True(t, close.Equal(time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)))

	assert.True(t, IsMarketOpen(open))
	assert.False(t, IsMarketOpen(close))
}

func TestGetMarketStatus(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+30*60)

	tests := []struct {
		name     string
		at       time.Time
		session  MarketSession
		open     bool
		nextOpen time.Time
	}{
		{
			name:     "monday session",
			at:       time.Date(2024, 1, 15, 12, 30, 0, 0, ist),
			session:  SessionMarket,
			open:     true,
			nextOpen: time.Date(2024, 1, 16, 9, 15, 0, 0, ist),
		},
		{
			name:     "monday before pre-open",
			at:       time.Date(2024, 1, 15, 8, 0, 0, 0, ist),
			session:  SessionClosed,
			nextOpen: time.Date(2024, 1, 15, 9, 15, 0, 0, ist),
		},
		{
			name:     "friday post-close",
			at:       time.Date(2024, 1, 19, 15, 45, 0, 0, ist),
			session:  SessionPostClose,
			nextOpen: time.Date(2024, 1, 22, 9, 15, 0, 0, ist),
		},
		{
			name:     "sunday",
			at:       time.Date(2024, 1, 14, 12, 30, 0, 0, ist),
			session:  SessionClosed,
			nextOpen: time.Date(2024, 1, 15, 9, 15, 0, 0, ist),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status := GetMarketStatus(tt.at)
			assert.Equal(t, tt.session, status.Session)
			assert.Equal(t, tt.open, status.IsOpen)
			assert.True(t, status.NextOpen.Equal(tt.nextOpen), "next open %v", status.NextOpen)

			year, month, day := tt.at.Date()
			assert.True(t, status.OpensAt.Equal(time.Date(year, month, day, 9, 15, 0, 0, ist)))
			assert.True(t, status.ClosesAt.Equal(time.Date(year, month, day, 15, 30, 0, 0, ist)))
			assert.True(t, status.Timestamp.Equal(tt.at))
		})
	}
}
