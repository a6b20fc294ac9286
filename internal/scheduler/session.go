package scheduler

import (
	"time"
)

// MarketSession represents the current NSE trading session
type MarketSession string

const (
	SessionPreOpen   MarketSession = "preopen"
	SessionMarket    MarketSession = "market"
	SessionPostClose MarketSession = "postclose"
	SessionClosed    MarketSession = "closed"
)

// ist is used when tzdata is unavailable. India has no DST, so the fixed
// offset is exact.
var ist = time.FixedZone("IST", 5*3600+30*60)

func kolkata() *time.Location {
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		return ist
	}
	return loc
}

// GetMarketSession determines the NSE session for t.
// Sessions in IST, Monday to Friday:
// - Pre-Open: 9:00 AM - 9:15 AM
// - Market: 9:15 AM - 3:30 PM
// - Post-Close: 3:30 PM - 4:00 PM
// Exchange holidays are not modelled.
func GetMarketSession(t time.Time) MarketSession {
	local := t.In(kolkata())

	weekday := local.Weekday()
	if weekday == time.Saturday || weekday == time.Sunday {
		return SessionClosed
	}

	timeOfDay := local.Hour()*60 + local.Minute() // Minutes since midnight

	switch {
	case timeOfDay >= 540 && timeOfDay < 555:
		return SessionPreOpen
	case timeOfDay >= 555 && timeOfDay < 930:
		return SessionMarket
	case timeOfDay >= 930 && timeOfDay < 960:
		return SessionPostClose
	}
	return SessionClosed
}

// IsMarketOpen returns true during the regular trading session
func IsMarketOpen(t time.Time) bool {
	return GetMarketSession(t) == SessionMarket
}

// GetMarketOpenTime returns 9:15 AM IST on the IST calendar day of date
func GetMarketOpenTime(date time.Time) time.Time {
	loc := kolkata()
	year, month, day := date.In(loc).Date()
	return time.Date(year, month, day, 9, 15, 0, 0, loc)
}

// GetMarketCloseTime returns 3:30 PM IST on the IST calendar day of date
func GetMarketCloseTime(date time.Time) time.Time {
	loc := kolkata()
	year, month, day := date.In(loc).Date()
	return time.Date(year, month, day, 15, 30, 0, 0, loc)
}

// MarketStatus describes the NSE trading day around a point in time
type MarketStatus struct {
	Session   MarketSession `json:"session"`
	IsOpen    bool          `json:"isOpen"`
	OpensAt   time.Time     `json:"opensAt"`
	ClosesAt  time.Time     `json:"closesAt"`
	NextOpen  time.Time     `json:"nextOpen"`
	Timestamp time.Time     `json:"timestamp"`
}

// GetMarketStatus reports the session at t, the regular session bounds of
// t's IST day and the next session start strictly after t.
func GetMarketStatus(t time.Time) MarketStatus {
	return MarketStatus{
		Session:   GetMarketSession(t),
		IsOpen:    IsMarketOpen(t),
		OpensAt:   GetMarketOpenTime(t),
		ClosesAt:  GetMarketCloseTime(t),
		NextOpen:  NextMarketOpen(t),
		Timestamp: t,
	}
}

// NextMarketOpen returns the first weekday 9:15 AM IST after t
func NextMarketOpen(t time.Time) time.Time {
	day := t.In(kolkata())
	for {
		open := GetMarketOpenTime(day)
		weekday := open.Weekday()
		if weekday != time.Saturday && weekday != time.Sunday && open.After(t) {
			return open
		}
		day = day.AddDate(0, 0, 1)
	}
}
