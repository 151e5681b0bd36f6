package gtfs

// Frequency is one row of frequencies.txt: headway-based service for a trip.
type Frequency struct {
	TripID      string
	StartSec    int // seconds since midnight (can exceed 24h)
	EndSec      int // seconds since midnight (can exceed 24h)
	HeadwaySecs int
}

// Coverage is the span of frequency-based service for a route over one service day.
type Coverage struct {
	StartSec    int
	EndSec      int
	HeadwaySecs int
}

// HeadwayMinutes rounds the headway up to whole minutes, never below one.
func (c Coverage) HeadwayMinutes() int {
	m := (c.HeadwaySecs + 59) / 60
	if m < 1 {
		m = 1
	}
	return m
}
