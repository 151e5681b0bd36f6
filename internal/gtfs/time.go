package gtfs

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrNoFrequencies = errors.New("no frequencies")

// ParseTime parses a GTFS H:MM:SS value into seconds since midnight of the
// service day. Hours past 23 denote service after midnight.
func ParseTime(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid gtfs time %q", s)
	}
	var v [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid gtfs time %q", s)
		}
		v[i] = n
	}
	if v[1] > 59 || v[2] > 59 {
		return 0, fmt.Errorf("invalid gtfs time %q", s)
	}
	return v[0]*3600 + v[1]*60 + v[2], nil
}

// CoverFrequencies returns the earliest start, the latest end and the
// smallest headway across the given rows.
func CoverFrequencies(freqs []Frequency) (Coverage, error) {
	if len(freqs) == 0 {
		return Coverage{}, ErrNoFrequencies
	}
	c := Coverage{StartSec: freqs[0].StartSec, EndSec: freqs[0].EndSec, HeadwaySecs: freqs[0].HeadwaySecs}
	for _, f := range freqs[1:] {
		c.StartSec = min(c.StartSec, f.StartSec)
		c.EndSec = max(c.EndSec, f.EndSec)
		if f.HeadwaySecs > 0 && (c.HeadwaySecs <= 0 || f.HeadwaySecs < c.HeadwaySecs) {
			c.HeadwaySecs = f.HeadwaySecs
		}
	}
	if c.HeadwaySecs <= 0 {
		return Coverage{}, fmt.Errorf("%w: no positive headway", ErrNoFrequencies)
	}
	if c.EndSec <= c.StartSec {
		return Coverage{}, fmt.Errorf("%w: end %d not after start %d", ErrNoFrequencies, c.EndSec, c.StartSec)
	}
	return c, nil
}
