package schedule

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidWindow = errors.New("invalid service window")

// DefaultServiceStart is the fixed daily opening of the line.
var DefaultServiceStart = TimeOfDay{Hour: 5, Minute: 30}

// ServiceWindow is the daily operating schedule of one line.
//
// The service day is anchored at DailyStart: when DailyEnd is not after
// DailyStart on the clock face, the end falls on the following calendar day.
// All comparisons are made on offsets from DailyStart, so 00:30 belongs to the
// window that opened at 05:30 the day before.
type ServiceWindow struct {
	DailyStart      TimeOfDay
	DailyEnd        TimeOfDay
	LastWindowStart TimeOfDay
	HeadwayMinutes  int
}

// Validate checks DailyStart < LastWindowStart < DailyEnd within one service
// day and a positive headway.
func (w ServiceWindow) Validate() error {
	if w.HeadwayMinutes <= 0 {
		return fmt.Errorf("%w: headway must be positive, got %d", ErrInvalidWindow, w.HeadwayMinutes)
	}
	end := w.offset(w.DailyEnd.Seconds())
	if end == 0 {
		return fmt.Errorf("%w: service end %s equals service start", ErrInvalidWindow, w.DailyEnd)
	}
	last := w.offset(w.LastWindowStart.Seconds())
	if last == 0 || last >= end {
		return fmt.Errorf("%w: last window start %s must fall strictly between %s and %s",
			ErrInvalidWindow, w.LastWindowStart, w.DailyStart, w.DailyEnd)
	}
	return nil
}

// Overnight reports whether the service day crosses midnight.
func (w ServiceWindow) Overnight() bool {
	return w.DailyEnd.Seconds() <= w.DailyStart.Seconds()
}

func (w ServiceWindow) Headway() time.Duration {
	return time.Duration(w.HeadwayMinutes) * time.Minute
}

// offset maps seconds since midnight onto seconds since DailyStart.
func (w ServiceWindow) offset(sec int) int {
	d := (sec - w.DailyStart.Seconds()) % secondsPerDay
	if d < 0 {
		d += secondsPerDay
	}
	return d
}
