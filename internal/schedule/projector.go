package schedule

import (
	"encoding/json"
	"iter"
	"slices"
	"time"
)

const (
	MinSeriesCount = 1
	MaxSeriesCount = 5
)

// Projection is either an arrival estimate or, when ServiceClosed is set, the
// closed sentinel carrying only the timezone label.
type Projection struct {
	ServiceClosed  bool
	NextArrival    TimeOfDay
	ArrivalAt      time.Time
	IsLastTrain    bool
	HeadwayMinutes int
	Timezone       string
}

func closed(tz string) Projection {
	return Projection{ServiceClosed: true, Timezone: tz}
}

// IsServiceOpen reports whether clock lies within the window, both bounds
// included. The time of day is read in clock's own location.
func IsServiceOpen(clock time.Time, w ServiceWindow) bool {
	return w.offset(secondsOfDay(clock)) <= w.offset(w.DailyEnd.Seconds())
}

// Project computes the next arrival after clock. The last-train flag is
// evaluated against clock, not against the projected arrival.
func Project(clock time.Time, w ServiceWindow) Projection {
	tz := clock.Location().String()
	if !IsServiceOpen(clock, w) {
		return closed(tz)
	}
	next := clock.Add(w.Headway())
	return Projection{
		NextArrival:    At(next),
		ArrivalAt:      next,
		IsLastTrain:    w.offset(secondsOfDay(clock)) >= w.offset(w.LastWindowStart.Seconds()),
		HeadwayMinutes: w.HeadwayMinutes,
		Timezone:       tz,
	}
}

// ClampCount bounds a requested series length to [MinSeriesCount, MaxSeriesCount].
func ClampCount(n int) int {
	return min(max(n, MinSeriesCount), MaxSeriesCount)
}

// Series yields up to count chained projections. Each step projects from the
// previous step's arrival instant, so the calendar date is carried across
// midnight. The sequence ends after the first closed sentinel.
func Series(clock time.Time, w ServiceWindow, count int) iter.Seq[Projection] {
	count = ClampCount(count)
	return func(yield func(Projection) bool) {
		running := clock
		for range count {
			p := Project(running, w)
			if !yield(p) || p.ServiceClosed {
				return
			}
			running = p.ArrivalAt
		}
	}
}

func ProjectSeries(clock time.Time, w ServiceWindow, count int) []Projection {
	return slices.Collect(Series(clock, w, count))
}

// Projector binds a window to the zone its clock readings are interpreted in.
// It holds no mutable state and is safe for concurrent use.
type Projector struct {
	window ServiceWindow
	loc    *time.Location
}

func NewProjector(w ServiceWindow, loc *time.Location) *Projector {
	if loc == nil {
		loc = time.Local
	}
	return &Projector{window: w, loc: loc}
}

func (p *Projector) Window() ServiceWindow { return p.window }

func (p *Projector) Location() *time.Location { return p.loc }

func (p *Projector) Timezone() string { return p.loc.String() }

func (p *Projector) IsOpen(clock time.Time) bool {
	return IsServiceOpen(clock.In(p.loc), p.window)
}

func (p *Projector) Project(clock time.Time) Projection {
	return Project(clock.In(p.loc), p.window)
}

func (p *Projector) Series(clock time.Time, count int) iter.Seq[Projection] {
	return Series(clock.In(p.loc), p.window, count)
}

func (p *Projector) ProjectSeries(clock time.Time, count int) []Projection {
	return ProjectSeries(clock.In(p.loc), p.window, count)
}

// MarshalJSON renders a board entry: the closed sentinel as
// {"service":"closed"}, otherwise arrival, last-train flag and headway.
// The timezone label is carried once by the enclosing response.
func (p Projection) MarshalJSON() ([]byte, error) {
	if p.ServiceClosed {
		return json.Marshal(struct {
			Service string `json:"service"`
		}{"closed"})
	}
	return json.Marshal(struct {
		NextArrival TimeOfDay `json:"nextArrival"`
		IsLast      bool      `json:"isLast"`
		HeadwayMin  int       `json:"headwayMin"`
	}{p.NextArrival, p.IsLastTrain, p.HeadwayMinutes})
}
