package schedule

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "time/tzdata"
)

var cet = time.FixedZone("CET", 3600)

func metroWindow() ServiceWindow {
	return ServiceWindow{
		DailyStart:      TimeOfDay{Hour: 5, Minute: 30},
		DailyEnd:        TimeOfDay{Hour: 1, Minute: 15},
		LastWindowStart: TimeOfDay{Hour: 0, Minute: 45},
		HeadwayMinutes:  3,
	}
}

func clockAt(h, m, s int) time.Time {
	return time.Date(2025, time.March, 12, h, m, s, 0, cet)
}

func TestProject_DaytimeArrival(t *testing.T) {
	p := Project(clockAt(8, 0, 0), metroWindow())
	assert.False(t, p.ServiceClosed)
	assert.Equal(t, "08:03", p.NextArrival.String())
	assert.False(t, p.IsLastTrain)
	assert.Equal(t, 3, p.HeadwayMinutes)
	assert.Equal(t, "CET", p.Timezone)
}

func TestProject_LastWindowAfterMidnight(t *testing.T) {
	p := Project(clockAt(0, 50, 0), metroWindow())
	require.False(t, p.ServiceClosed)
	assert.True(t, p.IsLastTrain)
	assert.Equal(t, "00:53", p.NextArrival.String())
}

func TestProject_ClosedSentinel(t *testing.T) {
	p := Project(clockAt(2, 0, 0), metroWindow())
	assert.Equal(t, Projection{ServiceClosed: true, Timezone: "CET"}, p)
}

func TestIsServiceOpen_Boundaries(t *testing.T) {
	w := metroWindow()
	cases := []struct {
		name  string
		clock time.Time
		open  bool
	}{
		{"exact start", clockAt(5, 30, 0), true},
		{"just before start", clockAt(5, 29, 59), false},
		{"exact end", clockAt(1, 15, 0), true},
		{"just after end", clockAt(1, 15, 1), false},
		{"midnight", clockAt(0, 0, 0), true},
		{"small hours", clockAt(3, 0, 0), false},
		{"late evening", clockAt(23, 59, 59), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.open, IsServiceOpen(tc.clock, w))
		})
	}
}

func TestIsServiceOpen_SameDayWindow(t *testing.T) {
	w := ServiceWindow{
		DailyStart:      TimeOfDay{Hour: 6, Minute: 0},
		DailyEnd:        TimeOfDay{Hour: 22, Minute: 0},
		LastWindowStart: TimeOfDay{Hour: 21, Minute: 30},
		HeadwayMinutes:  10,
	}
	require.NoError(t, w.Validate())
	assert.False(t, w.Overnight())
	assert.True(t, IsServiceOpen(clockAt(6, 0, 0), w))
	assert.True(t, IsServiceOpen(clockAt(22, 0, 0), w))
	assert.False(t, IsServiceOpen(clockAt(22, 0, 1), w))
	assert.False(t, IsServiceOpen(clockAt(0, 30, 0), w))
	assert.True(t, Project(clockAt(21, 45, 0), w).IsLastTrain)
}

func TestIsServiceOpen_DoesNotTouchClock(t *testing.T) {
	clock := clockAt(8, 0, 0)
	before := clock
	_ = IsServiceOpen(clock, metroWindow())
	_ = Project(clock, metroWindow())
	assert.True(t, before.Equal(clock))
}

func TestProject_ArrivalIsClockPlusHeadway(t *testing.T) {
	w := metroWindow()
	for h := 0; h < 24; h++ {
		for _, m := range []int{0, 17, 44, 59} {
			clock := clockAt(h, m, 0)
			p := Project(clock, w)
			if p.ServiceClosed {
				assert.False(t, IsServiceOpen(clock, w))
				assert.Equal(t, Projection{ServiceClosed: true, Timezone: "CET"}, p)
				continue
			}
			want := At(clock.Add(3 * time.Minute))
			assert.Equal(t, want, p.NextArrival, "clock %s", clock.Format("15:04"))
		}
	}
}

func TestProject_LastTrainUsesInputClock(t *testing.T) {
	// 00:43 + 3min lands in the last window, but the flag follows the input clock.
	p := Project(clockAt(0, 43, 0), metroWindow())
	assert.Equal(t, "00:46", p.NextArrival.String())
	assert.False(t, p.IsLastTrain)

	p = Project(clockAt(0, 45, 0), metroWindow())
	assert.True(t, p.IsLastTrain)
}

func TestProjectSeries_CrossesMidnight(t *testing.T) {
	clock := clockAt(23, 58, 0)
	got := ProjectSeries(clock, metroWindow(), 5)
	require.Len(t, got, 5)

	want := []string{"00:01", "00:04", "00:07", "00:10", "00:13"}
	for i, p := range got {
		assert.False(t, p.ServiceClosed)
		assert.Equal(t, want[i], p.NextArrival.String())
		assert.False(t, p.IsLastTrain)
		assert.Equal(t, 13, p.ArrivalAt.Day(), "arrival %d should carry the next calendar date", i)
	}
}

func TestProjectSeries_LastTrainPerStep(t *testing.T) {
	got := ProjectSeries(clockAt(0, 40, 0), metroWindow(), 4)
	require.Len(t, got, 4)
	// steps evaluated at 00:40, 00:43, 00:46, 00:49
	assert.Equal(t, []bool{false, false, true, true},
		[]bool{got[0].IsLastTrain, got[1].IsLastTrain, got[2].IsLastTrain, got[3].IsLastTrain})
}

func TestProjectSeries_StopsWhenServiceCloses(t *testing.T) {
	got := ProjectSeries(clockAt(1, 10, 0), metroWindow(), 5)
	require.Len(t, got, 3)
	assert.Equal(t, "01:13", got[0].NextArrival.String())
	assert.Equal(t, "01:16", got[1].NextArrival.String())
	assert.True(t, got[2].ServiceClosed)
	assert.Equal(t, Projection{ServiceClosed: true, Timezone: "CET"}, got[2])
}

func TestProjectSeries_ClosedFromStart(t *testing.T) {
	got := ProjectSeries(clockAt(3, 0, 0), metroWindow(), 5)
	require.Len(t, got, 1)
	assert.True(t, got[0].ServiceClosed)
}

func TestProjectSeries_ClampsCount(t *testing.T) {
	clock := clockAt(12, 0, 0)
	assert.Len(t, ProjectSeries(clock, metroWindow(), 0), 1)
	assert.Len(t, ProjectSeries(clock, metroWindow(), -4), 1)
	assert.Len(t, ProjectSeries(clock, metroWindow(), 3), 3)
	assert.Len(t, ProjectSeries(clock, metroWindow(), 99), 5)
}

func TestSeries_StopsWhenConsumerBreaks(t *testing.T) {
	n := 0
	for range Series(clockAt(12, 0, 0), metroWindow(), 5) {
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)
}

func TestClampCount(t *testing.T) {
	assert.Equal(t, 1, ClampCount(-1))
	assert.Equal(t, 1, ClampCount(1))
	assert.Equal(t, 4, ClampCount(4))
	assert.Equal(t, 5, ClampCount(6))
}

func TestProjector_UsesConfiguredZone(t *testing.T) {
	paris, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)
	pr := NewProjector(metroWindow(), paris)

	// 07:00 UTC in winter is 08:00 in Paris.
	now := time.Date(2025, time.January, 15, 7, 0, 0, 0, time.UTC)
	p := pr.Project(now)
	require.False(t, p.ServiceClosed)
	assert.Equal(t, "08:03", p.NextArrival.String())
	assert.Equal(t, "Europe/Paris", p.Timezone)
	assert.Equal(t, "Europe/Paris", pr.Timezone())
	assert.True(t, pr.IsOpen(now))

	// 01:00 UTC is 02:00 in Paris, after the last departure.
	assert.True(t, pr.Project(time.Date(2025, time.January, 15, 1, 0, 0, 0, time.UTC)).ServiceClosed)
	assert.Len(t, pr.ProjectSeries(now, 2), 2)
}

func TestProjector_ConcurrentUse(t *testing.T) {
	pr := NewProjector(metroWindow(), cet)
	done := make(chan Projection, 16)
	for i := 0; i < 16; i++ {
		go func() { done <- pr.Project(clockAt(8, 0, 0)) }()
	}
	for i := 0; i < 16; i++ {
		assert.Equal(t, "08:03", (<-done).NextArrival.String())
	}
}

func TestProjection_MarshalJSON(t *testing.T) {
	b, err := json.Marshal(Project(clockAt(0, 50, 0), metroWindow()))
	require.NoError(t, err)
	assert.JSONEq(t, `{"nextArrival":"00:53","isLast":true,"headwayMin":3}`, string(b))

	b, err = json.Marshal(Project(clockAt(2, 0, 0), metroWindow()))
	require.NoError(t, err)
	assert.JSONEq(t, `{"service":"closed"}`, string(b))
}
