package api

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"dernier-metro/internal/schedule"
)

type nextMetroResponse struct {
	Station     string                `json:"station"`
	Line        string                `json:"line"`
	Service     string                `json:"service"`
	NextArrival schedule.TimeOfDay    `json:"nextArrival"`
	IsLast      bool                  `json:"isLast"`
	HeadwayMin  int                   `json:"headwayMin"`
	TZ          string                `json:"tz"`
	Arrivals    []schedule.Projection `json:"arrivals"`
}

// nextMetro answers GET /next-metro?station=<id>&n=<count>. The count falls
// back to 1 when absent or unparsable; the projector clamps it to [1,5].
func (s *Server) nextMetro(c *fiber.Ctx) error {
	station := strings.TrimSpace(c.Query("station"))
	if station == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing station"})
	}
	n := c.QueryInt("n", c.QueryInt("count", 1))

	ps := s.projector.ProjectSeries(s.now(), n)
	s.metrics.ObserveSeries(ps)

	first := ps[0]
	if first.ServiceClosed {
		return c.JSON(fiber.Map{
			"station": station,
			"service": "closed",
			"tz":      first.Timezone,
		})
	}
	return c.JSON(nextMetroResponse{
		Station:     station,
		Line:        s.line,
		Service:     "open",
		NextArrival: first.NextArrival,
		IsLast:      first.IsLastTrain,
		HeadwayMin:  first.HeadwayMinutes,
		TZ:          first.Timezone,
		Arrivals:    ps,
	})
}
