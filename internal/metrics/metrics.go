package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"dernier-metro/internal/schedule"
)

type Collector struct {
	reg *prometheus.Registry

	Requests        *prometheus.CounterVec // route, status
	RequestDuration prometheus.Histogram

	Projections  *prometheus.CounterVec // outcome: open|last|closed
	SeriesLength prometheus.Histogram

	BoardPublished   prometheus.Counter
	BoardPublishErrs prometheus.Counter
	PublishDuration  prometheus.Histogram
	NATSConnected    prometheus.Gauge

	HeadwayMinutes prometheus.Gauge
	BoardInterval  prometheus.Gauge // seconds
}

func NewCollector(headwayMinutes int, boardInterval time.Duration) *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dernier_metro_http_requests_total",
			Help: "HTTP requests by route and status code.",
		}, []string{"route", "status"}),
		RequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "dernier_metro_http_request_duration_seconds",
			Help:    "Duration of HTTP request handling.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 15),
		}),
		Projections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dernier_metro_projections_total",
			Help: "Arrival projections by outcome.",
		}, []string{"outcome"}),
		SeriesLength: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "dernier_metro_series_length",
			Help:    "Number of projections returned per series.",
			Buckets: prometheus.LinearBuckets(1, 1, schedule.MaxSeriesCount),
		}),
		BoardPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dernier_metro_board_published_total",
			Help: "Total departure board messages published.",
		}),
		BoardPublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dernier_metro_board_publish_errors_total",
			Help: "Total departure board publish errors.",
		}),
		PublishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "dernier_metro_publish_duration_seconds",
			Help:    "Duration to marshal and publish a NATS message.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 15),
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dernier_metro_nats_connected",
			Help: "1 if NATS connection is established, 0 otherwise.",
		}),
		HeadwayMinutes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dernier_metro_headway_minutes",
			Help: "Configured headway in minutes.",
		}),
		BoardInterval: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dernier_metro_board_interval_seconds",
			Help: "Departure board publish interval in seconds.",
		}),
	}

	reg.MustRegister(
		c.Requests, c.RequestDuration,
		c.Projections, c.SeriesLength,
		c.BoardPublished, c.BoardPublishErrs, c.PublishDuration, c.NATSConnected,
		c.HeadwayMinutes, c.BoardInterval,
	)

	c.HeadwayMinutes.Set(float64(headwayMinutes))
	c.BoardInterval.Set(boardInterval.Seconds())

	return c
}

// ObserveRequest records one handled HTTP request. Safe on a nil Collector.
func (c *Collector) ObserveRequest(route string, status int, d time.Duration) {
	if c == nil {
		return
	}
	c.Requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	c.RequestDuration.Observe(d.Seconds())
}

// ObserveSeries counts each projection by outcome and the series length.
// Safe on a nil Collector.
func (c *Collector) ObserveSeries(ps []schedule.Projection) {
	if c == nil {
		return
	}
	for _, p := range ps {
		c.Projections.WithLabelValues(Outcome(p)).Inc()
	}
	c.SeriesLength.Observe(float64(len(ps)))
}

func Outcome(p schedule.Projection) string {
	switch {
	case p.ServiceClosed:
		return "closed"
	case p.IsLastTrain:
		return "last"
	default:
		return "open"
	}
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// Serve starts an HTTP server exposing /metrics on the given address.
func (c *Collector) Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server error")
		}
	}()
	log.Info().Str("addr", addr).Msg("metrics listening")
	return srv
}

// Publisher metrics adapter for the NATS publisher.

func (c *Collector) NATSPublishedInc()              { c.BoardPublished.Inc() }
func (c *Collector) NATSPublishErrInc()             { c.BoardPublishErrs.Inc() }
func (c *Collector) PublishObserve(d time.Duration) { c.PublishDuration.Observe(d.Seconds()) }
func (c *Collector) NATSSetConnected(b bool) {
	if b {
		c.NATSConnected.Set(1)
	} else {
		c.NATSConnected.Set(0)
	}
}
