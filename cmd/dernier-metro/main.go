package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"dernier-metro/internal/api"
	"dernier-metro/internal/board"
	"dernier-metro/internal/config"
	"dernier-metro/internal/db"
	"dernier-metro/internal/logging"
	"dernier-metro/internal/metrics"
	"dernier-metro/internal/publisher"
	"dernier-metro/internal/schedule"

	_ "time/tzdata"
)

func main() {
	app := &cli.App{
		Name:  "dernier-metro",
		Usage: "next train and last train for one metro line",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run the web api server",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "listen",
						Usage: "listen target for the web server (overrides PORT / LISTEN_ADDR)",
					},
				},
				Action: run,
			},
			{
				Name:  "next",
				Usage: "print the next arrivals for a given time",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "at",
						Usage: "clock reading, RFC3339 or HH:MM today (default now)",
					},
					&cli.StringFlag{
						Name:  "station",
						Value: "cli",
						Usage: "station label for the output",
					},
					&cli.IntFlag{
						Name:  "n",
						Value: 1,
						Usage: "number of arrivals (1-5)",
					},
				},
				Action: next,
			},
		},
		DefaultCommand: "run",
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Send()
	}
}

func run(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	logging.Setup(cfg.AppEnv, cfg.LogLevel)

	// Root context with cancellation on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	projector, err := newProjector(ctx, cfg)
	if err != nil {
		return err
	}
	w := projector.Window()
	log.Info().
		Str("line", cfg.Line).
		Stringer("start", w.DailyStart).
		Stringer("end", w.DailyEnd).
		Stringer("last_window", w.LastWindowStart).
		Int("headway_min", w.HeadwayMinutes).
		Str("tz", projector.Timezone()).
		Msg("service window")

	// Metrics setup
	var mcol *metrics.Collector
	if cfg.MetricsAddr != "" {
		mcol = metrics.NewCollector(w.HeadwayMinutes, cfg.BoardInterval)
		srv := mcol.Serve(cfg.MetricsAddr)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	// Departure board over NATS
	if cfg.NATSURL != "" && len(cfg.BoardStations) > 0 {
		pub, err := publisher.NewNATSPublisher(cfg.NATSURL, cfg.NATSSubjectPrefix, cfg.LogNATSSubjects, publisherMetrics(mcol))
		if err != nil {
			return fmt.Errorf("nats error: %w", err)
		}
		defer pub.Close()
		b := board.NewBroadcaster(projector, pub, cfg.Line, cfg.BoardStations, cfg.BoardInterval, cfg.BoardCount)
		b.Start(ctx)
		defer b.Stop()
	}

	listen := cfg.ListenAddr
	if c.String("listen") != "" {
		listen = c.String("listen")
	}
	server := api.New(projector, cfg.Line, mcol)
	errc := make(chan error, 1)
	go func() { errc <- server.Listen(listen) }()
	log.Info().Str("addr", listen).Msg("Dernier Metro API running")

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("api shutdown")
	}
	log.Info().Msg("shutdown complete")
	return nil
}

func next(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	logging.Setup(cfg.AppEnv, cfg.LogLevel)

	projector, err := newProjector(c.Context, cfg)
	if err != nil {
		return err
	}
	now, err := parseClock(c.String("at"), time.Now(), cfg.Location)
	if err != nil {
		return err
	}
	msg := board.Message(projector, cfg.Line, c.String("station"), now, c.Int("n"))
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(msg)
}

// newProjector builds the projector from configuration, replacing start, end
// and headway with the GTFS frequencies of the configured route when set.
func newProjector(ctx context.Context, cfg *config.Config) (*schedule.Projector, error) {
	w := cfg.Window
	if cfg.GTFSRouteID != "" {
		gw, err := gtfsWindow(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("gtfs window for route %q: %w", cfg.GTFSRouteID, err)
		}
		w = gw
	}
	return schedule.NewProjector(w, cfg.Location), nil
}

func gtfsWindow(ctx context.Context, cfg *config.Config) (schedule.ServiceWindow, error) {
	dsn, err := db.ResolveDSN(ctx, cfg.DatabaseURL, cfg.GTFSDatabase, cfg.GTFSCity)
	if err != nil {
		return schedule.ServiceWindow{}, err
	}
	sqlDB, err := db.Open(dsn)
	if err != nil {
		return schedule.ServiceWindow{}, fmt.Errorf("db open: %w", err)
	}
	defer sqlDB.Close()
	if err := db.Ping(ctx, sqlDB); err != nil {
		return schedule.ServiceWindow{}, fmt.Errorf("db ping: %w", err)
	}
	cov, err := db.LoadCoverage(ctx, sqlDB, cfg.GTFSRouteID, time.Now().In(cfg.Location))
	if err != nil {
		return schedule.ServiceWindow{}, err
	}
	return config.WithCoverage(cfg.Window, schedule.FromSeconds(cov.StartSec), schedule.FromSeconds(cov.EndSec), cov.HeadwayMinutes())
}

// parseClock accepts RFC3339 or HH:MM on the current day in loc.
func parseClock(s string, now time.Time, loc *time.Location) (time.Time, error) {
	if s == "" {
		return now.In(loc), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(loc), nil
	}
	tod, err := schedule.ParseTimeOfDay(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --at %q: want RFC3339 or HH:MM", s)
	}
	y, m, d := now.In(loc).Date()
	return time.Date(y, m, d, tod.Hour, tod.Minute, 0, 0, loc), nil
}

// publisherMetrics keeps a nil collector a nil interface.
func publisherMetrics(c *metrics.Collector) publisher.PublisherMetrics {
	if c == nil {
		return nil
	}
	return c
}
