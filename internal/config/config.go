package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"dernier-metro/internal/schedule"
)

const (
	DefaultTimezone = "Europe/Paris"
	DefaultLine     = "M1"
)

type Config struct {
	ListenAddr string
	Line       string
	Window     schedule.ServiceWindow
	TZName     string
	Location   *time.Location

	AppEnv   string
	LogLevel string

	MetricsAddr string

	NATSURL           string
	NATSSubjectPrefix string
	LogNATSSubjects   bool

	BoardStations []string
	BoardInterval time.Duration
	BoardCount    int

	// GTFS source; GTFSRouteID empty disables it.
	DatabaseURL  string
	GTFSDatabase string
	GTFSCity     string
	GTFSRouteID  string
}

func Load() (*Config, error) {
	// Load .env into environment (ignore if missing)
	_ = godotenv.Load()

	cfg := &Config{}

	// Listen address: LISTEN_ADDR wins over PORT
	cfg.ListenAddr = os.Getenv("LISTEN_ADDR")
	if cfg.ListenAddr == "" {
		port := getenvDefault("PORT", "3000")
		if _, err := strconv.Atoi(port); err != nil {
			return nil, fmt.Errorf("invalid PORT: %q", port)
		}
		cfg.ListenAddr = ":" + port
	}

	cfg.Line = getenvDefault("LINE_NAME", DefaultLine)

	// Service window
	cfg.Window.DailyStart = schedule.DefaultServiceStart
	end, err := schedule.ParseTimeOfDay(getenvDefault("SERVICE_END", "01:15"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVICE_END: %w", err)
	}
	cfg.Window.DailyEnd = end
	last, err := schedule.ParseTimeOfDay(getenvDefault("LAST_WINDOW_START", "00:45"))
	if err != nil {
		return nil, fmt.Errorf("invalid LAST_WINDOW_START: %w", err)
	}
	cfg.Window.LastWindowStart = last
	if v := os.Getenv("HEADWAY_MIN"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid HEADWAY_MIN: %q", v)
		}
		cfg.Window.HeadwayMinutes = n
	} else {
		cfg.Window.HeadwayMinutes = 3
	}
	if err := cfg.Window.Validate(); err != nil {
		return nil, err
	}

	// Time zone
	cfg.TZName = getenvDefault("TZ", DefaultTimezone)
	loc, err := time.LoadLocation(cfg.TZName)
	if err != nil {
		return nil, fmt.Errorf("invalid TZ: %v", err)
	}
	cfg.Location = loc

	cfg.AppEnv = strings.ToLower(os.Getenv("APP_ENV"))
	cfg.LogLevel = getenvDefault("LOG_LEVEL", "info")

	// Metrics listen address (e.g., ":9102"). Empty disables the metrics server.
	cfg.MetricsAddr = os.Getenv("METRICS_ADDR")

	// NATS board broadcasting; empty URL disables it.
	cfg.NATSURL = os.Getenv("NATS_URL")
	cfg.NATSSubjectPrefix = getenvDefault("NATS_SUBJECT_PREFIX", "arrivals")
	cfg.LogNATSSubjects = parseBool(os.Getenv("LOG_NATS_SUBJECTS"))

	cfg.BoardStations = splitList(os.Getenv("BOARD_STATIONS"))
	if v := os.Getenv("BOARD_INTERVAL_SEC"); v != "" {
		sec, err := strconv.Atoi(v)
		if err != nil || sec <= 0 {
			return nil, fmt.Errorf("invalid BOARD_INTERVAL_SEC: %q", v)
		}
		cfg.BoardInterval = time.Duration(sec) * time.Second
	} else {
		cfg.BoardInterval = 30 * time.Second
	}
	if v := os.Getenv("BOARD_COUNT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid BOARD_COUNT: %q", v)
		}
		cfg.BoardCount = schedule.ClampCount(n)
	} else {
		cfg.BoardCount = 3
	}

	// Optional GTFS frequencies source
	cfg.GTFSRouteID = strings.TrimSpace(os.Getenv("GTFS_ROUTE_ID"))
	cfg.GTFSDatabase = os.Getenv("GTFS_DATABASE")
	cfg.GTFSCity = firstNonEmpty(os.Getenv("GTFS_CITY"), os.Getenv("CITY"))
	if cfg.GTFSRouteID != "" {
		dsn, err := databaseURL()
		if err != nil {
			return nil, err
		}
		cfg.DatabaseURL = dsn
	}

	return cfg, nil
}

// WithCoverage returns a copy of the window with start, end and headway
// replaced, keeping the configured last-window start, and validates it.
func WithCoverage(w schedule.ServiceWindow, start, end schedule.TimeOfDay, headwayMin int) (schedule.ServiceWindow, error) {
	w.DailyStart = start
	w.DailyEnd = end
	w.HeadwayMinutes = headwayMin
	if err := w.Validate(); err != nil {
		return schedule.ServiceWindow{}, err
	}
	return w, nil
}

// databaseURL prefers DATABASE_URL / PG_DSN, else builds a DSN from PG* vars.
func databaseURL() (string, error) {
	if dsn := firstNonEmpty(os.Getenv("DATABASE_URL"), os.Getenv("PG_DSN")); dsn != "" {
		return dsn, nil
	}
	host := getenvDefault("PGHOST", "127.0.0.1")
	port := getenvDefault("PGPORT", "5432")
	user := getenvDefault("PGUSER", "postgres")
	pass := os.Getenv("PGPASSWORD")
	db := getenvDefault("PGDATABASE", "postgres")
	sslmode := getenvDefault("PGSSLMODE", "disable")
	if pass != "" {
		return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", urlEscape(user), urlEscape(pass), host, port, db, sslmode), nil
	}
	return fmt.Sprintf("postgres://%s@%s:%s/%s?sslmode=%s", urlEscape(user), host, port, db, sslmode), nil
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	}
	return false
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func urlEscape(s string) string {
	r := strings.NewReplacer("@", "%40", ":", "%3A", "/", "%2F", "?", "%3F", "#", "%23")
	return r.Replace(s)
}
