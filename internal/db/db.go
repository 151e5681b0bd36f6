package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"dernier-metro/internal/gtfs"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

func Ping(ctx context.Context, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return db.PingContext(ctx)
}

var weekdayColumns = [...]string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}

// FetchRouteFrequencies returns the frequencies.txt rows of every trip on
// routeID whose service runs on day, honouring calendar_dates exceptions.
func FetchRouteFrequencies(ctx context.Context, db *sql.DB, routeID string, day time.Time) ([]gtfs.Frequency, error) {
	// The weekday column comes from a fixed list, never from input.
	q := fmt.Sprintf(`
WITH running AS (
  SELECT service_id FROM calendar
  WHERE start_date <= $2::date AND end_date >= $2::date
    AND %s::text IN ('1','t','true','available')
  UNION
  SELECT service_id FROM calendar_dates
  WHERE date = $2::date AND exception_type::text IN ('1','added')
  EXCEPT
  SELECT service_id FROM calendar_dates
  WHERE date = $2::date AND exception_type::text IN ('2','removed')
)
SELECT f.trip_id, f.start_time::text, f.end_time::text, f.headway_secs
FROM frequencies f
JOIN trips t ON t.trip_id = f.trip_id
WHERE t.route_id = $1 AND t.service_id IN (SELECT service_id FROM running)
ORDER BY f.start_time`, weekdayColumns[day.Weekday()])

	rows, err := db.QueryContext(ctx, q, routeID, day.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("query frequencies: %w", err)
	}
	defer rows.Close()

	var out []gtfs.Frequency
	for rows.Next() {
		var (
			f          gtfs.Frequency
			start, end string
		)
		if err := rows.Scan(&f.TripID, &start, &end, &f.HeadwaySecs); err != nil {
			return nil, err
		}
		if f.StartSec, err = gtfs.ParseTime(start); err != nil {
			return nil, fmt.Errorf("trip %s: %w", f.TripID, err)
		}
		if f.EndSec, err = gtfs.ParseTime(end); err != nil {
			return nil, fmt.Errorf("trip %s: %w", f.TripID, err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// LoadCoverage reads the frequency-based service span of routeID on day.
func LoadCoverage(ctx context.Context, db *sql.DB, routeID string, day time.Time) (gtfs.Coverage, error) {
	freqs, err := FetchRouteFrequencies(ctx, db, routeID, day)
	if err != nil {
		return gtfs.Coverage{}, err
	}
	c, err := gtfs.CoverFrequencies(freqs)
	if err != nil {
		return gtfs.Coverage{}, fmt.Errorf("route %s on %s: %w", routeID, day.Format("2006-01-02"), err)
	}
	return c, nil
}
