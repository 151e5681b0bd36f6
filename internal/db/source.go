package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// WithDBName returns dsn with its database path replaced. A DSN without a
// scheme is treated as postgres://.
func WithDBName(dsn, database string) (string, error) {
	if dsn == "" {
		return "", fmt.Errorf("empty DSN")
	}
	if !strings.Contains(dsn, "://") {
		dsn = "postgres://" + dsn
	}
	u, err := url.Parse(dsn)
	if err != nil {
		return "", err
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return "", fmt.Errorf("unsupported DSN scheme %q", u.Scheme)
	}
	u.Path = "/" + strings.TrimPrefix(database, "/")
	return u.String(), nil
}

// latestImport returns the most recently imported GTFS database whose name
// contains city, from the importer's bookkeeping table.
func latestImport(ctx context.Context, meta *sql.DB, city string) (string, error) {
	q := `
SELECT db_name
FROM public.latest_successful_imports
WHERE db_name ILIKE '%' || $1 || '%'
ORDER BY imported_at DESC
LIMIT 1`
	var name sql.NullString
	if err := meta.QueryRowContext(ctx, q, city).Scan(&name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("no database found for city like %q", city)
		}
		return "", err
	}
	if !name.Valid || name.String == "" {
		return "", fmt.Errorf("empty db_name for city like %q", city)
	}
	return name.String, nil
}

// ResolveDSN picks the GTFS database to read from. An explicit database name
// wins; otherwise a city is looked up on the cluster's "postgres" database;
// otherwise baseDSN is used unchanged.
func ResolveDSN(ctx context.Context, baseDSN, database, city string) (string, error) {
	if database != "" {
		return WithDBName(baseDSN, database)
	}
	city = strings.TrimSpace(city)
	if city == "" {
		return baseDSN, nil
	}
	rootDSN, err := WithDBName(baseDSN, "postgres")
	if err != nil {
		return "", fmt.Errorf("invalid base DSN: %w", err)
	}
	meta, err := Open(rootDSN)
	if err != nil {
		return "", fmt.Errorf("open meta db: %w", err)
	}
	defer meta.Close()
	if err := Ping(ctx, meta); err != nil {
		return "", fmt.Errorf("ping meta db: %w", err)
	}
	name, err := latestImport(ctx, meta, city)
	if err != nil {
		return "", err
	}
	return WithDBName(baseDSN, name)
}
