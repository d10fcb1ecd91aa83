package db

import (
	"database/sql"
	"fmt"
	"time"
)

// Open connects to Postgres through the pgx database/sql driver and tunes
// the pool for a small always-on service.
func Open(databaseURL string) (*sql.DB, error) {
	pg, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("openDB: open postgres database: %w", err)
	}

	pg.SetMaxOpenConns(10)
	pg.SetMaxIdleConns(10)
	pg.SetConnMaxLifetime(30 * time.Minute)

	if err := pg.Ping(); err != nil {
		return nil, fmt.Errorf("openDB: verify postgres connection: %w", err)
	}

	return pg, nil
}
