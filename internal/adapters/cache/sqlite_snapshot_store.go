package cache

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"carpark-data-service/internal/domain"
	"carpark-data-service/internal/ports"
)

// SqliteSnapshotStore persists the last fetched availability snapshot in a
// local SQLite file so the CLI can re-render it without hitting the
// upstream APIs again.
type SqliteSnapshotStore struct {
	DB *sql.DB
}

func NewSqliteSnapshotStore(db *sql.DB) *SqliteSnapshotStore {
	return &SqliteSnapshotStore{DB: db}
}

// InitSchema creates the snapshot table when missing.
func (s *SqliteSnapshotStore) InitSchema() error {
	if s.DB == nil {
		return errors.New("snapshot store: db is nil")
	}

	q := `
	CREATE TABLE IF NOT EXISTS availability_snapshot (
        carpark_id  TEXT NOT NULL,
        agency      TEXT NOT NULL,
        development TEXT NOT NULL DEFAULT '',
        area        TEXT NOT NULL DEFAULT '',
        lot_type    TEXT NOT NULL,
        lot_label   TEXT NOT NULL,
        lots        INTEGER NOT NULL,
        northing    REAL,
        easting     REAL,
        lat         REAL,
        lon         REAL,
        fetched_at  TEXT NOT NULL
    );
	`
	if _, err := s.DB.Exec(q); err != nil {
		return fmt.Errorf("init snapshot store: create availability_snapshot table: %w", err)
	}

	return nil
}

// Replace swaps the stored snapshot for the given one.
func (s *SqliteSnapshotStore) Replace(snap *ports.AvailabilitySnapshot) error {
	if s.DB == nil {
		return errors.New("snapshot store: db is nil")
	}

	tx, err := s.DB.Begin()
	if err != nil {
		return fmt.Errorf("replace snapshot: db begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM availability_snapshot;`); err != nil {
		return fmt.Errorf("replace snapshot: clear availability_snapshot table: %w", err)
	}

	stmt, err := tx.Prepare(`
	INSERT INTO availability_snapshot (
        carpark_id, agency, development, area, lot_type, lot_label, lots,
        northing, easting, lat, lon, fetched_at
    )
    VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
	`)
	if err != nil {
		return fmt.Errorf("replace snapshot: db prepare: %w", err)
	}
	defer stmt.Close()

	for _, row := range snap.Rows {
		var northing, easting, lat, lon any
		if row.SVY21 != nil {
			northing, easting = row.SVY21.Northing, row.SVY21.Easting
		}
		if row.Location != nil {
			lat, lon = row.Location.Lat, row.Location.Lon
		}

		fetched := row.FetchedAt
		if fetched.IsZero() {
			fetched = snap.FetchedAt
		}

		if _, err := stmt.Exec(
			row.CarparkID, string(row.Agency), row.Development, row.Area,
			row.LotType, row.LotLabel, row.Lots,
			northing, easting, lat, lon,
			fetched.UTC().Format(time.RFC3339),
		); err != nil {
			return fmt.Errorf("replace snapshot carpark=%q: %w", row.CarparkID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("replace snapshot commit: %w", err)
	}

	return nil
}

// Load returns the stored snapshot. ok is false when nothing was saved yet.
// The snapshot time is taken from the newest stored row.
func (s *SqliteSnapshotStore) Load() (*ports.AvailabilitySnapshot, bool, error) {
	if s.DB == nil {
		return nil, false, errors.New("snapshot store: db is nil")
	}

	q := `
	SELECT carpark_id, agency, development, area, lot_type, lot_label, lots,
        northing, easting, lat, lon, fetched_at
    FROM availability_snapshot;
	`
	rows, err := s.DB.Query(q)
	if err != nil {
		return nil, false, fmt.Errorf("load snapshot: query availability_snapshot table: %w", err)
	}
	defer rows.Close()

	snap := &ports.AvailabilitySnapshot{}
	for rows.Next() {
		var rec domain.CarparkAvailability
		var agency string
		var northing, easting, lat, lon sql.NullFloat64
		var fetched string

		if err := rows.Scan(
			&rec.CarparkID, &agency, &rec.Development, &rec.Area,
			&rec.LotType, &rec.LotLabel, &rec.Lots,
			&northing, &easting, &lat, &lon, &fetched,
		); err != nil {
			return nil, false, fmt.Errorf("load snapshot: scan rows: %w", err)
		}

		rec.Agency = domain.Agency(agency)
		if northing.Valid && easting.Valid {
			rec.SVY21 = &domain.SVY21Point{Northing: northing.Float64, Easting: easting.Float64}
		}
		if lat.Valid && lon.Valid {
			rec.Location = &domain.LatLon{Lat: lat.Float64, Lon: lon.Float64}
		}
		if ts, err := time.Parse(time.RFC3339, fetched); err == nil {
			rec.FetchedAt = ts
			if ts.After(snap.FetchedAt) {
				snap.FetchedAt = ts
			}
		}

		snap.Rows = append(snap.Rows, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("load snapshot: row iteration: %w", err)
	}

	if len(snap.Rows) == 0 {
		return nil, false, nil
	}

	return snap, true, nil
}
