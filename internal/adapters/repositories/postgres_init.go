package repositories

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// Initialize the Postgres schema.
func InitSchema(db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createCarparksQuery := `
	CREATE TABLE IF NOT EXISTS carparks (
        code             TEXT PRIMARY KEY,
        name             TEXT NOT NULL,
        vehicle_category TEXT NOT NULL DEFAULT '',
        parking_system   TEXT NOT NULL DEFAULT '',
        capacity         INTEGER NOT NULL DEFAULT 0,
        remarks          TEXT NOT NULL DEFAULT '',
        northing         DOUBLE PRECISION,
        easting          DOUBLE PRECISION,
        lat              DOUBLE PRECISION,
        lon              DOUBLE PRECISION,
        updated_at       TIMESTAMPTZ NOT NULL
    );
	`

	createRateWindowsQuery := `
	CREATE TABLE IF NOT EXISTS rate_windows (
        id               BIGSERIAL PRIMARY KEY,
        carpark_code     TEXT NOT NULL,
        vehicle_category TEXT NOT NULL DEFAULT '',
        start_time       TEXT NOT NULL DEFAULT '',
        end_time         TEXT NOT NULL DEFAULT '',
        weekday_rate     TEXT NOT NULL DEFAULT '',
        weekday_min      TEXT NOT NULL DEFAULT '',
        saturday_rate    TEXT NOT NULL DEFAULT '',
        saturday_min     TEXT NOT NULL DEFAULT '',
        sunday_ph_rate   TEXT NOT NULL DEFAULT '',
        sunday_ph_min    TEXT NOT NULL DEFAULT ''
    );
	`

	createAvailabilityQuery := `
	CREATE TABLE IF NOT EXISTS availability (
        id          BIGSERIAL PRIMARY KEY,
        carpark_id  TEXT NOT NULL,
        agency      TEXT NOT NULL,
        development TEXT NOT NULL DEFAULT '',
        area        TEXT NOT NULL DEFAULT '',
        lot_type    TEXT NOT NULL,
        lots        INTEGER NOT NULL,
        northing    DOUBLE PRECISION,
        easting     DOUBLE PRECISION,
        lat         DOUBLE PRECISION,
        lon         DOUBLE PRECISION,
        fetched_at  TIMESTAMPTZ NOT NULL
    );
	`

	createRateIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_rate_windows_carpark_code
    ON rate_windows(carpark_code);
	`

	createAvailabilityIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_availability_carpark_fetched_at
    ON availability(carpark_id, fetched_at);
	`

	statements := []string{
		createCarparksQuery,
		createRateWindowsQuery,
		createAvailabilityQuery,
		createRateIndexQuery,
		createAvailabilityIndexQuery,
	}

	for i, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}

// ResetSchema drops all carpark tables so InitSchema can recreate them.
func ResetSchema(db *sql.DB) error {
	if db == nil {
		return errors.New("reset schema: DB is nil")
	}

	statements := []string{
		`DROP TABLE IF EXISTS availability;`,
		`DROP TABLE IF EXISTS rate_windows;`,
		`DROP TABLE IF EXISTS carparks;`,
	}

	for i, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("reset schema: exec statement #%d: %w", i+1, err)
		}
	}

	return nil
}

type CarparkSeed struct {
	Code            string  `json:"code"`
	Name            string  `json:"name"`
	VehicleCategory string  `json:"vehicle_category"`
	ParkingSystem   string  `json:"parking_system"`
	Capacity        int     `json:"capacity"`
	Remarks         string  `json:"remarks"`
	Northing        float64 `json:"northing"`
	Easting         float64 `json:"easting"`
}

// Populate the carparks table from a JSON fixture file.
func SeedFromJSON(db *sql.DB, jsonPath string) error {
	bytes, err := os.ReadFile(jsonPath)
	if err != nil {
		return fmt.Errorf("seed carparks: read %q: %w", jsonPath, err)
	}

	var data []CarparkSeed
	if err := json.Unmarshal(bytes, &data); err != nil {
		return fmt.Errorf("seed carparks: parse json: %w", err)
	}

	for i, item := range data {
		if strings.TrimSpace(item.Code) == "" {
			return fmt.Errorf("seed carparks: item at index %d: code cannot be empty", i+1)
		}
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("seed carparks: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
	INSERT INTO carparks (
        code, name, vehicle_category, parking_system, capacity, remarks,
        northing, easting, updated_at
    )
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (code) DO UPDATE
	SET name             = EXCLUDED.name,
        vehicle_category = EXCLUDED.vehicle_category,
        parking_system   = EXCLUDED.parking_system,
        capacity         = EXCLUDED.capacity,
        remarks          = EXCLUDED.remarks,
        northing         = EXCLUDED.northing,
        easting          = EXCLUDED.easting,
        updated_at       = EXCLUDED.updated_at;
	`
	stmt, err := tx.Prepare(query)
	if err != nil {
		return fmt.Errorf("seed carparks: prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, c := range data {
		var northing, easting any
		if c.Northing != 0 || c.Easting != 0 {
			northing, easting = c.Northing, c.Easting
		}
		if _, err := stmt.Exec(
			strings.TrimSpace(c.Code), c.Name, c.VehicleCategory, c.ParkingSystem,
			c.Capacity, c.Remarks, northing, easting, now,
		); err != nil {
			return fmt.Errorf("seed carparks: insert code=%q: %w", c.Code, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed carparks: commit tx: %w", err)
	}

	return nil
}
