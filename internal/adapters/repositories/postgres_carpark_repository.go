package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"carpark-data-service/internal/domain"
	"carpark-data-service/internal/platform/obs"
	"carpark-data-service/internal/ports"
)

// Postgres-backed implementation of the CarparkRepository port.
type PostgresCarparkRepository struct{ DB *sql.DB }

func NewPostgresCarparkRepository(db *sql.DB) *PostgresCarparkRepository {
	return &PostgresCarparkRepository{DB: db}
}

// Insert or update carpark reference records keyed by code.
func (r *PostgresCarparkRepository) UpsertCarparks(ctx context.Context, carparks []domain.Carpark) error {
	if r.DB == nil {
		return errors.New("carpark repository: DB is nil")
	}

	if len(carparks) == 0 {
		return nil
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("upsert carparks: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO carparks (
        code, name, vehicle_category, parking_system, capacity, remarks,
        northing, easting, lat, lon, updated_at
    )
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	ON CONFLICT (code) DO UPDATE
	SET name             = EXCLUDED.name,
        vehicle_category = EXCLUDED.vehicle_category,
        parking_system   = EXCLUDED.parking_system,
        capacity         = EXCLUDED.capacity,
        remarks          = EXCLUDED.remarks,
        northing         = EXCLUDED.northing,
        easting          = EXCLUDED.easting,
        lat              = EXCLUDED.lat,
        lon              = EXCLUDED.lon,
        updated_at       = EXCLUDED.updated_at;
	`)
	if err != nil {
		return fmt.Errorf("upsert carparks: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range carparks {
		if strings.TrimSpace(c.Code) == "" {
			return fmt.Errorf("upsert carparks: empty carpark code")
		}

		var northing, easting, lat, lon any
		if c.SVY21 != nil {
			northing, easting = c.SVY21.Northing, c.SVY21.Easting
		}
		if c.Location != nil {
			lat, lon = c.Location.Lat, c.Location.Lon
		}

		if _, err := stmt.ExecContext(ctx,
			c.Code, c.Name, c.VehicleCat, c.ParkingSystem, c.Capacity, c.Remarks,
			northing, easting, lat, lon, c.UpdatedAt,
		); err != nil {
			return fmt.Errorf("upsert carparks: insert code=%q: %w", c.Code, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("upsert carparks: commit tx: %w", err)
	}

	return nil
}

// Replace the full tariff table. Rate windows carry no stable upstream key,
// so a sync swaps the whole set.
func (r *PostgresCarparkRepository) ReplaceRates(ctx context.Context, rates []domain.RateWindow) error {
	if r.DB == nil {
		return errors.New("carpark repository: DB is nil")
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("replace rates: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM rate_windows;`); err != nil {
		return fmt.Errorf("replace rates: clear rate_windows table: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO rate_windows (
        carpark_code, vehicle_category, start_time, end_time,
        weekday_rate, weekday_min, saturday_rate, saturday_min,
        sunday_ph_rate, sunday_ph_min
    )
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);
	`)
	if err != nil {
		return fmt.Errorf("replace rates: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, w := range rates {
		if _, err := stmt.ExecContext(ctx,
			w.CarparkCode, w.VehicleCat, w.StartTime, w.EndTime,
			w.WeekdayRate, w.WeekdayMin, w.SaturdayRate, w.SaturdayMin,
			w.SundayPHRate, w.SundayPHMin,
		); err != nil {
			return fmt.Errorf("replace rates: insert code=%q: %w", w.CarparkCode, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("replace rates: commit tx: %w", err)
	}

	return nil
}

// Return carpark reference records, optionally filtered to the given codes.
func (r *PostgresCarparkRepository) ListCarparks(
	ctx context.Context,
	codes ...string,
) (_ []domain.Carpark, err error) {
	defer obs.Time(ctx, "repo.ListCarparks")(&err)

	if r.DB == nil {
		return nil, errors.New("carpark repository: DB is nil")
	}

	query := `
	SELECT code, name, vehicle_category, parking_system, capacity, remarks,
        northing, easting, lat, lon, updated_at
    FROM carparks
	`
	args := make([]any, 0, 1)

	uniq := make([]string, 0, len(codes))
	seen := map[string]struct{}{}
	for _, code := range codes {
		code = strings.TrimSpace(code)
		if code == "" {
			continue
		}
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		uniq = append(uniq, code)
	}
	if len(uniq) > 0 {
		query += `WHERE code = ANY($1::text[])
	`
		args = append(args, uniq)
	}
	query += `ORDER BY code;`

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list carparks: query carparks table: %w", err)
	}
	defer rows.Close()

	carparks := make([]domain.Carpark, 0, 64)
	for rows.Next() {
		var c domain.Carpark
		var northing, easting, lat, lon sql.NullFloat64

		if err := rows.Scan(
			&c.Code, &c.Name, &c.VehicleCat, &c.ParkingSystem, &c.Capacity, &c.Remarks,
			&northing, &easting, &lat, &lon, &c.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("list carparks: scan row: %w", err)
		}

		if northing.Valid && easting.Valid {
			c.SVY21 = &domain.SVY21Point{Northing: northing.Float64, Easting: easting.Float64}
		}
		if lat.Valid && lon.Valid {
			c.Location = &domain.LatLon{Lat: lat.Float64, Lon: lon.Float64}
		}

		carparks = append(carparks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list carparks: row iteration: %w", err)
	}

	return carparks, nil
}

// Return the tariff windows for one carpark. Unknown codes report
// ports.ErrNotFound so callers can answer 404 instead of an empty list.
func (r *PostgresCarparkRepository) ListRates(
	ctx context.Context,
	code string,
) (_ []domain.RateWindow, err error) {
	defer obs.Time(ctx, "repo.ListRates")(&err)

	if r.DB == nil {
		return nil, errors.New("carpark repository: DB is nil")
	}

	code = strings.TrimSpace(code)
	if code == "" {
		return nil, fmt.Errorf("list rates: %w", ports.ErrNotFound)
	}

	var exists int
	err = r.DB.QueryRowContext(ctx, `SELECT 1 FROM carparks WHERE code = $1;`, code).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("list rates code=%q: %w", code, ports.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("list rates: lookup carpark: %w", err)
	}

	query := `
	SELECT carpark_code, vehicle_category, start_time, end_time,
        weekday_rate, weekday_min, saturday_rate, saturday_min,
        sunday_ph_rate, sunday_ph_min
    FROM rate_windows
    WHERE carpark_code = $1
    ORDER BY vehicle_category, start_time;
	`
	rows, err := r.DB.QueryContext(ctx, query, code)
	if err != nil {
		return nil, fmt.Errorf("list rates: query rate_windows table: %w", err)
	}
	defer rows.Close()

	rates := make([]domain.RateWindow, 0, 8)
	for rows.Next() {
		var w domain.RateWindow
		if err := rows.Scan(
			&w.CarparkCode, &w.VehicleCat, &w.StartTime, &w.EndTime,
			&w.WeekdayRate, &w.WeekdayMin, &w.SaturdayRate, &w.SaturdayMin,
			&w.SundayPHRate, &w.SundayPHMin,
		); err != nil {
			return nil, fmt.Errorf("list rates: scan row: %w", err)
		}
		rates = append(rates, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list rates: row iteration: %w", err)
	}

	return rates, nil
}

// Return the newest stored reading for every carpark, agency and lot type.
// This is the read side of the availability history: it reconstructs the last
// known state when the live feeds and the cache are both unavailable.
func (r *PostgresCarparkRepository) LatestAvailability(ctx context.Context) (_ []domain.CarparkAvailability, err error) {
	defer obs.Time(ctx, "repo.LatestAvailability")(&err)

	if r.DB == nil {
		return nil, errors.New("carpark repository: DB is nil")
	}

	query := `
	SELECT DISTINCT ON (carpark_id, agency, lot_type)
        carpark_id, agency, development, area, lot_type, lots,
        northing, easting, lat, lon, fetched_at
    FROM availability
    ORDER BY carpark_id, agency, lot_type, fetched_at DESC;
	`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("latest availability: query availability table: %w", err)
	}
	defer rows.Close()

	records := make([]domain.CarparkAvailability, 0, 256)
	for rows.Next() {
		var rec domain.CarparkAvailability
		var agency string
		var northing, easting, lat, lon sql.NullFloat64

		if err := rows.Scan(
			&rec.CarparkID, &agency, &rec.Development, &rec.Area,
			&rec.LotType, &rec.Lots,
			&northing, &easting, &lat, &lon, &rec.FetchedAt,
		); err != nil {
			return nil, fmt.Errorf("latest availability: scan row: %w", err)
		}

		rec.Agency = domain.Agency(agency)
		rec.LotLabel = domain.LotTypeLabel(rec.LotType)
		if northing.Valid && easting.Valid {
			rec.SVY21 = &domain.SVY21Point{Northing: northing.Float64, Easting: easting.Float64}
		}
		if lat.Valid && lon.Valid {
			rec.Location = &domain.LatLon{Lat: lat.Float64, Lon: lon.Float64}
		}

		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("latest availability: row iteration: %w", err)
	}

	return records, nil
}

// Append one batch of availability readings.
func (r *PostgresCarparkRepository) InsertAvailability(ctx context.Context, records []domain.CarparkAvailability) error {
	if r.DB == nil {
		return errors.New("carpark repository: DB is nil")
	}

	if len(records) == 0 {
		return nil
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert availability: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO availability (
        carpark_id, agency, development, area, lot_type, lots,
        northing, easting, lat, lon, fetched_at
    )
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);
	`)
	if err != nil {
		return fmt.Errorf("insert availability: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		var northing, easting, lat, lon any
		if rec.SVY21 != nil {
			northing, easting = rec.SVY21.Northing, rec.SVY21.Easting
		}
		if rec.Location != nil {
			lat, lon = rec.Location.Lat, rec.Location.Lon
		}

		if _, err := stmt.ExecContext(ctx,
			rec.CarparkID, string(rec.Agency), rec.Development, rec.Area,
			rec.LotType, rec.Lots, northing, easting, lat, lon, rec.FetchedAt,
		); err != nil {
			return fmt.Errorf("insert availability carpark=%q: %w", rec.CarparkID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("insert availability: commit tx: %w", err)
	}

	return nil
}
