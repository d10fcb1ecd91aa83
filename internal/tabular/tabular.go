// Package tabular flattens domain records into ordered-column tables for
// terminal rendering and CSV-ish output.
package tabular

import (
	"strconv"

	"carpark-data-service/internal/domain"
)

// Table is an ordered-column view of domain records.
type Table struct {
	Columns []string
	Rows    [][]string
}

// missing marks cells whose source field is absent.
const missing = "-"

// AvailabilityColumns is the fixed column order for availability tables.
var AvailabilityColumns = []string{
	"carpark_id", "agency", "development", "area", "lot_type", "lots",
	"northing", "easting", "lat", "lon",
}

// RateColumns is the fixed column order for tariff tables.
var RateColumns = []string{
	"carpark_code", "vehicle_category", "start_time", "end_time",
	"weekday_rate", "weekday_min", "saturday_rate", "saturday_min",
	"sunday_ph_rate", "sunday_ph_min",
}

// FromAvailability builds a table with one row per availability record.
func FromAvailability(records []domain.CarparkAvailability) *Table {
	t := &Table{Columns: AvailabilityColumns, Rows: make([][]string, 0, len(records))}

	for _, rec := range records {
		northing, easting := missing, missing
		if rec.SVY21 != nil {
			northing = formatPlane(rec.SVY21.Northing)
			easting = formatPlane(rec.SVY21.Easting)
		}
		lat, lon := missing, missing
		if rec.Location != nil {
			lat = formatDegrees(rec.Location.Lat)
			lon = formatDegrees(rec.Location.Lon)
		}

		t.Rows = append(t.Rows, []string{
			rec.CarparkID,
			string(rec.Agency),
			orMissing(rec.Development),
			orMissing(rec.Area),
			orMissing(rec.LotLabel),
			strconv.Itoa(rec.Lots),
			northing,
			easting,
			lat,
			lon,
		})
	}

	return t
}

// FromRates builds a table with one row per tariff window.
func FromRates(rates []domain.RateWindow) *Table {
	t := &Table{Columns: RateColumns, Rows: make([][]string, 0, len(rates))}

	for _, w := range rates {
		t.Rows = append(t.Rows, []string{
			w.CarparkCode,
			orMissing(w.VehicleCat),
			orMissing(w.StartTime),
			orMissing(w.EndTime),
			orMissing(w.WeekdayRate),
			orMissing(w.WeekdayMin),
			orMissing(w.SaturdayRate),
			orMissing(w.SaturdayMin),
			orMissing(w.SundayPHRate),
			orMissing(w.SundayPHMin),
		})
	}

	return t
}

func orMissing(s string) string {
	if s == "" {
		return missing
	}
	return s
}

// Plane coordinates are published to millimetre precision.
func formatPlane(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

// Six decimal places keeps positions to about a tenth of a metre.
func formatDegrees(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
