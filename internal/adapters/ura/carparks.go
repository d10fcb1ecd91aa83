package ura

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"carpark-data-service/internal/domain"
	"carpark-data-service/internal/platform/obs"
)

// detailRow carries both the carpark reference fields and one tariff window;
// the feed repeats the reference fields on every window row.
type detailRow struct {
	PPCode        string     `json:"ppCode"`
	PPName        string     `json:"ppName"`
	VehCat        string     `json:"vehCat"`
	StartTime     string     `json:"startTime"`
	EndTime       string     `json:"endTime"`
	WeekdayRate   string     `json:"weekdayRate"`
	WeekdayMin    string     `json:"weekdayMin"`
	SatdayRate    string     `json:"satdayRate"`
	SatdayMin     string     `json:"satdayMin"`
	SunPHRate     string     `json:"sunPHRate"`
	SunPHMin      string     `json:"sunPHMin"`
	ParkingSystem string     `json:"parkingSystem"`
	ParkCapacity  int        `json:"parkCapacity"`
	Remarks       string     `json:"remarks"`
	Geometries    []geometry `json:"geometries"`
}

// ListCarparks fetches the carpark details feed and splits it into unique
// reference records and their tariff windows.
func (c *Client) ListCarparks(ctx context.Context) (_ []domain.Carpark, _ []domain.RateWindow, err error) {
	defer obs.Time(ctx, "ura.ListCarparks")(&err)

	result, err := c.invoke(ctx, detailsService)
	if err != nil {
		return nil, nil, fmt.Errorf("list carparks: %w", err)
	}

	var rows []detailRow
	if err := json.Unmarshal(result, &rows); err != nil {
		return nil, nil, fmt.Errorf("decode carpark details: %w", err)
	}

	carparks, rates := splitDetails(rows, time.Now().UTC())
	return carparks, rates, nil
}

func splitDetails(rows []detailRow, updatedAt time.Time) ([]domain.Carpark, []domain.RateWindow) {
	seen := make(map[string]struct{}, len(rows))
	carparks := make([]domain.Carpark, 0, len(rows))
	rates := make([]domain.RateWindow, 0, len(rows))

	for _, row := range rows {
		rates = append(rates, domain.RateWindow{
			CarparkCode:  row.PPCode,
			VehicleCat:   row.VehCat,
			StartTime:    row.StartTime,
			EndTime:      row.EndTime,
			WeekdayRate:  row.WeekdayRate,
			WeekdayMin:   row.WeekdayMin,
			SaturdayRate: row.SatdayRate,
			SaturdayMin:  row.SatdayMin,
			SundayPHRate: row.SunPHRate,
			SundayPHMin:  row.SunPHMin,
		})

		// First row wins for reference fields; later rows only differ in
		// their tariff window.
		if _, ok := seen[row.PPCode]; ok {
			continue
		}
		seen[row.PPCode] = struct{}{}

		cp := domain.Carpark{
			Code:          row.PPCode,
			Name:          row.PPName,
			VehicleCat:    row.VehCat,
			ParkingSystem: row.ParkingSystem,
			Capacity:      row.ParkCapacity,
			Remarks:       row.Remarks,
			UpdatedAt:     updatedAt,
		}
		if len(row.Geometries) > 0 {
			cp.SVY21 = parsePlanePoint(row.Geometries[0].Coordinates)
		}
		carparks = append(carparks, cp)
	}

	return carparks, rates
}
