package ura

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"carpark-data-service/internal/domain"
	"carpark-data-service/internal/platform/obs"
)

type geometry struct {
	Coordinates string `json:"coordinates"`
}

type availabilityRow struct {
	CarparkNo     string     `json:"carparkNo"`
	Geometries    []geometry `json:"geometries"`
	LotType       string     `json:"lotType"`
	LotsAvailable string     `json:"lotsAvailable"`
}

// ListAvailability fetches the live availability feed and flattens it into
// one record per lot type and geometry.
func (c *Client) ListAvailability(ctx context.Context) (_ []domain.CarparkAvailability, err error) {
	defer obs.Time(ctx, "ura.ListAvailability")(&err)

	result, err := c.invoke(ctx, availabilityService)
	if err != nil {
		return nil, fmt.Errorf("list availability: %w", err)
	}

	var rows []availabilityRow
	if err := json.Unmarshal(result, &rows); err != nil {
		return nil, fmt.Errorf("decode availability rows: %w", err)
	}

	return flattenAvailability(rows, time.Now().UTC()), nil
}

func flattenAvailability(rows []availabilityRow, fetchedAt time.Time) []domain.CarparkAvailability {
	out := make([]domain.CarparkAvailability, 0, len(rows))
	for _, row := range rows {
		// The feed publishes counts as strings; an unparsable count keeps
		// the row with zero lots rather than dropping it.
		lots, err := strconv.Atoi(strings.TrimSpace(row.LotsAvailable))
		if err != nil {
			lots = 0
		}

		rec := domain.CarparkAvailability{
			CarparkID: row.CarparkNo,
			Agency:    domain.AgencyURA,
			LotType:   row.LotType,
			LotLabel:  domain.LotTypeLabel(row.LotType),
			Lots:      lots,
			FetchedAt: fetchedAt,
		}

		if len(row.Geometries) == 0 {
			out = append(out, rec)
			continue
		}

		for _, g := range row.Geometries {
			exploded := rec
			exploded.SVY21 = parsePlanePoint(g.Coordinates)
			out = append(out, exploded)
		}
	}
	return out
}

// parsePlanePoint parses the "easting,northing" string the feed attaches to
// each geometry. "0,0" is the feed's null placeholder; that and malformed
// strings leave the record without a position.
func parsePlanePoint(s string) *domain.SVY21Point {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return nil
	}

	easting, errE := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	northing, errN := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if errE != nil || errN != nil {
		return nil
	}

	if easting == 0 && northing == 0 {
		return nil
	}

	return &domain.SVY21Point{Northing: northing, Easting: easting}
}
