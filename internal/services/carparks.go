package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"carpark-data-service/internal/domain"
	"carpark-data-service/internal/platform/obs"
	"carpark-data-service/internal/ports"
	"carpark-data-service/internal/projection"
)

// CarparkService syncs carpark reference records and tariffs from the
// directory provider and serves them for listing and export.
type CarparkService struct {
	Directory ports.CarparkDirectory
	Repo      ports.CarparkRepository
	Proj      *projection.SVY21
}

// Sync pulls the full carpark directory and stores reference records and
// tariff windows, deriving WGS84 positions before the upsert so readers
// never need the projection.
func (s *CarparkService) Sync(ctx context.Context) (err error) {
	defer obs.Time(ctx, "carparks.Sync")(&err)

	if s.Directory == nil {
		return errors.New("sync carparks: no directory provider configured")
	}

	carparks, rates, err := s.Directory.ListCarparks(ctx)
	if err != nil {
		return fmt.Errorf("sync carparks: %w", err)
	}

	if s.Proj != nil {
		for i := range carparks {
			if carparks[i].Location != nil || carparks[i].SVY21 == nil {
				continue
			}
			lat, lon := s.Proj.SVY21ToLatLon(carparks[i].SVY21.Northing, carparks[i].SVY21.Easting)
			carparks[i].Location = &domain.LatLon{Lat: lat, Lon: lon}
		}
	}

	if err := s.Repo.UpsertCarparks(ctx, carparks); err != nil {
		return fmt.Errorf("sync carparks: %w", err)
	}
	if err := s.Repo.ReplaceRates(ctx, rates); err != nil {
		return fmt.Errorf("sync rates: %w", err)
	}

	log.Printf("carpark sync complete carparks=%d rates=%d", len(carparks), len(rates))
	return nil
}

// ExportGeoJSON renders every carpark with a known WGS84 position as a
// GeoJSON FeatureCollection. Carparks without coordinates are skipped.
func (s *CarparkService) ExportGeoJSON(ctx context.Context) (_ []byte, err error) {
	defer obs.Time(ctx, "carparks.ExportGeoJSON")(&err)

	carparks, err := s.Repo.ListCarparks(ctx)
	if err != nil {
		return nil, fmt.Errorf("export geojson: %w", err)
	}

	fc := geojson.NewFeatureCollection()
	for _, cp := range carparks {
		if cp.Location == nil {
			continue
		}

		f := geojson.NewFeature(orb.Point{cp.Location.Lon, cp.Location.Lat})
		f.Properties["code"] = cp.Code
		f.Properties["name"] = cp.Name
		f.Properties["vehicle_category"] = cp.VehicleCat
		f.Properties["capacity"] = cp.Capacity
		fc.Append(f)
	}

	payload, err := fc.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("export geojson: marshal collection: %w", err)
	}

	return payload, nil
}
