package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"carpark-data-service/internal/adapters/feedtest"
	"carpark-data-service/internal/domain"
	"carpark-data-service/internal/projection"
)

func TestSyncStoresDirectoryAndEnriches(t *testing.T) {
	updated := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	dir := &feedtest.Directory{
		Carparks: []domain.Carpark{
			{Code: "A0004", Name: "ALIWAL STREET", VehicleCat: "Car", Capacity: 69,
				SVY21: &domain.SVY21Point{Northing: 31694.0055, Easting: 31045.6165}, UpdatedAt: updated},
			{Code: "A0005", Name: "ALIWAL STREET OFF", VehicleCat: "Car", UpdatedAt: updated},
		},
		Rates: []domain.RateWindow{
			{CarparkCode: "A0004", VehicleCat: "Car", StartTime: "08.30 AM", EndTime: "05.00 PM", WeekdayRate: "$0.50"},
			{CarparkCode: "A0004", VehicleCat: "Car", StartTime: "05.00 PM", EndTime: "10.00 PM", WeekdayRate: "$1.20"},
		},
	}
	repo := &stubRepo{}
	proj := projection.NewSVY21()

	svc := &CarparkService{Directory: dir, Repo: repo, Proj: proj}

	if err := svc.Sync(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(repo.upserted) != 2 {
		t.Fatalf("expected 2 carparks upserted, got %d", len(repo.upserted))
	}
	if len(repo.replaced) != 2 {
		t.Fatalf("expected 2 rate windows stored, got %d", len(repo.replaced))
	}

	first := repo.upserted[0]
	if first.Location == nil {
		t.Fatal("carpark with plane coordinates should gain a WGS84 position")
	}
	wantLat, wantLon := proj.SVY21ToLatLon(31694.0055, 31045.6165)
	if first.Location.Lat != wantLat || first.Location.Lon != wantLon {
		t.Fatalf("enriched position = (%v, %v), want (%v, %v)",
			first.Location.Lat, first.Location.Lon, wantLat, wantLon)
	}

	if repo.upserted[1].Location != nil {
		t.Fatal("carpark without plane coordinates should stay unpositioned")
	}
}

func TestSyncRequiresDirectory(t *testing.T) {
	svc := &CarparkService{Repo: &stubRepo{}}
	if err := svc.Sync(context.Background()); err == nil {
		t.Fatal("expected an error with no directory provider configured")
	}
}

func TestExportGeoJSON(t *testing.T) {
	repo := &stubRepo{listed: []domain.Carpark{
		{Code: "A0004", Name: "ALIWAL STREET", VehicleCat: "Car", Capacity: 69,
			Location: &domain.LatLon{Lat: 1.30314, Lon: 103.85978}},
		{Code: "NOPOS", Name: "UNPOSITIONED"},
	}}

	svc := &CarparkService{Repo: repo}

	payload, err := svc.ExportGeoJSON(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			Geometry struct {
				Type        string    `json:"type"`
				Coordinates []float64 `json:"coordinates"`
			} `json:"geometry"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	if err := json.Unmarshal(payload, &fc); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}

	if fc.Type != "FeatureCollection" {
		t.Fatalf("type = %q, want FeatureCollection", fc.Type)
	}
	if len(fc.Features) != 1 {
		t.Fatalf("expected 1 feature (unpositioned carparks skipped), got %d", len(fc.Features))
	}

	feat := fc.Features[0]
	if feat.Geometry.Type != "Point" {
		t.Fatalf("geometry type = %q, want Point", feat.Geometry.Type)
	}
	// GeoJSON positions are lon,lat ordered.
	if len(feat.Geometry.Coordinates) != 2 ||
		feat.Geometry.Coordinates[0] != 103.85978 || feat.Geometry.Coordinates[1] != 1.30314 {
		t.Fatalf("coordinates = %v, want [103.85978 1.30314]", feat.Geometry.Coordinates)
	}
	if feat.Properties["code"] != "A0004" {
		t.Fatalf("properties code = %v, want A0004", feat.Properties["code"])
	}
}
