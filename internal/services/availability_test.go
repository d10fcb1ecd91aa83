package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"carpark-data-service/internal/adapters/feedtest"
	"carpark-data-service/internal/domain"
	"carpark-data-service/internal/ports"
	"carpark-data-service/internal/projection"
)

type stubCache struct {
	snap *ports.AvailabilitySnapshot
	puts int
}

func (c *stubCache) Get(ctx context.Context) (*ports.AvailabilitySnapshot, bool, error) {
	if c.snap == nil {
		return nil, false, nil
	}
	return c.snap, true, nil
}

func (c *stubCache) Put(ctx context.Context, snap *ports.AvailabilitySnapshot) error {
	c.snap = snap
	c.puts++
	return nil
}

type stubRepo struct {
	upserted []domain.Carpark
	replaced []domain.RateWindow
	inserted []domain.CarparkAvailability
	listed   []domain.Carpark
	latest   []domain.CarparkAvailability
}

func (r *stubRepo) UpsertCarparks(ctx context.Context, carparks []domain.Carpark) error {
	r.upserted = append(r.upserted, carparks...)
	return nil
}

func (r *stubRepo) ReplaceRates(ctx context.Context, rates []domain.RateWindow) error {
	r.replaced = append(r.replaced[:0], rates...)
	return nil
}

func (r *stubRepo) ListCarparks(ctx context.Context, codes ...string) ([]domain.Carpark, error) {
	return r.listed, nil
}

func (r *stubRepo) ListRates(ctx context.Context, code string) ([]domain.RateWindow, error) {
	out := make([]domain.RateWindow, 0, len(r.replaced))
	for _, w := range r.replaced {
		if w.CarparkCode == code {
			out = append(out, w)
		}
	}
	if len(out) == 0 {
		return nil, ports.ErrNotFound
	}
	return out, nil
}

func (r *stubRepo) InsertAvailability(ctx context.Context, rows []domain.CarparkAvailability) error {
	r.inserted = append(r.inserted, rows...)
	return nil
}

func (r *stubRepo) LatestAvailability(ctx context.Context) ([]domain.CarparkAvailability, error) {
	return r.latest, nil
}

func TestRefreshMergesAndEnriches(t *testing.T) {
	uraRows := []domain.CarparkAvailability{
		{CarparkID: "A0004", Agency: domain.AgencyURA, LotType: "C", LotLabel: "Car", Lots: 107,
			SVY21: &domain.SVY21Point{Northing: 31045.6165, Easting: 29574.4221}},
	}
	ltaRows := []domain.CarparkAvailability{
		{CarparkID: "BM29", Agency: domain.AgencyLTA, LotType: "C", LotLabel: "Car", Lots: 522,
			Location: &domain.LatLon{Lat: 1.29375, Lon: 103.85718}},
	}

	ura := &feedtest.Provider{Name: domain.AgencyURA, Rows: uraRows}
	lta := &feedtest.Provider{Name: domain.AgencyLTA, Rows: ltaRows}
	cache := &stubCache{}
	repo := &stubRepo{}
	proj := projection.NewSVY21()

	svc := &AvailabilityService{
		Providers: []ports.AvailabilityProvider{ura, lta},
		Cache:     cache,
		Repo:      repo,
		Proj:      proj,
	}

	snap, err := svc.Refresh(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(snap.Rows) != 2 {
		t.Fatalf("expected 2 merged rows, got %d", len(snap.Rows))
	}

	var uraRow *domain.CarparkAvailability
	for i := range snap.Rows {
		if snap.Rows[i].CarparkID == "A0004" {
			uraRow = &snap.Rows[i]
		}
	}
	if uraRow == nil {
		t.Fatal("merged snapshot is missing the A0004 row")
	}
	if uraRow.Location == nil {
		t.Fatal("row with plane coordinates should gain a WGS84 position")
	}

	wantLat, wantLon := proj.SVY21ToLatLon(31045.6165, 29574.4221)
	if uraRow.Location.Lat != wantLat || uraRow.Location.Lon != wantLon {
		t.Fatalf("enriched position = (%v, %v), want (%v, %v)",
			uraRow.Location.Lat, uraRow.Location.Lon, wantLat, wantLon)
	}

	if cache.puts != 1 {
		t.Fatalf("expected 1 cache write, got %d", cache.puts)
	}
	if len(repo.inserted) != 2 {
		t.Fatalf("expected 2 history rows, got %d", len(repo.inserted))
	}
}

func TestRefreshToleratesOneProviderFailure(t *testing.T) {
	ura := &feedtest.Provider{Name: domain.AgencyURA, Err: errors.New("upstream down")}
	lta := &feedtest.Provider{Name: domain.AgencyLTA, Rows: []domain.CarparkAvailability{
		{CarparkID: "BM29", Agency: domain.AgencyLTA, LotType: "C", Lots: 522},
	}}

	svc := &AvailabilityService{Providers: []ports.AvailabilityProvider{ura, lta}}

	snap, err := svc.Refresh(context.Background())
	if err != nil {
		t.Fatalf("one healthy provider should be enough: %v", err)
	}
	if len(snap.Rows) != 1 {
		t.Fatalf("expected 1 row from the healthy provider, got %d", len(snap.Rows))
	}
	if snap.Rows[0].CarparkID != "BM29" {
		t.Fatalf("expected BM29, got %q", snap.Rows[0].CarparkID)
	}
}

func TestRefreshFailsWhenAllProvidersFail(t *testing.T) {
	ura := &feedtest.Provider{Name: domain.AgencyURA, Err: errors.New("token rejected")}
	lta := &feedtest.Provider{Name: domain.AgencyLTA, Err: errors.New("upstream down")}

	svc := &AvailabilityService{Providers: []ports.AvailabilityProvider{ura, lta}}

	if _, err := svc.Refresh(context.Background()); err == nil {
		t.Fatal("expected an error when every provider fails")
	}
}

func TestRefreshFailsWithoutProviders(t *testing.T) {
	svc := &AvailabilityService{}
	if _, err := svc.Refresh(context.Background()); err == nil {
		t.Fatal("expected an error with no providers configured")
	}
}

func TestSnapshotFallsBackToStoredHistory(t *testing.T) {
	older := time.Date(2026, 3, 1, 7, 55, 0, 0, time.UTC)
	newer := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	ura := &feedtest.Provider{Name: domain.AgencyURA, Err: errors.New("token rejected")}
	repo := &stubRepo{latest: []domain.CarparkAvailability{
		{CarparkID: "A0004", Agency: domain.AgencyURA, LotType: "C", Lots: 42, FetchedAt: older},
		{CarparkID: "BM29", Agency: domain.AgencyLTA, LotType: "C", Lots: 310, FetchedAt: newer},
	}}

	svc := &AvailabilityService{
		Providers: []ports.AvailabilityProvider{ura},
		Repo:      repo,
	}

	snap, err := svc.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("stored history should cover a full outage: %v", err)
	}
	if len(snap.Rows) != 2 {
		t.Fatalf("expected 2 history rows, got %d", len(snap.Rows))
	}
	if !snap.FetchedAt.Equal(newer) {
		t.Fatalf("snapshot time = %v, want the newest row's %v", snap.FetchedAt, newer)
	}
}

func TestSnapshotFailsWhenOutageAndNoHistory(t *testing.T) {
	ura := &feedtest.Provider{Name: domain.AgencyURA, Err: errors.New("token rejected")}

	svc := &AvailabilityService{
		Providers: []ports.AvailabilityProvider{ura},
		Repo:      &stubRepo{},
	}

	if _, err := svc.Snapshot(context.Background()); err == nil {
		t.Fatal("expected an error when providers fail and no history exists")
	}
}

func TestSnapshotServesFreshCache(t *testing.T) {
	cached := &ports.AvailabilitySnapshot{
		FetchedAt: time.Now().UTC().Add(-10 * time.Second),
		Rows:      []domain.CarparkAvailability{{CarparkID: "A0004", Agency: domain.AgencyURA, Lots: 99}},
	}
	ura := &feedtest.Provider{Name: domain.AgencyURA}

	svc := &AvailabilityService{
		Providers: []ports.AvailabilityProvider{ura},
		Cache:     &stubCache{snap: cached},
		MaxAge:    time.Minute,
	}

	snap, err := svc.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap != cached {
		t.Fatal("expected the cached snapshot to be served as-is")
	}
	if ura.Calls() != 0 {
		t.Fatalf("fresh cache should not hit providers, got %d calls", ura.Calls())
	}
}

func TestSnapshotRefreshesStaleCache(t *testing.T) {
	cache := &stubCache{snap: &ports.AvailabilitySnapshot{
		FetchedAt: time.Now().UTC().Add(-5 * time.Minute),
		Rows:      []domain.CarparkAvailability{{CarparkID: "STALE", Agency: domain.AgencyURA}},
	}}
	ura := &feedtest.Provider{Name: domain.AgencyURA, Rows: []domain.CarparkAvailability{
		{CarparkID: "A0004", Agency: domain.AgencyURA, Lots: 31},
	}}

	svc := &AvailabilityService{
		Providers: []ports.AvailabilityProvider{ura},
		Cache:     cache,
		MaxAge:    time.Minute,
	}

	snap, err := svc.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ura.Calls() != 1 {
		t.Fatalf("stale cache should trigger a refresh, got %d calls", ura.Calls())
	}
	if len(snap.Rows) != 1 || snap.Rows[0].CarparkID != "A0004" {
		t.Fatalf("expected refreshed rows, got %+v", snap.Rows)
	}
	if cache.puts != 1 {
		t.Fatalf("refresh should write back to the cache, got %d writes", cache.puts)
	}
}
