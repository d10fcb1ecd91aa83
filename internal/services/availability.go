package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"carpark-data-service/internal/domain"
	"carpark-data-service/internal/platform/obs"
	"carpark-data-service/internal/ports"
	"carpark-data-service/internal/projection"
)

// AvailabilityService merges live lot readings from the configured
// providers into a single snapshot, deriving WGS84 positions for rows that
// only carry plane coordinates.
type AvailabilityService struct {
	Providers []ports.AvailabilityProvider
	Cache     ports.AvailabilityCache // optional
	Repo      ports.CarparkRepository // optional
	Proj      *projection.SVY21
	MaxAge    time.Duration // snapshot freshness window, default one minute
}

func (s *AvailabilityService) maxAge() time.Duration {
	if s.MaxAge <= 0 {
		return time.Minute
	}
	return s.MaxAge
}

// Refresh fetches every provider concurrently and merges their rows into a
// new snapshot. One provider failing degrades the snapshot to the
// remaining providers' rows; Refresh fails only when all of them do.
func (s *AvailabilityService) Refresh(ctx context.Context) (_ *ports.AvailabilitySnapshot, err error) {
	defer obs.Time(ctx, "availability.Refresh")(&err)

	if len(s.Providers) == 0 {
		return nil, errors.New("refresh availability: no providers configured")
	}

	rows := make([][]domain.CarparkAvailability, len(s.Providers))
	errs := make([]error, len(s.Providers))

	var group errgroup.Group
	for i, provider := range s.Providers {
		group.Go(func() error {
			res, err := provider.ListAvailability(ctx)
			if err != nil {
				errs[i] = fmt.Errorf("%s availability: %w", provider.Agency(), err)
				return nil
			}
			rows[i] = res
			return nil
		})
	}
	_ = group.Wait()

	merged := make([]domain.CarparkAvailability, 0, 256)
	var firstErr error
	okProviders := 0
	for i := range s.Providers {
		if errs[i] != nil {
			if firstErr == nil {
				firstErr = errs[i]
			}
			log.Printf("availability refresh degraded: %v", errs[i])
			continue
		}
		okProviders++
		merged = append(merged, rows[i]...)
	}
	if okProviders == 0 {
		return nil, fmt.Errorf("refresh availability: all providers failed: %w", firstErr)
	}

	s.enrich(merged)

	snap := &ports.AvailabilitySnapshot{FetchedAt: time.Now().UTC(), Rows: merged}

	// Cache and history writes are best-effort: a broken Redis or Postgres
	// must not take down the live snapshot path.
	if s.Cache != nil {
		if err := s.Cache.Put(ctx, snap); err != nil {
			log.Printf("availability cache write failed: %v", err)
		}
	}
	if s.Repo != nil {
		if err := s.Repo.InsertAvailability(ctx, merged); err != nil {
			log.Printf("availability history write failed: %v", err)
		}
	}

	return snap, nil
}

// Snapshot returns the cached snapshot when it is fresh enough, refreshing
// from the providers otherwise. When the refresh fails outright it falls
// back to the newest stored readings, so a reader still sees the last known
// state during a full upstream outage.
func (s *AvailabilityService) Snapshot(ctx context.Context) (*ports.AvailabilitySnapshot, error) {
	if s.Cache != nil {
		snap, ok, err := s.Cache.Get(ctx)
		if err != nil {
			log.Printf("availability cache read failed: %v", err)
		}
		if ok && time.Since(snap.FetchedAt) <= s.maxAge() {
			return snap, nil
		}
	}

	snap, err := s.Refresh(ctx)
	if err == nil {
		return snap, nil
	}

	if s.Repo != nil {
		rows, repoErr := s.Repo.LatestAvailability(ctx)
		if repoErr != nil {
			log.Printf("availability history read failed: %v", repoErr)
		} else if len(rows) > 0 {
			log.Printf("availability snapshot degraded to stored history: %v", err)
			fallback := &ports.AvailabilitySnapshot{Rows: rows}
			for _, row := range rows {
				if row.FetchedAt.After(fallback.FetchedAt) {
					fallback.FetchedAt = row.FetchedAt
				}
			}
			return fallback, nil
		}
	}

	return nil, err
}

func (s *AvailabilityService) enrich(rows []domain.CarparkAvailability) {
	if s.Proj == nil {
		return
	}

	for i := range rows {
		if rows[i].Location != nil || rows[i].SVY21 == nil {
			continue
		}
		lat, lon := s.Proj.SVY21ToLatLon(rows[i].SVY21.Northing, rows[i].SVY21.Easting)
		rows[i].Location = &domain.LatLon{Lat: lat, Lon: lon}
	}
}
