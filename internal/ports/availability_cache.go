package ports

import (
	"carpark-data-service/internal/domain"
	"context"
	"time"
)

// AvailabilitySnapshot is the merged result of one full availability refresh.
type AvailabilitySnapshot struct {
	FetchedAt time.Time                    `json:"fetched_at"`
	Rows      []domain.CarparkAvailability `json:"rows"`
}

// Port: cache holding the latest availability snapshot.
type AvailabilityCache interface {
	// Get returns the cached snapshot. A miss (or an undecodable entry) is
	// reported via ok=false, not an error.
	Get(ctx context.Context) (snap *AvailabilitySnapshot, ok bool, err error)
	// Put stores the snapshot, replacing any previous one.
	Put(ctx context.Context, snap *AvailabilitySnapshot) error
}
