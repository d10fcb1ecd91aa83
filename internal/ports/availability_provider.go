package ports

import (
	"carpark-data-service/internal/domain"
	"context"
)

// Contract for fetching live carpark availability from one government source.
type AvailabilityProvider interface {
	// Agency identifies the source for logging and row attribution.
	Agency() domain.Agency
	// Return the current availability rows, flattened to one record per lot
	// type and geometry.
	ListAvailability(ctx context.Context) ([]domain.CarparkAvailability, error)
}
