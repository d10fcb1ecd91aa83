package ports

import (
	"carpark-data-service/internal/domain"
	"context"
)

// Optional capability of providers that also publish carpark reference data
// and parking tariffs. Kept separate from AvailabilityProvider so sources
// without a directory feed implement only what they have.
type CarparkDirectory interface {
	// Return reference records and tariff windows for all carparks.
	ListCarparks(ctx context.Context) ([]domain.Carpark, []domain.RateWindow, error)
}
